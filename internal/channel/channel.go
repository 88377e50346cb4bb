// Package channel implements the bidirectional event channel layered on the
// peer connection: structured control/content messages out, model events in.
package channel

import (
	"errors"
	"sync"

	"github.com/voxterm/voxterm/internal/event"
	"github.com/voxterm/voxterm/internal/util"
)

// ErrChannelNotReady reports a send attempted while the channel is not open.
// The message is dropped and the error logged; nothing propagates to the
// caller and nothing is queued.
var ErrChannelNotReady = errors.New("event channel is not open")

// Wire is the raw serialized-message pipe under an EventChannel. Open/close
// and inbound-message transitions are reported by the wire implementation
// through the EventChannel's handle* methods.
type Wire interface {
	Send(data []byte) error
	Close() error
}

// EventChannel stamps, serializes, and transmits outbound events, parses
// inbound ones, and maintains the session's event log. All sends are guarded
// by the open state; the log is reset each time the channel opens.
type EventChannel struct {
	mu      sync.Mutex
	wire    Wire
	open    bool
	closed  bool
	log     *event.Log
	onOpen  []func()
	onClose []func()
}

// New wraps a wire in an EventChannel writing to the given log. The wire's
// constructor is responsible for routing its transitions into the returned
// channel.
func New(w Wire, log *event.Log) *EventChannel {
	return &EventChannel{wire: w, log: log}
}

// Open reports whether the channel is currently open.
func (c *EventChannel) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Log returns the event log backing this channel.
func (c *EventChannel) Log() *event.Log {
	return c.log
}

// OnOpen registers an observer invoked when the channel opens. If the channel
// is already open the observer runs immediately, so registration order
// relative to the underlying transport does not matter.
func (c *EventChannel) OnOpen(fn func()) {
	c.mu.Lock()
	open := c.open
	c.onOpen = append(c.onOpen, fn)
	c.mu.Unlock()

	if open {
		fn()
	}
}

// OnClose registers an observer invoked when the channel closes.
func (c *EventChannel) OnClose(fn func()) {
	c.mu.Lock()
	c.onClose = append(c.onClose, fn)
	c.mu.Unlock()
}

// Send stamps the event with a unique id and a wall-clock timestamp (only
// where the caller did not supply them), serializes it, transmits it, and
// prepends it to the event log. A send while the channel is not open is
// dropped with an operator-visible error; it is never queued.
func (c *EventChannel) Send(ev *event.Event) {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		util.LogError("dropping %q event: %v", ev.Type(), ErrChannelNotReady)
		return
	}
	wire := c.wire
	c.mu.Unlock()

	ev.StampID()
	ev.StampTimestamp(event.Clock())

	data, err := ev.MarshalJSON()
	if err != nil {
		util.LogError("failed to serialize %q event: %v", ev.Type(), err)
		return
	}

	if err := wire.Send(data); err != nil {
		util.LogError("failed to send %q event: %v", ev.Type(), err)
		return
	}

	util.Stats.AddSent(len(data))
	c.log.Prepend(event.Outbound, ev)
}

// SendText wraps plain user text into a conversation-item-create event
// followed by a response-create event, issued as two sequential sends.
func (c *EventChannel) SendText(text string) {
	c.Send(event.NewConversationItem(text))
	c.Send(event.NewResponseCreate())
}

// Close shuts the underlying wire and drops all observers.
func (c *EventChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.open = false
	c.onOpen = nil
	c.onClose = nil
	wire := c.wire
	c.mu.Unlock()

	return wire.Close()
}

// ---------------------------------------------------------------------------
// Wire-side transitions
// ---------------------------------------------------------------------------

// handleOpen marks the channel open and resets the event log before any new
// entry can be appended, then notifies observers.
func (c *EventChannel) handleOpen() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.open = true
	observers := append([]func(){}, c.onOpen...)
	c.mu.Unlock()

	c.log.Reset()
	for _, fn := range observers {
		fn()
	}
}

// handleClose marks the channel closed and notifies observers.
func (c *EventChannel) handleClose() {
	c.mu.Lock()
	wasOpen := c.open
	c.open = false
	observers := append([]func(){}, c.onClose...)
	c.mu.Unlock()

	if !wasOpen {
		return
	}
	for _, fn := range observers {
		fn()
	}
}

// handleMessage parses an inbound serialized payload, stamps an arrival
// timestamp when the event lacks one, and prepends it to the log. Malformed
// payloads are dropped with an operator-visible error.
func (c *EventChannel) handleMessage(data []byte) {
	ev, err := event.Parse(data)
	if err != nil {
		util.LogError("dropping inbound payload: %v", err)
		return
	}

	ev.StampTimestamp(event.Clock())
	util.Stats.AddRecv(len(data))
	c.log.Prepend(event.Inbound, ev)
}
