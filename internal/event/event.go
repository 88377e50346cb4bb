// Package event defines the structured protocol events exchanged over the
// event channel, and the per-session event log the console renders.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Well-known event types authored by the console. Inbound events carry
// whatever type the model emits; the log stores them as-is.
const (
	TypeSessionUpdate          = "session.update"
	TypeConversationItemCreate = "conversation.item.create"
	TypeResponseCreate         = "response.create"
)

// Event is a JSON envelope with a required "type" discriminator. All other
// fields round-trip unmodified, so model-side event shapes the console has
// never heard of survive a parse/marshal cycle intact.
type Event struct {
	fields map[string]any
}

// New creates an event of the given type with no other fields set.
func New(typ string) *Event {
	return &Event{fields: map[string]any{"type": typ}}
}

// Parse decodes a serialized event. The payload must be a JSON object with a
// string "type" field.
func Parse(data []byte) (*Event, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("malformed event payload: %w", err)
	}
	if typ, ok := fields["type"].(string); !ok || typ == "" {
		return nil, fmt.Errorf("event payload missing type discriminator")
	}
	return &Event{fields: fields}, nil
}

// Type returns the event's type discriminator.
func (e *Event) Type() string {
	typ, _ := e.fields["type"].(string)
	return typ
}

// ID returns the event_id field, or "" when unset.
func (e *Event) ID() string {
	id, _ := e.fields["event_id"].(string)
	return id
}

// Timestamp returns the timestamp field, or "" when unset.
func (e *Event) Timestamp() string {
	ts, _ := e.fields["timestamp"].(string)
	return ts
}

// Set assigns an arbitrary field on the envelope.
func (e *Event) Set(key string, val any) {
	e.fields[key] = val
}

// Get reads an arbitrary field from the envelope.
func (e *Event) Get(key string) (any, bool) {
	val, ok := e.fields[key]
	return val, ok
}

// StampID injects a fresh unique event_id unless the event already has one.
func (e *Event) StampID() {
	if e.ID() == "" {
		e.fields["event_id"] = uuid.NewString()
	}
}

// StampTimestamp injects the given clock reading as the timestamp unless the
// event already carries one.
func (e *Event) StampTimestamp(ts string) {
	if e.Timestamp() == "" {
		e.fields["timestamp"] = ts
	}
}

// MarshalJSON serializes the envelope with all fields, known and unknown.
func (e *Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.fields)
}

// Clock returns a human-readable local wall-clock reading, the format used
// for timestamp stamping on both outbound and inbound events.
func Clock() string {
	return time.Now().Format("15:04:05")
}

// ---------------------------------------------------------------------------
// Console-authored event shapes
// ---------------------------------------------------------------------------

// NewSessionUpdate builds the initial configuration event sent when the
// channel opens, carrying the session instructions.
func NewSessionUpdate(instructions string) *Event {
	ev := New(TypeSessionUpdate)
	ev.Set("session", map[string]any{"instructions": instructions})
	return ev
}

// NewConversationItem wraps plain user text into a conversation-item-create
// event.
func NewConversationItem(text string) *Event {
	ev := New(TypeConversationItemCreate)
	ev.Set("item", map[string]any{
		"type": "message",
		"role": "user",
		"content": []any{
			map[string]any{"type": "input_text", "text": text},
		},
	})
	return ev
}

// NewResponseCreate builds the event requesting a model response to the
// conversation so far.
func NewResponseCreate() *Event {
	return New(TypeResponseCreate)
}
