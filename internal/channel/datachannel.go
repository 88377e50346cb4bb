package channel

import (
	"github.com/pion/webrtc/v4"

	"github.com/voxterm/voxterm/internal/event"
	"github.com/voxterm/voxterm/internal/util"
)

// dataChannelWire adapts a pion DataChannel to the Wire interface. Events are
// sent as text frames, matching what the remote model expects.
type dataChannelWire struct {
	dc *webrtc.DataChannel
}

func (w dataChannelWire) Send(data []byte) error {
	return w.dc.SendText(string(data))
}

func (w dataChannelWire) Close() error {
	return w.dc.Close()
}

// NewDataChannel wraps a pion DataChannel in an EventChannel and routes its
// open/close/message callbacks into it. The channel opens once the SCTP
// association under the peer connection is established.
func NewDataChannel(dc *webrtc.DataChannel, log *event.Log) *EventChannel {
	ch := New(dataChannelWire{dc: dc}, log)

	dc.OnOpen(func() {
		util.LogDebug("data channel %q open", dc.Label())
		ch.handleOpen()
	})
	dc.OnClose(func() {
		util.LogDebug("data channel %q closed", dc.Label())
		ch.handleClose()
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		ch.handleMessage(msg.Data)
	})

	return ch
}
