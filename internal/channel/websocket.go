package channel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/voxterm/voxterm/internal/event"
	"github.com/voxterm/voxterm/internal/util"
)

// webSocketWire adapts a gorilla WebSocket connection to the Wire interface.
// Writes are serialized under a mutex; gorilla connections support one
// concurrent writer only.
type webSocketWire struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *webSocketWire) Send(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *webSocketWire) Close() error {
	return w.conn.Close()
}

// DialWebSocket connects to the realtime endpoint over WebSocket and returns
// an EventChannel bound to the connection. The same event protocol flows over
// this wire as over the WebRTC data channel; the ephemeral credential
// authenticates the dial. The channel is open as soon as the dial succeeds.
// There is no reconnection: a broken connection closes the channel for good.
func DialWebSocket(ctx context.Context, realtimeURL, model, secret string, log *event.Log) (*EventChannel, error) {
	wsURL, err := websocketURL(realtimeURL, model)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+secret)
	header.Set("OpenAI-Beta", "realtime=v1")

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	wire := &webSocketWire{conn: conn}
	ch := New(wire, log)
	ch.handleOpen()

	// Read loop: every inbound frame is one serialized event. Exits when the
	// connection drops or Close is called, closing the channel either way.
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					util.LogDebug("websocket read ended: %v", err)
				}
				ch.handleClose()
				return
			}
			ch.handleMessage(data)
		}
	}()

	return ch, nil
}

// websocketURL rewrites the https realtime URL into its wss form and appends
// the model query parameter.
func websocketURL(realtimeURL, model string) (string, error) {
	u, err := url.Parse(realtimeURL)
	if err != nil {
		return "", fmt.Errorf("invalid realtime URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid realtime URL scheme %q", u.Scheme)
	}

	q := u.Query()
	q.Set("model", model)
	u.RawQuery = q.Encode()

	if !strings.HasPrefix(u.Path, "/") && u.Path != "" {
		u.Path = "/" + u.Path
	}
	return u.String(), nil
}
