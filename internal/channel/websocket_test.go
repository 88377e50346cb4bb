package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxterm/voxterm/internal/event"
)

// wsTestServer upgrades one connection and exposes what arrived on it.
type wsTestServer struct {
	t       *testing.T
	srv     *httptest.Server
	gotAuth chan string
	gotMsgs chan []byte
	sendCh  chan []byte
}

func newWSTestServer(t *testing.T) *wsTestServer {
	s := &wsTestServer{
		t:       t,
		gotAuth: make(chan string, 1),
		gotMsgs: make(chan []byte, 16),
		sendCh:  make(chan []byte, 16),
	}

	upgrader := websocket.Upgrader{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.gotAuth <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		go func() {
			for data := range s.sendCh {
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			}
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.gotMsgs <- data
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

// TestDialWebSocket verifies the WebSocket wire: authenticated dial, open on
// connect, event round-trip in both directions.
func TestDialWebSocket(t *testing.T) {
	srv := newWSTestServer(t)
	log := event.NewLog()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := DialWebSocket(ctx, srv.srv.URL, "test-model", "secret-123", log)
	if err != nil {
		t.Fatalf("DialWebSocket failed: %v", err)
	}
	defer ch.Close()

	if !ch.Open() {
		t.Fatal("channel not open after successful dial")
	}

	select {
	case auth := <-srv.gotAuth:
		if auth != "Bearer secret-123" {
			t.Errorf("Authorization header: got %q", auth)
		}
	case <-ctx.Done():
		t.Fatal("server never saw the dial")
	}

	// Outbound: one send, one frame at the server.
	ch.Send(event.NewResponseCreate())
	select {
	case data := <-srv.gotMsgs:
		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			t.Fatalf("server received non-JSON frame: %v", err)
		}
		if payload["type"] != event.TypeResponseCreate {
			t.Errorf("server received type %v", payload["type"])
		}
	case <-ctx.Done():
		t.Fatal("server never received the event")
	}

	// Inbound: a model event lands in the log with an arrival timestamp.
	srv.sendCh <- []byte(`{"type":"session.created","event_id":"srv-1"}`)

	deadline := time.After(5 * time.Second)
	for log.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("inbound event never reached the log")
		case <-time.After(10 * time.Millisecond):
		}
	}

	entries := log.Entries()
	if entries[0].Event.Type() != "session.created" {
		t.Errorf("inbound type: got %q", entries[0].Event.Type())
	}
	if entries[0].Event.Timestamp() == "" {
		t.Error("inbound event not stamped on arrival")
	}
}

// TestWebsocketURL verifies the https→wss rewrite and model parameter.
func TestWebsocketURL(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		model   string
		want    string
		wantErr bool
	}{
		{"https", "https://api.example.com/v1/realtime", "m1", "wss://api.example.com/v1/realtime?model=m1", false},
		{"http", "http://127.0.0.1:8080/realtime", "m", "ws://127.0.0.1:8080/realtime?model=m", false},
		{"already wss", "wss://api.example.com/v1/realtime", "m", "wss://api.example.com/v1/realtime?model=m", false},
		{"model escaped", "https://api.example.com/v1/realtime", "a b", "wss://api.example.com/v1/realtime?model=a+b", false},
		{"bad scheme", "ftp://api.example.com", "m", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := websocketURL(tc.in, tc.model)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.EqualFold(got, tc.want) {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
