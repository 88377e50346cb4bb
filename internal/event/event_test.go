package event

import (
	"encoding/json"
	"testing"
)

// TestParseMarshalRoundTrip verifies that fields the console has never heard
// of survive a parse/marshal cycle unmodified.
func TestParseMarshalRoundTrip(t *testing.T) {
	payload := []byte(`{"type":"response.done","response":{"id":"resp_1","usage":{"total_tokens":42}},"custom":"x"}`)

	ev, err := Parse(payload)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ev.Type() != "response.done" {
		t.Errorf("Type mismatch: got %q, want %q", ev.Type(), "response.done")
	}

	out, err := ev.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}

	var got, want map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("re-parse failed: %v", err)
	}
	if err := json.Unmarshal(payload, &want); err != nil {
		t.Fatalf("parse of original failed: %v", err)
	}

	if len(got) != len(want) {
		t.Errorf("field count changed: got %d, want %d", len(got), len(want))
	}
	if got["custom"] != "x" {
		t.Errorf("unknown field lost: got %v", got["custom"])
	}
}

// TestParseRejectsBadPayloads verifies that non-JSON payloads and payloads
// without a type discriminator are rejected.
func TestParseRejectsBadPayloads(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{"not json", []byte("hello")},
		{"json array", []byte(`[1,2,3]`)},
		{"missing type", []byte(`{"event_id":"e1"}`)},
		{"empty type", []byte(`{"type":""}`)},
		{"non-string type", []byte(`{"type":42}`)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(tc.data); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

// TestStampInjectsOnlyWhenAbsent verifies the stamping contract: missing
// event_id/timestamp are injected, present ones are never overwritten.
func TestStampInjectsOnlyWhenAbsent(t *testing.T) {
	t.Run("injects when absent", func(t *testing.T) {
		ev := New("response.create")
		if ev.ID() != "" || ev.Timestamp() != "" {
			t.Fatal("fresh event should carry no id or timestamp")
		}

		ev.StampID()
		ev.StampTimestamp("12:00:00")

		if ev.ID() == "" {
			t.Error("StampID did not inject an event_id")
		}
		if ev.Timestamp() != "12:00:00" {
			t.Errorf("StampTimestamp mismatch: got %q", ev.Timestamp())
		}
	})

	t.Run("preserves when present", func(t *testing.T) {
		ev, err := Parse([]byte(`{"type":"custom","event_id":"e-keep","timestamp":"08:30:00"}`))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		ev.StampID()
		ev.StampTimestamp("23:59:59")

		if ev.ID() != "e-keep" {
			t.Errorf("event_id overwritten: got %q", ev.ID())
		}
		if ev.Timestamp() != "08:30:00" {
			t.Errorf("timestamp overwritten: got %q", ev.Timestamp())
		}
	})
}

// TestStampIDUnique verifies that stamped ids do not repeat.
func TestStampIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ev := New("response.create")
		ev.StampID()
		if seen[ev.ID()] {
			t.Fatalf("duplicate event_id %q", ev.ID())
		}
		seen[ev.ID()] = true
	}
}

// TestConversationItemShape verifies the conversation-item-create envelope
// carries the literal user text.
func TestConversationItemShape(t *testing.T) {
	ev := NewConversationItem("hello")
	if ev.Type() != TypeConversationItemCreate {
		t.Fatalf("Type mismatch: got %q", ev.Type())
	}

	data, err := ev.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}

	var decoded struct {
		Item struct {
			Type    string `json:"type"`
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"item"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if decoded.Item.Type != "message" || decoded.Item.Role != "user" {
		t.Errorf("item shape mismatch: %+v", decoded.Item)
	}
	if len(decoded.Item.Content) != 1 || decoded.Item.Content[0].Text != "hello" {
		t.Errorf("content mismatch: %+v", decoded.Item.Content)
	}
	if decoded.Item.Content[0].Type != "input_text" {
		t.Errorf("content type mismatch: %q", decoded.Item.Content[0].Type)
	}
}

// TestSessionUpdateShape verifies the session-update envelope carries the
// instructions.
func TestSessionUpdateShape(t *testing.T) {
	ev := NewSessionUpdate("be brief")
	if ev.Type() != TypeSessionUpdate {
		t.Fatalf("Type mismatch: got %q", ev.Type())
	}

	sessionField, ok := ev.Get("session")
	if !ok {
		t.Fatal("missing session field")
	}
	m, ok := sessionField.(map[string]any)
	if !ok || m["instructions"] != "be brief" {
		t.Errorf("instructions mismatch: %v", sessionField)
	}
}
