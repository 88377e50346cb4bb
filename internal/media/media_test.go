package media

import (
	"errors"
	"path/filepath"
	"testing"
)

// TestOpenMicrophoneUnconfigured verifies an unset capture source is an
// AccessError, the recoverable failure class.
func TestOpenMicrophoneUnconfigured(t *testing.T) {
	_, err := OpenMicrophone("")

	var accessErr *AccessError
	if !errors.As(err, &accessErr) {
		t.Fatalf("expected *AccessError, got %v", err)
	}
}

// TestOpenMicrophoneMissingSource verifies an unreadable source path is an
// AccessError wrapping the underlying cause.
func TestOpenMicrophoneMissingSource(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-capture-device")

	_, err := OpenMicrophone(missing)

	var accessErr *AccessError
	if !errors.As(err, &accessErr) {
		t.Fatalf("expected *AccessError, got %v", err)
	}
	if accessErr.Source != missing {
		t.Errorf("Source: got %q", accessErr.Source)
	}
	if accessErr.Unwrap() == nil {
		t.Error("AccessError does not wrap the cause")
	}
}

// TestSpeakerDiscardSink verifies the sink defaults to discard and Detach is
// idempotent.
func TestSpeakerDiscardSink(t *testing.T) {
	s, err := NewSpeaker("")
	if err != nil {
		t.Fatalf("NewSpeaker failed: %v", err)
	}

	s.Detach()
	s.Detach() // must be safe to call twice
}

// TestSpeakerFileSink verifies a configured sink path is created and
// released on Detach.
func TestSpeakerFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playback.pcm")

	s, err := NewSpeaker(path)
	if err != nil {
		t.Fatalf("NewSpeaker failed: %v", err)
	}
	if s.sink == nil || s.sinkC == nil {
		t.Fatal("file sink not wired")
	}

	s.Detach()
	if s.sinkC != nil {
		t.Error("sink not released on Detach")
	}
}

// TestSpeakerBadSinkPath verifies an unwritable sink path fails speaker
// construction, unlike the microphone this is not a recoverable error.
func TestSpeakerBadSinkPath(t *testing.T) {
	if _, err := NewSpeaker(filepath.Join(t.TempDir(), "missing-dir", "out.pcm")); err == nil {
		t.Fatal("expected error for unwritable sink path")
	}
}
