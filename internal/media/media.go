// Package media handles local microphone capture and remote audio playback.
// Audio flows as 48kHz s16le PCM on the local side and opus on the wire.
package media

import "fmt"

// Audio framing constants. The capture side produces one 20ms opus frame per
// sample written to the local track.
const (
	sampleRate    = 48000
	frameDuration = 20 // ms
	frameSamples  = sampleRate * frameDuration / 1000
)

// AccessError reports a failure to acquire a local capture source. It is the
// one error class the session recovers from in place: the conversation
// proceeds audio-output-only.
type AccessError struct {
	Source string
	Err    error
}

func (e *AccessError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("microphone unavailable: %v", e.Err)
	}
	return fmt.Sprintf("microphone unavailable (%s): %v", e.Source, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}
