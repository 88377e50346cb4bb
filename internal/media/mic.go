package media

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"gopkg.in/hraban/opus.v2"

	"github.com/voxterm/voxterm/internal/util"
)

// Microphone reads 48kHz mono s16le PCM from a local source (file or FIFO,
// typically fed by a capture tool), opus-encodes it in 20ms frames, and
// writes the frames to a local track attached to the peer connection.
type Microphone struct {
	track *webrtc.TrackLocalStaticSample
	src   io.ReadCloser
	enc   *opus.Encoder

	closeCh   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// OpenMicrophone acquires the capture source and builds the local audio
// track. Any failure — unset source, unreadable path, encoder setup — is an
// AccessError the session treats as non-fatal.
func OpenMicrophone(source string) (*Microphone, error) {
	if source == "" {
		return nil, &AccessError{Err: errors.New("no capture source configured")}
	}

	src, err := os.Open(source)
	if err != nil {
		return nil, &AccessError{Source: source, Err: err}
	}

	enc, err := opus.NewEncoder(sampleRate, 1, opus.AppVoIP)
	if err != nil {
		src.Close()
		return nil, &AccessError{Source: source, Err: err}
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeOpus,
			ClockRate: sampleRate,
			Channels:  1,
		},
		"audio", "voxterm-mic",
	)
	if err != nil {
		src.Close()
		return nil, &AccessError{Source: source, Err: err}
	}

	return &Microphone{
		track:   track,
		src:     src,
		enc:     enc,
		closeCh: make(chan struct{}),
	}, nil
}

// Track returns the local audio track to attach to the peer connection.
func (m *Microphone) Track() *webrtc.TrackLocalStaticSample {
	return m.track
}

// Start launches the capture pump. Call after the track has been added to
// the peer connection.
func (m *Microphone) Start() {
	m.wg.Add(1)
	go m.pump()
}

// Stop halts the capture pump and releases the source. Safe to call more
// than once.
func (m *Microphone) Stop() {
	m.closeOnce.Do(func() { close(m.closeCh) })
	m.wg.Wait()
	m.src.Close()
}

// pump is the capture loop: one 20ms PCM frame in, one opus sample out,
// paced at real time. A drained or failed source ends the loop; the session
// keeps running audio-output-only.
func (m *Microphone) pump() {
	defer m.wg.Done()

	raw := make([]byte, frameSamples*2) // s16le mono
	pcm := make([]int16, frameSamples)
	packet := make([]byte, 1500)

	ticker := time.NewTicker(frameDuration * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.closeCh:
			return
		case <-ticker.C:
		}

		if _, err := io.ReadFull(m.src, raw); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				util.LogWarning("microphone source read failed: %v", err)
			}
			return
		}

		for i := range pcm {
			pcm[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
		}

		n, err := m.enc.Encode(pcm, packet)
		if err != nil {
			util.LogWarning("opus encode failed: %v", err)
			continue
		}

		if err := m.track.WriteSample(media.Sample{
			Data:     append([]byte(nil), packet[:n]...),
			Duration: frameDuration * time.Millisecond,
		}); err != nil {
			util.LogWarning("failed to write microphone sample: %v", err)
			return
		}
	}
}
