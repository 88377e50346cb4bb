package media

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pion/webrtc/v4"
	"gopkg.in/hraban/opus.v2"

	"github.com/voxterm/voxterm/internal/util"
)

// Speaker is the playback sink for remote audio. It binds the first inbound
// audio track, decodes opus RTP payloads to PCM, and writes s16le samples to
// the configured sink (file or FIFO feeding a playback tool). With no sink
// configured the decoded audio is discarded, which still keeps the RTP
// receive path drained.
type Speaker struct {
	sink    io.Writer
	sinkC   io.Closer // nil when nothing to close
	closeCh chan struct{}

	mu    sync.Mutex
	bound bool
	wg    sync.WaitGroup
	once  sync.Once
}

// NewSpeaker creates the playback sink. An empty sink path discards audio.
func NewSpeaker(sinkPath string) (*Speaker, error) {
	s := &Speaker{
		sink:    io.Discard,
		closeCh: make(chan struct{}),
	}

	if sinkPath != "" {
		f, err := os.OpenFile(sinkPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open playback sink: %w", err)
		}
		s.sink = f
		s.sinkC = f
	}

	return s, nil
}

// Bind attaches a remote track to the sink. Non-audio and non-opus tracks
// are ignored, as is any track after the first: the session carries at most
// one remote audio stream.
func (s *Speaker) Bind(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	if track.Kind() != webrtc.RTPCodecTypeAudio {
		util.LogDebug("ignoring non-audio track (%s)", track.Codec().MimeType)
		return
	}
	if track.Codec().MimeType != webrtc.MimeTypeOpus {
		util.LogWarning("ignoring non-opus audio track (%s)", track.Codec().MimeType)
		return
	}

	s.mu.Lock()
	if s.bound {
		s.mu.Unlock()
		util.LogWarning("ignoring additional remote audio track")
		return
	}
	s.bound = true
	s.wg.Add(1)
	s.mu.Unlock()

	util.LogDebug("remote audio track bound (%s, %d Hz)", track.Codec().MimeType, track.Codec().ClockRate)
	go s.play(track)
}

// Detach stops playback and releases the sink. Safe to call more than once.
func (s *Speaker) Detach() {
	s.once.Do(func() { close(s.closeCh) })
	s.wg.Wait()
	if s.sinkC != nil {
		s.sinkC.Close()
		s.sinkC = nil
	}
}

// play reads RTP packets off the remote track, decodes opus to PCM, and
// writes s16le samples to the sink until the track ends or Detach is called.
func (s *Speaker) play(track *webrtc.TrackRemote) {
	defer s.wg.Done()

	channels := int(track.Codec().Channels)
	if channels < 1 {
		channels = 2 // SDP convention: opus/48000/2
	}

	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		util.LogError("failed to create opus decoder: %v", err)
		return
	}

	// Up to 120ms of decoded audio per packet.
	pcm := make([]int16, 5760*channels)
	raw := make([]byte, len(pcm)*2)

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		pkt, _, err := track.ReadRTP()
		if err != nil {
			if s.closed() {
				return
			}
			util.LogDebug("remote audio track ended: %v", err)
			return
		}
		if len(pkt.Payload) == 0 {
			continue
		}

		n, err := dec.Decode(pkt.Payload, pcm)
		if err != nil {
			util.LogDebug("opus decode failed: %v", err)
			continue
		}

		total := n * channels
		for i := 0; i < total; i++ {
			binary.LittleEndian.PutUint16(raw[i*2:], uint16(pcm[i]))
		}
		if _, err := s.sink.Write(raw[:total*2]); err != nil {
			util.LogWarning("playback sink write failed: %v", err)
			return
		}
	}
}

func (s *Speaker) closed() bool {
	select {
	case <-s.closeCh:
		return true
	default:
		return false
	}
}
