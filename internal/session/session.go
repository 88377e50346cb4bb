// Package session owns the connection lifecycle for one realtime voice
// conversation: credential provisioning, the WebRTC offer/answer handshake,
// local and remote media, and the event channel on top.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/voxterm/voxterm/internal/channel"
	"github.com/voxterm/voxterm/internal/config"
	"github.com/voxterm/voxterm/internal/event"
	"github.com/voxterm/voxterm/internal/media"
	"github.com/voxterm/voxterm/internal/provision"
	"github.com/voxterm/voxterm/internal/util"
)

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateProvisioning
	StateNegotiating
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProvisioning:
		return "provisioning"
	case StateNegotiating:
		return "negotiating"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session is the single orchestrator object with exclusive ownership of the
// peer connection, event channel, and media handles. Start builds everything
// in strict order; Stop tears it down in reverse. A peer connection is never
// reused: each Start constructs a fresh one.
type Session struct {
	cfg    *config.Config
	prov   *provision.Provisioner
	client *http.Client
	log    *event.Log

	mu       sync.Mutex
	state    State
	pc       *webrtc.PeerConnection
	ch       *channel.EventChannel
	mic      *media.Microphone
	speaker  *media.Speaker
	readyCh  chan struct{}
	doneCh   chan struct{}
	markDone func()
}

// New creates an idle session for the given configuration.
func New(cfg *config.Config) *Session {
	client := &http.Client{Timeout: cfg.HTTPTimeout}
	return &Session{
		cfg:    cfg,
		client: client,
		prov: &provision.Provisioner{
			Endpoint: cfg.SessionsURL,
			APIKey:   cfg.APIKey,
			Client:   client,
		},
		log:   event.NewLog(),
		state: StateIdle,
	}
}

// Log returns the session's event log. The log survives across Start calls;
// it is reset each time a new session's channel opens.
func (s *Session) Log() *event.Log {
	return s.log
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active reports whether the event channel is open and the session usable.
func (s *Session) Active() bool {
	return s.State() == StateActive
}

// Ready returns a channel closed when the event channel first opens after
// the most recent Start. Nil before the first Start.
func (s *Session) Ready() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyCh
}

// Done returns a channel closed when the session shuts down after the most
// recent Start. Nil before the first Start.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doneCh
}

// Start runs the session handshake: credential, peer connection, media,
// data channel, offer, SDP exchange, remote answer. Any failure along the
// way triggers the same full teardown as Stop and is returned to the caller.
// The transition to the active state happens when the channel reports open.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateClosed {
		s.mu.Unlock()
		return fmt.Errorf("session already started (state %s)", s.state)
	}
	s.state = StateProvisioning
	s.readyCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	readyCh := s.readyCh
	doneCh := s.doneCh
	s.mu.Unlock()

	var readyOnce, doneOnce sync.Once
	markReady := func() { readyOnce.Do(func() { close(readyCh) }) }
	markDone := func() { doneOnce.Do(func() { close(doneCh) }) }

	s.mu.Lock()
	s.markDone = markDone
	s.mu.Unlock()

	if err := s.start(ctx, markReady, markDone); err != nil {
		s.Stop()
		markDone()
		return err
	}
	return nil
}

// start is the ordered handshake body. Handles are stored on the session as
// they are created so a mid-flight failure tears down exactly what exists.
func (s *Session) start(ctx context.Context, markReady, markDone func()) error {
	// Credential first. On failure nothing has been constructed yet.
	secret, err := s.prov.Fetch(ctx, s.cfg.Model, s.cfg.Voice)
	if err != nil {
		return err
	}
	util.LogDebug("ephemeral credential obtained")

	if s.cfg.Transport == config.TransportWebSocket {
		return s.startWebSocket(ctx, secret, markReady, markDone)
	}

	// Connection handle.
	pc, err := newPeerConnection(s.cfg.STUNServers)
	if err != nil {
		return fmt.Errorf("failed to create peer connection: %w", err)
	}
	s.mu.Lock()
	s.pc = pc
	s.state = StateNegotiating
	s.mu.Unlock()

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		util.LogDebug("peer connection state: %s", state)
	})

	// Remote audio → playback sink.
	speaker, err := media.NewSpeaker(s.cfg.AudioOut)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.speaker = speaker
	s.mu.Unlock()
	pc.OnTrack(speaker.Bind)

	// Local microphone, best effort. The session proceeds audio-output-only
	// when acquisition fails.
	mic, err := media.OpenMicrophone(s.cfg.AudioIn)
	switch {
	case err == nil:
		if _, err := pc.AddTrack(mic.Track()); err != nil {
			mic.Stop()
			return fmt.Errorf("failed to attach microphone track: %w", err)
		}
		s.mu.Lock()
		s.mic = mic
		s.mu.Unlock()
	default:
		var accessErr *media.AccessError
		if !errors.As(err, &accessErr) {
			return err
		}
		util.LogWarning("%v — continuing without local audio", err)
		// Still negotiate a recvonly audio section so the remote track flows.
		if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			return fmt.Errorf("failed to add audio transceiver: %w", err)
		}
	}

	// Channel handle. It never outlives the peer connection: Stop closes it
	// first.
	dc, err := pc.CreateDataChannel("oai-events", nil)
	if err != nil {
		return fmt.Errorf("failed to create data channel: %w", err)
	}
	ch := channel.NewDataChannel(dc, s.log)
	s.mu.Lock()
	s.ch = ch
	s.mu.Unlock()

	ch.OnOpen(func() {
		s.mu.Lock()
		s.state = StateActive
		s.mu.Unlock()
		util.LogInfo("event channel open")
		ch.Send(event.NewSessionUpdate(s.cfg.Instructions))
		markReady()
	})
	ch.OnClose(func() {
		s.mu.Lock()
		if s.state == StateActive {
			s.state = StateClosed
		}
		s.mu.Unlock()
		markDone()
	})

	// Offer / answer.
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("failed to set local description: %w", err)
	}

	answerSDP, err := exchangeSDP(ctx, s.client, s.cfg.RealtimeURL, s.cfg.Model, secret, offer.SDP)
	if err != nil {
		return err
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answerSDP,
	}); err != nil {
		return fmt.Errorf("malformed answer: %w", err)
	}

	if mic != nil {
		mic.Start()
	}

	util.LogDebug("remote answer applied, waiting for channel open")
	return nil
}

// startWebSocket is the alternative transport: the same event protocol over
// a WebSocket dial, no peer connection and no media.
func (s *Session) startWebSocket(ctx context.Context, secret string, markReady, markDone func()) error {
	ch, err := channel.DialWebSocket(ctx, s.cfg.RealtimeURL, s.cfg.Model, secret, s.log)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ch = ch
	s.mu.Unlock()

	// The dial leaves the channel already open; OnOpen fires immediately.
	ch.OnOpen(func() {
		s.mu.Lock()
		s.state = StateActive
		s.mu.Unlock()
		util.LogInfo("event channel open (websocket)")
		ch.Send(event.NewSessionUpdate(s.cfg.Instructions))
		markReady()
	})
	ch.OnClose(func() {
		s.mu.Lock()
		if s.state == StateActive {
			s.state = StateClosed
		}
		s.mu.Unlock()
		markDone()
	})

	return nil
}

// Stop tears the session down in reverse construction order: channel, local
// media, peer connection, playback sink. All handles are discarded; the
// session ends inactive. Safe to call at any point, including mid-Start.
func (s *Session) Stop() error {
	s.mu.Lock()
	ch, mic, pc, speaker := s.ch, s.mic, s.pc, s.speaker
	s.ch, s.mic, s.pc, s.speaker = nil, nil, nil, nil
	s.state = StateClosed
	markDone := s.markDone
	s.mu.Unlock()

	var errs []error
	if ch != nil {
		errs = append(errs, ch.Close())
	}
	if mic != nil {
		mic.Stop()
	}
	if pc != nil {
		errs = append(errs, pc.Close())
	}
	if speaker != nil {
		speaker.Detach()
	}
	if markDone != nil {
		markDone()
	}
	return errors.Join(errs...)
}

// Send forwards a structured event through the event channel. With no
// channel present (session not started) the event is dropped with an
// operator-visible error, matching the not-open send policy.
func (s *Session) Send(ev *event.Event) {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()

	if ch == nil {
		util.LogError("dropping %q event: no active session", ev.Type())
		return
	}
	ch.Send(ev)
}

// SendText wraps plain text into a conversation item followed by a response
// request.
func (s *Session) SendText(text string) {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()

	if ch == nil {
		util.LogError("dropping text message: no active session")
		return
	}
	ch.SendText(text)
}

// newPeerConnection creates a PeerConnection configured with the given STUN
// servers.
func newPeerConnection(stunServers []string) (*webrtc.PeerConnection, error) {
	cfg := webrtc.Configuration{}
	if len(stunServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: stunServers}}
	}
	return webrtc.NewPeerConnection(cfg)
}
