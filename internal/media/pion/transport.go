// Package pion implements media.Transport on pion/webrtc with a single
// audio transceiver.
package pion

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/park285/famhub/internal/media"
	"github.com/park285/famhub/internal/obslog"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"
)

type Config struct {
	ICEServers []string
}

func DefaultConfig() Config {
	return Config{ICEServers: []string{"stun:stun.l.google.com:19302"}}
}

type Transport struct {
	pc *webrtc.PeerConnection

	mu      sync.Mutex
	onState func(media.State)
	closed  bool

	packets atomic.Uint64
	bytes   atomic.Uint64
}

// NewFactory returns a media.Factory producing pion transports.
func NewFactory(cfg Config) media.Factory {
	return func() (media.Transport, error) { return New(cfg) }
}

func New(cfg Config) (*Transport, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}
	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(registry),
	)

	var servers []webrtc.ICEServer
	if len(cfg.ICEServers) > 0 {
		servers = []webrtc.ICEServer{{URLs: cfg.ICEServers}}
	}
	pc, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: servers})
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionSendrecv,
	}); err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("add audio transceiver: %w", err)
	}

	t := &Transport{pc: pc}
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		obslog.L().Debug("media_state", zap.String("state", s.String()))
		t.mu.Lock()
		fn := t.onState
		t.mu.Unlock()
		if fn != nil {
			fn(mapState(s))
		}
	})
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		obslog.L().Debug("media_track", zap.String("kind", track.Kind().String()), zap.String("codec", track.Codec().MimeType))
		go t.drain(track)
	})
	return t, nil
}

// drain reads the remote track until it closes. Playback is out of scope;
// packets are only counted.
func (t *Transport) drain(track *webrtc.TrackRemote) {
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		t.count(pkt)
	}
}

func (t *Transport) count(pkt *rtp.Packet) {
	t.packets.Add(1)
	t.bytes.Add(uint64(len(pkt.Payload)))
}

func (t *Transport) Stats() media.Stats {
	return media.Stats{Packets: t.packets.Load(), Bytes: t.bytes.Load()}
}

func mapState(s webrtc.PeerConnectionState) media.State {
	switch s {
	case webrtc.PeerConnectionStateConnecting:
		return media.StateConnecting
	case webrtc.PeerConnectionStateConnected:
		return media.StateConnected
	case webrtc.PeerConnectionStateDisconnected:
		return media.StateDisconnected
	case webrtc.PeerConnectionStateFailed:
		return media.StateFailed
	case webrtc.PeerConnectionStateClosed:
		return media.StateClosed
	default:
		return media.StateNew
	}
}

func (t *Transport) OnStateChange(fn func(media.State)) {
	t.mu.Lock()
	t.onState = fn
	t.mu.Unlock()
}

func (t *Transport) CreateOffer(ctx context.Context) ([]byte, error) {
	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	return t.setLocal(ctx, offer)
}

func (t *Transport) AcceptOffer(ctx context.Context, raw []byte) ([]byte, error) {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(raw, &offer); err != nil {
		return nil, fmt.Errorf("decode offer: %w", err)
	}
	if err := t.pc.SetRemoteDescription(offer); err != nil {
		return nil, fmt.Errorf("set remote offer: %w", err)
	}
	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	return t.setLocal(ctx, answer)
}

func (t *Transport) AcceptAnswer(raw []byte) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(raw, &answer); err != nil {
		return fmt.Errorf("decode answer: %w", err)
	}
	if err := t.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("set remote answer: %w", err)
	}
	return nil
}

// setLocal applies desc and waits for ICE gathering so the returned blob
// carries every candidate.
func (t *Transport) setLocal(ctx context.Context, desc webrtc.SessionDescription) ([]byte, error) {
	gathered := webrtc.GatheringCompletePromise(t.pc)
	if err := t.pc.SetLocalDescription(desc); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	local := t.pc.LocalDescription()
	if local == nil {
		return nil, fmt.Errorf("no local description after gathering")
	}
	return json.Marshal(local)
}

func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	return t.pc.Close()
}

var (
	_ media.Transport   = (*Transport)(nil)
	_ media.StatsSource = (*Transport)(nil)
)
