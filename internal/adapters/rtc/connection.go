package rtc

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/Logbot/internal/core"
	"github.com/dkeye/Logbot/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const channelLabel = "logbot"

var ErrNotOpen = errors.New("rtc: data channel not open")

// Link is one peer connection carrying a single ordered, reliable data
// channel. DTLS gives the channel its encryption.
type Link struct {
	pc   *webrtc.PeerConnection
	peer domain.PeerID

	mu sync.Mutex
	dc *webrtc.DataChannel

	onOpen    func()
	onMessage func(core.Frame)
	onClosed  func()

	closeOnce  sync.Once
	closedOnce sync.Once
	cancel     context.CancelFunc
}

var _ core.DataLink = (*Link)(nil)

func DefaultWebRTCConfig(iceServers ...string) webrtc.Configuration {
	if len(iceServers) == 0 {
		iceServers = []string{"stun:stun.l.google.com:19302"}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: iceServers,
			},
		},
	}
}

func NewLink(cfg webrtc.Configuration, peer domain.PeerID) (*Link, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	return &Link{pc: pc, peer: peer}, nil
}

// Start installs the state callbacks and binds the link lifetime to ctx.
// Set OnOpen, OnMessage and OnClosed before calling it.
func (l *Link) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	l.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "webrtc").Str("peer", string(l.peer)).Str("peer_connection_state", s.String()).Msg("Peer state")
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed {
			l.fireClosed()
		}
	})

	// answering side: the channel is created by the offerer
	l.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != channelLabel {
			log.Warn().Str("module", "webrtc").Str("peer", string(l.peer)).Str("label", dc.Label()).Msg("unexpected data channel")
			return
		}
		l.bind(dc)
	})

	go func() {
		<-ctx.Done()
		l.Close()
	}()
	return nil
}

// CreateOffer opens the data channel and returns a complete offer, ICE
// gathering included.
func (l *Link) CreateOffer(ctx context.Context) (*webrtc.SessionDescription, error) {
	ordered := true
	dc, err := l.pc.CreateDataChannel(channelLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, err
	}
	l.bind(dc)

	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	gatherComplete := webrtc.GatheringCompletePromise(l.pc)
	if err := l.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return l.pc.LocalDescription(), nil
}

func (l *Link) ApplyOfferAndCreateAnswer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if err := l.pc.SetRemoteDescription(offer); err != nil {
		return nil, err
	}
	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}

	gatherComplete := webrtc.GatheringCompletePromise(l.pc)
	if err := l.pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	<-gatherComplete

	return l.pc.LocalDescription(), nil
}

func (l *Link) ApplyAnswer(answer webrtc.SessionDescription) error {
	return l.pc.SetRemoteDescription(answer)
}

func (l *Link) Send(f core.Frame) error {
	l.mu.Lock()
	dc := l.dc
	l.mu.Unlock()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrNotOpen
	}
	return dc.Send(f)
}

func (l *Link) Close() {
	l.closeOnce.Do(func() {
		if l.cancel != nil {
			l.cancel()
		}
		if err := l.pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "webrtc").Str("peer", string(l.peer)).Msg("close error")
		} else {
			log.Info().Str("module", "webrtc").Str("peer", string(l.peer)).Msg("closed")
		}
		l.fireClosed()
	})
}

// OnOpen sets the callback for the data channel becoming usable.
func (l *Link) OnOpen(fn func()) { l.onOpen = fn }

// OnMessage sets the callback for inbound frames.
func (l *Link) OnMessage(fn func(core.Frame)) { l.onMessage = fn }

// OnClosed sets the callback fired once when the link goes away.
func (l *Link) OnClosed(fn func()) { l.onClosed = fn }

func (l *Link) bind(dc *webrtc.DataChannel) {
	l.mu.Lock()
	l.dc = dc
	l.mu.Unlock()

	dc.OnOpen(func() {
		log.Info().Str("module", "webrtc").Str("peer", string(l.peer)).Msg("data channel open")
		if l.onOpen != nil {
			l.onOpen()
		}
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if l.onMessage != nil {
			l.onMessage(core.Frame(msg.Data))
		}
	})
	dc.OnClose(l.fireClosed)
}

func (l *Link) fireClosed() {
	l.closedOnce.Do(func() {
		if l.onClosed != nil {
			l.onClosed()
		}
	})
}
