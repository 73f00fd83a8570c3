// Package rtc is the networked PeerTransport: one WebRTC data channel per
// peer, negotiated through a Rendezvous.
package rtc

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/Logbot/internal/adapters/serial"
	"github.com/dkeye/Logbot/internal/apperr"
	"github.com/dkeye/Logbot/internal/core"
	"github.com/dkeye/Logbot/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// DefaultInviteTimeout bounds how long an invitation may stay unanswered.
const DefaultInviteTimeout = 30 * time.Second

var (
	ErrUnknownPeer = errors.New("rtc: unknown peer")
	ErrNoLink      = errors.New("rtc: no pending link")
)

// Negotiator is the transport side of a rendezvous: it turns invitations
// into links.
type Negotiator interface {
	// Invite creates a link to peer and returns the offer to deliver.
	Invite(ctx context.Context, peer domain.PeerID) (string, error)
	// Accept answers an offer received from peer.
	Accept(ctx context.Context, peer domain.PeerID, offer string) (string, error)
	// Complete applies the answer to a pending invitation.
	Complete(peer domain.PeerID, answer string) error
	// Fail reports a rendezvous failure.
	Fail(err *apperr.Error)
	// Linked reports whether peer has a pending or open link.
	Linked(peer domain.PeerID) bool
}

// Rendezvous discovers peers and carries offers and answers.
type Rendezvous interface {
	Advertise(ctx context.Context, role domain.DeviceKind, n Negotiator) error
	Browse(ctx context.Context, n Negotiator) error
	Close() error
}

type Config struct {
	WebRTC        webrtc.Configuration
	InviteTimeout time.Duration
}

// peerLink tracks one link's open/closed state. Its events go through the
// peer's executor so they reach the callbacks as connected, data...,
// disconnected even though the library fires them from several goroutines.
type peerLink struct {
	peer   domain.PeerID
	link   core.DataLink
	mu     sync.Mutex
	open   bool
	closed bool
}

type Transport struct {
	cfg Config
	rv  Rendezvous

	mu    sync.Mutex
	links map[domain.PeerID]*peerLink
	// one executor chain per peer for the transport's lifetime, so
	// successive links to the same peer stay ordered
	execs map[domain.PeerID]*serial.Executor

	cbMu           sync.RWMutex
	onConnected    func(domain.PeerID)
	onDisconnected func(domain.PeerID)
	onData         func(core.Frame, domain.PeerID)
	onFailure      func(*apperr.Error)

	newLink func(webrtc.Configuration, domain.PeerID) (core.DataLink, error)
}

var (
	_ core.PeerTransport = (*Transport)(nil)
	_ Negotiator         = (*Transport)(nil)
)

func NewTransport(cfg Config, rv Rendezvous) *Transport {
	if cfg.InviteTimeout <= 0 {
		cfg.InviteTimeout = DefaultInviteTimeout
	}
	return &Transport{
		cfg:     cfg,
		rv:      rv,
		links:   make(map[domain.PeerID]*peerLink),
		execs:   make(map[domain.PeerID]*serial.Executor),
		newLink: func(cfg webrtc.Configuration, peer domain.PeerID) (core.DataLink, error) {
			return NewLink(cfg, peer)
		},
	}
}

func (t *Transport) StartAdvertising(ctx context.Context, role domain.DeviceKind) error {
	return t.rv.Advertise(ctx, role, t)
}

func (t *Transport) StartBrowsing(ctx context.Context) error {
	return t.rv.Browse(ctx, t)
}

func (t *Transport) Stop() error {
	err := t.rv.Close()
	t.mu.Lock()
	all := make([]*peerLink, 0, len(t.links))
	for _, pl := range t.links {
		all = append(all, pl)
	}
	t.mu.Unlock()
	for _, pl := range all {
		t.drop(pl)
	}

	// queued events still run; the next link to a peer waits for them
	t.mu.Lock()
	for _, ex := range t.execs {
		ex.Close()
	}
	t.mu.Unlock()
	return err
}

func (t *Transport) Send(frame core.Frame, peers []domain.PeerID) error {
	var errs []error
	for _, p := range peers {
		pl, ok := t.openLink(p)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownPeer, p))
			continue
		}
		if err := pl.link.Send(frame); err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

func (t *Transport) Broadcast(frame core.Frame) error {
	return t.Send(frame, t.Peers())
}

func (t *Transport) Peers() []domain.PeerID {
	// lock order is peerLink then Transport; copy first
	t.mu.Lock()
	snap := make(map[domain.PeerID]*peerLink, len(t.links))
	for p, pl := range t.links {
		snap[p] = pl
	}
	t.mu.Unlock()

	out := make([]domain.PeerID, 0, len(snap))
	for p, pl := range snap {
		pl.mu.Lock()
		if pl.open && !pl.closed {
			out = append(out, p)
		}
		pl.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b domain.PeerID) int { return strings.Compare(string(a), string(b)) })
	return out
}

func (t *Transport) OnPeerConnected(fn func(domain.PeerID)) {
	t.cbMu.Lock()
	t.onConnected = fn
	t.cbMu.Unlock()
}

func (t *Transport) OnPeerDisconnected(fn func(domain.PeerID)) {
	t.cbMu.Lock()
	t.onDisconnected = fn
	t.cbMu.Unlock()
}

func (t *Transport) OnDataReceived(fn func(core.Frame, domain.PeerID)) {
	t.cbMu.Lock()
	t.onData = fn
	t.cbMu.Unlock()
}

func (t *Transport) OnFailure(fn func(*apperr.Error)) {
	t.cbMu.Lock()
	t.onFailure = fn
	t.cbMu.Unlock()
}

// Invite is called on the browsing side for every discovered advertiser.
// If the channel is not open within the invite timeout the link is closed
// and a Timeout failure is raised.
func (t *Transport) Invite(ctx context.Context, peer domain.PeerID) (string, error) {
	pl, err := t.attach(ctx, peer)
	if err != nil {
		return "", err
	}
	offer, err := pl.link.CreateOffer(ctx)
	if err != nil {
		t.drop(pl)
		return "", fmt.Errorf("create offer: %w", err)
	}

	timeout := t.cfg.InviteTimeout
	time.AfterFunc(timeout, func() {
		pl.mu.Lock()
		expired := !pl.open && !pl.closed
		pl.mu.Unlock()
		if !expired {
			return
		}
		log.Warn().Str("module", "rtc").Str("peer", string(peer)).Dur("timeout", timeout).Msg("invitation expired")
		t.drop(pl)
		t.Fail(apperr.Timeout("invitation to "+string(peer), timeout))
	})
	return offer.SDP, nil
}

// Accept is called on the advertising side for every invitation; all are
// accepted.
func (t *Transport) Accept(ctx context.Context, peer domain.PeerID, offer string) (string, error) {
	pl, err := t.attach(ctx, peer)
	if err != nil {
		return "", err
	}
	answer, err := pl.link.ApplyOfferAndCreateAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer})
	if err != nil {
		t.drop(pl)
		return "", fmt.Errorf("apply offer: %w", err)
	}
	return answer.SDP, nil
}

func (t *Transport) Complete(peer domain.PeerID, answer string) error {
	t.mu.Lock()
	pl, ok := t.links[peer]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoLink, peer)
	}
	return pl.link.ApplyAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer})
}

func (t *Transport) Fail(err *apperr.Error) {
	t.cbMu.RLock()
	fn := t.onFailure
	t.cbMu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

func (t *Transport) Linked(peer domain.PeerID) bool {
	t.mu.Lock()
	pl, ok := t.links[peer]
	t.mu.Unlock()
	if !ok {
		return false
	}
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return !pl.closed
}

// attach replaces any link to peer with a fresh one.
func (t *Transport) attach(ctx context.Context, peer domain.PeerID) (*peerLink, error) {
	link, err := t.newLink(t.cfg.WebRTC, peer)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	pl := &peerLink{peer: peer, link: link}
	link.OnOpen(func() { t.opened(peer, pl) })
	link.OnMessage(func(f core.Frame) { t.received(peer, pl, f) })
	link.OnClosed(func() { go t.drop(pl) })

	t.mu.Lock()
	old := t.links[peer]
	t.links[peer] = pl
	t.mu.Unlock()
	if old != nil {
		t.drop(old)
	}

	if err := link.Start(ctx); err != nil {
		t.drop(pl)
		return nil, err
	}
	return pl, nil
}

func (t *Transport) opened(peer domain.PeerID, pl *peerLink) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	t.openLocked(peer, pl)
}

// openLocked emits connected once. Data may race ahead of the open
// notification, so both paths call it.
func (t *Transport) openLocked(peer domain.PeerID, pl *peerLink) {
	if pl.open || pl.closed {
		return
	}
	pl.open = true
	t.emit(peer, func() {
		if fn := t.callbacks().onConnected; fn != nil {
			fn(peer)
		}
	})
}

func (t *Transport) received(peer domain.PeerID, pl *peerLink, f core.Frame) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if pl.closed {
		return
	}
	t.openLocked(peer, pl)
	t.emit(peer, func() {
		if fn := t.callbacks().onData; fn != nil {
			fn(f, peer)
		}
	})
}

// drop closes pl and emits disconnected if it had been reported connected.
func (t *Transport) drop(pl *peerLink) {
	peer := pl.peer
	pl.mu.Lock()
	if pl.closed {
		pl.mu.Unlock()
		return
	}
	pl.closed = true
	if pl.open {
		t.emit(peer, func() {
			if fn := t.callbacks().onDisconnected; fn != nil {
				fn(peer)
			}
		})
	}
	pl.mu.Unlock()

	t.mu.Lock()
	if t.links[peer] == pl {
		delete(t.links, peer)
	}
	t.mu.Unlock()
	pl.link.Close()
}

// emit queues fn behind every earlier event of peer. After Stop the peer's
// executor is closed; its successor starts only once the old one has drained,
// so a new link's connected never overtakes the old link's disconnected.
func (t *Transport) emit(peer domain.PeerID, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.execs[peer]
	if ok && prev.Submit(fn) {
		return
	}
	ex := serial.New()
	if ok {
		drained := prev.Done()
		ex.Submit(func() { <-drained })
	}
	ex.Submit(fn)
	t.execs[peer] = ex
}

type callbacks struct {
	onConnected    func(domain.PeerID)
	onDisconnected func(domain.PeerID)
	onData         func(core.Frame, domain.PeerID)
}

func (t *Transport) callbacks() callbacks {
	t.cbMu.RLock()
	defer t.cbMu.RUnlock()
	return callbacks{t.onConnected, t.onDisconnected, t.onData}
}

func (t *Transport) openLink(peer domain.PeerID) (*peerLink, bool) {
	t.mu.Lock()
	pl, ok := t.links[peer]
	t.mu.Unlock()
	if !ok {
		return nil, false
	}
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl, pl.open && !pl.closed
}
