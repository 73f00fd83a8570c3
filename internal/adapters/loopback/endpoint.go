package loopback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/Logbot/internal/apperr"
	"github.com/dkeye/Logbot/internal/core"
	"github.com/dkeye/Logbot/internal/domain"
)

type callbacks struct {
	onConnected    func(domain.PeerID)
	onDisconnected func(domain.PeerID)
	onData         func(core.Frame, domain.PeerID)
	onFailure      func(*apperr.Error)
}

// Endpoint is one participant of a Hub; it implements core.PeerTransport.
// Discovery state is guarded by the hub lock.
type Endpoint struct {
	hub *Hub
	id  domain.PeerID

	role        domain.DeviceKind
	advertising bool
	browsing    bool

	cbMu sync.RWMutex
	cb   callbacks
}

var _ core.PeerTransport = (*Endpoint)(nil)

func (e *Endpoint) ID() domain.PeerID { return e.id }

// Role is the attribute the endpoint advertises under.
func (e *Endpoint) Role() domain.DeviceKind {
	e.hub.mu.Lock()
	defer e.hub.mu.Unlock()
	return e.role
}

func (e *Endpoint) StartAdvertising(_ context.Context, role domain.DeviceKind) error {
	e.hub.mu.Lock()
	defer e.hub.mu.Unlock()
	e.role = role
	e.advertising = true
	e.hub.acceptLocked(e)
	return nil
}

func (e *Endpoint) StartBrowsing(context.Context) error {
	e.hub.mu.Lock()
	defer e.hub.mu.Unlock()
	e.browsing = true
	e.hub.inviteLocked(e)
	return nil
}

func (e *Endpoint) Stop() error {
	e.hub.mu.Lock()
	defer e.hub.mu.Unlock()
	e.advertising = false
	e.browsing = false
	for k := range e.hub.links {
		if k.lo == e.id || k.hi == e.id {
			e.hub.dropLocked(k)
		}
	}
	return nil
}

func (e *Endpoint) Send(frame core.Frame, peers []domain.PeerID) error {
	e.hub.mu.Lock()
	defer e.hub.mu.Unlock()
	var errs []error
	for _, p := range peers {
		l, ok := e.hub.links[keyOf(e.id, p)]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownPeer, p))
			continue
		}
		l.out(e).push(event{kind: evData, frame: cloneFrame(frame)})
	}
	return errors.Join(errs...)
}

func (e *Endpoint) Broadcast(frame core.Frame) error {
	e.hub.mu.Lock()
	defer e.hub.mu.Unlock()
	for k, l := range e.hub.links {
		if k.lo == e.id || k.hi == e.id {
			l.out(e).push(event{kind: evData, frame: cloneFrame(frame)})
		}
	}
	return nil
}

func (e *Endpoint) Peers() []domain.PeerID {
	e.hub.mu.Lock()
	defer e.hub.mu.Unlock()
	return e.hub.peersLocked(e)
}

func (e *Endpoint) OnPeerConnected(fn func(domain.PeerID)) {
	e.cbMu.Lock()
	e.cb.onConnected = fn
	e.cbMu.Unlock()
}

func (e *Endpoint) OnPeerDisconnected(fn func(domain.PeerID)) {
	e.cbMu.Lock()
	e.cb.onDisconnected = fn
	e.cbMu.Unlock()
}

func (e *Endpoint) OnDataReceived(fn func(core.Frame, domain.PeerID)) {
	e.cbMu.Lock()
	e.cb.onData = fn
	e.cbMu.Unlock()
}

func (e *Endpoint) OnFailure(fn func(*apperr.Error)) {
	e.cbMu.Lock()
	e.cb.onFailure = fn
	e.cbMu.Unlock()
}

func (e *Endpoint) callbacks() callbacks {
	e.cbMu.RLock()
	defer e.cbMu.RUnlock()
	return e.cb
}
