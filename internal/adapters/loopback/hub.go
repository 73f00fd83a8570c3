// Package loopback is an in-process PeerTransport. A Hub links endpoints the
// way discovery would: every browsing endpoint invites every advertising one
// and the invitation is always accepted. Each direction of a link is a FIFO
// drained by its own goroutine, so delivery is reliable and ordered per peer.
package loopback

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dkeye/Logbot/internal/apperr"
	"github.com/dkeye/Logbot/internal/core"
	"github.com/dkeye/Logbot/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownPeer = errors.New("loopback: unknown peer")
	ErrDuplicateID = errors.New("loopback: endpoint id in use")
)

type linkKey struct{ lo, hi domain.PeerID }

func keyOf(a, b domain.PeerID) linkKey {
	if a > b {
		a, b = b, a
	}
	return linkKey{a, b}
}

type link struct {
	a, b   *Endpoint
	ab, ba *pipe
}

// out returns the pipe carrying frames from ep to the other end.
func (l *link) out(ep *Endpoint) *pipe {
	if l.a == ep {
		return l.ab
	}
	return l.ba
}

type dirKey struct{ from, to domain.PeerID }

type Hub struct {
	mu        sync.Mutex
	endpoints map[domain.PeerID]*Endpoint
	links     map[linkKey]*link
	// pipes outlive links so events of successive links between the same
	// pair stay ordered.
	pipes  map[dirKey]*pipe
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		endpoints: make(map[domain.PeerID]*Endpoint),
		links:     make(map[linkKey]*link),
		pipes:     make(map[dirKey]*pipe),
	}
}

// Close drops every link and stops the delivery goroutines once their
// queues are drained.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for k := range h.links {
		h.dropLocked(k)
	}
	for _, p := range h.pipes {
		p.close()
	}
	h.closed = true
}

// Endpoint registers a new endpoint under id.
func (h *Hub) Endpoint(id domain.PeerID) (*Endpoint, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.endpoints[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	ep := &Endpoint{hub: h, id: id}
	h.endpoints[id] = ep
	return ep, nil
}

// Drop severs the link between a and b, as a radio loss would. Both ends get
// a disconnect event. It reports whether a link existed.
func (h *Hub) Drop(a, b domain.PeerID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropLocked(keyOf(a, b))
}

// Fail delivers a transport failure to the endpoint id.
func (h *Hub) Fail(id domain.PeerID, err *apperr.Error) {
	h.mu.Lock()
	ep, ok := h.endpoints[id]
	h.mu.Unlock()
	if !ok {
		return
	}
	if fn := ep.callbacks().onFailure; fn != nil {
		go fn(err)
	}
}

// Linked reports whether a and b currently share a link.
func (h *Hub) Linked(a, b domain.PeerID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.links[keyOf(a, b)]
	return ok
}

func (h *Hub) inviteLocked(browser *Endpoint) {
	for _, ep := range h.endpoints {
		if ep != browser && ep.advertising {
			h.linkLocked(browser, ep)
		}
	}
}

func (h *Hub) acceptLocked(adv *Endpoint) {
	for _, ep := range h.endpoints {
		if ep != adv && ep.browsing {
			h.linkLocked(ep, adv)
		}
	}
}

func (h *Hub) linkLocked(a, b *Endpoint) {
	k := keyOf(a.id, b.id)
	if _, ok := h.links[k]; ok {
		return
	}
	if h.closed {
		return
	}
	l := &link{a: a, b: b, ab: h.pipeLocked(a, b), ba: h.pipeLocked(b, a)}
	h.links[k] = l
	l.ab.push(event{kind: evConnected})
	l.ba.push(event{kind: evConnected})
	log.Debug().Str("module", "loopback").Str("a", string(a.id)).Str("b", string(b.id)).Msg("linked")
}

func (h *Hub) dropLocked(k linkKey) bool {
	l, ok := h.links[k]
	if !ok {
		return false
	}
	delete(h.links, k)
	l.ab.push(event{kind: evDisconnected})
	l.ba.push(event{kind: evDisconnected})
	log.Debug().Str("module", "loopback").Str("a", string(k.lo)).Str("b", string(k.hi)).Msg("dropped")
	return true
}

func (h *Hub) pipeLocked(from, to *Endpoint) *pipe {
	k := dirKey{from.id, to.id}
	p, ok := h.pipes[k]
	if !ok {
		p = newPipe(from.id, to)
		h.pipes[k] = p
	}
	return p
}

func (h *Hub) peersLocked(ep *Endpoint) []domain.PeerID {
	var out []domain.PeerID
	for k := range h.links {
		switch ep.id {
		case k.lo:
			out = append(out, k.hi)
		case k.hi:
			out = append(out, k.lo)
		}
	}
	slices.SortFunc(out, func(a, b domain.PeerID) int { return strings.Compare(string(a), string(b)) })
	return out
}

func cloneFrame(f core.Frame) core.Frame { return bytes.Clone(f) }
