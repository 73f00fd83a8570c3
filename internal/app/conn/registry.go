package conn

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/Logbot/internal/domain"
	"github.com/rs/zerolog/log"
)

// Entry is a read-only view of one peer connection. Identity is nil until
// the peer has identified itself.
type Entry struct {
	Peer     domain.PeerID          `json:"peer"`
	Identity *domain.DeviceIdentity `json:"identity,omitempty"`
	State    domain.ConnectionState `json:"state"`
	Since    time.Time              `json:"since"`
}

// Registry maps live peers to their declared identities. Mutation belongs to
// the Coordinator; readers outside the event loop only take snapshots.
type Registry struct {
	mu      sync.RWMutex
	entries map[domain.PeerID]*Entry
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[domain.PeerID]*Entry),
		now:     time.Now,
	}
}

// Insert records peer as Connecting, replacing any stale entry for it.
func (r *Registry) Insert(peer domain.PeerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[peer] = &Entry{Peer: peer, State: domain.StateConnecting, Since: r.now()}
	log.Info().Str("module", "app.conn.registry").Str("peer", string(peer)).Msg("peer inserted")
}

// Identify attaches id to peer and marks it Connected. It reports false when
// the peer is unknown.
func (r *Registry) Identify(peer domain.PeerID, id domain.DeviceIdentity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[peer]
	if !ok {
		return false
	}
	e.Identity = &id
	e.State = domain.StateConnected
	e.Since = r.now()
	log.Info().Str("module", "app.conn.registry").Str("peer", string(peer)).Str("device", string(id.ID)).Msg("peer identified")
	return true
}

func (r *Registry) Remove(peer domain.PeerID) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[peer]
	if !ok {
		return Entry{}, false
	}
	delete(r.entries, peer)
	log.Info().Str("module", "app.conn.registry").Str("peer", string(peer)).Msg("peer removed")
	out := *e
	out.State = domain.StateDisconnected
	return out, true
}

func (r *Registry) Get(peer domain.PeerID) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[peer]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns every entry ordered by peer.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(string(a.Peer), string(b.Peer)) })
	return out
}

// Connected returns the identities of identified peers ordered by device id.
func (r *Registry) Connected() []domain.DeviceIdentity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.DeviceIdentity, 0, len(r.entries))
	for _, e := range r.entries {
		if e.State == domain.StateConnected && e.Identity != nil {
			out = append(out, *e.Identity)
		}
	}
	slices.SortFunc(out, func(a, b domain.DeviceIdentity) int { return strings.Compare(string(a.ID), string(b.ID)) })
	return out
}

// HasDevice reports whether a peer identified as id is currently connected.
func (r *Registry) HasDevice(id domain.DeviceID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.State == domain.StateConnected && e.Identity != nil && e.Identity.ID == id {
			return true
		}
	}
	return false
}
