package signal

import (
	"sync"
	"time"

	"github.com/dkeye/Logbot/internal/domain"
)

// AdvertiseLimiter caps how often one peer may advertise within a sliding
// window.
type AdvertiseLimiter struct {
	mu       sync.Mutex
	history  map[domain.PeerID][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewAdvertiseLimiter(limit int, interval time.Duration) *AdvertiseLimiter {
	return &AdvertiseLimiter{
		history:  make(map[domain.PeerID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *AdvertiseLimiter) Allow(peer domain.PeerID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[peer]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[peer] = fresh
		return false
	}

	rl.history[peer] = append(fresh, now)
	return true
}

// Forget drops the history of a peer that went away.
func (rl *AdvertiseLimiter) Forget(peer domain.PeerID) {
	rl.mu.Lock()
	delete(rl.history, peer)
	rl.mu.Unlock()
}
