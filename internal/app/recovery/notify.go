package recovery

import (
	"sync"
	"time"

	"github.com/dkeye/Logbot/internal/apperr"
	"github.com/rs/zerolog/log"
)

// Notice is a failure as presented to the operator.
type Notice struct {
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	Suggestion  string    `json:"suggestion"`
	Severity    string    `json:"severity"`
	At          time.Time `json:"at"`
}

func NewNotice(err *apperr.Error, at time.Time) Notice {
	return Notice{
		Kind:        err.Kind.String(),
		Description: err.Description(),
		Suggestion:  err.Suggestion(),
		Severity:    err.Severity().String(),
		At:          at,
	}
}

// Board keeps the latest notice for the operator API.
type Board struct {
	mu    sync.RWMutex
	last  *Notice
	count int
}

func NewBoard() *Board { return &Board{} }

func (b *Board) Notify(err *apperr.Error) {
	n := NewNotice(err, time.Now().UTC())
	b.mu.Lock()
	b.last = &n
	b.count++
	b.mu.Unlock()
}

func (b *Board) Latest() (Notice, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.last == nil {
		return Notice{}, false
	}
	return *b.last, true
}

// Count is the number of notices published so far.
func (b *Board) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// LogNotifier writes operator notices to the log; used where there is no
// presentation layer.
type LogNotifier struct{}

func (LogNotifier) Notify(err *apperr.Error) {
	log.Warn().Str("module", "notice").Str("kind", err.Kind.String()).Str("suggestion", err.Suggestion()).Msg(err.Description())
}
