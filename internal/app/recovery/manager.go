// Package recovery is the central intake for classified failures: it logs
// them, publishes the ones meant for the operator and dispatches a recovery
// action per error kind.
package recovery

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/Logbot/internal/apperr"
	"github.com/dkeye/Logbot/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrNothingToRetry = errors.New("recovery: no current error")
	ErrNotRecoverable = errors.New("recovery: error is not recoverable")
	ErrNoAction       = errors.New("recovery: no action registered")
)

// Action tries to fix the condition behind err. It runs on its own goroutine.
type Action func(ctx context.Context, err *apperr.Error) error

type Manager struct {
	notifier core.Notifier
	logger   zerolog.Logger

	mu       sync.Mutex
	actions  [apperr.NumKinds]Action
	running  [apperr.NumKinds]bool
	inflight int
	current  *apperr.Error

	wg sync.WaitGroup
}

// NewManager returns a Manager that publishes to n (may be nil).
func NewManager(n core.Notifier) *Manager {
	return &Manager{
		notifier: n,
		logger:   log.With().Str("module", "app.recovery").Logger(),
	}
}

// Register sets the action for kind, replacing any previous one. A nil action
// unregisters it.
func (m *Manager) Register(kind apperr.Kind, a Action) {
	if !kind.Valid() {
		return
	}
	m.mu.Lock()
	m.actions[kind] = a
	m.mu.Unlock()
}

// Handle logs err at its severity, publishes it when it should reach the
// operator and starts recovery when it is recoverable.
func (m *Manager) Handle(ctx context.Context, err *apperr.Error, source string) {
	if err == nil {
		return
	}
	m.logAt(err.Severity()).
		Str("source", source).
		Str("kind", err.Kind.String()).
		Str("family", err.Kind.Family().String()).
		Str("suggestion", err.Suggestion()).
		Msg(err.Description())

	if err.NotifyUser() {
		m.mu.Lock()
		m.current = err
		m.mu.Unlock()
		if m.notifier != nil {
			m.notifier.Notify(err)
		}
	}

	if err.Recoverable() {
		_ = m.attempt(ctx, err)
	}
}

// Current returns the error most recently published to the operator.
func (m *Manager) Current() (*apperr.Error, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.current != nil
}

func (m *Manager) Clear() {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
}

// Recovering reports whether any recovery action is still running.
func (m *Manager) Recovering() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight > 0
}

// Retry dispatches recovery again for the current error.
func (m *Manager) Retry(ctx context.Context) error {
	cur, ok := m.Current()
	if !ok {
		return ErrNothingToRetry
	}
	if !cur.Recoverable() {
		return ErrNotRecoverable
	}
	return m.attempt(ctx, cur)
}

// Wait blocks until every started action has returned.
func (m *Manager) Wait() { m.wg.Wait() }

func (m *Manager) attempt(ctx context.Context, err *apperr.Error) error {
	kind := err.Kind
	m.mu.Lock()
	action := m.actions[kind]
	if action == nil {
		m.mu.Unlock()
		m.logger.Warn().Str("kind", kind.String()).Msg("no recovery action, recovery aborted")
		return ErrNoAction
	}
	if m.running[kind] {
		m.mu.Unlock()
		m.logger.Debug().Str("kind", kind.String()).Msg("recovery already running")
		return nil
	}
	m.running[kind] = true
	m.inflight++
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Info().Str("kind", kind.String()).Msg("attempting recovery")
	go func() {
		defer m.wg.Done()
		rerr := action(ctx, err)

		m.mu.Lock()
		m.running[kind] = false
		m.inflight--
		m.mu.Unlock()

		if rerr != nil {
			m.logger.Error().Err(rerr).Str("kind", kind.String()).Msg("recovery failed")
			return
		}
		m.logger.Info().Str("kind", kind.String()).Msg("recovery succeeded")
	}()
	return nil
}

// logAt maps severity to a zerolog event. Critical is written at fatal level
// without exiting.
func (m *Manager) logAt(s apperr.Severity) *zerolog.Event {
	switch s {
	case apperr.SeverityDebug:
		return m.logger.Debug()
	case apperr.SeverityNotice:
		return m.logger.Info()
	case apperr.SeverityWarning:
		return m.logger.Warn()
	case apperr.SeverityCritical:
		return m.logger.WithLevel(zerolog.FatalLevel)
	default:
		return m.logger.Error()
	}
}
