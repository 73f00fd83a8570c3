// Package session holds the control station's single global session state
// machine: Idle -> Active -> Idle.
package session

import (
	"errors"
	"time"

	"github.com/dkeye/Logbot/internal/app/conn"
	"github.com/dkeye/Logbot/internal/apperr"
	"github.com/dkeye/Logbot/internal/core"
	"github.com/dkeye/Logbot/internal/domain"
	"github.com/dkeye/Logbot/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrAlreadyActive = errors.New("session: already active")
	ErrNoDevices     = errors.New("session: no connected devices")
	ErrNotActive     = errors.New("session: not active")
)

type State int

const (
	StateIdle State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "idle"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// FailureFunc receives failures that must go through recovery.
type FailureFunc func(err *apperr.Error, source string)

// Coordinator is the control station's session state machine. Broadcasts are
// fire-and-forget: transitions never wait for devices to acknowledge. It is
// not safe for concurrent use; call it from the station's event loop.
type Coordinator struct {
	reg  *conn.Registry
	out  core.Sender
	fail FailureFunc

	state  State
	active *domain.Session

	now    func() time.Time
	newID  func() domain.SessionID
	logger zerolog.Logger
}

func NewCoordinator(reg *conn.Registry, out core.Sender, fail FailureFunc) *Coordinator {
	if fail == nil {
		fail = func(*apperr.Error, string) {}
	}
	return &Coordinator{
		reg:    reg,
		out:    out,
		fail:   fail,
		now:    time.Now,
		newID:  domain.NewSessionID,
		logger: log.With().Str("module", "app.session").Logger(),
	}
}

func (c *Coordinator) State() State { return c.state }

// Active returns a copy of the active session, if any.
func (c *Coordinator) Active() (domain.Session, bool) {
	if c.active == nil {
		return domain.Session{}, false
	}
	return *c.active, true
}

// Start creates a session over the currently identified devices and
// broadcasts it. Logical violations leave the state untouched and are
// returned to the caller only.
func (c *Coordinator) Start() (domain.Session, error) {
	if c.state == StateActive {
		c.logger.Warn().Str("session", string(c.active.ID)).Msg("start ignored: session already active")
		return domain.Session{}, ErrAlreadyActive
	}
	devices := c.reg.Connected()
	if len(devices) == 0 {
		c.logger.Warn().Msg("start ignored: no connected devices")
		return domain.Session{}, ErrNoDevices
	}

	keys := make([]domain.DeviceKey, 0, len(devices))
	for _, d := range devices {
		keys = append(keys, d.Key())
	}
	s := domain.NewSessionAt(c.newID(), c.now(), keys)

	c.broadcast(protocol.StartSession{Session: s})
	c.state = StateActive
	c.active = &s
	c.logger.Info().Str("session", string(s.ID)).Int("devices", len(s.Devices)).Msg("session started")
	return s, nil
}

// Stop broadcasts StopSession for the active session and returns to Idle.
func (c *Coordinator) Stop() (domain.Session, error) {
	if c.state != StateActive {
		c.logger.Warn().Msg("stop ignored: no active session")
		return domain.Session{}, ErrNotActive
	}
	s := *c.active

	c.broadcast(protocol.StopSession{SessionID: s.ID})
	c.state = StateIdle
	c.active = nil
	c.logger.Info().Str("session", string(s.ID)).Msg("session stopped")
	return s, nil
}

// StartCapture asks every connected device to begin capturing. Devices drop
// it unless they hold a session, so it is refused while Idle.
func (c *Coordinator) StartCapture() error {
	if c.state != StateActive {
		c.logger.Warn().Msg("start capture ignored: no active session")
		return ErrNotActive
	}
	c.broadcast(protocol.StartCapture{})
	return nil
}

// StopCapture is always broadcast.
func (c *Coordinator) StopCapture() {
	c.broadcast(protocol.StopCapture{})
}

// Resync re-broadcasts the active session so devices that missed or lost it
// pick it up again.
func (c *Coordinator) Resync() error {
	if c.state != StateActive {
		return ErrNotActive
	}
	c.broadcast(protocol.StartSession{Session: *c.active})
	c.logger.Info().Str("session", string(c.active.ID)).Msg("session resynced")
	return nil
}

func (c *Coordinator) broadcast(cmd protocol.Command) {
	data, err := protocol.Encode(cmd)
	if err != nil {
		c.logger.Error().Err(err).Str("command", string(cmd.Type())).Msg("encode failed")
		return
	}
	if err := c.out.Broadcast(data); err != nil {
		c.fail(apperr.CommandFailed(string(cmd.Type()), "broadcast failed", err), "session")
	}
}
