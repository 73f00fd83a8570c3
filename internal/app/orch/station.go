// Package orch wires a role's coordinators to its transport and serializes
// every state change through the role's event queue.
package orch

import (
	"context"

	"github.com/dkeye/Logbot/internal/app/conn"
	"github.com/dkeye/Logbot/internal/app/recovery"
	"github.com/dkeye/Logbot/internal/app/session"
	"github.com/dkeye/Logbot/internal/apperr"
	"github.com/dkeye/Logbot/internal/core"
	"github.com/dkeye/Logbot/internal/domain"
	"github.com/dkeye/Logbot/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Station is the control station role.
type Station struct {
	q        *Queue
	tr       core.PeerTransport
	conns    *conn.Coordinator
	sessions *session.Coordinator
	rec      *recovery.Manager
	board    *recovery.Board

	ctx      context.Context
	browsing bool
	logger   zerolog.Logger
}

// StationStatus is a snapshot for the operator.
type StationStatus struct {
	Browsing   bool             `json:"browsing"`
	State      session.State    `json:"state"`
	Session    *domain.Session  `json:"session,omitempty"`
	Devices    int              `json:"devices"`
	Peers      int              `json:"peers"`
	Recovering bool             `json:"recovering"`
	Notice     *recovery.Notice `json:"last_notice,omitempty"`
}

func NewStation(tr core.PeerTransport, self domain.DeviceIdentity, q *Queue, rec *recovery.Manager, board *recovery.Board) *Station {
	s := &Station{
		q:      q,
		tr:     tr,
		rec:    rec,
		board:  board,
		ctx:    context.Background(),
		logger: log.With().Str("module", "orch.station").Logger(),
	}
	s.conns = conn.NewCoordinator(conn.ModeBrowsing, self, conn.NewRegistry(), tr)
	s.sessions = session.NewCoordinator(s.conns.Registry(), tr, s.fail)

	tr.OnPeerConnected(func(p domain.PeerID) {
		s.post(func(context.Context) { s.conns.PeerConnected(p) })
	})
	tr.OnPeerDisconnected(func(p domain.PeerID) {
		s.post(func(ctx context.Context) { s.onDisconnected(ctx, p) })
	})
	tr.OnDataReceived(func(f core.Frame, p domain.PeerID) {
		s.post(func(context.Context) { s.onData(f, p) })
	})
	tr.OnFailure(func(err *apperr.Error) {
		s.post(func(ctx context.Context) { s.rec.Handle(ctx, err, "transport") })
	})
	return s
}

// RecoveryHooks are the station's operations for the default recovery
// actions. They run from action goroutines.
func (s *Station) RecoveryHooks() recovery.Hooks {
	return recovery.Hooks{
		Reconnect: func(ctx context.Context) error {
			return s.q.Do(ctx, func(ctx context.Context) error {
				if !s.browsing {
					return nil
				}
				return s.tr.StartBrowsing(ctx)
			})
		},
		DevicePresent: s.conns.Registry().HasDevice,
		Resync: func(ctx context.Context) error {
			return s.q.Do(ctx, func(context.Context) error { return s.sessions.Resync() })
		},
	}
}

// Run drains the event queue until ctx ends.
func (s *Station) Run(ctx context.Context) error {
	s.ctx = ctx
	return s.q.Run(ctx)
}

func (s *Station) StartBrowsing(ctx context.Context) error {
	return s.q.Do(ctx, func(ctx context.Context) error {
		if err := s.tr.StartBrowsing(ctx); err != nil {
			s.report(ctx, err, "browse")
			return err
		}
		s.browsing = true
		s.logger.Info().Msg("browsing started")
		return nil
	})
}

// StopBrowsing stops discovery and drops every link; peers leave the registry
// through their disconnect events.
func (s *Station) StopBrowsing(ctx context.Context) error {
	return s.q.Do(ctx, func(context.Context) error {
		s.browsing = false
		s.logger.Info().Msg("browsing stopped")
		return s.tr.Stop()
	})
}

func (s *Station) StartSession(ctx context.Context) (domain.Session, error) {
	var out domain.Session
	err := s.q.Do(ctx, func(context.Context) error {
		var err error
		out, err = s.sessions.Start()
		return err
	})
	return out, err
}

func (s *Station) StopSession(ctx context.Context) (domain.Session, error) {
	var out domain.Session
	err := s.q.Do(ctx, func(context.Context) error {
		var err error
		out, err = s.sessions.Stop()
		return err
	})
	return out, err
}

func (s *Station) StartCapture(ctx context.Context) error {
	return s.q.Do(ctx, func(context.Context) error { return s.sessions.StartCapture() })
}

func (s *Station) StopCapture(ctx context.Context) error {
	return s.q.Do(ctx, func(context.Context) error {
		s.sessions.StopCapture()
		return nil
	})
}

func (s *Station) Devices(ctx context.Context) ([]conn.Entry, error) {
	var out []conn.Entry
	err := s.q.Do(ctx, func(context.Context) error {
		out = s.conns.Registry().Snapshot()
		return nil
	})
	return out, err
}

func (s *Station) Status(ctx context.Context) (StationStatus, error) {
	var st StationStatus
	err := s.q.Do(ctx, func(context.Context) error {
		st = StationStatus{
			Browsing:   s.browsing,
			State:      s.sessions.State(),
			Devices:    len(s.conns.Registry().Connected()),
			Peers:      s.conns.Registry().Len(),
			Recovering: s.rec.Recovering(),
		}
		if a, ok := s.sessions.Active(); ok {
			st.Session = &a
		}
		if s.board != nil {
			if n, ok := s.board.Latest(); ok {
				st.Notice = &n
			}
		}
		return nil
	})
	return st, err
}

func (s *Station) Recovery() *recovery.Manager { return s.rec }

// Retry re-runs recovery for the current error. The action is bound to the
// loop's context, not the caller's.
func (s *Station) Retry(ctx context.Context) error {
	return s.q.Do(ctx, func(loopCtx context.Context) error { return s.rec.Retry(loopCtx) })
}

func (s *Station) CurrentError() (*apperr.Error, bool) { return s.rec.Current() }

func (s *Station) ClearError() { s.rec.Clear() }

func (s *Station) onDisconnected(ctx context.Context, p domain.PeerID) {
	e, ok := s.conns.PeerDisconnected(p)
	if !ok || e.Identity == nil {
		return
	}
	// The session keeps its snapshot and stays active.
	if s.sessions.State() == session.StateActive {
		s.rec.Handle(ctx, apperr.DeviceDisconnected(string(e.Identity.ID)), "station")
	}
}

func (s *Station) onData(f core.Frame, p domain.PeerID) {
	cmd, err := protocol.Decode(f)
	if err != nil {
		s.logger.Warn().Err(err).Str("peer", string(p)).Msg("dropping undecodable frame")
		return
	}
	switch c := cmd.(type) {
	case protocol.Identify:
		s.conns.IdentityReceived(p, c.Identity)
	case protocol.ErrorNotice:
		s.logger.Warn().Str("peer", string(p)).Str("text", c.Text).Msg("device reported error")
	default:
		s.logger.Debug().Str("peer", string(p)).Str("command", string(cmd.Type())).Msg("ignored")
	}
}

func (s *Station) fail(err *apperr.Error, source string) {
	s.rec.Handle(s.ctx, err, source)
}

func (s *Station) report(ctx context.Context, err error, source string) {
	if ae, ok := apperr.As(err); ok {
		s.rec.Handle(ctx, ae, source)
	}
}

func (s *Station) post(fn func(context.Context)) {
	if err := s.q.Enqueue(context.Background(), fn); err != nil {
		s.logger.Debug().Err(err).Msg("event dropped after shutdown")
	}
}
