package orch

import (
	"context"

	"github.com/dkeye/Logbot/internal/app/conn"
	"github.com/dkeye/Logbot/internal/app/device"
	"github.com/dkeye/Logbot/internal/app/recovery"
	"github.com/dkeye/Logbot/internal/apperr"
	"github.com/dkeye/Logbot/internal/core"
	"github.com/dkeye/Logbot/internal/domain"
	"github.com/dkeye/Logbot/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Device is the capture device role.
type Device struct {
	q       *Queue
	tr      core.PeerTransport
	conns   *conn.Coordinator
	handler *device.Handler
	rec     *recovery.Manager

	ctx         context.Context
	advertising bool
	logger      zerolog.Logger
}

type DeviceStatus struct {
	Identity    domain.DeviceIdentity `json:"identity"`
	Advertising bool                  `json:"advertising"`
	State       device.State          `json:"state"`
	Session     *domain.Session       `json:"session,omitempty"`
	Capturing   bool                  `json:"capturing"`
	Peers       []conn.Entry          `json:"peers"`
}

func NewDevice(tr core.PeerTransport, self domain.DeviceIdentity, capt core.Capturer, q *Queue, rec *recovery.Manager) *Device {
	d := &Device{
		q:      q,
		tr:     tr,
		rec:    rec,
		ctx:    context.Background(),
		logger: log.With().Str("module", "orch.device").Str("device", string(self.ID)).Logger(),
	}
	d.conns = conn.NewCoordinator(conn.ModeAdvertising, self, conn.NewRegistry(), tr)
	d.handler = device.NewHandler(tr, capt, d.fail)

	tr.OnPeerConnected(func(p domain.PeerID) {
		d.post(func(context.Context) {
			d.conns.PeerConnected(p)
			d.handler.Connected(p)
		})
	})
	tr.OnPeerDisconnected(func(p domain.PeerID) {
		d.post(func(ctx context.Context) {
			d.conns.PeerDisconnected(p)
			d.handler.Disconnected(ctx, p)
		})
	})
	tr.OnDataReceived(func(f core.Frame, p domain.PeerID) {
		d.post(func(ctx context.Context) { d.onData(ctx, f, p) })
	})
	tr.OnFailure(func(err *apperr.Error) {
		d.post(func(ctx context.Context) { d.rec.Handle(ctx, err, "transport") })
	})
	return d
}

func (d *Device) RecoveryHooks() recovery.Hooks {
	return recovery.Hooks{
		Reconnect: func(ctx context.Context) error {
			var (
				on      bool
				loopCtx context.Context
			)
			err := d.q.Do(ctx, func(lc context.Context) error {
				on, loopCtx = d.advertising, lc
				return nil
			})
			if err != nil || !on {
				return err
			}
			return d.advertise(loopCtx)
		},
	}
}

func (d *Device) Run(ctx context.Context) error {
	d.ctx = ctx
	return d.q.Run(ctx)
}

// StartAdvertising makes the device discoverable under its own kind. Only the
// flag goes through the loop; reaching the rendezvous happens on the caller's
// goroutine and the resulting link lives as long as the loop.
func (d *Device) StartAdvertising(ctx context.Context) error {
	var loopCtx context.Context
	err := d.q.Do(ctx, func(lc context.Context) error {
		d.advertising = true
		loopCtx = lc
		return nil
	})
	if err != nil {
		return err
	}
	if err := d.advertise(loopCtx); err != nil {
		if ae, ok := apperr.As(err); ok {
			d.post(func(ctx context.Context) { d.rec.Handle(ctx, ae, "advertise") })
		}
		return err
	}
	return nil
}

// advertise runs off the loop: the rendezvous may dial the network.
func (d *Device) advertise(ctx context.Context) error {
	kind := d.conns.Self().Kind
	if err := d.tr.StartAdvertising(ctx, kind); err != nil {
		return err
	}
	d.logger.Info().Str("role", string(kind)).Msg("advertising")
	return nil
}

func (d *Device) Stop(ctx context.Context) error {
	return d.q.Do(ctx, func(context.Context) error {
		d.advertising = false
		return d.tr.Stop()
	})
}

func (d *Device) Status(ctx context.Context) (DeviceStatus, error) {
	var st DeviceStatus
	err := d.q.Do(ctx, func(context.Context) error {
		st = DeviceStatus{
			Identity:    d.conns.Self(),
			Advertising: d.advertising,
			State:       d.handler.State(),
			Capturing:   d.handler.Capturing(),
			Peers:       d.conns.Registry().Snapshot(),
		}
		if s, ok := d.handler.Session(); ok {
			st.Session = &s
		}
		return nil
	})
	return st, err
}

func (d *Device) onData(ctx context.Context, f core.Frame, p domain.PeerID) {
	cmd, err := protocol.Decode(f)
	if err != nil {
		d.logger.Warn().Err(err).Str("peer", string(p)).Msg("dropping undecodable frame")
		return
	}
	if id, ok := cmd.(protocol.Identify); ok {
		d.conns.IdentityReceived(p, id.Identity)
		return
	}
	d.handler.Handle(ctx, cmd, p)
}

func (d *Device) fail(err *apperr.Error, source string) {
	d.rec.Handle(d.ctx, err, source)
}

func (d *Device) post(fn func(context.Context)) {
	if err := d.q.Enqueue(context.Background(), fn); err != nil {
		d.logger.Debug().Err(err).Msg("event dropped after shutdown")
	}
}
