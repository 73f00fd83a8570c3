package recovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Logbot/internal/apperr"
	"github.com/dkeye/Logbot/internal/domain"
	"github.com/sethvargo/go-retry"
)

// Policy bounds the retries of the default actions.
type Policy struct {
	MaxAttempts uint64
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second}
}

func (p Policy) backoff() retry.Backoff {
	b := retry.NewExponential(p.BaseDelay)
	b = retry.WithCappedDuration(p.MaxDelay, b)
	return retry.WithMaxRetries(p.MaxAttempts, b)
}

var errDeviceAbsent = errors.New("device has not reconnected")

// Hooks are the role-specific operations the default actions drive. Nil hooks
// leave the matching kinds without an action.
type Hooks struct {
	// Reconnect restarts advertising or browsing.
	Reconnect func(ctx context.Context) error
	// DevicePresent reports whether a device is identified again.
	DevicePresent func(id domain.DeviceID) bool
	// Resync re-sends the active session.
	Resync func(ctx context.Context) error
	// Resume continues an interrupted transfer.
	Resume func(ctx context.Context, file string, progress float64) error
}

// RegisterDefaults installs the bounded-retry actions for the kinds that have
// a hook.
func RegisterDefaults(m *Manager, p Policy, h Hooks) {
	if h.Reconnect != nil {
		m.Register(apperr.KindConnectionFailed, Reconnect(p, h.Reconnect))
		m.Register(apperr.KindTimeout, Reconnect(p, h.Reconnect))
	}
	if h.DevicePresent != nil {
		m.Register(apperr.KindDeviceDisconnected, WaitForDevice(p, h.DevicePresent))
	}
	if h.Resync != nil {
		m.Register(apperr.KindSessionStateMismatch, Resync(p, h.Resync))
	}
	if h.Resume != nil {
		m.Register(apperr.KindTransferInterrupted, Resume(p, h.Resume))
	}
}

func Reconnect(p Policy, restart func(ctx context.Context) error) Action {
	return func(ctx context.Context, _ *apperr.Error) error {
		return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
			if err := restart(ctx); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
	}
}

// WaitForDevice polls until the device named by the error's subject is back.
func WaitForDevice(p Policy, present func(domain.DeviceID) bool) Action {
	return func(ctx context.Context, err *apperr.Error) error {
		id := domain.DeviceID(err.Subject)
		rerr := retry.Do(ctx, p.backoff(), func(context.Context) error {
			if present(id) {
				return nil
			}
			return retry.RetryableError(errDeviceAbsent)
		})
		if rerr != nil {
			return fmt.Errorf("wait for %s: %w", id, rerr)
		}
		return nil
	}
}

func Resync(p Policy, resync func(ctx context.Context) error) Action {
	return func(ctx context.Context, _ *apperr.Error) error {
		return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
			if err := resync(ctx); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
	}
}

func Resume(p Policy, resume func(ctx context.Context, file string, progress float64) error) Action {
	return func(ctx context.Context, err *apperr.Error) error {
		return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
			if rerr := resume(ctx, err.Subject, err.Progress); rerr != nil {
				return retry.RetryableError(rerr)
			}
			return nil
		})
	}
}
