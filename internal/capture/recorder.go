// Package capture stands in for the sensor pipeline of a capture device.
// It tracks takes but records nothing.
package capture

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Logbot/internal/apperr"
	"github.com/dkeye/Logbot/internal/core"
	"github.com/dkeye/Logbot/internal/domain"
)

// Take is one start/stop span.
type Take struct {
	Started time.Time
	Stopped time.Time
}

// Recorder implements core.Capturer for a device identity. Devices without a
// sensor capability cannot start.
type Recorder struct {
	self   domain.DeviceIdentity
	now    func() time.Time
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
	started time.Time
	takes   []Take
}

var _ core.Capturer = (*Recorder)(nil)

func NewRecorder(self domain.DeviceIdentity) *Recorder {
	return &Recorder{
		self:   self,
		now:    time.Now,
		logger: log.With().Str("module", "capture").Str("device", string(self.ID)).Logger(),
	}
}

func (r *Recorder) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !r.hasSensor() {
		return apperr.HardwareAccessDenied("sensors", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}
	r.running = true
	r.started = r.now()
	r.logger.Info().Strs("sensors", r.sensors()).Msg("capture started")
	return nil
}

// Stop ends the current take. Stopping an idle recorder is a no-op.
func (r *Recorder) Stop(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil
	}
	r.running = false
	take := Take{Started: r.started, Stopped: r.now()}
	r.takes = append(r.takes, take)
	r.logger.Info().Dur("duration", take.Stopped.Sub(take.Started)).Int("takes", len(r.takes)).Msg("capture stopped")
	return nil
}

func (r *Recorder) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Recorder) Takes() []Take {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Take(nil), r.takes...)
}

func (r *Recorder) hasSensor() bool {
	return len(r.sensors()) > 0
}

func (r *Recorder) sensors() []string {
	var out []string
	for _, c := range r.self.Capabilities {
		if c != domain.CapabilityControl {
			out = append(out, string(c))
		}
	}
	return out
}
