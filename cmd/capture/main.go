package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/Logbot/internal/adapters/rtc"
	sig "github.com/dkeye/Logbot/internal/adapters/signal"
	"github.com/dkeye/Logbot/internal/app/orch"
	"github.com/dkeye/Logbot/internal/app/recovery"
	"github.com/dkeye/Logbot/internal/capture"
	"github.com/dkeye/Logbot/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(config.RoleCapture)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	self, err := config.LoadProfile(cfg.DeviceProfile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load device profile")
	}

	client := sig.NewClient(sig.ClientConfig{
		URL:        cfg.SignalURL,
		Token:      string(self.ID),
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
	})
	tr := rtc.NewTransport(rtc.Config{
		WebRTC:        rtc.DefaultWebRTCConfig(cfg.ICEServers...),
		InviteTimeout: cfg.InviteTimeout,
	}, client)

	rec := recovery.NewManager(recovery.LogNotifier{})
	d := orch.NewDevice(tr, self, capture.NewRecorder(self), orch.NewQueue(cfg.QueueSize), rec)
	recovery.RegisterDefaults(rec, recovery.Policy{
		MaxAttempts: cfg.Recovery.MaxAttempts,
		BaseDelay:   cfg.Recovery.BaseDelay,
		MaxDelay:    cfg.Recovery.MaxDelay,
	}, d.RecoveryHooks())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.Run(gctx) })

	log.Info().Str("device", string(self.ID)).Str("kind", string(self.Kind)).Str("signal", cfg.SignalURL).Msg("Logbot capture device started")
	// a failed first attempt is already in recovery
	if err := d.StartAdvertising(gctx); err != nil {
		log.Warn().Err(err).Msg("advertising failed")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("capture device stopped")
	}

	log.Info().Msg("Shutting down")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := tr.Stop(); err != nil {
		log.Warn().Err(err).Msg("transport stop")
	}
	waitDone := make(chan struct{})
	go func() {
		rec.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-stopCtx.Done():
		log.Warn().Msg("recovery still running at exit")
	}
	log.Info().Msg("Capture device exited gracefully")
}
