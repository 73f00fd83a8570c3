package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Logbot/internal/adapters/http"
	"github.com/dkeye/Logbot/internal/adapters/loopback"
	"github.com/dkeye/Logbot/internal/adapters/rtc"
	sig "github.com/dkeye/Logbot/internal/adapters/signal"
	"github.com/dkeye/Logbot/internal/app/orch"
	"github.com/dkeye/Logbot/internal/app/recovery"
	"github.com/dkeye/Logbot/internal/capture"
	"github.com/dkeye/Logbot/internal/config"
	"github.com/dkeye/Logbot/internal/core"
	"github.com/dkeye/Logbot/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(config.RoleControl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	self, err := config.LoadProfile(cfg.DeviceProfile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load station profile")
	}

	board := recovery.NewBoard()
	rec := recovery.NewManager(board)
	g, gctx := errgroup.WithContext(ctx)

	var (
		tr     core.PeerTransport
		sigSrv *sig.Server
		demo   func()
	)
	switch cfg.Transport {
	case config.TransportLoopback:
		hub := loopback.NewHub()
		defer hub.Close()
		ep, err := hub.Endpoint(domain.PeerID(self.ID))
		if err != nil {
			log.Fatal().Err(err).Msg("loopback endpoint")
		}
		tr = ep
		demo = func() { startDemoDevices(gctx, g, hub, cfg) }
	default:
		sigSrv = sig.NewServer(sig.ServerConfig{
			Self:       domain.PeerID(self.ID),
			ReadLimit:  cfg.ReadLimit,
			PingPeriod: cfg.PingPeriod,
		})
		tr = rtc.NewTransport(rtc.Config{
			WebRTC:        rtc.DefaultWebRTCConfig(cfg.ICEServers...),
			InviteTimeout: cfg.InviteTimeout,
		}, sigSrv)
	}

	st := orch.NewStation(tr, self, orch.NewQueue(cfg.QueueSize), rec, board)
	recovery.RegisterDefaults(rec, recoveryPolicy(cfg), st.RecoveryHooks())

	r := router.SetupRouter(gctx, cfg, st, sigSrv)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	g.Go(func() error { return st.Run(gctx) })
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("station", string(self.ID)).Msg("Logbot control station started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	if err := st.StartBrowsing(gctx); err != nil {
		log.Error().Err(err).Msg("browsing failed to start")
	}
	if demo != nil {
		demo()
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("control station stopped")
	}
	if err := tr.Stop(); err != nil {
		log.Warn().Err(err).Msg("transport stop")
	}
	rec.Wait()
	log.Info().Msg("Server exited gracefully")
}

func recoveryPolicy(cfg *config.Config) recovery.Policy {
	return recovery.Policy{
		MaxAttempts: cfg.Recovery.MaxAttempts,
		BaseDelay:   cfg.Recovery.BaseDelay,
		MaxDelay:    cfg.Recovery.MaxDelay,
	}
}

// startDemoDevices runs simulated capture devices on the loopback hub.
func startDemoDevices(ctx context.Context, g *errgroup.Group, hub *loopback.Hub, cfg *config.Config) {
	demo := []struct {
		name string
		kind domain.DeviceKind
		caps []domain.Capability
	}{
		{"demo phone", domain.KindPhone, []domain.Capability{domain.CapabilityVideo, domain.CapabilityMotion}},
		{"demo watch", domain.KindWearable, []domain.Capability{domain.CapabilityMotion}},
	}
	for _, p := range demo {
		id, err := domain.NewDeviceIdentity("", p.name, p.kind, p.caps...)
		if err != nil {
			log.Error().Err(err).Msg("demo device")
			continue
		}
		ep, err := hub.Endpoint(domain.PeerID(id.ID))
		if err != nil {
			log.Error().Err(err).Msg("demo endpoint")
			continue
		}
		rec := recovery.NewManager(recovery.LogNotifier{})
		d := orch.NewDevice(ep, id, capture.NewRecorder(id), orch.NewQueue(cfg.QueueSize), rec)
		recovery.RegisterDefaults(rec, recoveryPolicy(cfg), d.RecoveryHooks())
		g.Go(func() error { return d.Run(ctx) })
		if err := d.StartAdvertising(ctx); err != nil {
			log.Error().Err(err).Str("device", string(id.ID)).Msg("demo device advertise")
		}
	}
}
