// Package http serves the control station: the signaling endpoint for
// capture devices and the operator API.
package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Logbot/internal/adapters/signal"
	"github.com/dkeye/Logbot/internal/app/conn"
	"github.com/dkeye/Logbot/internal/app/orch"
	"github.com/dkeye/Logbot/internal/apperr"
	"github.com/dkeye/Logbot/internal/config"
	"github.com/dkeye/Logbot/internal/domain"
)

// Station is the control station as driven by the operator.
type Station interface {
	StartBrowsing(ctx context.Context) error
	StopBrowsing(ctx context.Context) error
	StartSession(ctx context.Context) (domain.Session, error)
	StopSession(ctx context.Context) (domain.Session, error)
	StartCapture(ctx context.Context) error
	StopCapture(ctx context.Context) error
	Devices(ctx context.Context) ([]conn.Entry, error)
	Status(ctx context.Context) (orch.StationStatus, error)
	Retry(ctx context.Context) error
	CurrentError() (*apperr.Error, bool)
	ClearError()
}

var _ Station = (*orch.Station)(nil)

const sessionTokenKey = "client_token"

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware gives every client a stable token. Devices present
// it as a plain cookie; browsers also keep it in the signed session.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := c.Cookie(signal.TokenCookie)
		if token == "" {
			if v, ok := session.Get(sessionTokenKey).(string); ok {
				token = v
			}
		}
		if token == "" {
			token = genClientToken()
			c.SetCookie(signal.TokenCookie, token, 3600*24*7, "/", "", false, true)
		}
		if v, _ := session.Get(sessionTokenKey).(string); v != token {
			session.Set(sessionTokenKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// SetupRouter builds the control station's HTTP surface. sig may be nil when
// the station does not use the networked transport.
func SetupRouter(ctx context.Context, cfg *config.Config, st Station, sig *signal.Server) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("LogbotSessions", store))
	r.Use(ClientTokenMiddleware())

	api := r.Group("/api")

	if sig != nil {
		api.GET("/ws/signal", func(c *gin.Context) {
			log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws signal endpoint hit")
			sig.HandleSignal(ctx, c)
		})
	}

	h := &handlers{st: st}
	api.GET("/health", h.health)
	api.GET("/status", h.status)
	api.GET("/devices", h.devices)
	api.POST("/browsing/start", h.startBrowsing)
	api.POST("/browsing/stop", h.stopBrowsing)
	api.POST("/session/start", h.startSession)
	api.POST("/session/stop", h.stopSession)
	api.POST("/capture/start", h.startCapture)
	api.POST("/capture/stop", h.stopCapture)
	api.GET("/errors/current", h.currentError)
	api.DELETE("/errors/current", h.clearError)
	api.POST("/errors/retry", h.retry)

	log.Info().Str("module", "adapters.http").Bool("signal", sig != nil).Msg("router setup")
	return r
}
