package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Logbot/internal/adapters/loopback"
	"github.com/dkeye/Logbot/internal/adapters/signal"
	"github.com/dkeye/Logbot/internal/app/orch"
	"github.com/dkeye/Logbot/internal/app/recovery"
	"github.com/dkeye/Logbot/internal/apperr"
	"github.com/dkeye/Logbot/internal/capture"
	"github.com/dkeye/Logbot/internal/config"
	"github.com/dkeye/Logbot/internal/domain"
)

const wait = 2 * time.Second

type fixture struct {
	ctx     context.Context
	hub     *loopback.Hub
	station *orch.Station
	router  *gin.Engine
}

func identity(t *testing.T, id domain.DeviceID, kind domain.DeviceKind, caps ...domain.Capability) domain.DeviceIdentity {
	t.Helper()
	di, err := domain.NewDeviceIdentity(id, "n-"+string(id), kind, caps...)
	require.NoError(t, err)
	return di
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	hub := loopback.NewHub()
	t.Cleanup(func() {
		cancel()
		hub.Close()
	})

	ep, err := hub.Endpoint("station")
	require.NoError(t, err)
	board := recovery.NewBoard()
	st := orch.NewStation(ep, identity(t, "CTRL", domain.KindDesktop, domain.CapabilityControl),
		orch.NewQueue(0), recovery.NewManager(board), board)
	go func() { _ = st.Run(ctx) }()

	cfg := &config.Config{Mode: "test", Secret: "test-secret"}
	return &fixture{ctx: ctx, hub: hub, station: st, router: SetupRouter(ctx, cfg, st, nil)}
}

func (f *fixture) addDevice(t *testing.T, peer domain.PeerID, id domain.DeviceIdentity) *capture.Recorder {
	t.Helper()
	ep, err := f.hub.Endpoint(peer)
	require.NoError(t, err)
	rec := capture.NewRecorder(id)
	d := orch.NewDevice(ep, id, rec, orch.NewQueue(0), recovery.NewManager(recovery.LogNotifier{}))
	go func() { _ = d.Run(f.ctx) }()
	require.NoError(t, d.StartAdvertising(f.ctx))
	return rec
}

func (f *fixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

// statusView mirrors orch.StationStatus; session.State only marshals.
type statusView struct {
	Browsing bool             `json:"browsing"`
	State    string           `json:"state"`
	Devices  int              `json:"devices"`
	Notice   *recovery.Notice `json:"last_notice"`
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/session/start")
	assert.Equal(t, http.StatusConflict, w.Code, "no devices yet")

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/browsing/start").Code)
	rec := f.addDevice(t, "p1", identity(t, "D1", domain.KindPhone, domain.CapabilityVideo))

	require.Eventually(t, func() bool {
		st := decode[statusView](t, f.do(t, http.MethodGet, "/api/status"))
		return st.Devices == 1
	}, wait, 5*time.Millisecond)

	w = f.do(t, http.MethodPost, "/api/session/start")
	require.Equal(t, http.StatusOK, w.Code)
	started := decode[struct {
		Session domain.Session `json:"session"`
	}](t, w)
	assert.Equal(t, []domain.DeviceKey{"D1"}, started.Session.Devices)

	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/session/start").Code)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/capture/start").Code)
	require.Eventually(t, rec.Running, wait, 5*time.Millisecond)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/capture/stop").Code)
	require.Eventually(t, func() bool { return !rec.Running() }, wait, 5*time.Millisecond)

	w = f.do(t, http.MethodPost, "/api/session/stop")
	require.Equal(t, http.StatusOK, w.Code)
	stopped := decode[struct {
		Session domain.Session `json:"session"`
	}](t, w)
	assert.Equal(t, started.Session.ID, stopped.Session.ID)

	w = f.do(t, http.MethodPost, "/api/session/stop")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestCaptureNeedsSession(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/capture/start").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/capture/stop").Code)
}

func TestDevices(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/browsing/start").Code)
	f.addDevice(t, "p1", identity(t, "D1", domain.KindTablet, domain.CapabilityDepth))

	type entry struct {
		Peer     domain.PeerID          `json:"peer"`
		Identity *domain.DeviceIdentity `json:"identity"`
		State    string                 `json:"state"`
	}
	var got []entry
	require.Eventually(t, func() bool {
		got = decode[struct {
			Devices []entry `json:"devices"`
		}](t, f.do(t, http.MethodGet, "/api/devices")).Devices
		return len(got) == 1 && got[0].Identity != nil
	}, wait, 5*time.Millisecond)
	assert.Equal(t, domain.PeerID("p1"), got[0].Peer)
	assert.Equal(t, domain.DeviceID("D1"), got[0].Identity.ID)
	assert.Equal(t, domain.StateConnected.String(), got[0].State)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/browsing/stop").Code)
	require.Eventually(t, func() bool {
		return len(decode[struct {
			Devices []entry `json:"devices"`
		}](t, f.do(t, http.MethodGet, "/api/devices")).Devices) == 0
	}, wait, 5*time.Millisecond)
}

func TestCurrentError(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodGet, "/api/errors/current").Code)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/errors/retry").Code)

	f.station.Recovery().Handle(f.ctx, apperr.DeviceDisconnected("D9"), "test")

	w := f.do(t, http.MethodGet, "/api/errors/current")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[ErrorView](t, w)
	assert.Equal(t, apperr.KindDeviceDisconnected.String(), view.Kind)
	assert.Equal(t, "network", view.Family)
	assert.True(t, view.Recoverable)
	assert.NotEmpty(t, view.Suggestion)

	// no action registered in this fixture
	w = f.do(t, http.MethodPost, "/api/errors/retry")
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/errors/current").Code)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodGet, "/api/errors/current").Code)

	st := decode[statusView](t, f.do(t, http.MethodGet, "/api/status"))
	require.NotNil(t, st.Notice, "the board keeps the last notice")
	assert.Equal(t, apperr.KindDeviceDisconnected.String(), st.Notice.Kind)
}

func TestCurrentError_RetryAccepted(t *testing.T) {
	f := newFixture(t)
	ran := make(chan struct{}, 1)
	f.station.Recovery().Register(apperr.KindConnectionFailed, func(context.Context, *apperr.Error) error {
		ran <- struct{}{}
		return nil
	})
	f.station.Recovery().Handle(f.ctx, apperr.ConnectionFailed("radio off", nil), "test")
	<-ran
	f.station.Recovery().Wait()

	assert.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/api/errors/retry").Code)
	select {
	case <-ran:
	case <-time.After(wait):
		t.Fatal("retry did not run the action")
	}
}

func TestClientTokenMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("LogbotSessions", cookie.NewStore([]byte("secret"))))
	r.Use(ClientTokenMiddleware())
	r.GET("/token", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("client_token")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/token", nil))
	issued := w.Body.String()
	require.NotEmpty(t, issued)
	assert.Contains(t, strings.Join(w.Header().Values("Set-Cookie"), ";"), signal.TokenCookie+"="+issued)

	req := httptest.NewRequest(http.MethodGet, "/token", nil)
	req.AddCookie(&http.Cookie{Name: signal.TokenCookie, Value: "device-7"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "device-7", w.Body.String())

	// a browser that lost the plain cookie keeps its token through the session
	req = httptest.NewRequest(http.MethodGet, "/token", nil)
	for _, c := range w.Result().Cookies() {
		if c.Name == "LogbotSessions" {
			req.AddCookie(c)
		}
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "device-7", w.Body.String())
}
