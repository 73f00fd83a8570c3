package signal

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Logbot/internal/adapters/rtc"
	"github.com/dkeye/Logbot/internal/domain"
)

type ServerConfig struct {
	// Self is the peer id announced in offers.
	Self            domain.PeerID
	SendQueue       int
	ReadLimit       int64
	PingPeriod      time.Duration
	AdvertiseLimit  int
	AdvertiseWindow time.Duration
	Policy          Policy
}

func (c *ServerConfig) defaults() {
	if c.PingPeriod <= 0 {
		c.PingPeriod = 54 * time.Second
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 32768
	}
	if c.AdvertiseLimit <= 0 {
		c.AdvertiseLimit = 5
	}
	if c.AdvertiseWindow <= 0 {
		c.AdvertiseWindow = time.Minute
	}
	if c.Policy == nil {
		c.Policy = DisconnectPolicy{}
	}
}

// Server is the browsing side of the rendezvous, hosted by the control
// station. Advertisers stay known while their signaling link is up; while
// browsing every advertiser without a link is invited.
type Server struct {
	cfg      ServerConfig
	limiter  *AdvertiseLimiter
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu      sync.Mutex
	conns   map[domain.PeerID]*Conn
	adverts map[domain.PeerID]domain.DeviceKind
	n       rtc.Negotiator
	ctx     context.Context
	cancel  context.CancelFunc
}

var _ rtc.Rendezvous = (*Server)(nil)

func NewServer(cfg ServerConfig) *Server {
	cfg.defaults()
	return &Server{
		cfg:     cfg,
		limiter: NewAdvertiseLimiter(cfg.AdvertiseLimit, cfg.AdvertiseWindow),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  log.With().Str("module", "signal.server").Logger(),
		conns:   make(map[domain.PeerID]*Conn),
		adverts: make(map[domain.PeerID]domain.DeviceKind),
	}
}

// HandleSignal upgrades the request and serves the link until it fails or
// ctx ends. The peer id is the client token set by the router.
func (s *Server) HandleSignal(ctx context.Context, c *gin.Context) {
	peer := domain.PeerID(c.GetString("client_token"))
	if peer == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing client token"})
		return
	}
	s.logger.Info().Str("peer", string(peer)).Msg("new WS connection")

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("ws upgrade")
		return
	}
	conn := newConn(ws, peer, s.cfg.SendQueue)

	s.mu.Lock()
	old := s.conns[peer]
	s.conns[peer] = conn
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	go conn.writePump(ctx, s.cfg.PingPeriod)
	go func() {
		defer cancel()
		err := conn.readPump(ctx, s.cfg.ReadLimit, s.cfg.PingPeriod, func(data []byte) {
			s.handleSignal(conn, data)
		})
		s.logger.Info().Err(err).Str("peer", string(peer)).Msg("readPump closing")
		s.unregister(conn)
	}()
}

// Advertise is the device side's job.
func (s *Server) Advertise(context.Context, domain.DeviceKind, rtc.Negotiator) error {
	return ErrUnsupported
}

// Browse invites current and future advertisers through n until Close.
func (s *Server) Browse(ctx context.Context, n rtc.Negotiator) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.n = n
	bctx := s.ctx
	peers := make([]domain.PeerID, 0, len(s.adverts))
	for p := range s.adverts {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	slices.SortFunc(peers, func(a, b domain.PeerID) int { return strings.Compare(string(a), string(b)) })
	s.logger.Info().Int("advertisers", len(peers)).Msg("browsing")
	for _, p := range peers {
		go s.invite(bctx, n, p)
	}
	return nil
}

// Close stops browsing. Signaling links stay up so devices can be invited
// again later.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.n = nil
	return nil
}

// Advertisers lists the peers currently advertising.
func (s *Server) Advertisers() map[domain.PeerID]domain.DeviceKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.PeerID]domain.DeviceKind, len(s.adverts))
	for p, k := range s.adverts {
		out[p] = k
	}
	return out
}

func (s *Server) browsing() (context.Context, rtc.Negotiator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx, s.n, s.n != nil
}

func (s *Server) unregister(conn *Conn) {
	peer := conn.Peer()
	s.mu.Lock()
	if s.conns[peer] == conn {
		delete(s.conns, peer)
		delete(s.adverts, peer)
	}
	s.mu.Unlock()
}

func (s *Server) conn(peer domain.PeerID) (*Conn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[peer]
	return c, ok
}

// send applies the backpressure policy when the client's queue is full.
func (s *Server) send(c *Conn, m Message) {
	err := c.sendJSON(m)
	if !errors.Is(err, ErrBackpressure) {
		return
	}
	switch s.cfg.Policy.OnBackpressure(c.Peer()) {
	case Disconnect:
		s.logger.Warn().Str("peer", string(c.Peer())).Msg("slow client disconnected")
		c.Close()
	default:
		s.logger.Warn().Str("peer", string(c.Peer())).Str("type", m.Type).Msg("message dropped")
	}
}
