package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Logbot/internal/adapters/rtc"
	"github.com/dkeye/Logbot/internal/apperr"
	"github.com/dkeye/Logbot/internal/domain"
)

type ClientConfig struct {
	// URL is the control station's signaling endpoint (ws://host/api/ws/signal).
	URL        string
	// Token is presented as the TokenCookie and becomes our peer id there.
	Token      string
	SendQueue  int
	ReadLimit  int64
	PingPeriod time.Duration
	Dialer     *websocket.Dialer
}

// Client is the advertising side of the rendezvous, used by capture devices.
// Every offer is accepted.
type Client struct {
	cfg    ClientConfig
	logger zerolog.Logger

	mu     sync.Mutex
	conn   *Conn
	closed bool
}

var _ rtc.Rendezvous = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = 54 * time.Second
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &Client{
		cfg:    cfg,
		logger: log.With().Str("module", "signal.client").Logger(),
	}
}

// Advertise dials the control station and announces role. An existing link
// is replaced. Dial failures are ConnectionFailed; losing the link later is
// reported through n.Fail.
func (c *Client) Advertise(ctx context.Context, role domain.DeviceKind, n rtc.Negotiator) error {
	c.mu.Lock()
	old := c.conn
	c.conn = nil
	c.closed = false
	c.mu.Unlock()
	if old != nil {
		old.Close()
	}

	hdr := http.Header{}
	hdr.Add("Cookie", (&http.Cookie{Name: TokenCookie, Value: c.cfg.Token}).String())
	ws, _, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, hdr)
	if err != nil {
		return apperr.ConnectionFailed("signal dial "+c.cfg.URL, err)
	}
	conn := newConn(ws, "", c.cfg.SendQueue)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.mu.Unlock()

	go conn.writePump(ctx, c.cfg.PingPeriod)
	go func() {
		err := conn.readPump(ctx, c.cfg.ReadLimit, c.cfg.PingPeriod, func(data []byte) {
			c.handleSignal(ctx, conn, n, data)
		})
		c.lost(conn, n, err)
	}()

	if err := conn.sendJSON(Message{Type: TypeAdvertise, Role: role}); err != nil {
		return apperr.ConnectionFailed("signal advertise", err)
	}
	c.logger.Info().Str("url", c.cfg.URL).Str("role", string(role)).Msg("advertising")
	return nil
}

func (c *Client) Browse(context.Context, rtc.Negotiator) error {
	return ErrUnsupported
}

func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.closed = true
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	return nil
}

// lost reports an unexpected end of the current link.
func (c *Client) lost(conn *Conn, n rtc.Negotiator, err error) {
	c.mu.Lock()
	current := c.conn == conn
	if current {
		c.conn = nil
	}
	c.mu.Unlock()
	if !current {
		return
	}
	c.logger.Warn().Err(err).Msg("signaling link lost")
	n.Fail(apperr.ConnectionFailed("signaling link lost", err))
}

func (c *Client) handleSignal(ctx context.Context, conn *Conn, n rtc.Negotiator, data []byte) {
	m, err := decodeMessage(data)
	if err != nil {
		c.logger.Error().Err(err).Msg("bad json")
		return
	}
	switch m.Type {
	case TypeOffer:
		// gathering blocks; keep reading meanwhile
		go c.answer(ctx, conn, n, m)
	case TypePong:
		c.logger.Debug().Msg("pong")
	case TypeError:
		c.logger.Warn().Str("error", m.Error).Msg("signal error")
	default:
		c.logger.Warn().Str("type", m.Type).Msg("unknown signal")
	}
}

func (c *Client) answer(ctx context.Context, conn *Conn, n rtc.Negotiator, m Message) {
	if m.Peer == "" {
		c.logger.Warn().Msg("offer without peer")
		return
	}
	sdp, err := n.Accept(ctx, m.Peer, m.SDP)
	if err != nil {
		c.logger.Error().Err(err).Str("peer", string(m.Peer)).Msg("accept offer")
		return
	}
	if err := conn.sendJSON(Message{Type: TypeAnswer, Peer: m.Peer, SDP: sdp}); err != nil {
		c.logger.Error().Err(err).Str("peer", string(m.Peer)).Msg("send answer")
	}
}
