// Package signal is the websocket rendezvous for the rtc transport: devices
// advertise, the control station invites them with an offer and the device
// replies with an answer.
package signal

import (
	"errors"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Logbot/internal/core"
	"github.com/dkeye/Logbot/internal/domain"
)

// TokenCookie carries the stable peer token of a signaling client.
const TokenCookie = "ct"

var (
	ErrBackpressure = errors.New("signal: backpressure")
	ErrClosed       = errors.New("signal: connection closed")
	ErrUnsupported  = errors.New("signal: unsupported on this side")
)

// Conn is one signaling link. Writes are queued and drained by writePump.
type Conn struct {
	conn *websocket.Conn
	peer domain.PeerID
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

var _ core.SignalConnection = (*Conn)(nil)

func newConn(ws *websocket.Conn, peer domain.PeerID, queue int) *Conn {
	if queue <= 0 {
		queue = 32
	}
	return &Conn{
		conn: ws,
		peer: peer,
		send: make(chan core.Frame, queue),
	}
}

func (c *Conn) Peer() domain.PeerID { return c.peer }

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func (c *Conn) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Conn) sendJSON(m Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return err
	}
	return c.TrySend(b)
}
