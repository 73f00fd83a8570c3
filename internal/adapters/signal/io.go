package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

// pongWait is how long the reader waits for any traffic before giving up;
// pings go out at pingPeriod, nine tenths of it.
func pongWait(pingPeriod time.Duration) time.Duration {
	return pingPeriod * 10 / 9
}

func (c *Conn) writePump(ctx context.Context, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("peer", string(c.peer)).Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("peer", string(c.peer)).Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("peer", string(c.peer)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("peer", string(c.peer)).Msg("writePump write error")
				return
			}
		}
	}
}

// readPump hands every inbound message to handle until the link fails. Pings
// and pongs both extend the read deadline.
func (c *Conn) readPump(ctx context.Context, readLimit int64, pingPeriod time.Duration, handle func([]byte)) error {
	defer c.Close()

	wait := pongWait(pingPeriod)
	if readLimit > 0 {
		c.conn.SetReadLimit(readLimit)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wait))
	})
	c.conn.SetPingHandler(func(data string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(wait))
		err := c.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("peer", string(c.peer)).Msg("readPump ctx done")
			return ctx.Err()
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return err
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(wait))
			handle(data)
		}
	}
}
