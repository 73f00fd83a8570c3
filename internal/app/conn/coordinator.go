// Package conn tracks which peers are connected and who they claim to be.
package conn

import (
	"github.com/dkeye/Logbot/internal/core"
	"github.com/dkeye/Logbot/internal/domain"
	"github.com/dkeye/Logbot/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Mode is the discovery side this coordinator plays.
type Mode int

const (
	// ModeAdvertising is the capture device side.
	ModeAdvertising Mode = iota
	// ModeBrowsing is the control station side.
	ModeBrowsing
)

func (m Mode) String() string {
	if m == ModeBrowsing {
		return "browsing"
	}
	return "advertising"
}

// Coordinator owns the Registry and drives the identity handshake. It is not
// safe for concurrent use; call it from the role's event loop only.
type Coordinator struct {
	mode   Mode
	self   domain.DeviceIdentity
	reg    *Registry
	out    core.Sender
	logger zerolog.Logger
}

func NewCoordinator(mode Mode, self domain.DeviceIdentity, reg *Registry, out core.Sender) *Coordinator {
	return &Coordinator{
		mode:   mode,
		self:   self,
		reg:    reg,
		out:    out,
		logger: log.With().Str("module", "app.conn").Str("mode", mode.String()).Logger(),
	}
}

func (c *Coordinator) Registry() *Registry         { return c.reg }
func (c *Coordinator) Self() domain.DeviceIdentity { return c.self }
func (c *Coordinator) Mode() Mode                  { return c.mode }

// PeerConnected inserts peer as Connecting and sends our own identity to it.
// The advertising side pushes identity proactively; the browsing side sends
// the same message as its probe. There is no dedicated request message.
func (c *Coordinator) PeerConnected(peer domain.PeerID) {
	c.reg.Insert(peer)

	msg := "identity pushed"
	if c.mode == ModeBrowsing {
		msg = "identity probe sent"
	}
	if err := c.sendIdentity(peer); err != nil {
		c.logger.Error().Err(err).Str("peer", string(peer)).Msg("identity send failed")
		return
	}
	c.logger.Debug().Str("peer", string(peer)).Msg(msg)
}

// IdentityReceived records the identity declared by peer.
func (c *Coordinator) IdentityReceived(peer domain.PeerID, id domain.DeviceIdentity) {
	if !c.reg.Identify(peer, id) {
		c.logger.Warn().Str("peer", string(peer)).Str("device", string(id.ID)).Msg("identity from unknown peer dropped")
	}
}

// PeerDisconnected removes peer regardless of any session or capture state.
// It returns the removed entry.
func (c *Coordinator) PeerDisconnected(peer domain.PeerID) (Entry, bool) {
	e, ok := c.reg.Remove(peer)
	if !ok {
		c.logger.Debug().Str("peer", string(peer)).Msg("disconnect for unknown peer")
	}
	return e, ok
}

func (c *Coordinator) sendIdentity(peer domain.PeerID) error {
	data, err := protocol.Encode(protocol.Identify{Identity: c.self})
	if err != nil {
		return err
	}
	return c.out.Send(data, []domain.PeerID{peer})
}
