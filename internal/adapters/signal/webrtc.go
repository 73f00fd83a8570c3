package signal

import (
	"context"

	"github.com/dkeye/Logbot/internal/adapters/rtc"
	"github.com/dkeye/Logbot/internal/domain"
)

// invite creates a link to peer and delivers the offer. Peers that already
// have a link are left alone so a repeated browse does not tear it down.
func (s *Server) invite(ctx context.Context, n rtc.Negotiator, peer domain.PeerID) {
	if n.Linked(peer) {
		return
	}
	offer, err := n.Invite(ctx, peer)
	if err != nil {
		s.logger.Error().Err(err).Str("peer", string(peer)).Msg("invite")
		return
	}
	c, ok := s.conn(peer)
	if !ok {
		s.logger.Warn().Str("peer", string(peer)).Msg("advertiser left before the offer")
		return
	}
	s.send(c, Message{Type: TypeOffer, Peer: s.cfg.Self, SDP: offer})
}

func (s *Server) handleAnswer(c *Conn, m Message) {
	_, n, ok := s.browsing()
	if !ok {
		s.logger.Warn().Str("peer", string(c.Peer())).Msg("answer while not browsing")
		return
	}
	if err := n.Complete(c.Peer(), m.SDP); err != nil {
		s.logger.Error().Err(err).Str("peer", string(c.Peer())).Msg("apply answer")
		s.send(c, errorMessage("bad_answer"))
	}
}
