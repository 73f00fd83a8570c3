package signal

func (s *Server) handleSignal(c *Conn, data []byte) {
	m, err := decodeMessage(data)
	if err != nil {
		s.logger.Error().Err(err).Str("peer", string(c.Peer())).Msg("bad json")
		s.send(c, errorMessage("bad_payload"))
		return
	}

	switch m.Type {
	case TypeAdvertise:
		s.handleAdvertise(c, m)
	case TypeAnswer:
		s.handleAnswer(c, m)
	case TypePing:
		s.handlePing(c)
	default:
		s.logger.Warn().Str("peer", string(c.Peer())).Str("type", m.Type).Msg("unknown signal")
	}
}

func (s *Server) handleAdvertise(c *Conn, m Message) {
	peer := c.Peer()
	if !m.Role.Valid() {
		s.send(c, errorMessage("invalid_role"))
		return
	}
	if !s.limiter.Allow(peer) {
		s.logger.Warn().Str("peer", string(peer)).Msg("advertise rate limited")
		s.send(c, errorMessage("rate_limited"))
		return
	}

	s.mu.Lock()
	s.adverts[peer] = m.Role
	s.mu.Unlock()
	s.logger.Info().Str("peer", string(peer)).Str("role", string(m.Role)).Msg("advertise")

	if ctx, n, ok := s.browsing(); ok {
		go s.invite(ctx, n, peer)
	}
}

func (s *Server) handlePing(c *Conn) {
	s.send(c, Message{Type: TypePong})
}
