package signal

import "github.com/dkeye/Logbot/internal/domain"

type BackpressureAction int

const (
	DropMessage BackpressureAction = iota
	Disconnect
)

// Policy decides what happens to a signaling client whose send queue is
// full.
type Policy interface {
	OnBackpressure(peer domain.PeerID) BackpressureAction
}

// DisconnectPolicy drops slow clients; they advertise again after
// reconnecting.
type DisconnectPolicy struct{}

func (DisconnectPolicy) OnBackpressure(domain.PeerID) BackpressureAction {
	return Disconnect
}
