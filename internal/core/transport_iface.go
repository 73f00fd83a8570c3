package core

//go:generate mockgen -source=transport_iface.go -destination=../mock/transport_mock.go -package=mock

import (
	"context"

	"github.com/dkeye/Logbot/internal/apperr"
	"github.com/dkeye/Logbot/internal/domain"
)

// Sender is the outbound half of a PeerTransport. Sends are fire-and-forget:
// a nil error means the frame was accepted locally, not that it arrived.
type Sender interface {
	Send(frame Frame, peers []domain.PeerID) error
	Broadcast(frame Frame) error
}

// PeerTransport discovers peers and delivers frames reliably and in order per
// peer. For a given peer, callbacks arrive as connected, data..., disconnected.
// Callbacks may run concurrently across peers.
type PeerTransport interface {
	Sender

	// StartAdvertising makes this side discoverable under role and accepts
	// every invitation.
	StartAdvertising(ctx context.Context, role domain.DeviceKind) error
	// StartBrowsing discovers advertisers and invites each one.
	StartBrowsing(ctx context.Context) error
	// Stop ends advertising/browsing and drops every link.
	Stop() error
	Peers() []domain.PeerID

	OnPeerConnected(func(domain.PeerID))
	OnPeerDisconnected(func(domain.PeerID))
	OnDataReceived(func(Frame, domain.PeerID))
	// OnFailure reports transport-level failures such as a failed dial or an
	// expired invitation.
	OnFailure(func(*apperr.Error))
}
