package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// DataLink is one negotiated peer connection carrying command frames.
type DataLink interface {
	// Start configures internal callbacks and binds the link lifetime to ctx.
	Start(ctx context.Context) error
	// Close tears the connection down; OnClosed fires once.
	Close()
	// CreateOffer opens the data channel and returns the complete local SDP.
	CreateOffer(ctx context.Context) (*webrtc.SessionDescription, error)
	ApplyOfferAndCreateAnswer(webrtc.SessionDescription) (*webrtc.SessionDescription, error)
	ApplyAnswer(webrtc.SessionDescription) error
	Send(Frame) error
	// OnOpen sets a callback for the data channel becoming usable.
	OnOpen(func())
	// OnMessage sets a callback for inbound frames.
	OnMessage(func(Frame))
	// OnClosed sets a callback for link cleanup.
	OnClosed(func())
}
