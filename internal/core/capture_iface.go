package core

//go:generate mockgen -source=capture_iface.go -destination=../mock/capture_mock.go -package=mock

import (
	"context"

	"github.com/dkeye/Logbot/internal/apperr"
)

// Capturer drives the local sensors of a capture device.
type Capturer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Notifier publishes failures that should be shown to the operator.
type Notifier interface {
	Notify(*apperr.Error)
}
