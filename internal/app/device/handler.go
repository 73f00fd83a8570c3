// Package device implements the capture device's reaction to commands from
// the control station.
package device

import (
	"context"
	"strings"

	"github.com/dkeye/Logbot/internal/apperr"
	"github.com/dkeye/Logbot/internal/core"
	"github.com/dkeye/Logbot/internal/domain"
	"github.com/dkeye/Logbot/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateSessionAssigned
	StateCapturing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateSessionAssigned:
		return "session_assigned"
	case StateCapturing:
		return "capturing"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type FailureFunc func(err *apperr.Error, source string)

// Handler is the per-device command state machine. It is not safe for
// concurrent use; call it from the device's event loop.
type Handler struct {
	out  core.Sender
	capt core.Capturer
	fail FailureFunc

	peers     map[domain.PeerID]struct{}
	session   *domain.Session
	capturing bool

	logger zerolog.Logger
}

func NewHandler(out core.Sender, capt core.Capturer, fail FailureFunc) *Handler {
	if fail == nil {
		fail = func(*apperr.Error, string) {}
	}
	return &Handler{
		out:    out,
		capt:   capt,
		fail:   fail,
		peers:  make(map[domain.PeerID]struct{}),
		logger: log.With().Str("module", "app.device").Logger(),
	}
}

func (h *Handler) State() State {
	switch {
	case len(h.peers) == 0:
		return StateDisconnected
	case h.capturing:
		return StateCapturing
	case h.session != nil:
		return StateSessionAssigned
	default:
		return StateConnected
	}
}

func (h *Handler) Capturing() bool { return h.capturing }

// Session returns a copy of the current session reference, if any.
func (h *Handler) Session() (domain.Session, bool) {
	if h.session == nil {
		return domain.Session{}, false
	}
	return *h.session, true
}

func (h *Handler) Connected(peer domain.PeerID) {
	h.peers[peer] = struct{}{}
}

// Disconnected drops the session reference and the capture flag locally,
// without telling the control station.
func (h *Handler) Disconnected(ctx context.Context, peer domain.PeerID) {
	delete(h.peers, peer)
	if h.capturing {
		if err := h.capt.Stop(ctx); err != nil {
			h.logger.Error().Err(err).Msg("capture stop on disconnect failed")
		}
	}
	if h.session != nil || h.capturing {
		h.logger.Warn().Str("peer", string(peer)).Bool("was_capturing", h.capturing).Msg("disconnected: session and capture cleared")
	}
	h.session = nil
	h.capturing = false
}

// Handle applies cmd received from peer.
func (h *Handler) Handle(ctx context.Context, cmd protocol.Command, from domain.PeerID) {
	switch c := cmd.(type) {
	case protocol.StartSession:
		h.startSession(c.Session)
	case protocol.StopSession:
		h.stopSession(c.SessionID)
	case protocol.StartCapture:
		h.startCapture(ctx, from)
	case protocol.StopCapture:
		h.stopCapture(ctx)
	case protocol.Identify, protocol.ErrorNotice:
		h.logger.Debug().Str("command", string(cmd.Type())).Msg("ignored")
	default:
		h.logger.Warn().Msgf("unhandled command %T", cmd)
	}
}

// startSession always replaces the current session, even mid-session.
func (h *Handler) startSession(s domain.Session) {
	if h.session != nil && h.session.ID != s.ID {
		h.logger.Warn().Str("previous", string(h.session.ID)).Str("session", string(s.ID)).Msg("session replaced")
	}
	h.session = &s
	h.logger.Info().Str("session", string(s.ID)).Msg("session assigned")
}

// stopSession clears a matching session. The capture flag is left as is.
func (h *Handler) stopSession(id domain.SessionID) {
	if h.session == nil || h.session.ID != id {
		h.logger.Info().Str("session", string(id)).Msg("stop for non-current session ignored")
		return
	}
	h.session = nil
	h.logger.Info().Str("session", string(id)).Bool("capturing", h.capturing).Msg("session cleared")
}

func (h *Handler) startCapture(ctx context.Context, from domain.PeerID) {
	if h.session == nil {
		h.logger.Warn().Msg("start capture without session dropped")
		return
	}
	if h.capturing {
		h.logger.Debug().Msg("already capturing")
		return
	}
	if err := h.capt.Start(ctx); err != nil {
		h.logger.Error().Err(err).Msg("capture start failed")
		h.reportCaptureFailure(err, from)
		return
	}
	h.capturing = true
	h.logger.Info().Str("session", string(h.session.ID)).Msg("capturing")
}

func (h *Handler) stopCapture(ctx context.Context) {
	if err := h.capt.Stop(ctx); err != nil {
		h.logger.Error().Err(err).Msg("capture stop failed")
		if ae, ok := apperr.As(err); ok {
			h.fail(ae, "device")
		}
	}
	if h.capturing {
		h.logger.Info().Msg("capture stopped")
	}
	h.capturing = false
}

func (h *Handler) reportCaptureFailure(err error, to domain.PeerID) {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.HardwareAccessDenied("capture", err)
	}
	if data, encErr := protocol.Encode(protocol.ErrorNotice{Text: strings.ToValidUTF8(ae.Error(), "\uFFFD")}); encErr == nil {
		if sendErr := h.out.Send(data, []domain.PeerID{to}); sendErr != nil {
			h.logger.Warn().Err(sendErr).Str("peer", string(to)).Msg("error notice not sent")
		}
	}
	h.fail(ae, "device")
}
