package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Logbot/internal/app/orch"
	"github.com/dkeye/Logbot/internal/app/recovery"
	"github.com/dkeye/Logbot/internal/app/session"
	"github.com/dkeye/Logbot/internal/apperr"
)

type handlers struct {
	st Station
}

// ErrorView is the operator's view of the current failure.
type ErrorView struct {
	Kind        string `json:"kind"`
	Family      string `json:"family"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
	Severity    string `json:"severity"`
	Recoverable bool   `json:"recoverable"`
}

func newErrorView(err *apperr.Error) ErrorView {
	return ErrorView{
		Kind:        err.Kind.String(),
		Family:      err.Kind.Family().String(),
		Description: err.Description(),
		Suggestion:  err.Suggestion(),
		Severity:    err.Severity().String(),
		Recoverable: err.Recoverable(),
	}
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) status(c *gin.Context) {
	st, err := h.st.Status(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handlers) devices(c *gin.Context) {
	entries, err := h.st.Devices(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": entries})
}

func (h *handlers) startBrowsing(c *gin.Context) {
	if err := h.st.StartBrowsing(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"browsing": true})
}

func (h *handlers) stopBrowsing(c *gin.Context) {
	if err := h.st.StopBrowsing(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"browsing": false})
}

func (h *handlers) startSession(c *gin.Context) {
	s, err := h.st.StartSession(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s})
}

func (h *handlers) stopSession(c *gin.Context) {
	s, err := h.st.StopSession(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s})
}

func (h *handlers) startCapture(c *gin.Context) {
	if err := h.st.StartCapture(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"capture": "started"})
}

func (h *handlers) stopCapture(c *gin.Context) {
	if err := h.st.StopCapture(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"capture": "stopped"})
}

func (h *handlers) currentError(c *gin.Context) {
	err, ok := h.st.CurrentError()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, newErrorView(err))
}

func (h *handlers) clearError(c *gin.Context) {
	h.st.ClearError()
	c.Status(http.StatusNoContent)
}

func (h *handlers) retry(c *gin.Context) {
	if err := h.st.Retry(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"retrying": true})
}

// fail maps operation errors to statuses. Logical no-ops are conflicts.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrAlreadyActive),
		errors.Is(err, session.ErrNoDevices),
		errors.Is(err, session.ErrNotActive),
		errors.Is(err, recovery.ErrNothingToRetry),
		errors.Is(err, recovery.ErrNotRecoverable),
		errors.Is(err, recovery.ErrNoAction):
		status = http.StatusConflict
	case errors.Is(err, orch.ErrQueueClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	default:
		if _, ok := apperr.As(err); ok {
			status = http.StatusBadGateway
		}
	}
	log.Warn().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Int("status", status).Msg("request failed")
	c.JSON(status, gin.H{"error": err.Error()})
}
