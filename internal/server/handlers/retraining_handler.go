package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
)

// RetrainingMonitor is the retraining monitor as seen by the HTTP handlers.
type RetrainingMonitor interface {
	Snapshot() domain.RetrainingView
	Refresh(ctx context.Context) error
	Start(ctx context.Context, force bool) error
}

type RetrainingHttpHandler struct {
	*BaseHandler

	monitor RetrainingMonitor
}

func NewRetrainingHttpHandler(opts *domain.Configuration, monitor RetrainingMonitor, atom *zap.AtomicLevel) *RetrainingHttpHandler {
	handler := &RetrainingHttpHandler{
		BaseHandler: newBaseHandler(opts, atom),
		monitor:     monitor,
	}
	handler.BackendHttpGetHandler = handler

	handler.logger.Info("Creating server-side RetrainingHttpHandler.")

	return handler
}

// HandleRequest returns the retraining view. With ?refresh=true, every view is reloaded first.
func (h *RetrainingHttpHandler) HandleRequest(c *gin.Context) {
	if boolQuery(c, "refresh") {
		if err := h.monitor.Refresh(c.Request.Context()); err != nil {
			h.logger.Warn("Refresh requested by frontend failed. Serving the previous view.", zap.Error(err))
		}
	}

	view := h.monitor.Snapshot()
	c.JSON(http.StatusOK, &view)
}

// HandleStartRequest starts a retraining. The operator must have confirmed it.
func (h *RetrainingHttpHandler) HandleStartRequest(c *gin.Context) {
	var command domain.StartRetrainingCommand
	if !h.bindJSON(c, &command) {
		return
	}

	if !command.Confirmed {
		h.WriteError(c, domain.NewValidationError(domain.ErrConfirmationRequired, "retraining must be confirmed"))
		return
	}

	if err := h.monitor.Start(c.Request.Context(), command.Force); err != nil {
		h.WriteError(c, err)
		return
	}

	view := h.monitor.Snapshot()
	c.JSON(http.StatusAccepted, &view)
}
