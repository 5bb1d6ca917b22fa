package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
)

type ConfigHttpHandler struct {
	*BaseHandler
}

func NewConfigHttpHandler(opts *domain.Configuration, atom *zap.AtomicLevel) *ConfigHttpHandler {
	handler := &ConfigHttpHandler{
		BaseHandler: newBaseHandler(opts, atom),
	}
	handler.BackendHttpGetHandler = handler

	handler.logger.Info("Creating server-side ConfigHttpHandler.")

	return handler
}

// HandleRequest returns the configuration of the console. Secrets are excluded from its JSON encoding.
func (h *ConfigHttpHandler) HandleRequest(c *gin.Context) {
	c.JSON(http.StatusOK, h.opts)
}
