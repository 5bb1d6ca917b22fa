package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
)

const DefaultJournalLimit = 100

// ExportableJournal is a domain.CommandJournal that can also be exported as CSV.
type ExportableJournal interface {
	domain.CommandJournal

	ExportCSV(ctx context.Context, w io.Writer) error
}

type JournalHttpHandler struct {
	*BaseHandler

	journal ExportableJournal
}

func NewJournalHttpHandler(opts *domain.Configuration, journal ExportableJournal, atom *zap.AtomicLevel) *JournalHttpHandler {
	handler := &JournalHttpHandler{
		BaseHandler: newBaseHandler(opts, atom),
		journal:     journal,
	}
	handler.BackendHttpGetHandler = handler

	handler.logger.Info("Creating server-side JournalHttpHandler.")

	return handler
}

// HandleRequest returns the most recent operator commands, newest first. The number returned is set by ?limit=N.
func (h *JournalHttpHandler) HandleRequest(c *gin.Context) {
	limit := DefaultJournalLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.WriteError(c, domain.NewValidationError(fmt.Errorf("invalid limit"), fmt.Sprintf("\"%s\"", raw)))
			return
		}

		limit = parsed
	}

	entries, err := h.journal.Recent(c.Request.Context(), limit)
	if err != nil {
		h.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// HandleExportRequest writes every operator command as a CSV attachment.
func (h *JournalHttpHandler) HandleExportRequest(c *gin.Context) {
	filename := fmt.Sprintf("console_journal_%s.csv", time.Now().UTC().Format("20060102T150405Z"))

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))

	if err := h.journal.ExportCSV(c.Request.Context(), c.Writer); err != nil {
		h.WriteError(c, err)
	}
}
