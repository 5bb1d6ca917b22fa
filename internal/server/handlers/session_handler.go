package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
	"github.com/fatigue-platform/operator-console/m/v2/internal/lifecycle"
)

const (
	// WaitQueryParameter makes a command wait until the registry reflects its effect.
	WaitQueryParameter = "wait"
)

// SessionController is the lifecycle controller as seen by the HTTP handlers.
type SessionController interface {
	Sessions() []*domain.SimulatorSession
	Session(id int) (*domain.SimulatorSession, bool)
	Counts() domain.SessionCounts
	Employees() []*domain.Employee
	Employee(id int) (*domain.Employee, bool)
	Load(ctx context.Context) error
	Create(ctx context.Context, req *domain.CreateSessionRequest) (*domain.SimulatorSession, error)
	Stop(ctx context.Context, id int) error
	Restart(ctx context.Context, id int) error
	Reconfigure(ctx context.Context, id int, cfg *domain.SessionConfig) error
	Delete(ctx context.Context, id int, confirmed bool) error
	StopAll(ctx context.Context, confirmed bool) (*domain.StopAllResult, error)
	SetAutoRefresh(enabled bool)
	AutoRefreshEnabled() bool
	AwaitSettled(ctx context.Context, id int, predicate lifecycle.SessionPredicate) (bool, error)
}

// SessionsResponse is returned when listing sessions.
type SessionsResponse struct {
	Sessions           []*domain.SimulatorSession `json:"sessions"`
	Counts             domain.SessionCounts       `json:"counts"`
	EmployeesAvailable int                        `json:"employees_available"`
	AutoRefresh        bool                       `json:"auto_refresh"`
}

// CommandResponse is returned by session commands.
type CommandResponse struct {
	Status  string                   `json:"status"`
	Session *domain.SimulatorSession `json:"session,omitempty"`
	Settled *bool                    `json:"settled,omitempty"`
}

type SessionHttpHandler struct {
	*BaseHandler

	controller SessionController
}

func NewSessionHttpHandler(opts *domain.Configuration, controller SessionController, atom *zap.AtomicLevel) *SessionHttpHandler {
	handler := &SessionHttpHandler{
		BaseHandler: newBaseHandler(opts, atom),
		controller:  controller,
	}
	handler.BackendHttpGetHandler = handler

	handler.logger.Info("Creating server-side SessionHttpHandler.")

	return handler
}

// HandleRequest lists the sessions held by the registry. With ?refresh=true, the registry is reconciled first.
func (h *SessionHttpHandler) HandleRequest(c *gin.Context) {
	if boolQuery(c, "refresh") {
		if err := h.controller.Load(c.Request.Context()); err != nil {
			h.logger.Warn("Refresh requested by frontend failed. Serving the previous snapshot.", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, &SessionsResponse{
		Sessions:           h.controller.Sessions(),
		Counts:             h.controller.Counts(),
		EmployeesAvailable: len(h.controller.Employees()),
		AutoRefresh:        h.controller.AutoRefreshEnabled(),
	})
}

func (h *SessionHttpHandler) HandleGetSessionRequest(c *gin.Context) {
	id, ok := h.intParam(c, "session_id")
	if !ok {
		return
	}

	session, loaded := h.controller.Session(id)
	if !loaded {
		h.WriteError(c, domain.NewValidationError(domain.ErrSessionNotFound, c.Param("session_id")))
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SessionHttpHandler) HandleCountsRequest(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"counts":              h.controller.Counts(),
		"employees_available": len(h.controller.Employees()),
	})
}

func (h *SessionHttpHandler) HandleCreateRequest(c *gin.Context) {
	var command domain.CreateSessionCommand
	if !h.bindJSON(c, &command) {
		return
	}

	session, err := h.controller.Create(c.Request.Context(), &domain.CreateSessionRequest{
		EmployeeId:     command.EmployeeId,
		DeviceId:       command.DeviceId,
		FatigueProfile: command.FatigueProfile,
		ActivityMode:   command.ActivityMode,
	})
	if err != nil {
		h.WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, &CommandResponse{Status: domain.ResponseStatusOK, Session: session})
}

func (h *SessionHttpHandler) HandleStopRequest(c *gin.Context) {
	id, ok := h.intParam(c, "session_id")
	if !ok {
		return
	}

	if err := h.controller.Stop(c.Request.Context(), id); err != nil {
		h.WriteError(c, err)
		return
	}

	h.respond(c, id, lifecycle.HasStatus(domain.SessionStopped))
}

func (h *SessionHttpHandler) HandleRestartRequest(c *gin.Context) {
	id, ok := h.intParam(c, "session_id")
	if !ok {
		return
	}

	if err := h.controller.Restart(c.Request.Context(), id); err != nil {
		h.WriteError(c, err)
		return
	}

	h.respond(c, id, lifecycle.HasStatus(domain.SessionRunning))
}

func (h *SessionHttpHandler) HandleConfigRequest(c *gin.Context) {
	id, ok := h.intParam(c, "session_id")
	if !ok {
		return
	}

	var cfg domain.SessionConfig
	if !h.bindJSON(c, &cfg) {
		return
	}

	if err := h.controller.Reconfigure(c.Request.Context(), id, &cfg); err != nil {
		h.WriteError(c, err)
		return
	}

	h.respond(c, id, lifecycle.ReflectsConfig(&cfg))
}

func (h *SessionHttpHandler) HandleDeleteRequest(c *gin.Context) {
	id, ok := h.intParam(c, "session_id")
	if !ok {
		return
	}

	if err := h.controller.Delete(c.Request.Context(), id, boolQuery(c, domain.ConfirmQueryParameter)); err != nil {
		h.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, &CommandResponse{Status: domain.ResponseStatusOK})
}

func (h *SessionHttpHandler) HandleStopAllRequest(c *gin.Context) {
	result, err := h.controller.StopAll(c.Request.Context(), boolQuery(c, domain.ConfirmQueryParameter))
	if err != nil {
		h.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *SessionHttpHandler) HandleGetAutoRefreshRequest(c *gin.Context) {
	c.JSON(http.StatusOK, &domain.AutoRefreshRequest{Enabled: h.controller.AutoRefreshEnabled()})
}

func (h *SessionHttpHandler) HandleSetAutoRefreshRequest(c *gin.Context) {
	var req domain.AutoRefreshRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.controller.SetAutoRefresh(req.Enabled)
	h.logger.Info("Auto-refresh toggled by frontend.", zap.Bool("enabled", req.Enabled))

	c.JSON(http.StatusOK, &domain.AutoRefreshRequest{Enabled: h.controller.AutoRefreshEnabled()})
}

// respond writes the outcome of a successful command against one session. With ?wait=true, the registry is first
// reconciled until the session satisfies the predicate.
func (h *SessionHttpHandler) respond(c *gin.Context, id int, predicate lifecycle.SessionPredicate) {
	resp := &CommandResponse{Status: domain.ResponseStatusOK}

	if boolQuery(c, WaitQueryParameter) {
		settled, err := h.controller.AwaitSettled(c.Request.Context(), id, predicate)
		if err != nil {
			h.logger.Warn("Stopped waiting for session to settle.", zap.Int("session_id", id), zap.Error(err))
		}

		resp.Settled = &settled
	}

	if session, loaded := h.controller.Session(id); loaded {
		resp.Session = session
	}

	c.JSON(http.StatusOK, resp)
}
