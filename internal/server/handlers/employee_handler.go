package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
)

// DeviceResolver resolves and provisions the devices of employees.
type DeviceResolver interface {
	Resolve(ctx context.Context, employeeId int) (*domain.Resolution, error)
	Provision(ctx context.Context, employee *domain.Employee, identifier string, confirmed bool) (*domain.Device, error)
}

// ResolutionResponse is returned when resolving the device of an employee.
type ResolutionResponse struct {
	*domain.Resolution

	// LookupError is set when the device lookup failed and device creation is offered instead.
	LookupError string `json:"lookup_error,omitempty"`
}

type EmployeeHttpHandler struct {
	*BaseHandler

	controller SessionController
	resolver   DeviceResolver
}

func NewEmployeeHttpHandler(opts *domain.Configuration, controller SessionController, resolver DeviceResolver, atom *zap.AtomicLevel) *EmployeeHttpHandler {
	handler := &EmployeeHttpHandler{
		BaseHandler: newBaseHandler(opts, atom),
		controller:  controller,
		resolver:    resolver,
	}
	handler.BackendHttpGetHandler = handler

	handler.logger.Info("Creating server-side EmployeeHttpHandler.")

	return handler
}

// HandleRequest lists the employees that can be selected for a new simulator session.
func (h *EmployeeHttpHandler) HandleRequest(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.Employees())
}

func (h *EmployeeHttpHandler) HandleResolveDeviceRequest(c *gin.Context) {
	id, ok := h.intParam(c, "employee_id")
	if !ok {
		return
	}

	resolution, err := h.resolver.Resolve(c.Request.Context(), id)
	if err != nil {
		h.WriteError(c, err)
		return
	}

	resp := &ResolutionResponse{Resolution: resolution}
	if resolution.LookupErr != nil {
		resp.LookupError = resolution.LookupErr.Error()
	}

	c.JSON(http.StatusOK, resp)
}

func (h *EmployeeHttpHandler) HandleProvisionDeviceRequest(c *gin.Context) {
	id, ok := h.intParam(c, "employee_id")
	if !ok {
		return
	}

	var req domain.ProvisionDeviceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	employee, loaded := h.controller.Employee(id)
	if !loaded {
		h.WriteError(c, domain.NewValidationError(domain.ErrUnknownEmployee, c.Param("employee_id")))
		return
	}

	device, err := h.resolver.Provision(c.Request.Context(), employee, req.DeviceIdentifier, req.Confirmed)
	if err != nil {
		h.WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, device)
}
