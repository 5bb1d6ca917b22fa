package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
)

type BaseHandler struct {
	logger        *zap.Logger
	sugaredLogger *zap.SugaredLogger
	atom          *zap.AtomicLevel
	opts          *domain.Configuration

	BackendHttpGetHandler domain.BackendHttpGetHandler
}

func newBaseHandler(opts *domain.Configuration, atom *zap.AtomicLevel) *BaseHandler {
	handler := &BaseHandler{
		opts: opts,
		atom: atom,
	}

	zapConfig := zap.NewDevelopmentEncoderConfig()
	zapConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig), zapcore.AddSync(colorable.NewColorableStdout()), atom)
	logger := zap.New(core, zap.Development())
	if logger == nil {
		panic("failed to create logger for http handler")
	}

	handler.logger = logger
	handler.sugaredLogger = logger.Sugar()

	handler.BackendHttpGetHandler = handler

	return handler
}

// WriteError writes an error back to the client, using the HTTP status that corresponds to the error.
func (h *BaseHandler) WriteError(c *gin.Context, err error) {
	status := domain.ErrorToHTTPStatus(err)

	if status >= http.StatusInternalServerError {
		h.logger.Error("Failed to handle request.", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	} else {
		h.logger.Debug("Rejected request.", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, &domain.ErrorMessage{
		Description:  http.StatusText(status),
		ErrorMessage: err.Error(),
		Valid:        true,
		Operation:    c.Request.Method + " " + c.FullPath(),
		Status:       domain.ResponseStatusError,
	})
}

func (h *BaseHandler) HandleRequest(c *gin.Context) {
	c.Status(http.StatusNotImplemented)
}

// intParam parses the named path parameter. On failure, an HTTP 400 is written and false is returned.
func (h *BaseHandler) intParam(c *gin.Context, name string) (int, bool) {
	value, err := strconv.Atoi(c.Param(name))
	if err != nil || value <= 0 {
		h.WriteError(c, domain.NewValidationError(fmt.Errorf("invalid %s", name), fmt.Sprintf("\"%s\"", c.Param(name))))
		return 0, false
	}

	return value, true
}

// bindJSON decodes the request body. On failure, an HTTP 400 is written and false is returned.
func (h *BaseHandler) bindJSON(c *gin.Context, out interface{}) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		h.logger.Error("Failed to unmarshal request body.", zap.String("path", c.FullPath()), zap.Error(err))
		h.WriteError(c, domain.NewValidationError(fmt.Errorf("malformed request body"), err.Error()))
		return false
	}

	return true
}

// boolQuery returns true if the named query parameter is "true" or "1".
func boolQuery(c *gin.Context, name string) bool {
	value, err := strconv.ParseBool(c.Query(name))
	return err == nil && value
}
