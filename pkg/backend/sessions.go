package backend

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
)

func (c *Client) ListSessions(ctx context.Context) ([]*domain.SimulatorSession, error) {
	body, err := c.do(ctx, &request{operation: "list-sessions", method: http.MethodGet, path: "/simulators/"})
	if err != nil {
		return nil, err
	}

	sessions, err := decodeList[*domain.SimulatorSession](body)
	if err != nil {
		c.logger.Error("Failed to decode list of simulator sessions.", zap.Error(err))
		return nil, err
	}

	return sessions, nil
}

func (c *Client) GetSession(ctx context.Context, id int) (*domain.SimulatorSession, error) {
	var session domain.SimulatorSession
	if err := c.doJSON(ctx, &request{operation: "get-session", method: http.MethodGet, path: sessionPath(id, "")}, &session); err != nil {
		return nil, err
	}

	return &session, nil
}

func (c *Client) ListAvailableEmployees(ctx context.Context) ([]*domain.Employee, error) {
	body, err := c.do(ctx, &request{operation: "list-available-employees", method: http.MethodGet, path: "/simulators/available_employees/"})
	if err != nil {
		return nil, err
	}

	employees, err := decodeList[*domain.Employee](body)
	if err != nil {
		c.logger.Error("Failed to decode list of available employees.", zap.Error(err))
		return nil, err
	}

	return employees, nil
}

func (c *Client) CreateSession(ctx context.Context, req *domain.CreateSessionRequest) (*domain.SimulatorSession, error) {
	var session domain.SimulatorSession
	if err := c.doJSON(ctx, &request{operation: "create-session", method: http.MethodPost, path: "/simulators/", body: req}, &session); err != nil {
		return nil, err
	}

	c.logger.Debug("Created simulator session.", zap.Int("session_id", session.Id), zap.Int("employee_id", req.EmployeeId), zap.String("device_id", req.DeviceId))
	return &session, nil
}

func (c *Client) StopSession(ctx context.Context, id int) error {
	_, err := c.do(ctx, &request{operation: "stop-session", method: http.MethodPost, path: sessionPath(id, "stop")})
	return err
}

func (c *Client) RestartSession(ctx context.Context, id int) error {
	_, err := c.do(ctx, &request{operation: "restart-session", method: http.MethodPost, path: sessionPath(id, "restart")})
	return err
}

func (c *Client) DeleteSession(ctx context.Context, id int) error {
	_, err := c.do(ctx, &request{operation: "delete-session", method: http.MethodDelete, path: sessionPath(id, "")})
	return err
}

func (c *Client) UpdateSessionConfig(ctx context.Context, id int, cfg *domain.SessionConfig) error {
	_, err := c.do(ctx, &request{operation: "update-session-config", method: http.MethodPost, path: sessionPath(id, "update_config"), body: cfg})
	return err
}

func (c *Client) StopAllSessions(ctx context.Context) (*domain.StopAllResult, error) {
	var result domain.StopAllResult
	if err := c.doJSON(ctx, &request{operation: "stop-all-sessions", method: http.MethodPost, path: "/simulators/stop_all/"}, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) GetSessionStats(ctx context.Context) (*domain.SessionStats, error) {
	var stats domain.SessionStats
	if err := c.doJSON(ctx, &request{operation: "get-session-stats", method: http.MethodGet, path: "/simulators/stats/"}, &stats); err != nil {
		return nil, err
	}

	return &stats, nil
}
