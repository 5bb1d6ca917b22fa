package domain

const (
	// BaseApiGroupEndpoint is the Base of the API endpoint.
	BaseApiGroupEndpoint = "api"

	// AuthenticateRequest is used by the frontend to log in.
	AuthenticateRequest = "api/authenticate"

	// RefreshToken is used by the frontend to refresh its JWT token.
	RefreshToken = "api/refresh_token"

	// SessionsEndpoint is used to list and create simulator sessions.
	SessionsEndpoint = "sessions"

	// SessionEndpoint addresses one simulator session.
	SessionEndpoint = "sessions/:session_id"

	// StopSessionEndpoint stops one simulator session.
	StopSessionEndpoint = "sessions/:session_id/stop"

	// RestartSessionEndpoint restarts one simulator session.
	RestartSessionEndpoint = "sessions/:session_id/restart"

	// SessionConfigEndpoint reconfigures one simulator session.
	SessionConfigEndpoint = "sessions/:session_id/config"

	// StopAllSessionsEndpoint stops every simulator session.
	StopAllSessionsEndpoint = "sessions/stop-all"

	// AutoRefreshEndpoint toggles the periodic reconciliation of the session registry.
	AutoRefreshEndpoint = "sessions/auto-refresh"

	// SessionCountsEndpoint returns the summary counters of the session registry.
	SessionCountsEndpoint = "sessions/counts"

	// EmployeesEndpoint lists the employees available for simulation.
	EmployeesEndpoint = "employees"

	// EmployeeDeviceEndpoint resolves or provisions the device of an employee.
	EmployeeDeviceEndpoint = "employees/:employee_id/device"

	// RetrainingEndpoint returns the retraining view or starts a retraining.
	RetrainingEndpoint = "retraining"

	// JournalEndpoint returns the most recent operator commands.
	JournalEndpoint = "journal"

	// JournalExportEndpoint exports the operator commands as CSV.
	JournalExportEndpoint = "journal/export"

	// SystemConfigEndpoint is used internally (by the frontend) to get the system config from the backend.
	SystemConfigEndpoint = "config"

	// SessionsWebsocketEndpoint pushes session registry updates to the frontend.
	SessionsWebsocketEndpoint = "websocket/sessions"

	// PrometheusEndpoint is the default path on which Prometheus issues GET requests to scrape metrics.
	PrometheusEndpoint = "prometheus"
)

type Server interface {
	Serve() error // Run the server. This is a blocking call.
}

// ConfirmQueryParameter must be "true" for destructive commands to be issued.
const ConfirmQueryParameter = "confirm"

// AutoRefreshRequest toggles the periodic reconciliation of the session registry.
type AutoRefreshRequest struct {
	Enabled bool `json:"enabled"`
}

// ProvisionDeviceRequest asks the console to register a device for an employee.
type ProvisionDeviceRequest struct {
	DeviceIdentifier string `json:"device_identifier"`
	Confirmed        bool   `json:"confirmed"`
}

// CreateSessionCommand is submitted by the frontend to create a simulator session.
type CreateSessionCommand struct {
	EmployeeId     int            `json:"employee"`
	DeviceId       string         `json:"device_id"`
	FatigueProfile FatigueProfile `json:"fatigue_profile"`
	ActivityMode   ActivityMode   `json:"activity_mode"`
}

// StartRetrainingCommand is submitted by the frontend to start a retraining.
type StartRetrainingCommand struct {
	Force     bool `json:"force"`
	Confirmed bool `json:"confirmed"`
}
