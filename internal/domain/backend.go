package domain

//go:generate mockgen -destination=../mock_domain/backend.go -package=mock_domain github.com/fatigue-platform/operator-console/m/v2/internal/domain Backend,CommandJournal

import (
	"context"
	"time"
)

// SessionBackend exposes the simulator endpoints of the platform backend.
type SessionBackend interface {
	ListSessions(ctx context.Context) ([]*SimulatorSession, error)
	GetSession(ctx context.Context, id int) (*SimulatorSession, error)
	ListAvailableEmployees(ctx context.Context) ([]*Employee, error)
	CreateSession(ctx context.Context, req *CreateSessionRequest) (*SimulatorSession, error)
	StopSession(ctx context.Context, id int) error
	RestartSession(ctx context.Context, id int) error
	DeleteSession(ctx context.Context, id int) error
	UpdateSessionConfig(ctx context.Context, id int, cfg *SessionConfig) error
	StopAllSessions(ctx context.Context) (*StopAllResult, error)
	GetSessionStats(ctx context.Context) (*SessionStats, error)
}

// DeviceBackend exposes the device registry endpoints of the platform backend.
type DeviceBackend interface {
	ListDevicesByEmployee(ctx context.Context, employeeId int) ([]*Device, error)
	CreateDevice(ctx context.Context, req *CreateDeviceRequest) (*Device, error)
}

// ModelBackend exposes the machine-learning endpoints of the platform backend.
type ModelBackend interface {
	GetModelInfo(ctx context.Context) (*ModelInfo, error)
	GetStatistics(ctx context.Context) (*Statistics, error)
	GetRetrainingStatus(ctx context.Context) (*RetrainingStatus, error)
	StartRetraining(ctx context.Context, req *StartRetrainingRequest) (*StartRetrainingResponse, error)
	GetPredictionHistory(ctx context.Context, limit int) (*PredictionHistory, error)
}

// Backend is the complete set of request/response operations the console relies on.
type Backend interface {
	SessionBackend
	DeviceBackend
	ModelBackend
}

// JournalEntry records one operator command and its outcome.
type JournalEntry struct {
	Id         string        `json:"id" csv:"id"`
	Command    Command       `json:"command" csv:"command"`
	SessionId  int           `json:"session_id" csv:"session_id"`
	EmployeeId int           `json:"employee_id" csv:"employee_id"`
	Succeeded  bool          `json:"succeeded" csv:"succeeded"`
	Error      string        `json:"error,omitempty" csv:"error"`
	IssuedAt   time.Time     `json:"issued_at" csv:"issued_at"`
	Latency    time.Duration `json:"latency" csv:"latency"`
}

// CommandJournal persists operator commands.
type CommandJournal interface {
	// Record stores the entry. Implementations must not block the caller on slow storage.
	Record(entry *JournalEntry)

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]*JournalEntry, error)
}
