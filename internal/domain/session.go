package domain

import (
	"fmt"
	"time"
)

const (
	SessionRunning SessionStatus = "running" // The simulator is publishing readings.
	SessionStopped SessionStatus = "stopped" // The simulator was stopped by an operator or by a bulk stop.
	SessionError   SessionStatus = "error"   // The simulator terminated abnormally.
)

const (
	ProfileRested   FatigueProfile = "rested"
	ProfileNormal   FatigueProfile = "normal"
	ProfileTired    FatigueProfile = "tired"
	ProfileFatigued FatigueProfile = "fatigued"
	ProfileCritical FatigueProfile = "critical"
)

const (
	ActivityResting  ActivityMode = "resting"
	ActivityLight    ActivityMode = "light"
	ActivityModerate ActivityMode = "moderate"
	ActivityHeavy    ActivityMode = "heavy"
)

// The reconfigure endpoint speaks a different activity vocabulary than the session resource.
const (
	ConfigActivityRest     ConfigActivityMode = "rest"
	ConfigActivityLight    ConfigActivityMode = "light"
	ConfigActivityModerate ConfigActivityMode = "moderate"
	ConfigActivityIntense  ConfigActivityMode = "intense"
)

// SessionStatus is the backend-reported status of a SimulatorSession.
//
// Any status the backend reports that is not one of the three known values is decoded as SessionError.
type SessionStatus string

func (s SessionStatus) String() string {
	return string(s)
}

// UnmarshalText normalizes unknown statuses to SessionError so that every session held by the
// console is in exactly one of the three known states.
func (s *SessionStatus) UnmarshalText(text []byte) error {
	switch status := SessionStatus(text); status {
	case SessionRunning, SessionStopped, SessionError:
		*s = status
	default:
		*s = SessionError
	}

	return nil
}

type FatigueProfile string

func (p FatigueProfile) IsValid() bool {
	switch p {
	case ProfileRested, ProfileNormal, ProfileTired, ProfileFatigued, ProfileCritical:
		return true
	default:
		return false
	}
}

type ActivityMode string

func (m ActivityMode) IsValid() bool {
	switch m {
	case ActivityResting, ActivityLight, ActivityModerate, ActivityHeavy:
		return true
	default:
		return false
	}
}

type ConfigActivityMode string

func (m ConfigActivityMode) IsValid() bool {
	switch m {
	case ConfigActivityRest, ConfigActivityLight, ConfigActivityModerate, ConfigActivityIntense:
		return true
	default:
		return false
	}
}

// ConfigActivityModeFor maps a session ActivityMode onto the vocabulary accepted by the
// update-config endpoint. Unknown modes map to ConfigActivityLight.
func ConfigActivityModeFor(mode ActivityMode) ConfigActivityMode {
	switch mode {
	case ActivityResting:
		return ConfigActivityRest
	case ActivityModerate:
		return ConfigActivityModerate
	case ActivityHeavy:
		return ConfigActivityIntense
	default:
		return ConfigActivityLight
	}
}

// LiveStats are the in-memory counters the backend keeps for a running simulator.
type LiveStats struct {
	DeviceId       string       `json:"device_id"`
	Running        bool         `json:"running"`
	MessagesSent   int          `json:"messages_sent"`
	CurrentFatigue float64      `json:"current_fatigue"`
	ActivityMode   ActivityMode `json:"activity_mode"`
}

// SimulatorSession is a backend-managed process emulating one wearable device bound to one employee.
type SimulatorSession struct {
	Id              int            `json:"id"`
	EmployeeId      int            `json:"employee"`
	EmployeeName    string         `json:"employee_name"`
	EmployeeEmail   string         `json:"employee_email"`
	DeviceId        string         `json:"device_id"`
	Status          SessionStatus  `json:"status"`
	StatusDisplay   string         `json:"status_display,omitempty"`
	FatigueProfile  FatigueProfile `json:"fatigue_profile"`
	ActivityMode    ActivityMode   `json:"activity_mode"`
	CurrentFatigue  float64        `json:"current_fatigue"`
	MessagesSent    int            `json:"messages_sent"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	StoppedAt       *time.Time     `json:"stopped_at,omitempty"`
	DurationSeconds float64        `json:"duration_seconds"`
	LiveStats       *LiveStats     `json:"live_stats,omitempty"`
}

// Stats returns the live statistics of the session. When the backend did not attach live
// statistics, they are derived from the session-level counters.
func (s *SimulatorSession) Stats() LiveStats {
	if s.LiveStats != nil {
		return *s.LiveStats
	}

	return LiveStats{
		DeviceId:       s.DeviceId,
		Running:        s.Status == SessionRunning,
		MessagesSent:   s.MessagesSent,
		CurrentFatigue: s.CurrentFatigue,
		ActivityMode:   s.ActivityMode,
	}
}

// Clone returns a deep copy of the session.
func (s *SimulatorSession) Clone() *SimulatorSession {
	clone := *s

	if s.LiveStats != nil {
		stats := *s.LiveStats
		clone.LiveStats = &stats
	}

	if s.StartedAt != nil {
		startedAt := *s.StartedAt
		clone.StartedAt = &startedAt
	}

	if s.StoppedAt != nil {
		stoppedAt := *s.StoppedAt
		clone.StoppedAt = &stoppedAt
	}

	return &clone
}

func (s *SimulatorSession) String() string {
	return fmt.Sprintf("SimulatorSession[Id=%d,Employee=%d,Device=%s,Status=%s]", s.Id, s.EmployeeId, s.DeviceId, s.Status)
}

// CreateSessionRequest is the payload of the create-session endpoint.
type CreateSessionRequest struct {
	EmployeeId     int            `json:"employee"`
	DeviceId       string         `json:"device_id"`
	FatigueProfile FatigueProfile `json:"fatigue_profile"`
	ActivityMode   ActivityMode   `json:"activity_mode"`
}

// SessionConfig is the payload of the update-config endpoint.
type SessionConfig struct {
	ActivityMode ConfigActivityMode `json:"activity_mode,omitempty"`
	FatigueLevel *float64           `json:"fatigue_level,omitempty"`
	FatigueRate  *float64           `json:"fatigue_rate,omitempty"`
}

// Validate returns a ValidationError if the configuration is out of range.
func (c *SessionConfig) Validate() error {
	if c.ActivityMode == "" && c.FatigueLevel == nil && c.FatigueRate == nil {
		return NewValidationError(ErrInvalidSessionConfig, "configuration is empty")
	}

	if c.ActivityMode != "" && !c.ActivityMode.IsValid() {
		return NewValidationError(ErrInvalidSessionConfig, fmt.Sprintf("unknown activity mode \"%s\"", c.ActivityMode))
	}

	if c.FatigueLevel != nil && (*c.FatigueLevel < 0 || *c.FatigueLevel > 100) {
		return NewValidationError(ErrInvalidSessionConfig, fmt.Sprintf("fatigue level %.2f is outside [0, 100]", *c.FatigueLevel))
	}

	if c.FatigueRate != nil && *c.FatigueRate <= 0 {
		return NewValidationError(ErrInvalidSessionConfig, fmt.Sprintf("fatigue rate %.4f must be positive", *c.FatigueRate))
	}

	return nil
}

// StopAllResult is returned by the bulk stop endpoint.
type StopAllResult struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// SessionStats is the server-side aggregate returned by the simulator stats endpoint.
type SessionStats struct {
	TotalSessions  int         `json:"total_sessions"`
	Running        int         `json:"running"`
	Stopped        int         `json:"stopped"`
	Errors         int         `json:"errors"`
	ActiveInMemory int         `json:"active_in_memory"`
	LiveStats      []LiveStats `json:"live_stats"`
}

// SessionCounts are the summary counters computed locally from the registry.
type SessionCounts struct {
	Total        int `json:"total"`
	Running      int `json:"running"`
	Stopped      int `json:"stopped"`
	Errors       int `json:"errors"`
	MessagesSent int `json:"messages_sent"`
}
