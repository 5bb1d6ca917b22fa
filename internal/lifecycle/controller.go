package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
	"github.com/fatigue-platform/operator-console/m/v2/internal/reconcile"
	"github.com/fatigue-platform/operator-console/m/v2/internal/registry"
)

var (
	// CreateSettleOffsets are the offsets at which the registry is reconciled after a session is created.
	CreateSettleOffsets = []time.Duration{0}

	// StopSettleOffsets are the offsets at which the registry is reconciled after a session is stopped.
	StopSettleOffsets = []time.Duration{0, 500 * time.Millisecond}

	// RestartSettleOffsets are the offsets at which the registry is reconciled after a session is restarted.
	RestartSettleOffsets = []time.Duration{0, 500 * time.Millisecond}

	// ReconfigureSettleOffsets are the offsets at which the registry is reconciled after a session is reconfigured.
	// Configuration changes take longer to show up in the live statistics of a simulator.
	ReconfigureSettleOffsets = []time.Duration{0, 500 * time.Millisecond, 2000 * time.Millisecond}
)

// MetricsConsumer is notified of every command issued to the backend.
type MetricsConsumer interface {
	ObserveCommand(command string, succeeded bool, latency time.Duration)
}

// SessionPredicate is a condition on a single session, used with Controller.AwaitSettled.
type SessionPredicate func(session *domain.SimulatorSession) bool

// HasStatus returns a SessionPredicate that holds once the session reaches the given status.
func HasStatus(status domain.SessionStatus) SessionPredicate {
	return func(session *domain.SimulatorSession) bool {
		return session.Status == status
	}
}

// ReflectsConfig returns a SessionPredicate that holds once the live statistics of the session reflect the
// activity mode of the given configuration.
func ReflectsConfig(cfg *domain.SessionConfig) SessionPredicate {
	return func(session *domain.SimulatorSession) bool {
		if cfg.ActivityMode == "" {
			return true
		}

		return domain.ConfigActivityModeFor(session.Stats().ActivityMode) == cfg.ActivityMode
	}
}

// Controller exposes the session commands. Every command validates its preconditions against the registry
// before contacting the backend, and schedules reconciliations after the backend responds.
// Commands are never retried.
type Controller struct {
	logger        *zap.Logger
	sugaredLogger *zap.SugaredLogger
	atom          *zap.AtomicLevel

	backend   domain.SessionBackend
	sessions  *registry.SessionRegistry
	employees *registry.EmployeeDirectory
	scheduler *reconcile.Scheduler
	clock     domain.Clock
	journal   domain.CommandJournal // May be nil.
	metrics   MetricsConsumer       // May be nil.

	settleMaxAttempts int
	settleBaseBackoff time.Duration
	settleMaxBackoff  time.Duration
}

func NewController(backend domain.SessionBackend, sessions *registry.SessionRegistry, employees *registry.EmployeeDirectory,
	scheduler *reconcile.Scheduler, clock domain.Clock, journal domain.CommandJournal, metrics MetricsConsumer,
	configuration *domain.Configuration, atom *zap.AtomicLevel) *Controller {

	controller := &Controller{
		backend:           backend,
		sessions:          sessions,
		employees:         employees,
		scheduler:         scheduler,
		clock:             clock,
		journal:           journal,
		metrics:           metrics,
		settleMaxAttempts: configuration.SettleMaxAttempts,
		settleBaseBackoff: time.Duration(configuration.SettleBaseBackoffMs) * time.Millisecond,
		settleMaxBackoff:  time.Duration(configuration.SettleMaxBackoffMs) * time.Millisecond,
		atom:              atom,
	}

	zapConfig := zap.NewDevelopmentEncoderConfig()
	zapConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig), zapcore.AddSync(colorable.NewColorableStdout()), atom)
	logger := zap.New(core, zap.Development())
	if logger == nil {
		panic("failed to create logger for lifecycle controller")
	}

	controller.logger = logger
	controller.sugaredLogger = logger.Sugar()

	return controller
}

// Load performs the initial full load of the sessions and the employee directory.
func (c *Controller) Load(ctx context.Context) error {
	return c.scheduler.ReconcileNow(ctx, true)
}

// Sessions returns the sessions currently held by the registry.
func (c *Controller) Sessions() []*domain.SimulatorSession {
	return c.sessions.All()
}

// Session returns the session with the given ID, as currently held by the registry.
func (c *Controller) Session(id int) (*domain.SimulatorSession, bool) {
	return c.sessions.Get(id)
}

// Counts returns the summary counters of the registry.
func (c *Controller) Counts() domain.SessionCounts {
	return c.sessions.Counts()
}

// Employees returns the employees that do not have an active simulator.
func (c *Controller) Employees() []*domain.Employee {
	return c.employees.Idle()
}

// Employee returns the cached employee with the given ID.
func (c *Controller) Employee(id int) (*domain.Employee, bool) {
	return c.employees.Get(id)
}

// Create creates a simulator session for an employee whose device has already been resolved.
func (c *Controller) Create(ctx context.Context, req *domain.CreateSessionRequest) (*domain.SimulatorSession, error) {
	if req == nil || req.EmployeeId <= 0 {
		return nil, domain.NewValidationError(domain.ErrNoEmployeeSelected, "")
	}

	if req.DeviceId == "" {
		return nil, domain.NewValidationError(domain.ErrNoDeviceResolved, fmt.Sprintf("employee %d", req.EmployeeId))
	}

	if !req.FatigueProfile.IsValid() {
		return nil, domain.NewValidationError(domain.ErrInvalidSessionProfile, fmt.Sprintf("unknown fatigue profile \"%s\"", req.FatigueProfile))
	}

	if !req.ActivityMode.IsValid() {
		return nil, domain.NewValidationError(domain.ErrInvalidSessionProfile, fmt.Sprintf("unknown activity mode \"%s\"", req.ActivityMode))
	}

	if existing, loaded := c.sessions.FindByEmployee(req.EmployeeId); loaded {
		return nil, domain.NewValidationError(domain.ErrEmployeeHasActiveSimulator, fmt.Sprintf("session %d", existing.Id))
	}

	if employee, loaded := c.employees.Get(req.EmployeeId); loaded && employee.HasActiveSimulator {
		return nil, domain.NewValidationError(domain.ErrEmployeeHasActiveSimulator, employee.DisplayName())
	}

	issuedAt := c.clock.Now()
	session, err := c.backend.CreateSession(ctx, req)

	sessionId := 0
	if session != nil {
		sessionId = session.Id
	}
	c.record(domain.CommandCreate, sessionId, req.EmployeeId, issuedAt, err)

	if err == nil && session != nil {
		created := session.Clone()
		if created.EmployeeId == 0 {
			created.EmployeeId = req.EmployeeId
		}

		c.sessions.RecordCreated(created)
	}

	c.scheduler.ScheduleSettle(ctx, domain.CommandCreate.String(), CreateSettleOffsets...)

	if err != nil {
		return nil, err
	}

	return session, nil
}

// Stop stops a running session.
func (c *Controller) Stop(ctx context.Context, id int) error {
	session, err := c.precondition(domain.CommandStop, id)
	if err != nil {
		return err
	}

	issuedAt := c.clock.Now()
	err = c.backend.StopSession(ctx, id)
	c.record(domain.CommandStop, id, session.EmployeeId, issuedAt, err)

	c.scheduler.ScheduleSettle(ctx, domain.CommandStop.String(), StopSettleOffsets...)
	return err
}

// Restart restarts a stopped session.
func (c *Controller) Restart(ctx context.Context, id int) error {
	session, err := c.precondition(domain.CommandRestart, id)
	if err != nil {
		return err
	}

	issuedAt := c.clock.Now()
	err = c.backend.RestartSession(ctx, id)
	c.record(domain.CommandRestart, id, session.EmployeeId, issuedAt, err)

	c.scheduler.ScheduleSettle(ctx, domain.CommandRestart.String(), RestartSettleOffsets...)
	return err
}

// Reconfigure changes the activity mode and fatigue parameters of a running session.
func (c *Controller) Reconfigure(ctx context.Context, id int, cfg *domain.SessionConfig) error {
	if cfg == nil {
		return domain.NewValidationError(domain.ErrInvalidSessionConfig, "configuration is missing")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	session, err := c.precondition(domain.CommandReconfigure, id)
	if err != nil {
		return err
	}

	issuedAt := c.clock.Now()
	err = c.backend.UpdateSessionConfig(ctx, id, cfg)
	c.record(domain.CommandReconfigure, id, session.EmployeeId, issuedAt, err)

	c.scheduler.ScheduleSettle(ctx, domain.CommandReconfigure.String(), ReconfigureSettleOffsets...)
	return err
}

// Delete deletes a session. On success the session is removed from the registry immediately; on failure the
// registry is reconciled instead.
func (c *Controller) Delete(ctx context.Context, id int, confirmed bool) error {
	if !confirmed {
		return domain.NewValidationError(domain.ErrConfirmationRequired, fmt.Sprintf("deleting session %d must be confirmed", id))
	}

	session, err := c.precondition(domain.CommandDelete, id)
	if err != nil {
		return err
	}

	issuedAt := c.clock.Now()
	err = c.backend.DeleteSession(ctx, id)
	c.record(domain.CommandDelete, id, session.EmployeeId, issuedAt, err)

	if err != nil {
		c.scheduler.ScheduleSettle(ctx, domain.CommandDelete.String(), 0)
		return err
	}

	c.sessions.Remove(id)
	return nil
}

// StopAll stops every session known to the backend, followed by a single full reconciliation.
func (c *Controller) StopAll(ctx context.Context, confirmed bool) (*domain.StopAllResult, error) {
	if !confirmed {
		return nil, domain.NewValidationError(domain.ErrConfirmationRequired, "stopping all sessions must be confirmed")
	}

	issuedAt := c.clock.Now()
	result, err := c.backend.StopAllSessions(ctx)
	c.record(domain.CommandStopAll, 0, 0, issuedAt, err)

	c.scheduler.ScheduleSettle(ctx, domain.CommandStopAll.String(), 0)

	if err != nil {
		return nil, err
	}

	c.logger.Info(domain.LightBlueStyle.Render("Stopped all simulator sessions."), zap.Int("count", result.Count))
	return result, nil
}

// SetAutoRefresh enables or disables the periodic reconciliation of the registry.
func (c *Controller) SetAutoRefresh(enabled bool) {
	c.scheduler.SetAutoRefresh(enabled)
}

func (c *Controller) AutoRefreshEnabled() bool {
	return c.scheduler.AutoRefreshEnabled()
}

// AwaitSettled reconciles the registry with exponential backoff until the session with the given ID satisfies
// the predicate, or the configured number of attempts is exhausted. It returns whether the session settled.
func (c *Controller) AwaitSettled(ctx context.Context, id int, predicate SessionPredicate) (bool, error) {
	backoff := reconcile.NewExponentialBackoff(c.settleBaseBackoff, c.settleMaxBackoff, c.settleMaxAttempts)

	return c.scheduler.ReconcileUntil(ctx, func(sessions *registry.SessionRegistry) bool {
		session, loaded := sessions.Get(id)
		return loaded && predicate(session)
	}, backoff)
}

// precondition returns the session with the given ID if the command is permitted in its current status.
func (c *Controller) precondition(cmd domain.Command, id int) (*domain.SimulatorSession, error) {
	session, loaded := c.sessions.Get(id)
	if !loaded {
		return nil, domain.NewValidationError(domain.ErrSessionNotFound, fmt.Sprintf("session %d", id))
	}

	if err := domain.CheckTransition(cmd, session.Status); err != nil {
		c.logger.Debug("Rejected command.",
			zap.String("command", cmd.String()),
			zap.Int("session_id", id),
			zap.String("status", domain.StatusStyle(session.Status).Render(session.Status.String())))
		return nil, err
	}

	return session, nil
}

func (c *Controller) record(cmd domain.Command, sessionId int, employeeId int, issuedAt time.Time, err error) {
	latency := c.clock.Now().Sub(issuedAt)
	succeeded := err == nil

	c.logger.Debug(domain.OutcomeStyle(succeeded).Render(fmt.Sprintf("Issued %s command.", cmd)),
		zap.Int("session_id", sessionId),
		zap.Int("employee_id", employeeId),
		zap.Duration("latency", latency),
		zap.Error(err))

	if c.metrics != nil {
		c.metrics.ObserveCommand(cmd.String(), succeeded, latency)
	}

	if c.journal == nil {
		return
	}

	entry := &domain.JournalEntry{
		Command:    cmd,
		SessionId:  sessionId,
		EmployeeId: employeeId,
		Succeeded:  succeeded,
		IssuedAt:   issuedAt,
		Latency:    latency,
	}

	if err != nil {
		entry.Error = err.Error()
	}

	c.journal.Record(entry)
}
