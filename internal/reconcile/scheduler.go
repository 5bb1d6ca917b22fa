package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mgutz/ansi"
	"github.com/petermattis/goid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
	"github.com/fatigue-platform/operator-console/m/v2/internal/registry"
)

const (
	DefaultAutoRefreshInterval = 5 * time.Second
	DefaultRequestTimeout      = 10 * time.Second

	TriggerAutoRefresh Trigger = "auto_refresh"
	TriggerSettle      Trigger = "settle"
	TriggerCommand     Trigger = "command"
	TriggerPoll        Trigger = "poll"
)

var (
	ErrSchedulerNotStarted = errors.New("reconciliation scheduler has not been started")

	// ErrEmployeeReload is returned when the sessions were reconciled but the employee directory could not be
	// reloaded. The employee directory keeps its previous contents.
	ErrEmployeeReload = errors.New("failed to reload employee directory")
)

// Trigger identifies what caused a reconciliation.
type Trigger string

// MetricsConsumer is notified of the outcome of every reconciliation.
type MetricsConsumer interface {
	ObserveReconciliation(trigger string, succeeded bool, discarded bool)
}

// SessionPredicate is evaluated against the registry after each reconciliation performed by ReconcileUntil.
type SessionPredicate func(sessions *registry.SessionRegistry) bool

// Scheduler keeps the SessionRegistry consistent with the backend by fetching the authoritative collection
// of sessions on a recurring auto-refresh timer and at fixed offsets after each command.
type Scheduler struct {
	logger        *zap.Logger
	sugaredLogger *zap.SugaredLogger
	atom          *zap.AtomicLevel

	backend   domain.SessionBackend
	sessions  *registry.SessionRegistry
	employees *registry.EmployeeDirectory
	clock     domain.Clock
	metrics   MetricsConsumer // May be nil.

	requestTimeout      time.Duration
	autoRefreshInterval time.Duration

	mu                 sync.Mutex      // Synchronizes access to the fields below.
	baseCtx            context.Context // Context of timer-driven fetches. Set by Start.
	cancel             context.CancelFunc
	autoRefreshEnabled bool
	autoRefreshTimer   domain.Timer // Nil while auto-refresh is disabled or the scheduler is stopped.

	numFetches        atomic.Int64
	numFetchFailures  atomic.Int64
	numStaleSnapshots atomic.Int64
}

func NewScheduler(backend domain.SessionBackend, sessions *registry.SessionRegistry, employees *registry.EmployeeDirectory,
	clock domain.Clock, configuration *domain.Configuration, metrics MetricsConsumer, atom *zap.AtomicLevel) *Scheduler {

	scheduler := &Scheduler{
		backend:             backend,
		sessions:            sessions,
		employees:           employees,
		clock:               clock,
		metrics:             metrics,
		requestTimeout:      configuration.RequestTimeout(),
		autoRefreshInterval: configuration.AutoRefreshInterval(),
		autoRefreshEnabled:  configuration.AutoRefreshEnabled,
		atom:                atom,
	}

	if scheduler.requestTimeout <= 0 {
		scheduler.requestTimeout = DefaultRequestTimeout
	}

	if scheduler.autoRefreshInterval <= 0 {
		scheduler.autoRefreshInterval = DefaultAutoRefreshInterval
	}

	zapConfig := zap.NewDevelopmentEncoderConfig()
	zapConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig), zapcore.AddSync(colorable.NewColorableStdout()), atom)
	logger := zap.New(core, zap.Development())
	if logger == nil {
		panic("failed to create logger for reconciliation scheduler")
	}

	scheduler.logger = logger
	scheduler.sugaredLogger = logger.Sugar()

	return scheduler
}

// Start binds the context used by timer-driven fetches and arms the auto-refresh timer if auto-refresh is enabled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.logger.Warn("Reconciliation scheduler is already running.")
		return
	}

	s.baseCtx, s.cancel = context.WithCancel(ctx)

	if s.autoRefreshEnabled {
		s.armAutoRefreshLocked()
	}

	s.logger.Debug("Started reconciliation scheduler.",
		zap.Bool("auto_refresh", s.autoRefreshEnabled),
		zap.Duration("auto_refresh_interval", s.autoRefreshInterval))
}

// Stop cancels the auto-refresh timer and the context of in-flight timer-driven fetches.
// Settle timers that have not fired yet become no-ops.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disarmAutoRefreshLocked()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	s.logger.Debug("Stopped reconciliation scheduler.")
}

// SetAutoRefresh enables or disables the recurring reconciliation. Disabling cancels the recurring timer;
// enabling recreates it. Settle timers are unaffected.
func (s *Scheduler) SetAutoRefresh(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.autoRefreshEnabled = enabled
	s.disarmAutoRefreshLocked()

	if enabled && s.cancel != nil {
		s.armAutoRefreshLocked()
	}

	s.logger.Debug("Toggled auto-refresh.", zap.Bool("enabled", enabled))
}

func (s *Scheduler) AutoRefreshEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.autoRefreshEnabled
}

// NumFetches returns the number of session fetches issued so far.
func (s *Scheduler) NumFetches() int64 {
	return s.numFetches.Load()
}

// NumFetchFailures returns the number of session fetches that failed.
func (s *Scheduler) NumFetchFailures() int64 {
	return s.numFetchFailures.Load()
}

// NumStaleSnapshots returns the number of fetched snapshots that were discarded because a newer one had been applied.
func (s *Scheduler) NumStaleSnapshots() int64 {
	return s.numStaleSnapshots.Load()
}

func (s *Scheduler) armAutoRefreshLocked() {
	s.autoRefreshTimer = s.clock.Every(s.autoRefreshInterval, func() {
		s.logger.Debug(ansi.Color("Auto-refresh tick.", "blue"), zap.Int64("goroutine", goid.Get()))
		s.reconcileFromTimer(TriggerAutoRefresh, false)
	})
}

func (s *Scheduler) disarmAutoRefreshLocked() {
	if s.autoRefreshTimer != nil {
		s.autoRefreshTimer.Stop()
		s.autoRefreshTimer = nil
	}
}

// ReconcileNow fetches the authoritative collection of sessions and replaces the registry with it.
// When full is true, the employee directory is reloaded as well.
//
// A failed fetch leaves the registry untouched. If the sessions were applied but the employee directory could
// not be reloaded, the returned error wraps ErrEmployeeReload.
func (s *Scheduler) ReconcileNow(ctx context.Context, full bool) error {
	return s.reconcile(ctx, TriggerCommand, full)
}

// ScheduleSettle reconciles the registry at each of the given offsets from now. The reconciliation at offset
// zero is a full load performed synchronously by the caller; later ones fetch sessions only. Settle timers are
// never cancelled.
func (s *Scheduler) ScheduleSettle(ctx context.Context, reason string, offsets ...time.Duration) {
	for _, offset := range offsets {
		if offset <= 0 {
			if err := s.reconcile(ctx, TriggerCommand, true); err != nil {
				s.logFailure("Immediate reconciliation failed.", err, zap.String("reason", reason))
			}
			continue
		}

		delay := offset
		s.clock.AfterFunc(delay, func() {
			s.logger.Debug(ansi.Color("Settle timer fired.", "cyan"),
				zap.String("reason", reason),
				zap.Duration("offset", delay),
				zap.Int64("goroutine", goid.Get()))
			s.reconcileFromTimer(TriggerSettle, false)
		})
	}
}

// ReconcileUntil reconciles the registry until predicate holds or backoff.MaxAttempts reconciliations have been
// performed, waiting for the backoff's delay between consecutive attempts. At least one reconciliation is always
// performed. It returns whether the predicate was satisfied.
func (s *Scheduler) ReconcileUntil(ctx context.Context, predicate SessionPredicate, backoff *ExponentialBackoff) (bool, error) {
	attempts := 0
	for {
		attempts += 1
		if err := s.reconcile(ctx, TriggerPoll, false); err != nil {
			s.logger.Debug("Reconciliation failed while waiting for predicate.", zap.Int("attempt", attempts), zap.Error(err))
		} else if predicate(s.sessions) {
			return true, nil
		}

		if attempts >= backoff.MaxAttempts {
			s.logger.Debug("Predicate did not hold within the maximum number of attempts.", zap.Int("attempts", attempts))
			return false, nil
		}

		if err := s.sleep(ctx, backoff.Next()); err != nil {
			return false, err
		}
	}
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	elapsed := make(chan struct{})
	timer := s.clock.AfterFunc(d, func() { close(elapsed) })

	select {
	case <-elapsed:
		return nil
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}
}

func (s *Scheduler) reconcileFromTimer(trigger Trigger, full bool) {
	s.mu.Lock()
	base := s.baseCtx
	s.mu.Unlock()

	if base == nil {
		s.logger.Warn("Timer fired before the scheduler was started. Skipping reconciliation.", zap.String("trigger", string(trigger)))
		return
	}

	if base.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(base, s.requestTimeout)
	defer cancel()

	if err := s.reconcile(ctx, trigger, full); err != nil {
		s.logFailure("Scheduled reconciliation failed.", err, zap.String("trigger", string(trigger)))
	}
}

// logFailure reports a failed reconciliation, naming which part of the local state was kept.
func (s *Scheduler) logFailure(msg string, err error, fields ...zap.Field) {
	if errors.Is(err, ErrEmployeeReload) {
		s.logger.Warn(msg+" Sessions were updated. Keeping previous employee directory.", append(fields, zap.Error(err))...)
		return
	}

	s.logger.Warn(msg+" Keeping previous snapshot.", append(fields, zap.Error(err))...)
}

func (s *Scheduler) reconcile(ctx context.Context, trigger Trigger, full bool) error {
	ticket := s.sessions.Begin()

	s.numFetches.Add(1)
	snapshot, err := s.backend.ListSessions(ctx)
	if err != nil {
		s.numFetchFailures.Add(1)
		s.observe(trigger, false, false)
		return err
	}

	applied := s.sessions.ReplaceAll(ticket, snapshot)
	if !applied {
		s.numStaleSnapshots.Add(1)
	}

	s.observe(trigger, true, !applied)

	if full && s.employees != nil {
		employees, err := s.backend.ListAvailableEmployees(ctx)
		if err != nil {
			return errors.Join(ErrEmployeeReload, err)
		}

		s.employees.Replace(employees)
	}

	return nil
}

func (s *Scheduler) observe(trigger Trigger, succeeded bool, discarded bool) {
	if s.metrics != nil {
		s.metrics.ObserveReconciliation(string(trigger), succeeded, discarded)
	}
}
