package retraining

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/petermattis/goid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
)

const (
	DefaultPollInterval           = 10 * time.Second
	DefaultWatchTimeout           = 5 * time.Minute
	DefaultPredictionHistoryLimit = 50
	DefaultRequestTimeout         = 10 * time.Second
)

// MetricsConsumer is notified whenever a retraining watch ends.
type MetricsConsumer interface {
	ObserveRetrainingWatch(outcome string, duration time.Duration)
}

// WatchListener is invoked once per retraining watch, after the watch ended and the dependent views were refreshed.
type WatchListener func(outcome domain.WatchOutcome, view domain.RetrainingView)

// Monitor drives a model retraining to completion detection. The backend offers no callback when a retraining
// finishes, so the Monitor polls the model info until the training date changes, bounded by a safety timeout.
type Monitor struct {
	logger        *zap.Logger
	sugaredLogger *zap.SugaredLogger
	atom          *zap.AtomicLevel

	backend domain.ModelBackend
	clock   domain.Clock
	journal domain.CommandJournal // May be nil.
	metrics MetricsConsumer       // May be nil.

	pollInterval      time.Duration
	watchTimeout      time.Duration
	modelInfoRefresh  time.Duration // Zero disables the periodic model info refresh.
	statisticsRefresh time.Duration // Zero disables the periodic statistics refresh.
	historyLimit      int
	requestTimeout    time.Duration

	mu              sync.Mutex
	baseCtx         context.Context // Context of timer-driven fetches.
	cancel          context.CancelFunc
	view            domain.RetrainingView // Every pointer held by the view is replaced wholesale, never mutated.
	snapshotDate    string                // Training date observed when the current watch started.
	watchStartedAt  time.Time
	watchGeneration uint64 // Incremented whenever a watch starts, so that callbacks of earlier watches are ignored.
	pollTimer       domain.Timer
	safetyTimer     domain.Timer
	modelInfoTimer  domain.Timer
	statisticsTimer domain.Timer
	listeners       []WatchListener
}

func NewMonitor(backend domain.ModelBackend, clock domain.Clock, journal domain.CommandJournal, metrics MetricsConsumer,
	configuration *domain.Configuration, atom *zap.AtomicLevel) *Monitor {

	monitor := &Monitor{
		backend:           backend,
		clock:             clock,
		journal:           journal,
		metrics:           metrics,
		pollInterval:      configuration.RetrainingPollInterval(),
		watchTimeout:      configuration.RetrainingWatchTimeout(),
		modelInfoRefresh:  time.Duration(configuration.ModelInfoRefreshSec) * time.Second,
		statisticsRefresh: time.Duration(configuration.StatisticsRefreshSec) * time.Second,
		historyLimit:      configuration.PredictionHistoryLimit,
		requestTimeout:    configuration.RequestTimeout(),
		baseCtx:           context.Background(),
		listeners:         make([]WatchListener, 0),
		atom:              atom,
	}

	if monitor.pollInterval <= 0 {
		monitor.pollInterval = DefaultPollInterval
	}

	if monitor.watchTimeout <= 0 {
		monitor.watchTimeout = DefaultWatchTimeout
	}

	if monitor.historyLimit <= 0 {
		monitor.historyLimit = DefaultPredictionHistoryLimit
	}

	if monitor.requestTimeout <= 0 {
		monitor.requestTimeout = DefaultRequestTimeout
	}

	zapConfig := zap.NewDevelopmentEncoderConfig()
	zapConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig), zapcore.AddSync(colorable.NewColorableStdout()), atom)
	logger := zap.New(core, zap.Development())
	if logger == nil {
		panic("failed to create logger for retraining monitor")
	}

	monitor.logger = logger
	monitor.sugaredLogger = logger.Sugar()

	return monitor
}

// Subscribe registers a listener that is invoked whenever a retraining watch ends.
func (m *Monitor) Subscribe(listener WatchListener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = append(m.listeners, listener)
}

// Snapshot returns the current view of the monitor.
func (m *Monitor) Snapshot() domain.RetrainingView {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.view
}

// InProgress returns true while a retraining watch is running.
func (m *Monitor) InProgress() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.view.InProgress
}

// Refresh reloads the model info, prediction statistics, retraining status, and prediction history.
// Views whose fetch failed keep their previous value.
func (m *Monitor) Refresh(ctx context.Context) error {
	errs := make([]error, 0, 4)

	if info, err := m.backend.GetModelInfo(ctx); err != nil {
		errs = append(errs, err)
	} else {
		m.update(func(view *domain.RetrainingView) { view.ModelInfo = info })
	}

	if err := m.refreshDependents(ctx); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		m.logger.Warn("Failed to refresh retraining view.", zap.Error(errors.Join(errs...)))
	}

	return errors.Join(errs...)
}

// refreshDependents reloads every view that depends on the deployed model, other than the model info itself.
func (m *Monitor) refreshDependents(ctx context.Context) error {
	errs := make([]error, 0, 3)

	if job, err := m.backend.GetRetrainingStatus(ctx); err != nil {
		errs = append(errs, err)
	} else {
		m.update(func(view *domain.RetrainingView) { view.Job = job })
	}

	if stats, err := m.backend.GetStatistics(ctx); err != nil {
		errs = append(errs, err)
	} else {
		m.update(func(view *domain.RetrainingView) { view.Statistics = stats })
	}

	if history, err := m.backend.GetPredictionHistory(ctx, m.historyLimit); err != nil {
		errs = append(errs, err)
	} else {
		m.update(func(view *domain.RetrainingView) { view.History = history })
	}

	return errors.Join(errs...)
}

func (m *Monitor) update(f func(view *domain.RetrainingView)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f(&m.view)
}

// Start starts a retraining and watches for its completion.
//
// Start fails with a ValidationError, without contacting the backend, if not enough metrics have accumulated
// or a watch is already in progress. If the backend rejects the request, the watch is abandoned and the
// backend's error is returned.
func (m *Monitor) Start(ctx context.Context, force bool) error {
	m.mu.Lock()
	if m.view.InProgress {
		m.mu.Unlock()
		return domain.NewValidationError(domain.ErrRetrainingInProgress, "")
	}

	if !m.view.Job.CanRetrain() {
		m.mu.Unlock()
		return domain.NewValidationError(domain.ErrCannotRetrain, m.eligibilityLocked())
	}

	m.snapshotDate = m.trainingDateLocked()
	m.view.InProgress = true
	m.view.LastOutcome = ""
	startGeneration := m.watchGeneration
	m.mu.Unlock()

	issuedAt := m.clock.Now()
	resp, err := m.backend.StartRetraining(ctx, &domain.StartRetrainingRequest{Force: force})
	m.record(issuedAt, err)

	if err != nil {
		m.logger.Warn("Failed to start retraining.", zap.Error(err))
		m.update(func(view *domain.RetrainingView) { view.InProgress = false })
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// The monitor was stopped while the request was in flight.
	if m.watchGeneration != startGeneration || !m.view.InProgress {
		m.logger.Warn("Retraining started after the monitor was stopped. Not watching for a new model.",
			zap.String("status", resp.Status))
		return nil
	}

	m.watchGeneration += 1
	generation := m.watchGeneration
	m.watchStartedAt = m.clock.Now()

	m.pollTimer = m.clock.Every(m.pollInterval, func() {
		m.poll(generation)
	})

	m.safetyTimer = m.clock.AfterFunc(m.watchTimeout, func() {
		m.expire(generation)
	})

	m.logger.Info(domain.LightPurpleStyle.Render("Started retraining. Watching for a new model."),
		zap.String("snapshot_date", m.snapshotDate),
		zap.String("status", resp.Status),
		zap.String("estimated_time", resp.EstimatedTime),
		zap.Duration("poll_interval", m.pollInterval),
		zap.Duration("watch_timeout", m.watchTimeout))

	return nil
}

func (m *Monitor) poll(generation uint64) {
	ctx, cancel, active := m.watchContext(generation)
	if !active {
		return
	}
	defer cancel()

	info, err := m.backend.GetModelInfo(ctx)
	if err != nil {
		m.logger.Warn("Failed to poll model info. Will try again.", zap.Error(err))
		return
	}

	m.mu.Lock()
	if generation != m.watchGeneration || !m.view.InProgress {
		m.mu.Unlock()
		return
	}

	m.view.ModelInfo = info
	if info.Training.Date == m.snapshotDate {
		m.mu.Unlock()
		m.logger.Debug("Model training date unchanged.", zap.String("date", info.Training.Date), zap.Int64("goroutine", goid.Get()))
		return
	}

	m.logger.Info(domain.GreenStyle.Render("Retraining completed."),
		zap.String("previous_date", m.snapshotDate),
		zap.String("new_date", info.Training.Date))

	m.finishLocked(domain.WatchCompleted)
	m.mu.Unlock()

	if err = m.refreshDependents(ctx); err != nil {
		m.logger.Warn("Failed to refresh views after retraining completed.", zap.Error(err))
	}

	m.notify(domain.WatchCompleted)
}

func (m *Monitor) expire(generation uint64) {
	m.mu.Lock()
	if generation != m.watchGeneration || !m.view.InProgress {
		m.mu.Unlock()
		return
	}

	m.logger.Warn(domain.OrangeStyle.Render("Retraining watch timed out. Model training date never changed."),
		zap.String("snapshot_date", m.snapshotDate),
		zap.Duration("watch_timeout", m.watchTimeout))

	m.finishLocked(domain.WatchTimedOut)
	m.mu.Unlock()

	m.notify(domain.WatchTimedOut)
}

func (m *Monitor) finishLocked(outcome domain.WatchOutcome) {
	if m.pollTimer != nil {
		m.pollTimer.Stop()
		m.pollTimer = nil
	}

	if m.safetyTimer != nil {
		m.safetyTimer.Stop()
		m.safetyTimer = nil
	}

	m.view.InProgress = false
	m.view.LastOutcome = outcome

	if m.metrics != nil {
		m.metrics.ObserveRetrainingWatch(string(outcome), m.clock.Now().Sub(m.watchStartedAt))
	}
}

func (m *Monitor) notify(outcome domain.WatchOutcome) {
	m.mu.Lock()
	view := m.view
	listeners := make([]WatchListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, listener := range listeners {
		listener(outcome, view)
	}
}

// watchContext returns the context of a fetch issued on behalf of the given watch, and whether that watch is
// still the active one.
func (m *Monitor) watchContext(generation uint64) (context.Context, context.CancelFunc, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if generation != m.watchGeneration || !m.view.InProgress {
		return nil, nil, false
	}

	ctx, cancel := context.WithTimeout(m.baseCtx, m.requestTimeout)
	return ctx, cancel, true
}

func (m *Monitor) trainingDateLocked() string {
	if m.view.ModelInfo != nil && m.view.ModelInfo.Training.Date != "" {
		return m.view.ModelInfo.Training.Date
	}

	if m.view.Job != nil {
		return m.view.Job.LastTraining
	}

	return ""
}

func (m *Monitor) eligibilityLocked() string {
	if m.view.Job == nil {
		return "retraining status has not been loaded"
	}

	return "available metrics below minimum required"
}

// StartAutoRefresh periodically refreshes the model info and the prediction statistics.
// Timer-driven fetches use ctx, which is cancelled by Stop.
func (m *Monitor) StartAutoRefresh(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.logger.Warn("Retraining monitor auto-refresh is already running.")
		return
	}

	m.baseCtx, m.cancel = context.WithCancel(ctx)

	if m.modelInfoRefresh > 0 {
		m.modelInfoTimer = m.clock.Every(m.modelInfoRefresh, m.refreshModelInfo)
	}

	if m.statisticsRefresh > 0 {
		m.statisticsTimer = m.clock.Every(m.statisticsRefresh, m.refreshStatistics)
	}
}

// Stop cancels the periodic refreshes and abandons any retraining watch in progress.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, timer := range []domain.Timer{m.modelInfoTimer, m.statisticsTimer, m.pollTimer, m.safetyTimer} {
		if timer != nil {
			timer.Stop()
		}
	}

	m.modelInfoTimer, m.statisticsTimer, m.pollTimer, m.safetyTimer = nil, nil, nil, nil
	m.view.InProgress = false
	m.watchGeneration += 1

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Monitor) refreshModelInfo() {
	ctx, cancel := m.timerContext()
	defer cancel()

	info, err := m.backend.GetModelInfo(ctx)
	if err != nil {
		m.logger.Warn("Periodic model info refresh failed.", zap.Error(err))
		return
	}

	m.update(func(view *domain.RetrainingView) { view.ModelInfo = info })
}

func (m *Monitor) refreshStatistics() {
	ctx, cancel := m.timerContext()
	defer cancel()

	stats, err := m.backend.GetStatistics(ctx)
	if err != nil {
		m.logger.Warn("Periodic statistics refresh failed.", zap.Error(err))
		return
	}

	m.update(func(view *domain.RetrainingView) { view.Statistics = stats })
}

func (m *Monitor) timerContext() (context.Context, context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return context.WithTimeout(m.baseCtx, m.requestTimeout)
}

func (m *Monitor) record(issuedAt time.Time, err error) {
	if m.journal == nil {
		return
	}

	entry := &domain.JournalEntry{
		Command:   domain.CommandRetrain,
		Succeeded: err == nil,
		IssuedAt:  issuedAt,
		Latency:   m.clock.Now().Sub(issuedAt),
	}

	if err != nil {
		entry.Error = err.Error()
	}

	m.journal.Record(entry)
}
