package metrics

import (
	"strconv"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
)

const (
	Namespace = "fatigue_platform"
	Subsystem = "operator_console"
)

// CountsProvider exposes the summary counters of the session registry.
type CountsProvider interface {
	Counts() domain.SessionCounts
}

// PrometheusMetricsWrapper is a simple wrapper around several Prometheus metrics.
//
// PrometheusMetricsWrapper implements the metrics consumer interfaces of the backend client, the reconciliation
// scheduler, the lifecycle controller, and the retraining monitor.
type PrometheusMetricsWrapper struct {
	logger *zap.Logger

	registerer prometheus.Registerer

	// BackendRequestLatency is the latency, in seconds, of requests issued to the platform backend.
	// A status code of "0" means that no response was received.
	BackendRequestLatency *prometheus.HistogramVec

	// OperatorCommandsTotal counts the operator commands issued through the console by command and outcome.
	OperatorCommandsTotal *prometheus.CounterVec
	// OperatorCommandLatency is the latency, in seconds, of operator commands, excluding the follow-up reconciliations.
	OperatorCommandLatency *prometheus.HistogramVec

	// ReconciliationsTotal counts registry reconciliations by trigger and outcome.
	// An outcome of "discarded" means that a newer snapshot had already been applied.
	ReconciliationsTotal *prometheus.CounterVec

	// RetrainingWatchesTotal counts completed and abandoned retraining watches.
	RetrainingWatchesTotal *prometheus.CounterVec
	// RetrainingWatchDuration is the time, in seconds, between starting a retraining and the end of its watch.
	RetrainingWatchDuration *prometheus.HistogramVec
}

// NewPrometheusMetricsWrapper creates a new PrometheusMetricsWrapper struct and returns a pointer to it.
// NewPrometheusMetricsWrapper registers all the metrics encapsulated by the PrometheusMetricsWrapper struct
// with the given prometheus.Registerer after creating the struct.
func NewPrometheusMetricsWrapper(registerer prometheus.Registerer, atom *zap.AtomicLevel) (*PrometheusMetricsWrapper, []error) {
	metricsWrapper := &PrometheusMetricsWrapper{
		registerer: registerer,

		// Histogram metrics.
		BackendRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "backend_request_latency_seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation", "status_code"}),
		OperatorCommandLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "operator_command_latency_seconds",
		}, []string{"command"}),
		RetrainingWatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "retraining_watch_duration_seconds",
			Buckets:   []float64{10, 30, 60, 120, 180, 240, 300, 600},
		}, []string{"outcome"}),

		// Counter metrics.
		OperatorCommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "operator_commands_total",
		}, []string{"command", "outcome"}),
		ReconciliationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "reconciliations_total",
		}, []string{"trigger", "outcome"}),
		RetrainingWatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "retraining_watches_total",
		}, []string{"outcome"}),
	}

	zapConfig := zap.NewDevelopmentEncoderConfig()
	zapConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig), zapcore.AddSync(colorable.NewColorableStdout()), atom)
	logger := zap.New(core, zap.Development())
	if logger == nil {
		panic("failed to create logger for prometheus metrics wrapper")
	}

	metricsWrapper.logger = logger

	collectors := map[string]prometheus.Collector{
		"BackendRequestLatency":   metricsWrapper.BackendRequestLatency,
		"OperatorCommandsTotal":   metricsWrapper.OperatorCommandsTotal,
		"OperatorCommandLatency":  metricsWrapper.OperatorCommandLatency,
		"ReconciliationsTotal":    metricsWrapper.ReconciliationsTotal,
		"RetrainingWatchesTotal":  metricsWrapper.RetrainingWatchesTotal,
		"RetrainingWatchDuration": metricsWrapper.RetrainingWatchDuration,
	}

	errs := make([]error, 0)
	for name, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			metricsWrapper.logger.Error("Failed to register Prometheus metric.", zap.String("metric", name), zap.Error(err))
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return metricsWrapper, errs
	}

	return metricsWrapper, nil
}

// RegisterSessionGauges registers gauges that report the summary counters of the session registry whenever
// Prometheus scrapes the console.
func (m *PrometheusMetricsWrapper) RegisterSessionGauges(provider CountsProvider) []error {
	gauges := map[string]func(counts domain.SessionCounts) int{
		"sessions_total":   func(counts domain.SessionCounts) int { return counts.Total },
		"sessions_running": func(counts domain.SessionCounts) int { return counts.Running },
		"sessions_stopped": func(counts domain.SessionCounts) int { return counts.Stopped },
		"sessions_error":   func(counts domain.SessionCounts) int { return counts.Errors },
		"messages_sent":    func(counts domain.SessionCounts) int { return counts.MessagesSent },
	}

	errs := make([]error, 0)
	for name, value := range gauges {
		value := value
		gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      name,
		}, func() float64 {
			return float64(value(provider.Counts()))
		})

		if err := m.registerer.Register(gauge); err != nil {
			m.logger.Error("Failed to register Prometheus metric.", zap.String("metric", name), zap.Error(err))
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func (m *PrometheusMetricsWrapper) ObserveBackendRequestLatency(operation string, statusCode int, latency time.Duration) {
	m.BackendRequestLatency.
		With(prometheus.Labels{"operation": operation, "status_code": strconv.Itoa(statusCode)}).
		Observe(latency.Seconds())
}

func (m *PrometheusMetricsWrapper) ObserveCommand(command string, succeeded bool, latency time.Duration) {
	m.OperatorCommandsTotal.With(prometheus.Labels{"command": command, "outcome": outcome(succeeded)}).Inc()
	m.OperatorCommandLatency.With(prometheus.Labels{"command": command}).Observe(latency.Seconds())
}

func (m *PrometheusMetricsWrapper) ObserveReconciliation(trigger string, succeeded bool, discarded bool) {
	result := outcome(succeeded)
	if succeeded && discarded {
		result = "discarded"
	}

	m.ReconciliationsTotal.With(prometheus.Labels{"trigger": trigger, "outcome": result}).Inc()
}

func (m *PrometheusMetricsWrapper) ObserveRetrainingWatch(outcome string, duration time.Duration) {
	m.RetrainingWatchesTotal.With(prometheus.Labels{"outcome": outcome}).Inc()
	m.RetrainingWatchDuration.With(prometheus.Labels{"outcome": outcome}).Observe(duration.Seconds())
}

func outcome(succeeded bool) string {
	if succeeded {
		return "success"
	}

	return "failure"
}
