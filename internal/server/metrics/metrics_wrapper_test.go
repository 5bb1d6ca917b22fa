package metrics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
	"github.com/fatigue-platform/operator-console/m/v2/internal/lifecycle"
	"github.com/fatigue-platform/operator-console/m/v2/internal/reconcile"
	"github.com/fatigue-platform/operator-console/m/v2/internal/retraining"
	"github.com/fatigue-platform/operator-console/m/v2/internal/server/metrics"
	"github.com/fatigue-platform/operator-console/m/v2/pkg/backend"
)

type staticCounts domain.SessionCounts

func (c staticCounts) Counts() domain.SessionCounts {
	return domain.SessionCounts(c)
}

var _ = Describe("PrometheusMetricsWrapper", func() {
	var (
		registry       *prometheus.Registry
		metricsWrapper *metrics.PrometheusMetricsWrapper
	)

	atom := zap.NewAtomicLevelAt(zapcore.DebugLevel)

	BeforeEach(func() {
		var errs []error
		registry = prometheus.NewRegistry()
		metricsWrapper, errs = metrics.NewPrometheusMetricsWrapper(registry, &atom)
		Expect(errs).To(BeNil())
	})

	It("will serve as the metrics consumer of every component", func() {
		var _ backend.MetricsConsumer = metricsWrapper
		var _ reconcile.MetricsConsumer = metricsWrapper
		var _ lifecycle.MetricsConsumer = metricsWrapper
		var _ retraining.MetricsConsumer = metricsWrapper
	})

	It("will report a registration error when registered twice", func() {
		_, errs := metrics.NewPrometheusMetricsWrapper(registry, &atom)
		Expect(errs).To(HaveLen(6))
	})

	It("will count operator commands by outcome", func() {
		metricsWrapper.ObserveCommand("stop", true, 20*time.Millisecond)
		metricsWrapper.ObserveCommand("stop", true, 30*time.Millisecond)
		metricsWrapper.ObserveCommand("stop", false, 10*time.Millisecond)

		Expect(testutil.ToFloat64(metricsWrapper.OperatorCommandsTotal.WithLabelValues("stop", "success"))).To(Equal(2.0))
		Expect(testutil.ToFloat64(metricsWrapper.OperatorCommandsTotal.WithLabelValues("stop", "failure"))).To(Equal(1.0))
	})

	It("will distinguish discarded reconciliations", func() {
		metricsWrapper.ObserveReconciliation("settle", true, false)
		metricsWrapper.ObserveReconciliation("settle", true, true)
		metricsWrapper.ObserveReconciliation("auto_refresh", false, false)

		Expect(testutil.ToFloat64(metricsWrapper.ReconciliationsTotal.WithLabelValues("settle", "success"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(metricsWrapper.ReconciliationsTotal.WithLabelValues("settle", "discarded"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(metricsWrapper.ReconciliationsTotal.WithLabelValues("auto_refresh", "failure"))).To(Equal(1.0))
	})

	It("will count retraining watches by outcome", func() {
		metricsWrapper.ObserveRetrainingWatch(string(domain.WatchTimedOut), 5*time.Minute)

		Expect(testutil.ToFloat64(metricsWrapper.RetrainingWatchesTotal.WithLabelValues(string(domain.WatchTimedOut)))).To(Equal(1.0))
	})

	It("will record backend request latencies", func() {
		metricsWrapper.ObserveBackendRequestLatency("list-sessions", 200, 15*time.Millisecond)
		metricsWrapper.ObserveBackendRequestLatency("list-sessions", 0, time.Second)

		Expect(testutil.CollectAndCount(metricsWrapper.BackendRequestLatency)).To(Equal(2))
	})

	It("will report the session counters through gauges", func() {
		errs := metricsWrapper.RegisterSessionGauges(staticCounts{Total: 6, Running: 4, Stopped: 1, Errors: 1, MessagesSent: 420})
		Expect(errs).To(BeNil())

		families, err := registry.Gather()
		Expect(err).To(BeNil())

		values := make(map[string]float64)
		for _, family := range families {
			if family.GetMetric()[0].GetGauge() != nil {
				values[family.GetName()] = family.GetMetric()[0].GetGauge().GetValue()
			}
		}

		Expect(values).To(HaveKeyWithValue("fatigue_platform_operator_console_sessions_running", 4.0))
		Expect(values).To(HaveKeyWithValue("fatigue_platform_operator_console_sessions_error", 1.0))
		Expect(values).To(HaveKeyWithValue("fatigue_platform_operator_console_messages_sent", 420.0))
	})
})
