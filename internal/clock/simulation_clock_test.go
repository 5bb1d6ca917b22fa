package clock_test

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fatigue-platform/operator-console/m/v2/internal/clock"
)

var _ = Describe("SimulationClock", func() {
	var simClock *clock.SimulationClock

	BeforeEach(func() {
		simClock = clock.NewSimulationClock()
	})

	It("Will not fire a timer before its deadline", func() {
		fired := 0
		simClock.AfterFunc(500*time.Millisecond, func() { fired += 1 })

		_, err := simClock.IncrementClockBy(499 * time.Millisecond)
		Expect(err).To(BeNil())
		Expect(fired).To(Equal(0))

		_, err = simClock.IncrementClockBy(time.Millisecond)
		Expect(err).To(BeNil())
		Expect(fired).To(Equal(1))

		_, err = simClock.IncrementClockBy(time.Hour)
		Expect(err).To(BeNil())
		Expect(fired).To(Equal(1))
		Expect(simClock.NumPendingTimers()).To(Equal(0))
	})

	It("Will fire timers in deadline order, breaking ties by registration order", func() {
		order := make([]string, 0, 4)

		simClock.AfterFunc(2*time.Second, func() { order = append(order, "c") })
		simClock.AfterFunc(time.Second, func() { order = append(order, "a") })
		simClock.AfterFunc(time.Second, func() { order = append(order, "b") })
		simClock.AfterFunc(0, func() { order = append(order, "now") })

		_, err := simClock.IncrementClockBy(5 * time.Second)
		Expect(err).To(BeNil())
		Expect(order).To(Equal([]string{"now", "a", "b", "c"}))
	})

	It("Will keep the registration order of a periodic timer across periods", func() {
		order := make([]string, 0, 4)

		simClock.Every(10*time.Second, func() { order = append(order, fmt.Sprintf("tick@%v", simClock.Now().Unix())) })
		simClock.AfterFunc(30*time.Second, func() { order = append(order, "deadline") })

		_, err := simClock.IncrementClockBy(30 * time.Second)
		Expect(err).To(BeNil())
		Expect(order).To(Equal([]string{"tick@10", "tick@20", "tick@30", "deadline"}))
	})

	It("Will report the deadline of the firing timer as the current time", func() {
		start := simClock.Now()
		var observed time.Time

		simClock.AfterFunc(2*time.Second, func() { observed = simClock.Now() })

		_, err := simClock.IncrementClockBy(10 * time.Second)
		Expect(err).To(BeNil())
		Expect(observed).To(Equal(start.Add(2 * time.Second)))
		Expect(simClock.Now()).To(Equal(start.Add(10 * time.Second)))
	})

	It("Will fire a periodic timer once per elapsed period until stopped", func() {
		ticks := 0
		timer := simClock.Every(5*time.Second, func() { ticks += 1 })

		_, err := simClock.IncrementClockBy(16 * time.Second)
		Expect(err).To(BeNil())
		Expect(ticks).To(Equal(3))

		Expect(timer.Stop()).To(BeTrue())
		Expect(timer.Stop()).To(BeFalse())

		_, err = simClock.IncrementClockBy(time.Minute)
		Expect(err).To(BeNil())
		Expect(ticks).To(Equal(3))
	})

	It("Will allow a periodic callback to stop its own timer", func() {
		ticks := 0
		var timer interface{ Stop() bool }
		timer = simClock.Every(time.Second, func() {
			ticks += 1
			if ticks == 2 {
				timer.Stop()
			}
		})

		_, err := simClock.IncrementClockBy(10 * time.Second)
		Expect(err).To(BeNil())
		Expect(ticks).To(Equal(2))
		Expect(simClock.NumPendingTimers()).To(Equal(0))
	})

	It("Will fire timers scheduled by callbacks if they are due within the same advance", func() {
		fired := make([]time.Duration, 0, 2)
		start := simClock.Now()

		simClock.AfterFunc(time.Second, func() {
			fired = append(fired, simClock.Now().Sub(start))
			simClock.AfterFunc(time.Second, func() {
				fired = append(fired, simClock.Now().Sub(start))
			})
		})

		_, err := simClock.IncrementClockBy(3 * time.Second)
		Expect(err).To(BeNil())
		Expect(fired).To(Equal([]time.Duration{time.Second, 2 * time.Second}))
	})

	It("Will not fire a stopped one-shot timer", func() {
		fired := false
		timer := simClock.AfterFunc(time.Second, func() { fired = true })
		Expect(timer.Stop()).To(BeTrue())

		_, err := simClock.IncrementClockBy(time.Minute)
		Expect(err).To(BeNil())
		Expect(fired).To(BeFalse())
	})

	It("Will report that a fired one-shot timer cannot be stopped", func() {
		timer := simClock.AfterFunc(time.Second, func() {})

		_, err := simClock.IncrementClockBy(time.Second)
		Expect(err).To(BeNil())
		Expect(timer.Stop()).To(BeFalse())
	})

	It("Will refuse to move backwards", func() {
		_, err := simClock.IncrementClockBy(-time.Second)
		Expect(errors.Is(err, clock.ErrClockMovedBackwards)).To(BeTrue())

		_, _, err = simClock.IncreaseClockTimeTo(simClock.Now().Add(-time.Second))
		Expect(errors.Is(err, clock.ErrClockMovedBackwards)).To(BeTrue())
	})

	It("Will advance to an absolute timestamp and report the difference", func() {
		fired := false
		simClock.AfterFunc(30*time.Second, func() { fired = true })

		target := simClock.Now().Add(time.Minute)
		now, diff, err := simClock.IncreaseClockTimeTo(target)
		Expect(err).To(BeNil())
		Expect(now).To(Equal(target))
		Expect(diff).To(Equal(time.Minute))
		Expect(fired).To(BeTrue())
	})
})

var _ = Describe("RealClock", func() {
	It("Will fire a one-shot timer", func() {
		var fired atomic.Bool
		clock.NewRealClock().AfterFunc(time.Millisecond, func() { fired.Store(true) })

		Eventually(fired.Load, time.Second, 5*time.Millisecond).Should(BeTrue())
	})

	It("Will stop firing a periodic timer once stopped", func() {
		var ticks atomic.Int32
		timer := clock.NewRealClock().Every(2*time.Millisecond, func() { ticks.Add(1) })

		Eventually(ticks.Load, time.Second, time.Millisecond).Should(BeNumerically(">=", 2))
		Expect(timer.Stop()).To(BeTrue())
		Expect(timer.Stop()).To(BeFalse())

		settled := ticks.Load()
		Consistently(ticks.Load, 20*time.Millisecond, 2*time.Millisecond).Should(BeNumerically("<=", settled+1))
	})
})
