package reconcile_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fatigue-platform/operator-console/m/v2/internal/reconcile"
)

var _ = Describe("ExponentialBackoff", func() {
	It("will double the delay on each attempt up to the maximum", func() {
		backoff := reconcile.NewExponentialBackoff(250*time.Millisecond, time.Second, 4)

		Expect(backoff.Exhausted()).To(BeFalse())
		Expect(backoff.Next()).To(Equal(250 * time.Millisecond))
		Expect(backoff.Next()).To(Equal(500 * time.Millisecond))
		Expect(backoff.Next()).To(Equal(time.Second))
		Expect(backoff.Next()).To(Equal(time.Second))
		Expect(backoff.Exhausted()).To(BeTrue())
		Expect(backoff.NumAttempts).To(Equal(4))
	})

	It("will add at most the configured jitter", func() {
		backoff := reconcile.NewExponentialBackoff(100*time.Millisecond, time.Second, 10)
		backoff.Jitter = 50

		delay := backoff.Next()
		Expect(delay).To(BeNumerically(">=", 100*time.Millisecond))
		Expect(delay).To(BeNumerically("<", 150*time.Millisecond))
	})
})
