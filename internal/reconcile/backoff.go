package reconcile

import (
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoff computes the delays between consecutive reconciliations performed while waiting for
// the backend to settle.
type ExponentialBackoff struct {
	// BaseDuration is the initial duration / sleep interval.
	BaseDuration time.Duration

	// BaseDuration is multiplied by Multiplier each subsequent iteration.
	//
	// Factor should not be negative.
	Multiplier float64

	// Jitter defines the upper bound of a random additive quantity that is added to the duration.
	// The quantity chosen uniformly at random from 0 - Jitter, in milliseconds.
	Jitter float64

	// NumAttempts is the current number of attempts.
	NumAttempts int

	// MaxAttempts is the number of attempts after which the backoff is exhausted.
	MaxAttempts int

	// MaxDuration is the maximum duration.
	MaxDuration time.Duration
}

func NewExponentialBackoff(base time.Duration, maxDuration time.Duration, maxAttempts int) *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDuration: base,
		Multiplier:   2,
		Jitter:       0,
		MaxAttempts:  maxAttempts,
		MaxDuration:  maxDuration,
	}
}

func (e *ExponentialBackoff) ComputeJitter(units time.Duration) time.Duration {
	jitter := rand.Float64() * e.Jitter
	return time.Duration(jitter) * units
}

// Exhausted returns true once NumAttempts has reached MaxAttempts.
func (e *ExponentialBackoff) Exhausted() bool {
	return e.NumAttempts >= e.MaxAttempts
}

// Next returns the delay that precedes the next attempt and records the attempt.
func (e *ExponentialBackoff) Next() time.Duration {
	multiplier := e.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	delay := time.Duration(float64(e.BaseDuration)*math.Pow(multiplier, float64(e.NumAttempts))) + e.ComputeJitter(time.Millisecond)
	if e.MaxDuration > 0 && (delay > e.MaxDuration || delay < 0) {
		delay = e.MaxDuration
	}

	e.NumAttempts += 1
	return delay
}
