package domain

import "time"

// Clock schedules callbacks. Every timer in the console engine is created through a Clock so that
// tests can drive time deterministically.
type Clock interface {
	// Now returns the current clock time.
	Now() time.Time

	// AfterFunc invokes f once, after d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer

	// Every invokes f each time period elapses, until the returned Timer is stopped.
	Every(period time.Duration, f func()) Timer
}

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Id returns the unique identifier of the timer.
	Id() string

	// Stop cancels the timer. It returns false if the timer had already fired (one-shot) or been stopped.
	Stop() bool
}

type SimulationClock interface {
	Clock

	// GetClockTime returns the current clock time.
	GetClockTime() time.Time

	// IncreaseClockTimeTo sets the clock to the given timestamp, verifying that the new timestamp is either
	// equal to or occurs after the old one, and fires every timer that became due in between.
	// Return a tuple where the first element is the new time, and the second element is the difference
	// between the new time and the old time.
	IncreaseClockTimeTo(t time.Time) (time.Time, time.Duration, error)

	// IncrementClockBy increments the clock by the given amount, firing every timer that became due.
	// Return the updated value.
	IncrementClockBy(amount time.Duration) (time.Time, error)
}
