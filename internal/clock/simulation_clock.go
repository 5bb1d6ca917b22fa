package clock

import (
	"container/heap"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
	"github.com/google/uuid"
	"github.com/zhangjyr/hashmap"
)

var (
	ErrClockMovedBackwards = errors.New("attempted to move the simulation clock backwards")
	ErrInvalidPeriod       = errors.New("timer period must be positive")
)

// SimulationClock is a virtual clock. Timers registered with it fire only when the clock is advanced with
// IncrementClockBy or IncreaseClockTimeTo, synchronously, in deadline order, on the goroutine that advanced
// the clock.
type SimulationClock struct {
	clockTime  time.Time
	clockMutex sync.RWMutex

	queue   timerHeap
	timers  *hashmap.HashMap // Live timers, keyed by timer ID.
	nextSeq uint64

	// Serializes advancement so that callbacks from two concurrent advances never interleave.
	advanceMutex sync.Mutex
}

func NewSimulationClock() *SimulationClock {
	return NewSimulationClockAt(time.Unix(0, 0))
}

func NewSimulationClockAt(t time.Time) *SimulationClock {
	return &SimulationClock{
		clockTime: t,
		queue:     make(timerHeap, 0, 8),
		timers:    hashmap.New(8),
	}
}

func (sc *SimulationClock) Now() time.Time {
	return sc.GetClockTime()
}

// GetClockTime returns the current clock time.
func (sc *SimulationClock) GetClockTime() time.Time {
	sc.clockMutex.RLock()
	defer sc.clockMutex.RUnlock()

	return sc.clockTime
}

func (sc *SimulationClock) AfterFunc(d time.Duration, f func()) domain.Timer {
	return sc.schedule(d, 0, f)
}

func (sc *SimulationClock) Every(period time.Duration, f func()) domain.Timer {
	if period <= 0 {
		panic(fmt.Errorf("%w: %v", ErrInvalidPeriod, period))
	}

	return sc.schedule(period, period, f)
}

// NumPendingTimers returns the number of timers that have neither fired nor been stopped.
func (sc *SimulationClock) NumPendingTimers() int {
	return sc.timers.Len()
}

func (sc *SimulationClock) schedule(d time.Duration, period time.Duration, f func()) *simTimer {
	if d < 0 {
		d = 0
	}

	sc.clockMutex.Lock()
	defer sc.clockMutex.Unlock()

	timer := &simTimer{
		id:       uuid.NewString(),
		deadline: sc.clockTime.Add(d),
		period:   period,
		seq:      sc.nextSeq,
		callback: f,
		clock:    sc,
	}
	sc.nextSeq += 1

	heap.Push(&sc.queue, timer)
	sc.timers.Set(timer.id, timer)

	return timer
}

// IncreaseClockTimeTo sets the clock to the given timestamp, firing every timer due at or before it.
func (sc *SimulationClock) IncreaseClockTimeTo(t time.Time) (time.Time, time.Duration, error) {
	start := sc.GetClockTime()
	if t.Before(start) {
		return start, 0, fmt.Errorf("%w: from %v to %v", ErrClockMovedBackwards, start, t)
	}

	sc.advanceTo(t)

	return t, t.Sub(start), nil
}

// IncrementClockBy increments the clock by the given amount, firing every timer that became due.
func (sc *SimulationClock) IncrementClockBy(amount time.Duration) (time.Time, error) {
	if amount < 0 {
		return sc.GetClockTime(), fmt.Errorf("%w: by %v", ErrClockMovedBackwards, amount)
	}

	target := sc.GetClockTime().Add(amount)
	sc.advanceTo(target)

	return target, nil
}

func (sc *SimulationClock) advanceTo(target time.Time) {
	sc.advanceMutex.Lock()
	defer sc.advanceMutex.Unlock()

	for {
		timer := sc.popDue(target)
		if timer == nil {
			break
		}

		// Callbacks run without holding the clock lock so they can schedule or stop timers.
		timer.callback()

		if timer.period > 0 && !timer.stopped.Load() {
			sc.rearm(timer)
		}
	}

	sc.clockMutex.Lock()
	if target.After(sc.clockTime) {
		sc.clockTime = target
	}
	sc.clockMutex.Unlock()
}

// popDue removes and returns the earliest live timer whose deadline is at or before target, moving the
// clock to that deadline. Stopped timers encountered on the way are discarded.
func (sc *SimulationClock) popDue(target time.Time) *simTimer {
	sc.clockMutex.Lock()
	defer sc.clockMutex.Unlock()

	for sc.queue.Len() > 0 {
		next := sc.queue.Peek()
		if next.deadline.After(target) {
			return nil
		}

		heap.Pop(&sc.queue)
		if next.stopped.Load() {
			continue
		}

		if next.deadline.After(sc.clockTime) {
			sc.clockTime = next.deadline
		}

		if next.period == 0 {
			next.fired.Store(true)
			sc.timers.Del(next.id)
		}

		return next
	}

	return nil
}

// rearm schedules the next period of a periodic timer. The timer keeps its sequence number, so that it
// still fires before timers registered after it when their deadlines coincide.
func (sc *SimulationClock) rearm(timer *simTimer) {
	sc.clockMutex.Lock()
	defer sc.clockMutex.Unlock()

	timer.deadline = timer.deadline.Add(timer.period)
	heap.Push(&sc.queue, timer)
}
