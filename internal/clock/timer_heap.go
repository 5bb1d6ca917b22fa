package clock

import (
	"sync/atomic"
	"time"
)

// simTimer is a callback registered with a SimulationClock.
type simTimer struct {
	id       string
	deadline time.Time
	period   time.Duration // Zero for one-shot timers.
	seq      uint64        // Breaks ties between timers with equal deadlines; lower fires first.
	callback func()
	stopped  atomic.Bool
	fired    atomic.Bool
	index    int
	clock    *SimulationClock
}

func (t *simTimer) Id() string {
	return t.id
}

// Stop cancels the timer. The timer is removed from the heap lazily, when it reaches the top.
func (t *simTimer) Stop() bool {
	if t.period == 0 && t.fired.Load() {
		return false
	}

	if !t.stopped.CompareAndSwap(false, true) {
		return false
	}

	t.clock.timers.Del(t.id)
	return true
}

type timerHeap []*simTimer

func (h timerHeap) Len() int {
	return len(h)
}

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}

	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i].index = j
	h[j].index = i
	h[i], h[j] = h[j], h[i]
}

func (h *timerHeap) Push(x interface{}) {
	x.(*simTimer).index = len(*h)
	*h = append(*h, x.(*simTimer))
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	ret := old[n-1]
	old[n-1] = nil // avoid memory leak
	ret.index = -1
	*h = old[0 : n-1]
	return ret
}

func (h timerHeap) Peek() *simTimer {
	if len(h) == 0 {
		return nil
	}

	return h[0]
}
