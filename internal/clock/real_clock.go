package clock

import (
	"sync"
	"time"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
	"github.com/google/uuid"
)

// RealClock schedules callbacks against wall-clock time.
type RealClock struct{}

func NewRealClock() *RealClock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

func (c *RealClock) AfterFunc(d time.Duration, f func()) domain.Timer {
	return &oneShotTimer{
		id:    uuid.NewString(),
		timer: time.AfterFunc(d, f),
	}
}

// Every runs f on its own goroutine each time period elapses. Invocations never overlap; a tick that arrives
// while f is still running is dropped.
func (c *RealClock) Every(period time.Duration, f func()) domain.Timer {
	t := &periodicTimer{
		id:     uuid.NewString(),
		ticker: time.NewTicker(period),
		done:   make(chan struct{}),
	}

	go t.run(f)

	return t
}

type oneShotTimer struct {
	id    string
	timer *time.Timer
}

func (t *oneShotTimer) Id() string {
	return t.id
}

func (t *oneShotTimer) Stop() bool {
	return t.timer.Stop()
}

type periodicTimer struct {
	id       string
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

func (t *periodicTimer) Id() string {
	return t.id
}

func (t *periodicTimer) run(f func()) {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			f()
		}
	}
}

func (t *periodicTimer) Stop() bool {
	stopped := false
	t.stopOnce.Do(func() {
		t.ticker.Stop()
		close(t.done)
		stopped = true
	})

	return stopped
}
