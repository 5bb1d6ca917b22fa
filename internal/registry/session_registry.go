package registry

import (
	"bytes"
	"sync"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/goccy/go-json"
	"github.com/mattn/go-colorable"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
	"github.com/fatigue-platform/operator-console/m/v2/pkg/statistics"
)

const (
	DefaultTrendWindow int64 = 12
)

// Ticket orders the snapshots and local removals applied to a SessionRegistry.
//
// A ticket is taken with SessionRegistry.Begin before the request whose result will be applied is issued.
// A snapshot whose ticket is older than the ticket of the last applied snapshot is discarded, and a snapshot
// whose ticket is older than the removal of a session cannot bring that session back.
type Ticket uint64

// SessionRegistry is the console's local copy of the simulator sessions known to the backend.
//
// The registry is only ever replaced wholesale by a snapshot fetched from the backend, or shrunk by a
// confirmed local removal. All returned sessions are copies.
type SessionRegistry struct {
	logger        *zap.Logger
	sugaredLogger *zap.SugaredLogger
	atom          *zap.AtomicLevel

	mu            sync.RWMutex                                          // Synchronizes access to all fields below.
	sessions      *orderedmap.OrderedMap[int, *domain.SimulatorSession] // Sessions in the order reported by the backend.
	nextTicket    Ticket                                                // The most recently issued ticket.
	appliedTicket Ticket                                                // Ticket of the most recently applied snapshot.
	tombstones    map[int]Ticket                                        // Session ID to the ticket at which it was removed locally.
	version       uint64                                                // Incremented every time the contents of the registry change.
	trendWindow   int64                                                 // Number of fatigue readings kept per session.
	trends        map[int]*statistics.MovingWindow                      // Session ID to the moving window of its reconciled fatigue readings.
	created       map[int]*domain.SimulatorSession                      // Sessions created through this console that no applied snapshot has reported yet.
}

// NewSessionRegistry creates an empty SessionRegistry. trendWindow is the number of reconciled fatigue readings
// used to compute the trend of each session; values smaller than 2 fall back to DefaultTrendWindow.
func NewSessionRegistry(trendWindow int64, atom *zap.AtomicLevel) *SessionRegistry {
	if trendWindow < 2 {
		trendWindow = DefaultTrendWindow
	}

	registry := &SessionRegistry{
		atom:        atom,
		sessions:    orderedmap.NewOrderedMap[int, *domain.SimulatorSession](),
		tombstones:  make(map[int]Ticket),
		trendWindow: trendWindow,
		trends:      make(map[int]*statistics.MovingWindow),
		created:     make(map[int]*domain.SimulatorSession),
	}

	zapConfig := zap.NewDevelopmentEncoderConfig()
	zapConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig), zapcore.AddSync(colorable.NewColorableStdout()), atom)
	logger := zap.New(core, zap.Development())
	if logger == nil {
		panic("failed to create logger for session registry")
	}

	registry.logger = logger
	registry.sugaredLogger = logger.Sugar()

	return registry
}

// Begin issues a new Ticket. Callers take a ticket immediately before fetching a snapshot from the backend.
func (r *SessionRegistry) Begin() Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextTicket += 1
	return r.nextTicket
}

// ReplaceAll replaces the entire contents of the registry with the given snapshot.
//
// ReplaceAll returns false, leaving the registry untouched, if a snapshot taken with a newer ticket has already
// been applied. Sessions that were removed locally after the ticket was issued are left out of the snapshot.
// Applying the same snapshot twice is equivalent to applying it once.
func (r *SessionRegistry) ReplaceAll(ticket Ticket, snapshot []*domain.SimulatorSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ticket < r.appliedTicket {
		r.logger.Debug("Discarding stale session snapshot.",
			zap.Uint64("ticket", uint64(ticket)),
			zap.Uint64("applied_ticket", uint64(r.appliedTicket)),
			zap.Int("num_sessions", len(snapshot)))
		return false
	}

	r.appliedTicket = ticket

	sessions := orderedmap.NewOrderedMap[int, *domain.SimulatorSession]()
	for _, session := range snapshot {
		if session == nil {
			continue
		}

		if removedAt, removed := r.tombstones[session.Id]; removed && removedAt > ticket {
			r.logger.Debug("Snapshot predates local removal of session. Leaving it out.",
				zap.Int("session_id", session.Id),
				zap.Uint64("ticket", uint64(ticket)),
				zap.Uint64("removed_at", uint64(removedAt)))
			continue
		}

		sessions.Set(session.Id, session.Clone())
	}

	for id := range r.created {
		if _, reported := sessions.Get(id); reported {
			delete(r.created, id)
		}
	}

	// Tombstones older than this snapshot are no longer needed: the backend's answer is authoritative from here on.
	for id, removedAt := range r.tombstones {
		if removedAt <= ticket {
			delete(r.tombstones, id)
		}
	}

	changed := !r.equalLocked(sessions)
	r.sessions = sessions
	r.recordTrendsLocked(changed)

	if changed {
		r.version += 1
		r.logger.Debug("Applied session snapshot.",
			zap.Uint64("ticket", uint64(ticket)),
			zap.Uint64("version", r.version),
			zap.Int("num_sessions", sessions.Len()))
	}

	return true
}

// Remove deletes the session with the given ID from the registry. Snapshots whose tickets were issued before
// the removal will not restore the session. Remove returns false if no such session was held.
func (r *SessionRegistry) Remove(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextTicket += 1
	r.tombstones[id] = r.nextTicket
	delete(r.trends, id)
	delete(r.created, id)

	if !r.sessions.Delete(id) {
		return false
	}

	r.version += 1
	r.logger.Debug("Removed session from registry.", zap.Int("session_id", id), zap.Uint64("version", r.version))
	return true
}

// RecordCreated remembers a session that the backend confirmed creating but that has not yet appeared in an
// applied snapshot. Until a snapshot reports it, or it is removed, FindByEmployee still reports the session as
// bound to its employee. The session is not returned by All or Get.
func (r *SessionRegistry) RecordCreated(session *domain.SimulatorSession) {
	if session == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, loaded := r.sessions.Get(session.Id); loaded {
		return
	}

	r.created[session.Id] = session.Clone()
	r.logger.Debug("Recorded newly-created session.",
		zap.Int("session_id", session.Id),
		zap.Int("employee_id", session.EmployeeId))
}

// All returns copies of every session, in the order in which the backend reported them.
func (r *SessionRegistry) All() []*domain.SimulatorSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*domain.SimulatorSession, 0, r.sessions.Len())
	for el := r.sessions.Front(); el != nil; el = el.Next() {
		sessions = append(sessions, el.Value.Clone())
	}

	return sessions
}

// Get returns a copy of the session with the given ID.
func (r *SessionRegistry) Get(id int) (*domain.SimulatorSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, loaded := r.sessions.Get(id)
	if !loaded {
		return nil, false
	}

	return session.Clone(), true
}

// FindByEmployee returns a copy of a session bound to the given employee, if there is one. Sessions passed to
// RecordCreated that no snapshot has reported yet are included.
func (r *SessionRegistry) FindByEmployee(employeeId int) (*domain.SimulatorSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for el := r.sessions.Front(); el != nil; el = el.Next() {
		if el.Value.EmployeeId == employeeId {
			return el.Value.Clone(), true
		}
	}

	for _, session := range r.created {
		if session.EmployeeId == employeeId {
			return session.Clone(), true
		}
	}

	return nil, false
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sessions.Len()
}

// Version is incremented every time the contents of the registry change.
func (r *SessionRegistry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.version
}

// Counts computes the summary counters of the sessions currently held.
func (r *SessionRegistry) Counts() domain.SessionCounts {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := domain.SessionCounts{Total: r.sessions.Len()}
	for el := r.sessions.Front(); el != nil; el = el.Next() {
		session := el.Value

		switch session.Status {
		case domain.SessionRunning:
			counts.Running += 1
		case domain.SessionStopped:
			counts.Stopped += 1
		default:
			counts.Errors += 1
		}

		counts.MessagesSent += session.Stats().MessagesSent
	}

	return counts
}

// Trends returns, for every session with at least two reconciled readings, the average change in fatigue
// per reconciliation across the trend window.
func (r *SessionRegistry) Trends() map[int]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trends := make(map[int]float64, len(r.trends))
	for id, window := range r.trends {
		if window.N() < 2 {
			continue
		}

		trends[id] = window.Slope().InexactFloat64()
	}

	return trends
}

// Trend classifies the fatigue trend of a single session.
func (r *SessionRegistry) Trend(id int, tolerance float64) (statistics.Trend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	window, loaded := r.trends[id]
	if !loaded {
		return statistics.TrendSteady, false
	}

	return window.Trend(decimal.NewFromFloat(tolerance)), true
}

// recordTrendsLocked appends the current fatigue of every running session to its moving window and drops the
// windows of sessions that are no longer held. Readings are only appended when the snapshot changed something.
func (r *SessionRegistry) recordTrendsLocked(changed bool) {
	for id := range r.trends {
		if _, loaded := r.sessions.Get(id); !loaded {
			delete(r.trends, id)
		}
	}

	if !changed {
		return
	}

	for el := r.sessions.Front(); el != nil; el = el.Next() {
		session := el.Value
		if session.Status != domain.SessionRunning {
			continue
		}

		window, loaded := r.trends[session.Id]
		if !loaded {
			window = statistics.NewMovingWindow(r.trendWindow)
			r.trends[session.Id] = window
		}

		window.AddFloat(session.Stats().CurrentFatigue)
	}
}

func (r *SessionRegistry) equalLocked(other *orderedmap.OrderedMap[int, *domain.SimulatorSession]) bool {
	if r.sessions.Len() != other.Len() {
		return false
	}

	current, next := r.sessions.Front(), other.Front()
	for current != nil && next != nil {
		if current.Key != next.Key || !sameSession(current.Value, next.Value) {
			return false
		}

		current, next = current.Next(), next.Next()
	}

	return true
}

// sameSession compares every field the backend reports for a session, including the live statistics.
func sameSession(a *domain.SimulatorSession, b *domain.SimulatorSession) bool {
	if a.Id != b.Id {
		return false
	}

	encodedA, err := json.Marshal(a)
	if err != nil {
		return false
	}

	encodedB, err := json.Marshal(b)
	if err != nil {
		return false
	}

	return bytes.Equal(encodedA, encodedB)
}
