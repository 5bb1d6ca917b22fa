package push

import (
	"bytes"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
)

const (
	// OpSessionsSnapshot carries every session in full. It is the first message a frontend receives.
	OpSessionsSnapshot = "sessions_snapshot"

	// OpSessionsUpdate carries the sessions that changed since the previous message.
	OpSessionsUpdate = "sessions_update"
)

func init() {
	jsonpatch.SupportNegativeIndices = false
}

// Differ remembers the encoding of every session last pushed to one frontend, so that subsequent pushes
// only carry merge patches for the sessions that actually changed.
type Differ struct {
	previous map[int][]byte
	version  uint64
	primed   bool
}

func NewDiffer() *Differ {
	return &Differ{
		previous: make(map[int][]byte),
	}
}

// Reset forgets everything that was pushed, so that the next Diff produces a full snapshot.
func (d *Differ) Reset() {
	d.previous = make(map[int][]byte)
	d.version = 0
	d.primed = false
}

// Diff returns the message that brings the frontend from the previously pushed state to the given one,
// or nil if the registry has not changed since then.
func (d *Differ) Diff(version uint64, sessions []*domain.SimulatorSession, counts domain.SessionCounts, trends map[int]float64) (*domain.SessionPushMessage, error) {
	if d.primed && version == d.version {
		return nil, nil
	}

	msg := &domain.SessionPushMessage{
		MessageId: uuid.NewString(),
		Op:        OpSessionsUpdate,
		Version:   version,
		Counts:    counts,
		Trends:    trends,
	}

	if !d.primed {
		msg.Op = OpSessionsSnapshot
		msg.NewSessions = make([]*domain.SimulatorSession, 0, len(sessions))
	}

	current := make(map[int][]byte, len(sessions))
	for _, session := range sessions {
		encoded, err := json.Marshal(session)
		if err != nil {
			return nil, err
		}

		current[session.Id] = encoded

		prevEncoding, loaded := d.previous[session.Id]
		if !loaded {
			msg.NewSessions = append(msg.NewSessions, session)
			continue
		}

		if bytes.Equal(prevEncoding, encoded) {
			continue
		}

		patch, err := jsonpatch.CreateMergePatch(prevEncoding, encoded)
		if err != nil {
			msg.NewSessions = append(msg.NewSessions, session)
			continue
		}

		if msg.PatchedSessions == nil {
			msg.PatchedSessions = make(map[int]domain.JsonRawPatch)
		}
		msg.PatchedSessions[session.Id] = patch
	}

	for id := range d.previous {
		if _, ok := current[id]; !ok {
			msg.RemovedSessions = append(msg.RemovedSessions, id)
		}
	}

	d.previous = current
	d.version = version
	d.primed = true

	return msg, nil
}
