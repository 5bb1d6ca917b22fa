package push

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mattn/go-colorable"
	"github.com/zhangjyr/hashmap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
	"github.com/fatigue-platform/operator-console/m/v2/internal/server/concurrent_websocket"
)

const (
	DefaultPushInterval = time.Second

	// OpResync is sent by a frontend that wants the full set of sessions again.
	OpResync = "resync"
)

// SessionSource is the registry whose contents are pushed to frontends.
type SessionSource interface {
	All() []*domain.SimulatorSession
	Version() uint64
	Counts() domain.SessionCounts
	Trends() map[int]float64
}

type subscriber struct {
	id     string
	conn   domain.ConcurrentWebSocket
	mu     sync.Mutex // Serializes diffs so that patches are computed against what the frontend last received.
	differ *Differ
}

// Hub pushes the contents of the session registry to every connected frontend.
//
// Each frontend receives a full snapshot when it connects, and then, whenever the registry version changes,
// a message carrying merge patches for the sessions that changed.
type Hub struct {
	logger        *zap.Logger
	sugaredLogger *zap.SugaredLogger
	atom          *zap.AtomicLevel

	source   SessionSource
	clock    domain.Clock
	interval time.Duration
	upgrader *websocket.Upgrader

	// subscribers is a map from connection ID to *subscriber.
	subscribers *hashmap.HashMap

	timerMu sync.Mutex
	timer   domain.Timer

	numPushes atomic.Int64
}

func NewHub(source SessionSource, clock domain.Clock, interval time.Duration, upgrader *websocket.Upgrader, atom *zap.AtomicLevel) *Hub {
	if interval <= 0 {
		interval = DefaultPushInterval
	}

	if upgrader == nil {
		upgrader = &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		}
	}

	hub := &Hub{
		source:      source,
		clock:       clock,
		interval:    interval,
		upgrader:    upgrader,
		subscribers: hashmap.New(8),
		atom:        atom,
	}

	zapConfig := zap.NewDevelopmentEncoderConfig()
	zapConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig), zapcore.AddSync(colorable.NewColorableStdout()), atom)
	logger := zap.New(core, zap.Development())
	if logger == nil {
		panic("failed to create logger for session push hub")
	}

	hub.logger = logger
	hub.sugaredLogger = logger.Sugar()

	return hub
}

// Start begins pushing updates every push interval.
func (h *Hub) Start() {
	h.timerMu.Lock()
	defer h.timerMu.Unlock()

	if h.timer != nil {
		return
	}

	h.timer = h.clock.Every(h.interval, h.PushUpdates)
	h.logger.Debug("Started pushing session updates.", zap.Duration("interval", h.interval))
}

// Stop stops pushing updates and closes every connection.
func (h *Hub) Stop() {
	h.timerMu.Lock()
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.timerMu.Unlock()

	ids := make([]string, 0, h.subscribers.Len())
	for kv := range h.subscribers.Iter() {
		ids = append(ids, kv.Key.(string))
	}

	for _, id := range ids {
		h.Unsubscribe(id)
	}
}

func (h *Hub) NumSubscribers() int {
	return h.subscribers.Len()
}

// NumPushes returns the number of messages successfully written to frontends.
func (h *Hub) NumPushes() int64 {
	return h.numPushes.Load()
}

// Subscribe registers the connection and immediately sends it a full snapshot.
func (h *Hub) Subscribe(conn domain.ConcurrentWebSocket) (string, error) {
	sub := &subscriber{
		id:     uuid.NewString(),
		conn:   conn,
		differ: NewDiffer(),
	}

	h.subscribers.Set(sub.id, sub)
	h.logger.Debug("Frontend subscribed to session updates.", zap.String("connection_id", sub.id), zap.String("remote_addr", conn.RemoteAddr().String()))

	if err := h.push(sub); err != nil {
		h.Unsubscribe(sub.id)
		return "", err
	}

	return sub.id, nil
}

// Unsubscribe removes and closes the connection.
func (h *Hub) Unsubscribe(id string) {
	val, ok := h.subscribers.Get(id)
	if !ok {
		return
	}

	h.subscribers.Del(id)

	sub := val.(*subscriber)
	if err := sub.conn.Close(); err != nil {
		h.logger.Debug("Error while closing session push connection.", zap.String("connection_id", id), zap.Error(err))
	}

	h.logger.Debug("Frontend unsubscribed from session updates.", zap.String("connection_id", id))
}

// Resync makes the next push to the connection a full snapshot, and sends it.
func (h *Hub) Resync(id string) error {
	val, ok := h.subscribers.Get(id)
	if !ok {
		return nil
	}

	sub := val.(*subscriber)

	sub.mu.Lock()
	sub.differ.Reset()
	sub.mu.Unlock()

	return h.push(sub)
}

// PushUpdates sends every subscriber the changes it has not seen yet. Connections that can no longer be
// written to are dropped.
func (h *Hub) PushUpdates() {
	toRemove := make([]string, 0)

	for kv := range h.subscribers.Iter() {
		sub := kv.Value.(*subscriber)

		if err := h.push(sub); err != nil {
			var closeError *websocket.CloseError
			if errors.As(err, &closeError) || errors.Is(err, websocket.ErrCloseSent) {
				h.logger.Debug("Will remove closed session push connection.", zap.String("connection_id", sub.id))
			} else {
				h.logger.Warn("Failed to push session update to frontend.", zap.String("connection_id", sub.id), zap.Error(err))
			}

			toRemove = append(toRemove, sub.id)
		}
	}

	for _, id := range toRemove {
		h.Unsubscribe(id)
	}
}

func (h *Hub) push(sub *subscriber) error {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	// Read the version first: a change racing with the read below is picked up by the next push.
	version := h.source.Version()
	msg, err := sub.differ.Diff(version, h.source.All(), h.source.Counts(), h.source.Trends())
	if err != nil {
		h.logger.Error("Failed to compute session update.", zap.String("connection_id", sub.id), zap.Error(err))
		return err
	}

	if msg == nil {
		return nil
	}

	if err = sub.conn.WriteJSON(msg); err != nil {
		// Whatever the frontend holds is unknown now.
		sub.differ.Reset()
		return err
	}

	h.numPushes.Add(1)
	return nil
}

// ServeWebsocket upgrades the request and streams session updates over the connection until it is closed.
func (h *Hub) ServeWebsocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade session push connection.", zap.String("remote_addr", c.Request.RemoteAddr), zap.Error(err))
		return
	}

	concurrentConn := concurrent_websocket.NewConcurrentWebSocket(conn)
	id, err := h.Subscribe(concurrentConn)
	if err != nil {
		return
	}
	defer h.Unsubscribe(id)

	for {
		_, message, err := concurrentConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("Error while reading from session push connection.", zap.String("connection_id", id), zap.Error(err))
			}
			return
		}

		var request map[string]interface{}
		if err = json.Unmarshal(message, &request); err != nil {
			h.logger.Error("Error while unmarshalling message from session push connection.", zap.String("connection_id", id), zap.ByteString("message", message), zap.Error(err))
			continue
		}

		op, ok := request["op"]
		if !ok {
			h.logger.Error("Received unexpected message on session push connection. It did not contain an 'op' field.", zap.String("connection_id", id), zap.ByteString("message", message))
			continue
		}

		if op == OpResync {
			if err = h.Resync(id); err != nil {
				h.logger.Warn("Failed to resync frontend.", zap.String("connection_id", id), zap.Error(err))
				return
			}
			continue
		}

		h.sugaredLogger.Debugf("Ignoring session push message with op \"%v\".", op)
	}
}
