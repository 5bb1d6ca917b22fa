package domain

import "net"

// ConcurrentWebSocket is a WebSocket with synchronized reads and writes so that it may be used by multiple goroutines.
type ConcurrentWebSocket interface {
	WriteJSON(v interface{}) error                       // WriteJSON writes the JSON encoding of v as a message.
	WriteMessage(messageType int, data []byte) error     // WriteMessage is a helper method for getting a writer using NextWriter, writing the message and closing the writer. The message types are defined in the gorilla websocket module.
	ReadMessage() (messageType int, p []byte, err error) // ReadMessage is a helper method for getting a reader using NextReader and reading from that reader to a buffer.
	RemoteAddr() net.Addr                                // RemoteAddr returns the remote network address.
	Close() error                                        // Close the websocket.
}

// SessionPushMessage is pushed to frontends whenever the session registry changes.
//
// Sessions that a frontend has not seen yet are sent in full; sessions it has seen are sent as JSON merge patches
// against the previously pushed encoding.
type SessionPushMessage struct {
	MessageId       string               `json:"msg_id"`
	Op              string               `json:"op"`
	Version         uint64               `json:"version"`
	NewSessions     []*SimulatorSession  `json:"new_sessions,omitempty"`
	PatchedSessions map[int]JsonRawPatch `json:"patched_sessions,omitempty"`
	RemovedSessions []int                `json:"removed_sessions,omitempty"`
	Counts          SessionCounts        `json:"counts"`
	Trends          map[int]float64      `json:"trends,omitempty"`
}

// JsonRawPatch is an RFC 7386 merge patch, embedded verbatim in a push message.
type JsonRawPatch []byte

func (p JsonRawPatch) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}

	return p, nil
}
