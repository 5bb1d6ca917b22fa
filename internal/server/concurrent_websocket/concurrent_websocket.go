package concurrent_websocket

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
)

// writeWait bounds how long a single push may block on a slow frontend.
const writeWait = 10 * time.Second

type concurrentWebSocketImpl struct {
	rlock sync.Mutex
	wlock sync.Mutex
	conn  *websocket.Conn
}

func NewConcurrentWebSocket(conn *websocket.Conn) domain.ConcurrentWebSocket {
	return &concurrentWebSocketImpl{
		conn: conn,
	}
}

// WriteJSON writes the JSON encoding of v as a message.
func (w *concurrentWebSocketImpl) WriteJSON(v interface{}) error {
	w.wlock.Lock()
	defer w.wlock.Unlock()

	if err := w.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return w.conn.WriteJSON(v)
}

// Close the websocket.
func (w *concurrentWebSocketImpl) Close() error {
	w.wlock.Lock()
	defer w.wlock.Unlock()

	return w.conn.Close()
}

// WriteMessage is a helper method for getting a writer using NextWriter, writing the message and closing the writer.
func (w *concurrentWebSocketImpl) WriteMessage(messageType int, data []byte) error {
	w.wlock.Lock()
	defer w.wlock.Unlock()

	if err := w.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return w.conn.WriteMessage(messageType, data)
}

// ReadMessage is a helper method for getting a reader using NextReader and reading from that reader to a buffer.
func (w *concurrentWebSocketImpl) ReadMessage() (messageType int, p []byte, err error) {
	w.rlock.Lock()
	defer w.rlock.Unlock()

	return w.conn.ReadMessage()
}

// RemoteAddr returns the remote network address.
func (w *concurrentWebSocketImpl) RemoteAddr() net.Addr {
	return w.conn.RemoteAddr()
}
