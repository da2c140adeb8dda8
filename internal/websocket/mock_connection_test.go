package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var errMockClosed = errors.New("connection closed")

// MockConnection is an in-memory Connection. Reads return the queued client
// frames and then block until Close.
type MockConnection struct {
	mu      sync.Mutex
	reads   chan []byte
	closed  chan struct{}
	once    sync.Once
	written []MockMessage

	// WriteErr fails every write after the first WriteOK writes.
	WriteErr error
	WriteOK  int
}

// MockMessage represents a written frame
type MockMessage struct {
	Type int
	Data []byte
}

// NewMockConnection creates a mock that will deliver frames to the server
func NewMockConnection(frames ...string) *MockConnection {
	m := &MockConnection{
		reads:  make(chan []byte, len(frames)),
		closed: make(chan struct{}),
	}
	for _, f := range frames {
		m.reads <- []byte(f)
	}
	return m
}

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.closed:
		return errMockClosed
	default:
	}
	if m.WriteErr != nil && messageType == websocket.TextMessage {
		if m.WriteOK == 0 {
			return m.WriteErr
		}
		m.WriteOK--
	}
	m.written = append(m.written, MockMessage{Type: messageType, Data: append([]byte(nil), data...)})
	return nil
}

func (m *MockConnection) ReadMessage() (int, []byte, error) {
	select {
	case data := <-m.reads:
		return websocket.TextMessage, data, nil
	default:
	}
	select {
	case data := <-m.reads:
		return websocket.TextMessage, data, nil
	case <-m.closed:
		return 0, nil, errMockClosed
	}
}

// Disconnect simulates the peer going away.
func (m *MockConnection) Disconnect() {
	m.once.Do(func() { close(m.closed) })
}

func (m *MockConnection) Close() error {
	m.Disconnect()
	return nil
}

func (m *MockConnection) SetReadDeadline(time.Time) error   { return nil }
func (m *MockConnection) SetWriteDeadline(time.Time) error  { return nil }
func (m *MockConnection) SetReadLimit(int64)                {}
func (m *MockConnection) SetPongHandler(func(string) error) {}
func (m *MockConnection) RemoteAddr() string                { return "127.0.0.1:8080" }

// Text returns the written text frames.
func (m *MockConnection) Text() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][]byte
	for _, msg := range m.written {
		if msg.Type == websocket.TextMessage {
			out = append(out, msg.Data)
		}
	}
	return out
}

// LastType is the type of the final frame written.
func (m *MockConnection) LastType() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.written) == 0 {
		return 0
	}
	return m.written[len(m.written)-1].Type
}
