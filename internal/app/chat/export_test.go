package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// FakeTransport is an in-memory Transport for driving a Relay without a network.
type FakeTransport struct {
	inbound chan []byte
	closed  chan struct{}

	mu          sync.Mutex
	written     [][]byte
	pings       int
	closeCodes  []int
	pongHandler func(string) error
	closeOnce   sync.Once
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

// Deliver makes raw the next frame returned by ReadMessage.
func (f *FakeTransport) Deliver(raw string) {
	f.inbound <- []byte(raw)
}

// Pong invokes the registered pong handler as if the peer answered a ping.
func (f *FakeTransport) Pong() {
	f.mu.Lock()
	h := f.pongHandler
	f.mu.Unlock()

	if h != nil {
		_ = h("")
	}
}

func (f *FakeTransport) ReadMessage() (int, []byte, error) {
	select {
	case raw := <-f.inbound:
		return websocket.TextMessage, raw, nil
	case <-f.closed:
		return 0, nil, errors.New("use of closed network connection")
	}
}

func (f *FakeTransport) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.isClosed() {
		return errors.New("write on closed transport")
	}
	f.written = append(f.written, data)
	return nil
}

func (f *FakeTransport) WriteControl(messageType int, data []byte, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.isClosed() {
		return websocket.ErrCloseSent
	}

	switch messageType {
	case websocket.PingMessage:
		f.pings++
	case websocket.CloseMessage:
		code := websocket.CloseNoStatusReceived
		if len(data) >= 2 {
			code = int(data[0])<<8 | int(data[1])
		}
		f.closeCodes = append(f.closeCodes, code)
	}
	return nil
}

func (f *FakeTransport) SetReadLimit(int64) {}

func (f *FakeTransport) SetWriteDeadline(time.Time) error { return nil }

func (f *FakeTransport) SetPongHandler(h func(string) error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pongHandler = h
}

func (f *FakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *FakeTransport) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

// Closed reports whether Close has been called.
func (f *FakeTransport) Closed() bool {
	return f.isClosed()
}

// Pings returns how many pings were written.
func (f *FakeTransport) Pings() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.pings
}

// CloseCodes returns the codes of close frames written.
func (f *FakeTransport) CloseCodes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]int(nil), f.closeCodes...)
}

// Frames decodes every data frame written so far.
func (f *FakeTransport) Frames() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()

	frames := make([]Frame, 0, len(f.written))
	for _, raw := range f.written {
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err == nil {
			frames = append(frames, frame)
		}
	}
	return frames
}
