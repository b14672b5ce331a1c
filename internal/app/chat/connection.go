/*
Package chat implements the real-time relay: the per-connection state machine, the registry of
open connections per user, message fan-out to chat participants and the liveness monitor.
*/
package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"marketchat/internal/pkg/logx"
	"marketchat/internal/pkg/randx"
)

// Transport is the duplex frame stream under a Connection. *websocket.Conn satisfies it.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// State is the position of a connection in its lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// probeResult is the outcome of one liveness probe.
type probeResult int

const (
	probeSent probeResult = iota
	probeStale
	probeSkipped
)

// Connection is one open relay connection. It is owned by the Relay for its lifetime.
type Connection struct {
	id        string
	transport Transport
	writeWait time.Duration

	// mu guards state, userID and the liveness fields.
	mu           sync.Mutex
	state        State
	userID       int64
	awaitingPong bool
	lastPong     time.Time

	// send queues encoded frames for writePump. It is never closed; done signals shutdown.
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
	onClose   func(*Connection)

	logger zerolog.Logger
}

func newConnection(t Transport, queueSize int, writeWait time.Duration, onClose func(*Connection)) *Connection {
	id := randx.ConnectionID()

	return &Connection{
		id:        id,
		transport: t,
		writeWait: writeWait,
		state:     StateUnauthenticated,
		lastPong:  time.Now(),
		send:      make(chan []byte, queueSize),
		done:      make(chan struct{}),
		onClose:   onClose,
		logger:    logx.For("connection").With().Str("conn_id", id).Logger(),
	}
}

// ID returns the opaque connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// UserID returns the authenticated user, or zero.
func (c *Connection) UserID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.userID
}

// LastPong returns when the peer last answered a ping. It starts at the time the connection opened.
func (c *Connection) LastPong() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastPong
}

// Done is closed once the connection has been shut down.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// identity returns the bound user if the connection is authenticated.
func (c *Connection) identity() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.userID, c.state == StateAuthenticated
}

// bind authenticates the connection as userID and registers it. It fails when the
// connection is closed or already bound to a different user. Registration happens under
// the connection lock so it cannot interleave with shutdown's unregister.
func (c *Connection) bind(userID int64, registry *Registry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClosed:
		return false
	case StateAuthenticated:
		if c.userID != userID {
			return false
		}
	}

	c.state = StateAuthenticated
	c.userID = userID
	registry.Register(userID, c)

	return true
}

// enqueue queues frame for the writer. A closed connection or a full queue drops the frame.
func (c *Connection) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// writePump drains the send queue until the connection shuts down. It is the only
// goroutine that writes data frames to the transport.
func (c *Connection) writePump() {
	for {
		select {
		case frame := <-c.send:
			if err := c.transport.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				c.logger.Debug().Err(err).Msg("Failed to set write deadline")
				c.shutdown()
				return
			}

			if err := c.transport.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug().Err(err).Msg("Error writing frame")
				c.shutdown()
				return
			}

		case <-c.done:
			return
		}
	}
}

// markAlive records a pong.
func (c *Connection) markAlive() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.awaitingPong = false
	c.lastPong = time.Now()
}

// probe runs one liveness check: a connection still awaiting the previous pong is stale,
// otherwise it is marked awaiting and pinged.
func (c *Connection) probe() probeResult {
	c.mu.Lock()
	switch {
	case c.state == StateClosed:
		c.mu.Unlock()
		return probeSkipped
	case c.awaitingPong:
		c.mu.Unlock()
		return probeStale
	}
	c.awaitingPong = true
	c.mu.Unlock()

	if err := c.transport.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing ping")
		return probeStale
	}

	return probeSent
}

// closeWith sends a close frame with code and reason, then shuts the connection down.
func (c *Connection) closeWith(code int, reason string) {
	if c.State() == StateClosed {
		return
	}

	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.transport.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing close frame")
	}

	c.shutdown()
}

// shutdown moves the connection to StateClosed, closes the transport and runs onClose.
// Only the first call has any effect.
func (c *Connection) shutdown() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()

		close(c.done)

		if err := c.transport.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Transport close error")
		}

		if c.onClose != nil {
			c.onClose(c)
		}
	})
}
