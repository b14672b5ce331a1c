package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConnection() *Connection {
	return newConnection(NewFakeTransport(), 4, time.Second, nil)
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	conn := testConnection()

	reg.Register(1, conn)
	reg.Register(1, conn)

	req.Equal([]*Connection{conn}, reg.ConnectionsFor(1))
	req.Equal(1, reg.Len())
}

func TestRegistry_MultipleConnectionsPerUser(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	// Given two connections for user 1 and one for user 2
	first, second, other := testConnection(), testConnection(), testConnection()
	reg.Register(1, first)
	reg.Register(1, second)
	reg.Register(2, other)

	req.Equal([]*Connection{first, second}, reg.ConnectionsFor(1))

	// When one of user 1's connections is unregistered
	reg.Unregister(first)

	// Then the other one is still discoverable
	req.Equal([]*Connection{second}, reg.ConnectionsFor(1))
	req.Equal([]*Connection{other}, reg.ConnectionsFor(2))
	req.Equal([]int64{1, 2}, reg.Users())
}

func TestRegistry_UnregisterTwiceIsHarmless(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	conn, other := testConnection(), testConnection()
	reg.Register(1, conn)
	reg.Register(2, other)

	reg.Unregister(conn)
	reg.Unregister(conn)
	reg.Unregister(testConnection())

	req.Empty(reg.ConnectionsFor(1))
	req.NotNil(reg.ConnectionsFor(1))
	req.Equal([]*Connection{other}, reg.ConnectionsFor(2))
	req.Equal([]int64{2}, reg.Users())
	req.Equal(1, reg.Len())
}

func TestRegistry_ConnectionsForReturnsCopy(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	conn := testConnection()
	reg.Register(1, conn)

	snapshot := reg.ConnectionsFor(1)
	snapshot[0] = nil

	req.Equal([]*Connection{conn}, reg.ConnectionsFor(1))
}

func TestRegistry_RegisterMovesConnectionBetweenUsers(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	conn := testConnection()
	reg.Register(1, conn)
	reg.Register(2, conn)

	req.Empty(reg.ConnectionsFor(1))
	req.Equal([]*Connection{conn}, reg.ConnectionsFor(2))
	req.Equal(1, reg.Len())
}

func TestConnection_EnqueueAfterShutdownIsSkipped(t *testing.T) {
	req := require.New(t)

	calls := 0
	conn := newConnection(NewFakeTransport(), 1, time.Second, func(*Connection) { calls++ })

	req.True(conn.enqueue([]byte("a")))
	req.False(conn.enqueue([]byte("b")), "queue of one is full")

	conn.shutdown()
	conn.shutdown()

	req.Equal(StateClosed, conn.State())
	req.False(conn.enqueue([]byte("c")))
	req.Equal(1, calls)
}

func TestConnection_BindRules(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	conn := testConnection()

	req.True(conn.bind(1, reg))
	req.True(conn.bind(1, reg), "same user again")
	req.False(conn.bind(2, reg), "different user")

	userID, ok := conn.identity()
	req.True(ok)
	req.Equal(int64(1), userID)
	req.Equal([]*Connection{conn}, reg.ConnectionsFor(1))
	req.Empty(reg.ConnectionsFor(2))

	conn.shutdown()
	req.False(conn.bind(1, reg))
}

func TestRegistry_ConcurrentRegisterAndUnregister(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	const tabs = 32

	// Given connections of user 2 that will go away while user 1 opens many tabs
	leaving := make([]*Connection, tabs)
	for i := range leaving {
		leaving[i] = testConnection()
		reg.Register(2, leaving[i])
	}

	opening := make([]*Connection, tabs)
	for i := range opening {
		opening[i] = testConnection()
	}

	// When registrations, unregistrations and lookups all run at once
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range tabs {
		wg.Add(3)
		go func() {
			defer wg.Done()
			<-start
			reg.Register(1, opening[i])
		}()
		go func() {
			defer wg.Done()
			<-start
			reg.Unregister(leaving[i])
		}()
		go func() {
			defer wg.Done()
			<-start
			for _, conn := range reg.ConnectionsFor(1) {
				conn.enqueue([]byte(`{}`))
			}
			_ = reg.ConnectionsFor(2)
		}()
	}
	close(start)
	wg.Wait()

	// Then no tab was lost and every leaving connection is gone
	req.ElementsMatch(opening, reg.ConnectionsFor(1))
	req.Empty(reg.ConnectionsFor(2))
	req.Equal(tabs, reg.Len())
	req.Equal([]int64{1}, reg.Users())
}
