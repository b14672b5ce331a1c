package chat

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Registry maps each authenticated user to their open connections, in registration order.
// It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	// byUser holds the live connections of each user.
	byUser map[int64][]*Connection

	// owner maps a connection id back to the user it is registered under.
	owner map[string]int64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[int64][]*Connection),
		owner:  make(map[string]int64),
	}
}

// Register adds conn to userID's set. Registering the same connection again is a no-op;
// a connection registered under another user is moved.
func (r *Registry) Register(userID int64, conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.owner[conn.ID()]; ok {
		if current == userID {
			return
		}
		r.removeLocked(current, conn.ID())
	}

	r.byUser[userID] = append(r.byUser[userID], conn)
	r.owner[conn.ID()] = userID
}

// Unregister removes conn from whichever set holds it and drops the user entry once
// it is empty. Unknown connections are ignored.
func (r *Registry) Unregister(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owner[conn.ID()]
	if !ok {
		return
	}

	r.removeLocked(userID, conn.ID())
}

func (r *Registry) removeLocked(userID int64, connID string) {
	delete(r.owner, connID)

	conns := slices.DeleteFunc(r.byUser[userID], func(c *Connection) bool {
		return c.ID() == connID
	})

	if len(conns) == 0 {
		delete(r.byUser, userID)
		return
	}

	r.byUser[userID] = conns
}

// ConnectionsFor returns a copy of userID's open connections. It is empty, never nil,
// when the user has none.
func (r *Registry) ConnectionsFor(userID int64) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byUser[userID]
	out := make([]*Connection, len(conns))
	copy(out, conns)

	return out
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.owner)
}

// Users returns the ids of users with at least one open connection, in ascending order.
func (r *Registry) Users() []int64 {
	r.mu.RLock()
	users := lo.Keys(r.byUser)
	r.mu.RUnlock()

	slices.Sort(users)
	return users
}
