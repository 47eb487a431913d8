package chat

import "sync"

// Conn is one live bidirectional channel to a remote peer. Send must not block
// indefinitely; a peer that cannot accept more data is reported as an error.
type Conn interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// Departure is the identity snapshot of a connection removed from the Registry.
type Departure struct {
	Name   string
	Joined bool
}

type member struct {
	name   string
	joined bool
}

// Registry holds the set of open connections and their display names.
// A single RWMutex covers both, so an identity never outlives its connection.
type Registry struct {
	mu      sync.RWMutex
	members map[Conn]*member
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{members: make(map[Conn]*member)}
}

// Register adds conn. Callers must not register the same connection twice.
func (r *Registry) Register(conn Conn) {
	r.mu.Lock()
	r.members[conn] = &member{}
	r.mu.Unlock()
}

// Unregister removes conn and its identity. The second return value reports
// whether this call performed the removal; for an absent connection it is a no-op.
func (r *Registry) Unregister(conn Conn) (Departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[conn]
	if !ok {
		return Departure{}, false
	}
	delete(r.members, conn)
	return Departure{Name: m.name, Joined: m.joined}, true
}

// SetIdentity attaches name to conn, overwriting any previous name. Connections
// that are not registered are ignored.
func (r *Registry) SetIdentity(conn Conn, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[conn]
	if !ok {
		return false
	}
	m.name = name
	m.joined = true
	return true
}

// Identity returns the display name of conn, if it has joined.
func (r *Registry) Identity(conn Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.members[conn]
	if !ok || !m.joined {
		return "", false
	}
	return m.name, true
}

// Contains reports whether conn is registered.
func (r *Registry) Contains(conn Conn) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[conn]
	return ok
}

// Size returns the number of registered connections.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Joined returns the number of registered connections that have an identity.
func (r *Registry) Joined() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, m := range r.members {
		if m.joined {
			n++
		}
	}
	return n
}

// All returns a point-in-time snapshot of the registered connections.
func (r *Registry) All() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.members))
	for conn := range r.members {
		conns = append(conns, conn)
	}
	return conns
}
