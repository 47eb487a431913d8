package chat

// Presence republishes the online count, which is always the Registry size.
type Presence struct {
	registry    *Registry
	broadcaster *Broadcaster
}

// NewPresence creates a Presence counter over registry.
func NewPresence(registry *Registry, broadcaster *Broadcaster) *Presence {
	return &Presence{registry: registry, broadcaster: broadcaster}
}

// Online returns the current number of open connections.
func (p *Presence) Online() int {
	return p.registry.Size()
}

// Publish broadcasts the current count to every connection.
func (p *Presence) Publish() {
	p.broadcaster.Broadcast(UsersOnline{Count: p.registry.Size()}, nil)
}
