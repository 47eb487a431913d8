package chat

import (
	"go.uber.org/zap"
)

// Hub bundles the Registry, Broadcaster, Presence counter and Router behind
// the calls a transport makes for each connection event.
type Hub struct {
	registry    *Registry
	broadcaster *Broadcaster
	presence    *Presence
	router      *Router
	logger      *zap.Logger
}

// NewHub creates a Hub with an empty Registry. A nil clock uses LocalClock(nil).
func NewHub(logger *zap.Logger, clock Clock) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := NewRegistry()
	broadcaster := NewBroadcaster(registry, logger)
	presence := NewPresence(registry, broadcaster)
	router := NewRouter(registry, broadcaster, presence, clock, logger)

	broadcaster.OnEvict(func(_ Conn, d Departure) {
		router.announceDeparture(d)
	})

	return &Hub{
		registry:    registry,
		broadcaster: broadcaster,
		presence:    presence,
		router:      router,
		logger:      logger.Named("hub"),
	}
}

// Connect registers a freshly upgraded connection.
func (h *Hub) Connect(conn Conn) {
	h.registry.Register(conn)
	h.logger.Info("connection registered",
		zap.String("conn", conn.ID()),
		zap.Int("online", h.registry.Size()))
}

// HandleMessage routes one raw inbound frame from conn.
func (h *Hub) HandleMessage(conn Conn, raw []byte) {
	h.router.Handle(conn, raw)
}

// Disconnect handles a close or transport error for conn. It is safe to call
// more than once and after the connection was already evicted.
func (h *Hub) Disconnect(conn Conn) {
	h.router.Leave(conn)
}

// Online returns the number of open connections.
func (h *Hub) Online() int {
	return h.presence.Online()
}

// Joined returns the number of open connections that have a display name.
func (h *Hub) Joined() int {
	return h.registry.Joined()
}

// Registry exposes the underlying connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// CloseAll closes every registered connection and returns how many were closed.
// Registry cleanup happens through each transport's Disconnect call.
func (h *Hub) CloseAll() int {
	conns := h.registry.All()
	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			h.logger.Debug("close connection", zap.String("conn", conn.ID()), zap.Error(err))
		}
	}
	h.logger.Info("closed all connections", zap.Int("count", len(conns)))
	return len(conns)
}
