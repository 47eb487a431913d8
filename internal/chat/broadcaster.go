package chat

import (
	"go.uber.org/zap"
)

// EvictFunc is invoked for a connection that Broadcast removed from the
// Registry after a failed send.
type EvictFunc func(conn Conn, d Departure)

// Broadcaster serializes outbound events and fans them out over a Registry.
type Broadcaster struct {
	registry *Registry
	logger   *zap.Logger
	onEvict  EvictFunc
}

// NewBroadcaster creates a Broadcaster delivering to the members of registry.
func NewBroadcaster(registry *Registry, logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		registry: registry,
		logger:   logger.Named("broadcaster"),
	}
}

// OnEvict sets the hook run after a failing connection has been removed.
func (b *Broadcaster) OnEvict(fn EvictFunc) {
	b.onEvict = fn
}

// Broadcast delivers ev to every registered connection except exclude, which
// may be nil. A failed send does not stop delivery to the others; once the
// loop is done, each failed connection is unregistered and closed.
func (b *Broadcaster) Broadcast(ev OutboundEvent, exclude Conn) {
	payload, err := EncodeOutbound(ev)
	if err != nil {
		b.logger.Error("encode outbound event", zap.Error(err))
		return
	}

	conns := b.registry.All()
	var failed []Conn
	for _, conn := range conns {
		if exclude != nil && conn == exclude {
			continue
		}
		if err := conn.Send(payload); err != nil {
			b.logger.Warn("broadcast send failed",
				zap.String("conn", conn.ID()),
				zap.String("type", ev.outboundType()),
				zap.Error(err))
			failed = append(failed, conn)
		}
	}

	b.logger.Debug("broadcast",
		zap.String("type", ev.outboundType()),
		zap.Int("targets", len(conns)),
		zap.Int("failed", len(failed)))

	for _, conn := range failed {
		b.evict(conn)
	}
}

// SendTo delivers ev to conn alone. A failure is logged and returned, and the
// connection stays registered.
func (b *Broadcaster) SendTo(conn Conn, ev OutboundEvent) error {
	payload, err := EncodeOutbound(ev)
	if err != nil {
		b.logger.Error("encode outbound event", zap.Error(err))
		return err
	}
	if err := conn.Send(payload); err != nil {
		b.logger.Warn("direct send failed",
			zap.String("conn", conn.ID()),
			zap.String("type", ev.outboundType()),
			zap.Error(err))
		return err
	}
	return nil
}

func (b *Broadcaster) evict(conn Conn) {
	d, removed := b.registry.Unregister(conn)
	if !removed {
		return
	}
	b.logger.Info("connection evicted after failed send", zap.String("conn", conn.ID()))
	if err := conn.Close(); err != nil {
		b.logger.Debug("close evicted connection", zap.String("conn", conn.ID()), zap.Error(err))
	}
	if b.onEvict != nil {
		b.onEvict(conn, d)
	}
}
