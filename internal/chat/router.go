package chat

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Router decodes inbound frames and applies join, message and typing events.
// Frames from one connection must be handled sequentially; frames from
// different connections may be handled concurrently.
type Router struct {
	registry    *Registry
	broadcaster *Broadcaster
	presence    *Presence
	clock       Clock
	logger      *zap.Logger
}

// NewRouter wires a Router to its collaborators. A nil clock uses LocalClock(nil).
func NewRouter(registry *Registry, broadcaster *Broadcaster, presence *Presence, clock Clock, logger *zap.Logger) *Router {
	if clock == nil {
		clock = LocalClock(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		registry:    registry,
		broadcaster: broadcaster,
		presence:    presence,
		clock:       clock,
		logger:      logger.Named("router"),
	}
}

// Handle decodes raw and dispatches it. Malformed frames are logged and dropped.
func (r *Router) Handle(conn Conn, raw []byte) {
	ev, err := DecodeInbound(raw)
	if err != nil {
		level := r.logger.Warn
		if errors.Is(err, ErrUnknownEventType) {
			level = r.logger.Info
		}
		level("dropping inbound frame", zap.String("conn", conn.ID()), zap.Error(err))
		return
	}
	r.Dispatch(conn, ev)
}

// Dispatch applies a decoded event on behalf of conn.
func (r *Router) Dispatch(conn Conn, ev InboundEvent) {
	switch ev := ev.(type) {
	case Join:
		r.join(conn, ev.Username)
	case Message:
		r.message(ev)
	case Typing:
		r.typing(conn)
	default:
		r.logger.Warn("unhandled inbound event", zap.String("conn", conn.ID()), zap.String("type", fmt.Sprintf("%T", ev)))
	}
}

func (r *Router) join(conn Conn, username string) {
	if !r.registry.SetIdentity(conn, username) {
		r.logger.Debug("join from unregistered connection", zap.String("conn", conn.ID()))
		return
	}
	r.logger.Info("user joined", zap.String("conn", conn.ID()), zap.String("user", username))

	_ = r.broadcaster.SendTo(conn, r.system(fmt.Sprintf("Welcome to the chat, %s!", username)))
	r.broadcaster.Broadcast(r.system(fmt.Sprintf("%s has joined the chat", username)), conn)
	r.presence.Publish()
}

func (r *Router) message(ev Message) {
	r.broadcaster.Broadcast(ChatMessage{Text: ev.Text, User: ev.User, Time: r.clock()}, nil)
}

// typing relays the registered identity, never the name in the payload.
func (r *Router) typing(conn Conn) {
	name, ok := r.registry.Identity(conn)
	if !ok {
		return
	}
	r.broadcaster.Broadcast(TypingNotice{User: name}, conn)
}

// Leave unregisters conn and, if this call removed it, announces the departure.
func (r *Router) Leave(conn Conn) {
	d, removed := r.registry.Unregister(conn)
	if !removed {
		return
	}
	r.logger.Info("connection left",
		zap.String("conn", conn.ID()),
		zap.String("user", d.Name),
		zap.Bool("joined", d.Joined))
	r.announceDeparture(d)
}

func (r *Router) announceDeparture(d Departure) {
	if d.Joined {
		r.broadcaster.Broadcast(r.system(fmt.Sprintf("%s has left the chat", d.Name)), nil)
	}
	r.presence.Publish()
}

func (r *Router) system(text string) ChatMessage {
	return ChatMessage{Text: text, User: SystemUser, Time: r.clock()}
}
