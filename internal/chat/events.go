// Package chat implements the connection registry, event routing, fan-out
// broadcasting, and presence counting behind the live chat endpoint.
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wire type tags shared by inbound and outbound envelopes.
const (
	TypeJoin        = "join"
	TypeMessage     = "message"
	TypeTyping      = "typing"
	TypeUsersOnline = "users_online"
)

// SystemUser is the author attached to server-generated chat messages.
const SystemUser = "System"

var (
	// ErrMalformedEvent is returned when a frame is not a valid envelope or its
	// data does not match the shape required by its type.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrUnknownEventType is returned for envelopes with an unrecognized type.
	ErrUnknownEventType = errors.New("unknown event type")
)

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outboundEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// OutboundEvent is an event the server pushes to connections.
type OutboundEvent interface {
	outboundType() string
	outboundData() any
}

// UsersOnline reports the number of open connections.
type UsersOnline struct {
	Count int
}

// ChatMessage is a chat line, either relayed from a user or generated by the server.
type ChatMessage struct {
	Text string `json:"text"`
	User string `json:"user"`
	Time string `json:"time"`
}

// TypingNotice tells peers that a joined user is typing.
type TypingNotice struct {
	User string
}

func (e UsersOnline) outboundType() string  { return TypeUsersOnline }
func (e UsersOnline) outboundData() any     { return e.Count }
func (e ChatMessage) outboundType() string  { return TypeMessage }
func (e ChatMessage) outboundData() any     { return e }
func (e TypingNotice) outboundType() string { return TypeTyping }
func (e TypingNotice) outboundData() any    { return e.User }

// EncodeOutbound serializes an event into its {"type","data"} envelope.
func EncodeOutbound(ev OutboundEvent) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("encode: %w", ErrMalformedEvent)
	}
	return json.Marshal(outboundEnvelope{Type: ev.outboundType(), Data: ev.outboundData()})
}

// InboundEvent is an event decoded from a client frame.
type InboundEvent interface {
	inboundType() string
}

// Join asks the server to attach a display name to the connection.
type Join struct {
	Username string
}

// Message is a chat line submitted by a client. Any client-side time is discarded.
type Message struct {
	Text string
	User string
}

// Typing is a typing signal. Username is what the client claimed; it is never
// relayed.
type Typing struct {
	Username string
}

func (Join) inboundType() string    { return TypeJoin }
func (Message) inboundType() string { return TypeMessage }
func (Typing) inboundType() string  { return TypeTyping }

type messageData struct {
	Text string `json:"text"`
	User string `json:"user"`
	Time string `json:"time"`
}

// DecodeInbound parses a raw client frame into one of Join, Message or Typing.
func DecodeInbound(raw []byte) (InboundEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch env.Type {
	case TypeJoin:
		var username string
		if err := decodeData(env, &username); err != nil {
			return nil, err
		}
		return Join{Username: username}, nil
	case TypeMessage:
		var data messageData
		if err := decodeData(env, &data); err != nil {
			return nil, err
		}
		return Message{Text: data.Text, User: data.User}, nil
	case TypeTyping:
		var username string
		if err := decodeData(env, &username); err != nil {
			return nil, err
		}
		return Typing{Username: username}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
	}
}

func decodeData(env envelope, v any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%w: %s event without data", ErrMalformedEvent, env.Type)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformedEvent, env.Type, err)
	}
	return nil
}
