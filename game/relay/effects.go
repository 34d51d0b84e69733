package relay

import (
	"errors"

	"github.com/wricardo/wizard-relay/game/room"
)

// EffectKind tells the transport what to do with an Effect
type EffectKind int

const (
	// Unicast sends Message to ConnID
	Unicast EffectKind = iota
	// Broadcast sends Message to every member of Room's group except Exclude
	Broadcast
	// Subscribe adds ConnID to Room's broadcast group
	Subscribe
	// Unsubscribe removes ConnID from Room's broadcast group
	Unsubscribe
)

func (k EffectKind) String() string {
	switch k {
	case Unicast:
		return "unicast"
	case Broadcast:
		return "broadcast"
	case Subscribe:
		return "subscribe"
	case Unsubscribe:
		return "unsubscribe"
	default:
		return "unknown"
	}
}

// Message is an outbound frame
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Effect is one outbound action produced by a handler. Effects must be
// applied in order.
type Effect struct {
	Kind    EffectKind
	ConnID  string
	Room    string
	Exclude string
	Message Message
}

func unicast(connID, event string, data any) Effect {
	return Effect{Kind: Unicast, ConnID: connID, Message: Message{Event: event, Data: data}}
}

func broadcast(code, event string, data any) Effect {
	return Effect{Kind: Broadcast, Room: code, Message: Message{Event: event, Data: data}}
}

func broadcastExcept(code, exclude, event string, data any) Effect {
	return Effect{Kind: Broadcast, Room: code, Exclude: exclude, Message: Message{Event: event, Data: data}}
}

func subscribe(connID, code string) Effect {
	return Effect{Kind: Subscribe, ConnID: connID, Room: code}
}

func unsubscribe(connID, code string) Effect {
	return Effect{Kind: Unsubscribe, ConnID: connID, Room: code}
}

var (
	errUnknownEvent   = errors.New("unknown event")
	errInvalidPayload = errors.New("invalid payload")
	errInternal       = errors.New("internal error")
)

// reason is the wire form of an error
type reason struct {
	code    string
	message string
}

var reasons = map[error]reason{
	room.ErrRoomNotFound:       {"ROOM_NOT_FOUND", "Room not found"},
	room.ErrRoomFull:           {"ROOM_FULL", "Room is full"},
	room.ErrGameAlreadyStarted: {"GAME_ALREADY_STARTED", "Game already started"},
	room.ErrNotHost:            {"NOT_HOST", "Only host can start game"},
	room.ErrNotAllReady:        {"NOT_ALL_READY", "Not all players ready"},
	room.ErrAlreadyInRoom:      {"ALREADY_IN_ROOM", "Already in this room"},
	errUnknownEvent:            {"UNKNOWN_EVENT", "Unknown event"},
	errInvalidPayload:          {"INVALID_PAYLOAD", "Invalid payload"},
	errInternal:                {"INTERNAL", "Internal error"},
}

func reasonFor(err error) reason {
	for target, r := range reasons {
		if errors.Is(err, target) {
			return r
		}
	}
	return reasons[errInternal]
}

func joinError(connID string, err error) Effect {
	r := reasonFor(err)
	return unicast(connID, EventJoinError, JoinError{Error: r.message, Code: r.code})
}

func errorMessage(connID string, err error) Effect {
	r := reasonFor(err)
	return unicast(connID, EventError, ErrorMessage{Message: r.message, Code: r.code})
}

// InternalError is the effect the transport emits when a handler panics
func InternalError(connID string) Effect {
	return errorMessage(connID, errInternal)
}

// InvalidPayload is the effect the transport emits for a frame that is not
// an event envelope
func InvalidPayload(connID string) Effect {
	return errorMessage(connID, errInvalidPayload)
}
