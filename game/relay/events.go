package relay

import (
	"encoding/json"

	"github.com/wricardo/wizard-relay/game/room"
)

// Client → server events
const (
	EventCreateRoom    = "create-room"
	EventJoinRoom      = "join-room"
	EventPlayerReady   = "player-ready"
	EventStartGame     = "start-game"
	EventSyncGameState = "sync-game-state"
	EventPlayerAction  = "player-action"
	EventChatMessage   = "chat-message"
	EventLeaveRoom     = "leave-room"
)

// Server → client events. player-action and chat-message reuse the inbound names.
const (
	EventRoomCreated       = "room-created"
	EventRoomJoined        = "room-joined"
	EventJoinError         = "join-error"
	EventPlayerJoined      = "player-joined"
	EventPlayerListUpdated = "player-list-updated"
	EventGameStarted       = "game-started"
	EventGameStateUpdated  = "game-state-updated"
	EventPlayerLeft        = "player-left"
	EventError             = "error"
)

// Envelope is the wire frame in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound payloads

type createRoomRequest struct {
	PlayerName string `json:"playerName"`
}

type joinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type roomRequest struct {
	RoomCode string `json:"roomCode"`
}

type gameStateRequest struct {
	RoomCode  string          `json:"roomCode"`
	GameState json.RawMessage `json:"gameState"`
}

type playerActionRequest struct {
	RoomCode string          `json:"roomCode"`
	Action   json.RawMessage `json:"action"`
	Data     json.RawMessage `json:"data"`
}

type chatMessageRequest struct {
	RoomCode string          `json:"roomCode"`
	Message  json.RawMessage `json:"message"`
}

// Outbound payloads

// RoomEntered is sent to the creator (room-created) or joiner (room-joined)
type RoomEntered struct {
	RoomCode   string            `json:"roomCode"`
	PlayerList []room.PlayerView `json:"playerList"`
}

// PlayerJoined is broadcast after a successful join
type PlayerJoined struct {
	PlayerName string            `json:"playerName"`
	PlayerList []room.PlayerView `json:"playerList"`
}

// PlayerLeft is broadcast to the remaining members
type PlayerLeft struct {
	PlayerName string            `json:"playerName"`
	PlayerList []room.PlayerView `json:"playerList"`
}

// PlayerListUpdated is broadcast after a ready toggle
type PlayerListUpdated struct {
	PlayerList []room.PlayerView `json:"playerList"`
	CanStart   bool              `json:"canStart"`
}

// GameStateMessage carries an opaque snapshot (game-started, game-state-updated)
type GameStateMessage struct {
	GameState json.RawMessage `json:"gameState"`
}

// PlayerAction is relayed to everyone but the sender
type PlayerAction struct {
	PlayerID string          `json:"playerId"`
	Action   json.RawMessage `json:"action"`
	Data     json.RawMessage `json:"data"`
}

// ChatMessage is broadcast to the whole room, sender included
type ChatMessage struct {
	PlayerName string          `json:"playerName"`
	Message    json.RawMessage `json:"message"`
	Timestamp  int64           `json:"timestamp"`
}

// JoinError is the join-error payload
type JoinError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ErrorMessage is the error payload
type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
