package room

import (
	"errors"
	"time"
)

// Room limits
const (
	MinPlayers = 3
	MaxPlayers = 6
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrNotHost            = errors.New("only the host can start the game")
	ErrNotAllReady        = errors.New("not all players are ready")
	ErrPlayerNotFound     = errors.New("player not in room")
	ErrAlreadyInRoom      = errors.New("player already in room")
	ErrHostAlwaysReady    = errors.New("host is always ready")
)

// Status is the room's position in its lifecycle
type Status string

const (
	StatusLobby   Status = "lobby"
	StatusStarted Status = "started"
)

// Player is a room member. It is owned by its Room and never handed out.
type Player struct {
	ID        string
	Name      string
	IsReady   bool
	IsHost    bool
	Connected bool
}

// PlayerView is the public snapshot of a Player
type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsReady   bool   `json:"isReady"`
	IsHost    bool   `json:"isHost"`
	Connected bool   `json:"connected"`
}

func (p *Player) view() PlayerView {
	return PlayerView{
		ID:        p.ID,
		Name:      p.Name,
		IsReady:   p.IsReady,
		IsHost:    p.IsHost,
		Connected: p.Connected,
	}
}

// Departure describes the outcome of RemovePlayer
type Departure struct {
	Player    PlayerView
	Remaining []PlayerView
	// NewHostID is set when the departing player was host and someone took over.
	NewHostID string
}

// Empty reports whether the room was left without players.
func (d Departure) Empty() bool {
	return len(d.Remaining) == 0
}

// ReadyUpdate is the roster after a ready toggle
type ReadyUpdate struct {
	Players  []PlayerView
	CanStart bool
}

// Info is a read-only summary used by the inspection API and MCP tools.
// The game state itself is not included.
type Info struct {
	Code         string       `json:"code"`
	Status       Status       `json:"status"`
	Players      []PlayerView `json:"players"`
	PlayerCount  int          `json:"playerCount"`
	MinPlayers   int          `json:"minPlayers"`
	MaxPlayers   int          `json:"maxPlayers"`
	CanStart     bool         `json:"canStart"`
	HasGameState bool         `json:"hasGameState"`
	CreatedAt    time.Time    `json:"createdAt"`
}
