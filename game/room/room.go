package room

import (
	"encoding/json"
	"sync"
	"time"
)

// Room is one game session's membership and start state
type Room struct {
	code       string
	createdAt  time.Time
	minPlayers int
	maxPlayers int

	mu        sync.RWMutex
	players   map[string]*Player
	order     []string
	status    Status
	gameState json.RawMessage
	closed    bool
}

// New creates a room in the lobby with its host already seated
func New(code, hostID, hostName string, now time.Time) *Room {
	host := &Player{
		ID:        hostID,
		Name:      hostName,
		IsHost:    true,
		Connected: true,
	}

	return &Room{
		code:       code,
		createdAt:  now,
		minPlayers: MinPlayers,
		maxPlayers: MaxPlayers,
		players:    map[string]*Player{hostID: host},
		order:      []string{hostID},
		status:     StatusLobby,
	}
}

// Code returns the room's join code
func (r *Room) Code() string {
	return r.code
}

// CreatedAt returns when the room was created
func (r *Room) CreatedAt() time.Time {
	return r.createdAt
}

// AddPlayer seats a new, not-ready player and returns it along with the
// updated roster.
func (r *Room) AddPlayer(id, name string) (PlayerView, []PlayerView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return PlayerView{}, nil, ErrRoomNotFound
	}
	if len(r.players) >= r.maxPlayers {
		return PlayerView{}, nil, ErrRoomFull
	}
	if r.status == StatusStarted {
		return PlayerView{}, nil, ErrGameAlreadyStarted
	}
	if _, exists := r.players[id]; exists {
		return PlayerView{}, nil, ErrAlreadyInRoom
	}

	p := &Player{
		ID:        id,
		Name:      name,
		Connected: true,
	}
	r.players[id] = p
	r.order = append(r.order, id)

	return p.view(), r.playerListLocked(), nil
}

// RemovePlayer removes a member. If the host leaves, the longest-standing
// remaining member becomes host. Removing the last member closes the room.
func (r *Room) RemovePlayer(id string) (Departure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.players[id]
	if !exists {
		return Departure{}, ErrPlayerNotFound
	}

	delete(r.players, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	d := Departure{Player: p.view()}
	if len(r.order) == 0 {
		r.closed = true
		return d, nil
	}

	if p.IsHost {
		next := r.players[r.order[0]]
		next.IsHost = true
		d.NewHostID = next.ID
	}
	d.Remaining = r.playerListLocked()

	return d, nil
}

// ToggleReady flips a non-host player's ready flag. The host counts as
// ready at all times and cannot toggle.
func (r *Room) ToggleReady(id string) (ReadyUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ReadyUpdate{}, ErrRoomNotFound
	}
	p, exists := r.players[id]
	if !exists {
		return ReadyUpdate{}, ErrPlayerNotFound
	}
	if p.IsHost {
		return ReadyUpdate{}, ErrHostAlwaysReady
	}

	p.IsReady = !p.IsReady

	return ReadyUpdate{
		Players:  r.playerListLocked(),
		CanStart: r.canStartLocked(),
	}, nil
}

// CanStart reports whether every player is ready or host and the minimum
// headcount is met.
func (r *Room) CanStart() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.canStartLocked()
}

func (r *Room) canStartLocked() bool {
	ready := 0
	for _, p := range r.players {
		if p.IsReady || p.IsHost {
			ready++
		}
	}
	return ready == len(r.players) && ready >= r.minPlayers
}

// Start moves the room to StatusStarted and stores the initial state.
func (r *Room) Start(playerID string, initialState json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	p, exists := r.players[playerID]
	if !exists || !p.IsHost {
		return ErrNotHost
	}
	if !r.canStartLocked() {
		return ErrNotAllReady
	}

	r.status = StatusStarted
	r.gameState = cloneRaw(initialState)
	return nil
}

// SyncState overwrites the stored game state. Last writer wins.
func (r *Room) SyncState(state json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	r.gameState = cloneRaw(state)
	return nil
}

// GameState returns a copy of the last stored snapshot, or nil.
func (r *Room) GameState() json.RawMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneRaw(r.gameState)
}

// Status returns the lifecycle state
func (r *Room) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Player returns a snapshot of one member
func (r *Room) Player(id string) (PlayerView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.players[id]
	if !exists {
		return PlayerView{}, false
	}
	return p.view(), true
}

// HasPlayer reports whether id is a member
func (r *Room) HasPlayer(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.players[id]
	return exists
}

// Len returns the number of members
func (r *Room) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// PlayerList returns members in join order
func (r *Room) PlayerList() []PlayerView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.playerListLocked()
}

func (r *Room) playerListLocked() []PlayerView {
	list := make([]PlayerView, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.players[id].view())
	}
	return list
}

// Snapshot returns a read-only summary of the room
func (r *Room) Snapshot() Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Info{
		Code:         r.code,
		Status:       r.status,
		Players:      r.playerListLocked(),
		PlayerCount:  len(r.players),
		MinPlayers:   r.minPlayers,
		MaxPlayers:   r.maxPlayers,
		CanStart:     r.canStartLocked(),
		HasGameState: r.gameState != nil,
		CreatedAt:    r.createdAt,
	}
}

// expired reports whether the room is empty or older than retention.
func (r *Room) expired(now time.Time, retention time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.expiredLocked(now, retention)
}

func (r *Room) expiredLocked(now time.Time, retention time.Duration) bool {
	return len(r.players) == 0 || now.Sub(r.createdAt) > retention
}

// CloseIfExpired closes the room when it is expired, atomically with the
// check. It returns true if the room is (now) closed.
func (r *Room) CloseIfExpired(now time.Time, retention time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return true
	}
	if !r.expiredLocked(now, retention) {
		return false
	}
	r.closed = true
	return true
}

// Close marks the room as gone. Further mutations fail with ErrRoomNotFound.
func (r *Room) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// Closed reports whether the room has been closed
func (r *Room) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

func cloneRaw(m json.RawMessage) json.RawMessage {
	if m == nil {
		return nil
	}
	return append(json.RawMessage(nil), m...)
}
