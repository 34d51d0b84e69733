package relay

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/wricardo/wizard-relay/game/registry"
	"github.com/wricardo/wizard-relay/game/room"
)

type handlerFunc func(connID string, data json.RawMessage) ([]Effect, error)

// Router maps inbound events onto registry and room operations. Handlers
// return effects and never touch the transport.
type Router struct {
	rooms    *registry.Registry
	now      func() time.Time
	log      log15.Logger
	handlers map[string]handlerFunc
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithRouterClock overrides the clock used for chat timestamps
func WithRouterClock(now func() time.Time) RouterOption {
	return func(r *Router) {
		r.now = now
	}
}

// NewRouter creates a router over the given registry
func NewRouter(rooms *registry.Registry, logger log15.Logger, opts ...RouterOption) *Router {
	r := &Router{
		rooms: rooms,
		now:   time.Now,
		log:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.handlers = map[string]handlerFunc{
		EventCreateRoom:    r.handleCreateRoom,
		EventJoinRoom:      r.handleJoinRoom,
		EventPlayerReady:   r.handlePlayerReady,
		EventStartGame:     r.handleStartGame,
		EventSyncGameState: r.handleSyncGameState,
		EventPlayerAction:  r.handlePlayerAction,
		EventChatMessage:   r.handleChatMessage,
		EventLeaveRoom:     r.handleLeaveRoom,
	}
	return r
}

// Handle processes one inbound event from connID
func (r *Router) Handle(connID string, env Envelope) []Effect {
	h, ok := r.handlers[env.Event]
	if !ok {
		r.log.Debug("unknown event", "conn", connID, "event", env.Event)
		return []Effect{errorMessage(connID, errUnknownEvent)}
	}

	data := env.Data
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage("{}")
	}

	effects, err := h(connID, data)
	if err != nil {
		r.log.Debug("event rejected", "conn", connID, "event", env.Event, "err", err)
		return append(effects, errorMessage(connID, err))
	}
	return effects
}

// Disconnect treats a closed connection as leaving whichever room it is in
func (r *Router) Disconnect(connID string) []Effect {
	rm, ok := r.rooms.FindByPlayer(connID)
	if !ok {
		return nil
	}
	return r.leave(connID, rm)
}

// Expire returns the unsubscribe effects for members of a swept room
func (r *Router) Expire(rm *room.Room) []Effect {
	members := rm.PlayerList()
	effects := make([]Effect, 0, len(members))
	for _, p := range members {
		effects = append(effects, unsubscribe(p.ID, rm.Code()))
	}
	return effects
}

// CloseRoom deletes a room on operator request. Members are unsubscribed
// without notification, the same as an expiry.
func (r *Router) CloseRoom(code string) ([]Effect, error) {
	rm, err := r.rooms.Get(code)
	if err != nil {
		return nil, err
	}
	if err := r.rooms.Delete(rm.Code()); err != nil {
		return nil, err
	}
	r.log.Info("room closed", "room", rm.Code(), "players", rm.Len())
	return r.Expire(rm), nil
}

func decode(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return errInvalidPayload
	}
	return nil
}

func (r *Router) handleCreateRoom(connID string, data json.RawMessage) ([]Effect, error) {
	var req createRoomRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}

	effects := r.leaveCurrent(connID)

	rm := r.rooms.Create(connID, req.PlayerName)
	effects = append(effects,
		subscribe(connID, rm.Code()),
		unicast(connID, EventRoomCreated, RoomEntered{
			RoomCode:   rm.Code(),
			PlayerList: rm.PlayerList(),
		}),
	)

	r.log.Info("room created", "room", rm.Code(), "conn", connID, "player", req.PlayerName)
	return effects, nil
}

func (r *Router) handleJoinRoom(connID string, data json.RawMessage) ([]Effect, error) {
	var req joinRoomRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}

	code := registry.NormalizeCode(req.RoomCode)
	rm, err := r.rooms.Get(code)
	if err != nil {
		return []Effect{joinError(connID, err)}, nil
	}
	if rm.HasPlayer(connID) {
		return []Effect{joinError(connID, room.ErrAlreadyInRoom)}, nil
	}

	prev, inPrev := r.rooms.FindByPlayer(connID)

	_, list, err := rm.AddPlayer(connID, req.PlayerName)
	if err != nil {
		r.log.Debug("join rejected", "room", code, "conn", connID, "err", err)
		return []Effect{joinError(connID, err)}, nil
	}

	// the old room is left only once the new seat is taken
	var effects []Effect
	if inPrev {
		effects = r.leave(connID, prev)
	}

	effects = append(effects,
		unicast(connID, EventRoomJoined, RoomEntered{RoomCode: code, PlayerList: list}),
		subscribe(connID, code),
		broadcast(code, EventPlayerJoined, PlayerJoined{PlayerName: req.PlayerName, PlayerList: list}),
	)

	r.log.Info("player joined", "room", code, "conn", connID, "player", req.PlayerName, "players", len(list))
	return effects, nil
}

func (r *Router) handlePlayerReady(connID string, data json.RawMessage) ([]Effect, error) {
	var req roomRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}

	rm, err := r.rooms.Get(req.RoomCode)
	if err != nil {
		return nil, nil
	}

	upd, err := rm.ToggleReady(connID)
	if err != nil {
		// host toggles and stale players are ignored
		return nil, nil
	}

	return []Effect{
		broadcast(rm.Code(), EventPlayerListUpdated, PlayerListUpdated{
			PlayerList: upd.Players,
			CanStart:   upd.CanStart,
		}),
	}, nil
}

func (r *Router) handleStartGame(connID string, data json.RawMessage) ([]Effect, error) {
	var req gameStateRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}

	rm, err := r.rooms.Get(req.RoomCode)
	if err != nil {
		return nil, nil
	}

	if err := rm.Start(connID, req.GameState); err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return nil, nil
		}
		return nil, err
	}

	r.log.Info("game started", "room", rm.Code(), "players", rm.Len())
	return []Effect{
		broadcast(rm.Code(), EventGameStarted, GameStateMessage{GameState: rm.GameState()}),
	}, nil
}

func (r *Router) handleSyncGameState(connID string, data json.RawMessage) ([]Effect, error) {
	var req gameStateRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}

	rm, err := r.rooms.Get(req.RoomCode)
	if err != nil {
		return nil, nil
	}
	if err := rm.SyncState(req.GameState); err != nil {
		return nil, nil
	}

	return []Effect{
		broadcastExcept(rm.Code(), connID, EventGameStateUpdated, GameStateMessage{GameState: req.GameState}),
	}, nil
}

func (r *Router) handlePlayerAction(connID string, data json.RawMessage) ([]Effect, error) {
	var req playerActionRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}

	return []Effect{
		broadcastExcept(registry.NormalizeCode(req.RoomCode), connID, EventPlayerAction, PlayerAction{
			PlayerID: connID,
			Action:   req.Action,
			Data:     req.Data,
		}),
	}, nil
}

func (r *Router) handleChatMessage(connID string, data json.RawMessage) ([]Effect, error) {
	var req chatMessageRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}

	rm, err := r.rooms.Get(req.RoomCode)
	if err != nil {
		return nil, nil
	}
	p, ok := rm.Player(connID)
	if !ok {
		return nil, nil
	}

	return []Effect{
		broadcast(rm.Code(), EventChatMessage, ChatMessage{
			PlayerName: p.Name,
			Message:    req.Message,
			Timestamp:  r.now().UnixMilli(),
		}),
	}, nil
}

func (r *Router) handleLeaveRoom(connID string, data json.RawMessage) ([]Effect, error) {
	var req roomRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}

	rm, err := r.rooms.Get(req.RoomCode)
	if err != nil {
		return nil, nil
	}
	return r.leave(connID, rm), nil
}

// leaveCurrent removes connID from the room it is in, if any
func (r *Router) leaveCurrent(connID string) []Effect {
	rm, ok := r.rooms.FindByPlayer(connID)
	if !ok {
		return nil
	}
	return r.leave(connID, rm)
}

func (r *Router) leave(connID string, rm *room.Room) []Effect {
	d, err := rm.RemovePlayer(connID)
	if err != nil {
		return nil
	}

	code := rm.Code()
	effects := []Effect{unsubscribe(connID, code)}

	if d.Empty() {
		r.rooms.Release(rm)
		r.log.Info("player left, room deleted", "room", code, "conn", connID, "player", d.Player.Name)
		return effects
	}

	if d.NewHostID != "" {
		r.log.Info("host migrated", "room", code, "host", d.NewHostID)
	}
	r.log.Info("player left", "room", code, "conn", connID, "player", d.Player.Name, "players", len(d.Remaining))

	return append(effects, broadcast(code, EventPlayerLeft, PlayerLeft{
		PlayerName: d.Player.Name,
		PlayerList: d.Remaining,
	}))
}
