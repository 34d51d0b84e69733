package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/wricardo/wizard-relay/game/room"
)

// Registry owns every live room, keyed by code
type Registry struct {
	rooms    map[string]*room.Room
	mu       sync.RWMutex
	now      func() time.Time
	generate func(exists func(string) bool) string
	log      log15.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithClock overrides the time source used for room creation
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithCodeGenerator overrides room code generation
func WithCodeGenerator(gen func(exists func(string) bool) string) Option {
	return func(r *Registry) {
		r.generate = gen
	}
}

// WithLogger sets the registry logger
func WithLogger(logger log15.Logger) Option {
	return func(r *Registry) {
		r.log = logger
	}
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{
		rooms:    make(map[string]*room.Room),
		now:      time.Now,
		generate: GenerateCode,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = log15.New("module", "registry")
		r.log.SetHandler(log15.DiscardHandler())
	}
	return r
}

// Create generates a fresh code and registers a room with the host seated
func (r *Registry) Create(hostID, hostName string) *room.Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := r.generate(func(c string) bool {
		_, exists := r.rooms[c]
		return exists
	})
	rm := room.New(code, hostID, hostName, r.now())
	r.rooms[code] = rm

	r.log.Debug("room registered", "room", code, "host", hostID, "rooms", len(r.rooms))
	return rm
}

// Get looks a room up by code (case-insensitive)
func (r *Registry) Get(code string) (*room.Room, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return nil, room.ErrRoomNotFound
	}

	r.mu.RLock()
	rm, exists := r.rooms[code]
	r.mu.RUnlock()

	if !exists || rm.Closed() {
		return nil, room.ErrRoomNotFound
	}
	return rm, nil
}

// Delete closes and removes a room
func (r *Registry) Delete(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	code = NormalizeCode(code)
	rm, exists := r.rooms[code]
	if !exists {
		return room.ErrRoomNotFound
	}

	rm.Close()
	delete(r.rooms, code)
	r.log.Info("room deleted", "room", code)
	return nil
}

// Release removes rm if it is still the room registered under its code.
// Used once a room has emptied and closed itself.
func (r *Registry) Release(rm *room.Room) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, exists := r.rooms[rm.Code()]; !exists || current != rm {
		return false
	}

	rm.Close()
	delete(r.rooms, rm.Code())
	r.log.Info("room deleted (empty)", "room", rm.Code())
	return true
}

// FindByPlayer returns the room the connection belongs to, if any
func (r *Registry) FindByPlayer(id string) (*room.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rm := range r.rooms {
		if rm.HasPlayer(id) {
			return rm, true
		}
	}
	return nil, false
}

// List returns all live rooms ordered by creation time
func (r *Registry) List() []*room.Room {
	r.mu.RLock()
	result := make([]*room.Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		result = append(result, rm)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt().Equal(result[j].CreatedAt()) {
			return result[i].Code() < result[j].Code()
		}
		return result[i].CreatedAt().Before(result[j].CreatedAt())
	})
	return result
}

// Count returns the number of live rooms
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Sweep removes every room that is empty or older than retention and calls
// fn for each one after it is gone. It returns the number removed.
func (r *Registry) Sweep(now time.Time, retention time.Duration, fn func(code string, rm *room.Room)) int {
	r.mu.Lock()
	var expired []*room.Room
	for code, rm := range r.rooms {
		if rm.CloseIfExpired(now, retention) {
			delete(r.rooms, code)
			expired = append(expired, rm)
		}
	}
	remaining := len(r.rooms)
	r.mu.Unlock()

	for _, rm := range expired {
		r.log.Info("cleaned up room", "room", rm.Code(), "players", rm.Len(), "age", now.Sub(rm.CreatedAt()).Round(time.Second))
		if fn != nil {
			fn(rm.Code(), rm)
		}
	}

	if len(expired) > 0 {
		r.log.Debug("sweep finished", "removed", len(expired), "remaining", remaining)
	}
	return len(expired)
}
