// Package registry provides the process-wide room registry for the relay.
//
// The registry package implements:
//   - Thread-safe mapping from room code to room
//   - Unique room code generation (6 characters, A-Z0-9)
//   - Case-insensitive lookup
//   - Room deletion once empty
//   - Periodic expiry sweep of empty or stale rooms
//
// Room Codes:
//
// Codes are drawn from crypto/rand with rejection sampling. Uniqueness is
// checked against live rooms under the registry write lock, so a code may be
// reused once its room is gone.
//
// Concurrency:
//
// The registry map is guarded by a RWMutex and every room by its own lock.
// Locks are always taken registry first, then room. Sweep runs concurrently
// with connection traffic; a room it removes is closed atomically with the
// expiry check, so a join racing the sweep either lands before the check or
// fails with room.ErrRoomNotFound.
//
// Usage:
//
//	rooms := registry.New(registry.WithLogger(logger))
//	rm := rooms.Create(connID, "Alice")
//
//	rm, err := rooms.Get("ab12c3") // same as "AB12C3"
//
//	removed := rooms.Sweep(time.Now(), time.Hour, func(code string, rm *room.Room) {
//		// drop broadcast groups, log, ...
//	})
package registry
