// Package room implements a single relay room: its membership, ready
// gating and start state.
//
// The room package implements:
//   - Player membership in join order (max 6 players)
//   - Host ownership and deterministic host migration
//   - Ready toggling and unanimous start gating (min 3 players)
//   - Storage of the last opaque game state snapshot
//
// Lifecycle:
//
// A Room starts in StatusLobby with its host already seated. A successful
// Start moves it to StatusStarted, after which membership is locked. There is
// no way back to the lobby. When the last player leaves the room closes
// itself, and every later mutation fails with ErrRoomNotFound so stale handles
// held by in-flight requests cannot resurrect it.
//
// Ownership:
//
// A Room owns its players by value. Callers only ever see PlayerView
// snapshots, taken under the same lock as the mutation that produced them.
//
// Usage:
//
//	r := room.New("AB12C3", connID, "Alice", time.Now())
//	if _, _, err := r.AddPlayer(otherID, "Bob"); err != nil {
//		// room.ErrRoomFull, room.ErrGameAlreadyStarted, ...
//	}
//	upd, err := r.ToggleReady(otherID)
//
// Concurrency:
//
// Every method is safe for concurrent use. Each Room carries its own
// RWMutex so traffic in one room never contends with another.
package room
