// Package mcp exposes the relay's live rooms to AI agents over the Model
// Context Protocol.
//
// MCP Tools:
//   - list_rooms: live rooms with status and player counts
//   - get_room: one room's roster, readiness and whether it holds a game state
//   - relay_stats: room, player and connection totals
//   - close_room: delete a room (registered only when a closer is supplied)
//
// The tools read room snapshots directly; they never go through a websocket
// connection and never see the opaque game state.
//
// Usage:
//
//	srv := mcp.NewServer(rooms, hub, Version, mcp.WithRoomCloser(closeRoom))
//	router.Handle("/mcp", srv)            // JSON-RPC over HTTP POST
//	server.ServeStdio(srv.MCPServer())    // or stdio
package mcp
