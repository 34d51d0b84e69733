// Package api provides the HTTP surface of the relay server.
//
// Endpoints:
//
// Inspection:
//   - GET /api/health - status, live room count, open connections
//   - GET /api/rooms - room snapshots (query: status=lobby|started, order=asc|desc, limit=N)
//   - GET /api/rooms/{code} - one room snapshot, 404 if unknown
//
// Real-time:
//   - GET /ws - WebSocket upgrade handled by the hub
//
// Agents:
//   - POST /mcp - MCP JSON-RPC, when enabled
//
// Static files:
//   - GET / - files from the configured static directory
//
// Snapshots never include the stored game state, only whether one exists.
//
// Usage:
//
//	server := api.NewServer(rooms, hub,
//		api.WithStaticDir(cfg.StaticDir),
//		api.WithMCP(mcpServer),
//	)
//	http.ListenAndServe(":3000", server)
package api
