package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/wizard-relay/game/room"
)

// RoomSource is the read side of the room registry
type RoomSource interface {
	List() []*room.Room
	Get(code string) (*room.Room, error)
}

// ConnectionCounter reports open websocket connections
type ConnectionCounter interface {
	ConnectionCount() int
}

// RoomCloser deletes a room on operator request
type RoomCloser func(code string) error

// Server exposes relay inspection tools over MCP
type Server struct {
	rooms     RoomSource
	conns     ConnectionCounter
	closer    RoomCloser
	startedAt time.Time
	mcpServer *server.MCPServer
}

// Option configures a Server
type Option func(*Server)

// WithRoomCloser enables the close_room tool
func WithRoomCloser(fn RoomCloser) Option {
	return func(s *Server) {
		s.closer = fn
	}
}

// NewServer creates an MCP server over the given room source
func NewServer(rooms RoomSource, conns ConnectionCounter, version string, opts ...Option) *Server {
	s := &Server{
		rooms:     rooms,
		conns:     conns,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = server.NewMCPServer(
		"Wizard Relay",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Wizard Relay - MCP Interface

Read-only view of the live rooms on this relay server. Players connect over
WebSocket; these tools only observe (and optionally close) rooms.

AVAILABLE TOOLS:
- list_rooms: List live rooms with status and player counts
- get_room: Show one room's roster and readiness
- relay_stats: Totals for rooms, players and connections
- close_room: Delete a room (operators only, when enabled)

Room codes are 6 characters (A-Z, 0-9) and case-insensitive.`),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server, e.g. for stdio serving
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List live rooms ordered by creation time",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleListRooms)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get the roster and state of one room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"code": map[string]interface{}{
					"type":        "string",
					"description": "Room code",
				},
			},
			Required: []string{"code"},
		},
	}, s.handleGetRoom)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "relay_stats",
		Description: "Summary counts for the relay server",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleRelayStats)

	if s.closer == nil {
		return
	}

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "close_room",
		Description: "Delete a room. Members are dropped from the room without notice.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"code": map[string]interface{}{
					"type":        "string",
					"description": "Room code",
				},
			},
			Required: []string{"code"},
		},
	}, s.handleCloseRoom)
}

// ServeHTTP answers single JSON-RPC messages posted to /mcp
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	response := s.mcpServer.HandleMessage(r.Context(), body)

	w.Header().Set("Content-Type", "application/json")
	responseData, err := json.Marshal(response)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Write(responseData)
}

func (s *Server) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rooms := s.rooms.List()
	if len(rooms) == 0 {
		return mcp.NewToolResultText("No active rooms"), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "%d active room(s)\n\n", len(rooms))
	for _, rm := range rooms {
		info := rm.Snapshot()
		fmt.Fprintf(&result, "%s  %-7s  %d/%d players  canStart=%t  created %s\n",
			info.Code, info.Status, info.PlayerCount, info.MaxPlayers, info.CanStart,
			info.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (s *Server) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	code, _ := args["code"].(string)
	if code == "" {
		return mcp.NewToolResultError("code is required"), nil
	}

	rm, err := s.rooms.Get(code)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("room %s: %v", strings.ToUpper(code), err)), nil
	}

	return mcp.NewToolResultText(formatRoomInfo(rm.Snapshot())), nil
}

func (s *Server) handleRelayStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var lobby, started, players int
	for _, rm := range s.rooms.List() {
		info := rm.Snapshot()
		if info.Status == room.StatusStarted {
			started++
		} else {
			lobby++
		}
		players += info.PlayerCount
	}

	connections := 0
	if s.conns != nil {
		connections = s.conns.ConnectionCount()
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Rooms: %d (lobby %d, started %d)\nPlayers: %d\nConnections: %d\nUptime: %s",
		lobby+started, lobby, started, players, connections,
		time.Since(s.startedAt).Truncate(time.Second))), nil
}

func (s *Server) handleCloseRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	code, _ := args["code"].(string)
	if code == "" {
		return mcp.NewToolResultError("code is required"), nil
	}

	if err := s.closer(code); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("close %s: %v", strings.ToUpper(code), err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Room %s closed", strings.ToUpper(code))), nil
}

func formatRoomInfo(info room.Info) string {
	var result strings.Builder
	fmt.Fprintf(&result, "Room: %s\nStatus: %s\nPlayers: %d/%d (min %d)\nCan start: %t\nGame state: %t\nCreated: %s\n\n",
		info.Code, info.Status, info.PlayerCount, info.MaxPlayers, info.MinPlayers,
		info.CanStart, info.HasGameState, info.CreatedAt.Format("2006-01-02 15:04:05"))

	for i, p := range info.Players {
		var tags []string
		if p.IsHost {
			tags = append(tags, "host")
		}
		if p.IsReady {
			tags = append(tags, "ready")
		}
		fmt.Fprintf(&result, "%d. %s (%s)", i+1, p.Name, p.ID)
		if len(tags) > 0 {
			fmt.Fprintf(&result, " [%s]", strings.Join(tags, ", "))
		}
		result.WriteString("\n")
	}
	return result.String()
}
