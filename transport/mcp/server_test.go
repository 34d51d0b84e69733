package mcp

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wricardo/wizard-relay/game/registry"
)

type staticConns int

func (c staticConns) ConnectionCount() int { return int(c) }

func newTestRooms(t *testing.T) *registry.Registry {
	t.Helper()
	codes := []string{"AB12C3", "XY98Z7"}
	i := 0
	rooms := registry.New(registry.WithCodeGenerator(func(exists func(string) bool) string {
		c := codes[i%len(codes)]
		i++
		return c
	}))

	lobby := rooms.Create("host-1", "Alice")
	lobby.AddPlayer("guest-1", "Bob")

	started := rooms.Create("host-2", "Carol")
	started.AddPlayer("guest-2", "Dan")
	started.AddPlayer("guest-3", "Eve")
	started.ToggleReady("guest-2")
	started.ToggleReady("guest-3")
	if err := started.Start("host-2", []byte(`{"round":1}`)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return rooms
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (string, bool) {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
	result, err := handler(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text, result.IsError
}

func TestNewServer(t *testing.T) {
	s := NewServer(registry.New(), staticConns(0), "test")
	if s.MCPServer() == nil {
		t.Fatal("Expected MCP server to be initialized")
	}
}

func TestServer_ListRooms(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		s := NewServer(registry.New(), staticConns(0), "test")
		text, _ := callTool(t, s.handleListRooms, map[string]interface{}{})
		if text != "No active rooms" {
			t.Errorf("Unexpected output: %s", text)
		}
	})

	t.Run("rooms listed", func(t *testing.T) {
		s := NewServer(newTestRooms(t), staticConns(0), "test")
		text, _ := callTool(t, s.handleListRooms, map[string]interface{}{})
		if !strings.Contains(text, "2 active room(s)") {
			t.Errorf("Expected room count, got: %s", text)
		}
		if !strings.Contains(text, "AB12C3  lobby") || !strings.Contains(text, "XY98Z7  started") {
			t.Errorf("Expected both rooms, got: %s", text)
		}
	})
}

func TestServer_GetRoom(t *testing.T) {
	s := NewServer(newTestRooms(t), staticConns(0), "test")

	text, isErr := callTool(t, s.handleGetRoom, map[string]interface{}{"code": "ab12c3"})
	if isErr {
		t.Fatalf("Unexpected error: %s", text)
	}
	if !strings.Contains(text, "Room: AB12C3") || !strings.Contains(text, "1. Alice (host-1) [host]") {
		t.Errorf("Unexpected room output: %s", text)
	}
	if !strings.Contains(text, "2. Bob (guest-1)\n") {
		t.Errorf("Expected Bob without tags, got: %s", text)
	}

	text, isErr = callTool(t, s.handleGetRoom, map[string]interface{}{"code": "ZZZZZZ"})
	if !isErr || !strings.Contains(text, "room not found") {
		t.Errorf("Expected not found error, got: %s", text)
	}

	_, isErr = callTool(t, s.handleGetRoom, map[string]interface{}{})
	if !isErr {
		t.Error("Missing code should be an error")
	}
}

func TestServer_RelayStats(t *testing.T) {
	s := NewServer(newTestRooms(t), staticConns(4), "test")

	text, _ := callTool(t, s.handleRelayStats, map[string]interface{}{})
	for _, want := range []string{"Rooms: 2 (lobby 1, started 1)", "Players: 5", "Connections: 4"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in output: %s", want, text)
		}
	}
}

func TestServer_CloseRoom(t *testing.T) {
	var closed []string
	closer := func(code string) error {
		if code == "ZZZZZZ" {
			return errors.New("room not found")
		}
		closed = append(closed, code)
		return nil
	}
	s := NewServer(registry.New(), staticConns(0), "test", WithRoomCloser(closer))

	text, isErr := callTool(t, s.handleCloseRoom, map[string]interface{}{"code": "ab12c3"})
	if isErr || text != "Room AB12C3 closed" {
		t.Errorf("Unexpected output: %s", text)
	}
	if len(closed) != 1 || closed[0] != "ab12c3" {
		t.Errorf("Expected closer called once, got %v", closed)
	}

	_, isErr = callTool(t, s.handleCloseRoom, map[string]interface{}{"code": "ZZZZZZ"})
	if !isErr {
		t.Error("Expected error result for failed close")
	}
}

func TestServer_ServeHTTP(t *testing.T) {
	s := NewServer(registry.New(), staticConns(0), "test")

	t.Run("tools list", func(t *testing.T) {
		body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
		req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "list_rooms") {
			t.Errorf("Expected list_rooms in tools, got %s", rec.Body.String())
		}
		if strings.Contains(rec.Body.String(), "close_room") {
			t.Error("close_room should not be registered without a closer")
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected 405, got %d", rec.Code)
		}
	})
}
