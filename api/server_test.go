package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/wizard-relay/game/registry"
	"github.com/wricardo/wizard-relay/game/room"
)

// MockHub records websocket upgrade attempts
type MockHub struct {
	served      int
	connections int
}

func (m *MockHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	m.served++
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func (m *MockHub) ConnectionCount() int {
	return m.connections
}

// Test helpers
func setupTestRooms(t *testing.T) *registry.Registry {
	t.Helper()
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	codes := []string{"AAAAAA", "BBBBBB", "CCCCCC"}
	i := 0
	rooms := registry.New(
		registry.WithClock(func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		}),
		registry.WithCodeGenerator(func(exists func(string) bool) string {
			c := codes[i%len(codes)]
			i++
			return c
		}),
	)

	rooms.Create("h1", "Alice")
	b := rooms.Create("h2", "Bob")
	b.AddPlayer("g2", "Gus")
	b.AddPlayer("g3", "Hal")
	b.ToggleReady("g2")
	b.ToggleReady("g3")
	if err := b.Start("h2", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	rooms.Create("h3", "Cid")
	return rooms
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

type listResponse struct {
	Count int         `json:"count"`
	Total int         `json:"total"`
	Rooms []room.Info `json:"rooms"`
	Order string      `json:"order"`
}

func TestHealth(t *testing.T) {
	server := NewServer(setupTestRooms(t), &MockHub{connections: 7})
	w := httptest.NewRecorder()

	server.ServeHTTP(w, makeRequest("GET", "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]interface{}
	parseResponse(t, w, &resp)
	if resp["status"] != "healthy" || resp["rooms"] != float64(3) || resp["connections"] != float64(7) {
		t.Errorf("Unexpected health response: %v", resp)
	}
}

func TestListRooms(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		expectedStatus int
		validateResp   func(*testing.T, listResponse)
	}{
		{
			name:           "all rooms oldest first",
			path:           "/api/rooms",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, resp listResponse) {
				if resp.Count != 3 || resp.Total != 3 {
					t.Errorf("Expected 3 rooms, got %d/%d", resp.Count, resp.Total)
				}
				if resp.Rooms[0].Code != "AAAAAA" || resp.Rooms[2].Code != "CCCCCC" {
					t.Errorf("Unexpected order: %s..%s", resp.Rooms[0].Code, resp.Rooms[2].Code)
				}
			},
		},
		{
			name:           "newest first with limit",
			path:           "/api/rooms?order=desc&limit=1",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, resp listResponse) {
				if resp.Count != 1 || resp.Total != 3 {
					t.Errorf("Expected 1 of 3, got %d/%d", resp.Count, resp.Total)
				}
				if resp.Rooms[0].Code != "CCCCCC" {
					t.Errorf("Expected CCCCCC first, got %s", resp.Rooms[0].Code)
				}
			},
		},
		{
			name:           "filter started",
			path:           "/api/rooms?status=started",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, resp listResponse) {
				if resp.Count != 1 || resp.Rooms[0].Code != "BBBBBB" {
					t.Errorf("Expected only BBBBBB, got %+v", resp.Rooms)
				}
				if !resp.Rooms[0].HasGameState || resp.Rooms[0].PlayerCount != 3 {
					t.Errorf("Unexpected snapshot: %+v", resp.Rooms[0])
				}
			},
		},
		{
			name:           "bad status filter",
			path:           "/api/rooms?status=finished",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer(setupTestRooms(t), &MockHub{})
			w := httptest.NewRecorder()

			server.ServeHTTP(w, makeRequest("GET", tt.path, nil))

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				var resp listResponse
				parseResponse(t, w, &resp)
				tt.validateResp(t, resp)
			}
		})
	}
}

func TestGetRoom(t *testing.T) {
	server := NewServer(setupTestRooms(t), &MockHub{})

	t.Run("found", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := makeRequest("GET", "/api/rooms/bbbbbb", nil)
		req = mux.SetURLVars(req, map[string]string{"code": "bbbbbb"})

		server.handleGetRoom(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var info room.Info
		parseResponse(t, w, &info)
		if info.Code != "BBBBBB" || info.Status != room.StatusStarted {
			t.Errorf("Unexpected room: %+v", info)
		}
		if len(info.Players) != 3 || !info.Players[0].IsHost {
			t.Errorf("Unexpected roster: %+v", info.Players)
		}
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/rooms/ZZZZZZ", nil))

		if w.Code != http.StatusNotFound {
			t.Fatalf("Expected status 404, got %d", w.Code)
		}
		var resp map[string]string
		parseResponse(t, w, &resp)
		if resp["error"] != "Room not found" {
			t.Errorf("Unexpected error: %v", resp)
		}
	})
}

func TestWebSocketRoute(t *testing.T) {
	hub := &MockHub{}
	server := NewServer(registry.New(), hub)
	w := httptest.NewRecorder()

	server.ServeHTTP(w, makeRequest("GET", "/ws", nil))

	if hub.served != 1 {
		t.Errorf("Expected hub to serve the upgrade, got %d calls", hub.served)
	}
}

func TestMCPRoute(t *testing.T) {
	var got string
	mcp := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Method
		w.Write([]byte(`{}`))
	})
	server := NewServer(registry.New(), &MockHub{}, WithMCP(mcp))

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/mcp", map[string]string{"jsonrpc": "2.0"}))
	if got != "POST" || w.Code != http.StatusOK {
		t.Errorf("Expected MCP handler to serve POST, got %q / %d", got, w.Code)
	}
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>wizard</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	server := NewServer(registry.New(), &MockHub{}, WithStaticDir(dir))

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/", nil))

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "wizard") {
		t.Errorf("Expected index.html, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("API routes must take precedence over static files, got %d", w.Code)
	}
}
