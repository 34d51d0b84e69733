package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/inconshreveable/log15/v3"
	"github.com/wricardo/wizard-relay/game/room"
)

// RoomSource is the read side of the room registry
type RoomSource interface {
	List() []*room.Room
	Get(code string) (*room.Room, error)
	Count() int
}

// Hub upgrades websocket requests and counts connections
type Hub interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	ConnectionCount() int
}

// Server represents the HTTP surface of the relay
type Server struct {
	rooms     RoomSource
	hub       Hub
	mcp       http.Handler
	staticDir string
	log       log15.Logger
	router    *mux.Router
}

// Option configures a Server
type Option func(*Server)

// WithStaticDir serves files from dir at /
func WithStaticDir(dir string) Option {
	return func(s *Server) {
		s.staticDir = dir
	}
}

// WithMCP mounts an MCP JSON-RPC handler at POST /mcp
func WithMCP(h http.Handler) Option {
	return func(s *Server) {
		s.mcp = h
	}
}

// WithLogger sets the request logger
func WithLogger(l log15.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// NewServer creates a new API server
func NewServer(rooms RoomSource, hub Hub, opts ...Option) *Server {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())

	s := &Server{
		rooms:  rooms,
		hub:    hub,
		log:    logger,
		router: mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.logRequests)

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{code}", s.handleGetRoom).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.hub.ServeWS)

	if s.mcp != nil {
		s.router.Handle("/mcp", s.mcp).Methods("POST")
	}

	if s.staticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"rooms":       s.rooms.Count(),
		"connections": s.hub.ConnectionCount(),
	})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	status := query.Get("status") // "lobby", "started" or empty for all
	order := query.Get("order")   // "asc" (default), "desc"
	limitStr := query.Get("limit")

	if order == "" {
		order = "asc"
	}
	if status != "" && status != string(room.StatusLobby) && status != string(room.StatusStarted) {
		respondError(w, http.StatusBadRequest, "status must be lobby or started")
		return
	}

	rooms := make([]room.Info, 0)
	for _, rm := range s.rooms.List() {
		info := rm.Snapshot()
		if status != "" && string(info.Status) != status {
			continue
		}
		rooms = append(rooms, info)
	}
	total := len(rooms)

	sort.SliceStable(rooms, func(i, j int) bool {
		if order == "desc" {
			return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})

	// Apply limit if specified
	limit := len(rooms)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(rooms) {
			limit = l
		}
	}
	rooms = rooms[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"total": total,
		"rooms": rooms,
		"order": order,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	rm, err := s.rooms.Get(code)
	if err != nil {
		respondError(w, http.StatusNotFound, "Room not found")
		return
	}

	respondJSON(w, http.StatusOK, rm.Snapshot())
}
