package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/inconshreveable/log15/v3"
	"github.com/wricardo/wizard-relay/game/relay"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Outbound frames buffered per client before it is considered stuck.
	sendBuffer = 256
)

// Router turns inbound events into effects
type Router interface {
	Handle(connID string, env relay.Envelope) []relay.Effect
	Disconnect(connID string) []relay.Effect
}

// Client is one websocket connection
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	id    string
	rooms map[string]bool
}

// ID returns the connection identifier used as player ID
func (c *Client) ID() string {
	return c.id
}

type inbound struct {
	client *Client
	raw    []byte
}

// Hub owns every connection and its broadcast groups. All group and client
// bookkeeping happens on the Run goroutine.
type Hub struct {
	router   Router
	log      log15.Logger
	upgrader websocket.Upgrader

	// Registered clients by connection ID
	clients map[string]*Client

	// Broadcast groups by room code
	groups map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	dispatch   chan []relay.Effect
	done       chan struct{}

	connections atomic.Int64
}

// Option configures a Hub
type Option func(*Hub)

// WithLogger sets the hub logger
func WithLogger(l log15.Logger) Option {
	return func(h *Hub) {
		h.log = l
	}
}

// WithAllowedOrigins restricts websocket upgrades to the given origins.
// An empty list allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Hub) {
		if len(origins) == 0 {
			return
		}
		allowed := make(map[string]bool, len(origins))
		for _, o := range origins {
			allowed[o] = true
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		}
	}
}

// NewHub creates a hub that routes inbound events through router
func NewHub(router Router, opts ...Option) *Hub {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())

	h := &Hub{
		router: router,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:    make(map[string]*Client),
		groups:     make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound),
		dispatch:   make(chan []relay.Effect),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts the hub's event loop and blocks until ctx is cancelled
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case in := <-h.inbound:
			h.handleInbound(in)

		case effects := <-h.dispatch:
			h.apply(effects)
		}
	}
}

// Dispatch applies effects produced outside a client event, such as an
// expiry sweep. It blocks until the hub accepts them or has stopped.
func (h *Hub) Dispatch(effects []relay.Effect) {
	if len(effects) == 0 {
		return
	}
	select {
	case h.dispatch <- effects:
	case <-h.done:
	}
}

// ConnectionCount returns the number of open connections
func (h *Hub) ConnectionCount() int {
	return int(h.connections.Load())
}

// ServeWS upgrades the request and attaches the connection to the hub
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		id:    uuid.NewString(),
		rooms: make(map[string]bool),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) registerClient(client *Client) {
	h.clients[client.id] = client
	n := h.connections.Add(1)
	h.log.Info("client connected", "conn", client.id, "remote", remoteAddr(client), "connections", n)
}

func (h *Hub) unregisterClient(client *Client) {
	if h.clients[client.id] != client {
		return
	}

	h.apply(h.route(client.id, "disconnect", func() []relay.Effect {
		return h.router.Disconnect(client.id)
	}))

	for code := range client.rooms {
		h.leaveGroup(client, code)
	}
	delete(h.clients, client.id)
	close(client.send)

	n := h.connections.Add(-1)
	h.log.Info("client disconnected", "conn", client.id, "connections", n)
}

func (h *Hub) handleInbound(in inbound) {
	if h.clients[in.client.id] != in.client {
		return
	}

	var env relay.Envelope
	if err := json.Unmarshal(in.raw, &env); err != nil || env.Event == "" {
		h.log.Debug("malformed frame", "conn", in.client.id, "err", err)
		h.apply([]relay.Effect{relay.InvalidPayload(in.client.id)})
		return
	}

	h.apply(h.route(in.client.id, env.Event, func() []relay.Effect {
		return h.router.Handle(in.client.id, env)
	}))
}

// route runs fn and turns a panic into an internal error for connID
func (h *Hub) route(connID, event string, fn func() []relay.Effect) (effects []relay.Effect) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("handler panic", "conn", connID, "event", event, "panic", r)
			effects = []relay.Effect{relay.InternalError(connID)}
		}
	}()
	return fn()
}

// apply executes effects in order
func (h *Hub) apply(effects []relay.Effect) {
	for _, e := range effects {
		switch e.Kind {
		case relay.Unicast:
			client, ok := h.clients[e.ConnID]
			if !ok {
				continue
			}
			if data, ok := h.encode(e.Message); ok {
				h.deliver(client, data)
			}

		case relay.Broadcast:
			members := h.groups[e.Room]
			if len(members) == 0 {
				continue
			}
			data, ok := h.encode(e.Message)
			if !ok {
				continue
			}
			for client := range members {
				if client.id == e.Exclude {
					continue
				}
				h.deliver(client, data)
			}

		case relay.Subscribe:
			client, ok := h.clients[e.ConnID]
			if !ok {
				continue
			}
			if h.groups[e.Room] == nil {
				h.groups[e.Room] = make(map[*Client]bool)
			}
			h.groups[e.Room][client] = true
			client.rooms[e.Room] = true

		case relay.Unsubscribe:
			if client, ok := h.clients[e.ConnID]; ok {
				h.leaveGroup(client, e.Room)
			}
		}
	}
}

func (h *Hub) leaveGroup(client *Client, code string) {
	delete(client.rooms, code)
	if members, ok := h.groups[code]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.groups, code)
		}
	}
}

func (h *Hub) encode(msg relay.Message) ([]byte, bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal message", "event", msg.Event, "err", err)
		return nil, false
	}
	return data, true
}

// deliver queues data for client. A client whose buffer is full is
// disconnected; its read pump then unregisters it.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.log.Warn("client send buffer full, closing", "conn", client.id)
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

func (h *Hub) shutdown() {
	close(h.done)
	for id, client := range h.clients {
		close(client.send)
		delete(h.clients, id)
	}
	h.groups = make(map[string]map[*Client]bool)
	h.connections.Store(0)
}

func remoteAddr(c *Client) string {
	if c.conn == nil {
		return ""
	}
	return c.conn.RemoteAddr().String()
}

// readPump pumps frames from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("websocket read error", "conn", c.id, "err", err)
			}
			return
		}

		select {
		case c.hub.inbound <- inbound{client: c, raw: raw}:
		case <-c.hub.done:
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection, one
// frame per message
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
