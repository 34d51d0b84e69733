// Package websocket carries relay events over WebSocket connections.
//
// Architecture:
//
// A central Hub owns every connection. Each connection runs a read pump and
// a write pump goroutine; the pumps only move bytes. Registration, inbound
// events, disconnects and externally dispatched effects are all handled on
// the Hub's Run goroutine, one at a time, so the effects of one event reach
// every recipient before the next event is looked at.
//
// Each connection gets a random UUID on upgrade. That ID is the player ID
// seen by the relay router and by other players.
//
// Message Protocol:
//
// Every frame in both directions is a single JSON text message:
//
//	{"event": "join-room", "data": {"roomCode": "AB12C3", "playerName": "Bob"}}
//
// Frames that are not JSON or lack an event name get an error frame back.
//
// Broadcast Groups:
//
// Rooms map to broadcast groups keyed by room code. The router adds and
// removes members through Subscribe and Unsubscribe effects; the hub also
// drops a connection from every group when it closes.
//
// Usage:
//
//	hub := websocket.NewHub(router, websocket.WithLogger(logger))
//	go hub.Run(ctx)
//	http.HandleFunc("/ws", hub.ServeWS)
package websocket
