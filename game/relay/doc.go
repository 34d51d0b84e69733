// Package relay is the per-connection session router.
//
// Each inbound event is looked up in a handler table keyed by event name.
// Handlers take the registry, the sender's connection ID and the raw payload,
// run the matching room operation and return an ordered list of Effects:
// unicast, broadcast (optionally excluding the sender), subscribe and
// unsubscribe. The transport applies them; the router never writes to a
// socket, so every handler can be exercised without one.
//
// Events:
//
//	create-room      → room-created (unicast) + subscribe
//	join-room        → room-joined (unicast) + subscribe + player-joined (broadcast) | join-error
//	player-ready     → player-list-updated (broadcast)
//	start-game       → game-started (broadcast) | error (unicast)
//	sync-game-state  → game-state-updated (broadcast, sender excluded)
//	player-action    → player-action (broadcast, sender excluded)
//	chat-message     → chat-message (broadcast, sender included)
//	leave-room       → unsubscribe + player-left (broadcast) or room deletion
//
// Events that reference an unknown room or a player who is no longer a
// member are dropped silently: the sender most likely raced a disconnect or
// an expiry sweep.
package relay
