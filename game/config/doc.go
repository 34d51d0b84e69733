// Package config loads relay server settings from the environment.
//
// Values come from process environment variables, optionally seeded from a
// .env file. Every setting has a default so the server starts with no
// configuration at all.
//
// Variables:
//
//	HOST              listen host (default: all interfaces)
//	PORT              listen port (default 3000)
//	STATIC_DIR        directory served at / (default ./static)
//	SWEEP_INTERVAL    how often expired rooms are collected (default 5m)
//	ROOM_RETENTION    maximum room age (default 1h)
//	ALLOWED_ORIGINS   comma-separated websocket origins (default: any)
//	MCP_ALLOW_CLOSE   register the close_room MCP tool (default false)
//	NGROK_ENABLED     expose the server through an ngrok tunnel
//	NGROK_AUTHTOKEN   ngrok auth token
//	NGROK_DOMAIN      reserved ngrok domain (optional)
//
// Usage:
//
//	if err := config.LoadEnvFile(".env"); err != nil {
//		return err
//	}
//	cfg, err := config.Load()
//	if err != nil {
//		return err
//	}
//	http.ListenAndServe(cfg.Addr(), handler)
package config
