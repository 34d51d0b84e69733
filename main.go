// Command wizard-relay runs the real-time room relay for browser card games.
//
// It supports two modes:
//  1. "serve" (default) – runs the HTTP server exposing the WebSocket relay, the
//     inspection API, static files and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs the same server and additionally serves MCP on stdio
//
// Settings come from the environment (optionally seeded from a .env file);
// see package game/config. An ngrok tunnel can expose the server publicly
// during development.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/wizard-relay/api"
	"github.com/wricardo/wizard-relay/game/config"
	"github.com/wricardo/wizard-relay/game/registry"
	"github.com/wricardo/wizard-relay/game/relay"
	"github.com/wricardo/wizard-relay/game/room"
	"github.com/wricardo/wizard-relay/transport/mcp"
	"github.com/wricardo/wizard-relay/transport/websocket"
	"go.uber.org/multierr"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Wizard Relay"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "wizard-relay",
		Usage:   "Real-time room relay for browser card games",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "Environment file to load before reading settings",
			},
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run the relay with WebSocket, API and MCP endpoints (default)",
				Action:  runServe,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run the relay and serve MCP over stdio",
				Action:  runStdioMCP,
			},
			{
				Name:  "version",
				Usage: "Show version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Fprintf(cmd.Root().Writer, "%s v%s\n", AppName, Version)
					return nil
				},
			},
		},
	}
}

// newLogger builds the root logger. Output is logfmt so it stays readable
// on stderr next to stdio MCP traffic.
func newLogger(debug bool, w io.Writer) log15.Logger {
	lvl := log15.LvlInfo
	if debug {
		lvl = log15.LvlDebug
	}

	logger := log15.New("app", "wizard-relay")
	logger.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(w, log15.LogfmtFormat())))
	return logger
}

// setup loads settings and wires the application
func setup(cmd *cli.Command) (*app, error) {
	if err := config.LoadEnvFile(cmd.String("env-file")); err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cmd.Bool("debug"), os.Stderr)
	logger.Info("starting", "version", Version, "addr", cfg.Addr(), "static", cfg.StaticDir,
		"sweep", cfg.SweepInterval, "retention", cfg.RoomRetention, "mcp_close", cfg.MCPAllowClose)

	return newApp(cfg, logger), nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	return a.run(ctx)
}

func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	return a.run(ctx, func(ctx context.Context) error {
		// stdin closing ends the whole process
		defer cancel()

		a.log.Info("serving MCP on stdio")
		err := server.NewStdioServer(a.mcp.MCPServer()).Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio mcp: %w", err)
		}
		return nil
	})
}

// app holds the wired components of one relay process
type app struct {
	cfg     config.Config
	log     log15.Logger
	rooms   *registry.Registry
	router  *relay.Router
	hub     *websocket.Hub
	mcp     *mcp.Server
	handler http.Handler
}

func newApp(cfg config.Config, logger log15.Logger) *app {
	a := &app{
		cfg: cfg,
		log: logger,
	}

	a.rooms = registry.New(registry.WithLogger(logger.New("module", "registry")))
	a.router = relay.NewRouter(a.rooms, logger.New("module", "relay"))
	a.hub = websocket.NewHub(a.router,
		websocket.WithLogger(logger.New("module", "websocket")),
		websocket.WithAllowedOrigins(cfg.AllowedOrigins),
	)
	var mcpOpts []mcp.Option
	if cfg.MCPAllowClose {
		mcpOpts = append(mcpOpts, mcp.WithRoomCloser(a.closeRoom))
	}
	a.mcp = mcp.NewServer(a.rooms, a.hub, Version, mcpOpts...)
	a.handler = api.NewServer(a.rooms, a.hub,
		api.WithStaticDir(cfg.StaticDir),
		api.WithMCP(a.mcp),
		api.WithLogger(logger.New("module", "api")),
	)
	return a
}

// closeRoom deletes a room and drops its members from the broadcast group
func (a *app) closeRoom(code string) error {
	effects, err := a.router.CloseRoom(code)
	if err != nil {
		return err
	}
	a.hub.Dispatch(effects)
	return nil
}

// sweep removes rooms that are empty or older than the retention period
func (a *app) sweep(now time.Time) int {
	return a.rooms.Sweep(now, a.cfg.RoomRetention, func(code string, rm *room.Room) {
		a.hub.Dispatch(a.router.Expire(rm))
	})
}

func (a *app) sweepRoutine(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := a.sweep(now); n > 0 {
				a.log.Info("expired rooms swept", "count", n, "remaining", a.rooms.Count())
			}
		}
	}
}

// run serves until ctx is cancelled or a component fails. extra functions
// run alongside the server in the same group.
func (a *app) run(ctx context.Context, extra ...func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)

	httpServer := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           a.handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	servers := []*http.Server{httpServer}

	g.Go(func() error {
		return a.hub.Run(ctx)
	})

	g.Go(func() error {
		return a.sweepRoutine(ctx)
	})

	g.Go(func() error {
		a.log.Info("http server listening", "addr", a.cfg.Addr(),
			"ws", fmt.Sprintf("ws://%s/ws", a.cfg.Addr()),
			"mcp", fmt.Sprintf("http://%s/mcp", a.cfg.Addr()))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.cfg.Ngrok.Enabled {
		tunnelServer := &http.Server{
			Handler:           a.handler,
			ReadHeaderTimeout: 15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		servers = append(servers, tunnelServer)

		g.Go(func() error {
			return a.serveNgrok(ctx, tunnelServer)
		})
	}

	for _, fn := range extra {
		g.Go(func() error {
			return fn(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("shutting down")
		return shutdown(servers...)
	})

	err := g.Wait()
	a.log.Info("server stopped", "err", err)
	return err
}

// serveNgrok exposes the handler through an ngrok tunnel. Tunnel failures
// are logged and leave the local server running.
func (a *app) serveNgrok(ctx context.Context, srv *http.Server) error {
	var tunnel ngrokConfig.Tunnel
	if a.cfg.Ngrok.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(a.cfg.Ngrok.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(a.cfg.Ngrok.AuthToken))
	if err != nil {
		a.log.Warn("failed to start ngrok tunnel", "err", err)
		return nil
	}

	url := tun.URL()
	a.log.Info("ngrok tunnel established", "url", url, "api", url+"/api", "mcp", url+"/mcp")

	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.log.Warn("ngrok server error", "err", err)
	}
	a.log.Info("ngrok tunnel closed")
	return nil
}

func shutdown(servers ...*http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error
	for _, srv := range servers {
		err = multierr.Append(err, srv.Shutdown(ctx))
	}
	return err
}
