// Command probe plays one scripted game lobby against a running relay and
// prints how long each phase took. It exits non-zero if any expected event
// is missing, which makes it usable as a deployment smoke test.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := &cli.Command{
		Name:  "probe",
		Usage: "Run a scripted room lifecycle against a relay server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Value:   "ws://localhost:3000/ws",
				Usage:   "Relay WebSocket URL",
				Sources: cli.EnvVars("PROBE_URL"),
			},
			&cli.IntFlag{
				Name:  "players",
				Value: 3,
				Usage: "Number of simulated players (3-6)",
			},
			&cli.DurationFlag{
				Name:  "wait",
				Value: 5 * time.Second,
				Usage: "How long to wait for each expected event",
			},
			&cli.BoolFlag{
				Name:  "v",
				Usage: "Verbose output",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			lvl := log15.LvlInfo
			if cmd.Bool("v") {
				lvl = log15.LvlDebug
			}
			logger := log15.New("cmd", "probe")
			logger.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(os.Stderr, log15.LogfmtFormat())))

			probe := &Probe{
				URL:     cmd.String("url"),
				Players: int(cmd.Int("players")),
				Wait:    cmd.Duration("wait"),
				Log:     logger,
			}

			report, err := probe.Run(ctx)
			if err != nil {
				return err
			}
			printReport(cmd.Root().Writer, report)
			return nil
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		os.Exit(1)
	}
}

func printReport(w io.Writer, r *Report) {
	var total time.Duration
	fmt.Fprintf(w, "Room %s with %d players\n", r.RoomCode, r.Players)
	for _, s := range r.Steps {
		fmt.Fprintf(w, "  %-8s %s\n", s.Name, s.Duration.Round(time.Microsecond))
		total += s.Duration
	}
	fmt.Fprintf(w, "  %-8s %s\n", "total", total.Round(time.Microsecond))
}
