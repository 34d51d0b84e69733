package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/inconshreveable/log15/v3"
)

// frame is one relay message
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type player struct {
	name string
	conn *websocket.Conn
	wait time.Duration
}

func dialPlayer(ctx context.Context, url, name string, wait time.Duration) (*player, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: dial %s: %w", name, url, err)
	}
	return &player{name: name, conn: conn, wait: wait}, nil
}

func (p *player) send(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if err := p.conn.WriteJSON(frame{Event: event, Data: raw}); err != nil {
		return fmt.Errorf("%s: send %s: %w", p.name, event, err)
	}
	return nil
}

// expect reads frames until one named event arrives, skipping the others
func (p *player) expect(event string, v any) error {
	deadline := time.Now().Add(p.wait)
	for {
		p.conn.SetReadDeadline(deadline)
		var f frame
		if err := p.conn.ReadJSON(&f); err != nil {
			return fmt.Errorf("%s: waiting for %s: %w", p.name, event, err)
		}
		if f.Event == "error" || f.Event == "join-error" {
			return fmt.Errorf("%s: waiting for %s: got %s %s", p.name, event, f.Event, f.Data)
		}
		if f.Event != event {
			continue
		}
		if v != nil {
			return json.Unmarshal(f.Data, v)
		}
		return nil
	}
}

func (p *player) close() {
	p.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	p.conn.Close()
}

type roomEntered struct {
	RoomCode   string `json:"roomCode"`
	PlayerList []struct {
		Name   string `json:"name"`
		IsHost bool   `json:"isHost"`
	} `json:"playerList"`
}

type listUpdated struct {
	CanStart bool `json:"canStart"`
}

// Report summarises one probe run
type Report struct {
	RoomCode string
	Players  int
	Steps    []Step
}

// Step is one timed phase of the probe
type Step struct {
	Name     string
	Duration time.Duration
}

// Probe drives a full room lifecycle against a relay: create, join, ready,
// start, state sync, chat and leave.
type Probe struct {
	URL     string
	Players int
	Wait    time.Duration
	Log     log15.Logger
}

// Run executes the scenario once
func (pr *Probe) Run(ctx context.Context) (*Report, error) {
	if pr.Players < 3 || pr.Players > 6 {
		return nil, fmt.Errorf("players must be between 3 and 6, got %d", pr.Players)
	}

	report := &Report{Players: pr.Players}
	step := func(name string, fn func() error) error {
		start := time.Now()
		if err := fn(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		d := time.Since(start)
		report.Steps = append(report.Steps, Step{Name: name, Duration: d})
		pr.Log.Debug("step done", "step", name, "duration", d)
		return nil
	}

	players := make([]*player, 0, pr.Players)
	defer func() {
		for _, p := range players {
			p.close()
		}
	}()

	err := step("connect", func() error {
		for i := 0; i < pr.Players; i++ {
			p, err := dialPlayer(ctx, pr.URL, fmt.Sprintf("probe-%d", i+1), pr.Wait)
			if err != nil {
				return err
			}
			players = append(players, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	host, guests := players[0], players[1:]

	err = step("create", func() error {
		if err := host.send("create-room", map[string]string{"playerName": host.name}); err != nil {
			return err
		}
		var entered roomEntered
		if err := host.expect("room-created", &entered); err != nil {
			return err
		}
		report.RoomCode = entered.RoomCode
		return nil
	})
	if err != nil {
		return nil, err
	}
	pr.Log.Info("room created", "room", report.RoomCode)

	err = step("join", func() error {
		for i, g := range guests {
			if err := g.send("join-room", map[string]string{"roomCode": report.RoomCode, "playerName": g.name}); err != nil {
				return err
			}
			var entered roomEntered
			if err := g.expect("room-joined", &entered); err != nil {
				return err
			}
			if len(entered.PlayerList) != i+2 || !entered.PlayerList[0].IsHost {
				return fmt.Errorf("%s: unexpected roster %+v", g.name, entered.PlayerList)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = step("ready", func() error {
		var last listUpdated
		for _, g := range guests {
			if err := g.send("player-ready", map[string]string{"roomCode": report.RoomCode}); err != nil {
				return err
			}
			if err := host.expect("player-list-updated", &last); err != nil {
				return err
			}
		}
		if !last.CanStart {
			return fmt.Errorf("room never became startable")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = step("start", func() error {
		state := map[string]any{"round": 1, "dealer": 0}
		if err := host.send("start-game", map[string]any{"roomCode": report.RoomCode, "gameState": state}); err != nil {
			return err
		}
		for _, p := range players {
			if err := p.expect("game-started", nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = step("sync", func() error {
		state := map[string]any{"round": 1, "trick": 1}
		if err := host.send("sync-game-state", map[string]any{"roomCode": report.RoomCode, "gameState": state}); err != nil {
			return err
		}
		for _, g := range guests {
			if err := g.expect("game-state-updated", nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = step("chat", func() error {
		if err := guests[0].send("chat-message", map[string]string{"roomCode": report.RoomCode, "message": "gl hf"}); err != nil {
			return err
		}
		for _, p := range players {
			if err := p.expect("chat-message", nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = step("leave", func() error {
		if err := guests[0].send("leave-room", map[string]string{"roomCode": report.RoomCode}); err != nil {
			return err
		}
		return host.expect("player-left", nil)
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}
