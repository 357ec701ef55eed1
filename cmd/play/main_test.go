package main

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/wricardo/territory-game/game/config"
	"github.com/wricardo/territory-game/game/engine"
)

func newTestGame(t *testing.T, name string) (*game, tcell.SimulationScreen) {
	t.Helper()
	manager, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	cfg, err := manager.LoadConfig(name)
	if err != nil {
		t.Fatalf("Failed to load config %s: %v", name, err)
	}
	cfg = cfg.Clone()
	cfg.Seed = 99

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("Failed to init screen: %v", err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(120, 60)

	g, err := newGame(screen, cfg)
	if err != nil {
		t.Fatalf("newGame failed: %v", err)
	}
	return g, screen
}

func key(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func lastInput(t *testing.T, g *game) engine.InputRecord {
	t.Helper()
	log := g.engine.InputLog()
	if len(log) == 0 {
		t.Fatal("Expected an input to be recorded")
	}
	return log[len(log)-1]
}

func TestKeyBindings_SinglePlayer(t *testing.T) {
	g, _ := newTestGame(t, "sandbox")

	if len(g.humans) != 1 {
		t.Fatalf("Expected 1 human, got %d", len(g.humans))
	}

	tests := []struct {
		name string
		ev   *tcell.EventKey
		want engine.Direction
	}{
		{"arrow up", key(tcell.KeyUp), engine.North},
		{"arrow left", key(tcell.KeyLeft), engine.West},
		{"wasd s", runeKey('s'), engine.South},
		{"uppercase D", runeKey('D'), engine.East},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.handleEvent(tt.ev)
			in := lastInput(t, g)
			if in.Entity != g.humans[0] || in.Direction != tt.want {
				t.Errorf("Expected entity %d heading %s, got %+v", g.humans[0], tt.want, in)
			}
		})
	}
}

func TestKeyBindings_TwoPlayers(t *testing.T) {
	g, _ := newTestGame(t, "duel")

	if len(g.humans) != 2 {
		t.Fatalf("Expected 2 humans, got %d", len(g.humans))
	}

	g.handleEvent(key(tcell.KeyDown))
	if in := lastInput(t, g); in.Entity != g.humans[0] || in.Direction != engine.South {
		t.Errorf("Expected arrows to steer the first human, got %+v", in)
	}

	g.handleEvent(runeKey('w'))
	if in := lastInput(t, g); in.Entity != g.humans[1] || in.Direction != engine.North {
		t.Errorf("Expected WASD to steer the second human, got %+v", in)
	}
}

func TestControlKeys(t *testing.T) {
	g, _ := newTestGame(t, "sandbox")

	g.handleEvent(runeKey('p'))
	if !g.engine.IsPaused() || g.status != "Paused" {
		t.Errorf("Expected paused, got paused=%v status=%q", g.engine.IsPaused(), g.status)
	}
	g.handleEvent(runeKey('p'))
	if g.engine.IsPaused() {
		t.Error("Expected p to resume")
	}

	for i := 0; i < 3; i++ {
		if _, err := g.engine.Tick(); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
	}
	g.handleEvent(runeKey('r'))
	if g.engine.Ticks() != 0 {
		t.Errorf("Expected r to restart at tick 0, got %d", g.engine.Ticks())
	}
	if !strings.Contains(g.status, "seed 99") {
		t.Errorf("Expected restart status with the seed, got %q", g.status)
	}

	g.handleEvent(key(tcell.KeyF1))
	if g.quit {
		t.Error("Unbound keys must not quit")
	}

	g.handleEvent(runeKey('q'))
	if !g.quit {
		t.Error("Expected q to quit")
	}
}

func TestFrameFollowsClock(t *testing.T) {
	g, _ := newTestGame(t, "sandbox")

	frames := g.config.EffectiveFramesPerTick()
	for i := 0; i < frames; i++ {
		if err := g.frame(); err != nil {
			t.Fatalf("frame failed: %v", err)
		}
	}
	if g.engine.Ticks() != 1 {
		t.Errorf("Expected 1 tick after %d frames, got %d", frames, g.engine.Ticks())
	}
}

func TestDraw(t *testing.T) {
	g, screen := newTestGame(t, "sandbox")
	g.draw()

	snap, err := g.engine.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	for _, e := range snap.Entities {
		r, _, _, _ := screen.GetContent(2*e.Position.X, boardTop+e.Position.Y)
		if r != '@' {
			t.Errorf("Expected '@' at the head of %s, got %q", e.Name, r)
		}
	}

	header := ""
	for x := 0; x < 20; x++ {
		r, _, _, _ := screen.GetContent(x, 0)
		header += string(r)
	}
	if !strings.HasPrefix(header, "sandbox  tick 0") {
		t.Errorf("Expected header to start with the config name and tick, got %q", header)
	}

	r, _, _, _ := screen.GetContent(0, boardTop+snap.Height+1)
	if r != '1' {
		t.Errorf("Expected the scoreboard below the status line, got %q", r)
	}
}
