// Command play runs a territory game in the terminal.
//
// The first human steers with the arrow keys, the second with WASD. With a
// single human both sets work. p pauses, r restarts with the same seed and
// q or Esc quits.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"
	"unicode"

	"github.com/gdamore/tcell/v2"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/territory-game/game/config"
	"github.com/wricardo/territory-game/game/engine"
)

// boardTop is the screen row of the board's first line.
const boardTop = 1

var (
	styleDefault = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	styleHeader  = styleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleFree    = styleDefault.Foreground(tcell.ColorDarkGray)
	styleStatus  = styleDefault.Foreground(tcell.ColorYellow)
)

var arrowKeys = map[tcell.Key]engine.Direction{
	tcell.KeyUp:    engine.North,
	tcell.KeyRight: engine.East,
	tcell.KeyDown:  engine.South,
	tcell.KeyLeft:  engine.West,
}

var wasdKeys = map[rune]engine.Direction{
	'w': engine.North,
	'd': engine.East,
	's': engine.South,
	'a': engine.West,
}

type game struct {
	screen tcell.Screen
	engine *engine.GameEngine
	config *engine.GameConfig
	humans []engine.EntityID
	status string
	quit   bool
}

func newGame(screen tcell.Screen, cfg *engine.GameConfig) (*game, error) {
	e, err := engine.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	g := &game{screen: screen, engine: e, config: cfg}
	g.findHumans()
	g.status = "Arrows/WASD steer, p pause, r restart, q quit"
	return g, nil
}

func (g *game) findHumans() {
	g.humans = g.humans[:0]
	live, err := g.engine.LiveEntities()
	if err != nil {
		return
	}
	for _, e := range live {
		if e.Kind == engine.KindHuman {
			g.humans = append(g.humans, e.ID)
		}
	}
}

// player returns the entity a key set controls: 0 for arrows, 1 for WASD.
func (g *game) player(set int) (engine.EntityID, bool) {
	if len(g.humans) == 0 {
		return engine.NoEntity, false
	}
	if set < len(g.humans) {
		return g.humans[set], true
	}
	return g.humans[0], true
}

func (g *game) steer(set int, d engine.Direction) {
	id, ok := g.player(set)
	if !ok {
		return
	}
	if err := g.engine.SetDirection(id, d); err != nil {
		g.status = err.Error()
	}
}

func (g *game) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		g.screen.Sync()
	case *tcell.EventKey:
		g.handleKey(ev)
	}
}

func (g *game) handleKey(ev *tcell.EventKey) {
	if d, ok := arrowKeys[ev.Key()]; ok {
		g.steer(0, d)
		return
	}

	if ev.Key() != tcell.KeyRune {
		if ev.Key() == tcell.KeyCtrlC || ev.Key() == tcell.KeyEscape {
			g.quit = true
		}
		return
	}

	r := unicode.ToLower(ev.Rune())
	if d, ok := wasdKeys[r]; ok {
		g.steer(1, d)
		return
	}
	switch r {
	case 'q':
		g.quit = true
	case 'p':
		if g.engine.IsPaused() {
			g.engine.Unpause()
			g.status = "Resumed"
		} else {
			g.engine.Pause()
			g.status = "Paused"
		}
	case 'r':
		if err := g.engine.Reset(); err != nil {
			g.status = err.Error()
			return
		}
		g.findHumans()
		g.status = fmt.Sprintf("Restarted with seed %d", g.engine.Seed())
	}
}

// frame advances the engine clock by one frame.
func (g *game) frame() error {
	res, err := g.engine.Frame()
	if err != nil {
		return err
	}
	for _, ev := range res.Events {
		switch ev.Type {
		case engine.EventDeath, engine.EventGameOver:
			g.status = ev.Message
		}
	}
	if res.GameOver != nil {
		g.status += " | r restart, q quit"
	}
	return nil
}

func entityColor(c engine.Color) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for i, r := range []rune(text) {
		s.SetContent(x+i, y, r, nil, style)
	}
}

// draw renders the board two columns per tile, then a status line and the scoreboard.
func (g *game) draw() {
	snap, err := g.engine.Snapshot()
	if err != nil {
		return
	}

	s := g.screen
	s.Clear()

	header := fmt.Sprintf("%s  tick %d  seed %d", g.config.Name, snap.Tick, snap.Seed)
	if snap.Paused {
		header += "  PAUSED"
	}
	drawText(s, 0, 0, styleHeader, header)

	colors := make(map[engine.EntityID]tcell.Color, len(snap.Entities))
	for _, e := range snap.Entities {
		colors[e.ID] = entityColor(e.Color)
	}
	colorOf := func(id engine.EntityID) tcell.Color {
		if c, ok := colors[id]; ok {
			return c
		}
		return tcell.ColorGray
	}

	for y := 0; y < snap.Height; y++ {
		for x := 0; x < snap.Width; x++ {
			tile := snap.Tiles[y*snap.Width+x]
			r, style := '.', styleFree
			switch {
			case tile.Contested():
				r, style = '▒', styleDefault.Foreground(colorOf(tile.ContestedBy))
			case tile.Owned():
				r, style = ' ', styleDefault.Background(colorOf(tile.Owner))
			}
			s.SetContent(2*x, boardTop+y, r, nil, style)
			s.SetContent(2*x+1, boardTop+y, r, nil, style)
		}
	}

	for _, e := range snap.Entities {
		if !e.Alive {
			continue
		}
		head := styleDefault.Background(colorOf(e.ID)).Bold(true)
		s.SetContent(2*e.Position.X, boardTop+e.Position.Y, '@', nil, head)
		s.SetContent(2*e.Position.X+1, boardTop+e.Position.Y, ' ', nil, head)
	}

	row := boardTop + snap.Height
	drawText(s, 0, row, styleStatus, g.status)
	for i, entry := range snap.Scoreboard {
		line := fmt.Sprintf("%d. %-12s %5.1f%%", entry.Rank, entry.Name, entry.PercentOwned)
		if entry.Kind == engine.KindHuman {
			line += " *"
		}
		drawText(s, 0, row+1+i, styleDefault, line)
	}

	s.Show()
}

func (g *game) run(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := g.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(g.config.EffectiveFrameRate()))
	defer ticker.Stop()

	g.draw()
	for !g.quit {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			g.handleEvent(ev)
			g.draw()
		case <-ticker.C:
			if err := g.frame(); err != nil {
				return err
			}
			g.draw()
		}
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "play",
		Usage: "play a territory game in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "directory containing game configurations", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "classic", Usage: "config id to play"},
			&cli.Uint64Flag{Name: "seed", Usage: "override the config seed (0 keeps it)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			manager, err := config.NewManager(cmd.String("config-dir"))
			if err != nil {
				return err
			}
			cfg, err := manager.LoadConfig(cmd.String("config"))
			if err != nil {
				return err
			}
			cfg = cfg.Clone()
			if seed := cmd.Uint64("seed"); seed != 0 {
				cfg.Seed = seed
			}
			return play(ctx, cfg)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func play(ctx context.Context, cfg *engine.GameConfig) error {
	s, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := s.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	s.SetStyle(styleDefault)

	g, err := newGame(s, cfg)
	if err != nil {
		s.Fini()
		return err
	}
	runErr := g.run(ctx)
	s.Fini()

	board, err := g.engine.Scoreboard()
	if err == nil {
		fmt.Println("--- GAME ENDED ---")
		fmt.Printf("Ticks: %d | Seed: %d\n", g.engine.Ticks(), g.engine.Seed())
		for _, entry := range board {
			fmt.Printf("%d. %s %.1f%%\n", entry.Rank, entry.Name, entry.PercentOwned)
		}
	}
	return runErr
}
