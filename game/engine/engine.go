package engine

import (
	"fmt"
	"math/rand/v2"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Lifecycle
	Initialize(width, height int, humanNames []string, botCount int) error
	Reset() error
	Replay(inputs []InputRecord, ticks uint64) error

	// Clock
	Tick() (*TickResult, error)
	Frame() (*TickResult, error)
	Pause() error
	Unpause() error
	IsPaused() bool
	IsGameOver() bool
	Ticks() uint64
	RenderPhase() float64

	// Input
	SetDirection(id EntityID, d Direction) error
	OnGameOver(fn func(GameOver))

	// Queries
	TileAt(x, y int) (Tile, error)
	LiveEntities() ([]EntityView, error)
	WorldDimensions() (int, int, error)
	Scoreboard() ([]ScoreEntry, error)
	Snapshot() (*Snapshot, error)
	GameOverInfo() *GameOver
	InputLog() []InputRecord
	Seed() uint64
	GetConfig() *GameConfig
}

type pendingRespawn struct {
	due      uint64
	replaces EntityID
}

type setup struct {
	width, height int
	humans        []string
	bots          int
}

// GameEngine implements the Engine interface. It is not safe for concurrent
// use: callers serialize Tick, Frame and input, and read through Snapshot
// when another goroutine drives the clock.
type GameEngine struct {
	config *GameConfig
	seed   uint64

	setup    *setup
	world    *World
	clock    *Clock
	tick     uint64
	paused   bool
	over     *GameOver
	fault    error
	humans   int
	pending  []pendingRespawn
	occupied map[Position]Arrival

	inputs    []InputRecord
	listeners []func(GameOver)
}

// New creates an engine for config without building a world. Queries fail
// with ErrNotInitialized until Initialize is called.
func New(config *GameConfig) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	seed := config.Seed
	for seed == 0 {
		seed = rand.Uint64()
	}
	return &GameEngine{
		config:   config.Clone(),
		seed:     seed,
		occupied: make(map[Position]Arrival),
	}, nil
}

// NewEngine creates a new game engine and initializes it from the
// configuration's world size and roster.
func NewEngine(config *GameConfig) (*GameEngine, error) {
	e, err := New(config)
	if err != nil {
		return nil, err
	}
	if err := e.Initialize(config.Width, config.Height, config.Humans, config.Bots); err != nil {
		return nil, err
	}
	return e, nil
}

// Initialize builds the world and spawns humans first, then bots, each on a
// non-overlapping 3x3 starting block. The random source is re-seeded so the
// same seed always produces the same game.
func (e *GameEngine) Initialize(width, height int, humanNames []string, botCount int) error {
	if err := validateWorld(width, height, humanNames, botCount); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	margin := e.config.EffectiveSpawnMargin()
	if 2*margin >= width || 2*margin >= height {
		return fmt.Errorf("initialize: %w: margin %d in %dx%d", ErrSpawnExhausted, margin, width, height)
	}

	rng := rand.New(rand.NewPCG(e.seed, e.seed^0x9e3779b97f4a7c15))
	world := NewWorld(width, height, rng, margin, e.config.MaxSpawnAttempts)

	for i, name := range humanNames {
		if _, err := world.Spawn(name, KindHuman, humanColor(i)); err != nil {
			return fmt.Errorf("initialize: spawn %s: %w", name, err)
		}
	}
	for i := 0; i < botCount; i++ {
		if _, err := world.Spawn(botName(rng), KindBot, randomColor(rng)); err != nil {
			return fmt.Errorf("initialize: spawn bot %d: %w", i+1, err)
		}
	}

	e.setup = &setup{width: width, height: height, humans: append([]string(nil), humanNames...), bots: botCount}
	e.world = world
	e.clock = NewClock(e.config.EffectiveFramesPerTick())
	e.tick = 0
	e.paused = false
	e.over = nil
	e.fault = nil
	e.humans = len(humanNames)
	e.pending = nil
	e.inputs = nil
	clear(e.occupied)
	return nil
}

// Reset rebuilds the world from the last Initialize arguments and seed.
// Game-over listeners stay registered.
func (e *GameEngine) Reset() error {
	if e.setup == nil {
		return ErrNotInitialized
	}
	s := e.setup
	return e.Initialize(s.width, s.height, s.humans, s.bots)
}

// Replay resets the engine and re-applies a recorded input log until ticks
// ticks have run or the game ends. Inputs recorded at the final tick are
// applied after it, so a pending direction change survives the replay.
func (e *GameEngine) Replay(inputs []InputRecord, ticks uint64) error {
	if err := e.Reset(); err != nil {
		return err
	}
	next := 0
	drain := func() error {
		for next < len(inputs) && inputs[next].Tick <= e.tick {
			in := inputs[next]
			next++
			if in.Tick < e.tick {
				continue
			}
			if err := e.SetDirection(in.Entity, in.Direction); err != nil {
				return fmt.Errorf("replay input at tick %d: %w", in.Tick, err)
			}
		}
		return nil
	}
	for e.tick < ticks && e.over == nil {
		if err := drain(); err != nil {
			return err
		}
		if _, err := e.Tick(); err != nil {
			return err
		}
	}
	// Inputs recorded after the last tick are still pending for the next move.
	if e.over == nil {
		return drain()
	}
	return nil
}

// Tick advances the simulation by exactly one step. It is a no-op while
// paused or after the game has ended. A fatal error leaves the engine
// halted; every later call returns the same error until Reset.
func (e *GameEngine) Tick() (*TickResult, error) {
	if e.world == nil {
		return nil, ErrNotInitialized
	}
	if e.fault != nil {
		return nil, e.fault
	}
	if e.paused || e.over != nil {
		return &TickResult{Tick: e.tick}, nil
	}

	e.tick++
	res := &TickResult{Tick: e.tick, Advanced: true}
	if err := e.step(res); err != nil {
		e.fault = fmt.Errorf("tick %d: %w", e.tick, err)
		return nil, e.fault
	}

	if res.GameOver != nil {
		for _, fn := range e.listeners {
			fn(*res.GameOver)
		}
	}
	return res, nil
}

// Frame counts one host frame and runs a tick when the clock says one is
// due. Paused engines do not count frames.
func (e *GameEngine) Frame() (*TickResult, error) {
	if e.world == nil {
		return nil, ErrNotInitialized
	}
	if e.fault != nil {
		return nil, e.fault
	}
	if e.paused || e.over != nil {
		return &TickResult{Tick: e.tick}, nil
	}
	if !e.clock.Advance() {
		return &TickResult{Tick: e.tick}, nil
	}
	return e.Tick()
}

func (e *GameEngine) step(res *TickResult) error {
	w := e.world
	clear(e.occupied)

	for _, ent := range w.roster {
		if !ent.alive {
			continue
		}

		ent.Move()
		if !w.grid.InBounds(ent.pos) {
			if err := ent.Die(); err != nil {
				return err
			}
			res.Events = append(res.Events, deathEvent(e.tick, ent, CauseOutOfBounds, NoEntity))
			continue
		}

		arrival := arrivalOf(ent)
		if first, ok := e.occupied[ent.pos]; ok && first.Entity.alive {
			loser, rule := ResolveCollision(first, arrival)
			winner := first.Entity
			if loser == winner {
				winner = ent
			}
			res.Events = append(res.Events, collisionEvent(e.tick, loser, winner, rule))
			if err := loser.Die(); err != nil {
				return err
			}
			res.Events = append(res.Events, deathEvent(e.tick, loser, CauseCollision, winner.id))
			if loser == ent {
				continue
			}
		}
		e.occupied[ent.pos] = arrival

		tile, err := w.grid.TileAt(ent.pos)
		if err != nil {
			return err
		}
		if tile.Owner != ent.id {
			if err := ent.ContestTile(ent.pos); err != nil {
				return err
			}
		} else if len(ent.contested) > 0 {
			trail := len(ent.contested)
			if err := ent.ContestToOwned(); err != nil {
				return err
			}
			enclosed, err := FillEnclosure(w, ent)
			if err != nil {
				return err
			}
			res.Events = append(res.Events, claimEvent(e.tick, ent, trail, len(enclosed)))
		}
	}

	// Dead entities leave the roster at the end of this tick, so each dead
	// bot is queued exactly once.
	delay := uint64(e.config.EffectiveRespawnDelay())
	for _, d := range w.roster {
		if !d.alive && d.kind == KindBot {
			e.pending = append(e.pending, pendingRespawn{due: e.tick + delay, replaces: d.id})
		}
	}

	waiting := e.pending[:0]
	for _, r := range e.pending {
		if r.due > e.tick {
			waiting = append(waiting, r)
			continue
		}
		bot, err := w.Spawn(botName(w.rng), KindBot, randomColor(w.rng))
		if err != nil {
			return fmt.Errorf("respawn bot: %w", err)
		}
		bot.spawnedAt = e.tick
		res.Events = append(res.Events, respawnEvent(e.tick, bot, r.replaces))
	}
	e.pending = waiting

	e.clock.Sync()

	reason := ""
	if e.humans > 0 && e.liveHumans() == 0 {
		reason = ReasonAllHumansDead
	} else if e.config.MaxTicks > 0 && e.tick >= e.config.MaxTicks {
		reason = ReasonTickLimit
	}

	w.removeDead()

	if reason != "" {
		board := rankEntities(e.views())
		over := &GameOver{Tick: e.tick, Reason: reason, Scoreboard: board}
		if len(board) > 0 {
			winner := board[0]
			over.Winner = &winner
		}
		e.over = over
		res.GameOver = over
		res.Events = append(res.Events, gameOverEvent(over))
	}
	return nil
}

func (e *GameEngine) liveHumans() int {
	n := 0
	for _, ent := range e.world.roster {
		if ent.alive && ent.kind == KindHuman {
			n++
		}
	}
	return n
}

func (e *GameEngine) views() []EntityView {
	out := make([]EntityView, 0, len(e.world.roster))
	for _, ent := range e.world.roster {
		if ent.alive {
			out = append(out, ent.View())
		}
	}
	return out
}

// SetDirection queues a direction change for a human entity. The last
// change before a tick wins.
func (e *GameEngine) SetDirection(id EntityID, d Direction) error {
	if e.world == nil {
		return ErrNotInitialized
	}
	if !d.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidDirection, int(d))
	}
	if e.over != nil {
		return ErrGameOver
	}
	ent := e.world.entity(id)
	if ent == nil || !ent.alive {
		return fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	if ent.kind != KindHuman {
		return fmt.Errorf("%w: %s", ErrNotControllable, ent.name)
	}
	ent.ChangeDirection(d)

	rec := InputRecord{Tick: e.tick, Entity: id, Direction: d}
	if n := len(e.inputs); n > 0 && e.inputs[n-1].Tick == rec.Tick && e.inputs[n-1].Entity == id {
		e.inputs[n-1] = rec
	} else {
		e.inputs = append(e.inputs, rec)
	}
	return nil
}

// Pause suspends ticking without touching game state.
func (e *GameEngine) Pause() error {
	if e.world == nil {
		return ErrNotInitialized
	}
	e.paused = true
	return nil
}

// Unpause resumes from the exact paused state.
func (e *GameEngine) Unpause() error {
	if e.world == nil {
		return ErrNotInitialized
	}
	e.paused = false
	return nil
}

func (e *GameEngine) IsPaused() bool   { return e.paused }
func (e *GameEngine) IsGameOver() bool { return e.over != nil }
func (e *GameEngine) Ticks() uint64    { return e.tick }

// Seed returns the seed the world was generated from.
func (e *GameEngine) Seed() uint64 { return e.seed }

// GetConfig returns the engine's configuration
func (e *GameEngine) GetConfig() *GameConfig { return e.config }

// GameOverInfo returns the end-of-game summary, or nil while running.
func (e *GameEngine) GameOverInfo() *GameOver { return e.over }

// Fault returns the error that halted the engine, if any.
func (e *GameEngine) Fault() error { return e.fault }

// RenderPhase returns the fraction of the current tick already drawn.
func (e *GameEngine) RenderPhase() float64 {
	if e.clock == nil {
		return 0
	}
	return e.clock.RenderPhase()
}

// OnGameOver registers fn to run once when the game ends. fn runs inside
// Tick and must not call back into the engine's clock.
func (e *GameEngine) OnGameOver(fn func(GameOver)) {
	e.listeners = append(e.listeners, fn)
}

// InputLog returns the accepted direction changes since the last reset.
func (e *GameEngine) InputLog() []InputRecord {
	out := make([]InputRecord, len(e.inputs))
	copy(out, e.inputs)
	return out
}

// TileAt returns the owner and contester of (x,y).
func (e *GameEngine) TileAt(x, y int) (Tile, error) {
	if e.world == nil {
		return Tile{}, ErrNotInitialized
	}
	return e.world.grid.TileAt(Position{X: x, Y: y})
}

// LiveEntities returns the live roster in roster order.
func (e *GameEngine) LiveEntities() ([]EntityView, error) {
	if e.world == nil {
		return nil, ErrNotInitialized
	}
	return e.views(), nil
}

// WorldDimensions returns width and height.
func (e *GameEngine) WorldDimensions() (int, int, error) {
	if e.world == nil {
		return 0, 0, ErrNotInitialized
	}
	return e.world.grid.Width(), e.world.grid.Height(), nil
}

// Scoreboard ranks live entities by owned tile count.
func (e *GameEngine) Scoreboard() ([]ScoreEntry, error) {
	if e.world == nil {
		return nil, ErrNotInitialized
	}
	return rankEntities(e.views()), nil
}

// Snapshot copies the full observable state.
func (e *GameEngine) Snapshot() (*Snapshot, error) {
	if e.world == nil {
		return nil, ErrNotInitialized
	}
	views := e.views()
	return &Snapshot{
		Width:       e.world.grid.Width(),
		Height:      e.world.grid.Height(),
		Tick:        e.tick,
		Seed:        e.seed,
		Paused:      e.paused,
		RenderPhase: e.clock.RenderPhase(),
		Tiles:       e.world.grid.Tiles(),
		Entities:    views,
		Scoreboard:  rankEntities(views),
		GameOver:    e.over,
	}, nil
}

// World exposes the simulation context for tools and tests.
func (e *GameEngine) World() *World { return e.world }
