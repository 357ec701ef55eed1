package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors reported by the engine.
var (
	// ErrOutOfBounds is returned for coordinate access outside the grid.
	ErrOutOfBounds = errors.New("coordinates out of bounds")
	// ErrNotInitialized is returned when the engine is queried before Initialize.
	ErrNotInitialized = errors.New("engine not initialized")
	// ErrSpawnExhausted is returned when no valid spawn cell exists.
	ErrSpawnExhausted = errors.New("no valid spawn location")
	// ErrEntityNotFound is returned for unknown or dead entity ids.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrNotControllable is returned when input is sent to a bot.
	ErrNotControllable = errors.New("entity is not human-controlled")
	// ErrGameOver is returned for input sent after the game ended.
	ErrGameOver = errors.New("game is over")
	// ErrInvalidDirection is returned by ParseDirection.
	ErrInvalidDirection = errors.New("invalid direction")
)

const (
	// World limits
	MinWorldSize = 7
	MaxWorldSize = 512
	MaxEntities  = 64

	// Spawn policy
	DefaultSpawnMargin      = 3
	DefaultMaxSpawnAttempts = 200
	StartBlockRadius        = 1

	// Clock defaults: 60 frames per second, one tick every 6 frames.
	DefaultFrameRate     = 60
	DefaultFramesPerTick = 6
	MaxFrameRate         = 240

	DefaultRespawnDelay = 1
	MaxStepTicks        = 1000
)

// Direction is one of the four cardinal directions.
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

// Directions lists every direction in a fixed order.
var Directions = [4]Direction{North, East, South, West}

// DX returns the horizontal component of the direction vector.
func (d Direction) DX() int {
	switch d {
	case East:
		return 1
	case West:
		return -1
	}
	return 0
}

// DY returns the vertical component. Y grows downwards.
func (d Direction) DY() int {
	switch d {
	case North:
		return -1
	case South:
		return 1
	}
	return 0
}

func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// Valid reports whether d is one of the four cardinal directions.
func (d Direction) Valid() bool {
	return d >= North && d <= West
}

// ParseDirection accepts compass names, screen names and their initials.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "north", "up", "n", "u":
		return North, nil
	case "east", "right", "e", "r":
		return East, nil
	case "south", "down", "s", "d":
		return South, nil
	case "west", "left", "w", "l":
		return West, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDirection, int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes any name accepted by ParseDirection.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Position represents x,y coordinates
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Step returns the position one tile away in direction d.
func (p Position) Step(d Direction) Position {
	return Position{X: p.X + d.DX(), Y: p.Y + d.DY()}
}

// EntityID is a stable index into the entity table. Tiles refer to entities
// by id only. Ids are never reused within a game.
type EntityID int

// NoEntity marks an unowned or uncontested tile.
const NoEntity EntityID = 0

// EntityKind distinguishes player-controlled entities from bots.
type EntityKind string

const (
	KindHuman EntityKind = "human"
	KindBot   EntityKind = "bot"
)

// Color is an RGB base color for an entity.
type Color struct {
	R, G, B uint8
}

// Hex returns the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// MarshalText encodes the color as #rrggbb.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText decodes #rrggbb.
func (c *Color) UnmarshalText(text []byte) error {
	var r, g, b uint8
	if _, err := fmt.Sscanf(string(text), "#%02x%02x%02x", &r, &g, &b); err != nil {
		return fmt.Errorf("invalid color %q: %w", text, err)
	}
	*c = Color{R: r, G: g, B: b}
	return nil
}

// Tile is the ownership state of a single grid cell.
type Tile struct {
	Owner       EntityID `json:"owner,omitempty"`
	ContestedBy EntityID `json:"contested_by,omitempty"`
}

// Owned reports whether any entity owns the tile.
func (t Tile) Owned() bool {
	return t.Owner != NoEntity
}

// Contested reports whether the tile is part of an open trail.
func (t Tile) Contested() bool {
	return t.ContestedBy != NoEntity
}
