package engine

import (
	"fmt"
	"math/rand/v2"
)

// World is the simulation context shared by every component of one game:
// the grid, the entity table and the random source.
type World struct {
	grid   *Grid
	rng    *rand.Rand
	roster []*Entity
	byID   map[EntityID]*Entity
	nextID EntityID

	spawnMargin   int
	spawnAttempts int
}

// NewWorld creates an empty world. margin and attempts control spawn
// placement; non-positive values select the defaults.
func NewWorld(width, height int, rng *rand.Rand, margin, attempts int) *World {
	if margin <= 0 {
		margin = DefaultSpawnMargin
	}
	if attempts <= 0 {
		attempts = DefaultMaxSpawnAttempts
	}
	return &World{
		grid:          NewGrid(width, height),
		rng:           rng,
		byID:          make(map[EntityID]*Entity),
		spawnMargin:   margin,
		spawnAttempts: attempts,
	}
}

// Grid exposes the tile matrix.
func (w *World) Grid() *Grid { return w.grid }

// Entity returns a live or not-yet-removed entity by id.
func (w *World) Entity(id EntityID) *Entity { return w.entity(id) }

func (w *World) entity(id EntityID) *Entity {
	return w.byID[id]
}

// Roster returns the entities in roster order.
func (w *World) Roster() []*Entity {
	out := make([]*Entity, len(w.roster))
	copy(out, w.roster)
	return out
}

// Spawn places a new entity with a fresh 3x3 starting block and appends it
// to the roster.
func (w *World) Spawn(name string, kind EntityKind, color Color) (*Entity, error) {
	center, err := w.findSpawn()
	if err != nil {
		return nil, err
	}
	return w.place(name, kind, color, center, Directions[w.rng.IntN(len(Directions))])
}

// place adds an entity centered at center. Used directly by tests that need
// exact layouts.
func (w *World) place(name string, kind EntityKind, color Color, center Position, dir Direction) (*Entity, error) {
	w.nextID++
	e := newEntity(w, w.nextID, name, kind, color, center, dir)
	for dy := -StartBlockRadius; dy <= StartBlockRadius; dy++ {
		for dx := -StartBlockRadius; dx <= StartBlockRadius; dx++ {
			if err := e.AddTileToOwned(Position{X: center.X + dx, Y: center.Y + dy}); err != nil {
				return nil, fmt.Errorf("starting block for %s: %w", name, err)
			}
		}
	}
	w.roster = append(w.roster, e)
	w.byID[e.id] = e
	return e, nil
}

// findSpawn picks a center that keeps the margin from every edge and whose
// 3x3 block touches no owned or contested tile. Random candidates are tried
// a bounded number of times before falling back to a row-major scan.
func (w *World) findSpawn() (Position, error) {
	minX, maxX := w.spawnMargin, w.grid.Width()-1-w.spawnMargin
	minY, maxY := w.spawnMargin, w.grid.Height()-1-w.spawnMargin
	if minX > maxX || minY > maxY {
		return Position{}, fmt.Errorf("%w: margin %d leaves no room in %dx%d",
			ErrSpawnExhausted, w.spawnMargin, w.grid.Width(), w.grid.Height())
	}

	for i := 0; i < w.spawnAttempts; i++ {
		p := Position{
			X: minX + w.rng.IntN(maxX-minX+1),
			Y: minY + w.rng.IntN(maxY-minY+1),
		}
		if w.blockFree(p) {
			return p, nil
		}
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := Position{X: x, Y: y}
			if w.blockFree(p) {
				return p, nil
			}
		}
	}
	return Position{}, fmt.Errorf("%w: board is full", ErrSpawnExhausted)
}

func (w *World) blockFree(center Position) bool {
	for dy := -StartBlockRadius; dy <= StartBlockRadius; dy++ {
		for dx := -StartBlockRadius; dx <= StartBlockRadius; dx++ {
			t, err := w.grid.TileAt(Position{X: center.X + dx, Y: center.Y + dy})
			if err != nil || t.Owned() || t.Contested() {
				return false
			}
		}
	}
	return true
}

// removeDead drops dead entities from the roster and the id table.
func (w *World) removeDead() {
	live := w.roster[:0]
	for _, e := range w.roster {
		if e.alive {
			live = append(live, e)
			continue
		}
		delete(w.byID, e.id)
	}
	for i := len(live); i < len(w.roster); i++ {
		w.roster[i] = nil
	}
	w.roster = live
}
