package engine

import "fmt"

// tileSet is an insertion-ordered set of positions. Removal leaves a hole
// that is compacted once holes outnumber live entries.
type tileSet struct {
	order []Position
	index map[Position]int
	holes int
}

var tombstone = Position{X: -1, Y: -1}

func newTileSet() *tileSet {
	return &tileSet{index: make(map[Position]int)}
}

func (s *tileSet) add(p Position) bool {
	if _, ok := s.index[p]; ok {
		return false
	}
	s.index[p] = len(s.order)
	s.order = append(s.order, p)
	return true
}

func (s *tileSet) remove(p Position) bool {
	i, ok := s.index[p]
	if !ok {
		return false
	}
	delete(s.index, p)
	s.order[i] = tombstone
	s.holes++
	if s.holes > 16 && s.holes > len(s.index) {
		s.compact()
	}
	return true
}

func (s *tileSet) compact() {
	live := s.order[:0]
	for _, p := range s.order {
		if p == tombstone {
			continue
		}
		s.index[p] = len(live)
		live = append(live, p)
	}
	s.order = live
	s.holes = 0
}

func (s *tileSet) has(p Position) bool {
	_, ok := s.index[p]
	return ok
}

func (s *tileSet) len() int {
	return len(s.index)
}

// slice returns the live positions in claim order.
func (s *tileSet) slice() []Position {
	out := make([]Position, 0, len(s.index))
	for _, p := range s.order {
		if p != tombstone {
			out = append(out, p)
		}
	}
	return out
}

func (s *tileSet) clear() {
	s.order = nil
	s.index = make(map[Position]int)
	s.holes = 0
}

// Entity is a player or bot. It holds the world it lives in rather than
// reaching for any global state.
type Entity struct {
	world *World

	id    EntityID
	name  string
	kind  EntityKind
	color Color

	alive     bool
	pos       Position
	dir       Direction
	owned     *tileSet
	contested []Position
	spawnedAt uint64
}

func newEntity(w *World, id EntityID, name string, kind EntityKind, color Color, pos Position, dir Direction) *Entity {
	return &Entity{
		world: w,
		id:    id,
		name:  name,
		kind:  kind,
		color: color,
		alive: true,
		pos:   pos,
		dir:   dir,
		owned: newTileSet(),
	}
}

func (e *Entity) ID() EntityID         { return e.id }
func (e *Entity) Name() string         { return e.name }
func (e *Entity) Kind() EntityKind     { return e.kind }
func (e *Entity) Color() Color         { return e.color }
func (e *Entity) Alive() bool          { return e.alive }
func (e *Entity) Position() Position   { return e.pos }
func (e *Entity) Direction() Direction { return e.dir }
func (e *Entity) OwnedCount() int      { return e.owned.len() }
func (e *Entity) TrailLength() int     { return len(e.contested) }

// Owned returns the owned tiles in claim order.
func (e *Entity) Owned() []Position {
	return e.owned.slice()
}

// Contested returns the open trail in traversal order.
func (e *Entity) Contested() []Position {
	out := make([]Position, len(e.contested))
	copy(out, e.contested)
	return out
}

// Move advances one tile along the current direction. Bots pick a fresh
// direction first. Bounds are checked by the caller.
func (e *Entity) Move() {
	if e.kind == KindBot {
		e.dir = chooseBotDirection(e.world.rng, e.world.grid, e.pos)
	}
	e.pos = e.pos.Step(e.dir)
}

// ChangeDirection sets the direction used by the next Move.
func (e *Entity) ChangeDirection(d Direction) {
	e.dir = d
}

// Die marks the entity dead and releases everything it owns or contests.
// Both collections are copied and cleared before any tile is touched.
func (e *Entity) Die() error {
	if !e.alive {
		return nil
	}
	e.alive = false

	owned := e.owned.slice()
	contested := e.Contested()
	e.owned.clear()
	e.contested = nil

	for _, p := range owned {
		if err := e.world.grid.ReleaseFrom(p, e.id); err != nil {
			return fmt.Errorf("release owned tile of %d: %w", e.id, err)
		}
	}
	for _, p := range contested {
		if err := e.world.grid.ReleaseFrom(p, e.id); err != nil {
			return fmt.Errorf("release trail tile of %d: %w", e.id, err)
		}
	}
	return nil
}

// ContestTile appends p to the trail and marks it contested.
func (e *Entity) ContestTile(p Position) error {
	if err := e.world.grid.MarkContested(p, e.id); err != nil {
		return err
	}
	e.contested = append(e.contested, p)
	return nil
}

// AddTileToOwned claims p, taking it from whoever owned it before.
func (e *Entity) AddTileToOwned(p Position) error {
	prev, err := e.world.grid.Claim(p, e.id)
	if err != nil {
		return err
	}
	if prev != NoEntity && prev != e.id {
		if other := e.world.entity(prev); other != nil {
			other.owned.remove(p)
		}
	}
	e.owned.add(p)
	return nil
}

// ContestToOwned claims the trail in traversal order and clears it.
func (e *Entity) ContestToOwned() error {
	for _, p := range e.contested {
		if err := e.AddTileToOwned(p); err != nil {
			return err
		}
	}
	e.contested = nil
	return nil
}

// PercentOwned is the share of the world this entity owns, in [0,100].
func (e *Entity) PercentOwned() float64 {
	area := e.world.grid.Width() * e.world.grid.Height()
	if area == 0 {
		return 0
	}
	return 100 * float64(e.owned.len()) / float64(area)
}

// View returns an immutable description of the entity.
func (e *Entity) View() EntityView {
	return EntityView{
		ID:           e.id,
		Name:         e.name,
		Kind:         e.kind,
		Color:        e.color,
		Alive:        e.alive,
		Position:     e.pos,
		Direction:    e.dir,
		OwnedCount:   e.owned.len(),
		TrailLength:  len(e.contested),
		PercentOwned: e.PercentOwned(),
		SpawnedAt:    e.spawnedAt,
	}
}
