package engine

import "fmt"

// Grid is the fixed-size tile matrix. It stores entity ids only and knows
// nothing about the entities themselves.
type Grid struct {
	width  int
	height int
	tiles  []Tile
}

// NewGrid creates an empty width x height grid.
func NewGrid(width, height int) *Grid {
	return &Grid{
		width:  width,
		height: height,
		tiles:  make([]Tile, width*height),
	}
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// InBounds reports whether p lies in [0,width) x [0,height).
func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

// IsEdge reports whether p is on the outer ring of the world.
func (g *Grid) IsEdge(p Position) bool {
	return p.X == 0 || p.Y == 0 || p.X == g.width-1 || p.Y == g.height-1
}

func (g *Grid) index(p Position) (int, error) {
	if !g.InBounds(p) {
		return 0, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfBounds, p.X, p.Y, g.width, g.height)
	}
	return p.Y*g.width + p.X, nil
}

// TileAt returns a copy of the tile at p.
func (g *Grid) TileAt(p Position) (Tile, error) {
	i, err := g.index(p)
	if err != nil {
		return Tile{}, err
	}
	return g.tiles[i], nil
}

// ownerAt returns the owner of p, or NoEntity when p is outside the grid.
func (g *Grid) ownerAt(p Position) EntityID {
	if !g.InBounds(p) {
		return NoEntity
	}
	return g.tiles[p.Y*g.width+p.X].Owner
}

// Claim sets the owner of p to id and clears contestedBy. It returns the
// previous owner so the caller can drop p from that entity's owned set.
// Claiming a tile already owned by id is a no-op apart from clearing the
// contest mark.
func (g *Grid) Claim(p Position, id EntityID) (EntityID, error) {
	i, err := g.index(p)
	if err != nil {
		return NoEntity, err
	}
	prev := g.tiles[i].Owner
	g.tiles[i] = Tile{Owner: id}
	return prev, nil
}

// MarkContested sets contestedBy without touching the owner.
func (g *Grid) MarkContested(p Position, id EntityID) error {
	i, err := g.index(p)
	if err != nil {
		return err
	}
	g.tiles[i].ContestedBy = id
	return nil
}

// Release clears both owner and contestedBy.
func (g *Grid) Release(p Position) error {
	i, err := g.index(p)
	if err != nil {
		return err
	}
	g.tiles[i] = Tile{}
	return nil
}

// ReleaseFrom clears only the attributes of p that still point at id. A
// trail tile that another entity has since claimed or re-contested is left
// alone.
func (g *Grid) ReleaseFrom(p Position, id EntityID) error {
	i, err := g.index(p)
	if err != nil {
		return err
	}
	if g.tiles[i].Owner == id {
		g.tiles[i].Owner = NoEntity
	}
	if g.tiles[i].ContestedBy == id {
		g.tiles[i].ContestedBy = NoEntity
	}
	return nil
}

// Neighbors4 returns the in-bounds orthogonal neighbours of p in
// north, east, south, west order.
func (g *Grid) Neighbors4(p Position) []Position {
	out := make([]Position, 0, 4)
	for _, d := range Directions {
		n := p.Step(d)
		if g.InBounds(n) {
			out = append(out, n)
		}
	}
	return out
}

// Tiles returns a copy of the tile matrix in row-major order.
func (g *Grid) Tiles() []Tile {
	out := make([]Tile, len(g.tiles))
	copy(out, g.tiles)
	return out
}

// CountOwned returns how many tiles id owns according to the grid.
func (g *Grid) CountOwned(id EntityID) int {
	n := 0
	for _, t := range g.tiles {
		if t.Owner == id {
			n++
		}
	}
	return n
}
