package engine

import (
	"errors"
	"testing"
)

func TestGrid_TileAt(t *testing.T) {
	g := NewGrid(7, 5)
	if g.Width() != 7 || g.Height() != 5 {
		t.Fatalf("Expected 7x5 grid, got %dx%d", g.Width(), g.Height())
	}

	tests := []struct {
		name    string
		pos     Position
		wantErr bool
	}{
		{"origin", Position{0, 0}, false},
		{"far corner", Position{6, 4}, false},
		{"negative x", Position{-1, 0}, true},
		{"negative y", Position{0, -1}, true},
		{"x past width", Position{7, 0}, true},
		{"y past height", Position{0, 5}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := g.TileAt(test.pos)
			if test.wantErr {
				if !errors.Is(err, ErrOutOfBounds) {
					t.Errorf("Expected ErrOutOfBounds, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestGrid_ClaimClearsContest(t *testing.T) {
	g := NewGrid(7, 7)
	p := Position{3, 3}

	if err := g.MarkContested(p, 2); err != nil {
		t.Fatal(err)
	}
	prev, err := g.Claim(p, 1)
	if err != nil {
		t.Fatal(err)
	}
	if prev != NoEntity {
		t.Errorf("Expected no previous owner, got %d", prev)
	}

	tile, _ := g.TileAt(p)
	if tile.Owner != 1 || tile.ContestedBy != NoEntity {
		t.Errorf("Expected owner 1 and no contest, got %+v", tile)
	}

	// Contesting keeps the owner.
	if err := g.MarkContested(p, 3); err != nil {
		t.Fatal(err)
	}
	tile, _ = g.TileAt(p)
	if tile.Owner != 1 || tile.ContestedBy != 3 {
		t.Errorf("Expected owner 1 contested by 3, got %+v", tile)
	}

	// Claiming again is idempotent for the owner.
	prev, _ = g.Claim(p, 1)
	if prev != 1 {
		t.Errorf("Expected previous owner 1, got %d", prev)
	}
	tile, _ = g.TileAt(p)
	if tile != (Tile{Owner: 1}) {
		t.Errorf("Expected clean claim, got %+v", tile)
	}
}

func TestGrid_Release(t *testing.T) {
	g := NewGrid(7, 7)
	p := Position{1, 1}
	g.Claim(p, 1)
	g.MarkContested(p, 2)

	if err := g.ReleaseFrom(p, 2); err != nil {
		t.Fatal(err)
	}
	tile, _ := g.TileAt(p)
	if tile != (Tile{Owner: 1}) {
		t.Errorf("Expected only the contest mark cleared, got %+v", tile)
	}

	if err := g.ReleaseFrom(p, 3); err != nil {
		t.Fatal(err)
	}
	tile, _ = g.TileAt(p)
	if tile.Owner != 1 {
		t.Error("Expected release by a stranger to leave the owner alone")
	}

	g.MarkContested(p, 2)
	if err := g.Release(p); err != nil {
		t.Fatal(err)
	}
	tile, _ = g.TileAt(p)
	if tile != (Tile{}) {
		t.Errorf("Expected empty tile after Release, got %+v", tile)
	}

	if err := g.Release(Position{-1, 0}); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds, got %v", err)
	}
}

func TestGrid_Neighbors4(t *testing.T) {
	g := NewGrid(7, 7)

	tests := []struct {
		name string
		pos  Position
		want int
	}{
		{"corner", Position{0, 0}, 2},
		{"edge", Position{3, 0}, 3},
		{"interior", Position{3, 3}, 4},
		{"opposite corner", Position{6, 6}, 2},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := g.Neighbors4(test.pos)
			if len(got) != test.want {
				t.Errorf("Expected %d neighbours, got %d (%v)", test.want, len(got), got)
			}
			for _, n := range got {
				if !g.InBounds(n) {
					t.Errorf("Neighbour %v is out of bounds", n)
				}
			}
		})
	}
}

func TestGrid_IsEdge(t *testing.T) {
	g := NewGrid(7, 5)
	edges := []Position{{0, 2}, {6, 2}, {3, 0}, {3, 4}}
	for _, p := range edges {
		if !g.IsEdge(p) {
			t.Errorf("Expected %v to be an edge tile", p)
		}
	}
	if g.IsEdge(Position{3, 2}) {
		t.Error("Expected (3,2) to be interior")
	}
}

func TestDirection(t *testing.T) {
	tests := []struct {
		input  string
		want   Direction
		dx, dy int
	}{
		{"north", North, 0, -1},
		{"UP", North, 0, -1},
		{"s", South, 0, 1},
		{"right", East, 1, 0},
		{" west ", West, -1, 0},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			d, err := ParseDirection(test.input)
			if err != nil {
				t.Fatalf("Expected %q to parse, got %v", test.input, err)
			}
			if d != test.want {
				t.Errorf("Expected %v, got %v", test.want, d)
			}
			if d.DX() != test.dx || d.DY() != test.dy {
				t.Errorf("Expected vector (%d,%d), got (%d,%d)", test.dx, test.dy, d.DX(), d.DY())
			}
		})
	}

	if _, err := ParseDirection("sideways"); !errors.Is(err, ErrInvalidDirection) {
		t.Errorf("Expected ErrInvalidDirection, got %v", err)
	}

	text, err := West.MarshalText()
	if err != nil || string(text) != "west" {
		t.Errorf("Expected west, got %q (%v)", text, err)
	}
	var d Direction
	if err := d.UnmarshalText([]byte("down")); err != nil || d != South {
		t.Errorf("Expected south, got %v (%v)", d, err)
	}
}

func TestColorText(t *testing.T) {
	c := Color{R: 0x1e, G: 0x88, B: 0xe5}
	if c.Hex() != "#1e88e5" {
		t.Errorf("Expected #1e88e5, got %s", c.Hex())
	}
	var back Color
	if err := back.UnmarshalText([]byte(c.Hex())); err != nil {
		t.Fatal(err)
	}
	if back != c {
		t.Errorf("Expected %v, got %v", c, back)
	}
}
