package engine

type fillClass uint8

const (
	classUnknown fillClass = iota
	classOutside
	classInside
)

// bbox is an inclusive axis-aligned bounding box.
type bbox struct {
	minX, minY, maxX, maxY int
}

func (b bbox) contains(p Position) bool {
	return p.X >= b.minX && p.X <= b.maxX && p.Y >= b.minY && p.Y <= b.maxY
}

func (b bbox) width() int  { return b.maxX - b.minX + 1 }
func (b bbox) height() int { return b.maxY - b.minY + 1 }

func (b bbox) offset(p Position) int {
	return (p.Y-b.minY)*b.width() + (p.X - b.minX)
}

func boundsOf(tiles []Position) bbox {
	b := bbox{minX: tiles[0].X, maxX: tiles[0].X, minY: tiles[0].Y, maxY: tiles[0].Y}
	for _, p := range tiles[1:] {
		b.minX = min(b.minX, p.X)
		b.maxX = max(b.maxX, p.X)
		b.minY = min(b.minY, p.Y)
		b.maxY = max(b.maxY, p.Y)
	}
	return b
}

// FillEnclosure grants e every tile its owned territory encloses and returns
// those tiles.
//
// Every non-owned neighbour of the territory seeds a depth-first search over
// non-owned tiles. A search that reaches the world edge, leaves the bounding
// box of the territory, or touches a tile already known to be outside marks
// everything it visited as outside. A search that runs dry marks its tiles
// inside. Classifications are shared between searches of one call.
func FillEnclosure(w *World, e *Entity) ([]Position, error) {
	owned := e.owned.slice()
	if len(owned) == 0 {
		return nil, nil
	}
	g := w.grid
	box := boundsOf(owned)
	class := make([]fillClass, box.width()*box.height())
	seen := make([]int, len(class))

	var inside []Position
	var stack, visited []Position
	run := 0

	for _, o := range owned {
		for _, start := range g.Neighbors4(o) {
			if g.ownerAt(start) == e.id || !box.contains(start) {
				continue
			}
			if class[box.offset(start)] != classUnknown {
				continue
			}

			run++
			stack = append(stack[:0], start)
			visited = append(visited[:0], start)
			seen[box.offset(start)] = run
			escaped := false

		search:
			for len(stack) > 0 {
				t := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if g.IsEdge(t) {
					escaped = true
					break
				}
				for _, n := range g.Neighbors4(t) {
					if g.ownerAt(n) == e.id {
						continue
					}
					if !box.contains(n) {
						escaped = true
						break search
					}
					i := box.offset(n)
					if class[i] == classOutside {
						escaped = true
						break search
					}
					if seen[i] == run {
						continue
					}
					seen[i] = run
					visited = append(visited, n)
					stack = append(stack, n)
				}
			}

			mark := classInside
			if escaped {
				mark = classOutside
			}
			for _, v := range visited {
				class[box.offset(v)] = mark
			}
			if !escaped {
				inside = append(inside, visited...)
			}
		}
	}

	for _, p := range inside {
		if err := e.AddTileToOwned(p); err != nil {
			return nil, err
		}
	}
	return inside, nil
}
