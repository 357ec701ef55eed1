package engine

import "math/rand/v2"

// botNames is the pool bot display names are drawn from. Names repeat freely.
var botNames = []string{
	"Ada", "Bishop", "Cobalt", "Dart", "Ember", "Fennec", "Gizmo", "Halcyon",
	"Iris", "Jolt", "Kestrel", "Lumen", "Magpie", "Nimbus", "Onyx", "Pico",
	"Quill", "Rook", "Sable", "Tango", "Umber", "Vesper", "Wren", "Xenon",
	"Yarrow", "Zephyr",
}

// humanPalette gives human players stable, distinguishable colors.
var humanPalette = []Color{
	{R: 0x1e, G: 0x88, B: 0xe5},
	{R: 0xe5, G: 0x39, B: 0x35},
	{R: 0x43, G: 0xa0, B: 0x47},
	{R: 0xfb, G: 0x8c, B: 0x00},
}

func botName(rng *rand.Rand) string {
	return botNames[rng.IntN(len(botNames))]
}

func randomColor(rng *rand.Rand) Color {
	v := rng.Uint32()
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
}

func humanColor(i int) Color {
	return humanPalette[i%len(humanPalette)]
}

// chooseBotDirection draws uniformly among the directions whose next tile
// stays in bounds. This is the same distribution as re-drawing until the
// move is valid, without the unbounded loop.
func chooseBotDirection(rng *rand.Rand, g *Grid, from Position) Direction {
	var valid [4]Direction
	n := 0
	for _, d := range Directions {
		if g.InBounds(from.Step(d)) {
			valid[n] = d
			n++
		}
	}
	if n == 0 {
		return Directions[rng.IntN(len(Directions))]
	}
	return valid[rng.IntN(n)]
}
