package engine

import "sort"

// EntityView is a read-only copy of an entity's public state.
type EntityView struct {
	ID           EntityID   `json:"id"`
	Name         string     `json:"name"`
	Kind         EntityKind `json:"kind"`
	Color        Color      `json:"color"`
	Alive        bool       `json:"alive"`
	Position     Position   `json:"position"`
	Direction    Direction  `json:"direction"`
	OwnedCount   int        `json:"owned_count"`
	TrailLength  int        `json:"trail_length"`
	PercentOwned float64    `json:"percent_owned"`
	SpawnedAt    uint64     `json:"spawned_at"`
}

// ScoreEntry is one scoreboard row.
type ScoreEntry struct {
	Rank         int        `json:"rank"`
	ID           EntityID   `json:"id"`
	Name         string     `json:"name"`
	Kind         EntityKind `json:"kind"`
	Color        Color      `json:"color"`
	OwnedCount   int        `json:"owned_count"`
	PercentOwned float64    `json:"percent_owned"`
}

// Snapshot is an immutable copy of the whole game, safe to read while the
// engine keeps ticking.
type Snapshot struct {
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Tick        uint64       `json:"tick"`
	Seed        uint64       `json:"seed"`
	Paused      bool         `json:"paused"`
	RenderPhase float64      `json:"render_phase"`
	Tiles       []Tile       `json:"tiles"`
	Entities    []EntityView `json:"entities"`
	Scoreboard  []ScoreEntry `json:"scoreboard"`
	GameOver    *GameOver    `json:"game_over,omitempty"`
}

// TileAt returns the tile at (x,y) of the snapshot.
func (s *Snapshot) TileAt(x, y int) (Tile, error) {
	if x < 0 || x >= s.Width || y < 0 || y >= s.Height {
		return Tile{}, ErrOutOfBounds
	}
	return s.Tiles[y*s.Width+x], nil
}

// Entity finds an entity view by id.
func (s *Snapshot) Entity(id EntityID) (EntityView, bool) {
	for _, v := range s.Entities {
		if v.ID == id {
			return v, true
		}
	}
	return EntityView{}, false
}

// rankEntities orders by owned count descending. Equal counts keep roster
// order. The ranking is presentation only.
func rankEntities(views []EntityView) []ScoreEntry {
	sorted := make([]EntityView, len(views))
	copy(sorted, views)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OwnedCount > sorted[j].OwnedCount
	})
	out := make([]ScoreEntry, len(sorted))
	for i, v := range sorted {
		out[i] = ScoreEntry{
			Rank:         i + 1,
			ID:           v.ID,
			Name:         v.Name,
			Kind:         v.Kind,
			Color:        v.Color,
			OwnedCount:   v.OwnedCount,
			PercentOwned: v.PercentOwned,
		}
	}
	return out
}
