package engine

// CollisionRule names the precedence step that decided a collision.
type CollisionRule string

const (
	RuleLongerTrail CollisionRule = "longer_trail"
	RuleFewerOwned  CollisionRule = "fewer_owned"
	RuleArrivalTie  CollisionRule = "arrival_order"
)

// Arrival records an entity as it was when it landed on a tile, before the
// tile was contested or claimed.
type Arrival struct {
	Entity *Entity
	Trail  int
	Owned  int
}

func arrivalOf(e *Entity) Arrival {
	return Arrival{Entity: e, Trail: len(e.contested), Owned: e.owned.len()}
}

// ResolveCollision decides which of two entities on the same tile dies.
// existing reached the tile first this tick.
//
//  1. The strictly longer open trail dies.
//  2. Otherwise the entity owning fewer tiles dies.
//  3. Otherwise current dies: ties favour the earlier mover in roster order.
//
// Rule 3 is order dependent on purpose and keeps replays deterministic.
func ResolveCollision(existing, current Arrival) (*Entity, CollisionRule) {
	switch {
	case existing.Trail > current.Trail:
		return existing.Entity, RuleLongerTrail
	case current.Trail > existing.Trail:
		return current.Entity, RuleLongerTrail
	}

	switch {
	case existing.Owned < current.Owned:
		return existing.Entity, RuleFewerOwned
	case current.Owned < existing.Owned:
		return current.Entity, RuleFewerOwned
	}

	return current.Entity, RuleArrivalTie
}
