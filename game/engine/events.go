package engine

import "fmt"

// EventType classifies what happened during a tick.
type EventType string

const (
	EventDeath     EventType = "death"
	EventCollision EventType = "collision"
	EventClaim     EventType = "claim"
	EventRespawn   EventType = "respawn"
	EventGameOver  EventType = "game_over"
)

// Death causes.
const (
	CauseOutOfBounds = "out_of_bounds"
	CauseCollision   = "collision"
)

// Game over reasons.
const (
	ReasonAllHumansDead = "all_humans_dead"
	ReasonTickLimit     = "tick_limit"
)

// Event is a single observable outcome of a tick.
type Event struct {
	Tick     uint64    `json:"tick"`
	Type     EventType `json:"type"`
	Entity   EntityID  `json:"entity,omitempty"`
	Name     string    `json:"name,omitempty"`
	Other    EntityID  `json:"other,omitempty"`
	Cause    string    `json:"cause,omitempty"`
	Position *Position `json:"position,omitempty"`
	Claimed  int       `json:"claimed,omitempty"`
	Enclosed int       `json:"enclosed,omitempty"`
	Message  string    `json:"message"`
}

// GameOver describes how a game ended.
type GameOver struct {
	Tick       uint64       `json:"tick"`
	Reason     string       `json:"reason"`
	Winner     *ScoreEntry  `json:"winner,omitempty"`
	Scoreboard []ScoreEntry `json:"scoreboard"`
}

// TickResult reports one call to Tick or Frame. Advanced is false when the
// call did not run a simulation step (paused, game over, or between ticks).
type TickResult struct {
	Tick     uint64    `json:"tick"`
	Advanced bool      `json:"advanced"`
	Events   []Event   `json:"events,omitempty"`
	GameOver *GameOver `json:"game_over,omitempty"`
}

// InputRecord is one accepted direction change. Tick is the number of ticks
// completed when the change arrived, so it applies to tick Tick+1.
type InputRecord struct {
	Tick      uint64    `json:"tick"`
	Entity    EntityID  `json:"entity"`
	Direction Direction `json:"direction"`
}

func deathEvent(tick uint64, e *Entity, cause string, killer EntityID) Event {
	p := e.pos
	msg := fmt.Sprintf("%s left the world at (%d,%d)", e.name, p.X, p.Y)
	if cause == CauseCollision {
		msg = fmt.Sprintf("%s was eliminated in a collision at (%d,%d)", e.name, p.X, p.Y)
	}
	return Event{
		Tick:     tick,
		Type:     EventDeath,
		Entity:   e.id,
		Name:     e.name,
		Other:    killer,
		Cause:    cause,
		Position: &p,
		Message:  msg,
	}
}

func collisionEvent(tick uint64, loser, winner *Entity, rule CollisionRule) Event {
	p := winner.pos
	return Event{
		Tick:     tick,
		Type:     EventCollision,
		Entity:   loser.id,
		Name:     loser.name,
		Other:    winner.id,
		Cause:    string(rule),
		Position: &p,
		Message:  fmt.Sprintf("%s and %s collided at (%d,%d); %s loses by %s", winner.name, loser.name, p.X, p.Y, loser.name, rule),
	}
}

func claimEvent(tick uint64, e *Entity, trail, enclosed int) Event {
	p := e.pos
	return Event{
		Tick:     tick,
		Type:     EventClaim,
		Entity:   e.id,
		Name:     e.name,
		Position: &p,
		Claimed:  trail,
		Enclosed: enclosed,
		Message:  fmt.Sprintf("%s closed a trail of %d tiles and enclosed %d more", e.name, trail, enclosed),
	}
}

func respawnEvent(tick uint64, e *Entity, replaces EntityID) Event {
	p := e.pos
	return Event{
		Tick:     tick,
		Type:     EventRespawn,
		Entity:   e.id,
		Name:     e.name,
		Other:    replaces,
		Position: &p,
		Message:  fmt.Sprintf("%s spawned at (%d,%d)", e.name, p.X, p.Y),
	}
}

func gameOverEvent(over *GameOver) Event {
	msg := fmt.Sprintf("Game over after %d ticks (%s)", over.Tick, over.Reason)
	ev := Event{Tick: over.Tick, Type: EventGameOver, Cause: over.Reason, Message: msg}
	if over.Winner != nil {
		ev.Entity = over.Winner.ID
		ev.Name = over.Winner.Name
		ev.Message = fmt.Sprintf("%s; %s leads with %.1f%%", msg, over.Winner.Name, over.Winner.PercentOwned)
	}
	return ev
}
