package service

import (
	"time"

	"github.com/wricardo/territory-game/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	Running        bool               `json:"running"`
	Humans         []HumanSlot        `json:"humans"`
	GameState      *engine.Snapshot   `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// HumanSlot tells a client which entity id to steer.
type HumanSlot struct {
	EntityID engine.EntityID `json:"entity_id"`
	Name     string          `json:"name"`
	Alive    bool            `json:"alive"`
}

// DirectionResult confirms an accepted direction change.
type DirectionResult struct {
	EntityID  engine.EntityID  `json:"entity_id"`
	Direction engine.Direction `json:"direction"`
	// AppliesAt is the tick whose move will use the new direction.
	AppliesAt uint64 `json:"applies_at"`
}

// StepResult contains the result of advancing a session by several ticks
type StepResult struct {
	RequestedTicks int                `json:"requested_ticks"`
	TicksExecuted  int                `json:"ticks_executed"`
	Truncated      bool               `json:"truncated,omitempty"`
	Limit          int                `json:"limit,omitempty"`
	StoppedReason  string             `json:"stopped_reason,omitempty"`
	Events         []GameEvent        `json:"events"`
	GameState      *engine.Snapshot   `json:"game_state"`
	GameOver       *engine.GameOver   `json:"game_over,omitempty"`
	Scoreboard     []engine.ScoreEntry `json:"scoreboard"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string           `json:"type"` // engine event types plus "session_created", "reset", "paused", "resumed", "direction", "started", "stopped"
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Tick      uint64           `json:"tick"`
	EntityID  engine.EntityID  `json:"entity_id,omitempty"`
	Position  *engine.Position `json:"position,omitempty"`
}

// HistoryOptions configures event history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
	Type  string `json:"type,omitempty"`
}

// HistoryResponse contains paginated event history
type HistoryResponse struct {
	Events      []GameEvent `json:"events"`
	TotalEvents int         `json:"total_events"`
	Page        int         `json:"page"`
	PageSize    int         `json:"page_size"`
	TotalPages  int         `json:"total_pages"`
	HasNext     bool        `json:"has_next"`
	HasPrevious bool        `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Humans      int    `json:"humans"`
	Bots        int    `json:"bots"`
}

// GameResult is the archived outcome of a finished game.
type GameResult struct {
	ID            string              `json:"id"`
	SessionID     string              `json:"session_id"`
	ConfigName    string              `json:"config_name"`
	Seed          uint64              `json:"seed"`
	Ticks         uint64              `json:"ticks"`
	Reason        string              `json:"reason"`
	WinnerName    string              `json:"winner_name,omitempty"`
	WinnerKind    string              `json:"winner_kind,omitempty"`
	WinnerPercent float64             `json:"winner_percent,omitempty"`
	Scoreboard    []engine.ScoreEntry `json:"scoreboard"`
	FinishedAt    time.Time           `json:"finished_at"`
}

// NewGameResult builds a result row from an engine summary.
func NewGameResult(sessionID, configName string, seed uint64, over engine.GameOver) *GameResult {
	r := &GameResult{
		SessionID:  sessionID,
		ConfigName: configName,
		Seed:       seed,
		Ticks:      over.Tick,
		Reason:     over.Reason,
		Scoreboard: over.Scoreboard,
		FinishedAt: time.Now().UTC(),
	}
	if over.Winner != nil {
		r.WinnerName = over.Winner.Name
		r.WinnerKind = string(over.Winner.Kind)
		r.WinnerPercent = over.Winner.PercentOwned
	}
	return r
}

func fromEngineEvent(ev engine.Event, at time.Time) GameEvent {
	return GameEvent{
		Type:      string(ev.Type),
		Message:   ev.Message,
		Timestamp: at,
		Tick:      ev.Tick,
		EntityID:  ev.Entity,
		Position:  ev.Position,
	}
}
