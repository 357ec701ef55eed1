package session

import (
	"time"

	"github.com/wricardo/territory-game/game/engine"
	"github.com/wricardo/territory-game/game/service"
)

// SessionPersistence defines the interface for persisting sessions. Save
// reads the session's engine, so callers hold the session lock.
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData is the on-disk form of a session. The world itself
// is not stored: seed, input log and tick count rebuild it by replay.
type PersistedSessionData struct {
	ID             string               `json:"id"`
	ConfigName     string               `json:"config_name"`
	Config         *engine.GameConfig   `json:"config,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	Seed           uint64               `json:"seed"`
	Tick           uint64               `json:"tick"`
	Paused         bool                 `json:"paused"`
	Inputs         []engine.InputRecord `json:"inputs"`
}
