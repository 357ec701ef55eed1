package service

import (
	"context"
	"sync"
	"time"

	"github.com/wricardo/territory-game/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	SetDirection(ctx context.Context, sessionID string, entity engine.EntityID, direction string) (*DirectionResult, error)
	Step(ctx context.Context, sessionID string, ticks int) (*StepResult, error)
	Pause(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	Unpause(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error)

	// Realtime clock
	Start(ctx context.Context, sessionID string) error
	Stop(ctx context.Context, sessionID string) error
	Subscribe(fn TickListener)
	Shutdown()

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetScoreboard(ctx context.Context, sessionID string) ([]engine.ScoreEntry, error)
	GetEventHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error

	// Results
	ListResults(ctx context.Context, limit int) ([]*GameResult, error)
}

// TickListener is told about every tick that advanced a session, after the
// session lock is released.
type TickListener func(sessionID string, result *engine.TickResult, state *engine.Snapshot)

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// ResultStore archives finished games.
type ResultStore interface {
	Record(ctx context.Context, result *GameResult) error
	List(ctx context.Context, limit int) ([]*GameResult, error)
}

// EventRecorder appends tick events to a per-session log.
type EventRecorder interface {
	Append(sessionID string, events []engine.Event) error
	Finish(sessionID string) error
}

// Session represents an active game session. The engine is not safe for
// concurrent use; hold the session lock around every engine call.
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	Config         *engine.GameConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time

	mu       sync.Mutex
	attached bool
	history  []GameEvent
	cancel   context.CancelFunc
	done     chan struct{}
}

// Lock acquires the session's engine lock.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session's engine lock.
func (s *Session) Unlock() { s.mu.Unlock() }
