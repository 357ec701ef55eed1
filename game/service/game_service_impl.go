package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/territory-game/game/engine"
)

var (
	ErrAlreadyRunning = errors.New("session clock is already running")
	ErrInvalidTicks   = errors.New("ticks must be positive")
)

const (
	maxEventHistory     = 5000
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Option configures optional collaborators of the game service.
type Option func(*gameServiceImpl)

// WithResultStore archives every finished game in store.
func WithResultStore(store ResultStore) Option {
	return func(s *gameServiceImpl) { s.results = store }
}

// WithEventRecorder streams tick events to rec.
func WithEventRecorder(rec EventRecorder) Option {
	return func(s *gameServiceImpl) { s.recorder = rec }
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	results  ResultStore
	recorder EventRecorder

	// mu guards the session set; each session's own lock guards its engine.
	mu sync.RWMutex

	listenMu  sync.RWMutex
	listeners []TickListener
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v", configName, configIDs)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations", configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sess.Lock()
	defer sess.Unlock()
	s.attach(sess)
	sess.appendHistory(GameEvent{
		Type:      "session_created",
		Message:   fmt.Sprintf("Session created from %s with seed %d", config.Name, sess.Engine.Seed()),
		Timestamp: time.Now(),
	})

	info := s.info(sess)
	if configName != "" {
		info.ConfigName = configName
	}
	return info, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()
	return s.info(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		sess.Lock()
		s.attach(sess)
		result = append(result, s.info(sess))
		sess.Unlock()
	}
	return result, nil
}

// DeleteSession stops the session's clock and removes it
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	s.stopRunner(sess)
	if s.recorder != nil {
		if err := s.recorder.Finish(sessionID); err != nil {
			log.Printf("Warning: failed to close event log for session %s: %v", sessionID, err)
		}
	}
	return s.sessions.Delete(sessionID)
}

// SetDirection queues a direction change for a human entity
func (s *gameServiceImpl) SetDirection(ctx context.Context, sessionID string, entity engine.EntityID, direction string) (*DirectionResult, error) {
	d, err := engine.ParseDirection(direction)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	if err := sess.Engine.SetDirection(entity, d); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("entity %d", entity)
	if ent := sess.Engine.World().Entity(entity); ent != nil {
		name = ent.Name()
	}
	sess.appendHistory(GameEvent{
		Type:      "direction",
		Message:   fmt.Sprintf("%s turned %s", name, d),
		Timestamp: time.Now(),
		Tick:      sess.Engine.Ticks(),
		EntityID:  entity,
	})

	s.save(sess, "direction change")

	return &DirectionResult{
		EntityID:  entity,
		Direction: d,
		AppliesAt: sess.Engine.Ticks() + 1,
	}, nil
}

// Step advances a session by up to engine.MaxStepTicks ticks. It stops early
// when the game ends, the session is paused, or ctx is cancelled.
func (s *gameServiceImpl) Step(ctx context.Context, sessionID string, ticks int) (*StepResult, error) {
	if ticks <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidTicks, ticks)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}

	result := &StepResult{
		RequestedTicks: ticks,
		Events:         make([]GameEvent, 0),
	}
	if ticks > engine.MaxStepTicks {
		result.Truncated = true
		result.Limit = engine.MaxStepTicks
		ticks = engine.MaxStepTicks
	}

	var last *engine.TickResult
	for i := 0; i < ticks; i++ {
		if ctx.Err() != nil {
			result.StoppedReason = "cancelled"
			break
		}
		if sess.Engine.IsGameOver() {
			result.StoppedReason = "game_over"
			break
		}
		if sess.Engine.IsPaused() {
			result.StoppedReason = "paused"
			break
		}

		res, err := sess.Engine.Tick()
		if err != nil {
			sess.Unlock()
			return nil, fmt.Errorf("tick failed: %w", err)
		}
		events := s.recordTick(sess, res)
		result.Events = append(result.Events, events...)
		result.TicksExecuted++
		last = res
	}

	state, err := sess.Engine.Snapshot()
	if err != nil {
		sess.Unlock()
		return nil, err
	}
	result.GameState = state
	result.Scoreboard = state.Scoreboard
	result.GameOver = state.GameOver
	if result.GameOver != nil && result.StoppedReason == "" && result.TicksExecuted < ticks {
		result.StoppedReason = "game_over"
	}

	s.save(sess, "step")
	sess.Unlock()

	if last != nil {
		s.notify(sessionID, last, state)
	}
	return result, nil
}

// Pause suspends the session's simulation
func (s *gameServiceImpl) Pause(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	return s.control(sessionID, "paused", "Game paused", func(e *engine.GameEngine) error {
		return e.Pause()
	})
}

// Unpause resumes the session's simulation
func (s *gameServiceImpl) Unpause(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	return s.control(sessionID, "resumed", "Game resumed", func(e *engine.GameEngine) error {
		return e.Unpause()
	})
}

// Reset resets a game session to its initial state with the same seed
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	return s.control(sessionID, "reset", "Game reset to initial state", func(e *engine.GameEngine) error {
		if err := e.Reset(); err != nil {
			return err
		}
		// The replayed game starts a fresh event log
		if s.recorder != nil {
			if err := s.recorder.Finish(sessionID); err != nil {
				log.Printf("Warning: failed to close event log for session %s: %v", sessionID, err)
			}
		}
		return nil
	})
}

func (s *gameServiceImpl) control(sessionID, eventType, message string, fn func(*engine.GameEngine) error) (*engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	if err := fn(sess.Engine); err != nil {
		return nil, err
	}
	sess.appendHistory(GameEvent{
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
		Tick:      sess.Engine.Ticks(),
	})

	s.save(sess, eventType)
	return sess.Engine.Snapshot()
}

// Start drives the session from a wall-clock ticker at the configured
// frame rate until Stop is called or the game ends.
func (s *gameServiceImpl) Start(ctx context.Context, sessionID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.lockSession(sessionID)
	if err != nil {
		return err
	}
	defer sess.Unlock()

	if sess.Engine.IsGameOver() {
		return engine.ErrGameOver
	}
	if sess.running() {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	sess.cancel = cancel
	sess.done = done
	sess.appendHistory(GameEvent{
		Type:      "started",
		Message:   fmt.Sprintf("Clock started at %d fps", sess.Engine.GetConfig().EffectiveFrameRate()),
		Timestamp: time.Now(),
		Tick:      sess.Engine.Ticks(),
	})

	go s.run(runCtx, sess, done)
	return nil
}

// Stop halts the session's clock. Stopping an idle session is a no-op.
func (s *gameServiceImpl) Stop(ctx context.Context, sessionID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	s.stopRunner(sess)
	return nil
}

// Subscribe registers fn to hear about every advanced tick.
func (s *gameServiceImpl) Subscribe(fn TickListener) {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Shutdown stops every running session clock.
func (s *gameServiceImpl) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions.List() {
		s.stopRunner(sess)
	}
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()
	return sess.Engine.Snapshot()
}

// GetScoreboard ranks the session's live entities
func (s *gameServiceImpl) GetScoreboard(ctx context.Context, sessionID string) ([]engine.ScoreEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()
	return sess.Engine.Scoreboard()
}

// GetEventHistory returns paginated event history
func (s *gameServiceImpl) GetEventHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	history := make([]GameEvent, 0, len(sess.history))
	for _, ev := range sess.history {
		if opts.Type == "" || ev.Type == opts.Type {
			history = append(history, ev)
		}
	}
	sess.Unlock()

	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultHistoryLimit
	}
	if opts.Limit > maxHistoryLimit {
		opts.Limit = maxHistoryLimit
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var events []GameEvent
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			events = append(events, history[i])
		}
	} else if start < total {
		events = history[start:end]
	}
	if events == nil {
		events = []GameEvent{}
	}

	return &HistoryResponse{
		Events:      events,
		TotalEvents: total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// ListResults returns the most recent finished games, newest first
func (s *gameServiceImpl) ListResults(ctx context.Context, limit int) ([]*GameResult, error) {
	if s.results == nil {
		return []*GameResult{}, nil
	}
	return s.results.List(ctx, limit)
}

// lockSession looks a session up, touches it and returns it locked.
func (s *gameServiceImpl) lockSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	sess.Lock()
	s.attach(sess)
	return sess, nil
}

// attach registers the game-over hook once per session. Sessions restored
// from disk reach the service without it. Caller holds the session lock.
func (s *gameServiceImpl) attach(sess *Session) {
	if sess.attached {
		return
	}
	sess.attached = true
	sess.Engine.OnGameOver(func(over engine.GameOver) {
		s.finish(sess, over)
	})
}

// finish runs inside Tick with the session lock held.
func (s *gameServiceImpl) finish(sess *Session, over engine.GameOver) {
	if s.results != nil {
		result := NewGameResult(sess.ID, sess.Config.Name, sess.Engine.Seed(), over)
		if err := s.results.Record(context.Background(), result); err != nil {
			log.Printf("Warning: failed to record result for session %s: %v", sess.ID, err)
		}
	}
	if sess.cancel != nil {
		sess.cancel()
	}
}

// recordTick appends a tick's events to the session history and event log.
// Caller holds the session lock.
func (s *gameServiceImpl) recordTick(sess *Session, res *engine.TickResult) []GameEvent {
	if !res.Advanced {
		return nil
	}
	now := time.Now()
	events := make([]GameEvent, 0, len(res.Events))
	for _, ev := range res.Events {
		ge := fromEngineEvent(ev, now)
		events = append(events, ge)
		sess.appendHistory(ge)
	}

	if s.recorder == nil {
		return events
	}
	if len(res.Events) > 0 {
		if err := s.recorder.Append(sess.ID, res.Events); err != nil {
			log.Printf("Warning: failed to append events for session %s: %v", sess.ID, err)
		}
	}
	if res.GameOver != nil {
		if err := s.recorder.Finish(sess.ID); err != nil {
			log.Printf("Warning: failed to close event log for session %s: %v", sess.ID, err)
		}
	}
	return events
}

func (s *gameServiceImpl) run(ctx context.Context, sess *Session, done chan struct{}) {
	defer close(done)

	interval := time.Second / time.Duration(sess.Engine.GetConfig().EffectiveFrameRate())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.frame(ctx, sess) {
				return
			}
		}
	}
}

// frame runs one host frame and reports whether the runner should continue.
func (s *gameServiceImpl) frame(ctx context.Context, sess *Session) bool {
	sess.Lock()
	if ctx.Err() != nil {
		sess.Unlock()
		return false
	}
	res, err := sess.Engine.Frame()
	if err != nil {
		sess.Unlock()
		log.Printf("Warning: session %s halted: %v", sess.ID, err)
		return false
	}
	if !res.Advanced {
		sess.Unlock()
		return true
	}

	s.recordTick(sess, res)
	state, _ := sess.Engine.Snapshot()
	over := res.GameOver != nil
	if over {
		s.save(sess, "game over")
	}
	sess.Unlock()

	// A running clock counts as activity for expiry.
	s.sessions.UpdateLastAccessed(sess.ID)
	s.notify(sess.ID, res, state)
	return !over
}

// stopRunner cancels a session's clock and waits for it to exit. Caller
// must not hold the session lock.
func (s *gameServiceImpl) stopRunner(sess *Session) {
	sess.Lock()
	cancel, done := sess.cancel, sess.done
	wasRunning := sess.running()
	sess.cancel, sess.done = nil, nil
	if wasRunning {
		sess.appendHistory(GameEvent{
			Type:      "stopped",
			Message:   "Clock stopped",
			Timestamp: time.Now(),
			Tick:      sess.Engine.Ticks(),
		})
		s.save(sess, "stop")
	}
	sess.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *gameServiceImpl) notify(sessionID string, res *engine.TickResult, state *engine.Snapshot) {
	s.listenMu.RLock()
	listeners := s.listeners
	s.listenMu.RUnlock()

	for _, fn := range listeners {
		fn(sessionID, res, state)
	}
}

// save persists the session. Caller holds the session lock.
func (s *gameServiceImpl) save(sess *Session, after string) {
	if err := s.sessions.Save(sess.ID); err != nil {
		log.Printf("Warning: Failed to persist session %s after %s: %v", sess.ID, after, err)
	}
}

// info builds a SessionInfo. Caller holds the session lock.
func (s *gameServiceImpl) info(sess *Session) *SessionInfo {
	state, _ := sess.Engine.Snapshot()
	humans := make([]HumanSlot, 0, len(sess.Config.Humans))
	for i, name := range sess.Config.Humans {
		id := engine.EntityID(i + 1)
		alive := false
		if state != nil {
			_, alive = state.Entity(id)
		}
		humans = append(humans, HumanSlot{EntityID: id, Name: name, Alive: alive})
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     s.getConfigID(sess.Config.Name),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Running:        sess.running(),
		Humans:         humans,
		GameState:      state,
		GameConfig:     sess.Config,
	}
}

// appendHistory keeps at least the newest maxEventHistory events, trimming
// in batches.
func (sess *Session) appendHistory(ev GameEvent) {
	sess.history = append(sess.history, ev)
	if n := len(sess.history); n > maxEventHistory+maxEventHistory/4 {
		sess.history = append([]GameEvent(nil), sess.history[n-maxEventHistory:]...)
	}
}

func (sess *Session) running() bool {
	if sess.done == nil {
		return false
	}
	select {
	case <-sess.done:
		return false
	default:
		return true
	}
}
