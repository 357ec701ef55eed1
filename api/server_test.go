package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/wricardo/territory-game/game/config"
	"github.com/wricardo/territory-game/game/engine"
	"github.com/wricardo/territory-game/game/service"
	"github.com/wricardo/territory-game/game/session"
	"github.com/wricardo/territory-game/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Game Operations
	SetDirectionFunc func(ctx context.Context, sessionID string, entity engine.EntityID, direction string) (*service.DirectionResult, error)
	StepFunc         func(ctx context.Context, sessionID string, ticks int) (*service.StepResult, error)
	PauseFunc        func(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	UnpauseFunc      func(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	ResetFunc        func(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	StartFunc        func(ctx context.Context, sessionID string) error
	StopFunc         func(ctx context.Context, sessionID string) error

	// Game State
	GetGameStateFunc    func(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetScoreboardFunc   func(ctx context.Context, sessionID string) ([]engine.ScoreEntry, error)
	GetEventHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)

	// Configuration
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfigFunc  func(ctx context.Context, configName string, config *engine.GameConfig) error

	ListResultsFunc func(ctx context.Context, limit int) ([]*service.GameResult, error)

	mu        sync.Mutex
	listeners []service.TickListener
}

func (m *MockGameService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{ID: "test-session", ConfigName: configName, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, ConfigName: "test-config", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) SetDirection(ctx context.Context, sessionID string, entity engine.EntityID, direction string) (*service.DirectionResult, error) {
	if m.SetDirectionFunc != nil {
		return m.SetDirectionFunc(ctx, sessionID, entity, direction)
	}
	d, err := engine.ParseDirection(direction)
	if err != nil {
		return nil, err
	}
	return &service.DirectionResult{EntityID: entity, Direction: d, AppliesAt: 1}, nil
}

func (m *MockGameService) Step(ctx context.Context, sessionID string, ticks int) (*service.StepResult, error) {
	if m.StepFunc != nil {
		return m.StepFunc(ctx, sessionID, ticks)
	}
	return &service.StepResult{
		RequestedTicks: ticks,
		TicksExecuted:  ticks,
		GameState:      testSnapshot(uint64(ticks)),
	}, nil
}

func (m *MockGameService) Pause(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	if m.PauseFunc != nil {
		return m.PauseFunc(ctx, sessionID)
	}
	snap := testSnapshot(0)
	snap.Paused = true
	return snap, nil
}

func (m *MockGameService) Unpause(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	if m.UnpauseFunc != nil {
		return m.UnpauseFunc(ctx, sessionID)
	}
	return testSnapshot(0), nil
}

func (m *MockGameService) Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return testSnapshot(0), nil
}

func (m *MockGameService) Start(ctx context.Context, sessionID string) error {
	if m.StartFunc != nil {
		return m.StartFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) Stop(ctx context.Context, sessionID string) error {
	if m.StopFunc != nil {
		return m.StopFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) Subscribe(fn service.TickListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *MockGameService) Shutdown() {}

func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return testSnapshot(0), nil
}

func (m *MockGameService) GetScoreboard(ctx context.Context, sessionID string) ([]engine.ScoreEntry, error) {
	if m.GetScoreboardFunc != nil {
		return m.GetScoreboardFunc(ctx, sessionID)
	}
	return testSnapshot(0).Scoreboard, nil
}

func (m *MockGameService) GetEventHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetEventHistoryFunc != nil {
		return m.GetEventHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{Page: opts.Page, PageSize: opts.Limit}, nil
}

func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	return engine.DefaultConfig(), nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, config)
	}
	return nil
}

func (m *MockGameService) ListResults(ctx context.Context, limit int) ([]*service.GameResult, error) {
	if m.ListResultsFunc != nil {
		return m.ListResultsFunc(ctx, limit)
	}
	return []*service.GameResult{}, nil
}

func testSnapshot(tick uint64) *engine.Snapshot {
	return &engine.Snapshot{
		Width:  20,
		Height: 16,
		Tick:   tick,
		Seed:   42,
		Entities: []engine.EntityView{
			{ID: 1, Name: "Alice", Kind: engine.KindHuman, Alive: true, Position: engine.Position{X: 4, Y: 5}, OwnedCount: 9},
		},
		Scoreboard: []engine.ScoreEntry{
			{Rank: 1, ID: 1, Name: "Alice", Kind: engine.KindHuman, OwnedCount: 9, PercentOwned: 2.81},
		},
	}
}

func setupTestServer(mockService *MockGameService) *Server {
	return NewServer(mockService, nil)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

type routeTest struct {
	name           string
	method         string
	path           string
	body           interface{}
	setupMock      func(*MockGameService)
	expectedStatus int
	validateResp   func(*testing.T, *httptest.ResponseRecorder)
}

func runRouteTests(t *testing.T, tests []routeTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest(tt.method, tt.path, tt.body))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func expectError(want string) func(*testing.T, *httptest.ResponseRecorder) {
	return func(t *testing.T, w *httptest.ResponseRecorder) {
		var resp map[string]string
		parseResponse(t, w, &resp)
		if !strings.Contains(resp["error"], want) {
			t.Errorf("Expected error containing %q, got %q", want, resp["error"])
		}
	}
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	runRouteTests(t, []routeTest{
		{
			name:   "Create session with default config",
			method: "POST",
			path:   "/api/sessions",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "" {
						t.Errorf("Expected empty config name, got %s", configName)
					}
					return &service.SessionInfo{ID: "sess-123", ConfigName: "classic"}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "sess-123" {
					t.Errorf("Expected session ID sess-123, got %s", resp.ID)
				}
			},
		},
		{
			name:   "Create session with config_id",
			method: "POST",
			path:   "/api/sessions",
			body:   map[string]string{"config_id": "duel", "config_name": "ignored"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "duel" {
						t.Errorf("Expected config duel, got %s", configName)
					}
					return &service.SessionInfo{ID: "sess-456", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:   "Unknown config",
			method: "POST",
			path:   "/api/sessions",
			body:   map[string]string{"config_name": "nope"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("config 'nope' not found. Available configs: [classic]")
				}
			},
			expectedStatus: http.StatusNotFound,
			validateResp:   expectError("Available configs"),
		},
		{
			name:   "Handle service error",
			method: "POST",
			path:   "/api/sessions",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp:   expectError("service error"),
		},
	})
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	threeSessions := func(m *MockGameService) {
		m.ListSessionsFunc = func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "old", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now.Add(-time.Minute)},
				{ID: "mid", CreatedAt: now.Add(-time.Hour), LastAccessedAt: now.Add(-time.Hour)},
				{ID: "new", CreatedAt: now, LastAccessedAt: now.Add(-2 * time.Hour)},
			}, nil
		}
	}
	firstID := func(want string, count int) func(*testing.T, *httptest.ResponseRecorder) {
		return func(t *testing.T, w *httptest.ResponseRecorder) {
			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)
			if resp.Count != count || resp.Total != 3 {
				t.Errorf("Expected count %d of 3, got %d of %d", count, resp.Count, resp.Total)
			}
			if len(resp.Sessions) == 0 || resp.Sessions[0].ID != want {
				t.Errorf("Expected %s first, got %+v", want, resp.Sessions)
			}
		}
	}

	runRouteTests(t, []routeTest{
		{name: "Default sort by last access", method: "GET", path: "/api/sessions", setupMock: threeSessions, expectedStatus: http.StatusOK, validateResp: firstID("old", 3)},
		{name: "Sort by creation", method: "GET", path: "/api/sessions?sort=created", setupMock: threeSessions, expectedStatus: http.StatusOK, validateResp: firstID("new", 3)},
		{name: "Ascending with limit", method: "GET", path: "/api/sessions?sort=created&order=asc&limit=1", setupMock: threeSessions, expectedStatus: http.StatusOK, validateResp: firstID("old", 1)},
		{
			name:   "Handle service error",
			method: "GET",
			path:   "/api/sessions",
			setupMock: func(m *MockGameService) {
				m.ListSessionsFunc = func(ctx context.Context) ([]*service.SessionInfo, error) {
					return nil, fmt.Errorf("database error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp:   expectError("database error"),
		},
	})
}

func TestGetAndDeleteSession(t *testing.T) {
	notFound := func(m *MockGameService) {
		m.GetSessionFunc = func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			return nil, fmt.Errorf("session not found: %s", sessionID)
		}
		m.DeleteSessionFunc = func(ctx context.Context, sessionID string) error {
			return fmt.Errorf("session not found: %s", sessionID)
		}
	}

	runRouteTests(t, []routeTest{
		{
			name:           "Get session",
			method:         "GET",
			path:           "/api/sessions/abcd",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "abcd" {
					t.Errorf("Expected session abcd, got %s", resp.ID)
				}
			},
		},
		{name: "Get missing session", method: "GET", path: "/api/sessions/nope", setupMock: notFound, expectedStatus: http.StatusNotFound},
		{
			name:           "Delete session",
			method:         "DELETE",
			path:           "/api/sessions/abcd",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["message"] != "Session abcd deleted" {
					t.Errorf("Unexpected message %q", resp["message"])
				}
			},
		},
		{name: "Delete missing session", method: "DELETE", path: "/api/sessions/nope", setupMock: notFound, expectedStatus: http.StatusNotFound},
	})
}

// Game Operation Tests

func TestSetDirection(t *testing.T) {
	runRouteTests(t, []routeTest{
		{
			name:           "Steer the first human by default",
			method:         "POST",
			path:           "/api/sessions/abcd/direction",
			body:           map[string]string{"direction": "north"},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.DirectionResult
				parseResponse(t, w, &resp)
				if resp.EntityID != 1 || resp.Direction != engine.North {
					t.Errorf("Expected entity 1 heading north, got %+v", resp)
				}
			},
		},
		{
			name:   "Steer a given entity",
			method: "POST",
			path:   "/api/sessions/abcd/direction",
			body:   map[string]interface{}{"entity": 2, "direction": "west"},
			setupMock: func(m *MockGameService) {
				m.SetDirectionFunc = func(ctx context.Context, sessionID string, entity engine.EntityID, direction string) (*service.DirectionResult, error) {
					if entity != 2 || direction != "west" {
						t.Errorf("Expected entity 2 west, got %d %s", entity, direction)
					}
					return &service.DirectionResult{EntityID: entity, Direction: engine.West}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{name: "Invalid direction", method: "POST", path: "/api/sessions/abcd/direction", body: map[string]string{"direction": "sideways"}, expectedStatus: http.StatusBadRequest},
		{
			name:   "Bot entity",
			method: "POST",
			path:   "/api/sessions/abcd/direction",
			body:   map[string]interface{}{"entity": 3, "direction": "east"},
			setupMock: func(m *MockGameService) {
				m.SetDirectionFunc = func(ctx context.Context, sessionID string, entity engine.EntityID, direction string) (*service.DirectionResult, error) {
					return nil, fmt.Errorf("entity %d: %w", entity, engine.ErrNotControllable)
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Unknown entity",
			method: "POST",
			path:   "/api/sessions/abcd/direction",
			body:   map[string]interface{}{"entity": 99, "direction": "east"},
			setupMock: func(m *MockGameService) {
				m.SetDirectionFunc = func(ctx context.Context, sessionID string, entity engine.EntityID, direction string) (*service.DirectionResult, error) {
					return nil, engine.ErrEntityNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{name: "Malformed body", method: "POST", path: "/api/sessions/abcd/direction", body: "north", expectedStatus: http.StatusBadRequest},
	})
}

func TestTick(t *testing.T) {
	var gotTicks int
	recordTicks := func(m *MockGameService) {
		m.StepFunc = func(ctx context.Context, sessionID string, ticks int) (*service.StepResult, error) {
			gotTicks = ticks
			return &service.StepResult{RequestedTicks: ticks, TicksExecuted: ticks, GameState: testSnapshot(uint64(ticks))}, nil
		}
	}

	runRouteTests(t, []routeTest{
		{
			name:           "Explicit tick count",
			method:         "POST",
			path:           "/api/sessions/abcd/tick",
			body:           map[string]int{"ticks": 25},
			setupMock:      recordTicks,
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				if gotTicks != 25 {
					t.Errorf("Expected 25 ticks, got %d", gotTicks)
				}
				var resp service.StepResult
				parseResponse(t, w, &resp)
				if resp.GameState.Tick != 25 {
					t.Errorf("Expected tick 25, got %d", resp.GameState.Tick)
				}
			},
		},
		{
			name:           "Empty object defaults to one tick",
			method:         "POST",
			path:           "/api/sessions/abcd/tick",
			body:           map[string]int{},
			setupMock:      recordTicks,
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				if gotTicks != 1 {
					t.Errorf("Expected 1 tick, got %d", gotTicks)
				}
			},
		},
		{
			name:   "Non-positive ticks",
			method: "POST",
			path:   "/api/sessions/abcd/tick",
			body:   map[string]int{"ticks": -3},
			setupMock: func(m *MockGameService) {
				m.StepFunc = func(ctx context.Context, sessionID string, ticks int) (*service.StepResult, error) {
					return nil, service.ErrInvalidTicks
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
	})
}

func TestControl(t *testing.T) {
	runRouteTests(t, []routeTest{
		{
			name:           "Pause",
			method:         "POST",
			path:           "/api/sessions/abcd/pause",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp struct {
					Message string           `json:"message"`
					State   *engine.Snapshot `json:"state"`
				}
				parseResponse(t, w, &resp)
				if resp.Message != "Game paused" || !resp.State.Paused {
					t.Errorf("Expected a paused state, got %+v", resp)
				}
			},
		},
		{name: "Unpause", method: "POST", path: "/api/sessions/abcd/unpause", expectedStatus: http.StatusOK},
		{name: "Reset", method: "POST", path: "/api/sessions/abcd/reset", expectedStatus: http.StatusOK},
		{
			name:   "Pause a finished game",
			method: "POST",
			path:   "/api/sessions/abcd/pause",
			setupMock: func(m *MockGameService) {
				m.PauseFunc = func(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
					return nil, engine.ErrGameOver
				}
			},
			expectedStatus: http.StatusConflict,
		},
		{name: "Start", method: "POST", path: "/api/sessions/abcd/start", expectedStatus: http.StatusOK},
		{
			name:   "Start twice",
			method: "POST",
			path:   "/api/sessions/abcd/start",
			setupMock: func(m *MockGameService) {
				m.StartFunc = func(ctx context.Context, sessionID string) error {
					return service.ErrAlreadyRunning
				}
			},
			expectedStatus: http.StatusConflict,
		},
		{name: "Stop", method: "POST", path: "/api/sessions/abcd/stop", expectedStatus: http.StatusOK},
	})
}

func TestGetEvents(t *testing.T) {
	runRouteTests(t, []routeTest{
		{
			name:   "Query options",
			method: "GET",
			path:   "/api/sessions/abcd/events?page=2&limit=5&order=asc&type=death",
			setupMock: func(m *MockGameService) {
				m.GetEventHistoryFunc = func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					want := service.HistoryOptions{Page: 2, Limit: 5, Order: "asc", Type: "death"}
					if opts != want {
						t.Errorf("Expected %+v, got %+v", want, opts)
					}
					return &service.HistoryResponse{Page: 2, PageSize: 5}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Defaults",
			method: "GET",
			path:   "/api/sessions/abcd/events?page=x&order=sideways",
			setupMock: func(m *MockGameService) {
				m.GetEventHistoryFunc = func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					want := service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}
					if opts != want {
						t.Errorf("Expected %+v, got %+v", want, opts)
					}
					return &service.HistoryResponse{}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
	})
}

func TestGameStateAndScoreboard(t *testing.T) {
	runRouteTests(t, []routeTest{
		{
			name:           "State",
			method:         "GET",
			path:           "/api/sessions/abcd/state",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp engine.Snapshot
				parseResponse(t, w, &resp)
				if resp.Width != 20 || len(resp.Entities) != 1 {
					t.Errorf("Unexpected state %+v", resp)
				}
			},
		},
		{
			name:           "Scoreboard",
			method:         "GET",
			path:           "/api/sessions/abcd/scoreboard",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp struct {
					Scoreboard []engine.ScoreEntry `json:"scoreboard"`
				}
				parseResponse(t, w, &resp)
				if len(resp.Scoreboard) != 1 || resp.Scoreboard[0].Name != "Alice" {
					t.Errorf("Unexpected scoreboard %+v", resp.Scoreboard)
				}
			},
		},
		{
			name:   "Missing session",
			method: "GET",
			path:   "/api/sessions/nope/state",
			setupMock: func(m *MockGameService) {
				m.GetGameStateFunc = func(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
					return nil, fmt.Errorf("session not found: nope")
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	})
}

// Configuration Tests

func TestConfigs(t *testing.T) {
	runRouteTests(t, []routeTest{
		{
			name:   "List configs",
			method: "GET",
			path:   "/api/configs",
			setupMock: func(m *MockGameService) {
				m.ListConfigsFunc = func(ctx context.Context) ([]*service.ConfigInfo, error) {
					return []*service.ConfigInfo{{ConfigID: "classic", Name: "classic", Width: 48, Height: 32}}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp []service.ConfigInfo
				parseResponse(t, w, &resp)
				if len(resp) != 1 || resp[0].Width != 48 {
					t.Errorf("Unexpected configs %+v", resp)
				}
			},
		},
		{
			name:   "Get config",
			method: "GET",
			path:   "/api/configs/duel",
			setupMock: func(m *MockGameService) {
				m.LoadConfigFunc = func(ctx context.Context, configName string) (*engine.GameConfig, error) {
					if configName != "duel" {
						return nil, fmt.Errorf("configuration not found")
					}
					return &engine.GameConfig{Name: "duel", Width: 32, Height: 24}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Get missing config",
			method: "GET",
			path:   "/api/configs/nope",
			setupMock: func(m *MockGameService) {
				m.LoadConfigFunc = func(ctx context.Context, configName string) (*engine.GameConfig, error) {
					return nil, fmt.Errorf("configuration not found")
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "Create config",
			method: "POST",
			path:   "/api/configs",
			body:   map[string]interface{}{"config_id": "tiny", "name": "Tiny", "description": "small", "width": 12, "height": 12, "bots": 2},
			setupMock: func(m *MockGameService) {
				m.SaveConfigFunc = func(ctx context.Context, configName string, config *engine.GameConfig) error {
					if configName != "tiny" || config.Bots != 2 {
						t.Errorf("Expected tiny with 2 bots, got %s %+v", configName, config)
					}
					return nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{name: "Create config without name", method: "POST", path: "/api/configs", body: map[string]interface{}{"width": 12}, expectedStatus: http.StatusBadRequest},
		{name: "Create config without entities", method: "POST", path: "/api/configs", body: map[string]interface{}{"name": "empty", "width": 12, "height": 12}, expectedStatus: http.StatusBadRequest},
	})
}

func TestResults(t *testing.T) {
	runRouteTests(t, []routeTest{
		{
			name:   "List results with limit",
			method: "GET",
			path:   "/api/results?limit=3",
			setupMock: func(m *MockGameService) {
				m.ListResultsFunc = func(ctx context.Context, limit int) ([]*service.GameResult, error) {
					if limit != 3 {
						t.Errorf("Expected limit 3, got %d", limit)
					}
					return []*service.GameResult{{ID: "r1", Reason: engine.ReasonTickLimit}}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp struct {
					Count   int                   `json:"count"`
					Results []*service.GameResult `json:"results"`
				}
				parseResponse(t, w, &resp)
				if resp.Count != 1 || resp.Results[0].ID != "r1" {
					t.Errorf("Unexpected results %+v", resp)
				}
			},
		},
	})
}

func TestUnifiedSessions(t *testing.T) {
	sessions := map[string]*service.SessionInfo{
		"a": {ID: "a", ConfigName: "classic", GameState: testSnapshot(4)},
		"b": {ID: "b", ConfigName: "duel"},
	}
	mock := func(m *MockGameService) {
		m.GetSessionFunc = func(ctx context.Context, id string) (*service.SessionInfo, error) {
			if s, ok := sessions[id]; ok {
				return s, nil
			}
			return nil, fmt.Errorf("session not found")
		}
		m.ListSessionsFunc = func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{sessions["a"], sessions["b"]}, nil
		}
	}
	count := func(want int) func(*testing.T, *httptest.ResponseRecorder) {
		return func(t *testing.T, w *httptest.ResponseRecorder) {
			var resp map[string]interface{}
			parseResponse(t, w, &resp)
			if resp["count"].(float64) != float64(want) {
				t.Errorf("Expected %d sessions, got %v", want, resp["count"])
			}
		}
	}

	runRouteTests(t, []routeTest{
		{name: "All sessions", method: "GET", path: "/api/sessions/unified", setupMock: mock, expectedStatus: http.StatusOK, validateResp: count(2)},
		{name: "By ids", method: "GET", path: "/api/sessions/unified?sessionIds=a,%20missing", setupMock: mock, expectedStatus: http.StatusOK, validateResp: count(1)},
		{name: "By config", method: "GET", path: "/api/sessions/unified?configName=duel", setupMock: mock, expectedStatus: http.StatusOK, validateResp: count(1)},
	})
}

func TestIndexAndHealth(t *testing.T) {
	runRouteTests(t, []routeTest{
		{name: "Index", method: "GET", path: "/api", expectedStatus: http.StatusOK},
		{
			name:           "Health",
			method:         "GET",
			path:           "/api/health",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["status"] != "healthy" {
					t.Errorf("Expected healthy, got %s", resp["status"])
				}
			},
		},
	})
}

func TestWebSocketEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		hub            bool
		expectedStatus int
	}{
		{"Missing session parameter", "/ws", true, http.StatusBadRequest},
		{"Unknown session", "/ws?session=nope", true, http.StatusNotFound},
		{"No hub", "/ws?session=abcd", false, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				GetSessionFunc: func(ctx context.Context, id string) (*service.SessionInfo, error) {
					if id == "abcd" {
						return &service.SessionInfo{ID: id}, nil
					}
					return nil, fmt.Errorf("session not found")
				},
			}
			var hub *websocket.Hub
			if tt.hub {
				hub = websocket.NewHub()
			}
			server := NewServer(mockService, hub)

			w := httptest.NewRecorder()
			server.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestNewServerSubscribesHub(t *testing.T) {
	mockService := &MockGameService{}
	NewServer(mockService, websocket.NewHub())

	if len(mockService.listeners) != 1 {
		t.Errorf("Expected the hub to subscribe to ticks, got %d listeners", len(mockService.listeners))
	}
}

// TestEndToEnd drives a real service through HTTP and watches it over WebSocket.
func TestEndToEnd(t *testing.T) {
	configManager, err := config.NewManager("../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	gameService := service.NewGameService(session.NewManager(), configManager)
	defer gameService.Shutdown()

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	ts := httptest.NewServer(NewServer(gameService, hub))
	defer ts.Close()

	post := func(path string, body interface{}, target interface{}) int {
		t.Helper()
		data, _ := json.Marshal(body)
		resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
		if err != nil {
			t.Fatalf("POST %s failed: %v", path, err)
		}
		defer resp.Body.Close()
		if target != nil {
			json.NewDecoder(resp.Body).Decode(target)
		}
		return resp.StatusCode
	}

	var info service.SessionInfo
	if status := post("/api/sessions", map[string]string{"config_id": "sandbox"}, &info); status != http.StatusCreated {
		t.Fatalf("Expected 201 creating a session, got %d", status)
	}
	if len(info.Humans) != 1 {
		t.Fatalf("Expected one human slot, got %+v", info.Humans)
	}

	conn, _, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws?session="+info.ID, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount(info.ID) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	// Steer over the socket
	if err := conn.WriteJSON(websocket.Command{Type: websocket.CommandDirection, Entity: 1, Direction: "south"}); err != nil {
		t.Fatalf("Failed to send command: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ack websocket.Message
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("Failed to read ack: %v", err)
	}
	if ack.Event != websocket.EventAck {
		t.Fatalf("Expected ack, got %s (%v)", ack.Event, ack.Data)
	}

	var step service.StepResult
	if status := post("/api/sessions/"+info.ID+"/tick", map[string]int{"ticks": 3}, &step); status != http.StatusOK {
		t.Fatalf("Expected 200 stepping, got %d", status)
	}
	if step.TicksExecuted != 3 || step.GameState.Tick != 3 {
		t.Errorf("Expected 3 ticks, got %d (state tick %d)", step.TicksExecuted, step.GameState.Tick)
	}

	var update websocket.Message
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("Failed to read tick update: %v", err)
	}
	if update.Event != websocket.EventTick || update.Tick != 3 {
		t.Errorf("Expected a tick update for tick 3, got %s at %d", update.Event, update.Tick)
	}
	if update.GameState == nil || update.GameState.Tick != 3 {
		t.Error("Expected the tick update to carry the state")
	}
}
