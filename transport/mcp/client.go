package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/territory-game/game/engine"
	"github.com/wricardo/territory-game/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Territory Game",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Territory Game - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Steer your entity out of your territory, trace a loop and come back home to
claim everything the loop encloses. Own the largest share of the board.

AVAILABLE TOOLS:
- create_session / get_session / list_sessions: manage game sessions
- game_state: board, entities and scoreboard
- set_direction: queue a turn for a human entity (north/east/south/west)
- tick: advance the simulation by N ticks
- pause / unpause / reset_game: control a session
- start_clock / stop_clock: run the session in real time
- scoreboard: ranked territory shares
- event_history: deaths, claims, respawns and control events
- describe_cell: owner and trail state of one tile
- list_configs / list_results: available setups and finished games
- game_instructions: full rules`),
	)

	c.registerTools()
}

func sessionOnly(description string) mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"session_id": map[string]interface{}{
				"type":        "string",
				"description": description,
			},
		},
		Required: []string{"session_id"},
	}
}

func noArgs() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]interface{}{},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_name": map[string]interface{}{
					"type":        "string",
					"description": "Config id to use (optional, see list_configs)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: noArgs(),
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session, including which entity ids are human-controlled",
		InputSchema: sessionOnly("Session ID to retrieve"),
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, entities and scoreboard",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"include_board": map[string]interface{}{
					"type":        "boolean",
					"description": "Render the board as text (default true)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_direction",
		Description: "Queue a direction change for a human entity. It applies on the next tick.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"entity": map[string]interface{}{
					"type":        "integer",
					"description": "Human entity id (default 1)",
				},
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"north", "east", "south", "west"},
					"description": "Direction to head",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this turn (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "direction"},
		},
	}, c.handleSetDirection)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "tick",
		Description: "Advance the simulation by a number of ticks (default 1, at most 1000). Stops early on game over or pause.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"ticks": map[string]interface{}{
					"type":        "integer",
					"description": "Number of ticks to run",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleTick)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "pause",
		Description: "Pause a session",
		InputSchema: sessionOnly("Session ID"),
	}, c.handlePause)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "unpause",
		Description: "Resume a paused session",
		InputSchema: sessionOnly("Session ID"),
	}, c.handleUnpause)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the game to its initial state with the same seed",
		InputSchema: sessionOnly("Session ID"),
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_clock",
		Description: "Run the session in real time at its configured frame rate",
		InputSchema: sessionOnly("Session ID"),
	}, c.handleStart)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "stop_clock",
		Description: "Stop the session's real-time clock",
		InputSchema: sessionOnly("Session ID"),
	}, c.handleStop)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "scoreboard",
		Description: "Get the ranked territory shares of a session",
		InputSchema: sessionOnly("Session ID"),
	}, c.handleScoreboard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "event_history",
		Description: "Get the event history of a session, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Only events of this type (death, claim, respawn, game_over, ...)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleEventHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get the owner, trail and occupant of a single tile",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "X coordinate (column, 0-based)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Y coordinate (row, 0-based)",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: noArgs(),
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_results",
		Description: "List finished games, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results",
				},
			},
		},
	}, c.handleListResults)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: noArgs(),
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	configName, _ := arguments(request)["config_name"].(string)

	body := map[string]string{}
	if configName != "" {
		body["config_id"] = configName
	}

	var session service.SessionInfo
	if err := c.apiCall("POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall("GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		tick := uint64(0)
		if s.GameState != nil {
			tick = s.GameState.Tick
		}
		status := "stepped"
		if s.Running {
			status = "running"
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Tick: %d, %s, Created: %s)\n",
			s.ID, s.ConfigName, tick, status, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall("GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	includeBoard := true
	if v, ok := args["include_board"].(bool); ok {
		includeBoard = v
	}

	var state engine.Snapshot
	if err := c.apiCall("GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := formatGameState(&state)
	if includeBoard {
		result += "\n" + renderBoard(&state)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleSetDirection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	direction, _ := args["direction"].(string)
	entity, ok := intArg(args, "entity")
	if !ok {
		entity = 1
	}

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = args["intent"]

	var result service.DirectionResult
	body := map[string]interface{}{"entity": entity, "direction": direction}
	if err := c.apiCall("POST", sessionPath(sessionID, "/direction"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Entity %d will head %s from tick %d",
		result.EntityID, result.Direction, result.AppliesAt)), nil
}

func (c *Client) handleTick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	ticks, ok := intArg(args, "ticks")
	if !ok {
		ticks = 1
	}

	var result service.StepResult
	if err := c.apiCall("POST", sessionPath(sessionID, "/tick"), map[string]int{"ticks": ticks}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatStepResult(sessionID, &result)), nil
}

func (c *Client) control(sessionID, action string) (*mcp.CallToolResult, error) {
	var response struct {
		Message string           `json:"message"`
		State   *engine.Snapshot `json:"state"`
	}
	if err := c.apiCall("POST", sessionPath(sessionID, "/"+action), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handlePause(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)
	return c.control(sessionID, "pause")
}

func (c *Client) handleUnpause(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)
	return c.control(sessionID, "unpause")
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)
	return c.control(sessionID, "reset")
}

func (c *Client) clock(sessionID, action string) (*mcp.CallToolResult, error) {
	var response struct {
		Message string `json:"message"`
	}
	if err := c.apiCall("POST", sessionPath(sessionID, "/"+action), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s for session %s", response.Message, sessionID)), nil
}

func (c *Client) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)
	return c.clock(sessionID, "start")
}

func (c *Client) handleStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)
	return c.clock(sessionID, "stop")
}

func (c *Client) handleScoreboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Scoreboard []engine.ScoreEntry `json:"scoreboard"`
	}
	if err := c.apiCall("GET", sessionPath(sessionID, "/scoreboard"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatScoreboard(response.Scoreboard)), nil
}

func (c *Client) handleEventHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", fmt.Sprint(limit))
	}
	if typ, _ := args["type"].(string); typ != "" {
		params.Set("type", typ)
	}
	path := sessionPath(sessionID, "/events")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall("GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required integers"), nil
	}

	var state engine.Snapshot
	if err := c.apiCall("GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(describeCell(&state, x, y)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall("GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Board: %dx%d, Humans: %d, Bots: %d\n\n",
			config.Name, config.ConfigID, config.Description, config.Width, config.Height, config.Humans, config.Bots)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/results"
	if limit, ok := intArg(arguments(request), "limit"); ok && limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var response struct {
		Count   int                  `json:"count"`
		Results []service.GameResult `json:"results"`
	}
	if err := c.apiCall("GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Finished Games (%d):\n\n", response.Count)
	for _, r := range response.Results {
		winner := "no winner"
		if r.WinnerName != "" {
			winner = fmt.Sprintf("%s (%s) %.1f%%", r.WinnerName, r.WinnerKind, r.WinnerPercent)
		}
		fmt.Fprintf(&b, "- %s session=%s config=%s ticks=%d reason=%s winner=%s\n",
			r.FinishedAt.Format("2006-01-02 15:04:05"), r.SessionID, r.ConfigName, r.Ticks, r.Reason, winner)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Territory Game - Complete Instructions

GAME OBJECTIVE:
Own as much of the board as possible. Every entity starts on a small block
of its own territory. Leave it, draw a loop, and return: the trail and every
tile the loop encloses become yours.

GAME MECHANICS:
• Time advances in ticks. Each tick every living entity moves one tile in
  its current heading.
• Outside your territory you leave a trail. Trail tiles are contested until
  you get home.
• Returning to your own territory claims the trail plus every tile that is
  fully enclosed by your territory.
• A claim can take tiles away from other entities.

DEATH:
• Leaving the board kills you.
• Two entities landing on the same tile in the same tick collide. The one
  with the longer open trail dies; with equal trails the one owning fewer
  tiles dies; if that is equal too, the later mover dies.
• Crossing another entity's trail is safe and takes those tiles over as
  your own trail.
• A dead entity's territory and trail are cleared. Dead bots are replaced by
  a fresh bot after the respawn delay; dead humans stay dead.

GAME OVER:
• When every human is dead, or when the configured tick limit is reached.
• The scoreboard ranks entities by owned tiles.

BOARD LEGEND (game_state):
• .  unowned tile
• a-z  territory of the entity with that letter
• A-Z  open trail of the entity with that letter
• @  an entity's head (see the entity list for who is where)

MOVEMENT COMMANDS:
• set_direction with north, east, south or west. The turn applies on the next
  tick. Several turns before one tick: the last one wins.
• tick advances the simulation; use small steps near danger.

STRATEGY:
• Keep loops short while other entities are near. A long trail loses
  every collision.
• Check describe_cell before crossing another entity's territory edge.
• Bots wander at random but never step off the board.

Good luck claiming the board!`
