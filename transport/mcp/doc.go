// Package mcp exposes the territory game to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call is translated into a request
// against the REST API, and the JSON response is rendered as plain text an
// agent can read.
//
// MCP Tools:
//
//   - create_session, get_session, list_sessions: session management
//   - game_state: entities, scoreboard and an optional text rendering of the board
//   - set_direction: queue a turn for a human entity
//   - tick: advance the simulation by N ticks
//   - pause, unpause, reset_game: session control
//   - start_clock, stop_clock: real-time play at the configured frame rate
//   - scoreboard, event_history, describe_cell: inspection
//   - list_configs, list_results: setups and finished games
//   - game_instructions: the full rules
//
// Board rendering uses one character per tile: '.' for unowned tiles, a
// lowercase letter for territory, the matching uppercase letter for an open
// trail and '@' for an entity's head. Entity 1 is 'a', entity 2 is 'b' and so on.
//
// Transport Modes:
//
// The server binary serves the tools over stdio (-mcp-stdio) or over
// streamable HTTP at /mcp.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
