// Package api provides the HTTP REST API for territory game sessions.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session ({"config_id": "duel"}; empty uses the default config)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/unified - Scoreboards of several sessions (?sessionIds=a,b or ?configName=duel)
//   - GET /api/sessions/{id} - Session details with its human slots and state
//   - DELETE /api/sessions/{id} - Stop and delete a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Full snapshot
//   - GET /api/sessions/{id}/scoreboard - Ranked territory counts
//   - POST /api/sessions/{id}/direction - {"entity": 1, "direction": "north"}
//   - POST /api/sessions/{id}/tick - {"ticks": 10}; defaults to one tick
//   - POST /api/sessions/{id}/pause, /unpause, /reset
//   - POST /api/sessions/{id}/start, /stop - Run or halt the realtime clock
//   - GET /api/sessions/{id}/events - Paginated event history (?page&limit&order&type)
//
// Configuration and results:
//   - GET /api/configs, GET /api/configs/{name}, POST /api/configs
//   - GET /api/results?limit=N - Finished games, newest first
//
// WebSocket:
//   - GET /ws?session={id} - Live tick stream; see package websocket
//
// Error Handling:
//
// Errors are returned as {"error": "message"}. Unknown sessions, entities
// and configs map to 404, bad directions and tick counts to 400, and
// operations on a finished game or an already running clock to 409.
package api
