// Package service provides the business logic layer for the territory game.
//
// The service package implements:
//   - Multi-session game management
//   - Direction input and manual stepping
//   - A wall-clock runner per session that drives the engine's frame clock
//   - Event history, result archiving and event logs
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
// ResultStore and EventRecorder are optional sinks for finished games and
// tick events.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Engines are single threaded, so every session carries a
// lock held around each engine call, whether it comes from a request or
// from the session's runner goroutine. Tick listeners run after the lock is
// released and receive a Snapshot copy.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr,
//		service.WithResultStore(store),
//		service.WithEventRecorder(writer))
//
//	sessionInfo, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	_, err = gameService.SetDirection(ctx, sessionInfo.ID, sessionInfo.Humans[0].EntityID, "north")
//	result, err := gameService.Step(ctx, sessionInfo.ID, 10)
//
// Session Management:
//
// Sessions are identified by unique 4-character IDs and maintain independent
// game state. A session can be stepped by hand or started with Start, which
// ticks it in real time until Stop or the end of the game.
package service
