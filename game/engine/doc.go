// Package engine provides the core simulation for the territory game.
//
// The engine package implements the game mechanics including:
//   - A fixed grid whose tiles record an owner and a contesting entity by id
//   - Entities that move every tick, leave a trail and claim it on return
//   - Head-on collision arbitration within a tick
//   - Enclosure filling after a trail closes
//   - Bot respawn, pause, and end-of-game detection
//
// Core Types:
//
// The Engine interface defines the main contract, implemented by GameEngine.
// World is the simulation context shared by Grid and Entity; nothing in the
// package is global. GameConfig describes a setup loaded from JSON or YAML.
//
// Usage:
//
//	config, err := engine.LoadGameConfig("configs/classic.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine.OnGameOver(func(over engine.GameOver) { ... })
//	_ = gameEngine.SetDirection(humanID, engine.North)
//	result, err := gameEngine.Tick()
//
// Game Rules:
//
// Every entity starts on a 3x3 block of its own tiles. Leaving that territory
// lays a trail of contested tiles; returning home converts the trail into
// territory together with any region it encloses. Leaving the world kills
// an entity, and two entities landing on one tile fight: the longer trail
// dies, then the smaller territory, then the later mover. Dead bots are
// replaced after a configurable delay. The game ends when every human is
// dead, or at an optional tick limit.
//
// An engine is single threaded. Hosts that drive it from a timer serialize
// calls and hand Snapshot copies to readers.
package engine
