// Package config provides configuration management for the territory game.
//
// The config package handles:
//   - Loading game configurations from YAML and JSON files
//   - Schema validation followed by the engine's own rules
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Game configurations live in the configs directory as .yaml, .yml or .json
// files. Each one names a world size, a list of human players, a bot count
// and optional clock, seed and respawn settings:
//
//	name: classic
//	description: One player against five bots
//	width: 48
//	height: 32
//	humans: [Player]
//	bots: 5
//	frames_per_tick: 6
//
// Every file is checked against the embedded schema.json before it is
// decoded, so unknown keys and wrong types are reported by field.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("duel")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
package config
