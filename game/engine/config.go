package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// GameConfig describes one playable setup: the world, the roster and the
// clock. It is loaded from JSON or YAML files.
type GameConfig struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Width       int      `json:"width" yaml:"width"`
	Height      int      `json:"height" yaml:"height"`
	Humans      []string `json:"humans" yaml:"humans"`
	Bots        int      `json:"bots" yaml:"bots"`

	// Clock. FrameRate is the host's redraw rate; a tick runs every
	// FramesPerTick frames.
	FrameRate     int `json:"frame_rate,omitempty" yaml:"frame_rate,omitempty"`
	FramesPerTick int `json:"frames_per_tick,omitempty" yaml:"frames_per_tick,omitempty"`

	// Seed 0 picks a random seed at engine construction.
	Seed uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	SpawnMargin      int `json:"spawn_margin,omitempty" yaml:"spawn_margin,omitempty"`
	MaxSpawnAttempts int `json:"max_spawn_attempts,omitempty" yaml:"max_spawn_attempts,omitempty"`

	// RespawnDelayTicks is how many ticks after its death a bot is replaced.
	// nil means DefaultRespawnDelay; 0 replaces it at the end of the same tick.
	RespawnDelayTicks *int `json:"respawn_delay_ticks,omitempty" yaml:"respawn_delay_ticks,omitempty"`

	// MaxTicks ends the game after that many ticks. 0 means no limit.
	MaxTicks uint64 `json:"max_ticks,omitempty" yaml:"max_ticks,omitempty"`
}

// DefaultConfig returns the built-in "classic" setup.
func DefaultConfig() *GameConfig {
	return &GameConfig{
		Name:          "classic",
		Description:   "One player against five bots on a 48x32 board",
		Width:         48,
		Height:        32,
		Humans:        []string{"Player"},
		Bots:          5,
		FrameRate:     DefaultFrameRate,
		FramesPerTick: DefaultFramesPerTick,
	}
}

// EffectiveFrameRate returns FrameRate or its default.
func (c *GameConfig) EffectiveFrameRate() int {
	if c.FrameRate <= 0 {
		return DefaultFrameRate
	}
	return c.FrameRate
}

// EffectiveFramesPerTick returns FramesPerTick or its default.
func (c *GameConfig) EffectiveFramesPerTick() int {
	if c.FramesPerTick <= 0 {
		return DefaultFramesPerTick
	}
	return c.FramesPerTick
}

// EffectiveRespawnDelay returns RespawnDelayTicks or its default.
func (c *GameConfig) EffectiveRespawnDelay() int {
	if c.RespawnDelayTicks == nil {
		return DefaultRespawnDelay
	}
	return *c.RespawnDelayTicks
}

// EffectiveSpawnMargin returns SpawnMargin or its default.
func (c *GameConfig) EffectiveSpawnMargin() int {
	if c.SpawnMargin <= 0 {
		return DefaultSpawnMargin
	}
	return c.SpawnMargin
}

// Clone returns a deep copy.
func (c *GameConfig) Clone() *GameConfig {
	out := *c
	out.Humans = append([]string(nil), c.Humans...)
	if c.RespawnDelayTicks != nil {
		d := *c.RespawnDelayTicks
		out.RespawnDelayTicks = &d
	}
	return &out
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}
	if err := validateWorld(config.Width, config.Height, config.Humans, config.Bots); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	if config.FrameRate < 0 || config.FrameRate > MaxFrameRate {
		return fmt.Errorf("config validation: frame_rate must be between 1 and %d (0 selects the default), got %d", MaxFrameRate, config.FrameRate)
	}
	if config.FramesPerTick < 0 || config.FramesPerTick > MaxFrameRate*10 {
		return fmt.Errorf("config validation: frames_per_tick must be between 1 and %d (0 selects the default), got %d", MaxFrameRate*10, config.FramesPerTick)
	}
	if config.MaxSpawnAttempts < 0 {
		return fmt.Errorf("config validation: max_spawn_attempts cannot be negative, got %d", config.MaxSpawnAttempts)
	}
	if config.RespawnDelayTicks != nil && *config.RespawnDelayTicks < 0 {
		return fmt.Errorf("config validation: respawn_delay_ticks cannot be negative, got %d", *config.RespawnDelayTicks)
	}

	margin := config.EffectiveSpawnMargin()
	if config.SpawnMargin < 0 {
		return fmt.Errorf("config validation: spawn_margin cannot be negative, got %d", config.SpawnMargin)
	}
	if 2*margin >= config.Width || 2*margin >= config.Height {
		return fmt.Errorf("config validation: spawn_margin %d leaves no spawn cell in a %dx%d world",
			margin, config.Width, config.Height)
	}

	return nil
}

func validateWorld(width, height int, humans []string, bots int) error {
	if width < MinWorldSize || width > MaxWorldSize {
		return fmt.Errorf("width must be between %d and %d, got %d", MinWorldSize, MaxWorldSize, width)
	}
	if height < MinWorldSize || height > MaxWorldSize {
		return fmt.Errorf("height must be between %d and %d, got %d", MinWorldSize, MaxWorldSize, height)
	}
	if bots < 0 {
		return fmt.Errorf("bots cannot be negative, got %d", bots)
	}
	total := len(humans) + bots
	if total < 1 || total > MaxEntities {
		return fmt.Errorf("entity count must be between 1 and %d, got %d", MaxEntities, total)
	}
	for i, name := range humans {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("human %d has an empty name", i+1)
		}
	}
	return nil
}

// ParseGameConfig decodes a config. format is "json" or "yaml".
func ParseGameConfig(data []byte, format string) (*GameConfig, error) {
	var config GameConfig
	switch format {
	case "json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	return &config, nil
}

// FormatOf maps a file name to the config format implied by its extension.
func FormatOf(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	}
	return ""
}

// LoadGameConfig loads and validates a JSON or YAML config file.
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := ParseGameConfig(data, FormatOf(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", filename, err)
	}

	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}
