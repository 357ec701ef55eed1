// Package validate checks game configuration files beyond what loading them
// requires. Besides the schema and engine rules it flags configs that load
// but play badly:
//   - bot-only games without a tick limit, which never end
//   - boards too crowded for every entity to get a starting block
//   - duplicate human names
//
// It also places every entity once with the config's seed to prove the
// spawner can fit them.
package validate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/territory-game/game/config"
	"github.com/wricardo/territory-game/game/engine"
)

// minTilesPerEntity is the board area below which a config is reported as crowded.
const minTilesPerEntity = 64

// Result captures the outcome of validating a single file.
// Errors make a config unusable; Warnings and Info do not.
type Result struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
	Config   *engine.GameConfig
}

// File loads and validates a single configuration file.
func File(filePath string) Result {
	result := Result{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	format := engine.FormatOf(filePath)
	if format == "" {
		result.fail("Unsupported file extension %q (use .json, .yaml or .yml)", filepath.Ext(filePath))
		return result
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	cfg, err := config.Parse(data, format)
	if err != nil {
		result.fail("%v", err)
		return result
	}
	result.Config = cfg

	checkPlayability(&result, cfg)
	checkSpawn(&result, cfg)

	if result.Valid {
		result.Info = append(result.Info,
			fmt.Sprintf("Name: %s", cfg.Name),
			fmt.Sprintf("Board: %dx%d", cfg.Width, cfg.Height),
			fmt.Sprintf("Entities: %d humans, %d bots", len(cfg.Humans), cfg.Bots),
			fmt.Sprintf("Clock: %d frames/s, a tick every %d frames", cfg.EffectiveFrameRate(), cfg.EffectiveFramesPerTick()),
		)
	}
	return result
}

func checkPlayability(result *Result, cfg *engine.GameConfig) {
	if len(cfg.Humans) == 0 && cfg.MaxTicks == 0 {
		result.warn("No humans and no max_ticks: the game never ends on its own")
	}

	seen := make(map[string]bool, len(cfg.Humans))
	for _, name := range cfg.Humans {
		if seen[name] {
			result.warn("Human name %q is used more than once", name)
		}
		seen[name] = true
	}

	entities := len(cfg.Humans) + cfg.Bots
	if area := cfg.Width * cfg.Height; area/entities < minTilesPerEntity {
		result.warn("Crowded board: %d tiles for %d entities (fewer than %d each)", area, entities, minTilesPerEntity)
	}
}

// checkSpawn builds an engine, which places every entity.
func checkSpawn(result *Result, cfg *engine.GameConfig) {
	trial := cfg.Clone()
	if trial.Seed == 0 {
		trial.Seed = 1
	}
	if _, err := engine.NewEngine(trial); err != nil {
		result.fail("Spawn check failed with seed %d: %v", trial.Seed, err)
	}
}

func (r *Result) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Dir validates every config file in dir, in file name order.
func Dir(dir string) ([]Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || engine.FormatOf(entry.Name()) == "" {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	results := make([]Result, 0, len(files))
	for _, name := range files {
		results = append(results, File(filepath.Join(dir, name)))
	}
	return results, nil
}

// Report prints a concise report and returns true when every result is valid.
func Report(w io.Writer, results []Result) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  ✓ "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
		for _, warning := range result.Warnings {
			fmt.Fprintln(w, "  ⚠️  "+warning)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All configurations are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some configurations have errors")
	}
	return allValid
}
