// Command simulate runs territory games headlessly.
//
//	simulate run --config arena --ticks 500
//	simulate run --config sandbox --inputs moves.json --event-log-dir eventlogs
//	simulate replay --sessions-dir sessions 3f9a1c
//	simulate validate configs/*.yaml
//
// Humans without scripted inputs keep their spawn heading, so most runs are
// decided by the bots.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/territory-game/game/config"
	"github.com/wricardo/territory-game/game/engine"
	"github.com/wricardo/territory-game/game/eventlog"
	"github.com/wricardo/territory-game/game/results"
	"github.com/wricardo/territory-game/game/service"
	"github.com/wricardo/territory-game/game/session"
	"github.com/wricardo/territory-game/validate"
)

const defaultTicks = 1000

var errInvalidConfigs = errors.New("some configurations are invalid")

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func configDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config-dir",
		Value:   "configs",
		Usage:   "directory containing game configurations",
		Sources: cli.EnvVars("CONFIG_DIR"),
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "simulate",
		Usage:  "run, replay and check territory games without a server",
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "play a config headlessly and print the scoreboard",
				Flags: []cli.Flag{
					configDirFlag(),
					&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "classic", Usage: "config id to play"},
					&cli.Uint64Flag{Name: "seed", Usage: "override the config seed (0 keeps it)"},
					&cli.IntFlag{Name: "ticks", Aliases: []string{"n"}, Value: defaultTicks, Usage: "stop after this many ticks"},
					&cli.StringFlag{Name: "inputs", Usage: "JSON file of {tick, entity, direction} records to apply"},
					&cli.StringFlag{Name: "event-log-dir", Usage: "write a compressed event log here", Sources: cli.EnvVars("EVENT_LOG_DIR")},
					&cli.StringFlag{Name: "results-db", Usage: "record the finished game in this SQLite database", Sources: cli.EnvVars("RESULTS_DB")},
					&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "print every event"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runGame(ctx, cmd, out)
				},
			},
			{
				Name:      "replay",
				Usage:     "rebuild a persisted session from its seed and input log",
				ArgsUsage: "<session-id>",
				Flags: []cli.Flag{
					configDirFlag(),
					&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "directory of persisted sessions"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return replaySession(cmd, out)
				},
			},
			{
				Name:      "validate",
				Usage:     "check config files (default: every file in --config-dir)",
				ArgsUsage: "[file...]",
				Flags:     []cli.Flag{configDirFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return validateConfigs(cmd, out)
				},
			},
		},
	}
}

func runGame(ctx context.Context, cmd *cli.Command, out io.Writer) error {
	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}
	cfg, err := manager.LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	cfg = cfg.Clone()
	if seed := cmd.Uint64("seed"); seed != 0 {
		cfg.Seed = seed
	}

	var inputs []engine.InputRecord
	if path := cmd.String("inputs"); path != "" {
		if inputs, err = readInputs(path); err != nil {
			return err
		}
	}

	e, err := engine.NewEngine(cfg)
	if err != nil {
		return fmt.Errorf("failed to create game engine: %w", err)
	}
	runID := fmt.Sprintf("sim-%d", e.Seed())

	var writer *eventlog.Writer
	if dir := cmd.String("event-log-dir"); dir != "" {
		if writer, err = eventlog.NewWriter(dir); err != nil {
			return err
		}
		defer writer.Close()
	}

	verbose := cmd.Bool("verbose")
	limit := uint64(cmd.Int("ticks"))
	next := 0
	for e.Ticks() < limit && !e.IsGameOver() {
		if err := ctx.Err(); err != nil {
			return err
		}
		for next < len(inputs) && inputs[next].Tick <= e.Ticks() {
			in := inputs[next]
			next++
			if in.Tick < e.Ticks() {
				continue
			}
			if err := e.SetDirection(in.Entity, in.Direction); err != nil {
				fmt.Fprintf(out, "tick %d: input for entity %d skipped: %v\n", in.Tick, in.Entity, err)
			}
		}

		res, err := e.Tick()
		if err != nil {
			return err
		}
		if verbose {
			for _, ev := range res.Events {
				fmt.Fprintf(out, "[tick %d] %s: %s\n", ev.Tick, ev.Type, ev.Message)
			}
		}
		if writer != nil {
			if err := writer.Append(runID, res.Events); err != nil {
				return err
			}
		}
	}

	if writer != nil {
		if path, ok := writer.Path(runID); ok {
			fmt.Fprintf(out, "Event log: %s\n", path)
		}
	}

	fmt.Fprintf(out, "Config: %s | Seed: %d | Ticks: %d\n", cfg.Name, e.Seed(), e.Ticks())
	over := e.GameOverInfo()
	if over == nil {
		fmt.Fprintln(out, "Game still running at the tick limit")
	} else {
		fmt.Fprintf(out, "Game over: %s\n", over.Reason)
	}

	board, err := e.Scoreboard()
	if err != nil {
		return err
	}
	printScoreboard(out, board)

	if path := cmd.String("results-db"); path != "" && over != nil {
		store, err := results.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Record(ctx, service.NewGameResult(runID, cfg.Name, e.Seed(), *over)); err != nil {
			return err
		}
		fmt.Fprintf(out, "Result recorded in %s\n", path)
	}
	return nil
}

func readInputs(path string) ([]engine.InputRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inputs: %w", err)
	}
	var inputs []engine.InputRecord
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("failed to parse inputs: %w", err)
	}
	for i := 1; i < len(inputs); i++ {
		if inputs[i].Tick < inputs[i-1].Tick {
			return nil, fmt.Errorf("inputs must be ordered by tick (record %d)", i)
		}
	}
	return inputs, nil
}

func replaySession(cmd *cli.Command, out io.Writer) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("expected exactly one session id")
	}

	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}
	persistence, err := session.NewFilePersistence(cmd.String("sessions-dir"), manager)
	if err != nil {
		return err
	}
	sess, err := persistence.Load(cmd.Args().First())
	if err != nil {
		return fmt.Errorf("failed to replay session %s: %w", cmd.Args().First(), err)
	}

	e := sess.Engine
	fmt.Fprintf(out, "Session: %s | Config: %s | Seed: %d | Ticks: %d | Inputs: %d\n",
		sess.ID, sess.Config.Name, e.Seed(), e.Ticks(), len(e.InputLog()))
	if over := e.GameOverInfo(); over != nil {
		fmt.Fprintf(out, "Game over at tick %d: %s\n", over.Tick, over.Reason)
	}

	board, err := e.Scoreboard()
	if err != nil {
		return err
	}
	printScoreboard(out, board)
	return nil
}

func validateConfigs(cmd *cli.Command, out io.Writer) error {
	var checked []validate.Result
	if cmd.NArg() == 0 {
		var err error
		if checked, err = validate.Dir(cmd.String("config-dir")); err != nil {
			return err
		}
	} else {
		for _, path := range cmd.Args().Slice() {
			checked = append(checked, validate.File(path))
		}
	}

	if !validate.Report(out, checked) {
		return errInvalidConfigs
	}
	return nil
}

func printScoreboard(out io.Writer, board []engine.ScoreEntry) {
	fmt.Fprintln(out, strings.Repeat("-", 40))
	for _, s := range board {
		fmt.Fprintf(out, "%2d. %-16s %-5s %5d tiles %6.2f%%\n", s.Rank, s.Name, s.Kind, s.OwnedCount, s.PercentOwned)
	}
}
