// Command analyze prints quick, human-readable summaries of compressed game
// event logs: how many entities died and why, who claimed the most ground,
// which collision rules decided fights and how the game ended.
//
//	analyze eventlogs/3f9a1c-*.jsonl.zst
//	analyze --dir eventlogs --session 3f9a1c
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/territory-game/game/engine"
	"github.com/wricardo/territory-game/game/eventlog"
)

// topClaimers is how many entities the claim ranking shows.
const topClaimers = 5

// Summary aggregates the events of one game.
type Summary struct {
	Events     int
	FirstTick  uint64
	LastTick   uint64
	ByType     map[engine.EventType]int
	Deaths     map[string]int // by cause
	Collisions map[string]int // by deciding rule
	Claims     []ClaimTotal
	Respawns   int
	GameOver   *engine.Event
}

// ClaimTotal is one entity's territory gains over a game.
type ClaimTotal struct {
	Name     string
	Claims   int
	Trail    int
	Enclosed int
}

// Tiles is everything the entity gained through claims.
func (c ClaimTotal) Tiles() int { return c.Trail + c.Enclosed }

// Summarize folds a game's events into a Summary.
func Summarize(events []engine.Event) Summary {
	s := Summary{
		ByType:     make(map[engine.EventType]int),
		Deaths:     make(map[string]int),
		Collisions: make(map[string]int),
	}
	claims := make(map[engine.EntityID]*ClaimTotal)

	for i, ev := range events {
		if i == 0 || ev.Tick < s.FirstTick {
			s.FirstTick = ev.Tick
		}
		if ev.Tick > s.LastTick {
			s.LastTick = ev.Tick
		}
		s.Events++
		s.ByType[ev.Type]++

		switch ev.Type {
		case engine.EventDeath:
			s.Deaths[ev.Cause]++
		case engine.EventCollision:
			s.Collisions[ev.Cause]++
		case engine.EventClaim:
			c, ok := claims[ev.Entity]
			if !ok {
				c = &ClaimTotal{Name: ev.Name}
				claims[ev.Entity] = c
			}
			c.Claims++
			c.Trail += ev.Claimed
			c.Enclosed += ev.Enclosed
		case engine.EventRespawn:
			s.Respawns++
		case engine.EventGameOver:
			over := ev
			s.GameOver = &over
		}
	}

	for _, c := range claims {
		s.Claims = append(s.Claims, *c)
	}
	sort.Slice(s.Claims, func(i, j int) bool {
		if s.Claims[i].Tiles() != s.Claims[j].Tiles() {
			return s.Claims[i].Tiles() > s.Claims[j].Tiles()
		}
		return s.Claims[i].Name < s.Claims[j].Name
	})
	return s
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "summarize compressed game event logs",
		ArgsUsage: "[log file...]",
		Writer:    out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "eventlogs", Usage: "event log directory used with --session", Sources: cli.EnvVars("EVENT_LOG_DIR")},
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "analyze every log of this session"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if id := cmd.String("session"); id != "" {
				found, err := eventlog.List(cmd.String("dir"), id)
				if err != nil {
					return err
				}
				files = append(files, found...)
			}
			if len(files) == 0 {
				return fmt.Errorf("no event logs given (pass files or --session)")
			}

			for _, path := range files {
				fmt.Fprintf(out, "\n=== Analyzing %s ===\n", path)
				events, err := eventlog.ReadAll(path)
				if err != nil {
					fmt.Fprintf(out, "Error reading log: %v\n", err)
					continue
				}
				printSummary(out, Summarize(events))
			}
			return nil
		},
	}
}

func printSummary(out io.Writer, s Summary) {
	if s.Events == 0 {
		fmt.Fprintln(out, "No events recorded")
		return
	}

	fmt.Fprintf(out, "Events: %d over ticks %d-%d\n", s.Events, s.FirstTick, s.LastTick)
	fmt.Fprintf(out, "Deaths: %d%s\n", s.ByType[engine.EventDeath], breakdown(s.Deaths))
	fmt.Fprintf(out, "Collisions: %d%s\n", s.ByType[engine.EventCollision], breakdown(s.Collisions))
	fmt.Fprintf(out, "Respawns: %d\n", s.Respawns)

	if len(s.Claims) > 0 {
		fmt.Fprintln(out, "Top claimers:")
		for i, c := range s.Claims {
			if i == topClaimers {
				fmt.Fprintf(out, "   ... and %d more\n", len(s.Claims)-topClaimers)
				break
			}
			fmt.Fprintf(out, "   %-16s %4d tiles in %d claims (%d trail, %d enclosed)\n",
				c.Name, c.Tiles(), c.Claims, c.Trail, c.Enclosed)
		}
	}

	if s.GameOver != nil {
		fmt.Fprintf(out, "✅ %s\n", s.GameOver.Message)
	} else {
		fmt.Fprintln(out, "⚠️  Log ends without a game over")
	}
}

// breakdown renders counts as " (a: 1, b: 2)" in key order.
func breakdown(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %d", k, counts[k])
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
