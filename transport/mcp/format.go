package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wricardo/territory-game/game/engine"
	"github.com/wricardo/territory-game/game/service"
)

// glyph returns the letter shown for an entity: lowercase for territory,
// uppercase for trail.
func glyph(id engine.EntityID, trail bool) byte {
	b := byte('a' + (int(id)-1)%26)
	if trail {
		b -= 'a' - 'A'
	}
	return b
}

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nConfig: %s\nCreated: %s\n",
		session.ID, session.ConfigName, session.CreatedAt.Format("2006-01-02 15:04:05"))
	if session.Running {
		b.WriteString("Clock: running\n")
	}
	if len(session.Humans) > 0 {
		b.WriteString("Human entities (use these ids with set_direction):\n")
		for _, h := range session.Humans {
			status := "alive"
			if !h.Alive {
				status = "dead"
			}
			fmt.Fprintf(&b, "  - %d: %s (%s)\n", h.EntityID, h.Name, status)
		}
	} else {
		b.WriteString("No human entities: bots only\n")
	}
	if session.GameState != nil {
		b.WriteString("\n")
		b.WriteString(formatGameState(session.GameState))
	}
	return b.String()
}

func formatGameState(state *engine.Snapshot) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Board: %dx%d | Tick: %d | Seed: %d", state.Width, state.Height, state.Tick, state.Seed)
	if state.Paused {
		b.WriteString(" | PAUSED")
	}
	b.WriteString("\n")

	if state.GameOver != nil {
		fmt.Fprintf(&b, "GAME OVER at tick %d (%s)", state.GameOver.Tick, state.GameOver.Reason)
		if w := state.GameOver.Winner; w != nil {
			fmt.Fprintf(&b, " - winner %s with %.1f%%", w.Name, w.PercentOwned)
		}
		b.WriteString("\n")
	}

	if len(state.Entities) > 0 {
		b.WriteString("\nEntities:\n")
		for _, e := range state.Entities {
			fmt.Fprintf(&b, "  [%c] %d %s (%s) at (%d,%d) heading %s, owns %d (%.1f%%), trail %d\n",
				glyph(e.ID, false), e.ID, e.Name, e.Kind, e.Position.X, e.Position.Y,
				e.Direction, e.OwnedCount, e.PercentOwned, e.TrailLength)
		}
	}
	return b.String()
}

// renderBoard draws the board one row per line.
func renderBoard(state *engine.Snapshot) string {
	if state == nil || state.Width == 0 || len(state.Tiles) != state.Width*state.Height {
		return ""
	}

	heads := make(map[engine.Position]bool, len(state.Entities))
	for _, e := range state.Entities {
		heads[e.Position] = true
	}

	var b strings.Builder
	b.WriteString("Board (. free, a-z territory, A-Z trail, @ head):\n")
	row := make([]byte, state.Width)
	for y := 0; y < state.Height; y++ {
		for x := 0; x < state.Width; x++ {
			tile := state.Tiles[y*state.Width+x]
			switch {
			case heads[engine.Position{X: x, Y: y}]:
				row[x] = '@'
			case tile.Contested():
				row[x] = glyph(tile.ContestedBy, true)
			case tile.Owned():
				row[x] = glyph(tile.Owner, false)
			default:
				row[x] = '.'
			}
		}
		b.Write(row)
		b.WriteByte('\n')
	}
	return b.String()
}

func formatScoreboard(board []engine.ScoreEntry) string {
	if len(board) == 0 {
		return "Scoreboard is empty"
	}
	var b strings.Builder
	b.WriteString("Scoreboard:\n")
	for _, s := range board {
		fmt.Fprintf(&b, "%d. %s (%s, id %d): %d tiles, %.2f%%\n",
			s.Rank, s.Name, s.Kind, s.ID, s.OwnedCount, s.PercentOwned)
	}
	return b.String()
}

func formatStepResult(sessionID string, result *service.StepResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", sessionID)
	fmt.Fprintf(&b, "Executed %d/%d ticks\n", result.TicksExecuted, result.RequestedTicks)
	if result.Truncated {
		fmt.Fprintf(&b, "Request truncated to %d ticks\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped: %s\n", result.StoppedReason)
	}

	if len(result.Events) > 0 {
		b.WriteString("\nEvents:\n")
		for _, event := range result.Events {
			fmt.Fprintf(&b, "- [tick %d] %s: %s\n", event.Tick, event.Type, event.Message)
		}
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event History (Page %d/%d) - Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalEvents)
	for _, event := range history.Events {
		fmt.Fprintf(&b, "[tick %d] %s: %s\n", event.Tick, event.Type, event.Message)
	}
	if history.HasNext {
		fmt.Fprintf(&b, "\nMore events on page %d\n", history.Page+1)
	}
	return b.String()
}

func describeCell(state *engine.Snapshot, x, y int) string {
	if x < 0 || x >= state.Width || y < 0 || y >= state.Height {
		return fmt.Sprintf("Coordinates (%d, %d) are out of bounds. Board is %dx%d (x 0-%d, y 0-%d)",
			x, y, state.Width, state.Height, state.Width-1, state.Height-1)
	}
	if len(state.Tiles) != state.Width*state.Height {
		return "Board tiles unavailable"
	}

	names := make(map[engine.EntityID]string, len(state.Entities))
	for _, e := range state.Entities {
		names[e.ID] = e.Name
	}
	name := func(id engine.EntityID) string {
		if n, ok := names[id]; ok {
			return fmt.Sprintf("%s (id %d)", n, id)
		}
		return fmt.Sprintf("id %d", id)
	}

	tile := state.Tiles[y*state.Width+x]
	var b strings.Builder
	fmt.Fprintf(&b, "Cell at position (%d, %d):\n", x, y)
	if tile.Owned() {
		fmt.Fprintf(&b, "Owner: %s\n", name(tile.Owner))
	} else {
		b.WriteString("Owner: none\n")
	}
	if tile.Contested() {
		fmt.Fprintf(&b, "Trail: %s\n", name(tile.ContestedBy))
	}

	var here []string
	for _, e := range state.Entities {
		if e.Position.X == x && e.Position.Y == y {
			here = append(here, name(e.ID))
		}
	}
	sort.Strings(here)
	if len(here) > 0 {
		fmt.Fprintf(&b, "Occupied by: %s\n", strings.Join(here, ", "))
	}
	return b.String()
}
