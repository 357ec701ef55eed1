package results

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/wricardo/territory-game/game/engine"
	"github.com/wricardo/territory-game/game/service"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "db", "results.sqlite"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RecordAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	board := []engine.ScoreEntry{
		{Rank: 1, ID: 2, Name: "Bot 1", Kind: engine.KindBot, OwnedCount: 40, PercentOwned: 12.5},
		{Rank: 2, ID: 1, Name: "Alice", Kind: engine.KindHuman, OwnedCount: 9, PercentOwned: 2.8},
	}
	over := engine.GameOver{
		Tick:       500,
		Reason:     engine.ReasonTickLimit,
		Winner:     &board[0],
		Scoreboard: board,
	}

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"s1", "s2", "s3"} {
		r := service.NewGameResult(id, "classic", 1<<63+uint64(i), over)
		r.FinishedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.Record(ctx, r); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if r.ID == "" {
			t.Error("Expected Record to assign an id")
		}
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Expected 3 results, got %d", n)
	}

	got, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(got))
	}
	if got[0].SessionID != "s3" || got[1].SessionID != "s2" {
		t.Errorf("Expected newest first (s3, s2), got %s, %s", got[0].SessionID, got[1].SessionID)
	}

	first := got[0]
	if first.Seed != 1<<63+2 {
		t.Errorf("Expected seed %d, got %d", uint64(1<<63+2), first.Seed)
	}
	if first.Ticks != 500 || first.Reason != engine.ReasonTickLimit {
		t.Errorf("Expected 500 ticks ending by tick limit, got %d %s", first.Ticks, first.Reason)
	}
	if first.WinnerName != "Bot 1" || first.WinnerKind != string(engine.KindBot) {
		t.Errorf("Expected winner Bot 1 (bot), got %s (%s)", first.WinnerName, first.WinnerKind)
	}
	if len(first.Scoreboard) != 2 || first.Scoreboard[1].Name != "Alice" {
		t.Errorf("Scoreboard not preserved: %+v", first.Scoreboard)
	}
	if !first.FinishedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("Expected finish time %v, got %v", base.Add(2*time.Minute), first.FinishedAt)
	}
}

func TestStore_EdgeCases(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		got, err := store.List(ctx, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Errorf("Expected no results, got %d", len(got))
		}
	})

	t.Run("nil result", func(t *testing.T) {
		if err := store.Record(ctx, nil); err == nil {
			t.Error("Expected an error for a nil result")
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		r := &service.GameResult{ID: "fixed", SessionID: "s", ConfigName: "duel", Reason: engine.ReasonAllHumansDead}
		if err := store.Record(ctx, r); err != nil {
			t.Fatal(err)
		}
		if err := store.Record(ctx, r); err == nil {
			t.Error("Expected an error for a duplicate id")
		}
	})

	t.Run("no winner", func(t *testing.T) {
		got, err := store.List(ctx, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].WinnerName != "" || got[0].Scoreboard != nil {
			t.Errorf("Expected one winnerless result, got %+v", got)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		if _, err := Open(""); err == nil {
			t.Error("Expected an error for an empty path")
		}
	})
}
