package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/wricardo/territory-game/game/engine"
	"github.com/wricardo/territory-game/game/eventlog"
)

func sampleEvents() []engine.Event {
	return []engine.Event{
		{Tick: 3, Type: engine.EventClaim, Entity: 2, Name: "Bot", Claimed: 4, Enclosed: 2},
		{Tick: 5, Type: engine.EventClaim, Entity: 1, Name: "Alice", Claimed: 6, Enclosed: 9},
		{Tick: 7, Type: engine.EventCollision, Entity: 2, Name: "Bot", Other: 1, Cause: string(engine.RuleLongerTrail)},
		{Tick: 7, Type: engine.EventDeath, Entity: 2, Name: "Bot", Cause: engine.CauseCollision},
		{Tick: 8, Type: engine.EventRespawn, Entity: 3, Name: "Bot2", Other: 2},
		{Tick: 9, Type: engine.EventClaim, Entity: 2, Name: "Bot", Claimed: 1},
		{Tick: 12, Type: engine.EventDeath, Entity: 1, Name: "Alice", Cause: engine.CauseOutOfBounds},
		{Tick: 12, Type: engine.EventGameOver, Cause: engine.ReasonAllHumansDead, Message: "Game over after 12 ticks (all_humans_dead)"},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleEvents())

	if s.Events != 8 {
		t.Errorf("Expected 8 events, got %d", s.Events)
	}
	if s.FirstTick != 3 || s.LastTick != 12 {
		t.Errorf("Expected ticks 3-12, got %d-%d", s.FirstTick, s.LastTick)
	}
	if s.ByType[engine.EventDeath] != 2 {
		t.Errorf("Expected 2 deaths, got %d", s.ByType[engine.EventDeath])
	}
	if s.Deaths[engine.CauseCollision] != 1 || s.Deaths[engine.CauseOutOfBounds] != 1 {
		t.Errorf("Unexpected death causes %v", s.Deaths)
	}
	if s.Collisions["longer_trail"] != 1 {
		t.Errorf("Unexpected collision rules %v", s.Collisions)
	}
	if s.Respawns != 1 {
		t.Errorf("Expected 1 respawn, got %d", s.Respawns)
	}
	if s.GameOver == nil || s.GameOver.Cause != engine.ReasonAllHumansDead {
		t.Errorf("Expected the game over event, got %+v", s.GameOver)
	}

	if len(s.Claims) != 2 {
		t.Fatalf("Expected 2 claimers, got %d", len(s.Claims))
	}
	if s.Claims[0].Name != "Alice" || s.Claims[0].Tiles() != 15 {
		t.Errorf("Expected Alice first with 15 tiles, got %+v", s.Claims[0])
	}
	if s.Claims[1].Claims != 2 || s.Claims[1].Tiles() != 7 {
		t.Errorf("Expected Bot with 2 claims and 7 tiles, got %+v", s.Claims[1])
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.Events != 0 || s.GameOver != nil || len(s.Claims) != 0 {
		t.Errorf("Expected an empty summary, got %+v", s)
	}

	var buf bytes.Buffer
	printSummary(&buf, s)
	if !strings.Contains(buf.String(), "No events recorded") {
		t.Errorf("Unexpected output %q", buf.String())
	}
}

func TestBreakdown(t *testing.T) {
	tests := []struct {
		counts   map[string]int
		expected string
	}{
		{nil, ""},
		{map[string]int{"b": 2, "a": 1}, " (a: 1, b: 2)"},
	}

	for _, test := range tests {
		if got := breakdown(test.counts); got != test.expected {
			t.Errorf("breakdown(%v) = %q, expected %q", test.counts, got, test.expected)
		}
	}
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	w, err := eventlog.NewWriter(dir)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := w.Append("game1", sampleEvents()); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	var out bytes.Buffer
	err = newCommand(&out).Run(context.Background(), []string{"analyze", "--dir", dir, "--session", "game1"})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	output := out.String()
	expected := []string{
		"=== Analyzing",
		"Events: 8 over ticks 3-12",
		"Deaths: 2 (collision: 1, out_of_bounds: 1)",
		"Collisions: 1 (longer_trail: 1)",
		"Respawns: 1",
		"Alice",
		"✅ Game over after 12 ticks",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestAnalyzeCommand_NoLogs(t *testing.T) {
	var out bytes.Buffer
	err := newCommand(&out).Run(context.Background(), []string{"analyze", "--dir", t.TempDir(), "--session", "none"})
	if err == nil {
		t.Error("Expected an error when no logs match")
	}
}
