package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/wricardo/territory-game/game/service"
)

// DefaultListLimit applies when List is called with a non-positive limit.
const DefaultListLimit = 50

// Store archives finished games in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the results database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS game_results (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			config_name TEXT NOT NULL,
			seed INTEGER NOT NULL,
			ticks INTEGER NOT NULL,
			reason TEXT NOT NULL,
			winner_name TEXT NOT NULL DEFAULT '',
			winner_kind TEXT NOT NULL DEFAULT '',
			winner_percent REAL NOT NULL DEFAULT 0,
			scoreboard_json TEXT NOT NULL,
			finished_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS game_results_finished_idx ON game_results(finished_at);`,
		`CREATE INDEX IF NOT EXISTS game_results_session_idx ON game_results(session_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("sqlite schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts r, assigning an id and finish time when they are unset.
func (s *Store) Record(ctx context.Context, r *service.GameResult) error {
	if r == nil {
		return errors.New("nil result")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now().UTC()
	}

	board, err := json.Marshal(r.Scoreboard)
	if err != nil {
		return err
	}
	// SQLite integers are signed; the seed round-trips through int64.
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO game_results(id, session_id, config_name, seed, ticks, reason, winner_name, winner_kind, winner_percent, scoreboard_json, finished_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.ConfigName, int64(r.Seed), int64(r.Ticks), r.Reason,
		r.WinnerName, r.WinnerKind, r.WinnerPercent, string(board),
		r.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record result %s: %w", r.ID, err)
	}
	return nil
}

// List returns up to limit results, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*service.GameResult, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, config_name, seed, ticks, reason, winner_name, winner_kind, winner_percent, scoreboard_json, finished_at
		 FROM game_results ORDER BY finished_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*service.GameResult
	for rows.Next() {
		var (
			r          service.GameResult
			seed       int64
			ticks      int64
			board      string
			finishedAt string
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.ConfigName, &seed, &ticks, &r.Reason,
			&r.WinnerName, &r.WinnerKind, &r.WinnerPercent, &board, &finishedAt); err != nil {
			return nil, err
		}
		r.Seed = uint64(seed)
		r.Ticks = uint64(ticks)
		if err := json.Unmarshal([]byte(board), &r.Scoreboard); err != nil {
			return nil, fmt.Errorf("result %s: scoreboard: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("result %s: finished_at: %w", r.ID, err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Count returns the number of archived games.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM game_results`).Scan(&n)
	return n, err
}

var _ service.ResultStore = (*Store)(nil)
