package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/wricardo/territory-game/game/engine"
)

// Extension is the suffix of every event log file.
const Extension = ".jsonl.zst"

var ErrClosed = errors.New("event log closed")

// Entry is one line of an event log: every event a single tick produced.
type Entry struct {
	SessionID string         `json:"session_id"`
	Tick      uint64         `json:"tick"`
	At        time.Time      `json:"at"`
	Events    []engine.Event `json:"events"`
}

type logFile struct {
	path string
	f    *os.File
	enc  *zstd.Encoder
	w    *bufio.Writer
}

func (lf *logFile) close() error {
	var errs []error
	if err := lf.w.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := lf.enc.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := lf.f.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Writer appends tick events to one zstd-compressed JSONL file per game.
// A file is opened lazily on the first Append for a session and sealed by
// Finish; the next Append after that starts a new file.
type Writer struct {
	baseDir string

	mu     sync.Mutex
	files  map[string]*logFile
	closed bool
}

// NewWriter creates a Writer rooted at baseDir.
func NewWriter(baseDir string) (*Writer, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create event log directory: %w", err)
	}
	return &Writer{
		baseDir: baseDir,
		files:   make(map[string]*logFile),
	}, nil
}

// Dir returns the directory the writer stores logs in.
func (w *Writer) Dir() string { return w.baseDir }

// Append writes one line holding events. Events are grouped by tick so a
// batch spanning several ticks produces several lines.
func (w *Writer) Append(sessionID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	lf, err := w.openLocked(sessionID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	start := 0
	for i := 1; i <= len(events); i++ {
		if i < len(events) && events[i].Tick == events[start].Tick {
			continue
		}
		entry := Entry{
			SessionID: sessionID,
			Tick:      events[start].Tick,
			At:        now,
			Events:    events[start:i],
		}
		b, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if _, err := lf.w.Write(b); err != nil {
			return err
		}
		if err := lf.w.WriteByte('\n'); err != nil {
			return err
		}
		start = i
	}
	if err := lf.w.Flush(); err != nil {
		return err
	}
	// Push a complete block to disk so an unsealed log stays readable.
	return lf.enc.Flush()
}

// Finish seals the session's current log file. It is a no-op when the
// session has nothing open.
func (w *Writer) Finish(sessionID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	lf, ok := w.files[sessionID]
	if !ok {
		return nil
	}
	delete(w.files, sessionID)
	return lf.close()
}

// Path returns the file currently open for sessionID, if any.
func (w *Writer) Path(sessionID string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	lf, ok := w.files[sessionID]
	if !ok {
		return "", false
	}
	return lf.path, true
}

// Close seals every open file. Further appends fail with ErrClosed.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	for id, lf := range w.files {
		if err := lf.close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
		delete(w.files, id)
	}
	w.closed = true
	return errors.Join(errs...)
}

func (w *Writer) openLocked(sessionID string) (*logFile, error) {
	if lf, ok := w.files[sessionID]; ok {
		return lf, nil
	}
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) {
		return nil, fmt.Errorf("invalid session id %q", sessionID)
	}

	path := filepath.Join(w.baseDir, sessionID+"-"+uuid.NewString()+Extension)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	lf := &logFile{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 128*1024),
	}
	w.files[sessionID] = lf
	return lf, nil
}

// List returns the log files in dir for sessionID, oldest first. An empty
// sessionID lists every log.
func List(dir, sessionID string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type item struct {
		path string
		mod  time.Time
	}
	var items []item
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, Extension) {
			continue
		}
		if sessionID != "" && !strings.HasPrefix(name, sessionID+"-") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, item{path: filepath.Join(dir, name), mod: info.ModTime()})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].mod.Equal(items[j].mod) {
			return items[i].path < items[j].path
		}
		return items[i].mod.Before(items[j].mod)
	})

	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.path)
	}
	return out, nil
}
