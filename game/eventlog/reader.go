package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/wricardo/territory-game/game/engine"
)

// ReadEntries decodes every line of a log file. A log that was never
// sealed, because its game is still running or the process died, yields the
// lines flushed so far.
func ReadEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var entries []Entry
	for sc.Scan() {
		var entry Entry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			if !sc.Scan() && unsealed(sc.Err()) {
				break
			}
			return nil, fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil && !unsealed(err) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return entries, nil
}

func unsealed(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF)
}

// ReadAll returns the events of a log file in the order they were written.
func ReadAll(path string) ([]engine.Event, error) {
	entries, err := ReadEntries(path)
	if err != nil {
		return nil, err
	}
	var events []engine.Event
	for _, e := range entries {
		events = append(events, e.Events...)
	}
	return events, nil
}
