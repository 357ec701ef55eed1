// Package eventlog archives the events of every game as zstd-compressed
// JSON lines, one file per game, and reads them back for analysis.
//
// Files are named <session>-<uuid>.jsonl.zst. Each line is an Entry holding
// the events of a single tick.
package eventlog
