// Package results keeps a SQLite archive of finished games: who won, why
// the game ended and the final scoreboard.
package results
