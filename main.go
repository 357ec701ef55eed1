// Command territory-game serves territory game sessions.
//
// In "server" mode (the default) it exposes the REST API, the live WebSocket
// stream and a streamable MCP endpoint on one listener, optionally mirrored
// through an ngrok tunnel. In "mcp" mode it speaks MCP over stdio and
// proxies tool calls to a local API, starting one in-process when none is
// already listening.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/wricardo/territory-game/game/config"
	"github.com/wricardo/territory-game/game/eventlog"
	"github.com/wricardo/territory-game/game/results"
	"github.com/wricardo/territory-game/game/service"
	"github.com/wricardo/territory-game/game/session"
)

const (
	Version = "2.0.0"
	AppName = "Territory Game Server"
)

const (
	sessionMaxAge    = 24 * time.Hour
	expiryInterval   = time.Hour
	syncInterval     = 5 * time.Second
	shutdownDeadline = 10 * time.Second
)

var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	configDir    = flag.String("config-dir", envOr("CONFIG_DIR", "configs"), "Directory containing game configurations")
	sessionsDir  = flag.String("sessions-dir", "sessions", "Directory for persisted sessions")
	eventLogDir  = flag.String("event-log-dir", "eventlogs", "Directory for compressed per-game event logs (empty disables)")
	resultsDB    = flag.String("results-db", "data/results.sqlite", "SQLite database of finished games (empty disables)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Mirror the server through an ngrok tunnel (or NGROK_ENABLED=true)")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or NGROK_AUTHTOKEN)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Reserved ngrok domain (or NGROK_DOMAIN)")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func init() {
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(out, "Usage: %s [OPTIONS] [server|mcp]\n\n", os.Args[0])
		fmt.Fprintf(out, "  server   REST API, WebSocket stream and /mcp endpoint (default)\n")
		fmt.Fprintf(out, "  mcp      MCP over stdio, proxied to a local API (alias: stdio-mcp)\n\n")
		flag.PrintDefaults()
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		return
	}
	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	mode := "server"
	if flag.NArg() > 0 {
		mode = flag.Arg(0)
	}
	log.Printf("Starting %s v%s (mode: %s)", AppName, Version, mode)

	gameService, cleanup, err := initializeServices()
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer cleanup()

	switch mode {
	case "server", "http":
		err = runHTTPServer(gameService)
	case "mcp", "stdio-mcp", "mcp-stdio":
		err = runStdioMCP(gameService)
	default:
		err = fmt.Errorf("unknown mode %q, use server or mcp", mode)
	}
	if err != nil {
		log.Printf("Error: %v", err)
		cleanup()
		os.Exit(1)
	}
}

// initializeServices wires session and config managers, the event log, the
// results archive and the game service, and starts session housekeeping.
// The returned cleanup stops running sessions, saves them and closes the
// stores; it is safe to call more than once.
func initializeServices() (service.GameService, func(), error) {
	configManager, err := config.NewManager(*configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	persistence, err := session.NewFilePersistence(*sessionsDir, configManager)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	var opts []service.Option
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Printf("Warning: close failed: %v", err)
			}
		}
	}

	if *eventLogDir != "" {
		writer, err := eventlog.NewWriter(*eventLogDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create event log: %w", err)
		}
		opts = append(opts, service.WithEventRecorder(writer))
		closers = append(closers, writer.Close)
		log.Printf("Recording event logs to %s", writer.Dir())
	}
	if *resultsDB != "" {
		store, err := results.Open(*resultsDB)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to open results database: %w", err)
		}
		opts = append(opts, service.WithResultStore(store))
		closers = append(closers, store.Close)
		log.Printf("Archiving finished games to %s", *resultsDB)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Printf("Warning: Failed to load persisted sessions: %v", err)
	}
	gameService := service.NewGameService(sessionManager, configManager, opts...)

	ctx, stop := context.WithCancel(context.Background())
	go housekeeping(ctx, sessionManager, persistence)

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			stop()
			gameService.Shutdown()
			if err := sessionManager.SaveAllSessions(); err != nil {
				log.Printf("Warning: Failed to save sessions: %v", err)
			}
			closeAll()
		})
	}
	return gameService, cleanup, nil
}

// housekeeping expires idle sessions and drops sessions whose files were
// deleted out from under the server, until ctx is cancelled.
func housekeeping(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence) {
	expire := time.NewTicker(expiryInterval)
	defer expire.Stop()
	resync := time.NewTicker(syncInterval)
	defer resync.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-expire.C:
			if removed := manager.CleanupExpiredSessions(sessionMaxAge); removed > 0 {
				log.Printf("Cleaned up %d expired sessions", removed)
			}
		case <-resync.C:
			if n := pruneOrphans(manager, persistence); n > 0 {
				log.Printf("Filesystem sync: pruned %d orphaned sessions from memory", n)
			}
		}
	}
}

// pruneOrphans removes in-memory sessions that no longer have a file.
func pruneOrphans(manager *session.Manager, persistence session.SessionPersistence) int {
	pruned := 0
	for _, s := range manager.List() {
		if persistence.Exists(s.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(s.ID); err == nil {
			pruned++
		}
	}
	return pruned
}
