package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/territory-game/api"
	"github.com/wricardo/territory-game/game/service"
	"github.com/wricardo/territory-game/transport/mcp"
	"github.com/wricardo/territory-game/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// newHandler mounts the REST API and WebSocket stream at the root and a
// stateless streamable MCP endpoint at /mcp. MCP tool calls are proxied to
// the API at baseURL.
func newHandler(gameService service.GameService, hub *websocket.Hub, baseURL string) http.Handler {
	tools := mcp.NewClient(baseURL).GetMCPServer()

	mux := http.NewServeMux()
	mux.Handle("/", api.NewServer(gameService, hub))
	mux.Handle("/mcp", server.NewStreamableHTTPServer(tools, server.WithStateLess(true)))
	return mux
}

// tunnelOptions is the resolved ngrok setup. Flags win over the environment.
type tunnelOptions struct {
	Enabled bool
	Token   string
	Domain  string
}

func resolveTunnel(enabled bool, token, domain string, getenv func(string) string) tunnelOptions {
	if !enabled {
		v := getenv("NGROK_ENABLED")
		enabled = v == "true" || v == "1"
	}
	if token == "" {
		token = getenv("NGROK_AUTHTOKEN")
	}
	if token == "" {
		token = getenv("NGROK_AUTH_TOKEN")
	}
	if domain == "" {
		domain = getenv("NGROK_DOMAIN")
	}
	return tunnelOptions{Enabled: enabled, Token: token, Domain: domain}
}

// serveTunnel mirrors handler through ngrok until ctx is cancelled.
func serveTunnel(ctx context.Context, opts tunnelOptions, handler http.Handler) error {
	if opts.Token == "" {
		return errors.New("ngrok enabled without an auth token (set -ngrok-auth or NGROK_AUTHTOKEN)")
	}
	var endpoint ngrokConfig.Tunnel
	if opts.Domain != "" {
		endpoint = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.Domain))
	} else {
		endpoint = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, endpoint, ngrok.WithAuthtoken(opts.Token))
	if err != nil {
		return fmt.Errorf("start ngrok tunnel: %w", err)
	}
	log.Printf("Ngrok tunnel established: %s (API %s/api, MCP %s/mcp)", tun.URL(), tun.URL(), tun.URL())

	go func() {
		<-ctx.Done()
		tun.Close()
	}()
	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil {
		return fmt.Errorf("ngrok tunnel: %w", err)
	}
	return nil
}

// runHTTPServer serves until SIGINT or SIGTERM, then drains connections and
// disconnects WebSocket viewers.
func runHTTPServer(gameService service.GameService) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	addr := net.JoinHostPort(*host, fmt.Sprint(*port))
	handler := newHandler(gameService, hub, "http://"+addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s (API /api, WebSocket /ws?session=<id>, MCP /mcp)", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	var wg sync.WaitGroup
	if opts := resolveTunnel(*ngrokEnabled, *ngrokAuth, *ngrokDomain, os.Getenv); opts.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := serveTunnel(ctx, opts, handler); err != nil {
				log.Printf("Warning: %v", err)
			}
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
	case err = <-errc:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Printf("HTTP server shutdown error: %v", serr)
	}
	wg.Wait()
	return err
}

// apiBaseURL returns the API the stdio MCP server should proxy to. An API
// already answering at external is reused; otherwise one is started on a
// loopback port and the returned stop function shuts it down.
func apiBaseURL(gameService service.GameService, external string) (string, func(), error) {
	probe := &http.Client{Timeout: 2 * time.Second}
	if resp, err := probe.Get(external + "/api/health"); err == nil {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			log.Printf("Using the API already running at %s", external)
			return external, func() {}, nil
		}
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("listen for internal API: %w", err)
	}
	hub := websocket.NewHub()
	go hub.Run()
	srv := &http.Server{Handler: api.NewServer(gameService, hub)}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Internal API error: %v", err)
		}
	}()

	baseURL := "http://" + ln.Addr().String()
	log.Printf("Started internal API at %s", baseURL)
	return baseURL, func() {
		srv.Close()
		hub.Stop()
	}, nil
}

// runStdioMCP speaks MCP on stdin/stdout until the client disconnects.
func runStdioMCP(gameService service.GameService) error {
	baseURL, stop, err := apiBaseURL(gameService, fmt.Sprintf("http://localhost:%d", *port))
	if err != nil {
		return err
	}
	defer stop()

	log.Println("MCP stdio server ready")
	return server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
}
