// Command lightcycle starts the Light-Cycle Arena server, or runs the
// agent-side `play` bridge against one.
//
// It supports two modes:
//  1. "serve" – runs the session coordinator, the MCP tool
//     gateway over stdio and HTTP, and the read-only REST/SSE API.
//  2. "play" – runs a stdio MCP bridge that forwards tool calls to a
//     remote server's /mcp endpoint, for agents that only speak stdio MCP.
//
// Flags control host/port, data directory, debug logging, version output,
// and optional ngrok tunneling for external access during development.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/lightcycle-mcp/arena/api"
	"github.com/lightcycle-mcp/arena/internal/coordinator"
	"github.com/lightcycle-mcp/arena/internal/persistence"
	"github.com/lightcycle-mcp/arena/internal/scoring"
	mcptransport "github.com/lightcycle-mcp/arena/transport/mcp"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Light-Cycle Arena"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: error loading .env file: %v", err)
	}

	cmd := &cli.Command{
		Name:    "lightcycle",
		Usage:   fmt.Sprintf("%s v%s", AppName, Version),
		Version: Version,
		Commands: []*cli.Command{
			serveCommand(),
			playCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Println(err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a top-level run error to spec.md SS6's exit code
// convention: 0 clean, 1 a runtime failure, 2 a usage error.
func exitCodeFor(err error) int {
	if _, ok := err.(*usageError); ok {
		return 2
	}
	return 1
}

type usageError struct{ error }

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the coordinator, MCP gateway and REST/SSE API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host"},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port"},
			&cli.IntFlag{Name: "tcp-port", Value: 0, Usage: "raw-TCP MCP port for clients that speak framed stdio MCP over a socket (0 disables it)"},
			&cli.IntFlag{Name: "tick-ms", Value: int64(coordinator.DefaultConfig().TickInterval / time.Millisecond), Usage: "milliseconds per simulation tick"},
			&cli.StringFlag{Name: "data-dir", Value: defaultDataDir(), Usage: "directory for leaderboard.json / finished_games.json"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
			&cli.BoolFlag{Name: "ngrok", Usage: "expose the HTTP server through an ngrok tunnel"},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token (or NGROK_AUTHTOKEN env var)"},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain (optional)"},
		},
		Action: runServe,
	}
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "run a stdio MCP bridge that forwards tool calls to a remote server",
		ArgsUsage: "<server-url>",
		Action:    runPlay,
	}
}

func defaultDataDir() string {
	if dir := os.Getenv("LIGHTCYCLE_DATA_DIR"); dir != "" {
		return dir
	}
	return "data"
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// runServe wires the coordinator, persistence, the SSE hub, the MCP
// gateway (mounted both over stdio and at POST /mcp) and the REST API,
// then serves until an interrupt signal arrives. Grounded on the
// teacher's runHTTPServer: same signal handling and graceful-shutdown
// shape, generalized to the new set of subsystems.
func runServe(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd.Bool("debug"))

	store, err := persistence.NewStore(cmd.String("data-dir"), coordinator.DefaultConfig().RetainFinished)
	if err != nil {
		return fmt.Errorf("create persistence store: %w", err)
	}

	hub := api.NewHub(logger)
	go hub.Run()

	cfg := coordinator.DefaultConfig()
	if ms := cmd.Int("tick-ms"); ms > 0 {
		cfg.TickInterval = time.Duration(ms) * time.Millisecond
	}

	coord := coordinator.New(cfg, scoring.NewLeaderboard(), store, hub, logger)
	gateway := mcptransport.NewGateway(coord, logger)
	apiServer := api.NewServer(coord, hub)

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(gateway))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("http server listening", "addr", addr)
		logger.Info("endpoints",
			"rest", fmt.Sprintf("http://%s/api", addr),
			"stream", fmt.Sprintf("http://%s/api/stream", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr),
			"metrics", fmt.Sprintf("http://%s/metrics", addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
		}
	}()

	// stdio MCP is served on the process's own stdin/stdout, for an agent
	// that launches this process directly rather than over HTTP.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.ServeStdio(gateway.Server()); err != nil {
			logger.Warn("stdio mcp server stopped", "error", err)
		}
	}()

	if tcpPort := cmd.Int("tcp-port"); tcpPort > 0 {
		tcpAddr := fmt.Sprintf("%s:%d", cmd.String("host"), tcpPort)
		listener, err := net.Listen("tcp", tcpAddr)
		if err != nil {
			return fmt.Errorf("listen on tcp mcp port: %w", err)
		}
		logger.Info("tcp mcp listening", "addr", tcpAddr)
		wg.Add(1)
		go func() {
			defer wg.Done()
			runTCPMCPListener(shutdownCtx, listener, gateway, logger)
		}()
		go func() {
			<-shutdownCtx.Done()
			listener.Close()
		}()
	}

	if ngrokShouldRun(cmd) {
		wg.Add(1)
		go runNgrokTunnel(shutdownCtx, cmd, mainRouter, logger, &wg)
	}

	sig := <-stop
	logger.Info("received signal, shutting down", "signal", sig.String())
	cancel()

	shutdownTimeout, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownTimeout); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	wg.Wait()
	logger.Info("server stopped")
	return nil
}

func ngrokShouldRun(cmd *cli.Command) bool {
	if cmd.Bool("ngrok") {
		return true
	}
	enabled := os.Getenv("NGROK_ENABLED")
	return enabled == "true" || enabled == "1"
}

func runNgrokTunnel(ctx context.Context, cmd *cli.Command, handler http.Handler, logger *slog.Logger, wg *sync.WaitGroup) {
	defer wg.Done()

	authToken := cmd.String("ngrok-auth")
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
	}
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTH_TOKEN")
	}
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	domain := cmd.String("ngrok-domain")
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "error", err)
		return
	}
	defer tun.Close()

	logger.Info("ngrok tunnel established", "url", tun.URL())
	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		logger.Warn("ngrok server stopped", "error", err)
	}
}

// mcpHandler exposes the gateway's MCP server over HTTP JSON-RPC, the
// endpoint transport/mcp.Bridge (the `play` side) forwards to. Grounded
// on the teacher's /mcp handler in main.go's runHTTPServer.
func mcpHandler(gateway *mcptransport.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := gateway.Server().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		data, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(data)
	}
}

// runTCPMCPListener accepts raw TCP connections and serves the same MCP
// protocol each stdio transport speaks, framed over the socket directly,
// for clients that connect with --tcp-port rather than HTTP or a child
// process's stdin/stdout. Each connection gets its own StdioServer, the
// same type server.ServeStdio wraps around os.Stdin/os.Stdout.
func runTCPMCPListener(ctx context.Context, listener net.Listener, gateway *mcptransport.Gateway, logger *slog.Logger) {
	stdioServer := server.NewStdioServer(gateway.Server())
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("tcp mcp accept failed", "error", err)
			return
		}
		go func() {
			defer conn.Close()
			if err := stdioServer.Listen(ctx, conn, conn); err != nil {
				logger.Warn("tcp mcp connection closed", "error", err)
			}
		}()
	}
}

// runPlay starts the stdio MCP bridge against a remote server named by
// the command's first argument, or $LIGHTCYCLE_SERVER_URL.
func runPlay(ctx context.Context, cmd *cli.Command) error {
	remote := cmd.Args().First()
	if remote == "" {
		remote = os.Getenv("LIGHTCYCLE_SERVER_URL")
	}
	if remote == "" {
		return &usageError{fmt.Errorf("play requires a server URL, e.g. lightcycle play http://localhost:8080/mcp")}
	}

	bridge := mcptransport.NewBridge(remote)
	return server.ServeStdio(bridge.Server())
}
