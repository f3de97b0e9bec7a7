// Relay Core - multi-session messaging gateway
//
// This is the main entry point for the Relay Core application. It exposes
// a REST API for provisioning messaging sessions, each backed by an
// external browser-automation runner process, and a WebSocket stream that
// relays session lifecycle events.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/relay-core/internal/api"
	"github.com/nerrad567/relay-core/internal/bridge"
	"github.com/nerrad567/relay-core/internal/infrastructure/config"
	"github.com/nerrad567/relay-core/internal/infrastructure/logging"
	"github.com/nerrad567/relay-core/internal/session"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Relay Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Credential store root must exist before any session is provisioned
	if err := os.MkdirAll(cfg.Sessions.AuthDir, 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	store := session.NewStore(cfg.Sessions.AuthDir)
	log.Info("credential store ready", "path", store.Root())

	registry := session.NewRegistry()
	registry.SetLogger(log)

	// Runner factory spawns one external client process per session
	factory, err := bridge.NewFactory(bridge.Config{
		Binary:      cfg.Sessions.Runner.Binary,
		Script:      cfg.Sessions.Runner.Script,
		BrowserPath: cfg.Sessions.Runner.BrowserPath,
		StopTimeout: cfg.GetRunnerStopTimeout(),
	})
	if err != nil {
		return fmt.Errorf("creating runner factory: %w", err)
	}
	factory.SetLogger(log)

	controller := session.NewController(registry, store, factory.Client)
	controller.SetLogger(log)
	defer func() {
		log.Info("destroying live sessions")
		controller.Shutdown()
	}()

	// One hub serves both the HTTP layer and the controller's event stream
	hub := api.NewHub(cfg.WebSocket, log)
	controller.SetNotifier(hub)

	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Controller:  controller,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server (stops accepting requests)
	// 2. Session controller (destroys runner processes)

	log.Info("Relay Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses RELAY_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("RELAY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
