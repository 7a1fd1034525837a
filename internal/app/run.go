package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gi8lino/jiramirror/internal/auth"
	"github.com/gi8lino/jiramirror/internal/config"
	"github.com/gi8lino/jiramirror/internal/flag"
	"github.com/gi8lino/jiramirror/internal/logging"
	"github.com/gi8lino/jiramirror/internal/server"
	"github.com/gi8lino/jiramirror/internal/telemetry"

	"github.com/containeroo/tinyflags"
)

// Run starts jiramirror. It either serves webhooks (optionally with a
// scheduler) or, with --run-once, performs one scheduled sync and exits.
func Run(ctx context.Context, version string, args []string, w io.Writer, getEnv func(string) string) error {
	// Create a new context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Parse command-line flags
	flags, err := flag.ParseArgs(version, args, w, getEnv)
	if err != nil {
		if tinyflags.IsHelpRequested(err) || tinyflags.IsVersionRequested(err) {
			fmt.Fprint(w, err.Error()) // nolint:errcheck
			return nil
		}
		return fmt.Errorf("parsing error: %w", err)
	}

	// Setup logger
	logger := logging.SetupLogger(flags.LogFormat, flags.Debug, w)
	logger.Info("Starting jiramirror", "version", version)

	// Load config
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	// Telemetry
	tel, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:  "jiramirror",
		Version:      version,
		Stdout:       flags.OTelStdout,
		OTLPEndpoint: flags.OTelEndpoint,
	})
	if err != nil {
		return fmt.Errorf("telemetry error: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	// Sync state store
	store, err := openStore(ctx, cfg.State, cfg.Sync.TTL())
	if err != nil {
		return fmt.Errorf("state store error: %w", err)
	}
	defer store.Close() // nolint:errcheck
	logger.Info("state store ready", "backend", string(cfg.State.Backend), "ttl", cfg.Sync.TTL())

	// Orchestrator
	orch, err := newOrchestrator(cfg, tel, tel.WrapStore(store), logger)
	if err != nil {
		return err
	}

	if flags.RunOnce {
		summary, err := orch.RunScheduledSync(ctx)
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(summary); encErr != nil {
			return errors.Join(err, fmt.Errorf("write summary: %w", encErr))
		}
		return err
	}

	// Scheduler
	go server.RunScheduler(ctx, flags.SyncInterval, orch, logger)

	// Setup Server and run until canceled
	router := server.NewRouter(server.Routes{
		Auth:      auth.New(cfg.Webhook.Secret, cfg.Webhook.TrustedDomain),
		Processor: orch,
		Runner:    orch,
		Store:     orch.Store(),
		Health:    store,
	}, flags.RoutePrefix, logger, flags.Debug)

	err = server.RunHTTPServer(ctx, router, flags.ListenAddr, logger)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server exited with error", "error", err)
		return err
	}
	return nil
}

// loadConfig reads the file, merges CLI overrides and validates the result.
func loadConfig(flags flag.Config) (config.Config, error) {
	cfg, err := config.LoadConfig(flags.Config)
	if err != nil {
		return cfg, fmt.Errorf("loading config error: %w", err)
	}
	if err := cfg.MergeUserMappings(flags.UserMapping); err != nil {
		return cfg, fmt.Errorf("user mapping error: %w", err)
	}
	if err := config.ResolveSecrets(&cfg); err != nil {
		return cfg, fmt.Errorf("resolving secrets error: %w", err)
	}

	if flags.RequestTimeout > 0 {
		cfg.Jira.Timeout = flags.RequestTimeout
		cfg.GitHub.Timeout = flags.RequestTimeout
	}
	if flags.Concurrency > 0 {
		cfg.Sync.Concurrency = flags.Concurrency
	}

	if err := config.ValidateConfig(&cfg); err != nil {
		return cfg, fmt.Errorf("validating config error: %w", err)
	}
	return cfg, nil
}
