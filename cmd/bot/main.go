// Kujira Market Maker — an automated layered market-making bot for
// Kujira order-book markets, trading through a chain gateway.
//
// Architecture:
//
//	main.go              — entry point: loads config, starts engine, waits for SIGINT/SIGTERM
//	engine/engine.go     — orchestrator: one strategy worker goroutine per configured market
//	strategy/worker.go   — tick loop: refresh state, cancel stale orders, place a fresh ladder
//	strategy/proposal.go — builds the ladder: layered bid/ask prices and sizes around a reference price
//	strategy/budget.go   — drops proposal orders the free balances cannot afford
//	strategy/tracker.go  — tracked/currently-tracked order sets, duplicate detection
//	pricing/middle.go    — book midpoint strategies: simple, weighted, volume-weighted averages
//	market/book.go       — sorted order book view over the gateway's level maps
//	gateway/client.go    — REST client for the chain gateway (orders, books, balances, withdrawals)
//	api/server.go        — dashboard: status snapshot, WebSocket event stream, Prometheus metrics
//
// How it makes money:
//
//	The bot quotes both sides of the book in configurable layers: bids a
//	spread below the reference price, asks a spread above it. When both
//	sides fill, the bot earns the spread. Wider layers carry more spread
//	and less size, capturing volatility without chasing every trade.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"kujira-mm/internal/api"
	"kujira-mm/internal/config"
	"kujira-mm/internal/engine"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("KUJIRA_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Set up logger
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	// Create engine
	eng, err := engine.New(*cfg, logger)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	// Start dashboard API server if enabled
	var apiServer *api.Server
	if cfg.Dashboard.Enabled {
		apiServer = api.NewServer(cfg.Dashboard, eng, cfg.DryRun, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("dashboard server failed", "error", err)
			}
		}()
		go apiServer.Forward(eng.Events())
		logger.Info("dashboard started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	if err := eng.Start(); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — no real orders will be placed")
	}

	logger.Info("kujira market maker started",
		"gateway", cfg.Gateway.BaseURL,
		"workers", len(cfg.Workers),
		"dry_run", cfg.DryRun,
	)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	// Stop dashboard first
	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error("failed to stop dashboard", "error", err)
		}
	}

	eng.Stop()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
