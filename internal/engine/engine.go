// Package engine is the central orchestrator of the market-making bot.
//
// It wires together all subsystems:
//
//  1. A shared gateway client talks REST to the chain gateway.
//  2. Engine starts one strategy worker goroutine per configured market.
//  3. Each worker runs its own tick loop: refresh state, cancel stale
//     orders, quote a fresh ladder around the reference price.
//  4. Worker events stream to the dashboard over an optional channel.
//
// Lifecycle: New() → Start() → [runs until SIGINT] → Stop()
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"kujira-mm/internal/api"
	"kujira-mm/internal/config"
	"kujira-mm/internal/gateway"
	"kujira-mm/internal/strategy"
)

// Engine owns the gateway client and the worker goroutines. Workers are
// fixed at construction time; the engine starts them together and waits
// for all of them on shutdown.
type Engine struct {
	cfg     config.Config
	client  *gateway.Client
	workers []*strategy.Worker
	logger  *slog.Logger

	// events is an optional channel feeding the dashboard.
	// Nil if the dashboard is disabled.
	events chan api.WorkerEvent

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and wires all engine components.
func New(cfg config.Config, logger *slog.Logger) (*Engine, error) {
	client := gateway.NewClient(cfg.Gateway, cfg.DryRun, logger)

	var events chan api.WorkerEvent
	if cfg.Dashboard.Enabled {
		events = make(chan api.WorkerEvent, 100)
	}

	workers := make([]*strategy.Worker, 0, len(cfg.Workers))
	for _, workerCfg := range cfg.Workers {
		worker, err := strategy.NewWorker(workerCfg, client, events, logger)
		if err != nil {
			return nil, fmt.Errorf("create worker: %w", err)
		}
		workers = append(workers, worker)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		cfg:     cfg,
		client:  client,
		workers: workers,
		logger:  logger.With("component", "engine"),
		events:  events,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start launches one goroutine per worker. A worker that fails to
// initialize logs and exits; the rest keep running.
func (e *Engine) Start() error {
	for _, worker := range e.workers {
		worker := worker
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if err := worker.Run(e.ctx); err != nil && e.ctx.Err() == nil {
				e.logger.Error("worker exited with error", "error", err)
			}
		}()
	}

	e.logger.Info("engine started", "workers", len(e.workers), "dry_run", e.cfg.DryRun)
	return nil
}

// Stop cancels all workers and waits for their stop hooks to finish.
func (e *Engine) Stop() {
	e.logger.Info("shutting down...")

	e.cancel()
	e.wg.Wait()

	if e.events != nil {
		close(e.events)
	}

	e.logger.Info("shutdown complete")
}

// Events returns the dashboard event channel (may be nil).
func (e *Engine) Events() <-chan api.WorkerEvent {
	return e.events
}

// WorkerStatuses reports the current state of every worker for the
// dashboard snapshot endpoint.
func (e *Engine) WorkerStatuses() []api.WorkerStatus {
	statuses := make([]api.WorkerStatus, 0, len(e.workers))
	for _, worker := range e.workers {
		statuses = append(statuses, worker.Status())
	}
	return statuses
}
