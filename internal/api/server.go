package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kujira-mm/internal/config"
)

// Server runs the HTTP/WebSocket dashboard:
//
//	GET /health        — liveness check
//	GET /api/snapshot  — current worker statuses as JSON
//	GET /ws            — WebSocket stream of worker events
//	GET /metrics       — Prometheus exposition
type Server struct {
	cfg      config.DashboardConfig
	provider StatusProvider
	dryRun   bool
	hub      *Hub
	server   *http.Server
	done     chan struct{}
	logger   *slog.Logger
}

// NewServer creates the dashboard server.
func NewServer(cfg config.DashboardConfig, provider StatusProvider, dryRun bool, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		provider: provider,
		dryRun:   dryRun,
		hub:      NewHub(logger),
		done:     make(chan struct{}),
		logger:   logger.With("component", "api-server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/ws", s.hub.serveClient)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start serves HTTP until Stop is called. Blocks; run in a goroutine.
func (s *Server) Start() error {
	go s.hub.Run(s.done)
	s.logger.Info("dashboard listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard server: %w", err)
	}
	return nil
}

// Forward pumps worker events into the WebSocket hub until the channel
// closes. Run in a goroutine.
func (s *Server) Forward(events <-chan WorkerEvent) {
	for evt := range events {
		s.hub.BroadcastEvent(evt)
	}
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	close(s.done)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot := Snapshot{
		Timestamp: time.Now(),
		DryRun:    s.dryRun,
		Workers:   s.provider.WorkerStatuses(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		s.logger.Error("failed to encode snapshot", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
