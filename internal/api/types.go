// Package api serves the operational dashboard for the bot: worker status
// snapshots over HTTP, a WebSocket stream of worker events, and the
// Prometheus metrics endpoint.
package api

import (
	"time"
)

// WorkerEvent is a dashboard notification emitted by a worker. Workers
// publish non-blocking; events are dropped when consumers fall behind.
type WorkerEvent struct {
	Type      string    `json:"type"` // "tick", "orders_placed", "orders_cancelled", "tick_error"
	Worker    string    `json:"worker"`
	Market    string    `json:"market"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// OrdersEventData accompanies "orders_placed" and "orders_cancelled" events.
type OrdersEventData struct {
	Count    int      `json:"count"`
	OrderIDs []string `json:"orderIds,omitempty"`
}

// TickEventData accompanies "tick" events.
type TickEventData struct {
	ReferencePrice string        `json:"referencePrice,omitempty"`
	ProposalOrders int           `json:"proposalOrders"`
	Duration       time.Duration `json:"durationMs"`
}

// WorkerStatus is the point-in-time view of one worker for /api/snapshot.
type WorkerStatus struct {
	ID               string    `json:"id"`
	Market           string    `json:"market"`
	Busy             bool      `json:"busy"`
	NextRefresh      time.Time `json:"nextRefresh"`
	ReferencePrice   string    `json:"referencePrice,omitempty"`
	CurrentlyTracked int       `json:"currentlyTracked"`
	Tracked          int       `json:"tracked"`
	LastTickAt       time.Time `json:"lastTickAt,omitempty"`
	LastError        string    `json:"lastError,omitempty"`
}

// Snapshot is the full dashboard state.
type Snapshot struct {
	Timestamp time.Time      `json:"timestamp"`
	DryRun    bool           `json:"dryRun"`
	Workers   []WorkerStatus `json:"workers"`
}

// StatusProvider is implemented by the engine; the server pulls worker
// statuses through it instead of reaching into strategy internals.
type StatusProvider interface {
	WorkerStatuses() []WorkerStatus
}
