package gateway

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"kujira-mm/internal/config"
	"kujira-mm/pkg/types"
)

func newDryRunClient() *Client {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewClient(config.GatewayConfig{BaseURL: "http://localhost:15888"}, true, logger)
}

func testRoute() Route {
	return Route{Chain: "kujira", Network: "mainnet", Connector: "kujira"}
}

func TestDryRunPostOrders(t *testing.T) {
	t.Parallel()
	c := newDryRunClient()

	orders := []types.OrderWire{
		{ClientID: "1", MarketID: "mkt-1", OwnerAddress: "kujira1owner", Side: types.BUY, Price: "9.9", Amount: "10", Type: types.OrderTypeLimit},
		{ClientID: "2", MarketID: "mkt-1", OwnerAddress: "kujira1owner", Side: types.SELL, Price: "12.1", Amount: "8", Type: types.OrderTypeLimit},
	}

	result, err := c.PostOrders(context.Background(), testRoute(), orders)
	if err != nil {
		t.Fatalf("PostOrders: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(result))
	}

	clientIDs := make(map[string]bool)
	for id, order := range result {
		if id == "" || order.ID != id {
			t.Errorf("order id mismatch: key %q, order.ID %q", id, order.ID)
		}
		if order.Status != types.OrderStatusOpen {
			t.Errorf("order %s status = %v, want OPEN", id, order.Status)
		}
		clientIDs[order.ClientID] = true
	}
	if !clientIDs["1"] || !clientIDs["2"] {
		t.Errorf("client ids not echoed back: %v", clientIDs)
	}
}

func TestDryRunPostOrdersEmpty(t *testing.T) {
	t.Parallel()
	c := newDryRunClient()

	result, err := c.PostOrders(context.Background(), testRoute(), nil)
	if err != nil {
		t.Fatalf("PostOrders: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil for empty batch, got %v", result)
	}
}

func TestDryRunDeleteOrders(t *testing.T) {
	t.Parallel()
	c := newDryRunClient()

	result, err := c.DeleteOrders(context.Background(), testRoute(), []string{"order-1", "order-2"}, "mkt-1", "kujira1owner")
	if err != nil {
		t.Fatalf("DeleteOrders: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 cancelled, got %d", len(result))
	}
	for id, order := range result {
		if order.Status != types.OrderStatusCancelled {
			t.Errorf("order %s status = %v, want CANCELLED", id, order.Status)
		}
	}
}

func TestDryRunDeleteOrdersEmpty(t *testing.T) {
	t.Parallel()
	c := newDryRunClient()

	result, err := c.DeleteOrders(context.Background(), testRoute(), nil, "mkt-1", "kujira1owner")
	if err != nil {
		t.Fatalf("DeleteOrders: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("expected 0 cancelled, got %d", len(result))
	}
}

func TestDryRunDeleteAllOrders(t *testing.T) {
	t.Parallel()
	c := newDryRunClient()

	result, err := c.DeleteAllOrders(context.Background(), testRoute(), "mkt-1", "kujira1owner")
	if err != nil {
		t.Fatalf("DeleteAllOrders: %v", err)
	}
	if result == nil {
		t.Fatal("expected non-nil response")
	}
}

func TestDryRunMarketWithdraw(t *testing.T) {
	t.Parallel()
	c := newDryRunClient()

	if err := c.PostMarketWithdraw(context.Background(), testRoute(), "mkt-1", "kujira1owner"); err != nil {
		t.Fatalf("PostMarketWithdraw: %v", err)
	}
}
