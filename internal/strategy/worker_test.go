package strategy

import (
	"testing"

	"github.com/shopspring/decimal"

	"kujira-mm/internal/config"
	"kujira-mm/internal/market"
	"kujira-mm/pkg/types"
)

func TestWaitingMillis(t *testing.T) {
	t.Parallel()

	tests := []struct {
		nowMs      int64
		intervalMs int64
		want       int64
	}{
		{1700000000345, 1000, 655},
		{1700000000000, 1000, 1000},
		{1700000000999, 1000, 1},
		{1700000001500, 5000, 3500},
	}

	for _, tt := range tests {
		if got := waitingMillis(tt.nowMs, tt.intervalMs); got != tt.want {
			t.Errorf("waitingMillis(%d, %d) = %d, want %d", tt.nowMs, tt.intervalMs, got, tt.want)
		}
	}
}

func TestMiddlePriceExplicitStrategy(t *testing.T) {
	t.Parallel()

	w := &Worker{middleStrategy: types.MiddlePriceSAP}
	book := market.Book{
		Bids: []types.BookLevel{{Price: decimal.NewFromInt(10), Amount: decimal.NewFromInt(2)}},
		Asks: []types.BookLevel{{Price: decimal.NewFromInt(12), Amount: decimal.NewFromInt(3)}},
	}

	got, err := w.middlePrice(book, decimal.NewFromInt(99))
	if err != nil {
		t.Fatalf("middlePrice: %v", err)
	}
	if got.String() != "11" {
		t.Errorf("SAP midpoint = %s, want 11", got)
	}
}

func TestMiddlePriceFallbackChainUsesBook(t *testing.T) {
	t.Parallel()

	w := &Worker{middleStrategy: ""}
	book := market.Book{
		Bids: []types.BookLevel{{Price: decimal.NewFromInt(10), Amount: decimal.NewFromInt(2)}},
		Asks: []types.BookLevel{{Price: decimal.NewFromInt(12), Amount: decimal.NewFromInt(3)}},
	}

	got, err := w.middlePrice(book, decimal.NewFromInt(99))
	if err != nil {
		t.Fatalf("middlePrice: %v", err)
	}
	// VWAP over single-level sides: (12·3 + 10·2) / 5
	if got.String() != "11.2" {
		t.Errorf("fallback midpoint = %s, want 11.2", got)
	}
}

func TestMiddlePriceFallbackChainEmptyBookUsesTicker(t *testing.T) {
	t.Parallel()

	w := &Worker{middleStrategy: ""}

	got, err := w.middlePrice(market.Book{}, decimal.RequireFromString("7.5"))
	if err != nil {
		t.Fatalf("middlePrice: %v", err)
	}
	if got.String() != "7.5" {
		t.Errorf("fallback midpoint = %s, want ticker price 7.5", got)
	}
}

func TestNewWorkerRejectsUnknownStrategies(t *testing.T) {
	t.Parallel()

	cfg := config.WorkerConfig{
		ID: "w1",
		Strategy: config.StrategyConfig{
			PriceStrategy: "ORACLE",
		},
	}

	if _, err := NewWorker(cfg, nil, nil, testLogger()); err == nil {
		t.Error("expected error for unknown price strategy")
	}
}

func TestNewWorkerDefaults(t *testing.T) {
	t.Parallel()

	cfg := config.WorkerConfig{
		ID:        "w1",
		Chain:     "kujira",
		Network:   "mainnet",
		Connector: "kujira",
		Market:    "KUJI/USK",
		Strategy: config.StrategyConfig{
			TickIntervalMs: 1000,
			Layers: []config.LayerConfig{
				{Bid: config.LayerSideConfig{Quantity: 1, SpreadPercentage: 1, MaxLiquidityInDollars: 100}},
			},
		},
	}

	w, err := NewWorker(cfg, nil, nil, testLogger())
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	if w.priceStrategy != types.PriceStrategyTicker {
		t.Errorf("default price strategy = %v, want TICKER", w.priceStrategy)
	}
	if w.orderType != types.OrderTypeLimit {
		t.Errorf("default order type = %v, want LIMIT", w.orderType)
	}
	if len(w.layers) != 1 {
		t.Errorf("layers = %d, want 1", len(w.layers))
	}
}
