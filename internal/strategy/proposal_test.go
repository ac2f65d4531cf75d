package strategy

import (
	"log/slog"
	"os"
	"testing"

	"github.com/shopspring/decimal"

	"kujira-mm/internal/market"
	"kujira-mm/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testMarket() types.Market {
	return types.Market{
		ID:                    "mkt-1",
		Name:                  "KUJI/USK",
		BaseToken:             types.Token{ID: "ukuji", Name: "KUJI", Decimals: 6},
		QuoteToken:            types.Token{ID: "usk", Name: "USK", Decimals: 6},
		MinimumPriceIncrement: decimal.RequireFromString("0.001"),
		MinimumOrderSize:      decimal.RequireFromString("0.001"),
	}
}

func testBook(bestBid, bestAsk string) market.Book {
	return market.Book{
		Bids: []types.BookLevel{{Price: decimal.RequireFromString(bestBid), Amount: decimal.NewFromInt(5)}},
		Asks: []types.BookLevel{{Price: decimal.RequireFromString(bestAsk), Amount: decimal.NewFromInt(5)}},
	}
}

func symmetricLayer(quantity int, spread, liquidity string) types.Layer {
	side := types.LayerSide{
		Quantity:              quantity,
		SpreadPercentage:      decimal.RequireFromString(spread),
		MaxLiquidityInDollars: decimal.RequireFromString(liquidity),
	}
	return types.Layer{Bid: side, Ask: side}
}

func TestBuildProposalSingleLayer(t *testing.T) {
	t.Parallel()

	ref := decimal.RequireFromString("11")
	layers := []types.Layer{symmetricLayer(1, "10", "100")}

	proposal := BuildProposal(testBook("10", "12"), ref, testMarket(), types.OrderTypeLimit, layers, testLogger())

	if len(proposal) != 2 {
		t.Fatalf("proposal = %d orders, want 2", len(proposal))
	}

	bid, ask := proposal[0], proposal[1]
	if bid.Side != types.BUY || ask.Side != types.SELL {
		t.Fatalf("expected bid then ask, got %v then %v", bid.Side, ask.Side)
	}
	if bid.Price.String() != "9.9" {
		t.Errorf("bid price = %s, want 9.9", bid.Price)
	}
	if ask.Price.String() != "12.1" {
		t.Errorf("ask price = %s, want 12.1", ask.Price)
	}
	// 100 / 9.9 and 100 / 12.1
	if got := bid.Amount.Round(3).String(); got != "10.101" {
		t.Errorf("bid size = %s, want 10.101", got)
	}
	if got := ask.Amount.Round(3).String(); got != "8.264" {
		t.Errorf("ask size = %s, want 8.264", got)
	}
}

func TestBuildProposalClampsAgainstBook(t *testing.T) {
	t.Parallel()

	// Best ask below the reference price pulls the bid base down; best bid
	// above the reference pulls the ask base up. The ladder never crosses
	// the live book.
	ref := decimal.RequireFromString("11")
	layers := []types.Layer{symmetricLayer(1, "10", "100")}

	proposal := BuildProposal(testBook("13", "9"), ref, testMarket(), types.OrderTypeLimit, layers, testLogger())

	if len(proposal) != 2 {
		t.Fatalf("proposal = %d orders, want 2", len(proposal))
	}
	if got := proposal[0].Price.String(); got != "8.1" {
		t.Errorf("clamped bid price = %s, want 8.1 (0.9 · 9)", got)
	}
	if got := proposal[1].Price.String(); got != "14.3" {
		t.Errorf("clamped ask price = %s, want 14.3 (1.1 · 13)", got)
	}
}

func TestBuildProposalClientIDsCountBidsFirst(t *testing.T) {
	t.Parallel()

	ref := decimal.RequireFromString("11")
	layers := []types.Layer{
		symmetricLayer(2, "1", "100"),
		symmetricLayer(1, "5", "100"),
	}

	proposal := BuildProposal(testBook("10", "12"), ref, testMarket(), types.OrderTypeLimit, layers, testLogger())

	if len(proposal) != 6 {
		t.Fatalf("proposal = %d orders, want 6", len(proposal))
	}
	wantIDs := []string{"1", "2", "3", "4", "5", "6"}
	wantSides := []types.OrderSide{types.BUY, types.BUY, types.BUY, types.SELL, types.SELL, types.SELL}
	for i, order := range proposal {
		if order.ClientID != wantIDs[i] {
			t.Errorf("proposal[%d].ClientID = %q, want %q", i, order.ClientID, wantIDs[i])
		}
		if order.Side != wantSides[i] {
			t.Errorf("proposal[%d].Side = %v, want %v", i, order.Side, wantSides[i])
		}
	}
}

func TestBuildProposalSkipsPriceBelowIncrement(t *testing.T) {
	t.Parallel()

	mkt := testMarket()
	mkt.MinimumPriceIncrement = decimal.RequireFromString("10")

	ref := decimal.RequireFromString("11")
	layers := []types.Layer{symmetricLayer(1, "20", "100")}

	// Bid price 0.8 · 11 = 8.8 < 10 → bid side skipped; ask 13.2 survives.
	proposal := BuildProposal(testBook("10", "12"), ref, mkt, types.OrderTypeLimit, layers, testLogger())

	if len(proposal) != 1 {
		t.Fatalf("proposal = %d orders, want 1", len(proposal))
	}
	if proposal[0].Side != types.SELL {
		t.Errorf("surviving order side = %v, want SELL", proposal[0].Side)
	}
}

func TestBuildProposalSkipsSizeBelowMinimum(t *testing.T) {
	t.Parallel()

	mkt := testMarket()
	mkt.MinimumOrderSize = decimal.RequireFromString("1000")

	ref := decimal.RequireFromString("11")
	layers := []types.Layer{symmetricLayer(1, "10", "100")}

	proposal := BuildProposal(testBook("10", "12"), ref, mkt, types.OrderTypeLimit, layers, testLogger())

	if len(proposal) != 0 {
		t.Errorf("proposal = %d orders, want 0 (all sizes below minimum)", len(proposal))
	}
}

func TestBuildProposalZeroQuantitySide(t *testing.T) {
	t.Parallel()

	ref := decimal.RequireFromString("11")
	layer := symmetricLayer(1, "10", "100")
	layer.Bid.Quantity = 0

	proposal := BuildProposal(testBook("10", "12"), ref, testMarket(), types.OrderTypeLimit, []types.Layer{layer}, testLogger())

	if len(proposal) != 1 {
		t.Fatalf("proposal = %d orders, want 1", len(proposal))
	}
	if proposal[0].Side != types.SELL {
		t.Errorf("surviving order side = %v, want SELL", proposal[0].Side)
	}
}

func TestSizePerOrderSplitsBudget(t *testing.T) {
	t.Parallel()

	side := types.LayerSide{
		Quantity:              4,
		SpreadPercentage:      decimal.NewFromInt(1),
		MaxLiquidityInDollars: decimal.NewFromInt(100),
	}

	size := sizePerOrder(side, decimal.NewFromInt(10))
	if size.String() != "2.5" {
		t.Errorf("size = %s, want 2.5 (100 / 10 / 4)", size)
	}

	if !sizePerOrder(side, decimal.Zero).IsZero() {
		t.Error("zero price should yield zero size")
	}
}
