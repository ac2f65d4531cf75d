// Package strategy implements the layered market-making worker.
//
// On every tick the worker quotes a symmetric ladder of limit orders
// around a reference price. Per-tick flow:
//
//  1. Optionally withdraw settled market funds.
//  2. Refresh open orders, filled orders, and balances from the gateway.
//  3. Cancel venue orders this worker placed on earlier ticks but did not
//     re-place last tick (stale orders); foreign orders are never touched.
//  4. Derive the reference price (ticker / book midpoint / last fill).
//  5. Build the ladder: per layer and side, a spread-offset price clamped
//     against the opposite top of book, and a per-order size from the
//     layer's liquidity budget.
//  6. Drop orders the free balances cannot afford, in proposal order.
//  7. Place the survivors and re-seed the tracking sets from the response.
package strategy

import (
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"kujira-mm/internal/market"
	"kujira-mm/pkg/types"
)

var oneHundred = decimal.NewFromInt(100)

// BuildProposal emits the ladder for one tick: for each configured layer,
// bid orders below and ask orders above the reference price, bids from all
// layers first, then asks. Client ids count up from 1 in emission order
// and are unique within this batch only.
//
// Prices are clamped so the ladder never crosses the live book: a bid is
// offset from min(reference, bestAsk), an ask from max(reference, bestBid).
// A layer side is skipped entirely, with a warning, when its price falls
// below the market's minimum price increment or its per-order size below
// the minimum order size.
func BuildProposal(
	book market.Book,
	referencePrice decimal.Decimal,
	mkt types.Market,
	orderType types.OrderType,
	layers []types.Layer,
	logger *slog.Logger,
) []types.CandidateOrder {
	clientID := 1
	next := func() string {
		id := strconv.Itoa(clientID)
		clientID++
		return id
	}

	var bids []types.CandidateOrder
	for index, layer := range layers {
		bidBase := referencePrice
		if bestAsk, ok := book.BestAsk(); ok && bestAsk.LessThan(bidBase) {
			bidBase = bestAsk
		}
		price := oneHundred.Sub(layer.Bid.SpreadPercentage).Div(oneHundred).Mul(bidBase)
		size := sizePerOrder(layer.Bid, price)

		switch {
		case price.LessThan(mkt.MinimumPriceIncrement):
			logger.Warn("skipping layer, bid price too low",
				"layer", index+1, "price", price.StringFixed(6))
		case size.LessThan(mkt.MinimumOrderSize):
			logger.Warn("skipping layer, bid size too low",
				"layer", index+1, "size", size.StringFixed(9))
		default:
			for i := 0; i < layer.Bid.Quantity; i++ {
				bids = append(bids, types.CandidateOrder{
					ClientID: next(),
					MarketID: mkt.ID,
					Side:     types.BUY,
					Type:     orderType,
					Price:    price,
					Amount:   size,
				})
			}
		}
	}

	var asks []types.CandidateOrder
	for index, layer := range layers {
		askBase := referencePrice
		if bestBid, ok := book.BestBid(); ok && bestBid.GreaterThan(askBase) {
			askBase = bestBid
		}
		price := oneHundred.Add(layer.Ask.SpreadPercentage).Div(oneHundred).Mul(askBase)
		size := sizePerOrder(layer.Ask, price)

		switch {
		case price.LessThan(mkt.MinimumPriceIncrement):
			logger.Warn("skipping layer, ask price too low",
				"layer", index+1, "price", price.StringFixed(9))
		case size.LessThan(mkt.MinimumOrderSize):
			logger.Warn("skipping layer, ask size too low",
				"layer", index+1, "size", size.StringFixed(9))
		default:
			for i := 0; i < layer.Ask.Quantity; i++ {
				asks = append(asks, types.CandidateOrder{
					ClientID: next(),
					MarketID: mkt.ID,
					Side:     types.SELL,
					Type:     orderType,
					Price:    price,
					Amount:   size,
				})
			}
		}
	}

	return append(bids, asks...)
}

// sizePerOrder splits the layer's dollar liquidity budget across its
// orders at the layer price. Zero quantity yields zero size, which the
// minimum-size gate then rejects.
func sizePerOrder(side types.LayerSide, price decimal.Decimal) decimal.Decimal {
	if side.Quantity <= 0 || price.IsZero() {
		return decimal.Zero
	}
	return side.MaxLiquidityInDollars.Div(price).Div(decimal.NewFromInt(int64(side.Quantity)))
}
