// Package pricing computes midpoint reference prices from a normalized
// order book.
//
// Three strategies are supported:
//
//	SAP  — simple average of best bid and best ask.
//	WAP  — top-of-book prices weighted by their resting volume.
//	VWAP — cumulative volume-weighted average over the top VWAPThreshold
//	       percent of each side, after quartile-based outlier removal.
//
// The VWAP internals run on float64 (quantiles and cumulative sums via
// gonum); the final value is converted back to decimal. SAP and WAP touch
// only top-of-book values and stay in float64 just long enough to divide.
package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"kujira-mm/internal/market"
	"kujira-mm/pkg/types"
)

// VWAPThreshold is the percentage of each book side (by level count,
// rounded up) that the VWAP midpoint considers.
const VWAPThreshold = 30

// MiddlePrice computes the midpoint of a book under the given strategy.
// An empty or zero-volume book yields zero, not an error; the caller
// decides whether a non-positive price fails its tick.
func MiddlePrice(book market.Book, strategy types.MiddlePriceStrategy) (decimal.Decimal, error) {
	switch strategy {
	case types.MiddlePriceSAP:
		return simpleAveragePrice(book), nil
	case types.MiddlePriceWAP:
		return weightedAveragePrice(book), nil
	case types.MiddlePriceVWAP:
		return volumeWeightedAveragePrice(book), nil
	default:
		return decimal.Zero, fmt.Errorf("unrecognized middle price strategy %q", strategy)
	}
}

// simpleAveragePrice is (bestBid + bestAsk) / 2, with zero standing in for
// a missing side.
func simpleAveragePrice(book market.Book) decimal.Decimal {
	bestBid := decimal.Zero
	bestAsk := decimal.Zero
	if bid, ok := book.BestBid(); ok {
		bestBid = bid
	}
	if ask, ok := book.BestAsk(); ok {
		bestAsk = ask
	}
	return bestBid.Add(bestAsk).Div(decimal.NewFromInt(2))
}

// weightedAveragePrice weights the best bid and ask by their resting
// amounts. Zero total volume yields zero.
func weightedAveragePrice(book market.Book) decimal.Decimal {
	var bidPrice, bidVolume, askPrice, askVolume decimal.Decimal
	if len(book.Bids) > 0 {
		bidPrice = book.Bids[0].Price
		bidVolume = book.Bids[0].Amount
	}
	if len(book.Asks) > 0 {
		askPrice = book.Asks[0].Price
		askVolume = book.Asks[0].Amount
	}

	totalVolume := bidVolume.Add(askVolume)
	if totalVolume.IsZero() {
		return decimal.Zero
	}
	weighted := askPrice.Mul(askVolume).Add(bidPrice.Mul(bidVolume))
	return weighted.Div(totalVolume)
}

// volumeWeightedAveragePrice trims each side to its top VWAPThreshold
// percent of levels, drops outliers (asks at or above 1.5·Q75, bids at or
// below 0.5·Q25 of the side's prices), concatenates bids then asks, and
// returns the final element of cumsum(amount·price)/cumsum(amount).
func volumeWeightedAveragePrice(book market.Book) decimal.Decimal {
	bids := topShare(book.Bids)
	asks := topShare(book.Asks)

	if len(bids) > 0 {
		bids = removeOutliers(bids, types.BUY)
	}
	if len(asks) > 0 {
		asks = removeOutliers(asks, types.SELL)
	}

	levels := make([]types.BookLevel, 0, len(bids)+len(asks))
	levels = append(levels, bids...)
	levels = append(levels, asks...)
	if len(levels) == 0 {
		return decimal.Zero
	}

	weighted := make([]float64, len(levels))
	amounts := make([]float64, len(levels))
	for i, level := range levels {
		price := level.Price.InexactFloat64()
		amount := level.Amount.InexactFloat64()
		weighted[i] = price * amount
		amounts[i] = amount
	}
	floats.CumSum(weighted, weighted)
	floats.CumSum(amounts, amounts)

	last := len(levels) - 1
	if amounts[last] == 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(weighted[last] / amounts[last])
}

// topShare keeps the first ceil(VWAPThreshold% · len) levels of a side.
func topShare(levels []types.BookLevel) []types.BookLevel {
	if len(levels) == 0 {
		return nil
	}
	keep := (len(levels)*VWAPThreshold + 99) / 100
	return levels[:keep]
}

// removeOutliers filters a side by quartiles of its prices: asks survive
// below 1.5·Q75, bids survive above 0.5·Q25.
func removeOutliers(levels []types.BookLevel, side types.OrderSide) []types.BookLevel {
	prices := make([]float64, len(levels))
	for i, level := range levels {
		prices[i] = level.Price.InexactFloat64()
	}
	sort.Float64s(prices)

	kept := make([]types.BookLevel, 0, len(levels))
	switch side {
	case types.SELL:
		maxThreshold := stat.Quantile(0.75, stat.LinInterp, prices, nil) * 1.5
		for _, level := range levels {
			if level.Price.InexactFloat64() < maxThreshold {
				kept = append(kept, level)
			}
		}
	case types.BUY:
		minThreshold := stat.Quantile(0.25, stat.LinInterp, prices, nil) * 0.5
		for _, level := range levels {
			if level.Price.InexactFloat64() > minThreshold {
				kept = append(kept, level)
			}
		}
	}
	return kept
}
