// Package market normalizes raw gateway order books.
//
// The gateway returns both book sides as unordered collections keyed by
// venue-internal level ids. ParseOrderBook projects them onto two sorted
// sequences — bids descending, asks ascending — of {price, amount} decimal
// levels. A Book is a point-in-time snapshot and is never mutated after
// parse; no I/O happens here.
package market

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"kujira-mm/pkg/types"
)

// Book is a normalized order book snapshot.
type Book struct {
	Bids []types.BookLevel // sorted descending by price (best bid first)
	Asks []types.BookLevel // sorted ascending by price (best ask first)
}

// ParseOrderBook normalizes a raw gateway book.
func ParseOrderBook(resp *types.OrderBookResponse) Book {
	book := Book{
		Bids: make([]types.BookLevel, 0, len(resp.Bids)),
		Asks: make([]types.BookLevel, 0, len(resp.Asks)),
	}

	for _, level := range resp.Bids {
		book.Bids = append(book.Bids, types.BookLevel{Price: level.Price, Amount: level.Amount})
	}
	for _, level := range resp.Asks {
		book.Asks = append(book.Asks, types.BookLevel{Price: level.Price, Amount: level.Amount})
	}

	sort.Slice(book.Bids, func(i, j int) bool {
		return book.Bids[i].Price.GreaterThan(book.Bids[j].Price)
	})
	sort.Slice(book.Asks, func(i, j int) bool {
		return book.Asks[i].Price.LessThan(book.Asks[j].Price)
	})

	return book
}

// BestBid returns the highest bid price, or false if the bid side is empty.
func (b Book) BestBid() (decimal.Decimal, bool) {
	if len(b.Bids) == 0 {
		return decimal.Zero, false
	}
	return b.Bids[0].Price, true
}

// BestAsk returns the lowest ask price, or false if the ask side is empty.
func (b Book) BestAsk() (decimal.Decimal, bool) {
	if len(b.Asks) == 0 {
		return decimal.Zero, false
	}
	return b.Asks[0].Price, true
}

// Raw reconstructs a gateway-shaped book from the snapshot. Parsing the
// result yields the same Book again under the {price, amount} projection.
func (b Book) Raw() *types.OrderBookResponse {
	resp := &types.OrderBookResponse{
		Bids: make(map[string]types.BookLevel, len(b.Bids)),
		Asks: make(map[string]types.BookLevel, len(b.Asks)),
	}
	for i, level := range b.Bids {
		resp.Bids["bid-"+strconv.Itoa(i)] = level
	}
	for i, level := range b.Asks {
		resp.Asks["ask-"+strconv.Itoa(i)] = level
	}
	return resp
}
