// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the bot — order enums, market
// metadata, balances, order book shapes, and the gateway wire formats. It has
// no dependencies on internal packages, so it can be imported by any layer.
//
// All prices and amounts are shopspring decimals from parse time onward; the
// gateway serializes them as strings and decimal.Decimal unmarshals either
// form without losing precision.
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// OrderSide represents the direction of an order: BUY or SELL.
type OrderSide string

const (
	BUY  OrderSide = "BUY"
	SELL OrderSide = "SELL"
)

// OrderType enumerates the wire order types the gateway accepts.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

// ParseOrderType maps a configuration value to an OrderType.
// An empty value defaults to LIMIT.
func ParseOrderType(s string) (OrderType, error) {
	switch s {
	case "", "LIMIT":
		return OrderTypeLimit, nil
	case "MARKET":
		return OrderTypeMarket, nil
	default:
		return "", fmt.Errorf("unknown order type %q", s)
	}
}

// OrderStatus is the venue-side lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "OPEN"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// PriceStrategy selects how the worker derives its reference price.
type PriceStrategy string

const (
	PriceStrategyTicker   PriceStrategy = "TICKER"
	PriceStrategyMiddle   PriceStrategy = "MIDDLE"
	PriceStrategyLastFill PriceStrategy = "LAST_FILL"
)

// ParsePriceStrategy maps a configuration value to a PriceStrategy.
// An empty value defaults to TICKER.
func ParsePriceStrategy(s string) (PriceStrategy, error) {
	switch s {
	case "", "TICKER":
		return PriceStrategyTicker, nil
	case "MIDDLE":
		return PriceStrategyMiddle, nil
	case "LAST_FILL":
		return PriceStrategyLastFill, nil
	default:
		return "", fmt.Errorf("unknown price strategy %q", s)
	}
}

// MiddlePriceStrategy selects the midpoint computation used when the
// price strategy is MIDDLE.
type MiddlePriceStrategy string

const (
	MiddlePriceSAP  MiddlePriceStrategy = "SAP"  // simple average of best bid/ask
	MiddlePriceWAP  MiddlePriceStrategy = "WAP"  // volume-weighted top of book
	MiddlePriceVWAP MiddlePriceStrategy = "VWAP" // cumulative VWAP over trimmed book
)

// ParseMiddlePriceStrategy maps a configuration value to a
// MiddlePriceStrategy. An empty value means "unset" (the worker then runs
// the VWAP → WAP → SAP → ticker fallback chain).
func ParseMiddlePriceStrategy(s string) (MiddlePriceStrategy, error) {
	switch s {
	case "":
		return "", nil
	case "SAP":
		return MiddlePriceSAP, nil
	case "WAP":
		return MiddlePriceWAP, nil
	case "VWAP":
		return MiddlePriceVWAP, nil
	default:
		return "", fmt.Errorf("unknown middle price strategy %q", s)
	}
}

// ManualClientID marks orders created outside the bot. The duplicate
// scanner and the reconciler never touch orders carrying it.
const ManualClientID = "0"

// ————————————————————————————————————————————————————————————————————————
// Market metadata
// ————————————————————————————————————————————————————————————————————————

// Token describes one side of a trading pair.
type Token struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
}

// KujiraNativeToken is the chain's fee token; its balance is fetched on
// every balances call alongside the market's base and quote tokens.
var KujiraNativeToken = Token{ID: "ukuji", Name: "KUJI", Decimals: 6}

// Market is the venue's descriptor for one trading pair. Fetched once at
// worker initialization and immutable afterwards.
type Market struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	BaseToken  Token  `json:"baseToken"`
	QuoteToken Token  `json:"quoteToken"`

	MinimumPriceIncrement decimal.Decimal `json:"minimumPriceIncrement"`
	MinimumOrderSize      decimal.Decimal `json:"minimumOrderSize"`
}

// ————————————————————————————————————————————————————————————————————————
// Balances and ticker
// ————————————————————————————————————————————————————————————————————————

// TokenBalance is the wallet's holdings of a single token.
type TokenBalance struct {
	Free           decimal.Decimal `json:"free"`
	LockedInOrders decimal.Decimal `json:"lockedInOrders"`
	Unsettled      decimal.Decimal `json:"unsettled"`
}

// Balances is the wallet snapshot returned by the gateway: an aggregate
// total plus per-token breakdown keyed by token id.
type Balances struct {
	Total  TokenBalance            `json:"total"`
	Tokens map[string]TokenBalance `json:"tokens"`
}

// Ticker is the venue's latest price for a market.
type Ticker struct {
	Price decimal.Decimal `json:"price"`
}

// ————————————————————————————————————————————————————————————————————————
// Order book
// ————————————————————————————————————————————————————————————————————————

// BookLevel is a single order book level.
type BookLevel struct {
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
}

// OrderBookResponse is the raw book from the gateway. Both sides arrive as
// unordered collections keyed by venue-internal level ids; the market
// package normalizes them into sorted sequences.
type OrderBookResponse struct {
	MarketID string               `json:"marketId"`
	Bids     map[string]BookLevel `json:"bids"`
	Asks     map[string]BookLevel `json:"asks"`
}

// ————————————————————————————————————————————————————————————————————————
// Orders
// ————————————————————————————————————————————————————————————————————————

// Order is a venue-side order as returned by the gateway. ClientID echoes
// the id the bot assigned at placement; ManualClientID ("0") denotes an
// order created outside the bot.
type Order struct {
	ID           string          `json:"id"`
	ClientID     string          `json:"clientId"`
	MarketID     string          `json:"marketId"`
	OwnerAddress string          `json:"ownerAddress"`
	Side         OrderSide       `json:"side"`
	Price        decimal.Decimal `json:"price"`
	Amount       decimal.Decimal `json:"amount"`
	Type         OrderType       `json:"type"`
	Status       OrderStatus     `json:"status"`
}

// CandidateOrder is one order of a proposal batch, produced by the
// proposal builder and consumed by the budget adjuster and the reconciler.
// ClientID is a small monotonically increasing integer rendered as a
// string, unique within a single batch only.
type CandidateOrder struct {
	ClientID string
	MarketID string
	Side     OrderSide
	Type     OrderType
	Price    decimal.Decimal
	Amount   decimal.Decimal
}

// OrderWire is the placement shape expected by POST /kujira/orders.
// Price and amount travel as strings.
type OrderWire struct {
	ClientID     string    `json:"clientId"`
	MarketID     string    `json:"marketId"`
	OwnerAddress string    `json:"ownerAddress"`
	Side         OrderSide `json:"side"`
	Price        string    `json:"price"`
	Amount       string    `json:"amount"`
	Type         OrderType `json:"type"`
}

// Wire converts a candidate into its placement shape.
func (c CandidateOrder) Wire(ownerAddress string) OrderWire {
	return OrderWire{
		ClientID:     c.ClientID,
		MarketID:     c.MarketID,
		OwnerAddress: ownerAddress,
		Side:         c.Side,
		Price:        c.Price.String(),
		Amount:       c.Amount.String(),
		Type:         c.Type,
	}
}

// ————————————————————————————————————————————————————————————————————————
// Strategy layers
// ————————————————————————————————————————————————————————————————————————

// LayerSide configures one side of a ladder layer: how many identical
// orders to emit, how far from the reference price, and how much quote
// liquidity the whole side of the layer may consume.
type LayerSide struct {
	Quantity              int
	SpreadPercentage      decimal.Decimal
	MaxLiquidityInDollars decimal.Decimal
}

// Layer is one entry of the ladder.
type Layer struct {
	Bid LayerSide
	Ask LayerSide
}
