// Package gateway implements the typed client for the venue gateway service.
//
// The gateway is a separate process that owns the wallet, signs chain
// transactions, and exposes the Kujira order book over REST:
//   - GetMarket:          POST   /kujira/market           — pair descriptor
//   - GetOrderBook:       POST   /kujira/orderbook        — raw L2 book
//   - GetTicker:          POST   /kujira/ticker           — latest price
//   - GetBalances:        POST   /kujira/balances         — wallet balances
//   - GetOrders:          POST   /kujira/orders/status    — orders by status
//   - PostOrders:         POST   /kujira/orders           — batch placement
//   - DeleteOrders:       DELETE /kujira/orders           — cancel by ids
//   - DeleteAllOrders:    DELETE /kujira/orders/all       — cancel everything
//   - PostMarketWithdraw: POST   /kujira/market/withdraw  — settle market funds
//
// Every request is rate-limited via per-category TokenBuckets and
// automatically retried on 5xx errors. Each call is atomic from the
// caller's view; partial effects are whatever the returned map contains.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"kujira-mm/internal/config"
	"kujira-mm/pkg/types"
)

// Route identifies the chain-side target of a gateway call. Every worker
// carries its own route and passes it on each call.
type Route struct {
	Chain     string `json:"chain"`
	Network   string `json:"network"`
	Connector string `json:"connector"`
}

// Client is the gateway REST API client. It wraps a resty HTTP client with
// rate limiting and retry. Safe for concurrent use by multiple workers.
type Client struct {
	http   *resty.Client
	rl     *RateLimiter
	dryRun bool // when true, mutating methods return fake success without HTTP calls
	logger *slog.Logger
}

// NewClient creates a gateway client with rate limiting and retry.
func NewClient(cfg config.GatewayConfig, dryRun bool, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   httpClient,
		rl:     NewRateLimiter(),
		dryRun: dryRun,
		logger: logger.With("component", "gateway"),
	}
}

type marketRequest struct {
	Route
	Name string `json:"name"`
}

// GetMarket fetches the descriptor for a market by pair name.
func (c *Client) GetMarket(ctx context.Context, route Route, name string) (*types.Market, error) {
	if err := c.rl.Query.Wait(ctx); err != nil {
		return nil, err
	}

	var result types.Market
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(marketRequest{Route: route, Name: name}).
		SetResult(&result).
		Post("/kujira/market")
	if err != nil {
		return nil, fmt.Errorf("get market: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get market: status %d: %s", resp.StatusCode(), resp.String())
	}
	return &result, nil
}

type marketScopedRequest struct {
	Route
	MarketID string `json:"marketId"`
}

// GetOrderBook fetches the raw order book for a market. Levels arrive
// unordered; market.ParseOrderBook normalizes them.
func (c *Client) GetOrderBook(ctx context.Context, route Route, marketID string) (*types.OrderBookResponse, error) {
	if err := c.rl.Query.Wait(ctx); err != nil {
		return nil, err
	}

	var result types.OrderBookResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(marketScopedRequest{Route: route, MarketID: marketID}).
		SetResult(&result).
		Post("/kujira/orderbook")
	if err != nil {
		return nil, fmt.Errorf("get order book: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get order book: status %d: %s", resp.StatusCode(), resp.String())
	}
	return &result, nil
}

// GetTicker fetches the latest traded price for a market.
func (c *Client) GetTicker(ctx context.Context, route Route, marketID string) (*types.Ticker, error) {
	if err := c.rl.Query.Wait(ctx); err != nil {
		return nil, err
	}

	var result types.Ticker
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(marketScopedRequest{Route: route, MarketID: marketID}).
		SetResult(&result).
		Post("/kujira/ticker")
	if err != nil {
		return nil, fmt.Errorf("get ticker: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get ticker: status %d: %s", resp.StatusCode(), resp.String())
	}
	return &result, nil
}

type balancesRequest struct {
	Route
	OwnerAddress string   `json:"ownerAddress"`
	TokenIDs     []string `json:"tokenIds"`
}

// GetBalances fetches the wallet's balances for the given token ids.
func (c *Client) GetBalances(ctx context.Context, route Route, ownerAddress string, tokenIDs []string) (*types.Balances, error) {
	if err := c.rl.Query.Wait(ctx); err != nil {
		return nil, err
	}

	var result types.Balances
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(balancesRequest{Route: route, OwnerAddress: ownerAddress, TokenIDs: tokenIDs}).
		SetResult(&result).
		Post("/kujira/balances")
	if err != nil {
		return nil, fmt.Errorf("get balances: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get balances: status %d: %s", resp.StatusCode(), resp.String())
	}
	return &result, nil
}

type ordersStatusRequest struct {
	Route
	MarketID     string            `json:"marketId"`
	OwnerAddress string            `json:"ownerAddress"`
	Status       types.OrderStatus `json:"status"`
}

// GetOrders fetches the wallet's orders on a market filtered by status,
// keyed by venue order id.
func (c *Client) GetOrders(ctx context.Context, route Route, marketID, ownerAddress string, status types.OrderStatus) (map[string]types.Order, error) {
	if err := c.rl.Query.Wait(ctx); err != nil {
		return nil, err
	}

	var result map[string]types.Order
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(ordersStatusRequest{Route: route, MarketID: marketID, OwnerAddress: ownerAddress, Status: status}).
		SetResult(&result).
		Post("/kujira/orders/status")
	if err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get orders: status %d: %s", resp.StatusCode(), resp.String())
	}
	return result, nil
}

type postOrdersRequest struct {
	Route
	Orders []types.OrderWire `json:"orders"`
}

// PostOrders places a batch of orders. The response maps venue order id to
// the created order, with the submitted clientId echoed back.
func (c *Client) PostOrders(ctx context.Context, route Route, orders []types.OrderWire) (map[string]types.Order, error) {
	if len(orders) == 0 {
		return nil, nil
	}
	if c.dryRun {
		c.logger.Info("DRY-RUN: would post orders", "count", len(orders))
		result := make(map[string]types.Order, len(orders))
		for i, o := range orders {
			id := fmt.Sprintf("dry-run-%d-%d", time.Now().UnixNano(), i)
			result[id] = types.Order{
				ID:           id,
				ClientID:     o.ClientID,
				MarketID:     o.MarketID,
				OwnerAddress: o.OwnerAddress,
				Side:         o.Side,
				Type:         o.Type,
				Status:       types.OrderStatusOpen,
			}
		}
		return result, nil
	}
	if err := c.rl.Order.Wait(ctx); err != nil {
		return nil, err
	}

	var result map[string]types.Order
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(postOrdersRequest{Route: route, Orders: orders}).
		SetResult(&result).
		Post("/kujira/orders")
	if err != nil {
		return nil, fmt.Errorf("post orders: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("post orders: status %d: %s", resp.StatusCode(), resp.String())
	}

	c.logger.Info("orders placed", "count", len(result))
	return result, nil
}

type deleteOrdersRequest struct {
	Route
	IDs          []string `json:"ids"`
	MarketID     string   `json:"marketId"`
	OwnerAddress string   `json:"ownerAddress"`
}

// DeleteOrders cancels specific orders by venue id.
func (c *Client) DeleteOrders(ctx context.Context, route Route, ids []string, marketID, ownerAddress string) (map[string]types.Order, error) {
	if len(ids) == 0 {
		return map[string]types.Order{}, nil
	}
	if c.dryRun {
		c.logger.Info("DRY-RUN: would cancel orders", "count", len(ids))
		result := make(map[string]types.Order, len(ids))
		for _, id := range ids {
			result[id] = types.Order{ID: id, MarketID: marketID, Status: types.OrderStatusCancelled}
		}
		return result, nil
	}
	if err := c.rl.Cancel.Wait(ctx); err != nil {
		return nil, err
	}

	var result map[string]types.Order
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(deleteOrdersRequest{Route: route, IDs: ids, MarketID: marketID, OwnerAddress: ownerAddress}).
		SetResult(&result).
		Delete("/kujira/orders")
	if err != nil {
		return nil, fmt.Errorf("delete orders: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("delete orders: status %d: %s", resp.StatusCode(), resp.String())
	}

	c.logger.Info("orders cancelled", "count", len(result))
	return result, nil
}

type ownerScopedRequest struct {
	Route
	MarketID     string `json:"marketId"`
	OwnerAddress string `json:"ownerAddress"`
}

// DeleteAllOrders cancels every open order the wallet has on a market.
func (c *Client) DeleteAllOrders(ctx context.Context, route Route, marketID, ownerAddress string) (map[string]types.Order, error) {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would cancel all orders", "market", marketID)
		return map[string]types.Order{}, nil
	}
	if err := c.rl.Cancel.Wait(ctx); err != nil {
		return nil, err
	}

	var result map[string]types.Order
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(ownerScopedRequest{Route: route, MarketID: marketID, OwnerAddress: ownerAddress}).
		SetResult(&result).
		Delete("/kujira/orders/all")
	if err != nil {
		return nil, fmt.Errorf("delete all orders: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("delete all orders: status %d: %s", resp.StatusCode(), resp.String())
	}

	c.logger.Warn("all orders cancelled", "market", marketID, "count", len(result))
	return result, nil
}

// PostMarketWithdraw settles and withdraws the wallet's accumulated funds
// on a market.
func (c *Client) PostMarketWithdraw(ctx context.Context, route Route, marketID, ownerAddress string) error {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would withdraw market funds", "market", marketID)
		return nil
	}
	if err := c.rl.Cancel.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(ownerScopedRequest{Route: route, MarketID: marketID, OwnerAddress: ownerAddress}).
		Post("/kujira/market/withdraw")
	if err != nil {
		return fmt.Errorf("market withdraw: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("market withdraw: status %d: %s", resp.StatusCode(), resp.String())
	}

	c.logger.Info("market funds withdrawn", "market", marketID)
	return nil
}
