package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"kujira-mm/internal/api"
	"kujira-mm/internal/config"
	"kujira-mm/internal/gateway"
	"kujira-mm/internal/market"
	"kujira-mm/internal/metrics"
	"kujira-mm/internal/pricing"
	"kujira-mm/pkg/types"
)

// tickPollInterval is how often the run loop re-checks the busy flag and
// the refresh timestamp while waiting for the next tick boundary.
const tickPollInterval = 100 * time.Millisecond

// Worker quotes a two-sided ladder on a single market. One goroutine owns
// the whole lifecycle: Run → initialize → tick loop → stop hooks. Ticks
// are never re-entered; the busy flag guards the loop and feeds the
// status snapshot.
type Worker struct {
	cfg    config.WorkerConfig
	client *gateway.Client
	route  gateway.Route

	priceStrategy  types.PriceStrategy
	middleStrategy types.MiddlePriceStrategy
	orderType      types.OrderType
	layers         []types.Layer

	// Immutable after a successful initialize.
	mkt        types.Market
	baseToken  types.Token
	quoteToken types.Token

	tracker *Tracker

	canRun    atomic.Bool
	isBusy    atomic.Bool
	refreshAt atomic.Int64 // next tick boundary, unix milliseconds

	// Per-tick caches. Owned by the run goroutine; a getter returns the
	// cached value iff useCache is set and the cache holds one, otherwise
	// it queries the gateway and refreshes the cache.
	balances     *types.Balances
	ticker       *types.Ticker
	openOrders   map[string]types.Order
	hasOpen      bool
	filledOrders map[string]types.Order
	hasFilled    bool

	// Summary fields read by Status() from other goroutines.
	mu             sync.Mutex
	referencePrice decimal.Decimal
	lastTickAt     time.Time
	lastError      string

	events chan<- api.WorkerEvent
	logger *slog.Logger
}

// NewWorker creates a worker from its validated configuration. Unknown
// strategy values still fail here, so dispatch stays total even for
// configs that skipped Validate.
func NewWorker(cfg config.WorkerConfig, client *gateway.Client, events chan<- api.WorkerEvent, logger *slog.Logger) (*Worker, error) {
	priceStrategy, err := types.ParsePriceStrategy(cfg.Strategy.PriceStrategy)
	if err != nil {
		return nil, fmt.Errorf("worker %s: %w", cfg.ID, err)
	}
	middleStrategy, err := types.ParseMiddlePriceStrategy(cfg.Strategy.MiddlePriceStrategy)
	if err != nil {
		return nil, fmt.Errorf("worker %s: %w", cfg.ID, err)
	}
	orderType, err := types.ParseOrderType(cfg.Strategy.OrderType)
	if err != nil {
		return nil, fmt.Errorf("worker %s: %w", cfg.ID, err)
	}

	return &Worker{
		cfg:            cfg,
		client:         client,
		route:          gateway.Route{Chain: cfg.Chain, Network: cfg.Network, Connector: cfg.Connector},
		priceStrategy:  priceStrategy,
		middleStrategy: middleStrategy,
		orderType:      orderType,
		layers:         cfg.Strategy.ParsedLayers(),
		tracker:        NewTracker(),
		events:         events,
		logger:         logger.With("component", "worker", "worker", cfg.ID, "market", cfg.Market),
	}, nil
}

// Run drives the worker until ctx is cancelled or a one-shot run
// completes. Initialization failures are fatal and returned; everything
// after that is logged and retried on the next tick.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.initialize(ctx); err != nil {
		return fmt.Errorf("worker %s: initialize: %w", w.cfg.ID, err)
	}

	w.logger.Info("worker started",
		"price_strategy", w.priceStrategy,
		"layers", len(w.layers),
		"tick_interval", w.cfg.Strategy.TickInterval(),
	)

	for w.canRun.Load() && ctx.Err() == nil {
		if !w.isBusy.Load() && nowMillis() >= w.refreshAt.Load() {
			w.onTick(ctx)
			continue
		}
		select {
		case <-ctx.Done():
		case <-time.After(tickPollInterval):
		}
	}

	w.shutdown()
	return nil
}

// initialize fetches the market descriptor, runs the start hooks, and
// arms the first tick boundary.
func (w *Worker) initialize(ctx context.Context) error {
	mkt, err := w.client.GetMarket(ctx, w.route, w.cfg.Market)
	if err != nil {
		return err
	}
	w.mkt = *mkt
	w.baseToken = mkt.BaseToken
	w.quoteToken = mkt.QuoteToken

	if w.cfg.Strategy.CancelAllOrdersOnStart {
		if _, err := w.client.DeleteAllOrders(ctx, w.route, w.mkt.ID, w.cfg.Wallet); err != nil {
			w.logger.Error("cancel all orders on start failed", "error", err)
		}
	}
	if w.cfg.Strategy.WithdrawMarketOnStart {
		if err := w.client.PostMarketWithdraw(ctx, w.route, w.mkt.ID, w.cfg.Wallet); err != nil {
			w.logger.Error("market withdraw on start failed", "error", err)
		}
	}

	waiting := WaitingTime(w.cfg.Strategy.TickInterval())
	w.refreshAt.Store(nowMillis() + waiting.Milliseconds())
	w.canRun.Store(true)

	w.logger.Debug("initialized", "market_id", w.mkt.ID, "first_tick_in", waiting)
	return nil
}

// onTick runs one guarded tick. Whatever happens inside, the finalizer
// re-arms the refresh timestamp and clears the busy flag; errors are
// logged and swallowed so the next tick can retry.
func (w *Worker) onTick(ctx context.Context) {
	w.isBusy.Store(true)
	start := time.Now()

	err := w.tick(ctx)

	waiting := WaitingTime(w.cfg.Strategy.TickInterval())
	w.refreshAt.Store(nowMillis() + waiting.Milliseconds())
	w.isBusy.Store(false)

	elapsed := time.Since(start)
	metrics.TickDuration.WithLabelValues(w.cfg.ID).Observe(elapsed.Seconds())

	w.mu.Lock()
	w.lastTickAt = start
	if err != nil {
		w.lastError = err.Error()
	} else {
		w.lastError = ""
	}
	w.mu.Unlock()

	if err != nil {
		metrics.TicksTotal.WithLabelValues(w.cfg.ID, "error").Inc()
		if ctx.Err() != nil {
			w.logger.Info("tick cancelled", "error", err)
		} else {
			w.logger.Error("tick failed", "error", err)
		}
		w.emit("tick_error", map[string]string{"error": err.Error()})
	} else {
		metrics.TicksTotal.WithLabelValues(w.cfg.ID, "ok").Inc()
		w.logger.Debug("tick complete", "duration", elapsed, "next_tick_in", waiting)

		if w.cfg.Strategy.RunOnlyOnce {
			w.logger.Info("run_only_once set, exiting after tick")
			w.canRun.Store(false)
		}
	}
}

// tick is one full pass: withdraw hook, cache refresh, stale-order
// cancellation, optional duplicate cleanup, proposal build/adjust/place.
func (w *Worker) tick(ctx context.Context) error {
	if w.cfg.Strategy.WithdrawMarketOnTick {
		if err := w.client.PostMarketWithdraw(ctx, w.route, w.mkt.ID, w.cfg.Wallet); err != nil {
			w.logger.Error("market withdraw on tick failed", "error", err)
		}
	}

	// Mandatory refreshes: bypass the caches at the top of every tick.
	openOrders, err := w.getOpenOrders(ctx, false)
	if err != nil {
		return err
	}
	if _, err := w.getFilledOrders(ctx, false); err != nil {
		return err
	}
	if _, err := w.getBalances(ctx, false); err != nil {
		return err
	}

	openIDs := make([]string, 0, len(openOrders))
	for id := range openOrders {
		openIDs = append(openIDs, id)
	}

	if err := w.cancelCurrentlyUntrackedOrders(ctx, openIDs); err != nil {
		return err
	}

	if w.cfg.Strategy.CancelDuplicateOrders {
		if duplicates := DuplicateOrderIDs(openOrders); len(duplicates) > 0 {
			w.logger.Warn("cancelling duplicated orders", "count", len(duplicates))
			if _, err := w.client.DeleteOrders(ctx, w.route, duplicates, w.mkt.ID, w.cfg.Wallet); err != nil {
				return fmt.Errorf("cancel duplicated orders: %w", err)
			}
			metrics.OrdersCancelled.WithLabelValues(w.cfg.ID).Add(float64(len(duplicates)))
		}
	}

	proposal, err := w.createProposal(ctx)
	if err != nil {
		return err
	}

	balances, err := w.getBalances(ctx, true)
	if err != nil {
		return err
	}
	freeBase := balances.Tokens[w.baseToken.ID].Free
	freeQuote := balances.Tokens[w.quoteToken.ID].Free
	candidates := AdjustToBudget(proposal, freeBase, freeQuote)

	metrics.ProposalOrders.WithLabelValues(w.cfg.ID).Set(float64(len(candidates)))

	return w.replaceOrders(ctx, candidates)
}

// createProposal derives the reference price and builds the ladder.
func (w *Worker) createProposal(ctx context.Context) ([]types.CandidateOrder, error) {
	bookResp, err := w.client.GetOrderBook(ctx, w.route, w.mkt.ID)
	if err != nil {
		return nil, err
	}
	book := market.ParseOrderBook(bookResp)

	tickerPrice, err := w.getTickerPrice(ctx)
	if err != nil {
		return nil, err
	}

	lastFillPrice := decimal.Zero
	if price, err := w.getLastFilledOrderPrice(ctx); err != nil {
		w.logger.Debug("no last fill price available", "error", err)
	} else {
		lastFillPrice = price
	}

	var usedPrice decimal.Decimal
	switch w.priceStrategy {
	case types.PriceStrategyTicker:
		usedPrice = tickerPrice
	case types.PriceStrategyMiddle:
		usedPrice, err = w.middlePrice(book, tickerPrice)
		if err != nil {
			return nil, err
		}
	case types.PriceStrategyLastFill:
		usedPrice = lastFillPrice
	}

	if !usedPrice.IsPositive() {
		return nil, fmt.Errorf("invalid price: %s", usedPrice)
	}

	w.mu.Lock()
	w.referencePrice = usedPrice
	w.mu.Unlock()
	metrics.ReferencePrice.WithLabelValues(w.cfg.ID).Set(usedPrice.InexactFloat64())

	proposal := BuildProposal(book, usedPrice, w.mkt, w.orderType, w.layers, w.logger)
	w.emit("tick", api.TickEventData{
		ReferencePrice: usedPrice.String(),
		ProposalOrders: len(proposal),
	})
	return proposal, nil
}

// middlePrice computes the book midpoint. With an explicit sub-strategy
// its result is returned as-is; without one the fallback chain
// VWAP → WAP → SAP → ticker runs, each stage's failure (or empty-book
// zero) swallowed in favor of the next.
func (w *Worker) middlePrice(book market.Book, tickerPrice decimal.Decimal) (decimal.Decimal, error) {
	if w.middleStrategy != "" {
		return pricing.MiddlePrice(book, w.middleStrategy)
	}

	for _, candidate := range []types.MiddlePriceStrategy{
		types.MiddlePriceVWAP,
		types.MiddlePriceWAP,
		types.MiddlePriceSAP,
	} {
		price, err := pricing.MiddlePrice(book, candidate)
		if err == nil && price.IsPositive() {
			return price, nil
		}
	}
	return tickerPrice, nil
}

// cancelCurrentlyUntrackedOrders cancels every order this worker placed
// on an earlier tick that is still open but was not part of the latest
// placement. Orders the worker never tracked are left alone.
func (w *Worker) cancelCurrentlyUntrackedOrders(ctx context.Context, openIDs []string) error {
	stale := w.tracker.UntrackedOpen(openIDs)
	if len(stale) == 0 {
		w.logger.Debug("no order needed to be cancelled")
		return nil
	}

	if _, err := w.client.DeleteOrders(ctx, w.route, stale, w.mkt.ID, w.cfg.Wallet); err != nil {
		return fmt.Errorf("cancel untracked orders: %w", err)
	}

	metrics.OrdersCancelled.WithLabelValues(w.cfg.ID).Add(float64(len(stale)))
	w.emit("orders_cancelled", api.OrdersEventData{Count: len(stale), OrderIDs: stale})
	return nil
}

// replaceOrders places the adjusted proposal and re-seeds the tracking
// sets from the response. An empty proposal issues no call and leaves the
// currently-tracked set untouched, so stale orders still fall out of the
// book on the next tick's cancellation pass.
func (w *Worker) replaceOrders(ctx context.Context, candidates []types.CandidateOrder) error {
	if len(candidates) == 0 {
		w.logger.Warn("no order was defined for placement, skipping")
		return nil
	}

	wires := make([]types.OrderWire, len(candidates))
	for i, candidate := range candidates {
		wires[i] = candidate.Wire(w.cfg.Wallet)
	}

	response, err := w.client.PostOrders(ctx, w.route, wires)
	if err != nil {
		return fmt.Errorf("replace orders: %w", err)
	}

	ids := make([]string, 0, len(response))
	for id := range response {
		ids = append(ids, id)
	}
	w.tracker.Record(ids)

	for _, candidate := range candidates {
		metrics.OrdersPlaced.WithLabelValues(w.cfg.ID, string(candidate.Side)).Inc()
	}
	w.emit("orders_placed", api.OrdersEventData{Count: len(ids), OrderIDs: ids})
	return nil
}

// shutdown runs the stop hooks with a fresh context, since the run
// context is usually already cancelled by the time the loop exits.
func (w *Worker) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if w.cfg.Strategy.CancelAllOrdersOnStop {
		if _, err := w.client.DeleteAllOrders(ctx, w.route, w.mkt.ID, w.cfg.Wallet); err != nil {
			w.logger.Error("cancel all orders on stop failed", "error", err)
		}
	}
	if w.cfg.Strategy.WithdrawMarketOnStop {
		if err := w.client.PostMarketWithdraw(ctx, w.route, w.mkt.ID, w.cfg.Wallet); err != nil {
			w.logger.Error("market withdraw on stop failed", "error", err)
		}
	}

	w.logger.Info("worker stopped")
}

// Status reports the worker's current state for the dashboard.
func (w *Worker) Status() api.WorkerStatus {
	currently, tracked := w.tracker.Counts()

	w.mu.Lock()
	defer w.mu.Unlock()

	status := api.WorkerStatus{
		ID:               w.cfg.ID,
		Market:           w.cfg.Market,
		Busy:             w.isBusy.Load(),
		NextRefresh:      time.UnixMilli(w.refreshAt.Load()),
		CurrentlyTracked: currently,
		Tracked:          tracked,
		LastTickAt:       w.lastTickAt,
		LastError:        w.lastError,
	}
	if w.referencePrice.IsPositive() {
		status.ReferencePrice = w.referencePrice.String()
	}
	return status
}

// emit publishes a dashboard event without blocking; events are dropped
// when the dashboard is disabled or cannot keep up.
func (w *Worker) emit(eventType string, data any) {
	if w.events == nil {
		return
	}
	select {
	case w.events <- api.WorkerEvent{
		Type:      eventType,
		Worker:    w.cfg.ID,
		Market:    w.cfg.Market,
		Timestamp: time.Now(),
		Data:      data,
	}:
	default:
	}
}

// ————————————————————————————————————————————————————————————————————————
// Cached gateway getters
// ————————————————————————————————————————————————————————————————————————

// getBalances returns the wallet balances for the native, base, and quote
// tokens, honoring the per-tick cache.
func (w *Worker) getBalances(ctx context.Context, useCache bool) (*types.Balances, error) {
	if useCache && w.balances != nil {
		return w.balances, nil
	}

	tokenIDs := []string{types.KujiraNativeToken.ID, w.baseToken.ID, w.quoteToken.ID}
	balances, err := w.client.GetBalances(ctx, w.route, w.cfg.Wallet, tokenIDs)
	if err != nil {
		return nil, fmt.Errorf("get balances: %w", err)
	}
	w.balances = balances
	return balances, nil
}

// getTickerPrice always bypasses the ticker cache: the reference price
// must reflect the venue at tick time.
func (w *Worker) getTickerPrice(ctx context.Context) (decimal.Decimal, error) {
	ticker, err := w.getTicker(ctx, false)
	if err != nil {
		return decimal.Zero, err
	}
	return ticker.Price, nil
}

func (w *Worker) getTicker(ctx context.Context, useCache bool) (*types.Ticker, error) {
	if useCache && w.ticker != nil {
		return w.ticker, nil
	}

	ticker, err := w.client.GetTicker(ctx, w.route, w.mkt.ID)
	if err != nil {
		return nil, fmt.Errorf("get ticker: %w", err)
	}
	w.ticker = ticker
	return ticker, nil
}

func (w *Worker) getOpenOrders(ctx context.Context, useCache bool) (map[string]types.Order, error) {
	if useCache && w.hasOpen {
		return w.openOrders, nil
	}

	orders, err := w.client.GetOrders(ctx, w.route, w.mkt.ID, w.cfg.Wallet, types.OrderStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("get open orders: %w", err)
	}
	w.openOrders = orders
	w.hasOpen = true
	return orders, nil
}

func (w *Worker) getFilledOrders(ctx context.Context, useCache bool) (map[string]types.Order, error) {
	if useCache && w.hasFilled {
		return w.filledOrders, nil
	}

	orders, err := w.client.GetOrders(ctx, w.route, w.mkt.ID, w.cfg.Wallet, types.OrderStatusFilled)
	if err != nil {
		return nil, fmt.Errorf("get filled orders: %w", err)
	}
	w.filledOrders = orders
	w.hasFilled = true
	return orders, nil
}

// getLastFilledOrderPrice returns the price of the wallet's most recent
// fill on this market. Venue ids are monotonic, so the newest fill is the
// one with the highest id — the same ordering the duplicate scanner
// relies on.
func (w *Worker) getLastFilledOrderPrice(ctx context.Context) (decimal.Decimal, error) {
	filled, err := w.getFilledOrders(ctx, true)
	if err != nil {
		return decimal.Zero, err
	}
	if len(filled) == 0 {
		return decimal.Zero, fmt.Errorf("no filled orders on market %s", w.mkt.ID)
	}

	var newest string
	for id := range filled {
		if id > newest {
			newest = id
		}
	}
	return filled[newest].Price, nil
}

// ————————————————————————————————————————————————————————————————————————
// Tick scheduling
// ————————————————————————————————————————————————————————————————————————

// WaitingTime returns the delay until the next boundary of the global
// tick grid: interval − (now mod interval). The result is always in
// (0, interval], so consecutive ticks land on multiples of the interval.
func WaitingTime(interval time.Duration) time.Duration {
	return time.Duration(waitingMillis(nowMillis(), interval.Milliseconds())) * time.Millisecond
}

func waitingMillis(nowMs, intervalMs int64) int64 {
	return intervalMs - nowMs%intervalMs
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
