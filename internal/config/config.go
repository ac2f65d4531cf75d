// Package config defines all configuration for the market-making bot.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// overrides via KUJIRA_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"kujira-mm/pkg/types"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun    bool            `mapstructure:"dry_run"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Workers   []WorkerConfig  `mapstructure:"workers"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// GatewayConfig points the bot at the venue gateway service. The gateway
// owns the wallet and signs chain transactions; the bot only routes
// requests to it.
type GatewayConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WorkerConfig describes one market-making worker. Chain, network and
// connector are routed verbatim into every gateway call; Wallet becomes
// the ownerAddress; Market is the pair name resolved at initialization.
type WorkerConfig struct {
	ID        string         `mapstructure:"id"`
	Chain     string         `mapstructure:"chain"`
	Network   string         `mapstructure:"network"`
	Connector string         `mapstructure:"connector"`
	Wallet    string         `mapstructure:"wallet"`
	Market    string         `mapstructure:"market"`
	Strategy  StrategyConfig `mapstructure:"strategy"`
}

// StrategyConfig tunes the layered quoting strategy of a single worker.
//
//   - TickIntervalMs: grid-aligned delay between ticks, in milliseconds.
//   - RunOnlyOnce: exit after the first completed tick.
//   - CancelAllOrdersOnStart/Stop, WithdrawMarketOn*: lifecycle hooks.
//   - PriceStrategy: TICKER, MIDDLE or LAST_FILL.
//   - MiddlePriceStrategy: SAP, WAP or VWAP; empty selects the
//     VWAP → WAP → SAP → ticker fallback chain.
//   - OrderType: wire order type, default LIMIT.
//   - CancelDuplicateOrders: run the duplicate scan each tick and cancel
//     all but the newest order per client id.
//   - Layers: the ladder, outermost declared last.
type StrategyConfig struct {
	TickIntervalMs          int64         `mapstructure:"tick_interval"`
	RunOnlyOnce             bool          `mapstructure:"run_only_once"`
	CancelAllOrdersOnStart  bool          `mapstructure:"cancel_all_orders_on_start"`
	CancelAllOrdersOnStop   bool          `mapstructure:"cancel_all_orders_on_stop"`
	WithdrawMarketOnStart   bool          `mapstructure:"withdraw_market_on_start"`
	WithdrawMarketOnStop    bool          `mapstructure:"withdraw_market_on_stop"`
	WithdrawMarketOnTick    bool          `mapstructure:"withdraw_market_on_tick"`
	PriceStrategy           string        `mapstructure:"price_strategy"`
	MiddlePriceStrategy     string        `mapstructure:"middle_price_strategy"`
	OrderType               string        `mapstructure:"kujira_order_type"`
	CancelDuplicateOrders   bool          `mapstructure:"cancel_duplicate_orders"`
	Layers                  []LayerConfig `mapstructure:"layers"`
}

// LayerConfig is one ladder entry as written in YAML.
type LayerConfig struct {
	Bid LayerSideConfig `mapstructure:"bid"`
	Ask LayerSideConfig `mapstructure:"ask"`
}

// LayerSideConfig configures one side of a layer.
type LayerSideConfig struct {
	Quantity              int     `mapstructure:"quantity"`
	SpreadPercentage      float64 `mapstructure:"spread_percentage"`
	MaxLiquidityInDollars float64 `mapstructure:"max_liquidity_in_dollars"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the HTTP dashboard / metrics server.
type DashboardConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// TickInterval returns the tick interval as a duration.
func (s StrategyConfig) TickInterval() time.Duration {
	return time.Duration(s.TickIntervalMs) * time.Millisecond
}

// ParsedLayers converts the YAML layer values into decimal form for the
// proposal builder. NewFromFloat keeps the shortest exact representation,
// so YAML literals like 0.1 survive the round trip intact.
func (s StrategyConfig) ParsedLayers() []types.Layer {
	layers := make([]types.Layer, len(s.Layers))
	for i, l := range s.Layers {
		layers[i] = types.Layer{
			Bid: types.LayerSide{
				Quantity:              l.Bid.Quantity,
				SpreadPercentage:      decimal.NewFromFloat(l.Bid.SpreadPercentage),
				MaxLiquidityInDollars: decimal.NewFromFloat(l.Bid.MaxLiquidityInDollars),
			},
			Ask: types.LayerSide{
				Quantity:              l.Ask.Quantity,
				SpreadPercentage:      decimal.NewFromFloat(l.Ask.SpreadPercentage),
				MaxLiquidityInDollars: decimal.NewFromFloat(l.Ask.MaxLiquidityInDollars),
			},
		}
	}
	return layers
}

// Load reads config from a YAML file with env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("KUJIRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if url := os.Getenv("KUJIRA_GATEWAY_URL"); url != "" {
		cfg.Gateway.BaseURL = url
	}
	if os.Getenv("KUJIRA_DRY_RUN") == "true" || os.Getenv("KUJIRA_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges. Strategy dispatch
// is total: any enum value outside the defined set fails here, before a
// worker ever starts.
func (c *Config) Validate() error {
	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway.base_url is required (set KUJIRA_GATEWAY_URL)")
	}
	if len(c.Workers) == 0 {
		return fmt.Errorf("at least one worker must be configured")
	}
	seen := make(map[string]bool, len(c.Workers))
	for i := range c.Workers {
		w := &c.Workers[i]
		if w.ID == "" {
			return fmt.Errorf("workers[%d].id is required", i)
		}
		if seen[w.ID] {
			return fmt.Errorf("workers[%d].id %q is duplicated", i, w.ID)
		}
		seen[w.ID] = true
		if err := w.validate(); err != nil {
			return fmt.Errorf("worker %q: %w", w.ID, err)
		}
	}
	return nil
}

func (w *WorkerConfig) validate() error {
	if w.Chain == "" || w.Network == "" || w.Connector == "" {
		return fmt.Errorf("chain, network and connector are required")
	}
	if w.Wallet == "" {
		return fmt.Errorf("wallet is required")
	}
	if w.Market == "" {
		return fmt.Errorf("market is required")
	}
	s := &w.Strategy
	if s.TickIntervalMs <= 0 {
		return fmt.Errorf("strategy.tick_interval must be > 0 milliseconds")
	}
	if _, err := types.ParsePriceStrategy(s.PriceStrategy); err != nil {
		return fmt.Errorf("strategy.price_strategy: %w", err)
	}
	if _, err := types.ParseMiddlePriceStrategy(s.MiddlePriceStrategy); err != nil {
		return fmt.Errorf("strategy.middle_price_strategy: %w", err)
	}
	if _, err := types.ParseOrderType(s.OrderType); err != nil {
		return fmt.Errorf("strategy.kujira_order_type: %w", err)
	}
	if len(s.Layers) == 0 {
		return fmt.Errorf("strategy.layers must not be empty")
	}
	for j, l := range s.Layers {
		for side, ls := range map[string]LayerSideConfig{"bid": l.Bid, "ask": l.Ask} {
			if ls.Quantity < 0 {
				return fmt.Errorf("strategy.layers[%d].%s.quantity must be >= 0", j, side)
			}
			if ls.SpreadPercentage < 0 {
				return fmt.Errorf("strategy.layers[%d].%s.spread_percentage must be >= 0", j, side)
			}
			if ls.MaxLiquidityInDollars < 0 {
				return fmt.Errorf("strategy.layers[%d].%s.max_liquidity_in_dollars must be >= 0", j, side)
			}
		}
		// A bid spread of 100% or more would push the bid price to or below zero.
		if l.Bid.SpreadPercentage >= 100 {
			return fmt.Errorf("strategy.layers[%d].bid.spread_percentage must be < 100", j)
		}
	}
	return nil
}
