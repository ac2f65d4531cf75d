// ratelimit.go implements token-bucket rate limiting for the venue gateway.
//
// The gateway fronts an on-chain order book, so every mutating call costs a
// transaction; flooding it degrades everything behind it. Calls are split
// into three categories with independent budgets:
//   - Query:  market/book/ticker/balances/order reads
//   - Order:  order placement
//   - Cancel: order cancellation and market withdraw
package gateway

import (
	"context"
	"sync"
	"time"
)

// TokenBucket implements a token-bucket rate limiter with continuous refill.
// Callers block in Wait() until a token is available or the context is cancelled.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64   // current available tokens (fractional allowed)
	capacity float64   // maximum burst size
	rate     float64   // tokens refilled per second
	lastTime time.Time // last time tokens were calculated
}

// NewTokenBucket creates a rate limiter with the given capacity and refill rate.
func NewTokenBucket(capacity, ratePerSecond float64) *TokenBucket {
	return &TokenBucket{
		tokens:   capacity,
		capacity: capacity,
		rate:     ratePerSecond,
		lastTime: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(tb.lastTime).Seconds()
		tb.tokens += elapsed * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastTime = now

		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}

		// Calculate wait time for next token
		wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
			// retry
		}
	}
}

// RateLimiter groups token buckets by gateway endpoint category. Each call
// waits on the appropriate bucket before issuing the HTTP request.
type RateLimiter struct {
	Query  *TokenBucket // market, book, ticker, balances, order reads
	Order  *TokenBucket // POST /kujira/orders
	Cancel *TokenBucket // DELETE /kujira/orders[, /all], market withdraw
}

// NewRateLimiter creates rate limiters sized for a single-node gateway.
// Reads are cheap; order placement and cancellation each carry a chain
// transaction and get much smaller budgets.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		Query:  NewTokenBucket(100, 20),
		Order:  NewTokenBucket(20, 4),
		Cancel: NewTokenBucket(20, 4),
	}
}
