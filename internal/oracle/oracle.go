// Package oracle provides the read-only price source consulted when marking
// open positions to market. Prices are simulated: the engine treats the
// oracle as an external collaborator and never writes to it.
package oracle

import (
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"
)

// PriceOracle maps instrument tokens to current prices. Ok is false when
// the token is unknown; callers skip PnL recomputation in that case.
type PriceOracle interface {
	Price(token string) (decimal.Decimal, bool)
}

// walkStepBps bounds a single random-walk move to ±25 bps of the current
// price, keeping the simulated feed smooth enough for the dashboard.
const walkStepBps = 25

// MemoryOracle is an in-memory PriceOracle with an optional bounded
// random-walk step driven by a periodic refresh job.
type MemoryOracle struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
	rng    *rand.Rand
}

// NewMemoryOracle creates an oracle seeded with the given prices. The rng
// drives the random walk; pass a seeded source for deterministic tests.
func NewMemoryOracle(seed map[string]decimal.Decimal, rng *rand.Rand) *MemoryOracle {
	prices := make(map[string]decimal.Decimal, len(seed))
	for token, price := range seed {
		prices[token] = price
	}
	return &MemoryOracle{prices: prices, rng: rng}
}

// Price returns the current price for a token.
func (o *MemoryOracle) Price(token string) (decimal.Decimal, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	p, ok := o.prices[token]
	return p, ok
}

// SetPrice sets or overrides a token's price.
func (o *MemoryOracle) SetPrice(token string, price decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[token] = price
}

// Step advances every price by a uniform random move in
// [-walkStepBps, +walkStepBps] basis points.
func (o *MemoryOracle) Step() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.rng == nil {
		return
	}
	scale := decimal.NewFromInt(10000)
	for token, price := range o.prices {
		bps := decimal.NewFromFloat((o.rng.Float64()*2 - 1) * walkStepBps)
		o.prices[token] = price.Add(price.Mul(bps).Div(scale))
	}
}
