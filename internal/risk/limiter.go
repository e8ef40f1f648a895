// Package risk enforces notional exposure limits on simulated order flow,
// per exchange and in aggregate. Limits exist to keep synthetic portfolios
// inside dashboard-friendly bounds; a zero limit disables the check.
package risk

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrPerExchangeLimitExceeded is returned when an order would push one
	// exchange's open notional beyond the per-exchange maximum.
	ErrPerExchangeLimitExceeded = errors.New("risk: per-exchange exposure limit exceeded")

	// ErrTotalLimitExceeded is returned when an order would push aggregate
	// open notional across all exchanges beyond the total maximum.
	ErrTotalLimitExceeded = errors.New("risk: total exposure limit exceeded")
)

// ExposureLimiter bounds open notional exposure. Both limits are optional:
// a non-positive value means unlimited.
type ExposureLimiter struct {
	// MaxPerExchange is the maximum open notional on any single exchange.
	MaxPerExchange decimal.Decimal

	// MaxTotal is the maximum open notional summed across all exchanges.
	MaxTotal decimal.Decimal
}

// NewExposureLimiter creates a limiter with the given caps.
func NewExposureLimiter(maxPerExchange, maxTotal decimal.Decimal) *ExposureLimiter {
	return &ExposureLimiter{
		MaxPerExchange: maxPerExchange,
		MaxTotal:       maxTotal,
	}
}

// CheckLimit validates that adding notionalDelta on the given exchange keeps
// exposure within bounds. exposures holds current open notional per exchange.
func (l *ExposureLimiter) CheckLimit(exchange string, notionalDelta decimal.Decimal, exposures map[string]decimal.Decimal) error {
	if l.MaxPerExchange.IsPositive() {
		if exposures[exchange].Add(notionalDelta).GreaterThan(l.MaxPerExchange) {
			return ErrPerExchangeLimitExceeded
		}
	}

	if l.MaxTotal.IsPositive() {
		total := notionalDelta
		for _, e := range exposures {
			total = total.Add(e)
		}
		if total.GreaterThan(l.MaxTotal) {
			return ErrTotalLimitExceeded
		}
	}

	return nil
}
