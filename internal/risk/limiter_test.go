package risk

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestCheckLimit_PerExchange(t *testing.T) {
	l := NewExposureLimiter(d(1000), d(0))
	exposures := map[string]decimal.Decimal{"binance": d(900)}

	if err := l.CheckLimit("binance", d(100), exposures); err != nil {
		t.Errorf("exactly at the cap should pass, got %v", err)
	}
	if err := l.CheckLimit("binance", d(101), exposures); !errors.Is(err, ErrPerExchangeLimitExceeded) {
		t.Errorf("expected ErrPerExchangeLimitExceeded, got %v", err)
	}
	// Other exchanges have their own budget.
	if err := l.CheckLimit("bybit", d(1000), exposures); err != nil {
		t.Errorf("fresh exchange should pass, got %v", err)
	}
}

func TestCheckLimit_Total(t *testing.T) {
	l := NewExposureLimiter(d(0), d(1500))
	exposures := map[string]decimal.Decimal{
		"binance": d(800),
		"bybit":   d(600),
	}

	if err := l.CheckLimit("okx", d(100), exposures); err != nil {
		t.Errorf("total at the cap should pass, got %v", err)
	}
	if err := l.CheckLimit("okx", d(101), exposures); !errors.Is(err, ErrTotalLimitExceeded) {
		t.Errorf("expected ErrTotalLimitExceeded, got %v", err)
	}
}

func TestCheckLimit_NonPositiveMeansUnlimited(t *testing.T) {
	l := NewExposureLimiter(d(0), d(0))
	exposures := map[string]decimal.Decimal{"binance": d(1e12)}

	if err := l.CheckLimit("binance", d(1e12), exposures); err != nil {
		t.Errorf("zero caps should disable checks, got %v", err)
	}
}
