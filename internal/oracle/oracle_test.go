package oracle

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMemoryOracle_PriceLookup(t *testing.T) {
	o := NewMemoryOracle(map[string]decimal.Decimal{
		"BTC": decimal.NewFromInt(64000),
	}, nil)

	p, ok := o.Price("BTC")
	if !ok || !p.Equal(decimal.NewFromInt(64000)) {
		t.Errorf("expected 64000, got %s (ok=%v)", p, ok)
	}

	if _, ok := o.Price("DOGE"); ok {
		t.Error("unknown token should report ok=false")
	}

	o.SetPrice("DOGE", decimal.NewFromFloat(0.1))
	if p, ok := o.Price("DOGE"); !ok || !p.Equal(decimal.NewFromFloat(0.1)) {
		t.Errorf("expected 0.1 after SetPrice, got %s (ok=%v)", p, ok)
	}
}

func TestMemoryOracle_StepStaysWithinBounds(t *testing.T) {
	start := decimal.NewFromInt(10000)
	o := NewMemoryOracle(map[string]decimal.Decimal{"BTC": start}, rand.New(rand.NewSource(3)))

	// A single step moves at most walkStepBps of the current price.
	maxMove := start.Mul(decimal.NewFromInt(walkStepBps)).Div(decimal.NewFromInt(10000))

	o.Step()
	p, _ := o.Price("BTC")
	if p.Sub(start).Abs().GreaterThan(maxMove) {
		t.Errorf("step moved price beyond ±%s: %s → %s", maxMove, start, p)
	}
	if p.Equal(start) {
		t.Error("step with a live rng should move the price")
	}
}

func TestMemoryOracle_StepWithoutRngIsNoOp(t *testing.T) {
	start := decimal.NewFromInt(100)
	o := NewMemoryOracle(map[string]decimal.Decimal{"BTC": start}, nil)

	o.Step()
	if p, _ := o.Price("BTC"); !p.Equal(start) {
		t.Errorf("step without rng mutated price: %s", p)
	}
}
