package instrument

import (
	"errors"
	"testing"
)

func TestParsePair(t *testing.T) {
	tests := []struct {
		symbol string
		base   string
		quote  string
	}{
		{"BTC/USDT", "BTC", "USDT"},
		{"ETH-USDC", "ETH", "USDC"},
		{"SOL/USD", "SOL", "USD"},
		{"1INCH/USDT", "1INCH", "USDT"},
	}

	for _, tt := range tests {
		pair, err := ParsePair(tt.symbol)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.symbol, err)
			continue
		}
		if pair.Base != tt.base || pair.Quote != tt.quote || pair.Symbol != tt.symbol {
			t.Errorf("%s: got %+v", tt.symbol, pair)
		}
	}
}

func TestParsePair_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"BTC",
		"btc/usdt", // lowercase
		"BTC/USDT/EXTRA",
		"B/USDT",            // base too short
		"BTC USDT",          // no separator
		"VERYLONGTOKEN/USD", // base too long
	}

	for _, symbol := range invalid {
		if _, err := ParsePair(symbol); !errors.Is(err, ErrInvalidPair) {
			t.Errorf("%q: expected ErrInvalidPair, got %v", symbol, err)
		}
	}
}
