// Package instrument handles trading-pair symbol parsing and validation for
// strategy deployment.
package instrument

import (
	"errors"
	"fmt"
	"regexp"
)

// pairRegex matches BASE/QUOTE or BASE-QUOTE symbols.
// Examples: BTC/USDT, ETH-USDC, SOL/USD.
var pairRegex = regexp.MustCompile(`^([A-Z0-9]{2,10})[/-]([A-Z0-9]{2,10})$`)

// ErrInvalidPair is returned for symbols that do not parse as BASE/QUOTE.
var ErrInvalidPair = errors.New("instrument: invalid pair symbol")

// Pair is a parsed trading pair.
type Pair struct {
	Symbol string `json:"symbol"`
	Base   string `json:"base"`
	Quote  string `json:"quote"`
}

// ParsePair parses and validates a pair symbol.
// Format: BASE/QUOTE or BASE-QUOTE, uppercase alphanumerics.
func ParsePair(symbol string) (*Pair, error) {
	matches := pairRegex.FindStringSubmatch(symbol)
	if matches == nil {
		return nil, fmt.Errorf("%w: %q (expected BASE/QUOTE)", ErrInvalidPair, symbol)
	}
	return &Pair{
		Symbol: symbol,
		Base:   matches[1],
		Quote:  matches[2],
	}, nil
}
