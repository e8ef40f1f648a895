package engine

import "errors"

var (
	// ErrInvalidOrderSpec rejects order submissions with non-positive size
	// or price, unknown sides/sources, or a carry side without legs. State
	// is left unchanged.
	ErrInvalidOrderSpec = errors.New("engine: invalid order spec")

	// ErrInvalidStrategyConfig rejects strategy deployments; the wrapped
	// message lists the missing or invalid fields.
	ErrInvalidStrategyConfig = errors.New("engine: invalid strategy config")

	// ErrOrderNotFound is returned by order lookups for unknown ids.
	ErrOrderNotFound = errors.New("engine: order not found")

	// ErrPositionNotFound is returned when closing an unknown or already
	// closed position. Never fatal.
	ErrPositionNotFound = errors.New("engine: position not found")

	// ErrStrategyNotFound is returned by strategy lookups for unknown ids.
	ErrStrategyNotFound = errors.New("engine: strategy not found")

	// ErrEngineClosed rejects commands after teardown.
	ErrEngineClosed = errors.New("engine: closed")
)
