// Package store defines the state container for the simulation engine:
// orders, positions, history, and deployed strategies keyed by id.
// Implementations include in-memory (the default for a simulated session),
// PostgreSQL (optional durable ledger), and a Redis read-through cache.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/paperdesk/sim-engine/internal/model"
)

// ErrNotFound is returned by lookups for unknown ids. Callers racing
// against a portfolio reset treat it as a silent terminal condition.
var ErrNotFound = errors.New("store: not found")

// Store is the single source of truth for session state. The engine is the
// only writer; readers take snapshots (copies) and must re-fetch at every
// scheduling boundary rather than trust a stale copy.
type Store interface {
	// --- Orders ---

	// InsertOrder adds a new order to the book.
	InsertOrder(ctx context.Context, o *model.Order) error

	// GetOrder returns a copy of the order, or ErrNotFound.
	GetOrder(ctx context.Context, id string) (*model.Order, error)

	// ListOrders returns all orders, newest first.
	ListOrders(ctx context.Context) ([]model.Order, error)

	// UpdateOrderFill writes the fill percentage and status after a tick.
	// The write is conditional on the order being non-terminal; a filled or
	// cancelled order returns ErrNotFound so a racing tick backs off.
	UpdateOrderFill(ctx context.Context, id string, filled float64, status string) error

	// SetOrderStatus transitions lifecycle status only.
	SetOrderStatus(ctx context.Context, id, status string) error

	// --- Positions ---

	// InsertPosition adds a newly opened position.
	InsertPosition(ctx context.Context, p *model.Position) error

	// GetPosition returns a copy of the position, or ErrNotFound.
	GetPosition(ctx context.Context, id string) (*model.Position, error)

	// ListPositions returns all positions (open and closed), newest first.
	ListPositions(ctx context.Context) ([]model.Position, error)

	// UpdatePositionPrice writes a recomputed mark-to-market snapshot.
	UpdatePositionPrice(ctx context.Context, id string, current, pnl, pnlPercent decimal.Decimal) error

	// MarkPositionClosed finalizes a position with its realized figures.
	// Only an open position closes; an already closed one returns
	// ErrNotFound so concurrent closes settle exactly once.
	MarkPositionClosed(ctx context.Context, id string, exit, pnl, pnlPercent, volume decimal.Decimal) error

	// --- History (append-only) ---

	// InsertHistory appends an immutable audit record.
	InsertHistory(ctx context.Context, e *model.HistoryEntry) error

	// ListHistory returns entries most-recent-first.
	ListHistory(ctx context.Context) ([]model.HistoryEntry, error)

	// --- Strategies ---

	// InsertStrategy adds a deployed strategy instance.
	InsertStrategy(ctx context.Context, s *model.Strategy) error

	// GetStrategy returns a copy of the strategy, or ErrNotFound.
	GetStrategy(ctx context.Context, id string) (*model.Strategy, error)

	// ListStrategies returns all strategy instances, newest first.
	ListStrategies(ctx context.Context) ([]model.Strategy, error)

	// SetStrategyStatus transitions strategy lifecycle status.
	SetStrategyStatus(ctx context.Context, id, status string) error

	// --- Session ---

	// Reset clears all orders, positions, history, and strategies.
	Reset(ctx context.Context) error
}
