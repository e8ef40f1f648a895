// Package engine implements the order fill simulation and portfolio ledger:
// it advances pending orders through partial-fill states on randomized,
// source-dependent timing, converts fills into positions, maintains derived
// PnL/volume state, and records the append-only history ledger.
//
// The engine is the single writer of session state. Presentation code only
// reads snapshots and issues commands. All monetary values use
// shopspring/decimal — never float64 for money.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paperdesk/sim-engine/internal/metrics"
	"github.com/paperdesk/sim-engine/internal/model"
	"github.com/paperdesk/sim-engine/internal/oracle"
	"github.com/paperdesk/sim-engine/internal/risk"
	"github.com/paperdesk/sim-engine/internal/sched"
	"github.com/paperdesk/sim-engine/internal/store"
)

// Event types published to the optional event sink.
const (
	EventOrderUpdate      = "order_update"
	EventPositionOpened   = "position_opened"
	EventPositionClosed   = "position_closed"
	EventStrategyDeployed = "strategy_deployed"
	EventStrategyStopped  = "strategy_stopped"
	EventPortfolioReset   = "portfolio_reset"
)

// Event is a ledger-affecting notification pushed to presentation code
// (the WebSocket hub in the default wiring).
type Event struct {
	Type     string              `json:"type"`
	Order    *model.Order        `json:"order,omitempty"`
	Position *model.Position     `json:"position,omitempty"`
	Entry    *model.HistoryEntry `json:"entry,omitempty"`
	Strategy *model.Strategy     `json:"strategy,omitempty"`
}

// Config wires an Engine. Store is required; everything else has defaults.
type Config struct {
	Store  store.Store
	Oracle oracle.PriceOracle

	// Scheduler defaults to wall-clock timers. Tests inject sched.Manual.
	Scheduler sched.Scheduler

	// Rand drives fill increments and tick intervals. Defaults to a
	// time-seeded source; tests inject a fixed seed.
	Rand *rand.Rand

	// Fill profiles; zero values take the package defaults.
	MarketMakerFill FillProfile
	DefaultFill     FillProfile

	// Limiter optionally bounds open notional at submit time.
	Limiter *risk.ExposureLimiter

	// OnEvent, when set, receives every ledger-affecting event. Called
	// outside the engine lock; must not block.
	OnEvent func(Event)
}

// Engine owns the order book, position ledger, and history ledger for one
// session.
type Engine struct {
	store   store.Store
	oracle  oracle.PriceOracle
	sched   sched.Scheduler
	limiter *risk.ExposureLimiter
	onEvent func(Event)

	mmFill  FillProfile
	defFill FillProfile

	mu      sync.Mutex
	rng     *rand.Rand
	tracked map[string]sched.Timer // order id → its sole outstanding timer
	closed  bool
}

// New creates an engine. Panics if cfg.Store is nil: the engine is unusable
// without a state container.
func New(cfg Config) *Engine {
	if cfg.Store == nil {
		panic("engine: Config.Store is required")
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = sched.New()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.MarketMakerFill.zero() {
		cfg.MarketMakerFill = MarketMakerFill
	}
	if cfg.DefaultFill.zero() {
		cfg.DefaultFill = DefaultFill
	}
	return &Engine{
		store:   cfg.Store,
		oracle:  cfg.Oracle,
		sched:   cfg.Scheduler,
		limiter: cfg.Limiter,
		onEvent: cfg.OnEvent,
		mmFill:  cfg.MarketMakerFill,
		defFill: cfg.DefaultFill,
		rng:     cfg.Rand,
		tracked: make(map[string]sched.Timer),
	}
}

// OrderSpec is the command payload for SubmitOrder.
type OrderSpec struct {
	Token    string           `json:"token"`
	Exchange string           `json:"exchange"`
	Side     string           `json:"side"`
	Size     decimal.Decimal  `json:"size"`
	Price    decimal.Decimal  `json:"price"`
	Source   string           `json:"source"`
	Legs     *model.CarryLegs `json:"legs,omitempty"`
}

func (s *OrderSpec) validate() error {
	if !s.Size.IsPositive() {
		return fmt.Errorf("%w: size must be positive", ErrInvalidOrderSpec)
	}
	if !s.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", ErrInvalidOrderSpec)
	}
	if s.Token == "" || s.Exchange == "" {
		return fmt.Errorf("%w: token and exchange are required", ErrInvalidOrderSpec)
	}

	if s.Side == "" {
		s.Side = model.SideLong
	}
	switch s.Side {
	case model.SideLong, model.SideShort:
	case model.SideCarry:
		if s.Legs == nil {
			return fmt.Errorf("%w: carry orders require long and short legs", ErrInvalidOrderSpec)
		}
	default:
		return fmt.Errorf("%w: unknown side %q", ErrInvalidOrderSpec, s.Side)
	}

	if s.Source == "" {
		if s.Side == model.SideCarry {
			s.Source = model.SourceCarry
		} else {
			s.Source = model.SourceAggregator
		}
	}
	switch s.Source {
	case model.SourceAggregator, model.SourceCarry, model.SourceMarketMaker:
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidOrderSpec, s.Source)
	}
	return nil
}

// SubmitOrder enqueues a new order and hands it to the fill simulator.
func (e *Engine) SubmitOrder(ctx context.Context, spec OrderSpec) (string, error) {
	if e.isClosed() {
		return "", ErrEngineClosed
	}
	if err := spec.validate(); err != nil {
		return "", err
	}

	if e.limiter != nil {
		exposures, err := e.openNotionalByExchange(ctx)
		if err != nil {
			return "", err
		}
		notional := spec.Size.Mul(spec.Price)
		if err := e.limiter.CheckLimit(spec.Exchange, notional, exposures); err != nil {
			return "", fmt.Errorf("%w: %s", ErrInvalidOrderSpec, err)
		}
	}

	order := &model.Order{
		ID:       uuid.New().String(),
		Token:    spec.Token,
		Exchange: spec.Exchange,
		Side:     spec.Side,
		Size:     spec.Size,
		Price:    spec.Price,
		Filled:   0,
		Status:   model.OrderPending,
		Source:   spec.Source,
		Legs:     spec.Legs,
		Created:  e.sched.Now(),
	}
	if err := e.store.InsertOrder(ctx, order); err != nil {
		return "", err
	}

	metrics.OrdersSubmitted.WithLabelValues(order.Source).Inc()
	slog.Info("order submitted",
		"id", order.ID,
		"token", order.Token,
		"exchange", order.Exchange,
		"side", order.Side,
		"size", order.Size.String(),
		"source", order.Source,
	)

	e.track(order.ID, order.Source)
	e.emit(Event{Type: EventOrderUpdate, Order: order})
	return order.ID, nil
}

// CancelOrder requests cancellation. Unknown or already terminal orders are
// a no-op: cancellation may race a reset or a final tick, and that is fine.
// The simulator observes the status at its next tick and releases the timer.
func (e *Engine) CancelOrder(ctx context.Context, id string) error {
	order, err := e.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if order.Terminal() {
		return nil
	}

	if err := e.store.SetOrderStatus(ctx, id, model.OrderCancelled); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	metrics.OrdersCancelled.Inc()
	slog.Info("order cancelled", "id", id, "filled", order.Filled)

	order.Status = model.OrderCancelled
	e.emit(Event{Type: EventOrderUpdate, Order: order})
	return nil
}

// GetOrder returns a snapshot of one order.
func (e *Engine) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	order, err := e.store.GetOrder(ctx, id)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetOrders returns all orders, newest first.
func (e *Engine) GetOrders(ctx context.Context) ([]model.Order, error) {
	return e.store.ListOrders(ctx)
}

// GetOpenPositions returns positions with open status, newest first.
// Pure projection — recomputed from the ledger on every call.
func (e *Engine) GetOpenPositions(ctx context.Context) ([]model.Position, error) {
	positions, err := e.store.ListPositions(ctx)
	if err != nil {
		return nil, err
	}
	open := make([]model.Position, 0, len(positions))
	for _, p := range positions {
		if p.Status == model.PositionOpen {
			open = append(open, p)
		}
	}
	return open, nil
}

// GetPositionsByExchange filters open positions by exchange.
func (e *Engine) GetPositionsByExchange(ctx context.Context, exchange string) ([]model.Position, error) {
	open, err := e.GetOpenPositions(ctx)
	if err != nil {
		return nil, err
	}
	filtered := make([]model.Position, 0, len(open))
	for _, p := range open {
		if p.Exchange == exchange {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// GetTotalPnL sums unrealized PnL over open positions.
func (e *Engine) GetTotalPnL(ctx context.Context) (decimal.Decimal, error) {
	open, err := e.GetOpenPositions(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range open {
		total = total.Add(p.PnL)
	}
	return total, nil
}

// GetHistory returns the audit ledger, most-recent-first.
func (e *Engine) GetHistory(ctx context.Context) ([]model.HistoryEntry, error) {
	return e.store.ListHistory(ctx)
}

// GetStrategies returns all deployed strategy instances, newest first.
func (e *Engine) GetStrategies(ctx context.Context) ([]model.Strategy, error) {
	return e.store.ListStrategies(ctx)
}

// ResetPortfolio cancels and releases all outstanding timers, then clears
// orders, positions, history, and strategies.
func (e *Engine) ResetPortfolio(ctx context.Context) error {
	e.releaseAll()
	if err := e.store.Reset(ctx); err != nil {
		return err
	}
	slog.Info("portfolio reset")
	e.emit(Event{Type: EventPortfolioReset})
	return nil
}

// Close tears the engine down: every outstanding timer is released exactly
// once and no further work is scheduled. Idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.releaseAll()
	slog.Info("engine closed")
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// releaseAll stops and forgets every tracked timer.
func (e *Engine) releaseAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, t := range e.tracked {
		t.Stop()
		delete(e.tracked, id)
		metrics.ActiveFillTimers.Dec()
	}
}

// openNotionalByExchange sums entry notional of open positions per exchange
// for the exposure limiter.
func (e *Engine) openNotionalByExchange(ctx context.Context) (map[string]decimal.Decimal, error) {
	open, err := e.GetOpenPositions(ctx)
	if err != nil {
		return nil, err
	}
	exposures := make(map[string]decimal.Decimal)
	for _, p := range open {
		exposures[p.Exchange] = exposures[p.Exchange].Add(p.Size.Mul(p.EntryPrice))
	}
	return exposures, nil
}

func (e *Engine) emit(ev Event) {
	if e.onEvent != nil {
		e.onEvent(ev)
	}
}

// joinFields formats a missing-field list for validation errors.
func joinFields(fields []string) string {
	return strings.Join(fields, ", ")
}
