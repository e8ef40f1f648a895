package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paperdesk/sim-engine/internal/metrics"
	"github.com/paperdesk/sim-engine/internal/model"
	"github.com/paperdesk/sim-engine/internal/store"
)

var one = decimal.NewFromInt(1)

// unrealizedPnL computes (current − entry) × directionSign × size.
func unrealizedPnL(entry, current, sign, size decimal.Decimal) decimal.Decimal {
	return current.Sub(entry).Mul(sign).Mul(size)
}

// pnlPercent computes PnL / (entry × size) × 100, guarded against a zero
// denominator.
func pnlPercent(pnl, entry, size decimal.Decimal) decimal.Decimal {
	denom := entry.Mul(size)
	if denom.IsZero() {
		return decimal.Zero
	}
	return pnl.Div(denom).Mul(decimal.NewFromInt(100))
}

// settleOrder converts a fully filled order into ledger state: one position
// for a simple order, two for a carry order. Exactly one history entry per
// user-visible action — carry legs share a combined entry, and market-maker
// orders contribute nothing here because their position and history entry
// were written at deployment.
func (e *Engine) settleOrder(ctx context.Context, o *model.Order) error {
	if o.Source == model.SourceMarketMaker {
		return nil
	}

	if o.Side == model.SideCarry && o.Legs != nil {
		return e.settleCarry(ctx, o)
	}

	pos := e.newPosition(o.Token, o.Exchange, o.Side, o.Size, o.Price)
	if err := e.store.InsertPosition(ctx, pos); err != nil {
		return err
	}
	metrics.PositionsOpened.Inc()

	entry := &model.HistoryEntry{
		Type:     model.HistoryTrade,
		Action:   fmt.Sprintf("Opened %s %s on %s", o.Side, o.Token, o.Exchange),
		Amount:   o.Size.Mul(o.Price),
		Token:    o.Token,
		Exchange: o.Exchange,
		Status:   "completed",
		Volume:   o.Size.Mul(o.Price),
		Source:   o.Source,
	}
	if err := e.recordHistory(ctx, entry); err != nil {
		return err
	}

	e.emit(Event{Type: EventPositionOpened, Position: pos, Entry: entry})
	return nil
}

// settleCarry opens both legs as separate positions but suppresses their
// individual history entries in favor of one combined record, so carry
// volume is not double-counted.
func (e *Engine) settleCarry(ctx context.Context, o *model.Order) error {
	long := e.newPosition(o.Legs.Long.Token, o.Legs.Long.Exchange, model.SideLong, o.Legs.Long.Size, o.Price)
	short := e.newPosition(o.Legs.Short.Token, o.Legs.Short.Exchange, model.SideShort, o.Legs.Short.Size, o.Price)

	if err := e.store.InsertPosition(ctx, long); err != nil {
		return err
	}
	if err := e.store.InsertPosition(ctx, short); err != nil {
		return err
	}
	metrics.PositionsOpened.Add(2)

	entry := &model.HistoryEntry{
		Type:     model.HistoryTrade,
		Action:   fmt.Sprintf("Executed carry trade %s/%s", o.Legs.Long.Token, o.Legs.Short.Token),
		Amount:   o.Size.Mul(o.Price),
		Token:    o.Token,
		Exchange: o.Exchange,
		Status:   "completed",
		Volume:   o.Size.Mul(o.Price),
		Source:   o.Source,
		Detail: &model.ExecutionDetail{
			BuyExchange:  o.Legs.Long.Exchange,
			SellExchange: o.Legs.Short.Exchange,
			BuySize:      o.Legs.Long.Size,
			SellSize:     o.Legs.Short.Size,
		},
	}
	if err := e.recordHistory(ctx, entry); err != nil {
		return err
	}

	e.emit(Event{Type: EventPositionOpened, Position: long, Entry: entry})
	e.emit(Event{Type: EventPositionOpened, Position: short})
	return nil
}

func (e *Engine) newPosition(token, exchange, side string, size, entry decimal.Decimal) *model.Position {
	return &model.Position{
		ID:           uuid.New().String(),
		Token:        token,
		Exchange:     exchange,
		Side:         side,
		Size:         size,
		EntryPrice:   entry,
		CurrentPrice: entry,
		PnL:          decimal.Zero,
		PnLPercent:   decimal.Zero,
		Status:       model.PositionOpen,
		Leverage:     one,
		Volume:       decimal.Zero,
		Created:      e.sched.Now(),
	}
}

// recordHistory assigns a fresh identity and timestamp and appends the
// entry. Never deduplicates: every call produces exactly one record.
func (e *Engine) recordHistory(ctx context.Context, entry *model.HistoryEntry) error {
	entry.ID = uuid.New().String()
	entry.Timestamp = e.sched.Now()
	return e.store.InsertHistory(ctx, entry)
}

// ClosePosition realizes a position at the given exit price: PnL from the
// entry/exit differential and direction sign, volume = size × exit ×
// leverage (leverage defaults to 1). Closing an unknown or already closed
// position returns ErrPositionNotFound — a local failure, never fatal.
func (e *Engine) ClosePosition(ctx context.Context, id string, exitPrice decimal.Decimal) (*model.Position, error) {
	pos, err := e.store.GetPosition(ctx, id)
	if err != nil || pos.Status == model.PositionClosed {
		return nil, ErrPositionNotFound
	}

	leverage := pos.Leverage
	if !leverage.IsPositive() {
		leverage = one
	}

	pnl := unrealizedPnL(pos.EntryPrice, exitPrice, pos.DirectionSign(), pos.Size)
	pct := pnlPercent(pnl, pos.EntryPrice, pos.Size)
	volume := pos.Size.Mul(exitPrice).Mul(leverage)

	if err := e.store.MarkPositionClosed(ctx, id, exitPrice, pnl, pct, volume); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPositionNotFound
		}
		return nil, err
	}

	pos.CurrentPrice = exitPrice
	pos.PnL = pnl
	pos.PnLPercent = pct
	pos.Volume = volume
	pos.Status = model.PositionClosed

	entry := &model.HistoryEntry{
		Type:     model.HistoryTrade,
		Action:   fmt.Sprintf("Closed %s %s on %s", pos.Side, pos.Token, pos.Exchange),
		Amount:   pos.Size.Mul(exitPrice),
		Token:    pos.Token,
		Exchange: pos.Exchange,
		Status:   "completed",
		PnL:      &pnl,
		Volume:   volume,
		Source:   model.SourceAggregator,
	}
	if err := e.recordHistory(ctx, entry); err != nil {
		return nil, err
	}

	metrics.PositionsClosed.Inc()
	slog.Info("position closed",
		"id", id,
		"token", pos.Token,
		"exit", exitPrice.String(),
		"pnl", pnl.String(),
	)

	e.emit(Event{Type: EventPositionClosed, Position: pos, Entry: entry})
	return pos, nil
}

// UpdatePositionPrice recomputes PnL for one open position against a new
// current price. All other fields pass through unchanged.
func (e *Engine) UpdatePositionPrice(ctx context.Context, id string, price decimal.Decimal) error {
	pos, err := e.store.GetPosition(ctx, id)
	if err != nil {
		return ErrPositionNotFound
	}
	if pos.Status == model.PositionClosed {
		return nil
	}

	pnl := unrealizedPnL(pos.EntryPrice, price, pos.DirectionSign(), pos.Size)
	pct := pnlPercent(pnl, pos.EntryPrice, pos.Size)
	if err := e.store.UpdatePositionPrice(ctx, id, price, pnl, pct); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPositionNotFound
		}
		return err
	}
	return nil
}

// MarkToMarket refreshes unrealized PnL for every open position from the
// price oracle. Tokens the oracle does not know are skipped.
func (e *Engine) MarkToMarket(ctx context.Context) error {
	if e.oracle == nil {
		return nil
	}
	open, err := e.GetOpenPositions(ctx)
	if err != nil {
		return err
	}
	for _, p := range open {
		price, ok := e.oracle.Price(p.Token)
		if !ok {
			continue
		}
		if err := e.UpdatePositionPrice(ctx, p.ID, price); err != nil && !errors.Is(err, ErrPositionNotFound) {
			return err
		}
	}
	return nil
}
