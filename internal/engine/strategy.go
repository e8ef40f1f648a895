package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paperdesk/sim-engine/internal/estimator"
	"github.com/paperdesk/sim-engine/internal/instrument"
	"github.com/paperdesk/sim-engine/internal/metrics"
	"github.com/paperdesk/sim-engine/internal/model"
)

// DeployStrategy validates a market-maker configuration, computes its
// projection, and emits the deployment triad: one pending order (market-maker
// source, so the simulator drives its fill slowly), one position opened
// immediately at the reference price, and one history entry. Exactly one
// history entry per deployment — the order's eventual fill adds nothing.
func (e *Engine) DeployStrategy(ctx context.Context, cfg model.StrategyConfig) (*model.Strategy, *estimator.Projection, error) {
	if e.isClosed() {
		return nil, nil, ErrEngineClosed
	}

	var missing []string
	var pair *instrument.Pair

	if cfg.Exchange == "" {
		missing = append(missing, "exchange")
	}
	if cfg.Pair == "" {
		missing = append(missing, "pair")
	} else {
		var err error
		if pair, err = instrument.ParsePair(cfg.Pair); err != nil {
			missing = append(missing, "pair")
		}
	}
	if !cfg.Margin.IsPositive() {
		missing = append(missing, "margin")
	}
	if !cfg.Leverage.IsPositive() {
		missing = append(missing, "leverage")
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: missing or invalid fields: %s",
			ErrInvalidStrategyConfig, joinFields(missing))
	}

	if cfg.ParticipationRate == "" {
		cfg.ParticipationRate = model.RateNeutral
	}
	proj, err := estimator.Estimate(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidStrategyConfig, err)
	}

	refPrice, ok := decimal.Zero, false
	if e.oracle != nil {
		refPrice, ok = e.oracle.Price(pair.Base)
	}
	if !ok || !refPrice.IsPositive() {
		return nil, nil, fmt.Errorf("%w: no reference price for %s",
			ErrInvalidStrategyConfig, pair.Base)
	}

	orderAmount := cfg.OrderAmount
	if !orderAmount.IsPositive() {
		orderAmount = cfg.Margin
	}
	size := orderAmount.Div(refPrice)
	now := e.sched.Now()

	strategy := &model.Strategy{
		ID:      uuid.New().String(),
		Config:  cfg,
		Status:  model.StrategyRunning,
		PnL:     decimal.Zero,
		ROI:     decimal.Zero,
		Volume:  decimal.Zero,
		Created: now,
	}
	if err := e.store.InsertStrategy(ctx, strategy); err != nil {
		return nil, nil, err
	}

	order := &model.Order{
		ID:       uuid.New().String(),
		Token:    pair.Base,
		Exchange: cfg.Exchange,
		Side:     model.SideLong,
		Size:     size,
		Price:    refPrice,
		Filled:   0,
		Status:   model.OrderPending,
		Source:   model.SourceMarketMaker,
		Created:  now,
	}
	if err := e.store.InsertOrder(ctx, order); err != nil {
		return nil, nil, err
	}
	metrics.OrdersSubmitted.WithLabelValues(model.SourceMarketMaker).Inc()

	// Deployment bypasses the simulated fill for its position: the ledger
	// reflects the strategy's working capital from the moment it runs.
	pos := e.newPosition(pair.Base, cfg.Exchange, model.SideLong, size, refPrice)
	pos.Leverage = cfg.Leverage
	pos.Volume = proj.VolumePerRun // margin × leverage turnover, not raw notional
	if err := e.store.InsertPosition(ctx, pos); err != nil {
		return nil, nil, err
	}
	metrics.PositionsOpened.Inc()

	entry := &model.HistoryEntry{
		Type:     model.HistoryTrade,
		Action:   fmt.Sprintf("Deployed market maker on %s", cfg.Pair),
		Amount:   cfg.Margin,
		Token:    pair.Base,
		Exchange: cfg.Exchange,
		Status:   "running",
		Volume:   proj.VolumePerRun,
		Source:   model.SourceMarketMaker,
	}
	if err := e.recordHistory(ctx, entry); err != nil {
		return nil, nil, err
	}

	metrics.StrategiesDeployed.Inc()
	slog.Info("strategy deployed",
		"id", strategy.ID,
		"pair", cfg.Pair,
		"exchange", cfg.Exchange,
		"margin", cfg.Margin.String(),
		"leverage", cfg.Leverage.String(),
		"daily_volume", proj.DailyVolume.String(),
	)

	e.track(order.ID, model.SourceMarketMaker)
	e.emit(Event{Type: EventStrategyDeployed, Strategy: strategy, Order: order, Position: pos, Entry: entry})
	return strategy, proj, nil
}

// StopStrategy transitions a running strategy to stopped. Transitions are
// forward-only: stopping an already terminal instance is a no-op, and a
// stopped instance is never resurrected.
func (e *Engine) StopStrategy(ctx context.Context, id string) error {
	strategy, err := e.store.GetStrategy(ctx, id)
	if err != nil {
		return ErrStrategyNotFound
	}
	if strategy.Status != model.StrategyRunning {
		return nil
	}

	if err := e.store.SetStrategyStatus(ctx, id, model.StrategyStopped); err != nil {
		return err
	}

	strategy.Status = model.StrategyStopped
	slog.Info("strategy stopped", "id", id, "pair", strategy.Config.Pair)
	e.emit(Event{Type: EventStrategyStopped, Strategy: strategy})
	return nil
}
