package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/paperdesk/sim-engine/internal/metrics"
	"github.com/paperdesk/sim-engine/internal/model"
)

// FillProfile parameterizes the fill progression for an order source:
// how long until the first tick, how much fill each tick adds, and how far
// apart ticks land. Increments and intervals are drawn uniformly from
// [Min, Max] per tick.
type FillProfile struct {
	StartDelay   time.Duration
	MinIncrement float64 // fill percent per tick
	MaxIncrement float64
	MinInterval  time.Duration
	MaxInterval  time.Duration
}

var (
	// MarketMakerFill models slow, continuous quoting: roughly 1% fill
	// over 20 seconds.
	MarketMakerFill = FillProfile{
		StartDelay:   1000 * time.Millisecond,
		MinIncrement: 0.08,
		MaxIncrement: 0.15,
		MinInterval:  1500 * time.Millisecond,
		MaxInterval:  2500 * time.Millisecond,
	}

	// DefaultFill models aggressive taker-style execution for aggregator
	// and carry orders.
	DefaultFill = FillProfile{
		StartDelay:   500 * time.Millisecond,
		MinIncrement: 5,
		MaxIncrement: 20,
		MinInterval:  400 * time.Millisecond,
		MaxInterval:  1200 * time.Millisecond,
	}
)

func (p FillProfile) zero() bool {
	return p.StartDelay == 0 && p.MaxIncrement == 0
}

func (e *Engine) profileFor(source string) FillProfile {
	if source == model.SourceMarketMaker {
		return e.mmFill
	}
	return e.defFill
}

// track puts a newly observed order under simulation. The tracked-set check
// must come before scheduling: arming a second timer for an in-flight order
// would corrupt the monotonic-fill invariant.
func (e *Engine) track(id, source string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if _, ok := e.tracked[id]; ok {
		return
	}

	p := e.profileFor(source)
	e.tracked[id] = e.sched.AfterFunc(p.StartDelay, func() { e.begin(id, p) })
	metrics.ActiveFillTimers.Inc()
}

// begin fires once the start delay elapses: the order transitions to
// in-progress at its current fill and periodic ticking starts.
func (e *Engine) begin(id string, p FillProfile) {
	ctx := context.Background()

	order, err := e.store.GetOrder(ctx, id)
	if err != nil || order.Terminal() {
		e.release(id)
		return
	}
	if err := e.store.UpdateOrderFill(ctx, id, order.Filled, model.OrderInProgress); err != nil {
		e.release(id)
		return
	}

	order.Status = model.OrderInProgress
	e.rearm(id, p)
	e.emit(Event{Type: EventOrderUpdate, Order: order})
}

// tick advances one order's fill by a random increment. The order's current
// state is always re-read from the store — a snapshot captured before the
// tick could resurrect a cancelled or reset order.
func (e *Engine) tick(id string, p FillProfile) {
	ctx := context.Background()
	metrics.FillTicks.Inc()

	order, err := e.store.GetOrder(ctx, id)
	if err != nil {
		// Portfolio reset raced this tick: silent terminal condition.
		e.release(id)
		return
	}
	if order.Terminal() || order.Filled >= 100 {
		e.release(id)
		return
	}

	filled := order.Filled + e.drawIncrement(p)
	if filled >= 100 {
		// Release before settlement so no timer outlives a filled order.
		e.release(id)
		if err := e.store.UpdateOrderFill(ctx, id, 100, model.OrderFilled); err != nil {
			return
		}
		order.Filled = 100
		order.Status = model.OrderFilled
		metrics.OrdersFilled.Inc()
		slog.Info("order filled", "id", id, "token", order.Token, "source", order.Source)

		e.emit(Event{Type: EventOrderUpdate, Order: order})
		if err := e.settleOrder(ctx, order); err != nil {
			slog.Error("order settlement failed", "id", id, "err", err)
		}
		return
	}

	if err := e.store.UpdateOrderFill(ctx, id, filled, model.OrderInProgress); err != nil {
		e.release(id)
		return
	}
	order.Filled = filled
	order.Status = model.OrderInProgress
	e.rearm(id, p)
	e.emit(Event{Type: EventOrderUpdate, Order: order})
}

// rearm schedules the next tick, replacing the tracked handle. The order
// keeps exactly one outstanding timer at any instant. If the order was
// released concurrently (reset/teardown), it is not resurrected.
func (e *Engine) rearm(id string, p FillProfile) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.tracked[id]; !ok {
		return
	}
	if e.closed {
		delete(e.tracked, id)
		metrics.ActiveFillTimers.Dec()
		return
	}

	span := float64(p.MaxInterval - p.MinInterval)
	d := p.MinInterval + time.Duration(e.rng.Float64()*span)
	e.tracked[id] = e.sched.AfterFunc(d, func() { e.tick(id, p) })
}

// release stops and forgets an order's timer. Safe to call from the timer's
// own callback and safe to call twice.
func (e *Engine) release(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.tracked[id]; ok {
		t.Stop()
		delete(e.tracked, id)
		metrics.ActiveFillTimers.Dec()
	}
}

// TrackPending scans the order book and puts every pending, unfilled order
// that is not yet under simulation on a fill schedule. SubmitOrder and
// DeployStrategy track their orders directly; this exists for books
// restored from a durable store at startup.
func (e *Engine) TrackPending(ctx context.Context) error {
	orders, err := e.store.ListOrders(ctx)
	if err != nil {
		return err
	}
	for _, o := range orders {
		if o.Status == model.OrderPending && o.Filled == 0 {
			e.track(o.ID, o.Source)
		}
	}
	return nil
}

func (e *Engine) drawIncrement(p FillProfile) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return p.MinIncrement + e.rng.Float64()*(p.MaxIncrement-p.MinIncrement)
}
