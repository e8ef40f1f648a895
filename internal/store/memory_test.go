package store

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/paperdesk/sim-engine/internal/model"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestMemoryStore_OrderCopySemantics(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	order := &model.Order{
		ID:     "o1",
		Token:  "BTC",
		Size:   d(1),
		Price:  d(100),
		Status: model.OrderPending,
		Legs: &model.CarryLegs{
			Long:  model.CarryLeg{Token: "BTC", Exchange: "A", Size: d(0.5)},
			Short: model.CarryLeg{Token: "BTC", Exchange: "B", Size: d(0.5)},
		},
	}
	if err := s.InsertOrder(ctx, order); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	// Mutating the caller's struct after insert must not leak into the store.
	order.Status = model.OrderCancelled
	order.Legs.Long.Exchange = "Z"

	got, err := s.GetOrder(ctx, "o1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != model.OrderPending {
		t.Errorf("stored order aliased caller memory: status=%s", got.Status)
	}
	if got.Legs.Long.Exchange != "A" {
		t.Errorf("stored legs aliased caller memory: %s", got.Legs.Long.Exchange)
	}

	// And mutating a returned snapshot must not write back.
	got.Filled = 50
	again, _ := s.GetOrder(ctx, "o1")
	if again.Filled != 0 {
		t.Errorf("returned snapshot aliased store memory: filled=%f", again.Filled)
	}
}

func TestMemoryStore_ListOrdersNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"first", "second", "third"} {
		if err := s.InsertOrder(ctx, &model.Order{ID: id, Size: d(1), Price: d(1)}); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	orders, err := s.ListOrders(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 3 || orders[0].ID != "third" || orders[2].ID != "first" {
		t.Errorf("expected newest-first [third second first], got %+v", orders)
	}
}

func TestMemoryStore_HistoryMostRecentFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, action := range []string{"a", "b", "c"} {
		if err := s.InsertHistory(ctx, &model.HistoryEntry{ID: action, Action: action}); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	entries, err := s.ListHistory(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 3 || entries[0].Action != "c" || entries[2].Action != "a" {
		t.Errorf("expected most-recent-first [c b a], got %+v", entries)
	}
}

func TestMemoryStore_FillWriteRefusedOnTerminalOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.InsertOrder(ctx, &model.Order{
		ID: "o1", Size: d(1), Price: d(100), Status: model.OrderInProgress, Filled: 40,
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := s.SetOrderStatus(ctx, "o1", model.OrderCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	// A fill write racing the cancellation loses.
	if err := s.UpdateOrderFill(ctx, "o1", 55, model.OrderInProgress); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for fill write on cancelled order, got %v", err)
	}

	got, _ := s.GetOrder(ctx, "o1")
	if got.Status != model.OrderCancelled || got.Filled != 40 {
		t.Errorf("terminal order mutated: status=%s filled=%f", got.Status, got.Filled)
	}

	// Same for filled orders.
	s.InsertOrder(ctx, &model.Order{ID: "o2", Size: d(1), Price: d(100), Status: model.OrderFilled, Filled: 100})
	if err := s.UpdateOrderFill(ctx, "o2", 50, model.OrderInProgress); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for fill write on filled order, got %v", err)
	}
}

func TestMemoryStore_DoubleCloseRefused(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.InsertPosition(ctx, &model.Position{
		ID: "p1", Size: d(1), EntryPrice: d(100), Status: model.PositionOpen,
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := s.MarkPositionClosed(ctx, "p1", d(110), d(10), d(10), d(110)); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := s.MarkPositionClosed(ctx, "p1", d(120), d(20), d(20), d(120)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second close, got %v", err)
	}

	got, _ := s.GetPosition(ctx, "p1")
	if !got.PnL.Equal(d(10)) || !got.CurrentPrice.Equal(d(110)) {
		t.Errorf("second close overwrote realized figures: %+v", got)
	}
}

func TestMemoryStore_UpdateMissingReturnsNotFound(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.UpdateOrderFill(ctx, "nope", 50, model.OrderInProgress); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.SetOrderStatus(ctx, "nope", model.OrderCancelled); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.MarkPositionClosed(ctx, "nope", d(1), d(0), d(0), d(0)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.SetStrategyStatus(ctx, "nope", model.StrategyStopped); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ResetClearsEverything(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.InsertOrder(ctx, &model.Order{ID: "o1", Size: d(1), Price: d(1)})
	s.InsertPosition(ctx, &model.Position{ID: "p1", Size: d(1), EntryPrice: d(1)})
	s.InsertHistory(ctx, &model.HistoryEntry{ID: "h1"})
	s.InsertStrategy(ctx, &model.Strategy{ID: "s1"})

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	orders, _ := s.ListOrders(ctx)
	positions, _ := s.ListPositions(ctx)
	history, _ := s.ListHistory(ctx)
	strategies, _ := s.ListStrategies(ctx)
	if len(orders)+len(positions)+len(history)+len(strategies) != 0 {
		t.Errorf("reset left data behind: %d/%d/%d/%d",
			len(orders), len(positions), len(history), len(strategies))
	}

	if _, err := s.GetOrder(ctx, "o1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after reset, got %v", err)
	}
}
