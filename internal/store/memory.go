package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/paperdesk/sim-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. This is the default
// backend: a simulated session has no durability requirement.
type MemoryStore struct {
	mu         sync.RWMutex
	orders     map[string]*model.Order
	orderIDs   []string // insertion order, for stable listings
	positions  map[string]*model.Position
	posIDs     []string
	history    []model.HistoryEntry // most-recent-first
	strategies map[string]*model.Strategy
	stratIDs   []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.reset()
	return s
}

func (s *MemoryStore) reset() {
	s.orders = make(map[string]*model.Order)
	s.orderIDs = nil
	s.positions = make(map[string]*model.Position)
	s.posIDs = nil
	s.history = nil
	s.strategies = make(map[string]*model.Strategy)
	s.stratIDs = nil
}

// --- Orders ---

func (s *MemoryStore) InsertOrder(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *o
	if o.Legs != nil {
		legs := *o.Legs
		cp.Legs = &legs
	}
	s.orders[o.ID] = &cp
	s.orderIDs = append(s.orderIDs, o.ID)
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	if o.Legs != nil {
		legs := *o.Legs
		cp.Legs = &legs
	}
	return &cp, nil
}

func (s *MemoryStore) ListOrders(_ context.Context) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]model.Order, 0, len(s.orderIDs))
	for i := len(s.orderIDs) - 1; i >= 0; i-- {
		if o, ok := s.orders[s.orderIDs[i]]; ok {
			orders = append(orders, *o)
		}
	}
	return orders, nil
}

func (s *MemoryStore) UpdateOrderFill(_ context.Context, id string, filled float64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	// Terminal status wins any race with an in-flight tick: a cancellation
	// landing between the simulator's read and write must not be overwritten.
	if o.Terminal() {
		return ErrNotFound
	}
	o.Filled = filled
	o.Status = status
	return nil
}

func (s *MemoryStore) SetOrderStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	return nil
}

// --- Positions ---

func (s *MemoryStore) InsertPosition(_ context.Context, p *model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.positions[p.ID] = &cp
	s.posIDs = append(s.posIDs, p.ID)
	return nil
}

func (s *MemoryStore) GetPosition(_ context.Context, id string) (*model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListPositions(_ context.Context) ([]model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	positions := make([]model.Position, 0, len(s.posIDs))
	for i := len(s.posIDs) - 1; i >= 0; i-- {
		if p, ok := s.positions[s.posIDs[i]]; ok {
			positions = append(positions, *p)
		}
	}
	return positions, nil
}

func (s *MemoryStore) UpdatePositionPrice(_ context.Context, id string, current, pnl, pnlPercent decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[id]
	if !ok {
		return ErrNotFound
	}
	p.CurrentPrice = current
	p.PnL = pnl
	p.PnLPercent = pnlPercent
	return nil
}

func (s *MemoryStore) MarkPositionClosed(_ context.Context, id string, exit, pnl, pnlPercent, volume decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[id]
	if !ok {
		return ErrNotFound
	}
	// Only an open position can close; a concurrent close loses the race
	// here instead of double-recording realized PnL.
	if p.Status == model.PositionClosed {
		return ErrNotFound
	}
	p.CurrentPrice = exit
	p.PnL = pnl
	p.PnLPercent = pnlPercent
	p.Volume = volume
	p.Status = model.PositionClosed
	return nil
}

// --- History ---

func (s *MemoryStore) InsertHistory(_ context.Context, e *model.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Prepend: display order is most-recent-first.
	s.history = append([]model.HistoryEntry{*e}, s.history...)
	return nil
}

func (s *MemoryStore) ListHistory(_ context.Context) ([]model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]model.HistoryEntry, len(s.history))
	copy(entries, s.history)
	return entries, nil
}

// --- Strategies ---

func (s *MemoryStore) InsertStrategy(_ context.Context, st *model.Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *st
	s.strategies[st.ID] = &cp
	s.stratIDs = append(s.stratIDs, st.ID)
	return nil
}

func (s *MemoryStore) GetStrategy(_ context.Context, id string) (*model.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.strategies[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *MemoryStore) ListStrategies(_ context.Context) ([]model.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	strategies := make([]model.Strategy, 0, len(s.stratIDs))
	for i := len(s.stratIDs) - 1; i >= 0; i-- {
		if st, ok := s.strategies[s.stratIDs[i]]; ok {
			strategies = append(strategies, *st)
		}
	}
	return strategies, nil
}

func (s *MemoryStore) SetStrategyStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.strategies[id]
	if !ok {
		return ErrNotFound
	}
	st.Status = status
	return nil
}

// --- Session ---

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}
