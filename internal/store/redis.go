package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/paperdesk/sim-engine/internal/model"
)

// Cache keys for the list snapshots served to reporting views.
const (
	positionsKey = "sim:positions"
	historyKey   = "sim:history"
)

// CachedStore wraps a primary Store with a Redis read-through cache for the
// two read-heavy projections: the positions list and the history ledger.
// Orders and strategies pass through untouched — order state is mutated on
// every simulator tick and must never be served stale.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Orders (passthrough) ---

func (s *CachedStore) InsertOrder(ctx context.Context, o *model.Order) error {
	return s.primary.InsertOrder(ctx, o)
}

func (s *CachedStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return s.primary.GetOrder(ctx, id)
}

func (s *CachedStore) ListOrders(ctx context.Context) ([]model.Order, error) {
	return s.primary.ListOrders(ctx)
}

func (s *CachedStore) UpdateOrderFill(ctx context.Context, id string, filled float64, status string) error {
	return s.primary.UpdateOrderFill(ctx, id, filled, status)
}

func (s *CachedStore) SetOrderStatus(ctx context.Context, id, status string) error {
	return s.primary.SetOrderStatus(ctx, id, status)
}

// --- Positions (write-invalidate, read-through list) ---

func (s *CachedStore) InsertPosition(ctx context.Context, p *model.Position) error {
	if err := s.primary.InsertPosition(ctx, p); err != nil {
		return err
	}
	s.rdb.Del(ctx, positionsKey)
	return nil
}

func (s *CachedStore) GetPosition(ctx context.Context, id string) (*model.Position, error) {
	return s.primary.GetPosition(ctx, id)
}

func (s *CachedStore) ListPositions(ctx context.Context) ([]model.Position, error) {
	data, err := s.rdb.Get(ctx, positionsKey).Bytes()
	if err == nil {
		var positions []model.Position
		if json.Unmarshal(data, &positions) == nil {
			return positions, nil
		}
	}

	positions, err := s.primary.ListPositions(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(positions); err == nil {
		s.rdb.Set(ctx, positionsKey, data, s.ttl)
	}
	return positions, nil
}

func (s *CachedStore) UpdatePositionPrice(ctx context.Context, id string, current, pnl, pnlPercent decimal.Decimal) error {
	if err := s.primary.UpdatePositionPrice(ctx, id, current, pnl, pnlPercent); err != nil {
		return err
	}
	s.rdb.Del(ctx, positionsKey)
	return nil
}

func (s *CachedStore) MarkPositionClosed(ctx context.Context, id string, exit, pnl, pnlPercent, volume decimal.Decimal) error {
	if err := s.primary.MarkPositionClosed(ctx, id, exit, pnl, pnlPercent, volume); err != nil {
		return err
	}
	s.rdb.Del(ctx, positionsKey)
	return nil
}

// --- History (write-invalidate, read-through list) ---

func (s *CachedStore) InsertHistory(ctx context.Context, e *model.HistoryEntry) error {
	if err := s.primary.InsertHistory(ctx, e); err != nil {
		return err
	}
	s.rdb.Del(ctx, historyKey)
	return nil
}

func (s *CachedStore) ListHistory(ctx context.Context) ([]model.HistoryEntry, error) {
	data, err := s.rdb.Get(ctx, historyKey).Bytes()
	if err == nil {
		var entries []model.HistoryEntry
		if json.Unmarshal(data, &entries) == nil {
			return entries, nil
		}
	}

	entries, err := s.primary.ListHistory(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(entries); err == nil {
		s.rdb.Set(ctx, historyKey, data, s.ttl)
	}
	return entries, nil
}

// --- Strategies (passthrough) ---

func (s *CachedStore) InsertStrategy(ctx context.Context, st *model.Strategy) error {
	return s.primary.InsertStrategy(ctx, st)
}

func (s *CachedStore) GetStrategy(ctx context.Context, id string) (*model.Strategy, error) {
	return s.primary.GetStrategy(ctx, id)
}

func (s *CachedStore) ListStrategies(ctx context.Context) ([]model.Strategy, error) {
	return s.primary.ListStrategies(ctx)
}

func (s *CachedStore) SetStrategyStatus(ctx context.Context, id, status string) error {
	return s.primary.SetStrategyStatus(ctx, id, status)
}

// --- Session ---

func (s *CachedStore) Reset(ctx context.Context) error {
	if err := s.primary.Reset(ctx); err != nil {
		return err
	}
	s.rdb.Del(ctx, positionsKey, historyKey)
	return nil
}
