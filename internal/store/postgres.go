package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/paperdesk/sim-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL, for sessions that should
// survive a restart. All monetary values are stored as NUMERIC for exact
// decimal precision; fill percentages as DOUBLE PRECISION.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// --- Orders ---

func (s *PostgresStore) InsertOrder(ctx context.Context, o *model.Order) error {
	var legs []byte
	if o.Legs != nil {
		var err error
		legs, err = json.Marshal(o.Legs)
		if err != nil {
			return fmt.Errorf("marshal carry legs: %w", err)
		}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO orders (id, token, exchange, side, size, price, filled, status, source, legs, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7, $8, $9, $10, $11)`,
		o.ID, o.Token, o.Exchange, o.Side,
		o.Size.String(), o.Price.String(), o.Filled,
		o.Status, o.Source, legs, o.Created,
	)
	return err
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, token, exchange, side, size::TEXT, price::TEXT, filled, status, source, legs, created_at
		 FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *PostgresStore) ListOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, token, exchange, side, size::TEXT, price::TEXT, filled, status, source, legs, created_at
		 FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (s *PostgresStore) UpdateOrderFill(ctx context.Context, id string, filled float64, status string) error {
	// The status guard makes the write conditional: a cancellation landing
	// between the simulator's read and this write is never overwritten.
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET filled = $2, status = $3
		 WHERE id = $1 AND status NOT IN ($4, $5)`,
		id, filled, status, model.OrderFilled, model.OrderCancelled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetOrderStatus(ctx context.Context, id, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Positions ---

func (s *PostgresStore) InsertPosition(ctx context.Context, p *model.Position) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO positions (id, token, exchange, side, size, entry_price, current_price,
		                        pnl, pnl_percent, status, leverage, volume, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC,
		         $8::NUMERIC, $9::NUMERIC, $10, $11::NUMERIC, $12::NUMERIC, $13)`,
		p.ID, p.Token, p.Exchange, p.Side,
		p.Size.String(), p.EntryPrice.String(), p.CurrentPrice.String(),
		p.PnL.String(), p.PnLPercent.String(),
		p.Status, p.Leverage.String(), p.Volume.String(), p.Created,
	)
	return err
}

func (s *PostgresStore) GetPosition(ctx context.Context, id string) (*model.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, token, exchange, side, size::TEXT, entry_price::TEXT, current_price::TEXT,
		        pnl::TEXT, pnl_percent::TEXT, status, leverage::TEXT, volume::TEXT, created_at
		 FROM positions WHERE id = $1`, id)
	p, err := scanPosition(row)
	if err != nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *PostgresStore) ListPositions(ctx context.Context) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, token, exchange, side, size::TEXT, entry_price::TEXT, current_price::TEXT,
		        pnl::TEXT, pnl_percent::TEXT, status, leverage::TEXT, volume::TEXT, created_at
		 FROM positions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []model.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *p)
	}
	return positions, rows.Err()
}

func (s *PostgresStore) UpdatePositionPrice(ctx context.Context, id string, current, pnl, pnlPercent decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE positions
		 SET current_price = $2::NUMERIC, pnl = $3::NUMERIC, pnl_percent = $4::NUMERIC
		 WHERE id = $1`,
		id, current.String(), pnl.String(), pnlPercent.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MarkPositionClosed(ctx context.Context, id string, exit, pnl, pnlPercent, volume decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE positions
		 SET current_price = $2::NUMERIC, pnl = $3::NUMERIC, pnl_percent = $4::NUMERIC,
		     volume = $5::NUMERIC, status = $6
		 WHERE id = $1 AND status = $7`,
		id, exit.String(), pnl.String(), pnlPercent.String(), volume.String(),
		model.PositionClosed, model.PositionOpen)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- History ---

func (s *PostgresStore) InsertHistory(ctx context.Context, e *model.HistoryEntry) error {
	var pnl *string
	if e.PnL != nil {
		v := e.PnL.String()
		pnl = &v
	}
	var detail []byte
	if e.Detail != nil {
		var err error
		detail, err = json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshal execution detail: %w", err)
		}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO history_entries (id, type, action, amount, token, exchange, status, pnl, volume, source, detail, timestamp)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5, $6, $7, $8::NUMERIC, $9::NUMERIC, $10, $11, $12)`,
		e.ID, e.Type, e.Action, e.Amount.String(), e.Token, e.Exchange,
		e.Status, pnl, e.Volume.String(), e.Source, detail, e.Timestamp,
	)
	return err
}

func (s *PostgresStore) ListHistory(ctx context.Context) ([]model.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, type, action, amount::TEXT, token, exchange, status, pnl::TEXT, volume::TEXT, source, detail, timestamp
		 FROM history_entries ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		var amountS, volumeS string
		var pnlS *string
		var detail []byte

		if err := rows.Scan(&e.ID, &e.Type, &e.Action, &amountS, &e.Token, &e.Exchange,
			&e.Status, &pnlS, &volumeS, &e.Source, &detail, &e.Timestamp); err != nil {
			return nil, err
		}

		e.Amount, _ = decimal.NewFromString(amountS)
		e.Volume, _ = decimal.NewFromString(volumeS)
		if pnlS != nil {
			pnl, _ := decimal.NewFromString(*pnlS)
			e.PnL = &pnl
		}
		if len(detail) > 0 {
			var d model.ExecutionDetail
			if json.Unmarshal(detail, &d) == nil {
				e.Detail = &d
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Strategies ---

func (s *PostgresStore) InsertStrategy(ctx context.Context, st *model.Strategy) error {
	cfg, err := json.Marshal(st.Config)
	if err != nil {
		return fmt.Errorf("marshal strategy config: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO strategies (id, config, status, pnl, roi, volume, runs_completed, created_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7, $8)`,
		st.ID, cfg, st.Status,
		st.PnL.String(), st.ROI.String(), st.Volume.String(),
		st.RunsCompleted, st.Created,
	)
	return err
}

func (s *PostgresStore) GetStrategy(ctx context.Context, id string) (*model.Strategy, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, config, status, pnl::TEXT, roi::TEXT, volume::TEXT, runs_completed, created_at
		 FROM strategies WHERE id = $1`, id)
	st, err := scanStrategy(row)
	if err != nil {
		return nil, ErrNotFound
	}
	return st, nil
}

func (s *PostgresStore) ListStrategies(ctx context.Context) ([]model.Strategy, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, config, status, pnl::TEXT, roi::TEXT, volume::TEXT, runs_completed, created_at
		 FROM strategies ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var strategies []model.Strategy
	for rows.Next() {
		st, err := scanStrategy(rows)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, *st)
	}
	return strategies, rows.Err()
}

func (s *PostgresStore) SetStrategyStatus(ctx context.Context, id, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE strategies SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Session ---

func (s *PostgresStore) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`TRUNCATE orders, positions, history_entries, strategies`)
	return err
}

// --- Row scanning ---

// row is satisfied by both pgx.Row and pgx.Rows.
type row interface {
	Scan(dest ...any) error
}

func scanOrder(r row) (*model.Order, error) {
	var o model.Order
	var sizeS, priceS string
	var legs []byte

	if err := r.Scan(&o.ID, &o.Token, &o.Exchange, &o.Side,
		&sizeS, &priceS, &o.Filled, &o.Status, &o.Source, &legs, &o.Created); err != nil {
		return nil, err
	}
	o.Size, _ = decimal.NewFromString(sizeS)
	o.Price, _ = decimal.NewFromString(priceS)
	if len(legs) > 0 {
		var l model.CarryLegs
		if json.Unmarshal(legs, &l) == nil {
			o.Legs = &l
		}
	}
	return &o, nil
}

func scanPosition(r row) (*model.Position, error) {
	var p model.Position
	var sizeS, entryS, currentS, pnlS, pnlPctS, levS, volS string

	if err := r.Scan(&p.ID, &p.Token, &p.Exchange, &p.Side,
		&sizeS, &entryS, &currentS, &pnlS, &pnlPctS,
		&p.Status, &levS, &volS, &p.Created); err != nil {
		return nil, err
	}
	p.Size, _ = decimal.NewFromString(sizeS)
	p.EntryPrice, _ = decimal.NewFromString(entryS)
	p.CurrentPrice, _ = decimal.NewFromString(currentS)
	p.PnL, _ = decimal.NewFromString(pnlS)
	p.PnLPercent, _ = decimal.NewFromString(pnlPctS)
	p.Leverage, _ = decimal.NewFromString(levS)
	p.Volume, _ = decimal.NewFromString(volS)
	return &p, nil
}

func scanStrategy(r row) (*model.Strategy, error) {
	var st model.Strategy
	var cfg []byte
	var pnlS, roiS, volS string

	if err := r.Scan(&st.ID, &cfg, &st.Status,
		&pnlS, &roiS, &volS, &st.RunsCompleted, &st.Created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cfg, &st.Config); err != nil {
		return nil, fmt.Errorf("unmarshal strategy config: %w", err)
	}
	st.PnL, _ = decimal.NewFromString(pnlS)
	st.ROI, _ = decimal.NewFromString(roiS)
	st.Volume, _ = decimal.NewFromString(volS)
	return &st, nil
}
