// Package model defines the core domain types shared across the simulation
// engine. All monetary values use shopspring/decimal — never float64 for
// money. Fill percentages are float64 because they are ratios, not money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order side.
const (
	SideLong  = "long"
	SideShort = "short"
	SideCarry = "carry" // paired long+short legs across two exchanges
)

// Order lifecycle status.
const (
	OrderPending    = "pending"
	OrderInProgress = "in-progress"
	OrderFilled     = "filled"
	OrderCancelled  = "cancelled"
)

// Order origination source. The fill simulator draws its timing
// distributions from this field.
const (
	SourceAggregator  = "aggregator"
	SourceCarry       = "carry"
	SourceMarketMaker = "market-maker"
)

// Position status.
const (
	PositionOpen   = "open"
	PositionClosed = "closed"
)

// History entry types.
const (
	HistoryTrade      = "trade"
	HistoryDeposit    = "deposit"
	HistoryWithdrawal = "withdrawal"
)

// Strategy lifecycle status. Transitions are forward-only:
// running → paused|completed|stopped, all terminal for an instance.
const (
	StrategyRunning   = "running"
	StrategyPaused    = "paused"
	StrategyCompleted = "completed"
	StrategyStopped   = "stopped"
)

// Participation-rate classes map to fixed quoting cycle durations.
const (
	RatePassive    = "passive"
	RateNeutral    = "neutral"
	RateAggressive = "aggressive"
)

// CarryLeg is one side of a carry trade: an instrument and size on a
// specific exchange.
type CarryLeg struct {
	Token    string          `json:"token"`
	Exchange string          `json:"exchange"`
	Size     decimal.Decimal `json:"size"`
}

// CarryLegs pairs the long and short legs executed as one logical unit.
type CarryLegs struct {
	Long  CarryLeg `json:"long"`
	Short CarryLeg `json:"short"`
}

// Order is a request to acquire or release exposure. The fill simulator is
// the only writer of Filled/Status after creation; an explicit cancel
// command may set Status to cancelled at any point before terminal.
type Order struct {
	ID       string          `json:"id" db:"id"`
	Token    string          `json:"token" db:"token"`
	Exchange string          `json:"exchange" db:"exchange"`
	Side     string          `json:"side" db:"side"`
	Size     decimal.Decimal `json:"size" db:"size"`
	Price    decimal.Decimal `json:"price" db:"price"`   // reference price at submission
	Filled   float64         `json:"filled" db:"filled"` // 0–100, monotone while active
	Status   string          `json:"status" db:"status"`
	Source   string          `json:"source" db:"source"`
	Legs     *CarryLegs      `json:"legs,omitempty" db:"legs"` // set when Side == carry
	Created  time.Time       `json:"created_at" db:"created_at"`
}

// Terminal reports whether the order can no longer change.
func (o *Order) Terminal() bool {
	return o.Status == OrderFilled || o.Status == OrderCancelled
}

// Position is realized exposure resulting from an order reaching execution.
type Position struct {
	ID           string          `json:"id" db:"id"`
	Token        string          `json:"token" db:"token"`
	Exchange     string          `json:"exchange" db:"exchange"`
	Side         string          `json:"side" db:"side"`
	Size         decimal.Decimal `json:"size" db:"size"`
	EntryPrice   decimal.Decimal `json:"entry_price" db:"entry_price"`
	CurrentPrice decimal.Decimal `json:"current_price" db:"current_price"`
	PnL          decimal.Decimal `json:"pnl" db:"pnl"`
	PnLPercent   decimal.Decimal `json:"pnl_percent" db:"pnl_percent"`
	Status       string          `json:"status" db:"status"`
	Leverage     decimal.Decimal `json:"leverage" db:"leverage"` // defaults to 1
	// Volume overrides notional when set (margin × leverage turnover for
	// strategy positions, where leveraged turnover ≠ raw notional).
	Volume  decimal.Decimal `json:"volume" db:"volume"`
	Created time.Time       `json:"created_at" db:"created_at"`
}

// DirectionSign returns +1 for long exposure and -1 for short.
func (p *Position) DirectionSign() decimal.Decimal {
	if p.Side == SideShort {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// ExecutionDetail carries the paired buy/sell legs for multi-leg history
// records (carry fills).
type ExecutionDetail struct {
	BuyExchange  string          `json:"buy_exchange"`
	SellExchange string          `json:"sell_exchange"`
	BuySize      decimal.Decimal `json:"buy_size"`
	SellSize     decimal.Decimal `json:"sell_size"`
}

// HistoryEntry is an immutable audit record. Once created, these are never
// modified or deleted for the lifetime of the session.
type HistoryEntry struct {
	ID        string           `json:"id" db:"id"`
	Type      string           `json:"type" db:"type"` // trade, deposit, withdrawal
	Action    string           `json:"action" db:"action"`
	Amount    decimal.Decimal  `json:"amount" db:"amount"`
	Token     string           `json:"token,omitempty" db:"token"`
	Exchange  string           `json:"exchange,omitempty" db:"exchange"`
	Status    string           `json:"status" db:"status"`
	PnL       *decimal.Decimal `json:"pnl,omitempty" db:"pnl"`
	Volume    decimal.Decimal  `json:"volume" db:"volume"`
	Source    string           `json:"source" db:"source"`
	Detail    *ExecutionDetail `json:"detail,omitempty" db:"detail"`
	Timestamp time.Time        `json:"timestamp" db:"timestamp"`
}

// StrategyConfig is the user-supplied part of a market-making strategy.
type StrategyConfig struct {
	Exchange          string          `json:"exchange"`
	Pair              string          `json:"pair"` // BASE/QUOTE
	Margin            decimal.Decimal `json:"margin"`
	Leverage          decimal.Decimal `json:"leverage"`
	SpreadBps         decimal.Decimal `json:"spread_bps"`
	MinSpreadBps      decimal.Decimal `json:"min_spread_bps"`
	OrderLevels       int             `json:"order_levels"`
	OrderAmount       decimal.Decimal `json:"order_amount"` // per-order size in quote currency
	RefreshSeconds    int             `json:"refresh_seconds"`
	InventorySkew     decimal.Decimal `json:"inventory_skew"`
	StopLossPercent   decimal.Decimal `json:"stop_loss_percent"`
	TakeProfitPercent decimal.Decimal `json:"take_profit_percent"`
	ParticipationRate string          `json:"participation_rate"` // passive, neutral, aggressive
	AutoRepeat        bool            `json:"auto_repeat"`
	MaxRuns           int             `json:"max_runs"`
	PnLToleranceGate  bool            `json:"pnl_tolerance_gate"`
	TolerancePercent  decimal.Decimal `json:"tolerance_percent"`
}

// Strategy is a deployed market-making strategy instance plus its runtime
// accounting. A stopped instance is never resurrected; redeploying creates
// a new instance with a new ID.
type Strategy struct {
	ID            string          `json:"id" db:"id"`
	Config        StrategyConfig  `json:"config" db:"config"`
	Status        string          `json:"status" db:"status"`
	PnL           decimal.Decimal `json:"pnl" db:"pnl"`
	ROI           decimal.Decimal `json:"roi" db:"roi"`
	Volume        decimal.Decimal `json:"volume" db:"volume"`
	RunsCompleted int             `json:"runs_completed" db:"runs_completed"`
	Created       time.Time       `json:"created_at" db:"created_at"`
}
