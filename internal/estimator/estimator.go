// Package estimator computes projected volume and return figures for a
// configured market-making strategy.
//
// The model is deliberately simple: one quoting run turns over
// margin × leverage × TurnoverMultiplier of volume, the participation-rate
// class fixes how many runs fit in a day, and returns come from capturing
// half the configured spread plus the maker rebate on that volume.
//
// All monetary values use shopspring/decimal — never float64 for money.
// It is stateless — strategy parameters are passed as arguments, not stored.
package estimator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/paperdesk/sim-engine/internal/model"
)

var (
	// ErrUnknownParticipationRate is returned for rates outside
	// passive/neutral/aggressive.
	ErrUnknownParticipationRate = errors.New("estimator: unknown participation rate")

	// TurnoverMultiplier is the capital-turnover factor modeling one full
	// quoting cycle: volumePerRun = margin × leverage × TurnoverMultiplier.
	TurnoverMultiplier = decimal.NewFromInt(20)

	// MakerFeeRate is the maker rebate earned on traded volume. Rebates are
	// always additive to return.
	MakerFeeRate = decimal.NewFromFloat(0.0001)
)

// Cycle durations per participation-rate class, in minutes per run.
const (
	CycleAggressiveMinutes = 5
	CycleNeutralMinutes    = 15
	CyclePassiveMinutes    = 45

	minutesPerDay = 1440
)

// Projection holds the derived performance figures for one strategy
// configuration.
type Projection struct {
	VolumePerRun       decimal.Decimal `json:"volume_per_run"`
	MaxRunsPerDay      int             `json:"max_runs_per_day"`
	ActualRunsPerDay   int             `json:"actual_runs_per_day"`
	DailyVolume        decimal.Decimal `json:"daily_volume"`
	MakerFees          decimal.Decimal `json:"maker_fees"`
	SpreadProfit       decimal.Decimal `json:"spread_profit"`
	DailyReturn        decimal.Decimal `json:"daily_return"`
	DailyReturnPercent decimal.Decimal `json:"daily_return_percent"`
	MonthlyReturn      decimal.Decimal `json:"monthly_return"`
}

// CycleMinutes maps a participation-rate class to its fixed run duration.
func CycleMinutes(rate string) (int, error) {
	switch rate {
	case model.RateAggressive:
		return CycleAggressiveMinutes, nil
	case model.RateNeutral:
		return CycleNeutralMinutes, nil
	case model.RatePassive:
		return CyclePassiveMinutes, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownParticipationRate, rate)
	}
}

// Estimate computes the projection for a strategy configuration.
// Margin and leverage are assumed validated positive by the caller.
func Estimate(cfg model.StrategyConfig) (*Projection, error) {
	cycle, err := CycleMinutes(cfg.ParticipationRate)
	if err != nil {
		return nil, err
	}

	volumePerRun := cfg.Margin.Mul(cfg.Leverage).Mul(TurnoverMultiplier)

	maxRuns := minutesPerDay / cycle
	actualRuns := 1
	if cfg.AutoRepeat {
		actualRuns = cfg.MaxRuns
		if actualRuns > maxRuns {
			actualRuns = maxRuns
		}
		if actualRuns < 1 {
			actualRuns = 1
		}
	}

	dailyVolume := volumePerRun.Mul(decimal.NewFromInt(int64(actualRuns)))
	makerFees := dailyVolume.Mul(MakerFeeRate)

	// Quoting both sides captures half the configured spread on average.
	spreadProfit := dailyVolume.
		Mul(cfg.SpreadBps.Div(decimal.NewFromInt(10000))).
		Div(decimal.NewFromInt(2))

	dailyReturn := spreadProfit.Add(makerFees)

	dailyReturnPercent := decimal.Zero
	if cfg.Margin.IsPositive() {
		dailyReturnPercent = dailyReturn.Div(cfg.Margin).Mul(decimal.NewFromInt(100))
	}

	return &Projection{
		VolumePerRun:       volumePerRun,
		MaxRunsPerDay:      maxRuns,
		ActualRunsPerDay:   actualRuns,
		DailyVolume:        dailyVolume,
		MakerFees:          makerFees,
		SpreadProfit:       spreadProfit,
		DailyReturn:        dailyReturn,
		DailyReturnPercent: dailyReturnPercent,
		MonthlyReturn:      dailyReturn.Mul(decimal.NewFromInt(30)),
	}, nil
}
