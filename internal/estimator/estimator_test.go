package estimator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/paperdesk/sim-engine/internal/model"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func baseConfig() model.StrategyConfig {
	return model.StrategyConfig{
		Exchange:          "binance",
		Pair:              "BTC/USDT",
		Margin:            d(50),
		Leverage:          d(10),
		SpreadBps:         d(10),
		ParticipationRate: model.RateNeutral,
		AutoRepeat:        false,
	}
}

func TestEstimate_SingleRun(t *testing.T) {
	proj, err := Estimate(baseConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// margin=50, leverage=10 → volumePerRun = 50×10×20 = 10000
	if !proj.VolumePerRun.Equal(d(10000)) {
		t.Errorf("expected volumePerRun=10000, got %s", proj.VolumePerRun)
	}
	if proj.ActualRunsPerDay != 1 {
		t.Errorf("auto-repeat off should give 1 run/day, got %d", proj.ActualRunsPerDay)
	}
	if !proj.DailyVolume.Equal(d(10000)) {
		t.Errorf("expected dailyVolume=10000, got %s", proj.DailyVolume)
	}
	if !proj.MakerFees.Equal(d(1)) {
		t.Errorf("expected makerFees=1.0, got %s", proj.MakerFees)
	}
	// 10000 × (10/10000) / 2 = 5.0
	if !proj.SpreadProfit.Equal(d(5)) {
		t.Errorf("expected spreadProfit=5.0, got %s", proj.SpreadProfit)
	}
	if !proj.DailyReturn.Equal(d(6)) {
		t.Errorf("expected dailyReturn=6.0, got %s", proj.DailyReturn)
	}
	if !proj.DailyReturnPercent.Equal(d(12)) {
		t.Errorf("expected dailyReturnPercent=12, got %s", proj.DailyReturnPercent)
	}
	if !proj.MonthlyReturn.Equal(d(180)) {
		t.Errorf("expected monthlyReturn=180, got %s", proj.MonthlyReturn)
	}
}

func TestEstimate_RunsPerDay(t *testing.T) {
	tests := []struct {
		name     string
		rate     string
		maxRuns  int
		expected int
	}{
		{"aggressive capped by day", model.RateAggressive, 1000, 288},
		{"neutral capped by day", model.RateNeutral, 1000, 96},
		{"passive capped by day", model.RatePassive, 1000, 32},
		{"capped by max runs", model.RateNeutral, 10, 10},
		{"zero max runs floors at one", model.RateNeutral, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.ParticipationRate = tt.rate
			cfg.AutoRepeat = true
			cfg.MaxRuns = tt.maxRuns

			proj, err := Estimate(cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if proj.ActualRunsPerDay != tt.expected {
				t.Errorf("expected %d runs/day, got %d", tt.expected, proj.ActualRunsPerDay)
			}
		})
	}
}

func TestEstimate_DailyVolumeScalesWithRuns(t *testing.T) {
	cfg := baseConfig()
	cfg.AutoRepeat = true
	cfg.MaxRuns = 3

	proj, err := Estimate(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !proj.DailyVolume.Equal(d(30000)) {
		t.Errorf("expected dailyVolume=30000, got %s", proj.DailyVolume)
	}
}

func TestEstimate_UnknownRate(t *testing.T) {
	cfg := baseConfig()
	cfg.ParticipationRate = "reckless"

	_, err := Estimate(cfg)
	if !errors.Is(err, ErrUnknownParticipationRate) {
		t.Errorf("expected ErrUnknownParticipationRate, got %v", err)
	}
}

func TestCycleMinutes(t *testing.T) {
	tests := []struct {
		rate    string
		minutes int
	}{
		{model.RateAggressive, 5},
		{model.RateNeutral, 15},
		{model.RatePassive, 45},
	}
	for _, tt := range tests {
		got, err := CycleMinutes(tt.rate)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.rate, err)
		}
		if got != tt.minutes {
			t.Errorf("%s: expected %d minutes, got %d", tt.rate, tt.minutes, got)
		}
	}
}
