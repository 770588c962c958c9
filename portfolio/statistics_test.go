package portfolio

import (
	"math"
	"testing"
	"time"

	"github.com/Marianu08/trading-alg-rama01/utilities"
)

func analysisDefaults() utilities.AnalysisConfig {
	cfg := utilities.AppConfig{}
	cfg.ApplyDefaults()
	return cfg.Analysis
}

func buyTrade(shares, price float64, daysAgo int) Trade {
	return Trade{
		Side:       utilities.OpBuy,
		Shares:     shares,
		Price:      price,
		Amount:     shares * price,
		ExecutedAt: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -daysAgo),
	}
}

func sellTrade(shares, price float64, daysAgo int) Trade {
	t := buyTrade(shares, price, daysAgo)
	t.Side = utilities.OpSell
	return t
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestComputeTradeStatsThreeBuys(t *testing.T) {
	cfg := analysisDefaults()
	asset := NewAsset("XBTEUR", "XXBT")
	asset.Shares = 0.3
	price := 53000.0
	asset.Price = &price

	// Newest first: day 3, day 2, day 1.
	asset.AppendTrade(buyTrade(0.1, 51000, 1))
	asset.AppendTrade(buyTrade(0.1, 52000, 2))
	asset.AppendTrade(buyTrade(0.1, 50000, 3))

	asset.ComputeTradeStats(cfg.BuyLimit)

	if !approxEqual(asset.LastBuysShares, 0.3, 1e-9) {
		t.Errorf("LastBuysShares = %v, want 0.3", asset.LastBuysShares)
	}
	if asset.ConsecutiveBuys != 3 {
		t.Errorf("ConsecutiveBuys = %d, want 3", asset.ConsecutiveBuys)
	}
	if !approxEqual(asset.AvgBuys, 51000, 1) {
		t.Errorf("AvgBuys = %v, want ~51000", asset.AvgBuys)
	}
	if asset.MarginAmount <= 0 {
		t.Errorf("MarginAmount = %v, want > 0", asset.MarginAmount)
	}
	if got := asset.BuyLimitReached(cfg); got != 0 {
		t.Errorf("BuyLimitReached = %d, want 0 (only 3 consecutive buys)", got)
	}
}

// The flag is the OR of two independent checks: the consecutive-buy count
// check (itself an AND with the recent-buy amount threshold) and the net
// open-order exposure check. Either alone must raise it.
func TestBuyLimitOrSemantics(t *testing.T) {
	cfg := analysisDefaults()

	// Count check only: a 4th consecutive buy with no open orders.
	countOnly := NewAsset("XBTEUR", "XXBT")
	price := 53000.0
	countOnly.Price = &price
	countOnly.AppendTrade(buyTrade(0.1, 54000, 1))
	countOnly.AppendTrade(buyTrade(0.1, 51000, 2))
	countOnly.AppendTrade(buyTrade(0.1, 52000, 3))
	countOnly.AppendTrade(buyTrade(0.1, 50000, 4))
	countOnly.ComputeTradeStats(cfg.BuyLimit)

	if countOnly.ConsecutiveBuys != 4 {
		t.Fatalf("ConsecutiveBuys = %d, want 4", countOnly.ConsecutiveBuys)
	}
	if !countOnly.CheckBuysLimit(cfg.BuyLimit, cfg.MinimumBuyAmount*float64(cfg.BuyLimit)) {
		t.Error("count-based check should fire: 4 buys and recent amount above minimum")
	}
	if countOnly.CheckBuysAmountLimit(cfg.BuyLimitAmount) {
		t.Error("amount-based check must not fire without open orders")
	}
	if got := countOnly.BuyLimitReached(cfg); got != 1 {
		t.Errorf("BuyLimitReached = %d, want 1 via count check", got)
	}

	// Amount check only: pending buy orders above the limit, trade count far
	// below BUY_LIMIT.
	amountOnly := NewAsset("SOLEUR", "SOL")
	amountOnly.AppendTrade(buyTrade(1, 100, 1))
	amountOnly.AddOrder(Order{ID: "o1", Side: utilities.OpBuy, Shares: 2, Price: 100})
	amountOnly.ComputeTradeStats(cfg.BuyLimit)
	if amountOnly.CheckBuysLimit(cfg.BuyLimit, cfg.MinimumBuyAmount*float64(cfg.BuyLimit)) {
		t.Error("count check must not fire with one buy")
	}
	if got := amountOnly.BuyLimitReached(cfg); got != 1 {
		t.Errorf("BuyLimitReached = %d, want 1 via amount check", got)
	}

	// Neither check: short buy run, open sell order offsets the buy order.
	neither := NewAsset("ADAEUR", "ADA")
	neither.AppendTrade(buyTrade(10, 1, 1))
	neither.AddOrder(Order{ID: "o2", Side: utilities.OpBuy, Shares: 100, Price: 1})
	neither.AddOrder(Order{ID: "o3", Side: utilities.OpSell, Shares: 100, Price: 1})
	neither.ComputeTradeStats(cfg.BuyLimit)
	if got := neither.BuyLimitReached(cfg); got != 0 {
		t.Errorf("BuyLimitReached = %d, want 0", got)
	}
}

func TestComputeTradeStatsRunStopsAtSell(t *testing.T) {
	cfg := analysisDefaults()
	asset := NewAsset("ADAEUR", "ADA")

	asset.AppendTrade(buyTrade(1, 10, 1))
	asset.AppendTrade(buyTrade(1, 11, 2))
	asset.AppendTrade(sellTrade(1, 12, 3))
	asset.AppendTrade(buyTrade(1, 9, 4))

	asset.ComputeTradeStats(cfg.BuyLimit)

	if asset.ConsecutiveBuys != 2 {
		t.Errorf("ConsecutiveBuys = %d, want 2 (run stops at sell)", asset.ConsecutiveBuys)
	}
	if asset.TradesSellCount != 1 {
		t.Errorf("TradesSellCount = %d, want 1", asset.TradesSellCount)
	}
	if !approxEqual(asset.TradesBuyAmount, 30, 1e-9) {
		t.Errorf("TradesBuyAmount = %v, want 30", asset.TradesBuyAmount)
	}
	if !approxEqual(asset.TradesSellAmount, 12, 1e-9) {
		t.Errorf("TradesSellAmount = %v, want 12", asset.TradesSellAmount)
	}
}

func TestMarginZeroWithoutPrice(t *testing.T) {
	asset := NewAsset("ADAEUR", "ADA")
	asset.AppendTrade(buyTrade(1, 10, 1))
	asset.ComputeTradeStats(4)
	if asset.MarginAmount != 0 {
		t.Errorf("MarginAmount = %v, want 0 with no price", asset.MarginAmount)
	}
}

func TestAvgSessionNilOnEmptySeries(t *testing.T) {
	asset := NewAsset("ADAEUR", "ADA")
	if asset.AvgSessionPrice(10) != nil {
		t.Error("AvgSessionPrice must be nil with no series")
	}
	if asset.AvgSessionVolume(50) != nil {
		t.Error("AvgSessionVolume must be nil with no series")
	}
}

func TestAvgSessionClampsWindow(t *testing.T) {
	asset := NewAsset("ADAEUR", "ADA")
	asset.ClosePrices = Series{
		{Timestamp: 1, Value: 10},
		{Timestamp: 2, Value: 20},
		{Timestamp: 3, Value: 30},
	}
	got := asset.AvgSessionPrice(200)
	if got == nil {
		t.Fatal("expected non-nil average")
	}
	if !approxEqual(*got, 20, 1e-9) {
		t.Errorf("AvgSessionPrice(200) = %v, want 20", *got)
	}

	last2 := asset.AvgSessionPrice(2)
	if last2 == nil || !approxEqual(*last2, 25, 1e-9) {
		t.Errorf("AvgSessionPrice(2) = %v, want 25", last2)
	}
}

func TestCountSellsInRange(t *testing.T) {
	mkSeries := func(values ...float64) Series {
		s := make(Series, len(values))
		for i, v := range values {
			s[i] = utilities.SessionPoint{Timestamp: int64(i), Value: v}
		}
		return s
	}

	tests := []struct {
		name   string
		series Series
		want   int
	}{
		{"empty", nil, 0},
		{"flat", mkSeries(100, 100, 100), 0},
		{"one rally", mkSeries(100, 125, 110), 1},
		{"rally then reset rally", mkSeries(100, 125, 160), 2},
		{"dip resets reference", mkSeries(100, 75, 95), 1},
		{"dip without recovery", mkSeries(100, 75, 80), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountSellsInRange(tt.series, 200, 0.2, 0.2); got != tt.want {
				t.Errorf("CountSellsInRange = %d, want %d", got, tt.want)
			}
		})
	}
}
