// File: portfolio/statistics.go
package portfolio

import (
	"github.com/Marianu08/trading-alg-rama01/utilities"
)

// ComputeTradeStats derives the per-asset trade statistics from the stored
// history (newest first): the contiguous leading run of buys capped at
// buyLimit, volume-weighted buy/sell averages, per-side totals and the
// unrealized margin at the current price.
func (a *Asset) ComputeTradeStats(buyLimit int) {
	if len(a.Trades) == 0 {
		return
	}
	a.LatestTradeDate = a.Trades[0].ExecutedAt

	var buyShares, buyAmount, sellShares, sellAmount float64
	var runShares, runAmount float64
	runCount := 0
	sellCount := 0
	inRun := true

	for _, t := range a.Trades {
		if t.Side == utilities.OpBuy {
			buyShares += t.Shares
			buyAmount += t.Amount
		} else {
			sellShares += t.Shares
			sellAmount += t.Amount
			sellCount++
		}
		if inRun {
			if t.Side == utilities.OpBuy && runCount < buyLimit {
				runCount++
				runShares += t.Shares
				runAmount += t.Amount
			} else {
				inRun = false
			}
		}
	}

	a.ConsecutiveBuys = runCount
	a.LastBuysShares = runShares
	if runShares > 0 {
		a.LastBuysAvgPrice = runAmount / runShares
	}
	if buyShares > 0 {
		a.AvgBuys = buyAmount / buyShares
	}
	if sellShares > 0 {
		a.AvgSells = sellAmount / sellShares
	}
	a.TradesBuyAmount = buyAmount
	a.TradesSellAmount = sellAmount
	a.TradesSellCount = sellCount

	if a.Price != nil && buyShares > 0 {
		a.MarginAmount = (*a.Price - a.AvgBuys) * a.HeldShares()
	} else {
		a.MarginAmount = 0
	}
}

// CheckBuysLimit reports whether the leading run of consecutive buys hit the
// configured count AND its accumulated amount reached the minimum. Both
// conditions must hold for the count-based check to fire.
func (a *Asset) CheckBuysLimit(limit int, minAmount float64) bool {
	lastBuysAmount := a.LastBuysShares * a.LastBuysAvgPrice
	return a.ConsecutiveBuys >= limit && lastBuysAmount >= minAmount
}

// CheckBuysAmountLimit reports whether the net amount committed in open
// orders (buy minus sell) exceeds the limit. Pending buy exposure counts
// against further accumulation even before the orders execute.
func (a *Asset) CheckBuysAmountLimit(limitAmount float64) bool {
	return a.OrdersBuyAmount-a.OrdersSellAmount > limitAmount
}

// BuyLimitReached combines the two checks per the configured limits: either
// one independently flags the asset.
func (a *Asset) BuyLimitReached(cfg utilities.AnalysisConfig) int {
	countReached := a.CheckBuysLimit(cfg.BuyLimit, cfg.MinimumBuyAmount*float64(cfg.BuyLimit))
	amountReached := a.CheckBuysAmountLimit(cfg.BuyLimitAmount)
	if countReached || amountReached {
		return 1
	}
	return 0
}

// AvgSessionPrice is the arithmetic mean of the last n session closes, nil
// when no price series is loaded. A missing metric must never collapse to
// zero: that would bias the ranking.
func (a *Asset) AvgSessionPrice(n int) *float64 {
	return avgLast(a.ClosePrices, n)
}

// AvgSessionVolume is the arithmetic mean of the last n session volumes,
// nil when no volume series is loaded.
func (a *Asset) AvgSessionVolume(n int) *float64 {
	return avgLast(a.CloseVolumes, n)
}

func avgLast(s Series, n int) *float64 {
	if len(s) == 0 {
		return nil
	}
	if n > len(s) {
		n = len(s)
	}
	sum := 0.0
	for _, p := range s[len(s)-n:] {
		sum += p.Value
	}
	avg := sum / float64(n)
	return &avg
}

// CountSellsInRange backtests a symmetric percentage band over the last
// `days` session closes: walking oldest to newest with a moving reference
// price, a close at or above ref*(1+sellPerc) counts one expected sell and
// resets the reference; a close at or below ref*(1-buyPerc) resets the
// reference downward without counting. The result is a signal count, not an
// executed action.
func CountSellsInRange(closePrices Series, days int, buyPerc, sellPerc float64) int {
	if len(closePrices) == 0 {
		return 0
	}
	window := closePrices
	if days < len(window) {
		window = window[len(window)-days:]
	}
	ref := window[0].Value
	count := 0
	for _, p := range window[1:] {
		switch {
		case ref > 0 && p.Value >= ref*(1+sellPerc):
			count++
			ref = p.Value
		case p.Value <= ref*(1-buyPerc):
			ref = p.Value
		}
	}
	return count
}
