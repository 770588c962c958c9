// File: portfolio/merge.go
package portfolio

import (
	"time"

	"github.com/Marianu08/trading-alg-rama01/pkg/broker"
	"github.com/Marianu08/trading-alg-rama01/pkg/mapper"
	"github.com/Marianu08/trading-alg-rama01/utilities"
)

// MergeResult summarizes one merge pass for logging and tests.
type MergeResult struct {
	Inserted     int
	Unresolved   int
	Duplicates   int
	OutOfOrder   bool
	StoppedEarly bool
}

type tradeKey struct {
	asset  string
	t      int64
	side   string
	shares float64
	price  float64
}

// MergeTradePages combines freshly fetched trade pages with the cached
// per-asset histories already loaded into the book.
//
// The watermark is the most recent trade timestamp known from the persisted
// log across all assets (zero when no log exists). Pages are consumed in
// order and, because the provider contract guarantees a globally
// newest-first stream, processing stops at the first record at or before
// the watermark: everything past it is already cached.
//
// If the stream violates the newest-first precondition the engine logs a
// data-integrity warning and degrades to full deduplication by
// (asset, time, side, shares, price), with the early stop disabled.
//
// Afterwards every asset's history is newest-first with no record present
// twice: in the normal case the fetched trades sit in front of the cached
// ones, in the fallback case the combined history is re-sorted.
func MergeTradePages(book *Book, pages []broker.TradePage, watermark time.Time, norm *mapper.Normalizer, logger *utilities.Logger) MergeResult {
	var res MergeResult
	hasWatermark := !watermark.IsZero()
	fresh := make(map[string][]Trade)
	var seen map[tradeKey]struct{}
	var prev time.Time
	fallback := false

scan:
	for _, page := range pages {
		for _, rec := range page {
			if !fallback && !prev.IsZero() && rec.ExecutedAt.After(prev) {
				logger.LogWarn("merge: trade pages out of order (%s after %s), falling back to full deduplication", rec.ExecutedAt, prev)
				res.OutOfOrder = true
				fallback = true
				seen = seedSeen(book, fresh)
			}
			prev = rec.ExecutedAt

			name := norm.PairName(rec.Pair)
			asset := book.Get(name)
			if asset == nil {
				logger.LogDebug("merge: trade for unknown asset %s (raw pair %s) skipped", name, rec.Pair)
				res.Unresolved++
				continue
			}

			if !fallback && hasWatermark && !rec.ExecutedAt.After(watermark) {
				res.StoppedEarly = true
				break scan
			}

			trade := Trade{
				Side:       rec.Side,
				Shares:     rec.Shares,
				Price:      rec.Price,
				Amount:     rec.Amount,
				ExecutedAt: rec.ExecutedAt,
			}
			if fallback {
				key := keyOf(name, trade)
				if _, dup := seen[key]; dup {
					res.Duplicates++
					continue
				}
				seen[key] = struct{}{}
			}
			fresh[name] = append(fresh[name], trade)
			res.Inserted++
		}
	}

	for name, trades := range fresh {
		asset := book.Get(name)
		asset.PrependTrades(trades)
		if fallback {
			// Deduplicated trades may be older than cached ones, so the
			// prepend cannot guarantee the storage order on its own.
			asset.SortTradesNewestFirst()
		}
	}
	return res
}

// seedSeen records every trade already held (cached or merged so far) so the
// dedup fallback cannot re-insert any of them.
func seedSeen(book *Book, fresh map[string][]Trade) map[tradeKey]struct{} {
	seen := make(map[tradeKey]struct{})
	for _, asset := range book.All() {
		for _, t := range asset.Trades {
			seen[keyOf(asset.Name, t)] = struct{}{}
		}
	}
	for name, trades := range fresh {
		for _, t := range trades {
			seen[keyOf(name, t)] = struct{}{}
		}
	}
	return seen
}

func keyOf(asset string, t Trade) tradeKey {
	return tradeKey{asset: asset, t: t.ExecutedAt.Unix(), side: t.Side, shares: t.Shares, price: t.Price}
}
