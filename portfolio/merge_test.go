package portfolio

import (
	"testing"
	"time"

	"github.com/Marianu08/trading-alg-rama01/pkg/broker"
	"github.com/Marianu08/trading-alg-rama01/pkg/mapper"
	"github.com/Marianu08/trading-alg-rama01/utilities"
)

var mergeTestBase = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *utilities.Logger {
	return utilities.NewLogger(utilities.Fatal)
}

func rec(pair, side string, minutesAgo int) broker.TradeRecord {
	return broker.TradeRecord{
		Pair:       pair,
		Side:       side,
		Shares:     1,
		Price:      100,
		Amount:     100,
		ExecutedAt: mergeTestBase.Add(-time.Duration(minutesAgo) * time.Minute),
	}
}

func bookWith(names ...string) *Book {
	book := NewBook()
	for _, name := range names {
		book.Add(NewAsset(name, name))
	}
	return book
}

func TestMergeStopsAtWatermark(t *testing.T) {
	norm := mapper.NewNormalizer("EUR", nil)
	book := bookWith("XBTEUR")

	// Cached history: trades at -30 and -40 minutes, watermark -30.
	asset := book.Get("XBTEUR")
	asset.AppendTrade(Trade{Side: utilities.OpBuy, Shares: 1, Price: 90, Amount: 90, ExecutedAt: mergeTestBase.Add(-30 * time.Minute)})
	asset.AppendTrade(Trade{Side: utilities.OpBuy, Shares: 1, Price: 80, Amount: 80, ExecutedAt: mergeTestBase.Add(-40 * time.Minute)})
	watermark := mergeTestBase.Add(-30 * time.Minute)

	// Fetched pages overlap the cache: -10, -20 are fresh, -30 and older are
	// already cached.
	pages := []broker.TradePage{
		{rec("XBTEUR", utilities.OpBuy, 10), rec("XBTEUR", utilities.OpSell, 20)},
		{rec("XBTEUR", utilities.OpBuy, 30), rec("XBTEUR", utilities.OpBuy, 40)},
	}

	res := MergeTradePages(book, pages, watermark, norm, testLogger())

	if !res.StoppedEarly {
		t.Error("expected early stop at watermark")
	}
	if res.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", res.Inserted)
	}
	if got := len(asset.Trades); got != 4 {
		t.Fatalf("history length = %d, want 4", got)
	}
	for i := 1; i < len(asset.Trades); i++ {
		if asset.Trades[i].ExecutedAt.After(asset.Trades[i-1].ExecutedAt) {
			t.Fatalf("history not newest-first at index %d", i)
		}
	}
}

func TestMergeWithoutWatermarkTakesEverything(t *testing.T) {
	norm := mapper.NewNormalizer("EUR", nil)
	book := bookWith("XBTEUR", "SOLEUR")

	pages := []broker.TradePage{
		{rec("XBTEUR", utilities.OpBuy, 10), rec("SOLEUR", utilities.OpBuy, 20)},
		{rec("XBTEUR", utilities.OpSell, 30)},
	}

	res := MergeTradePages(book, pages, time.Time{}, norm, testLogger())

	if res.StoppedEarly {
		t.Error("no watermark, merge must not stop early")
	}
	if res.Inserted != 3 {
		t.Errorf("Inserted = %d, want 3", res.Inserted)
	}
	if got := len(book.Get("XBTEUR").Trades); got != 2 {
		t.Errorf("XBTEUR history length = %d, want 2", got)
	}
	if got := len(book.Get("SOLEUR").Trades); got != 1 {
		t.Errorf("SOLEUR history length = %d, want 1", got)
	}
}

func TestMergeUnknownAssetSkipped(t *testing.T) {
	norm := mapper.NewNormalizer("EUR", nil)
	book := bookWith("XBTEUR")

	pages := []broker.TradePage{
		{rec("XBTEUR", utilities.OpBuy, 10), rec("DOTEUR", utilities.OpBuy, 20)},
	}

	res := MergeTradePages(book, pages, time.Time{}, norm, testLogger())

	if res.Unresolved != 1 {
		t.Errorf("Unresolved = %d, want 1", res.Unresolved)
	}
	if res.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", res.Inserted)
	}
}

func TestMergeOutOfOrderFallsBackToDedup(t *testing.T) {
	norm := mapper.NewNormalizer("EUR", nil)
	book := bookWith("XBTEUR")

	cached := Trade{Side: utilities.OpBuy, Shares: 1, Price: 100, Amount: 100, ExecutedAt: mergeTestBase.Add(-30 * time.Minute)}
	asset := book.Get("XBTEUR")
	asset.AppendTrade(cached)
	watermark := cached.ExecutedAt

	// Second page jumps back to newer trades than the first: the ordering
	// precondition is broken, so the early stop must be abandoned and the
	// cached -30m trade deduplicated instead of re-inserted.
	pages := []broker.TradePage{
		{rec("XBTEUR", utilities.OpBuy, 20)},
		{rec("XBTEUR", utilities.OpBuy, 10), rec("XBTEUR", utilities.OpBuy, 30), rec("XBTEUR", utilities.OpBuy, 40)},
	}

	res := MergeTradePages(book, pages, watermark, norm, testLogger())

	if !res.OutOfOrder {
		t.Fatal("expected out-of-order detection")
	}
	if res.StoppedEarly {
		t.Error("fallback must disable the early stop")
	}
	if res.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", res.Duplicates)
	}
	if res.Inserted != 3 {
		t.Errorf("Inserted = %d, want 3", res.Inserted)
	}
	if got := len(asset.Trades); got != 4 {
		t.Fatalf("history length = %d, want 4", got)
	}
	for i := 1; i < len(asset.Trades); i++ {
		if asset.Trades[i].ExecutedAt.After(asset.Trades[i-1].ExecutedAt) {
			t.Fatalf("history not newest-first at index %d", i)
		}
	}
}

func TestMergeOutOfOrderDedupsWithinStream(t *testing.T) {
	norm := mapper.NewNormalizer("EUR", nil)
	book := bookWith("XBTEUR")

	// The same trade delivered twice across pages, with the second page out
	// of order.
	dup := rec("XBTEUR", utilities.OpBuy, 20)
	pages := []broker.TradePage{
		{dup},
		{rec("XBTEUR", utilities.OpBuy, 10), dup},
	}

	res := MergeTradePages(book, pages, time.Time{}, norm, testLogger())

	if !res.OutOfOrder {
		t.Fatal("expected out-of-order detection")
	}
	if res.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", res.Duplicates)
	}
	if got := len(book.Get("XBTEUR").Trades); got != 2 {
		t.Errorf("history length = %d, want 2", got)
	}
}
