package dataprovider

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Marianu08/trading-alg-rama01/pkg/mapper"
	"github.com/Marianu08/trading-alg-rama01/portfolio"
	"github.com/Marianu08/trading-alg-rama01/utilities"
)

func quietLogger() *utilities.Logger {
	return utilities.NewLogger(utilities.Fatal)
}

func TestLoadTradeLogMissingFile(t *testing.T) {
	book := portfolio.NewBook()
	norm := mapper.NewNormalizer("EUR", nil)

	watermark, err := LoadTradeLog(filepath.Join(t.TempDir(), "missing.csv"), book, norm, quietLogger())
	if err != nil {
		t.Fatalf("missing file must not be an error, got %v", err)
	}
	if !watermark.IsZero() {
		t.Errorf("watermark = %v, want zero", watermark)
	}
}

func TestLoadTradeLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	content := "pair,side,shares,price,amount,executed_at\n" +
		"XBTEUR,buy,0.1,50000,5000,2026-05-01T10:00:00Z\n" +
		"XBTEUR,sell,0.05,52000,2600,2026-05-03T10:00:00Z\n" +
		"SOLEUR,buy,2,140,280,2026-05-02T10:00:00Z\n" +
		"DOGEUR,buy,100,0.1,10,2026-05-04T10:00:00Z\n" // unknown asset, skipped
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	book := portfolio.NewBook()
	book.Add(portfolio.NewAsset("XBTEUR", "XXBT"))
	book.Add(portfolio.NewAsset("SOLEUR", "SOL"))
	norm := mapper.NewNormalizer("EUR", nil)

	watermark, err := LoadTradeLog(path, book, norm, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	// Watermark spans all loaded assets, not the skipped row's asset.
	want := time.Date(2026, 5, 3, 10, 0, 0, 0, time.UTC)
	if !watermark.Equal(want) {
		t.Errorf("watermark = %v, want %v", watermark, want)
	}

	xbt := book.Get("XBTEUR")
	if len(xbt.Trades) != 2 {
		t.Fatalf("XBTEUR trades = %d, want 2", len(xbt.Trades))
	}
	if xbt.Trades[0].Side != utilities.OpSell {
		t.Error("XBTEUR history must be newest-first after load")
	}
	if len(book.Get("SOLEUR").Trades) != 1 {
		t.Error("SOLEUR should have one trade")
	}
}

func TestLoadTradeLogBadRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	content := "XBTEUR,buy,notanumber,50000,5000,2026-05-01T10:00:00Z\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	book := portfolio.NewBook()
	book.Add(portfolio.NewAsset("XBTEUR", "XXBT"))
	norm := mapper.NewNormalizer("EUR", nil)

	if _, err := LoadTradeLog(path, book, norm, quietLogger()); err == nil {
		t.Error("expected error for unparseable row")
	}
}

func TestSaveTradeLogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	norm := mapper.NewNormalizer("EUR", nil)

	src := portfolio.NewBook()
	xbt := portfolio.NewAsset("XBTEUR", "XXBT")
	xbt.AppendTrade(portfolio.Trade{
		Side: utilities.OpSell, Shares: 0.05, Price: 52000, Amount: 2600,
		ExecutedAt: time.Date(2026, 5, 3, 10, 0, 0, 0, time.UTC),
	})
	xbt.AppendTrade(portfolio.Trade{
		Side: utilities.OpBuy, Shares: 0.1, Price: 50000, Amount: 5000,
		ExecutedAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	src.Add(xbt)

	if err := SaveTradeLog(path, src, quietLogger()); err != nil {
		t.Fatal(err)
	}

	dst := portfolio.NewBook()
	dst.Add(portfolio.NewAsset("XBTEUR", "XXBT"))
	watermark, err := LoadTradeLog(path, dst, norm, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	got := dst.Get("XBTEUR").Trades
	if len(got) != 2 {
		t.Fatalf("round trip trades = %d, want 2", len(got))
	}
	for i, orig := range xbt.Trades {
		if got[i].Side != orig.Side || got[i].Shares != orig.Shares ||
			got[i].Price != orig.Price || !got[i].ExecutedAt.Equal(orig.ExecutedAt) {
			t.Errorf("trade %d mismatch: got %+v, want %+v", i, got[i], orig)
		}
	}
	if !watermark.Equal(xbt.Trades[0].ExecutedAt) {
		t.Errorf("watermark = %v, want %v", watermark, xbt.Trades[0].ExecutedAt)
	}
}
