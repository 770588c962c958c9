// File: dataprovider/tradelog.go
package dataprovider

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Marianu08/trading-alg-rama01/pkg/mapper"
	"github.com/Marianu08/trading-alg-rama01/portfolio"
	"github.com/Marianu08/trading-alg-rama01/utilities"
)

// Trade log CSV layout: pair,side,shares,price,amount,executed_at(RFC3339).
const tradeLogColumns = 6

// LoadTradeLog reads the persisted trade log into the book and returns the
// watermark: the most recent cached trade timestamp across all assets. The
// trade merge engine uses it as the global fetch cutoff.
//
// A missing file is not an error; it returns a zero watermark, which means
// "fetch everything". Rows whose pair does not resolve to a known asset are
// skipped with a diagnostic.
func LoadTradeLog(path string, book *portfolio.Book, norm *mapper.Normalizer, logger *utilities.Logger) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.LogWarn("tradelog: %s not found, full history will be fetched", path)
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("tradelog: open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = tradeLogColumns
	records, err := reader.ReadAll()
	if err != nil {
		return time.Time{}, fmt.Errorf("tradelog: parse %s: %w", path, err)
	}

	var watermark time.Time
	touched := make(map[string]*portfolio.Asset)
	loaded, skipped := 0, 0
	for i, rec := range records {
		if i == 0 && rec[2] == "shares" {
			continue // header row
		}
		trade, err := parseTradeRow(rec)
		if err != nil {
			return time.Time{}, fmt.Errorf("tradelog: row %d: %w", i+1, err)
		}
		name := norm.PairName(rec[0])
		asset := book.Get(name)
		if asset == nil {
			logger.LogDebug("tradelog: row %d references unknown asset %s, skipped", i+1, name)
			skipped++
			continue
		}
		asset.AppendTrade(trade)
		touched[name] = asset
		if trade.ExecutedAt.After(watermark) {
			watermark = trade.ExecutedAt
		}
		loaded++
	}

	for _, asset := range touched {
		asset.SortTradesNewestFirst()
	}
	logger.LogInfo("tradelog: loaded %d cached trades for %d assets (%d skipped), watermark %s",
		loaded, len(touched), skipped, watermark)
	return watermark, nil
}

// SaveTradeLog writes every asset's full trade history back to the CSV log
// so the next run's watermark covers the trades merged in this one. The file
// is replaced atomically via a temp file.
func SaveTradeLog(path string, book *portfolio.Book, logger *utilities.Logger) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("tradelog: create %s: %w", tmp, err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"pair", "side", "shares", "price", "amount", "executed_at"}); err != nil {
		f.Close()
		return fmt.Errorf("tradelog: write header: %w", err)
	}
	written := 0
	for _, asset := range book.All() {
		for _, t := range asset.Trades {
			rec := []string{
				asset.Name,
				t.Side,
				strconv.FormatFloat(t.Shares, 'f', -1, 64),
				strconv.FormatFloat(t.Price, 'f', -1, 64),
				strconv.FormatFloat(t.Amount, 'f', -1, 64),
				t.ExecutedAt.Format(time.RFC3339),
			}
			if err := writer.Write(rec); err != nil {
				f.Close()
				return fmt.Errorf("tradelog: write row for %s: %w", asset.Name, err)
			}
			written++
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return fmt.Errorf("tradelog: flush %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("tradelog: close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("tradelog: replace %s: %w", path, err)
	}
	logger.LogInfo("tradelog: persisted %d trades to %s", written, path)
	return nil
}

func parseTradeRow(rec []string) (portfolio.Trade, error) {
	shares, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return portfolio.Trade{}, fmt.Errorf("bad shares %q: %w", rec[2], err)
	}
	price, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return portfolio.Trade{}, fmt.Errorf("bad price %q: %w", rec[3], err)
	}
	amount, err := strconv.ParseFloat(rec[4], 64)
	if err != nil {
		return portfolio.Trade{}, fmt.Errorf("bad amount %q: %w", rec[4], err)
	}
	executedAt, err := time.Parse(time.RFC3339, rec[5])
	if err != nil {
		return portfolio.Trade{}, fmt.Errorf("bad timestamp %q: %w", rec[5], err)
	}
	return portfolio.Trade{
		Side:       rec[1],
		Shares:     shares,
		Price:      price,
		Amount:     amount,
		ExecutedAt: executedAt.Truncate(time.Second),
	}, nil
}
