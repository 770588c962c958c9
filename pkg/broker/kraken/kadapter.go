// File: pkg/broker/kraken/kadapter.go
package kraken

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Marianu08/trading-alg-rama01/dataprovider"
	"github.com/Marianu08/trading-alg-rama01/pkg/broker"
	"github.com/Marianu08/trading-alg-rama01/utilities"
)

const dailyIntervalMinutes = 1440

// Adapter translates the Kraken REST client into the broker.DataSource
// contract the reconciliation engine consumes.
type Adapter struct {
	client *Client
	cache  *dataprovider.SQLiteCache
	logger *utilities.Logger
}

var _ broker.DataSource = (*Adapter)(nil)

func NewAdapter(client *Client, cache *dataprovider.SQLiteCache, logger *utilities.Logger) *Adapter {
	return &Adapter{client: client, cache: cache, logger: logger}
}

// FetchBalances returns the account balances keyed by Kraken's own asset
// spelling. Entries with an unparseable amount are skipped with a warning.
func (a *Adapter) FetchBalances(ctx context.Context) (map[string]float64, error) {
	raw, err := a.client.GetBalancesAPI(ctx)
	if err != nil {
		return nil, broker.NewProviderError("Balance", err)
	}
	balances := make(map[string]float64, len(raw))
	for asset, amountStr := range raw {
		amount, err := strconv.ParseFloat(amountStr, 64)
		if err != nil {
			a.logger.LogWarn("kraken: balance for %s not parseable (%q), skipped", asset, amountStr)
			continue
		}
		balances[asset] = amount
	}
	return balances, nil
}

// FetchOpenOrders returns all currently open orders, newest first.
func (a *Adapter) FetchOpenOrders(ctx context.Context) ([]broker.OpenOrder, error) {
	open, err := a.client.GetOpenOrdersAPI(ctx)
	if err != nil {
		return nil, broker.NewProviderError("OpenOrders", err)
	}
	orders := make([]broker.OpenOrder, 0, len(open))
	for txid, info := range open {
		shares, err := strconv.ParseFloat(info.Volume, 64)
		if err != nil {
			a.logger.LogWarn("kraken: open order %s has bad volume %q, skipped", txid, info.Volume)
			continue
		}
		price, err := strconv.ParseFloat(info.Descr.Price, 64)
		if err != nil {
			a.logger.LogWarn("kraken: open order %s has bad price %q, skipped", txid, info.Descr.Price)
			continue
		}
		orders = append(orders, broker.OpenOrder{
			ID:       txid,
			Pair:     info.Descr.Pair,
			Side:     info.Descr.Type,
			Shares:   shares,
			Price:    price,
			OpenedAt: time.Unix(int64(info.Opentm), 0),
		})
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].OpenedAt.After(orders[j].OpenedAt)
	})
	return orders, nil
}

// FetchTickers resolves the last traded price for the requested pairs in one
// round trip. The result keeps Kraken's raw pair spelling as key.
func (a *Adapter) FetchTickers(ctx context.Context, pairs []string) (map[string]broker.TickerData, error) {
	if len(pairs) == 0 {
		return map[string]broker.TickerData{}, nil
	}
	raw, err := a.client.GetTickersAPI(ctx, strings.ToLower(strings.Join(pairs, ",")))
	if err != nil {
		return nil, broker.NewProviderError("Ticker", err)
	}
	tickers := make(map[string]broker.TickerData, len(raw))
	for pair, info := range raw {
		if len(info.LastTradeClosed) == 0 {
			a.logger.LogWarn("kraken: ticker for %s has no last trade, skipped", pair)
			continue
		}
		last, err := strconv.ParseFloat(info.LastTradeClosed[0], 64)
		if err != nil {
			a.logger.LogWarn("kraken: ticker for %s has bad price %q, skipped", pair, info.LastTradeClosed[0])
			continue
		}
		tickers[pair] = broker.TickerData{Pair: pair, LastPrice: last}
	}
	return tickers, nil
}

// FetchStakingAllocations maps the earn allocations to staking positions.
// Returns ErrNoData when the account has none.
func (a *Adapter) FetchStakingAllocations(ctx context.Context) ([]broker.StakingAllocation, error) {
	items, err := a.client.GetEarnAllocationsAPI(ctx)
	if err != nil {
		return nil, broker.NewProviderError("Earn/Allocations", err)
	}
	if len(items) == 0 {
		return nil, broker.ErrNoData
	}
	allocations := make([]broker.StakingAllocation, 0, len(items))
	for _, item := range items {
		amount, err := strconv.ParseFloat(item.AmountAllocated.Total.Native, 64)
		if err != nil {
			a.logger.LogWarn("kraken: earn allocation for %s has bad amount %q, skipped",
				item.NativeAsset, item.AmountAllocated.Total.Native)
			continue
		}
		allocations = append(allocations, broker.StakingAllocation{
			NativeAsset:     item.NativeAsset,
			AmountAllocated: amount,
		})
	}
	return allocations, nil
}

// FetchTradePages pulls up to pageCount pages of the trade history, newest
// first. Kraken returns each page as an unordered map, so every page is
// sorted by execution time descending before it is handed to the merge
// engine. Fetching stops early on the first short page.
func (a *Adapter) FetchTradePages(ctx context.Context, pageCount, pageSize int) ([]broker.TradePage, error) {
	pages := make([]broker.TradePage, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		raw, err := a.client.GetTradesHistoryAPI(ctx, i*pageSize)
		if err != nil {
			return nil, broker.NewProviderError("TradesHistory", err)
		}
		if len(raw) == 0 {
			break
		}
		page := make(broker.TradePage, 0, len(raw))
		for txid, info := range raw {
			rec, err := tradeRecordFromInfo(info)
			if err != nil {
				a.logger.LogWarn("kraken: trade %s skipped: %v", txid, err)
				continue
			}
			page = append(page, rec)
		}
		sort.Slice(page, func(x, y int) bool {
			return page[x].ExecutedAt.After(page[y].ExecutedAt)
		})
		pages = append(pages, page)
		if len(raw) < pageSize {
			break
		}
	}
	return pages, nil
}

// FetchHistoricalSeries refreshes the cached daily close series for an asset
// from Kraken's OHLC endpoint and returns the full cached series, oldest
// first. When the refresh fails the cached series is served as-is; stale
// averages beat no averages.
func (a *Adapter) FetchHistoricalSeries(ctx context.Context, assetName string) ([]utilities.SessionPoint, []utilities.SessionPoint, error) {
	since, err := a.cache.LatestSessionTimestamp(assetName)
	if err != nil {
		return nil, nil, err
	}
	bars, err := a.client.GetOHLCAPI(ctx, assetName, dailyIntervalMinutes, since)
	if err != nil {
		a.logger.LogWarn("kraken: OHLC refresh for %s failed, serving cached series: %v", assetName, err)
		return a.cache.GetCloseSeries(assetName)
	}
	for _, bar := range bars {
		if len(bar) < 7 {
			continue
		}
		ts, err := utilities.ParseFloatFromInterface(bar[0])
		if err != nil {
			continue
		}
		closePrice, err := utilities.ParseFloatFromInterface(bar[4])
		if err != nil {
			continue
		}
		closeVolume, err := utilities.ParseFloatFromInterface(bar[6])
		if err != nil {
			continue
		}
		if err := a.cache.SaveSession(assetName, int64(ts), closePrice, closeVolume); err != nil {
			return nil, nil, err
		}
	}
	return a.cache.GetCloseSeries(assetName)
}

func tradeRecordFromInfo(info KrakenTradeInfo) (broker.TradeRecord, error) {
	shares, err := strconv.ParseFloat(info.Vol, 64)
	if err != nil {
		return broker.TradeRecord{}, err
	}
	price, err := strconv.ParseFloat(info.Price, 64)
	if err != nil {
		return broker.TradeRecord{}, err
	}
	amount, err := strconv.ParseFloat(info.Cost, 64)
	if err != nil {
		return broker.TradeRecord{}, err
	}
	return broker.TradeRecord{
		Pair:       info.Pair,
		Side:       info.Type,
		Shares:     shares,
		Price:      price,
		Amount:     amount,
		ExecutedAt: time.Unix(int64(info.Time), 0),
	}, nil
}
