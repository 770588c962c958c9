// File: pkg/app/app.go
package app

import (
	"context"
	"errors"
	"time"

	"github.com/Marianu08/trading-alg-rama01/dataprovider"
	"github.com/Marianu08/trading-alg-rama01/pkg/broker"
	"github.com/Marianu08/trading-alg-rama01/pkg/mapper"
	"github.com/Marianu08/trading-alg-rama01/portfolio"
	"github.com/Marianu08/trading-alg-rama01/utilities"
)

// cashKey is the settlement-currency balance entry; it funds buys and is
// never an Asset.
const cashKey = "ZEUR"

// Summarizer produces a human-readable briefing from the ranking output.
type Summarizer interface {
	Summarize(ctx context.Context, summary []portfolio.SummaryRow, deadAssets []string) (string, error)
}

// Result is the full analysis payload returned to clients.
type Result struct {
	Ranking         []portfolio.SummaryRow `json:"ranking"`
	DetailedRanking []portfolio.Row        `json:"detailed_ranking"`
	Trending        []portfolio.Row        `json:"trending"`
	LiveAssets      []string               `json:"live_assets"`
	DeathAssets     []string               `json:"death_assets"`
	SmartSummary    string                 `json:"smart_summary,omitempty"`
	CashEUR         float64                `json:"cash_eur"`
	StakedEUR       float64                `json:"staked_eur"`
	TotalValue      float64                `json:"total_value"`
}

// ErrorPayload is the error-only body returned when a run aborts; no partial
// tables ever accompany it.
func ErrorPayload(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}

// RunOptions are per-request overrides for one analysis run. Provider, when
// set, selects the smart-summary provider for this run only.
type RunOptions struct {
	ShowSmartSummary bool
	Provider         string
}

// App wires the data source, the historical cache, the advisor and the
// configuration into the analysis pipeline. One App serves many runs; each
// run builds its own Book.
type App struct {
	Cfg     *utilities.AppConfig
	Source  broker.DataSource
	Advisor Summarizer
	Logger  *utilities.Logger

	// NewSummarizer, when set, builds a provider-specific advisor for a run
	// that overrides the provider. Nil falls back to Advisor.
	NewSummarizer func(provider string) Summarizer
}

func New(cfg *utilities.AppConfig, source broker.DataSource, advisor Summarizer, logger *utilities.Logger) *App {
	return &App{Cfg: cfg, Source: source, Advisor: advisor, Logger: logger}
}

// Analyze rebuilds the whole portfolio state from the exchange and derives
// the ranking payload.
//
// A balance fetch failure aborts the run: every downstream figure would be
// wrong without the position base. Ticker, staking, trade-history and
// close-series failures degrade to missing metrics instead.
func (a *App) Analyze(ctx context.Context, opts RunOptions) (*Result, error) {
	started := time.Now()
	cfg := a.Cfg.Analysis
	norm := mapper.NewNormalizer(cfg.Currency, cfg.ExcludePairNames)
	book := portfolio.NewBook()

	balances, err := a.Source.FetchBalances(ctx)
	if err != nil {
		a.Logger.LogError("analyze: balance fetch failed: %v", err)
		return nil, err
	}

	res := &Result{}
	a.populateBook(book, norm, balances, res)

	a.attachOpenOrders(ctx, book, norm)
	a.attachTickers(ctx, book, norm)
	a.attachStakedValue(ctx, book, norm, res)

	watermark := a.loadCachedTrades(book, norm)
	a.mergeFreshTrades(ctx, book, norm, watermark)

	a.computeStatistics(ctx, book)

	rows := a.buildRows(book)
	summary, detailed := portfolio.ComputeRanking(rows, a.Cfg.Ranking, cfg.TrendThr)
	for i := range detailed {
		if asset := book.Get(detailed[i].Name); asset != nil {
			rank := detailed[i].Ranking
			asset.Ranking = &rank
		}
	}

	res.Ranking = summary
	res.DetailedRanking = detailed
	res.Trending = portfolio.TrendingRows(detailed, cfg.TrendThr)
	res.LiveAssets, res.DeathAssets = portfolio.SplitLiveDead(detailed)
	res.TotalValue = a.totalValue(book, norm, res)

	if summarizer := a.summarizerFor(opts); summarizer != nil {
		text, err := summarizer.Summarize(ctx, summary, res.DeathAssets)
		if err != nil {
			a.Logger.LogWarn("analyze: smart summary failed: %v", err)
			res.SmartSummary = err.Error()
		} else {
			res.SmartSummary = text
		}
	}

	a.Logger.LogInfo("analyze: run complete, %d assets ranked in %s", book.Len(), time.Since(started).Round(time.Millisecond))
	return res, nil
}

// populateBook registers one Asset per admitted balance entry and captures
// the cash position. Staking balance variants top up the share buckets of
// the pair they belong to.
func (a *App) populateBook(book *portfolio.Book, norm *mapper.Normalizer, balances map[string]float64, res *Result) {
	for raw, amount := range balances {
		if raw == cashKey {
			res.CashEUR = amount
			continue
		}
		if amount == 0 {
			continue
		}
		if norm.IsStaked(raw) {
			bare := norm.StripStakingSuffix(raw)
			name := norm.PairName(norm.StakedPairName(bare))
			if norm.IsExcluded(name) {
				continue
			}
			asset := book.Get(name)
			if asset == nil {
				asset = portfolio.NewAsset(name, raw)
				book.Add(asset)
			}
			if norm.IsAutoStaked(raw) {
				asset.AutostakedShares += amount
			} else {
				asset.StakedShares += amount
			}
			continue
		}
		name := norm.PairName(raw)
		if norm.IsExcluded(name) {
			a.Logger.LogDebug("analyze: balance entry %s excluded", name)
			continue
		}
		asset := book.Get(name)
		if asset == nil {
			asset = portfolio.NewAsset(name, raw)
			book.Add(asset)
		}
		asset.Shares += amount
	}
	a.Logger.LogInfo("analyze: %d assets from balances, cash %.2f", book.Len(), res.CashEUR)
}

func (a *App) attachOpenOrders(ctx context.Context, book *portfolio.Book, norm *mapper.Normalizer) {
	orders, err := a.Source.FetchOpenOrders(ctx)
	if err != nil {
		a.Logger.LogWarn("analyze: open orders unavailable, order aggregates stay zero: %v", err)
		return
	}
	attached := 0
	for _, o := range orders {
		name := norm.PairName(o.Pair)
		asset := book.Get(name)
		if asset == nil {
			// An open order on a pair with no balance still makes the pair
			// part of the portfolio.
			if norm.IsExcluded(name) {
				a.Logger.LogDebug("analyze: open order %s for excluded asset %s skipped", o.ID, name)
				continue
			}
			asset = portfolio.NewAsset(name, o.Pair)
			book.Add(asset)
		}
		asset.AddOrder(portfolio.Order{
			ID:        o.ID,
			Side:      o.Side,
			Shares:    o.Shares,
			Price:     o.Price,
			CreatedAt: o.OpenedAt,
		})
		attached++
	}
	a.Logger.LogDebug("analyze: %d open orders attached", attached)
}

func (a *App) attachTickers(ctx context.Context, book *portfolio.Book, norm *mapper.Normalizer) {
	names := book.Names()
	tickers, err := a.Source.FetchTickers(ctx, names)
	if err != nil {
		a.Logger.LogWarn("analyze: tickers unavailable, prices stay unknown: %v", err)
		return
	}
	for rawPair, td := range tickers {
		name := norm.PairName(rawPair)
		asset := book.Get(name)
		if asset == nil {
			a.Logger.LogDebug("analyze: ticker for unknown asset %s skipped", name)
			continue
		}
		price := td.LastPrice
		asset.Price = &price
	}
}

// attachStakedValue folds earn allocations into the portfolio: the
// settlement-currency allocation becomes the staked cash figure, every other
// allocation tops up the staked quantity of its asset.
func (a *App) attachStakedValue(ctx context.Context, book *portfolio.Book, norm *mapper.Normalizer, res *Result) {
	allocations, err := a.Source.FetchStakingAllocations(ctx)
	if err != nil {
		if errors.Is(err, broker.ErrNoData) {
			a.Logger.LogDebug("analyze: no staking allocations")
		} else {
			a.Logger.LogWarn("analyze: staking allocations unavailable: %v", err)
		}
		return
	}
	for _, alloc := range allocations {
		if alloc.NativeAsset == a.Cfg.Analysis.Currency {
			res.StakedEUR += alloc.AmountAllocated
			continue
		}
		name := norm.PairName(norm.StakedPairName(alloc.NativeAsset))
		asset := book.Get(name)
		if asset == nil {
			a.Logger.LogDebug("analyze: earn allocation for unknown asset %s skipped", name)
			continue
		}
		// Staking balance keys (".S", ".F") and earn allocations report the
		// same position, so only the quantity not already captured from the
		// balance variants is added.
		captured := asset.StakedShares + asset.AutostakedShares
		if alloc.AmountAllocated > captured {
			asset.StakedShares += alloc.AmountAllocated - captured
		}
	}
}

func (a *App) loadCachedTrades(book *portfolio.Book, norm *mapper.Normalizer) time.Time {
	if !a.Cfg.Analysis.UseTradeLog {
		return time.Time{}
	}
	watermark, err := dataprovider.LoadTradeLog(a.Cfg.TradeLog.Path, book, norm, a.Logger)
	if err != nil {
		a.Logger.LogWarn("analyze: trade log unusable, full history will be fetched: %v", err)
		return time.Time{}
	}
	return watermark
}

func (a *App) mergeFreshTrades(ctx context.Context, book *portfolio.Book, norm *mapper.Normalizer, watermark time.Time) {
	cfg := a.Cfg.Analysis
	pages, err := a.Source.FetchTradePages(ctx, cfg.Pages, cfg.RecordsPerPage)
	if err != nil {
		a.Logger.LogWarn("analyze: trade history unavailable, statistics use cached trades only: %v", err)
		return
	}
	mres := portfolio.MergeTradePages(book, pages, watermark, norm, a.Logger)
	a.Logger.LogInfo("analyze: merged %d fresh trades (%d unresolved, %d duplicates, early stop %t)",
		mres.Inserted, mres.Unresolved, mres.Duplicates, mres.StoppedEarly)

	if cfg.UseTradeLog && mres.Inserted > 0 {
		if err := dataprovider.SaveTradeLog(a.Cfg.TradeLog.Path, book, a.Logger); err != nil {
			a.Logger.LogWarn("analyze: trade log not persisted: %v", err)
		}
	}
}

func (a *App) computeStatistics(ctx context.Context, book *portfolio.Book) {
	cfg := a.Cfg.Analysis
	for _, asset := range book.All() {
		asset.ComputeTradeStats(cfg.BuyLimit)
		if !cfg.LoadClosePrices {
			continue
		}
		prices, volumes, err := a.Source.FetchHistoricalSeries(ctx, asset.Name)
		if err != nil {
			a.Logger.LogWarn("analyze: close series for %s unavailable, session averages stay null: %v", asset.Name, err)
			continue
		}
		asset.ClosePrices = prices
		asset.CloseVolumes = volumes
	}
}

// buildRows projects the book into the detailed ranking input, applying
// display rounding. Nullable metrics keep their nil through the rounding.
// Assets without a single trade never enter the ranking tables; they still
// count toward the portfolio total.
func (a *App) buildRows(book *portfolio.Book) []portfolio.Row {
	cfg := a.Cfg.Analysis
	prec := cfg.DisplayPrecision
	rows := make([]portfolio.Row, 0, book.Len())
	for _, asset := range book.All() {
		if len(asset.Trades) == 0 {
			continue
		}
		row := portfolio.Row{
			Name:           asset.Name,
			LastTrade:      asset.LatestTradeDate,
			OrdersBuyCount: asset.OrdersBuyCount,
			BuyLimit:       asset.BuyLimitReached(cfg),
			CurrPrice:      utilities.RoundPtr(asset.Price, prec),
			SellTrades:     asset.TradesSellCount,
			AvgPrice200:    utilities.RoundPtr(asset.AvgSessionPrice(200), prec),
			AvgPrice50:     utilities.RoundPtr(asset.AvgSessionPrice(50), prec),
			AvgPrice10:     utilities.RoundPtr(asset.AvgSessionPrice(10), prec),
			AvgVol200:      utilities.RoundPtr(asset.AvgSessionVolume(200), prec),
			AvgVol50:       utilities.RoundPtr(asset.AvgSessionVolume(50), prec),
			AvgVol10:       utilities.RoundPtr(asset.AvgSessionVolume(10), prec),
		}
		avgBuys := utilities.Round(asset.AvgBuys, prec)
		avgSells := utilities.Round(asset.AvgSells, prec)
		margin := utilities.Round(asset.MarginAmount, prec)
		row.AvgBuys = &avgBuys
		row.AvgSells = &avgSells
		row.MarginAmount = &margin
		if len(asset.ClosePrices) > 0 {
			expected := portfolio.CountSellsInRange(asset.ClosePrices, cfg.SellsInRangeWindow, cfg.BuyPercentage, cfg.SellPercentage)
			row.ExpectedSells = &expected
		}
		rows = append(rows, row)
	}
	return rows
}

// totalValue sums cash, staked settlement currency and every asset's market
// value, skipping names on the amount exclusion list.
func (a *App) totalValue(book *portfolio.Book, norm *mapper.Normalizer, res *Result) float64 {
	excluded := make(map[string]struct{}, len(a.Cfg.Analysis.ExcludeAmountNames))
	for _, name := range a.Cfg.Analysis.ExcludeAmountNames {
		excluded[norm.PairName(name)] = struct{}{}
	}
	total := res.CashEUR + res.StakedEUR
	for _, asset := range book.All() {
		if _, skip := excluded[asset.Name]; skip {
			continue
		}
		total += asset.Balance()
	}
	return utilities.Round(total, a.Cfg.Analysis.DisplayPrecision)
}

func (a *App) summarizerFor(opts RunOptions) Summarizer {
	if !a.Cfg.Advisor.Enabled {
		return nil
	}
	if !opts.ShowSmartSummary && !a.Cfg.Analysis.ShowSmartSummary {
		return nil
	}
	if opts.Provider != "" && a.NewSummarizer != nil {
		return a.NewSummarizer(opts.Provider)
	}
	return a.Advisor
}
