// File: pkg/broker/brokers.go
package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Marianu08/trading-alg-rama01/utilities"
)

// ErrNoData marks a soft "no data" condition for a category (e.g. no earn
// allocations), distinct from a hard provider failure.
var ErrNoData = errors.New("provider returned no data")

// ProviderError wraps a failure of an external data source call, carrying
// the endpoint it came from.
type ProviderError struct {
	Endpoint string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Endpoint, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err as a ProviderError for the given endpoint.
func NewProviderError(endpoint string, err error) *ProviderError {
	return &ProviderError{Endpoint: endpoint, Err: err}
}

// OpenOrder is one currently open order as reported by the exchange.
type OpenOrder struct {
	ID       string
	Pair     string
	Side     string
	Shares   float64
	Price    float64
	OpenedAt time.Time
}

// TickerData carries the latest quoted price for a pair.
type TickerData struct {
	Pair      string
	LastPrice float64
}

// StakingAllocation is one earn/staking program allocation.
type StakingAllocation struct {
	NativeAsset     string
	AmountAllocated float64
}

// TradeRecord is one historical trade as fetched from the exchange.
type TradeRecord struct {
	Pair       string
	Side       string
	Shares     float64
	Price      float64
	Amount     float64
	ExecutedAt time.Time
}

// TradePage is one fetched batch of trade records.
//
// Precondition: records are ordered newest-first within a page, and pages
// are fetched newest-first, so the concatenation of all pages is globally
// non-increasing in execution time. The merge engine relies on this for its
// early-stop condition and falls back to full deduplication when the
// ordering is violated.
type TradePage []TradeRecord

// DataSource is the contract the reconciliation engine consumes. All calls
// are blocking, sequential round trips; the engine performs no retries of
// its own.
type DataSource interface {
	// FetchBalances returns the raw balance map (source identifier ->
	// quantity). A failure here is fatal to an analysis run.
	FetchBalances(ctx context.Context) (map[string]float64, error)

	// FetchOpenOrders returns all currently open orders.
	FetchOpenOrders(ctx context.Context) ([]OpenOrder, error)

	// FetchTickers returns ticker data keyed by the provider's own raw pair
	// spelling for the requested canonical pair names.
	FetchTickers(ctx context.Context, pairs []string) (map[string]TickerData, error)

	// FetchStakingAllocations returns current earn/staking allocations. May
	// return ErrNoData when the account has none.
	FetchStakingAllocations(ctx context.Context) ([]StakingAllocation, error)

	// FetchTradePages returns up to pageCount pages of pageSize trade
	// records, newest-first (see TradePage).
	FetchTradePages(ctx context.Context, pageCount, pageSize int) ([]TradePage, error)

	// FetchHistoricalSeries returns the daily close-price and close-volume
	// series for an asset, oldest first. Either may be empty.
	FetchHistoricalSeries(ctx context.Context, assetName string) ([]utilities.SessionPoint, []utilities.SessionPoint, error)
}
