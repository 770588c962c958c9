// File: portfolio/asset.go
package portfolio

import (
	"sort"
	"time"

	"github.com/Marianu08/trading-alg-rama01/utilities"
)

// Order is one currently open order. Immutable once constructed; the open
// order set is rebuilt from scratch every run.
type Order struct {
	ID        string
	Side      string // utilities.OpBuy or utilities.OpSell
	Shares    float64
	Price     float64
	CreatedAt time.Time
}

// Amount is the order's notional value.
func (o Order) Amount() float64 {
	return o.Shares * o.Price
}

// Trade is one historically executed trade. Immutable once constructed.
type Trade struct {
	Side       string
	Shares     float64
	Price      float64
	Amount     float64
	ExecutedAt time.Time
}

// Series is a time-indexed historical session series, ordered oldest first.
type Series []utilities.SessionPoint

// Asset aggregates everything known about one canonical tradable pair:
// balances, staking quantities, open-order aggregates, the full trade
// history (newest first) and the statistics derived from it.
type Asset struct {
	Name             string
	OriginalName     string
	Shares           float64
	AutostakedShares float64
	StakedShares     float64
	Price            *float64 // nil until a ticker is seen

	Orders           []Order
	OrdersBuyAmount  float64
	OrdersSellAmount float64
	OrdersBuyCount   int
	OrdersSellCount  int

	Trades       []Trade // newest first
	ClosePrices  Series
	CloseVolumes Series

	Ranking *int // assigned by the ranking engine

	// Derived by ComputeTradeStats.
	LatestTradeDate  time.Time
	ConsecutiveBuys  int
	LastBuysShares   float64
	LastBuysAvgPrice float64
	AvgBuys          float64
	AvgSells         float64
	TradesBuyAmount  float64
	TradesSellAmount float64
	TradesSellCount  int
	MarginAmount     float64
}

// NewAsset creates an empty Asset record.
func NewAsset(name, originalName string) *Asset {
	return &Asset{Name: name, OriginalName: originalName}
}

// HeldShares is the total held quantity including staking programs.
func (a *Asset) HeldShares() float64 {
	return a.Shares + a.AutostakedShares + a.StakedShares
}

// Balance values the total held quantity at the latest price; zero while no
// ticker has been seen.
func (a *Asset) Balance() float64 {
	if a.Price == nil {
		return 0
	}
	return a.HeldShares() * *a.Price
}

// AddOrder appends an open order and updates the per-side aggregates.
func (a *Asset) AddOrder(order Order) {
	a.Orders = append(a.Orders, order)
	if order.Side == utilities.OpBuy {
		a.OrdersBuyAmount += order.Amount()
		a.OrdersBuyCount++
	} else {
		a.OrdersSellAmount += order.Amount()
		a.OrdersSellCount++
	}
}

// AppendTrade adds a trade at the tail of the history. The caller feeds
// trades newest-first, so appending preserves the storage order.
func (a *Asset) AppendTrade(trade Trade) {
	a.Trades = append(a.Trades, trade)
}

// PrependTrades puts freshly merged trades (already newest-first) in front
// of the cached history.
func (a *Asset) PrependTrades(fresh []Trade) {
	if len(fresh) == 0 {
		return
	}
	a.Trades = append(fresh, a.Trades...)
}

// SortTradesNewestFirst restores the storage invariant after a bulk load.
func (a *Asset) SortTradesNewestFirst() {
	sort.SliceStable(a.Trades, func(i, j int) bool {
		return a.Trades[i].ExecutedAt.After(a.Trades[j].ExecutedAt)
	})
}

// Book is the per-run asset state store: a typed registry from canonical
// pair name to Asset. It is owned by exactly one analysis run.
type Book struct {
	assets map[string]*Asset
}

// NewBook creates an empty asset store.
func NewBook() *Book {
	return &Book{assets: make(map[string]*Asset)}
}

// Add registers an asset under its canonical name. Existing entries are
// kept; the first registration wins (canonicalization is injective over the
// admitted names, so a second registration is the same asset seen through
// another source).
func (b *Book) Add(asset *Asset) {
	if _, exists := b.assets[asset.Name]; !exists {
		b.assets[asset.Name] = asset
	}
}

// Get returns the asset registered under the canonical name, or nil.
func (b *Book) Get(name string) *Asset {
	return b.assets[name]
}

// Len returns the number of registered assets.
func (b *Book) Len() int {
	return len(b.assets)
}

// Names returns all canonical names in deterministic (ascending) order.
func (b *Book) Names() []string {
	names := make([]string, 0, len(b.assets))
	for name := range b.assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All iterates the assets in deterministic name order.
func (b *Book) All() []*Asset {
	names := b.Names()
	assets := make([]*Asset, 0, len(names))
	for _, name := range names {
		assets = append(assets, b.assets[name])
	}
	return assets
}
