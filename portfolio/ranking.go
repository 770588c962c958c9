// File: portfolio/ranking.go
package portfolio

import (
	"math"
	"sort"
	"time"

	"github.com/Marianu08/trading-alg-rama01/utilities"
)

// Session-average weights for the trend score, most recent window first.
var trendWeights = []struct {
	window int
	weight float64
}{
	{10, 0.5},
	{50, 0.3},
	{200, 0.2},
}

// Row is one asset's entry in the detailed ranking table. Column names in
// the JSON form follow the historical report layout.
type Row struct {
	Name           string    `json:"NAME"`
	LastTrade      time.Time `json:"LAST_TRADE"`
	OrdersBuyCount int       `json:"O_BUYS"`
	BuyLimit       int       `json:"BLR"`
	CurrPrice      *float64  `json:"CURR_PRICE"`
	AvgBuys        *float64  `json:"AVG_B"`
	AvgSells       *float64  `json:"AVG_S"`
	MarginAmount   *float64  `json:"MARGIN_A"`
	SellTrades     int       `json:"S_TRADES"`
	ExpectedSells  *int      `json:"X_TRADES"`
	AvgPrice200    *float64  `json:"AVG_PRICE_200"`
	AvgPrice50     *float64  `json:"AVG_PRICE_50"`
	AvgPrice10     *float64  `json:"AVG_PRICE_10"`
	AvgVol200      *float64  `json:"AVG_VOL_200"`
	AvgVol50       *float64  `json:"AVG_VOL_50"`
	AvgVol10       *float64  `json:"AVG_VOL_10"`

	// Derived by ComputeRanking.
	Trend   float64 `json:"TREND"`
	Score   float64 `json:"SCORE"`
	IBS     int     `json:"IBS"`
	Ranking int     `json:"RANKING"`
}

// SummaryRow is the condensed ranking table returned to clients.
type SummaryRow struct {
	Name         string    `json:"NAME"`
	LastTrade    time.Time `json:"LAST_TRADE"`
	Ranking      int       `json:"RANKING"`
	Trend        float64   `json:"TREND"`
	IBS          int       `json:"IBS"`
	BuyLimit     int       `json:"BLR"`
	CurrPrice    *float64  `json:"CURR_PRICE"`
	AvgBuys      *float64  `json:"AVG_B"`
	MarginAmount *float64  `json:"MARGIN_A"`
}

// ComputeRanking derives trend, score, live/dead status and a deterministic
// dense ranking for the given rows, returning the summary table and the
// detailed table (same order).
//
// The score is monotonic in margin and in trend; a buy-limit-reached asset
// is penalized and can never be classified live, so IBS=1 never coexists
// with a keep-buying restriction.
func ComputeRanking(rows []Row, cfg utilities.RankingConfig, trendThr float64) ([]SummaryRow, []Row) {
	ranked := make([]Row, len(rows))
	copy(ranked, rows)

	for i := range ranked {
		r := &ranked[i]
		r.Trend = trendScore(r.CurrPrice, r.AvgPrice10, r.AvgPrice50, r.AvgPrice200)
		margin := 0.0
		if r.MarginAmount != nil {
			margin = *r.MarginAmount
		}
		r.Score = cfg.MarginWeight*math.Tanh(margin/100) +
			cfg.TrendWeight*r.Trend -
			cfg.BLRPenalty*float64(r.BuyLimit)
		if r.BuyLimit == 0 && (margin > 0 || r.Trend >= trendThr) {
			r.IBS = 1
		} else {
			r.IBS = 0
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Name < ranked[j].Name
	})
	for i := range ranked {
		ranked[i].Ranking = i + 1
	}

	summary := make([]SummaryRow, len(ranked))
	for i, r := range ranked {
		summary[i] = SummaryRow{
			Name:         r.Name,
			LastTrade:    r.LastTrade,
			Ranking:      r.Ranking,
			Trend:        r.Trend,
			IBS:          r.IBS,
			BuyLimit:     r.BuyLimit,
			CurrPrice:    r.CurrPrice,
			AvgBuys:      r.AvgBuys,
			MarginAmount: r.MarginAmount,
		}
	}
	return summary, ranked
}

// TrendingRows filters the ranked rows down to those whose trend score
// reaches the threshold.
func TrendingRows(ranked []Row, trendThr float64) []Row {
	trending := make([]Row, 0)
	for _, r := range ranked {
		if r.Trend >= trendThr {
			trending = append(trending, r)
		}
	}
	return trending
}

// SplitLiveDead partitions the ranked assets into live (IBS=1) and dead
// (IBS=0) name lists, preserving ranking order.
func SplitLiveDead(ranked []Row) (live, dead []string) {
	live = make([]string, 0)
	dead = make([]string, 0)
	for _, r := range ranked {
		if r.IBS == 1 {
			live = append(live, r.Name)
		} else {
			dead = append(dead, r.Name)
		}
	}
	return live, dead
}

// trendScore summarizes how far the current price sits above the rolling
// session averages. Windows with a missing average are skipped and the
// remaining weights renormalized; with no usable window the trend is zero.
func trendScore(price, avg10, avg50, avg200 *float64) float64 {
	if price == nil {
		return 0
	}
	avgs := map[int]*float64{10: avg10, 50: avg50, 200: avg200}
	sum, weightSum := 0.0, 0.0
	for _, tw := range trendWeights {
		avg := avgs[tw.window]
		if avg == nil || *avg <= 0 {
			continue
		}
		sum += tw.weight * (*price / *avg - 1)
		weightSum += tw.weight
	}
	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}
