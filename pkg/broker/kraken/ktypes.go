package kraken

// TickerInfo is Kraken's per-pair ticker payload.
type TickerInfo struct {
	Ask               []string `json:"a"` // [price, wholeLotVolume, lotVolume]
	Bid               []string `json:"b"` // [price, wholeLotVolume, lotVolume]
	LastTradeClosed   []string `json:"c"` // [price, lotVolume]
	Volume            []string `json:"v"` // [today, last24Hours]
	VolumeWeightedAvg []string `json:"p"` // [today, last24Hours]
	Low               []string `json:"l"` // [today, last24Hours]
	High              []string `json:"h"` // [today, last24Hours]
	OpenPrice         string   `json:"o"`
}

// KrakenOrderDescription is part of Kraken's order info response.
type KrakenOrderDescription struct {
	Pair      string `json:"pair"`
	Type      string `json:"type"`      // "buy" or "sell"
	OrderType string `json:"ordertype"` // e.g. "limit", "market"
	Price     string `json:"price"`
	Price2    string `json:"price2"`
	Order     string `json:"order"` // human-readable order description
}

// KrakenOrderInfo represents Kraken's structure for an open order.
type KrakenOrderInfo struct {
	Status  string                 `json:"status"`
	Opentm  float64                `json:"opentm"`
	Descr   KrakenOrderDescription `json:"descr"`
	Volume  string                 `json:"vol"`
	VolExec string                 `json:"vol_exec"`
	Cost    string                 `json:"cost"`
	Price   string                 `json:"price"`
}

// KrakenTradeInfo is one executed trade from the TradesHistory endpoint.
type KrakenTradeInfo struct {
	Ordtxid string  `json:"ordertxid"`
	Pair    string  `json:"pair"`
	Type    string  `json:"type"`
	Price   string  `json:"price"`
	Cost    string  `json:"cost"`
	Fee     string  `json:"fee"`
	Vol     string  `json:"vol"`
	Time    float64 `json:"time"`
}

// EarnAllocation is one entry of the Earn/Allocations endpoint.
type EarnAllocation struct {
	NativeAsset     string `json:"native_asset"`
	AmountAllocated struct {
		Total struct {
			Native string `json:"native"`
		} `json:"total"`
	} `json:"amount_allocated"`
}
