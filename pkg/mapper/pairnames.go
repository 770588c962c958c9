// File: pkg/mapper/pairnames.go
package mapper

import "strings"

// Normalizer canonicalizes asset and pair identifiers coming from the three
// exchange surfaces (balance keys, open-order pair names, ticker names) into
// one canonical pair name keyed against the settlement currency.
//
// Kraken still reports several legacy spellings for the same asset: balance
// keys carry a doubled X marker ("XXBT"), ticker pairs interleave the Z
// currency marker ("XXBTZEUR"), and staking programs append suffix variants
// ("ATOM.S", "SOL.F"). All of them must resolve to the same Asset entry.
type Normalizer struct {
	Currency string
	Renames  map[string]string
	excluded map[string]struct{}
}

// DefaultRenames is the fixed table of historical renames and legacy
// Z-interleaved ticker spellings. It is applied before any structural rule.
var DefaultRenames = map[string]string{
	// Delisted tickers replaced in place.
	"MATICEUR": "POLEUR",
	"EOSEUR":   "AEUR",
	// Legacy Z-marker pair spellings. The doubled-X strip reduces "XXBTZEUR"
	// to "XBTZEUR", but assets whose code does not start with X keep a single
	// X marker ("XETHZEUR") and need a direct entry.
	"XBTZEUR":  "XBTEUR",
	"XETHZEUR": "ETHEUR",
	"XRPZEUR":  "XRPEUR",
	"XLMZEUR":  "XLMEUR",
	"XLTCZEUR": "LTCEUR",
	"XZECZEUR": "ZECEUR",
	"XDGZEUR":  "XDGEUR",
	"XMLNZEUR": "MLNEUR",
	"XETCZEUR": "ETCEUR",
	"XREPZEUR": "REPEUR",
	// Single-X legacy balance keys for assets whose canonical code has no X.
	"XETH": "ETH",
	"XLTC": "LTC",
	"XZEC": "ZEC",
	"XMLN": "MLN",
	"XETC": "ETC",
	"XREP": "REP",
}

// StakingPairNames maps a staking program's native asset to its canonical
// pair when the plain "<asset><currency>" concatenation is wrong.
var StakingPairNames = map[string]string{
	"BTC": "XBTEUR",
}

var stakingSuffixes = []string{".S", ".M", ".F", ".B"}

// NewNormalizer builds a Normalizer for the given settlement currency with
// the default rename table.
func NewNormalizer(currency string, excludePairNames []string) *Normalizer {
	excluded := make(map[string]struct{}, len(excludePairNames))
	for _, name := range excludePairNames {
		excluded[name] = struct{}{}
	}
	return &Normalizer{
		Currency: currency,
		Renames:  DefaultRenames,
		excluded: excluded,
	}
}

// PairName returns the canonical pair name for a raw source identifier.
// Rule order is significant:
//  1. the rename table is applied to the raw identifier,
//  2. a doubled leading X marker is stripped once ("XXBT" -> "XBT"),
//  3. the rename table is applied again to catch post-strip spellings,
//  4. the currency suffix is appended unless present or the identifier is a
//     staking variant.
//
// Identifiers that match no rule pass through unchanged; they may simply
// fail to resolve to a known asset later.
func (n *Normalizer) PairName(raw string) string {
	name := raw
	if fixed, ok := n.Renames[name]; ok {
		name = fixed
	}
	if len(name) > 2 && name[0] == 'X' && name[1] == 'X' {
		name = name[1:]
	}
	if fixed, ok := n.Renames[name]; ok {
		name = fixed
	}
	if !strings.HasSuffix(name, n.Currency) && !n.IsStaked(name) {
		name += n.Currency
	}
	return name
}

// IsStaked reports whether the identifier is any staking variant
// (".S", ".M", ".F", ".B", with or without a trailing currency suffix).
func (n *Normalizer) IsStaked(name string) bool {
	trimmed := strings.TrimSuffix(name, n.Currency)
	for _, suffix := range stakingSuffixes {
		if strings.HasSuffix(trimmed, suffix) {
			return true
		}
	}
	return false
}

// IsAutoStaked reports whether the identifier is an auto-staking (".F")
// variant. Auto-staked quantities attach to the non-staked asset.
func (n *Normalizer) IsAutoStaked(name string) bool {
	return strings.HasSuffix(strings.TrimSuffix(name, n.Currency), ".F")
}

// StripStakingSuffix removes the staking suffix (and a trailing currency
// marker, if any), returning the bare asset code.
func (n *Normalizer) StripStakingSuffix(name string) string {
	trimmed := strings.TrimSuffix(name, n.Currency)
	for _, suffix := range stakingSuffixes {
		if strings.HasSuffix(trimmed, suffix) {
			return strings.TrimSuffix(trimmed, suffix)
		}
	}
	return trimmed
}

// StakedPairName resolves a staking allocation's native asset to the
// canonical pair it tops up.
func (n *Normalizer) StakedPairName(nativeAsset string) string {
	if fixed, ok := StakingPairNames[nativeAsset]; ok {
		return fixed
	}
	return nativeAsset + n.Currency
}

// IsExcluded reports whether a canonical pair name is on the fixed
// exclusion list and must never become an Asset entry.
func (n *Normalizer) IsExcluded(name string) bool {
	_, ok := n.excluded[name]
	return ok
}
