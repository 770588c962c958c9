package mapper

import "testing"

func TestPairName(t *testing.T) {
	norm := NewNormalizer("EUR", nil)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"doubled X marker stripped", "XXBT", "XBTEUR"},
		{"doubled X with Z spelling", "XXBTZEUR", "XBTEUR"},
		{"legacy Z spelling single X", "XETHZEUR", "ETHEUR"},
		{"legacy balance key single X", "XETH", "ETHEUR"},
		{"legacy balance key doubled X", "XXDG", "XDGEUR"},
		{"single X kept", "XBT", "XBTEUR"},
		{"plain asset gains currency", "SOL", "SOLEUR"},
		{"canonical name unchanged", "SOLEUR", "SOLEUR"},
		{"delisted rename", "MATICEUR", "POLEUR"},
		{"delisted rename eos", "EOSEUR", "AEUR"},
		{"staked variant untouched", "ATOM.S", "ATOM.S"},
		{"auto staked variant untouched", "SOL.F", "SOL.F"},
		{"idempotent", "XBTEUR", "XBTEUR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := norm.PairName(tt.raw); got != tt.want {
				t.Errorf("PairName(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestStakingVariants(t *testing.T) {
	norm := NewNormalizer("EUR", nil)

	if !norm.IsStaked("ATOM.S") || !norm.IsStaked("DOT.SEUR") || !norm.IsStaked("SOL.F") {
		t.Error("expected staking variants to be detected")
	}
	if norm.IsStaked("ATOMEUR") {
		t.Error("plain pair must not count as staked")
	}
	if !norm.IsAutoStaked("SOL.F") || norm.IsAutoStaked("ATOM.S") {
		t.Error("only .F variants are auto-staked")
	}
	if got := norm.StripStakingSuffix("DOT.SEUR"); got != "DOT" {
		t.Errorf("StripStakingSuffix(DOT.SEUR) = %q, want DOT", got)
	}
	if got := norm.StakedPairName("BTC"); got != "XBTEUR" {
		t.Errorf("StakedPairName(BTC) = %q, want XBTEUR", got)
	}
	if got := norm.StakedPairName("ATOM"); got != "ATOMEUR" {
		t.Errorf("StakedPairName(ATOM) = %q, want ATOMEUR", got)
	}
}

func TestIsExcluded(t *testing.T) {
	norm := NewNormalizer("EUR", []string{"SHIBEUR", "LUNAEUR"})

	if !norm.IsExcluded("SHIBEUR") {
		t.Error("SHIBEUR should be excluded")
	}
	if norm.IsExcluded("XBTEUR") {
		t.Error("XBTEUR should not be excluded")
	}
}
