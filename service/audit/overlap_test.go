package audit

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// holderSet builds a HolderSet at $1/token from owner->USD pairs.
func holderSet(mint string, supplyUI int64, balances map[string]string) HolderSet {
	holders := make(map[string]NormalizedHolder, len(balances))
	for owner, ui := range balances {
		holders[owner] = normalized(owner, ui)
	}
	return HolderSet{
		Mint:     mint,
		Holders:  holders,
		Price:    decimal.NewFromInt(1),
		SupplyUI: decimal.NewFromInt(supplyUI),
	}
}

func TestFindPairOverlapPerLegFloor(t *testing.T) {
	a := holderSet("tokenA", 1_000_000, map[string]string{
		"both-big":  "150",
		"small-leg": "50", // below $100 on this leg
		"a-only":    "900",
	})
	b := holderSet("tokenB", 1_000_000, map[string]string{
		"both-big":  "200",
		"small-leg": "5000", // big here, but the other leg disqualifies
		"b-only":    "900",
	})

	entries := FindPairOverlap(a, b)
	require.Len(t, entries, 1)
	assert.Equal(t, "both-big", entries[0].Address)
	assert.True(t, entries[0].TotalUsd.Equal(decimal.NewFromInt(350)))
}

func TestFindPairOverlapSortsByCombinedUsd(t *testing.T) {
	a := holderSet("tokenA", 0, map[string]string{
		"rich":  "100000",
		"tied1": "500",
		"tied2": "500",
	})
	b := holderSet("tokenB", 0, map[string]string{
		"rich":  "100000",
		"tied1": "500",
		"tied2": "500",
	})

	entries := FindPairOverlap(a, b)
	require.Len(t, entries, 3)
	assert.Equal(t, "rich", entries[0].Address)
	assert.Equal(t, "tied1", entries[1].Address)
	assert.Equal(t, "tied2", entries[2].Address)
}

func TestFindTripleOverlap(t *testing.T) {
	a := holderSet("tokenA", 0, map[string]string{"all": "200", "ab": "200"})
	b := holderSet("tokenB", 0, map[string]string{"all": "300", "ab": "200"})
	c := holderSet("tokenC", 0, map[string]string{"all": "400"})

	entries := FindTripleOverlap(a, b, c)
	require.Len(t, entries, 1)
	assert.Equal(t, "all", entries[0].Address)
	assert.True(t, entries[0].TotalUsd.Equal(decimal.NewFromInt(900)))
	assert.Len(t, entries[0].PerToken, 3)
}

func TestSummarizeOverlapCombinedTier(t *testing.T) {
	// $150 + $200 = $350 combined: below the fish floor, lands in shrimp.
	a := holderSet("tokenA", 1000, map[string]string{"w": "150"})
	b := holderSet("tokenB", 2000, map[string]string{"w": "200"})

	entries := FindPairOverlap(a, b)
	group := SummarizeOverlap(entries, []HolderSet{a, b})

	assert.Equal(t, 1, group.WalletCount)
	assert.Equal(t, 1, group.TierCounts.Shrimp)
	assert.Equal(t, 0, group.TierCounts.Fish)

	// Group holds 150/1000 of tokenA and 200/2000 of tokenB.
	assert.True(t, group.PercentSupply["tokenA"].Equal(decimal.RequireFromString("0.15")))
	assert.True(t, group.PercentSupply["tokenB"].Equal(decimal.RequireFromString("0.1")))
}

func TestSummarizeOverlapHealthFlags(t *testing.T) {
	// 1 whale out of 10 wallets: whale_heavy at exactly the 10% threshold.
	balances := map[string]string{"whale": "300000"}
	for i := 0; i < 9; i++ {
		balances[fmt.Sprintf("shrimp%d", i)] = "120"
	}
	a := holderSet("tokenA", 0, balances)
	b := holderSet("tokenB", 0, balances)

	group := SummarizeOverlap(FindPairOverlap(a, b), []HolderSet{a, b})
	assert.Equal(t, 10, group.WalletCount)
	assert.True(t, group.Health.WhaleHeavy)
	// 9 of 10 wallets are shrimp tier: over the 60% shrimp_growth line.
	assert.True(t, group.Health.ShrimpGrowth)
}

func TestSummarizeOverlapEmpty(t *testing.T) {
	a := holderSet("tokenA", 100, map[string]string{"only-a": "500"})
	b := holderSet("tokenB", 100, map[string]string{"only-b": "500"})

	group := SummarizeOverlap(FindPairOverlap(a, b), []HolderSet{a, b})
	assert.Equal(t, 0, group.WalletCount)
	assert.False(t, group.Health.WhaleHeavy)
	assert.False(t, group.Health.ShrimpGrowth)
	assert.Empty(t, group.NotableWallets)
}

func TestSelectNotableLabelsFirstThenWhalesCapped(t *testing.T) {
	balances := make(map[string]string)
	for i := 0; i < 30; i++ {
		balances[fmt.Sprintf("whale%02d", i)] = "600000"
	}
	balances["labeled"] = "150"
	a := holderSet("tokenA", 0, balances)
	b := holderSet("tokenB", 0, balances)

	entries := FindPairOverlap(a, b)
	AttachLabels(entries, map[string]Label{
		"labeled": {Type: "FUND", Label: "Known Fund"},
	})

	group := SummarizeOverlap(entries, []HolderSet{a, b})
	require.Len(t, group.NotableWallets, 20)

	// The labeled wallet leads despite its tiny combined value.
	assert.Equal(t, "labeled", group.NotableWallets[0].Address)
	require.NotNil(t, group.NotableWallets[0].Label)
	assert.Equal(t, "Known Fund", *group.NotableWallets[0].Label)
	assert.Equal(t, "shrimp", group.NotableWallets[0].Tier)

	for _, nw := range group.NotableWallets[1:] {
		assert.Equal(t, "whale", nw.Tier)
		assert.Nil(t, nw.Label)
	}
}
