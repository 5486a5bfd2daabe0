package audit

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// normalized builds a holder whose UI amount is ui tokens at $1/token, so
// the USD value equals the UI amount.
func normalized(owner string, ui string) NormalizedHolder {
	amount := decimal.RequireFromString(ui)
	return NormalizedHolder{Owner: owner, UIAmount: amount, UsdValue: &amount, Tier: TierOf(&amount)}
}

func TestFilterEligible(t *testing.T) {
	unpriced := NormalizedHolder{Owner: "unpriced", UIAmount: decimal.NewFromInt(500)}
	holders := []NormalizedHolder{
		normalized("sub", "99.99"),
		normalized("floor", "100"),
		normalized("big", "300000"),
		unpriced,
	}

	eligible := FilterEligible(holders)
	require.Len(t, eligible, 2)
	assert.Equal(t, "floor", eligible[0].Owner)
	assert.Equal(t, "big", eligible[1].Owner)
}

func TestCountTiers(t *testing.T) {
	eligible := []NormalizedHolder{
		normalized("a", "150"),     // shrimp
		normalized("b", "2000"),    // fish
		normalized("c", "30000"),   // dolphin
		normalized("d", "120000"),  // shark
		normalized("e", "300000"),  // whale
		normalized("f", "400000"),  // whale
	}

	tc := CountTiers(eligible)
	assert.Equal(t, TierCounts{Shrimp: 1, Fish: 1, Dolphin: 1, Shark: 1, Whale: 2}, tc)
	assert.Equal(t, len(eligible), tc.Total())
}

func TestSumTopNFewerHoldersThanRank(t *testing.T) {
	// Three eligible holders: top10/top50/top100 all cover the full set,
	// not zero-padded.
	eligible := []NormalizedHolder{
		normalized("a", "100"),
		normalized("b", "200"),
		normalized("c", "300"),
	}

	topN := SumTopN(eligible)
	assert.True(t, topN.Top1.Equal(decimal.NewFromInt(300)))
	assert.True(t, topN.Top10.Equal(decimal.NewFromInt(600)))
	assert.True(t, topN.Top50.Equal(decimal.NewFromInt(600)))
	assert.True(t, topN.Top100.Equal(decimal.NewFromInt(600)))
}

func TestSumTopNRankCutoffs(t *testing.T) {
	eligible := make([]NormalizedHolder, 0, 120)
	for i := 0; i < 120; i++ {
		// Distinct balances 1000, 999, ... so ranks are unambiguous.
		eligible = append(eligible, normalized(fmt.Sprintf("h%03d", i), decimal.NewFromInt(int64(1000-i)).String()))
	}

	topN := SumTopN(eligible)
	assert.True(t, topN.Top1.Equal(decimal.NewFromInt(1000)))
	// 1000 + 999 + ... + 991
	assert.True(t, topN.Top10.Equal(decimal.NewFromInt(9955)))
	sum := func(n int) int64 {
		var s int64
		for i := 0; i < n; i++ {
			s += int64(1000 - i)
		}
		return s
	}
	assert.True(t, topN.Top50.Equal(decimal.NewFromInt(sum(50))))
	assert.True(t, topN.Top100.Equal(decimal.NewFromInt(sum(100))))
}

func TestThreeHolderPipeline(t *testing.T) {
	// 500,000 / 50,000 / 50 ui at $1: one whale, one dolphin, one
	// untiered dust wallet.
	price := decimal.NewFromInt(1)
	raw := func(units int64) *big.Int { return new(big.Int).Mul(big.NewInt(units), big.NewInt(1_000_000)) }
	holders := []HolderBalance{
		{Owner: "w1", RawAmount: raw(500_000), Decimals: 6},
		{Owner: "w2", RawAmount: raw(50_000), Decimals: 6},
		{Owner: "w3", RawAmount: raw(50), Decimals: 6},
	}

	out, err := Normalize(holders, 6, &price)
	require.NoError(t, err)

	eligible := FilterEligible(out)
	require.Len(t, eligible, 2)

	tc := CountTiers(eligible)
	assert.Equal(t, TierCounts{Whale: 1, Dolphin: 1}, tc)

	topN := SumTopN(eligible)
	assert.True(t, topN.Top1.Equal(decimal.NewFromInt(500_000)))
	assert.True(t, topN.Top10.Equal(decimal.NewFromInt(550_000)))
}

func TestSortByUIAmountDescTiebreaks(t *testing.T) {
	holders := []NormalizedHolder{
		normalized("zeta", "500"),
		normalized("alpha", "500"),
		normalized("mid", "700"),
	}

	sorted := SortByUIAmountDesc(holders)
	require.Len(t, sorted, 3)
	assert.Equal(t, "mid", sorted[0].Owner)
	// Equal balances order by address so aggregation is deterministic.
	assert.Equal(t, "alpha", sorted[1].Owner)
	assert.Equal(t, "zeta", sorted[2].Owner)
}

func TestPercentOfSupplyZeroSupply(t *testing.T) {
	assert.True(t, PercentOfSupply(decimal.NewFromInt(100), decimal.Zero).IsZero())
	assert.True(t, PercentOfSupply(decimal.NewFromInt(100), decimal.NewFromInt(-5)).IsZero())

	got := PercentOfSupply(decimal.NewFromInt(25), decimal.NewFromInt(100))
	assert.True(t, got.Equal(decimal.RequireFromString("0.25")))
}

func TestSumTierSupplyFoldsSubFloorIntoShrimp(t *testing.T) {
	supply := decimal.NewFromInt(1000)
	holders := []NormalizedHolder{
		normalized("dust", "40"),     // priced but below the shrimp floor
		normalized("shrimp", "160"),  // shrimp
		normalized("whale", "300000"),
		{Owner: "unpriced", UIAmount: decimal.NewFromInt(500)}, // no price, excluded entirely
	}

	ts := SumTierSupply(holders, supply)
	// dust + shrimp both land in the shrimp bucket: (40+160)/1000
	assert.True(t, ts.Shrimp.Equal(decimal.RequireFromString("0.2")), "got %s", ts.Shrimp)
	assert.True(t, ts.Whale.Equal(decimal.NewFromInt(300)), "got %s", ts.Whale)
	assert.True(t, ts.Fish.IsZero())
	assert.True(t, ts.Dolphin.IsZero())
	assert.True(t, ts.Shark.IsZero())
}
