package audit

import (
	"sort"

	"github.com/shopspring/decimal"
)

// FilterEligible returns the holders with a non-nil USD value at or above
// the Shrimp floor. These are the holders that participate in tier counts
// and top-N aggregation.
func FilterEligible(holders []NormalizedHolder) []NormalizedHolder {
	out := make([]NormalizedHolder, 0, len(holders))
	for _, h := range holders {
		if h.UsdValue != nil && h.UsdValue.GreaterThanOrEqual(ShrimpFloor) {
			out = append(out, h)
		}
	}
	return out
}

// CountTiers counts eligible holders per tier. The five counts sum to the
// number of holders with a USD value at or above the Shrimp floor.
func CountTiers(eligible []NormalizedHolder) TierCounts {
	var tc TierCounts
	for _, h := range eligible {
		switch h.Tier {
		case TierShrimp:
			tc.Shrimp++
		case TierFish:
			tc.Fish++
		case TierDolphin:
			tc.Dolphin++
		case TierShark:
			tc.Shark++
		case TierWhale:
			tc.Whale++
		}
	}
	return tc
}

// SortByUIAmountDesc sorts holders descending by UI amount, breaking ties by
// address string order so aggregation is deterministic. Returns a new slice.
func SortByUIAmountDesc(holders []NormalizedHolder) []NormalizedHolder {
	sorted := make([]NormalizedHolder, len(holders))
	copy(sorted, holders)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].UIAmount.Equal(sorted[j].UIAmount) {
			return sorted[i].UIAmount.GreaterThan(sorted[j].UIAmount)
		}
		return sorted[i].Owner < sorted[j].Owner
	})
	return sorted
}

// SumTopN sums the UI balances of the top 1/10/50/100 eligible holders.
// If fewer than K eligible holders exist, the sum covers all of them;
// no zero padding.
func SumTopN(eligible []NormalizedHolder) TopNBalances {
	sorted := SortByUIAmountDesc(eligible)

	sumTop := func(n int) decimal.Decimal {
		if n > len(sorted) {
			n = len(sorted)
		}
		sum := decimal.Zero
		for _, h := range sorted[:n] {
			sum = sum.Add(h.UIAmount)
		}
		return sum
	}

	return TopNBalances{
		Top1:   sumTop(1),
		Top10:  sumTop(10),
		Top50:  sumTop(50),
		Top100: sumTop(100),
	}
}

// PercentOfSupply divides a balance by the total UI supply, yielding zero
// when the supply is zero or unknown.
func PercentOfSupply(balance, totalSupplyUI decimal.Decimal) decimal.Decimal {
	if totalSupplyUI.IsZero() || totalSupplyUI.IsNegative() {
		return decimal.Zero
	}
	return balance.Div(totalSupplyUI)
}

// SumTierSupply sums UI balances per tier across all priced holders and
// divides by total supply. Priced holders below the Shrimp floor are folded
// into the Shrimp bucket, so supply shares can approach 100% even though
// tier counts exclude those holders. The dual basis is intentional.
func SumTierSupply(holders []NormalizedHolder, totalSupplyUI decimal.Decimal) TierSupply {
	var ts TierSupply
	for _, h := range holders {
		if h.UsdValue == nil {
			continue
		}
		switch h.Tier {
		case TierFish:
			ts.Fish = ts.Fish.Add(h.UIAmount)
		case TierDolphin:
			ts.Dolphin = ts.Dolphin.Add(h.UIAmount)
		case TierShark:
			ts.Shark = ts.Shark.Add(h.UIAmount)
		case TierWhale:
			ts.Whale = ts.Whale.Add(h.UIAmount)
		default:
			// Shrimp plus priced sub-$100 holders.
			ts.Shrimp = ts.Shrimp.Add(h.UIAmount)
		}
	}
	return TierSupply{
		Shrimp:  PercentOfSupply(ts.Shrimp, totalSupplyUI),
		Fish:    PercentOfSupply(ts.Fish, totalSupplyUI),
		Dolphin: PercentOfSupply(ts.Dolphin, totalSupplyUI),
		Shark:   PercentOfSupply(ts.Shark, totalSupplyUI),
		Whale:   PercentOfSupply(ts.Whale, totalSupplyUI),
	}
}

// TopNPercents holds top-N balances as fractions of total supply.
type TopNPercents struct {
	Top1   decimal.Decimal `json:"top1"`
	Top10  decimal.Decimal `json:"top10"`
	Top50  decimal.Decimal `json:"top50"`
	Top100 decimal.Decimal `json:"top100"`
}

// PercentsOfSupply converts top-N balance sums into supply fractions.
func (t TopNBalances) PercentsOfSupply(totalSupplyUI decimal.Decimal) TopNPercents {
	return TopNPercents{
		Top1:   PercentOfSupply(t.Top1, totalSupplyUI),
		Top10:  PercentOfSupply(t.Top10, totalSupplyUI),
		Top50:  PercentOfSupply(t.Top50, totalSupplyUI),
		Top100: PercentOfSupply(t.Top100, totalSupplyUI),
	}
}
