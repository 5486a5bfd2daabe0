package audit

import "github.com/shopspring/decimal"

// Deltas holds arithmetic differences between the current aggregates and the
// most recent prior snapshot for the same token. A nil *Deltas means "no
// history", which is distinct from "no change".
type Deltas struct {
	Holders      int             `json:"holders"`
	Shrimp       int             `json:"shrimp"`
	Fish         int             `json:"fish"`
	Dolphin      int             `json:"dolphin"`
	Shark        int             `json:"shark"`
	Whale        int             `json:"whale"`
	Top10Percent decimal.Decimal `json:"top10_percent"`
}

// ComputeDeltas diffs current aggregates against the previous snapshot.
// prev must be the most recent snapshot strictly before the one just
// created; when prev is nil there is no history and the result is nil.
//
// The top10_percent delta divides the previous snapshot's top10 balance by
// the current total supply. When supply changed between snapshots the
// denominator drifts; this is a documented approximation carried over
// as-is, not corrected.
func ComputeDeltas(totalHolders int, tierCounts TierCounts, top10Percent decimal.Decimal, totalSupplyUI decimal.Decimal, prev *Snapshot) *Deltas {
	if prev == nil {
		return nil
	}

	prevTop10Percent := decimal.Zero
	if prev.PriceUsd != nil && !prev.TopNBalances.Top10.IsZero() {
		prevTop10Percent = PercentOfSupply(prev.TopNBalances.Top10, totalSupplyUI)
	}

	return &Deltas{
		Holders:      totalHolders - prev.TotalHolders,
		Shrimp:       tierCounts.Shrimp - prev.TierCounts.Shrimp,
		Fish:         tierCounts.Fish - prev.TierCounts.Fish,
		Dolphin:      tierCounts.Dolphin - prev.TierCounts.Dolphin,
		Shark:        tierCounts.Shark - prev.TierCounts.Shark,
		Whale:        tierCounts.Whale - prev.TierCounts.Whale,
		Top10Percent: top10Percent.Sub(prevTop10Percent),
	}
}
