package audit

import (
	"sort"

	"github.com/shopspring/decimal"
)

// HolderSet is one token's independently normalized and filtered holder map
// keyed by owner address, used for overlap analysis.
type HolderSet struct {
	Mint     string
	Holders  map[string]NormalizedHolder
	Price    decimal.Decimal
	SupplyUI decimal.Decimal
}

// overlapNotableLimit caps the notable-wallet list per overlap group.
const overlapNotableLimit = 20

// Health-flag thresholds: whale_heavy when whale-tier wallets make up at
// least 10% of a group, shrimp_growth when shrimp+fish make up at least 60%.
var (
	whaleHeavyRatio   = decimal.NewFromFloat(0.10)
	shrimpGrowthRatio = decimal.NewFromFloat(0.60)
)

// FindPairOverlap computes the wallets present in both holder sets. A wallet
// is included only when both legs carry at least $100 of value; this is
// stricter than single-token eligibility since each leg must independently
// qualify. Results are sorted descending by combined USD (address order
// breaks ties).
func FindPairOverlap(a, b HolderSet) []OverlapEntry {
	entries := make([]OverlapEntry, 0)
	for address, ha := range a.Holders {
		hb, ok := b.Holders[address]
		if !ok {
			continue
		}
		if ha.UsdValue == nil || hb.UsdValue == nil {
			continue
		}
		if ha.UsdValue.LessThan(ShrimpFloor) || hb.UsdValue.LessThan(ShrimpFloor) {
			continue
		}
		entries = append(entries, OverlapEntry{
			Address: address,
			PerToken: map[string]TokenPosition{
				a.Mint: {UIAmount: ha.UIAmount, UsdValue: *ha.UsdValue},
				b.Mint: {UIAmount: hb.UIAmount, UsdValue: *hb.UsdValue},
			},
			TotalUsd: ha.UsdValue.Add(*hb.UsdValue),
		})
	}
	sortOverlap(entries)
	return entries
}

// FindTripleOverlap computes the wallets present in all three holder sets
// with at least $100 of value in each leg. Combined USD sums all three legs.
func FindTripleOverlap(a, b, c HolderSet) []OverlapEntry {
	entries := make([]OverlapEntry, 0)
	for address, ha := range a.Holders {
		hb, okB := b.Holders[address]
		hc, okC := c.Holders[address]
		if !okB || !okC {
			continue
		}
		if ha.UsdValue == nil || hb.UsdValue == nil || hc.UsdValue == nil {
			continue
		}
		if ha.UsdValue.LessThan(ShrimpFloor) || hb.UsdValue.LessThan(ShrimpFloor) || hc.UsdValue.LessThan(ShrimpFloor) {
			continue
		}
		entries = append(entries, OverlapEntry{
			Address: address,
			PerToken: map[string]TokenPosition{
				a.Mint: {UIAmount: ha.UIAmount, UsdValue: *ha.UsdValue},
				b.Mint: {UIAmount: hb.UIAmount, UsdValue: *hb.UsdValue},
				c.Mint: {UIAmount: hc.UIAmount, UsdValue: *hc.UsdValue},
			},
			TotalUsd: ha.UsdValue.Add(*hb.UsdValue).Add(*hc.UsdValue),
		})
	}
	sortOverlap(entries)
	return entries
}

func sortOverlap(entries []OverlapEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].TotalUsd.Equal(entries[j].TotalUsd) {
			return entries[i].TotalUsd.GreaterThan(entries[j].TotalUsd)
		}
		return entries[i].Address < entries[j].Address
	})
}

// AttachLabels annotates overlap entries in place with known wallet labels.
func AttachLabels(entries []OverlapEntry, labels map[string]Label) {
	for i := range entries {
		if l, ok := labels[entries[i].Address]; ok {
			label := l
			entries[i].Label = &label
		}
	}
}

// NotableWallet is one highlighted wallet in an overlap group: labeled
// wallets first, then unlabeled whales.
type NotableWallet struct {
	Address    string                     `json:"address"`
	Label      *string                    `json:"label"`
	Tier       string                     `json:"tier"`
	UsdByToken map[string]decimal.Decimal `json:"usd_by_token"`
}

// OverlapHealth holds simple health flags for an overlap group.
type OverlapHealth struct {
	WhaleHeavy   bool `json:"whale_heavy"`
	ShrimpGrowth bool `json:"shrimp_growth"`
}

// OverlapGroup is the summarized report for one overlap set (AB, AC, BC, or
// ABC).
type OverlapGroup struct {
	WalletCount    int                        `json:"wallet_count"`
	TierCounts     TierCounts                 `json:"tier_counts"`
	PercentSupply  map[string]decimal.Decimal `json:"percent_supply"`
	NotableWallets []NotableWallet            `json:"notable_wallets"`
	Health         OverlapHealth              `json:"health"`
}

// SummarizeOverlap reduces a sorted overlap set to its group report. Tiering
// uses each wallet's combined USD value across all legs, not the per-leg
// values; a combined value below the Fish floor lands in Shrimp since every
// included wallet already clears $100 per leg.
func SummarizeOverlap(entries []OverlapEntry, sets []HolderSet) *OverlapGroup {
	group := &OverlapGroup{
		WalletCount:   len(entries),
		PercentSupply: make(map[string]decimal.Decimal, len(sets)),
	}

	for _, e := range entries {
		switch TierOf(&e.TotalUsd) {
		case TierWhale:
			group.TierCounts.Whale++
		case TierShark:
			group.TierCounts.Shark++
		case TierDolphin:
			group.TierCounts.Dolphin++
		case TierFish:
			group.TierCounts.Fish++
		default:
			group.TierCounts.Shrimp++
		}
	}

	// Fraction of each token's supply held by the group.
	for _, set := range sets {
		sum := decimal.Zero
		for _, e := range entries {
			if pos, ok := e.PerToken[set.Mint]; ok {
				sum = sum.Add(pos.UIAmount)
			}
		}
		group.PercentSupply[set.Mint] = PercentOfSupply(sum, set.SupplyUI)
	}

	group.NotableWallets = selectNotable(entries)

	if group.WalletCount > 0 {
		count := decimal.NewFromInt(int64(group.WalletCount))
		whales := decimal.NewFromInt(int64(group.TierCounts.Whale))
		small := decimal.NewFromInt(int64(group.TierCounts.Shrimp + group.TierCounts.Fish))
		group.Health.WhaleHeavy = whales.Div(count).GreaterThanOrEqual(whaleHeavyRatio)
		group.Health.ShrimpGrowth = small.Div(count).GreaterThanOrEqual(shrimpGrowthRatio)
	}

	return group
}

// selectNotable picks the notable wallets for a group: labeled wallets first
// (by combined USD descending), then unlabeled whales, truncated to 20.
// Entries are assumed to be pre-sorted descending by combined USD.
func selectNotable(entries []OverlapEntry) []NotableWallet {
	notable := make([]NotableWallet, 0, overlapNotableLimit)

	appendEntry := func(e OverlapEntry) {
		var label *string
		if e.Label != nil && e.Label.Label != "" {
			label = &e.Label.Label
		}
		tier := TierOf(&e.TotalUsd)
		if tier == TierUntiered {
			tier = TierShrimp
		}
		usdByToken := make(map[string]decimal.Decimal, len(e.PerToken))
		for mint, pos := range e.PerToken {
			usdByToken[mint] = pos.UsdValue
		}
		notable = append(notable, NotableWallet{
			Address:    e.Address,
			Label:      label,
			Tier:       tier.String(),
			UsdByToken: usdByToken,
		})
	}

	for _, e := range entries {
		if len(notable) >= overlapNotableLimit {
			return notable
		}
		if e.Label != nil && e.Label.Label != "" {
			appendEntry(e)
		}
	}
	for _, e := range entries {
		if len(notable) >= overlapNotableLimit {
			break
		}
		if (e.Label == nil || e.Label.Label == "") && e.TotalUsd.GreaterThanOrEqual(WhaleFloor) {
			appendEntry(e)
		}
	}
	return notable
}
