package audit

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// notableHolderLimit caps the notable-holder list in audit reports.
const notableHolderLimit = 20

// whalesDetectedLimit caps the raw whale address list in audit reports.
const whalesDetectedLimit = 50

// TokenInfo is descriptive token information attached to a report.
type TokenInfo struct {
	Mint     string  `json:"mint"`
	Name     *string `json:"name"`
	Symbol   *string `json:"symbol"`
	Decimals int     `json:"decimals"`
}

// NotableHolder is one highlighted holder in an audit report.
type NotableHolder struct {
	Address       string           `json:"address"`
	Label         *string          `json:"label"`
	BalanceUI     decimal.Decimal  `json:"balance_ui"`
	BalanceUsd    *decimal.Decimal `json:"balance_usd"`
	PercentSupply decimal.Decimal  `json:"percent_supply"`
}

// TierFractions holds per-tier fractions of the total holder count.
type TierFractions struct {
	Shrimp  decimal.Decimal `json:"shrimp"`
	Fish    decimal.Decimal `json:"fish"`
	Dolphin decimal.Decimal `json:"dolphin"`
	Shark   decimal.Decimal `json:"shark"`
	Whale   decimal.Decimal `json:"whale"`
}

// AuditReport is the full single-token audit payload: aggregates, deltas,
// whale stats, and notable holders. Exact JSON field names are a formatting
// concern; downstream consumers treat this struct as the contract.
type AuditReport struct {
	SnapshotID int64     `json:"snapshot_id"`
	Created    bool      `json:"created"`
	Deduped    bool      `json:"deduped"`
	CapturedAt time.Time `json:"captured_at"`

	Token        TokenInfo        `json:"token"`
	PriceUsd     *decimal.Decimal `json:"price_usd"`
	MarketCapUsd *decimal.Decimal `json:"market_cap_usd"`
	LiquidityUsd *decimal.Decimal `json:"liquidity_usd"`

	TotalHolders    int `json:"total_holders_all"`
	EligibleHolders int `json:"total_holders_eligible"`

	TierCounts           TierCounts    `json:"tier_counts"`
	SupplyConcentration  TopNPercents  `json:"supply_concentration"`
	PercentHoldersByTier TierFractions `json:"percent_holders_by_tier"`
	PercentSupplyByTier  TierSupply    `json:"percent_supply_by_tier"`

	Deltas *Deltas `json:"deltas"`

	NotableHolders []NotableHolder `json:"notable_holders"`
	WhalesDetected []string        `json:"whales_detected"`

	Whales            *WhaleStats `json:"whales,omitempty"`
	WhaleStatsPending bool        `json:"whale_stats_pending,omitempty"`
	LabelsPending     bool        `json:"labels_pending,omitempty"`
}

// CompareReport is the multi-token comparison payload. Overlap groups are
// keyed "ab" for two tokens, plus "abc", "ac", and "bc" for three.
type CompareReport struct {
	Tokens   []string                 `json:"tokens"`
	Overlaps map[string]*OverlapGroup `json:"overlaps"`
}

// FilterExcluded drops holders labeled as centralized-exchange or
// liquidity-pool addresses. Those wallets stay in raw holder counts but are
// excluded from analytic eligibility.
func FilterExcluded(holders []NormalizedHolder, labels map[string]Label) []NormalizedHolder {
	out := make([]NormalizedHolder, 0, len(holders))
	for _, h := range holders {
		if l, ok := labels[h.Owner]; ok && (l.Type == "CEX" || l.Type == "LP") {
			continue
		}
		out = append(out, h)
	}
	return out
}

// percentHoldersByTier computes what fraction of the total holder count each
// tier represents. The denominator is all holders, not just eligible ones.
func percentHoldersByTier(tc TierCounts, totalHolders int) TierFractions {
	if totalHolders <= 0 {
		return TierFractions{}
	}
	total := decimal.NewFromInt(int64(totalHolders))
	frac := func(n int) decimal.Decimal {
		return decimal.NewFromInt(int64(n)).Div(total)
	}
	return TierFractions{
		Shrimp:  frac(tc.Shrimp),
		Fish:    frac(tc.Fish),
		Dolphin: frac(tc.Dolphin),
		Shark:   frac(tc.Shark),
		Whale:   frac(tc.Whale),
	}
}

// selectNotableHolders picks the highlighted holders for a report: labeled
// wallets first, then unlabeled whales, both in descending USD order,
// truncated to 20. eligible must be pre-sorted descending by USD value.
func selectNotableHolders(eligible []NormalizedHolder, labels map[string]Label, supplyUI decimal.Decimal) []NotableHolder {
	notable := make([]NotableHolder, 0, notableHolderLimit)

	appendHolder := func(h NormalizedHolder, label *string) {
		notable = append(notable, NotableHolder{
			Address:       h.Owner,
			Label:         label,
			BalanceUI:     h.UIAmount,
			BalanceUsd:    h.UsdValue,
			PercentSupply: PercentOfSupply(h.UIAmount, supplyUI),
		})
	}

	for _, h := range eligible {
		if len(notable) >= notableHolderLimit {
			return notable
		}
		if l, ok := labels[h.Owner]; ok && l.Label != "" {
			label := l.Label
			appendHolder(h, &label)
		}
	}
	for _, h := range eligible {
		if len(notable) >= notableHolderLimit {
			break
		}
		if _, ok := labels[h.Owner]; ok {
			continue
		}
		if h.UsdValue != nil && h.UsdValue.GreaterThanOrEqual(WhaleFloor) {
			appendHolder(h, nil)
		}
	}
	return notable
}

// sortByUsdDesc sorts holders descending by USD value with address
// tiebreaks. Holders without a USD value sort last. Returns a new slice.
func sortByUsdDesc(holders []NormalizedHolder) []NormalizedHolder {
	sorted := make([]NormalizedHolder, len(holders))
	copy(sorted, holders)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch {
		case a.UsdValue == nil && b.UsdValue == nil:
			return a.Owner < b.Owner
		case a.UsdValue == nil:
			return false
		case b.UsdValue == nil:
			return true
		case !a.UsdValue.Equal(*b.UsdValue):
			return a.UsdValue.GreaterThan(*b.UsdValue)
		default:
			return a.Owner < b.Owner
		}
	})
	return sorted
}
