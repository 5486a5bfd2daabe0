package nats

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/okdsgnr/Strata/service/audit"
)

// SnapshotEvent represents a snapshot-created event published to NATS.
// This is published to the subject "snapshots.{token_address}" in JetStream.
type SnapshotEvent struct {
	// Snapshot identifiers
	SnapshotID   int64  `json:"snapshot_id"`
	TokenAddress string `json:"token_address"`
	BucketKey    int64  `json:"bucket_key"`

	// Token information
	TokenName   *string          `json:"token_name,omitempty"`
	TokenSymbol *string          `json:"token_symbol,omitempty"`
	PriceUsd    *decimal.Decimal `json:"price_usd,omitempty"`

	// Holder aggregates
	TotalHolders    int              `json:"total_holders"`
	EligibleHolders int              `json:"eligible_holders"`
	TierCounts      audit.TierCounts `json:"tier_counts"`
	TotalSupplyUI   decimal.Decimal  `json:"total_supply_ui"`
	Top10Balance    decimal.Decimal  `json:"top10_balance"`
	WhaleCount      int              `json:"whale_count"`

	// Timing information
	CapturedAt  time.Time `json:"captured_at"`
	PublishedAt time.Time `json:"published_at"`
}

// FromSnapshot converts a persisted snapshot to a SnapshotEvent for publishing.
func FromSnapshot(snap *audit.Snapshot) *SnapshotEvent {
	return &SnapshotEvent{
		SnapshotID:      snap.ID,
		TokenAddress:    snap.TokenAddress,
		BucketKey:       snap.BucketKey,
		TokenName:       snap.TokenName,
		TokenSymbol:     snap.TokenSymbol,
		PriceUsd:        snap.PriceUsd,
		TotalHolders:    snap.TotalHolders,
		EligibleHolders: snap.EligibleHolders,
		TierCounts:      snap.TierCounts,
		TotalSupplyUI:   snap.TotalSupplyUI,
		Top10Balance:    snap.TopNBalances.Top10,
		WhaleCount:      snap.TierCounts.Whale,
		CapturedAt:      snap.CapturedAt,
		PublishedAt:     time.Now().UTC(),
	}
}
