package audit

import (
	"context"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// HolderBalance is one owner's raw balance for a mint, as supplied by the
// ledger source. Balances across multiple token accounts for the same owner
// are already summed by the source. Immutable once fetched.
type HolderBalance struct {
	Owner     string
	RawAmount *big.Int
	Decimals  uint8
}

// NormalizedHolder is a holder balance converted to human-readable units.
// UsdValue is nil when no price is available. Tier is TierUntiered when
// UsdValue is nil or below the lowest tier floor.
type NormalizedHolder struct {
	Owner    string
	UIAmount decimal.Decimal
	UsdValue *decimal.Decimal
	Tier     Tier
}

// Supply is a mint's total supply as reported by the ledger.
type Supply struct {
	RawAmount *big.Int
	Decimals  uint8
}

// UIAmount returns the supply in human-readable units.
func (s Supply) UIAmount() decimal.Decimal {
	if s.RawAmount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(s.RawAmount, 0).Shift(-int32(s.Decimals))
}

// TierCounts holds per-tier holder counts for one snapshot. Counts only
// include holders with a USD value at or above the Shrimp floor.
type TierCounts struct {
	Shrimp  int `json:"shrimp"`
	Fish    int `json:"fish"`
	Dolphin int `json:"dolphin"`
	Shark   int `json:"shark"`
	Whale   int `json:"whale"`
}

// Total returns the sum of all five tier counts.
func (tc TierCounts) Total() int {
	return tc.Shrimp + tc.Fish + tc.Dolphin + tc.Shark + tc.Whale
}

// TopNBalances holds summed balances of the top 1/10/50/100 holders by
// UI amount. When fewer eligible holders exist than a rank, the sum covers
// all available holders.
type TopNBalances struct {
	Top1   decimal.Decimal `json:"top1_balance"`
	Top10  decimal.Decimal `json:"top10_balance"`
	Top50  decimal.Decimal `json:"top50_balance"`
	Top100 decimal.Decimal `json:"top100_balance"`
}

// TierSupply holds summed UI balances per tier. Unlike TierCounts, priced
// holders below the Shrimp floor are folded into the Shrimp bucket here, so
// tier supply can approach the full supply while tier counts stay restricted
// to holders at or above $100.
type TierSupply struct {
	Shrimp  decimal.Decimal `json:"shrimp"`
	Fish    decimal.Decimal `json:"fish"`
	Dolphin decimal.Decimal `json:"dolphin"`
	Shark   decimal.Decimal `json:"shark"`
	Whale   decimal.Decimal `json:"whale"`
}

// Snapshot is one persisted audit run for one token at one point in time.
// Created exactly once per successful run; aggregates are never mutated
// afterwards (token name/symbol may be backfilled asynchronously).
type Snapshot struct {
	ID              int64
	TokenAddress    string
	CapturedAt      time.Time
	BucketKey       int64
	PriceUsd        *decimal.Decimal
	TotalHolders    int // all holders, including unpriced and sub-$100
	EligibleHolders int // priced holders at or above the Shrimp floor
	TierCounts      TierCounts
	TopNBalances    TopNBalances
	TotalSupplyUI   decimal.Decimal
	TierSupplyUI    TierSupply
	TokenName       *string
	TokenSymbol     *string
}

// TopHolderRow is one persisted top-holder entry for a snapshot. Rows are
// kept for the top 50 holders plus any holder at or above the Shark floor.
type TopHolderRow struct {
	Rank      int
	Address   string
	RawAmount *big.Int
	Decimals  uint8
	Balance   decimal.Decimal
	UsdValue  *decimal.Decimal
	Tier      Tier
}

// WhaleRecord tracks the observed history of one (token, wallet) pair
// holding whale-tier value. Updated in place on every qualifying snapshot.
type WhaleRecord struct {
	Address         string
	TokenAddress    string
	FirstSeen       time.Time
	LastSeen        time.Time
	ConsecutiveDays int
	Balance         decimal.Decimal
	UsdValue        decimal.Decimal
	SnapshotID      int64
}

// RetentionCounts holds whale set-intersection cardinalities used to compute
// retention percentages.
type RetentionCounts struct {
	TotalWhales int
	Retained7d  int
	Retained30d int
	Retained90d int
}

// Label is a known classification for a wallet address (e.g. a centralized
// exchange hot wallet or a liquidity pool vault).
type Label struct {
	Type  string `json:"type"`
	Label string `json:"label"`
}

// TokenPosition is one leg of an overlap entry: a wallet's holding in a
// single token.
type TokenPosition struct {
	UIAmount decimal.Decimal `json:"ui"`
	UsdValue decimal.Decimal `json:"usd"`
}

// OverlapEntry is one wallet present in every token of an overlap group.
// Ephemeral: computed per request and never persisted.
type OverlapEntry struct {
	Address  string                   `json:"address"`
	PerToken map[string]TokenPosition `json:"tokens"`
	TotalUsd decimal.Decimal          `json:"total_usd"`
	Label    *Label                   `json:"label,omitempty"`
}

// BalanceSource fetches the complete, owner-deduplicated holder set for a
// mint. Implementations may paginate internally but must either return the
// full set or fail.
type BalanceSource interface {
	FetchAllHolders(ctx context.Context, mint string) ([]HolderBalance, error)
}

// SupplySource fetches a mint's total supply and decimal precision.
type SupplySource interface {
	FetchSupply(ctx context.Context, mint string) (Supply, error)
}

// PriceOracle fetches a USD price for a mint. A nil price with a nil error
// is a valid "price unknown" result, not a failure.
type PriceOracle interface {
	FetchUsdPrice(ctx context.Context, mint string) (*decimal.Decimal, error)
}

// TokenMetadata is descriptive token information from the price oracle.
// Either field may be nil when the upstream has no listing.
type TokenMetadata struct {
	Name   *string `json:"name"`
	Symbol *string `json:"symbol"`
}

// MetadataSource provides descriptive token metadata and liquidity figures.
// All results are best-effort enrichment; failures never abort an audit.
type MetadataSource interface {
	FetchTokenMetadata(ctx context.Context, mint string) (TokenMetadata, error)
	FetchLiquidityUsd(ctx context.Context, mint string) (*decimal.Decimal, error)
}

// LabelSource looks up known labels for a batch of wallet addresses.
type LabelSource interface {
	FetchLabels(ctx context.Context, addresses []string) (map[string]Label, error)
}

// SnapshotRepository persists and retrieves snapshots and their lineage.
// Insert writes the snapshot and its top-holder rows atomically; either both
// land or neither does. When a snapshot already exists for the same
// (token, bucket) pair, Insert returns the existing snapshot's id with
// created=false rather than failing, which resolves dedup races between
// concurrent writers.
type SnapshotRepository interface {
	Insert(ctx context.Context, snap *Snapshot, topHolders []TopHolderRow) (id int64, created bool, err error)
	FindByBucket(ctx context.Context, mint string, bucketKey int64) (*Snapshot, error)
	FindRecent(ctx context.Context, mint string, window time.Duration) (*Snapshot, error)
	FindPreviousBefore(ctx context.Context, mint string, before time.Time) (*Snapshot, error)
}

// WhaleRepository persists per-(token, wallet) whale duration records.
type WhaleRepository interface {
	Upsert(ctx context.Context, rec *WhaleRecord) error
	ListByToken(ctx context.Context, mint string) ([]*WhaleRecord, error)
	TopBySnapshot(ctx context.Context, mint string, snapshotID int64, limit int) ([]*WhaleRecord, error)
	QueryRetention(ctx context.Context, mint string, snapshotID int64, asOf time.Time) (RetentionCounts, error)
}

// SearchLog records audit requests for trending/analytics purposes.
// Logging is best-effort; failures never abort an audit.
type SearchLog interface {
	LogSearch(ctx context.Context, mint string) error
}

// EventPublisher publishes snapshot-created events. Publishing is
// best-effort enrichment; failures never abort an audit.
type EventPublisher interface {
	PublishSnapshotCreated(ctx context.Context, snap *Snapshot) error
}
