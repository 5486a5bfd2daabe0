package db

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okdsgnr/Strata/service/audit"
)

func testSnapshot(mint string, capturedAt time.Time) *audit.Snapshot {
	price := decimal.NewFromFloat(1.25)
	return &audit.Snapshot{
		TokenAddress:    mint,
		CapturedAt:      capturedAt,
		BucketKey:       capturedAt.Unix() / 600,
		PriceUsd:        &price,
		TotalHolders:    1200,
		EligibleHolders: 800,
		TierCounts:      audit.TierCounts{Shrimp: 500, Fish: 200, Dolphin: 70, Shark: 25, Whale: 5},
		TopNBalances: audit.TopNBalances{
			Top1:   decimal.NewFromInt(1_000_000),
			Top10:  decimal.NewFromInt(4_000_000),
			Top50:  decimal.NewFromInt(7_000_000),
			Top100: decimal.NewFromInt(8_500_000),
		},
		TotalSupplyUI: decimal.NewFromInt(10_000_000),
		TierSupplyUI: audit.TierSupply{
			Shrimp:  decimal.NewFromInt(500_000),
			Fish:    decimal.NewFromInt(1_500_000),
			Dolphin: decimal.NewFromInt(2_000_000),
			Shark:   decimal.NewFromInt(2_500_000),
			Whale:   decimal.NewFromInt(3_500_000),
		},
	}
}

func TestInsertAndFindByBucket(t *testing.T) {
	SkipIfNoTestDB(t)
	store := NewTestStore(t)
	defer store.Close()
	store.Cleanup(t)

	ctx := context.Background()
	mint := "So11111111111111111111111111111111111111112"
	capturedAt := time.Now().UTC().Truncate(time.Second)
	snap := testSnapshot(mint, capturedAt)

	raw, _ := new(big.Int).SetString("123456789012345678901", 10)
	usd := decimal.NewFromInt(300_000)
	holders := []audit.TopHolderRow{
		{
			Rank:      1,
			Address:   "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T",
			RawAmount: raw,
			Decimals:  6,
			Balance:   decimal.NewFromInt(1_000_000),
			UsdValue:  &usd,
			Tier:      audit.TierWhale,
		},
	}

	id, created, err := store.Insert(ctx, snap, holders)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Greater(t, id, int64(0))

	got, err := store.FindByBucket(ctx, mint, snap.BucketKey)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, mint, got.TokenAddress)
	assert.Equal(t, 1200, got.TotalHolders)
	assert.Equal(t, 800, got.EligibleHolders)
	assert.Equal(t, snap.TierCounts, got.TierCounts)
	require.NotNil(t, got.PriceUsd)
	assert.True(t, got.PriceUsd.Equal(decimal.NewFromFloat(1.25)))
	assert.True(t, got.TopNBalances.Top10.Equal(decimal.NewFromInt(4_000_000)))
	assert.True(t, got.TotalSupplyUI.Equal(decimal.NewFromInt(10_000_000)))
	assert.True(t, got.TierSupplyUI.Whale.Equal(decimal.NewFromInt(3_500_000)))

	rows, err := store.TopHoldersBySnapshot(ctx, id)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "123456789012345678901", rows[0].RawAmount.String())
	assert.Equal(t, audit.TierWhale, rows[0].Tier)
}

func TestInsertConflictReturnsWinner(t *testing.T) {
	SkipIfNoTestDB(t)
	store := NewTestStore(t)
	defer store.Close()
	store.Cleanup(t)

	ctx := context.Background()
	mint := "So11111111111111111111111111111111111111112"
	capturedAt := time.Now().UTC()

	first := testSnapshot(mint, capturedAt)
	firstID, created, err := store.Insert(ctx, first, nil)
	require.NoError(t, err)
	require.True(t, created)

	// Second writer lands in the same bucket: it must get the first
	// snapshot's id back and write nothing.
	second := testSnapshot(mint, capturedAt)
	secondID, created, err := store.Insert(ctx, second, nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, firstID, secondID)
}

func TestInsertNilPrice(t *testing.T) {
	SkipIfNoTestDB(t)
	store := NewTestStore(t)
	defer store.Close()
	store.Cleanup(t)

	ctx := context.Background()
	mint := "So11111111111111111111111111111111111111112"
	snap := testSnapshot(mint, time.Now().UTC())
	snap.PriceUsd = nil

	id, created, err := store.Insert(ctx, snap, nil)
	require.NoError(t, err)
	require.True(t, created)

	got, err := store.FindByBucket(ctx, mint, snap.BucketKey)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Nil(t, got.PriceUsd)
}

func TestFindRecentAndPrevious(t *testing.T) {
	SkipIfNoTestDB(t)
	store := NewTestStore(t)
	defer store.Close()
	store.Cleanup(t)

	ctx := context.Background()
	mint := "So11111111111111111111111111111111111111112"
	now := time.Now().UTC()

	old := testSnapshot(mint, now.Add(-48*time.Hour))
	_, _, err := store.Insert(ctx, old, nil)
	require.NoError(t, err)

	recent := testSnapshot(mint, now.Add(-2*time.Minute))
	recentID, _, err := store.Insert(ctx, recent, nil)
	require.NoError(t, err)

	got, err := store.FindRecent(ctx, mint, 10*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, recentID, got.ID)

	// The previous snapshot relative to the recent one is the old one.
	prev, err := store.FindPreviousBefore(ctx, mint, recent.CapturedAt)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, old.BucketKey, prev.BucketKey)

	// No history before the oldest snapshot.
	prev, err = store.FindPreviousBefore(ctx, mint, old.CapturedAt)
	require.NoError(t, err)
	assert.Nil(t, prev)
}

func TestFindByBucketMissing(t *testing.T) {
	SkipIfNoTestDB(t)
	store := NewTestStore(t)
	defer store.Close()
	store.Cleanup(t)

	got, err := store.FindByBucket(context.Background(), "UnknownMint11111111111111111111111111111111", 12345)
	require.NoError(t, err)
	assert.Nil(t, got)
}
