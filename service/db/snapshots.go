package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/okdsgnr/Strata/service/audit"
)

const insertSnapshotSQL = `
INSERT INTO token_snapshots (
	token_address, captured_at, bucket_10m, price_usd,
	total_holders, eligible_holders,
	shrimp_count, fish_count, dolphin_count, shark_count, whale_count,
	top1_balance, top10_balance, top50_balance, top100_balance,
	total_supply_ui,
	shrimp_supply, fish_supply, dolphin_supply, shark_supply, whale_supply,
	token_name, token_symbol
) VALUES (
	$1, $2, $3, $4::numeric,
	$5, $6,
	$7, $8, $9, $10, $11,
	$12::numeric, $13::numeric, $14::numeric, $15::numeric,
	$16::numeric,
	$17::numeric, $18::numeric, $19::numeric, $20::numeric, $21::numeric,
	$22, $23
)
ON CONFLICT (token_address, bucket_10m) DO NOTHING
RETURNING id`

const insertTopHolderSQL = `
INSERT INTO token_top_holders (
	snapshot_id, token_address, rank, address,
	amount_raw, token_decimals, balance, usd_value, tier
) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7::numeric, $8::numeric, $9)`

const selectSnapshotColumns = `
	id, token_address, captured_at, bucket_10m, price_usd::text,
	total_holders, eligible_holders,
	shrimp_count, fish_count, dolphin_count, shark_count, whale_count,
	top1_balance::text, top10_balance::text, top50_balance::text, top100_balance::text,
	total_supply_ui::text,
	shrimp_supply::text, fish_supply::text, dolphin_supply::text, shark_supply::text, whale_supply::text,
	token_name, token_symbol`

// Insert persists a snapshot and its top-holder rows in one transaction.
// When another writer already created a snapshot for the same
// (token, bucket) pair, the existing snapshot's id is returned with
// created=false and nothing is written.
func (s *Store) Insert(ctx context.Context, snap *audit.Snapshot, topHolders []audit.TopHolderRow) (int64, bool, error) {
	defer s.record("insert_snapshot")()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, insertSnapshotSQL,
		snap.TokenAddress, snap.CapturedAt, snap.BucketKey, numericFromDecimalPtr(snap.PriceUsd),
		snap.TotalHolders, snap.EligibleHolders,
		snap.TierCounts.Shrimp, snap.TierCounts.Fish, snap.TierCounts.Dolphin, snap.TierCounts.Shark, snap.TierCounts.Whale,
		numericFromDecimal(snap.TopNBalances.Top1), numericFromDecimal(snap.TopNBalances.Top10),
		numericFromDecimal(snap.TopNBalances.Top50), numericFromDecimal(snap.TopNBalances.Top100),
		numericFromDecimal(snap.TotalSupplyUI),
		numericFromDecimal(snap.TierSupplyUI.Shrimp), numericFromDecimal(snap.TierSupplyUI.Fish),
		numericFromDecimal(snap.TierSupplyUI.Dolphin), numericFromDecimal(snap.TierSupplyUI.Shark),
		numericFromDecimal(snap.TierSupplyUI.Whale),
		pgtextFromStringPtr(snap.TokenName), pgtextFromStringPtr(snap.TokenSymbol),
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the insert race: surface the winner's snapshot instead.
		var existingID int64
		err = s.pool.QueryRow(ctx,
			`SELECT id FROM token_snapshots WHERE token_address = $1 AND bucket_10m = $2`,
			snap.TokenAddress, snap.BucketKey,
		).Scan(&existingID)
		if err != nil {
			return 0, false, fmt.Errorf("find winning snapshot after conflict: %w", err)
		}
		return existingID, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("insert snapshot: %w", err)
	}

	if len(topHolders) > 0 {
		batch := &pgx.Batch{}
		for _, h := range topHolders {
			var raw string
			if h.RawAmount != nil {
				raw = h.RawAmount.String()
			} else {
				raw = "0"
			}
			tier := h.Tier.String()
			batch.Queue(insertTopHolderSQL,
				id, snap.TokenAddress, h.Rank, h.Address,
				raw, int16(h.Decimals), numericFromDecimal(h.Balance),
				numericFromDecimalPtr(h.UsdValue), tier,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, false, fmt.Errorf("insert top holders: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, false, fmt.Errorf("commit snapshot: %w", err)
	}
	return id, true, nil
}

// FindByBucket returns the snapshot for an exact (token, bucket) pair, or
// nil when none exists.
func (s *Store) FindByBucket(ctx context.Context, mint string, bucketKey int64) (*audit.Snapshot, error) {
	defer s.record("find_snapshot_by_bucket")()

	row := s.pool.QueryRow(ctx,
		`SELECT `+selectSnapshotColumns+`
		 FROM token_snapshots
		 WHERE token_address = $1 AND bucket_10m = $2`,
		mint, bucketKey,
	)
	return scanSnapshot(row)
}

// FindRecent returns the newest snapshot for a token captured within the
// given window, or nil when none exists.
func (s *Store) FindRecent(ctx context.Context, mint string, window time.Duration) (*audit.Snapshot, error) {
	defer s.record("find_recent_snapshot")()

	row := s.pool.QueryRow(ctx,
		`SELECT `+selectSnapshotColumns+`
		 FROM token_snapshots
		 WHERE token_address = $1 AND captured_at >= now() - $2::interval
		 ORDER BY captured_at DESC
		 LIMIT 1`,
		mint, window,
	)
	return scanSnapshot(row)
}

// FindPreviousBefore returns the newest snapshot for a token captured
// strictly before the given time, or nil when no history exists.
func (s *Store) FindPreviousBefore(ctx context.Context, mint string, before time.Time) (*audit.Snapshot, error) {
	defer s.record("find_previous_snapshot")()

	row := s.pool.QueryRow(ctx,
		`SELECT `+selectSnapshotColumns+`
		 FROM token_snapshots
		 WHERE token_address = $1 AND captured_at < $2
		 ORDER BY captured_at DESC
		 LIMIT 1`,
		mint, before,
	)
	return scanSnapshot(row)
}

// TopHoldersBySnapshot returns the persisted top-holder rows for a snapshot
// in rank order.
func (s *Store) TopHoldersBySnapshot(ctx context.Context, snapshotID int64) ([]audit.TopHolderRow, error) {
	defer s.record("top_holders_by_snapshot")()

	rows, err := s.pool.Query(ctx,
		`SELECT rank, address, amount_raw::text, token_decimals, balance::text, usd_value::text, tier
		 FROM token_top_holders
		 WHERE snapshot_id = $1
		 ORDER BY rank`,
		snapshotID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holders []audit.TopHolderRow
	for rows.Next() {
		var (
			h        audit.TopHolderRow
			raw      string
			decimals int16
			balance  string
			usd      *string
			tier     *string
		)
		if err := rows.Scan(&h.Rank, &h.Address, &raw, &decimals, &balance, &usd, &tier); err != nil {
			return nil, err
		}
		rawDec, err := decimalFromNumeric(raw)
		if err != nil {
			return nil, fmt.Errorf("parse raw amount %q: %w", raw, err)
		}
		h.RawAmount = rawDec.BigInt()
		h.Decimals = uint8(decimals)
		if h.Balance, err = decimalFromNumeric(balance); err != nil {
			return nil, fmt.Errorf("parse balance %q: %w", balance, err)
		}
		if h.UsdValue, err = decimalPtrFromNumeric(usd); err != nil {
			return nil, err
		}
		if tier != nil {
			h.Tier = audit.TierFromString(*tier)
		}
		holders = append(holders, h)
	}
	return holders, rows.Err()
}

// scanSnapshot scans one snapshot row. A pgx.ErrNoRows result maps to
// (nil, nil) since absence of history is a normal outcome, not an error.
func scanSnapshot(row pgx.Row) (*audit.Snapshot, error) {
	var (
		snap     audit.Snapshot
		priceUsd *string
		numerics [10]string
	)
	err := row.Scan(
		&snap.ID, &snap.TokenAddress, &snap.CapturedAt, &snap.BucketKey, &priceUsd,
		&snap.TotalHolders, &snap.EligibleHolders,
		&snap.TierCounts.Shrimp, &snap.TierCounts.Fish, &snap.TierCounts.Dolphin,
		&snap.TierCounts.Shark, &snap.TierCounts.Whale,
		&numerics[0], &numerics[1], &numerics[2], &numerics[3],
		&numerics[4],
		&numerics[5], &numerics[6], &numerics[7], &numerics[8], &numerics[9],
		&snap.TokenName, &snap.TokenSymbol,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}

	if snap.PriceUsd, err = decimalPtrFromNumeric(priceUsd); err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	dests := []*decimalField{
		{&snap.TopNBalances.Top1, numerics[0]},
		{&snap.TopNBalances.Top10, numerics[1]},
		{&snap.TopNBalances.Top50, numerics[2]},
		{&snap.TopNBalances.Top100, numerics[3]},
		{&snap.TotalSupplyUI, numerics[4]},
		{&snap.TierSupplyUI.Shrimp, numerics[5]},
		{&snap.TierSupplyUI.Fish, numerics[6]},
		{&snap.TierSupplyUI.Dolphin, numerics[7]},
		{&snap.TierSupplyUI.Shark, numerics[8]},
		{&snap.TierSupplyUI.Whale, numerics[9]},
	}
	for _, d := range dests {
		v, err := decimalFromNumeric(d.raw)
		if err != nil {
			return nil, fmt.Errorf("parse numeric %q: %w", d.raw, err)
		}
		*d.dst = v
	}
	return &snap, nil
}

type decimalField struct {
	dst *decimal.Decimal
	raw string
}
