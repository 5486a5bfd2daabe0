package db

import (
	"context"
	"fmt"
	"time"

	"github.com/okdsgnr/Strata/service/audit"
)

// Upsert inserts or updates one (token, wallet) whale duration record.
// first_seen is preserved on update; everything else reflects the latest
// qualifying snapshot.
func (s *Store) Upsert(ctx context.Context, rec *audit.WhaleRecord) error {
	defer s.record("upsert_whale")()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO whale_durations (
			address, token_address, first_seen, last_seen,
			consecutive_days, balance, usd_value, snapshot_id
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8)
		ON CONFLICT (token_address, address) DO UPDATE SET
			last_seen        = EXCLUDED.last_seen,
			consecutive_days = EXCLUDED.consecutive_days,
			balance          = EXCLUDED.balance,
			usd_value        = EXCLUDED.usd_value,
			snapshot_id      = EXCLUDED.snapshot_id`,
		rec.Address, rec.TokenAddress, rec.FirstSeen, rec.LastSeen,
		rec.ConsecutiveDays, numericFromDecimal(rec.Balance),
		numericFromDecimal(rec.UsdValue), rec.SnapshotID,
	)
	if err != nil {
		return fmt.Errorf("upsert whale %s for %s: %w", rec.Address, rec.TokenAddress, err)
	}
	return nil
}

// ListByToken returns all whale duration records for a token.
func (s *Store) ListByToken(ctx context.Context, mint string) ([]*audit.WhaleRecord, error) {
	defer s.record("list_whales_by_token")()

	rows, err := s.pool.Query(ctx, `
		SELECT address, token_address, first_seen, last_seen,
			consecutive_days, balance::text, usd_value::text, snapshot_id
		FROM whale_durations
		WHERE token_address = $1`,
		mint,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWhaleRecords(rows)
}

// TopBySnapshot returns the token's whales from one snapshot ordered by USD
// value descending.
func (s *Store) TopBySnapshot(ctx context.Context, mint string, snapshotID int64, limit int) ([]*audit.WhaleRecord, error) {
	defer s.record("top_whales_by_snapshot")()

	rows, err := s.pool.Query(ctx, `
		SELECT address, token_address, first_seen, last_seen,
			consecutive_days, balance::text, usd_value::text, snapshot_id
		FROM whale_durations
		WHERE token_address = $1 AND snapshot_id = $2
		ORDER BY usd_value DESC
		LIMIT $3`,
		mint, snapshotID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWhaleRecords(rows)
}

// QueryRetention counts the current whale set (records pointing at the given
// snapshot) and its intersections with the whale sets seen within the last
// 7, 30, and 90 days of asOf.
func (s *Store) QueryRetention(ctx context.Context, mint string, snapshotID int64, asOf time.Time) (audit.RetentionCounts, error) {
	defer s.record("whale_retention")()

	var counts audit.RetentionCounts
	err := s.pool.QueryRow(ctx, `
		WITH current_whales AS (
			SELECT address FROM whale_durations
			WHERE token_address = $1 AND snapshot_id = $2
		),
		whales_7d AS (
			SELECT DISTINCT address FROM whale_durations
			WHERE token_address = $1 AND last_seen >= $3::timestamptz - interval '7 days'
		),
		whales_30d AS (
			SELECT DISTINCT address FROM whale_durations
			WHERE token_address = $1 AND last_seen >= $3::timestamptz - interval '30 days'
		),
		whales_90d AS (
			SELECT DISTINCT address FROM whale_durations
			WHERE token_address = $1 AND last_seen >= $3::timestamptz - interval '90 days'
		)
		SELECT
			(SELECT COUNT(*) FROM current_whales) AS total_whales,
			(SELECT COUNT(*) FROM current_whales cw JOIN whales_7d w ON cw.address = w.address) AS retained_7d,
			(SELECT COUNT(*) FROM current_whales cw JOIN whales_30d w ON cw.address = w.address) AS retained_30d,
			(SELECT COUNT(*) FROM current_whales cw JOIN whales_90d w ON cw.address = w.address) AS retained_90d`,
		mint, snapshotID, asOf,
	).Scan(&counts.TotalWhales, &counts.Retained7d, &counts.Retained30d, &counts.Retained90d)
	if err != nil {
		return audit.RetentionCounts{}, fmt.Errorf("query whale retention for %s: %w", mint, err)
	}
	return counts, nil
}

type whaleRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanWhaleRecords(rows whaleRows) ([]*audit.WhaleRecord, error) {
	var records []*audit.WhaleRecord
	for rows.Next() {
		var (
			rec     audit.WhaleRecord
			balance string
			usd     string
		)
		if err := rows.Scan(
			&rec.Address, &rec.TokenAddress, &rec.FirstSeen, &rec.LastSeen,
			&rec.ConsecutiveDays, &balance, &usd, &rec.SnapshotID,
		); err != nil {
			return nil, err
		}
		var err error
		if rec.Balance, err = decimalFromNumeric(balance); err != nil {
			return nil, fmt.Errorf("parse whale balance %q: %w", balance, err)
		}
		if rec.UsdValue, err = decimalFromNumeric(usd); err != nil {
			return nil, fmt.Errorf("parse whale usd value %q: %w", usd, err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
