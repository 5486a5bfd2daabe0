package audit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/okdsgnr/Strata/service/metrics"
	"github.com/shopspring/decimal"
)

const (
	// Consecutive-day window for whale streaks. A snapshot between 24 and
	// 25 hours after the last one extends the streak; the extra hour
	// absorbs snapshot-timing jitter around the daily boundary.
	consecutiveMin = 24 * time.Hour
	consecutiveMax = 25 * time.Hour

	// topWhalesLimit caps the per-token whale list in stats payloads.
	topWhalesLimit = 10
)

// WhaleTracker maintains per-(token, wallet) duration state across
// snapshots: consecutive-day streaks and retention percentages.
type WhaleTracker struct {
	repo    WhaleRepository
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewWhaleTracker creates a WhaleTracker. If m is nil, no metrics are
// recorded.
func NewWhaleTracker(repo WhaleRepository, m *metrics.Metrics, logger *slog.Logger) *WhaleTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &WhaleTracker{repo: repo, metrics: m, logger: logger}
}

// ProcessResult summarizes one whale-tracking pass over a snapshot.
type ProcessResult struct {
	WhaleCount int // holders at or above the whale floor in this snapshot
	Processed  int // records upserted successfully
	Failed     int // records skipped due to store errors
}

// Process updates whale duration records for every holder in the snapshot
// holding whale-tier value. New wallets start a streak at 1; known wallets
// extend their streak when the snapshot lands within the consecutive-day
// window after their last sighting, and reset to 1 otherwise. A single
// wallet's store failure is logged and skipped; the rest of the batch still
// lands. Returns an error only when the initial record load fails.
func (t *WhaleTracker) Process(ctx context.Context, mint string, holders []NormalizedHolder, snapshotID int64, snapshotTime time.Time) (ProcessResult, error) {
	var res ProcessResult

	whales := make([]NormalizedHolder, 0)
	for _, h := range holders {
		if h.UsdValue != nil && h.UsdValue.GreaterThanOrEqual(WhaleFloor) {
			whales = append(whales, h)
		}
	}
	res.WhaleCount = len(whales)
	if len(whales) == 0 {
		t.logger.Debug("no whales found", "mint", mint, "snapshot_id", snapshotID)
		return res, nil
	}

	existing, err := t.repo.ListByToken(ctx, mint)
	if err != nil {
		return res, fmt.Errorf("list whale records for %s: %w", mint, err)
	}
	byAddress := make(map[string]*WhaleRecord, len(existing))
	for _, rec := range existing {
		byAddress[rec.Address] = rec
	}

	for _, w := range whales {
		rec := t.nextRecord(byAddress[w.Owner], mint, w, snapshotID, snapshotTime)
		if err := t.repo.Upsert(ctx, rec); err != nil {
			// Partial failure is acceptable; the remaining wallets in the
			// batch still get processed.
			t.logger.Warn("whale upsert failed, skipping wallet",
				"mint", mint,
				"address", w.Owner,
				"error", err,
			)
			if t.metrics != nil {
				t.metrics.RecordWhaleUpsert("error")
			}
			res.Failed++
			continue
		}
		if t.metrics != nil {
			t.metrics.RecordWhaleUpsert("success")
		}
		res.Processed++
	}

	t.logger.Info("whale tracking processed",
		"mint", mint,
		"snapshot_id", snapshotID,
		"whales", res.WhaleCount,
		"processed", res.Processed,
		"failed", res.Failed,
	)
	return res, nil
}

// nextRecord computes the updated record for one whale sighting.
func (t *WhaleTracker) nextRecord(existing *WhaleRecord, mint string, w NormalizedHolder, snapshotID int64, snapshotTime time.Time) *WhaleRecord {
	if existing == nil {
		return &WhaleRecord{
			Address:         w.Owner,
			TokenAddress:    mint,
			FirstSeen:       snapshotTime,
			LastSeen:        snapshotTime,
			ConsecutiveDays: 1,
			Balance:         w.UIAmount,
			UsdValue:        *w.UsdValue,
			SnapshotID:      snapshotID,
		}
	}

	days := 1
	if isConsecutive(existing.LastSeen, snapshotTime) {
		days = existing.ConsecutiveDays + 1
	}
	return &WhaleRecord{
		Address:         existing.Address,
		TokenAddress:    mint,
		FirstSeen:       existing.FirstSeen,
		LastSeen:        snapshotTime,
		ConsecutiveDays: days,
		Balance:         w.UIAmount,
		UsdValue:        *w.UsdValue,
		SnapshotID:      snapshotID,
	}
}

// isConsecutive reports whether a new sighting extends a daily streak.
func isConsecutive(lastSeen, snapshotTime time.Time) bool {
	diff := snapshotTime.Sub(lastSeen)
	return diff >= consecutiveMin && diff <= consecutiveMax
}

// WhaleRetention holds retention percentages (rounded to the nearest
// integer) over trailing windows.
type WhaleRetention struct {
	Days7  int `json:"7d"`
	Days30 int `json:"30d"`
	Days90 int `json:"90d"`
}

// TopWhale is one entry in the whale stats payload.
type TopWhale struct {
	Address  string          `json:"address"`
	UsdValue decimal.Decimal `json:"usd_value"`
	DaysHeld int             `json:"days_held"`
}

// WhaleStats is the per-snapshot whale summary: current whale count,
// retention over 7/30/90 days, and the top whales by USD value.
type WhaleStats struct {
	Count     int            `json:"count"`
	Retention WhaleRetention `json:"retention"`
	Top       []TopWhale     `json:"top"`
}

// Stats computes whale statistics for a snapshot: the fraction of the
// current whale set still present in records last seen within 7/30/90 days,
// as integer percentages, plus the top whales by USD value.
func (t *WhaleTracker) Stats(ctx context.Context, mint string, snapshotID int64, asOf time.Time) (*WhaleStats, error) {
	counts, err := t.repo.QueryRetention(ctx, mint, snapshotID, asOf)
	if err != nil {
		return nil, fmt.Errorf("query whale retention for %s: %w", mint, err)
	}

	top, err := t.repo.TopBySnapshot(ctx, mint, snapshotID, topWhalesLimit)
	if err != nil {
		return nil, fmt.Errorf("query top whales for %s: %w", mint, err)
	}

	stats := &WhaleStats{
		Count: counts.TotalWhales,
		Top:   make([]TopWhale, 0, len(top)),
	}
	if counts.TotalWhales > 0 {
		stats.Retention = WhaleRetention{
			Days7:  roundPercent(counts.Retained7d, counts.TotalWhales),
			Days30: roundPercent(counts.Retained30d, counts.TotalWhales),
			Days90: roundPercent(counts.Retained90d, counts.TotalWhales),
		}
	}
	for _, rec := range top {
		stats.Top = append(stats.Top, TopWhale{
			Address:  rec.Address,
			UsdValue: rec.UsdValue,
			DaysHeld: rec.ConsecutiveDays,
		})
	}
	return stats, nil
}

func roundPercent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
