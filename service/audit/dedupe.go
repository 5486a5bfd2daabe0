package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DedupBucketSeconds is the width of the fixed dedup bucket. A snapshot's
// bucket key is floor(capturedAt / DedupBucketSeconds).
const DedupBucketSeconds = 600

// DedupWindow is the sliding window for time-based dedup. Distinct from
// bucket alignment: it catches requests that straddle a bucket boundary.
const DedupWindow = DedupBucketSeconds * time.Second

// BucketKey returns the fixed 10-minute dedup bucket for a timestamp.
func BucketKey(t time.Time) int64 {
	return t.Unix() / DedupBucketSeconds
}

// Deduper decides whether an audit request needs a fresh snapshot or can
// reuse a recent one. It also serializes the check-then-insert sequence per
// mint so near-simultaneous requests for the same token cannot both proceed
// to full computation. Races that slip through anyway (e.g. across
// processes) are resolved by the repository's idempotent insert.
type Deduper struct {
	snapshots SnapshotRepository
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*mintLock
}

type mintLock struct {
	sync.Mutex
	refs int
}

// NewDeduper creates a Deduper backed by the given snapshot repository.
func NewDeduper(snapshots SnapshotRepository, logger *slog.Logger) *Deduper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduper{
		snapshots: snapshots,
		logger:    logger,
		locks:     make(map[string]*mintLock),
	}
}

// Acquire takes the per-mint lock and returns its release function. The lock
// must be held across the Check call and the eventual snapshot insert.
func (d *Deduper) Acquire(mint string) func() {
	d.mu.Lock()
	l, ok := d.locks[mint]
	if !ok {
		l = &mintLock{}
		d.locks[mint] = l
	}
	l.refs++
	d.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, mint)
		}
		d.mu.Unlock()
	}
}

// Check looks for a reusable snapshot for the mint at the given request
// time. It first probes the exact (mint, bucket) pair, then falls back to a
// sliding-window search for any snapshot captured within the last 10
// minutes. Returns the snapshot to reuse, or nil when a fresh snapshot is
// required.
func (d *Deduper) Check(ctx context.Context, mint string, now time.Time) (*Snapshot, error) {
	bucket := BucketKey(now)

	// Layer 1: exact bucket match, O(1) indexed lookup.
	snap, err := d.snapshots.FindByBucket(ctx, mint, bucket)
	if err != nil {
		return nil, fmt.Errorf("find snapshot by bucket: %w", err)
	}
	if snap != nil {
		d.logger.Debug("dedup hit on bucket", "mint", mint, "bucket", bucket, "snapshot_id", snap.ID)
		return snap, nil
	}

	// Layer 2: sliding window, the authoritative guard against duplicate
	// computation from requests straddling a bucket boundary.
	snap, err = d.snapshots.FindRecent(ctx, mint, DedupWindow)
	if err != nil {
		return nil, fmt.Errorf("find recent snapshot: %w", err)
	}
	if snap != nil {
		d.logger.Debug("dedup hit on window", "mint", mint, "snapshot_id", snap.ID, "captured_at", snap.CapturedAt)
		return snap, nil
	}

	return nil, nil
}
