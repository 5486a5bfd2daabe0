package audit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketKey(t *testing.T) {
	base := time.Unix(6000, 0)
	assert.Equal(t, int64(10), BucketKey(base))
	// Same bucket right up to the boundary.
	assert.Equal(t, int64(10), BucketKey(base.Add(599*time.Second)))
	assert.Equal(t, int64(11), BucketKey(base.Add(600*time.Second)))
}

func TestDeduperCheckBucketHit(t *testing.T) {
	now := time.Unix(6050, 0)
	repo := &mockSnapshotRepo{
		byBucket: map[int64]*Snapshot{BucketKey(now): {ID: 7, CapturedAt: now.Add(-time.Minute)}},
	}
	d := NewDeduper(repo, nil)

	snap, err := d.Check(t.Context(), "mint", now)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, int64(7), snap.ID)
	// Bucket hit short-circuits the window probe.
	assert.Equal(t, 0, repo.findRecentCalls)
}

func TestDeduperCheckWindowHit(t *testing.T) {
	// Snapshot in the previous bucket but still inside the 10 minute
	// window: a request straddling the bucket boundary must still dedup.
	now := time.Unix(6010, 0)
	repo := &mockSnapshotRepo{
		recent: &Snapshot{ID: 9, CapturedAt: now.Add(-2 * time.Minute)},
	}
	d := NewDeduper(repo, nil)

	snap, err := d.Check(t.Context(), "mint", now)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, int64(9), snap.ID)
	assert.Equal(t, DedupWindow, repo.lastWindow)
}

func TestDeduperCheckMiss(t *testing.T) {
	repo := &mockSnapshotRepo{}
	d := NewDeduper(repo, nil)

	snap, err := d.Check(t.Context(), "mint", time.Unix(6010, 0))
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestDeduperAcquireSerializesPerMint(t *testing.T) {
	d := NewDeduper(&mockSnapshotRepo{}, nil)

	var mu sync.Mutex
	events := make([]string, 0, 4)
	record := func(s string) {
		mu.Lock()
		events = append(events, s)
		mu.Unlock()
	}

	release := d.Acquire("mint")
	record("first-acquired")

	done := make(chan struct{})
	go func() {
		defer close(done)
		release2 := d.Acquire("mint")
		record("second-acquired")
		release2()
	}()

	// The second acquire must block until the first release.
	time.Sleep(20 * time.Millisecond)
	record("first-releasing")
	release()
	<-done

	assert.Equal(t, []string{"first-acquired", "first-releasing", "second-acquired"}, events)
}

func TestDeduperAcquireIndependentMints(t *testing.T) {
	d := NewDeduper(&mockSnapshotRepo{}, nil)

	releaseA := d.Acquire("mint-a")
	defer releaseA()

	acquired := make(chan struct{})
	go func() {
		releaseB := d.Acquire("mint-b")
		close(acquired)
		releaseB()
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("acquire on a different mint blocked")
	}
}
