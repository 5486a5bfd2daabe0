package temporal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okdsgnr/Strata/service/audit"
)

// mockAuditService implements AuditServiceInterface with a canned report.
type mockAuditService struct {
	report *audit.AuditReport
	err    error
	calls  []string
}

func (m *mockAuditService) Audit(ctx context.Context, mint string) (*audit.AuditReport, error) {
	m.calls = append(m.calls, mint)
	return m.report, m.err
}

func TestRunAudit(t *testing.T) {
	capturedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := &mockAuditService{
		report: &audit.AuditReport{
			SnapshotID:      42,
			Created:         true,
			CapturedAt:      capturedAt,
			TotalHolders:    1500,
			EligibleHolders: 900,
			TierCounts:      audit.TierCounts{Shrimp: 600, Fish: 200, Dolphin: 70, Shark: 27, Whale: 3},
		},
	}
	activities := NewActivities(svc, nil, nil)

	result, err := activities.RunAudit(context.Background(), AuditTokenInput{
		TokenAddress: "So11111111111111111111111111111111111111112",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, []string{"So11111111111111111111111111111111111111112"}, svc.calls)
	assert.Equal(t, int64(42), result.SnapshotID)
	assert.True(t, result.Created)
	assert.False(t, result.Deduped)
	assert.Equal(t, 1500, result.TotalHolders)
	assert.Equal(t, 900, result.EligibleHolders)
	assert.Equal(t, 3, result.WhaleCount)
	assert.Equal(t, capturedAt, result.AuditTime)
}

func TestRunAuditDeduped(t *testing.T) {
	svc := &mockAuditService{
		report: &audit.AuditReport{
			SnapshotID: 41,
			Deduped:    true,
		},
	}
	activities := NewActivities(svc, nil, nil)

	result, err := activities.RunAudit(context.Background(), AuditTokenInput{
		TokenAddress: "So11111111111111111111111111111111111111112",
	})
	require.NoError(t, err)
	assert.True(t, result.Deduped)
	assert.False(t, result.Created)
}

func TestRunAuditError(t *testing.T) {
	svc := &mockAuditService{err: errors.New("holder fetch failed")}
	activities := NewActivities(svc, nil, nil)

	_, err := activities.RunAudit(context.Background(), AuditTokenInput{
		TokenAddress: "So11111111111111111111111111111111111111112",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holder fetch failed")
}

func TestMockSchedulerLifecycle(t *testing.T) {
	sched := NewMockScheduler()
	ctx := context.Background()
	mint := "So11111111111111111111111111111111111111112"

	require.NoError(t, sched.CreateTokenSchedule(ctx, mint, DefaultAuditInterval))
	assert.True(t, sched.ScheduleExists(mint))

	interval, ok := sched.GetScheduleInterval(mint)
	require.True(t, ok)
	assert.Equal(t, DefaultAuditInterval, interval)

	require.NoError(t, sched.UpsertTokenSchedule(ctx, mint, 12*time.Hour))
	interval, _ = sched.GetScheduleInterval(mint)
	assert.Equal(t, 12*time.Hour, interval)

	require.NoError(t, sched.DeleteTokenSchedule(ctx, mint))
	assert.False(t, sched.ScheduleExists(mint))
	assert.Error(t, sched.DeleteTokenSchedule(ctx, mint))
}
