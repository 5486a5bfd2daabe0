package temporal

import (
	"context"
	"time"
)

// Scheduler manages Temporal schedules for tracked tokens. Each tracked
// token gets its own schedule that triggers the AuditTokenWorkflow.
type Scheduler interface {
	// CreateTokenSchedule creates a new schedule for auditing a token.
	// The schedule will trigger the AuditTokenWorkflow on the given interval.
	CreateTokenSchedule(ctx context.Context, mint string, interval time.Duration) error

	// UpsertTokenSchedule creates the schedule or updates its interval if it
	// already exists.
	UpsertTokenSchedule(ctx context.Context, mint string, interval time.Duration) error

	// DeleteTokenSchedule deletes the schedule for a token.
	// This stops the token from being audited.
	DeleteTokenSchedule(ctx context.Context, mint string) error
}

// DefaultAuditInterval is the schedule cadence for tracked tokens. Daily
// runs keep the consecutive-day whale streak window (24-25h) satisfied.
const DefaultAuditInterval = 24 * time.Hour

// scheduleID returns the Temporal schedule ID for a tracked token.
func scheduleID(mint string) string {
	return "audit-token-" + mint
}
