package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/okdsgnr/Strata/service/audit"
	"github.com/okdsgnr/Strata/service/metrics"
)

// AuditTokenInput contains the input parameters for auditing a token.
type AuditTokenInput struct {
	TokenAddress string `json:"token_address"`
}

// AuditTokenResult contains the outcome of one scheduled audit run.
type AuditTokenResult struct {
	TokenAddress    string    `json:"token_address"`
	SnapshotID      int64     `json:"snapshot_id"`
	Created         bool      `json:"created"`
	Deduped         bool      `json:"deduped"`
	TotalHolders    int       `json:"total_holders"`
	EligibleHolders int       `json:"eligible_holders"`
	WhaleCount      int       `json:"whale_count"`
	AuditTime       time.Time `json:"audit_time"`
	Error           *string   `json:"error,omitempty"`
}

// AuditServiceInterface defines the engine operations needed by activities.
// This allows for easy mocking in tests.
type AuditServiceInterface interface {
	Audit(ctx context.Context, mint string) (*audit.AuditReport, error)
}

// Activities holds the dependencies needed by Temporal activities.
// All dependencies are explicit.
type Activities struct {
	service AuditServiceInterface
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// If m is nil, no metrics will be recorded.
func NewActivities(service AuditServiceInterface, m *metrics.Metrics, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		service: service,
		metrics: m,
		logger:  logger,
	}
}

// RunAudit executes one full audit for a token: fetch holders, supply, and
// price, compute aggregates, and persist the snapshot. Dedup is handled
// inside the engine, so overlapping schedule fires are safe.
func (a *Activities) RunAudit(ctx context.Context, input AuditTokenInput) (*AuditTokenResult, error) {
	a.logger.DebugContext(ctx, "running scheduled audit", "token", input.TokenAddress)

	report, err := a.service.Audit(ctx, input.TokenAddress)
	if err != nil {
		a.logger.ErrorContext(ctx, "scheduled audit failed",
			"token", input.TokenAddress,
			"error", err,
		)
		return nil, fmt.Errorf("audit %s: %w", input.TokenAddress, err)
	}

	result := &AuditTokenResult{
		TokenAddress:    input.TokenAddress,
		SnapshotID:      report.SnapshotID,
		Created:         report.Created,
		Deduped:         report.Deduped,
		TotalHolders:    report.TotalHolders,
		EligibleHolders: report.EligibleHolders,
		WhaleCount:      report.TierCounts.Whale,
		AuditTime:       report.CapturedAt,
	}

	a.logger.InfoContext(ctx, "scheduled audit completed",
		"token", input.TokenAddress,
		"snapshot_id", result.SnapshotID,
		"created", result.Created,
		"deduped", result.Deduped,
		"total_holders", result.TotalHolders,
		"whales", result.WhaleCount,
	)

	return result, nil
}
