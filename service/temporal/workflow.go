package temporal

import (
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// AuditTokenWorkflow is the Temporal workflow that audits one tracked token.
// It is triggered by a Temporal schedule, typically once per day so that
// consecutive-day whale streaks accrue naturally.
//
// The workflow runs a single RunAudit activity; the engine itself handles
// dedup, persistence, whale tracking, and event publishing.
func AuditTokenWorkflow(ctx workflow.Context, input AuditTokenInput) (*AuditTokenResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("AuditTokenWorkflow started", "token", input.TokenAddress)

	activityOptions := workflow.ActivityOptions{
		// A full holder scan of a large token can take minutes.
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var result *AuditTokenResult
	err := workflow.ExecuteActivity(ctx, a.RunAudit, input).Get(ctx, &result)
	if err != nil {
		logger.Error("audit activity failed", "token", input.TokenAddress, "error", err)
		errMsg := fmt.Sprintf("audit activity failed: %v", err)
		return &AuditTokenResult{
			TokenAddress: input.TokenAddress,
			Error:        &errMsg,
		}, fmt.Errorf("audit activity failed: %w", err)
	}

	logger.Info("AuditTokenWorkflow completed",
		"token", input.TokenAddress,
		"snapshot_id", result.SnapshotID,
		"created", result.Created,
		"deduped", result.Deduped,
	)

	return result, nil
}
