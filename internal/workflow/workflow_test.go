package workflow

import (
	"testing"

	"github.com/advelops/adcp-salesagent/internal/models"
)

func TestCompletableFrom_AllowsHumanInTheLoopStatuses(t *testing.T) {
	allowed := []string{
		models.WorkflowStepStatusPending,
		models.WorkflowStepStatusInProgress,
		models.WorkflowStepStatusRequiresApproval,
	}
	for _, status := range allowed {
		if !completableFrom[status] {
			t.Errorf("expected %s to be completable from", status)
		}
	}
	if completableFrom[models.WorkflowStepStatusCompleted] {
		t.Error("completed should not be a valid source status")
	}
}

func TestCompletableTo_OnlyAllowsTerminalStatuses(t *testing.T) {
	if !completableTo[models.WorkflowStepStatusCompleted] || !completableTo[models.WorkflowStepStatusFailed] {
		t.Fatal("expected completed and failed to be valid targets")
	}
	if completableTo[models.WorkflowStepStatusPending] || completableTo[models.WorkflowStepStatusInProgress] {
		t.Fatal("expected pending/in_progress to be rejected as targets")
	}
}
