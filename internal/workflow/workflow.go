// Package workflow implements the task/workflow surface: listing,
// inspecting, and completing WorkflowStep records that gate human-in-the-
// loop media-buy and creative operations.
package workflow

import (
	"context"
	"time"

	"github.com/advelops/adcp-salesagent/internal/apperr"
	"github.com/advelops/adcp-salesagent/internal/db"
	"github.com/advelops/adcp-salesagent/internal/models"
)

// completableFrom are the statuses complete_task may transition away from.
var completableFrom = map[string]bool{
	models.WorkflowStepStatusPending:          true,
	models.WorkflowStepStatusInProgress:       true,
	models.WorkflowStepStatusRequiresApproval: true,
}

// completableTo are the only statuses complete_task may set.
var completableTo = map[string]bool{
	models.WorkflowStepStatusCompleted: true,
	models.WorkflowStepStatusFailed:    true,
}

// Service implements list_tasks/get_task/complete_task against the
// workflow_steps/object_workflow_mappings tables.
type Service struct {
	store *db.Postgres
}

// New builds a workflow Service.
func New(store *db.Postgres) *Service {
	return &Service{store: store}
}

// TaskPage is the paginated list_tasks response.
type TaskPage struct {
	Tasks   []models.WorkflowStep `json:"tasks"`
	Total   int                   `json:"total"`
	HasMore bool                  `json:"has_more"`
}

// ListTasks returns a page of workflow steps for a tenant, optionally
// filtered by status and/or the object a step is mapped to.
func (s *Service) ListTasks(ctx context.Context, tenantID, status, objectType, objectID string, limit, offset int) (TaskPage, error) {
	if limit <= 0 {
		limit = 20
	}
	tasks, total, err := s.store.ListTasks(ctx, tenantID, db.ListTasksFilter{
		Status:     status,
		ObjectType: objectType,
		ObjectID:   objectID,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return TaskPage{}, err
	}
	return TaskPage{
		Tasks:   tasks,
		Total:   total,
		HasMore: offset+len(tasks) < total,
	}, nil
}

// TaskDetail is the get_task response: a step plus its object mappings.
type TaskDetail struct {
	Step     models.WorkflowStep            `json:"step"`
	Mappings []models.ObjectWorkflowMapping `json:"object_mappings"`
}

// GetTask returns the full step plus its object mappings.
func (s *Service) GetTask(ctx context.Context, taskID string) (TaskDetail, error) {
	step, err := s.store.LoadWorkflowStep(ctx, taskID)
	if err != nil {
		return TaskDetail{}, err
	}
	if step == nil {
		return TaskDetail{}, apperr.NotFound("task %s not found", taskID)
	}
	mappings, err := s.store.LoadObjectWorkflowMappings(ctx, taskID)
	if err != nil {
		return TaskDetail{}, err
	}
	return TaskDetail{Step: *step, Mappings: mappings}, nil
}

// CompleteTask transitions a task to a terminal status. Only allowed from
// {pending, in_progress, requires_approval} and only to {completed, failed}.
func (s *Service) CompleteTask(ctx context.Context, taskID, status string, responseData []byte, errMessage string) (models.WorkflowStep, error) {
	if !completableTo[status] {
		return models.WorkflowStep{}, apperr.InvalidRequest("complete_task status must be completed or failed, got %q", status)
	}

	step, err := s.store.LoadWorkflowStep(ctx, taskID)
	if err != nil {
		return models.WorkflowStep{}, err
	}
	if step == nil {
		return models.WorkflowStep{}, apperr.NotFound("task %s not found", taskID)
	}
	if !completableFrom[step.Status] {
		return models.WorkflowStep{}, apperr.InvalidRequest("task %s cannot be completed from status %q", taskID, step.Status)
	}

	if err := s.store.UpdateWorkflowStep(ctx, taskID, status, responseData, errMessage); err != nil {
		return models.WorkflowStep{}, err
	}

	step.Status = status
	step.ResponseData = responseData
	step.ErrorMessage = errMessage
	step.UpdatedAt = time.Now()
	return *step, nil
}
