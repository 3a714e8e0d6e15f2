// Package lifecycle holds the task state machine. Functions here are pure:
// they validate a transition against a loaded task and return the columns
// the caller must write, conditioned on the state that was validated.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	apierrors "github.com/yukikurage/taskdesk/internal/errors"
	"github.com/yukikurage/taskdesk/internal/models"
)

var (
	ErrAssigneeRequired  = apierrors.NewAPIError(apierrors.ErrCodeInvalidTransition, "task must be assigned before it can be in progress")
	ErrFilesRequired     = apierrors.NewAPIError(apierrors.ErrCodePreconditionFailed, "task needs at least one completion file")
	ErrAssignAsPending   = apierrors.NewAPIError(apierrors.ErrCodeInvalidTransition, "a task cannot be assigned as Pending")
	ErrAlreadyAssigned   = apierrors.NewAPIError(apierrors.ErrCodeAlreadyAssigned, "task is already assigned")
	ErrInvalidAssignee   = apierrors.NewAPIError(apierrors.ErrCodeInvalidAssignee, "tasks can only be assigned to company users or super admins")
	ErrNotAssigned       = apierrors.NewAPIError(apierrors.ErrCodeNotAssigned, "task is not assigned")
	ErrAlreadyCompleted  = apierrors.NewAPIError(apierrors.ErrCodeAlreadyCompleted, "task is already completed")
	ErrNoFiles           = apierrors.NewAPIError(apierrors.ErrCodeNoFiles, "at least one file is required")
	ErrCompletedReadOnly = apierrors.NewAPIError(apierrors.ErrCodeInvalidTransition, "completed tasks cannot be edited")
)

// Plan is the set of task columns a transition writes.
type Plan map[string]interface{}

// Empty reports whether the plan writes nothing.
func (p Plan) Empty() bool { return len(p) == 0 }

// ParseStatus validates a status string.
func ParseStatus(s string) (models.TaskStatus, error) {
	status := models.TaskStatus(strings.TrimSpace(s))
	if !status.Valid() {
		return "", apierrors.Validation(fmt.Sprintf("invalid status %q: must be Pending, InProgress or Completed", s))
	}
	return status, nil
}

// Transition validates moving task to status `to`. fileCount is the number
// of TaskFiles attached to the task. Moving to the current status is a no-op.
func Transition(task models.Task, to models.TaskStatus, fileCount int64, now time.Time) (Plan, error) {
	if !to.Valid() {
		return nil, apierrors.Validation(fmt.Sprintf("invalid status %q", to))
	}
	if to == task.Status {
		return Plan{}, nil
	}

	switch to {
	case models.TaskStatusPending:
		return Plan{
			"status":       models.TaskStatusPending,
			"assigned_to":  nil,
			"assigned_at":  nil,
			"completed_at": nil,
		}, nil
	case models.TaskStatusInProgress:
		if task.AssignedTo == nil {
			return nil, ErrAssigneeRequired
		}
		return Plan{
			"status":       models.TaskStatusInProgress,
			"completed_at": nil,
		}, nil
	case models.TaskStatusCompleted:
		if fileCount < 1 {
			return nil, ErrFilesRequired
		}
		return Plan{
			"status":       models.TaskStatusCompleted,
			"completed_at": now,
		}, nil
	}
	return nil, apierrors.Validation(fmt.Sprintf("invalid status %q", to))
}

// PlanAssign validates assigning task to assignee with the requested status.
// An empty requested status means InProgress.
func PlanAssign(task models.Task, assignee models.User, requested models.TaskStatus, fileCount int64, now time.Time) (Plan, error) {
	if task.AssignedTo != nil {
		return nil, ErrAlreadyAssigned
	}
	if !assignee.Role.CanBeAssigned() {
		return nil, ErrInvalidAssignee
	}
	if requested == "" {
		requested = models.TaskStatusInProgress
	}

	plan := Plan{
		"assigned_to": assignee.ID,
		"assigned_at": now,
		"status":      requested,
	}

	switch requested {
	case models.TaskStatusPending:
		return nil, ErrAssignAsPending
	case models.TaskStatusInProgress:
		plan["completed_at"] = nil
	case models.TaskStatusCompleted:
		if fileCount < 1 {
			return nil, ErrFilesRequired
		}
		if task.CompletedAt == nil {
			plan["completed_at"] = now
		}
	default:
		return nil, apierrors.Validation(fmt.Sprintf("invalid status %q", requested))
	}
	return plan, nil
}

// CheckCompletion validates a completion upload. Checks run in a fixed
// order: assignment, then completion, then the file count.
func CheckCompletion(task models.Task, fileCount int) error {
	if task.AssignedTo == nil {
		return ErrNotAssigned
	}
	if task.Status == models.TaskStatusCompleted {
		return ErrAlreadyCompleted
	}
	if fileCount < 1 {
		return ErrNoFiles
	}
	return nil
}

// CheckEditable rejects field edits by non-admins on completed tasks.
func CheckEditable(task models.Task) error {
	if task.Status == models.TaskStatusCompleted {
		return ErrCompletedReadOnly
	}
	return nil
}
