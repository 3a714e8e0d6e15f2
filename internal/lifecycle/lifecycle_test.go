package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "github.com/yukikurage/taskdesk/internal/errors"
	"github.com/yukikurage/taskdesk/internal/models"
)

var now = time.Date(2024, 4, 20, 9, 0, 0, 0, time.UTC)

func assigned(id uint64) *uint64 { return &id }

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus(" InProgress ")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, status)

	_, err = ParseStatus("done")
	assert.Equal(t, apierrors.ErrCodeValidation, apierrors.Code(err))
}

func TestTransition(t *testing.T) {
	completedAt := now.Add(-time.Hour)

	tests := []struct {
		name      string
		task      models.Task
		to        models.TaskStatus
		files     int64
		wantErr   error
		wantPlan  Plan
		wantEmpty bool
	}{
		{
			name:      "same status is a no-op",
			task:      models.Task{Status: models.TaskStatusPending},
			to:        models.TaskStatusPending,
			wantEmpty: true,
		},
		{
			name:    "in progress needs an assignee",
			task:    models.Task{Status: models.TaskStatusPending},
			to:      models.TaskStatusInProgress,
			wantErr: ErrAssigneeRequired,
		},
		{
			name: "in progress with assignee",
			task: models.Task{Status: models.TaskStatusPending, AssignedTo: assigned(3)},
			to:   models.TaskStatusInProgress,
			wantPlan: Plan{
				"status":       models.TaskStatusInProgress,
				"completed_at": nil,
			},
		},
		{
			name:    "completed needs files",
			task:    models.Task{Status: models.TaskStatusInProgress, AssignedTo: assigned(3)},
			to:      models.TaskStatusCompleted,
			wantErr: ErrFilesRequired,
		},
		{
			name:  "completed with files",
			task:  models.Task{Status: models.TaskStatusInProgress, AssignedTo: assigned(3)},
			to:    models.TaskStatusCompleted,
			files: 1,
			wantPlan: Plan{
				"status":       models.TaskStatusCompleted,
				"completed_at": now,
			},
		},
		{
			name: "back to pending clears the assignment",
			task: models.Task{Status: models.TaskStatusCompleted, AssignedTo: assigned(3), CompletedAt: &completedAt},
			to:   models.TaskStatusPending,
			wantPlan: Plan{
				"status":       models.TaskStatusPending,
				"assigned_to":  nil,
				"assigned_at":  nil,
				"completed_at": nil,
			},
		},
		{
			name: "reopening a completed task clears completed_at",
			task: models.Task{Status: models.TaskStatusCompleted, AssignedTo: assigned(3), CompletedAt: &completedAt},
			to:   models.TaskStatusInProgress,
			wantPlan: Plan{
				"status":       models.TaskStatusInProgress,
				"completed_at": nil,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Transition(tt.task, tt.to, tt.files, now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.wantEmpty {
				assert.True(t, plan.Empty())
				return
			}
			assert.Equal(t, tt.wantPlan, plan)
		})
	}
}

func TestTransition_InvalidStatus(t *testing.T) {
	_, err := Transition(models.Task{Status: models.TaskStatusPending}, "Archived", 0, now)
	assert.Equal(t, apierrors.ErrCodeValidation, apierrors.Code(err))
}

func TestPlanAssign(t *testing.T) {
	companyUser := models.User{ID: 7, Role: models.RoleCompanyUser}
	endUser := models.User{ID: 8, Role: models.RoleEndUser}
	open := models.Task{Status: models.TaskStatusPending}

	t.Run("defaults to in progress", func(t *testing.T) {
		plan, err := PlanAssign(open, companyUser, "", 0, now)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), plan["assigned_to"])
		assert.Equal(t, now, plan["assigned_at"])
		assert.Equal(t, models.TaskStatusInProgress, plan["status"])
	})

	t.Run("already assigned wins over other checks", func(t *testing.T) {
		task := models.Task{Status: models.TaskStatusInProgress, AssignedTo: assigned(1)}
		_, err := PlanAssign(task, endUser, models.TaskStatusPending, 0, now)
		assert.ErrorIs(t, err, ErrAlreadyAssigned)
	})

	t.Run("end users cannot be assigned", func(t *testing.T) {
		_, err := PlanAssign(open, endUser, "", 0, now)
		assert.ErrorIs(t, err, ErrInvalidAssignee)
		assert.Equal(t, apierrors.ErrCodeInvalidAssignee, apierrors.Code(err))
	})

	t.Run("pending is rejected", func(t *testing.T) {
		_, err := PlanAssign(open, companyUser, models.TaskStatusPending, 0, now)
		assert.ErrorIs(t, err, ErrAssignAsPending)
	})

	t.Run("completed needs files", func(t *testing.T) {
		_, err := PlanAssign(open, companyUser, models.TaskStatusCompleted, 0, now)
		assert.ErrorIs(t, err, ErrFilesRequired)

		plan, err := PlanAssign(open, companyUser, models.TaskStatusCompleted, 2, now)
		require.NoError(t, err)
		assert.Equal(t, now, plan["completed_at"])
	})
}

func TestCheckCompletion_Order(t *testing.T) {
	// unassigned and completed: assignment is reported first
	task := models.Task{Status: models.TaskStatusCompleted}
	assert.ErrorIs(t, CheckCompletion(task, 0), ErrNotAssigned)

	task.AssignedTo = assigned(2)
	assert.ErrorIs(t, CheckCompletion(task, 0), ErrAlreadyCompleted)

	task.Status = models.TaskStatusInProgress
	assert.ErrorIs(t, CheckCompletion(task, 0), ErrNoFiles)
	assert.NoError(t, CheckCompletion(task, 1))
}

func TestCheckEditable(t *testing.T) {
	assert.NoError(t, CheckEditable(models.Task{Status: models.TaskStatusInProgress}))
	assert.ErrorIs(t, CheckEditable(models.Task{Status: models.TaskStatusCompleted}), ErrCompletedReadOnly)
}
