package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/taskdesk/internal/access"
	"github.com/yukikurage/taskdesk/internal/models"
	"github.com/yukikurage/taskdesk/internal/utils"
)

// ErrConditionNotMet is returned by conditional writes when the row no
// longer matches the state the caller validated against.
var ErrConditionNotMet = errors.New("repository: row changed before write")

// ErrNoFiles is returned when a completion is attempted without files.
var ErrNoFiles = errors.New("repository: completion requires at least one file")

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create inserts a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID within scope, with optional preloading
	FindByID(ctx context.Context, id uint64, scope access.Scope, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// UpdateFields writes fields only if the row still matches cond
	UpdateFields(ctx context.Context, id uint64, cond TaskCondition, fields map[string]interface{}) error

	// Assign writes fields only if the task is still unassigned
	Assign(ctx context.Context, id uint64, fields map[string]interface{}) error

	// Complete attaches files and marks the task completed in one transaction
	Complete(ctx context.Context, id uint64, files []models.TaskFile) error

	// CountFiles counts the files attached to a task
	CountFiles(ctx context.Context, taskID uint64) (int64, error)

	// Delete removes a task and its files, returning the removed file rows
	Delete(ctx context.Context, id uint64) ([]models.TaskFile, error)

	// CountByStatus counts tasks within scope grouped by status
	CountByStatus(ctx context.Context, scope access.Scope) (map[models.TaskStatus]int64, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	Scope      access.Scope
	Statuses   []models.TaskStatus
	CreatedBy  *uint64
	Unassigned *bool
	Pagination utils.PaginationParams
}

// TaskCondition is the state a conditional update is guarded by. Zero
// values are not checked.
type TaskCondition struct {
	Status        models.TaskStatus
	ExcludeStatus models.TaskStatus
	CreatedBy     uint64
	// CheckAssignee compares assigned_to with AssignedTo (nil means IS NULL).
	CheckAssignee bool
	AssignedTo    *uint64
}

// ObservedState returns a condition matching the task exactly as loaded.
func ObservedState(task models.Task) TaskCondition {
	return TaskCondition{
		Status:        task.Status,
		CheckAssignee: true,
		AssignedTo:    task.AssignedTo,
	}
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindInScope finds a user by ID within scope
	FindInScope(ctx context.Context, id uint64, scope access.Scope) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// List lists users within scope
	List(ctx context.Context, scope access.Scope, params utils.PaginationParams) ([]models.User, int64, error)

	// ListAssignable lists users that may receive tasks, ordered by company then name
	ListAssignable(ctx context.Context) ([]models.User, error)

	// Update writes the given columns
	Update(ctx context.Context, id uint64, fields map[string]interface{}) error

	// EmailTaken reports whether another user already uses email
	EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error)

	// NameTaken reports whether another user already uses name
	NameTaken(ctx context.Context, name string, excludeID uint64) (bool, error)

	// CountByRole counts users grouped by role
	CountByRole(ctx context.Context) (map[models.Role]int64, error)

	// Delete removes a user and cascades to their tasks, returning removed file rows
	Delete(ctx context.Context, id uint64) ([]models.TaskFile, error)
}
