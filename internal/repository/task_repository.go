package repository

import (
	"context"

	"github.com/yukikurage/taskdesk/internal/access"
	"github.com/yukikurage/taskdesk/internal/database"
	"github.com/yukikurage/taskdesk/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create inserts a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// FindByID finds a task by ID within scope. Rows outside the scope are
// reported as gorm.ErrRecordNotFound.
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64, scope access.Scope, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.WithContext(ctx).Model(&models.Task{}).Scopes(database.TaskScope(scope))

	for _, p := range preload {
		if p == "Files" {
			query = query.Preload("Files", func(db *gorm.DB) *gorm.DB {
				return db.Order("task_files.uploaded_at DESC, task_files.id DESC")
			})
			continue
		}
		query = query.Preload(p)
	}

	if err := query.Where("tasks.id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.WithContext(ctx).Model(&models.Task{}).Scopes(database.TaskScope(filter.Scope))

	if len(filter.Statuses) > 0 {
		query = query.Where("tasks.status IN ?", filter.Statuses)
	}
	if filter.CreatedBy != nil {
		query = query.Where("tasks.created_by = ?", *filter.CreatedBy)
	}
	if filter.Unassigned != nil {
		if *filter.Unassigned {
			query = query.Where("tasks.assigned_to IS NULL")
		} else {
			query = query.Where("tasks.assigned_to IS NOT NULL")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Creator").
		Preload("Assignee").
		Order("tasks.created_at DESC, tasks.id DESC").
		Scopes(database.Paginate(filter.Pagination)).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// UpdateFields writes fields only if the row still matches cond
func (r *GormTaskRepository) UpdateFields(ctx context.Context, id uint64, cond TaskCondition, fields map[string]interface{}) error {
	query := r.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", id)

	if cond.Status != "" {
		query = query.Where("status = ?", cond.Status)
	}
	if cond.ExcludeStatus != "" {
		query = query.Where("status <> ?", cond.ExcludeStatus)
	}
	if cond.CreatedBy != 0 {
		query = query.Where("created_by = ?", cond.CreatedBy)
	}
	if cond.CheckAssignee {
		if cond.AssignedTo == nil {
			query = query.Where("assigned_to IS NULL")
		} else {
			query = query.Where("assigned_to = ?", *cond.AssignedTo)
		}
	}

	result := query.Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConditionNotMet
	}
	return nil
}

// Assign writes fields only if the task is still unassigned
func (r *GormTaskRepository) Assign(ctx context.Context, id uint64, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND assigned_to IS NULL", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConditionNotMet
	}
	return nil
}

// Complete flips an assigned, not yet completed task to Completed and
// inserts its files. Nothing is written if the guard does not match.
func (r *GormTaskRepository) Complete(ctx context.Context, id uint64, files []models.TaskFile) error {
	if len(files) == 0 {
		return ErrNoFiles
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		completedAt := files[0].UploadedAt
		result := tx.Model(&models.Task{}).
			Where("id = ? AND status <> ? AND assigned_to IS NOT NULL", id, models.TaskStatusCompleted).
			Updates(map[string]interface{}{
				"status":       models.TaskStatusCompleted,
				"completed_at": completedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConditionNotMet
		}

		for i := range files {
			files[i].TaskID = id
		}
		return tx.Create(&files).Error
	})
}

// CountFiles counts the files attached to a task
func (r *GormTaskRepository) CountFiles(ctx context.Context, taskID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TaskFile{}).Where("task_id = ?", taskID).Count(&count).Error
	return count, err
}

// Delete removes a task and its files
func (r *GormTaskRepository) Delete(ctx context.Context, id uint64) ([]models.TaskFile, error) {
	var files []models.TaskFile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Find(&files).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskFile{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Task{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// CountByStatus counts tasks within scope grouped by status
func (r *GormTaskRepository) CountByStatus(ctx context.Context, scope access.Scope) (map[models.TaskStatus]int64, error) {
	var rows []struct {
		Status models.TaskStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Scopes(database.TaskScope(scope)).
		Select("tasks.status AS status, COUNT(*) AS count").
		Group("tasks.status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := map[models.TaskStatus]int64{
		models.TaskStatusPending:    0,
		models.TaskStatusInProgress: 0,
		models.TaskStatusCompleted:  0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
