package repository

import (
	"context"

	"github.com/yukikurage/taskdesk/internal/access"
	"github.com/yukikurage/taskdesk/internal/database"
	"github.com/yukikurage/taskdesk/internal/models"
	"github.com/yukikurage/taskdesk/internal/utils"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindInScope finds a user by ID within scope
func (r *GormUserRepository) FindInScope(ctx context.Context, id uint64, scope access.Scope) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Scopes(database.UserScope(scope)).
		Where("users.id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List lists users within scope
func (r *GormUserRepository) List(ctx context.Context, scope access.Scope, params utils.PaginationParams) ([]models.User, int64, error) {
	var users []models.User
	query := r.db.WithContext(ctx).Model(&models.User{}).Scopes(database.UserScope(scope))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("users.id ASC").
		Scopes(database.Paginate(params)).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListAssignable lists company users and super admins ordered by company then name
func (r *GormUserRepository) ListAssignable(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("role IN ?", []models.Role{models.RoleCompanyUser, models.RoleSuperAdmin}).
		Order("company ASC, name ASC").
		Find(&users).Error
	return users, err
}

// Update writes the given columns
func (r *GormUserRepository) Update(ctx context.Context, id uint64, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// EmailTaken reports whether a user other than excludeID uses email
func (r *GormUserRepository) EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error) {
	return r.taken(ctx, "email", email, excludeID)
}

// NameTaken reports whether a user other than excludeID uses name
func (r *GormUserRepository) NameTaken(ctx context.Context, name string, excludeID uint64) (bool, error) {
	return r.taken(ctx, "name", name, excludeID)
}

func (r *GormUserRepository) taken(ctx context.Context, column, value string, excludeID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where(column+" = ? AND id <> ?", value, excludeID).
		Count(&count).Error
	return count > 0, err
}

// CountByRole counts users grouped by role
func (r *GormUserRepository) CountByRole(ctx context.Context) (map[models.Role]int64, error) {
	var rows []struct {
		Role  models.Role
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := map[models.Role]int64{
		models.RoleSuperAdmin:  0,
		models.RoleCompanyUser: 0,
		models.RoleEndUser:     0,
	}
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}

// Delete removes a user in one transaction. Tasks the user created are
// deleted with their files. Tasks assigned to the user lose their assignee;
// unfinished ones go back to Pending. Files the user uploaded are kept with
// no uploader.
func (r *GormUserRepository) Delete(ctx context.Context, id uint64) ([]models.TaskFile, error) {
	var removed []models.TaskFile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taskIDs []uint64
		if err := tx.Model(&models.Task{}).Where("created_by = ?", id).Pluck("id", &taskIDs).Error; err != nil {
			return err
		}

		if len(taskIDs) > 0 {
			if err := tx.Where("task_id IN ?", taskIDs).Find(&removed).Error; err != nil {
				return err
			}
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskFile{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", taskIDs).Delete(&models.Task{}).Error; err != nil {
				return err
			}
		}

		err := tx.Model(&models.Task{}).
			Where("assigned_to = ? AND status <> ?", id, models.TaskStatusCompleted).
			Updates(map[string]interface{}{
				"status":       models.TaskStatusPending,
				"assigned_to":  nil,
				"assigned_at":  nil,
				"completed_at": nil,
			}).Error
		if err != nil {
			return err
		}

		err = tx.Model(&models.Task{}).
			Where("assigned_to = ?", id).
			Update("assigned_to", nil).Error
		if err != nil {
			return err
		}

		err = tx.Model(&models.TaskFile{}).
			Where("uploaded_by = ?", id).
			Update("uploaded_by", nil).Error
		if err != nil {
			return err
		}

		result := tx.Delete(&models.User{}, id)
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
	return removed, nil
}
