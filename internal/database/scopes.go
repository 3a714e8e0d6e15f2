package database

import (
	"gorm.io/gorm"

	"github.com/yukikurage/taskdesk/internal/access"
	"github.com/yukikurage/taskdesk/internal/utils"
)

// Paginate applies pagination to a GORM query
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if params.Limit <= 0 {
			return db
		}
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// TaskScope compiles a task read scope into a filter on the tasks table.
func TaskScope(s access.Scope) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch s.Predicate {
		case access.PredicateAll:
			return db
		case access.PredicateCreatedBy:
			return db.Where("tasks.created_by = ?", s.UserID)
		case access.PredicateCreatedOrAssigned:
			return db.Where("(tasks.created_by = ? OR tasks.assigned_to = ?)", s.UserID, s.UserID)
		case access.PredicateAssignedWithinCompany:
			members := db.Session(&gorm.Session{NewDB: true}).
				Table("users").
				Select("users.id").
				Where("users.company = ?", s.Company)
			return db.Where("tasks.assigned_to IN (?)", members)
		default:
			return db.Where("1 = 0")
		}
	}
}

// UserScope compiles a user read scope into a filter on the users table.
func UserScope(s access.Scope) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch s.Predicate {
		case access.PredicateAll:
			return db
		case access.PredicateUserSelf:
			return db.Where("users.id = ?", s.UserID)
		case access.PredicateUserCompany:
			return db.Where("users.company = ?", s.Company)
		default:
			return db.Where("1 = 0")
		}
	}
}
