// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskdesk/internal/database"
	"github.com/yukikurage/taskdesk/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database that is closed when the
// test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open("file::memory:?_foreign_keys=on"), logger.Silent)
	require.NoError(t, err)

	// every connection to :memory: is a new database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// CreateUser inserts a user whose password is "password".
func CreateUser(t testing.TB, db *gorm.DB, name string, role models.Role, company string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: string(hash),
		Role:         role,
	}
	if company != "" {
		user.Company = &company
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTask inserts a task in the given state.
func CreateTask(t testing.TB, db *gorm.DB, title string, creator uint64, assignee *uint64, status models.TaskStatus) *models.Task {
	t.Helper()

	task := &models.Task{
		Title:      title,
		CreatedBy:  creator,
		AssignedTo: assignee,
		Status:     status,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}
