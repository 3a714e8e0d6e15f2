package database_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskdesk/internal/config"
	"github.com/yukikurage/taskdesk/internal/database"
	"github.com/yukikurage/taskdesk/internal/models"
)

func TestDialector_UnknownDriver(t *testing.T) {
	_, err := database.Dialector(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	dsn := database.SQLiteDSN("/tmp/app.db")
	assert.Contains(t, dsn, "file:/tmp/app.db?")
	assert.Contains(t, dsn, "foreign_keys(1)")
}

func TestConnectAndMigrate_SQLiteFile(t *testing.T) {
	cfg := &config.Config{
		DBDriver: "sqlite",
		DBPath:   filepath.Join(t.TempDir(), "taskdesk.db"),
		GinMode:  "test",
	}

	db, err := database.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	require.NoError(t, database.Migrate(db))
	// running twice is a no-op
	require.NoError(t, database.Migrate(db))

	migrator := db.Migrator()
	for _, model := range []interface{}{&models.User{}, &models.Task{}, &models.TaskFile{}} {
		assert.True(t, migrator.HasTable(model))
	}

	for table, names := range map[string][]string{
		"tasks":      {"idx_tasks_status_created_at", "idx_tasks_assigned_to_status", "idx_tasks_created_by_status"},
		"task_files": {"idx_task_files_task_uploaded"},
		"users":      {"idx_users_role_company"},
	} {
		for _, name := range names {
			assert.True(t, migrator.HasIndex(table, name), "missing index %s on %s", name, table)
		}
	}
}
