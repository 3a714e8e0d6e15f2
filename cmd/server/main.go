package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yukikurage/taskdesk/internal/config"
	"github.com/yukikurage/taskdesk/internal/database"
	"github.com/yukikurage/taskdesk/internal/logging"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "taskdesk",
	Short: "Task management API",
	Long: `taskdesk serves a role-based task management API.

Roles:
- SuperAdmin: sees and changes everything, assigns tasks, manages users.
- CompanyUser: sees tasks assigned within their company and completes them with files.
- EndUser: creates tasks and edits the ones they created.

Tasks move Pending -> InProgress -> Completed. Completion needs an assignee and at least one file.

Running without a subcommand starts the server.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	config.Setup(viper.GetViper())
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("db-driver", "", "database driver: mysql, postgres or sqlite")
	rootCmd.PersistentFlags().String("db-path", "", "sqlite database file")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("db_driver", rootCmd.PersistentFlags().Lookup("db-driver"))
	_ = viper.BindPFlag("db_path", rootCmd.PersistentFlags().Lookup("db-path"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(usersCmd())
}

// loadConfig reads configuration and installs the default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

// withDB opens and migrates the configured database for a one-shot command.
func withDB(fn func(*gorm.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}
	return fn(db)
}
