package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yukikurage/taskdesk/internal/auth"
	"github.com/yukikurage/taskdesk/internal/config"
	"github.com/yukikurage/taskdesk/internal/constants"
	"github.com/yukikurage/taskdesk/internal/database"
	"github.com/yukikurage/taskdesk/internal/handlers"
	"github.com/yukikurage/taskdesk/internal/repository"
	"github.com/yukikurage/taskdesk/internal/services"
	"github.com/yukikurage/taskdesk/internal/storage"
	"gorm.io/gorm"
)

const shutdownTimeout = 5 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
	cmd.Flags().String("port", "", "listen port")
	_ = viper.BindPFlag("port", cmd.Flags().Lookup("port"))
	return cmd
}

func runServer(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	gin.SetMode(cfg.GinMode)

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

	r, err := newEngine(cfg, db)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", slog.Any("err", err))
		}
	}()

	slog.Info("server starting", slog.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// newEngine wires repositories, services and handlers into a gin engine.
func newEngine(cfg *config.Config, db *gorm.DB) (*gin.Engine, error) {
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return nil, err
	}

	files, err := storage.NewDiskStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare upload dir: %w", err)
	}

	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	taskRepo := repository.NewTaskRepository(db)
	userRepo := repository.NewUserRepository(db)

	taskService := services.NewTaskService(taskRepo, userRepo, files, aiService)
	taskService.SetMaxUploadFiles(cfg.MaxUploadFiles)
	taskService.SetMaxUploadSize(cfg.MaxUploadSizeMB << 20)
	userService := services.NewUserService(userRepo, taskRepo, files)
	authService := services.NewAuthService(userRepo, tokens, cfg.OpenSignupRoles)

	store, err := newSessionStore(cfg)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.MaxMultipartMemory = cfg.MaxUploadSizeMB << 20
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	handlers.Router{
		Auth:      handlers.NewAuthHandler(authService),
		Tasks:     handlers.NewTaskHandler(taskService),
		Users:     handlers.NewUserHandler(userService),
		Tokens:    tokens,
		Accounts:  userRepo,
		UploadDir: files.Dir(),
	}.Register(r)

	return r, nil
}

func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	switch cfg.SessionStore {
	case "redis":
		redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
		s, err := redisStore.NewStore(
			10,    // pool size
			"tcp", // network type
			redisAddr,
			"", // username
			"", // password
			[]byte(cfg.SessionSecret),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
		store = s
	default:
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   constants.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}
