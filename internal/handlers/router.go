package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskdesk/internal/auth"
	"github.com/yukikurage/taskdesk/internal/middleware"
	"github.com/yukikurage/taskdesk/internal/models"
	"github.com/yukikurage/taskdesk/internal/repository"
	"github.com/yukikurage/taskdesk/internal/services"
	"github.com/yukikurage/taskdesk/internal/storage"
)

// Router holds everything needed to mount the API.
type Router struct {
	Auth      *AuthHandler
	Tasks     *TaskHandler
	Users     *UserHandler
	Tokens    *auth.TokenManager
	Accounts  repository.UserRepository
	UploadDir string
}

// Register mounts the API routes on r.
func (rt Router) Register(r *gin.Engine) {
	requireAuth := middleware.RequireAuth(rt.Tokens, rt.Accounts)
	requireID := middleware.RequireIDParam("id")
	superAdmin := middleware.RequireRoles(models.RoleSuperAdmin)
	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleCompanyUser)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Task Management API is running",
		})
	})

	if rt.UploadDir != "" {
		r.Static(storage.PublicPrefix, rt.UploadDir)
	}

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", rt.Auth.Register)
			authGroup.POST("/login", rt.Auth.Login)
			authGroup.POST("/logout", rt.Auth.Logout)
			authGroup.GET("/me", requireAuth, rt.Auth.CurrentUser)
		}

		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("/me", rt.Auth.CurrentUser)
			users.GET("/profile", rt.Users.GetProfile)
			users.PATCH("/profile", rt.Users.UpdateProfile)
			users.GET("/dashboard", rt.Users.Dashboard)
			users.GET("", staff, rt.Users.ListUsers)
			users.POST("", superAdmin, rt.Users.CreateUser)
			users.GET("/:id", staff, requireID, rt.Users.GetUser)
			users.PATCH("/:id", staff, requireID, rt.Users.UpdateUser)
			users.DELETE("/:id", superAdmin, requireID, rt.Users.DeleteUser)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.POST("", rt.Tasks.CreateTask)
			tasks.GET("", rt.Tasks.ListTasks)
			tasks.GET("/mine", rt.Tasks.ListMyTasks)
			tasks.POST("/generate", rt.Tasks.GenerateTasks)
			tasks.GET("/:id", requireID, rt.Tasks.GetTask)
			tasks.PATCH("/:id", requireID, rt.Tasks.UpdateTask)
			tasks.DELETE("/:id", requireID, rt.Tasks.DeleteTask)
			tasks.POST("/:id/complete", requireID, rt.Tasks.UploadCompletion)
		}

		assignment := api.Group("/task-assignment")
		assignment.Use(requireAuth)
		{
			assignment.GET("/unassigned", rt.Tasks.ListView(services.ViewUnassigned))
			assignment.GET("/pending", rt.Tasks.ListView(services.ViewActive))
			assignment.GET("/completed", rt.Tasks.ListView(services.ViewCompleted))
			assignment.GET("/company-users", superAdmin, rt.Tasks.AssignableUsers)
			assignment.PATCH("/:id/assign", superAdmin, requireID, rt.Tasks.AssignTask)
		}
	}
}
