package dto

import (
	"time"

	"github.com/yukikurage/taskdesk/internal/access"
	"github.com/yukikurage/taskdesk/internal/models"
	"github.com/yukikurage/taskdesk/internal/services"
	"github.com/yukikurage/taskdesk/internal/utils"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        uint64      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	Company   *string     `json:"company"`
	CreatedAt time.Time   `json:"created_at"`
}

// PrincipalDTO is the caller as carried by the access token
type PrincipalDTO struct {
	ID      uint64      `json:"id"`
	Role    models.Role `json:"role"`
	Company *string     `json:"company"`
}

// UserListResponse represents a paginated list of users
type UserListResponse struct {
	Users      []UserDTO                `json:"users"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// LoginResponse is returned by the login endpoint
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserDTO   `json:"user"`
}

// DashboardDTO summarizes the caller's view of the system
type DashboardDTO struct {
	Role       models.Role                 `json:"role"`
	TaskCounts map[models.TaskStatus]int64 `json:"task_counts"`
	TotalTasks int64                       `json:"total_tasks"`
	UserCounts map[models.Role]int64       `json:"user_counts,omitempty"`
	TotalUsers int64                       `json:"total_users,omitempty"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Company:   user.Company,
		CreatedAt: user.CreatedAt,
	}
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []models.User) []UserDTO {
	out := make([]UserDTO, len(users))
	for i, u := range users {
		out[i] = ToUserDTO(u)
	}
	return out
}

// ToPrincipalDTO converts a Principal to PrincipalDTO
func ToPrincipalDTO(p access.Principal) PrincipalDTO {
	return PrincipalDTO{ID: p.UserID, Role: p.Role, Company: p.Company}
}

// ToDashboardDTO converts a service dashboard to its response form
func ToDashboardDTO(d services.Dashboard) DashboardDTO {
	out := DashboardDTO{
		Role:       d.Role,
		TaskCounts: d.TaskCounts,
		UserCounts: d.UserCounts,
	}
	for _, n := range d.TaskCounts {
		out.TotalTasks += n
	}
	for _, n := range d.UserCounts {
		out.TotalUsers += n
	}
	return out
}
