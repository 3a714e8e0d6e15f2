package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskdesk/internal/dto"
	apierrors "github.com/yukikurage/taskdesk/internal/errors"
	"github.com/yukikurage/taskdesk/internal/services"
	"github.com/yukikurage/taskdesk/internal/utils"
)

// UserHandler serves profile and user administration endpoints.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	Company  *string `json:"company"`
	Password *string `json:"password"`
}

func (r updateUserRequest) input() services.UpdateUserInput {
	return services.UpdateUserInput{
		Name:     r.Name,
		Email:    r.Email,
		Role:     r.Role,
		Company:  r.Company,
		Password: r.Password,
	}
}

// GetProfile returns the caller's profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	user, err := h.userService.GetProfile(c.Request.Context(), p)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// UpdateProfile updates the caller's name and email
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), p, req.input())
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// ListUsers lists users visible to the caller
func (h *UserHandler) ListUsers(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	users, total, err := h.userService.ListUsers(c.Request.Context(), p, params)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UserListResponse{
		Users:      dto.ToUserDTOs(users),
		Pagination: utils.NewPaginationResponse(params, total),
	})
}

// GetUser returns a single user
func (h *UserHandler) GetUser(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := requireResourceID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), p, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// CreateUser creates a user of any role
func (h *UserHandler) CreateUser(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), p, req.input())
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// UpdateUser applies a partial update to another user
func (h *UserHandler) UpdateUser(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := requireResourceID(c)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), p, id, req.input())
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// DeleteUser deletes a user and the tasks they created
func (h *UserHandler) DeleteUser(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := requireResourceID(c)
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), p, id); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User deleted successfully",
	})
}

// Dashboard returns per-role counts for the caller
func (h *UserHandler) Dashboard(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	d, err := h.userService.Dashboard(c.Request.Context(), p)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDashboardDTO(*d))
}
