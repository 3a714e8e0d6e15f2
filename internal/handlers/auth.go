package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskdesk/internal/constants"
	"github.com/yukikurage/taskdesk/internal/dto"
	apierrors "github.com/yukikurage/taskdesk/internal/errors"
	"github.com/yukikurage/taskdesk/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Company  string `json:"company"`
}

func (r registerRequest) input() services.RegisterInput {
	return services.RegisterInput{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Role:     r.Role,
		Company:  r.Company,
	}
}

// Register creates a new account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.input())
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// Login verifies credentials, returns an access token and keeps it in the
// session for browser clients.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	if _, ok := c.Get(sessions.DefaultKey); ok {
		session := sessions.Default(c)
		session.Set(constants.SessionKeyAccessToken, result.Token)
		if err := session.Save(); err != nil {
			slog.Error("failed to save session", slog.Any("err", err))
			apierrors.Respond(c, apierrors.NewAPIError(apierrors.ErrCodeInternalError, "Failed to save session"))
			return
		}
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      dto.ToUserDTO(*result.User),
	})
}

// Logout removes the session token. Bearer tokens stay valid until they expire.
func (h *AuthHandler) Logout(c *gin.Context) {
	if _, ok := c.Get(sessions.DefaultKey); ok {
		session := sessions.Default(c)
		session.Clear()
		if err := session.Save(); err != nil {
			apierrors.Respond(c, apierrors.NewAPIError(apierrors.ErrCodeInternalError, "Failed to logout"))
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// CurrentUser returns the caller as carried by the token.
func (h *AuthHandler) CurrentUser(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": dto.ToPrincipalDTO(p),
	})
}
