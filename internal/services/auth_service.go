package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/taskdesk/internal/auth"
	apierrors "github.com/yukikurage/taskdesk/internal/errors"
	"github.com/yukikurage/taskdesk/internal/models"
	"github.com/yukikurage/taskdesk/internal/repository"
	"github.com/yukikurage/taskdesk/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = apierrors.NewAPIError(apierrors.ErrCodeUnauthenticated, "Invalid email or password")
	ErrSignupRoleDenied   = apierrors.NewAPIError(apierrors.ErrCodeForbidden, "public registration can only create EndUser accounts")
)

// AuthService handles registration and login.
type AuthService struct {
	userRepo        repository.UserRepository
	tokens          *auth.TokenManager
	openSignupRoles bool
}

// NewAuthService creates a new AuthService. When openSignupRoles is false,
// public registration only creates EndUser accounts.
func NewAuthService(userRepo repository.UserRepository, tokens *auth.TokenManager, openSignupRoles bool) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		tokens:          tokens,
		openSignupRoles: openSignupRoles,
	}
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	Company  string
}

// Register creates a user through the public endpoint.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	role := models.Role(input.Role)
	if !s.openSignupRoles && role.Valid() && role != models.RoleEndUser {
		return nil, ErrSignupRoleDenied
	}
	return createUser(ctx, s.userRepo, input)
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is a signed access token and the user it was issued for.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := utils.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, apierrors.Validation("Email and password are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(*user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
