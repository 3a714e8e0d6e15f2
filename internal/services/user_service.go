package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yukikurage/taskdesk/internal/access"
	"github.com/yukikurage/taskdesk/internal/constants"
	apierrors "github.com/yukikurage/taskdesk/internal/errors"
	"github.com/yukikurage/taskdesk/internal/models"
	"github.com/yukikurage/taskdesk/internal/repository"
	"github.com/yukikurage/taskdesk/internal/storage"
	"github.com/yukikurage/taskdesk/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound      = apierrors.NewAPIError(apierrors.ErrCodeNotFound, "user not found")
	ErrEmailTaken        = apierrors.NewAPIError(apierrors.ErrCodeConflict, "User already exists with this email")
	ErrNameTaken         = apierrors.NewAPIError(apierrors.ErrCodeConflict, "User already exists with this name")
	ErrUserConflict      = apierrors.NewAPIError(apierrors.ErrCodeConflict, "User conflicts with an existing account")
	ErrMissingUserFields = apierrors.Validation("All fields are required: name, role, email, password")
	ErrInvalidRole       = apierrors.Validation("Invalid role. Must be: SuperAdmin, CompanyUser, or EndUser")
	ErrInvalidEmail      = apierrors.Validation("email is not valid")
	ErrPasswordTooShort  = apierrors.Validation(fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	ErrNameTooLong       = apierrors.Validation(fmt.Sprintf("name must be at most %d characters", constants.MaxNameLength))
	ErrEmptyName         = apierrors.Validation("name cannot be empty")
	ErrEmptyEmail        = apierrors.Validation("email cannot be empty")
	ErrNoUserFields      = apierrors.Validation("no fields to update")
	ErrPasswordReset     = apierrors.NewAPIError(apierrors.ErrCodeForbidden, "only super admins can reset passwords")
)

// UserService handles profile and user administration.
type UserService struct {
	userRepo repository.UserRepository
	taskRepo repository.TaskRepository
	files    storage.FileStore
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, taskRepo repository.TaskRepository, files storage.FileStore) *UserService {
	return &UserService{
		userRepo: userRepo,
		taskRepo: taskRepo,
		files:    files,
	}
}

// UpdateUserInput is a partial user update. Nil fields are left untouched.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Role     *string
	Company  *string
	Password *string
}

// GetProfile returns the caller's own user row.
func (s *UserService) GetProfile(ctx context.Context, p access.Principal) (*models.User, error) {
	return s.find(ctx, p.UserID)
}

// UpdateProfile applies a self-service update. Role and company are
// immutable for everyone but super admins.
func (s *UserService) UpdateProfile(ctx context.Context, p access.Principal, input UpdateUserInput) (*models.User, error) {
	input.Password = nil
	return s.UpdateUser(ctx, p, p.UserID, input)
}

// ListUsers lists the users in the caller's read scope.
func (s *UserService) ListUsers(ctx context.Context, p access.Principal, params utils.PaginationParams) ([]models.User, int64, error) {
	users, total, err := s.userRepo.List(ctx, access.ResolveReadScope(p, access.KindUser), params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// GetUser returns a user in the caller's read scope.
func (s *UserService) GetUser(ctx context.Context, p access.Principal, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindInScope(ctx, id, access.ResolveReadScope(p, access.KindUser))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// CreateUser creates a user of any role on behalf of a super admin.
func (s *UserService) CreateUser(ctx context.Context, p access.Principal, input RegisterInput) (*models.User, error) {
	if err := access.ResolveUserWrite(p, access.IntentCreateUser, models.User{}).Err(); err != nil {
		return nil, err
	}
	return createUser(ctx, s.userRepo, input)
}

// UpdateUser applies a partial update to a user in the caller's scope.
func (s *UserService) UpdateUser(ctx context.Context, p access.Principal, id uint64, input UpdateUserInput) (*models.User, error) {
	target, err := s.GetUser(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := access.ResolveUserWrite(p, access.IntentEditUser, *target).Err(); err != nil {
		return nil, err
	}

	var role *models.Role
	if input.Role != nil {
		r := models.Role(strings.TrimSpace(*input.Role))
		role = &r
	}
	var company *string
	if input.Company != nil {
		c := strings.TrimSpace(*input.Company)
		company = &c
	}
	if err := access.CheckImmutable(p, *target, role, company); err != nil {
		return nil, err
	}
	if input.Password != nil && !p.IsSuperAdmin() {
		return nil, ErrPasswordReset
	}

	fields := map[string]interface{}{}
	if input.Name != nil {
		name, err := s.checkName(ctx, *input.Name, target.ID)
		if err != nil {
			return nil, err
		}
		if name != target.Name {
			fields["name"] = name
		}
	}
	if input.Email != nil {
		email, err := s.checkEmail(ctx, *input.Email, target.ID)
		if err != nil {
			return nil, err
		}
		if email != target.Email {
			fields["email"] = email
		}
	}
	if role != nil && *role != target.Role {
		if !role.Valid() {
			return nil, ErrInvalidRole
		}
		fields["role"] = *role
	}
	if company != nil && *company != target.CompanyName() {
		if *company == "" {
			fields["company"] = nil
		} else {
			fields["company"] = *company
		}
	}
	if input.Password != nil {
		hash, err := hashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		fields["password_hash"] = hash
	}

	if len(fields) == 0 {
		if input.Name == nil && input.Email == nil && role == nil && company == nil && input.Password == nil {
			return nil, ErrNoUserFields
		}
		return target, nil
	}

	if err := s.userRepo.Update(ctx, target.ID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			name, _ := fields["name"].(string)
			email, _ := fields["email"].(string)
			return nil, duplicateUser(ctx, s.userRepo, name, email, target.ID)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return s.find(ctx, target.ID)
}

// DeleteUser removes a user and cascades to their tasks.
func (s *UserService) DeleteUser(ctx context.Context, p access.Principal, id uint64) error {
	if !p.IsSuperAdmin() {
		return access.ResolveUserWrite(p, access.IntentDeleteUser, models.User{}).Err()
	}

	target, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := access.ResolveUserWrite(p, access.IntentDeleteUser, *target).Err(); err != nil {
		return err
	}

	removed, err := s.userRepo.Delete(ctx, target.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	removeStored(ctx, s.files, removed)

	slog.Info("user deleted",
		slog.Uint64("user_id", target.ID),
		slog.Uint64("deleted_by", p.UserID),
		slog.Int("files_removed", len(removed)),
	)
	return nil
}

// Dashboard summarizes what the caller can see.
type Dashboard struct {
	Role       models.Role
	TaskCounts map[models.TaskStatus]int64
	// UserCounts is only filled for super admins.
	UserCounts map[models.Role]int64
}

// Dashboard returns task counts in the caller's read scope, and user counts
// by role for super admins.
func (s *UserService) Dashboard(ctx context.Context, p access.Principal) (*Dashboard, error) {
	taskCounts, err := s.taskRepo.CountByStatus(ctx, access.ResolveReadScope(p, access.KindTask))
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	d := &Dashboard{Role: p.Role, TaskCounts: taskCounts}
	if p.IsSuperAdmin() {
		if d.UserCounts, err = s.userRepo.CountByRole(ctx); err != nil {
			return nil, fmt.Errorf("failed to count users: %w", err)
		}
	}
	return d, nil
}

func (s *UserService) find(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func (s *UserService) checkName(ctx context.Context, name string, excludeID uint64) (string, error) {
	return checkName(ctx, s.userRepo, name, excludeID)
}

func (s *UserService) checkEmail(ctx context.Context, email string, excludeID uint64) (string, error) {
	return checkEmail(ctx, s.userRepo, email, excludeID)
}

// createUser validates input, hashes the password and inserts the user.
func createUser(ctx context.Context, repo repository.UserRepository, input RegisterInput) (*models.User, error) {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Email) == "" || input.Password == "" || input.Role == "" {
		return nil, ErrMissingUserFields
	}
	role := models.Role(input.Role)
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	name, err := checkName(ctx, repo, input.Name, 0)
	if err != nil {
		return nil, err
	}
	email, err := checkEmail(ctx, repo, input.Email, 0)
	if err != nil {
		return nil, err
	}
	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if company := strings.TrimSpace(input.Company); company != "" {
		user.Company = &company
	}

	if err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, duplicateUser(ctx, repo, name, email, 0)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// duplicateUser reports which unique field a concurrent write claimed first.
func duplicateUser(ctx context.Context, repo repository.UserRepository, name, email string, excludeID uint64) error {
	if email != "" {
		if taken, err := repo.EmailTaken(ctx, email, excludeID); err == nil && taken {
			return ErrEmailTaken
		}
	}
	if name != "" {
		if taken, err := repo.NameTaken(ctx, name, excludeID); err == nil && taken {
			return ErrNameTaken
		}
	}
	return ErrUserConflict
}

func checkName(ctx context.Context, repo repository.UserRepository, name string, excludeID uint64) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if len(name) > constants.MaxNameLength {
		return "", ErrNameTooLong
	}
	taken, err := repo.NameTaken(ctx, name, excludeID)
	if err != nil {
		return "", fmt.Errorf("failed to check name: %w", err)
	}
	if taken {
		return "", ErrNameTaken
	}
	return name, nil
}

func checkEmail(ctx context.Context, repo repository.UserRepository, email string, excludeID uint64) (string, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return "", ErrEmptyEmail
	}
	if len(email) > constants.MaxEmailLength || !utils.IsValidEmail(email) {
		return "", ErrInvalidEmail
	}
	taken, err := repo.EmailTaken(ctx, email, excludeID)
	if err != nil {
		return "", fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return "", ErrEmailTaken
	}
	return email, nil
}

func hashPassword(password string) (string, error) {
	if len(password) < constants.MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// removeStored deletes stored objects for file rows that no longer exist.
func removeStored(ctx context.Context, store storage.FileStore, rows []models.TaskFile) {
	if store == nil {
		return
	}
	for _, row := range rows {
		if err := store.Remove(ctx, row.StorageKey); err != nil {
			slog.Warn("failed to remove stored file",
				slog.String("key", row.StorageKey),
				slog.Any("err", err),
			)
		}
	}
}
