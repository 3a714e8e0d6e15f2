package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/yukikurage/taskdesk/internal/access"
	"github.com/yukikurage/taskdesk/internal/constants"
	apierrors "github.com/yukikurage/taskdesk/internal/errors"
	"github.com/yukikurage/taskdesk/internal/lifecycle"
	"github.com/yukikurage/taskdesk/internal/models"
	"github.com/yukikurage/taskdesk/internal/repository"
	"github.com/yukikurage/taskdesk/internal/storage"
	"github.com/yukikurage/taskdesk/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound       = apierrors.NewAPIError(apierrors.ErrCodeNotFound, "task not found")
	ErrTitleRequired      = apierrors.Validation("title is required")
	ErrTitleTooLong       = apierrors.Validation(fmt.Sprintf("title must be at most %d characters", constants.MaxTitleLength))
	ErrNoTaskFields       = apierrors.Validation("no fields to update")
	ErrAssigneeInPatch    = apierrors.Validation("assigned_to cannot be changed here, use the assign endpoint")
	ErrAssigneeRequired   = apierrors.Validation("assigned_to is required")
	ErrUnknownAssignee    = apierrors.NewAPIError(apierrors.ErrCodeInvalidAssignee, "assignee does not exist")
	ErrTaskChanged        = apierrors.NewAPIError(apierrors.ErrCodeConflict, "task was modified concurrently, reload and retry")
	ErrUnknownView        = apierrors.Validation("unknown task view")
	ErrAINotConfigured    = apierrors.NewAPIError(apierrors.ErrCodeServiceUnavailable, "AI service is not configured")
	ErrAINoTasksGenerated = apierrors.Validation("AI did not generate any tasks")
	ErrAINoValidTasks     = apierrors.Validation("no valid tasks could be created from AI output")
)

var taskDetailPreloads = []string{"Creator", "Assignee", "Files"}

// TaskService handles task business logic
type TaskService struct {
	taskRepo  repository.TaskRepository
	userRepo  repository.UserRepository
	files     storage.FileStore
	aiService *AIService

	maxUploadFiles int
	maxUploadSize  int64
	now            func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, files storage.FileStore, aiService *AIService) *TaskService {
	return &TaskService{
		taskRepo:       taskRepo,
		userRepo:       userRepo,
		files:          files,
		aiService:      aiService,
		maxUploadFiles: constants.MaxUploadFiles,
		maxUploadSize:  constants.MaxUploadSizeMB << 20,
		now:            time.Now,
	}
}

// SetMaxUploadFiles overrides the per-request completion file limit.
func (s *TaskService) SetMaxUploadFiles(n int) {
	if n > 0 {
		s.maxUploadFiles = n
	}
}

// SetMaxUploadSize overrides the per-file completion size limit in bytes.
func (s *TaskService) SetMaxUploadSize(n int64) {
	if n > 0 {
		s.maxUploadSize = n
	}
}

// MaxUploadBytes bounds a whole completion request body: every file at the
// size limit plus room for multipart framing.
func (s *TaskService) MaxUploadBytes() int64 {
	return int64(s.maxUploadFiles)*s.maxUploadSize + 1<<20
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     *time.Time
}

// CreateTask creates a Pending task owned by the caller.
func (s *TaskService) CreateTask(ctx context.Context, p access.Principal, input CreateTaskInput) (*models.Task, error) {
	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		DueDate:     input.DueDate,
		Status:      models.TaskStatusPending,
		CreatedBy:   p.UserID,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.reload(ctx, task.ID)
}

// GetTask returns a task in the caller's read scope with its files.
func (s *TaskService) GetTask(ctx context.Context, p access.Principal, id uint64) (*models.Task, error) {
	return s.find(ctx, id, access.ResolveReadScope(p, access.KindTask), taskDetailPreloads...)
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Status      *models.TaskStatus
	CreatedByMe bool
	Pagination  utils.PaginationParams
}

// ListTasks returns tasks in the caller's read scope.
func (s *TaskService) ListTasks(ctx context.Context, p access.Principal, input ListTasksInput) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		Scope:      access.ResolveReadScope(p, access.KindTask),
		Pagination: input.Pagination,
	}
	if input.Status != nil {
		filter.Statuses = []models.TaskStatus{*input.Status}
	}
	if input.CreatedByMe {
		filter.CreatedBy = &p.UserID
	}

	tasks, total, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// View names one of the assignment worklists.
type View string

const (
	ViewUnassigned View = "unassigned"
	ViewActive     View = "pending"
	ViewCompleted  View = "completed"
)

// ListView returns a worklist. Super admins see every task, everyone else
// only the tasks they created.
func (s *TaskService) ListView(ctx context.Context, p access.Principal, view View, params utils.PaginationParams) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		Scope:      access.ResolveWorklistScope(p),
		Pagination: params,
	}

	switch view {
	case ViewUnassigned:
		unassigned := true
		filter.Unassigned = &unassigned
	case ViewActive:
		filter.Statuses = []models.TaskStatus{models.TaskStatusPending, models.TaskStatusInProgress}
	case ViewCompleted:
		filter.Statuses = []models.TaskStatus{models.TaskStatusCompleted}
	default:
		return nil, 0, ErrUnknownView
	}

	tasks, total, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list %s tasks: %w", view, err)
	}
	return tasks, total, nil
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	ClearDueDate bool
	Status       *string
	// AssignedToSet is true when the request tried to set assigned_to.
	AssignedToSet bool
}

func (in UpdateTaskInput) hasFieldEdits() bool {
	return in.Title != nil || in.Description != nil || in.DueDate != nil || in.ClearDueDate
}

// UpdateTask edits task fields and, for super admins, moves the task
// through the state machine. The write is conditioned on the state the
// change was validated against.
func (s *TaskService) UpdateTask(ctx context.Context, p access.Principal, id uint64, input UpdateTaskInput) (*models.Task, error) {
	if input.AssignedToSet {
		return nil, ErrAssigneeInPatch
	}
	if !input.hasFieldEdits() && input.Status == nil {
		return nil, ErrNoTaskFields
	}

	task, err := s.find(ctx, id, access.ResolveReadScope(p, access.KindTask))
	if err != nil {
		return nil, err
	}

	if input.hasFieldEdits() {
		if err := access.ResolveTaskWrite(p, access.IntentEditTask, *task).Err(); err != nil {
			return nil, err
		}
	}
	if input.Status != nil {
		if err := access.ResolveTaskWrite(p, access.IntentSetStatus, *task).Err(); err != nil {
			return nil, err
		}
	}
	if !p.IsSuperAdmin() {
		if err := lifecycle.CheckEditable(*task); err != nil {
			return nil, err
		}
	}

	fields := map[string]interface{}{}
	if input.Title != nil {
		title, err := validateTitle(*input.Title)
		if err != nil {
			return nil, err
		}
		fields["title"] = title
	}
	if input.Description != nil {
		fields["description"] = strings.TrimSpace(*input.Description)
	}
	if input.ClearDueDate {
		fields["due_date"] = nil
	} else if input.DueDate != nil {
		fields["due_date"] = *input.DueDate
	}

	if input.Status != nil {
		to, err := lifecycle.ParseStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		var fileCount int64
		if to == models.TaskStatusCompleted {
			if fileCount, err = s.taskRepo.CountFiles(ctx, task.ID); err != nil {
				return nil, fmt.Errorf("failed to count task files: %w", err)
			}
		}
		plan, err := lifecycle.Transition(*task, to, fileCount, s.now())
		if err != nil {
			return nil, err
		}
		for k, v := range plan {
			fields[k] = v
		}
	}

	if len(fields) == 0 {
		return s.reload(ctx, task.ID)
	}

	cond := repository.ObservedState(*task)
	if !p.IsSuperAdmin() {
		cond = repository.TaskCondition{
			CreatedBy:     p.UserID,
			ExcludeStatus: models.TaskStatusCompleted,
		}
	}

	if err := s.taskRepo.UpdateFields(ctx, task.ID, cond, fields); err != nil {
		if errors.Is(err, repository.ErrConditionNotMet) {
			return nil, s.explainLostUpdate(ctx, p, task.ID)
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.reload(ctx, task.ID)
}

func (s *TaskService) explainLostUpdate(ctx context.Context, p access.Principal, id uint64) error {
	current, err := s.find(ctx, id, access.ResolveReadScope(p, access.KindTask))
	if err != nil {
		return err
	}
	if !p.IsSuperAdmin() && current.Status == models.TaskStatusCompleted {
		return lifecycle.ErrCompletedReadOnly
	}
	return ErrTaskChanged
}

// AssignTaskInput represents input for assigning a task
type AssignTaskInput struct {
	AssigneeID uint64
	Status     string
}

// AssignTask gives an unassigned task to a company user or super admin.
// The write only applies while the task is still unassigned.
func (s *TaskService) AssignTask(ctx context.Context, p access.Principal, id uint64, input AssignTaskInput) (*models.Task, error) {
	if err := access.ResolveTaskWrite(p, access.IntentAssignTask, models.Task{}).Err(); err != nil {
		return nil, err
	}
	if input.AssigneeID == 0 {
		return nil, ErrAssigneeRequired
	}

	var requested models.TaskStatus
	if strings.TrimSpace(input.Status) != "" {
		status, err := lifecycle.ParseStatus(input.Status)
		if err != nil {
			return nil, err
		}
		requested = status
	}

	task, err := s.find(ctx, id, access.ResolveReadScope(p, access.KindTask))
	if err != nil {
		return nil, err
	}

	assignee, err := s.userRepo.FindByID(ctx, input.AssigneeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownAssignee
		}
		return nil, fmt.Errorf("failed to find assignee: %w", err)
	}

	var fileCount int64
	if requested == models.TaskStatusCompleted {
		if fileCount, err = s.taskRepo.CountFiles(ctx, task.ID); err != nil {
			return nil, fmt.Errorf("failed to count task files: %w", err)
		}
	}

	plan, err := lifecycle.PlanAssign(*task, *assignee, requested, fileCount, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.taskRepo.Assign(ctx, task.ID, plan); err != nil {
		if errors.Is(err, repository.ErrConditionNotMet) {
			if _, ferr := s.find(ctx, task.ID, access.ResolveReadScope(p, access.KindTask)); ferr != nil {
				return nil, ferr
			}
			return nil, lifecycle.ErrAlreadyAssigned
		}
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}

	return s.reload(ctx, task.ID)
}

// UploadFile is one file of a completion upload.
type UploadFile struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// UploadCompletionFiles stores evidence files and completes the task in a
// single transaction. Stored objects are removed again if the transaction
// does not commit.
func (s *TaskService) UploadCompletionFiles(ctx context.Context, p access.Principal, id uint64, uploads []UploadFile) (*models.Task, error) {
	if err := access.ResolveTaskWrite(p, access.IntentCompleteTask, models.Task{}).Err(); err != nil {
		return nil, err
	}

	task, err := s.find(ctx, id, access.ResolveReadScope(p, access.KindTask))
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CheckCompletion(*task, len(uploads)); err != nil {
		return nil, err
	}
	if err := s.checkUploads(uploads); err != nil {
		return nil, err
	}

	now := s.now()
	rows := make([]models.TaskFile, 0, len(uploads))
	for _, upload := range uploads {
		stored, err := s.store(ctx, upload)
		if err != nil {
			s.discard(ctx, rows)
			return nil, fmt.Errorf("failed to store %s: %w", upload.Filename, err)
		}
		uploader := p.UserID
		rows = append(rows, models.TaskFile{
			TaskID:     task.ID,
			Filename:   upload.Filename,
			StorageKey: stored.Key,
			StorageURL: stored.URL,
			UploadedBy: &uploader,
			UploadedAt: now,
		})
	}

	if err := s.taskRepo.Complete(ctx, task.ID, rows); err != nil {
		s.discard(ctx, rows)
		if errors.Is(err, repository.ErrConditionNotMet) {
			current, ferr := s.find(ctx, task.ID, access.ResolveReadScope(p, access.KindTask))
			if ferr != nil {
				return nil, ferr
			}
			if cerr := lifecycle.CheckCompletion(*current, len(uploads)); cerr != nil {
				return nil, cerr
			}
			return nil, ErrTaskChanged
		}
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}

	slog.Info("task completed",
		slog.Uint64("task_id", task.ID),
		slog.Uint64("user_id", p.UserID),
		slog.Int("files", len(rows)),
	)

	return s.reload(ctx, task.ID)
}

func (s *TaskService) checkUploads(uploads []UploadFile) error {
	if len(uploads) > s.maxUploadFiles {
		return apierrors.Validation(fmt.Sprintf("at most %d files can be uploaded", s.maxUploadFiles))
	}
	for _, upload := range uploads {
		if upload.Size > s.maxUploadSize {
			return apierrors.Validation(fmt.Sprintf("%s exceeds the upload size limit of %d bytes", upload.Filename, s.maxUploadSize))
		}
	}
	return nil
}

func (s *TaskService) store(ctx context.Context, upload UploadFile) (storage.StoredFile, error) {
	r, err := upload.Open()
	if err != nil {
		return storage.StoredFile{}, err
	}
	defer r.Close()
	return s.files.Save(ctx, upload.Filename, r)
}

// discard removes stored objects whose metadata never committed.
func (s *TaskService) discard(ctx context.Context, rows []models.TaskFile) {
	removeStored(ctx, s.files, rows)
}

// DeleteTask deletes a task and its files. Super admins may delete any
// task, everyone else only tasks they created.
func (s *TaskService) DeleteTask(ctx context.Context, p access.Principal, id uint64) error {
	task, err := s.find(ctx, id, access.Scope{Kind: access.KindTask, Predicate: access.PredicateAll})
	if err != nil {
		return err
	}

	if decision := access.ResolveTaskWrite(p, access.IntentDeleteTask, *task); !decision.Allowed {
		if _, err := s.find(ctx, id, access.ResolveReadScope(p, access.KindTask)); err != nil {
			return err
		}
		return decision.Err()
	}

	removed, err := s.taskRepo.Delete(ctx, task.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}
	s.discard(ctx, removed)

	return nil
}

// AssignableUsers lists the users a super admin can assign tasks to.
func (s *TaskService) AssignableUsers(ctx context.Context, p access.Principal) ([]models.User, error) {
	if err := access.ResolveTaskWrite(p, access.IntentAssignTask, models.Task{}).Err(); err != nil {
		return nil, err
	}
	users, err := s.userRepo.ListAssignable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignable users: %w", err)
	}
	return users, nil
}

// GenerateTasksInput represents input for AI task generation
type GenerateTasksInput struct {
	Text string
}

// GenerateTasks asks the AI service for task drafts. Drafts are not saved.
func (s *TaskService) GenerateTasks(ctx context.Context, input GenerateTasksInput) ([]GeneratedTask, error) {
	if s.aiService == nil {
		return nil, ErrAINotConfigured
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, apierrors.Validation("text is required")
	}

	aiTasks, err := s.aiService.GenerateTasksFromText(ctx, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		aiTasks = aiTasks[:constants.MaxAIGeneratedTasks]
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := s.now().Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		aiTask.Title = strings.TrimSpace(aiTask.Title)
		if aiTask.Title == "" || len(aiTask.Title) > constants.MaxTitleLength {
			continue
		}
		if aiTask.DueDate != nil && aiTask.DueDate.Before(cutoff) {
			aiTask.DueDate = nil
		}
		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}

	return validTasks, nil
}

func (s *TaskService) find(ctx context.Context, id uint64, scope access.Scope, preload ...string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id, scope, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// reload fetches the task after a successful write, with creator, assignee
// and files for the response.
func (s *TaskService) reload(ctx context.Context, id uint64) (*models.Task, error) {
	return s.find(ctx, id, access.Scope{Kind: access.KindTask, Predicate: access.PredicateAll}, taskDetailPreloads...)
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTitleRequired
	}
	if len(title) > constants.MaxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}
