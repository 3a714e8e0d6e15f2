package dto

import (
	"time"

	"github.com/yukikurage/taskdesk/internal/models"
	"github.com/yukikurage/taskdesk/internal/utils"
)

// TaskFileDTO represents a completion file in API responses
type TaskFileDTO struct {
	ID         uint64    `json:"id"`
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	UploadedBy *uint64   `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID              uint64            `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	DueDate         *time.Time        `json:"due_date"`
	Status          models.TaskStatus `json:"status"`
	CreatedBy       uint64            `json:"created_by"`
	CreatedByName   string            `json:"created_by_name,omitempty"`
	AssignedTo      *uint64           `json:"assigned_to"`
	AssignedToName  string            `json:"assigned_to_name,omitempty"`
	AssignedToEmail string            `json:"assigned_to_email,omitempty"`
	AssignedAt      *time.Time        `json:"assigned_at"`
	CompletedAt     *time.Time        `json:"completed_at"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Files           []TaskFileDTO     `json:"files,omitempty"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO                `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ToTaskFileDTO converts a TaskFile model to TaskFileDTO
func ToTaskFileDTO(file models.TaskFile) TaskFileDTO {
	return TaskFileDTO{
		ID:         file.ID,
		Filename:   file.Filename,
		URL:        file.StorageURL,
		UploadedBy: file.UploadedBy,
		UploadedAt: file.UploadedAt,
	}
}

// ToTaskDTO converts a Task model to TaskDTO. Creator, assignee and files
// are included when preloaded.
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate,
		Status:      task.Status,
		CreatedBy:   task.CreatedBy,
		AssignedTo:  task.AssignedTo,
		AssignedAt:  task.AssignedAt,
		CompletedAt: task.CompletedAt,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}

	if task.Creator.ID != 0 {
		dto.CreatedByName = task.Creator.Name
	}
	if task.Assignee != nil {
		dto.AssignedToName = task.Assignee.Name
		dto.AssignedToEmail = task.Assignee.Email
	}
	if len(task.Files) > 0 {
		dto.Files = make([]TaskFileDTO, len(task.Files))
		for i, file := range task.Files {
			dto.Files[i] = ToTaskFileDTO(file)
		}
	}

	return dto
}

// ToTaskListResponse converts a page of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, params utils.PaginationParams, total int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	return TaskListResponse{
		Tasks:      items,
		Pagination: utils.NewPaginationResponse(params, total),
	}
}
