package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskdesk/internal/dto"
	apierrors "github.com/yukikurage/taskdesk/internal/errors"
	"github.com/yukikurage/taskdesk/internal/lifecycle"
	"github.com/yukikurage/taskdesk/internal/services"
	"github.com/yukikurage/taskdesk/internal/utils"
)

// TaskHandler serves task and assignment endpoints.
type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// CreateTask creates a task owned by the caller
func (h *TaskHandler) CreateTask(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		Title       string  `json:"title"`
		Description string  `json:"description"`
		DueDate     *string `json:"due_date"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.DueDate != nil && *req.DueDate != "" {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			apierrors.BadRequest(c, "Invalid due_date format")
			return
		}
		input.DueDate = &due
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), p, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// ListTasks returns tasks in the caller's read scope
// Can filter by status
func (h *TaskHandler) ListTasks(c *gin.Context) {
	h.listTasks(c, false)
}

// ListMyTasks returns tasks the caller created
func (h *TaskHandler) ListMyTasks(c *gin.Context) {
	h.listTasks(c, true)
}

func (h *TaskHandler) listTasks(c *gin.Context, createdByMe bool) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListTasksInput{
		CreatedByMe: createdByMe,
		Pagination:  params,
	}
	if raw := c.Query("status"); raw != "" {
		status, err := lifecycle.ParseStatus(raw)
		if err != nil {
			apierrors.Respond(c, err)
			return
		}
		input.Status = &status
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), p, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params, total))
}

// ListView returns a handler serving one of the assignment worklists
func (h *TaskHandler) ListView(view services.View) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := requirePrincipal(c)
		if !ok {
			return
		}

		params := utils.GetPaginationParams(c)
		tasks, total, err := h.taskService.ListView(c.Request.Context(), p, view, params)
		if err != nil {
			apierrors.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params, total))
	}
}

// GetTask returns a single task with its files
func (h *TaskHandler) GetTask(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := requireResourceID(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), p, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update. A null due_date clears it.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := requireResourceID(c)
	if !ok {
		return
	}

	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input, err := decodeTaskPatch(raw)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), p, id, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

func decodeTaskPatch(raw map[string]json.RawMessage) (services.UpdateTaskInput, error) {
	var input services.UpdateTaskInput

	if _, ok := raw["assigned_to"]; ok {
		input.AssignedToSet = true
	}
	if v, ok := raw["title"]; ok {
		var title string
		if err := json.Unmarshal(v, &title); err != nil {
			return input, apierrors.Validation("title must be a string")
		}
		input.Title = &title
	}
	if v, ok := raw["description"]; ok {
		var description string
		if err := json.Unmarshal(v, &description); err != nil {
			return input, apierrors.Validation("description must be a string")
		}
		input.Description = &description
	}
	if v, ok := raw["status"]; ok {
		var status string
		if err := json.Unmarshal(v, &status); err != nil {
			return input, apierrors.Validation("status must be a string")
		}
		input.Status = &status
	}
	if v, ok := raw["due_date"]; ok {
		var due *string
		if err := json.Unmarshal(v, &due); err != nil {
			return input, apierrors.Validation("due_date must be a string or null")
		}
		if due == nil || *due == "" {
			input.ClearDueDate = true
		} else {
			t, err := parseDueDate(*due)
			if err != nil {
				return input, apierrors.Validation("Invalid due_date format")
			}
			input.DueDate = &t
		}
	}

	return input, nil
}

// DeleteTask deletes a task and its files
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := requireResourceID(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), p, id); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// AssignTask assigns an unassigned task
func (h *TaskHandler) AssignTask(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := requireResourceID(c)
	if !ok {
		return
	}

	type AssignTaskRequest struct {
		AssignedTo uint64 `json:"assigned_to"`
		Status     string `json:"status"`
	}

	var req AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.AssignTask(c.Request.Context(), p, id, services.AssignTaskInput{
		AssigneeID: req.AssignedTo,
		Status:     req.Status,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UploadCompletion accepts multipart "files" and completes the task
func (h *TaskHandler) UploadCompletion(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := requireResourceID(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.taskService.MaxUploadBytes())

	var headers []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		headers = form.File["files"]
	} else {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			apierrors.BadRequest(c, "Upload exceeds the allowed size")
			return
		case !errors.Is(err, http.ErrNotMultipart) && !errors.Is(err, http.ErrMissingBoundary):
			apierrors.BadRequest(c, "Invalid multipart body")
			return
		}
	}

	uploads := make([]services.UploadFile, len(headers))
	for i, fh := range headers {
		fh := fh
		uploads[i] = services.UploadFile{
			Filename: fh.Filename,
			Size:     fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		}
	}

	task, err := h.taskService.UploadCompletionFiles(c.Request.Context(), p, id, uploads)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// AssignableUsers lists users tasks can be assigned to
func (h *TaskHandler) AssignableUsers(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	users, err := h.taskService.AssignableUsers(c.Request.Context(), p)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": dto.ToUserDTOs(users),
	})
}

// GenerateTasks returns AI task drafts for free text
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	type GenerateTasksRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	drafts, err := h.taskService.GenerateTasks(c.Request.Context(), services.GenerateTasksInput{Text: req.Text})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": drafts,
	})
}
