package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/parks-gardens/fieldops-api/internal/dto"
	apierrors "github.com/parks-gardens/fieldops-api/internal/errors"
	"github.com/parks-gardens/fieldops-api/internal/middleware"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/parks-gardens/fieldops-api/internal/services"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// taskRequest is the body of task create and full update
type taskRequest struct {
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	Location           string              `json:"location"`
	EstimatedHours     float64             `json:"estimated_hours"`
	Priority           models.TaskPriority `json:"priority"`
	AssignedTo         *uint64             `json:"assigned_to"`
	ScheduledDate      *string             `json:"scheduled_date"`
	EquipmentRequired  []string            `json:"equipment_required"`
	LargePlantRequired json.RawMessage     `json:"large_plant_required"`
	SmallPlantRequired json.RawMessage     `json:"small_plant_required"`
	RiskAssessmentID   *uint64             `json:"risk_assessment_id"`
	SWMSID             *uint64             `json:"swms_id"`
	RecurringType      string              `json:"recurring_type"`
	Status             *models.TaskStatus  `json:"status"`
	IncompleteReason   *string             `json:"incomplete_reason"`
}

func (h *TaskHandler) bindTask(c *gin.Context) (services.TaskInput, bool) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return services.TaskInput{}, false
	}

	var scheduled *time.Time
	if req.ScheduledDate != nil && *req.ScheduledDate != "" {
		t, err := h.taskService.ParseScheduledDate(*req.ScheduledDate)
		if err != nil {
			respondError(c, err)
			return services.TaskInput{}, false
		}
		scheduled = &t
	}

	return services.TaskInput{
		Title:              req.Title,
		Description:        req.Description,
		Location:           req.Location,
		EstimatedHours:     req.EstimatedHours,
		Priority:           req.Priority,
		AssignedTo:         req.AssignedTo,
		ScheduledDate:      scheduled,
		EquipmentRequired:  req.EquipmentRequired,
		LargePlantRequired: req.LargePlantRequired,
		SmallPlantRequired: req.SmallPlantRequired,
		RiskAssessmentID:   req.RiskAssessmentID,
		SWMSID:             req.SWMSID,
		RecurringType:      req.RecurringType,
		Status:             req.Status,
		IncompleteReason:   req.IncompleteReason,
	}, true
}

// ListTasks returns tasks filtered by date, assigned_to and status.
// Field staff only ever see their own tasks.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	input := services.ListTasksInput{
		Date:   c.Query("date"),
		Status: c.Query("status"),
	}
	if raw := c.Query("assigned_to"); raw != "" {
		assignee, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid assigned_to")
			return
		}
		input.AssignedTo = &assignee
	}
	if !role.Supervisory() {
		input.AssignedTo = &userID
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTOs(tasks))
}

// MyTasks returns the caller's tasks, optionally for one field-timezone day
func (h *TaskHandler) MyTasks(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.MyTasks(c.Request.Context(), userID, c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTOs(tasks))
}

// GetTask returns a specific task by ID
// Task is already loaded with relations by RequireTaskAccess middleware
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(task))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	input, ok := h.bindTask(c)
	if !ok {
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask replaces an existing task
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	input, ok := h.bindTask(c)
	if !ok {
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), taskID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), taskID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UpdateStatus moves a task through the field workflow
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c)
		return
	}

	type StatusRequest struct {
		Status            models.TaskStatus `json:"status" binding:"required"`
		StartTime         *time.Time        `json:"start_time"`
		EndTime           *time.Time        `json:"end_time"`
		IncompleteReason  *string           `json:"incomplete_reason"`
		AcknowledgmentIDs []uint64          `json:"acknowledgment_ids"`
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Status is required")
		return
	}

	updated, err := h.taskService.UpdateStatus(c.Request.Context(), services.StatusUpdateInput{
		TaskID:            task.ID,
		ActorID:           userID,
		Status:            req.Status,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		IncompleteReason:  req.IncompleteReason,
		AcknowledgmentIDs: req.AcknowledgmentIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// Acknowledge records that the caller read an attached safety document
func (h *TaskHandler) Acknowledge(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c)
		return
	}

	type AcknowledgeRequest struct {
		DocumentType models.DocumentType `json:"document_type" binding:"required"`
	}

	var req AcknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "document_type is required")
		return
	}

	ack, err := h.taskService.Acknowledge(c.Request.Context(), task.ID, userID, req.DocumentType)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ack)
}

// DraftTasks suggests tasks from free text using AI
func (h *TaskHandler) DraftTasks(c *gin.Context) {
	type DraftRequest struct {
		Text string `json:"text" binding:"required,max=10000"`
	}

	var req DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Text is required")
		return
	}

	drafts, err := h.taskService.DraftTasks(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": drafts,
		"count": len(drafts),
	})
}
