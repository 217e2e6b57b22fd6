package dto

import (
	"time"

	"github.com/parks-gardens/fieldops-api/internal/models"
	"gorm.io/datatypes"
)

// TaskDTO represents a task in API responses, flattened with the assignee
// and attached safety documents
type TaskDTO struct {
	ID                 uint64              `json:"id"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	Location           string              `json:"location"`
	EstimatedHours     float64             `json:"estimated_hours"`
	Priority           models.TaskPriority `json:"priority"`
	AssignedTo         *uint64             `json:"assigned_to"`
	ScheduledDate      *time.Time          `json:"scheduled_date"`
	EquipmentRequired  []string            `json:"equipment_required"`
	LargePlantRequired datatypes.JSON      `json:"large_plant_required"`
	SmallPlantRequired datatypes.JSON      `json:"small_plant_required"`
	RiskAssessmentID   *uint64             `json:"risk_assessment_id"`
	SWMSID             *uint64             `json:"swms_id"`
	RecurringType      string              `json:"recurring_type"`
	Status             models.TaskStatus   `json:"status"`
	StartTime          *time.Time          `json:"start_time"`
	EndTime            *time.Time          `json:"end_time"`
	IncompleteReason   *string             `json:"incomplete_reason"`
	CreatedBy          uint64              `json:"created_by"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`

	AssignedToName      *string  `json:"assigned_to_name"`
	CrewID              *string  `json:"crew_id"`
	RiskAssessmentTitle *string  `json:"risk_assessment_title"`
	Hazards             []string `json:"hazards"`
	Controls            []string `json:"controls"`
	SWMSTitle           *string  `json:"swms_title"`
	Steps               []string `json:"steps"`
	PPE                 []string `json:"ppe"`
}

// Conversion functions

// ToTaskDTO converts a Task model to TaskDTO. Preloaded relations fill
// the flattened fields.
func ToTaskDTO(task models.Task) TaskDTO {
	equipment := []string(task.EquipmentRequired)
	if equipment == nil {
		equipment = []string{}
	}

	dto := TaskDTO{
		ID:                 task.ID,
		Title:              task.Title,
		Description:        task.Description,
		Location:           task.Location,
		EstimatedHours:     task.EstimatedHours,
		Priority:           task.Priority,
		AssignedTo:         task.AssignedTo,
		ScheduledDate:      task.ScheduledDate,
		EquipmentRequired:  equipment,
		LargePlantRequired: task.LargePlantRequired,
		SmallPlantRequired: task.SmallPlantRequired,
		RiskAssessmentID:   task.RiskAssessmentID,
		SWMSID:             task.SWMSID,
		RecurringType:      task.RecurringType,
		Status:             task.Status,
		StartTime:          task.StartTime,
		EndTime:            task.EndTime,
		IncompleteReason:   task.IncompleteReason,
		CreatedBy:          task.CreatedBy,
		CreatedAt:          task.CreatedAt,
		UpdatedAt:          task.UpdatedAt,
	}

	if task.Assignee != nil {
		dto.AssignedToName = &task.Assignee.Name
		dto.CrewID = task.Assignee.CrewID
	}
	if task.RiskAssessment != nil {
		dto.RiskAssessmentTitle = &task.RiskAssessment.Title
		dto.Hazards = task.RiskAssessment.Hazards
		dto.Controls = task.RiskAssessment.Controls
	}
	if task.SWMS != nil {
		dto.SWMSTitle = &task.SWMS.Title
		dto.Steps = task.SWMS.Steps
		dto.PPE = task.SWMS.PPE
	}

	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	dtos := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		dtos[i] = ToTaskDTO(task)
	}
	return dtos
}

// TaskDeletedEvent is the payload of a task-deleted notification
type TaskDeletedEvent struct {
	ID uint64 `json:"id"`
}

// DashboardStats counts today's tasks by status
type DashboardStats struct {
	Pending           int64 `json:"pending"`
	InProgress        int64 `json:"in_progress"`
	Completed         int64 `json:"completed"`
	NeedsRescheduling int64 `json:"needs_rescheduling"`
}

// TaskDraft is a task suggested from free text, not yet persisted
type TaskDraft struct {
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Location       string              `json:"location"`
	EstimatedHours float64             `json:"estimated_hours"`
	Priority       models.TaskPriority `json:"priority"`
	ScheduledDate  *time.Time          `json:"scheduled_date"`
}
