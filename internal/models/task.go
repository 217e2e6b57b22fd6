package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type TaskStatus string

const (
	TaskStatusAssigned          TaskStatus = "assigned"
	TaskStatusInProgress        TaskStatus = "in-progress"
	TaskStatusCompleted         TaskStatus = "completed"
	TaskStatusNeedsRescheduling TaskStatus = "needs-rescheduling"
)

// AllTaskStatuses lists statuses in workflow order.
var AllTaskStatuses = []TaskStatus{
	TaskStatusAssigned,
	TaskStatusInProgress,
	TaskStatusCompleted,
	TaskStatusNeedsRescheduling,
}

// ErrInvalidTransition is returned for a status change outside the workflow.
var ErrInvalidTransition = errors.New("invalid status transition")

// taskTransitions is the field workflow. Rescheduling a needs-rescheduling
// task back to assigned is a supervisor edit, not a field transition.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusAssigned:   {TaskStatusInProgress},
	TaskStatusInProgress: {TaskStatusCompleted, TaskStatusNeedsRescheduling},
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	for _, known := range AllTaskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether s ends the current work cycle.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusNeedsRescheduling
}

// Open reports whether work on the task has not finished yet.
func (s TaskStatus) Open() bool {
	return s == TaskStatusAssigned || s == TaskStatusInProgress
}

// CanTransitionTo reports whether the field workflow allows s -> next.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	for _, allowed := range taskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition wrapped with detail when
// s -> next is not allowed. A self-transition is accepted as a no-op.
func (s TaskStatus) ValidateTransition(next TaskStatus) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}
	if s == next || s.CanTransitionTo(next) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Task struct {
	ID                 uint64                     `gorm:"primarykey" json:"id"`
	Title              string                     `gorm:"type:varchar(255);not null" json:"title"`
	Description        string                     `gorm:"type:text" json:"description"`
	Location           string                     `gorm:"type:varchar(255)" json:"location"`
	EstimatedHours     float64                    `json:"estimated_hours"`
	Priority           TaskPriority               `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	AssignedTo         *uint64                    `gorm:"index" json:"assigned_to"`
	ScheduledDate      *time.Time                 `gorm:"index" json:"scheduled_date"`
	EquipmentRequired  datatypes.JSONSlice[string] `json:"equipment_required"`
	LargePlantRequired datatypes.JSON             `json:"large_plant_required"`
	SmallPlantRequired datatypes.JSON             `json:"small_plant_required"`
	RiskAssessmentID   *uint64                    `json:"risk_assessment_id"`
	SWMSID             *uint64                    `gorm:"column:swms_id" json:"swms_id"`
	RecurringType      string                     `gorm:"type:varchar(20)" json:"recurring_type"`
	Status             TaskStatus                 `gorm:"type:varchar(20);not null;default:'assigned';index" json:"status"`
	StartTime          *time.Time                 `json:"start_time"`
	EndTime            *time.Time                 `json:"end_time"`
	IncompleteReason   *string                    `gorm:"type:text" json:"incomplete_reason"`
	CreatedBy          uint64                     `json:"created_by"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`

	// Relations
	Assignee       *User           `gorm:"foreignKey:AssignedTo;constraint:OnDelete:SET NULL" json:"assignee,omitempty"`
	RiskAssessment *RiskAssessment `gorm:"foreignKey:RiskAssessmentID;constraint:OnDelete:RESTRICT" json:"risk_assessment,omitempty"`
	SWMS           *SWMSDocument   `gorm:"foreignKey:SWMSID;constraint:OnDelete:RESTRICT" json:"swms,omitempty"`
}

// AttachedDocuments returns the safety documents a worker must acknowledge
// before starting the task.
func (t *Task) AttachedDocuments() []DocumentRef {
	var refs []DocumentRef
	if t.RiskAssessmentID != nil {
		refs = append(refs, DocumentRef{Type: DocumentTypeRiskAssessment, ID: *t.RiskAssessmentID})
	}
	if t.SWMSID != nil {
		refs = append(refs, DocumentRef{Type: DocumentTypeSWMS, ID: *t.SWMSID})
	}
	return refs
}
