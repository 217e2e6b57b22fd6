package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/parks-gardens/fieldops-api/internal/constants"
	"github.com/parks-gardens/fieldops-api/internal/dto"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/parks-gardens/fieldops-api/internal/notify"
	"github.com/parks-gardens/fieldops-api/internal/repository"
	"github.com/parks-gardens/fieldops-api/internal/safety"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrTitleRequired          = errors.New("title is required")
	ErrTitleTooLong           = errors.New("title is too long")
	ErrInvalidPriority        = errors.New("priority must be low, medium or high")
	ErrInvalidStatus          = errors.New("unknown task status")
	ErrInvalidDate            = errors.New("date must be formatted YYYY-MM-DD")
	ErrInvalidJSON            = errors.New("plant requirements must be valid JSON")
	ErrAssigneeNotFound       = errors.New("assigned user does not exist")
	ErrDocumentNotFound       = errors.New("safety document not found")
	ErrDocumentArchived       = errors.New("safety document is archived")
	ErrReasonRequired         = errors.New("incomplete reason is required")
	ErrStatusChangeNotAllowed = fmt.Errorf("%w: use the status endpoint to move a task through its workflow", models.ErrInvalidTransition)
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
)

// MissingAcknowledgmentsError lists the attached documents a start request
// carried no valid acknowledgment for.
type MissingAcknowledgmentsError struct {
	Missing []models.DocumentType
}

func (e *MissingAcknowledgmentsError) Error() string {
	names := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		names[i] = string(m)
	}
	return fmt.Sprintf("%s: missing %s", safety.ErrAcknowledgmentRequired, strings.Join(names, ", "))
}

func (e *MissingAcknowledgmentsError) Unwrap() error {
	return safety.ErrAcknowledgmentRequired
}

var taskPreloads = []string{"Assignee", "RiskAssessment", "SWMS"}

// TaskService handles task business logic
type TaskService struct {
	repos       *repository.Repositories
	aiService   *AIService
	loc         *time.Location
	ackValidity time.Duration
	now         func() time.Time
}

// NewTaskService creates a new TaskService. loc is the timezone field
// crews work in; acknowledgments older than ackValidity no longer count.
func NewTaskService(repos *repository.Repositories, aiService *AIService, loc *time.Location, ackValidity time.Duration) *TaskService {
	if loc == nil {
		loc = time.UTC
	}
	return &TaskService{
		repos:       repos,
		aiService:   aiService,
		loc:         loc,
		ackValidity: ackValidity,
		now:         time.Now,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Date       string
	AssignedTo *uint64
	Status     string
}

// TaskInput is the writable field set of a task
type TaskInput struct {
	Title              string
	Description        string
	Location           string
	EstimatedHours     float64
	Priority           models.TaskPriority
	AssignedTo         *uint64
	ScheduledDate      *time.Time
	EquipmentRequired  []string
	LargePlantRequired json.RawMessage
	SmallPlantRequired json.RawMessage
	RiskAssessmentID   *uint64
	SWMSID             *uint64
	RecurringType      string

	// Only honoured by UpdateTask
	Status           *models.TaskStatus
	IncompleteReason *string
}

// StatusUpdateInput represents a workflow transition request
type StatusUpdateInput struct {
	TaskID            uint64
	ActorID           uint64
	Status            models.TaskStatus
	StartTime         *time.Time
	EndTime           *time.Time
	IncompleteReason  *string
	AcknowledgmentIDs []uint64
}

// MachineryUsageInput records equipment used on a task
type MachineryUsageInput struct {
	EquipmentID    uint64
	HoursUsed      float64
	Notes          string
	CostCode       string
	DepartmentCode string
	ProjectCode    string
}

// ListTasks returns tasks matching every supplied filter. The date filter
// selects a UTC calendar day.
func (s *TaskService) ListTasks(ctx context.Context, input ListTasksInput) ([]models.Task, error) {
	filter := repository.TaskFilter{AssignedTo: input.AssignedTo}

	if input.Status != "" {
		status := models.TaskStatus(input.Status)
		if !status.Valid() {
			return nil, ErrInvalidStatus
		}
		filter.Status = &status
	}
	if input.Date != "" {
		from, to, err := dayRange(input.Date, time.UTC)
		if err != nil {
			return nil, err
		}
		filter.ScheduledFrom, filter.ScheduledTo = &from, &to
	}

	tasks, err := s.repos.WithContext(ctx).Tasks.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// MyTasks returns the caller's tasks, optionally for one calendar day in
// the field timezone.
func (s *TaskService) MyTasks(ctx context.Context, userID uint64, date string) ([]models.Task, error) {
	filter := repository.TaskFilter{AssignedTo: &userID}
	if date != "" {
		from, to, err := dayRange(date, s.loc)
		if err != nil {
			return nil, err
		}
		filter.ScheduledFrom, filter.ScheduledTo = &from, &to
	}

	tasks, err := s.repos.WithContext(ctx).Tasks.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns a task with its assignee and safety documents
func (s *TaskService) GetTask(ctx context.Context, taskID uint64) (*models.Task, error) {
	return findTask(s.repos.WithContext(ctx), taskID, taskPreloads...)
}

// CreateTask creates a task in the assigned state
func (s *TaskService) CreateTask(ctx context.Context, actorID uint64, input TaskInput) (*models.Task, error) {
	task := &models.Task{
		Status:    models.TaskStatusAssigned,
		CreatedBy: actorID,
	}

	var created *models.Task
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := s.applyTaskInput(tx, task, input); err != nil {
			return err
		}
		if err := tx.Tasks.Create(task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}

		var err error
		created, err = findTask(tx, task.ID, taskPreloads...)
		if err != nil {
			return err
		}
		return emit(tx, notify.EventTaskCreated, dto.ToTaskDTO(*created), notify.TaskRooms(created.AssignedTo))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateTask replaces a task's writable fields. The only status change it
// accepts is rescheduling: needs-rescheduling back to assigned, which
// clears the previous attempt's times and reason.
func (s *TaskService) UpdateTask(ctx context.Context, taskID uint64, input TaskInput) (*models.Task, error) {
	var updated *models.Task
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		task, err := findTask(tx, taskID)
		if err != nil {
			return err
		}
		previousAssignee := task.AssignedTo

		if err := s.applyTaskInput(tx, task, input); err != nil {
			return err
		}

		if input.Status != nil && *input.Status != task.Status {
			if !input.Status.Valid() {
				return ErrInvalidStatus
			}
			if task.Status != models.TaskStatusNeedsRescheduling || *input.Status != models.TaskStatusAssigned {
				return ErrStatusChangeNotAllowed
			}
			task.Status = models.TaskStatusAssigned
			task.StartTime = nil
			task.EndTime = nil
			task.IncompleteReason = nil
		} else if task.Status == models.TaskStatusNeedsRescheduling && input.IncompleteReason != nil {
			if reason := strings.TrimSpace(*input.IncompleteReason); reason != "" {
				task.IncompleteReason = &reason
			}
		}

		if err := tx.Tasks.Update(task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		updated, err = findTask(tx, task.ID, taskPreloads...)
		if err != nil {
			return err
		}
		return emit(tx, notify.EventTaskUpdated, dto.ToTaskDTO(*updated), notify.TaskRooms(previousAssignee, updated.AssignedTo))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTask deletes a task
func (s *TaskService) DeleteTask(ctx context.Context, taskID uint64) error {
	return s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		task, err := findTask(tx, taskID)
		if err != nil {
			return err
		}

		if _, err := tx.Tasks.Delete(taskID); err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return emit(tx, notify.EventTaskDeleted, dto.TaskDeletedEvent{ID: taskID}, notify.TaskRooms(task.AssignedTo))
	})
}

// UpdateStatus moves a task through its workflow. Repeating the current
// status is a no-op. Starting a task that carries safety documents needs
// a valid acknowledgment of each of them by the actor.
func (s *TaskService) UpdateStatus(ctx context.Context, input StatusUpdateInput) (*models.Task, error) {
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidTransition, input.Status)
	}

	var result *models.Task
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		task, err := findTask(tx, input.TaskID)
		if err != nil {
			return err
		}

		if task.Status == input.Status {
			result, err = findTask(tx, task.ID, taskPreloads...)
			return err
		}
		if err := task.Status.ValidateTransition(input.Status); err != nil {
			return err
		}

		now := s.now().UTC()
		fields := map[string]interface{}{"status": input.Status}

		switch input.Status {
		case models.TaskStatusInProgress:
			if err := s.verifyAcknowledgments(tx, task, input.ActorID, input.AcknowledgmentIDs); err != nil {
				return err
			}
			fields["start_time"] = timeOr(input.StartTime, now)
		case models.TaskStatusCompleted:
			fields["end_time"] = timeOr(input.EndTime, now)
		case models.TaskStatusNeedsRescheduling:
			reason := ""
			if input.IncompleteReason != nil {
				reason = strings.TrimSpace(*input.IncompleteReason)
			}
			if reason == "" {
				return ErrReasonRequired
			}
			fields["end_time"] = timeOr(input.EndTime, now)
			fields["incomplete_reason"] = reason
		}

		if err := tx.Tasks.UpdateFields(task, fields); err != nil {
			return fmt.Errorf("failed to update task status: %w", err)
		}

		result, err = findTask(tx, task.ID, taskPreloads...)
		if err != nil {
			return err
		}
		return emit(tx, notify.EventTaskUpdated, dto.ToTaskDTO(*result), notify.TaskRooms(result.AssignedTo))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// verifyAcknowledgments drives a safety gate with the acknowledgment
// records the request carries. A record counts only if it belongs to this
// task and actor, names the document currently attached, and is recent.
func (s *TaskService) verifyAcknowledgments(tx *repository.Repositories, task *models.Task, actorID uint64, ids []uint64) error {
	gate := safety.ForTask(task)
	gate.Open()

	attached := make(map[models.DocumentType]uint64)
	for _, ref := range task.AttachedDocuments() {
		attached[ref.Type] = ref.ID
	}

	if len(attached) > 0 && len(ids) > 0 {
		acks, err := tx.Acknowledgments.FindByIDs(ids)
		if err != nil {
			return fmt.Errorf("failed to load acknowledgments: %w", err)
		}

		cutoff := s.now().Add(-s.ackValidity)
		for _, ack := range acks {
			if ack.TaskID != task.ID || ack.UserID != actorID {
				continue
			}
			if s.ackValidity > 0 && ack.AcknowledgedAt.Before(cutoff) {
				continue
			}
			if docID, ok := attached[ack.DocumentType]; !ok || docID != ack.DocumentID {
				continue
			}
			if err := gate.Acknowledge(ack.DocumentType); err != nil {
				return err
			}
		}
	}

	if err := gate.Confirm(); err != nil {
		return &MissingAcknowledgmentsError{Missing: gate.Missing()}
	}
	return nil
}

// Acknowledge records that the actor has read one of the task's attached
// safety documents. The returned record id is the evidence a start
// request must carry.
func (s *TaskService) Acknowledge(ctx context.Context, taskID, actorID uint64, docType models.DocumentType) (*models.SafetyAcknowledgment, error) {
	if !docType.Valid() {
		return nil, fmt.Errorf("%w: %s", safety.ErrDocumentNotAttached, docType)
	}

	repos := s.repos.WithContext(ctx)
	task, err := findTask(repos, taskID)
	if err != nil {
		return nil, err
	}

	var docID *uint64
	for _, ref := range task.AttachedDocuments() {
		if ref.Type == docType {
			id := ref.ID
			docID = &id
		}
	}
	if docID == nil {
		return nil, fmt.Errorf("%w: %s", safety.ErrDocumentNotAttached, docType)
	}

	ack := &models.SafetyAcknowledgment{
		TaskID:         task.ID,
		UserID:         actorID,
		DocumentType:   docType,
		DocumentID:     *docID,
		AcknowledgedAt: s.now().UTC(),
	}
	if err := repos.Acknowledgments.Create(ack); err != nil {
		return nil, fmt.Errorf("failed to record acknowledgment: %w", err)
	}
	return ack, nil
}

// DraftTasks suggests tasks from free text without saving them
func (s *TaskService) DraftTasks(ctx context.Context, text string) ([]dto.TaskDraft, error) {
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}

	drafts, err := s.aiService.DraftTasksFromText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(drafts) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(drafts) > constants.MaxAIGeneratedTasks {
		return nil, fmt.Errorf("AI generated too many tasks (max %d)", constants.MaxAIGeneratedTasks)
	}

	valid := make([]dto.TaskDraft, 0, len(drafts))
	cutoff := s.now().Add(-24 * time.Hour)
	for _, draft := range drafts {
		if draft.Title == "" || len(draft.Title) > constants.MaxTitleLength {
			continue
		}
		if draft.ScheduledDate != nil && draft.ScheduledDate.Before(cutoff) {
			draft.ScheduledDate = nil
		}
		valid = append(valid, draft)
	}

	if len(valid) == 0 {
		return nil, ErrAINoValidTasks
	}
	return valid, nil
}

// applyTaskInput validates input and copies it onto task
func (s *TaskService) applyTaskInput(tx *repository.Repositories, task *models.Task, input TaskInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return ErrTitleRequired
	}
	if len(title) > constants.MaxTitleLength {
		return ErrTitleTooLong
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return ErrInvalidPriority
	}

	if input.AssignedTo != nil {
		if _, err := tx.Users.FindByID(*input.AssignedTo); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssigneeNotFound
			}
			return fmt.Errorf("failed to find assignee: %w", err)
		}
	}

	if input.RiskAssessmentID != nil && (task.RiskAssessmentID == nil || *task.RiskAssessmentID != *input.RiskAssessmentID) {
		doc, err := tx.RiskAssessments.FindByID(*input.RiskAssessmentID)
		if err := checkAttachable(doc, err); err != nil {
			return err
		}
	}
	if input.SWMSID != nil && (task.SWMSID == nil || *task.SWMSID != *input.SWMSID) {
		doc, err := tx.SWMS.FindByID(*input.SWMSID)
		if err := checkAttachable(doc, err); err != nil {
			return err
		}
	}

	large, err := plantJSON(input.LargePlantRequired)
	if err != nil {
		return err
	}
	small, err := plantJSON(input.SmallPlantRequired)
	if err != nil {
		return err
	}

	equipment := input.EquipmentRequired
	if equipment == nil {
		equipment = []string{}
	}

	task.Title = title
	task.Description = input.Description
	task.Location = input.Location
	task.EstimatedHours = input.EstimatedHours
	task.Priority = priority
	task.AssignedTo = input.AssignedTo
	task.ScheduledDate = utcOrNil(input.ScheduledDate)
	task.EquipmentRequired = equipment
	task.LargePlantRequired = large
	task.SmallPlantRequired = small
	task.RiskAssessmentID = input.RiskAssessmentID
	task.SWMSID = input.SWMSID
	task.RecurringType = input.RecurringType
	return nil
}

func checkAttachable[T models.SafetyDocument](doc *T, err error) error {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("failed to find safety document: %w", err)
	}
	if (*doc).Info().ApprovalStatus == models.ApprovalArchived {
		return ErrDocumentArchived
	}
	return nil
}

func findTask(repos *repository.Repositories, id uint64, preload ...string) (*models.Task, error) {
	task, err := repos.Tasks.FindByID(id, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

func plantJSON(raw json.RawMessage) (datatypes.JSON, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return datatypes.JSON("[]"), nil
	}
	if !json.Valid(raw) {
		return nil, ErrInvalidJSON
	}
	return datatypes.JSON(raw), nil
}

// dayRange returns the UTC bounds of the calendar day date in loc
func dayRange(date string, loc *time.Location) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	return day.UTC(), day.AddDate(0, 0, 1).UTC(), nil
}

func timeOr(t *time.Time, fallback time.Time) time.Time {
	if t == nil {
		return fallback
	}
	return t.UTC()
}

func utcOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func normalizePriority(p string) models.TaskPriority {
	priority := models.TaskPriority(strings.ToLower(strings.TrimSpace(p)))
	if !priority.Valid() {
		return models.PriorityMedium
	}
	return priority
}

// ParseScheduledDate accepts RFC 3339 timestamps or bare dates. A bare
// date is midnight in the field timezone.
func (s *TaskService) ParseScheduledDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, s.loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t.UTC(), nil
}
