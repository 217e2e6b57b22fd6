package repository

import (
	"fmt"
	"time"

	"github.com/parks-gardens/fieldops-api/internal/database"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Omit(clause.Associations).Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	// Apply preloading if specified
	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks with filtering
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{})

	// Apply filters
	if filter.AssignedTo != nil {
		query = query.Where("tasks.assigned_to = ?", *filter.AssignedTo)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.ScheduledFrom != nil {
		query = query.Where("tasks.scheduled_date >= ?", *filter.ScheduledFrom)
	}
	if filter.ScheduledTo != nil {
		query = query.Where("tasks.scheduled_date < ?", *filter.ScheduledTo)
	}

	err := query.
		Scopes(database.ScheduledOrder).
		Preload("Assignee").
		Preload("RiskAssessment").
		Preload("SWMS").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Omit(clause.Associations).Save(task).Error
}

// UpdateFields updates selected columns of a task
func (r *GormTaskRepository) UpdateFields(task *models.Task, fields map[string]interface{}) error {
	return r.db.Model(task).Omit(clause.Associations).Updates(fields).Error
}

// Delete removes a task and its dependent rows
func (r *GormTaskRepository) Delete(id uint64) (int64, error) {
	var affected int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskMachinery{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.SafetyAcknowledgment{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Task{}, id)
		affected = result.RowsAffected
		return result.Error
	})
	return affected, err
}

// FindByAssignee lists tasks assigned to a user
func (r *GormTaskRepository) FindByAssignee(userID uint64) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.Where("assigned_to = ?", userID).Order("id").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// MarkNeedsReschedulingForAssignee moves the user's open tasks to the reschedule inbox
func (r *GormTaskRepository) MarkNeedsReschedulingForAssignee(userID uint64, reason string) (int64, error) {
	result := r.db.Model(&models.Task{}).
		Where("assigned_to = ? AND status IN ?", userID, []models.TaskStatus{models.TaskStatusAssigned, models.TaskStatusInProgress}).
		Updates(map[string]interface{}{
			"status":            models.TaskStatusNeedsRescheduling,
			"incomplete_reason": reason,
		})
	return result.RowsAffected, result.Error
}

// UnassignAll clears the assignee on every task assigned to the user
func (r *GormTaskRepository) UnassignAll(userID uint64) (int64, error) {
	result := r.db.Model(&models.Task{}).
		Where("assigned_to = ?", userID).
		Update("assigned_to", nil)
	return result.RowsAffected, result.Error
}

// CountByStatus counts tasks scheduled in [from, to) grouped by status
func (r *GormTaskRepository) CountByStatus(from, to time.Time) (map[models.TaskStatus]int64, error) {
	var rows []struct {
		Status models.TaskStatus
		Total  int64
	}

	err := r.db.Model(&models.Task{}).
		Select("status, COUNT(*) AS total").
		Scopes(database.ScheduledBetween(from, to)).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.TaskStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// CountReferencing counts tasks that attach a safety document
func (r *GormTaskRepository) CountReferencing(docType models.DocumentType, id uint64) (int64, error) {
	var column string
	switch docType {
	case models.DocumentTypeRiskAssessment:
		column = "risk_assessment_id"
	case models.DocumentTypeSWMS:
		column = "swms_id"
	default:
		return 0, fmt.Errorf("unknown document type %q", docType)
	}

	var count int64
	err := r.db.Model(&models.Task{}).Where(column+" = ?", id).Count(&count).Error
	return count, err
}
