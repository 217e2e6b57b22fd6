package repository

import (
	"github.com/parks-gardens/fieldops-api/internal/database"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/parks-gardens/fieldops-api/internal/utils"
	"gorm.io/gorm"
)

// GormEquipmentRepository is a GORM implementation of EquipmentRepository
type GormEquipmentRepository struct {
	db *gorm.DB
}

// NewEquipmentRepository creates a new EquipmentRepository
func NewEquipmentRepository(db *gorm.DB) EquipmentRepository {
	return &GormEquipmentRepository{db: db}
}

// ListWithUsage lists equipment with task counts and hours, ordered by name
func (r *GormEquipmentRepository) ListWithUsage(filter EquipmentFilter) ([]EquipmentUsage, error) {
	query := r.db.Table("equipment").
		Select("equipment.*, COUNT(task_machinery.id) AS task_count, COALESCE(SUM(task_machinery.hours_used), 0) AS total_task_hours").
		Joins("LEFT JOIN task_machinery ON task_machinery.equipment_id = equipment.id")

	if filter.Classification != "" {
		query = query.Where("equipment.classification = ?", filter.Classification)
	}
	if filter.Status != "" {
		query = query.Where("equipment.status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("equipment.category = ?", filter.Category)
	}

	rows := []EquipmentUsage{}
	err := query.
		Group("equipment.id").
		Order("equipment.name ASC").
		Order("equipment.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID finds equipment by ID
func (r *GormEquipmentRepository) FindByID(id uint64) (*models.Equipment, error) {
	var equipment models.Equipment
	if err := r.db.First(&equipment, id).Error; err != nil {
		return nil, err
	}
	return &equipment, nil
}

// Create creates new equipment
func (r *GormEquipmentRepository) Create(equipment *models.Equipment) error {
	return r.db.Create(equipment).Error
}

// Update updates equipment
func (r *GormEquipmentRepository) Update(equipment *models.Equipment) error {
	return r.db.Save(equipment).Error
}

// Delete removes equipment together with its usage history
func (r *GormEquipmentRepository) Delete(id uint64) (int64, error) {
	var affected int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("equipment_id = ?", id).Delete(&models.TaskMachinery{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Equipment{}, id)
		affected = result.RowsAffected
		return result.Error
	})
	return affected, err
}

// History lists the tasks the equipment was used on, newest first
func (r *GormEquipmentRepository) History(equipmentID uint64, params utils.PaginationParams) ([]MachineryHistoryRow, int64, error) {
	query := r.db.Table("task_machinery").
		Joins("JOIN tasks ON tasks.id = task_machinery.task_id").
		Joins("LEFT JOIN users ON users.id = tasks.assigned_to").
		Where("task_machinery.equipment_id = ?", equipmentID).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rows := []MachineryHistoryRow{}
	err := query.
		Select(`task_machinery.id AS usage_id, tasks.id AS task_id, tasks.title, tasks.location,
			tasks.scheduled_date, tasks.status, task_machinery.hours_used, task_machinery.assigned_at,
			task_machinery.returned_at, task_machinery.notes, task_machinery.cost_code,
			task_machinery.department_code, task_machinery.project_code, users.name AS assigned_to_name`).
		Order("task_machinery.assigned_at DESC").
		Order("task_machinery.id DESC").
		Scopes(database.Paginate(params)).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

// AddUsage records equipment used on a task
func (r *GormEquipmentRepository) AddUsage(usage *models.TaskMachinery) error {
	return r.db.Omit("Task", "Equipment").Create(usage).Error
}

// FindUsage finds a usage record belonging to a task
func (r *GormEquipmentRepository) FindUsage(taskID, usageID uint64) (*models.TaskMachinery, error) {
	var usage models.TaskMachinery
	if err := r.db.Where("id = ? AND task_id = ?", usageID, taskID).First(&usage).Error; err != nil {
		return nil, err
	}
	return &usage, nil
}

// ReturnUsage stores the returned timestamp and final hours
func (r *GormEquipmentRepository) ReturnUsage(usage *models.TaskMachinery) error {
	return r.db.Model(usage).Updates(map[string]interface{}{
		"returned_at": usage.ReturnedAt,
		"hours_used":  usage.HoursUsed,
	}).Error
}

// CountOpenUsage counts bookings of the equipment that have not been returned
func (r *GormEquipmentRepository) CountOpenUsage(equipmentID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.TaskMachinery{}).
		Where("equipment_id = ? AND returned_at IS NULL", equipmentID).
		Count(&count).Error
	return count, err
}
