package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/parks-gardens/fieldops-api/internal/constants"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/parks-gardens/fieldops-api/internal/repository"
	"github.com/parks-gardens/fieldops-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrEquipmentNotFound      = errors.New("equipment not found")
	ErrEquipmentUnavailable   = errors.New("equipment is not available")
	ErrInvalidEquipmentStatus = errors.New("status must be available, in-use, maintenance or out-of-service")
	ErrUsageNotFound          = errors.New("machinery usage not found")
	ErrUsageReturned          = errors.New("machinery has already been returned")
	ErrInvalidHours           = errors.New("hours must not be negative")
)

// MachineryService handles equipment and its use on tasks
type MachineryService struct {
	repos *repository.Repositories
	now   func() time.Time
}

// NewMachineryService creates a new MachineryService
func NewMachineryService(repos *repository.Repositories) *MachineryService {
	return &MachineryService{repos: repos, now: time.Now}
}

// EquipmentInput is the writable field set of a piece of equipment
type EquipmentInput struct {
	Name           string
	Type           string
	Classification string
	Category       string
	Manufacturer   string
	Model          string
	AssetNumber    string
	CostCode       string
	HourlyRate     float64
	Status         models.EquipmentStatus
	Location       string
	Notes          string
}

// List lists equipment with usage totals
func (s *MachineryService) List(ctx context.Context, filter repository.EquipmentFilter) ([]repository.EquipmentUsage, error) {
	if filter.Status != "" && !models.EquipmentStatus(filter.Status).Valid() {
		return nil, ErrInvalidEquipmentStatus
	}

	items, err := s.repos.WithContext(ctx).Equipment.ListWithUsage(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list machinery: %w", err)
	}
	if items == nil {
		items = []repository.EquipmentUsage{}
	}
	return items, nil
}

// Get returns one piece of equipment
func (s *MachineryService) Get(ctx context.Context, id uint64) (*models.Equipment, error) {
	return findEquipment(s.repos.WithContext(ctx), id)
}

// History returns a page of the tasks the equipment was used on
func (s *MachineryService) History(ctx context.Context, id uint64, params utils.PaginationParams) ([]repository.MachineryHistoryRow, int64, error) {
	repos := s.repos.WithContext(ctx)
	if _, err := findEquipment(repos, id); err != nil {
		return nil, 0, err
	}

	rows, total, err := repos.Equipment.History(id, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load machinery history: %w", err)
	}
	return rows, total, nil
}

// Create adds equipment, available unless another status is given
func (s *MachineryService) Create(ctx context.Context, input EquipmentInput) (*models.Equipment, error) {
	equipment := &models.Equipment{}
	if err := applyEquipmentInput(equipment, input); err != nil {
		return nil, err
	}

	if err := s.repos.WithContext(ctx).Equipment.Create(equipment); err != nil {
		return nil, fmt.Errorf("failed to create equipment: %w", err)
	}
	return equipment, nil
}

// Update replaces the equipment's writable fields
func (s *MachineryService) Update(ctx context.Context, id uint64, input EquipmentInput) (*models.Equipment, error) {
	repos := s.repos.WithContext(ctx)
	equipment, err := findEquipment(repos, id)
	if err != nil {
		return nil, err
	}

	if input.Status == "" {
		input.Status = equipment.Status
	}
	if err := applyEquipmentInput(equipment, input); err != nil {
		return nil, err
	}

	if err := repos.Equipment.Update(equipment); err != nil {
		return nil, fmt.Errorf("failed to update equipment: %w", err)
	}
	return equipment, nil
}

// Delete removes equipment and its usage history
func (s *MachineryService) Delete(ctx context.Context, id uint64) error {
	deleted, err := s.repos.WithContext(ctx).Equipment.Delete(id)
	if err != nil {
		return fmt.Errorf("failed to delete equipment: %w", err)
	}
	if deleted == 0 {
		return ErrEquipmentNotFound
	}
	return nil
}

// RecordUsage books equipment out to a task. Equipment under maintenance
// or out of service cannot be booked.
func (s *MachineryService) RecordUsage(ctx context.Context, taskID uint64, input MachineryUsageInput) (*models.TaskMachinery, error) {
	if input.HoursUsed < 0 {
		return nil, ErrInvalidHours
	}

	var usage *models.TaskMachinery
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if _, err := findTask(tx, taskID); err != nil {
			return err
		}
		equipment, err := findEquipment(tx, input.EquipmentID)
		if err != nil {
			return err
		}
		if equipment.Status == models.EquipmentMaintenance || equipment.Status == models.EquipmentOutOfService {
			return fmt.Errorf("%w: %s is %s", ErrEquipmentUnavailable, equipment.Name, equipment.Status)
		}

		usage = &models.TaskMachinery{
			TaskID:         taskID,
			EquipmentID:    equipment.ID,
			HoursUsed:      input.HoursUsed,
			AssignedAt:     s.now().UTC(),
			Notes:          input.Notes,
			CostCode:       orDefault(input.CostCode, equipment.CostCode),
			DepartmentCode: input.DepartmentCode,
			ProjectCode:    input.ProjectCode,
		}
		if err := tx.Equipment.AddUsage(usage); err != nil {
			return fmt.Errorf("failed to record machinery usage: %w", err)
		}

		if equipment.Status == models.EquipmentAvailable {
			equipment.Status = models.EquipmentInUse
			if err := tx.Equipment.Update(equipment); err != nil {
				return fmt.Errorf("failed to update equipment status: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}

// ReturnUsage closes a usage record. The equipment is freed once no other
// booking of it is still open. hours, when given, replaces the hours
// recorded at booking.
func (s *MachineryService) ReturnUsage(ctx context.Context, taskID, usageID uint64, hours *float64) (*models.TaskMachinery, error) {
	if hours != nil && *hours < 0 {
		return nil, ErrInvalidHours
	}

	var usage *models.TaskMachinery
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		usage, err = tx.Equipment.FindUsage(taskID, usageID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUsageNotFound
			}
			return fmt.Errorf("failed to find machinery usage: %w", err)
		}
		if usage.ReturnedAt != nil {
			return ErrUsageReturned
		}

		now := s.now().UTC()
		usage.ReturnedAt = &now
		if hours != nil {
			usage.HoursUsed = *hours
		}
		if err := tx.Equipment.ReturnUsage(usage); err != nil {
			return fmt.Errorf("failed to return machinery: %w", err)
		}

		equipment, err := findEquipment(tx, usage.EquipmentID)
		if err != nil {
			return err
		}
		if equipment.Status != models.EquipmentInUse {
			return nil
		}
		open, err := tx.Equipment.CountOpenUsage(equipment.ID)
		if err != nil {
			return fmt.Errorf("failed to count open machinery usage: %w", err)
		}
		if open == 0 {
			equipment.Status = models.EquipmentAvailable
			if err := tx.Equipment.Update(equipment); err != nil {
				return fmt.Errorf("failed to update equipment status: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}

func applyEquipmentInput(e *models.Equipment, input EquipmentInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ErrNameRequired
	}
	if len(name) > constants.MaxTitleLength {
		return ErrTitleTooLong
	}
	status := input.Status
	if status == "" {
		status = models.EquipmentAvailable
	}
	if !status.Valid() {
		return ErrInvalidEquipmentStatus
	}
	if input.HourlyRate < 0 {
		return fmt.Errorf("%w: hourly rate is negative", ErrInvalidHours)
	}

	e.Name = name
	e.Type = input.Type
	e.Classification = input.Classification
	e.Category = input.Category
	e.Manufacturer = input.Manufacturer
	e.Model = input.Model
	e.AssetNumber = input.AssetNumber
	e.CostCode = input.CostCode
	e.HourlyRate = input.HourlyRate
	e.Status = status
	e.Location = input.Location
	e.Notes = input.Notes
	return nil
}

func findEquipment(repos *repository.Repositories, id uint64) (*models.Equipment, error) {
	equipment, err := repos.Equipment.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEquipmentNotFound
		}
		return nil, fmt.Errorf("failed to find equipment: %w", err)
	}
	return equipment, nil
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
