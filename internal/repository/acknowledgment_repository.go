package repository

import (
	"github.com/parks-gardens/fieldops-api/internal/models"
	"gorm.io/gorm"
)

// GormAcknowledgmentRepository is a GORM implementation of AcknowledgmentRepository
type GormAcknowledgmentRepository struct {
	db *gorm.DB
}

// NewAcknowledgmentRepository creates a new AcknowledgmentRepository
func NewAcknowledgmentRepository(db *gorm.DB) AcknowledgmentRepository {
	return &GormAcknowledgmentRepository{db: db}
}

// Create records an acknowledgment
func (r *GormAcknowledgmentRepository) Create(ack *models.SafetyAcknowledgment) error {
	return r.db.Create(ack).Error
}

// FindByIDs loads acknowledgments by ID
func (r *GormAcknowledgmentRepository) FindByIDs(ids []uint64) ([]models.SafetyAcknowledgment, error) {
	acks := []models.SafetyAcknowledgment{}
	if len(ids) == 0 {
		return acks, nil
	}
	if err := r.db.Where("id IN ?", ids).Find(&acks).Error; err != nil {
		return nil, err
	}
	return acks, nil
}
