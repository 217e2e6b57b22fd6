package repository

import (
	"time"

	"github.com/parks-gardens/fieldops-api/internal/models"
	"gorm.io/gorm"
)

// GormOutboxRepository is a GORM implementation of OutboxRepository
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepository creates a new OutboxRepository
func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &GormOutboxRepository{db: db}
}

// Append stores events for dispatch
func (r *GormOutboxRepository) Append(events ...*models.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.Create(events).Error
}

// FetchPending returns retryable undispatched events oldest first
func (r *GormOutboxRepository) FetchPending(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	var events []models.OutboxEvent
	err := r.db.Where("dispatched_at IS NULL AND attempts < ?", maxAttempts).
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// MarkDispatched stamps events as delivered
func (r *GormOutboxRepository) MarkDispatched(ids []uint64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.OutboxEvent{}).
		Where("id IN ?", ids).
		Update("dispatched_at", at).Error
}

// MarkFailed records a failed dispatch attempt
func (r *GormOutboxRepository) MarkFailed(id uint64, cause error) error {
	return r.db.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause.Error(),
		}).Error
}
