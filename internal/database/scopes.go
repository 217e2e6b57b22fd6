package database

import (
	"time"

	"gorm.io/gorm"

	"github.com/parks-gardens/fieldops-api/internal/utils"
)

// Paginate applies pagination to a GORM query
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// ScheduledBetween restricts tasks to the half-open range [from, to).
func ScheduledBetween(from, to time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.scheduled_date >= ? AND tasks.scheduled_date < ?", from, to)
	}
}

// ScheduledOrder sorts by scheduled date ascending with unscheduled tasks last.
func ScheduledOrder(db *gorm.DB) *gorm.DB {
	return db.Order("CASE WHEN tasks.scheduled_date IS NULL THEN 1 ELSE 0 END").
		Order("tasks.scheduled_date ASC").
		Order("tasks.id ASC")
}
