package database

import (
	"fmt"
	"log/slog"

	"github.com/parks-gardens/fieldops-api/internal/models"
	"gorm.io/gorm"
)

type compositeIndex struct {
	model   interface{}
	table   string
	name    string
	columns string
}

// compositeIndexes covers the hot query paths that single-column tags
// can't express.
var compositeIndexes = []compositeIndex{
	// my-tasks: assignee + day
	{&models.Task{}, "tasks", "idx_tasks_assignee_scheduled", "assigned_to, scheduled_date"},
	// dashboard: day + status
	{&models.Task{}, "tasks", "idx_tasks_scheduled_status", "scheduled_date, status"},
	// acknowledgment evidence lookups
	{&models.SafetyAcknowledgment{}, "safety_acknowledgments", "idx_acks_task_user", "task_id, user_id"},
	// machinery history
	{&models.TaskMachinery{}, "task_machinery", "idx_task_machinery_equipment_assigned", "equipment_id, assigned_at"},
	// outbox polling
	{&models.OutboxEvent{}, "outbox_events", "idx_outbox_pending", "dispatched_at, id"},
}

// AddIndexes adds performance-critical indexes to the database
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()
	for _, idx := range compositeIndexes {
		if migrator.HasIndex(idx.model, idx.name) {
			slog.Debug("index already exists, skipping", "index", idx.name)
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		slog.Info("created index", "index", idx.name, "table", idx.table, "columns", idx.columns)
	}

	return nil
}
