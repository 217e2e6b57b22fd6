package services

import (
	"fmt"

	"github.com/parks-gardens/fieldops-api/internal/notify"
	"github.com/parks-gardens/fieldops-api/internal/repository"
)

// emit records a notification in the outbox of the current transaction.
func emit(tx *repository.Repositories, name string, data interface{}, rooms []string) error {
	event, err := notify.NewOutboxEvent(name, data, rooms)
	if err != nil {
		return err
	}
	if err := tx.Outbox.Append(event); err != nil {
		return fmt.Errorf("failed to record %s event: %w", name, err)
	}
	return nil
}
