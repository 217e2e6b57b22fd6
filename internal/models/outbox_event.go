package models

import (
	"time"

	"gorm.io/datatypes"
)

// OutboxEvent is a change notification written in the same transaction as
// the change itself and delivered later by the dispatcher.
type OutboxEvent struct {
	ID           uint64                     `gorm:"primarykey" json:"id"`
	Name         string                     `gorm:"type:varchar(50);not null" json:"name"`
	Rooms        datatypes.JSONSlice[string] `json:"rooms"`
	Payload      datatypes.JSON             `json:"payload"`
	Attempts     int                        `gorm:"not null;default:0" json:"attempts"`
	LastError    string                     `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
	DispatchedAt *time.Time                 `gorm:"index" json:"dispatched_at"`
}
