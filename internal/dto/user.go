package dto

import (
	"time"

	"github.com/parks-gardens/fieldops-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        uint64          `json:"id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Role      models.UserRole `json:"role"`
	CrewID    *string         `json:"crew_id"`
	Phone     *string         `json:"phone"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// StaffDeletedEvent is the payload of a staff-deleted notification
type StaffDeletedEvent struct {
	ID              uint64 `json:"id"`
	ReassignedTasks int    `json:"reassignedTasks"`
}

// TasksReassignedEvent is the payload of a tasks-reassigned notification
type TasksReassignedEvent struct {
	Count  int    `json:"count"`
	Reason string `json:"reason"`
}

// StaffDeletionResult describes a completed offboarding
type StaffDeletionResult struct {
	Message         string  `json:"message"`
	DeletedStaff    UserDTO `json:"deletedStaff"`
	ReassignedTasks int     `json:"reassignedTasks"`
	TaskDetails     string  `json:"taskDetails"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		CrewID:    user.CrewID,
		Phone:     user.Phone,
		CreatedAt: user.CreatedAt,
	}
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []models.User) []UserDTO {
	dtos := make([]UserDTO, len(users))
	for i, user := range users {
		dtos[i] = ToUserDTO(user)
	}
	return dtos
}
