package models

import "time"

type UserRole string

const (
	RoleFieldStaff UserRole = "field_staff"
	RoleTeamLeader UserRole = "team_leader"
	RoleAdmin      UserRole = "admin"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleFieldStaff, RoleTeamLeader, RoleAdmin:
		return true
	}
	return false
}

// Supervisory reports whether the role schedules and oversees field work.
func (r UserRole) Supervisory() bool {
	return r == RoleTeamLeader || r == RoleAdmin
}

type User struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Role         UserRole  `gorm:"type:varchar(20);not null;default:'field_staff'" json:"role"`
	CrewID       *string   `gorm:"type:varchar(50)" json:"crew_id"`
	Phone        *string   `gorm:"type:varchar(50)" json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
