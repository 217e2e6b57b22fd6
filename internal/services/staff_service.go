package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/parks-gardens/fieldops-api/internal/constants"
	"github.com/parks-gardens/fieldops-api/internal/dto"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/parks-gardens/fieldops-api/internal/notify"
	"github.com/parks-gardens/fieldops-api/internal/repository"
	"gorm.io/gorm"
)

// StaffService handles staff management and offboarding
type StaffService struct {
	repos *repository.Repositories
}

// NewStaffService creates a new StaffService
func NewStaffService(repos *repository.Repositories) *StaffService {
	return &StaffService{repos: repos}
}

// StaffUpdateInput carries the fields an admin may change. A nil Password
// leaves the credential unchanged.
type StaffUpdateInput struct {
	Email    string
	Name     string
	Role     models.UserRole
	CrewID   *string
	Phone    *string
	Password *string
}

// ProfileUpdateInput carries the fields users may change on themselves
type ProfileUpdateInput struct {
	Name     string
	Phone    *string
	Password *string
}

// ListStaff lists field staff ordered by name
func (s *StaffService) ListStaff(ctx context.Context) ([]models.User, error) {
	users, err := s.repos.WithContext(ctx).Users.ListByRole(models.RoleFieldStaff)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	return users, nil
}

// ListUsers lists every user ordered by role then name
func (s *StaffService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.repos.WithContext(ctx).Users.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// GetStaff returns one user
func (s *StaffService) GetStaff(ctx context.Context, id uint64) (*models.User, error) {
	return findUser(s.repos.WithContext(ctx), id)
}

// UpdateStaff rewrites a user's profile, role and crew
func (s *StaffService) UpdateStaff(ctx context.Context, id uint64, input StaffUpdateInput) (*models.User, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if !input.Role.Valid() {
		return nil, ErrInvalidRole
	}

	var updated *models.User
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		user, err := findUser(tx, id)
		if err != nil {
			return err
		}

		taken, err := tx.Users.EmailTaken(email, id)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return ErrEmailTaken
		}

		user.Email = email
		user.Name = name
		user.Role = input.Role
		user.CrewID = trimmedOrNil(input.CrewID)
		user.Phone = trimmedOrNil(input.Phone)
		if err := setPassword(user, input.Password); err != nil {
			return err
		}

		if err := tx.Users.Update(user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		updated = user
		return emit(tx, notify.EventStaffUpdated, dto.ToUserDTO(*user), notify.StaffRooms(user.ID))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateProfile lets users change their own name, phone and password
func (s *StaffService) UpdateProfile(ctx context.Context, id uint64, input ProfileUpdateInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	var updated *models.User
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		user, err := findUser(tx, id)
		if err != nil {
			return err
		}

		user.Name = name
		user.Phone = trimmedOrNil(input.Phone)
		if err := setPassword(user, input.Password); err != nil {
			return err
		}

		if err := tx.Users.Update(user); err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		updated = user
		return emit(tx, notify.EventStaffUpdated, dto.ToUserDTO(*user), notify.StaffRooms(user.ID))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteStaff offboards a user in one transaction. Open tasks assigned to
// them move to needs-rescheduling, every task they held is unassigned,
// then the user row is removed. Nothing is changed if any step fails.
func (s *StaffService) DeleteStaff(ctx context.Context, id uint64) (*dto.StaffDeletionResult, error) {
	var result *dto.StaffDeletionResult
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		user, err := findUser(tx, id)
		if err != nil {
			return err
		}

		tasks, err := tx.Tasks.FindByAssignee(id)
		if err != nil {
			return fmt.Errorf("failed to find assigned tasks: %w", err)
		}

		reason := fmt.Sprintf("Staff member %s was removed from the system", user.Name)
		if _, err := tx.Tasks.MarkNeedsReschedulingForAssignee(id, reason); err != nil {
			return fmt.Errorf("failed to reschedule tasks: %w", err)
		}
		if _, err := tx.Tasks.UnassignAll(id); err != nil {
			return fmt.Errorf("failed to unassign tasks: %w", err)
		}

		deleted, err := tx.Users.Delete(id)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		if deleted == 0 {
			return ErrUserNotFound
		}

		result = &dto.StaffDeletionResult{
			Message:         "Staff member deleted successfully",
			DeletedStaff:    dto.ToUserDTO(*user),
			ReassignedTasks: len(tasks),
		}
		if len(tasks) > 0 {
			result.TaskDetails = fmt.Sprintf("%d task(s) were unassigned and marked for rescheduling", len(tasks))
		} else {
			result.TaskDetails = "No tasks were assigned to this staff member"
		}

		event := dto.StaffDeletedEvent{ID: id, ReassignedTasks: len(tasks)}
		if err := emit(tx, notify.EventStaffDeleted, event, notify.StaffRooms(id)); err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}
		reassigned := dto.TasksReassignedEvent{
			Count:  len(tasks),
			Reason: fmt.Sprintf("Staff member %s was deleted", user.Name),
		}
		return emit(tx, notify.EventTasksReassigned, reassigned, notify.SupervisorRooms())
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func findUser(repos *repository.Repositories, id uint64) (*models.User, error) {
	user, err := repos.Users.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func setPassword(user *models.User, password *string) error {
	if password == nil || *password == "" {
		return nil
	}
	if len(*password) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}
	hash, err := hashPassword(*password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return nil
}
