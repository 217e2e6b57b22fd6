package services

import (
	"context"
	"fmt"
	"time"

	"github.com/parks-gardens/fieldops-api/internal/dto"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/parks-gardens/fieldops-api/internal/repository"
)

// DashboardService aggregates task counts for supervisors
type DashboardService struct {
	repos *repository.Repositories
	loc   *time.Location
	now   func() time.Time
}

// NewDashboardService creates a new DashboardService. "Today" is the
// calendar day in loc.
func NewDashboardService(repos *repository.Repositories, loc *time.Location) *DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardService{repos: repos, loc: loc, now: time.Now}
}

// Stats counts today's tasks by status
func (s *DashboardService) Stats(ctx context.Context) (*dto.DashboardStats, error) {
	from, to, err := dayRange(s.now().In(s.loc).Format(dateLayout), s.loc)
	if err != nil {
		return nil, err
	}

	counts, err := s.repos.WithContext(ctx).Tasks.CountByStatus(from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	return &dto.DashboardStats{
		Pending:           counts[models.TaskStatusAssigned],
		InProgress:        counts[models.TaskStatusInProgress],
		Completed:         counts[models.TaskStatusCompleted],
		NeedsRescheduling: counts[models.TaskStatusNeedsRescheduling],
	}, nil
}
