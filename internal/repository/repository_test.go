package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/parks-gardens/fieldops-api/internal/repository"
	"github.com/parks-gardens/fieldops-api/internal/testutil"
	"github.com/parks-gardens/fieldops-api/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type RepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	repos *repository.Repositories
}

func (s *RepositoryTestSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())
	s.repos = repository.New(s.db)
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func day(y int, m time.Month, d, h int) *time.Time {
	t := time.Date(y, m, d, h, 0, 0, 0, time.UTC)
	return &t
}

func (s *RepositoryTestSuite) TestTaskListFiltersAreConjunctive() {
	alice := testutil.CreateUser(s.T(), s.db, "alice@example.com", "Alice", models.RoleFieldStaff)
	bob := testutil.CreateUser(s.T(), s.db, "bob@example.com", "Bob", models.RoleFieldStaff)

	match := testutil.CreateTask(s.T(), s.db, "mow oval", models.TaskStatusAssigned, alice)
	otherStatus := testutil.CreateTask(s.T(), s.db, "prune roses", models.TaskStatusCompleted, alice)
	otherUser := testutil.CreateTask(s.T(), s.db, "edge paths", models.TaskStatusAssigned, bob)
	otherDay := testutil.CreateTask(s.T(), s.db, "empty bins", models.TaskStatusAssigned, alice)

	for _, task := range []*models.Task{match, otherStatus, otherUser} {
		s.Require().NoError(s.db.Model(task).Update("scheduled_date", day(2025, 3, 10, 9)).Error)
	}
	s.Require().NoError(s.db.Model(otherDay).Update("scheduled_date", day(2025, 3, 11, 9)).Error)

	status := models.TaskStatusAssigned
	tasks, err := s.repos.Tasks.List(repository.TaskFilter{
		AssignedTo:    &alice.ID,
		Status:        &status,
		ScheduledFrom: day(2025, 3, 10, 0),
		ScheduledTo:   day(2025, 3, 11, 0),
	})
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal(match.ID, tasks[0].ID)
	s.Require().NotNil(tasks[0].Assignee)
	s.Equal("Alice", tasks[0].Assignee.Name)
}

func (s *RepositoryTestSuite) TestTaskListOrdersByScheduledDateWithNullsLast() {
	unscheduled := testutil.CreateTask(s.T(), s.db, "unscheduled", models.TaskStatusAssigned, nil)
	later := testutil.CreateTask(s.T(), s.db, "later", models.TaskStatusAssigned, nil)
	sooner := testutil.CreateTask(s.T(), s.db, "sooner", models.TaskStatusAssigned, nil)
	s.Require().NoError(s.db.Model(later).Update("scheduled_date", day(2025, 3, 12, 8)).Error)
	s.Require().NoError(s.db.Model(sooner).Update("scheduled_date", day(2025, 3, 10, 8)).Error)

	tasks, err := s.repos.Tasks.List(repository.TaskFilter{})
	s.Require().NoError(err)
	s.Require().Len(tasks, 3)
	s.Equal([]uint64{sooner.ID, later.ID, unscheduled.ID}, []uint64{tasks[0].ID, tasks[1].ID, tasks[2].ID})
}

func (s *RepositoryTestSuite) TestOffboardingHelpers() {
	leaver := testutil.CreateUser(s.T(), s.db, "leaver@example.com", "Lee", models.RoleFieldStaff)
	assigned := testutil.CreateTask(s.T(), s.db, "a", models.TaskStatusAssigned, leaver)
	started := testutil.CreateTask(s.T(), s.db, "b", models.TaskStatusInProgress, leaver)
	done := testutil.CreateTask(s.T(), s.db, "c", models.TaskStatusCompleted, leaver)

	moved, err := s.repos.Tasks.MarkNeedsReschedulingForAssignee(leaver.ID, "Staff member Lee was removed from the system")
	s.Require().NoError(err)
	s.Equal(int64(2), moved)

	unassigned, err := s.repos.Tasks.UnassignAll(leaver.ID)
	s.Require().NoError(err)
	s.Equal(int64(3), unassigned)

	for _, id := range []uint64{assigned.ID, started.ID} {
		task, err := s.repos.Tasks.FindByID(id)
		s.Require().NoError(err)
		s.Equal(models.TaskStatusNeedsRescheduling, task.Status)
		s.Nil(task.AssignedTo)
		s.Require().NotNil(task.IncompleteReason)
		s.Equal("Staff member Lee was removed from the system", *task.IncompleteReason)
	}

	task, err := s.repos.Tasks.FindByID(done.ID)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusCompleted, task.Status)
	s.Nil(task.IncompleteReason)
	s.Nil(task.AssignedTo)
}

func (s *RepositoryTestSuite) TestCountByStatus() {
	a := testutil.CreateTask(s.T(), s.db, "a", models.TaskStatusAssigned, nil)
	b := testutil.CreateTask(s.T(), s.db, "b", models.TaskStatusAssigned, nil)
	c := testutil.CreateTask(s.T(), s.db, "c", models.TaskStatusCompleted, nil)
	outside := testutil.CreateTask(s.T(), s.db, "d", models.TaskStatusCompleted, nil)
	for _, task := range []*models.Task{a, b, c} {
		s.Require().NoError(s.db.Model(task).Update("scheduled_date", day(2025, 3, 10, 9)).Error)
	}
	s.Require().NoError(s.db.Model(outside).Update("scheduled_date", day(2025, 3, 9, 9)).Error)

	counts, err := s.repos.Tasks.CountByStatus(*day(2025, 3, 10, 0), *day(2025, 3, 11, 0))
	s.Require().NoError(err)
	s.Equal(int64(2), counts[models.TaskStatusAssigned])
	s.Equal(int64(1), counts[models.TaskStatusCompleted])
	s.Zero(counts[models.TaskStatusInProgress])
}

func (s *RepositoryTestSuite) TestCountReferencing() {
	ra := testutil.CreateRiskAssessment(s.T(), s.db, "Chainsaw use")
	task := testutil.CreateTask(s.T(), s.db, "fell tree", models.TaskStatusAssigned, nil)
	s.Require().NoError(s.db.Model(task).Update("risk_assessment_id", ra.ID).Error)

	count, err := s.repos.Tasks.CountReferencing(models.DocumentTypeRiskAssessment, ra.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), count)

	count, err = s.repos.Tasks.CountReferencing(models.DocumentTypeSWMS, ra.ID)
	s.Require().NoError(err)
	s.Zero(count)

	_, err = s.repos.Tasks.CountReferencing("permit", ra.ID)
	s.Error(err)
}

func (s *RepositoryTestSuite) TestDocumentRepositorySetFile() {
	swms := testutil.CreateSWMS(s.T(), s.db, "Working at heights")

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	err := s.repos.SWMS.SetFile(swms.ID, repository.FileInfo{Path: "uploads/swms/1_x.pdf", Size: 42, UploadedBy: 7, UploadedAt: at})
	s.Require().NoError(err)

	loaded, err := s.repos.SWMS.FindByID(swms.ID)
	s.Require().NoError(err)
	s.Require().NotNil(loaded.FilePath)
	s.Equal("uploads/swms/1_x.pdf", *loaded.FilePath)
	s.Equal(int64(42), *loaded.FileSize)
	s.Equal(uint64(7), loaded.UploadedBy)

	err = s.repos.SWMS.SetFile(9999, repository.FileInfo{Path: "nope"})
	s.True(errors.Is(err, gorm.ErrRecordNotFound))
}

func (s *RepositoryTestSuite) TestDocumentRepositoryListOrder() {
	testutil.CreateRiskAssessment(s.T(), s.db, "Zebra crossing")
	testutil.CreateRiskAssessment(s.T(), s.db, "Apiary")

	docs, err := s.repos.RiskAssessments.List("title ASC")
	s.Require().NoError(err)
	s.Require().Len(docs, 2)
	s.Equal("Apiary", docs[0].Title)
}

func (s *RepositoryTestSuite) TestEquipmentUsageAndHistory() {
	staff := testutil.CreateUser(s.T(), s.db, "op@example.com", "Operator", models.RoleFieldStaff)
	task := testutil.CreateTask(s.T(), s.db, "mulch beds", models.TaskStatusAssigned, staff)

	mower := &models.Equipment{Name: "Mower", Classification: "small_plant", Status: models.EquipmentAvailable}
	loader := &models.Equipment{Name: "Loader", Classification: "large_plant", Status: models.EquipmentAvailable}
	s.Require().NoError(s.repos.Equipment.Create(mower))
	s.Require().NoError(s.repos.Equipment.Create(loader))

	s.Require().NoError(s.repos.Equipment.AddUsage(&models.TaskMachinery{TaskID: task.ID, EquipmentID: mower.ID, HoursUsed: 1.5, AssignedAt: *day(2025, 3, 1, 8)}))
	s.Require().NoError(s.repos.Equipment.AddUsage(&models.TaskMachinery{TaskID: task.ID, EquipmentID: mower.ID, HoursUsed: 2, AssignedAt: *day(2025, 3, 2, 8)}))

	rows, err := s.repos.Equipment.ListWithUsage(repository.EquipmentFilter{})
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal("Loader", rows[0].Name)
	s.Zero(rows[0].TaskCount)
	s.Equal("Mower", rows[1].Name)
	s.Equal(int64(2), rows[1].TaskCount)
	s.InDelta(3.5, rows[1].TotalTaskHours, 0.001)

	filtered, err := s.repos.Equipment.ListWithUsage(repository.EquipmentFilter{Classification: "large_plant"})
	s.Require().NoError(err)
	s.Require().Len(filtered, 1)
	s.Equal(loader.ID, filtered[0].ID)

	history, total, err := s.repos.Equipment.History(mower.ID, utils.PaginationParams{Page: 1, Limit: 1, Offset: 0})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Require().Len(history, 1)
	s.Equal(task.ID, history[0].TaskID)
	s.Equal("mulch beds", history[0].Title)
	s.InDelta(2.0, history[0].HoursUsed, 0.001)
	s.Require().NotNil(history[0].AssignedToName)
	s.Equal("Operator", *history[0].AssignedToName)
}

func (s *RepositoryTestSuite) TestOutboxLifecycle() {
	first := &models.OutboxEvent{Name: "task-created", Rooms: []string{"supervisors"}, Payload: []byte(`{"id":1}`)}
	second := &models.OutboxEvent{Name: "task-deleted", Rooms: []string{"supervisors"}, Payload: []byte(`{"id":1}`)}
	s.Require().NoError(s.repos.Outbox.Append(first, second))

	pending, err := s.repos.Outbox.FetchPending(10, 5)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal("task-created", pending[0].Name)

	s.Require().NoError(s.repos.Outbox.MarkFailed(first.ID, errors.New("boom")))
	s.Require().NoError(s.repos.Outbox.MarkDispatched([]uint64{second.ID}, time.Now()))

	pending, err = s.repos.Outbox.FetchPending(10, 5)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(first.ID, pending[0].ID)
	s.Equal(1, pending[0].Attempts)
	s.Equal("boom", pending[0].LastError)

	pending, err = s.repos.Outbox.FetchPending(10, 1)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *RepositoryTestSuite) TestTransactionRollsBack() {
	errAbort := errors.New("abort")
	err := s.repos.Transaction(context.Background(), func(tx *repository.Repositories) error {
		if err := tx.Users.Create(&models.User{Email: "tx@example.com", Name: "Tx", Role: models.RoleFieldStaff, PasswordHash: "x"}); err != nil {
			return err
		}
		return errAbort
	})
	s.ErrorIs(err, errAbort)

	_, err = s.repos.Users.FindByEmail("tx@example.com")
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func TestAcknowledgmentFindByIDsEmpty(t *testing.T) {
	db := testutil.NewDB(t)
	acks, err := repository.NewAcknowledgmentRepository(db).FindByIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, acks)
}
