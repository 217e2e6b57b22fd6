package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/parks-gardens/fieldops-api/internal/auth"
	"github.com/parks-gardens/fieldops-api/internal/constants"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/parks-gardens/fieldops-api/internal/notify"
	"github.com/parks-gardens/fieldops-api/internal/repository"
	"github.com/parks-gardens/fieldops-api/internal/safety"
	"github.com/parks-gardens/fieldops-api/internal/storage"
	"github.com/parks-gardens/fieldops-api/internal/testutil"
	"github.com/parks-gardens/fieldops-api/internal/utils"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type ServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	db        *gorm.DB
	repos     *repository.Repositories
	tokens    *auth.TokenManager
	auth      *AuthService
	tasks     *TaskService
	staff     *StaffService
	machinery *MachineryService
	risk      *DocumentService[models.RiskAssessment, *models.RiskAssessment]
	uploadDir string

	leader *models.User
	worker *models.User
}

func (suite *ServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.db = testutil.NewDB(suite.T())
	suite.repos = repository.New(suite.db)
	suite.tokens = auth.NewTokenManager("test-secret", time.Hour)
	suite.uploadDir = suite.T().TempDir()

	suite.auth = NewAuthService(suite.repos, suite.tokens)
	suite.tasks = NewTaskService(suite.repos, nil, time.UTC, 12*time.Hour)
	suite.staff = NewStaffService(suite.repos)
	suite.machinery = NewMachineryService(suite.repos)
	suite.risk = NewRiskAssessmentService(suite.repos, storage.NewFileStore(suite.uploadDir), 1024)

	suite.leader = testutil.CreateUser(suite.T(), suite.db, "leader@example.com", "Lee Leader", models.RoleTeamLeader)
	suite.worker = testutil.CreateUser(suite.T(), suite.db, "worker@example.com", "Wren Worker", models.RoleFieldStaff)
}

func (suite *ServiceTestSuite) outbox() []models.OutboxEvent {
	var events []models.OutboxEvent
	suite.Require().NoError(suite.db.Order("id").Find(&events).Error)
	return events
}

func (suite *ServiceTestSuite) reload(id uint64) models.Task {
	var task models.Task
	suite.Require().NoError(suite.db.First(&task, id).Error)
	return task
}

// Auth

func (suite *ServiceTestSuite) TestRegisterThenLogin_TokenCarriesIdentity() {
	user, token, err := suite.auth.Register(suite.ctx, RegisterInput{
		Email:    "New.Staff@Example.com",
		Password: "longenough",
		Name:     "New Staff",
		Role:     models.RoleFieldStaff,
		CrewID:   testutil.Ptr("north"),
	})
	suite.Require().NoError(err)
	suite.Equal("new.staff@example.com", user.Email)
	suite.NotEmpty(token)

	loggedIn, loginToken, err := suite.auth.Login(suite.ctx, LoginInput{Email: "new.staff@example.com", Password: "longenough"})
	suite.Require().NoError(err)
	suite.Equal(user.ID, loggedIn.ID)

	claims, err := suite.tokens.Parse(loginToken)
	suite.Require().NoError(err)
	suite.Equal(user.ID, claims.UserID)
	suite.Equal(models.RoleFieldStaff, claims.Role)
}

func (suite *ServiceTestSuite) TestRegister_Validation() {
	_, _, err := suite.auth.Register(suite.ctx, RegisterInput{Email: "worker@example.com", Password: "longenough", Name: "Dup"})
	suite.ErrorIs(err, ErrEmailTaken)

	_, _, err = suite.auth.Register(suite.ctx, RegisterInput{Email: "not-an-email", Password: "longenough", Name: "X"})
	suite.ErrorIs(err, ErrInvalidEmail)

	_, _, err = suite.auth.Register(suite.ctx, RegisterInput{Email: "a@example.com", Password: "short", Name: "X"})
	suite.ErrorIs(err, ErrPasswordTooShort)

	_, _, err = suite.auth.Register(suite.ctx, RegisterInput{Email: "a@example.com", Password: "longenough", Name: "X", Role: "ranger"})
	suite.ErrorIs(err, ErrInvalidRole)

	user, _, err := suite.auth.Register(suite.ctx, RegisterInput{Email: "b@example.com", Password: "longenough", Name: "B"})
	suite.Require().NoError(err)
	suite.Equal(models.RoleFieldStaff, user.Role)
}

func (suite *ServiceTestSuite) TestRegister_RejectsElevatedRoles() {
	for _, role := range []models.UserRole{models.RoleAdmin, models.RoleTeamLeader} {
		_, _, err := suite.auth.Register(suite.ctx, RegisterInput{
			Email:    string(role) + "@example.org",
			Password: "longenough",
			Name:     "Climber",
			Role:     role,
		})
		suite.ErrorIs(err, ErrRoleNotAllowed, role)
	}

	var count int64
	suite.Require().NoError(suite.db.Model(&models.User{}).Where("email LIKE ?", "%@example.org").Count(&count).Error)
	suite.Zero(count)
}

func (suite *ServiceTestSuite) TestLogin_InvalidCredentials() {
	_, _, err := suite.auth.Login(suite.ctx, LoginInput{Email: "worker@example.com", Password: "wrong-password"})
	suite.ErrorIs(err, ErrInvalidCredentials)

	_, _, err = suite.auth.Login(suite.ctx, LoginInput{Email: "nobody@example.com", Password: "password123"})
	suite.ErrorIs(err, ErrInvalidCredentials)
}

// Tasks

func (suite *ServiceTestSuite) TestCreateTask_AssignsAndEmits() {
	day := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	task, err := suite.tasks.CreateTask(suite.ctx, suite.leader.ID, TaskInput{
		Title:             "Mow oval",
		AssignedTo:        &suite.worker.ID,
		ScheduledDate:     &day,
		EquipmentRequired: []string{"ride-on mower"},
	})
	suite.Require().NoError(err)
	suite.Equal(models.TaskStatusAssigned, task.Status)
	suite.Equal(models.PriorityMedium, task.Priority)
	suite.Equal(suite.leader.ID, task.CreatedBy)
	suite.Require().NotNil(task.Assignee)
	suite.Equal("Wren Worker", task.Assignee.Name)

	events := suite.outbox()
	suite.Require().Len(events, 1)
	suite.Equal(notify.EventTaskCreated, events[0].Name)
	suite.ElementsMatch([]string{constants.RoomSupervisors, notify.UserRoom(suite.worker.ID)}, []string(events[0].Rooms))
}

func (suite *ServiceTestSuite) TestCreateTask_Validation() {
	_, err := suite.tasks.CreateTask(suite.ctx, suite.leader.ID, TaskInput{Title: "  "})
	suite.ErrorIs(err, ErrTitleRequired)

	_, err = suite.tasks.CreateTask(suite.ctx, suite.leader.ID, TaskInput{Title: "x", AssignedTo: testutil.Ptr(uint64(999))})
	suite.ErrorIs(err, ErrAssigneeNotFound)

	_, err = suite.tasks.CreateTask(suite.ctx, suite.leader.ID, TaskInput{Title: "x", RiskAssessmentID: testutil.Ptr(uint64(999))})
	suite.ErrorIs(err, ErrDocumentNotFound)

	archived := testutil.CreateSWMS(suite.T(), suite.db, "Old chainsaw SWMS")
	suite.Require().NoError(suite.db.Model(archived).Update("approval_status", models.ApprovalArchived).Error)
	_, err = suite.tasks.CreateTask(suite.ctx, suite.leader.ID, TaskInput{Title: "x", SWMSID: &archived.ID})
	suite.ErrorIs(err, ErrDocumentArchived)

	_, err = suite.tasks.CreateTask(suite.ctx, suite.leader.ID, TaskInput{Title: "x", LargePlantRequired: []byte("{nope")})
	suite.ErrorIs(err, ErrInvalidJSON)

	suite.Empty(suite.outbox())
}

func (suite *ServiceTestSuite) TestListTasks_FilterConjunction() {
	d1 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)

	match := testutil.CreateTask(suite.T(), suite.db, "match", models.TaskStatusAssigned, suite.worker)
	wrongStatus := testutil.CreateTask(suite.T(), suite.db, "wrong status", models.TaskStatusCompleted, suite.worker)
	wrongDay := testutil.CreateTask(suite.T(), suite.db, "wrong day", models.TaskStatusAssigned, suite.worker)
	unscheduled := testutil.CreateTask(suite.T(), suite.db, "unscheduled", models.TaskStatusAssigned, nil)
	suite.Require().NoError(suite.db.Model(match).Update("scheduled_date", d1).Error)
	suite.Require().NoError(suite.db.Model(wrongStatus).Update("scheduled_date", d1).Error)
	suite.Require().NoError(suite.db.Model(wrongDay).Update("scheduled_date", d2).Error)

	tasks, err := suite.tasks.ListTasks(suite.ctx, ListTasksInput{Date: "2026-03-02", Status: "assigned"})
	suite.Require().NoError(err)
	suite.Require().Len(tasks, 1)
	suite.Equal(match.ID, tasks[0].ID)

	all, err := suite.tasks.ListTasks(suite.ctx, ListTasksInput{})
	suite.Require().NoError(err)
	suite.Require().Len(all, 4)
	suite.Equal([]uint64{match.ID, wrongStatus.ID, wrongDay.ID, unscheduled.ID},
		[]uint64{all[0].ID, all[1].ID, all[2].ID, all[3].ID})

	_, err = suite.tasks.ListTasks(suite.ctx, ListTasksInput{Date: "02/03/2026"})
	suite.ErrorIs(err, ErrInvalidDate)
	_, err = suite.tasks.ListTasks(suite.ctx, ListTasksInput{Status: "done"})
	suite.ErrorIs(err, ErrInvalidStatus)
}

func (suite *ServiceTestSuite) TestMyTasks_UsesFieldTimezone() {
	sydney, err := time.LoadLocation("Australia/Sydney")
	suite.Require().NoError(err)
	suite.tasks = NewTaskService(suite.repos, nil, sydney, time.Hour)

	// 22:00 UTC on 1 March is the morning of 2 March in Sydney.
	task := testutil.CreateTask(suite.T(), suite.db, "early start", models.TaskStatusAssigned, suite.worker)
	suite.Require().NoError(suite.db.Model(task).Update("scheduled_date", time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)).Error)
	testutil.CreateTask(suite.T(), suite.db, "someone else", models.TaskStatusAssigned, suite.leader)

	tasks, err := suite.tasks.MyTasks(suite.ctx, suite.worker.ID, "2026-03-02")
	suite.Require().NoError(err)
	suite.Require().Len(tasks, 1)
	suite.Equal(task.ID, tasks[0].ID)

	tasks, err = suite.tasks.MyTasks(suite.ctx, suite.worker.ID, "2026-03-01")
	suite.Require().NoError(err)
	suite.Empty(tasks)
}

func (suite *ServiceTestSuite) TestUpdateStatus_StartWithoutDocuments() {
	task := testutil.CreateTask(suite.T(), suite.db, "Rake leaves", models.TaskStatusAssigned, suite.worker)

	updated, err := suite.tasks.UpdateStatus(suite.ctx, StatusUpdateInput{
		TaskID:  task.ID,
		ActorID: suite.worker.ID,
		Status:  models.TaskStatusInProgress,
	})
	suite.Require().NoError(err)
	suite.Equal(models.TaskStatusInProgress, updated.Status)
	suite.NotNil(updated.StartTime)
}

func (suite *ServiceTestSuite) TestUpdateStatus_RequiresAcknowledgmentOfEachDocument() {
	ra := testutil.CreateRiskAssessment(suite.T(), suite.db, "Mowing near roads")
	swms := testutil.CreateSWMS(suite.T(), suite.db, "Ride-on mower")
	task := testutil.CreateTask(suite.T(), suite.db, "Mow verge", models.TaskStatusAssigned, suite.worker)
	suite.Require().NoError(suite.db.Model(task).Updates(map[string]interface{}{"risk_assessment_id": ra.ID, "swms_id": swms.ID}).Error)

	start := StatusUpdateInput{TaskID: task.ID, ActorID: suite.worker.ID, Status: models.TaskStatusInProgress}

	_, err := suite.tasks.UpdateStatus(suite.ctx, start)
	suite.Require().ErrorIs(err, safety.ErrAcknowledgmentRequired)
	var missing *MissingAcknowledgmentsError
	suite.Require().True(errors.As(err, &missing))
	suite.Equal([]models.DocumentType{models.DocumentTypeRiskAssessment, models.DocumentTypeSWMS}, missing.Missing)

	raAck, err := suite.tasks.Acknowledge(suite.ctx, task.ID, suite.worker.ID, models.DocumentTypeRiskAssessment)
	suite.Require().NoError(err)
	suite.Equal(ra.ID, raAck.DocumentID)

	// An acknowledgment by someone else is not evidence for the worker.
	otherAck, err := suite.tasks.Acknowledge(suite.ctx, task.ID, suite.leader.ID, models.DocumentTypeSWMS)
	suite.Require().NoError(err)

	start.AcknowledgmentIDs = []uint64{raAck.ID, otherAck.ID}
	_, err = suite.tasks.UpdateStatus(suite.ctx, start)
	suite.Require().True(errors.As(err, &missing))
	suite.Equal([]models.DocumentType{models.DocumentTypeSWMS}, missing.Missing)
	suite.Equal(models.TaskStatusAssigned, suite.reload(task.ID).Status)

	swmsAck, err := suite.tasks.Acknowledge(suite.ctx, task.ID, suite.worker.ID, models.DocumentTypeSWMS)
	suite.Require().NoError(err)

	start.AcknowledgmentIDs = []uint64{raAck.ID, swmsAck.ID}
	updated, err := suite.tasks.UpdateStatus(suite.ctx, start)
	suite.Require().NoError(err)
	suite.Equal(models.TaskStatusInProgress, updated.Status)
	suite.Require().NotNil(updated.RiskAssessment)
	suite.Equal("Mowing near roads", updated.RiskAssessment.Title)
}

func (suite *ServiceTestSuite) TestUpdateStatus_StaleAcknowledgmentRejected() {
	ra := testutil.CreateRiskAssessment(suite.T(), suite.db, "Tree work")
	task := testutil.CreateTask(suite.T(), suite.db, "Prune", models.TaskStatusAssigned, suite.worker)
	suite.Require().NoError(suite.db.Model(task).Update("risk_assessment_id", ra.ID).Error)

	ack, err := suite.tasks.Acknowledge(suite.ctx, task.ID, suite.worker.ID, models.DocumentTypeRiskAssessment)
	suite.Require().NoError(err)

	suite.tasks.now = func() time.Time { return time.Now().Add(13 * time.Hour) }
	_, err = suite.tasks.UpdateStatus(suite.ctx, StatusUpdateInput{
		TaskID:            task.ID,
		ActorID:           suite.worker.ID,
		Status:            models.TaskStatusInProgress,
		AcknowledgmentIDs: []uint64{ack.ID},
	})
	suite.ErrorIs(err, safety.ErrAcknowledgmentRequired)
}

func (suite *ServiceTestSuite) TestAcknowledge_DocumentNotAttached() {
	task := testutil.CreateTask(suite.T(), suite.db, "Litter pick", models.TaskStatusAssigned, suite.worker)

	_, err := suite.tasks.Acknowledge(suite.ctx, task.ID, suite.worker.ID, models.DocumentTypeSWMS)
	suite.ErrorIs(err, safety.ErrDocumentNotAttached)

	_, err = suite.tasks.Acknowledge(suite.ctx, 999, suite.worker.ID, models.DocumentTypeSWMS)
	suite.ErrorIs(err, ErrTaskNotFound)
}

func (suite *ServiceTestSuite) TestUpdateStatus_Idempotent() {
	task := testutil.CreateTask(suite.T(), suite.db, "Weed beds", models.TaskStatusAssigned, suite.worker)
	startedAt := time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)
	input := StatusUpdateInput{TaskID: task.ID, ActorID: suite.worker.ID, Status: models.TaskStatusInProgress, StartTime: &startedAt}

	first, err := suite.tasks.UpdateStatus(suite.ctx, input)
	suite.Require().NoError(err)
	second, err := suite.tasks.UpdateStatus(suite.ctx, input)
	suite.Require().NoError(err)

	suite.Equal(first.Status, second.Status)
	suite.Require().NotNil(second.StartTime)
	suite.True(first.StartTime.Equal(*second.StartTime))
	suite.True(startedAt.Equal(*second.StartTime))
	suite.Len(suite.outbox(), 1)
}

func (suite *ServiceTestSuite) TestUpdateStatus_TransitionTable() {
	task := testutil.CreateTask(suite.T(), suite.db, "Fix bench", models.TaskStatusAssigned, suite.worker)

	_, err := suite.tasks.UpdateStatus(suite.ctx, StatusUpdateInput{TaskID: task.ID, Status: models.TaskStatusCompleted})
	suite.ErrorIs(err, models.ErrInvalidTransition)

	_, err = suite.tasks.UpdateStatus(suite.ctx, StatusUpdateInput{TaskID: task.ID, Status: "done"})
	suite.ErrorIs(err, models.ErrInvalidTransition)

	_, err = suite.tasks.UpdateStatus(suite.ctx, StatusUpdateInput{TaskID: 999, Status: models.TaskStatusInProgress})
	suite.ErrorIs(err, ErrTaskNotFound)
}

func (suite *ServiceTestSuite) TestUpdateStatus_IncompleteNeedsReason() {
	task := testutil.CreateTask(suite.T(), suite.db, "Paint fence", models.TaskStatusInProgress, suite.worker)

	_, err := suite.tasks.UpdateStatus(suite.ctx, StatusUpdateInput{TaskID: task.ID, Status: models.TaskStatusNeedsRescheduling, IncompleteReason: testutil.Ptr("  ")})
	suite.ErrorIs(err, ErrReasonRequired)

	updated, err := suite.tasks.UpdateStatus(suite.ctx, StatusUpdateInput{TaskID: task.ID, Status: models.TaskStatusNeedsRescheduling, IncompleteReason: testutil.Ptr("Rain")})
	suite.Require().NoError(err)
	suite.Equal(models.TaskStatusNeedsRescheduling, updated.Status)
	suite.Require().NotNil(updated.IncompleteReason)
	suite.Equal("Rain", *updated.IncompleteReason)
	suite.NotNil(updated.EndTime)
}

func (suite *ServiceTestSuite) TestUpdateTask_RescheduleResetsCycle() {
	task := testutil.CreateTask(suite.T(), suite.db, "Paint fence", models.TaskStatusNeedsRescheduling, suite.worker)
	now := time.Now().UTC()
	suite.Require().NoError(suite.db.Model(task).Updates(map[string]interface{}{"start_time": now, "end_time": now, "incomplete_reason": "Rain"}).Error)

	_, err := suite.tasks.UpdateTask(suite.ctx, task.ID, TaskInput{Title: "Paint fence", Status: testutil.Ptr(models.TaskStatusCompleted)})
	suite.ErrorIs(err, models.ErrInvalidTransition)

	updated, err := suite.tasks.UpdateTask(suite.ctx, task.ID, TaskInput{
		Title:      "Paint fence",
		AssignedTo: &suite.leader.ID,
		Status:     testutil.Ptr(models.TaskStatusAssigned),
	})
	suite.Require().NoError(err)
	suite.Equal(models.TaskStatusAssigned, updated.Status)
	suite.Nil(updated.StartTime)
	suite.Nil(updated.EndTime)
	suite.Nil(updated.IncompleteReason)

	events := suite.outbox()
	suite.Require().Len(events, 1)
	suite.ElementsMatch([]string{constants.RoomSupervisors, notify.UserRoom(suite.worker.ID), notify.UserRoom(suite.leader.ID)}, []string(events[0].Rooms))
}

func (suite *ServiceTestSuite) TestDeleteTask() {
	task := testutil.CreateTask(suite.T(), suite.db, "Empty bins", models.TaskStatusAssigned, suite.worker)

	suite.Require().NoError(suite.tasks.DeleteTask(suite.ctx, task.ID))
	suite.ErrorIs(suite.tasks.DeleteTask(suite.ctx, task.ID), ErrTaskNotFound)

	events := suite.outbox()
	suite.Require().Len(events, 1)
	suite.Equal(notify.EventTaskDeleted, events[0].Name)
	suite.JSONEq(`{"id":`+strconv.FormatUint(task.ID, 10)+`}`, string(events[0].Payload))
}

// Staff

func (suite *ServiceTestSuite) TestDeleteStaff_ReassignsOpenTasks() {
	assigned := testutil.CreateTask(suite.T(), suite.db, "a", models.TaskStatusAssigned, suite.worker)
	inProgress := testutil.CreateTask(suite.T(), suite.db, "b", models.TaskStatusInProgress, suite.worker)
	completed := testutil.CreateTask(suite.T(), suite.db, "c", models.TaskStatusCompleted, suite.worker)
	other := testutil.CreateTask(suite.T(), suite.db, "d", models.TaskStatusAssigned, suite.leader)

	result, err := suite.staff.DeleteStaff(suite.ctx, suite.worker.ID)
	suite.Require().NoError(err)
	suite.Equal(3, result.ReassignedTasks)
	suite.Equal(suite.worker.ID, result.DeletedStaff.ID)

	for _, id := range []uint64{assigned.ID, inProgress.ID} {
		task := suite.reload(id)
		suite.Nil(task.AssignedTo)
		suite.Equal(models.TaskStatusNeedsRescheduling, task.Status)
		suite.Require().NotNil(task.IncompleteReason)
		suite.Contains(*task.IncompleteReason, "Wren Worker")
	}
	done := suite.reload(completed.ID)
	suite.Nil(done.AssignedTo)
	suite.Equal(models.TaskStatusCompleted, done.Status)
	suite.NotNil(suite.reload(other.ID).AssignedTo)

	var count int64
	suite.db.Model(&models.User{}).Where("id = ?", suite.worker.ID).Count(&count)
	suite.Zero(count)

	events := suite.outbox()
	suite.Require().Len(events, 2)
	suite.Equal(notify.EventStaffDeleted, events[0].Name)
	suite.Equal(notify.EventTasksReassigned, events[1].Name)
	suite.Equal([]string{constants.RoomSupervisors}, []string(events[1].Rooms))
}

func (suite *ServiceTestSuite) TestDeleteStaff_NoTasksSkipsReassignedEvent() {
	result, err := suite.staff.DeleteStaff(suite.ctx, suite.worker.ID)
	suite.Require().NoError(err)
	suite.Zero(result.ReassignedTasks)
	suite.Equal("No tasks were assigned to this staff member", result.TaskDetails)
	events := suite.outbox()
	suite.Require().Len(events, 1)
	suite.Equal(notify.EventStaffDeleted, events[0].Name)

	_, err = suite.staff.DeleteStaff(suite.ctx, suite.worker.ID)
	suite.ErrorIs(err, ErrUserNotFound)
}

func (suite *ServiceTestSuite) TestDeleteStaff_RollsBackOnFailure() {
	assigned := testutil.CreateTask(suite.T(), suite.db, "a", models.TaskStatusAssigned, suite.worker)
	inProgress := testutil.CreateTask(suite.T(), suite.db, "b", models.TaskStatusInProgress, suite.worker)

	suite.Require().NoError(suite.db.Callback().Delete().Before("gorm:delete").Register("test:fail_user_delete", func(tx *gorm.DB) {
		if tx.Statement.Table == "users" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	_, err := suite.staff.DeleteStaff(suite.ctx, suite.worker.ID)
	suite.Require().Error(err)

	for id, status := range map[uint64]models.TaskStatus{assigned.ID: models.TaskStatusAssigned, inProgress.ID: models.TaskStatusInProgress} {
		task := suite.reload(id)
		suite.Equal(status, task.Status)
		suite.Require().NotNil(task.AssignedTo)
		suite.Equal(suite.worker.ID, *task.AssignedTo)
		suite.Nil(task.IncompleteReason)
	}

	_, err = suite.staff.GetStaff(suite.ctx, suite.worker.ID)
	suite.NoError(err)
	suite.Empty(suite.outbox())
}

func (suite *ServiceTestSuite) TestUpdateStaff() {
	_, err := suite.staff.UpdateStaff(suite.ctx, suite.worker.ID, StaffUpdateInput{Email: "leader@example.com", Name: "W", Role: models.RoleFieldStaff})
	suite.ErrorIs(err, ErrEmailTaken)

	updated, err := suite.staff.UpdateStaff(suite.ctx, suite.worker.ID, StaffUpdateInput{
		Email:    "wren@example.com",
		Name:     "Wren",
		Role:     models.RoleTeamLeader,
		CrewID:   testutil.Ptr("south"),
		Password: testutil.Ptr("a-new-password"),
	})
	suite.Require().NoError(err)
	suite.Equal(models.RoleTeamLeader, updated.Role)

	_, _, err = suite.auth.Login(suite.ctx, LoginInput{Email: "wren@example.com", Password: "a-new-password"})
	suite.NoError(err)

	events := suite.outbox()
	suite.Require().Len(events, 1)
	suite.Equal(notify.EventStaffUpdated, events[0].Name)
}

func (suite *ServiceTestSuite) TestListStaff_FieldStaffOnly() {
	testutil.CreateUser(suite.T(), suite.db, "abe@example.com", "Abe", models.RoleFieldStaff)

	staff, err := suite.staff.ListStaff(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(staff, 2)
	suite.Equal("Abe", staff[0].Name)
	suite.Equal("Wren Worker", staff[1].Name)
}

// Documents

func (suite *ServiceTestSuite) TestDocumentLifecycle() {
	doc, err := suite.risk.Create(suite.ctx, models.DocumentFields{Title: "Working at heights", Hazards: []string{"falls"}})
	suite.Require().NoError(err)
	suite.True(strings.HasPrefix(doc.DocumentCode, "RA-"))
	suite.Equal(models.ApprovalDraft, doc.ApprovalStatus)

	_, err = suite.risk.Upload(suite.ctx, doc.ID, suite.leader.ID, strings.NewReader("GIF89a not a pdf"))
	suite.ErrorIs(err, ErrNotPDF)

	_, err = suite.risk.Upload(suite.ctx, doc.ID, suite.leader.ID, bytes.NewReader(append([]byte("%PDF-1.4\n"), make([]byte, 2048)...)))
	suite.ErrorIs(err, storage.ErrTooLarge)

	first, err := suite.risk.Upload(suite.ctx, doc.ID, suite.leader.ID, strings.NewReader("%PDF-1.4 first"))
	suite.Require().NoError(err)
	second, err := suite.risk.Upload(suite.ctx, doc.ID, suite.leader.ID, strings.NewReader("%PDF-1.4 second"))
	suite.Require().NoError(err)
	_, statErr := os.Stat(first.Path)
	suite.True(os.IsNotExist(statErr))

	f, info, _, err := suite.risk.Open(suite.ctx, doc.ID)
	suite.Require().NoError(err)
	body, err := io.ReadAll(f)
	suite.Require().NoError(f.Close())
	suite.Require().NoError(err)
	suite.Equal("%PDF-1.4 second", string(body))
	suite.Equal(second.Size, info.Size())

	task := testutil.CreateTask(suite.T(), suite.db, "Gutter clean", models.TaskStatusAssigned, nil)
	suite.Require().NoError(suite.db.Model(task).Update("risk_assessment_id", doc.ID).Error)
	suite.ErrorIs(suite.risk.Delete(suite.ctx, doc.ID), ErrDocumentInUse)

	suite.Require().NoError(suite.db.Model(task).Update("risk_assessment_id", nil).Error)
	suite.Require().NoError(suite.risk.Delete(suite.ctx, doc.ID))
	_, statErr = os.Stat(second.Path)
	suite.True(os.IsNotExist(statErr))
	_, err = suite.risk.Get(suite.ctx, doc.ID)
	suite.ErrorIs(err, ErrDocumentNotFound)
}

func (suite *ServiceTestSuite) TestDocumentOpen_MissingFile() {
	doc := testutil.CreateRiskAssessment(suite.T(), suite.db, "No file yet")
	_, _, _, err := suite.risk.Open(suite.ctx, doc.ID)
	suite.ErrorIs(err, ErrDocumentFileMissing)

	file, err := suite.risk.Upload(suite.ctx, doc.ID, suite.leader.ID, strings.NewReader("%PDF-1.7"))
	suite.Require().NoError(err)
	suite.Equal(filepath.Join(suite.uploadDir, "risk_assessment"), filepath.Dir(file.Path))
	suite.Require().NoError(os.Remove(file.Path))

	_, _, _, err = suite.risk.Open(suite.ctx, doc.ID)
	suite.ErrorIs(err, ErrDocumentFileMissing)

	_, _, _, err = suite.risk.Open(suite.ctx, 999)
	suite.ErrorIs(err, ErrDocumentNotFound)
}

func (suite *ServiceTestSuite) TestDocumentUpdate_KeepsCode() {
	doc, err := suite.risk.Create(suite.ctx, models.DocumentFields{Title: "Chemical use", DocumentCode: "RA-CHEM-01"})
	suite.Require().NoError(err)

	updated, err := suite.risk.Update(suite.ctx, doc.ID, models.DocumentFields{Title: "Herbicide use", ApprovalStatus: models.ApprovalArchived})
	suite.Require().NoError(err)
	suite.Equal("RA-CHEM-01", updated.DocumentCode)
	suite.Equal(models.ApprovalArchived, updated.ApprovalStatus)

	_, err = suite.risk.Update(suite.ctx, doc.ID, models.DocumentFields{Title: "x", ApprovalStatus: "retired"})
	suite.ErrorIs(err, ErrInvalidApproval)
}

// Machinery

func (suite *ServiceTestSuite) TestMachineryUsageLifecycle() {
	mower, err := suite.machinery.Create(suite.ctx, EquipmentInput{Name: "Ride-on mower", Classification: "large_plant", CostCode: "CC-100"})
	suite.Require().NoError(err)
	suite.Equal(models.EquipmentAvailable, mower.Status)
	task := testutil.CreateTask(suite.T(), suite.db, "Mow", models.TaskStatusAssigned, suite.worker)

	usage, err := suite.machinery.RecordUsage(suite.ctx, task.ID, MachineryUsageInput{EquipmentID: mower.ID, HoursUsed: 2})
	suite.Require().NoError(err)
	suite.Equal("CC-100", usage.CostCode)

	current, err := suite.machinery.Get(suite.ctx, mower.ID)
	suite.Require().NoError(err)
	suite.Equal(models.EquipmentInUse, current.Status)

	returned, err := suite.machinery.ReturnUsage(suite.ctx, task.ID, usage.ID, testutil.Ptr(3.5))
	suite.Require().NoError(err)
	suite.NotNil(returned.ReturnedAt)
	suite.Equal(3.5, returned.HoursUsed)

	_, err = suite.machinery.ReturnUsage(suite.ctx, task.ID, usage.ID, nil)
	suite.ErrorIs(err, ErrUsageReturned)

	current, err = suite.machinery.Get(suite.ctx, mower.ID)
	suite.Require().NoError(err)
	suite.Equal(models.EquipmentAvailable, current.Status)

	rows, total, err := suite.machinery.History(suite.ctx, mower.ID, utils.PaginationParams{Page: 1, Limit: 50})
	suite.Require().NoError(err)
	suite.EqualValues(1, total)
	suite.Require().Len(rows, 1)
	suite.Equal(task.ID, rows[0].TaskID)
}

func (suite *ServiceTestSuite) TestReturnUsage_KeepsEquipmentInUseWhileStillBooked() {
	mower, err := suite.machinery.Create(suite.ctx, EquipmentInput{Name: "Ride-on mower"})
	suite.Require().NoError(err)
	taskA := testutil.CreateTask(suite.T(), suite.db, "Mow north oval", models.TaskStatusAssigned, suite.worker)
	taskB := testutil.CreateTask(suite.T(), suite.db, "Mow south oval", models.TaskStatusAssigned, suite.worker)

	usageA, err := suite.machinery.RecordUsage(suite.ctx, taskA.ID, MachineryUsageInput{EquipmentID: mower.ID})
	suite.Require().NoError(err)
	usageB, err := suite.machinery.RecordUsage(suite.ctx, taskB.ID, MachineryUsageInput{EquipmentID: mower.ID})
	suite.Require().NoError(err)

	_, err = suite.machinery.ReturnUsage(suite.ctx, taskA.ID, usageA.ID, nil)
	suite.Require().NoError(err)
	current, err := suite.machinery.Get(suite.ctx, mower.ID)
	suite.Require().NoError(err)
	suite.Equal(models.EquipmentInUse, current.Status)

	_, err = suite.machinery.ReturnUsage(suite.ctx, taskB.ID, usageB.ID, nil)
	suite.Require().NoError(err)
	current, err = suite.machinery.Get(suite.ctx, mower.ID)
	suite.Require().NoError(err)
	suite.Equal(models.EquipmentAvailable, current.Status)
}

func (suite *ServiceTestSuite) TestRecordUsage_RejectsMaintenance() {
	chipper, err := suite.machinery.Create(suite.ctx, EquipmentInput{Name: "Chipper", Status: models.EquipmentMaintenance})
	suite.Require().NoError(err)
	task := testutil.CreateTask(suite.T(), suite.db, "Chip branches", models.TaskStatusAssigned, suite.worker)

	_, err = suite.machinery.RecordUsage(suite.ctx, task.ID, MachineryUsageInput{EquipmentID: chipper.ID})
	suite.ErrorIs(err, ErrEquipmentUnavailable)

	_, err = suite.machinery.Create(suite.ctx, EquipmentInput{Name: "Blower", Status: "broken"})
	suite.ErrorIs(err, ErrInvalidEquipmentStatus)

	suite.ErrorIs(suite.machinery.Delete(suite.ctx, 999), ErrEquipmentNotFound)
}

// Dashboard

func (suite *ServiceTestSuite) TestDashboardStats_Today() {
	dashboard := NewDashboardService(suite.repos, time.UTC)
	dashboard.now = func() time.Time { return time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC) }

	today := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)
	for status, n := range map[models.TaskStatus]int{
		models.TaskStatusAssigned:          2,
		models.TaskStatusInProgress:        1,
		models.TaskStatusNeedsRescheduling: 1,
	} {
		for i := 0; i < n; i++ {
			task := testutil.CreateTask(suite.T(), suite.db, "t", status, suite.worker)
			suite.Require().NoError(suite.db.Model(task).Update("scheduled_date", today).Error)
		}
	}
	later := testutil.CreateTask(suite.T(), suite.db, "later", models.TaskStatusCompleted, suite.worker)
	suite.Require().NoError(suite.db.Model(later).Update("scheduled_date", tomorrow).Error)

	stats, err := dashboard.Stats(suite.ctx)
	suite.Require().NoError(err)
	suite.EqualValues(2, stats.Pending)
	suite.EqualValues(1, stats.InProgress)
	suite.EqualValues(0, stats.Completed)
	suite.EqualValues(1, stats.NeedsRescheduling)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}
