// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"testing"

	"github.com/parks-gardens/fieldops-api/internal/database"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database and installs it as the
// package-level handle. A single connection keeps every query on the same
// in-memory database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.AllModels()...))
	database.SetDB(db)
	return db
}

// CreateUser inserts a user whose password is "password123".
func CreateUser(t testing.TB, db *gorm.DB, email, name string, role models.UserRole) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{Email: email, Name: name, Role: role, PasswordHash: string(hash)}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTask inserts a task with the given status, optionally assigned.
func CreateTask(t testing.TB, db *gorm.DB, title string, status models.TaskStatus, assignee *models.User) *models.Task {
	t.Helper()

	task := &models.Task{Title: title, Status: status, Priority: models.PriorityMedium}
	if assignee != nil {
		task.AssignedTo = &assignee.ID
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

// CreateRiskAssessment inserts an approved risk assessment.
func CreateRiskAssessment(t testing.TB, db *gorm.DB, title string) *models.RiskAssessment {
	t.Helper()

	doc := &models.RiskAssessment{Title: title, ApprovalStatus: models.ApprovalApproved}
	require.NoError(t, db.Create(doc).Error)
	return doc
}

// CreateSWMS inserts an approved SWMS.
func CreateSWMS(t testing.TB, db *gorm.DB, title string) *models.SWMSDocument {
	t.Helper()

	doc := &models.SWMSDocument{Title: title, ApprovalStatus: models.ApprovalApproved}
	require.NoError(t, db.Create(doc).Error)
	return doc
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
