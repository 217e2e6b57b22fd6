package middleware

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/parks-gardens/fieldops-api/internal/constants"
	"github.com/parks-gardens/fieldops-api/internal/database"
	apierrors "github.com/parks-gardens/fieldops-api/internal/errors"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"gorm.io/gorm"
)

// RequireTaskAccess checks if the user has access to a task.
// Supervisors see every task; field staff only tasks assigned to them.
func RequireTaskAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get task ID from URL parameter
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.TokenMissing(c)
			return
		}
		role, _ := GetUserRole(c)

		var task models.Task
		if err := database.GetDB().
			WithContext(c.Request.Context()).
			Preload("Assignee").
			Preload("RiskAssessment").
			Preload("SWMS").
			First(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				apierrors.NotFound(c, "Task not found")
				return
			}
			slog.ErrorContext(c.Request.Context(), "load task for access check", "task_id", taskID, "error", err)
			_ = c.Error(err)
			apierrors.InternalError(c)
			return
		}

		if !role.Supervisory() && (task.AssignedTo == nil || *task.AssignedTo != userID) {
			// Return 404 instead of 403 to avoid leaking task existence
			apierrors.NotFound(c, "Task not found")
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

// GetTask retrieves the task loaded by RequireTaskAccess
func GetTask(c *gin.Context) (models.Task, bool) {
	v, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return models.Task{}, false
	}
	task, ok := v.(models.Task)
	return task, ok
}
