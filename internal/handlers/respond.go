package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/parks-gardens/fieldops-api/internal/constants"
	apierrors "github.com/parks-gardens/fieldops-api/internal/errors"
	"github.com/parks-gardens/fieldops-api/internal/middleware"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/parks-gardens/fieldops-api/internal/safety"
	"github.com/parks-gardens/fieldops-api/internal/services"
	"github.com/parks-gardens/fieldops-api/internal/storage"
)

// respondError maps a service error onto the API error envelope. Anything
// unrecognised is logged and reported as a generic server error.
func respondError(c *gin.Context, err error) {
	var missing *services.MissingAcknowledgmentsError

	switch {
	case errors.As(err, &missing):
		apierrors.AcknowledgmentRequired(c, "Acknowledge every attached safety document before starting", missing.Missing)
	case errors.Is(err, models.ErrInvalidTransition):
		apierrors.InvalidTransition(c, err.Error())

	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c)
	case errors.Is(err, services.ErrEmailTaken):
		apierrors.AlreadyExists(c, "Email already exists")
	case errors.Is(err, services.ErrRoleNotAllowed):
		apierrors.Forbidden(c, "Self-registration is limited to field staff")
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))

	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, "Staff member not found")
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrDocumentNotFound):
		apierrors.NotFound(c, "Document not found")
	case errors.Is(err, services.ErrDocumentFileMissing):
		apierrors.NotFound(c, "File not found")
	case errors.Is(err, services.ErrEquipmentNotFound):
		apierrors.NotFound(c, "Machinery not found")
	case errors.Is(err, services.ErrUsageNotFound):
		apierrors.NotFound(c, "Machinery usage not found")

	case errors.Is(err, services.ErrDocumentInUse),
		errors.Is(err, services.ErrEquipmentUnavailable),
		errors.Is(err, services.ErrUsageReturned):
		apierrors.Conflict(c, err.Error())

	case errors.Is(err, services.ErrNotPDF):
		apierrors.UnsupportedMediaType(c, "Only PDF files are allowed")
	case errors.Is(err, storage.ErrTooLarge):
		apierrors.PayloadTooLarge(c, "File exceeds the upload size limit")

	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, "AI task drafting is not configured")

	case errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrNameRequired),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleTooLong),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidDate),
		errors.Is(err, services.ErrInvalidJSON),
		errors.Is(err, services.ErrAssigneeNotFound),
		errors.Is(err, services.ErrDocumentArchived),
		errors.Is(err, services.ErrReasonRequired),
		errors.Is(err, services.ErrInvalidApproval),
		errors.Is(err, services.ErrInvalidEquipmentStatus),
		errors.Is(err, services.ErrInvalidHours),
		errors.Is(err, services.ErrAINoTasksGenerated),
		errors.Is(err, services.ErrAINoValidTasks),
		errors.Is(err, safety.ErrDocumentNotAttached):
		apierrors.BadRequest(c, err.Error())

	default:
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		_ = c.Error(err)
		apierrors.InternalError(c)
	}
}

// parseIDParam reads a positive integer path parameter, answering 400
// itself when it is malformed.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// currentUser returns the authenticated caller, answering 401 when the
// auth middleware did not run.
func currentUser(c *gin.Context) (uint64, models.UserRole, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.TokenMissing(c)
		return 0, "", false
	}
	role, _ := middleware.GetUserRole(c)
	return userID, role, true
}
