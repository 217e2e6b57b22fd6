package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/parks-gardens/fieldops-api/internal/dto"
	apierrors "github.com/parks-gardens/fieldops-api/internal/errors"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/parks-gardens/fieldops-api/internal/services"
)

type StaffHandler struct {
	staffService *services.StaffService
}

func NewStaffHandler(staffService *services.StaffService) *StaffHandler {
	return &StaffHandler{staffService: staffService}
}

// ListStaff returns field staff ordered by name
func (h *StaffHandler) ListStaff(c *gin.Context) {
	users, err := h.staffService.ListStaff(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTOs(users))
}

// ListUsers returns every user ordered by role then name
func (h *StaffHandler) ListUsers(c *gin.Context) {
	users, err := h.staffService.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTOs(users))
}

// GetStaff returns one staff member
func (h *StaffHandler) GetStaff(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.staffService.GetStaff(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// UpdateStaff changes a staff member's details, optionally resetting the password
func (h *StaffHandler) UpdateStaff(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type UpdateStaffRequest struct {
		Email    string          `json:"email" binding:"required"`
		Name     string          `json:"name" binding:"required"`
		Role     models.UserRole `json:"role" binding:"required"`
		CrewID   *string         `json:"crew_id"`
		Phone    *string         `json:"phone"`
		Password *string         `json:"password"`
	}

	var req UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Email, name and role are required")
		return
	}

	user, err := h.staffService.UpdateStaff(c.Request.Context(), id, services.StaffUpdateInput{
		Email:    req.Email,
		Name:     req.Name,
		Role:     req.Role,
		CrewID:   req.CrewID,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// UpdateProfile lets the caller change their own name, phone and password
func (h *StaffHandler) UpdateProfile(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	type ProfileRequest struct {
		Name     string  `json:"name" binding:"required"`
		Phone    *string `json:"phone"`
		Password *string `json:"password"`
	}

	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Name is required")
		return
	}

	user, err := h.staffService.UpdateProfile(c.Request.Context(), userID, services.ProfileUpdateInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// DeleteStaff offboards a staff member, unassigning their tasks
func (h *StaffHandler) DeleteStaff(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	if userID == id {
		apierrors.BadRequest(c, "You cannot delete your own account")
		return
	}

	result, err := h.staffService.DeleteStaff(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
