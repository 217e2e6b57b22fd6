package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/parks-gardens/fieldops-api/internal/constants"
	"github.com/parks-gardens/fieldops-api/internal/dto"
	apierrors "github.com/parks-gardens/fieldops-api/internal/errors"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/parks-gardens/fieldops-api/internal/repository"
	"github.com/parks-gardens/fieldops-api/internal/services"
	"github.com/parks-gardens/fieldops-api/internal/utils"
)

type MachineryHandler struct {
	machineryService *services.MachineryService
}

func NewMachineryHandler(machineryService *services.MachineryService) *MachineryHandler {
	return &MachineryHandler{machineryService: machineryService}
}

type equipmentRequest struct {
	Name           string                 `json:"name"`
	Type           string                 `json:"type"`
	Classification string                 `json:"classification"`
	Category       string                 `json:"category"`
	Manufacturer   string                 `json:"manufacturer"`
	Model          string                 `json:"model"`
	AssetNumber    string                 `json:"asset_number"`
	CostCode       string                 `json:"cost_code"`
	HourlyRate     float64                `json:"hourly_rate"`
	Status         models.EquipmentStatus `json:"status"`
	Location       string                 `json:"location"`
	Notes          string                 `json:"notes"`
}

func (r equipmentRequest) input() services.EquipmentInput {
	return services.EquipmentInput{
		Name:           r.Name,
		Type:           r.Type,
		Classification: r.Classification,
		Category:       r.Category,
		Manufacturer:   r.Manufacturer,
		Model:          r.Model,
		AssetNumber:    r.AssetNumber,
		CostCode:       r.CostCode,
		HourlyRate:     r.HourlyRate,
		Status:         r.Status,
		Location:       r.Location,
		Notes:          r.Notes,
	}
}

// ListMachinery returns equipment with usage totals
func (h *MachineryHandler) ListMachinery(c *gin.Context) {
	items, err := h.machineryService.List(c.Request.Context(), repository.EquipmentFilter{
		Classification: c.Query("classification"),
		Status:         c.Query("status"),
		Category:       c.Query("category"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// GetHistory returns a page of the tasks the equipment was used on
func (h *MachineryHandler) GetHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	params := utils.GetPaginationParamsWithDefault(c, constants.DefaultHistoryLimit)
	rows, total, err := h.machineryService.History(c.Request.Context(), id, params)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MachineryHistoryResponse{
		History: rows,
		Pagination: utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// CreateMachinery adds equipment
func (h *MachineryHandler) CreateMachinery(c *gin.Context) {
	var req equipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	equipment, err := h.machineryService.Create(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, equipment)
}

// UpdateMachinery replaces equipment fields
func (h *MachineryHandler) UpdateMachinery(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req equipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	equipment, err := h.machineryService.Update(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, equipment)
}

// DeleteMachinery removes equipment
func (h *MachineryHandler) DeleteMachinery(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.machineryService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Machinery deleted successfully", "id": id})
}

// RecordUsage books equipment out to a task
func (h *MachineryHandler) RecordUsage(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type UsageRequest struct {
		EquipmentID    uint64  `json:"equipment_id" binding:"required"`
		HoursUsed      float64 `json:"hours_used"`
		Notes          string  `json:"notes"`
		CostCode       string  `json:"cost_code"`
		DepartmentCode string  `json:"department_code"`
		ProjectCode    string  `json:"project_code"`
	}

	var req UsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "equipment_id is required")
		return
	}

	usage, err := h.machineryService.RecordUsage(c.Request.Context(), taskID, services.MachineryUsageInput{
		EquipmentID:    req.EquipmentID,
		HoursUsed:      req.HoursUsed,
		Notes:          req.Notes,
		CostCode:       req.CostCode,
		DepartmentCode: req.DepartmentCode,
		ProjectCode:    req.ProjectCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, usage)
}

// ReturnUsage marks booked equipment as returned
func (h *MachineryHandler) ReturnUsage(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	usageID, ok := parseIDParam(c, "usage_id")
	if !ok {
		return
	}

	type ReturnRequest struct {
		HoursUsed *float64 `json:"hours_used"`
	}

	var req ReturnRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}
	}

	usage, err := h.machineryService.ReturnUsage(c.Request.Context(), taskID, usageID, req.HoursUsed)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, usage)
}
