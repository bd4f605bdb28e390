package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"clinic-appointments-server/internal/apperrors"
	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/services"
	"clinic-appointments-server/internal/utils"
)

// DoctorHandler serves the doctor directory, weekly schedules and dashboards.
type DoctorHandler struct {
	Directory *services.DoctorDirectory
	Registry  *services.ScheduleRegistry
	Queries   *services.AppointmentQueries
}

func NewDoctorHandler(directory *services.DoctorDirectory, registry *services.ScheduleRegistry, queries *services.AppointmentQueries) *DoctorHandler {
	return &DoctorHandler{Directory: directory, Registry: registry, Queries: queries}
}

// GetDoctors lists doctors. Query: specialty, available=true|false.
func (h *DoctorHandler) GetDoctors(c *gin.Context) {
	filter := models.DoctorFilter{Specialty: c.Query("specialty")}
	if raw := c.Query("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			utils.BadRequest(c, "available must be true or false")
			return
		}
		filter.AvailableOnly = available
	}

	doctors, err := h.Directory.List(c.Request.Context(), filter)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Doctors fetched successfully", doctors)
}

// GetSpecialties lists distinct specialties with doctor counts.
func (h *DoctorHandler) GetSpecialties(c *gin.Context) {
	specialties, err := h.Directory.Specialties(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Specialties fetched successfully", specialties)
}

func (h *DoctorHandler) GetDoctorByID(c *gin.Context) {
	doctor, err := h.Directory.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Doctor fetched successfully", doctor)
}

// UpdateDoctorRequest represents the request body for updating a doctor profile.
type UpdateDoctorRequest struct {
	ConsultationFee *decimal.Decimal `json:"consultationFee"`
	IsAvailable     *bool            `json:"isAvailable"`
}

func (h *DoctorHandler) UpdateDoctor(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req UpdateDoctorRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	doctor, err := h.Directory.UpdateProfile(c.Request.Context(), principal, c.Param("id"), models.DoctorProfileUpdate{
		ConsultationFee: req.ConsultationFee,
		IsAvailable:     req.IsAvailable,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Doctor updated successfully", doctor)
}

// GetSchedule returns the doctor's weekly windows, Monday first.
func (h *DoctorHandler) GetSchedule(c *gin.Context) {
	windows, err := h.Registry.GetWindows(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Schedule fetched successfully", windows)
}

// UpsertScheduleRequest represents one weekly window.
type UpsertScheduleRequest struct {
	DayOfWeek   string `json:"dayOfWeek" binding:"required"`
	StartTime   string `json:"startTime" binding:"required"`
	EndTime     string `json:"endTime" binding:"required"`
	IsAvailable *bool  `json:"isAvailable"`
}

// UpsertSchedule creates or replaces the window for one weekday.
func (h *DoctorHandler) UpsertSchedule(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req UpsertScheduleRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	day, valid := models.ParseDayOfWeek(req.DayOfWeek)
	if !valid {
		utils.RespondError(c, apperrors.Validation(apperrors.ReasonInvalidWindow, "dayOfWeek must be monday..sunday"))
		return
	}
	start, err := models.ParseTimeOfDay(req.StartTime)
	if err != nil {
		utils.RespondError(c, apperrors.Validation(apperrors.ReasonInvalidWindow, err.Error()))
		return
	}
	end, err := models.ParseTimeOfDay(req.EndTime)
	if err != nil {
		utils.RespondError(c, apperrors.Validation(apperrors.ReasonInvalidWindow, err.Error()))
		return
	}
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	window, err := h.Registry.UpsertWindow(c.Request.Context(), principal, c.Param("id"), services.WindowInput{
		DayOfWeek:   day,
		StartTime:   start,
		EndTime:     end,
		IsAvailable: available,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Schedule updated successfully", window)
}

// GetDoctorStats returns the doctor dashboard counters.
func (h *DoctorHandler) GetDoctorStats(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	stats, err := h.Queries.DoctorDashboard(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Doctor stats fetched successfully", stats)
}
