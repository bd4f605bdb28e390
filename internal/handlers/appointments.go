package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"clinic-appointments-server/internal/middleware"
	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/services"
	"clinic-appointments-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Intake    *services.AppointmentIntake
	Lifecycle *services.LifecycleManager
	Queries   *services.AppointmentQueries
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(intake *services.AppointmentIntake, lifecycle *services.LifecycleManager, queries *services.AppointmentQueries) *AppointmentHandler {
	return &AppointmentHandler{Intake: intake, Lifecycle: lifecycle, Queries: queries}
}

// CreateAppointmentRequest represents the request body for creating an appointment.
type CreateAppointmentRequest struct {
	// PatientID is required when a doctor or admin books on a patient's behalf.
	PatientID           string           `json:"patientId" binding:"omitempty,uuid"`
	DoctorID            string           `json:"doctorId" binding:"required"`
	ScheduledAt         time.Time        `json:"scheduledAt" binding:"required"`
	Reason              string           `json:"reason" binding:"required,max=200"`
	Description         string           `json:"description"`
	Priority            string           `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
	Fee                 *decimal.Decimal `json:"fee"`
	PatientPhone        string           `json:"patientPhone" binding:"omitempty,max=17"`
	PatientEmail        string           `json:"patientEmail" binding:"omitempty,email"`
	PatientHistoryNotes string           `json:"patientHistoryNotes"`
}

// CreateAppointment books a pending appointment.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Intake.CreateRequest(c.Request.Context(), principal, services.BookingRequest{
		PatientID:           req.PatientID,
		DoctorID:            req.DoctorID,
		ScheduledAt:         req.ScheduledAt,
		Reason:              req.Reason,
		Description:         req.Description,
		Priority:            models.Priority(req.Priority),
		Fee:                 req.Fee,
		PatientPhone:        req.PatientPhone,
		PatientEmail:        req.PatientEmail,
		PatientHistoryNotes: req.PatientHistoryNotes,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Created(c, "Appointment requested successfully", appt)
}

// GetAppointments lists the caller's scoped appointments.
// Query: status, priority, search.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	spec, err := services.ParseFilterSpec(c.Query("status"), c.Query("priority"), c.Query("search"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	appts, err := h.Queries.List(c.Request.Context(), principal, spec)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Appointments fetched successfully", appts)
}

// GetAppointmentByID returns one appointment inside the caller's scope.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	appt, err := h.Queries.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Appointment fetched successfully", appt)
}

// GetAppointmentStats counts the caller's scoped appointments.
func (h *AppointmentHandler) GetAppointmentStats(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	stats, err := h.Queries.Stats(c.Request.Context(), principal)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Appointment stats fetched successfully", stats)
}

// RejectAppointmentRequest carries the mandatory rejection reason.
type RejectAppointmentRequest struct {
	Reason string `json:"reason"`
}

// UpdateAppointmentStatusRequest represents the request body for a status change.
type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

func (h *AppointmentHandler) ConfirmAppointment(c *gin.Context) {
	h.transition(c, models.StatusConfirmed, "", "Appointment confirmed")
}

func (h *AppointmentHandler) RejectAppointment(c *gin.Context) {
	var req RejectAppointmentRequest
	// A missing body is reported by the lifecycle as a missing reason.
	if c.Request.ContentLength != 0 && !utils.BindAndValidate(c, &req) {
		return
	}
	h.transition(c, models.StatusRejected, req.Reason, "Appointment rejected")
}

func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	h.transition(c, models.StatusCancelled, "", "Appointment cancelled")
}

func (h *AppointmentHandler) CompleteAppointment(c *gin.Context) {
	h.transition(c, models.StatusCompleted, "", "Appointment completed")
}

func (h *AppointmentHandler) MarkNoShow(c *gin.Context) {
	h.transition(c, models.StatusNoShow, "", "Appointment marked as no-show")
}

// UpdateAppointmentStatus moves an appointment to any status the caller may request.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	h.transition(c, models.AppointmentStatus(req.Status), req.Reason, "Appointment status updated successfully")
}

func (h *AppointmentHandler) transition(c *gin.Context, target models.AppointmentStatus, reason, message string) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	appt, err := h.Lifecycle.Transition(c.Request.Context(), principal, c.Param("id"), target, reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, message, appt)
}

func requirePrincipal(c *gin.Context) (models.Principal, bool) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return models.Principal{}, false
	}
	return principal, true
}
