package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"clinic-appointments-server/internal/apperrors"
	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/observability"
	"clinic-appointments-server/internal/repository"
)

const maxReasonLength = 200

// BookingRequest is a new appointment as submitted by a patient or by staff
// on a patient's behalf.
type BookingRequest struct {
	// PatientID is required when the actor is staff and must match the
	// actor when the actor is a patient.
	PatientID   string
	DoctorID    string
	ScheduledAt time.Time
	Reason      string
	Description string

	// Priority defaults to normal.
	Priority models.Priority

	// Fee overrides the doctor's consultation fee; staff only.
	Fee *decimal.Decimal

	PatientPhone        string
	PatientEmail        string
	PatientHistoryNotes string
}

// AppointmentIntake validates and records new appointment requests. Every
// appointment it creates starts pending.
type AppointmentIntake struct {
	appointments repository.AppointmentRepository
	doctors      repository.DoctorRepository
	patients     repository.PatientDirectory
	registry     *ScheduleRegistry
	fees         FeeResolver
	settings     Settings
}

func NewAppointmentIntake(
	appointments repository.AppointmentRepository,
	doctors repository.DoctorRepository,
	patients repository.PatientDirectory,
	registry *ScheduleRegistry,
	settings Settings,
) *AppointmentIntake {
	return &AppointmentIntake{
		appointments: appointments,
		doctors:      doctors,
		patients:     patients,
		registry:     registry,
		settings:     settings,
	}
}

// CreateRequest checks the doctor, the requested time and the doctor's
// window for that weekday, then stores a pending appointment with a fee
// snapshot.
func (s *AppointmentIntake) CreateRequest(ctx context.Context, actor models.Principal, req BookingRequest) (appt *models.Appointment, err error) {
	defer func() { s.settings.Metrics.ObserveBooking(outcome(err)) }()
	logger := observability.LoggerFromContext(ctx)

	patientID, err := s.resolvePatient(ctx, actor, req.PatientID)
	if err != nil {
		return nil, err
	}
	if req.Fee != nil {
		if !actor.IsStaff() {
			return nil, apperrors.Authorization("only clinic staff may set an explicit fee")
		}
		if req.Fee.IsNegative() {
			return nil, apperrors.Validation(apperrors.ReasonInvalidInput, "fee must not be negative")
		}
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	if !priority.Valid() {
		return nil, apperrors.Validation(apperrors.ReasonInvalidInput, "priority must be one of low, normal, high, urgent")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, apperrors.Validation(apperrors.ReasonInvalidInput, "reason is required")
	}
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, apperrors.Validation(apperrors.ReasonInvalidInput, "reason must be at most 200 characters")
	}

	var doctor *models.Doctor
	if err := s.settings.retry(ctx, func() error {
		var getErr error
		doctor, getErr = s.doctors.GetByID(ctx, req.DoctorID)
		return getErr
	}); err != nil {
		return nil, err
	}
	if !doctor.IsAvailable {
		return nil, apperrors.Validation(apperrors.ReasonDoctorUnavailable, "doctor is not accepting appointments")
	}

	now := s.settings.now()
	if !req.ScheduledAt.After(now) {
		return nil, apperrors.Validation(apperrors.ReasonPastDate, "scheduledAt must be in the future")
	}

	if s.settings.EnforceWindows {
		if err := s.checkWindow(ctx, doctor.ID, req.ScheduledAt); err != nil {
			return nil, err
		}
	}

	appt = &models.Appointment{
		PatientID:           patientID,
		DoctorID:            doctor.ID,
		ScheduledAt:         req.ScheduledAt.UTC(),
		Reason:              reason,
		Description:         req.Description,
		Priority:            priority,
		Status:              models.StatusPending,
		Fee:                 s.fees.Resolve(req.Fee, doctor),
		PatientPhone:        req.PatientPhone,
		PatientEmail:        req.PatientEmail,
		PatientHistoryNotes: req.PatientHistoryNotes,
	}
	appt.CreatedAt = now
	appt.UpdatedAt = now

	if err := s.settings.retry(ctx, func() error {
		return s.appointments.Create(ctx, appt)
	}); err != nil {
		logger.Error().Err(err).Str("doctor_id", doctor.ID).Msg("failed to store appointment request")
		return nil, err
	}

	logger.Info().
		Str("appointment_id", appt.ID).
		Str("patient_id", patientID).
		Str("doctor_id", doctor.ID).
		Time("scheduled_at", appt.ScheduledAt).
		Str("fee", appt.Fee.StringFixed(2)).
		Msg("appointment requested")
	return appt, nil
}

func (s *AppointmentIntake) resolvePatient(ctx context.Context, actor models.Principal, requested string) (string, error) {
	switch {
	case actor.Role == models.RolePatient:
		if requested != "" && requested != actor.ID {
			return "", apperrors.Authorization("patients may only book for themselves")
		}
		return actor.ID, nil
	case actor.IsStaff():
		if requested == "" {
			return "", apperrors.Validation(apperrors.ReasonInvalidInput, "patientId is required when booking on behalf of a patient")
		}
		var ok bool
		if err := s.settings.retry(ctx, func() error {
			var lookupErr error
			ok, lookupErr = s.patients.IsPatient(ctx, requested)
			return lookupErr
		}); err != nil {
			return "", err
		}
		if !ok {
			return "", apperrors.NotFound("patient not found")
		}
		return requested, nil
	default:
		return "", apperrors.Authorization("role may not book appointments")
	}
}

// checkWindow rejects times outside the weekday's window. A weekday without
// a window is unrestricted; a window marked unavailable blocks the whole day.
func (s *AppointmentIntake) checkWindow(ctx context.Context, doctorID string, at time.Time) error {
	local := at.In(s.settings.location())
	window, found, err := s.registry.WindowFor(ctx, doctorID, models.DayOfWeekFrom(local.Weekday()))
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if !window.Covers(models.TimeOfDayOf(local)) {
		return apperrors.Validation(apperrors.ReasonOutsideAvailability, "requested time is outside the doctor's availability")
	}
	return nil
}
