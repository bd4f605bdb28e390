package services

import (
	"context"
	"fmt"
	"strings"

	"clinic-appointments-server/internal/apperrors"
	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/observability"
	"clinic-appointments-server/internal/repository"
)

// LifecycleManager walks appointments through the status graph. Each
// transition is a single compare-and-set against the status it was
// authorised from, so concurrent transitions resolve to exactly one winner.
type LifecycleManager struct {
	appointments repository.AppointmentRepository
	settings     Settings
}

func NewLifecycleManager(appointments repository.AppointmentRepository, settings Settings) *LifecycleManager {
	return &LifecycleManager{appointments: appointments, settings: settings}
}

// Transition moves the appointment to target on behalf of actor. reason is
// required when rejecting and ignored otherwise.
func (m *LifecycleManager) Transition(ctx context.Context, actor models.Principal, appointmentID string, target models.AppointmentStatus, reason string) (appt *models.Appointment, err error) {
	defer func() { m.settings.Metrics.ObserveTransition(string(target), outcome(err)) }()
	logger := observability.LoggerFromContext(ctx)

	if !target.Valid() {
		return nil, apperrors.Validation(apperrors.ReasonInvalidInput, fmt.Sprintf("unknown status %q", target))
	}

	var current *models.Appointment
	if err := m.settings.retry(ctx, func() error {
		var getErr error
		current, getErr = m.appointments.GetByID(ctx, appointmentID)
		return getErr
	}); err != nil {
		return nil, err
	}

	if err := authorizeParty(actor, current); err != nil {
		return nil, err
	}
	who := models.ActorFor(actor.Role)
	if !models.MayRequest(who, target) {
		return nil, apperrors.Authorization(fmt.Sprintf("%s may not move appointments to %s", actor.Role, target))
	}
	if !models.HasEdge(current.Status, target) {
		return nil, apperrors.InvalidTransition(fmt.Sprintf("cannot move appointment from %s to %s", current.Status, target))
	}
	if !models.Allowed(who, current.Status, target) {
		return nil, apperrors.Authorization(fmt.Sprintf("%s may not move appointment from %s to %s", actor.Role, current.Status, target))
	}

	now := m.settings.now()
	change := models.StatusChange{To: target, At: now}
	switch target {
	case models.StatusConfirmed:
		change.ConfirmedAt = &now
	case models.StatusRejected:
		trimmed := strings.TrimSpace(reason)
		if trimmed == "" {
			return nil, apperrors.Validation(apperrors.ReasonMissingReason, "a rejection reason is required")
		}
		change.RejectedAt = &now
		change.RejectionReason = &trimmed
	}

	err = m.settings.retry(ctx, func() error {
		var casErr error
		appt, casErr = m.appointments.CompareAndSwapStatus(ctx, current.ID, current.Status, change)
		return casErr
	})
	if err != nil {
		logger.Warn().Err(err).
			Str("appointment_id", current.ID).
			Str("from", string(current.Status)).
			Str("to", string(target)).
			Msg("appointment transition not applied")
		return nil, err
	}

	logger.Info().
		Str("appointment_id", appt.ID).
		Str("actor_id", actor.ID).
		Str("actor_role", string(actor.Role)).
		Str("from", string(current.Status)).
		Str("to", string(target)).
		Msg("appointment transitioned")
	return appt, nil
}

func (m *LifecycleManager) Confirm(ctx context.Context, actor models.Principal, id string) (*models.Appointment, error) {
	return m.Transition(ctx, actor, id, models.StatusConfirmed, "")
}

func (m *LifecycleManager) Reject(ctx context.Context, actor models.Principal, id, reason string) (*models.Appointment, error) {
	return m.Transition(ctx, actor, id, models.StatusRejected, reason)
}

func (m *LifecycleManager) Cancel(ctx context.Context, actor models.Principal, id string) (*models.Appointment, error) {
	return m.Transition(ctx, actor, id, models.StatusCancelled, "")
}

func (m *LifecycleManager) Complete(ctx context.Context, actor models.Principal, id string) (*models.Appointment, error) {
	return m.Transition(ctx, actor, id, models.StatusCompleted, "")
}

func (m *LifecycleManager) MarkNoShow(ctx context.Context, actor models.Principal, id string) (*models.Appointment, error) {
	return m.Transition(ctx, actor, id, models.StatusNoShow, "")
}

// authorizeParty requires the actor to be the appointment's patient, its
// doctor, or an admin.
func authorizeParty(actor models.Principal, a *models.Appointment) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RolePatient:
		if a.PatientID == actor.ID {
			return nil
		}
	case models.RoleDoctor:
		if a.DoctorID == actor.ID {
			return nil
		}
	}
	return apperrors.Authorization("not a party to this appointment")
}
