package services

import (
	"context"
	"fmt"
	"strings"

	"clinic-appointments-server/internal/apperrors"
	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/repository"
)

// FilterSpec is the optional refinement of a scoped listing.
type FilterSpec struct {
	Status   models.AppointmentStatus
	Priority models.Priority
	Text     string
}

// ParseFilterSpec validates raw query values; empty values mean no filter.
func ParseFilterSpec(status, priority, text string) (FilterSpec, error) {
	spec := FilterSpec{
		Status:   models.AppointmentStatus(strings.ToLower(strings.TrimSpace(status))),
		Priority: models.Priority(strings.ToLower(strings.TrimSpace(priority))),
		Text:     strings.TrimSpace(text),
	}
	if spec.Status != "" && !spec.Status.Valid() {
		return FilterSpec{}, apperrors.Validation(apperrors.ReasonInvalidInput, fmt.Sprintf("unknown status %q", status))
	}
	if spec.Priority != "" && !spec.Priority.Valid() {
		return FilterSpec{}, apperrors.Validation(apperrors.ReasonInvalidInput, fmt.Sprintf("unknown priority %q", priority))
	}
	return spec, nil
}

// VisibilityScoper computes the role-scoped view of appointments.
type VisibilityScoper struct{}

// Scope returns the base predicate for the requester. Unknown roles see
// nothing.
func (VisibilityScoper) Scope(requester models.Principal) []repository.Filter {
	switch requester.Role {
	case models.RolePatient:
		return []repository.Filter{repository.PatientIs{ID: requester.ID}}
	case models.RoleDoctor:
		return []repository.Filter{repository.DoctorIs{ID: requester.ID}}
	case models.RoleAdmin:
		return []repository.Filter{}
	default:
		return []repository.Filter{repository.MatchNone{}}
	}
}

// ApplyFilters ANDs the spec's filters onto base.
func (VisibilityScoper) ApplyFilters(base []repository.Filter, spec FilterSpec) []repository.Filter {
	out := make([]repository.Filter, 0, len(base)+3)
	out = append(out, base...)
	if spec.Status != "" {
		out = append(out, repository.StatusEquals{Status: spec.Status})
	}
	if spec.Priority != "" {
		out = append(out, repository.PriorityEquals{Priority: spec.Priority})
	}
	if spec.Text != "" {
		out = append(out, repository.TextContains{Text: spec.Text})
	}
	return out
}

// AppointmentQueries serves scoped reads.
type AppointmentQueries struct {
	appointments repository.AppointmentRepository
	doctors      repository.DoctorRepository
	scoper       VisibilityScoper
	settings     Settings
}

func NewAppointmentQueries(appointments repository.AppointmentRepository, doctors repository.DoctorRepository, settings Settings) *AppointmentQueries {
	return &AppointmentQueries{appointments: appointments, doctors: doctors, settings: settings}
}

// List returns the requester's scoped, filtered appointments, newest first.
func (q *AppointmentQueries) List(ctx context.Context, requester models.Principal, spec FilterSpec) ([]models.Appointment, error) {
	return q.query(ctx, q.scoper.ApplyFilters(q.scoper.Scope(requester), spec))
}

// Get returns the appointment if it lies inside the requester's scope.
// Appointments outside the scope are reported as missing.
func (q *AppointmentQueries) Get(ctx context.Context, requester models.Principal, id string) (*models.Appointment, error) {
	var appt *models.Appointment
	if err := q.settings.retry(ctx, func() error {
		var err error
		appt, err = q.appointments.GetByID(ctx, id)
		return err
	}); err != nil {
		return nil, err
	}
	if !repository.MatchesAll(q.scoper.Scope(requester), appt) {
		return nil, apperrors.NotFound("appointment not found")
	}
	return appt, nil
}

func (q *AppointmentQueries) query(ctx context.Context, filters []repository.Filter) ([]models.Appointment, error) {
	var out []models.Appointment
	err := q.settings.retry(ctx, func() error {
		var err error
		out, err = q.appointments.Query(ctx, filters)
		return err
	})
	return out, err
}
