package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-appointments-server/internal/apperrors"
	"clinic-appointments-server/internal/models"
)

func TestConfirmSetsConfirmedAtAndIsNotIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, patientID, tomorrowAt(10, 0))

	confirmed, err := f.lifecycle.Confirm(ctx, models.DoctorPrincipal(doctorID), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	assert.True(t, fixedNow.Equal(*confirmed.ConfirmedAt))
	assert.Nil(t, confirmed.RejectedAt)

	_, err = f.lifecycle.Confirm(ctx, models.DoctorPrincipal(doctorID), appt.ID)
	assert.Equal(t, apperrors.KindInvalidTransition, apperrors.KindOf(err))

	stored, err := f.appointments.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
}

func TestPatientCannotConfirm(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, patientID, tomorrowAt(10, 0))

	_, err := f.lifecycle.Confirm(context.Background(), models.PatientPrincipal(patientID), appt.ID)
	assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))

	stored, _ := f.appointments.GetByID(context.Background(), appt.ID)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestRejectRequiresReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, patientID, tomorrowAt(10, 0))

	_, err := f.lifecycle.Reject(ctx, models.DoctorPrincipal(doctorID), appt.ID, "   ")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	assert.Equal(t, apperrors.ReasonMissingReason, apperrors.ReasonOf(err))

	rejected, err := f.lifecycle.Reject(ctx, models.DoctorPrincipal(doctorID), appt.ID, "Fully booked")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectedAt)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "Fully booked", *rejected.RejectionReason)
	assert.Nil(t, rejected.ConfirmedAt)
}

func TestTransitionTable(t *testing.T) {
	patient := models.PatientPrincipal(patientID)
	doctor := models.DoctorPrincipal(doctorID)
	admin := models.AdminPrincipal(adminID)

	tests := []struct {
		name  string
		setup []models.AppointmentStatus
		actor models.Principal
		to    models.AppointmentStatus
		kind  apperrors.Kind
	}{
		{name: "patient cancels pending", actor: patient, to: models.StatusCancelled},
		{name: "patient cancels confirmed", setup: []models.AppointmentStatus{models.StatusConfirmed}, actor: patient, to: models.StatusCancelled},
		{name: "doctor completes confirmed", setup: []models.AppointmentStatus{models.StatusConfirmed}, actor: doctor, to: models.StatusCompleted},
		{name: "admin marks no-show", setup: []models.AppointmentStatus{models.StatusConfirmed}, actor: admin, to: models.StatusNoShow},
		{name: "doctor cancels pending", actor: doctor, to: models.StatusCancelled},
		{name: "complete from pending", actor: doctor, to: models.StatusCompleted, kind: apperrors.KindInvalidTransition},
		{name: "reject confirmed", setup: []models.AppointmentStatus{models.StatusConfirmed}, actor: doctor, to: models.StatusRejected, kind: apperrors.KindInvalidTransition},
		{name: "cancel completed", setup: []models.AppointmentStatus{models.StatusConfirmed, models.StatusCompleted}, actor: admin, to: models.StatusCancelled, kind: apperrors.KindInvalidTransition},
		{name: "patient completes", setup: []models.AppointmentStatus{models.StatusConfirmed}, actor: patient, to: models.StatusCompleted, kind: apperrors.KindAuthorization},
		{name: "back to pending", actor: admin, to: models.StatusPending, kind: apperrors.KindAuthorization},
		{name: "patient of another appointment", actor: models.PatientPrincipal(otherPatientID), to: models.StatusCancelled, kind: apperrors.KindAuthorization},
		{name: "other doctor", actor: models.DoctorPrincipal(otherDoctorID), to: models.StatusConfirmed, kind: apperrors.KindAuthorization},
		{name: "unknown role", actor: models.Principal{ID: patientID, Role: models.RoleUnknown}, to: models.StatusCancelled, kind: apperrors.KindAuthorization},
		{name: "unknown status", actor: admin, to: "archived", kind: apperrors.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			appt := f.book(t, patientID, tomorrowAt(10, 0))
			for _, s := range tt.setup {
				_, err := f.lifecycle.Transition(ctx, admin, appt.ID, s, "")
				require.NoError(t, err)
			}

			got, err := f.lifecycle.Transition(ctx, tt.actor, appt.ID, tt.to, "")
			if tt.kind == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.to, got.Status)
				return
			}
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
		})
	}
}

func TestTransitionMissingAppointment(t *testing.T) {
	f := newFixture(t)
	_, err := f.lifecycle.Cancel(context.Background(), models.AdminPrincipal(adminID), "missing")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestConcurrentConfirmAndCancelHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, patientID, tomorrowAt(10, 0))
	f.wire(newBarrierAppointments(f.appointments, 2))

	var (
		wg      sync.WaitGroup
		confirm error
		cancel  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, confirm = f.lifecycle.Confirm(context.Background(), models.DoctorPrincipal(doctorID), appt.ID)
	}()
	go func() {
		defer wg.Done()
		_, cancel = f.lifecycle.Cancel(context.Background(), models.PatientPrincipal(patientID), appt.ID)
	}()
	wg.Wait()

	errs := []error{confirm, cancel}
	var succeeded, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperrors.Is(err, apperrors.KindConflict):
			conflicted++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)

	stored, err := f.appointments.GetByID(context.Background(), appt.ID)
	require.NoError(t, err)
	if confirm == nil {
		assert.Equal(t, models.StatusConfirmed, stored.Status)
		assert.NotNil(t, stored.ConfirmedAt)
	} else {
		assert.Equal(t, models.StatusCancelled, stored.Status)
		assert.Nil(t, stored.ConfirmedAt)
	}
}
