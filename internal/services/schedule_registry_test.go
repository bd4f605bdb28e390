package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-appointments-server/internal/apperrors"
	"clinic-appointments-server/internal/cache"
	"clinic-appointments-server/internal/models"
)

func TestUpsertWindowReplacesExistingDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doctor := models.DoctorPrincipal(doctorID)

	first, err := f.registry.UpsertWindow(ctx, doctor, doctorID, WindowInput{DayOfWeek: models.Monday, StartTime: 9 * 60, EndTime: 17 * 60, IsAvailable: true})
	require.NoError(t, err)
	second, err := f.registry.UpsertWindow(ctx, doctor, doctorID, WindowInput{DayOfWeek: models.Monday, StartTime: 10 * 60, EndTime: 18 * 60, IsAvailable: true})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.CreatedAt.Equal(fixedNow))
	assert.True(t, second.UpdatedAt.Equal(fixedNow))

	windows, err := f.registry.GetWindows(ctx, doctorID)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, models.Monday, windows[0].DayOfWeek)
	assert.Equal(t, "10:00", windows[0].StartTime.String())
	assert.Equal(t, "18:00", windows[0].EndTime.String())
}

func TestGetWindowsOrderedByWeekday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := models.AdminPrincipal(adminID)
	for _, day := range []models.DayOfWeek{models.Sunday, models.Wednesday, models.Monday} {
		_, err := f.registry.UpsertWindow(ctx, admin, doctorID, WindowInput{DayOfWeek: day, StartTime: 8 * 60, EndTime: 12 * 60, IsAvailable: true})
		require.NoError(t, err)
	}

	windows, err := f.registry.GetWindows(ctx, doctorID)
	require.NoError(t, err)
	require.Len(t, windows, 3)
	assert.Equal(t, models.Monday, windows[0].DayOfWeek)
	assert.Equal(t, models.Wednesday, windows[1].DayOfWeek)
	assert.Equal(t, models.Sunday, windows[2].DayOfWeek)
}

func TestUpsertWindowValidation(t *testing.T) {
	tests := []struct {
		name   string
		actor  models.Principal
		doctor string
		in     WindowInput
		kind   apperrors.Kind
		reason apperrors.Reason
	}{
		{
			name: "start equals end", actor: models.DoctorPrincipal(doctorID), doctor: doctorID,
			in:   WindowInput{DayOfWeek: models.Monday, StartTime: 9 * 60, EndTime: 9 * 60},
			kind: apperrors.KindValidation, reason: apperrors.ReasonInvalidWindow,
		},
		{
			name: "start after end", actor: models.DoctorPrincipal(doctorID), doctor: doctorID,
			in:   WindowInput{DayOfWeek: models.Monday, StartTime: 18 * 60, EndTime: 9 * 60},
			kind: apperrors.KindValidation, reason: apperrors.ReasonInvalidWindow,
		},
		{
			name: "bad day", actor: models.DoctorPrincipal(doctorID), doctor: doctorID,
			in:   WindowInput{DayOfWeek: "funday", StartTime: 9 * 60, EndTime: 10 * 60},
			kind: apperrors.KindValidation, reason: apperrors.ReasonInvalidWindow,
		},
		{
			name: "another doctor's schedule", actor: models.DoctorPrincipal(otherDoctorID), doctor: doctorID,
			in:   WindowInput{DayOfWeek: models.Monday, StartTime: 9 * 60, EndTime: 10 * 60},
			kind: apperrors.KindAuthorization,
		},
		{
			name: "patient", actor: models.PatientPrincipal(patientID), doctor: doctorID,
			in:   WindowInput{DayOfWeek: models.Monday, StartTime: 9 * 60, EndTime: 10 * 60},
			kind: apperrors.KindAuthorization,
		},
		{
			name: "unknown doctor", actor: models.AdminPrincipal(adminID), doctor: "nobody",
			in:   WindowInput{DayOfWeek: models.Monday, StartTime: 9 * 60, EndTime: 10 * 60},
			kind: apperrors.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.registry.UpsertWindow(context.Background(), tt.actor, tt.doctor, tt.in)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
			assert.Equal(t, tt.reason, apperrors.ReasonOf(err))

			windows, listErr := f.schedules.ListByDoctor(context.Background(), tt.doctor)
			require.NoError(t, listErr)
			assert.Empty(t, windows)
		})
	}
}

func TestGetWindowsUnknownDoctor(t *testing.T) {
	f := newFixture(t)
	_, err := f.registry.GetWindows(context.Background(), "nobody")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestRegistryCacheIsInvalidatedOnUpsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	f.registry.WithCache(cache.NewScheduleCache(client, time.Minute))
	doctor := models.DoctorPrincipal(doctorID)

	_, err := f.registry.UpsertWindow(ctx, doctor, doctorID, WindowInput{DayOfWeek: models.Friday, StartTime: 9 * 60, EndTime: 12 * 60, IsAvailable: true})
	require.NoError(t, err)

	windows, err := f.registry.GetWindows(ctx, doctorID)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.True(t, mr.Exists("clinic:schedule:"+doctorID))

	_, err = f.registry.UpsertWindow(ctx, doctor, doctorID, WindowInput{DayOfWeek: models.Friday, StartTime: 13 * 60, EndTime: 15 * 60, IsAvailable: true})
	require.NoError(t, err)
	assert.False(t, mr.Exists("clinic:schedule:"+doctorID))

	windows, err = f.registry.GetWindows(ctx, doctorID)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "13:00", windows[0].StartTime.String())
}

func TestRegistryFallsBackWhenCacheIsDown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	f.registry.WithCache(cache.NewScheduleCache(client, time.Minute))

	_, err := f.registry.UpsertWindow(ctx, models.AdminPrincipal(adminID), doctorID, WindowInput{DayOfWeek: models.Monday, StartTime: 9 * 60, EndTime: 12 * 60, IsAvailable: true})
	require.NoError(t, err)

	mr.Close()
	windows, err := f.registry.GetWindows(ctx, doctorID)
	require.NoError(t, err)
	assert.Len(t, windows, 1)
}

func TestDoctorDirectoryUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fee := decimal.RequireFromString("120.00")
	off := false

	doc, err := f.directory.UpdateProfile(ctx, models.AdminPrincipal(adminID), doctorID, models.DoctorProfileUpdate{ConsultationFee: &fee, IsAvailable: &off})
	require.NoError(t, err)
	assert.Equal(t, "120.00", doc.ConsultationFee.StringFixed(2))
	assert.False(t, doc.IsAvailable)
	assert.True(t, doc.UpdatedAt.Equal(fixedNow))

	_, err = f.intake.CreateRequest(ctx, models.PatientPrincipal(patientID), BookingRequest{DoctorID: doctorID, ScheduledAt: tomorrowAt(10, 0), Reason: "x"})
	assert.Equal(t, apperrors.ReasonDoctorUnavailable, apperrors.ReasonOf(err))

	_, err = f.directory.UpdateProfile(ctx, models.DoctorPrincipal(otherDoctorID), doctorID, models.DoctorProfileUpdate{IsAvailable: &off})
	assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))

	negative := decimal.NewFromInt(-5)
	_, err = f.directory.UpdateProfile(ctx, models.DoctorPrincipal(doctorID), doctorID, models.DoctorProfileUpdate{ConsultationFee: &negative})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	available, err := f.directory.List(ctx, models.DoctorFilter{AvailableOnly: true})
	require.NoError(t, err)
	assert.Empty(t, available)
}

func TestDoctorDirectorySpecialties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.doctors.Create(ctx, &models.Doctor{ID: "doctor-3", Specialty: "cardiology", IsAvailable: false}))
	require.NoError(t, f.doctors.Create(ctx, &models.Doctor{ID: "doctor-4", IsAvailable: true}))

	got, err := f.directory.Specialties(ctx)
	require.NoError(t, err)
	assert.Equal(t, []SpecialtyCount{
		{Specialty: "cardiology", Doctors: 2, Available: 1},
		{Specialty: "dermatology", Doctors: 1, Available: 0},
	}, got)
}

func TestFeeResolver(t *testing.T) {
	doctor := &models.Doctor{ConsultationFee: decimal.NewFromInt(100000)}
	var r FeeResolver

	assert.Equal(t, "100000", r.Resolve(nil, doctor).String())

	explicit := decimal.RequireFromString("0")
	assert.True(t, r.Resolve(&explicit, doctor).IsZero())

	snapshot := r.Resolve(nil, doctor)
	doctor.ConsultationFee = decimal.NewFromInt(150000)
	assert.Equal(t, "100000", snapshot.String())
}
