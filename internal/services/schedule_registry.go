package services

import (
	"context"

	"clinic-appointments-server/internal/apperrors"
	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/observability"
	"clinic-appointments-server/internal/repository"
)

// WindowCache is a read-through cache of a doctor's weekly windows.
type WindowCache interface {
	Get(ctx context.Context, doctorID string) ([]models.DoctorSchedule, bool, error)
	Set(ctx context.Context, doctorID string, windows []models.DoctorSchedule) error
	Invalidate(ctx context.Context, doctorID string) error
}

// WindowInput is one upsert request for (doctor, day).
type WindowInput struct {
	DayOfWeek   models.DayOfWeek
	StartTime   models.TimeOfDay
	EndTime     models.TimeOfDay
	IsAvailable bool
}

// ScheduleRegistry stores and validates doctors' recurring weekly windows.
// It never revalidates existing appointments when a window changes.
type ScheduleRegistry struct {
	schedules repository.ScheduleRepository
	doctors   repository.DoctorRepository
	cache     WindowCache
	settings  Settings
}

func NewScheduleRegistry(schedules repository.ScheduleRepository, doctors repository.DoctorRepository, settings Settings) *ScheduleRegistry {
	return &ScheduleRegistry{schedules: schedules, doctors: doctors, settings: settings}
}

// WithCache enables the read-through window cache.
func (r *ScheduleRegistry) WithCache(c WindowCache) *ScheduleRegistry {
	r.cache = c
	return r
}

// GetWindows returns the doctor's windows ordered Monday through Sunday.
func (r *ScheduleRegistry) GetWindows(ctx context.Context, doctorID string) ([]models.DoctorSchedule, error) {
	if err := r.settings.retry(ctx, func() error {
		_, err := r.doctors.GetByID(ctx, doctorID)
		return err
	}); err != nil {
		return nil, err
	}
	return r.windows(ctx, doctorID)
}

// WindowFor returns the window configured for the given day, if any.
func (r *ScheduleRegistry) WindowFor(ctx context.Context, doctorID string, day models.DayOfWeek) (*models.DoctorSchedule, bool, error) {
	windows, err := r.windows(ctx, doctorID)
	if err != nil {
		return nil, false, err
	}
	for i := range windows {
		if windows[i].DayOfWeek == day {
			return &windows[i], true, nil
		}
	}
	return nil, false, nil
}

// UpsertWindow replaces the (doctor, day) window or creates it. Only the
// doctor owning the schedule or an admin may write it.
func (r *ScheduleRegistry) UpsertWindow(ctx context.Context, actor models.Principal, doctorID string, in WindowInput) (window *models.DoctorSchedule, err error) {
	defer func() { r.settings.Metrics.ObserveScheduleUpsert(outcome(err)) }()

	switch {
	case actor.Role == models.RoleAdmin:
	case actor.Role == models.RoleDoctor && actor.ID == doctorID:
	default:
		return nil, apperrors.Authorization("only the doctor or an admin may change this schedule")
	}

	if !in.DayOfWeek.Valid() {
		return nil, apperrors.Validation(apperrors.ReasonInvalidWindow, "day_of_week must be monday..sunday")
	}
	if in.StartTime >= in.EndTime {
		return nil, apperrors.Validation(apperrors.ReasonInvalidWindow, "start_time must be before end_time")
	}

	if err := r.settings.retry(ctx, func() error {
		_, err := r.doctors.GetByID(ctx, doctorID)
		return err
	}); err != nil {
		return nil, err
	}

	err = r.settings.retry(ctx, func() error {
		var upsertErr error
		window, upsertErr = r.schedules.Upsert(ctx, &models.DoctorSchedule{
			DoctorID:    doctorID,
			DayOfWeek:   in.DayOfWeek,
			StartTime:   in.StartTime,
			EndTime:     in.EndTime,
			IsAvailable: in.IsAvailable,
		})
		return upsertErr
	})
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if cacheErr := r.cache.Invalidate(ctx, doctorID); cacheErr != nil {
			observability.LoggerFromContext(ctx).Warn().Err(cacheErr).Str("doctor_id", doctorID).Msg("schedule cache invalidation failed")
		}
	}

	observability.LoggerFromContext(ctx).Info().
		Str("doctor_id", doctorID).
		Str("day_of_week", string(in.DayOfWeek)).
		Str("start_time", in.StartTime.String()).
		Str("end_time", in.EndTime.String()).
		Bool("is_available", in.IsAvailable).
		Msg("schedule window upserted")
	return window, nil
}

func (r *ScheduleRegistry) windows(ctx context.Context, doctorID string) ([]models.DoctorSchedule, error) {
	logger := observability.LoggerFromContext(ctx)
	if r.cache != nil {
		cached, found, err := r.cache.Get(ctx, doctorID)
		if err != nil {
			logger.Warn().Err(err).Str("doctor_id", doctorID).Msg("schedule cache read failed")
		}
		r.settings.Metrics.ObserveCacheLookup(found)
		if found {
			return cached, nil
		}
	}

	var windows []models.DoctorSchedule
	if err := r.settings.retry(ctx, func() error {
		var err error
		windows, err = r.schedules.ListByDoctor(ctx, doctorID)
		return err
	}); err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, doctorID, windows); err != nil {
			logger.Warn().Err(err).Str("doctor_id", doctorID).Msg("schedule cache write failed")
		}
	}
	return windows, nil
}
