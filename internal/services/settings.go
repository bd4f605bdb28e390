// Package services implements the appointment lifecycle and doctor
// availability engine: schedule registry, fee snapshots, booking intake,
// the status state machine and role-scoped visibility.
package services

import (
	"context"
	"time"

	"clinic-appointments-server/internal/apperrors"
	"clinic-appointments-server/internal/config"
	"clinic-appointments-server/internal/observability"
	"clinic-appointments-server/internal/retry"
)

// Settings carries the collaborators shared by every service.
type Settings struct {
	Clock          func() time.Time
	Location       *time.Location
	EnforceWindows bool
	Retry          retry.Config
	Metrics        *observability.SchedulingMetrics
}

// SettingsFromConfig builds Settings from the loaded application config.
func SettingsFromConfig(cfg *config.Config, metrics *observability.SchedulingMetrics) Settings {
	r := retry.DefaultConfig()
	r.MaxAttempts = cfg.Retry.Attempts
	r.InitialDelay = cfg.Retry.Backoff
	return Settings{
		Clock:          time.Now,
		Location:       cfg.Booking.Location,
		EnforceWindows: cfg.Booking.EnforceWindows,
		Retry:          r,
		Metrics:        metrics,
	}
}

func (s Settings) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock().UTC()
}

func (s Settings) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s Settings) retry(ctx context.Context, fn func() error) error {
	return retry.Do(ctx, s.Retry, fn)
}

// outcome is the metrics label for an operation result.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperrors.KindOf(err))
}
