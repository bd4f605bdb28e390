// Package repository holds the persistence contracts of the scheduling core
// and their GORM/MySQL implementations.
package repository

import (
	"context"

	"clinic-appointments-server/internal/models"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *models.Appointment) error
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	// Query returns appointments matching every filter, newest first.
	Query(ctx context.Context, filters []Filter) ([]models.Appointment, error)
	// CompareAndSwapStatus applies change only if the row is still in status
	// from. A row that exists but moved on yields a conflict error.
	CompareAndSwapStatus(ctx context.Context, id string, from models.AppointmentStatus, change models.StatusChange) (*models.Appointment, error)
}

type ScheduleRepository interface {
	ListByDoctor(ctx context.Context, doctorID string) ([]models.DoctorSchedule, error)
	// Upsert replaces the window for (DoctorID, DayOfWeek) or inserts it.
	Upsert(ctx context.Context, s *models.DoctorSchedule) (*models.DoctorSchedule, error)
}

type DoctorRepository interface {
	GetByID(ctx context.Context, id string) (*models.Doctor, error)
	List(ctx context.Context, filter models.DoctorFilter) ([]models.Doctor, error)
	Create(ctx context.Context, d *models.Doctor) error
	UpdateProfile(ctx context.Context, id string, upd models.DoctorProfileUpdate) (*models.Doctor, error)
}

type PatientDirectory interface {
	IsPatient(ctx context.Context, id string) (bool, error)
}
