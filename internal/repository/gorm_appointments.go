package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"clinic-appointments-server/internal/apperrors"
	"clinic-appointments-server/internal/models"
)

// GormAppointmentRepository persists appointments in MySQL.
type GormAppointmentRepository struct {
	db *gorm.DB
}

func NewGormAppointmentRepository(db *gorm.DB) *GormAppointmentRepository {
	return &GormAppointmentRepository{db: db}
}

func (r *GormAppointmentRepository) Create(ctx context.Context, a *models.Appointment) error {
	return dbError(r.db.WithContext(ctx).Create(a).Error, "appointment", "create appointment")
}

func (r *GormAppointmentRepository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	var a models.Appointment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, dbError(err, "appointment", "load appointment")
	}
	return &a, nil
}

func (r *GormAppointmentRepository) Query(ctx context.Context, filters []Filter) ([]models.Appointment, error) {
	q := r.db.WithContext(ctx).Model(&models.Appointment{})
	for _, f := range filters {
		var err error
		if q, err = applyFilter(q, f); err != nil {
			return nil, err
		}
	}

	var out []models.Appointment
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, dbError(err, "appointment", "query appointments")
	}
	return out, nil
}

// CompareAndSwapStatus issues UPDATE ... WHERE id = ? AND status = ? and
// reloads the row in the same transaction.
func (r *GormAppointmentRepository) CompareAndSwapStatus(ctx context.Context, id string, from models.AppointmentStatus, change models.StatusChange) (*models.Appointment, error) {
	var updated models.Appointment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Appointment{}).
			Where("id = ? AND status = ?", id, from).
			Updates(change.Columns())
		if res.Error != nil {
			return dbError(res.Error, "appointment", "update appointment status")
		}
		if err := tx.First(&updated, "id = ?", id).Error; err != nil {
			return dbError(err, "appointment", "reload appointment")
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict(fmt.Sprintf("appointment is %s, expected %s", updated.Status, from))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func applyFilter(q *gorm.DB, f Filter) (*gorm.DB, error) {
	switch f := f.(type) {
	case MatchNone:
		return q.Where("1 = 0"), nil
	case PatientIs:
		return q.Where("patient_id = ?", f.ID), nil
	case DoctorIs:
		return q.Where("doctor_id = ?", f.ID), nil
	case StatusEquals:
		return q.Where("status = ?", f.Status), nil
	case PriorityEquals:
		return q.Where("priority = ?", f.Priority), nil
	case PriorityIn:
		return q.Where("priority IN ?", f.Priorities), nil
	case TextContains:
		pattern := likePattern(f.Text)
		// gorm parenthesises OR expressions when other conditions are present.
		return q.Where("LOWER(reason) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern), nil
	default:
		return nil, apperrors.Internal(fmt.Sprintf("unsupported appointment filter %T", f), nil)
	}
}
