package repository

import (
	"context"

	"gorm.io/gorm"

	"clinic-appointments-server/internal/models"
)

// GormDoctorRepository reads and updates doctor profiles.
type GormDoctorRepository struct {
	db *gorm.DB
}

func NewGormDoctorRepository(db *gorm.DB) *GormDoctorRepository {
	return &GormDoctorRepository{db: db}
}

func (r *GormDoctorRepository) GetByID(ctx context.Context, id string) (*models.Doctor, error) {
	var d models.Doctor
	if err := r.db.WithContext(ctx).Preload("User").First(&d, "id = ?", id).Error; err != nil {
		return nil, dbError(err, "doctor", "load doctor")
	}
	return &d, nil
}

func (r *GormDoctorRepository) List(ctx context.Context, filter models.DoctorFilter) ([]models.Doctor, error) {
	q := r.db.WithContext(ctx).Preload("User")
	if filter.Specialty != "" {
		q = q.Where("specialty = ?", filter.Specialty)
	}
	if filter.AvailableOnly {
		q = q.Where("is_available = ?", true)
	}

	var doctors []models.Doctor
	if err := q.Order("created_at ASC").Find(&doctors).Error; err != nil {
		return nil, dbError(err, "doctor", "list doctors")
	}
	return doctors, nil
}

func (r *GormDoctorRepository) Create(ctx context.Context, d *models.Doctor) error {
	return dbError(r.db.WithContext(ctx).Omit("User", "Schedules").Create(d).Error, "doctor", "create doctor")
}

func (r *GormDoctorRepository) UpdateProfile(ctx context.Context, id string, upd models.DoctorProfileUpdate) (*models.Doctor, error) {
	cols := map[string]any{}
	if upd.ConsultationFee != nil {
		cols["consultation_fee"] = *upd.ConsultationFee
	}
	if upd.IsAvailable != nil {
		cols["is_available"] = *upd.IsAvailable
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.Doctor
		if err := tx.Select("id").First(&d, "id = ?", id).Error; err != nil {
			return err
		}
		if len(cols) == 0 {
			return nil
		}
		return tx.Model(&d).Updates(cols).Error
	})
	if err != nil {
		return nil, dbError(err, "doctor", "update doctor")
	}
	return r.GetByID(ctx, id)
}

// GormPatientDirectory answers patient lookups from the users table.
type GormPatientDirectory struct {
	db *gorm.DB
}

func NewGormPatientDirectory(db *gorm.DB) *GormPatientDirectory {
	return &GormPatientDirectory{db: db}
}

func (r *GormPatientDirectory) IsPatient(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND role = ?", id, models.RolePatient).
		Count(&count).Error
	if err != nil {
		return false, dbError(err, "patient", "lookup patient")
	}
	return count > 0, nil
}
