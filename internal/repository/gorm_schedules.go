package repository

import (
	"context"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-appointments-server/internal/models"
)

// GormScheduleRepository persists weekly windows in doctor_schedules.
type GormScheduleRepository struct {
	db *gorm.DB
}

func NewGormScheduleRepository(db *gorm.DB) *GormScheduleRepository {
	return &GormScheduleRepository{db: db}
}

func (r *GormScheduleRepository) ListByDoctor(ctx context.Context, doctorID string) ([]models.DoctorSchedule, error) {
	var windows []models.DoctorSchedule
	if err := r.db.WithContext(ctx).Where("doctor_id = ?", doctorID).Find(&windows).Error; err != nil {
		return nil, dbError(err, "schedule", "list schedule")
	}
	SortWindows(windows)
	return windows, nil
}

// Upsert relies on the (doctor_id, day_of_week) unique index:
// INSERT ... ON DUPLICATE KEY UPDATE keeps a single row per pair.
func (r *GormScheduleRepository) Upsert(ctx context.Context, s *models.DoctorSchedule) (*models.DoctorSchedule, error) {
	var stored models.DoctorSchedule
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "doctor_id"}, {Name: "day_of_week"}},
			DoUpdates: clause.AssignmentColumns([]string{"start_time", "end_time", "is_available", "updated_at"}),
		}).Create(s).Error
		if err != nil {
			return err
		}
		return tx.Where("doctor_id = ? AND day_of_week = ?", s.DoctorID, s.DayOfWeek).First(&stored).Error
	})
	if err != nil {
		return nil, dbError(err, "schedule", "upsert schedule")
	}
	return &stored, nil
}

// SortWindows orders windows Monday through Sunday.
func SortWindows(windows []models.DoctorSchedule) {
	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].DayOfWeek.Index() < windows[j].DayOfWeek.Index()
	})
}
