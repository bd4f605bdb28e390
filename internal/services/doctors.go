package services

import (
	"context"
	"sort"

	"clinic-appointments-server/internal/apperrors"
	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/observability"
	"clinic-appointments-server/internal/repository"
)

// DoctorDirectory exposes the doctor profiles the engine reads fees and
// availability from.
type DoctorDirectory struct {
	doctors  repository.DoctorRepository
	settings Settings
}

func NewDoctorDirectory(doctors repository.DoctorRepository, settings Settings) *DoctorDirectory {
	return &DoctorDirectory{doctors: doctors, settings: settings}
}

func (d *DoctorDirectory) List(ctx context.Context, filter models.DoctorFilter) ([]models.Doctor, error) {
	var out []models.Doctor
	err := d.settings.retry(ctx, func() error {
		var err error
		out, err = d.doctors.List(ctx, filter)
		return err
	})
	return out, err
}

func (d *DoctorDirectory) Get(ctx context.Context, id string) (*models.Doctor, error) {
	var doc *models.Doctor
	err := d.settings.retry(ctx, func() error {
		var err error
		doc, err = d.doctors.GetByID(ctx, id)
		return err
	})
	return doc, err
}

// SpecialtyCount is one row of the specialty listing.
type SpecialtyCount struct {
	Specialty string `json:"specialty"`
	Doctors   int    `json:"doctors"`
	Available int    `json:"available"`
}

// Specialties lists the distinct specialties with their doctor counts, most
// staffed first. Doctors without a specialty are not counted.
func (d *DoctorDirectory) Specialties(ctx context.Context) ([]SpecialtyCount, error) {
	doctors, err := d.List(ctx, models.DoctorFilter{})
	if err != nil {
		return nil, err
	}

	index := map[string]int{}
	out := []SpecialtyCount{}
	for _, doc := range doctors {
		if doc.Specialty == "" {
			continue
		}
		i, ok := index[doc.Specialty]
		if !ok {
			i = len(out)
			index[doc.Specialty] = i
			out = append(out, SpecialtyCount{Specialty: doc.Specialty})
		}
		out[i].Doctors++
		if doc.IsAvailable {
			out[i].Available++
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Doctors != out[j].Doctors {
			return out[i].Doctors > out[j].Doctors
		}
		return out[i].Specialty < out[j].Specialty
	})
	return out, nil
}

// UpdateProfile changes the fee or availability switch. Existing
// appointments keep their fee snapshot.
func (d *DoctorDirectory) UpdateProfile(ctx context.Context, actor models.Principal, id string, upd models.DoctorProfileUpdate) (*models.Doctor, error) {
	if actor.Role != models.RoleAdmin && !(actor.Role == models.RoleDoctor && actor.ID == id) {
		return nil, apperrors.Authorization("only the doctor or an admin may update this profile")
	}
	if upd.ConsultationFee != nil && upd.ConsultationFee.IsNegative() {
		return nil, apperrors.Validation(apperrors.ReasonInvalidInput, "consultation_fee must not be negative")
	}

	var doc *models.Doctor
	if err := d.settings.retry(ctx, func() error {
		var err error
		doc, err = d.doctors.UpdateProfile(ctx, id, upd)
		return err
	}); err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("doctor_id", id).
		Str("consultation_fee", doc.ConsultationFee.StringFixed(2)).
		Bool("is_available", doc.IsAvailable).
		Msg("doctor profile updated")
	return doc, nil
}
