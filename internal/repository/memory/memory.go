// Package memory implements the repository interfaces in process memory with
// the same compare-and-set and upsert semantics as the MySQL store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"clinic-appointments-server/internal/apperrors"
	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/repository"
)

// Clock supplies the time stamped on rows; nil means the wall clock.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

type Appointments struct {
	mu   sync.Mutex
	rows map[string]models.Appointment
}

func NewAppointments() *Appointments {
	return &Appointments{rows: map[string]models.Appointment{}}
}

func (s *Appointments) Create(_ context.Context, a *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if _, exists := s.rows[a.ID]; exists {
		return apperrors.Conflict("appointment already exists")
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	s.rows[a.ID] = *a
	return nil
}

func (s *Appointments) GetByID(_ context.Context, id string) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.rows[id]
	if !ok {
		return nil, apperrors.NotFound("appointment not found")
	}
	return &a, nil
}

func (s *Appointments) Query(_ context.Context, filters []repository.Filter) ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Appointment, 0, len(s.rows))
	for _, a := range s.rows {
		if repository.MatchesAll(filters, &a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Appointments) CompareAndSwapStatus(_ context.Context, id string, from models.AppointmentStatus, change models.StatusChange) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.rows[id]
	if !ok {
		return nil, apperrors.NotFound("appointment not found")
	}
	if a.Status != from {
		return nil, apperrors.Conflict(fmt.Sprintf("appointment is %s, expected %s", a.Status, from))
	}
	change.Apply(&a)
	s.rows[id] = a
	return &a, nil
}

type Schedules struct {
	mu    sync.Mutex
	clock Clock
	rows  map[string]map[models.DayOfWeek]models.DoctorSchedule
}

func NewSchedules(clock Clock) *Schedules {
	return &Schedules{clock: clock, rows: map[string]map[models.DayOfWeek]models.DoctorSchedule{}}
}

func (s *Schedules) ListByDoctor(_ context.Context, doctorID string) ([]models.DoctorSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.DoctorSchedule, 0, len(s.rows[doctorID]))
	for _, w := range s.rows[doctorID] {
		out = append(out, w)
	}
	repository.SortWindows(out)
	return out, nil
}

func (s *Schedules) Upsert(_ context.Context, w *models.DoctorSchedule) (*models.DoctorSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	days, ok := s.rows[w.DoctorID]
	if !ok {
		days = map[models.DayOfWeek]models.DoctorSchedule{}
		s.rows[w.DoctorID] = days
	}

	now := s.clock.now()
	stored, exists := days[w.DayOfWeek]
	if !exists {
		stored = models.DoctorSchedule{DoctorID: w.DoctorID, DayOfWeek: w.DayOfWeek}
		stored.ID = uuid.New().String()
		stored.CreatedAt = now
	}
	stored.StartTime = w.StartTime
	stored.EndTime = w.EndTime
	stored.IsAvailable = w.IsAvailable
	stored.UpdatedAt = now
	days[w.DayOfWeek] = stored
	return &stored, nil
}

type Doctors struct {
	mu    sync.Mutex
	clock Clock
	rows  map[string]models.Doctor
}

func NewDoctors(seed ...models.Doctor) *Doctors {
	d := &Doctors{rows: map[string]models.Doctor{}}
	for _, doc := range seed {
		d.rows[doc.ID] = doc
	}
	return d
}

// WithClock sets the clock used for profile update stamps.
func (s *Doctors) WithClock(clock Clock) *Doctors {
	s.clock = clock
	return s
}

func (s *Doctors) GetByID(_ context.Context, id string) (*models.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.rows[id]
	if !ok {
		return nil, apperrors.NotFound("doctor not found")
	}
	return &d, nil
}

func (s *Doctors) List(_ context.Context, filter models.DoctorFilter) ([]models.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Doctor{}
	for _, d := range s.rows {
		if filter.Specialty != "" && d.Specialty != filter.Specialty {
			continue
		}
		if filter.AvailableOnly && !d.IsAvailable {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Doctors) Create(_ context.Context, d *models.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rows[d.ID]; exists {
		return apperrors.Conflict("doctor already exists")
	}
	s.rows[d.ID] = *d
	return nil
}

func (s *Doctors) UpdateProfile(_ context.Context, id string, upd models.DoctorProfileUpdate) (*models.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.rows[id]
	if !ok {
		return nil, apperrors.NotFound("doctor not found")
	}
	if upd.ConsultationFee != nil {
		d.ConsultationFee = *upd.ConsultationFee
	}
	if upd.IsAvailable != nil {
		d.IsAvailable = *upd.IsAvailable
	}
	d.UpdatedAt = s.clock.now()
	s.rows[id] = d
	return &d, nil
}

// Patients is a set of known patient ids.
type Patients struct {
	mu  sync.Mutex
	ids map[string]bool
}

func NewPatients(ids ...string) *Patients {
	p := &Patients{ids: map[string]bool{}}
	for _, id := range ids {
		p.ids[id] = true
	}
	return p
}

func (p *Patients) IsPatient(_ context.Context, id string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ids[id], nil
}

var (
	_ repository.AppointmentRepository = (*Appointments)(nil)
	_ repository.ScheduleRepository    = (*Schedules)(nil)
	_ repository.DoctorRepository      = (*Doctors)(nil)
	_ repository.PatientDirectory      = (*Patients)(nil)
)
