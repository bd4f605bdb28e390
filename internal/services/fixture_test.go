package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/repository"
	"clinic-appointments-server/internal/repository/memory"
	"clinic-appointments-server/internal/retry"
)

const (
	patientID      = "patient-1"
	otherPatientID = "patient-2"
	doctorID       = "doctor-1"
	otherDoctorID  = "doctor-2"
	adminID        = "admin-1"
)

// Monday 2026-03-02 08:00 UTC.
var fixedNow = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)

type fixture struct {
	appointments *memory.Appointments
	schedules    *memory.Schedules
	doctors      *memory.Doctors
	patients     *memory.Patients
	settings     Settings

	registry  *ScheduleRegistry
	intake    *AppointmentIntake
	lifecycle *LifecycleManager
	queries   *AppointmentQueries
	directory *DoctorDirectory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	f := &fixture{
		appointments: memory.NewAppointments(),
		schedules:    memory.NewSchedules(clock),
		doctors: memory.NewDoctors(
			models.Doctor{ID: doctorID, Specialty: "cardiology", ConsultationFee: decimal.NewFromInt(100000), IsAvailable: true},
			models.Doctor{ID: otherDoctorID, Specialty: "dermatology", ConsultationFee: decimal.NewFromInt(80000), IsAvailable: false},
		).WithClock(clock),
		patients: memory.NewPatients(patientID, otherPatientID),
		settings: Settings{
			Clock:          clock,
			Location:       time.UTC,
			EnforceWindows: true,
			Retry:          retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1},
		},
	}
	f.wire(f.appointments)
	return f
}

// wire rebuilds the services over the given appointment repository.
func (f *fixture) wire(appointments repository.AppointmentRepository) {
	f.registry = NewScheduleRegistry(f.schedules, f.doctors, f.settings)
	f.intake = NewAppointmentIntake(appointments, f.doctors, f.patients, f.registry, f.settings)
	f.lifecycle = NewLifecycleManager(appointments, f.settings)
	f.queries = NewAppointmentQueries(appointments, f.doctors, f.settings)
	f.directory = NewDoctorDirectory(f.doctors, f.settings)
}

func (f *fixture) book(t *testing.T, patient string, at time.Time) *models.Appointment {
	t.Helper()
	appt, err := f.intake.CreateRequest(context.Background(), models.PatientPrincipal(patient), BookingRequest{
		DoctorID:    doctorID,
		ScheduledAt: at,
		Reason:      "Chest pain follow-up",
	})
	require.NoError(t, err)
	return appt
}

func tomorrowAt(hour, minute int) time.Time {
	return time.Date(2026, time.March, 3, hour, minute, 0, 0, time.UTC)
}

// barrierAppointments holds every GetByID caller until all of them have read,
// forcing concurrent transitions to start from the same status.
type barrierAppointments struct {
	repository.AppointmentRepository
	arrived *sync.WaitGroup
}

func newBarrierAppointments(inner repository.AppointmentRepository, readers int) *barrierAppointments {
	wg := &sync.WaitGroup{}
	wg.Add(readers)
	return &barrierAppointments{AppointmentRepository: inner, arrived: wg}
}

func (b *barrierAppointments) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	a, err := b.AppointmentRepository.GetByID(ctx, id)
	b.arrived.Done()
	b.arrived.Wait()
	return a, err
}

// flakyAppointments fails the first n Create calls with the given error.
type flakyAppointments struct {
	repository.AppointmentRepository
	mu       sync.Mutex
	failures int
	err      error
	calls    int
}

func (f *flakyAppointments) Create(ctx context.Context, a *models.Appointment) error {
	f.mu.Lock()
	f.calls++
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()
	if fail {
		return f.err
	}
	return f.AppointmentRepository.Create(ctx, a)
}
