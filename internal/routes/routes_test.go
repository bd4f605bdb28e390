package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-appointments-server/internal/config"
	"clinic-appointments-server/internal/handlers"
	"clinic-appointments-server/internal/middleware"
	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/observability"
	"clinic-appointments-server/internal/repository/memory"
	"clinic-appointments-server/internal/retry"
	"clinic-appointments-server/internal/services"
	"clinic-appointments-server/internal/utils"
)

const (
	patientID = "11111111-1111-1111-1111-111111111111"
	doctorID  = "22222222-2222-2222-2222-222222222222"
	adminID   = "33333333-3333-3333-3333-333333333333"
)

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Kind   string          `json:"kind"`
	Reason string          `json:"reason"`
}

type testServer struct {
	router *gin.Engine
	cfg    *config.Config
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWTSecret:                 "test-secret",
		JWTRefreshSecret:          "test-refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 24,
	}
	now := time.Now().UTC().Truncate(time.Minute)
	clock := func() time.Time { return now }
	settings := services.Settings{
		Clock:          clock,
		Location:       time.UTC,
		EnforceWindows: true,
		Retry:          retry.Config{MaxAttempts: 1},
		Metrics:        observability.NewSchedulingMetrics(prometheus.NewRegistry()),
	}

	appointments := memory.NewAppointments()
	doctors := memory.NewDoctors(models.Doctor{ID: doctorID, Specialty: "general", ConsultationFee: decimal.NewFromInt(100000), IsAvailable: true}).WithClock(clock)
	patients := memory.NewPatients(patientID)
	registry := services.NewScheduleRegistry(memory.NewSchedules(clock), doctors, settings)
	queries := services.NewAppointmentQueries(appointments, doctors, settings)

	router := gin.New()
	router.Use(middleware.RequestLogger())
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	RegisterEngineRoutes(private,
		handlers.NewAppointmentHandler(
			services.NewAppointmentIntake(appointments, doctors, patients, registry, settings),
			services.NewLifecycleManager(appointments, settings),
			queries,
		),
		handlers.NewDoctorHandler(services.NewDoctorDirectory(doctors, settings), registry, queries),
	)
	return &testServer{router: router, cfg: cfg, now: now}
}

func (s *testServer) token(t *testing.T, id string, role models.Role) string {
	t.Helper()
	access, _, err := utils.GenerateTokens(&models.User{BaseModel: models.BaseModel{ID: id}, Role: role}, s.cfg)
	require.NoError(t, err)
	return access
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) book(t *testing.T, patientToken string) models.Appointment {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/v1/appointments", patientToken, gin.H{
		"doctorId":    doctorID,
		"scheduledAt": s.now.Add(26 * time.Hour),
		"reason":      "Annual check-up",
		"priority":    "high",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var appt models.Appointment
	require.NoError(t, json.Unmarshal(env.Data, &appt))
	return appt
}

func TestBookingAndLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	patient := s.token(t, patientID, models.RolePatient)
	doctor := s.token(t, doctorID, models.RoleDoctor)

	appt := s.book(t, patient)
	assert.Equal(t, models.StatusPending, appt.Status)
	assert.Equal(t, "100000", appt.Fee.String())
	assert.Nil(t, appt.ConfirmedAt)

	code, env := s.do(t, http.MethodPost, "/api/v1/appointments/"+appt.ID+"/confirm", patient, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "authorization", env.Kind)

	code, env = s.do(t, http.MethodPost, "/api/v1/appointments/"+appt.ID+"/confirm", doctor, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var confirmed models.Appointment
	require.NoError(t, json.Unmarshal(env.Data, &confirmed))
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)
	assert.NotNil(t, confirmed.ConfirmedAt)

	code, env = s.do(t, http.MethodPost, "/api/v1/appointments/"+appt.ID+"/confirm", doctor, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_transition", env.Kind)

	code, env = s.do(t, http.MethodPatch, "/api/v1/appointments/"+appt.ID+"/status", doctor, gin.H{"status": "completed"})
	require.Equal(t, http.StatusOK, code, env.Error)
}

func TestRejectWithoutReasonOverHTTP(t *testing.T) {
	s := newTestServer(t)
	appt := s.book(t, s.token(t, patientID, models.RolePatient))
	doctor := s.token(t, doctorID, models.RoleDoctor)

	code, env := s.do(t, http.MethodPost, "/api/v1/appointments/"+appt.ID+"/reject", doctor, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", env.Kind)
	assert.Equal(t, "missing_reason", env.Reason)

	code, env = s.do(t, http.MethodPost, "/api/v1/appointments/"+appt.ID+"/reject", doctor, gin.H{"reason": "On leave"})
	require.Equal(t, http.StatusOK, code, env.Error)
	var rejected models.Appointment
	require.NoError(t, json.Unmarshal(env.Data, &rejected))
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "On leave", *rejected.RejectionReason)
}

func TestBookingInThePastOverHTTP(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodPost, "/api/v1/appointments", s.token(t, patientID, models.RolePatient), gin.H{
		"doctorId":    doctorID,
		"scheduledAt": s.now,
		"reason":      "Too late",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "past_date", env.Reason)
}

func TestListIsScopedOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.book(t, s.token(t, patientID, models.RolePatient))

	code, env := s.do(t, http.MethodGet, "/api/v1/appointments?status=pending&search=annual", s.token(t, adminID, models.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, code)
	var all []models.Appointment
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Len(t, all, 1)

	code, env = s.do(t, http.MethodGet, "/api/v1/appointments", s.token(t, "someone-else", models.RolePatient), nil)
	require.Equal(t, http.StatusOK, code)
	var none []models.Appointment
	require.NoError(t, json.Unmarshal(env.Data, &none))
	assert.Empty(t, none)

	code, env = s.do(t, http.MethodGet, "/api/v1/appointments?status=archived", s.token(t, adminID, models.RoleAdmin), nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", env.Kind)

	code, env = s.do(t, http.MethodGet, "/api/v1/appointments/stats", s.token(t, adminID, models.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, code)
	var stats services.AppointmentStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.HighPriority)
}

func TestScheduleUpsertOverHTTP(t *testing.T) {
	s := newTestServer(t)
	doctor := s.token(t, doctorID, models.RoleDoctor)
	path := "/api/v1/doctors/" + doctorID + "/schedule"

	code, env := s.do(t, http.MethodPut, path, doctor, gin.H{"dayOfWeek": "Monday", "startTime": "09:00", "endTime": "17:00"})
	require.Equal(t, http.StatusOK, code, env.Error)
	code, env = s.do(t, http.MethodPut, path, doctor, gin.H{"dayOfWeek": "monday", "startTime": "10:00", "endTime": "18:00", "isAvailable": true})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = s.do(t, http.MethodPut, path, doctor, gin.H{"dayOfWeek": "monday", "startTime": "18:00", "endTime": "10:00"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_window", env.Reason)

	code, env = s.do(t, http.MethodPut, path, s.token(t, patientID, models.RolePatient), gin.H{"dayOfWeek": "monday", "startTime": "08:00", "endTime": "09:00"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, http.MethodGet, path, s.token(t, patientID, models.RolePatient), nil)
	require.Equal(t, http.StatusOK, code)
	var windows []models.DoctorSchedule
	require.NoError(t, json.Unmarshal(env.Data, &windows))
	require.Len(t, windows, 1)
	assert.Equal(t, "10:00", windows[0].StartTime.String())
	assert.Equal(t, "18:00", windows[0].EndTime.String())
}

func TestSpecialtiesOverHTTP(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodGet, "/api/v1/doctors/specialties", s.token(t, patientID, models.RolePatient), nil)
	require.Equal(t, http.StatusOK, code, env.Error)

	var got []services.SpecialtyCount
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, []services.SpecialtyCount{{Specialty: "general", Doctors: 1, Available: 1}}, got)
}

func TestUnknownRoleTokenSeesNothing(t *testing.T) {
	s := newTestServer(t)
	s.book(t, s.token(t, patientID, models.RolePatient))

	code, env := s.do(t, http.MethodGet, "/api/v1/appointments", s.token(t, patientID, models.Role("nurse")), nil)
	require.Equal(t, http.StatusOK, code)
	var got []models.Appointment
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Empty(t, got)
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(t, http.MethodGet, "/api/v1/appointments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
