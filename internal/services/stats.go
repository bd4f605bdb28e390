package services

import (
	"context"

	"clinic-appointments-server/internal/apperrors"
	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/repository"
)

// AppointmentStats summarises a scoped view.
type AppointmentStats struct {
	Total        int                              `json:"total"`
	ByStatus     map[models.AppointmentStatus]int `json:"byStatus"`
	HighPriority int                              `json:"highPriority"`
}

// DoctorStats is the doctor dashboard summary.
type DoctorStats struct {
	DoctorID          string `json:"doctorId"`
	TotalAppointments int    `json:"totalAppointments"`
	Today             int    `json:"todayAppointments"`
	Completed         int    `json:"completedAppointments"`
	Pending           int    `json:"pendingAppointments"`
	DistinctPatients  int    `json:"totalPatients"`
}

// Stats counts the requester's scoped appointments per status.
func (q *AppointmentQueries) Stats(ctx context.Context, requester models.Principal) (AppointmentStats, error) {
	appts, err := q.query(ctx, q.scoper.Scope(requester))
	if err != nil {
		return AppointmentStats{}, err
	}

	stats := AppointmentStats{ByStatus: make(map[models.AppointmentStatus]int, len(models.AllStatuses))}
	for _, s := range models.AllStatuses {
		stats.ByStatus[s] = 0
	}
	high := repository.PriorityIn{Priorities: []models.Priority{models.PriorityHigh, models.PriorityUrgent}}
	for i := range appts {
		stats.Total++
		stats.ByStatus[appts[i].Status]++
		if high.Matches(&appts[i]) {
			stats.HighPriority++
		}
	}
	return stats, nil
}

// DoctorDashboard summarises one doctor's book. Only that doctor or an admin
// may read it.
func (q *AppointmentQueries) DoctorDashboard(ctx context.Context, requester models.Principal, doctorID string) (DoctorStats, error) {
	if requester.Role != models.RoleAdmin && !(requester.Role == models.RoleDoctor && requester.ID == doctorID) {
		return DoctorStats{}, apperrors.Authorization("only the doctor or an admin may view this dashboard")
	}
	if err := q.settings.retry(ctx, func() error {
		_, err := q.doctors.GetByID(ctx, doctorID)
		return err
	}); err != nil {
		return DoctorStats{}, err
	}

	appts, err := q.query(ctx, []repository.Filter{repository.DoctorIs{ID: doctorID}})
	if err != nil {
		return DoctorStats{}, err
	}

	loc := q.settings.location()
	ty, tm, td := q.settings.now().In(loc).Date()
	patients := map[string]struct{}{}
	stats := DoctorStats{DoctorID: doctorID}
	for _, a := range appts {
		stats.TotalAppointments++
		patients[a.PatientID] = struct{}{}
		if y, m, d := a.ScheduledAt.In(loc).Date(); y == ty && m == tm && d == td {
			stats.Today++
		}
		switch a.Status {
		case models.StatusCompleted:
			stats.Completed++
		case models.StatusPending:
			stats.Pending++
		}
	}
	stats.DistinctPatients = len(patients)
	return stats, nil
}
