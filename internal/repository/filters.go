package repository

import (
	"strings"

	"clinic-appointments-server/internal/models"
)

// Filter is one predicate over appointments. Filters in a query are ANDed.
// Every implementation is translated to SQL by the GORM repository and
// evaluated directly by in-memory stores.
type Filter interface {
	Matches(a *models.Appointment) bool
}

// MatchNone selects nothing; scopes fail closed with it.
type MatchNone struct{}

type PatientIs struct{ ID string }

type DoctorIs struct{ ID string }

type StatusEquals struct{ Status models.AppointmentStatus }

type PriorityEquals struct{ Priority models.Priority }

// PriorityIn matches any of the listed priorities.
type PriorityIn struct{ Priorities []models.Priority }

// TextContains is a case-insensitive substring match over reason and description.
type TextContains struct{ Text string }

func (MatchNone) Matches(*models.Appointment) bool { return false }

func (f PatientIs) Matches(a *models.Appointment) bool { return a.PatientID == f.ID }

func (f DoctorIs) Matches(a *models.Appointment) bool { return a.DoctorID == f.ID }

func (f StatusEquals) Matches(a *models.Appointment) bool { return a.Status == f.Status }

func (f PriorityEquals) Matches(a *models.Appointment) bool { return a.Priority == f.Priority }

func (f PriorityIn) Matches(a *models.Appointment) bool {
	for _, p := range f.Priorities {
		if a.Priority == p {
			return true
		}
	}
	return false
}

func (f TextContains) Matches(a *models.Appointment) bool {
	needle := strings.ToLower(f.Text)
	return strings.Contains(strings.ToLower(a.Reason), needle) ||
		strings.Contains(strings.ToLower(a.Description), needle)
}

// MatchesAll evaluates a filter list against one appointment.
func MatchesAll(filters []Filter, a *models.Appointment) bool {
	for _, f := range filters {
		if !f.Matches(a) {
			return false
		}
	}
	return true
}

// likePattern escapes LIKE wildcards in s and wraps it for substring search.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
