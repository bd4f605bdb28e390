package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Priority of an appointment request
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Appointment represents a booking request and its lifecycle.
// Fee is a snapshot taken at creation and is never recomputed.
type Appointment struct {
	BaseModel
	PatientID           string            `gorm:"size:36;not null;index:idx_patient_status" json:"patientId"`
	DoctorID            string            `gorm:"size:36;not null;index:idx_doctor_status" json:"doctorId"`
	ScheduledAt         time.Time         `gorm:"not null;index" json:"scheduledAt"`
	Reason              string            `gorm:"size:200;not null" json:"reason"`
	Description         string            `gorm:"type:text" json:"description,omitempty"`
	Priority            Priority          `gorm:"size:20;not null;default:'normal'" json:"priority"`
	Status              AppointmentStatus `gorm:"size:20;not null;default:'pending';index:idx_patient_status;index:idx_doctor_status" json:"status"`
	Fee                 decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"fee"`
	ConfirmedAt         *time.Time        `json:"confirmedAt"`
	RejectedAt          *time.Time        `json:"rejectedAt"`
	RejectionReason     *string           `gorm:"type:text" json:"rejectionReason"`
	PatientPhone        string            `gorm:"size:17" json:"patientPhone,omitempty"`
	PatientEmail        string            `gorm:"size:255" json:"patientEmail,omitempty"`
	PatientHistoryNotes string            `gorm:"type:text" json:"patientHistoryNotes,omitempty"`
}

// StatusChange is the column set written by a single transition.
type StatusChange struct {
	To              AppointmentStatus
	At              time.Time
	ConfirmedAt     *time.Time
	RejectedAt      *time.Time
	RejectionReason *string
}

// Apply mutates a in memory exactly as the persisted update would.
func (c StatusChange) Apply(a *Appointment) {
	a.Status = c.To
	a.UpdatedAt = c.At
	if c.ConfirmedAt != nil {
		a.ConfirmedAt = c.ConfirmedAt
	}
	if c.RejectedAt != nil {
		a.RejectedAt = c.RejectedAt
		a.RejectionReason = c.RejectionReason
	}
}

// Columns returns the update map for a conditional UPDATE.
func (c StatusChange) Columns() map[string]any {
	cols := map[string]any{
		"status":     c.To,
		"updated_at": c.At,
	}
	if c.ConfirmedAt != nil {
		cols["confirmed_at"] = *c.ConfirmedAt
	}
	if c.RejectedAt != nil {
		cols["rejected_at"] = *c.RejectedAt
		cols["rejection_reason"] = *c.RejectionReason
	}
	return cols
}
