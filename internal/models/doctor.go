package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Doctor is the practitioner profile of a doctor user. Its ID is the owning user's ID.
type Doctor struct {
	ID                string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Specialty         string          `gorm:"size:50;index" json:"specialty"`
	HospitalName      string          `gorm:"size:255" json:"hospitalName,omitempty"`
	ConsultationFee   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"consultationFee"`
	IsAvailable       bool            `gorm:"not null;default:true" json:"isAvailable"`
	YearsOfExperience int             `gorm:"default:0" json:"yearsOfExperience"`
	Bio               string          `gorm:"type:text" json:"bio,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`

	User      User             `gorm:"foreignKey:ID;references:ID" json:"user"`
	Schedules []DoctorSchedule `gorm:"foreignKey:DoctorID" json:"schedules,omitempty"`
}

// DoctorProfileUpdate carries the mutable doctor fields; nil means unchanged.
type DoctorProfileUpdate struct {
	ConsultationFee *decimal.Decimal
	IsAvailable     *bool
}

// DoctorFilter narrows the doctor directory listing.
type DoctorFilter struct {
	Specialty     string
	AvailableOnly bool
}
