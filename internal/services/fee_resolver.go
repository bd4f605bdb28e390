package services

import (
	"github.com/shopspring/decimal"

	"clinic-appointments-server/internal/models"
)

// FeeResolver picks the fee snapshot stored on a new appointment.
type FeeResolver struct{}

// Resolve returns explicit unchanged when given, otherwise a copy of the
// doctor's current consultation fee.
func (FeeResolver) Resolve(explicit *decimal.Decimal, doctor *models.Doctor) decimal.Decimal {
	if explicit != nil {
		return *explicit
	}
	return doctor.ConsultationFee.Copy()
}
