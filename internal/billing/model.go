package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceUnapproved InvoiceStatus = "unapproved"
	InvoiceApproved   InvoiceStatus = "approved"
)

type PaymentMethod string

const (
	MethodOnline PaymentMethod = "online"
	MethodCash   PaymentMethod = "cash"
)

// Invoice is the 1:1 billing record of an appointment. Status only ever
// moves unapproved -> approved, and the payment method is written once,
// together with the approval.
type Invoice struct {
	ID            uuid.UUID
	Number        string // human-readable, INV-YYYYMM-NNNN
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	Amount        decimal.Decimal
	Status        InvoiceStatus
	PaymentMethod *PaymentMethod
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (i *Invoice) Approved() bool {
	return i.Status == InvoiceApproved
}

// DoctorFee is the configured appointment fee for a doctor. Doctors without
// a row fall back to the clinic default.
type DoctorFee struct {
	DoctorID  uuid.UUID
	Amount    decimal.Decimal
	UpdatedAt time.Time
}
