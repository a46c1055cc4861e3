package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/scheduling/internal/billing"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// ListFilter narrows ListDetails to a doctor's own appointments; the zero
// value lists the whole clinic working set.
type ListFilter struct {
	DoctorID *uuid.UUID
}

// Repository contains all DB interactions needed by the booking service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetDetailByID(ctx context.Context, id uuid.UUID) (*Detail, error)

	// ListByDoctorDate returns every appointment (any status) on the
	// doctor-date, with names joined, ordered by start time. Conflict
	// detection and slot generation filter cancelled ones themselves.
	ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Detail, error)

	// ListDetails returns the working set for listing and filtering.
	ListDetails(ctx context.Context, filter ListFilter) ([]Detail, error)

	// CreateWithInvoice persists the appointment and its invoice in one
	// transaction; exactly one invoice exists per created appointment.
	CreateWithInvoice(ctx context.Context, a *Appointment, inv *billing.Invoice) error

	// UpdateStatus performs a guarded from -> to transition.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// UpdateSchedule moves an appointment to a new date/time, resetting its
	// status to scheduled. Identity and invoice linkage are untouched.
	UpdateSchedule(ctx context.Context, id uuid.UUID, date time.Time, startMinute, duration int) (*Appointment, error)

	// FindPastOpen returns scheduled/confirmed appointments dated before
	// the given day, for the no-show sweep.
	FindPastOpen(ctx context.Context, before time.Time) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
