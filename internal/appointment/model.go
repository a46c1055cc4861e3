package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

type Mode string

const (
	ModeInPerson Mode = "in_person"
	ModeVirtual  Mode = "virtual"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Terminal reports whether a status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// CanTransition encodes the post-creation lifecycle: the forward chain
// scheduled -> confirmed -> in_progress -> completed, plus cancelled and
// no_show from any non-terminal state.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case StatusCancelled, StatusNoShow:
		return true
	case StatusConfirmed:
		return from == StatusScheduled
	case StatusInProgress:
		return from == StatusConfirmed
	case StatusCompleted:
		return from == StatusInProgress
	}
	return false
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	ClinicID  uuid.UUID
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID           uuid.UUID
	PatientID    uuid.UUID
	DoctorID     uuid.UUID
	Type         string
	Mode         Mode
	Date         time.Time // local midnight of the appointment day
	StartMinute  int
	Duration     int // minutes
	Priority     Priority
	Reason       string
	Notes        string
	Status       Status
	ForceCreated bool // a conflict override was requested at creation
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a *Appointment) EndMinute() int {
	return a.StartMinute + a.Duration
}

// Detail is an appointment joined with the names that listing, search and
// conflict reporting need.
type Detail struct {
	Appointment
	PatientName string
	DoctorName  string
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
