package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/clinicdesk/scheduling/internal/billing"
	redisclient "github.com/clinicdesk/scheduling/internal/redis"
	"github.com/clinicdesk/scheduling/internal/schedule"
)

const (
	EventAppointmentCreated     = "APPOINTMENT_CREATED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventStatusChanged          = "APPOINTMENT_STATUS_CHANGED"
	EventNoShowSwept            = "APPOINTMENT_NO_SHOW_SWEPT"
)

var (
	ErrDayBeingBooked          = errors.New("doctor's day is currently being booked, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// ValidationError keeps the booking attempt in its draft: the caller fixes
// the field and resubmits.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// ConflictError reports the first overlapping appointment. The prose form
// mirrors what older clients parse out of the response body.
type ConflictError struct {
	Conflict schedule.Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("the selected time is already booked. Conflicting appointments: %s", e.Conflict.String())
}

type BookingRequest struct {
	PatientID   uuid.UUID
	DoctorID    uuid.UUID
	Type        string
	Mode        Mode
	Date        time.Time
	StartMinute int
	Duration    int // 0 means the doctor's configured slot duration
	Priority    Priority
	Reason      string
	Notes       string
	Force       bool
}

// Booking is the outcome of a successful creation: the appointment and its
// freshly bound, unapproved invoice.
type Booking struct {
	Appointment *Appointment
	Invoice     *billing.Invoice
}

// DaySlots bundles the availability inputs for a doctor-date with the
// computed bookable starts, so clients can render both.
type DaySlots struct {
	Day          schedule.DayAvailability
	Appointments []Detail
	SlotDuration int
	Starts       []int
}

type Service struct {
	repo       Repository
	billing    billing.Repository
	sched      schedule.Repository
	locker     redisclient.Locker
	log        *zap.Logger
	defaultFee decimal.Decimal
	now        func() time.Time
}

func NewService(repo Repository, billingRepo billing.Repository, schedRepo schedule.Repository,
	locker redisclient.Locker, log *zap.Logger, defaultFee decimal.Decimal) *Service {
	return &Service{
		repo:       repo,
		billing:    billingRepo,
		sched:      schedRepo,
		locker:     locker,
		log:        log,
		defaultFee: defaultFee,
		now:        time.Now,
	}
}

// WithNow overrides the clock; slot generation and past-date checks use it.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

func toBooked(details []Detail, exclude uuid.UUID) []schedule.Booked {
	booked := make([]schedule.Booked, 0, len(details))
	for _, d := range details {
		if d.ID == exclude {
			continue
		}
		booked = append(booked, schedule.Booked{
			StartMinute: d.StartMinute,
			Duration:    d.Duration,
			PatientName: d.PatientName,
			Type:        d.Type,
			Cancelled:   d.Status == StatusCancelled,
		})
	}
	return booked
}

// SlotsForDay resolves availability for a doctor-date and generates the
// bookable starts for the requested duration (0 = the day's slot duration).
func (s *Service) SlotsForDay(ctx context.Context, doctorID uuid.UUID, date time.Time, duration int) (*DaySlots, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	day, err := schedule.DayFor(ctx, s.sched, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}

	details, err := s.repo.ListByDoctorDate(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	if duration <= 0 {
		duration = day.SlotDuration()
	}

	now := s.now()
	req := schedule.SlotRequest{
		Duration:  duration,
		Today:     schedule.SameDay(date, now),
		NowMinute: schedule.MinuteOfDay(now),
	}
	starts := schedule.AvailableStarts(day, schedule.BusyRanges(toBooked(details, uuid.Nil)), req)

	return &DaySlots{
		Day:          day,
		Appointments: details,
		SlotDuration: day.SlotDuration(),
		Starts:       starts,
	}, nil
}

// CheckConflict is the advisory pre-submit check. The authoritative check
// runs again inside the booking lock; the server-side result always wins.
func (s *Service) CheckConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, startMinute, duration int) (*schedule.Conflict, error) {
	details, err := s.repo.ListByDoctorDate(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	return schedule.DetectConflict(toBooked(details, uuid.Nil), startMinute, duration), nil
}

func (s *Service) validate(req *BookingRequest) error {
	if req.PatientID == uuid.Nil {
		return invalid("patient_id", "patient is required")
	}
	if req.DoctorID == uuid.Nil {
		return invalid("doctor_id", "doctor is required")
	}
	if req.Type == "" {
		return invalid("type", "appointment type is required")
	}
	if req.Reason == "" {
		return invalid("reason", "reason is required")
	}
	if req.Duration < 0 {
		return invalid("duration", "duration must be positive")
	}
	if req.StartMinute < 0 || req.StartMinute >= 24*60 {
		return invalid("time", "start time out of range")
	}

	now := s.now()
	day := schedule.DateOnly(req.Date)
	if day.Before(schedule.DateOnly(now)) {
		return invalid("date", "date must not be in the past")
	}
	if schedule.SameDay(req.Date, now) && req.StartMinute <= schedule.MinuteOfDay(now) {
		return invalid("time", "time is in the past")
	}

	switch req.Mode {
	case "":
		req.Mode = ModeInPerson
	case ModeInPerson, ModeVirtual:
	default:
		return invalid("mode", "unknown mode")
	}

	switch req.Priority {
	case "":
		req.Priority = PriorityNormal
	case PriorityNormal, PriorityHigh:
	default:
		return invalid("priority", "unknown priority")
	}

	return nil
}

// Book validates the draft, then creates the appointment and its invoice
// under the doctor-day lock. Unless the caller forces past a conflict, the
// occupancy check re-runs inside the critical section; the chosen time must
// also lie within the doctor's effective windows.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Booking, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	patient, err := s.repo.GetPatientByID(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	doctor, err := s.repo.GetDoctorByID(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	day, err := schedule.DayFor(ctx, s.sched, req.DoctorID, req.Date)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	if req.Duration == 0 {
		req.Duration = day.SlotDuration()
	}

	if !req.Force && !withinWindows(day, req.StartMinute, req.Duration) {
		return nil, invalid("time", "selected time is not a bookable slot for this doctor")
	}

	amount, err := s.billing.FeeForDoctor(ctx, req.DoctorID)
	if err != nil {
		if !errors.Is(err, billing.ErrFeeNotFound) {
			return nil, fmt.Errorf("load doctor fee: %w", err)
		}
		amount = s.defaultFee
	}

	var booking *Booking

	err = s.locker.WithBookingLock(ctx, req.DoctorID, req.Date, func(lockCtx context.Context) error {
		details, err := s.repo.ListByDoctorDate(lockCtx, req.DoctorID, req.Date)
		if err != nil {
			return fmt.Errorf("load appointments: %w", err)
		}

		if !req.Force {
			if c := schedule.DetectConflict(toBooked(details, uuid.Nil), req.StartMinute, req.Duration); c != nil {
				return &ConflictError{Conflict: *c}
			}
		}

		appt := &Appointment{
			PatientID:    req.PatientID,
			DoctorID:     req.DoctorID,
			Type:         req.Type,
			Mode:         req.Mode,
			Date:         schedule.DateOnly(req.Date),
			StartMinute:  req.StartMinute,
			Duration:     req.Duration,
			Priority:     req.Priority,
			Reason:       req.Reason,
			Notes:        req.Notes,
			ForceCreated: req.Force,
		}
		inv := &billing.Invoice{Amount: amount}

		if err := s.repo.CreateWithInvoice(lockCtx, appt, inv); err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		booking = &Booking{Appointment: appt, Invoice: inv}

		s.logEvent(lockCtx, appt.ID, EventAppointmentCreated, map[string]any{
			"patient_id":    patient.ID.String(),
			"doctor_id":     doctor.ID.String(),
			"date":          appt.Date.Format("2006-01-02"),
			"time":          schedule.FromMinutes(appt.StartMinute),
			"invoice_id":    inv.ID.String(),
			"force_created": appt.ForceCreated,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrDayBeingBooked
		}
		return nil, err
	}

	return booking, nil
}

// withinWindows accepts only starts the slot generator could emit: the span
// must fit an effective window and the start must sit on the stride grid
// anchored at that window's start.
func withinWindows(day schedule.DayAvailability, start, duration int) bool {
	stride := day.SlotDuration()
	for _, w := range day.EffectiveWindows() {
		if start >= w.Start && start+duration <= w.End && (start-w.Start)%stride == 0 {
			return true
		}
	}
	return false
}

// Reschedule moves an appointment to a new date/time. Conflict detection
// re-runs on the new slot (minus the appointment itself); identity and
// invoice linkage are preserved and the status resets to scheduled.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, date time.Time, startMinute int, force bool) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, ErrInvalidStatusTransition
	}

	now := s.now()
	if schedule.DateOnly(date).Before(schedule.DateOnly(now)) {
		return nil, invalid("date", "date must not be in the past")
	}

	var updated *Appointment

	err = s.locker.WithBookingLock(ctx, appt.DoctorID, date, func(lockCtx context.Context) error {
		details, err := s.repo.ListByDoctorDate(lockCtx, appt.DoctorID, date)
		if err != nil {
			return fmt.Errorf("load appointments: %w", err)
		}

		if !force {
			if c := schedule.DetectConflict(toBooked(details, appt.ID), startMinute, appt.Duration); c != nil {
				return &ConflictError{Conflict: *c}
			}
		}

		updated, err = s.repo.UpdateSchedule(lockCtx, id, date, startMinute, appt.Duration)
		if err != nil {
			return fmt.Errorf("reschedule appointment: %w", err)
		}

		s.logEvent(lockCtx, id, EventAppointmentRescheduled, map[string]any{
			"from_date": appt.Date.Format("2006-01-02"),
			"from_time": schedule.FromMinutes(appt.StartMinute),
			"to_date":   schedule.DateOnly(date).Format("2006-01-02"),
			"to_time":   schedule.FromMinutes(startMinute),
			"forced":    force,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrDayBeingBooked
		}
		return nil, err
	}

	return updated, nil
}

// UpdateStatus drives the post-creation lifecycle with guarded transitions.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	if !to.Valid() {
		return nil, invalid("status", "unknown status")
	}

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(appt.Status, to) {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, id, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race with another transition.
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.logEvent(ctx, id, EventStatusChanged, map[string]any{
		"from": string(appt.Status),
		"to":   string(to),
	})

	return updated, nil
}

// Get retrieves a fully hydrated appointment by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	detail, err := s.repo.GetDetailByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// List applies the filter/sort/pagination view model over the working set.
func (s *Service) List(ctx context.Context, q ListQuery) (*Page, error) {
	details, err := s.repo.ListDetails(ctx, ListFilter{DoctorID: q.DoctorID})
	if err != nil {
		return nil, fmt.Errorf("load working set: %w", err)
	}
	page := Apply(details, q, s.now())
	return &page, nil
}

// SweepNoShows marks past-dated open appointments as no-show. Intended to be
// called by the worker periodically.
func (s *Service) SweepNoShows(ctx context.Context) (int, error) {
	stale, err := s.repo.FindPastOpen(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("find past open appointments: %w", err)
	}

	swept := 0
	for _, appt := range stale {
		if _, err := s.repo.UpdateStatus(ctx, appt.ID, appt.Status, StatusNoShow); err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				continue
			}
			s.log.Warn("failed to sweep appointment",
				zap.String("appointment_id", appt.ID.String()),
				zap.Error(err))
			continue
		}
		swept++
		s.logEvent(ctx, appt.ID, EventNoShowSwept, map[string]any{
			"date": appt.Date.Format("2006-01-02"),
		})
	}

	return swept, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("failed to marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Warn("failed to insert event log",
			zap.String("event", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err))
	}
}
