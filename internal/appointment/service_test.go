package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clinicdesk/scheduling/internal/billing"
	"github.com/clinicdesk/scheduling/internal/schedule"
)

// In-memory fakes

type fakeRepo struct {
	patients     map[uuid.UUID]*Patient
	doctors      map[uuid.UUID]*Doctor
	appointments map[uuid.UUID]*Appointment
	invoices     map[uuid.UUID]*billing.Invoice // by appointment ID
	events       []EventLog
	nextInvoice  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		patients:     map[uuid.UUID]*Patient{},
		doctors:      map[uuid.UUID]*Doctor{},
		appointments: map[uuid.UUID]*Appointment{},
		invoices:     map[uuid.UUID]*billing.Invoice{},
	}
}

func (r *fakeRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

func (r *fakeRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return d, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *fakeRepo) detail(a *Appointment) Detail {
	d := Detail{Appointment: *a}
	if p, ok := r.patients[a.PatientID]; ok {
		d.PatientName = p.Name
	}
	if doc, ok := r.doctors[a.DoctorID]; ok {
		d.DoctorName = doc.Name
	}
	return d
}

func (r *fakeRepo) GetDetailByID(ctx context.Context, id uuid.UUID) (*Detail, error) {
	a, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := r.detail(a)
	return &d, nil
}

func (r *fakeRepo) ListByDoctorDate(_ context.Context, doctorID uuid.UUID, date time.Time) ([]Detail, error) {
	var out []Detail
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && schedule.SameDay(a.Date, date) {
			out = append(out, r.detail(a))
		}
	}
	return out, nil
}

func (r *fakeRepo) ListDetails(_ context.Context, filter ListFilter) ([]Detail, error) {
	var out []Detail
	for _, a := range r.appointments {
		if filter.DoctorID != nil && a.DoctorID != *filter.DoctorID {
			continue
		}
		out = append(out, r.detail(a))
	}
	return out, nil
}

func (r *fakeRepo) CreateWithInvoice(_ context.Context, a *Appointment, inv *billing.Invoice) error {
	a.ID = uuid.New()
	a.Status = StatusScheduled
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	stored := *a
	r.appointments[a.ID] = &stored

	r.nextInvoice++
	inv.ID = uuid.New()
	inv.Number = "INV-202603-000" + string(rune('0'+r.nextInvoice))
	inv.AppointmentID = a.ID
	inv.PatientID = a.PatientID
	inv.DoctorID = a.DoctorID
	inv.Status = billing.InvoiceUnapproved
	storedInv := *inv
	r.invoices[a.ID] = &storedInv
	return nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	copied := *a
	return &copied, nil
}

func (r *fakeRepo) UpdateSchedule(_ context.Context, id uuid.UUID, date time.Time, startMinute, duration int) (*Appointment, error) {
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.Date = schedule.DateOnly(date)
	a.StartMinute = startMinute
	a.Duration = duration
	a.Status = StatusScheduled
	copied := *a
	return &copied, nil
}

func (r *fakeRepo) FindPastOpen(_ context.Context, before time.Time) ([]Appointment, error) {
	var out []Appointment
	for _, a := range r.appointments {
		if a.Date.Before(schedule.DateOnly(before)) &&
			(a.Status == StatusScheduled || a.Status == StatusConfirmed) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.events = append(r.events, ev)
	return nil
}

type fakeBilling struct {
	fees map[uuid.UUID]decimal.Decimal
	repo *fakeRepo
}

func (b *fakeBilling) GetInvoiceByID(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
	for _, inv := range b.repo.invoices {
		if inv.ID == id {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, billing.ErrInvoiceNotFound
}

func (b *fakeBilling) GetInvoiceByAppointmentID(_ context.Context, appointmentID uuid.UUID) (*billing.Invoice, error) {
	inv, ok := b.repo.invoices[appointmentID]
	if !ok {
		return nil, billing.ErrInvoiceNotFound
	}
	copied := *inv
	return &copied, nil
}

func (b *fakeBilling) ApproveInvoice(_ context.Context, id uuid.UUID, method billing.PaymentMethod) (*billing.Invoice, error) {
	for _, inv := range b.repo.invoices {
		if inv.ID == id {
			if inv.Status == billing.InvoiceApproved {
				copied := *inv
				return &copied, billing.ErrAlreadyApproved
			}
			inv.Status = billing.InvoiceApproved
			inv.PaymentMethod = &method
			copied := *inv
			return &copied, nil
		}
	}
	return nil, billing.ErrInvoiceNotFound
}

func (b *fakeBilling) FeeForDoctor(_ context.Context, doctorID uuid.UUID) (decimal.Decimal, error) {
	fee, ok := b.fees[doctorID]
	if !ok {
		return decimal.Zero, billing.ErrFeeNotFound
	}
	return fee, nil
}

func (b *fakeBilling) UpsertFee(_ context.Context, fee *billing.DoctorFee) error {
	b.fees[fee.DoctorID] = fee.Amount
	return nil
}

type fakeSchedRepo struct {
	weekly    []schedule.WeeklySlot
	exception *schedule.Exception
}

func (s *fakeSchedRepo) ListWeekly(_ context.Context, _ uuid.UUID) ([]schedule.WeeklySlot, error) {
	return s.weekly, nil
}

func (s *fakeSchedRepo) ActiveWeeklyForDay(_ context.Context, _ uuid.UUID, dayOfWeek int) ([]schedule.WeeklySlot, error) {
	var out []schedule.WeeklySlot
	for _, w := range s.weekly {
		if w.DayOfWeek == dayOfWeek && w.Active {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *fakeSchedRepo) ActiveExceptionOn(_ context.Context, _ uuid.UUID, date time.Time) (*schedule.Exception, error) {
	if s.exception != nil && schedule.SameDay(s.exception.Date, date) && s.exception.Active {
		return s.exception, nil
	}
	return nil, schedule.ErrExceptionNotFound
}

func (s *fakeSchedRepo) CreateWeekly(_ context.Context, slot *schedule.WeeklySlot) error {
	s.weekly = append(s.weekly, *slot)
	return nil
}

func (s *fakeSchedRepo) CreateException(_ context.Context, ex *schedule.Exception) error {
	s.exception = ex
	return nil
}

type fakeLocker struct {
	held bool
}

func (l *fakeLocker) WithBookingLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	if l.held {
		return errors.New("booking lock not acquired")
	}
	return fn(ctx)
}

// Fixture

type fixture struct {
	svc       *Service
	repo      *fakeRepo
	billing   *fakeBilling
	sched     *fakeSchedRepo
	patientID uuid.UUID
	doctorID  uuid.UUID
	now       time.Time
	monday    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newFakeRepo()
	bill := &fakeBilling{fees: map[uuid.UUID]decimal.Decimal{}, repo: repo}
	sched := &fakeSchedRepo{}

	patientID := uuid.New()
	doctorID := uuid.New()
	repo.patients[patientID] = &Patient{ID: patientID, Name: "John Mathew"}
	repo.doctors[doctorID] = &Doctor{ID: doctorID, Name: "Dr. Asha Rao", Active: true}

	// Weekly availability: Monday 09:00-12:00, 30-minute slots.
	sched.weekly = []schedule.WeeklySlot{{
		ID: uuid.New(), DoctorID: doctorID, DayOfWeek: 1,
		StartMinute: 540, EndMinute: 720, SlotDuration: 30, Active: true,
	}}

	// Fixed clock: Monday 2026-03-02 08:00 local.
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.Local)

	svc := NewService(repo, bill, sched, &fakeLocker{}, zap.NewNop(), decimal.NewFromInt(500)).
		WithNow(func() time.Time { return now })

	return &fixture{
		svc:       svc,
		repo:      repo,
		billing:   bill,
		sched:     sched,
		patientID: patientID,
		doctorID:  doctorID,
		now:       now,
		monday:    schedule.DateOnly(now),
	}
}

func (f *fixture) bookingAt(startMinute int) BookingRequest {
	return BookingRequest{
		PatientID:   f.patientID,
		DoctorID:    f.doctorID,
		Type:        "Consultation",
		Date:        f.monday,
		StartMinute: startMinute,
		Reason:      "checkup",
	}
}

// Tests

func TestBookHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking, err := f.svc.Book(ctx, f.bookingAt(660)) // 11:00
	require.NoError(t, err)

	appt := booking.Appointment
	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, 660, appt.StartMinute)
	assert.Equal(t, 30, appt.Duration, "duration defaults to the doctor's slot duration")
	assert.False(t, appt.ForceCreated)

	inv := booking.Invoice
	require.NotNil(t, inv)
	assert.Equal(t, appt.ID, inv.AppointmentID)
	assert.Equal(t, billing.InvoiceUnapproved, inv.Status)
	assert.True(t, inv.Amount.Equal(decimal.NewFromInt(500)), "falls back to the default fee")
	assert.Nil(t, inv.PaymentMethod)
}

func TestBookUsesDoctorFee(t *testing.T) {
	f := newFixture(t)
	f.billing.fees[f.doctorID] = decimal.NewFromInt(900)

	booking, err := f.svc.Book(context.Background(), f.bookingAt(660))
	require.NoError(t, err)
	assert.True(t, booking.Invoice.Amount.Equal(decimal.NewFromInt(900)))
}

func TestBookConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, f.bookingAt(600)) // 10:00
	require.NoError(t, err)

	_, err = f.svc.Book(ctx, f.bookingAt(600))
	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, 600, cErr.Conflict.StartMinute)
	assert.Equal(t, 630, cErr.Conflict.EndMinute)
	assert.Equal(t, "John Mathew", cErr.Conflict.PatientName)
	assert.Contains(t, cErr.Error(), "Conflicting appointments: 10:00 - John Mathew (Consultation, 30 min)")
}

func TestBookForceOverridesConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, f.bookingAt(600))
	require.NoError(t, err)

	req := f.bookingAt(600)
	req.Force = true
	booking, err := f.svc.Book(ctx, req)
	require.NoError(t, err)
	assert.True(t, booking.Appointment.ForceCreated, "the override must be recorded for audit")
}

func TestBookValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		build func() BookingRequest
		field string
	}{
		{"missing reason", func() BookingRequest {
			r := f.bookingAt(660)
			r.Reason = ""
			return r
		}, "reason"},
		{"missing patient", func() BookingRequest {
			r := f.bookingAt(660)
			r.PatientID = uuid.Nil
			return r
		}, "patient_id"},
		{"missing type", func() BookingRequest {
			r := f.bookingAt(660)
			r.Type = ""
			return r
		}, "type"},
		{"past date", func() BookingRequest {
			r := f.bookingAt(660)
			r.Date = f.monday.AddDate(0, 0, -7)
			return r
		}, "date"},
		{"past time today", func() BookingRequest {
			r := f.bookingAt(420) // 07:00, now is 08:00
			return r
		}, "time"},
		{"outside availability", func() BookingRequest {
			r := f.bookingAt(780) // 13:00, window ends 12:00
			return r
		}, "time"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := f.svc.Book(ctx, c.build())
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, c.field, vErr.Field)
		})
	}
}

func TestBookRejectsOffStrideTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 09:15 is inside the 09:00-12:00 window but off the 30-minute grid, so
	// the generator would never offer it.
	_, err := f.svc.Book(ctx, f.bookingAt(555))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "time", vErr.Field)

	req := f.bookingAt(555)
	req.Force = true
	booking, err := f.svc.Book(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 555, booking.Appointment.StartMinute)
	assert.True(t, booking.Appointment.ForceCreated)
}

func TestBookUnknownPatient(t *testing.T) {
	f := newFixture(t)

	req := f.bookingAt(660)
	req.PatientID = uuid.New()
	_, err := f.svc.Book(context.Background(), req)
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestOccupancyDisjointWithoutForce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Book every free slot; each second attempt at an occupied one fails.
	for _, start := range []int{540, 570, 600} {
		_, err := f.svc.Book(ctx, f.bookingAt(start))
		require.NoError(t, err)

		_, err = f.svc.Book(ctx, f.bookingAt(start))
		var cErr *ConflictError
		require.ErrorAs(t, err, &cErr)
	}

	// All stored non-cancelled intervals are pairwise disjoint.
	var spans []schedule.Range
	for _, a := range f.repo.appointments {
		spans = append(spans, schedule.Range{Start: a.StartMinute, End: a.EndMinute()})
	}
	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			assert.False(t, spans[i].Overlaps(spans[j]), "spans %v and %v overlap", spans[i], spans[j])
		}
	}
}

func TestSlotsForDayExcludesBooked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, f.bookingAt(600)) // 10:00
	require.NoError(t, err)

	slots, err := f.svc.SlotsForDay(ctx, f.doctorID, f.monday, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{540, 570, 630, 660, 690}, slots.Starts)
	assert.Equal(t, 30, slots.SlotDuration)
}

func TestSlotsForDayCancelledFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking, err := f.svc.Book(ctx, f.bookingAt(600))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, booking.Appointment.ID, StatusCancelled)
	require.NoError(t, err)

	slots, err := f.svc.SlotsForDay(ctx, f.doctorID, f.monday, 0)
	require.NoError(t, err)
	assert.Contains(t, slots.Starts, 600, "cancelled appointments must not block slots")
}

func TestCheckConflictAdvisory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.CheckConflict(ctx, f.doctorID, f.monday, 600, 30)
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = f.svc.Book(ctx, f.bookingAt(600))
	require.NoError(t, err)

	c, err = f.svc.CheckConflict(ctx, f.doctorID, f.monday, 600, 30)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 600, c.StartMinute)
}

func TestStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking, err := f.svc.Book(ctx, f.bookingAt(660))
	require.NoError(t, err)
	id := booking.Appointment.ID

	// Forward chain.
	for _, to := range []Status{StatusConfirmed, StatusInProgress, StatusCompleted} {
		updated, err := f.svc.UpdateStatus(ctx, id, to)
		require.NoError(t, err)
		assert.Equal(t, to, updated.Status)
	}

	// Completed is terminal.
	_, err = f.svc.UpdateStatus(ctx, id, StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestStatusCannotSkipAhead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking, err := f.svc.Book(ctx, f.bookingAt(660))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, booking.Appointment.ID, StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestRescheduleReRunsConflictAndPreservesInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Book(ctx, f.bookingAt(600))
	require.NoError(t, err)
	second, err := f.svc.Book(ctx, f.bookingAt(660))
	require.NoError(t, err)

	// Moving the second onto the first conflicts.
	_, err = f.svc.Reschedule(ctx, second.Appointment.ID, f.monday, 600, false)
	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, first.Appointment.StartMinute, cErr.Conflict.StartMinute)

	// Moving to a free slot succeeds and keeps identity and invoice.
	updated, err := f.svc.Reschedule(ctx, second.Appointment.ID, f.monday, 690, false)
	require.NoError(t, err)
	assert.Equal(t, second.Appointment.ID, updated.ID)
	assert.Equal(t, 690, updated.StartMinute)

	inv := f.repo.invoices[second.Appointment.ID]
	require.NotNil(t, inv)
	assert.Equal(t, second.Invoice.ID, inv.ID)
}

func TestRescheduleResetsStatusToScheduled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking, err := f.svc.Book(ctx, f.bookingAt(600))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, booking.Appointment.ID, StatusConfirmed)
	require.NoError(t, err)

	updated, err := f.svc.Reschedule(ctx, booking.Appointment.ID, f.monday, 660, false)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, updated.Status)
}

func TestRescheduleOntoOwnSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking, err := f.svc.Book(ctx, f.bookingAt(600))
	require.NoError(t, err)

	// The appointment does not conflict with itself.
	_, err = f.svc.Reschedule(ctx, booking.Appointment.ID, f.monday, 600, false)
	require.NoError(t, err)
}

func TestRescheduleTerminalRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking, err := f.svc.Book(ctx, f.bookingAt(600))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, booking.Appointment.ID, StatusCancelled)
	require.NoError(t, err)

	_, err = f.svc.Reschedule(ctx, booking.Appointment.ID, f.monday, 660, false)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestSweepNoShows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking, err := f.svc.Book(ctx, f.bookingAt(600))
	require.NoError(t, err)

	// Time passes: the appointment's day is now behind us.
	f.svc.WithNow(func() time.Time { return f.now.AddDate(0, 0, 2) })

	swept, err := f.svc.SweepNoShows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	appt, err := f.svc.Get(ctx, booking.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, appt.Status)
}

func TestBookEmitsAuditEvent(t *testing.T) {
	f := newFixture(t)

	req := f.bookingAt(600)
	req.Force = true
	_, err := f.svc.Book(context.Background(), req)
	require.NoError(t, err)

	require.NotEmpty(t, f.repo.events)
	ev := f.repo.events[len(f.repo.events)-1]
	assert.Equal(t, EventAppointmentCreated, ev.EventType)
	assert.Contains(t, string(ev.Payload), `"force_created":true`)
}
