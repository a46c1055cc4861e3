package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/scheduling/internal/billing"
	"github.com/clinicdesk/scheduling/internal/schedule"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&d.ClinicID,
		&d.Active,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

const appointmentColumns = `id, patient_id, doctor_id, type, mode, date, start_minute, duration, priority, reason, notes, status, force_created, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Type,
		&a.Mode,
		&a.Date,
		&a.StartMinute,
		&a.Duration,
		&a.Priority,
		&a.Reason,
		&a.Notes,
		&a.Status,
		&a.ForceCreated,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail
	err := row.Scan(
		&d.ID,
		&d.PatientID,
		&d.DoctorID,
		&d.Type,
		&d.Mode,
		&d.Date,
		&d.StartMinute,
		&d.Duration,
		&d.Priority,
		&d.Reason,
		&d.Notes,
		&d.Status,
		&d.ForceCreated,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.PatientName,
		&d.DoctorName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &d, nil
}

const detailQuery = `
	SELECT a.id, a.patient_id, a.doctor_id, a.type, a.mode, a.date, a.start_minute, a.duration,
	       a.priority, a.reason, a.notes, a.status, a.force_created, a.created_at, a.updated_at,
	       p.name, d.name
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN doctors d ON d.id = a.doctor_id
`

func collectDetails(rows pgx.Rows) ([]Detail, error) {
	var result []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, clinic_id, active, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetDetailByID(ctx context.Context, id uuid.UUID) (*Detail, error) {
	row := r.pool.QueryRow(ctx, detailQuery+`WHERE a.id = $1`, id)
	return scanDetail(row)
}

func (r *PgRepository) ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE a.doctor_id = $1 AND a.date = $2
		ORDER BY a.start_minute
	`, doctorID, schedule.DateOnly(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) ListDetails(ctx context.Context, filter ListFilter) ([]Detail, error) {
	query := detailQuery
	args := []any{}
	if filter.DoctorID != nil {
		query += `WHERE a.doctor_id = $1` + "\n"
		args = append(args, *filter.DoctorID)
	}
	query += `ORDER BY a.date, a.start_minute`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) CreateWithInvoice(ctx context.Context, a *Appointment, inv *billing.Invoice) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, type, mode, date, start_minute, duration, priority, reason, notes, status, force_created, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'scheduled', $12, now(), now())
		RETURNING status, created_at, updated_at
	`, a.ID, a.PatientID, a.DoctorID, a.Type, a.Mode, schedule.DateOnly(a.Date), a.StartMinute,
		a.Duration, a.Priority, a.Reason, a.Notes, a.ForceCreated)

	if err := row.Scan(&a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	inv.AppointmentID = a.ID
	inv.PatientID = a.PatientID
	inv.DoctorID = a.DoctorID
	if err := billing.InsertInvoiceTx(ctx, tx, inv); err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateSchedule(ctx context.Context, id uuid.UUID, date time.Time, startMinute, duration int) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET date = $2,
		    start_minute = $3,
		    duration = $4,
		    status = 'scheduled',
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, schedule.DateOnly(date), startMinute, duration)

	return scanAppointment(row)
}

func (r *PgRepository) FindPastOpen(ctx context.Context, before time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE date < $1
		  AND status IN ('scheduled', 'confirmed')
	`, schedule.DateOnly(before))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
