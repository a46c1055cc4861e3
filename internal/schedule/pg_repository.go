package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

type breakRow struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func encodeBreaks(breaks []Range) ([]byte, error) {
	rows := make([]breakRow, 0, len(breaks))
	for _, b := range breaks {
		rows = append(rows, breakRow{Start: b.Start, End: b.End})
	}
	return json.Marshal(rows)
}

func decodeBreaks(data []byte) ([]Range, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var rows []breakRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode breaks: %w", err)
	}
	breaks := make([]Range, 0, len(rows))
	for _, r := range rows {
		breaks = append(breaks, Range{Start: r.Start, End: r.End})
	}
	return breaks, nil
}

func scanWeekly(row pgx.Row) (*WeeklySlot, error) {
	var w WeeklySlot
	err := row.Scan(
		&w.ID,
		&w.DoctorID,
		&w.DayOfWeek,
		&w.StartMinute,
		&w.EndMinute,
		&w.SlotDuration,
		&w.Active,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWeeklySlotNotFound
		}
		return nil, err
	}
	return &w, nil
}

func scanException(row pgx.Row) (*Exception, error) {
	var e Exception
	var breaks []byte

	err := row.Scan(
		&e.ID,
		&e.DoctorID,
		&e.Date,
		&e.Type,
		&e.StartMinute,
		&e.EndMinute,
		&breaks,
		&e.Active,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExceptionNotFound
		}
		return nil, err
	}

	e.Breaks, err = decodeBreaks(breaks)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Interface methods

func (r *PgRepository) ListWeekly(ctx context.Context, doctorID uuid.UUID) ([]WeeklySlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, day_of_week, start_minute, end_minute, slot_duration, active, created_at, updated_at
		FROM weekly_slots
		WHERE doctor_id = $1
		ORDER BY day_of_week, start_minute
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWeekly(rows)
}

func (r *PgRepository) ActiveWeeklyForDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) ([]WeeklySlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, day_of_week, start_minute, end_minute, slot_duration, active, created_at, updated_at
		FROM weekly_slots
		WHERE doctor_id = $1
		  AND day_of_week = $2
		  AND active
		ORDER BY start_minute
	`, doctorID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWeekly(rows)
}

func collectWeekly(rows pgx.Rows) ([]WeeklySlot, error) {
	var result []WeeklySlot
	for rows.Next() {
		w, err := scanWeekly(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) ActiveExceptionOn(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Exception, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, date, type, start_minute, end_minute, breaks, active, created_at, updated_at
		FROM schedule_exceptions
		WHERE doctor_id = $1
		  AND date = $2
		  AND active
		LIMIT 1
	`, doctorID, DateOnly(date))
	return scanException(row)
}

func (r *PgRepository) CreateWeekly(ctx context.Context, slot *WeeklySlot) error {
	if err := slot.Validate(); err != nil {
		return err
	}

	// Reject overlap with an existing active slot on the same doctor-day.
	existing, err := r.ActiveWeeklyForDay(ctx, slot.DoctorID, slot.DayOfWeek)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if slot.Active && slot.Window().Overlaps(other.Window()) {
			return ErrWeeklySlotOverlap
		}
	}

	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO weekly_slots (id, doctor_id, day_of_week, start_minute, end_minute, slot_duration, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at
	`, slot.ID, slot.DoctorID, slot.DayOfWeek, slot.StartMinute, slot.EndMinute, slot.SlotDuration, slot.Active)

	return row.Scan(&slot.CreatedAt, &slot.UpdatedAt)
}

func (r *PgRepository) CreateException(ctx context.Context, ex *Exception) error {
	if err := ex.Validate(); err != nil {
		return err
	}
	if ex.ID == uuid.Nil {
		ex.ID = uuid.New()
	}

	breaks, err := encodeBreaks(ex.Breaks)
	if err != nil {
		return fmt.Errorf("encode breaks: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// At most one active exception per doctor-date: a new active exception
	// supersedes any previous one.
	if ex.Active {
		if _, err := tx.Exec(ctx, `
			UPDATE schedule_exceptions
			SET active = false, updated_at = now()
			WHERE doctor_id = $1 AND date = $2 AND active
		`, ex.DoctorID, DateOnly(ex.Date)); err != nil {
			return err
		}
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO schedule_exceptions (id, doctor_id, date, type, start_minute, end_minute, breaks, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING created_at, updated_at
	`, ex.ID, ex.DoctorID, DateOnly(ex.Date), ex.Type, ex.StartMinute, ex.EndMinute, breaks, ex.Active)

	if err := row.Scan(&ex.CreatedAt, &ex.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
