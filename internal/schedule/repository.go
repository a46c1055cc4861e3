package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrWeeklySlotNotFound = errors.New("weekly availability slot not found")
	ErrExceptionNotFound  = errors.New("schedule exception not found")
	ErrWeeklySlotOverlap  = errors.New("weekly availability slots overlap")
)

// Repository contains all DB interactions needed for availability.
type Repository interface {
	ListWeekly(ctx context.Context, doctorID uuid.UUID) ([]WeeklySlot, error)
	ActiveWeeklyForDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) ([]WeeklySlot, error)

	// ActiveExceptionOn returns the single active exception for the
	// doctor-date, or ErrExceptionNotFound.
	ActiveExceptionOn(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Exception, error)

	CreateWeekly(ctx context.Context, slot *WeeklySlot) error
	CreateException(ctx context.Context, ex *Exception) error
}

// DayFor assembles the availability inputs for one doctor-date.
func DayFor(ctx context.Context, repo Repository, doctorID uuid.UUID, date time.Time) (DayAvailability, error) {
	day := DayAvailability{Date: DateOnly(date)}

	weekly, err := repo.ActiveWeeklyForDay(ctx, doctorID, WeekdayOf(date))
	if err != nil {
		return day, err
	}
	day.Weekly = weekly

	ex, err := repo.ActiveExceptionOn(ctx, doctorID, date)
	if err != nil && !errors.Is(err, ErrExceptionNotFound) {
		return day, err
	}
	day.Exception = ex

	return day, nil
}
