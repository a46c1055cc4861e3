package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultSlotDuration is used when a doctor has no active weekly slot
// configured for the requested weekday.
const DefaultSlotDuration = 30

type ExceptionType string

const (
	ExceptionUnavailable ExceptionType = "unavailable"
	ExceptionCustomHours ExceptionType = "custom_hours"
)

// WeeklySlot is one contiguous availability window in a doctor's weekly
// pattern. A doctor expresses breaks in the weekly pattern by configuring
// multiple disjoint slots for the same day.
type WeeklySlot struct {
	ID           uuid.UUID
	DoctorID     uuid.UUID
	DayOfWeek    int // 0=Sunday .. 6=Saturday
	StartMinute  int
	EndMinute    int
	SlotDuration int // minutes; the stride for candidate starts
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (w WeeklySlot) Window() Range {
	return Range{Start: w.StartMinute, End: w.EndMinute}
}

func (w WeeklySlot) Validate() error {
	if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
		return fmt.Errorf("day_of_week %d out of range", w.DayOfWeek)
	}
	if !w.Window().Valid() {
		return fmt.Errorf("window %s-%s invalid", FromMinutes(w.StartMinute), FromMinutes(w.EndMinute))
	}
	if w.SlotDuration <= 0 {
		return errors.New("slot_duration must be positive")
	}
	if (w.EndMinute-w.StartMinute)%w.SlotDuration != 0 {
		return fmt.Errorf("slot_duration %d does not divide window %s-%s",
			w.SlotDuration, FromMinutes(w.StartMinute), FromMinutes(w.EndMinute))
	}
	return nil
}

// Exception overrides a doctor's weekly pattern for a single calendar day.
// An unavailable exception removes the day entirely; a custom_hours exception
// replaces the weekly windows with one window minus its breaks.
type Exception struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	Date        time.Time // local midnight
	Type        ExceptionType
	StartMinute int // custom_hours only
	EndMinute   int // custom_hours only
	Breaks      []Range
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (e Exception) Window() Range {
	return Range{Start: e.StartMinute, End: e.EndMinute}
}

func (e Exception) Validate() error {
	switch e.Type {
	case ExceptionUnavailable:
		return nil
	case ExceptionCustomHours:
	default:
		return fmt.Errorf("unknown exception type %q", e.Type)
	}
	if !e.Window().Valid() {
		return fmt.Errorf("custom hours %s-%s invalid", FromMinutes(e.StartMinute), FromMinutes(e.EndMinute))
	}
	for i, b := range e.Breaks {
		if !b.Valid() || b.Start < e.StartMinute || b.End > e.EndMinute {
			return fmt.Errorf("break %s-%s outside custom hours", FromMinutes(b.Start), FromMinutes(b.End))
		}
		for _, other := range e.Breaks[i+1:] {
			if b.Overlaps(other) {
				return fmt.Errorf("breaks %s-%s and %s-%s overlap",
					FromMinutes(b.Start), FromMinutes(b.End), FromMinutes(other.Start), FromMinutes(other.End))
			}
		}
	}
	return nil
}

// DayAvailability is everything needed to resolve a doctor's bookable
// windows on one date: the active weekly slots for that weekday and the
// single active exception, if any.
type DayAvailability struct {
	Date      time.Time
	Weekly    []WeeklySlot
	Exception *Exception
}
