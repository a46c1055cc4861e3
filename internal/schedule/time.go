package schedule

import (
	"fmt"
	"time"
)

// Range is a half-open [Start, End) interval in minutes of day.
type Range struct {
	Start int
	End   int
}

// Overlaps reports whether two half-open ranges intersect. An interval
// ending exactly where another starts does not overlap it.
func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

func (r Range) Valid() bool {
	return r.Start >= 0 && r.End <= 24*60 && r.Start < r.End
}

// ToMinutes parses "HH:MM" into minutes since midnight.
func ToMinutes(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return h*60 + m, nil
}

// FromMinutes renders minutes since midnight as 24-hour "HH:MM".
func FromMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Format12h renders minutes since midnight as "H:MM AM" / "H:MM PM".
func Format12h(m int) string {
	h := m / 60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m%60, suffix)
}

// WeekdayOf returns the weekday of t with 0=Sunday.
func WeekdayOf(t time.Time) int {
	return int(t.Weekday())
}

// MinuteOfDay returns minutes since local midnight for t.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// SameDay reports whether a and b fall on the same local calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateOnly truncates t to local midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
