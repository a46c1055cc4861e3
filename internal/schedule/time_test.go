package schedule

import (
	"testing"
	"time"
)

func TestToMinutes(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:05", 545, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"09:60", 0, true},
		{"garbage", 0, true},
	}
	for _, c := range cases {
		got, err := ToMinutes(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ToMinutes(%q): expected error, got %d", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ToMinutes(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ToMinutes(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestFromMinutes(t *testing.T) {
	if got := FromMinutes(545); got != "09:05" {
		t.Errorf("FromMinutes(545) = %q, want 09:05", got)
	}
	if got := FromMinutes(0); got != "00:00" {
		t.Errorf("FromMinutes(0) = %q, want 00:00", got)
	}
}

func TestFormat12h(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "12:00 AM"},
		{545, "9:05 AM"},
		{720, "12:00 PM"},
		{750, "12:30 PM"},
		{810, "1:30 PM"},
		{1439, "11:59 PM"},
	}
	for _, c := range cases {
		if got := Format12h(c.in); got != c.want {
			t.Errorf("Format12h(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestOverlapHalfOpen(t *testing.T) {
	a := Range{Start: 540, End: 570}

	if !a.Overlaps(Range{Start: 560, End: 590}) {
		t.Error("expected partial overlap")
	}
	if !a.Overlaps(Range{Start: 530, End: 600}) {
		t.Error("expected containment overlap")
	}
	// Touching at a boundary is not a conflict.
	if a.Overlaps(Range{Start: 570, End: 600}) {
		t.Error("boundary-touching ranges must not overlap")
	}
	if a.Overlaps(Range{Start: 510, End: 540}) {
		t.Error("boundary-touching ranges must not overlap")
	}
}

func TestWeekdayOfSundayIsZero(t *testing.T) {
	// 2026-03-01 is a Sunday.
	sun := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	if got := WeekdayOf(sun); got != 0 {
		t.Errorf("WeekdayOf(sunday) = %d, want 0", got)
	}
	if got := WeekdayOf(sun.AddDate(0, 0, 1)); got != 1 {
		t.Errorf("WeekdayOf(monday) = %d, want 1", got)
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 3, 2, 0, 5, 0, 0, time.Local)
	b := time.Date(2026, 3, 2, 23, 55, 0, 0, time.Local)
	if !SameDay(a, b) {
		t.Error("expected same calendar day")
	}
	if SameDay(a, b.AddDate(0, 0, 1)) {
		t.Error("expected different calendar days")
	}
}
