package schedule

import (
	"fmt"
	"sort"
)

// Booked is the occupancy view of an existing appointment, as consumed by
// slot generation and conflict detection.
type Booked struct {
	StartMinute int
	Duration    int
	PatientName string
	Type        string
	Cancelled   bool
}

func (b Booked) Span() Range {
	return Range{Start: b.StartMinute, End: b.StartMinute + b.Duration}
}

// Conflict describes the first existing appointment that overlaps a
// proposed span.
type Conflict struct {
	StartMinute int
	EndMinute   int
	Duration    int
	PatientName string
	Type        string
}

// String renders the legacy prose form still emitted in error details:
// "HH:MM - <name> (<type>, <n> min)".
func (c Conflict) String() string {
	return fmt.Sprintf("%s - %s (%s, %d min)", FromMinutes(c.StartMinute), c.PatientName, c.Type, c.Duration)
}

// BusyRanges projects non-cancelled appointments onto their occupied spans.
func BusyRanges(appts []Booked) []Range {
	var busy []Range
	for _, a := range appts {
		if a.Cancelled {
			continue
		}
		busy = append(busy, a.Span())
	}
	return busy
}

// DetectConflict returns the earliest non-cancelled appointment overlapping
// [start, start+duration), or nil when the span is clear. Cancelled
// appointments never occupy.
func DetectConflict(appts []Booked, start, duration int) *Conflict {
	span := Range{Start: start, End: start + duration}

	candidates := make([]Booked, 0, len(appts))
	for _, a := range appts {
		if a.Cancelled {
			continue
		}
		if span.Overlaps(a.Span()) {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].StartMinute < candidates[j].StartMinute
	})

	first := candidates[0]
	return &Conflict{
		StartMinute: first.StartMinute,
		EndMinute:   first.StartMinute + first.Duration,
		Duration:    first.Duration,
		PatientName: first.PatientName,
		Type:        first.Type,
	}
}
