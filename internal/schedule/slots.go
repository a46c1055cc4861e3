package schedule

import "sort"

// SlotDuration resolves the stride for a doctor-day: the duration configured
// on the first active weekly slot for that weekday, or DefaultSlotDuration.
func (d DayAvailability) SlotDuration() int {
	for _, w := range d.Weekly {
		if w.Active && w.SlotDuration > 0 {
			return w.SlotDuration
		}
	}
	return DefaultSlotDuration
}

// EffectiveWindows resolves the bookable windows for the day. An active
// unavailable exception removes the day; an active custom_hours exception
// replaces the weekly pattern with its window minus breaks; otherwise the
// active weekly slots apply as-is.
func (d DayAvailability) EffectiveWindows() []Range {
	if ex := d.Exception; ex != nil && ex.Active {
		if ex.Type == ExceptionUnavailable {
			return nil
		}
		return subtractBreaks(ex.Window(), ex.Breaks)
	}

	var windows []Range
	for _, w := range d.Weekly {
		if w.Active {
			windows = append(windows, w.Window())
		}
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })
	return windows
}

func subtractBreaks(window Range, breaks []Range) []Range {
	sorted := make([]Range, len(breaks))
	copy(sorted, breaks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var out []Range
	cursor := window.Start
	for _, b := range sorted {
		if !b.Overlaps(window) {
			continue
		}
		if b.Start > cursor {
			out = append(out, Range{Start: cursor, End: b.Start})
		}
		if b.End > cursor {
			cursor = b.End
		}
	}
	if cursor < window.End {
		out = append(out, Range{Start: cursor, End: window.End})
	}
	return out
}

// SlotRequest carries the caller-chosen parameters of a slot query.
// Duration is the span a booking would occupy; NowMinute is only consulted
// when Today is set, suppressing starts at or before the current minute.
type SlotRequest struct {
	Duration  int
	Today     bool
	NowMinute int
}

// AvailableStarts generates the ordered bookable start times for a doctor-day.
// Candidate starts are probed at the configured stride within each effective
// window; a start is emitted when the full requested span fits the window and
// overlaps neither a break nor a busy interval. Busy intervals must already
// exclude cancelled appointments. The result is ascending; no windows yields
// an empty result, never an error.
func AvailableStarts(day DayAvailability, busy []Range, req SlotRequest) []int {
	if req.Duration <= 0 {
		return nil
	}

	windows := day.EffectiveWindows()
	if len(windows) == 0 {
		return nil
	}
	stride := day.SlotDuration()

	var breaks []Range
	if ex := day.Exception; ex != nil && ex.Active && ex.Type == ExceptionCustomHours {
		breaks = ex.Breaks
	}

	var starts []int
	for _, w := range windows {
		for t := w.Start; t+req.Duration <= w.End; t += stride {
			span := Range{Start: t, End: t + req.Duration}
			if req.Today && t <= req.NowMinute {
				continue
			}
			if overlapsAny(span, breaks) || overlapsAny(span, busy) {
				continue
			}
			starts = append(starts, t)
		}
	}
	sort.Ints(starts)
	return starts
}

func overlapsAny(span Range, ranges []Range) bool {
	for _, r := range ranges {
		if span.Overlaps(r) {
			return true
		}
	}
	return false
}
