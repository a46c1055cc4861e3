package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday 2026-03-04 10:00 local.
var listNow = time.Date(2026, 3, 4, 10, 0, 0, 0, time.Local)

func day(offset int) time.Time {
	return time.Date(2026, 3, 4, 0, 0, 0, 0, time.Local).AddDate(0, 0, offset)
}

func detailOn(date time.Time, startMinute int, patient, doctor, typ, reason string) Detail {
	return Detail{
		Appointment: Appointment{
			Type:        typ,
			Date:        date,
			StartMinute: startMinute,
			Duration:    30,
			Priority:    PriorityNormal,
			Reason:      reason,
			Status:      StatusScheduled,
		},
		PatientName: patient,
		DoctorName:  doctor,
	}
}

func TestApplyOrdersUpcomingBeforePast(t *testing.T) {
	items := []Detail{
		detailOn(day(-1), 600, "Past Yesterday", "Dr. A", "Consultation", "r"),
		detailOn(day(2), 540, "Future Later", "Dr. A", "Consultation", "r"),
		detailOn(day(0), 840, "Today Afternoon", "Dr. A", "Consultation", "r"),
		detailOn(day(-7), 600, "Past Last Week", "Dr. A", "Consultation", "r"),
		detailOn(day(0), 540, "Today Morning", "Dr. A", "Consultation", "r"),
	}

	page := Apply(items, ListQuery{}, listNow)
	require.Len(t, page.Items, 5)

	got := make([]string, 0, 5)
	for _, d := range page.Items {
		got = append(got, d.PatientName)
	}

	// Upcoming (today counts as upcoming) soonest first, then past most
	// recent first.
	assert.Equal(t, []string{
		"Today Morning",
		"Today Afternoon",
		"Future Later",
		"Past Yesterday",
		"Past Last Week",
	}, got)
}

func TestApplyKeepsCancelled(t *testing.T) {
	items := []Detail{
		detailOn(day(1), 600, "Kept", "Dr. A", "Consultation", "r"),
	}
	items[0].Status = StatusCancelled

	page := Apply(items, ListQuery{}, listNow)
	require.Len(t, page.Items, 1)
	assert.Equal(t, StatusCancelled, page.Items[0].Status)
}

func TestApplyStatusAndPriorityFilters(t *testing.T) {
	confirmed := detailOn(day(1), 600, "A", "Dr. A", "Consultation", "r")
	confirmed.Status = StatusConfirmed
	urgent := detailOn(day(1), 630, "B", "Dr. A", "Consultation", "r")
	urgent.Priority = PriorityHigh
	items := []Detail{
		confirmed,
		urgent,
		detailOn(day(1), 660, "C", "Dr. A", "Follow-up", "r"),
	}

	page := Apply(items, ListQuery{Status: StatusConfirmed}, listNow)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "A", page.Items[0].PatientName)

	page = Apply(items, ListQuery{Priority: PriorityHigh}, listNow)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "B", page.Items[0].PatientName)

	// Type matching is case-insensitive.
	page = Apply(items, ListQuery{Type: "follow-UP"}, listNow)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "C", page.Items[0].PatientName)
}

func TestApplyDateBuckets(t *testing.T) {
	items := []Detail{
		detailOn(day(0), 600, "Today", "Dr. A", "Consultation", "r"),
		detailOn(day(2), 600, "Friday", "Dr. A", "Consultation", "r"),   // same week
		detailOn(day(10), 600, "NextWeek", "Dr. A", "Consultation", "r"), // same month
		detailOn(day(40), 600, "NextMonth", "Dr. A", "Consultation", "r"),
	}

	names := func(p Page) []string {
		out := make([]string, 0, len(p.Items))
		for _, d := range p.Items {
			out = append(out, d.PatientName)
		}
		return out
	}

	assert.Equal(t, []string{"Today"}, names(Apply(items, ListQuery{Bucket: BucketToday}, listNow)))
	assert.Equal(t, []string{"Today", "Friday"}, names(Apply(items, ListQuery{Bucket: BucketWeek}, listNow)))
	assert.Equal(t, []string{"Today", "Friday", "NextWeek"}, names(Apply(items, ListQuery{Bucket: BucketMonth}, listNow)))
	assert.Len(t, Apply(items, ListQuery{Bucket: BucketAll}, listNow).Items, 4)
}

func TestApplyWeekIsSundayBased(t *testing.T) {
	// listNow is a Wednesday; the calendar week runs Sunday 03-01 through
	// Saturday 03-07.
	items := []Detail{
		detailOn(time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local), 600, "Sunday", "Dr. A", "Consultation", "r"),
		detailOn(time.Date(2026, 3, 7, 0, 0, 0, 0, time.Local), 600, "Saturday", "Dr. A", "Consultation", "r"),
		detailOn(time.Date(2026, 3, 8, 0, 0, 0, 0, time.Local), 600, "NextSunday", "Dr. A", "Consultation", "r"),
	}

	page := Apply(items, ListQuery{Bucket: BucketWeek}, listNow)
	require.Len(t, page.Items, 2)
	for _, d := range page.Items {
		assert.NotEqual(t, "NextSunday", d.PatientName)
	}
}

func TestApplyFreeTextSearch(t *testing.T) {
	items := []Detail{
		detailOn(day(1), 600, "John Mathew", "Dr. Asha Rao", "Consultation", "knee pain"),
		detailOn(day(1), 630, "Priya Nair", "Dr. Asha Rao", "Follow-up", "migraine"),
		detailOn(day(1), 660, "Sam Kurien", "Dr. Benny Thomas", "Consultation", "fever"),
	}

	cases := []struct {
		search string
		want   int
	}{
		{"john", 1},      // patient name
		{"benny", 1},     // doctor name
		{"follow", 1},    // type
		{"migraine", 1},  // reason
		{"asha", 2},      // doctor shared by two
		{"nothing", 0},
	}

	for _, c := range cases {
		page := Apply(items, ListQuery{Search: c.search}, listNow)
		assert.Len(t, page.Items, c.want, "search %q", c.search)
	}
}

func TestApplyPagination(t *testing.T) {
	items := make([]Detail, 0, 12)
	for i := 0; i < 12; i++ {
		items = append(items, detailOn(day(1), 540+i*30, "P", "Dr. A", "Consultation", "r"))
	}

	first := Apply(items, ListQuery{Page: 1, PageSize: 5}, listNow)
	assert.Len(t, first.Items, 5)
	assert.Equal(t, 12, first.Total)
	assert.Equal(t, 540, first.Items[0].StartMinute)

	third := Apply(items, ListQuery{Page: 3, PageSize: 5}, listNow)
	assert.Len(t, third.Items, 2)

	beyond := Apply(items, ListQuery{Page: 9, PageSize: 5}, listNow)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 12, beyond.Total)
}

func TestNormalizePageSize(t *testing.T) {
	cases := map[int]int{
		5:   5,
		10:  10,
		20:  20,
		50:  50,
		0:   20,
		-1:  20,
		7:   20,
		100: 20,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePageSize(in), "page size %d", in)
	}
}
