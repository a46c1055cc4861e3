package appointment

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/scheduling/internal/schedule"
)

type DateBucket string

const (
	BucketAll   DateBucket = "all"
	BucketToday DateBucket = "today"
	BucketWeek  DateBucket = "week"
	BucketMonth DateBucket = "month"
)

const DefaultPageSize = 20

var allowedPageSizes = []int{5, 10, 20, 50}

// NormalizePageSize clamps to the selectable page sizes, defaulting to 20.
func NormalizePageSize(n int) int {
	for _, ok := range allowedPageSizes {
		if n == ok {
			return n
		}
	}
	return DefaultPageSize
}

type ListQuery struct {
	DoctorID *uuid.UUID
	Status   Status
	Type     string
	Priority Priority
	Bucket   DateBucket
	Search   string
	Page     int
	PageSize int
}

type Page struct {
	Items    []Detail
	Total    int
	Page     int
	PageSize int
}

// Apply filters, orders and windows the working set. Upcoming appointments
// (date >= today) come first, soonest first; past ones follow, most recent
// first. Cancelled appointments stay in the output with their status intact.
func Apply(items []Detail, q ListQuery, now time.Time) Page {
	today := schedule.DateOnly(now)

	filtered := make([]Detail, 0, len(items))
	for _, d := range items {
		if matches(d, q, today) {
			filtered = append(filtered, d)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return less(filtered[i], filtered[j], today)
	})

	pageSize := NormalizePageSize(q.PageSize)
	page := q.Page
	if page < 1 {
		page = 1
	}

	start := (page - 1) * pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}

	return Page{
		Items:    filtered[start:end],
		Total:    len(filtered),
		Page:     page,
		PageSize: pageSize,
	}
}

func matches(d Detail, q ListQuery, today time.Time) bool {
	if q.Status != "" && d.Status != q.Status {
		return false
	}
	if q.Type != "" && !strings.EqualFold(d.Type, q.Type) {
		return false
	}
	if q.Priority != "" && d.Priority != q.Priority {
		return false
	}
	if !inBucket(d.Date, q.Bucket, today) {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		haystacks := []string{d.PatientName, d.DoctorName, d.Type, d.Reason}
		found := false
		for _, h := range haystacks {
			if strings.Contains(strings.ToLower(h), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func inBucket(date time.Time, bucket DateBucket, today time.Time) bool {
	switch bucket {
	case "", BucketAll:
		return true
	case BucketToday:
		return schedule.SameDay(date, today)
	case BucketWeek:
		// Calendar week containing today, Sunday through Saturday.
		weekStart := today.AddDate(0, 0, -schedule.WeekdayOf(today))
		weekEnd := weekStart.AddDate(0, 0, 7)
		return !date.Before(weekStart) && date.Before(weekEnd)
	case BucketMonth:
		return date.Year() == today.Year() && date.Month() == today.Month()
	}
	return true
}

func less(a, b Detail, today time.Time) bool {
	aUpcoming := !a.Date.Before(today)
	bUpcoming := !b.Date.Before(today)

	if aUpcoming != bUpcoming {
		return aUpcoming
	}
	if aUpcoming {
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.StartMinute < b.StartMinute
	}
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.StartMinute > b.StartMinute
}
