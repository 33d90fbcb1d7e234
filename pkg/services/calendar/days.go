package calendar

import (
	"time"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
)

// Weekmask selects the weekdays counted as open days.
type Weekmask [7]bool

var (
	MondayToFriday   = Weekmask{time.Monday: true, time.Tuesday: true, time.Wednesday: true, time.Thursday: true, time.Friday: true}
	MondayToSaturday = Weekmask{time.Monday: true, time.Tuesday: true, time.Wednesday: true, time.Thursday: true, time.Friday: true, time.Saturday: true}
	EveryDay         = Weekmask{true, true, true, true, true, true, true}
)

// CountDays counts the days of the month, first to last inclusive, whose
// weekday is in the mask and which are not holidays. A nil holiday set
// excludes nothing.
func CountDays(m domain.Month, mask Weekmask, holidays Holidays) int {
	count := 0
	start := m.Time()
	for d := 0; d < m.Days(); d++ {
		day := start.AddDate(0, 0, d)
		if !mask[day.Weekday()] {
			continue
		}
		if holidays != nil && holidays.Contains(day) {
			continue
		}
		count++
	}
	return count
}
