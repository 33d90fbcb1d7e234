package domain

import (
	"fmt"
	"time"
)

const monthLayout = "2006-01"

// Month is a calendar month. The zero value is not a valid month.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth normalises overflowing months, so NewMonth(2024, 13) is January 2025.
func NewMonth(year int, month time.Month) Month {
	return MonthOf(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
}

func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth accepts "2006-01", "2006-01-02" and RFC3339 timestamps.
func ParseMonth(s string) (Month, error) {
	for _, layout := range []string{monthLayout, time.DateOnly, time.DateTime, time.RFC3339, "2006-01-02 15:04:05 MST"} {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthOf(t), nil
		}
	}
	return Month{}, fmt.Errorf("invalid month %q", s)
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) AddMonths(n int) Month {
	return NewMonth(m.Year, m.Month+time.Month(n))
}

func (m Month) Before(o Month) bool {
	return m.Index() < o.Index()
}

func (m Month) After(o Month) bool {
	return m.Index() > o.Index()
}

// Index counts months since year zero; the difference of two indexes is the
// number of months between them.
func (m Month) Index() int {
	return m.Year*12 + int(m.Month) - 1
}

// Time returns the first instant of the month in UTC.
func (m Month) Time() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Days returns the number of calendar days in the month.
func (m Month) Days() int {
	return m.AddMonths(1).Time().AddDate(0, 0, -1).Day()
}

// FinancialYear returns the UK financial year (1 April - 31 March) containing the month.
func (m Month) FinancialYear() FinancialYear {
	if m.Month >= time.April {
		return FinancialYear(m.Year + 1)
	}
	return FinancialYear(m.Year)
}

func (m Month) String() string {
	return m.Time().Format(monthLayout)
}

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// FinancialYear is identified by the calendar year in which it ends (31 March).
type FinancialYear int

func (fy FinancialYear) Start() Month {
	return NewMonth(int(fy)-1, time.April)
}

func (fy FinancialYear) End() Month {
	return NewMonth(int(fy), time.March)
}

func (fy FinancialYear) String() string {
	return fmt.Sprintf("%d-%02d", int(fy)-1, int(fy)%100)
}

// MonthRange returns every month from start to end inclusive.
func MonthRange(start, end Month) []Month {
	if end.Before(start) {
		return nil
	}
	months := make([]Month, 0, end.Index()-start.Index()+1)
	for m := start; !m.After(end); m = m.AddMonths(1) {
		months = append(months, m)
	}
	return months
}
