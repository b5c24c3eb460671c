// Package dates turns the coarse YYYY-MM bounds produced by the region
// resolver into a concrete calendar interval.
package dates

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout is the ISO calendar date format used for normalized bounds.
const Layout = "2006-01-02"

// Normalizer converts optional year-month bounds into ISO dates.
//
// When either bound is missing or malformed the default range is returned:
// the previous full calendar year (Jan 1 to Dec 31 of current year - 1).
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer creates a Normalizer. A nil clock means time.Now.
func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// Normalize never fails; parse problems fall back to DefaultRange.
func (n *Normalizer) Normalize(dateMin, dateMax string) (start, end string) {
	if strings.TrimSpace(dateMin) == "" || strings.TrimSpace(dateMax) == "" {
		return n.DefaultRange()
	}

	yMin, mMin, err := parseYearMonth(dateMin)
	if err != nil {
		return n.DefaultRange()
	}
	yMax, mMax, err := parseYearMonth(dateMax)
	if err != nil {
		return n.DefaultRange()
	}

	first := time.Date(yMin, mMin, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(yMax, mMax, lastDayOfMonth(yMax, mMax), 0, 0, 0, 0, time.UTC)
	return first.Format(Layout), last.Format(Layout)
}

// DefaultRange is the previous full calendar year.
func (n *Normalizer) DefaultRange() (start, end string) {
	year := n.now().Year() - 1
	first := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return first.Format(Layout), last.Format(Layout)
}

var defaultNormalizer = NewNormalizer(nil)

// Normalize uses the wall clock.
func Normalize(dateMin, dateMax string) (start, end string) {
	return defaultNormalizer.Normalize(dateMin, dateMax)
}

func parseYearMonth(s string) (int, time.Month, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want YYYY-MM, got %q", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("year: %w", err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("month: %w", err)
	}
	if year < 1 || year > 9999 {
		return 0, 0, fmt.Errorf("year %d out of range", year)
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month %d out of range", month)
	}
	return year, time.Month(month), nil
}

// lastDayOfMonth relies on time.Date normalising day 0 of the next month.
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
