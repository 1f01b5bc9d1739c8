package utils

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format used for calendar dates
const DateLayout = "2006-01-02"

// TruncateToDay drops the clock part of t, keeping its calendar date in UTC
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LastDayOfMonth returns the number of days in the given month
func LastDayOfMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay returns the date with the given day-of-month, clamped to the month's last day
func ClampDay(year int, month time.Month, day int) time.Time {
	// Normalize month overflow first so callers can pass month+1
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := LastDayOfMonth(first.Year(), first.Month())
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// AddMonthsClamped adds n calendar months to t without overflowing into the following month.
// Jan 31 + 1 month is Feb 28 (Feb 29 in leap years), not Mar 2/3 like time.AddDate.
func AddMonthsClamped(t time.Time, n int) time.Time {
	t = TruncateToDay(t)
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return ClampDay(first.Year(), first.Month(), t.Day())
}

// WholeDaysBetween returns the number of calendar days from start to end.
// Negative when end is before start.
func WholeDaysBetween(start, end time.Time) int {
	s := TruncateToDay(start)
	e := TruncateToDay(end)
	return int(e.Sub(s).Hours() / 24)
}

// ValidDate reports whether (year, month, day) names a real calendar date
func ValidDate(year int, month time.Month, day int) bool {
	if month < time.January || month > time.December || day < 1 {
		return false
	}
	return day <= LastDayOfMonth(year, month)
}

// ParseDate parses a YYYY-MM-DD date, rejecting impossible dates like 2023-02-30
func ParseDate(s string) (time.Time, error) {
	if len(s) != len(DateLayout) || s[4] != '-' || s[7] != '-' {
		return time.Time{}, fmt.Errorf("date %q is not in %s format", s, DateLayout)
	}

	year, yerr := strconv.Atoi(s[0:4])
	month, merr := strconv.Atoi(s[5:7])
	day, derr := strconv.Atoi(s[8:10])
	if yerr != nil || merr != nil || derr != nil {
		return time.Time{}, fmt.Errorf("date %q is not in %s format", s, DateLayout)
	}
	if !ValidDate(year, time.Month(month), day) {
		return time.Time{}, fmt.Errorf("date %q does not exist", s)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// MaxDate returns the later of the given dates, ignoring zero values
func MaxDate(dates ...time.Time) time.Time {
	var out time.Time
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		if out.IsZero() || d.After(out) {
			out = d
		}
	}
	return out
}

// RoundMoney rounds an amount to the currency's minor unit
func RoundMoney(amount decimal.Decimal, decimals int32) decimal.Decimal {
	return amount.Round(decimals)
}

// DecimalPtr returns a pointer to d
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// IntPtr returns a pointer to i
func IntPtr(i int) *int {
	return &i
}
