package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		months   int
		expected time.Time
	}{
		{
			name:     "jan 31 to leap february",
			start:    date(2024, 1, 31),
			months:   1,
			expected: date(2024, 2, 29),
		},
		{
			name:     "jan 31 to common february",
			start:    date(2023, 1, 31),
			months:   1,
			expected: date(2023, 2, 28),
		},
		{
			name:     "two months from jan 31 keeps day 31",
			start:    date(2024, 1, 31),
			months:   2,
			expected: date(2024, 3, 31),
		},
		{
			name:     "crosses year boundary",
			start:    date(2024, 11, 30),
			months:   3,
			expected: date(2025, 2, 28),
		},
		{
			name:     "annual step from leap day",
			start:    date(2024, 2, 29),
			months:   12,
			expected: date(2025, 2, 28),
		},
		{
			name:     "mid month is unchanged",
			start:    date(2024, 5, 15),
			months:   6,
			expected: date(2024, 11, 15),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AddMonthsClamped(tt.start, tt.months)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestWholeDaysBetween(t *testing.T) {
	due := date(2024, 3, 1)

	assert.Equal(t, 0, WholeDaysBetween(due, due.Add(23*time.Hour)))
	assert.Equal(t, 10, WholeDaysBetween(due, due.AddDate(0, 0, 10).Add(5*time.Hour)))
	assert.Equal(t, -3, WholeDaysBetween(due, due.AddDate(0, 0, -3)))
	// 2024-02-29 exists, so Feb 28 -> Mar 1 is two days
	assert.Equal(t, 2, WholeDaysBetween(date(2024, 2, 28), date(2024, 3, 1)))
}

func TestClampDay(t *testing.T) {
	assert.Equal(t, date(2024, 4, 30), ClampDay(2024, time.April, 31))
	assert.Equal(t, date(2025, 1, 31), ClampDay(2024, time.December+1, 31))
	assert.Equal(t, date(2024, 6, 1), ClampDay(2024, time.June, 0))
}

func TestValidDate(t *testing.T) {
	assert.True(t, ValidDate(2024, time.February, 29))
	assert.False(t, ValidDate(2023, time.February, 29))
	assert.False(t, ValidDate(2024, time.Month(13), 1))
	assert.False(t, ValidDate(2024, time.January, 0))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-31")
	assert.NoError(t, err)
	assert.Equal(t, date(2024, 1, 31), d)

	leap, err := ParseDate("2024-02-29")
	assert.NoError(t, err)
	assert.Equal(t, date(2024, 2, 29), leap)

	for _, bad := range []string{"2023-02-30", "2023-02-29", "2024-13-01", "2024-04-31", "2024-00-10", "2024-1-31", "31-01-2024", "2024/01/31", "2024-01-3a", ""} {
		_, err = ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestMaxDate(t *testing.T) {
	assert.Equal(t, date(2024, 5, 1), MaxDate(time.Time{}, date(2024, 1, 1), date(2024, 5, 1)))
	assert.True(t, MaxDate().IsZero())
}

func TestRoundMoney(t *testing.T) {
	assert.True(t, RoundMoney(decimal.RequireFromString("37512.456"), 0).Equal(decimal.NewFromInt(37512)))
	assert.True(t, RoundMoney(decimal.RequireFromString("10.005"), 2).Equal(decimal.RequireFromString("10.01")))
}
