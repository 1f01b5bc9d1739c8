package billing

import (
	"time"

	"github.com/segyhp/obligation-engine/internal/domain"
	"github.com/segyhp/obligation-engine/pkg/utils"
)

// ResolveDueDate computes the due date of a period.
//
// Without a due day the period end is due. With one, the day is placed in the month the
// period starts in (clamped to that month's last day); if that lands before the period
// starts, the following month is used. The result never leaves the period.
func ResolveDueDate(p Period, dueDay *int) time.Time {
	if dueDay == nil {
		return p.End
	}

	due := utils.ClampDay(p.Start.Year(), p.Start.Month(), *dueDay)
	if due.Before(p.Start) {
		due = utils.ClampDay(p.Start.Year(), p.Start.Month()+1, *dueDay)
	}
	if due.After(p.End) {
		due = p.End
	}
	return due
}

// Emission is the informational issue date (or window) of an installment
type Emission struct {
	Date  *time.Time
	Start *time.Time
	End   *time.Time
}

// ResolveEmission resolves the emission policy against a period. FIXED_DAY and DATE_RANGE
// days are placed in the month the period starts in; SPECIFIC_DATE is returned as is.
func ResolveEmission(p Period, policy domain.EmissionPolicy) Emission {
	year, month := p.Start.Year(), p.Start.Month()

	switch policy.Mode {
	case domain.EmissionFixedDay:
		if policy.Day == nil {
			return Emission{}
		}
		d := utils.ClampDay(year, month, *policy.Day)
		return Emission{Date: &d}

	case domain.EmissionDateRange:
		if policy.StartDay == nil || policy.EndDay == nil {
			return Emission{}
		}
		start := utils.ClampDay(year, month, *policy.StartDay)
		end := utils.ClampDay(year, month, *policy.EndDay)
		if end.Before(start) {
			// e.g. 25th..5th spans into the next month
			end = utils.ClampDay(year, month+1, *policy.EndDay)
		}
		return Emission{Start: &start, End: &end}

	case domain.EmissionSpecificDate:
		if policy.ExactDate == nil {
			return Emission{}
		}
		d := utils.TruncateToDay(*policy.ExactDate)
		return Emission{Date: &d}
	}

	return Emission{}
}
