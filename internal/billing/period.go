package billing

import (
	"fmt"
	"time"

	"github.com/segyhp/obligation-engine/internal/domain"
	customError "github.com/segyhp/obligation-engine/pkg/errors"
	"github.com/segyhp/obligation-engine/pkg/utils"
)

// Period is a billing window. Start and End are both inclusive calendar days;
// the next period starts the day after End.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether day falls inside [Start, End]
func (p Period) Contains(day time.Time) bool {
	day = utils.TruncateToDay(day)
	return !day.Before(p.Start) && !day.After(p.End)
}

// Overlaps reports whether p and o share at least one day
func (p Period) Overlaps(o Period) bool {
	return !p.End.Before(o.Start) && !o.End.Before(p.Start)
}

func (p Period) String() string {
	return "[" + p.Start.Format(utils.DateLayout) + ", " + p.End.Format(utils.DateLayout) + "]"
}

type step struct {
	days   int
	months int
}

var frequencySteps = map[domain.Frequency]step{
	domain.FrequencyWeekly:     {days: 7},
	domain.FrequencyBiweekly:   {days: 14},
	domain.FrequencyMonthly:    {months: 1},
	domain.FrequencyBimonthly:  {months: 2},
	domain.FrequencyQuarterly:  {months: 3},
	domain.FrequencySemiannual: {months: 6},
	domain.FrequencyAnnual:     {months: 12},
}

// nthStart returns the start of the k-th period counted from anchor.
// Month steps are always taken from the anchor itself, so a clamp in one month
// (Jan 31 -> Feb 29) does not leak into the next (-> Mar 31).
func (s step) nthStart(anchor time.Time, k int) time.Time {
	if s.months > 0 {
		return utils.AddMonthsClamped(anchor, k*s.months)
	}
	return anchor.AddDate(0, 0, k*s.days)
}

// EnumeratePeriods produces n contiguous, non-overlapping periods starting at anchor
func EnumeratePeriods(anchor time.Time, freq domain.Frequency, n int) ([]Period, error) {
	if anchor.IsZero() {
		return nil, customError.WrapValidation("anchor date is required", map[string]string{"anchor": "required"})
	}
	if n < domain.MinGenerationPeriods || n > domain.MaxGenerationPeriods {
		return nil, customError.WrapValidation(
			fmt.Sprintf("period count must be between %d and %d", domain.MinGenerationPeriods, domain.MaxGenerationPeriods),
			map[string]string{"months": fmt.Sprintf("%d", n)},
		)
	}

	anchor = utils.TruncateToDay(anchor)

	if freq == domain.FrequencyOnce {
		return []Period{{Start: anchor, End: anchor}}, nil
	}

	st, ok := frequencySteps[freq]
	if !ok {
		return nil, customError.WrapValidation(
			fmt.Sprintf("unknown frequency %q", freq),
			map[string]string{"frequency": string(freq)},
		)
	}

	periods := make([]Period, 0, n)
	start := anchor
	for k := 1; k <= n; k++ {
		next := st.nthStart(anchor, k)
		periods = append(periods, Period{Start: start, End: next.AddDate(0, 0, -1)})
		start = next
	}

	return periods, nil
}

// PeriodCount resolves how many periods a generation call produces.
// requested <= 0 means "not supplied" and falls back to the service default.
func PeriodCount(requested, serviceDefault int, recurrence domain.RecurrenceType, freq domain.Frequency) int {
	if recurrence == domain.RecurrenceOneOff || freq == domain.FrequencyOnce {
		return 1
	}

	n := requested
	if n <= 0 {
		n = serviceDefault
	}
	if n < domain.MinGenerationPeriods {
		n = domain.MinGenerationPeriods
	}
	if n > domain.MaxGenerationPeriods {
		n = domain.MaxGenerationPeriods
	}
	return n
}
