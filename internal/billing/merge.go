package billing

import (
	"fmt"
	"sort"
	"time"

	"github.com/segyhp/obligation-engine/internal/domain"
	customError "github.com/segyhp/obligation-engine/pkg/errors"
	"github.com/segyhp/obligation-engine/pkg/utils"
)

// MergePlan is the diff between a service's current rows and a fresh enumeration
type MergePlan struct {
	// Keep holds locked rows, untouched and authoritative
	Keep []*domain.ServiceSchedule
	// Delete holds ids of unlocked rows to drop
	Delete []int64
	// Create holds periods that need a new PENDING row
	Create []Period
	// Skipped holds enumerated periods that collided with a locked row
	Skipped []Period
}

// Partition splits rows into locked and unlocked, both ordered by period start
func Partition(rows []*domain.ServiceSchedule) (locked, unlocked []*domain.ServiceSchedule) {
	for _, row := range rows {
		if row.IsLocked() {
			locked = append(locked, row)
		} else {
			unlocked = append(unlocked, row)
		}
	}
	sortByPeriodStart(locked)
	sortByPeriodStart(unlocked)
	return locked, unlocked
}

// Anchor picks the first day new periods start from: the latest of the day after the last
// locked period and fromDate. Without locked rows the service start date joins the max, so
// a fromDate before the start never yields installments ahead of the obligation.
func Anchor(locked []*domain.ServiceSchedule, fromDate *time.Time, startDate time.Time) time.Time {
	var afterLocked time.Time
	for _, row := range locked {
		next := utils.TruncateToDay(row.PeriodEnd).AddDate(0, 0, 1)
		if next.After(afterLocked) {
			afterLocked = next
		}
	}

	var from time.Time
	if fromDate != nil {
		from = utils.TruncateToDay(*fromDate)
	}

	if len(locked) == 0 {
		return utils.MaxDate(from, utils.TruncateToDay(startDate))
	}
	return utils.MaxDate(afterLocked, from)
}

// PlanMerge indexes existing rows by period start and matches fresh periods against them.
// A period that overlaps one locked row is skipped. Locked rows that overlap each other, or a
// period that overlaps two of them, mean the stored schedule is corrupt and are reported as an
// invariant violation before anything is planned.
func PlanMerge(existing []*domain.ServiceSchedule, periods []Period) (MergePlan, error) {
	locked, unlocked := Partition(existing)
	if err := checkLockedDisjoint(locked); err != nil {
		return MergePlan{}, err
	}

	plan := MergePlan{Keep: locked}
	for _, row := range unlocked {
		plan.Delete = append(plan.Delete, row.ID)
	}

	byStart := make(map[string]*domain.ServiceSchedule, len(locked))
	for _, row := range locked {
		byStart[dayKey(row.PeriodStart)] = row
	}

	for _, p := range periods {
		if _, ok := byStart[dayKey(p.Start)]; ok {
			plan.Skipped = append(plan.Skipped, p)
			continue
		}

		var hits []*domain.ServiceSchedule
		for _, row := range locked {
			if p.Overlaps(rowPeriod(row)) {
				hits = append(hits, row)
			}
		}

		switch len(hits) {
		case 0:
			plan.Create = append(plan.Create, p)
		case 1:
			plan.Skipped = append(plan.Skipped, p)
		default:
			return MergePlan{}, customError.WrapInvariantViolation(fmt.Sprintf(
				"period %s collides with locked schedules %d (%s) and %d (%s)",
				p, hits[0].ID, rowPeriod(hits[0]), hits[1].ID, rowPeriod(hits[1]),
			))
		}
	}

	return plan, nil
}

// checkLockedDisjoint expects locked ordered by period start
func checkLockedDisjoint(locked []*domain.ServiceSchedule) error {
	for i := 1; i < len(locked); i++ {
		prev, cur := locked[i-1], locked[i]
		if rowPeriod(prev).Overlaps(rowPeriod(cur)) {
			return customError.WrapInvariantViolation(fmt.Sprintf(
				"locked schedules %d (%s) and %d (%s) overlap",
				prev.ID, rowPeriod(prev), cur.ID, rowPeriod(cur),
			))
		}
	}
	return nil
}

func rowPeriod(row *domain.ServiceSchedule) Period {
	return Period{Start: utils.TruncateToDay(row.PeriodStart), End: utils.TruncateToDay(row.PeriodEnd)}
}

func dayKey(t time.Time) string {
	return t.Format(utils.DateLayout)
}

func sortByPeriodStart(rows []*domain.ServiceSchedule) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].PeriodStart.Before(rows[j].PeriodStart)
	})
}

// SortSchedules orders rows by period start
func SortSchedules(rows []*domain.ServiceSchedule) {
	sortByPeriodStart(rows)
}

// Reuse matches freshly built rows against the unlocked rows a plan would delete.
// A PENDING row whose projection is unchanged is kept as is instead of being deleted and
// re-inserted, so regenerating twice with the same inputs leaves the rows untouched.
func Reuse(plan MergePlan, unlocked, fresh []*domain.ServiceSchedule) (reused, create []*domain.ServiceSchedule, del []int64) {
	byStart := make(map[string]*domain.ServiceSchedule, len(unlocked))
	for _, row := range unlocked {
		if row.Status == domain.ScheduleStatusPending {
			byStart[dayKey(row.PeriodStart)] = row
		}
	}

	kept := make(map[int64]bool)
	for _, row := range fresh {
		if old, ok := byStart[dayKey(row.PeriodStart)]; ok && SameProjection(old, row) {
			reused = append(reused, old)
			kept[old.ID] = true
			continue
		}
		create = append(create, row)
	}

	for _, id := range plan.Delete {
		if !kept[id] {
			del = append(del, id)
		}
	}
	return reused, create, del
}

// SameProjection reports whether two unsettled rows describe the same installment
func SameProjection(a, b *domain.ServiceSchedule) bool {
	return a.PeriodStart.Equal(b.PeriodStart) &&
		a.PeriodEnd.Equal(b.PeriodEnd) &&
		a.DueDate.Equal(b.DueDate) &&
		sameDate(a.EmissionDate, b.EmissionDate) &&
		sameDate(a.EmissionStart, b.EmissionStart) &&
		sameDate(a.EmissionEnd, b.EmissionEnd) &&
		a.ExpectedAmount.Equal(b.ExpectedAmount) &&
		a.Provisional == b.Provisional
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
