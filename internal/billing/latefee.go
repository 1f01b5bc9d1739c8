package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/obligation-engine/internal/domain"
	"github.com/segyhp/obligation-engine/pkg/utils"
)

var hundred = decimal.NewFromInt(100)

// LateFeeInput is everything the late-fee calculation depends on
type LateFeeInput struct {
	DueDate        time.Time
	Now            time.Time
	Status         domain.ScheduleStatus
	Policy         domain.LateFeePolicy
	ExpectedAmount decimal.Decimal
	Decimals       int32
}

// LateFeeResult holds the computed overdue state of an installment
type LateFeeResult struct {
	OverdueDays     int
	LateFeeAmount   decimal.Decimal
	EffectiveAmount decimal.Decimal
}

// ComputeLateFee is pure: same input, same output. PAID and SKIPPED rows never accrue.
func ComputeLateFee(in LateFeeInput) LateFeeResult {
	if in.Status != domain.ScheduleStatusPending && in.Status != domain.ScheduleStatusPartial {
		return LateFeeResult{LateFeeAmount: decimal.Zero, EffectiveAmount: in.ExpectedAmount}
	}

	overdue := utils.WholeDaysBetween(in.DueDate, in.Now)
	if overdue < 0 {
		overdue = 0
	}

	grace := 0
	if in.Policy.GraceDays != nil && *in.Policy.GraceDays > 0 {
		grace = *in.Policy.GraceDays
	}

	fee := decimal.Zero
	if overdue > grace && in.Policy.Value != nil {
		switch in.Policy.Mode {
		case domain.LateFeeFixed:
			fee = *in.Policy.Value
		case domain.LateFeePercentage:
			fee = utils.RoundMoney(in.ExpectedAmount.Mul(*in.Policy.Value).Div(hundred), in.Decimals)
		}
	}

	return LateFeeResult{
		OverdueDays:     overdue,
		LateFeeAmount:   fee,
		EffectiveAmount: in.ExpectedAmount.Add(fee),
	}
}

// Refresh recomputes the overdue/late-fee columns and the effective amount of row in place
func Refresh(row *domain.ServiceSchedule, policy domain.LateFeePolicy, now time.Time, decimals int32) {
	res := ComputeLateFee(LateFeeInput{
		DueDate:        row.DueDate,
		Now:            now,
		Status:         row.Status,
		Policy:         policy,
		ExpectedAmount: row.ExpectedAmount,
		Decimals:       decimals,
	})
	row.OverdueDays = res.OverdueDays
	row.LateFeeAmount = res.LateFeeAmount
	row.EffectiveAmount = EffectiveAmount(row, res)
}

// EffectiveAmount is what the row is worth: paid amount once PAID, expected plus late fee otherwise
func EffectiveAmount(row *domain.ServiceSchedule, res LateFeeResult) decimal.Decimal {
	if row.Status == domain.ScheduleStatusPaid && row.PaidAmount != nil {
		return *row.PaidAmount
	}
	return res.EffectiveAmount
}
