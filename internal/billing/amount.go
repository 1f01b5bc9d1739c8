package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/obligation-engine/internal/domain"
	customError "github.com/segyhp/obligation-engine/pkg/errors"
	"github.com/segyhp/obligation-engine/pkg/utils"
)

// RateProvider returns the settlement-currency value of one indexed unit (UF) on a date
type RateProvider interface {
	// Rate returns the value effective on date, or an error when none is published for it
	Rate(ctx context.Context, date time.Time) (decimal.Decimal, error)

	// LatestBefore returns the most recent known value on or before date and the day it belongs to
	LatestBefore(ctx context.Context, date time.Time) (decimal.Decimal, time.Time, error)
}

// AmountResolution is the expected amount of one installment
type AmountResolution struct {
	Amount      decimal.Decimal
	Provisional bool
}

// AmountResolver turns a service's nominal amount into the expected amount of an installment
type AmountResolver struct {
	Rates            RateProvider
	Decimals         int32
	AllowProvisional bool
}

// Resolve computes the expected amount due on dueDate
func (r *AmountResolver) Resolve(ctx context.Context, nominal decimal.Decimal, indexation domain.AmountIndexation, dueDate time.Time) (AmountResolution, error) {
	switch indexation {
	case domain.IndexationNone, "":
		return AmountResolution{Amount: nominal}, nil

	case domain.IndexationUF:
		if r.Rates == nil {
			return AmountResolution{}, customError.WrapUpstreamUnavailable("no UF rate provider configured", fmt.Errorf("nil provider"))
		}

		day := utils.TruncateToDay(dueDate)
		rate, err := r.Rates.Rate(ctx, day)
		if err == nil {
			return AmountResolution{Amount: utils.RoundMoney(nominal.Mul(rate), r.Decimals)}, nil
		}
		if !r.AllowProvisional {
			return AmountResolution{}, customError.WrapUpstreamUnavailable(
				fmt.Sprintf("UF rate unavailable for %s", day.Format(utils.DateLayout)), err)
		}

		fallback, _, ferr := r.Rates.LatestBefore(ctx, day)
		if ferr != nil {
			return AmountResolution{}, customError.WrapUpstreamUnavailable(
				fmt.Sprintf("no UF rate known on or before %s", day.Format(utils.DateLayout)), ferr)
		}
		return AmountResolution{
			Amount:      utils.RoundMoney(nominal.Mul(fallback), r.Decimals),
			Provisional: true,
		}, nil
	}

	return AmountResolution{}, customError.WrapValidation(
		fmt.Sprintf("unknown amount indexation %q", indexation),
		map[string]string{"amount_indexation": string(indexation)},
	)
}
