package rate

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/obligation-engine/pkg/logger"
	"github.com/segyhp/obligation-engine/pkg/utils"
)

// Chain asks providers in order and returns the first value found.
// A value found past the first provider is written back to Sink when set.
type Chain struct {
	Providers []Provider
	Sink      Saver
	Source    string
}

func NewChain(providers ...Provider) *Chain {
	return &Chain{Providers: providers}
}

func (c *Chain) Rate(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	var errs []error
	for i, p := range c.Providers {
		value, err := p.Rate(ctx, date)
		if err == nil {
			if i > 0 {
				c.saveBack(ctx, date, value)
			}
			return value, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return decimal.Zero, c.fail(date, errs)
}

func (c *Chain) LatestBefore(ctx context.Context, date time.Time) (decimal.Decimal, time.Time, error) {
	var errs []error
	for _, p := range c.Providers {
		value, day, err := p.LatestBefore(ctx, date)
		if err == nil {
			return value, day, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return decimal.Zero, time.Time{}, c.fail(date, errs)
}

func (c *Chain) saveBack(ctx context.Context, date time.Time, value decimal.Decimal) {
	if c.Sink == nil {
		return
	}
	if err := c.Sink.Save(ctx, date, value, c.Source); err != nil {
		logger.Warn("Failed to store fetched UF rate", "date", utils.TruncateToDay(date).Format(utils.DateLayout), "error", err)
	}
}

func (c *Chain) fail(date time.Time, errs []error) error {
	if len(errs) == 0 {
		return unavailable(date)
	}
	return errors.Join(append([]error{unavailable(date)}, errs...)...)
}
