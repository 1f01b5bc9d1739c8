// Package rate supplies daily UF values to the amount resolver.
//
// Providers are stacked: a Redis cache in front of the local uf_rates table
// in front of the public indicator API. Chain asks them in that order.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/obligation-engine/pkg/utils"
)

// ErrUnavailable means no value is published for the requested day
var ErrUnavailable = errors.New("uf rate unavailable")

// Provider returns the value of one UF on a given day
type Provider interface {
	Rate(ctx context.Context, date time.Time) (decimal.Decimal, error)
	LatestBefore(ctx context.Context, date time.Time) (decimal.Decimal, time.Time, error)
}

// Saver persists a value fetched from an upstream provider
type Saver interface {
	Save(ctx context.Context, date time.Time, value decimal.Decimal, source string) error
}

func unavailable(date time.Time) error {
	return fmt.Errorf("%w for %s", ErrUnavailable, utils.TruncateToDay(date).Format(utils.DateLayout))
}
