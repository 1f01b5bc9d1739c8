package rate

import (
	"context"
	"time"

	"github.com/segyhp/obligation-engine/pkg/logger"
	"github.com/segyhp/obligation-engine/pkg/utils"
)

// Warm fetches every day in [from, to] from src and stores it in dst.
// Days that are not published yet are skipped. It returns how many days were stored.
func Warm(ctx context.Context, src Provider, dst Saver, source string, from, to time.Time) (int, error) {
	stored := 0
	for day := utils.TruncateToDay(from); !day.After(utils.TruncateToDay(to)); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return stored, err
		}

		value, err := src.Rate(ctx, day)
		if err != nil {
			logger.Debug("UF rate not available for warm-up", "date", day.Format(utils.DateLayout), "error", err)
			continue
		}
		if err := dst.Save(ctx, day, value, source); err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}
