package rate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/segyhp/obligation-engine/pkg/utils"
)

// Store reads and writes UF values in the uf_rates table
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type storedRate struct {
	Date  time.Time       `db:"rate_date"`
	Value decimal.Decimal `db:"value"`
}

func (s *Store) Rate(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	day := utils.TruncateToDay(date)

	var value decimal.Decimal
	err := s.db.GetContext(ctx, &value, `SELECT value FROM uf_rates WHERE rate_date = $1`, day)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, unavailable(day)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read uf rate: %w", err)
	}
	return value, nil
}

func (s *Store) LatestBefore(ctx context.Context, date time.Time) (decimal.Decimal, time.Time, error) {
	day := utils.TruncateToDay(date)

	var row storedRate
	err := s.db.GetContext(ctx, &row, `
		SELECT rate_date, value FROM uf_rates
		WHERE rate_date <= $1
		ORDER BY rate_date DESC
		LIMIT 1`, day)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, time.Time{}, unavailable(day)
	}
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("failed to read latest uf rate: %w", err)
	}
	return row.Value, utils.TruncateToDay(row.Date), nil
}

// Save upserts the value for date
func (s *Store) Save(ctx context.Context, date time.Time, value decimal.Decimal, source string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO uf_rates (rate_date, value, source, fetched_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (rate_date) DO UPDATE
		SET value = EXCLUDED.value, source = EXCLUDED.source, fetched_at = EXCLUDED.fetched_at`,
		utils.TruncateToDay(date), value, source)
	if err != nil {
		return fmt.Errorf("failed to save uf rate: %w", err)
	}
	return nil
}
