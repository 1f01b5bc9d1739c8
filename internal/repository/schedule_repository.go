package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/segyhp/obligation-engine/internal/domain"
	customError "github.com/segyhp/obligation-engine/pkg/errors"
	"github.com/segyhp/obligation-engine/pkg/utils"
)

const scheduleColumns = `
	id, service_id, period_start, period_end, due_date,
	emission_date, emission_start, emission_end,
	expected_amount, late_fee_amount, overdue_days, provisional, status,
	paid_amount, paid_date, note,
	transaction_id, transaction_amount, transaction_description, transaction_timestamp,
	created_at, updated_at`

type scheduleRepository struct {
	db sqlx.ExtContext
}

func NewScheduleRepository(db sqlx.ExtContext) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) ListByService(ctx context.Context, serviceID int64) ([]*domain.ServiceSchedule, error) {
	query := `SELECT` + scheduleColumns + `
		FROM service_schedules
		WHERE service_id = $1
		ORDER BY period_start`

	var rows []*domain.ServiceSchedule
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, serviceID); err != nil {
		return nil, mapError(err)
	}
	normalizeDates(rows...)
	return rows, nil
}

func (r *scheduleRepository) GetByID(ctx context.Context, id int64) (*domain.ServiceSchedule, error) {
	return r.get(ctx, `SELECT`+scheduleColumns+` FROM service_schedules WHERE id = $1`, id)
}

func (r *scheduleRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.ServiceSchedule, error) {
	return r.get(ctx, `SELECT`+scheduleColumns+` FROM service_schedules WHERE id = $1 FOR UPDATE`, id)
}

func (r *scheduleRepository) get(ctx context.Context, query string, id int64) (*domain.ServiceSchedule, error) {
	var row domain.ServiceSchedule
	err := sqlx.GetContext(ctx, r.db, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapScheduleNotFound(id)
	}
	if err != nil {
		return nil, mapError(err)
	}
	normalizeDates(&row)
	return &row, nil
}

func (r *scheduleRepository) CreateBatch(ctx context.Context, rows []*domain.ServiceSchedule) error {
	query := `
		INSERT INTO service_schedules (
			service_id, period_start, period_end, due_date,
			emission_date, emission_start, emission_end,
			expected_amount, late_fee_amount, overdue_days, provisional, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	for _, row := range rows {
		err := r.db.QueryRowxContext(ctx, query,
			row.ServiceID,
			row.PeriodStart,
			row.PeriodEnd,
			row.DueDate,
			row.EmissionDate,
			row.EmissionStart,
			row.EmissionEnd,
			row.ExpectedAmount,
			row.LateFeeAmount,
			row.OverdueDays,
			row.Provisional,
			row.Status,
		).Scan(&row.ID, &row.CreatedAt, &row.UpdatedAt)
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r *scheduleRepository) DeleteUnlocked(ctx context.Context, serviceID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		DELETE FROM service_schedules
		WHERE service_id = $1
			AND id = ANY($2)
			AND status IN ('PENDING', 'SKIPPED')
			AND transaction_id IS NULL
	`

	res, err := r.db.ExecContext(ctx, query, serviceID, pq.Array(ids))
	if err != nil {
		return mapError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n != int64(len(ids)) {
		return customError.WrapConflict(
			fmt.Sprintf("expected to replace %d schedules of service %d, %d were still unlocked", len(ids), serviceID, n),
			customError.ErrStatusChanged,
		)
	}
	return nil
}

func (r *scheduleRepository) UpdateSettlement(ctx context.Context, row *domain.ServiceSchedule, expected domain.ScheduleStatus) error {
	query := `
		UPDATE service_schedules
		SET status = $3,
			paid_amount = $4,
			paid_date = $5,
			note = $6,
			transaction_id = $7,
			transaction_amount = $8,
			transaction_description = $9,
			transaction_timestamp = $10,
			late_fee_amount = $11,
			overdue_days = $12,
			updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING updated_at
	`

	var updatedAt time.Time
	err := r.db.QueryRowxContext(ctx, query,
		row.ID,
		expected,
		row.Status,
		row.PaidAmount,
		row.PaidDate,
		row.Note,
		row.TransactionID,
		row.TransactionAmount,
		row.TransactionDescription,
		row.TransactionTimestamp,
		row.LateFeeAmount,
		row.OverdueDays,
	).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return customError.WrapConflict(
			fmt.Sprintf("schedule %d is no longer %s", row.ID, expected),
			customError.ErrStatusChanged,
		)
	}
	if err != nil {
		return mapError(err)
	}

	row.UpdatedAt = updatedAt
	return nil
}

func (r *scheduleRepository) UpdateLateFees(ctx context.Context, rows []*domain.ServiceSchedule) error {
	query := `
		UPDATE service_schedules
		SET late_fee_amount = $2, overdue_days = $3, updated_at = NOW()
		WHERE id = $1
			AND status IN ('PENDING', 'PARTIAL')
			AND (late_fee_amount <> $2 OR overdue_days <> $3)
	`

	for _, row := range rows {
		if _, err := r.db.ExecContext(ctx, query, row.ID, row.LateFeeAmount, row.OverdueDays); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r *scheduleRepository) ListOpen(ctx context.Context, afterID int64, limit int) ([]*domain.ServiceSchedule, error) {
	query := `SELECT` + scheduleColumns + `
		FROM service_schedules
		WHERE status IN ('PENDING', 'PARTIAL') AND id > $1
		ORDER BY id
		LIMIT $2`

	var rows []*domain.ServiceSchedule
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, afterID, limit); err != nil {
		return nil, mapError(err)
	}
	normalizeDates(rows...)
	return rows, nil
}

// normalizeDates drops the driver's zone from DATE columns so rows compare by calendar day
func normalizeDates(rows ...*domain.ServiceSchedule) {
	for _, row := range rows {
		row.PeriodStart = utils.TruncateToDay(row.PeriodStart)
		row.PeriodEnd = utils.TruncateToDay(row.PeriodEnd)
		row.DueDate = utils.TruncateToDay(row.DueDate)
		row.EmissionDate = truncatePtr(row.EmissionDate)
		row.EmissionStart = truncatePtr(row.EmissionStart)
		row.EmissionEnd = truncatePtr(row.EmissionEnd)
		row.PaidDate = truncatePtr(row.PaidDate)
	}
}

func truncatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := utils.TruncateToDay(*t)
	return &d
}
