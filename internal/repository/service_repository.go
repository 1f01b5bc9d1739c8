package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/obligation-engine/internal/domain"
	customError "github.com/segyhp/obligation-engine/pkg/errors"
	"github.com/segyhp/obligation-engine/pkg/utils"
)

const serviceColumns = `
	id, public_id, name, detail, category, service_type, ownership, obligation_type,
	recurrence_type, frequency, default_amount, amount_indexation, due_day,
	emission_mode, emission_day, emission_start_day, emission_end_day, emission_exact_date,
	late_fee_mode, late_fee_value, late_fee_grace_days,
	counterpart_id, counterpart_account_id, counterpart_account_ref,
	start_date, next_generation_months, status, created_at, updated_at`

type serviceRepository struct {
	db sqlx.ExtContext
}

func NewServiceRepository(db sqlx.ExtContext) ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) Create(ctx context.Context, service *domain.Service) error {
	if service.PublicID == uuid.Nil {
		service.PublicID = uuid.New()
	}

	query := `
		INSERT INTO services (
			public_id, name, detail, category, service_type, ownership, obligation_type,
			recurrence_type, frequency, default_amount, amount_indexation, due_day,
			emission_mode, emission_day, emission_start_day, emission_end_day, emission_exact_date,
			late_fee_mode, late_fee_value, late_fee_grace_days,
			counterpart_id, counterpart_account_id, counterpart_account_ref,
			start_date, next_generation_months, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		service.PublicID,
		service.Name,
		service.Detail,
		service.Category,
		service.ServiceType,
		service.Ownership,
		service.ObligationType,
		service.RecurrenceType,
		service.Frequency,
		service.DefaultAmount,
		service.AmountIndexation,
		service.DueDay,
		service.EmissionMode,
		service.EmissionDay,
		service.EmissionStartDay,
		service.EmissionEndDay,
		service.EmissionExactDate,
		service.LateFeeMode,
		service.LateFeeValue,
		service.LateFeeGraceDays,
		service.CounterpartID,
		service.CounterpartAccountID,
		service.CounterpartAccountRef,
		utils.TruncateToDay(service.StartDate),
		service.NextGenerationMonths,
		service.Status,
	).Scan(&service.ID, &service.CreatedAt, &service.UpdatedAt)

	return mapError(err)
}

func (r *serviceRepository) GetByID(ctx context.Context, id int64) (*domain.Service, error) {
	return r.get(ctx, `SELECT`+serviceColumns+` FROM services WHERE id = $1`, id)
}

func (r *serviceRepository) LockByID(ctx context.Context, id int64) (*domain.Service, error) {
	return r.get(ctx, `SELECT`+serviceColumns+` FROM services WHERE id = $1 FOR UPDATE`, id)
}

func (r *serviceRepository) get(ctx context.Context, query string, id int64) (*domain.Service, error) {
	var service domain.Service
	err := sqlx.GetContext(ctx, r.db, &service, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapServiceNotFound(id)
	}
	if err != nil {
		return nil, mapError(err)
	}

	service.StartDate = utils.TruncateToDay(service.StartDate)
	if service.EmissionExactDate != nil {
		d := utils.TruncateToDay(*service.EmissionExactDate)
		service.EmissionExactDate = &d
	}
	return &service, nil
}

func (r *serviceRepository) UpdateGenerationDefaults(ctx context.Context, service *domain.Service) error {
	query := `
		UPDATE services
		SET frequency = $2, default_amount = $3, due_day = $4, emission_day = $5,
			next_generation_months = $6, updated_at = $7
		WHERE id = $1
	`

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, query,
		service.ID,
		service.Frequency,
		service.DefaultAmount,
		service.DueDay,
		service.EmissionDay,
		service.NextGenerationMonths,
		now,
	)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return customError.WrapServiceNotFound(service.ID)
	}

	service.UpdatedAt = now
	return nil
}
