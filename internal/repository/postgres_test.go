package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/obligation-engine/internal/billing"
	"github.com/segyhp/obligation-engine/internal/clock"
	"github.com/segyhp/obligation-engine/internal/config"
	"github.com/segyhp/obligation-engine/internal/domain"
	"github.com/segyhp/obligation-engine/internal/rate"
	"github.com/segyhp/obligation-engine/internal/repository"
	"github.com/segyhp/obligation-engine/internal/service"
	customError "github.com/segyhp/obligation-engine/pkg/errors"
	"github.com/segyhp/obligation-engine/pkg/utils"
)

// openTestDB connects to TEST_DATABASE_URL and recreates the schema
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migration, err := os.ReadFile("../../migrations/001_init.sql")
	require.NoError(t, err)

	_, err = db.Exec(`DROP TABLE IF EXISTS service_schedules, transactions, services, uf_rates CASCADE`)
	require.NoError(t, err)
	_, err = db.Exec(string(migration))
	require.NoError(t, err)
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func createService(t *testing.T, repos repository.Repositories) *domain.Service {
	t.Helper()

	svc := &domain.Service{
		Name:                 "Office rent",
		ServiceType:          "BUSINESS",
		Ownership:            "COMPANY",
		ObligationType:       "SERVICE",
		RecurrenceType:       domain.RecurrenceRecurring,
		Frequency:            domain.FrequencyMonthly,
		DefaultAmount:        decimal.NewFromInt(50000),
		AmountIndexation:     domain.IndexationNone,
		DueDay:               utils.IntPtr(10),
		EmissionMode:         domain.EmissionFixedDay,
		LateFeeMode:          domain.LateFeePercentage,
		LateFeeValue:         utils.DecimalPtr(decimal.NewFromInt(5)),
		LateFeeGraceDays:     utils.IntPtr(3),
		StartDate:            day(2024, 1, 1),
		NextGenerationMonths: 12,
		Status:               domain.ServiceStatusActive,
	}
	require.NoError(t, repos.Services.Create(context.Background(), svc))
	require.NotZero(t, svc.ID)
	return svc
}

func insertTransaction(t *testing.T, db *sqlx.DB, amount int64, at time.Time) int64 {
	t.Helper()

	var id int64
	err := db.QueryRowx(`INSERT INTO transactions (amount, description, timestamp) VALUES ($1, $2, $3) RETURNING id`,
		decimal.NewFromInt(amount), "TRANSFER ACME SPA", at).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestPostgres_GenerateRegisterRegenerate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repos := repository.NewRepositories(db)
	svc := createService(t, repos)

	cfg := &config.Config{Business: config.BusinessConfig{MaxGenerationMonths: 120, RefreshBatchSize: 5}}
	clk := clock.NewFixed(day(2024, 2, 20))
	transactor := repository.NewTransactor(db)
	schedules := service.NewScheduleService(repos, transactor, &billing.AmountResolver{}, clk, cfg)
	linker := service.NewPaymentLinker(transactor, clk, cfg)

	first, err := schedules.GenerateSchedules(ctx, svc.ID, nil)
	require.NoError(t, err)
	require.Len(t, first.Schedules, 12)

	jan := first.Schedules[0]
	txID := insertTransaction(t, db, 50000, day(2024, 1, 9))
	paid, err := linker.Register(ctx, jan.ID, &domain.RegisterPaymentRequest{
		TransactionID: txID,
		PaidAmount:    decimal.NewFromInt(50000),
		PaidDate:      "2024-01-09",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleStatusPaid, paid.Status)

	amount := decimal.NewFromInt(55000)
	second, err := schedules.GenerateSchedules(ctx, svc.ID, &domain.GenerateSchedulesRequest{DefaultAmount: &amount})
	require.NoError(t, err)
	// twelve new periods counted from the day after the paid one
	require.Len(t, second.Schedules, 13)

	assert.Equal(t, jan.ID, second.Schedules[0].ID)
	assert.Equal(t, domain.ScheduleStatusPaid, second.Schedules[0].Status)
	assert.True(t, second.Schedules[0].ExpectedAmount.Equal(decimal.NewFromInt(50000)))
	for _, row := range second.Schedules[1:] {
		assert.True(t, row.ExpectedAmount.Equal(amount), "row %d has %s", row.ID, row.ExpectedAmount)
	}

	stored, err := repos.Services.GetByID(ctx, svc.ID)
	require.NoError(t, err)
	assert.True(t, stored.DefaultAmount.Equal(amount))

	third, err := schedules.GenerateSchedules(ctx, svc.ID, nil)
	require.NoError(t, err)
	require.Len(t, third.Schedules, 13)
	for i := range third.Schedules {
		assert.Equal(t, second.Schedules[i].ID, third.Schedules[i].ID)
	}

	unlinked, err := linker.Unlink(ctx, jan.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleStatusPending, unlinked.Status)
	assert.Nil(t, unlinked.TransactionID)

	refreshed, err := schedules.RefreshLateFees(ctx)
	require.NoError(t, err)
	assert.Equal(t, 13, refreshed)

	reread, err := repos.Schedules.GetByID(ctx, jan.ID)
	require.NoError(t, err)
	assert.Equal(t, 41, reread.OverdueDays)
	assert.True(t, reread.LateFeeAmount.Equal(decimal.NewFromInt(2500)), "got %s", reread.LateFeeAmount)
}

func TestPostgres_ScheduleGuards(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repos := repository.NewRepositories(db)
	svc := createService(t, repos)

	row := &domain.ServiceSchedule{
		ServiceID:      svc.ID,
		PeriodStart:    day(2024, 1, 1),
		PeriodEnd:      day(2024, 1, 31),
		DueDate:        day(2024, 1, 10),
		ExpectedAmount: decimal.NewFromInt(50000),
		LateFeeAmount:  decimal.Zero,
		Status:         domain.ScheduleStatusPending,
	}
	require.NoError(t, repos.Schedules.CreateBatch(ctx, []*domain.ServiceSchedule{row}))

	dup := *row
	err := repos.Schedules.CreateBatch(ctx, []*domain.ServiceSchedule{&dup})
	assert.True(t, errors.Is(err, customError.ErrConflict), "duplicate period: %v", err)

	escaping := *row
	escaping.PeriodStart = day(2024, 2, 1)
	escaping.PeriodEnd = day(2024, 2, 29)
	escaping.DueDate = day(2024, 3, 1)
	err = repos.Schedules.CreateBatch(ctx, []*domain.ServiceSchedule{&escaping})
	assert.True(t, errors.Is(err, customError.ErrInvariantViolation), "due date outside period: %v", err)

	txID := insertTransaction(t, db, 50000, day(2024, 1, 9))
	stale := *row
	stale.ApplySettlement(domain.Paid{PaidAmount: decimal.NewFromInt(50000), PaidDate: day(2024, 1, 9), Tx: domain.TransactionRef{ID: txID}})
	require.NoError(t, repos.Schedules.UpdateSettlement(ctx, &stale, domain.ScheduleStatusPending))

	err = repos.Schedules.UpdateSettlement(ctx, &stale, domain.ScheduleStatusPending)
	assert.True(t, errors.Is(err, customError.ErrStatusChanged))

	err = repos.Schedules.DeleteUnlocked(ctx, svc.ID, []int64{row.ID})
	assert.True(t, errors.Is(err, customError.ErrConflict))

	locked, err := repos.Schedules.GetByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleStatusPaid, locked.Status)
	assert.Equal(t, day(2024, 1, 9), *locked.PaidDate)

	_, err = repos.Schedules.GetByID(ctx, row.ID+100)
	assert.True(t, errors.Is(err, customError.ErrScheduleNotFound))
	_, err = repos.Transactions.GetByID(ctx, txID+100)
	assert.True(t, errors.Is(err, customError.ErrTransactionNotFound))
}

func TestPostgres_TransactorRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	svc := createService(t, repository.NewRepositories(db))

	boom := errors.New("boom")
	err := repository.NewTransactor(db).WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Services.LockByID(ctx, svc.ID); err != nil {
			return err
		}
		rows := []*domain.ServiceSchedule{{
			ServiceID:      svc.ID,
			PeriodStart:    day(2024, 1, 1),
			PeriodEnd:      day(2024, 1, 31),
			DueDate:        day(2024, 1, 10),
			ExpectedAmount: decimal.NewFromInt(1),
			Status:         domain.ScheduleStatusPending,
		}}
		if err := repos.Schedules.CreateBatch(ctx, rows); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := repository.NewRepositories(db).Schedules.ListByService(ctx, svc.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPostgres_RateStore(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := rate.NewStore(db)

	_, err := store.Rate(ctx, day(2024, 3, 10))
	assert.True(t, errors.Is(err, rate.ErrUnavailable))

	require.NoError(t, store.Save(ctx, day(2024, 3, 8), decimal.RequireFromString("36780.10"), "test"))
	require.NoError(t, store.Save(ctx, day(2024, 3, 10), decimal.RequireFromString("36789.36"), "test"))
	require.NoError(t, store.Save(ctx, day(2024, 3, 10), decimal.RequireFromString("36790.00"), "test"))

	value, err := store.Rate(ctx, day(2024, 3, 10).Add(15*time.Hour))
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.RequireFromString("36790")))

	value, on, err := store.LatestBefore(ctx, day(2024, 3, 9))
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.RequireFromString("36780.10")))
	assert.Equal(t, day(2024, 3, 8), on)
}
