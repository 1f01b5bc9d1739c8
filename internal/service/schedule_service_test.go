package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/obligation-engine/internal/billing"
	"github.com/segyhp/obligation-engine/internal/clock"
	"github.com/segyhp/obligation-engine/internal/config"
	"github.com/segyhp/obligation-engine/internal/domain"
	ratemocks "github.com/segyhp/obligation-engine/internal/rate/mocks"
	"github.com/segyhp/obligation-engine/internal/repository/mocks"
	customError "github.com/segyhp/obligation-engine/pkg/errors"
	"github.com/segyhp/obligation-engine/pkg/utils"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testConfig() *config.Config {
	return &config.Config{
		Business: config.BusinessConfig{
			CurrencyDecimals:    0,
			MaxGenerationMonths: 120,
			RefreshBatchSize:    2,
		},
	}
}

type fixture struct {
	services     *mocks.MockServiceRepository
	schedules    *mocks.MockScheduleRepository
	transactions *mocks.MockTransactionRepository
	transactor   *mocks.MockTransactor
	rates        *ratemocks.MockRateProvider
	clock        *clock.Fixed
	svc          *ScheduleService
	linker       *PaymentLinker
}

func newFixture(now time.Time) *fixture {
	f := &fixture{
		services:     &mocks.MockServiceRepository{},
		schedules:    &mocks.MockScheduleRepository{},
		transactions: &mocks.MockTransactionRepository{},
		rates:        &ratemocks.MockRateProvider{},
		clock:        clock.NewFixed(now),
	}
	f.transactor = mocks.NewMockTransactor(f.services, f.schedules, f.transactions)
	cfg := testConfig()
	amounts := &billing.AmountResolver{Rates: f.rates, Decimals: cfg.GetCurrencyDecimals()}
	f.svc = NewScheduleService(f.transactor.Repos, f.transactor, amounts, f.clock, cfg)
	f.linker = NewPaymentLinker(f.transactor, f.clock, cfg)
	return f
}

func monthlyService() *domain.Service {
	return &domain.Service{
		ID:                   1,
		Name:                 "Office rent",
		RecurrenceType:       domain.RecurrenceRecurring,
		Frequency:            domain.FrequencyMonthly,
		DefaultAmount:        decimal.NewFromInt(50000),
		AmountIndexation:     domain.IndexationNone,
		DueDay:               utils.IntPtr(10),
		EmissionMode:         domain.EmissionFixedDay,
		LateFeeMode:          domain.LateFeeNone,
		StartDate:            day(2024, 1, 1),
		NextGenerationMonths: 12,
		Status:               domain.ServiceStatusActive,
	}
}

// existingRows builds twelve monthly rows from Jan 2024, the first paid ones settled
func existingRows(paid int, amount int64) []*domain.ServiceSchedule {
	rows := make([]*domain.ServiceSchedule, 0, 12)
	for i := 0; i < 12; i++ {
		start := day(2024, time.Month(1+i), 1)
		row := &domain.ServiceSchedule{
			ID:             int64(i + 1),
			ServiceID:      1,
			PeriodStart:    start,
			PeriodEnd:      start.AddDate(0, 1, -1),
			DueDate:        start.AddDate(0, 0, 9),
			ExpectedAmount: decimal.NewFromInt(amount),
			Status:         domain.ScheduleStatusPending,
		}
		if i < paid {
			txID := int64(100 + i)
			row.ApplySettlement(domain.Paid{
				PaidAmount: decimal.NewFromInt(amount),
				PaidDate:   start.AddDate(0, 0, 5),
				Tx:         domain.TransactionRef{ID: txID, Amount: decimal.NewFromInt(amount)},
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func assignIDs(from int64) func(args mock.Arguments) {
	return func(args mock.Arguments) {
		next := from
		for _, row := range args.Get(1).([]*domain.ServiceSchedule) {
			row.ID = next
			next++
		}
	}
}

func TestGenerateSchedules_PreservesPaidRowsAndReplacesPending(t *testing.T) {
	f := newFixture(day(2024, 2, 20))
	existing := existingRows(2, 40000)
	paidBefore := *existing[0]

	f.services.On("LockByID", mock.Anything, int64(1)).Return(monthlyService(), nil)
	f.schedules.On("ListByService", mock.Anything, int64(1)).Return(existing, nil)
	f.schedules.On("DeleteUnlocked", mock.Anything, int64(1), mock.MatchedBy(func(ids []int64) bool {
		return assert.ObjectsAreEqual([]int64{3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, ids)
	})).Return(nil)
	f.schedules.On("CreateBatch", mock.Anything, mock.MatchedBy(func(rows []*domain.ServiceSchedule) bool {
		return len(rows) == 6
	})).Run(assignIDs(13)).Return(nil)
	f.services.On("UpdateGenerationDefaults", mock.Anything, mock.MatchedBy(func(s *domain.Service) bool {
		return s.NextGenerationMonths == 6
	})).Return(nil)

	res, err := f.svc.GenerateSchedules(context.Background(), 1, &domain.GenerateSchedulesRequest{Months: utils.IntPtr(6)})

	require.NoError(t, err)
	require.Len(t, res.Schedules, 8)
	assert.Equal(t, int64(1), res.Schedules[0].ID)
	assert.Equal(t, int64(2), res.Schedules[1].ID)
	assert.Equal(t, paidBefore.PaidAmount, res.Schedules[0].PaidAmount)
	assert.Equal(t, paidBefore.TransactionID, res.Schedules[0].TransactionID)
	assert.Equal(t, domain.ScheduleStatusPaid, res.Schedules[0].Status)

	for i, row := range res.Schedules[2:] {
		assert.Equal(t, int64(13+i), row.ID)
		assert.Equal(t, domain.ScheduleStatusPending, row.Status)
		assert.Equal(t, day(2024, time.Month(3+i), 1), row.PeriodStart)
		assert.Equal(t, day(2024, time.Month(3+i), 10), row.DueDate)
		assert.True(t, row.ExpectedAmount.Equal(decimal.NewFromInt(50000)))
	}
	assert.Equal(t, 1, f.transactor.Commits)
	f.services.AssertExpectations(t)
	f.schedules.AssertExpectations(t)
}

func TestGenerateSchedules_IdempotentRegeneration(t *testing.T) {
	f := newFixture(day(2024, 1, 5))

	var stored []*domain.ServiceSchedule
	f.services.On("LockByID", mock.Anything, int64(1)).Return(monthlyService(), nil)
	list := f.schedules.On("ListByService", mock.Anything, int64(1))
	list.Run(func(mock.Arguments) {
		list.ReturnArguments = mock.Arguments{stored, nil}
	})
	f.schedules.On("DeleteUnlocked", mock.Anything, int64(1), mock.Anything).Return(nil)
	f.schedules.On("CreateBatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		assignIDs(1)(args)
		stored = append(stored, args.Get(1).([]*domain.ServiceSchedule)...)
	}).Return(nil).Once()
	f.schedules.On("UpdateLateFees", mock.Anything, mock.Anything).Return(nil)

	first, err := f.svc.GenerateSchedules(context.Background(), 1, nil)
	require.NoError(t, err)
	require.Len(t, first.Schedules, 12)

	snapshot := make([]domain.ServiceSchedule, len(first.Schedules))
	for i, row := range first.Schedules {
		snapshot[i] = *row
	}

	second, err := f.svc.GenerateSchedules(context.Background(), 1, nil)
	require.NoError(t, err)
	require.Len(t, second.Schedules, 12)

	for i, row := range second.Schedules {
		assert.Equal(t, snapshot[i], *row)
	}
	f.schedules.AssertNumberOfCalls(t, "CreateBatch", 1)
	f.schedules.AssertCalled(t, "DeleteUnlocked", mock.Anything, int64(1), []int64(nil))
	f.services.AssertNotCalled(t, "UpdateGenerationDefaults", mock.Anything, mock.Anything)
}

func TestGenerateSchedules_MonthEndDueDates(t *testing.T) {
	f := newFixture(day(2024, 1, 1))
	svc := monthlyService()
	svc.StartDate = day(2024, 1, 31)
	svc.DueDay = utils.IntPtr(31)

	f.services.On("LockByID", mock.Anything, int64(1)).Return(svc, nil)
	f.schedules.On("ListByService", mock.Anything, int64(1)).Return([]*domain.ServiceSchedule{}, nil)
	f.schedules.On("DeleteUnlocked", mock.Anything, int64(1), mock.Anything).Return(nil)
	f.schedules.On("CreateBatch", mock.Anything, mock.Anything).Run(assignIDs(1)).Return(nil)
	f.services.On("UpdateGenerationDefaults", mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.GenerateSchedules(context.Background(), 1, &domain.GenerateSchedulesRequest{Months: utils.IntPtr(3)})

	require.NoError(t, err)
	require.Len(t, res.Schedules, 3)
	assert.Equal(t, day(2024, 1, 31), res.Schedules[0].DueDate)
	assert.Equal(t, day(2024, 2, 29), res.Schedules[1].DueDate)
	assert.Equal(t, day(2024, 3, 31), res.Schedules[2].DueDate)
}

func TestGenerateSchedules_PersistsOverrides(t *testing.T) {
	f := newFixture(day(2024, 1, 1))
	quarterly := domain.FrequencyQuarterly
	amount := decimal.NewFromInt(75000)

	f.services.On("LockByID", mock.Anything, int64(1)).Return(monthlyService(), nil)
	f.schedules.On("ListByService", mock.Anything, int64(1)).Return([]*domain.ServiceSchedule{}, nil)
	f.schedules.On("DeleteUnlocked", mock.Anything, int64(1), mock.Anything).Return(nil)
	f.schedules.On("CreateBatch", mock.Anything, mock.Anything).Run(assignIDs(1)).Return(nil)
	f.services.On("UpdateGenerationDefaults", mock.Anything, mock.MatchedBy(func(s *domain.Service) bool {
		return s.Frequency == domain.FrequencyQuarterly &&
			s.DefaultAmount.Equal(amount) &&
			*s.DueDay == 5 &&
			*s.EmissionDay == 1 &&
			s.NextGenerationMonths == 12
	})).Return(nil)

	res, err := f.svc.GenerateSchedules(context.Background(), 1, &domain.GenerateSchedulesRequest{
		Frequency:     &quarterly,
		DefaultAmount: &amount,
		DueDay:        utils.IntPtr(5),
		EmissionDay:   utils.IntPtr(1),
	})

	require.NoError(t, err)
	require.Len(t, res.Schedules, 12)
	assert.Equal(t, day(2024, 4, 1), res.Schedules[1].PeriodStart)
	require.NotNil(t, res.Schedules[0].EmissionDate)
	assert.Equal(t, day(2024, 1, 1), *res.Schedules[0].EmissionDate)
	f.services.AssertExpectations(t)
}

func TestGenerateSchedules_UFUnavailableWritesNothing(t *testing.T) {
	f := newFixture(day(2024, 1, 1))
	svc := monthlyService()
	svc.AmountIndexation = domain.IndexationUF
	svc.DefaultAmount = decimal.NewFromInt(3)

	f.services.On("LockByID", mock.Anything, int64(1)).Return(svc, nil)
	f.schedules.On("ListByService", mock.Anything, int64(1)).Return(existingRows(0, 40000), nil)
	f.rates.On("Rate", mock.Anything, day(2024, 1, 10)).Return(decimal.NewFromInt(36000), nil)
	f.rates.On("Rate", mock.Anything, mock.Anything).Return(decimal.Zero, errors.New("not published"))

	_, err := f.svc.GenerateSchedules(context.Background(), 1, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, customError.ErrUpstreamUnavailable))
	assert.Equal(t, 1, f.transactor.Rollbacks)
	f.schedules.AssertNotCalled(t, "DeleteUnlocked", mock.Anything, mock.Anything, mock.Anything)
	f.schedules.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestGenerateSchedules_OverlappingLockedRowsAbort(t *testing.T) {
	f := newFixture(day(2024, 3, 1))
	existing := existingRows(1, 50000)[:3]
	partialTx := int64(200)
	existing[1].PeriodStart = day(2024, 1, 15)
	existing[1].PeriodEnd = day(2024, 2, 14)
	existing[1].ApplySettlement(domain.Partial{
		PaidAmount: decimal.NewFromInt(20000),
		PaidDate:   day(2024, 1, 20),
		Tx:         domain.TransactionRef{ID: partialTx, Amount: decimal.NewFromInt(20000)},
	})

	f.services.On("LockByID", mock.Anything, int64(1)).Return(monthlyService(), nil)
	f.schedules.On("ListByService", mock.Anything, int64(1)).Return(existing, nil)

	_, err := f.svc.GenerateSchedules(context.Background(), 1, &domain.GenerateSchedulesRequest{Months: utils.IntPtr(3)})

	require.Error(t, err)
	assert.True(t, errors.Is(err, customError.ErrInvariantViolation))
	assert.Equal(t, 0, f.transactor.Commits)
	assert.Equal(t, 1, f.transactor.Rollbacks)
	f.schedules.AssertNotCalled(t, "DeleteUnlocked", mock.Anything, mock.Anything, mock.Anything)
	f.schedules.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	f.services.AssertNotCalled(t, "UpdateGenerationDefaults", mock.Anything, mock.Anything)
}

func TestGenerateSchedules_SettledOneOffGeneratesNothing(t *testing.T) {
	f := newFixture(day(2024, 6, 1))
	svc := monthlyService()
	svc.RecurrenceType = domain.RecurrenceOneOff
	svc.Frequency = domain.FrequencyOnce
	existing := existingRows(1, 40000)[:1]

	f.services.On("LockByID", mock.Anything, int64(1)).Return(svc, nil)
	f.schedules.On("ListByService", mock.Anything, int64(1)).Return(existing, nil)
	f.schedules.On("DeleteUnlocked", mock.Anything, int64(1), []int64(nil)).Return(nil)

	res, err := f.svc.GenerateSchedules(context.Background(), 1, nil)

	require.NoError(t, err)
	require.Len(t, res.Schedules, 1)
	assert.Equal(t, domain.ScheduleStatusPaid, res.Schedules[0].Status)
	f.schedules.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestGenerateSchedules_ReplacesSkippedRows(t *testing.T) {
	f := newFixture(day(2024, 1, 1))
	existing := existingRows(0, 50000)[:3]
	existing[1].Status = domain.ScheduleStatusSkipped

	f.services.On("LockByID", mock.Anything, int64(1)).Return(monthlyService(), nil)
	f.schedules.On("ListByService", mock.Anything, int64(1)).Return(existing, nil)
	f.schedules.On("DeleteUnlocked", mock.Anything, int64(1), []int64{2}).Return(nil)
	f.schedules.On("CreateBatch", mock.Anything, mock.MatchedBy(func(rows []*domain.ServiceSchedule) bool {
		return len(rows) == 1 && rows[0].PeriodStart.Equal(day(2024, 2, 1)) && rows[0].Status == domain.ScheduleStatusPending
	})).Run(assignIDs(4)).Return(nil)
	f.schedules.On("UpdateLateFees", mock.Anything, mock.Anything).Return(nil)
	f.services.On("UpdateGenerationDefaults", mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.GenerateSchedules(context.Background(), 1, &domain.GenerateSchedulesRequest{Months: utils.IntPtr(3)})

	require.NoError(t, err)
	require.Len(t, res.Schedules, 3)
	assert.Equal(t, []int64{1, 4, 3}, []int64{res.Schedules[0].ID, res.Schedules[1].ID, res.Schedules[2].ID})
	f.schedules.AssertExpectations(t)
}

func TestGenerateSchedules_NotFound(t *testing.T) {
	f := newFixture(day(2024, 1, 1))
	f.services.On("LockByID", mock.Anything, int64(99)).Return(nil, customError.WrapServiceNotFound(99))

	_, err := f.svc.GenerateSchedules(context.Background(), 99, nil)

	assert.True(t, errors.Is(err, customError.ErrServiceNotFound))
}

func TestGenerateSchedules_Validation(t *testing.T) {
	f := newFixture(day(2024, 1, 1))

	_, err := f.svc.GenerateSchedules(context.Background(), 1, &domain.GenerateSchedulesRequest{Months: utils.IntPtr(121)})
	assert.True(t, errors.Is(err, customError.ErrValidation))

	bad := "2023-02-30"
	_, err = f.svc.GenerateSchedules(context.Background(), 1, &domain.GenerateSchedulesRequest{FromDate: &bad})
	assert.True(t, errors.Is(err, customError.ErrValidation))

	f.services.AssertNotCalled(t, "LockByID", mock.Anything, mock.Anything)
}
