package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/segyhp/obligation-engine/internal/domain"
	"github.com/segyhp/obligation-engine/internal/repository"
)

type MockServiceRepository struct {
	mock.Mock
}

func (m *MockServiceRepository) Create(ctx context.Context, service *domain.Service) error {
	args := m.Called(ctx, service)
	return args.Error(0)
}

func (m *MockServiceRepository) GetByID(ctx context.Context, id int64) (*domain.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Service), args.Error(1)
}

func (m *MockServiceRepository) LockByID(ctx context.Context, id int64) (*domain.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Service), args.Error(1)
}

func (m *MockServiceRepository) UpdateGenerationDefaults(ctx context.Context, service *domain.Service) error {
	args := m.Called(ctx, service)
	return args.Error(0)
}

type MockScheduleRepository struct {
	mock.Mock
}

func (m *MockScheduleRepository) ListByService(ctx context.Context, serviceID int64) ([]*domain.ServiceSchedule, error) {
	args := m.Called(ctx, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ServiceSchedule), args.Error(1)
}

func (m *MockScheduleRepository) GetByID(ctx context.Context, id int64) (*domain.ServiceSchedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServiceSchedule), args.Error(1)
}

func (m *MockScheduleRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.ServiceSchedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServiceSchedule), args.Error(1)
}

func (m *MockScheduleRepository) CreateBatch(ctx context.Context, rows []*domain.ServiceSchedule) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

func (m *MockScheduleRepository) DeleteUnlocked(ctx context.Context, serviceID int64, ids []int64) error {
	args := m.Called(ctx, serviceID, ids)
	return args.Error(0)
}

func (m *MockScheduleRepository) UpdateSettlement(ctx context.Context, row *domain.ServiceSchedule, expected domain.ScheduleStatus) error {
	args := m.Called(ctx, row, expected)
	return args.Error(0)
}

func (m *MockScheduleRepository) UpdateLateFees(ctx context.Context, rows []*domain.ServiceSchedule) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

func (m *MockScheduleRepository) ListOpen(ctx context.Context, afterID int64, limit int) ([]*domain.ServiceSchedule, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ServiceSchedule), args.Error(1)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

// MockTransactor runs fn directly against the mocked repositories.
// Commits counts the calls whose fn returned nil, Rollbacks the others.
type MockTransactor struct {
	Repos     repository.Repositories
	Commits   int
	Rollbacks int
}

func NewMockTransactor(services *MockServiceRepository, schedules *MockScheduleRepository, transactions *MockTransactionRepository) *MockTransactor {
	return &MockTransactor{Repos: repository.Repositories{
		Services:     services,
		Schedules:    schedules,
		Transactions: transactions,
	}}
}

func (m *MockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	if err := fn(ctx, m.Repos); err != nil {
		m.Rollbacks++
		return err
	}
	m.Commits++
	return nil
}
