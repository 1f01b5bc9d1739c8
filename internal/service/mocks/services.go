package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/segyhp/obligation-engine/internal/domain"
)

type MockScheduleService struct {
	mock.Mock
}

func (m *MockScheduleService) GenerateSchedules(ctx context.Context, serviceID int64, req *domain.GenerateSchedulesRequest) (*domain.GenerateSchedulesResponse, error) {
	args := m.Called(ctx, serviceID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GenerateSchedulesResponse), args.Error(1)
}

func (m *MockScheduleService) ListSchedules(ctx context.Context, serviceID int64) ([]*domain.ServiceSchedule, error) {
	args := m.Called(ctx, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ServiceSchedule), args.Error(1)
}

func (m *MockScheduleService) GetService(ctx context.Context, serviceID int64) (*domain.ServiceResponse, error) {
	args := m.Called(ctx, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServiceResponse), args.Error(1)
}

type MockPaymentLinker struct {
	mock.Mock
}

func (m *MockPaymentLinker) Register(ctx context.Context, scheduleID int64, req *domain.RegisterPaymentRequest) (*domain.ServiceSchedule, error) {
	args := m.Called(ctx, scheduleID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServiceSchedule), args.Error(1)
}

func (m *MockPaymentLinker) Unlink(ctx context.Context, scheduleID int64, req *domain.UnlinkPaymentRequest) (*domain.ServiceSchedule, error) {
	args := m.Called(ctx, scheduleID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServiceSchedule), args.Error(1)
}

func (m *MockPaymentLinker) Skip(ctx context.Context, scheduleID int64) (*domain.ServiceSchedule, error) {
	args := m.Called(ctx, scheduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServiceSchedule), args.Error(1)
}

func (m *MockPaymentLinker) Reopen(ctx context.Context, scheduleID int64) (*domain.ServiceSchedule, error) {
	args := m.Called(ctx, scheduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServiceSchedule), args.Error(1)
}
