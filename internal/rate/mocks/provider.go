package mocks

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockRateProvider struct {
	mock.Mock
}

func (m *MockRateProvider) Rate(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockRateProvider) LatestBefore(ctx context.Context, date time.Time) (decimal.Decimal, time.Time, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(decimal.Decimal), args.Get(1).(time.Time), args.Error(2)
}
