package service

import (
	"context"

	"github.com/segyhp/obligation-engine/internal/domain"
)

// Schedules is the schedule side of the API
type Schedules interface {
	GenerateSchedules(ctx context.Context, serviceID int64, req *domain.GenerateSchedulesRequest) (*domain.GenerateSchedulesResponse, error)
	ListSchedules(ctx context.Context, serviceID int64) ([]*domain.ServiceSchedule, error)
	GetService(ctx context.Context, serviceID int64) (*domain.ServiceResponse, error)
}

// Payments is the settlement side of the API
type Payments interface {
	Register(ctx context.Context, scheduleID int64, req *domain.RegisterPaymentRequest) (*domain.ServiceSchedule, error)
	Unlink(ctx context.Context, scheduleID int64, req *domain.UnlinkPaymentRequest) (*domain.ServiceSchedule, error)
	Skip(ctx context.Context, scheduleID int64) (*domain.ServiceSchedule, error)
	Reopen(ctx context.Context, scheduleID int64) (*domain.ServiceSchedule, error)
}

var (
	_ Schedules = (*ScheduleService)(nil)
	_ Payments  = (*PaymentLinker)(nil)
)
