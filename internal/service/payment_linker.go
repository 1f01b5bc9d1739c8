package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/segyhp/obligation-engine/internal/billing"
	"github.com/segyhp/obligation-engine/internal/clock"
	"github.com/segyhp/obligation-engine/internal/config"
	"github.com/segyhp/obligation-engine/internal/domain"
	"github.com/segyhp/obligation-engine/internal/repository"
	"github.com/segyhp/obligation-engine/internal/statemachine"
	customError "github.com/segyhp/obligation-engine/pkg/errors"
	"github.com/segyhp/obligation-engine/pkg/logger"
	"github.com/segyhp/obligation-engine/pkg/utils"
)

// PaymentLinker attaches external transactions to schedule rows and detaches them
type PaymentLinker struct {
	transactor repository.Transactor
	clock      clock.Clock
	config     *config.Config
}

func NewPaymentLinker(transactor repository.Transactor, clk clock.Clock, config *config.Config) *PaymentLinker {
	return &PaymentLinker{
		transactor: transactor,
		clock:      clk,
		config:     config,
	}
}

// mutation changes row in memory; mutate persists it guarded on the status it had when read
type mutation func(ctx context.Context, repos repository.Repositories, svc *domain.Service, row *domain.ServiceSchedule) error

// mutate locks the owning service, re-reads the row under lock and applies fn.
// The lock order (service, then row) matches GenerateSchedules.
func (l *PaymentLinker) mutate(ctx context.Context, scheduleID int64, expected *domain.ScheduleStatus, fn mutation) (*domain.ServiceSchedule, error) {
	var result *domain.ServiceSchedule
	err := l.transactor.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		// 1. Find the owning service
		row, err := repos.Schedules.GetByID(ctx, scheduleID)
		if err != nil {
			return err
		}

		// 2. Serialize with regeneration of the same service
		svc, err := repos.Services.LockByID(ctx, row.ServiceID)
		if err != nil {
			return err
		}

		// 3. Re-read under lock; a concurrent regeneration may have deleted the row
		row, err = repos.Schedules.GetByIDForUpdate(ctx, scheduleID)
		if err != nil {
			return err
		}
		if expected != nil && *expected != row.Status {
			return customError.WrapStatusChanged(scheduleID, string(*expected), string(row.Status))
		}

		// 4. Apply and persist guarded on the status we just read
		previous := row.Status
		if err := fn(ctx, repos, svc, row); err != nil {
			return err
		}
		billing.Refresh(row, svc.LateFeePolicy(), l.clock.Now(), l.config.GetCurrencyDecimals())

		if err := repos.Schedules.UpdateSettlement(ctx, row, previous); err != nil {
			return err
		}

		result = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Register links a transaction to a schedule row. The row becomes PAID when the paid amount
// covers the effective amount at the payment date, PARTIAL otherwise.
func (l *PaymentLinker) Register(ctx context.Context, scheduleID int64, req *domain.RegisterPaymentRequest) (*domain.ServiceSchedule, error) {
	if err := domain.Validate(req); err != nil {
		return nil, err
	}
	paidDate, err := utils.ParseDate(req.PaidDate)
	if err != nil {
		return nil, customError.WrapValidation("paid_date is not a calendar date", map[string]string{"paid_date": req.PaidDate})
	}

	row, err := l.mutate(ctx, scheduleID, req.ExpectedStatus, func(ctx context.Context, repos repository.Repositories, svc *domain.Service, row *domain.ServiceSchedule) error {
		if row.Status == domain.ScheduleStatusPaid {
			return customError.WrapAlreadyPaid(row.ID)
		}

		txn, err := repos.Transactions.GetByID(ctx, req.TransactionID)
		if err != nil {
			return err
		}

		owed := billing.ComputeLateFee(billing.LateFeeInput{
			DueDate:        row.DueDate,
			Now:            paidDate,
			Status:         row.Status,
			Policy:         svc.LateFeePolicy(),
			ExpectedAmount: row.ExpectedAmount,
			Decimals:       l.config.GetCurrencyDecimals(),
		}).EffectiveAmount

		sfsm := statemachine.NewScheduleFSM(row)
		if req.PaidAmount.GreaterThanOrEqual(owed) {
			err = sfsm.RegisterFull(ctx, domain.Paid{PaidAmount: req.PaidAmount, PaidDate: paidDate, Tx: txn.Ref(), Note: req.Note})
		} else {
			err = sfsm.RegisterPartial(ctx, domain.Partial{PaidAmount: req.PaidAmount, PaidDate: paidDate, Tx: txn.Ref(), Note: req.Note})
		}
		return transitionError(err)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Payment registered",
		"schedule_id", row.ID,
		"service_id", row.ServiceID,
		"transaction_id", req.TransactionID,
		"paid_amount", req.PaidAmount.String(),
		"status", row.Status,
	)
	return row, nil
}

// Unlink detaches the payment of a PAID row and returns it to PENDING
func (l *PaymentLinker) Unlink(ctx context.Context, scheduleID int64, req *domain.UnlinkPaymentRequest) (*domain.ServiceSchedule, error) {
	if req == nil {
		req = &domain.UnlinkPaymentRequest{}
	}
	if err := domain.Validate(req); err != nil {
		return nil, err
	}

	row, err := l.mutate(ctx, scheduleID, req.ExpectedStatus, func(ctx context.Context, _ repository.Repositories, _ *domain.Service, row *domain.ServiceSchedule) error {
		if row.Status != domain.ScheduleStatusPaid {
			return customError.WrapNotPaid(row.ID, string(row.Status))
		}
		return transitionError(statemachine.NewScheduleFSM(row).Unlink(ctx))
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Payment unlinked", "schedule_id", row.ID, "service_id", row.ServiceID)
	return row, nil
}

// Skip marks a PENDING row as not to be collected
func (l *PaymentLinker) Skip(ctx context.Context, scheduleID int64) (*domain.ServiceSchedule, error) {
	row, err := l.mutate(ctx, scheduleID, nil, func(ctx context.Context, _ repository.Repositories, _ *domain.Service, row *domain.ServiceSchedule) error {
		return transitionError(statemachine.NewScheduleFSM(row).Skip(ctx))
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Schedule skipped", "schedule_id", row.ID, "service_id", row.ServiceID)
	return row, nil
}

// Reopen returns a SKIPPED row to PENDING
func (l *PaymentLinker) Reopen(ctx context.Context, scheduleID int64) (*domain.ServiceSchedule, error) {
	row, err := l.mutate(ctx, scheduleID, nil, func(ctx context.Context, _ repository.Repositories, _ *domain.Service, row *domain.ServiceSchedule) error {
		return transitionError(statemachine.NewScheduleFSM(row).Reopen(ctx))
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Schedule reopened", "schedule_id", row.ID, "service_id", row.ServiceID)
	return row, nil
}

// transitionError reports a refused state transition as a conflict
func transitionError(err error) error {
	if err == nil {
		return nil
	}
	var terr *statemachine.TransitionError
	if errors.As(err, &terr) {
		return customError.WrapConflict(terr.Error(), err)
	}
	return customError.WrapConflict(fmt.Sprintf("schedule transition failed: %v", err), err)
}
