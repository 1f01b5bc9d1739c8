package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/obligation-engine/internal/billing"
	"github.com/segyhp/obligation-engine/internal/clock"
	"github.com/segyhp/obligation-engine/internal/config"
	"github.com/segyhp/obligation-engine/internal/domain"
	"github.com/segyhp/obligation-engine/internal/repository"
	customError "github.com/segyhp/obligation-engine/pkg/errors"
	"github.com/segyhp/obligation-engine/pkg/logger"
	"github.com/segyhp/obligation-engine/pkg/utils"
)

type ScheduleService struct {
	repos      repository.Repositories
	transactor repository.Transactor
	amounts    *billing.AmountResolver
	clock      clock.Clock
	config     *config.Config
}

func NewScheduleService(
	repos repository.Repositories,
	transactor repository.Transactor,
	amounts *billing.AmountResolver,
	clk clock.Clock,
	config *config.Config,
) *ScheduleService {
	return &ScheduleService{
		repos:      repos,
		transactor: transactor,
		amounts:    amounts,
		clock:      clk,
		config:     config,
	}
}

// GenerateSchedules (re)generates the schedule of a service without touching settled rows.
// Everything happens in one transaction holding the service's row lock.
func (s *ScheduleService) GenerateSchedules(ctx context.Context, serviceID int64, req *domain.GenerateSchedulesRequest) (*domain.GenerateSchedulesResponse, error) {
	if req == nil {
		req = &domain.GenerateSchedulesRequest{}
	}
	if err := domain.Validate(req); err != nil {
		return nil, err
	}

	var fromDate *time.Time
	if req.FromDate != nil {
		d, err := utils.ParseDate(*req.FromDate)
		if err != nil {
			return nil, customError.WrapValidation("from_date is not a calendar date", map[string]string{"from_date": *req.FromDate})
		}
		fromDate = &d
	}

	var result *domain.GenerateSchedulesResponse
	err := s.transactor.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		// 1. Lock the service; concurrent generations and payments on it wait here
		svc, err := repos.Services.LockByID(ctx, serviceID)
		if err != nil {
			return err
		}

		// 2. Apply overrides; they become the service defaults when we commit
		overridden := applyOverrides(svc, req)
		requested := 0
		if req.Months != nil {
			requested = *req.Months
		}
		count := billing.PeriodCount(requested, svc.NextGenerationMonths, svc.RecurrenceType, svc.Frequency)
		if count > s.config.Business.MaxGenerationMonths {
			count = s.config.Business.MaxGenerationMonths
		}

		// 3. Load existing rows and find where new periods start
		existing, err := repos.Schedules.ListByService(ctx, serviceID)
		if err != nil {
			return err
		}
		locked, unlocked := billing.Partition(existing)
		anchor := billing.Anchor(locked, fromDate, svc.StartDate)

		// 4. Enumerate and merge against locked rows. A settled one-off service has nothing left to generate.
		var periods []billing.Period
		if !(svc.IsSinglePeriod() && len(locked) > 0) {
			periods, err = billing.EnumeratePeriods(anchor, svc.Frequency, count)
			if err != nil {
				return err
			}
		}
		plan, err := billing.PlanMerge(existing, periods)
		if err != nil {
			if errors.Is(err, customError.ErrInvariantViolation) {
				logger.CaptureError("Locked schedules overlap during regeneration", err,
					"service_id", serviceID,
					"anchor", anchor.Format(utils.DateLayout),
					"locked_count", len(locked),
				)
			}
			return err
		}

		// 5. Build the new rows before touching anything, a missing UF rate aborts here
		now := s.clock.Now()
		fresh := make([]*domain.ServiceSchedule, 0, len(plan.Create))
		for _, p := range plan.Create {
			row, err := s.buildRow(ctx, svc, p, now)
			if err != nil {
				return err
			}
			fresh = append(fresh, row)
		}
		reused, create, del := billing.Reuse(plan, unlocked, fresh)

		// 6. Replace unlocked rows
		if err := repos.Schedules.DeleteUnlocked(ctx, serviceID, del); err != nil {
			return err
		}
		if len(create) > 0 {
			if err := repos.Schedules.CreateBatch(ctx, create); err != nil {
				return err
			}
		}
		if len(reused) > 0 {
			for _, row := range reused {
				billing.Refresh(row, svc.LateFeePolicy(), now, s.decimals())
			}
			if err := repos.Schedules.UpdateLateFees(ctx, reused); err != nil {
				return err
			}
		}

		// 7. Persist overrides as new defaults
		if overridden || req.Months != nil {
			if req.Months != nil {
				svc.NextGenerationMonths = *req.Months
			}
			if err := repos.Services.UpdateGenerationDefaults(ctx, svc); err != nil {
				return err
			}
		}

		// 8. Merged schedule ordered by period start
		schedules := make([]*domain.ServiceSchedule, 0, len(plan.Keep)+len(reused)+len(create))
		for _, row := range plan.Keep {
			billing.Refresh(row, svc.LateFeePolicy(), now, s.decimals())
			schedules = append(schedules, row)
		}
		schedules = append(schedules, reused...)
		schedules = append(schedules, create...)
		billing.SortSchedules(schedules)

		logger.Info("Schedules generated",
			"service_id", serviceID,
			"anchor", anchor.Format(utils.DateLayout),
			"periods", count,
			"kept", len(plan.Keep),
			"reused", len(reused),
			"created", len(create),
			"deleted", len(del),
			"skipped", len(plan.Skipped),
		)

		result = &domain.GenerateSchedulesResponse{Service: svc, Schedules: schedules}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyOverrides copies the supplied overrides onto svc and reports whether any was given
func applyOverrides(svc *domain.Service, req *domain.GenerateSchedulesRequest) bool {
	overridden := false
	if req.Frequency != nil {
		svc.Frequency = *req.Frequency
		overridden = true
	}
	if req.DefaultAmount != nil {
		svc.DefaultAmount = *req.DefaultAmount
		overridden = true
	}
	if req.DueDay != nil {
		svc.DueDay = utils.IntPtr(*req.DueDay)
		overridden = true
	}
	if req.EmissionDay != nil {
		svc.EmissionDay = utils.IntPtr(*req.EmissionDay)
		overridden = true
	}
	return overridden
}

func (s *ScheduleService) buildRow(ctx context.Context, svc *domain.Service, p billing.Period, now time.Time) (*domain.ServiceSchedule, error) {
	due := billing.ResolveDueDate(p, svc.DueDay)

	amount, err := s.amounts.Resolve(ctx, svc.DefaultAmount, svc.AmountIndexation, due)
	if err != nil {
		return nil, err
	}

	emission := billing.ResolveEmission(p, svc.EmissionPolicy())
	row := &domain.ServiceSchedule{
		ServiceID:      svc.ID,
		PeriodStart:    p.Start,
		PeriodEnd:      p.End,
		DueDate:        due,
		EmissionDate:   emission.Date,
		EmissionStart:  emission.Start,
		EmissionEnd:    emission.End,
		ExpectedAmount: amount.Amount,
		Provisional:    amount.Provisional,
		Status:         domain.ScheduleStatusPending,
	}
	billing.Refresh(row, svc.LateFeePolicy(), now, s.decimals())
	return row, nil
}

// ListSchedules returns the schedule of a service with late fees computed against now
func (s *ScheduleService) ListSchedules(ctx context.Context, serviceID int64) ([]*domain.ServiceSchedule, error) {
	svc, err := s.repos.Services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repos.Schedules.ListByService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	for _, row := range rows {
		billing.Refresh(row, svc.LateFeePolicy(), now, s.decimals())
	}
	return rows, nil
}

// GetService returns a service with the aggregates of its schedule
func (s *ScheduleService) GetService(ctx context.Context, serviceID int64) (*domain.ServiceResponse, error) {
	svc, err := s.repos.Services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repos.Schedules.ListByService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	summary := domain.ServiceSummary{TotalExpected: decimal.Zero, TotalPaid: decimal.Zero}
	for _, row := range rows {
		billing.Refresh(row, svc.LateFeePolicy(), now, s.decimals())

		switch row.Status {
		case domain.ScheduleStatusPending, domain.ScheduleStatusPartial:
			summary.PendingCount++
			if row.OverdueDays > 0 {
				summary.OverdueCount++
			}
			summary.TotalExpected = summary.TotalExpected.Add(row.EffectiveAmount)
		case domain.ScheduleStatusPaid:
			summary.TotalExpected = summary.TotalExpected.Add(row.EffectiveAmount)
		}

		if row.PaidAmount != nil && (row.Status == domain.ScheduleStatusPaid || row.Status == domain.ScheduleStatusPartial) {
			summary.TotalPaid = summary.TotalPaid.Add(*row.PaidAmount)
		}
	}

	return &domain.ServiceResponse{Service: svc, Summary: summary}, nil
}

// RefreshLateFees recomputes the cached overdue days and late fee of every open row.
// It returns how many rows were visited.
func (s *ScheduleService) RefreshLateFees(ctx context.Context) (int, error) {
	now := s.clock.Now()
	batch := s.config.Business.RefreshBatchSize
	services := make(map[int64]*domain.Service)

	visited := 0
	var afterID int64
	for {
		rows, err := s.repos.Schedules.ListOpen(ctx, afterID, batch)
		if err != nil {
			return visited, err
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			svc, ok := services[row.ServiceID]
			if !ok {
				svc, err = s.repos.Services.GetByID(ctx, row.ServiceID)
				if err != nil {
					return visited, fmt.Errorf("load service %d: %w", row.ServiceID, err)
				}
				services[row.ServiceID] = svc
			}
			billing.Refresh(row, svc.LateFeePolicy(), now, s.decimals())
		}

		if err := s.repos.Schedules.UpdateLateFees(ctx, rows); err != nil {
			return visited, err
		}

		visited += len(rows)
		afterID = rows[len(rows)-1].ID
		if len(rows) < batch {
			break
		}
	}

	logger.Info("Late fees refreshed", "rows", visited, "services", len(services))
	return visited, nil
}

func (s *ScheduleService) decimals() int32 {
	return s.config.GetCurrencyDecimals()
}
