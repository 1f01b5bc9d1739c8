package statemachine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/obligation-engine/internal/domain"
)

func paidSettlement() domain.Paid {
	return domain.Paid{
		PaidAmount: decimal.NewFromInt(105000),
		PaidDate:   time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		Tx: domain.TransactionRef{
			ID:          42,
			Amount:      decimal.NewFromInt(105000),
			Description: "bank transfer",
			Timestamp:   time.Date(2024, 3, 20, 10, 30, 0, 0, time.UTC),
		},
	}
}

func TestScheduleFSM_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.ScheduleStatus
		event   string
		allowed bool
	}{
		{"pending register partial", domain.ScheduleStatusPending, EventRegisterPartial, true},
		{"pending register full", domain.ScheduleStatusPending, EventRegisterFull, true},
		{"partial register full", domain.ScheduleStatusPartial, EventRegisterFull, true},
		{"partial register partial", domain.ScheduleStatusPartial, EventRegisterPartial, true},
		{"paid register full", domain.ScheduleStatusPaid, EventRegisterFull, false},
		{"paid register partial", domain.ScheduleStatusPaid, EventRegisterPartial, false},
		{"paid unlink", domain.ScheduleStatusPaid, EventUnlink, true},
		{"partial unlink", domain.ScheduleStatusPartial, EventUnlink, false},
		{"pending unlink", domain.ScheduleStatusPending, EventUnlink, false},
		{"pending skip", domain.ScheduleStatusPending, EventSkip, true},
		{"partial skip", domain.ScheduleStatusPartial, EventSkip, false},
		{"skipped reopen", domain.ScheduleStatusSkipped, EventReopen, true},
		{"skipped register", domain.ScheduleStatusSkipped, EventRegisterFull, false},
		{"pending reopen", domain.ScheduleStatusPending, EventReopen, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sfsm := NewScheduleFSM(&domain.ServiceSchedule{ID: 1, Status: tt.from})
			assert.Equal(t, tt.allowed, sfsm.Can(tt.event))
		})
	}
}

func TestScheduleFSM_RegisterThenUnlink(t *testing.T) {
	ctx := context.Background()
	row := &domain.ServiceSchedule{ID: 7, Status: domain.ScheduleStatusPending}

	require.NoError(t, NewScheduleFSM(row).RegisterFull(ctx, paidSettlement()))
	assert.Equal(t, domain.ScheduleStatusPaid, row.Status)
	require.NotNil(t, row.PaidAmount)
	assert.True(t, row.PaidAmount.Equal(decimal.NewFromInt(105000)))
	require.NotNil(t, row.TransactionID)
	assert.Equal(t, int64(42), *row.TransactionID)

	st, err := row.Settlement()
	require.NoError(t, err)
	assert.IsType(t, domain.Paid{}, st)

	require.NoError(t, NewScheduleFSM(row).Unlink(ctx))
	assert.Equal(t, domain.ScheduleStatusPending, row.Status)
	assert.Nil(t, row.PaidAmount)
	assert.Nil(t, row.PaidDate)
	assert.Nil(t, row.TransactionID)
	assert.Nil(t, row.TransactionDescription)
}

func TestScheduleFSM_PartialThenFull(t *testing.T) {
	ctx := context.Background()
	row := &domain.ServiceSchedule{ID: 8, Status: domain.ScheduleStatusPending}

	partial := domain.Partial{PaidAmount: decimal.NewFromInt(30000), PaidDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, NewScheduleFSM(row).RegisterPartial(ctx, partial))
	assert.Equal(t, domain.ScheduleStatusPartial, row.Status)

	second := domain.Partial{PaidAmount: decimal.NewFromInt(50000), PaidDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, NewScheduleFSM(row).RegisterPartial(ctx, second))
	assert.Equal(t, domain.ScheduleStatusPartial, row.Status)
	assert.True(t, row.PaidAmount.Equal(decimal.NewFromInt(50000)))

	require.NoError(t, NewScheduleFSM(row).RegisterFull(ctx, paidSettlement()))
	assert.Equal(t, domain.ScheduleStatusPaid, row.Status)
	assert.True(t, row.PaidAmount.Equal(decimal.NewFromInt(105000)))
}

func TestScheduleFSM_RejectedTransitionLeavesRowUntouched(t *testing.T) {
	ctx := context.Background()
	row := &domain.ServiceSchedule{ID: 9, Status: domain.ScheduleStatusPaid}
	row.ApplySettlement(paidSettlement())

	err := NewScheduleFSM(row).RegisterFull(ctx, paidSettlement())

	var terr *TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, EventRegisterFull, terr.Event)
	assert.Equal(t, domain.ScheduleStatusPaid, terr.From)
	assert.Equal(t, domain.ScheduleStatusPaid, row.Status)
	assert.Equal(t, int64(42), *row.TransactionID)
}

func TestScheduleFSM_SkipAndReopen(t *testing.T) {
	ctx := context.Background()
	row := &domain.ServiceSchedule{ID: 10, Status: domain.ScheduleStatusPending}

	sfsm := NewScheduleFSM(row)
	require.NoError(t, sfsm.Skip(ctx))
	assert.Equal(t, domain.ScheduleStatusSkipped, row.Status)
	assert.Equal(t, domain.ScheduleStatusSkipped, sfsm.Current())

	require.NoError(t, sfsm.Reopen(ctx))
	assert.Equal(t, domain.ScheduleStatusPending, row.Status)
}

func TestScheduleFSM_SkipRefusesLinkedRow(t *testing.T) {
	txID := int64(5)
	row := &domain.ServiceSchedule{ID: 11, Status: domain.ScheduleStatusPending, TransactionID: &txID}

	err := NewScheduleFSM(row).Skip(context.Background())

	require.Error(t, err)
	assert.Equal(t, domain.ScheduleStatusPending, row.Status)
}
