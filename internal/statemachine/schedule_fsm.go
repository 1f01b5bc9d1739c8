package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/segyhp/obligation-engine/internal/domain"
)

const (
	EventRegisterPartial = "register_partial"
	EventRegisterFull    = "register_full"
	EventUnlink          = "unlink"
	EventSkip            = "skip"
	EventReopen          = "reopen"
)

// ScheduleFSM wraps a schedule row with its payment state machine
type ScheduleFSM struct {
	schedule *domain.ServiceSchedule
	fsm      *fsm.FSM
}

// NewScheduleFSM creates a state machine positioned at the row's current status
func NewScheduleFSM(schedule *domain.ServiceSchedule) *ScheduleFSM {
	sfsm := &ScheduleFSM{
		schedule: schedule,
	}

	pending := string(domain.ScheduleStatusPending)
	partial := string(domain.ScheduleStatusPartial)
	paid := string(domain.ScheduleStatusPaid)
	skipped := string(domain.ScheduleStatusSkipped)

	sfsm.fsm = fsm.NewFSM(
		string(schedule.Status),
		fsm.Events{
			// pending/partial → partial (underpayment, or a second underpayment replacing the first)
			{Name: EventRegisterPartial, Src: []string{pending, partial}, Dst: partial},

			// pending/partial → paid
			{Name: EventRegisterFull, Src: []string{pending, partial}, Dst: paid},

			// paid → pending
			{Name: EventUnlink, Src: []string{paid}, Dst: pending},

			// pending → skipped (administrative)
			{Name: EventSkip, Src: []string{pending}, Dst: skipped},

			// skipped → pending
			{Name: EventReopen, Src: []string{skipped}, Dst: pending},
		},
		fsm.Callbacks{},
	)

	return sfsm
}

// RegisterPartial records an underpayment. st must be a domain.Partial.
func (s *ScheduleFSM) RegisterPartial(ctx context.Context, st domain.Partial) error {
	return s.transition(ctx, EventRegisterPartial, st)
}

// RegisterFull settles the row. st must be a domain.Paid.
func (s *ScheduleFSM) RegisterFull(ctx context.Context, st domain.Paid) error {
	return s.transition(ctx, EventRegisterFull, st)
}

// Unlink detaches the payment of a PAID row and reopens it
func (s *ScheduleFSM) Unlink(ctx context.Context) error {
	return s.transition(ctx, EventUnlink, domain.Pending{})
}

// Skip marks a PENDING row as not to be collected
func (s *ScheduleFSM) Skip(ctx context.Context) error {
	if s.schedule.TransactionID != nil {
		return fmt.Errorf("schedule %d cannot be skipped: a transaction is linked", s.schedule.ID)
	}
	return s.transition(ctx, EventSkip, domain.Skipped{})
}

// Reopen returns a SKIPPED row to PENDING
func (s *ScheduleFSM) Reopen(ctx context.Context) error {
	return s.transition(ctx, EventReopen, domain.Pending{})
}

func (s *ScheduleFSM) transition(ctx context.Context, event string, st domain.Settlement) error {
	if !s.fsm.Can(event) {
		return &TransitionError{ScheduleID: s.schedule.ID, Event: event, From: s.schedule.Status}
	}

	// PARTIAL → PARTIAL keeps the state, which looplab/fsm reports as NoTransitionError
	if err := s.fsm.Event(ctx, event); err != nil && !errors.As(err, &fsm.NoTransitionError{}) {
		return fmt.Errorf("failed to %s schedule %d: %w", event, s.schedule.ID, err)
	}

	if domain.ScheduleStatus(s.fsm.Current()) != st.Status() {
		return fmt.Errorf("event %s reached %s but settlement is %s", event, s.fsm.Current(), st.Status())
	}

	s.schedule.ApplySettlement(st)
	return nil
}

// Current returns the current state
func (s *ScheduleFSM) Current() domain.ScheduleStatus {
	return domain.ScheduleStatus(s.fsm.Current())
}

// Can checks if a transition is possible
func (s *ScheduleFSM) Can(event string) bool {
	return s.fsm.Can(event)
}

// TransitionError reports an event that is not allowed from the row's current status
type TransitionError struct {
	ScheduleID int64
	Event      string
	From       domain.ScheduleStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("schedule %d: %s is not allowed from %s", e.ScheduleID, e.Event, e.From)
}
