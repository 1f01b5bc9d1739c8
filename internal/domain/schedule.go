package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ScheduleStatus string

const (
	ScheduleStatusPending ScheduleStatus = "PENDING"
	ScheduleStatusPartial ScheduleStatus = "PARTIAL"
	ScheduleStatusPaid    ScheduleStatus = "PAID"
	ScheduleStatusSkipped ScheduleStatus = "SKIPPED"
)

// ServiceSchedule is one projected installment of a service
type ServiceSchedule struct {
	ID        int64 `json:"id" db:"id"`
	ServiceID int64 `json:"service_id" db:"service_id"`

	PeriodStart time.Time `json:"period_start" db:"period_start"`
	PeriodEnd   time.Time `json:"period_end" db:"period_end"`
	DueDate     time.Time `json:"due_date" db:"due_date"`

	EmissionDate  *time.Time `json:"emission_date,omitempty" db:"emission_date"`
	EmissionStart *time.Time `json:"emission_start,omitempty" db:"emission_start"`
	EmissionEnd   *time.Time `json:"emission_end,omitempty" db:"emission_end"`

	ExpectedAmount  decimal.Decimal `json:"expected_amount" db:"expected_amount"`
	LateFeeAmount   decimal.Decimal `json:"late_fee_amount" db:"late_fee_amount"`
	EffectiveAmount decimal.Decimal `json:"effective_amount" db:"-"`
	OverdueDays     int             `json:"overdue_days" db:"overdue_days"`
	Provisional     bool            `json:"provisional" db:"provisional"`

	Status     ScheduleStatus   `json:"status" db:"status"`
	PaidAmount *decimal.Decimal `json:"paid_amount,omitempty" db:"paid_amount"`
	PaidDate   *time.Time       `json:"paid_date,omitempty" db:"paid_date"`
	Note       *string          `json:"note,omitempty" db:"note"`

	TransactionID          *int64           `json:"transaction_id,omitempty" db:"transaction_id"`
	TransactionAmount      *decimal.Decimal `json:"transaction_amount,omitempty" db:"transaction_amount"`
	TransactionDescription *string          `json:"transaction_description,omitempty" db:"transaction_description"`
	TransactionTimestamp   *time.Time       `json:"transaction_timestamp,omitempty" db:"transaction_timestamp"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsLocked reports whether regeneration must leave the row untouched
func (s *ServiceSchedule) IsLocked() bool {
	return s.Status == ScheduleStatusPaid ||
		s.Status == ScheduleStatusPartial ||
		s.TransactionID != nil
}

// IsOpen reports whether the row still accrues late fees
func (s *ServiceSchedule) IsOpen() bool {
	return s.Status == ScheduleStatusPending || s.Status == ScheduleStatusPartial
}

// TransactionRef is a read-only snapshot of the external transaction that settled a row
type TransactionRef struct {
	ID          int64
	Amount      decimal.Decimal
	Description string
	Timestamp   time.Time
}

// Settlement is the payment state of a schedule row. Exactly one of
// Pending, Partial, Paid or Skipped.
type Settlement interface {
	Status() ScheduleStatus
	isSettlement()
}

type Pending struct{}

type Skipped struct{}

type Partial struct {
	PaidAmount decimal.Decimal
	PaidDate   time.Time
	Tx         TransactionRef
	Note       *string
}

type Paid struct {
	PaidAmount decimal.Decimal
	PaidDate   time.Time
	Tx         TransactionRef
	Note       *string
}

func (Pending) Status() ScheduleStatus { return ScheduleStatusPending }
func (Skipped) Status() ScheduleStatus { return ScheduleStatusSkipped }
func (Partial) Status() ScheduleStatus { return ScheduleStatusPartial }
func (Paid) Status() ScheduleStatus    { return ScheduleStatusPaid }

func (Pending) isSettlement() {}
func (Skipped) isSettlement() {}
func (Partial) isSettlement() {}
func (Paid) isSettlement()    {}

// Settlement decodes the persisted payment columns into a Settlement.
// It fails when the columns describe an impossible state, e.g. PAID without paid amount.
func (s *ServiceSchedule) Settlement() (Settlement, error) {
	switch s.Status {
	case ScheduleStatusPending:
		return Pending{}, nil
	case ScheduleStatusSkipped:
		return Skipped{}, nil
	case ScheduleStatusPartial, ScheduleStatusPaid:
		if s.PaidAmount == nil || s.PaidDate == nil {
			return nil, fmt.Errorf("schedule %d is %s without paid amount or date", s.ID, s.Status)
		}
		tx := TransactionRef{}
		if s.TransactionID != nil {
			tx.ID = *s.TransactionID
		}
		if s.TransactionAmount != nil {
			tx.Amount = *s.TransactionAmount
		}
		if s.TransactionDescription != nil {
			tx.Description = *s.TransactionDescription
		}
		if s.TransactionTimestamp != nil {
			tx.Timestamp = *s.TransactionTimestamp
		}
		if s.Status == ScheduleStatusPaid {
			return Paid{PaidAmount: *s.PaidAmount, PaidDate: *s.PaidDate, Tx: tx, Note: s.Note}, nil
		}
		return Partial{PaidAmount: *s.PaidAmount, PaidDate: *s.PaidDate, Tx: tx, Note: s.Note}, nil
	default:
		return nil, fmt.Errorf("schedule %d has unknown status %q", s.ID, s.Status)
	}
}

// ApplySettlement writes st back onto the row's columns
func (s *ServiceSchedule) ApplySettlement(st Settlement) {
	switch v := st.(type) {
	case Pending:
		s.clearPayment()
	case Skipped:
		s.clearPayment()
	case Partial:
		s.setPayment(v.PaidAmount, v.PaidDate, v.Tx, v.Note)
	case Paid:
		s.setPayment(v.PaidAmount, v.PaidDate, v.Tx, v.Note)
	}
	s.Status = st.Status()
}

func (s *ServiceSchedule) clearPayment() {
	s.PaidAmount = nil
	s.PaidDate = nil
	s.Note = nil
	s.TransactionID = nil
	s.TransactionAmount = nil
	s.TransactionDescription = nil
	s.TransactionTimestamp = nil
}

func (s *ServiceSchedule) setPayment(amount decimal.Decimal, date time.Time, tx TransactionRef, note *string) {
	s.PaidAmount = &amount
	s.PaidDate = &date
	s.Note = note
	s.TransactionID = &tx.ID
	s.TransactionAmount = &tx.Amount
	s.TransactionDescription = &tx.Description
	s.TransactionTimestamp = &tx.Timestamp
}

type ScheduleResponse struct {
	ServiceID int64              `json:"service_id"`
	Schedule  []*ServiceSchedule `json:"schedule"`
}
