package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RecurrenceType string

const (
	RecurrenceRecurring RecurrenceType = "RECURRING"
	RecurrenceOneOff    RecurrenceType = "ONE_OFF"
)

type Frequency string

const (
	FrequencyWeekly     Frequency = "WEEKLY"
	FrequencyBiweekly   Frequency = "BIWEEKLY"
	FrequencyMonthly    Frequency = "MONTHLY"
	FrequencyBimonthly  Frequency = "BIMONTHLY"
	FrequencyQuarterly  Frequency = "QUARTERLY"
	FrequencySemiannual Frequency = "SEMIANNUAL"
	FrequencyAnnual     Frequency = "ANNUAL"
	FrequencyOnce       Frequency = "ONCE"
)

type AmountIndexation string

const (
	IndexationNone AmountIndexation = "NONE"
	IndexationUF   AmountIndexation = "UF"
)

type EmissionMode string

const (
	EmissionFixedDay     EmissionMode = "FIXED_DAY"
	EmissionDateRange    EmissionMode = "DATE_RANGE"
	EmissionSpecificDate EmissionMode = "SPECIFIC_DATE"
)

type LateFeeMode string

const (
	LateFeeNone       LateFeeMode = "NONE"
	LateFeeFixed      LateFeeMode = "FIXED"
	LateFeePercentage LateFeeMode = "PERCENTAGE"
)

type ServiceStatus string

const (
	ServiceStatusActive   ServiceStatus = "ACTIVE"
	ServiceStatusInactive ServiceStatus = "INACTIVE"
	ServiceStatusArchived ServiceStatus = "ARCHIVED"
)

// Generation bounds for a single (re)generation call
const (
	MinGenerationPeriods = 1
	MaxGenerationPeriods = 120
)

// Service is a recurring obligation definition
type Service struct {
	ID       int64     `json:"id" db:"id"`
	PublicID uuid.UUID `json:"public_id" db:"public_id"`

	Name     string  `json:"name" db:"name"`
	Detail   *string `json:"detail,omitempty" db:"detail"`
	Category *string `json:"category,omitempty" db:"category"`

	ServiceType    string         `json:"service_type" db:"service_type"`
	Ownership      string         `json:"ownership" db:"ownership"`
	ObligationType string         `json:"obligation_type" db:"obligation_type"`
	RecurrenceType RecurrenceType `json:"recurrence_type" db:"recurrence_type"`

	Frequency        Frequency        `json:"frequency" db:"frequency"`
	DefaultAmount    decimal.Decimal  `json:"default_amount" db:"default_amount"`
	AmountIndexation AmountIndexation `json:"amount_indexation" db:"amount_indexation"`

	DueDay            *int         `json:"due_day,omitempty" db:"due_day"`
	EmissionMode      EmissionMode `json:"emission_mode" db:"emission_mode"`
	EmissionDay       *int         `json:"emission_day,omitempty" db:"emission_day"`
	EmissionStartDay  *int         `json:"emission_start_day,omitempty" db:"emission_start_day"`
	EmissionEndDay    *int         `json:"emission_end_day,omitempty" db:"emission_end_day"`
	EmissionExactDate *time.Time   `json:"emission_exact_date,omitempty" db:"emission_exact_date"`

	LateFeeMode      LateFeeMode      `json:"late_fee_mode" db:"late_fee_mode"`
	LateFeeValue     *decimal.Decimal `json:"late_fee_value,omitempty" db:"late_fee_value"`
	LateFeeGraceDays *int             `json:"late_fee_grace_days,omitempty" db:"late_fee_grace_days"`

	CounterpartID         *int64  `json:"counterpart_id,omitempty" db:"counterpart_id"`
	CounterpartAccountID  *int64  `json:"counterpart_account_id,omitempty" db:"counterpart_account_id"`
	CounterpartAccountRef *string `json:"counterpart_account_ref,omitempty" db:"counterpart_account_ref"`

	StartDate            time.Time     `json:"start_date" db:"start_date"`
	NextGenerationMonths int           `json:"next_generation_months" db:"next_generation_months"`
	Status               ServiceStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsSinglePeriod reports whether the service only ever produces one installment
func (s *Service) IsSinglePeriod() bool {
	return s.RecurrenceType == RecurrenceOneOff || s.Frequency == FrequencyOnce
}

// EmissionPolicy returns the informational emission settings of the service
func (s *Service) EmissionPolicy() EmissionPolicy {
	return EmissionPolicy{
		Mode:      s.EmissionMode,
		Day:       s.EmissionDay,
		StartDay:  s.EmissionStartDay,
		EndDay:    s.EmissionEndDay,
		ExactDate: s.EmissionExactDate,
	}
}

// LateFeePolicy returns the late-fee settings of the service
func (s *Service) LateFeePolicy() LateFeePolicy {
	return LateFeePolicy{
		Mode:      s.LateFeeMode,
		Value:     s.LateFeeValue,
		GraceDays: s.LateFeeGraceDays,
	}
}

// EmissionPolicy describes when an obligation is issued. It never affects the due date.
type EmissionPolicy struct {
	Mode      EmissionMode
	Day       *int
	StartDay  *int
	EndDay    *int
	ExactDate *time.Time
}

// LateFeePolicy describes how overdue installments accrue a fee
type LateFeePolicy struct {
	Mode      LateFeeMode
	Value     *decimal.Decimal
	GraceDays *int
}

// ServiceSummary holds the derived aggregates of a service's schedule
type ServiceSummary struct {
	PendingCount  int             `json:"pending_count"`
	OverdueCount  int             `json:"overdue_count"`
	TotalExpected decimal.Decimal `json:"total_expected"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
}

type ServiceResponse struct {
	Service *Service       `json:"service"`
	Summary ServiceSummary `json:"summary"`
}
