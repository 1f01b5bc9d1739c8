package domain

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	customError "github.com/segyhp/obligation-engine/pkg/errors"
)

// DTOs for requests and responses

type GenerateSchedulesRequest struct {
	Months        *int             `json:"months,omitempty" validate:"omitempty,min=1,max=120"`
	FromDate      *string          `json:"from_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DefaultAmount *decimal.Decimal `json:"default_amount,omitempty" validate:"omitempty,decimal_gte0"`
	DueDay        *int             `json:"due_day,omitempty" validate:"omitempty,min=1,max=31"`
	Frequency     *Frequency       `json:"frequency,omitempty" validate:"omitempty,oneof=WEEKLY BIWEEKLY MONTHLY BIMONTHLY QUARTERLY SEMIANNUAL ANNUAL ONCE"`
	EmissionDay   *int             `json:"emission_day,omitempty" validate:"omitempty,min=1,max=31"`
}

type GenerateSchedulesResponse struct {
	Service   *Service           `json:"service"`
	Schedules []*ServiceSchedule `json:"schedules"`
}

type RegisterPaymentRequest struct {
	TransactionID  int64           `json:"transaction_id" validate:"required,gt=0"`
	PaidAmount     decimal.Decimal `json:"paid_amount" validate:"decimal_gt0"`
	PaidDate       string          `json:"paid_date" validate:"required,datetime=2006-01-02"`
	Note           *string         `json:"note,omitempty" validate:"omitempty,max=1000"`
	ExpectedStatus *ScheduleStatus `json:"expected_status,omitempty" validate:"omitempty,oneof=PENDING PARTIAL PAID SKIPPED"`
}

type UnlinkPaymentRequest struct {
	ExpectedStatus *ScheduleStatus `json:"expected_status,omitempty" validate:"omitempty,oneof=PENDING PARTIAL PAID SKIPPED"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator with the decimal rules registered
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.String()
			}
			return nil
		}, decimal.Decimal{})
		_ = v.RegisterValidation("decimal_gt0", decimalCompare(func(d decimal.Decimal) bool { return d.IsPositive() }))
		_ = v.RegisterValidation("decimal_gte0", decimalCompare(func(d decimal.Decimal) bool { return !d.IsNegative() }))
		validate = v
	})
	return validate
}

func decimalCompare(ok func(decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return ok(d)
	}
}

// Validate checks v against its validate tags and returns a VALIDATION_ERROR with per-field details
func Validate(v interface{}) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}

	details := make(map[string]string)
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Tag()
		}
	} else {
		details["request"] = err.Error()
	}
	return customError.WrapValidation("request validation failed", details)
}
