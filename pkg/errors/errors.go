package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInvariantViolation  = errors.New("invariant violation")
	ErrDatabase            = errors.New("database error")

	ErrServiceNotFound     = fmt.Errorf("service %w", ErrNotFound)
	ErrScheduleNotFound    = fmt.Errorf("schedule %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrAlreadyPaid         = fmt.Errorf("schedule already paid: %w", ErrConflict)
	ErrNotPaid             = fmt.Errorf("schedule is not paid: %w", ErrConflict)
	ErrStatusChanged       = fmt.Errorf("schedule status changed concurrently: %w", ErrConflict)
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
	Details map[string]string
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeServiceNotFound     = "SERVICE_NOT_FOUND"
	ErrCodeScheduleNotFound    = "SCHEDULE_NOT_FOUND"
	ErrCodeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeInvariantViolation  = "INVARIANT_VIOLATION"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
)

// Wrap common errors with business context
func WrapValidation(message string, details map[string]string) *BusinessError {
	e := NewBusinessError(ErrCodeValidation, message, ErrValidation)
	e.Details = details
	return e
}

func WrapServiceNotFound(serviceID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeServiceNotFound,
		fmt.Sprintf("Service with ID %d not found", serviceID),
		ErrServiceNotFound,
	)
}

func WrapScheduleNotFound(scheduleID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeScheduleNotFound,
		fmt.Sprintf("Schedule with ID %d not found", scheduleID),
		ErrScheduleNotFound,
	)
}

func WrapTransactionNotFound(transactionID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeTransactionNotFound,
		fmt.Sprintf("Transaction with ID %d not found", transactionID),
		ErrTransactionNotFound,
	)
}

func WrapAlreadyPaid(scheduleID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeConflict,
		fmt.Sprintf("Schedule with ID %d is already paid", scheduleID),
		ErrAlreadyPaid,
	)
}

func WrapNotPaid(scheduleID int64, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeConflict,
		fmt.Sprintf("Schedule with ID %d is %s, only paid schedules can be unlinked", scheduleID, status),
		ErrNotPaid,
	)
}

func WrapStatusChanged(scheduleID int64, expected, actual string) *BusinessError {
	return NewBusinessError(
		ErrCodeConflict,
		fmt.Sprintf("Schedule with ID %d changed from %s to %s, refetch and retry", scheduleID, expected, actual),
		ErrStatusChanged,
	)
}

func WrapConflict(message string, err error) *BusinessError {
	switch {
	case err == nil:
		err = ErrConflict
	case !errors.Is(err, ErrConflict):
		err = fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return NewBusinessError(ErrCodeConflict, message, err)
}

func WrapUpstreamUnavailable(message string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeUpstreamUnavailable,
		message,
		fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err),
	)
}

func WrapInvariantViolation(message string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvariantViolation,
		message,
		ErrInvariantViolation,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		fmt.Errorf("%w: %v", ErrDatabase, err),
	)
}

// HTTPStatus maps an error to the HTTP status the API answers with
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the business code of err, or an empty string
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
