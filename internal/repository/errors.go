package repository

import (
	"errors"

	"github.com/lib/pq"

	customError "github.com/segyhp/obligation-engine/pkg/errors"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqSerializationFail   = "40001"
	pqDeadlockDetected    = "40P01"
)

// mapError turns driver errors into business errors the API can answer with
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var be *customError.BusinessError
	if errors.As(err, &be) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return customError.WrapConflict("a schedule already exists for this period", err)
		case pqSerializationFail, pqDeadlockDetected:
			return customError.WrapConflict("concurrent update, retry the request", err)
		case pqForeignKeyViolation, pqCheckViolation:
			return customError.WrapInvariantViolation("database constraint rejected write: " + pqErr.Message)
		}
	}

	return customError.WrapDatabaseError(err)
}
