package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/obligation-engine/internal/domain"
	customError "github.com/segyhp/obligation-engine/pkg/errors"
)

type transactionRepository struct {
	db sqlx.ExtContext
}

func NewTransactionRepository(db sqlx.ExtContext) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := `
		SELECT id, amount, description, timestamp
		FROM transactions
		WHERE id = $1
	`

	var tx domain.Transaction
	err := sqlx.GetContext(ctx, r.db, &tx, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapTransactionNotFound(id)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &tx, nil
}
