package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/obligation-engine/pkg/logger"
)

// NewRepositories binds every repository to db, which may be a *sqlx.DB or a *sqlx.Tx
func NewRepositories(db sqlx.ExtContext) Repositories {
	return Repositories{
		Services:     NewServiceRepository(db),
		Schedules:    NewScheduleRepository(db),
		Transactions: NewTransactionRepository(db),
	}
}

type sqlxTransactor struct {
	db *sqlx.DB
}

func NewTransactor(db *sqlx.DB) Transactor {
	return &sqlxTransactor{db: db}
}

func (t *sqlxTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) (err error) {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError(fmt.Errorf("begin transaction: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logger.Warn("Transaction rollback failed", "error", rbErr)
			}
		}
	}()

	if err = fn(ctx, NewRepositories(tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return mapError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}
