package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an external bank movement a schedule row can be linked to.
// This engine only reads it.
type Transaction struct {
	ID          int64           `json:"id" db:"id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Description string          `json:"description" db:"description"`
	Timestamp   time.Time       `json:"timestamp" db:"timestamp"`
}

// Ref returns the display snapshot stored on a settled schedule row
func (t *Transaction) Ref() TransactionRef {
	return TransactionRef{
		ID:          t.ID,
		Amount:      t.Amount,
		Description: t.Description,
		Timestamp:   t.Timestamp,
	}
}
