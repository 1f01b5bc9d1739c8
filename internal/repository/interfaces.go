package repository

import (
	"context"

	"github.com/segyhp/obligation-engine/internal/domain"
)

// ServiceRepository defines the interface for service data operations
type ServiceRepository interface {
	// Create inserts a service and fills its generated columns
	Create(ctx context.Context, service *domain.Service) error

	// GetByID retrieves a service by its id
	GetByID(ctx context.Context, id int64) (*domain.Service, error)

	// LockByID retrieves a service and holds its row lock until the transaction ends.
	// Every schedule mutation of the service serializes on this lock.
	LockByID(ctx context.Context, id int64) (*domain.Service, error)

	// UpdateGenerationDefaults persists the generation overrides onto the service
	UpdateGenerationDefaults(ctx context.Context, service *domain.Service) error
}

// ScheduleRepository defines the interface for schedule data operations
type ScheduleRepository interface {
	// ListByService retrieves every row of a service ordered by period start
	ListByService(ctx context.Context, serviceID int64) ([]*domain.ServiceSchedule, error)

	// GetByID retrieves a row by its id
	GetByID(ctx context.Context, id int64) (*domain.ServiceSchedule, error)

	// GetByIDForUpdate retrieves a row and holds its row lock until the transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.ServiceSchedule, error)

	// CreateBatch inserts rows and fills their ids and timestamps
	CreateBatch(ctx context.Context, rows []*domain.ServiceSchedule) error

	// DeleteUnlocked removes the given unlocked rows of a service
	DeleteUnlocked(ctx context.Context, serviceID int64, ids []int64) error

	// UpdateSettlement writes the payment columns of row if its status is still expected
	UpdateSettlement(ctx context.Context, row *domain.ServiceSchedule, expected domain.ScheduleStatus) error

	// UpdateLateFees persists the cached overdue days and late fee of open rows
	UpdateLateFees(ctx context.Context, rows []*domain.ServiceSchedule) error

	// ListOpen pages through PENDING and PARTIAL rows ordered by id
	ListOpen(ctx context.Context, afterID int64, limit int) ([]*domain.ServiceSchedule, error)
}

// TransactionRepository reads the external transactions rows get linked to
type TransactionRepository interface {
	// GetByID retrieves a transaction by its id
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)
}

// Repositories groups the repositories bound to one database handle or transaction
type Repositories struct {
	Services     ServiceRepository
	Schedules    ScheduleRepository
	Transactions TransactionRepository
}

// Transactor runs fn inside a database transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
