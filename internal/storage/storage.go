package storage

import (
	"context"
	"time"

	"fraud-detector/internal/models"
)

// Window is a time range used by the history counts. The lower bound is
// inclusive unless InclusiveStart is false.
type Window struct {
	Start          time.Time
	End            time.Time
	InclusiveStart bool
	InclusiveEnd   bool
}

// Trailing returns the window [anchor-d, anchor] or [anchor-d, anchor).
func Trailing(anchor time.Time, d time.Duration, inclusiveEnd bool) Window {
	anchor = anchor.UTC()
	return Window{
		Start:          anchor.Add(-d),
		End:            anchor,
		InclusiveStart: true,
		InclusiveEnd:   inclusiveEnd,
	}
}

// StartOp and EndOp return the comparison operators that bound a timestamp column.
func (w Window) StartOp() string {
	if w.InclusiveStart {
		return ">="
	}
	return ">"
}

func (w Window) EndOp() string {
	if w.InclusiveEnd {
		return "<="
	}
	return "<"
}

type TransactionRepository interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	CountByEmailInWindow(ctx context.Context, email string, w Window) (int, error)
	CountByEmailAndStatusInWindow(ctx context.Context, email string, statuses []models.TransactionStatus, w Window) (int, error)
}

type AlertRepository interface {
	Create(ctx context.Context, alert *models.FraudAlert) error
	GetByTransactionID(ctx context.Context, transactionID string) (*models.FraudAlert, error)
}

// UnitOfWork exposes repositories bound to one database transaction.
type UnitOfWork interface {
	Transactions() TransactionRepository
	Alerts() AlertRepository
}

type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}

// Store is a whole backend: the transaction manager used by the pipeline
// and pool-bound repositories for concurrent readers.
type Store interface {
	TxManager
	Transactions() TransactionRepository
	Alerts() AlertRepository
	Close() error
}
