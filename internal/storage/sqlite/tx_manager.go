package sqlite

import (
	"context"
	"database/sql"

	"fraud-detector/internal/storage"
)

type SQLTxManager struct {
	db *sql.DB
}

func NewSQLTxManager(db *sql.DB) *SQLTxManager {
	return &SQLTxManager{db: db}
}

type unitOfWork struct {
	transactions *SQLTransactionRepository
	alerts       *SQLAlertRepository
}

func (u *unitOfWork) Transactions() storage.TransactionRepository { return u.transactions }
func (u *unitOfWork) Alerts() storage.AlertRepository             { return u.alerts }

// WithTx runs fn inside one SQLite transaction. With the WAL journal, readers
// on other connections keep seeing the last committed snapshot until commit.
func (m *SQLTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, uow storage.UnitOfWork) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	uow := &unitOfWork{
		transactions: NewTransactionRepository(tx),
		alerts:       NewAlertRepository(tx),
	}

	if err := fn(ctx, uow); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Store is the embedded SQLite backend.
type Store struct {
	*SQLTxManager
	db           *sql.DB
	transactions *SQLTransactionRepository
	alerts       *SQLAlertRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		SQLTxManager: NewSQLTxManager(db),
		db:           db,
		transactions: NewTransactionRepository(db),
		alerts:       NewAlertRepository(db),
	}
}

func (s *Store) Transactions() storage.TransactionRepository { return s.transactions }
func (s *Store) Alerts() storage.AlertRepository             { return s.alerts }

func (s *Store) Close() error {
	return s.db.Close()
}
