package postgres

import (
	"context"

	"fraud-detector/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxPoolIface interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type PgxTxManager struct {
	pool PgxPoolIface
}

func NewPgxTxManager(pool PgxPoolIface) *PgxTxManager {
	return &PgxTxManager{pool: pool}
}

type unitOfWork struct {
	transactions *PgTransactionRepository
	alerts       *PgAlertRepository
}

func (u *unitOfWork) Transactions() storage.TransactionRepository { return u.transactions }
func (u *unitOfWork) Alerts() storage.AlertRepository             { return u.alerts }

// WithTx runs fn with repositories bound to one transaction. Postgres runs at
// READ COMMITTED, so rows inserted by fn are visible to its own later reads and
// invisible to other sessions until commit.
func (m *PgxTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, uow storage.UnitOfWork) error) error {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	uow := &unitOfWork{
		transactions: NewTransactionRepository(tx),
		alerts:       NewAlertRepository(tx),
	}

	if err := fn(ctx, uow); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	return nil
}

// Store is the postgres backend.
type Store struct {
	*PgxTxManager
	pool         *pgxpool.Pool
	transactions *PgTransactionRepository
	alerts       *PgAlertRepository
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		PgxTxManager: NewPgxTxManager(pool),
		pool:         pool,
		transactions: NewTransactionRepository(pool),
		alerts:       NewAlertRepository(pool),
	}
}

func (s *Store) Transactions() storage.TransactionRepository { return s.transactions }
func (s *Store) Alerts() storage.AlertRepository             { return s.alerts }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
