package postgres

import (
	"context"
	"errors"
	"fmt"

	"fraud-detector/internal/custom_err"
	"fraud-detector/internal/models"
	"fraud-detector/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxQueryer is satisfied by both the pool and an open pgx.Tx.
type pgxQueryer interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

const uniqueViolation = "23505"

type PgTransactionRepository struct {
	db pgxQueryer
}

func NewTransactionRepository(db pgxQueryer) *PgTransactionRepository {
	return &PgTransactionRepository{db: db}
}

func (r *PgTransactionRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	const op = "storage.ExistsByID"

	var exists bool
	if err := r.db.QueryRow(ctx, storage.CheckTransactionExistsQuery, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

func (r *PgTransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	const op = "storage.CreateTransaction"

	err := r.db.QueryRow(
		ctx,
		storage.CreateTransactionQuery,
		tx.ID, tx.Timestamp.UTC(), tx.CustomerEmail, tx.CustomerIP,
		tx.BillingCountry, tx.ShippingCountry, tx.CardBIN, string(tx.PaymentMethod),
		tx.AmountUSD, string(tx.Status), string(tx.ProductCategory), tx.Quantity, tx.UnitPrice,
		tx.DeviceFingerprint, tx.IsFirstPurchase,
	).Scan(&tx.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return custom_err.ErrDuplicateTransaction
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	tx.CreatedAt = tx.CreatedAt.UTC()
	return nil
}

func (r *PgTransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	const op = "storage.GetTransactionByID"

	var tx models.Transaction
	err := r.db.QueryRow(ctx, storage.GetTransactionByIDQuery, id).Scan(
		&tx.ID,
		&tx.Timestamp,
		&tx.CustomerEmail,
		&tx.CustomerIP,
		&tx.BillingCountry,
		&tx.ShippingCountry,
		&tx.CardBIN,
		&tx.PaymentMethod,
		&tx.AmountUSD,
		&tx.Status,
		&tx.ProductCategory,
		&tx.Quantity,
		&tx.UnitPrice,
		&tx.DeviceFingerprint,
		&tx.IsFirstPurchase,
		&tx.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tx.Timestamp = tx.Timestamp.UTC()
	tx.CreatedAt = tx.CreatedAt.UTC()
	return &tx, nil
}

func (r *PgTransactionRepository) CountByEmailInWindow(ctx context.Context, email string, w storage.Window) (int, error) {
	const op = "storage.CountByEmailInWindow"

	var count int
	err := r.db.QueryRow(ctx, storage.TransactionCountByEmailQuery(w), email, w.Start.UTC(), w.End.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

func (r *PgTransactionRepository) CountByEmailAndStatusInWindow(
	ctx context.Context,
	email string,
	statuses []models.TransactionStatus,
	w storage.Window,
) (int, error) {
	const op = "storage.CountByEmailAndStatusInWindow"

	if len(statuses) == 0 {
		return 0, nil
	}

	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}

	var count int
	err := r.db.QueryRow(
		ctx,
		storage.TransactionCountByEmailAndStatusQuery(w),
		email, values, w.Start.UTC(), w.End.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
