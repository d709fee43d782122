package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fraud-detector/internal/custom_err"
	"fraud-detector/internal/models"
	"fraud-detector/internal/storage"

	"github.com/mattn/go-sqlite3"
)

// sqlQueryer is satisfied by both *sql.DB and *sql.Tx.
type sqlQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type SQLTransactionRepository struct {
	db  sqlQueryer
	now func() time.Time
}

func NewTransactionRepository(db sqlQueryer) *SQLTransactionRepository {
	return &SQLTransactionRepository{db: db, now: time.Now}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (r *SQLTransactionRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	const op = "storage.sqlite.ExistsByID"

	var exists bool
	if err := r.db.QueryRowContext(ctx, storage.SQLiteCheckTransactionExistsQuery, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

func (r *SQLTransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	const op = "storage.sqlite.CreateTransaction"

	createdAt := r.now().UTC()
	_, err := r.db.ExecContext(
		ctx,
		storage.SQLiteCreateTransactionQuery,
		tx.ID, tx.Timestamp.UTC().UnixNano(), tx.CustomerEmail, tx.CustomerIP,
		tx.BillingCountry, tx.ShippingCountry, tx.CardBIN, string(tx.PaymentMethod),
		tx.AmountUSD.String(), string(tx.Status), string(tx.ProductCategory), tx.Quantity, tx.UnitPrice.String(),
		tx.DeviceFingerprint, tx.IsFirstPurchase, createdAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return custom_err.ErrDuplicateTransaction
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	tx.CreatedAt = createdAt
	return nil
}

func (r *SQLTransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	const op = "storage.sqlite.GetTransactionByID"

	var (
		tx        models.Transaction
		timestamp int64
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, storage.SQLiteGetTransactionByIDQuery, id).Scan(
		&tx.ID,
		&timestamp,
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
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tx.Timestamp = time.Unix(0, timestamp).UTC()
	tx.CreatedAt = time.Unix(0, createdAt).UTC()
	return &tx, nil
}

func (r *SQLTransactionRepository) CountByEmailInWindow(ctx context.Context, email string, w storage.Window) (int, error) {
	const op = "storage.sqlite.CountByEmailInWindow"

	var count int
	err := r.db.QueryRowContext(
		ctx,
		storage.SQLiteTransactionCountByEmailQuery(w),
		email, w.Start.UTC().UnixNano(), w.End.UTC().UnixNano(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

func (r *SQLTransactionRepository) CountByEmailAndStatusInWindow(
	ctx context.Context,
	email string,
	statuses []models.TransactionStatus,
	w storage.Window,
) (int, error) {
	const op = "storage.sqlite.CountByEmailAndStatusInWindow"

	if len(statuses) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(statuses)+3)
	args = append(args, email)
	for _, s := range statuses {
		args = append(args, string(s))
	}
	args = append(args, w.Start.UTC().UnixNano(), w.End.UTC().UnixNano())

	var count int
	err := r.db.QueryRowContext(ctx, storage.SQLiteTransactionCountByEmailAndStatusQuery(w, len(statuses)), args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
