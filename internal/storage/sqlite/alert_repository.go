package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fraud-detector/internal/custom_err"
	"fraud-detector/internal/models"
	"fraud-detector/internal/storage"
)

type SQLAlertRepository struct {
	db  sqlQueryer
	now func() time.Time
}

func NewAlertRepository(db sqlQueryer) *SQLAlertRepository {
	return &SQLAlertRepository{db: db, now: time.Now}
}

func (r *SQLAlertRepository) Create(ctx context.Context, alert *models.FraudAlert) error {
	const op = "storage.sqlite.CreateAlert"

	rules, err := json.Marshal(alert.TriggeredRules)
	if err != nil {
		return fmt.Errorf("%s: marshal triggered rules: %w", op, err)
	}

	createdAt := r.now().UTC()
	_, err = r.db.ExecContext(
		ctx,
		storage.SQLiteCreateAlertQuery,
		alert.ID.String(), alert.TransactionID, alert.RiskScore, string(rules), string(alert.Status), createdAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	alert.CreatedAt = createdAt
	return nil
}

func (r *SQLAlertRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.FraudAlert, error) {
	const op = "storage.sqlite.GetAlertByTransactionID"

	var (
		alert     models.FraudAlert
		rules     string
		createdAt int64
		updatedAt sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, storage.SQLiteGetAlertByTransactionIDQuery, transactionID).Scan(
		&alert.ID,
		&alert.TransactionID,
		&alert.RiskScore,
		&rules,
		&alert.Status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := json.Unmarshal([]byte(rules), &alert.TriggeredRules); err != nil {
		return nil, fmt.Errorf("%s: unmarshal triggered rules: %w", op, err)
	}
	alert.CreatedAt = time.Unix(0, createdAt).UTC()
	if updatedAt.Valid {
		ts := time.Unix(0, updatedAt.Int64).UTC()
		alert.UpdatedAt = &ts
	}
	return &alert, nil
}
