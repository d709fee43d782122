package postgres

import (
	"context"
	"errors"
	"fmt"

	"fraud-detector/internal/custom_err"
	"fraud-detector/internal/models"
	"fraud-detector/internal/storage"

	"github.com/jackc/pgx/v5"
)

type PgAlertRepository struct {
	db pgxQueryer
}

func NewAlertRepository(db pgxQueryer) *PgAlertRepository {
	return &PgAlertRepository{db: db}
}

// Create inserts the alert. triggered_rules is a JSONB column, pgx marshals the slice.
func (r *PgAlertRepository) Create(ctx context.Context, alert *models.FraudAlert) error {
	const op = "storage.CreateAlert"

	err := r.db.QueryRow(
		ctx,
		storage.CreateAlertQuery,
		alert.ID, alert.TransactionID, alert.RiskScore, alert.TriggeredRules, string(alert.Status),
	).Scan(&alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	alert.CreatedAt = alert.CreatedAt.UTC()
	return nil
}

func (r *PgAlertRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.FraudAlert, error) {
	const op = "storage.GetAlertByTransactionID"

	var alert models.FraudAlert
	err := r.db.QueryRow(ctx, storage.GetAlertByTransactionIDQuery, transactionID).Scan(
		&alert.ID,
		&alert.TransactionID,
		&alert.RiskScore,
		&alert.TriggeredRules,
		&alert.Status,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	alert.CreatedAt = alert.CreatedAt.UTC()
	return &alert, nil
}
