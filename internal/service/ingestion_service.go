package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"fraud-detector/internal/broadcast"
	"fraud-detector/internal/custom_err"
	"fraud-detector/internal/models"
	"fraud-detector/internal/rules"
	"fraud-detector/internal/storage"

	"github.com/google/uuid"
)

type RuleEngine interface {
	EvaluateAll(ctx context.Context, tx *models.Transaction, h rules.History) ([]models.RuleVerdict, error)
}

type RiskScorer interface {
	Calculate(verdicts []models.RuleVerdict) models.ScoreResult
}

type Ingestion interface {
	ProcessTransaction(ctx context.Context, raw models.RawTransaction) (*models.IngestOutcome, error)
	IngestBatch(ctx context.Context, raws []models.RawTransaction, delay time.Duration) (*models.BatchSummary, error)
	IngestFile(ctx context.Context, path string, delay time.Duration) (*models.BatchSummary, error)
	Summary() models.BatchSummary
}

// IngestionService drains transactions strictly in order. One batch runs at a
// time; the counters are cumulative over the life of the service.
type IngestionService struct {
	txManager   storage.TxManager
	engine      RuleEngine
	scorer      RiskScorer
	broadcaster broadcast.Broadcaster
	log         *slog.Logger

	newID func() uuid.UUID

	mu        sync.Mutex
	processed int
	flagged   int
	skipped   int
}

func NewIngestionService(
	txManager storage.TxManager,
	engine RuleEngine,
	scorer RiskScorer,
	broadcaster broadcast.Broadcaster,
	log *slog.Logger,
) *IngestionService {
	return &IngestionService{
		txManager:   txManager,
		engine:      engine,
		scorer:      scorer,
		broadcaster: broadcaster,
		log:         log,
		newID:       uuid.New,
	}
}

// Summary returns the running totals over every batch and stream message the
// service has handled. ProcessingTimeSeconds is left zero.
func (s *IngestionService) Summary() models.BatchSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.BatchSummary{
		Total:   s.processed,
		Flagged: s.flagged,
		Skipped: s.skipped,
	}
}

func (s *IngestionService) ProcessTransaction(ctx context.Context, raw models.RawTransaction) (*models.IngestOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.process(ctx, raw)
}

func (s *IngestionService) IngestFile(ctx context.Context, path string, delay time.Duration) (*models.BatchSummary, error) {
	const op = "service.IngestFile"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var raws []models.RawTransaction
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, custom_err.ErrInvalidInput, err)
	}

	s.log.Info("loaded transactions", slog.String("path", path), slog.Int("count", len(raws)))
	return s.IngestBatch(ctx, raws, delay)
}

// IngestBatch processes raws in input order. The first failing transaction
// aborts the batch; transactions committed before it stay committed.
// Cancellation is honoured only between transactions.
func (s *IngestionService) IngestBatch(ctx context.Context, raws []models.RawTransaction, delay time.Duration) (*models.BatchSummary, error) {
	const op = "service.IngestBatch"

	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(raws)
	start := time.Now()
	var summary models.BatchSummary
	s.log.Info("starting ingestion", slog.Int("transactions", total))

	for i, raw := range raws {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: stopped before transaction %d/%d: %w", op, i+1, total, err)
		}

		outcome, err := s.process(ctx, raw)
		if err != nil {
			s.log.Error("ingestion aborted",
				slog.Int("index", i+1),
				slog.String("transaction_id", raw.ID),
				slog.String("error", err.Error()))
			return nil, fmt.Errorf("%s: transaction %d/%d: %w", op, i+1, total, err)
		}

		switch {
		case outcome.Skipped:
			summary.Skipped++
		case outcome.Alert != nil:
			summary.Total++
			summary.Flagged++
		default:
			summary.Total++
		}

		if outcome.Skipped {
			s.log.Info(fmt.Sprintf("[%d/%d] %s | SKIPPED (duplicate)", i+1, total, outcome.TransactionID))
		} else {
			s.log.Info(fmt.Sprintf("[%d/%d] %s | Score: %d | Rules: %v",
				i+1, total, outcome.TransactionID, outcome.Score.RiskScore, outcome.Score.TriggeredRules))
		}

		if delay > 0 && i < total-1 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("%s: stopped after transaction %d/%d: %w", op, i+1, total, ctx.Err())
			case <-timer.C:
			}
		}
	}

	summary.ProcessingTimeSeconds = time.Since(start).Seconds()
	s.log.Info("ingestion complete",
		slog.Int("total", summary.Total),
		slog.Int("flagged", summary.Flagged),
		slog.Int("skipped", summary.Skipped),
		slog.Float64("processing_time_seconds", summary.ProcessingTimeSeconds))
	return &summary, nil
}

// process runs dedup, persist, evaluate, score and alert inside one unit of
// work. The unit of work is detached from ctx cancellation so a transaction
// that has started always runs to commit or to a store error. The alert is
// published only after commit.
func (s *IngestionService) process(ctx context.Context, raw models.RawTransaction) (*models.IngestOutcome, error) {
	const op = "service.ProcessTransaction"

	var (
		tx    *models.Transaction
		score models.ScoreResult
		alert *models.FraudAlert
	)

	err := s.txManager.WithTx(context.WithoutCancel(ctx), func(ctx context.Context, uow storage.UnitOfWork) error {
		exists, err := uow.Transactions().ExistsByID(ctx, raw.ID)
		if err != nil {
			return fmt.Errorf("failed to check transaction: %w", err)
		}
		if exists {
			return custom_err.ErrDuplicateTransaction
		}

		tx, err = raw.Normalize()
		if err != nil {
			return err
		}

		if err := uow.Transactions().Create(ctx, tx); err != nil {
			return err
		}

		verdicts, err := s.engine.EvaluateAll(ctx, tx, uow.Transactions())
		if err != nil {
			return err
		}

		score = s.scorer.Calculate(verdicts)
		if !score.IsFlagged {
			return nil
		}

		alert = &models.FraudAlert{
			ID:             s.newID(),
			TransactionID:  tx.ID,
			RiskScore:      score.RiskScore,
			TriggeredRules: score.TriggeredRules,
			Status:         models.AlertNeedsReview,
		}
		if err := uow.Alerts().Create(ctx, alert); err != nil {
			return fmt.Errorf("failed to create alert: %w", err)
		}
		return nil
	})

	if errors.Is(err, custom_err.ErrDuplicateTransaction) {
		s.skipped++
		s.log.Warn("duplicate transaction, skipping", slog.String("transaction_id", raw.ID))
		return &models.IngestOutcome{TransactionID: raw.ID, Skipped: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.processed++
	if alert != nil {
		s.flagged++
		s.log.Warn("fraud alert",
			slog.String("transaction_id", tx.ID),
			slog.String("alert_id", alert.ID.String()),
			slog.Int("risk_score", alert.RiskScore),
			slog.Any("triggered_rules", alert.TriggeredRules))
		s.broadcaster.Publish(ctx, models.NewAlertPayload(alert, tx))
	}

	return &models.IngestOutcome{
		TransactionID: tx.ID,
		Score:         score,
		Alert:         alert,
	}, nil
}
