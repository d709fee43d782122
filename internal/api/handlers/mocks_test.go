package handlers

import (
	"context"
	"time"

	"fraud-detector/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockIngestion struct {
	mock.Mock
}

func (m *MockIngestion) ProcessTransaction(ctx context.Context, raw models.RawTransaction) (*models.IngestOutcome, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IngestOutcome), args.Error(1)
}

func (m *MockIngestion) IngestBatch(ctx context.Context, raws []models.RawTransaction, delay time.Duration) (*models.BatchSummary, error) {
	args := m.Called(ctx, raws, delay)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BatchSummary), args.Error(1)
}

func (m *MockIngestion) IngestFile(ctx context.Context, path string, delay time.Duration) (*models.BatchSummary, error) {
	args := m.Called(ctx, path, delay)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BatchSummary), args.Error(1)
}

func (m *MockIngestion) Summary() models.BatchSummary {
	return m.Called().Get(0).(models.BatchSummary)
}

type fixedCounter int

func (c fixedCounter) Count() int { return int(c) }
