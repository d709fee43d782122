package service

import (
	"context"
	"sync"

	"fraud-detector/internal/models"
	"fraud-detector/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockTxManager struct {
	mock.Mock
	uow storage.UnitOfWork
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, uow storage.UnitOfWork) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m.uow)
}

type MockUnitOfWork struct {
	transactions *MockTransactionRepo
	alerts       *MockAlertRepo
}

func (m *MockUnitOfWork) Transactions() storage.TransactionRepository { return m.transactions }
func (m *MockUnitOfWork) Alerts() storage.AlertRepository             { return m.alerts }

type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepo) Create(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepo) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) CountByEmailInWindow(ctx context.Context, email string, w storage.Window) (int, error) {
	args := m.Called(ctx, email, w)
	return args.Int(0), args.Error(1)
}

func (m *MockTransactionRepo) CountByEmailAndStatusInWindow(ctx context.Context, email string, statuses []models.TransactionStatus, w storage.Window) (int, error) {
	args := m.Called(ctx, email, statuses, w)
	return args.Int(0), args.Error(1)
}

type MockAlertRepo struct {
	mock.Mock
}

func (m *MockAlertRepo) Create(ctx context.Context, alert *models.FraudAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockAlertRepo) GetByTransactionID(ctx context.Context, transactionID string) (*models.FraudAlert, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FraudAlert), args.Error(1)
}

// recordingBroadcaster keeps every published payload.
type recordingBroadcaster struct {
	mu       sync.Mutex
	payloads []models.AlertPayload
}

func (b *recordingBroadcaster) Publish(_ context.Context, payload models.AlertPayload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payloads = append(b.payloads, payload)
}

func (b *recordingBroadcaster) Payloads() []models.AlertPayload {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.AlertPayload(nil), b.payloads...)
}
