package rules

import (
	"context"

	"fraud-detector/internal/models"
	"fraud-detector/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) CountByEmailInWindow(ctx context.Context, email string, w storage.Window) (int, error) {
	args := m.Called(ctx, email, w)
	return args.Int(0), args.Error(1)
}

func (m *MockHistory) CountByEmailAndStatusInWindow(ctx context.Context, email string, statuses []models.TransactionStatus, w storage.Window) (int, error) {
	args := m.Called(ctx, email, statuses, w)
	return args.Int(0), args.Error(1)
}
