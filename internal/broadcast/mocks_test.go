package broadcast

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"fraud-detector/internal/models"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSubscriber struct {
	id        string
	err       error
	started   chan struct{}
	release   chan struct{}
	startOnce sync.Once

	mu       sync.Mutex
	received []models.AlertPayload
	closed   bool
}

func newFakeSubscriber(id string) *fakeSubscriber {
	return &fakeSubscriber{id: id}
}

func (s *fakeSubscriber) ID() string { return s.id }

func (s *fakeSubscriber) Deliver(ctx context.Context, payload models.AlertPayload) error {
	if s.started != nil {
		s.startOnce.Do(func() { close(s.started) })
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	s.received = append(s.received, payload)
	s.mu.Unlock()
	return nil
}

func (s *fakeSubscriber) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSubscriber) snapshot() ([]models.AlertPayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AlertPayload, len(s.received))
	copy(out, s.received)
	return out, s.closed
}

type MockNSQPublisher struct {
	mock.Mock
}

func (m *MockNSQPublisher) Publish(topic string, body []byte) error {
	args := m.Called(topic, body)
	return args.Error(0)
}

func (m *MockNSQPublisher) Stop() {
	m.Called()
}

type MockMongoCollection struct {
	mock.Mock
}

func (m *MockMongoCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	args := m.Called(ctx, document)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mongo.InsertOneResult), args.Error(1)
}
