// Package broadcast delivers committed fraud alerts to live observers.
package broadcast

import (
	"context"

	"fraud-detector/internal/models"
)

// Broadcaster is invoked once per newly committed alert. It never reports
// delivery failures to the caller.
type Broadcaster interface {
	Publish(ctx context.Context, payload models.AlertPayload)
}

// Subscriber is one observer of the alert stream.
type Subscriber interface {
	ID() string
	Deliver(ctx context.Context, payload models.AlertPayload) error
	Close() error
}

type NoOp struct{}

func NewNoOp() *NoOp { return &NoOp{} }

func (NoOp) Publish(context.Context, models.AlertPayload) {}
