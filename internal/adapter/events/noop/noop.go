package noop

import (
	"context"

	"github.com/lajan-app/escrow-engine/internal/domain"
)

// Sinks is a no-op notification and activity-log sink. It backs tests and
// deployments without a broker, so the financial core runs unchanged with
// delivery disabled.
type Sinks struct{}

func NewSinks() *Sinks {
	return &Sinks{}
}

func (Sinks) Notify(ctx context.Context, notification domain.Notification) error {
	return nil
}

func (Sinks) Log(ctx context.Context, entry domain.ActivityEntry) error {
	return nil
}
