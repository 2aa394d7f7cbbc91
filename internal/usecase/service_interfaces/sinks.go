package service_interfaces

import (
	"context"

	"github.com/lajan-app/escrow-engine/internal/domain"
)

// NotificationSink delivers user-facing notifications. Called only after the
// financial state has committed; failures are logged and discarded, never
// surfaced to the caller.
type NotificationSink interface {
	Notify(ctx context.Context, notification domain.Notification) error
}

// ActivityLogSink records the audit trail of actor operations, with the same
// post-commit, best-effort contract as NotificationSink.
type ActivityLogSink interface {
	Log(ctx context.Context, entry domain.ActivityEntry) error
}
