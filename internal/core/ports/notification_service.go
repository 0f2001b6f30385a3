package ports

import (
	"context"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
)

// NotificationService is the Notification Sink.
type NotificationService interface {
	Notify(ctx context.Context, accountID string, kind domain.NotificationType, message string) error
	UnreadFor(ctx context.Context, accountID string) ([]*domain.Notification, error)
	UnreadCount(ctx context.Context, accountID string) (int64, error)
}
