package ports

import (
	"context"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
)

// NotificationRepository is the append-only per-account inbox.
type NotificationRepository interface {
	Insert(ctx context.Context, n *domain.Notification) error
	// ListUnread returns unread notifications, newest first.
	ListUnread(ctx context.Context, accountID string) ([]*domain.Notification, error)
	CountUnread(ctx context.Context, accountID string) (int64, error)
}
