package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

// NotificationService appends inbox entries and serves unread views.
// Notify runs inside the caller's transaction when ctx carries one.
type NotificationService struct {
	repo ports.NotificationRepository
	caps capabilities
	log  zerolog.Logger
	now  func() time.Time
}

func NewNotificationService(repo ports.NotificationRepository, accounts ports.AccountRepository, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		repo: repo,
		caps: capabilities{accounts: accounts},
		log:  log,
		now:  clock,
	}
}

func (s *NotificationService) Notify(ctx context.Context, accountID string, kind domain.NotificationType, message string) error {
	n := &domain.Notification{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Type:      kind,
		Message:   message,
		CreatedAt: s.now(),
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		return fmt.Errorf("notify %s: %w", kind, err)
	}

	s.log.Debug().
		Str("account_id", accountID).
		Str("type", string(kind)).
		Msg("notification stored")
	return nil
}

func (s *NotificationService) UnreadFor(ctx context.Context, accountID string) ([]*domain.Notification, error) {
	if _, err := s.caps.identify(ctx, accountID); err != nil {
		return nil, fmt.Errorf("unread notifications: %w", err)
	}
	list, err := s.repo.ListUnread(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("unread notifications: %w", err)
	}
	return list, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, accountID string) (int64, error) {
	if _, err := s.caps.identify(ctx, accountID); err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	n, err := s.repo.CountUnread(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}
