package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

// ApprovalService is the admin-controlled gate in front of the marketplace.
// approve and reject are terminal transitions out of pending.
type ApprovalService struct {
	accounts ports.AccountRepository
	notifier ports.NotificationService
	tx       ports.Transactor
	caps     capabilities
	log      zerolog.Logger
	now      func() time.Time
}

func NewApprovalService(
	accounts ports.AccountRepository,
	notifier ports.NotificationService,
	tx ports.Transactor,
	log zerolog.Logger,
) *ApprovalService {
	return &ApprovalService{
		accounts: accounts,
		notifier: notifier,
		tx:       tx,
		caps:     capabilities{accounts: accounts},
		log:      log,
		now:      clock,
	}
}

// ListPending returns the FIFO queue of pullers awaiting a decision.
func (s *ApprovalService) ListPending(ctx context.Context, adminID string) ([]*domain.Account, error) {
	if _, err := s.caps.require(ctx, adminID, domain.RoleAdmin); err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	pending, err := s.accounts.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return pending, nil
}

func (s *ApprovalService) Approve(ctx context.Context, adminID, accountID string) (*domain.Account, error) {
	return s.decide(ctx, adminID, accountID, domain.ApprovalApproved,
		domain.NotificationAccountApproved, domain.AccountApprovedMessage)
}

func (s *ApprovalService) Reject(ctx context.Context, adminID, accountID string) (*domain.Account, error) {
	return s.decide(ctx, adminID, accountID, domain.ApprovalRejected,
		domain.NotificationAccountRejected, domain.AccountRejectedMessage)
}

func (s *ApprovalService) decide(
	ctx context.Context,
	adminID, accountID string,
	to domain.ApprovalStatus,
	kind domain.NotificationType,
	message string,
) (*domain.Account, error) {
	op := "approve account"
	if to == domain.ApprovalRejected {
		op = "reject account"
	}
	if _, err := s.caps.require(ctx, adminID, domain.RoleAdmin); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.accounts.SetApproval(ctx, accountID, domain.ApprovalPending, to, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrPendingAccountNotFound
		}
		return s.notifier.Notify(ctx, accountID, kind, message)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: reload: %w", op, err)
	}

	s.log.Info().
		Str("account_id", accountID).
		Str("admin_id", adminID).
		Str("decision", string(to)).
		Msg("puller application decided")
	return account, nil
}
