package service

import (
	"context"
	"errors"
	"time"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

// capabilities is the single authorization check every operation runs before
// its business logic. It reads the account from the store on each call, so a
// stale token never outlives an approval decision.
type capabilities struct {
	accounts ports.AccountRepository
}

// require loads accountID and checks that it holds one of roles (any role
// when roles is empty) and is approved.
func (c capabilities) require(ctx context.Context, accountID string, roles ...domain.Role) (*domain.Account, error) {
	acc, err := c.identify(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(roles) > 0 && !hasRole(acc.Role, roles) {
		return nil, domain.ErrForbidden
	}
	if !acc.Approved() {
		return nil, domain.ErrNotApproved
	}
	return acc, nil
}

// identify only resolves the caller; approval is not checked.
func (c capabilities) identify(ctx context.Context, accountID string) (*domain.Account, error) {
	if accountID == "" {
		return nil, domain.ErrForbidden
	}
	acc, err := c.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, err
	}
	return acc, nil
}

func hasRole(role domain.Role, allowed []domain.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// clock returns the UTC wall time at the millisecond precision the store keeps.
func clock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// notBefore clamps t so lifecycle timestamps never run backwards.
func notBefore(t, floor time.Time) time.Time {
	if t.Before(floor) {
		return floor
	}
	return t
}

type noopSink struct{}

func (noopSink) Enqueue(domain.RideEvent) {}
