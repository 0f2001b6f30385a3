package ports

import (
	"context"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
)

// SignupInput carries the data needed to create an account.
type SignupInput struct {
	Username string
	Password string
	Role     string
}

// AuthResult is returned by a successful authentication.
type AuthResult struct {
	Token   string
	Account *domain.Account
}

// AccountService covers signup, login and profile lookups.
type AccountService interface {
	Signup(ctx context.Context, input SignupInput) (*domain.Account, error)
	Authenticate(ctx context.Context, username, password string) (*AuthResult, error)
	Profile(ctx context.Context, accountID string) (*domain.Account, error)
}

// ApprovalService is the admin-only Approval Gate.
type ApprovalService interface {
	ListPending(ctx context.Context, adminID string) ([]*domain.Account, error)
	Approve(ctx context.Context, adminID, accountID string) (*domain.Account, error)
	Reject(ctx context.Context, adminID, accountID string) (*domain.Account, error)
}
