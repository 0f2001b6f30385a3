package ports

import (
	"context"
	"time"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
)

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	// Create inserts a new account; returns domain.ErrDuplicateUsername when
	// the username is taken.
	Create(ctx context.Context, account *domain.Account) error
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	// ListPending returns pending pullers ordered by created_at ascending.
	ListPending(ctx context.Context) ([]*domain.Account, error)
	// SetApproval atomically moves a puller from one approval status to
	// another. It reports false when no puller with id is in from.
	SetApproval(ctx context.Context, id string, from, to domain.ApprovalStatus, at time.Time) (bool, error)
	// AddCompletion increments points and the completed ride counter.
	AddCompletion(ctx context.Context, id string, points int) error
	// SetRating overwrites the cached average rating and rated ride count.
	SetRating(ctx context.Context, id string, rating *float64, ratedRides int) error

	// TopPullers returns approved pullers by rating desc, completed rides
	// desc; unrated pullers rank last.
	TopPullers(ctx context.Context, limit int) ([]*domain.Account, error)
	CountPullers(ctx context.Context, status domain.ApprovalStatus) (int64, error)
	TotalPoints(ctx context.Context) (int64, error)
}
