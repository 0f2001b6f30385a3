package ports

import (
	"context"
	"time"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
)

// RideFilter carries the query parameters for listing rides. Zero values
// disable a filter.
type RideFilter struct {
	Status        domain.RideStatus
	ConsumerID    string
	PullerID      string
	NotDeclinedBy string // exclude rides this puller declined
	OnlyRated     bool
	OldestFirst   bool // default order is created_at descending
	Limit         int
}

// RatingStats is the ledger-side aggregate a puller's average is derived from.
type RatingStats struct {
	Sum   int64
	Count int
}

// Mean returns the unrounded average, or nil when nothing has been rated.
func (s RatingStats) Mean() *float64 {
	if s.Count == 0 {
		return nil
	}
	mean := float64(s.Sum) / float64(s.Count)
	return &mean
}

// RideRepository is the Ride Ledger. Every state-changing method is a single
// conditional update keyed on the ride id and the expected current state; a
// false result means the precondition no longer held and nothing was written.
type RideRepository interface {
	Create(ctx context.Context, ride *domain.Ride) error
	FindByID(ctx context.Context, id string) (*domain.Ride, error)
	List(ctx context.Context, filter RideFilter) ([]*domain.Ride, error)

	// Claim moves pending → accepted and records the puller.
	Claim(ctx context.Context, id, pullerID string, at time.Time) (bool, error)
	// Complete moves accepted → completed for the puller on record.
	Complete(ctx context.Context, id, pullerID string, at time.Time) (bool, error)
	// RecordDecline remembers that pullerID passed on a pending ride.
	RecordDecline(ctx context.Context, id, pullerID string) (bool, error)
	// SetRating stores rating and review on a completed, unrated ride.
	SetRating(ctx context.Context, id string, rating int, review *string) (bool, error)

	RatingStats(ctx context.Context, pullerID string) (RatingStats, error)
	CountByStatus(ctx context.Context) (map[domain.RideStatus]int64, error)
	DestinationHistogram(ctx context.Context, limit int) ([]domain.DestinationCount, error)
	// CountActivePullers counts distinct pullers with at least one accepted
	// or completed ride.
	CountActivePullers(ctx context.Context) (int64, error)
}
