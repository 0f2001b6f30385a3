package ports

import (
	"context"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
)

// RateRideInput carries a consumer's rating of a completed ride.
type RateRideInput struct {
	RideID     string
	ConsumerID string
	Rating     int
	Review     *string
}

// RatingService is the Rating & Points Aggregator: the only writer of ride
// ratings and of puller rating/points.
type RatingService interface {
	Rate(ctx context.Context, input RateRideInput) (*domain.Ride, error)
	// AverageRating is nil when the puller has no rated rides.
	AverageRating(ctx context.Context, pullerID string) (*float64, error)
	// AwardCompletion must run inside the transaction that completed the ride.
	AwardCompletion(ctx context.Context, pullerID string) error
	RatingsForPuller(ctx context.Context, pullerID string) ([]*domain.Ride, error)
}
