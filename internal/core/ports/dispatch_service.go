package ports

import (
	"context"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
)

// SubmitRideInput carries a consumer's ride request.
type SubmitRideInput struct {
	ConsumerID     string
	Destination    string
	PickupLocation string // optional
}

// DispatchService is the Dispatch Engine: the only writer of ride status,
// puller assignment and lifecycle timestamps.
type DispatchService interface {
	Submit(ctx context.Context, input SubmitRideInput) (*domain.Ride, error)
	OpenRequests(ctx context.Context, pullerID string) ([]*domain.Ride, error)
	Claim(ctx context.Context, rideID, pullerID string) (*domain.Ride, error)
	Decline(ctx context.Context, rideID, pullerID string) error
	Complete(ctx context.Context, rideID, pullerID string) (*domain.Ride, error)
	Status(ctx context.Context, rideID string) (domain.RideStatus, error)

	HistoryForConsumer(ctx context.Context, consumerID string) ([]*domain.Ride, error)
	AcceptedForPuller(ctx context.Context, pullerID string) ([]*domain.Ride, error)
	CompletedForPuller(ctx context.Context, pullerID string) ([]*domain.Ride, error)
	HistoryForPuller(ctx context.Context, pullerID string) ([]*domain.Ride, error)
}
