package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

// RatingService records consumer ratings and keeps each puller's aggregate
// (mean rating, points, completed rides) in step with the ledger.
type RatingService struct {
	rides    ports.RideRepository
	accounts ports.AccountRepository
	notifier ports.NotificationService
	tx       ports.Transactor
	events   ports.EventSink
	caps     capabilities
	log      zerolog.Logger
	now      func() time.Time
}

func NewRatingService(
	rides ports.RideRepository,
	accounts ports.AccountRepository,
	notifier ports.NotificationService,
	tx ports.Transactor,
	events ports.EventSink,
	log zerolog.Logger,
) *RatingService {
	if events == nil {
		events = noopSink{}
	}
	return &RatingService{
		rides:    rides,
		accounts: accounts,
		notifier: notifier,
		tx:       tx,
		events:   events,
		caps:     capabilities{accounts: accounts},
		log:      log,
		now:      clock,
	}
}

// Rate stores a one-time rating on a completed ride, recomputes the puller's
// mean and notifies the puller, all in one transaction.
func (s *RatingService) Rate(ctx context.Context, input ports.RateRideInput) (*domain.Ride, error) {
	if _, err := s.caps.require(ctx, input.ConsumerID, domain.RoleConsumer); err != nil {
		return nil, fmt.Errorf("rate ride: %w", err)
	}
	if input.Rating < domain.MinRating || input.Rating > domain.MaxRating {
		return nil, domain.ErrInvalidRating
	}
	review := normalizeReview(input.Review)

	var rated *domain.Ride
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ride, err := s.rides.FindByID(ctx, input.RideID)
		if err != nil {
			return err
		}
		if ride.ConsumerID != input.ConsumerID {
			return domain.ErrNotAssignedConsumer
		}
		if ride.Rated() {
			return domain.ErrAlreadyRated
		}
		if ride.Status != domain.RideStatusCompleted || ride.PullerID == nil {
			return domain.ErrInvalidTransition
		}

		ok, err := s.rides.SetRating(ctx, ride.ID, input.Rating, review)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyRated
		}

		pullerID := *ride.PullerID
		if err := s.recompute(ctx, pullerID); err != nil {
			return err
		}
		if err := s.notifier.Notify(ctx, pullerID, domain.NotificationRatingReceived,
			domain.RatingReceivedMessage(input.Rating)); err != nil {
			return err
		}

		stars := input.Rating
		ride.Rating = &stars
		ride.Review = review
		rated = ride
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rate ride: %w", err)
	}

	s.events.Enqueue(domain.RideEvent{
		Type:       domain.RideEventRated,
		RideID:     rated.ID,
		ConsumerID: rated.ConsumerID,
		PullerID:   *rated.PullerID,
		Status:     rated.Status,
		OccurredAt: s.now(),
	})
	s.log.Info().
		Str("ride_id", rated.ID).
		Str("puller_id", *rated.PullerID).
		Int("rating", input.Rating).
		Msg("ride rated")
	return rated, nil
}

// AverageRating is computed straight from the ledger; nil means unrated.
func (s *RatingService) AverageRating(ctx context.Context, pullerID string) (*float64, error) {
	stats, err := s.rides.RatingStats(ctx, pullerID)
	if err != nil {
		return nil, fmt.Errorf("average rating: %w", err)
	}
	return stats.Mean(), nil
}

// AwardCompletion credits the fixed completion points. Dispatch calls it from
// inside the completion transaction.
func (s *RatingService) AwardCompletion(ctx context.Context, pullerID string) error {
	if err := s.accounts.AddCompletion(ctx, pullerID, domain.CompletionPoints); err != nil {
		return fmt.Errorf("award completion: %w", err)
	}
	return nil
}

func (s *RatingService) RatingsForPuller(ctx context.Context, pullerID string) ([]*domain.Ride, error) {
	rides, err := s.rides.List(ctx, ports.RideFilter{
		PullerID:  pullerID,
		Status:    domain.RideStatusCompleted,
		OnlyRated: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ratings for puller: %w", err)
	}
	return rides, nil
}

func (s *RatingService) recompute(ctx context.Context, pullerID string) error {
	stats, err := s.rides.RatingStats(ctx, pullerID)
	if err != nil {
		return fmt.Errorf("recompute rating: %w", err)
	}
	return s.accounts.SetRating(ctx, pullerID, stats.Mean(), stats.Count)
}

func normalizeReview(review *string) *string {
	if review == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*review)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
