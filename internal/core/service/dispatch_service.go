package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

// CompletionAwarder credits a puller for a finished ride.
type CompletionAwarder interface {
	AwardCompletion(ctx context.Context, pullerID string) error
}

// DispatchService owns every ride status transition. Claims are resolved by
// a conditional write on the ledger, so concurrent claimers of one ride see
// exactly one winner.
type DispatchService struct {
	rides    ports.RideRepository
	notifier ports.NotificationService
	awarder  CompletionAwarder
	tx       ports.Transactor
	events   ports.EventSink
	caps     capabilities
	log      zerolog.Logger
	now      func() time.Time
}

func NewDispatchService(
	rides ports.RideRepository,
	accounts ports.AccountRepository,
	notifier ports.NotificationService,
	awarder CompletionAwarder,
	tx ports.Transactor,
	events ports.EventSink,
	log zerolog.Logger,
) *DispatchService {
	if events == nil {
		events = noopSink{}
	}
	return &DispatchService{
		rides:    rides,
		notifier: notifier,
		awarder:  awarder,
		tx:       tx,
		events:   events,
		caps:     capabilities{accounts: accounts},
		log:      log,
		now:      clock,
	}
}

// Submit records a new pending request for the calling consumer.
func (s *DispatchService) Submit(ctx context.Context, input ports.SubmitRideInput) (*domain.Ride, error) {
	if _, err := s.caps.require(ctx, input.ConsumerID, domain.RoleConsumer); err != nil {
		return nil, fmt.Errorf("submit ride: %w", err)
	}
	destination := strings.TrimSpace(input.Destination)
	if destination == "" {
		return nil, domain.ErrInvalidDestination
	}

	ride := &domain.Ride{
		ID:             uuid.NewString(),
		ConsumerID:     input.ConsumerID,
		Destination:    destination,
		PickupLocation: strings.TrimSpace(input.PickupLocation),
		Status:         domain.RideStatusPending,
		CreatedAt:      s.now(),
	}
	if err := s.rides.Create(ctx, ride); err != nil {
		return nil, fmt.Errorf("submit ride: %w", err)
	}

	s.emit(domain.RideEventSubmitted, ride, ride.CreatedAt)
	s.log.Info().
		Str("ride_id", ride.ID).
		Str("consumer_id", ride.ConsumerID).
		Str("destination", ride.Destination).
		Msg("ride submitted")
	return ride, nil
}

// OpenRequests lists pending rides oldest first, minus the ones the caller
// already declined.
func (s *DispatchService) OpenRequests(ctx context.Context, pullerID string) ([]*domain.Ride, error) {
	if _, err := s.caps.require(ctx, pullerID, domain.RolePuller); err != nil {
		return nil, fmt.Errorf("open requests: %w", err)
	}
	rides, err := s.rides.List(ctx, ports.RideFilter{
		Status:        domain.RideStatusPending,
		NotDeclinedBy: pullerID,
		OldestFirst:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("open requests: %w", err)
	}
	return rides, nil
}

// Claim assigns a pending ride to the calling puller. Losers of a race get
// domain.ErrAlreadyClaimed and nothing is written on their behalf.
func (s *DispatchService) Claim(ctx context.Context, rideID, pullerID string) (*domain.Ride, error) {
	if _, err := s.caps.require(ctx, pullerID, domain.RolePuller); err != nil {
		return nil, fmt.Errorf("claim ride: %w", err)
	}

	var claimed *domain.Ride
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ride, err := s.rides.FindByID(ctx, rideID)
		if err != nil {
			return err
		}
		switch ride.Status {
		case domain.RideStatusPending:
		case domain.RideStatusAccepted, domain.RideStatusCompleted:
			return domain.ErrAlreadyClaimed
		default:
			return domain.ErrInvalidTransition
		}

		at := notBefore(s.now(), ride.CreatedAt)
		ok, err := s.rides.Claim(ctx, ride.ID, pullerID, at)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyClaimed
		}
		if err := s.notifier.Notify(ctx, ride.ConsumerID, domain.NotificationRideAccepted,
			domain.RideAcceptedMessage(ride.Destination)); err != nil {
			return err
		}

		ride.Status = domain.RideStatusAccepted
		ride.PullerID = &pullerID
		ride.AcceptedAt = &at
		claimed = ride
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyClaimed) {
			s.log.Debug().Str("ride_id", rideID).Str("puller_id", pullerID).Msg("claim lost")
		}
		return nil, fmt.Errorf("claim ride: %w", err)
	}

	s.emit(domain.RideEventClaimed, claimed, *claimed.AcceptedAt)
	s.log.Info().
		Str("ride_id", claimed.ID).
		Str("puller_id", pullerID).
		Msg("ride claimed")
	return claimed, nil
}

// Decline hides a pending ride from the calling puller's open list. The
// ride stays pending for everyone else.
func (s *DispatchService) Decline(ctx context.Context, rideID, pullerID string) error {
	if _, err := s.caps.require(ctx, pullerID, domain.RolePuller); err != nil {
		return fmt.Errorf("decline ride: %w", err)
	}

	ride, err := s.rides.FindByID(ctx, rideID)
	if err != nil {
		return fmt.Errorf("decline ride: %w", err)
	}
	if ride.Status != domain.RideStatusPending {
		return fmt.Errorf("decline ride: %w", domain.ErrInvalidTransition)
	}
	ok, err := s.rides.RecordDecline(ctx, ride.ID, pullerID)
	if err != nil {
		return fmt.Errorf("decline ride: %w", err)
	}
	if !ok {
		return fmt.Errorf("decline ride: %w", domain.ErrInvalidTransition)
	}

	s.events.Enqueue(domain.RideEvent{
		Type:       domain.RideEventDeclined,
		RideID:     ride.ID,
		ConsumerID: ride.ConsumerID,
		PullerID:   pullerID,
		Status:     ride.Status,
		OccurredAt: s.now(),
	})
	s.log.Info().Str("ride_id", ride.ID).Str("puller_id", pullerID).Msg("ride declined")
	return nil
}

// Complete finishes an accepted ride. Points are awarded and the consumer is
// notified in the same transaction as the status change.
func (s *DispatchService) Complete(ctx context.Context, rideID, pullerID string) (*domain.Ride, error) {
	if _, err := s.caps.require(ctx, pullerID, domain.RolePuller); err != nil {
		return nil, fmt.Errorf("complete ride: %w", err)
	}

	var completed *domain.Ride
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ride, err := s.rides.FindByID(ctx, rideID)
		if err != nil {
			return err
		}
		if !ride.AssignedTo(pullerID) {
			return domain.ErrNotAssignedPuller
		}
		if ride.Status != domain.RideStatusAccepted || ride.AcceptedAt == nil {
			return domain.ErrInvalidTransition
		}

		at := notBefore(s.now(), *ride.AcceptedAt)
		ok, err := s.rides.Complete(ctx, ride.ID, pullerID, at)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition
		}
		if err := s.awarder.AwardCompletion(ctx, pullerID); err != nil {
			return err
		}
		if err := s.notifier.Notify(ctx, ride.ConsumerID, domain.NotificationRideCompleted,
			domain.RideCompletedMessage(ride.Destination)); err != nil {
			return err
		}

		ride.Status = domain.RideStatusCompleted
		ride.CompletedAt = &at
		completed = ride
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("complete ride: %w", err)
	}

	s.emit(domain.RideEventCompleted, completed, *completed.CompletedAt)
	s.log.Info().
		Str("ride_id", completed.ID).
		Str("puller_id", pullerID).
		Int("points", domain.CompletionPoints).
		Msg("ride completed")
	return completed, nil
}

// Status is the lightweight poll used by consumer devices.
func (s *DispatchService) Status(ctx context.Context, rideID string) (domain.RideStatus, error) {
	ride, err := s.rides.FindByID(ctx, rideID)
	if err != nil {
		return "", fmt.Errorf("ride status: %w", err)
	}
	return ride.Status, nil
}

func (s *DispatchService) HistoryForConsumer(ctx context.Context, consumerID string) ([]*domain.Ride, error) {
	if _, err := s.caps.require(ctx, consumerID, domain.RoleConsumer); err != nil {
		return nil, fmt.Errorf("consumer history: %w", err)
	}
	return s.list(ctx, "consumer history", ports.RideFilter{ConsumerID: consumerID})
}

func (s *DispatchService) AcceptedForPuller(ctx context.Context, pullerID string) ([]*domain.Ride, error) {
	return s.pullerRides(ctx, "accepted rides", pullerID, domain.RideStatusAccepted)
}

func (s *DispatchService) CompletedForPuller(ctx context.Context, pullerID string) ([]*domain.Ride, error) {
	return s.pullerRides(ctx, "completed rides", pullerID, domain.RideStatusCompleted)
}

// HistoryForPuller returns every ride the puller has been assigned.
func (s *DispatchService) HistoryForPuller(ctx context.Context, pullerID string) ([]*domain.Ride, error) {
	return s.pullerRides(ctx, "puller history", pullerID, "")
}

func (s *DispatchService) pullerRides(ctx context.Context, op, pullerID string, status domain.RideStatus) ([]*domain.Ride, error) {
	if _, err := s.caps.require(ctx, pullerID, domain.RolePuller); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.list(ctx, op, ports.RideFilter{PullerID: pullerID, Status: status})
}

func (s *DispatchService) list(ctx context.Context, op string, filter ports.RideFilter) ([]*domain.Ride, error) {
	rides, err := s.rides.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rides, nil
}

func (s *DispatchService) emit(kind domain.RideEventType, ride *domain.Ride, at time.Time) {
	event := domain.RideEvent{
		Type:       kind,
		RideID:     ride.ID,
		ConsumerID: ride.ConsumerID,
		Status:     ride.Status,
		OccurredAt: at,
	}
	if ride.PullerID != nil {
		event.PullerID = *ride.PullerID
	}
	s.events.Enqueue(event)
}
