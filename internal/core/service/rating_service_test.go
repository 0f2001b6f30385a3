package service

import (
	"context"
	"errors"
	"testing"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

func rate(h *harness, rideID, consumerID string, stars int) (*domain.Ride, error) {
	return h.ratings.Rate(context.Background(), ports.RateRideInput{
		RideID:     rideID,
		ConsumerID: consumerID,
		Rating:     stars,
	})
}

func TestRatingService_AverageOverRatedRides(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	consumer := h.consumer(t)
	puller := h.puller(t)

	for _, stars := range []int{5, 3, 4} {
		ride := h.completed(t, consumer, puller, "Old Market")
		if _, err := rate(h, ride.ID, consumer, stars); err != nil {
			t.Fatalf("Rate(%d) returned error: %v", stars, err)
		}
	}
	// An unrated completion does not pull the mean down.
	h.completed(t, consumer, puller, "Station")

	avg, err := h.ratings.AverageRating(ctx, puller)
	if err != nil {
		t.Fatalf("AverageRating returned error: %v", err)
	}
	if avg == nil || *avg != 4.0 {
		t.Fatalf("expected average 4.0, got %v", avg)
	}

	acc := h.account(t, puller)
	if acc.Rating == nil || *acc.Rating != 4.0 || acc.RatedRides != 3 {
		t.Fatalf("cached aggregate out of step: rating=%v rated=%d", acc.Rating, acc.RatedRides)
	}
	if acc.Points != 4*domain.CompletionPoints || acc.CompletedRides != 4 {
		t.Fatalf("expected 400 points over 4 rides, got %d/%d", acc.Points, acc.CompletedRides)
	}

	rated, err := h.ratings.RatingsForPuller(ctx, puller)
	if err != nil {
		t.Fatalf("RatingsForPuller returned error: %v", err)
	}
	if len(rated) != 3 {
		t.Fatalf("expected 3 rated rides, got %d", len(rated))
	}
}

func TestRatingService_AverageNilWhenUnrated(t *testing.T) {
	h := newHarness(t)
	puller := h.puller(t)
	h.completed(t, h.consumer(t), puller, "Old Market")

	avg, err := h.ratings.AverageRating(context.Background(), puller)
	if err != nil {
		t.Fatalf("AverageRating returned error: %v", err)
	}
	if avg != nil {
		t.Fatalf("expected nil average, got %v", *avg)
	}
	if h.account(t, puller).Rating != nil {
		t.Fatalf("expected no cached rating")
	}
}

func TestRatingService_Rate_NotifiesPullerAndKeepsReview(t *testing.T) {
	h := newHarness(t)
	consumer := h.consumer(t)
	puller := h.puller(t)
	ride := h.completed(t, consumer, puller, "Old Market")
	review := "  smooth ride "

	rated, err := h.ratings.Rate(context.Background(), ports.RateRideInput{
		RideID: ride.ID, ConsumerID: consumer, Rating: 5, Review: &review,
	})
	if err != nil {
		t.Fatalf("Rate returned error: %v", err)
	}
	if rated.Rating == nil || *rated.Rating != 5 || rated.Review == nil || *rated.Review != "smooth ride" {
		t.Fatalf("unexpected rated ride: %+v", rated)
	}

	notes := h.notes.forAccount(puller)
	if len(notes) != 1 || notes[0].Type != domain.NotificationRatingReceived ||
		notes[0].Message != "You received a 5-star rating!" {
		t.Fatalf("unexpected puller notifications: %v", notes)
	}
	types := h.sink.types()
	if types[len(types)-1] != domain.RideEventRated {
		t.Fatalf("expected trailing rated event, got %v", types)
	}
}

func TestRatingService_RateIsOneTime(t *testing.T) {
	h := newHarness(t)
	consumer := h.consumer(t)
	puller := h.puller(t)
	ride := h.completed(t, consumer, puller, "Old Market")

	if _, err := rate(h, ride.ID, consumer, 2); err != nil {
		t.Fatalf("Rate returned error: %v", err)
	}
	before := h.account(t, puller)

	_, err := rate(h, ride.ID, consumer, 5)
	if !errors.Is(err, domain.ErrAlreadyRated) {
		t.Fatalf("expected ErrAlreadyRated, got %v", err)
	}
	after := h.account(t, puller)
	if *after.Rating != *before.Rating || after.RatedRides != before.RatedRides {
		t.Fatalf("second rating changed aggregate: %v -> %v", *before.Rating, *after.Rating)
	}
	if n := len(h.notes.forAccount(puller)); n != 1 {
		t.Fatalf("expected one rating notification, got %d", n)
	}
}

func TestRatingService_Rate_Failures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	consumer := h.consumer(t)
	stranger := h.consumer(t)
	puller := h.puller(t)

	pending := h.submit(t, consumer, "Old Market")
	if _, err := rate(h, pending.ID, consumer, 4); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition rating a pending ride, got %v", err)
	}

	done := h.completed(t, consumer, puller, "River Ghat")
	if _, err := rate(h, done.ID, stranger, 4); !errors.Is(err, domain.ErrNotAssignedConsumer) {
		t.Fatalf("expected ErrNotAssignedConsumer, got %v", err)
	}
	for _, stars := range []int{0, 6, -1} {
		if _, err := rate(h, done.ID, consumer, stars); !errors.Is(err, domain.ErrInvalidRating) {
			t.Fatalf("Rate(%d): expected ErrInvalidRating, got %v", stars, err)
		}
	}
	if _, err := rate(h, "missing", consumer, 4); !errors.Is(err, domain.ErrRideNotFound) {
		t.Fatalf("expected ErrRideNotFound, got %v", err)
	}
	if _, err := rate(h, done.ID, puller, 4); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for puller rating, got %v", err)
	}

	stored, _ := h.rides.FindByID(ctx, done.ID)
	if stored.Rated() {
		t.Fatalf("failed ratings left a value behind: %d", *stored.Rating)
	}
}
