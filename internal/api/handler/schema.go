package handler

import "github.com/iotrix/puller-dispatch/internal/core/domain"

// errorResponse documents the envelope rendered by the API error handler.
type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// --- Accounts ---

type signupRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
	Role     string `json:"role"     validate:"required"`
}

// loginRequest leaves emptiness to the service so every bad login reads
// invalid_credentials.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token   string          `json:"token,omitempty"`
	Account *domain.Account `json:"account"`
}

// --- Rides ---

type submitRideRequest struct {
	Destination    string `json:"destination"     validate:"required,max=200"`
	PickupLocation string `json:"pickup_location" validate:"max=200"`
}

type rideStatusResponse struct {
	RideID string            `json:"ride_id"`
	Status domain.RideStatus `json:"status"`
}

type ridesResponse struct {
	Data  []*domain.Ride `json:"data"`
	Count int            `json:"count"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Ratings ---

type rateRideRequest struct {
	Rating *int    `json:"rating" validate:"required"`
	Review *string `json:"review" validate:"omitempty,max=1000"`
}

type pullerRatingsResponse struct {
	PullerID string         `json:"puller_id"`
	Average  *float64       `json:"average_rating"`
	Ratings  []*domain.Ride `json:"ratings"`
}

// --- Notifications ---

type notificationsResponse struct {
	Data  []*domain.Notification `json:"data"`
	Count int                    `json:"count"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

func newRidesResponse(rides []*domain.Ride) ridesResponse {
	if rides == nil {
		rides = []*domain.Ride{}
	}
	return ridesResponse{Data: rides, Count: len(rides)}
}
