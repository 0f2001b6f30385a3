package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iotrix/puller-dispatch/internal/api/metrics"
	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

// RideHandler handles HTTP requests for the ride lifecycle.
type RideHandler struct {
	service ports.DispatchService
}

func NewRideHandler(service ports.DispatchService) *RideHandler {
	return &RideHandler{service: service}
}

// Submit handles POST /v1/rides.
//
// @Summary      Request a ride
// @Tags         rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      submitRideRequest  true  "Ride request"
// @Success      201   {object}  domain.Ride
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/rides [post]
func (h *RideHandler) Submit(c echo.Context) error {
	consumerID, err := callerID(c)
	if err != nil {
		return err
	}
	var req submitRideRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ride, err := h.service.Submit(c.Request().Context(), ports.SubmitRideInput{
		ConsumerID:     consumerID,
		Destination:    req.Destination,
		PickupLocation: req.PickupLocation,
	})
	if err != nil {
		return err
	}
	metrics.RideTransitionsTotal.WithLabelValues("submitted").Inc()
	c.Response().Header().Set(echo.HeaderLocation, "/v1/rides/"+ride.ID+"/status")
	return c.JSON(http.StatusCreated, ride)
}

// Open handles GET /v1/rides/open.
//
// @Summary      Open ride requests
// @Description  Pending rides oldest first, excluding rides the caller declined.
// @Tags         rides
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ridesResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/rides/open [get]
func (h *RideHandler) Open(c echo.Context) error {
	return h.listForCaller(c, h.service.OpenRequests)
}

// Claim handles POST /v1/rides/:id/claim.
//
// @Summary      Claim a ride
// @Description  Exactly one concurrent claimer wins; the rest receive 409 already_claimed.
// @Tags         rides
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Ride ID"
// @Success      200  {object}  domain.Ride
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/rides/{id}/claim [post]
func (h *RideHandler) Claim(c echo.Context) error {
	pullerID, err := callerID(c)
	if err != nil {
		return err
	}

	ride, err := h.service.Claim(c.Request().Context(), c.Param("id"), pullerID)
	switch {
	case err == nil:
		metrics.ClaimsTotal.WithLabelValues("won").Inc()
		metrics.RideTransitionsTotal.WithLabelValues("claimed").Inc()
	case errors.Is(err, domain.ErrAlreadyClaimed):
		metrics.ClaimsTotal.WithLabelValues("lost").Inc()
		return err
	default:
		metrics.ClaimsTotal.WithLabelValues("rejected").Inc()
		return err
	}
	return c.JSON(http.StatusOK, ride)
}

// Decline handles POST /v1/rides/:id/decline.
//
// @Summary      Decline a ride
// @Description  Hides a pending ride from the caller. The ride stays pending for other pullers.
// @Tags         rides
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Ride ID"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/rides/{id}/decline [post]
func (h *RideHandler) Decline(c echo.Context) error {
	pullerID, err := callerID(c)
	if err != nil {
		return err
	}
	if err := h.service.Decline(c.Request().Context(), c.Param("id"), pullerID); err != nil {
		return err
	}
	metrics.RideTransitionsTotal.WithLabelValues("declined").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "ride declined"})
}

// Complete handles POST /v1/rides/:id/complete.
//
// @Summary      Complete a ride
// @Tags         rides
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Ride ID"
// @Success      200  {object}  domain.Ride
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/rides/{id}/complete [post]
func (h *RideHandler) Complete(c echo.Context) error {
	pullerID, err := callerID(c)
	if err != nil {
		return err
	}
	ride, err := h.service.Complete(c.Request().Context(), c.Param("id"), pullerID)
	if err != nil {
		return err
	}
	metrics.RideTransitionsTotal.WithLabelValues("completed").Inc()
	return c.JSON(http.StatusOK, ride)
}

// Status handles GET /v1/rides/:id/status.
//
// @Summary      Ride status
// @Tags         rides
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Ride ID"
// @Success      200  {object}  rideStatusResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/rides/{id}/status [get]
func (h *RideHandler) Status(c echo.Context) error {
	id := c.Param("id")
	status, err := h.service.Status(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rideStatusResponse{RideID: id, Status: status})
}

// ConsumerHistory handles GET /v1/consumers/me/rides.
//
// @Summary      Consumer ride history
// @Tags         rides
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ridesResponse
// @Router       /v1/consumers/me/rides [get]
func (h *RideHandler) ConsumerHistory(c echo.Context) error {
	return h.listForCaller(c, h.service.HistoryForConsumer)
}

// PullerAccepted handles GET /v1/pullers/me/accepted.
//
// @Summary      Rides in progress
// @Tags         rides
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ridesResponse
// @Router       /v1/pullers/me/accepted [get]
func (h *RideHandler) PullerAccepted(c echo.Context) error {
	return h.listForCaller(c, h.service.AcceptedForPuller)
}

// PullerCompleted handles GET /v1/pullers/me/completed.
//
// @Summary      Completed rides
// @Tags         rides
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ridesResponse
// @Router       /v1/pullers/me/completed [get]
func (h *RideHandler) PullerCompleted(c echo.Context) error {
	return h.listForCaller(c, h.service.CompletedForPuller)
}

// PullerHistory handles GET /v1/pullers/me/history.
//
// @Summary      Puller ride history
// @Tags         rides
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ridesResponse
// @Router       /v1/pullers/me/history [get]
func (h *RideHandler) PullerHistory(c echo.Context) error {
	return h.listForCaller(c, h.service.HistoryForPuller)
}

func (h *RideHandler) listForCaller(c echo.Context, list func(ctx context.Context, id string) ([]*domain.Ride, error)) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	rides, err := list(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newRidesResponse(rides))
}
