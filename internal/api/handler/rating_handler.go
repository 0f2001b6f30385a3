package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iotrix/puller-dispatch/internal/api/metrics"
	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

type RatingHandler struct {
	service ports.RatingService
}

func NewRatingHandler(service ports.RatingService) *RatingHandler {
	return &RatingHandler{service: service}
}

// Rate handles POST /v1/rides/:id/rating.
//
// @Summary      Rate a completed ride
// @Description  One rating per ride, 1 to 5 stars. Only the consumer who requested the ride may rate it.
// @Tags         ratings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Ride ID"
// @Param        body  body      rateRideRequest  true  "Rating"
// @Success      200   {object}  domain.Ride
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse  "already_rated or invalid_transition"
// @Failure      422   {object}  errorResponse
// @Router       /v1/rides/{id}/rating [post]
func (h *RatingHandler) Rate(c echo.Context) error {
	consumerID, err := callerID(c)
	if err != nil {
		return err
	}
	var req rateRideRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ride, err := h.service.Rate(c.Request().Context(), ports.RateRideInput{
		RideID:     c.Param("id"),
		ConsumerID: consumerID,
		Rating:     *req.Rating,
		Review:     req.Review,
	})
	if err != nil {
		return err
	}
	metrics.RatingsTotal.WithLabelValues(strconv.Itoa(*req.Rating)).Inc()
	metrics.RideTransitionsTotal.WithLabelValues("rated").Inc()
	return c.JSON(http.StatusOK, ride)
}

// PullerRatings handles GET /v1/pullers/:id/ratings.
//
// @Summary      Ratings received by a puller
// @Tags         ratings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Puller account ID"
// @Success      200  {object}  pullerRatingsResponse
// @Router       /v1/pullers/{id}/ratings [get]
func (h *RatingHandler) PullerRatings(c echo.Context) error {
	ctx := c.Request().Context()
	pullerID := c.Param("id")

	avg, err := h.service.AverageRating(ctx, pullerID)
	if err != nil {
		return err
	}
	rides, err := h.service.RatingsForPuller(ctx, pullerID)
	if err != nil {
		return err
	}
	if rides == nil {
		rides = []*domain.Ride{}
	}
	return c.JSON(http.StatusOK, pullerRatingsResponse{PullerID: pullerID, Average: avg, Ratings: rides})
}
