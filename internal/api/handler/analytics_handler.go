package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iotrix/puller-dispatch/internal/api/metrics"
	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

// AnalyticsHandler exposes the admin dashboard reports.
type AnalyticsHandler struct {
	service ports.AnalyticsService
}

func NewAnalyticsHandler(service ports.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// Dashboard handles GET /v1/analytics/dashboard.
//
// @Summary      Dashboard summary
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.DashboardSummary
// @Failure      403  {object}  errorResponse
// @Router       /v1/analytics/dashboard [get]
func (h *AnalyticsHandler) Dashboard(c echo.Context) error {
	adminID, err := callerID(c)
	if err != nil {
		return err
	}
	timer := prometheus.NewTimer(metrics.AnalyticsDuration.WithLabelValues("dashboard"))
	defer timer.ObserveDuration()

	summary, err := h.service.DashboardSummary(c.Request().Context(), adminID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// RidesByStatus handles GET /v1/analytics/rides-by-status.
//
// @Summary      Ride counts by status
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]int64
// @Failure      403  {object}  errorResponse
// @Router       /v1/analytics/rides-by-status [get]
func (h *AnalyticsHandler) RidesByStatus(c echo.Context) error {
	adminID, err := callerID(c)
	if err != nil {
		return err
	}
	timer := prometheus.NewTimer(metrics.AnalyticsDuration.WithLabelValues("rides_by_status"))
	defer timer.ObserveDuration()

	counts, err := h.service.RidesByStatus(c.Request().Context(), adminID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, counts)
}

// PopularDestinations handles GET /v1/analytics/popular-destinations.
//
// @Summary      Most requested destinations
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Max entries (default 10, max 100)"
// @Success      200    {array}   domain.DestinationCount
// @Failure      403    {object}  errorResponse
// @Router       /v1/analytics/popular-destinations [get]
func (h *AnalyticsHandler) PopularDestinations(c echo.Context) error {
	adminID, err := callerID(c)
	if err != nil {
		return err
	}
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	timer := prometheus.NewTimer(metrics.AnalyticsDuration.WithLabelValues("popular_destinations"))
	defer timer.ObserveDuration()

	hist, err := h.service.PopularDestinations(c.Request().Context(), adminID, limit)
	if err != nil {
		return err
	}
	if hist == nil {
		hist = []domain.DestinationCount{}
	}
	return c.JSON(http.StatusOK, hist)
}

// RecentActivity handles GET /v1/analytics/recent-activity.
//
// @Summary      Most recent rides
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Max entries (default 20, max 100)"
// @Success      200    {object}  ridesResponse
// @Failure      403    {object}  errorResponse
// @Router       /v1/analytics/recent-activity [get]
func (h *AnalyticsHandler) RecentActivity(c echo.Context) error {
	adminID, err := callerID(c)
	if err != nil {
		return err
	}
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	timer := prometheus.NewTimer(metrics.AnalyticsDuration.WithLabelValues("recent_activity"))
	defer timer.ObserveDuration()

	rides, err := h.service.RecentActivity(c.Request().Context(), adminID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newRidesResponse(rides))
}

// queryLimit parses ?limit=. Zero means "use the report default".
func queryLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
	}
	return n, nil
}
