package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

type NotificationHandler struct {
	service ports.NotificationService
}

func NewNotificationHandler(service ports.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// Unread handles GET /v1/notifications/unread.
//
// @Summary      Unread notifications
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  notificationsResponse
// @Router       /v1/notifications/unread [get]
func (h *NotificationHandler) Unread(c echo.Context) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	list, err := h.service.UnreadFor(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Notification{}
	}
	return c.JSON(http.StatusOK, notificationsResponse{Data: list, Count: len(list)})
}

// UnreadCount handles GET /v1/notifications/unread/count.
//
// @Summary      Unread notification count
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  countResponse
// @Router       /v1/notifications/unread/count [get]
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	n, err := h.service.UnreadCount(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, countResponse{Count: n})
}
