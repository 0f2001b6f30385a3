package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iotrix/puller-dispatch/internal/api/metrics"
	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

// ApprovalHandler serves the admin approval queue.
type ApprovalHandler struct {
	service ports.ApprovalService
}

func NewApprovalHandler(service ports.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{service: service}
}

// ListPending handles GET /admin/pullers/pending.
//
// @Summary      Pending puller applications
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Account
// @Failure      403  {object}  errorResponse
// @Router       /admin/pullers/pending [get]
func (h *ApprovalHandler) ListPending(c echo.Context) error {
	adminID, err := callerID(c)
	if err != nil {
		return err
	}
	pending, err := h.service.ListPending(c.Request().Context(), adminID)
	if err != nil {
		return err
	}
	if pending == nil {
		pending = []*domain.Account{}
	}
	return c.JSON(http.StatusOK, pending)
}

// Approve handles POST /admin/pullers/:id/approve.
//
// @Summary      Approve a puller
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  domain.Account
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /admin/pullers/{id}/approve [post]
func (h *ApprovalHandler) Approve(c echo.Context) error {
	return h.decide(c, h.service.Approve, "approved")
}

// Reject handles POST /admin/pullers/:id/reject.
//
// @Summary      Reject a puller
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  domain.Account
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /admin/pullers/{id}/reject [post]
func (h *ApprovalHandler) Reject(c echo.Context) error {
	return h.decide(c, h.service.Reject, "rejected")
}

type decisionFunc func(ctx context.Context, adminID, accountID string) (*domain.Account, error)

func (h *ApprovalHandler) decide(c echo.Context, fn decisionFunc, decision string) error {
	adminID, err := callerID(c)
	if err != nil {
		return err
	}
	account, err := fn(c.Request().Context(), adminID, c.Param("id"))
	if err != nil {
		return err
	}
	metrics.ApprovalDecisionsTotal.WithLabelValues(decision).Inc()
	return c.JSON(http.StatusOK, account)
}
