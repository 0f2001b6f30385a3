package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iotrix/puller-dispatch/internal/api/metrics"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

type AccountHandler struct {
	service ports.AccountService
}

func NewAccountHandler(service ports.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// Signup creates a new account. Pullers start pending admin approval.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Account details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/signup [post]
func (h *AccountHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.service.Signup(c.Request().Context(), ports.SignupInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}

	metrics.SignupsTotal.WithLabelValues(string(account.Role)).Inc()
	return c.JSON(http.StatusCreated, authResponse{Account: account})
}

// Login authenticates a user and returns a JWT token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse  "puller not approved"
// @Router       /auth/login [post]
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.service.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{Token: res.Token, Account: res.Account})
}

// Me returns the caller's account.
//
// @Summary      Current account
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Account
// @Failure      401  {object}  errorResponse
// @Router       /auth/me [get]
func (h *AccountHandler) Me(c echo.Context) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	account, err := h.service.Profile(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}
