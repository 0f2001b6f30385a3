package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxIdentity extracts the caller injected by the Auth middleware. Presence
// of both values proves the middleware ran; authorization itself happens in
// the services.
func ctxIdentity(c echo.Context) (accountID, role string, err error) {
	accountID, _ = c.Get("account_id").(string)
	role, _ = c.Get("role").(string)
	if accountID == "" || role == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return accountID, role, nil
}

func callerID(c echo.Context) (string, error) {
	id, _, err := ctxIdentity(c)
	return id, err
}

// bindAndValidate binds the JSON body into req and runs struct validation.
// Validation failures are *domain.Error values and render with their reason.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}
