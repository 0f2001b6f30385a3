package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RBAC rejects callers whose token role is not in allowedRoles. It is a
// coarse route filter; services repeat the check against the stored account.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if _, ok := allowed[role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "role not permitted for this route")
			}
			return next(c)
		}
	}
}
