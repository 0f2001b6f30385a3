package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// kindStatus maps each core error kind to its HTTP status.
var kindStatus = map[domain.Kind]int{
	domain.KindValidation:    http.StatusUnprocessableEntity,
	domain.KindNotFound:      http.StatusNotFound,
	domain.KindAuthorization: http.StatusForbidden,
	domain.KindConflict:      http.StatusConflict,
	domain.KindCredential:    http.StatusUnauthorized,
}

// transportReasons classifies rejections raised before a request reaches
// the core (malformed body, missing token, route-level RBAC, unknown route).
var transportReasons = map[int]struct {
	kind   domain.Kind
	reason string
}{
	http.StatusBadRequest:   {domain.KindValidation, "malformed_request"},
	http.StatusUnauthorized: {domain.KindCredential, "unauthenticated"},
	http.StatusForbidden:    {domain.KindAuthorization, "forbidden"},
	http.StatusNotFound:     {domain.KindNotFound, "route_not_found"},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps core errors to a status by kind and exposes the machine reason.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error", "kind", "reason"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, middleware rejections).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		body := errorResponse{Error: fmt.Sprintf("%v", he.Message)}
		if cls, ok := transportReasons[he.Code]; ok {
			body.Kind, body.Reason = string(cls.kind), cls.reason
		}
		return he.Code, body
	}

	var de *domain.Error
	if errors.As(err, &de) {
		if code, ok := kindStatus[de.Kind]; ok {
			return code, errorResponse{Error: de.Msg, Kind: string(de.Kind), Reason: de.Reason}
		}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}
