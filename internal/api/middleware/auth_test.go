package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":      "acc-1",
		"username": "alice",
		"role":     "puller",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
}

// runAuth executes the middleware and renders any error the way echo would.
func runAuth(t *testing.T, header string, next echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := Auth("secret")(next)(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	signed := signToken(t, jwt.SigningMethodHS256, []byte("secret"), validClaims())

	called := false
	rec := runAuth(t, "Bearer "+signed, func(c echo.Context) error {
		called = true
		if c.Get("account_id") != "acc-1" {
			t.Fatalf("account_id not set")
		}
		if c.Get("username") != "alice" {
			t.Fatalf("username not set")
		}
		if c.Get("role") != "puller" {
			t.Fatalf("role not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	noExp := validClaims()
	delete(noExp, "exp")
	noSub := validClaims()
	delete(noSub, "sub")

	cases := map[string]string{
		"missing header":  "",
		"wrong scheme":    "Token abc",
		"garbage token":   "Bearer not-a-token",
		"wrong secret":    "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims()),
		"expired":         "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("secret"), expired),
		"no expiry":       "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("secret"), noExp),
		"no subject":      "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("secret"), noSub),
		"unsigned (none)": "Bearer " + signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims()),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rec := runAuth(t, header, func(c echo.Context) error {
				t.Fatalf("should not reach next")
				return nil
			})
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}
