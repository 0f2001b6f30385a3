package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

func TestAccountService_Signup_PullerStartsPending(t *testing.T) {
	h := newHarness(t)

	acc, err := h.accountSvc.Signup(context.Background(), ports.SignupInput{
		Username: "  ravi ", Password: "rickshaw99", Role: "Puller",
	})
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if acc.Username != "ravi" {
		t.Fatalf("expected trimmed username, got %q", acc.Username)
	}
	if acc.Role != domain.RolePuller || acc.ApprovalStatus != domain.ApprovalPending {
		t.Fatalf("expected pending puller, got %s/%s", acc.Role, acc.ApprovalStatus)
	}
	if acc.Rating != nil || acc.Points != 0 {
		t.Fatalf("expected unrated puller with no points, got %+v", acc)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte("rickshaw99")); err != nil {
		t.Fatalf("password hash does not verify: %v", err)
	}
}

func TestAccountService_Signup_ConsumerAndAdminApproved(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, role := range []string{"consumer", "admin"} {
		acc, err := h.accountSvc.Signup(ctx, ports.SignupInput{Username: "u_" + role, Password: "password1", Role: role})
		if err != nil {
			t.Fatalf("Signup(%s) returned error: %v", role, err)
		}
		if acc.ApprovalStatus != domain.ApprovalApproved {
			t.Fatalf("%s should start approved, got %s", role, acc.ApprovalStatus)
		}
	}
}

func TestAccountService_Signup_Validation(t *testing.T) {
	h := newHarness(t)

	cases := []struct {
		name  string
		input ports.SignupInput
		want  error
	}{
		{"blank username", ports.SignupInput{Username: "  ", Password: "password1", Role: "consumer"}, domain.ErrInvalidUsername},
		{"short password", ports.SignupInput{Username: "a", Password: "short", Role: "consumer"}, domain.ErrWeakCredential},
		{"unknown role", ports.SignupInput{Username: "a", Password: "password1", Role: "driver"}, domain.ErrInvalidRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.accountSvc.Signup(context.Background(), tc.input)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if domain.KindOf(err) != domain.KindValidation {
				t.Fatalf("expected validation kind, got %q", domain.KindOf(err))
			}
		})
	}
}

func TestAccountService_Signup_Duplicate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	in := ports.SignupInput{Username: "meera", Password: "password1", Role: "consumer"}

	if _, err := h.accountSvc.Signup(ctx, in); err != nil {
		t.Fatalf("first Signup returned error: %v", err)
	}
	_, err := h.accountSvc.Signup(ctx, in)
	if !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestAccountService_Authenticate_Success(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, err := h.accountSvc.Signup(ctx, ports.SignupInput{Username: "meera", Password: "password1", Role: "consumer"})
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	res, err := h.accountSvc.Authenticate(ctx, "meera", "password1")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if res.Account.ID != created.ID {
		t.Fatalf("expected account %s, got %s", created.ID, res.Account.ID)
	}

	// The harness clock is fixed in the past, so skip expiry validation.
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, err := parser.Parse(res.Token, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token did not verify: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != created.ID || claims["role"] != "consumer" || claims["username"] != "meera" {
		t.Fatalf("unexpected claims: %v", claims)
	}
	exp, _ := claims.GetExpirationTime()
	iat, _ := claims.GetIssuedAt()
	if exp == nil || iat == nil || exp.Sub(iat.Time) != time.Hour {
		t.Fatalf("expected one hour token lifetime, got exp=%v iat=%v", exp, iat)
	}
}

func TestAccountService_Authenticate_InvalidCredentials(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.accountSvc.Signup(ctx, ports.SignupInput{Username: "meera", Password: "password1", Role: "consumer"}); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	for _, tc := range []struct{ user, pass string }{
		{"meera", "wrong-password"},
		{"nobody", "password1"},
		{"", ""},
	} {
		_, err := h.accountSvc.Authenticate(ctx, tc.user, tc.pass)
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("Authenticate(%q): expected ErrInvalidCredentials, got %v", tc.user, err)
		}
	}
}

func TestAccountService_Authenticate_UnapprovedPuller(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acc, err := h.accountSvc.Signup(ctx, ports.SignupInput{Username: "ravi", Password: "rickshaw99", Role: "puller"})
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	_, err = h.accountSvc.Authenticate(ctx, "ravi", "rickshaw99")
	if !errors.Is(err, domain.ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved for pending puller, got %v", err)
	}

	if _, err := h.approvals.Reject(ctx, h.admin(t), acc.ID); err != nil {
		t.Fatalf("Reject returned error: %v", err)
	}
	_, err = h.accountSvc.Authenticate(ctx, "ravi", "rickshaw99")
	if !errors.Is(err, domain.ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved for rejected puller, got %v", err)
	}
}

func TestAccountService_Profile(t *testing.T) {
	h := newHarness(t)
	id := h.consumer(t)

	acc, err := h.accountSvc.Profile(context.Background(), id)
	if err != nil {
		t.Fatalf("Profile returned error: %v", err)
	}
	if acc.ID != id {
		t.Fatalf("expected %s, got %s", id, acc.ID)
	}

	_, err = h.accountSvc.Profile(context.Background(), "missing")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
