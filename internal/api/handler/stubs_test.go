package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

// Each stub embeds its port so a test only fills in the calls it expects;
// anything else panics on the nil interface.

type stubAccountService struct {
	ports.AccountService
	signupFn  func(ctx context.Context, in ports.SignupInput) (*domain.Account, error)
	authFn    func(ctx context.Context, username, password string) (*ports.AuthResult, error)
	profileFn func(ctx context.Context, id string) (*domain.Account, error)
}

func (s *stubAccountService) Signup(ctx context.Context, in ports.SignupInput) (*domain.Account, error) {
	return s.signupFn(ctx, in)
}

func (s *stubAccountService) Authenticate(ctx context.Context, username, password string) (*ports.AuthResult, error) {
	return s.authFn(ctx, username, password)
}

func (s *stubAccountService) Profile(ctx context.Context, id string) (*domain.Account, error) {
	return s.profileFn(ctx, id)
}

type stubApprovalService struct {
	ports.ApprovalService
	listFn    func(ctx context.Context, adminID string) ([]*domain.Account, error)
	approveFn func(ctx context.Context, adminID, accountID string) (*domain.Account, error)
	rejectFn  func(ctx context.Context, adminID, accountID string) (*domain.Account, error)
}

func (s *stubApprovalService) ListPending(ctx context.Context, adminID string) ([]*domain.Account, error) {
	return s.listFn(ctx, adminID)
}

func (s *stubApprovalService) Approve(ctx context.Context, adminID, accountID string) (*domain.Account, error) {
	return s.approveFn(ctx, adminID, accountID)
}

func (s *stubApprovalService) Reject(ctx context.Context, adminID, accountID string) (*domain.Account, error) {
	return s.rejectFn(ctx, adminID, accountID)
}

type stubDispatchService struct {
	ports.DispatchService
	submitFn   func(ctx context.Context, in ports.SubmitRideInput) (*domain.Ride, error)
	openFn     func(ctx context.Context, pullerID string) ([]*domain.Ride, error)
	claimFn    func(ctx context.Context, rideID, pullerID string) (*domain.Ride, error)
	declineFn  func(ctx context.Context, rideID, pullerID string) error
	completeFn func(ctx context.Context, rideID, pullerID string) (*domain.Ride, error)
	statusFn   func(ctx context.Context, rideID string) (domain.RideStatus, error)
	historyFn  func(ctx context.Context, consumerID string) ([]*domain.Ride, error)
}

func (s *stubDispatchService) Submit(ctx context.Context, in ports.SubmitRideInput) (*domain.Ride, error) {
	return s.submitFn(ctx, in)
}

func (s *stubDispatchService) OpenRequests(ctx context.Context, pullerID string) ([]*domain.Ride, error) {
	return s.openFn(ctx, pullerID)
}

func (s *stubDispatchService) Claim(ctx context.Context, rideID, pullerID string) (*domain.Ride, error) {
	return s.claimFn(ctx, rideID, pullerID)
}

func (s *stubDispatchService) Decline(ctx context.Context, rideID, pullerID string) error {
	return s.declineFn(ctx, rideID, pullerID)
}

func (s *stubDispatchService) Complete(ctx context.Context, rideID, pullerID string) (*domain.Ride, error) {
	return s.completeFn(ctx, rideID, pullerID)
}

func (s *stubDispatchService) Status(ctx context.Context, rideID string) (domain.RideStatus, error) {
	return s.statusFn(ctx, rideID)
}

func (s *stubDispatchService) HistoryForConsumer(ctx context.Context, consumerID string) ([]*domain.Ride, error) {
	return s.historyFn(ctx, consumerID)
}

type stubRatingService struct {
	ports.RatingService
	rateFn    func(ctx context.Context, in ports.RateRideInput) (*domain.Ride, error)
	averageFn func(ctx context.Context, pullerID string) (*float64, error)
	ratingsFn func(ctx context.Context, pullerID string) ([]*domain.Ride, error)
}

func (s *stubRatingService) Rate(ctx context.Context, in ports.RateRideInput) (*domain.Ride, error) {
	return s.rateFn(ctx, in)
}

func (s *stubRatingService) AverageRating(ctx context.Context, pullerID string) (*float64, error) {
	return s.averageFn(ctx, pullerID)
}

func (s *stubRatingService) RatingsForPuller(ctx context.Context, pullerID string) ([]*domain.Ride, error) {
	return s.ratingsFn(ctx, pullerID)
}

type stubNotificationService struct {
	ports.NotificationService
	unreadFn func(ctx context.Context, accountID string) ([]*domain.Notification, error)
	countFn  func(ctx context.Context, accountID string) (int64, error)
}

func (s *stubNotificationService) UnreadFor(ctx context.Context, accountID string) ([]*domain.Notification, error) {
	return s.unreadFn(ctx, accountID)
}

func (s *stubNotificationService) UnreadCount(ctx context.Context, accountID string) (int64, error) {
	return s.countFn(ctx, accountID)
}

type stubAnalyticsService struct {
	ports.AnalyticsService
	dashboardFn    func(ctx context.Context, adminID string) (*domain.DashboardSummary, error)
	byStatusFn     func(ctx context.Context, adminID string) (map[domain.RideStatus]int64, error)
	destinationsFn func(ctx context.Context, adminID string, limit int) ([]domain.DestinationCount, error)
	recentFn       func(ctx context.Context, adminID string, limit int) ([]*domain.Ride, error)
}

func (s *stubAnalyticsService) DashboardSummary(ctx context.Context, adminID string) (*domain.DashboardSummary, error) {
	return s.dashboardFn(ctx, adminID)
}

func (s *stubAnalyticsService) RidesByStatus(ctx context.Context, adminID string) (map[domain.RideStatus]int64, error) {
	return s.byStatusFn(ctx, adminID)
}

func (s *stubAnalyticsService) PopularDestinations(ctx context.Context, adminID string, limit int) ([]domain.DestinationCount, error) {
	return s.destinationsFn(ctx, adminID, limit)
}

func (s *stubAnalyticsService) RecentActivity(ctx context.Context, adminID string, limit int) ([]*domain.Ride, error) {
	return s.recentFn(ctx, adminID, limit)
}

// newContext builds an echo context as the Auth middleware would leave it.
// An empty accountID leaves the context unauthenticated.
func newContext(method, target, body, accountID, role string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if accountID != "" {
		c.Set("account_id", accountID)
		c.Set("role", role)
	}
	return c, rec
}

// expectHTTPError asserts err is an echo.HTTPError with the given code.
func expectHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	if he.Code != code {
		t.Fatalf("expected %d, got %d (%v)", code, he.Code, he.Message)
	}
}
