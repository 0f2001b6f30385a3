package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/iotrix/puller-dispatch/internal/api/handler"
	"github.com/iotrix/puller-dispatch/internal/api/middleware"
	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
	"github.com/iotrix/puller-dispatch/internal/infrastructure/http/handlers"
)

// Services groups the core services the HTTP layer drives.
type Services struct {
	Accounts      ports.AccountService
	Approvals     ports.ApprovalService
	Dispatch      ports.DispatchService
	Ratings       ports.RatingService
	Notifications ports.NotificationService
	Analytics     ports.AnalyticsService
}

var (
	admin    = string(domain.RoleAdmin)
	puller   = string(domain.RolePuller)
	consumer = string(domain.RoleConsumer)
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(svc Services, health *handlers.HealthDependenciesHandler, jwtSecret string, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echoprometheus.NewMiddleware("dispatch"))

	// --- Handlers ---
	accountHandler := handler.NewAccountHandler(svc.Accounts)
	approvalHandler := handler.NewApprovalHandler(svc.Approvals)
	rideHandler := handler.NewRideHandler(svc.Dispatch)
	ratingHandler := handler.NewRatingHandler(svc.Ratings)
	notificationHandler := handler.NewNotificationHandler(svc.Notifications)
	analyticsHandler := handler.NewAnalyticsHandler(svc.Analytics)

	auth := middleware.Auth(jwtSecret)

	// --- Auth routes ---
	e.POST("/auth/signup", accountHandler.Signup)
	e.POST("/auth/login", accountHandler.Login)
	e.GET("/auth/me", accountHandler.Me, auth)

	// --- Approval gate ---
	adminGroup := e.Group("/admin", auth, middleware.RBAC(admin))
	adminGroup.GET("/pullers/pending", approvalHandler.ListPending)
	adminGroup.POST("/pullers/:id/approve", approvalHandler.Approve)
	adminGroup.POST("/pullers/:id/reject", approvalHandler.Reject)

	v1 := e.Group("/v1", auth)

	// --- Ride lifecycle ---
	rides := v1.Group("/rides")
	rides.POST("", rideHandler.Submit, middleware.RBAC(consumer))
	rides.GET("/open", rideHandler.Open, middleware.RBAC(puller))
	rides.POST("/:id/claim", rideHandler.Claim, middleware.RBAC(puller))
	rides.POST("/:id/decline", rideHandler.Decline, middleware.RBAC(puller))
	rides.POST("/:id/complete", rideHandler.Complete, middleware.RBAC(puller))
	rides.GET("/:id/status", rideHandler.Status)
	rides.POST("/:id/rating", ratingHandler.Rate, middleware.RBAC(consumer))

	v1.GET("/consumers/me/rides", rideHandler.ConsumerHistory, middleware.RBAC(consumer))

	pullers := v1.Group("/pullers")
	pullers.GET("/me/accepted", rideHandler.PullerAccepted, middleware.RBAC(puller))
	pullers.GET("/me/completed", rideHandler.PullerCompleted, middleware.RBAC(puller))
	pullers.GET("/me/history", rideHandler.PullerHistory, middleware.RBAC(puller))
	pullers.GET("/:id/ratings", ratingHandler.PullerRatings)

	// --- Notifications ---
	v1.GET("/notifications/unread", notificationHandler.Unread)
	v1.GET("/notifications/unread/count", notificationHandler.UnreadCount)

	// --- Analytics ---
	analytics := v1.Group("/analytics", middleware.RBAC(admin))
	analytics.GET("/dashboard", analyticsHandler.Dashboard)
	analytics.GET("/rides-by-status", analyticsHandler.RidesByStatus)
	analytics.GET("/popular-destinations", analyticsHandler.PopularDestinations)
	analytics.GET("/recent-activity", analyticsHandler.RecentActivity)

	// --- Health probes and operational endpoints (no auth required) ---
	e.GET("/health", handlers.NewHealthHandler().Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
