package ports

import (
	"context"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
)

// AnalyticsService is the read-only Analytics Projector. Every call is
// scoped to an admin caller.
type AnalyticsService interface {
	DashboardSummary(ctx context.Context, adminID string) (*domain.DashboardSummary, error)
	RidesByStatus(ctx context.Context, adminID string) (map[domain.RideStatus]int64, error)
	PopularDestinations(ctx context.Context, adminID string, limit int) ([]domain.DestinationCount, error)
	RecentActivity(ctx context.Context, adminID string, limit int) ([]*domain.Ride, error)
}
