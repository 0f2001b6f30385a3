package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

const (
	topPullersLimit         = 5
	defaultDestinationLimit = 10
	defaultRecentLimit      = 20
	maxListLimit            = 100
)

const cacheKeyPrefix = "analytics:"

// AnalyticsService projects admin rollups from the ride ledger and account
// aggregates. Results may be served from a short-lived cache; a zero TTL or
// nil cache always recomputes.
type AnalyticsService struct {
	rides    ports.RideRepository
	accounts ports.AccountRepository
	cache    ports.AnalyticsCache
	ttl      time.Duration
	caps     capabilities
	log      zerolog.Logger
	now      func() time.Time
}

func NewAnalyticsService(
	rides ports.RideRepository,
	accounts ports.AccountRepository,
	cache ports.AnalyticsCache,
	ttl time.Duration,
	log zerolog.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		rides:    rides,
		accounts: accounts,
		cache:    cache,
		ttl:      ttl,
		caps:     capabilities{accounts: accounts},
		log:      log,
		now:      clock,
	}
}

func (s *AnalyticsService) DashboardSummary(ctx context.Context, adminID string) (*domain.DashboardSummary, error) {
	if _, err := s.caps.require(ctx, adminID, domain.RoleAdmin); err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}
	summary, err := cached(ctx, s, "dashboard", s.summarize)
	if err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}
	return summary, nil
}

// RidesByStatus returns a count for every status, zero-filled.
func (s *AnalyticsService) RidesByStatus(ctx context.Context, adminID string) (map[domain.RideStatus]int64, error) {
	if _, err := s.caps.require(ctx, adminID, domain.RoleAdmin); err != nil {
		return nil, fmt.Errorf("rides by status: %w", err)
	}
	counts, err := cached(ctx, s, "rides-by-status", s.statusCounts)
	if err != nil {
		return nil, fmt.Errorf("rides by status: %w", err)
	}
	return counts, nil
}

func (s *AnalyticsService) PopularDestinations(ctx context.Context, adminID string, limit int) ([]domain.DestinationCount, error) {
	if _, err := s.caps.require(ctx, adminID, domain.RoleAdmin); err != nil {
		return nil, fmt.Errorf("popular destinations: %w", err)
	}
	limit = clampLimit(limit, defaultDestinationLimit)
	key := "popular-destinations:" + strconv.Itoa(limit)
	hist, err := cached(ctx, s, key, func(ctx context.Context) ([]domain.DestinationCount, error) {
		return s.rides.DestinationHistogram(ctx, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("popular destinations: %w", err)
	}
	return hist, nil
}

// RecentActivity returns the newest rides across the marketplace.
func (s *AnalyticsService) RecentActivity(ctx context.Context, adminID string, limit int) ([]*domain.Ride, error) {
	if _, err := s.caps.require(ctx, adminID, domain.RoleAdmin); err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	limit = clampLimit(limit, defaultRecentLimit)
	key := "recent-activity:" + strconv.Itoa(limit)
	rides, err := cached(ctx, s, key, func(ctx context.Context) ([]*domain.Ride, error) {
		return s.rides.List(ctx, ports.RideFilter{Limit: limit})
	})
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	return rides, nil
}

func (s *AnalyticsService) summarize(ctx context.Context) (*domain.DashboardSummary, error) {
	var (
		counts   map[domain.RideStatus]int64
		active   int64
		approved int64
		points   int64
		top      []*domain.Account
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts, err = s.statusCounts(gctx)
		return err
	})
	g.Go(func() (err error) {
		active, err = s.rides.CountActivePullers(gctx)
		return err
	})
	g.Go(func() (err error) {
		approved, err = s.accounts.CountPullers(gctx, domain.ApprovalApproved)
		return err
	})
	g.Go(func() (err error) {
		points, err = s.accounts.TotalPoints(gctx)
		return err
	})
	g.Go(func() (err error) {
		top, err = s.accounts.TopPullers(gctx, topPullersLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	completed := counts[domain.RideStatusCompleted]

	summary := &domain.DashboardSummary{
		TotalRides:         total,
		CompletedRides:     completed,
		PendingRides:       counts[domain.RideStatusPending],
		AcceptedRides:      counts[domain.RideStatusAccepted],
		CompletionRate:     domain.CompletionRate(completed, total),
		ActivePullers:      active,
		ApprovedPullers:    approved,
		TotalPointsAwarded: points,
		TopPullers:         make([]domain.PullerStanding, 0, len(top)),
		GeneratedAt:        s.now(),
	}
	for _, a := range top {
		summary.TopPullers = append(summary.TopPullers, domain.PullerStanding{
			ID:             a.ID,
			Username:       a.Username,
			Rating:         a.Rating,
			CompletedRides: a.CompletedRides,
			Points:         a.Points,
		})
	}
	return summary, nil
}

func (s *AnalyticsService) statusCounts(ctx context.Context) (map[domain.RideStatus]int64, error) {
	raw, err := s.rides.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.RideStatus]int64, len(domain.RideStatuses))
	for _, st := range domain.RideStatuses {
		counts[st] = raw[st]
	}
	return counts, nil
}

// cached serves key from the analytics cache when possible. Cache failures
// are logged and fall through to compute.
func cached[T any](ctx context.Context, s *AnalyticsService, key string, compute func(context.Context) (T, error)) (T, error) {
	key = cacheKeyPrefix + key
	useCache := s.cache != nil && s.ttl > 0

	if useCache {
		var hit T
		found, err := s.cache.Get(ctx, key, &hit)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("key", key).Msg("analytics cache read failed")
		case found:
			return hit, nil
		}
	}

	v, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if useCache {
		if err := s.cache.Set(ctx, key, v, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("analytics cache write failed")
		}
	}
	return v, nil
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
