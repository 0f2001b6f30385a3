package ports

import (
	"context"
	"time"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
)

// Transactor runs fn so that every repository write made with the ctx it
// receives commits together or not at all.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AnalyticsCache is a short-lived read-through cache for rollups.
type AnalyticsCache interface {
	// Get decodes a cached value into dst and reports whether one was found.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// EventSink receives ride events after their transition has committed.
// Implementations must not block the caller.
type EventSink interface {
	Enqueue(event domain.RideEvent)
}

// EventPublisher delivers a single ride event to the outside world.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.RideEvent) error
}
