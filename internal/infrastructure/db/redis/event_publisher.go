package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
)

// RideEventsChannel is the pub/sub channel ride events are published on.
const RideEventsChannel = "ride-events"

// EventPublisher publishes ride events as JSON on a Redis channel.
type EventPublisher struct {
	client  *redis.Client
	channel string
}

func NewEventPublisher(client *redis.Client) *EventPublisher {
	return &EventPublisher{client: client, channel: RideEventsChannel}
}

func (p *EventPublisher) Publish(ctx context.Context, event domain.RideEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode ride event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}
