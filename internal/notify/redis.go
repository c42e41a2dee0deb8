package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisBus publishes events on the tenant's Redis channel. Every API
// instance runs a Hub subscribed to those channels.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, tenantID uuid.UUID, event string, payload any) error {
	data, err := encode(tenantID, event, payload)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, Channel(tenantID), data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}
