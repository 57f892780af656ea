package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const webhookKeyPrefix = "webhook:delivery:"

// WebhookDeliveryCache remembers verified webhook bodies that were fully applied,
// so identical redeliveries can be acknowledged without touching the stores
type WebhookDeliveryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWebhookDeliveryCache creates a cache backed by the given Redis client
func NewWebhookDeliveryCache(client *redis.Client, ttl time.Duration) *WebhookDeliveryCache {
	return &WebhookDeliveryCache{client: client, ttl: ttl}
}

// Key derives the cache key for a raw webhook body
func Key(body []byte) string {
	sum := sha256.Sum256(body)
	return webhookKeyPrefix + hex.EncodeToString(sum[:])
}

// Seen reports whether this exact body was already processed
func (c *WebhookDeliveryCache) Seen(ctx context.Context, body []byte) (bool, error) {
	n, err := c.client.Exists(ctx, Key(body)).Result()
	if err != nil {
		return false, fmt.Errorf("check webhook delivery: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed records that this body was applied successfully
func (c *WebhookDeliveryCache) MarkProcessed(ctx context.Context, body []byte, event string) error {
	if err := c.client.Set(ctx, Key(body), event, c.ttl).Err(); err != nil {
		return fmt.Errorf("mark webhook delivery: %w", err)
	}
	return nil
}
