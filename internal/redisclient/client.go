package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"autoparts-orders/internal/models"
)

// Client is the bounded-TTL order cache. It is injected into the
// orchestrator as an optional dependency: when Redis is down at startup
// the service runs without it rather than wrapping every call in a
// runtime fallback.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient connects to Redis and verifies the connection.
func NewClient(addr, password string, db int, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func orderKey(unifiedID string) string {
	return fmt.Sprintf("order:%s", unifiedID)
}

// CacheOrder stores the unified order under its id with the configured TTL.
func (c *Client) CacheOrder(ctx context.Context, order *models.UnifiedOrder) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	return c.rdb.Set(ctx, orderKey(order.UnifiedID), payload, c.ttl).Err()
}

// GetOrder returns the cached order, or found=false on a miss.
func (c *Client) GetOrder(ctx context.Context, unifiedID string) (*models.UnifiedOrder, bool, error) {
	payload, err := c.rdb.Get(ctx, orderKey(unifiedID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var order models.UnifiedOrder
	if err := json.Unmarshal(payload, &order); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached order: %w", err)
	}
	return &order, true, nil
}

// InvalidateOrder drops the cached entry after a status change.
func (c *Client) InvalidateOrder(ctx context.Context, unifiedID string) error {
	return c.rdb.Del(ctx, orderKey(unifiedID)).Err()
}

// SetIdempotencyFingerprint stores the request fingerprint for a key so
// duplicate submissions can be rejected cheaply before hitting the
// database. Best-effort: the orders table carries the authoritative copy.
func (c *Client) SetIdempotencyFingerprint(ctx context.Context, key, fingerprint string) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), fingerprint, c.ttl).Err()
}

// GetIdempotencyFingerprint returns the stored fingerprint for a key.
func (c *Client) GetIdempotencyFingerprint(ctx context.Context, key string) (string, bool, error) {
	fingerprint, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return fingerprint, true, nil
}
