package webhook

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const deliveryKeyPrefix = "webhook:delivery:"

// DeliveryGuard drops repeated deliveries of the same webhook call.
type DeliveryGuard interface {
	// FirstDelivery reports whether deliveryID has not been seen before and
	// records it.
	FirstDelivery(ctx context.Context, deliveryID string) (bool, error)
	// Forget lets a failed delivery be retried.
	Forget(ctx context.Context, deliveryID string) error
}

// RedisDeliveryGuard remembers delivery ids in Redis for ttl.
type RedisDeliveryGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisDeliveryGuard(client redis.UniversalClient, ttl time.Duration) *RedisDeliveryGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeliveryGuard{client: client, ttl: ttl}
}

func (g *RedisDeliveryGuard) FirstDelivery(ctx context.Context, deliveryID string) (bool, error) {
	return g.client.SetNX(ctx, deliveryKeyPrefix+deliveryID, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
}

func (g *RedisDeliveryGuard) Forget(ctx context.Context, deliveryID string) error {
	return g.client.Del(ctx, deliveryKeyPrefix+deliveryID).Err()
}

// noDeliveryGuard accepts every delivery. Used when Redis is not configured.
type noDeliveryGuard struct{}

func (noDeliveryGuard) FirstDelivery(context.Context, string) (bool, error) {
	return true, nil
}

func (noDeliveryGuard) Forget(context.Context, string) error {
	return nil
}
