package repository

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitRepository bounds how fast a single device or IP can hit the scan
// endpoint. A stuck scanner gun retriggering at line rate should not be able
// to flood the ledger.
type RateLimitRepository interface {
	// Allow reports whether one more request fits in the window.
	Allow(ctx context.Context, key string, requests int, window time.Duration) (bool, error)
}

type rateLimitRepository struct {
	client *redis.Client
}

func NewRateLimitRepository(client *redis.Client) RateLimitRepository {
	return &rateLimitRepository{client: client}
}

func (r *rateLimitRepository) Allow(ctx context.Context, key string, requests int, window time.Duration) (bool, error) {
	// Hash the key for privacy
	hasher := sha256.New()
	hasher.Write([]byte(key))
	hashedKey := fmt.Sprintf("ratelimit:%x", hasher.Sum(nil))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	count, err := r.client.Incr(ctx, hashedKey).Result()
	if err != nil {
		// On Redis error, allow the request (fail open)
		return true, nil
	}
	if count == 1 {
		r.client.Expire(ctx, hashedKey, window)
	}

	return count <= int64(requests), nil
}

// nopRateLimit allows everything; used when Redis is not configured.
type nopRateLimit struct{}

func NewNopRateLimitRepository() RateLimitRepository { return nopRateLimit{} }

func (nopRateLimit) Allow(ctx context.Context, key string, requests int, window time.Duration) (bool, error) {
	return true, nil
}
