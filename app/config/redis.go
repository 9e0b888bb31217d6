package config

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds the client backing the per-route rate limiter.
// Connection details come from REDIS_HOST/REDIS_PORT (defaults redis:6379,
// the compose service name) plus optional REDIS_PASSWORD and REDIS_DB.
// Read/write timeouts are kept short: the limiter fails open, so a slow
// Redis should degrade to unlimited rather than stall requests.
func NewRedisClient() (*redis.Client, error) {
	host := GetString("REDIS_HOST", "redis")
	port := GetString("REDIS_PORT", "6379")

	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(host, port),
		Password:     GetString("REDIS_PASSWORD", ""),
		DB:           GetInt("REDIS_DB", 0),
		PoolSize:     GetInt("REDIS_POOL_SIZE", 20),
		MinIdleConns: GetInt("REDIS_MIN_IDLE_CONNS", 5),
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
