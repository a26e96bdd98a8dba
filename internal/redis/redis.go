package redis

import (
	"context"
	"log"
	"time"

	"gmlparser/internal/config"

	"github.com/redis/go-redis/v9"
)

// redisClient is the process-wide client set by Init.
var redisClient *redis.Client

// Init connects to redisURL, pings the server and sets the global client.
// It exits the process when Redis is unreachable.
func Init(redisURL string) *redis.Client {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := opContext()
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis at %s: %v", opts.Addr, err)
	}

	log.Printf("Connected to Redis at %s (db %d)", opts.Addr, opts.DB)
	redisClient = client
	return client
}

// Close closes the global client if there is one.
func Close() error {
	if redisClient == nil {
		return nil
	}
	log.Println("Closing Redis connection...")
	return redisClient.Close()
}

// opContext bounds a single command by config.RedisOpTimeout.
func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), config.RedisOpTimeout)
}

// Set stores value under key. A zero expiration keeps it forever.
func Set(key string, value interface{}, expiration time.Duration) error {
	ctx, cancel := opContext()
	defer cancel()
	return redisClient.Set(ctx, key, value, expiration).Err()
}

// Get returns the string under key, or redis.Nil when it is missing.
func Get(key string) (string, error) {
	ctx, cancel := opContext()
	defer cancel()
	return redisClient.Get(ctx, key).Result()
}

func Delete(key string) error {
	ctx, cancel := opContext()
	defer cancel()
	return redisClient.Del(ctx, key).Err()
}
