package config

import "time"

const (
	// RedisOpTimeout bounds every single Redis command.
	RedisOpTimeout = 5 * time.Second

	// TileCacheTTL is how long a tile stays in the Redis cache.
	TileCacheTTL = 24 * time.Hour

	// PostgresSlowThreshold is the gorm slow query threshold.
	PostgresSlowThreshold = 500 * time.Millisecond

	// FlushInterval is how often the API server saves changed tiles.
	FlushInterval = 30 * time.Second

	// ProgressEvery is how many buildings are processed between progress logs.
	ProgressEvery = 10000
)
