package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "parkly"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr     = "localhost:6379"
	DefaultRedisDB       = 0
	DefaultSpaceTypeTTL  = 5 * time.Minute
	DefaultRedisTimeout  = 2 * time.Second
	DefaultRedisDisabled = false

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	// HoldDuration bounds how long a pending booking may consume capacity
	// without being paid; SweepInterval bounds how stale an expired-but-not-
	// yet-marked booking can be.
	DefaultHoldDuration  = 10 * time.Minute
	DefaultSweepInterval = 1 * time.Minute

	DefaultLockTTL = 10 * time.Second

	DefaultBookingEventsTopic = "parkly.booking.events"
	DefaultNotifyGroupID      = "parkly-notifications"

	// Listing management publishes space-type changes here; the booking
	// core only consumes them to drop stale cache entries.
	DefaultSpaceTypeEventsTopic = "parkly.space-type.events"
	DefaultCacheGroupID         = "parkly-space-type-cache"

	DefaultCheckoutBaseURL = "http://localhost:9090"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 50
)
