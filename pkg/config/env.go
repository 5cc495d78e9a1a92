package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"
	EnvRedisDisabled = "REDIS_DISABLED"
	EnvSpaceTypeTTL  = "SPACE_TYPE_CACHE_TTL"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvHoldDuration  = "HOLD_DURATION"
	EnvSweepInterval = "SWEEP_INTERVAL"
	EnvLockTTL       = "LEDGER_LOCK_TTL"

	EnvBookingEventsTopic   = "BOOKING_EVENTS_TOPIC"
	EnvNotifyGroupID        = "NOTIFY_CONSUMER_GROUP"
	EnvSpaceTypeEventsTopic = "SPACE_TYPE_EVENTS_TOPIC"
	EnvCacheGroupID         = "CACHE_CONSUMER_GROUP"

	EnvJWTSecret            = "JWT_SECRET"
	EnvCheckoutBaseURL      = "CHECKOUT_BASE_URL"
	EnvGatewaySigningSecret = "GATEWAY_SIGNING_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
