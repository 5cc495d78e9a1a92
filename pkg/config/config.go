package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"parkly/pkg/client"
	"parkly/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisDisabled bool
	SpaceTypeTTL  time.Duration

	Port string

	HoldDuration  time.Duration
	SweepInterval time.Duration
	LockTTL       time.Duration

	BookingEventsTopic   string
	NotifyGroupID        string
	SpaceTypeEventsTopic string
	CacheGroupID         string

	JWTSecret            string
	CheckoutBaseURL      string
	GatewaySigningSecret string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),
		RedisDisabled: getEnvBool(EnvRedisDisabled, DefaultRedisDisabled),
		SpaceTypeTTL:  getEnvDuration(EnvSpaceTypeTTL, DefaultSpaceTypeTTL),

		Port: getEnvStr(EnvPort, DefaultPort),

		HoldDuration:  getEnvDuration(EnvHoldDuration, DefaultHoldDuration),
		SweepInterval: getEnvDuration(EnvSweepInterval, DefaultSweepInterval),
		LockTTL:       getEnvDuration(EnvLockTTL, DefaultLockTTL),

		BookingEventsTopic:   getEnvStr(EnvBookingEventsTopic, DefaultBookingEventsTopic),
		NotifyGroupID:        getEnvStr(EnvNotifyGroupID, DefaultNotifyGroupID),
		SpaceTypeEventsTopic: getEnvStr(EnvSpaceTypeEventsTopic, DefaultSpaceTypeEventsTopic),
		CacheGroupID:         getEnvStr(EnvCacheGroupID, DefaultCacheGroupID),

		JWTSecret:            getEnvStr(EnvJWTSecret, ""),
		CheckoutBaseURL:      getEnvStr(EnvCheckoutBaseURL, DefaultCheckoutBaseURL),
		GatewaySigningSecret: getEnvStr(EnvGatewaySigningSecret, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	if cfg.RedisDisabled {
		cfg.Log.Info("Redis disabled, space-type reads fall through to MongoDB")
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}

	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	if !cfg.RedisDisabled && cfg.RedisAddr == "" {
		errs = append(errs, "RedisAddr cannot be empty unless REDIS_DISABLED is set")
	}
	if cfg.SpaceTypeTTL <= 0 {
		errs = append(errs, fmt.Sprintf("SpaceTypeTTL must be positive, got: %s", cfg.SpaceTypeTTL))
	}

	if cfg.HoldDuration <= 0 {
		errs = append(errs, fmt.Sprintf("HoldDuration must be positive, got: %s", cfg.HoldDuration))
	}
	if cfg.SweepInterval <= 0 {
		errs = append(errs, fmt.Sprintf("SweepInterval must be positive, got: %s", cfg.SweepInterval))
	}
	if cfg.LockTTL <= 0 {
		errs = append(errs, fmt.Sprintf("LockTTL must be positive, got: %s", cfg.LockTTL))
	}

	if cfg.BookingEventsTopic == "" {
		errs = append(errs, "BookingEventsTopic cannot be empty")
	}
	if cfg.NotifyGroupID == "" {
		errs = append(errs, "NotifyGroupID cannot be empty")
	}
	if cfg.SpaceTypeEventsTopic == "" {
		errs = append(errs, "SpaceTypeEventsTopic cannot be empty")
	}
	if cfg.CacheGroupID == "" {
		errs = append(errs, "CacheGroupID cannot be empty")
	}

	if cfg.CheckoutBaseURL == "" {
		errs = append(errs, "CheckoutBaseURL cannot be empty")
	}

	if cfg.RateLimitRequests <= 0 {
		errs = append(errs, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errs = append(errs, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, e := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_addr", cfg.RedisAddr,
		"redis_disabled", cfg.RedisDisabled,
		"space_type_cache_ttl", cfg.SpaceTypeTTL,
		"port", cfg.Port,
		"hold_duration", cfg.HoldDuration,
		"sweep_interval", cfg.SweepInterval,
		"ledger_lock_ttl", cfg.LockTTL,
		"booking_events_topic", cfg.BookingEventsTopic,
		"notify_consumer_group", cfg.NotifyGroupID,
		"space_type_events_topic", cfg.SpaceTypeEventsTopic,
		"cache_consumer_group", cfg.CacheGroupID,
		"jwt_secret_set", cfg.JWTSecret != "",
		"checkout_base_url", cfg.CheckoutBaseURL,
		"gateway_secret_set", cfg.GatewaySigningSecret != "",
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
