package main

import (
	"context"
	"errors"

	"parkly/internal/bookings/handler"
	bookingrepo "parkly/internal/bookings/repository"
	"parkly/internal/bookings/service"
	"parkly/internal/bookings/validator"
	"parkly/internal/events"
	ledgerrepo "parkly/internal/ledger/repository"
	ledgersvc "parkly/internal/ledger/service"
	"parkly/internal/notifications"
	"parkly/internal/payments"
	"parkly/internal/scheduler"
	"parkly/internal/spacetypes"
	spacetyperepo "parkly/internal/spacetypes/repository"
	"parkly/pkg/app"
	"parkly/pkg/config"
	"parkly/pkg/contracts"
	"parkly/pkg/kafka"
	kafka_config "parkly/pkg/kafka/config"
	kafka_middleware "parkly/pkg/kafka/middleware"
)

const ServiceName = "bookings"

const dlqSuffix = ".dlq"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Bookings service")

	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer := initProducer(cfg, kafkaCfg)
	defer func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Warn("Failed to close Kafka producer", "error", err)
		}
	}()

	spaceTypes, cachedSpaceTypes := initSpaceTypeRepository(cfg)
	bookingService := initServices(cfg, producer, spaceTypes)
	reconciliation := payments.NewReconciliationService(bookingService, cfg.Log)

	hub := notifications.NewHub(cfg.Log)
	notifyConsumer := initNotifyConsumer(cfg, kafkaCfg, hub)
	defer func() {
		if err := notifyConsumer.Close(); err != nil {
			cfg.Log.Warn("Failed to close Kafka consumer", "error", err)
		}
	}()

	// The cache listener only exists when reads are actually cached.
	var cacheConsumer *kafka.Consumer
	if cachedSpaceTypes != nil {
		cacheConsumer = initCacheConsumer(cfg, kafkaCfg, cachedSpaceTypes)
		defer func() {
			if err := cacheConsumer.Close(); err != nil {
				cfg.Log.Warn("Failed to close Kafka consumer", "error", err)
			}
		}()
	}

	sweeper := scheduler.NewSweeper(bookingService, cfg, cfg.Log)

	serverApp := app.NewApplication()
	serverApp.SetApp(
		cfg,
		contracts.Composite{
			handler.NewBookingHandler(bookingService, cfg.Log),
			notifications.NewStreamHandler(hub, cfg.Log),
		},
		payments.NewPaymentHandler(reconciliation, cfg.Log),
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Client.Redis, cfg.Log),
	)
	serverApp.AddWorker(sweeper.Run)
	serverApp.AddWorker(func(ctx context.Context) {
		if err := notifyConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			cfg.Log.Error("Notification consumer stopped", "error", err)
		}
	})
	if cacheConsumer != nil {
		serverApp.AddWorker(func(ctx context.Context) {
			if err := cacheConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				cfg.Log.Error("Space type cache consumer stopped", "error", err)
			}
		})
	}
	serverApp.Run()
}

func initProducer(cfg *config.Config, kafkaCfg *kafka_config.Config) *kafka.Producer {
	producer, err := kafka.NewProducer(
		kafkaCfg,
		cfg.BookingEventsTopic,
		cfg.BookingEventsTopic+dlqSuffix,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	return producer
}

func initServices(cfg *config.Config, producer *kafka.Producer, spaceTypes spacetyperepo.SpaceTypeRepository) service.BookingService {
	holdRepo := ledgerrepo.NewMongoHoldRepository(cfg)
	lockRepo := ledgerrepo.NewMongoLockRepository(cfg)
	ledger := ledgersvc.NewLedgerService(holdRepo, lockRepo, cfg)

	bookingService := service.NewBookingService(
		bookingrepo.NewMongoBookingRepository(cfg),
		ledger,
		spaceTypes,
		payments.NewHTTPCheckoutClient(cfg.CheckoutBaseURL, cfg.Log),
		events.NewKafkaPublisher(producer, ServiceName, cfg.Log),
		validator.NewBookingValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}

// initSpaceTypeRepository returns the read model plus, when Redis is
// enabled, the cache wrapper so eviction can be wired to upstream events.
func initSpaceTypeRepository(cfg *config.Config) (spacetyperepo.SpaceTypeRepository, *spacetyperepo.CachedSpaceTypeRepository) {
	repo := spacetyperepo.NewMongoSpaceTypeRepository(cfg)
	if cfg.Client.Redis == nil {
		return repo, nil
	}
	cached := spacetyperepo.NewCachedSpaceTypeRepository(repo, cfg.Client.Redis, cfg.SpaceTypeTTL, cfg.Log)
	return cached, cached
}

func initNotifyConsumer(cfg *config.Config, kafkaCfg *kafka_config.Config, hub *notifications.Hub) *kafka.Consumer {
	relay := notifications.NewRelay(hub, cfg.Log)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.BookingEventsTopic,
		cfg.NotifyGroupID,
		cfg.BookingEventsTopic+dlqSuffix,
		relay.Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	return consumer
}

func initCacheConsumer(cfg *config.Config, kafkaCfg *kafka_config.Config, cache *spacetyperepo.CachedSpaceTypeRepository) *kafka.Consumer {
	listener := spacetypes.NewCacheListener(cache, cfg.Log)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.SpaceTypeEventsTopic,
		cfg.CacheGroupID,
		cfg.SpaceTypeEventsTopic+dlqSuffix,
		listener.Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	return consumer
}
