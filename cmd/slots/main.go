package main

import (
	"atelier/internal/slots/events"
	"atelier/internal/slots/handler"
	"atelier/internal/slots/repository"
	"atelier/internal/slots/service"
	"atelier/internal/slots/validator"
	"atelier/pkg/app"
	"atelier/pkg/config"
	"atelier/pkg/identity"
	"atelier/pkg/kafka"
	kafka_config "atelier/pkg/kafka/config"
	kafka_middleware "atelier/pkg/kafka/middleware"
	"atelier/pkg/middleware"
)

const ServiceName = "slots"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Slots service")

	repo := initStore(cfg)
	publisher := initPublisher(cfg)
	slotService := service.NewSlotService(
		repo,
		validator.NewSlotValidator(cfg.Log, cfg.MaxSlotDurationMin),
		publisher,
		cfg,
	)
	cfg.Log.Info("Slot service initialized", "store_backend", cfg.StoreBackend)

	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown("event publisher", publisher.Close)
	serverApp.SetApp(
		handler.NewSlotHandler(slotService, cfg.Log),
		handler.NewHealthHandler(repo, cfg.StoreBackend, cfg.Log),
		initAuthenticator(cfg),
		initIdempotencyStore(cfg),
	)
	serverApp.Run()
}

func initStore(cfg *config.Config) repository.SlotRepository {
	if cfg.StoreBackend == config.StoreFirestore || cfg.AuthProvider == config.AuthFirebase {
		cfg.SetFirebase()
	}

	switch cfg.StoreBackend {
	case config.StoreFirestore:
		return repository.NewFirestoreSlotRepository(cfg)
	default:
		cfg.SetMongo()
		return repository.NewMongoSlotRepository(cfg)
	}
}

func initAuthenticator(cfg *config.Config) middleware.Authenticator {
	if cfg.AuthProvider == config.AuthFirebase {
		cfg.Log.Info("Using Firebase ID token authentication")
		return identity.NewFirebaseAuthenticator(cfg.Client.Auth)
	}
	cfg.Log.Info("Using HS256 JWT authentication")
	return identity.NewJWTAuthenticator(cfg.JWTSecret)
}

func initIdempotencyStore(cfg *config.Config) middleware.IdempotencyStore {
	if cfg.RedisURL == "" {
		cfg.Log.Info("Using in-memory idempotency store")
		return middleware.NewInMemoryIdempotencyStore(cfg.IdempotencyTTL)
	}
	cfg.SetRedis()
	cfg.Log.Info("Using Redis idempotency store")
	return middleware.NewRedisIdempotencyStore(cfg.Client.Redis, cfg.IdempotencyTTL, cfg.Log)
}

func initPublisher(cfg *config.Config) events.Publisher {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	if !kafkaCfg.Enabled() {
		cfg.Log.Info("Kafka disabled, slot events will not be published")
		return events.NopPublisher{}
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}
	return events.NewKafkaPublisher(producer, ServiceName, cfg.Log)
}
