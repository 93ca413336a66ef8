package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"atelier/pkg/client"
	"atelier/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	StoreBackend string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	FirebaseProjectID          string
	FirebaseServiceAccountJSON string

	AuthProvider string
	JWTSecret    string

	RedisURL string

	AllowedOrigins []string

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	DefaultSlotDurationMin int
	MaxSlotDurationMin     int
	MaxListingWindow       time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	// .env is optional; the process environment always wins
	_ = godotenv.Load()

	projectID := getEnvStr(EnvFirebaseProjectID, "")
	if projectID == "" {
		projectID = getEnvStr(EnvGoogleCloudProject, "")
	}

	cfg := &Config{
		StoreBackend: strings.ToLower(getEnvStr(EnvStoreBackend, DefaultStoreBackend)),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		FirebaseProjectID:          projectID,
		FirebaseServiceAccountJSON: getEnvStr(EnvFirebaseServiceAccountJSON, ""),

		AuthProvider: strings.ToLower(getEnvStr(EnvAuthProvider, DefaultAuthProvider)),
		JWTSecret:    getEnvStr(EnvJWTSecret, ""),

		RedisURL: getEnvStr(EnvRedisURL, ""),

		AllowedOrigins: splitList(getEnvStr(EnvAllowedOrigins, DefaultAllowedOrigins)),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		DefaultSlotDurationMin: getEnvNum(EnvDefaultSlotDurationMin, DefaultDefaultSlotDurationMin),
		MaxSlotDurationMin:     getEnvNum(EnvMaxSlotDurationMin, DefaultMaxSlotDurationMin),
		MaxListingWindow:       getEnvDuration(EnvMaxListingWindow, DefaultMaxListingWindow),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetFirebase() {
	cfg.Client.SetFirebase(cfg.Log, cfg.FirebaseProjectID, cfg.FirebaseServiceAccountJSON, cfg.AuthProvider == AuthFirebase)
}

func (cfg *Config) SetRedis() {
	if cfg.RedisURL == "" {
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisURL, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StoreBackend {
	case StoreMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	case StoreFirestore:
		if cfg.FirebaseProjectID == "" {
			errors = append(errors, "FirebaseProjectID is required when StoreBackend is firestore")
		}
	default:
		errors = append(errors, fmt.Sprintf("StoreBackend must be one of [mongo firestore], got: %s", cfg.StoreBackend))
	}

	switch cfg.AuthProvider {
	case AuthJWT:
		if len(cfg.JWTSecret) < 32 {
			errors = append(errors, "JWTSecret must be at least 32 characters when AuthProvider is jwt")
		}
	case AuthFirebase:
		if cfg.FirebaseProjectID == "" {
			errors = append(errors, "FirebaseProjectID is required when AuthProvider is firebase")
		}
	default:
		errors = append(errors, fmt.Sprintf("AuthProvider must be one of [jwt firebase], got: %s", cfg.AuthProvider))
	}

	if cfg.RedisURL != "" && !regexp.MustCompile(`^rediss?://`).MatchString(cfg.RedisURL) {
		errors = append(errors, "RedisURL must start with 'redis://' or 'rediss://'")
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.MaxSlotDurationMin <= 0 {
		errors = append(errors, fmt.Sprintf("MaxSlotDurationMin must be positive, got: %d", cfg.MaxSlotDurationMin))
	}
	if cfg.DefaultSlotDurationMin <= 0 || cfg.DefaultSlotDurationMin > cfg.MaxSlotDurationMin {
		errors = append(errors, fmt.Sprintf("DefaultSlotDurationMin (%d) must be between 1 and MaxSlotDurationMin (%d)", cfg.DefaultSlotDurationMin, cfg.MaxSlotDurationMin))
	}
	if cfg.MaxListingWindow <= 0 {
		errors = append(errors, fmt.Sprintf("MaxListingWindow must be positive, got: %s", cfg.MaxListingWindow))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"store_backend", cfg.StoreBackend,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"firebase_project_id", cfg.FirebaseProjectID,
		"firebase_credentials_set", cfg.FirebaseServiceAccountJSON != "",
		"auth_provider", cfg.AuthProvider,
		"jwt_secret_set", cfg.JWTSecret != "",
		"redis_enabled", cfg.RedisURL != "",
		"allowed_origins", cfg.AllowedOrigins,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"default_slot_duration_min", cfg.DefaultSlotDurationMin,
		"max_slot_duration_min", cfg.MaxSlotDurationMin,
		"max_listing_window", cfg.MaxListingWindow,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}
