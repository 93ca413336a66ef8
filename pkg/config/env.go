package config

const (
	EnvStoreBackend = "STORE_BACKEND"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvFirebaseProjectID          = "FIREBASE_PROJECT_ID"
	EnvGoogleCloudProject         = "GOOGLE_CLOUD_PROJECT"
	EnvFirebaseServiceAccountJSON = "FIREBASE_SERVICE_ACCOUNT_JSON"

	EnvAuthProvider = "AUTH_PROVIDER"
	EnvJWTSecret    = "JWT_SECRET"

	EnvRedisURL = "REDIS_URL"

	EnvAllowedOrigins = "ALLOWED_ORIGINS"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvDefaultSlotDurationMin = "DEFAULT_SLOT_DURATION_MIN"
	EnvMaxSlotDurationMin     = "MAX_SLOT_DURATION_MIN"
	EnvMaxListingWindow       = "MAX_LISTING_WINDOW"
)
