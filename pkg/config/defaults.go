package config

import "time"

const (
	StoreMongo     = "mongo"
	StoreFirestore = "firestore"

	AuthJWT      = "jwt"
	AuthFirebase = "firebase"
)

const (
	DefaultStoreBackend = StoreMongo

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "atelier"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultAuthProvider = AuthJWT

	DefaultAllowedOrigins = "http://localhost:3000"

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultDefaultSlotDurationMin = 60
	DefaultMaxSlotDurationMin     = 12 * 60
	DefaultMaxListingWindow       = 92 * 24 * time.Hour
)
