package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", DefaultIdempotencyHeader, RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, "Idempotent-Replayed", "Retry-After"},
		MaxAge:         600,
	})
	return c.Handler
}
