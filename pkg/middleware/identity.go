package middleware

import (
	"context"
	"net/http"
	"strings"

	apperrors "atelier/pkg/errors"
	httputil "atelier/pkg/http"
	"atelier/pkg/logger"
	"atelier/pkg/model"
)

const callerKey contextKey = "caller"

// Authenticator turns a bearer token into a caller. Implementations live in
// pkg/identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.CallerIdentity, error)
}

// Identity resolves the caller when an Authorization header is present.
// Requests without one continue anonymously; a bad token is rejected with 401.
func Identity(auth Authenticator, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				httputil.WriteError(w, apperrors.Unauthorized("Authorization header must be a bearer token"))
				return
			}

			caller, err := auth.Authenticate(r.Context(), strings.TrimSpace(token))
			if err != nil {
				log.Warn("Authentication failed",
					"request_id", RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				httputil.WriteError(w, apperrors.Unauthorized("Invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

func WithCaller(ctx context.Context, caller *model.CallerIdentity) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFromContext returns nil for anonymous requests.
func CallerFromContext(ctx context.Context) *model.CallerIdentity {
	caller, _ := ctx.Value(callerKey).(*model.CallerIdentity)
	return caller
}
