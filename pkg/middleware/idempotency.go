package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	apperrors "atelier/pkg/errors"
	httputil "atelier/pkg/http"
	"atelier/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const DefaultIdempotencyHeader = "Idempotency-Key"

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool)
	Set(ctx context.Context, key string, response *CachedResponse)
	// Reserve marks key as in flight. It returns false while another
	// request holds the reservation.
	Reserve(ctx context.Context, key string) bool
	Release(ctx context.Context, key string)
	Stop() // Stop cleanup goroutines and release resources
}

type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

type InMemoryIdempotencyStore struct {
	mu      sync.RWMutex
	store   map[string]*CachedResponse
	pending map[string]struct{}
	ttl     time.Duration
	stopCh  chan struct{}
	once    sync.Once
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		store:   make(map[string]*CachedResponse),
		pending: make(map[string]struct{}),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go store.cleanup()

	return store
}

func (s *InMemoryIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	s.mu.RLock()
	response, exists := s.store[key]
	s.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if time.Since(response.CreatedAt) > s.ttl {
		s.mu.Lock()
		delete(s.store, key)
		s.mu.Unlock()
		return nil, false
	}

	return response, true
}

func (s *InMemoryIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	response.CreatedAt = time.Now()
	s.store[key] = response
}

func (s *InMemoryIdempotencyStore) Reserve(ctx context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.pending[key]; busy {
		return false
	}
	s.pending[key] = struct{}{}
	return true
}

func (s *InMemoryIdempotencyStore) Release(ctx context.Context, key string) {
	s.mu.Lock()
	delete(s.pending, key)
	s.mu.Unlock()
}

func (s *InMemoryIdempotencyStore) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for key, response := range s.store {
				if time.Since(response.CreatedAt) > s.ttl {
					delete(s.store, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.once.Do(func() { close(s.stopCh) })
}

// RedisIdempotencyStore shares cached responses across replicas. Redis
// failures degrade to "not cached" and are logged.
type RedisIdempotencyStore struct {
	client  redis.Cmdable
	ttl     time.Duration
	lockTTL time.Duration
	prefix  string
	log     *logger.Logger
}

func NewRedisIdempotencyStore(client redis.Cmdable, ttl time.Duration, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client:  client,
		ttl:     ttl,
		lockTTL: time.Minute,
		prefix:  "idempotency:",
		log:     log,
	}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("Idempotency lookup failed", "error", err)
		}
		return nil, false
	}

	var response CachedResponse
	if err := json.Unmarshal(data, &response); err != nil {
		s.log.Warn("Discarding unreadable idempotency entry", "error", err)
		return nil, false
	}
	return &response, true
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) {
	response.CreatedAt = time.Now()
	data, err := json.Marshal(response)
	if err != nil {
		s.log.Warn("Failed to encode idempotency entry", "error", err)
		return
	}
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		s.log.Warn("Failed to store idempotency entry", "error", err)
	}
}

// Reserve takes a SETNX placeholder that expires on its own if the holder
// dies. A Redis outage fails open so requests still go through.
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) bool {
	ok, err := s.client.SetNX(ctx, s.lockKey(key), time.Now().Unix(), s.lockTTL).Result()
	if err != nil {
		s.log.Warn("Idempotency reservation failed", "error", err)
		return true
	}
	return ok
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) {
	if err := s.client.Del(ctx, s.lockKey(key)).Err(); err != nil {
		s.log.Warn("Failed to release idempotency reservation", "error", err)
	}
}

func (s *RedisIdempotencyStore) lockKey(key string) string {
	return s.prefix + "lock:" + key
}

// Stop is a no-op; the client is owned and closed by pkg/client.
func (s *RedisIdempotencyStore) Stop() {}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the first successful response for a repeated key on
// POST requests. Keys are scoped to the caller and the route so two users
// cannot collide. A repeat that arrives while the first is still running
// gets 409.
func Idempotency(store IdempotencyStore, headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = DefaultIdempotencyHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idempotencyKey := r.Header.Get(headerName)

			if idempotencyKey == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			key := scopedIdempotencyKey(r, idempotencyKey)
			if handleCachedResponse(w, r.Context(), store, key) {
				return
			}

			if !store.Reserve(r.Context(), key) {
				if handleCachedResponse(w, r.Context(), store, key) {
					return
				}
				httputil.WriteError(w, apperrors.Conflict("A request with this idempotency key is already in progress"))
				return
			}
			defer store.Release(context.WithoutCancel(r.Context()), key)

			// a concurrent holder may have finished between the lookup and the reservation
			if handleCachedResponse(w, r.Context(), store, key) {
				return
			}

			capture := captureResponse(w)
			next.ServeHTTP(capture, r)
			cacheSuccessfulResponse(r.Context(), store, key, capture, w)
		})
	}
}

func scopedIdempotencyKey(r *http.Request, key string) string {
	uid := "anonymous"
	if caller := CallerFromContext(r.Context()); caller != nil && caller.UID != "" {
		uid = caller.UID
	}
	return uid + ":" + r.Method + ":" + r.URL.Path + ":" + key
}

func handleCachedResponse(w http.ResponseWriter, ctx context.Context, store IdempotencyStore, key string) bool {
	cached, found := store.Get(ctx, key)
	if !found {
		return false
	}

	replayCachedResponse(w, cached)
	return true
}

func replayCachedResponse(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		if key == RequestIDHeader {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}

func captureResponse(w http.ResponseWriter) *responseCapture {
	return &responseCapture{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		body:           &bytes.Buffer{},
	}
}

func cacheSuccessfulResponse(ctx context.Context, store IdempotencyStore, key string, capture *responseCapture, w http.ResponseWriter) {
	if !shouldCacheResponse(capture.statusCode) {
		return
	}

	cached := &CachedResponse{
		StatusCode: capture.statusCode,
		Headers:    w.Header().Clone(),
		Body:       capture.body.Bytes(),
	}
	// the request context may already be cancelled by the timeout middleware
	store.Set(context.WithoutCancel(ctx), key, cached)
}

func shouldCacheResponse(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
