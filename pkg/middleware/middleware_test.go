package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "atelier/pkg/errors"
	"atelier/pkg/logger"
	"atelier/pkg/model"
)

type mockAuthenticator struct {
	authenticateFunc func(ctx context.Context, token string) (*model.CallerIdentity, error)
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, token string) (*model.CallerIdentity, error) {
	return m.authenticateFunc(ctx, token)
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	var body struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	if body.Code != want {
		t.Errorf("code = %q, want %q", body.Code, want)
	}
}

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})
}

func TestIdentity(t *testing.T) {
	auth := &mockAuthenticator{authenticateFunc: func(ctx context.Context, token string) (*model.CallerIdentity, error) {
		if token == "good" {
			return &model.CallerIdentity{UID: "u1", Rank: model.RankTop5}, nil
		}
		return nil, errors.New("bad signature")
	}}

	var seen *model.CallerIdentity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CallerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := Identity(auth, logger.Discard())(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUID    string
	}{
		{name: "anonymous", header: "", wantStatus: http.StatusOK},
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusOK, wantUID: "u1"},
		{name: "lowercase scheme", header: "bearer good", wantStatus: http.StatusOK, wantUID: "u1"},
		{name: "invalid token", header: "Bearer bad", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/slots/id/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if tt.wantUID == "" && seen != nil {
				t.Errorf("expected anonymous caller, got %+v", seen)
			}
			if tt.wantUID != "" && (seen == nil || seen.UID != tt.wantUID) {
				t.Errorf("expected caller %s, got %+v", tt.wantUID, seen)
			}
		})
	}
}

func TestRequestLogging_RequestID(t *testing.T) {
	var ctxID string
	h := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if ctxID == "" || rec.Header().Get(RequestIDHeader) != ctxID {
		t.Errorf("request id not propagated: ctx=%q header=%q", ctxID, rec.Header().Get(RequestIDHeader))
	}

	incoming := "3f1c4a9e-8a7b-4a51-9c1e-1b2c3d4e5f60"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if ctxID != incoming {
		t.Errorf("expected incoming id to be reused, got %q", ctxID)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not a uuid\n")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if ctxID == "not a uuid\n" {
		t.Error("malformed incoming id must be replaced")
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	assertErrorCode(t, rec, apperrors.CodeInternal)
	if strings.Contains(rec.Body.String(), "boom") {
		t.Errorf("panic value leaked to client: %s", rec.Body.String())
	}
}

func TestRequestTimeout(t *testing.T) {
	h := RequestTimeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		time.Sleep(50 * time.Millisecond)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rec.Code)
	}
	assertErrorCode(t, rec, apperrors.CodeTimeout)
}

func TestContentTypeValidation(t *testing.T) {
	h := ContentTypeValidation(logger.Discard())(okHandler("ok"))

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{"get passes", http.MethodGet, "", "", http.StatusOK},
		{"json post", http.MethodPost, `{}`, "application/json; charset=utf-8", http.StatusOK},
		{"bodyless post", http.MethodPost, "", "", http.StatusOK},
		{"form post", http.MethodPost, "a=b", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnsupportedMediaType {
				assertErrorCode(t, rec, apperrors.CodeUnsupportedMediaType)
			}
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	h := MaxRequestSize(4)(okHandler("ok"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too large")))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
	assertErrorCode(t, rec, apperrors.CodeRequestTooLarge)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute, nil, logger.Discard())
	defer rl.Stop()

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Error("third request within the window should be limited")
	}
	if !rl.Allow("b") {
		t.Error("other keys have their own bucket")
	}
	if !rl.Allow("") {
		t.Error("empty key is never limited")
	}

	h := RateLimit(rl)(okHandler("ok"))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	codes := []int{}
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want third to be 429", codes)
	}
	assertErrorCode(t, last, apperrors.CodeRateLimited)
	if last.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestCallerOrIPKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	if got := CallerOrIPKey(req); got != "ip:192.0.2.7" {
		t.Errorf("anonymous key = %q", got)
	}

	req = req.WithContext(WithCaller(req.Context(), &model.CallerIdentity{UID: "u1"}))
	if got := CallerOrIPKey(req); got != "uid:u1" {
		t.Errorf("caller key = %q", got)
	}
}

func TestIdempotency(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"call":` + string(rune('0'+n)) + `}`))
	}))

	send := func(uid, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/slots/id/s1/claim", nil)
		if key != "" {
			req.Header.Set(DefaultIdempotencyHeader, key)
		}
		if uid != "" {
			req = req.WithContext(WithCaller(req.Context(), &model.CallerIdentity{UID: uid}))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send("u1", "k1")
	second := send("u1", "k1")
	if calls.Load() != 1 {
		t.Fatalf("handler called %d times, want 1", calls.Load())
	}
	if second.Body.String() != first.Body.String() || second.Header().Get("Idempotent-Replayed") != "true" {
		t.Errorf("expected replay of %q, got %q", first.Body.String(), second.Body.String())
	}

	send("u2", "k1")
	if calls.Load() != 2 {
		t.Errorf("same key from another caller must not replay")
	}

	send("u1", "")
	if calls.Load() != 3 {
		t.Errorf("requests without a key must always run")
	}
}

func TestIdempotency_ErrorsNotCached(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set(DefaultIdempotencyHeader, "k")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls.Load() != 2 {
		t.Errorf("non-2xx responses must not be cached, handler ran %d times", calls.Load())
	}
}

func TestIdempotency_InFlightDuplicate(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	started := make(chan struct{})
	unblock := make(chan struct{})
	var calls atomic.Int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(started)
			<-unblock
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"s1"}`))
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/slots", nil)
		req.Header.Set(DefaultIdempotencyHeader, "k1")
		req = req.WithContext(WithCaller(req.Context(), &model.CallerIdentity{UID: "u1"}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- send() }()
	<-started

	dup := send()
	if dup.Code != http.StatusConflict {
		t.Fatalf("in-flight duplicate status = %d, want 409", dup.Code)
	}
	assertErrorCode(t, dup, apperrors.CodeConflict)

	close(unblock)
	first := <-done
	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d, want 201", first.Code)
	}

	replay := send()
	if replay.Code != http.StatusCreated || replay.Header().Get("Idempotent-Replayed") != "true" {
		t.Errorf("replay status = %d, replayed = %q", replay.Code, replay.Header().Get("Idempotent-Replayed"))
	}
	if calls.Load() != 1 {
		t.Errorf("handler ran %d times, want 1", calls.Load())
	}
}

func TestIdempotency_ReleasedAfterFailure(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(DefaultIdempotencyHeader, "k")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !store.Reserve(context.Background(), "anonymous:POST:/x:k") {
		t.Error("reservation must be released once the request finishes")
	}
}
