package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"booktable/pkg/auth"
	apperrors "booktable/pkg/errors"
	"booktable/pkg/logger"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func TestRequestLogging_AssignsRequestID(t *testing.T) {
	var seen string
	h := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "req-42", seen)

	assert.Empty(t, RequestID(context.Background()))
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperrors.CodeInternal, errorCode(t, w))
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestContentTypeValidation(t *testing.T) {
	h := ContentTypeValidation(logger.Discard())(okHandler())

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{"json post", http.MethodPost, `{}`, "application/json; charset=utf-8", http.StatusOK},
		{"form post", http.MethodPost, `a=b`, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"missing header", http.MethodPatch, `{}`, "", http.StatusUnsupportedMediaType},
		{"bodiless patch", http.MethodPatch, "", "", http.StatusOK},
		{"get", http.MethodGet, "", "text/plain", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/bookings", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	RequestTimeout(20*time.Millisecond)(slow).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, apperrors.CodeTimeout, errorCode(t, w))

	w = httptest.NewRecorder()
	RequestTimeout(time.Second)(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMaxRequestSize(t *testing.T) {
	var readErr error
	h := MaxRequestSize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var v map[string]any
		readErr = json.NewDecoder(r.Body).Decode(&v)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a long restaurant name"}`)))
	assert.Error(t, readErr)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	assert.NoError(t, readErr)
}

func TestRateLimit_PerPrincipal(t *testing.T) {
	tokens := auth.NewTokenManager("rate-secret")
	limiter := NewRateLimiter(2, time.Minute, PrincipalOrIP(tokens), logger.Discard())
	defer limiter.Stop()
	h := RateLimit(limiter)(okHandler())

	send := func(p *auth.Principal, addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/restaurants", nil)
		req.RemoteAddr = addr
		if p != nil {
			token, err := tokens.Issue(*p, time.Hour)
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	alice := &auth.Principal{UserID: "alice", Role: auth.RoleUser}
	bob := &auth.Principal{UserID: "bob", Role: auth.RoleUser}

	assert.Equal(t, http.StatusOK, send(alice, "10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, send(alice, "10.0.0.2:1000"))
	assert.Equal(t, http.StatusTooManyRequests, send(alice, "10.0.0.3:1000"), "same user from another address")
	assert.Equal(t, http.StatusOK, send(bob, "10.0.0.1:1000"))

	assert.Equal(t, http.StatusOK, send(nil, "10.0.0.9:1000"))
	assert.Equal(t, http.StatusOK, send(nil, "10.0.0.9:2000"))
	assert.Equal(t, http.StatusTooManyRequests, send(nil, "10.0.0.9:3000"))
}

func TestIdempotency_ReplaysSuccessfulWrite(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"data":{"n":%d}}`, n)
	}))

	send := func(token, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer "+token)
		if key != "" {
			req.Header.Set(DefaultIdempotencyHeader, key)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	first := send("t1", "k1")
	second := send("t1", "k1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, int32(1), calls.Load())

	send("t2", "k1")
	assert.Equal(t, int32(2), calls.Load(), "keys are scoped per caller")

	send("t1", "")
	assert.Equal(t, int32(3), calls.Load())
}

func TestIdempotency_FailuresAreNotCached(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
		req.Header.Set(DefaultIdempotencyHeader, "k1")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestRedisIdempotencyStore(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewRedisIdempotencyStore(rdb, time.Minute, logger.Discard())
	ctx := context.Background()

	cached := CachedResponse{StatusCode: http.StatusCreated, Body: []byte(`{"data":{}}`)}
	raw, err := json.Marshal(cached)
	require.NoError(t, err)

	mock.ExpectGet("idempotency:hit").SetVal(string(raw))
	got, ok := store.Get(ctx, "hit")
	require.True(t, ok)
	assert.Equal(t, http.StatusCreated, got.StatusCode)
	assert.Equal(t, `{"data":{}}`, string(got.Body))

	mock.ExpectGet("idempotency:miss").RedisNil()
	_, ok = store.Get(ctx, "miss")
	assert.False(t, ok)

	mock.ExpectGet("idempotency:down").SetErr(context.DeadlineExceeded)
	_, ok = store.Get(ctx, "down")
	assert.False(t, ok)

	mock.Regexp().ExpectSet("idempotency:new", `.*`, time.Minute).SetVal("OK")
	store.Set(ctx, "new", &CachedResponse{StatusCode: http.StatusOK})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS([]string{"https://booktable.example"})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/bookings", nil)
	req.Header.Set("Origin", "https://booktable.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "https://booktable.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
