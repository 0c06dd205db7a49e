// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/taibuivan/tasker/internal/authz"
	"github.com/taibuivan/tasker/internal/platform/apperr"
	"github.com/taibuivan/tasker/internal/platform/ctxutil"
	"github.com/taibuivan/tasker/internal/platform/metrics"
	"github.com/taibuivan/tasker/internal/platform/middleware"
	"github.com/taibuivan/tasker/internal/platform/ratelimit"
	"github.com/taibuivan/tasker/internal/platform/redis"
	"github.com/taibuivan/tasker/internal/platform/sec"
)

var ok = http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
	writer.WriteHeader(http.StatusOK)
})

func newLimiter(t *testing.T) (*ratelimit.Limiter, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return ratelimit.NewLimiter(redis.NewCache(client, "app", time.Second)), server
}

// # Tracing

func TestRequestID(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetRequestID(request.Context())
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, recorder.Header().Get("X-Request-ID"))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("X-Request-ID", "req-42")
	handler.ServeHTTP(httptest.NewRecorder(), request)
	assert.Equal(t, "req-42", seen)
}

func TestFingerprint(t *testing.T) {
	var client sec.Client
	handler := middleware.Fingerprint()(http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
		client = middleware.ClientOf(request)
	}))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("X-Forwarded-For", "::ffff:198.51.100.7, 10.0.0.1")
	request.Header.Set("User-Agent", "agent/2.0")
	handler.ServeHTTP(httptest.NewRecorder(), request)

	assert.Equal(t, sec.Client{IP: "198.51.100.7", UserAgent: "agent/2.0"}, client)
}

// # Safety

func TestPanicRecovery(t *testing.T) {
	handler := middleware.PanicRecovery(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), apperr.CodeInternal)
}

type corsConfig struct {
	development bool
	origins     []string
}

func (c corsConfig) IsDevelopment() bool      { return c.development }
func (c corsConfig) AllowedOrigins() []string { return c.origins }

func TestCORS(t *testing.T) {
	handler := middleware.CORS(corsConfig{origins: []string{"https://app.example.com"}})(ok)

	t.Run("allowed origin", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Origin", "https://app.example.com")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, "https://app.example.com", recorder.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", recorder.Header().Get("Vary"))
	})

	t.Run("foreign origin", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Origin", "https://evil.example.com")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("preflight", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodOptions, "/", nil)
		request.Header.Set("Origin", "https://app.example.com")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusNoContent, recorder.Code)
	})
}

// # Flood Shield

func TestLocalThrottle(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := middleware.LocalThrottle(ctx, 1, 2)(ok)

	codes := make([]int, 0, 3)
	for range 3 {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.RemoteAddr = "203.0.113.5:4000"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		codes = append(codes, recorder.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusForbidden}, codes)

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "203.0.113.6:4000"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, other)
	assert.Equal(t, http.StatusOK, recorder.Code)

	cancel()
}

// # Distributed Guard

func TestRateLimitGuard(t *testing.T) {
	limiter, _ := newLimiter(t)
	bundle := metrics.New(prometheus.NewRegistry())
	handler := middleware.RateLimitGuard(limiter, ratelimit.Rule{Limit: 2, Window: 10 * time.Second}, bundle)(ok)

	send := func() *httptest.ResponseRecorder {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("User-Agent", "agent/1.0")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		return recorder
	}

	first := send()
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	_, err := time.Parse(time.RFC3339, first.Header().Get("X-RateLimit-Reset"))
	assert.NoError(t, err)

	require.Equal(t, http.StatusOK, send().Code)

	rejected := send()
	assert.Equal(t, http.StatusForbidden, rejected.Code)
	assert.Equal(t, "0", rejected.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "10", rejected.Header().Get("Retry-After"))
	assert.Contains(t, rejected.Body.String(), apperr.CodeRateLimitExceeded)
	assert.Equal(t, 1.0, testutil.ToFloat64(bundle.RateLimitRejections.WithLabelValues("client")))
}

func TestRateLimitGuard_SeparatesUsers(t *testing.T) {
	limiter, _ := newLimiter(t)
	rule := ratelimit.Rule{Limit: 1, Window: time.Minute}
	guard := middleware.RateLimitGuard(limiter, rule, nil)(ok)

	send := func(userID string) int {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		if userID != "" {
			request = request.WithContext(ctxutil.WithIdentity(request.Context(), &sec.Identity{UserID: userID}))
		}
		recorder := httptest.NewRecorder()
		guard.ServeHTTP(recorder, request)
		return recorder.Code
	}

	assert.Equal(t, http.StatusOK, send("u-1"))
	assert.Equal(t, http.StatusOK, send("u-2"))
	assert.Equal(t, http.StatusOK, send(""))
	assert.Equal(t, http.StatusForbidden, send("u-1"))
}

func TestRateLimitGuard_CacheUnavailable(t *testing.T) {
	limiter, server := newLimiter(t)
	server.Close()

	recorder := httptest.NewRecorder()
	middleware.RateLimitGuard(limiter, ratelimit.Rule{}, nil)(ok).
		ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

// # Authorization Adapter

type recordingAuthorizer struct {
	request  authz.Request
	identity *sec.Identity
	err      error
}

func (r *recordingAuthorizer) Authorize(_ context.Context, request authz.Request, _ authz.Policy) (*sec.Identity, error) {
	r.request = request
	return r.identity, r.err
}

func TestAuthorize_RouteAndResource(t *testing.T) {
	authorizer := &recordingAuthorizer{identity: &sec.Identity{UserID: "u-1"}}

	var attached *sec.Identity
	router := chi.NewRouter()
	router.Route("/api/v1/tasks", func(tasks chi.Router) {
		tasks.With(middleware.Authorize(authorizer, authz.Policy{})).
			Put("/{id}", func(_ http.ResponseWriter, request *http.Request) {
				attached = ctxutil.GetIdentity(request.Context())
			})
	})

	request := httptest.NewRequest(http.MethodPut, "/api/v1/tasks/t-9", nil)
	request.Header.Set("Authorization", "Bearer abc")
	router.ServeHTTP(httptest.NewRecorder(), request)

	assert.Equal(t, authz.Request{
		Authorization: "Bearer abc",
		Method:        http.MethodPut,
		Route:         "/tasks/{id}",
		ResourceID:    "t-9",
	}, authorizer.request)
	assert.Equal(t, "u-1", attached.UserID)
}

func TestAuthorize_BodyUserIDIsRestored(t *testing.T) {
	authorizer := &recordingAuthorizer{identity: &sec.Identity{UserID: "u-1"}}

	var body string
	handler := middleware.Authorize(authorizer, authz.Policy{})(http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
		raw, _ := io.ReadAll(request.Body)
		body = string(raw)
	}))

	payload := `{"userId":"u-7","title":"x"}`
	request := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", strings.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(httptest.NewRecorder(), request)

	assert.Equal(t, "u-7", authorizer.request.ResourceID)
	assert.Equal(t, "/tasks", authorizer.request.Route)
	assert.Equal(t, payload, body)
}

func TestAuthorize_Denied(t *testing.T) {
	authorizer := &recordingAuthorizer{err: apperr.Unauthorized("No token provided")}

	called := false
	handler := middleware.Authorize(authorizer, authz.Policy{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "No token provided")
}
