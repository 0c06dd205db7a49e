// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/taibuivan/tasker/internal/platform/apperr"
	"github.com/taibuivan/tasker/internal/platform/constants"
	"github.com/taibuivan/tasker/internal/platform/respond"
)

// # Local Flood Shield

type throttleClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// throttle is a per-IP token bucket kept in process memory. It only absorbs
// floods; every real limit lives in the distributed limiter.
type throttle struct {
	mu      sync.Mutex
	clients map[string]*throttleClient
	rps     rate.Limit
	burst   int
}

func (t *throttle) allow(ip string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	client, found := t.clients[ip]
	if !found {
		client = &throttleClient{limiter: rate.NewLimiter(t.rps, t.burst)}
		t.clients[ip] = client
	}
	client.lastSeen = now

	return client.limiter.AllowN(now, 1)
}

func (t *throttle) sweep(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for ip, client := range t.clients {
		if now.Sub(client.lastSeen) > constants.RateLimitClientTTL {
			delete(t.clients, ip)
		}
	}
}

/*
LocalThrottle limits requests per IP with a token bucket.

Description: Idle entries are swept by a background goroutine that stops when
ctx is cancelled. A rejected request receives 403 RATE_LIMIT_EXCEEDED, the same
answer the distributed guard gives.

Parameters:
  - ctx: context.Context bounding the janitor goroutine
  - rps: Sustained requests per second per IP
  - burst: Bucket size

Returns:
  - func(http.Handler) http.Handler
*/
func LocalThrottle(ctx context.Context, rps float64, burst int) func(http.Handler) http.Handler {
	shield := &throttle{
		clients: make(map[string]*throttleClient),
		rps:     rate.Limit(rps),
		burst:   burst,
	}

	go func() {
		ticker := time.NewTicker(constants.RateLimitCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case now := <-ticker.C:
				shield.sweep(now)
			case <-ctx.Done():
				return
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if !shield.allow(ClientOf(request).IP, time.Now()) {
				respond.Error(writer, request, apperr.RateLimitExceeded(1))
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}
