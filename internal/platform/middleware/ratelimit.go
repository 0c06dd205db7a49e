// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/taibuivan/tasker/internal/platform/apperr"
	"github.com/taibuivan/tasker/internal/platform/constants"
	"github.com/taibuivan/tasker/internal/platform/ctxutil"
	"github.com/taibuivan/tasker/internal/platform/metrics"
	"github.com/taibuivan/tasker/internal/platform/ratelimit"
	"github.com/taibuivan/tasker/internal/platform/respond"
)

// # Distributed Rate-Limit Guard

/*
RateLimitGuard counts requests per client fingerprint in the shared cache.

Description: The key combines IP, user agent and the authenticated user (or
"anonymous"), so it must be mounted after [Authorize] to separate users behind
one address. The quota headers are written on every answer; a rejection adds
Retry-After and answers 403. An unreachable cache denies with 503.

Parameters:
  - limiter: *ratelimit.Limiter
  - rule: ratelimit.Rule (the zero value selects [ratelimit.DefaultRule])
  - bundle: *metrics.Metrics, may be nil

Returns:
  - func(http.Handler) http.Handler
*/
func RateLimitGuard(limiter *ratelimit.Limiter, rule ratelimit.Rule, bundle *metrics.Metrics) func(http.Handler) http.Handler {
	if rule.Limit <= 0 || rule.Window <= 0 {
		rule = ratelimit.DefaultRule
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()

			userID := ""
			if identity := ctxutil.GetIdentity(ctx); identity != nil {
				userID = identity.UserID
			}

			result, err := limiter.Hit(ctx, ratelimit.ClientKey(ClientOf(request), userID), rule)
			if err != nil {
				respond.Error(writer, request, apperr.ServiceUnavailable("Rate limiting is temporarily unavailable").WithCause(err))
				return
			}

			header := writer.Header()
			header.Set(constants.HeaderRateLimitLimit, strconv.FormatInt(result.Limit, 10))
			header.Set(constants.HeaderRateLimitRemain, strconv.FormatInt(result.Remaining, 10))
			header.Set(constants.HeaderRateLimitReset, result.Reset.UTC().Format(time.RFC3339))

			if !result.Allowed {
				retryAfter := result.RetryAfterSeconds()
				header.Set(constants.HeaderRetryAfter, strconv.FormatInt(retryAfter, 10))

				bundle.RateLimitRejected("client")
				respond.Error(writer, request, apperr.RateLimitExceeded(int(retryAfter)))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
