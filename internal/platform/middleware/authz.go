// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/tasker/internal/authz"
	"github.com/taibuivan/tasker/internal/platform/constants"
	"github.com/taibuivan/tasker/internal/platform/ctxutil"
	"github.com/taibuivan/tasker/internal/platform/respond"
	"github.com/taibuivan/tasker/internal/platform/sec"
)

// Authorizer runs the authorization pipeline.
//
// Declared here so handler tests can mount a stub.
type Authorizer interface {
	Authorize(ctx context.Context, request authz.Request, policy authz.Policy) (*sec.Identity, error)
}

/*
Authorize protects a route with the authorization pipeline.

Description: Mount it per route (chi With or Group) so the route pattern and
URL parameters are already resolved. The resource id comes from the {id} URL
parameter, else from a "userId" field of a JSON body; the body is restored for
the handler. On success the identity is attached to the context and the request
logger gains the user_id attribute.

Parameters:
  - authorizer: Authorizer (usually *authz.Pipeline)
  - policy: authz.Policy of the route

Returns:
  - func(http.Handler) http.Handler
*/
func Authorize(authorizer Authorizer, policy authz.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()

			identity, err := authorizer.Authorize(ctx, authz.Request{
				Authorization: request.Header.Get(constants.HeaderAuthorization),
				Method:        request.Method,
				Route:         routePattern(request),
				ResourceID:    resourceID(request),
			}, policy)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			ctx = ctxutil.WithIdentity(ctx, identity)
			if logger := ctxutil.GetLogger(ctx); logger != nil {
				ctx = ctxutil.WithLogger(ctx, logger.With(slog.String("user_id", identity.UserID)))
			}

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// routePattern returns the matched chi pattern relative to the API prefix,
// falling back to the concrete path outside a chi router.
func routePattern(request *http.Request) string {
	pattern := request.URL.Path
	if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
		if matched := routeContext.RoutePattern(); matched != "" {
			pattern = matched
		}
	}

	if trimmed := strings.TrimPrefix(pattern, constants.APIPrefix); trimmed != "" {
		pattern = trimmed
	}
	return strings.TrimSuffix(pattern, "/*")
}

// resourceID reads {id}, then a JSON body's userId.
func resourceID(request *http.Request) string {
	if id := chi.URLParam(request, "id"); id != "" {
		return id
	}

	if request.Body == nil || !strings.HasPrefix(request.Header.Get("Content-Type"), "application/json") {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(request.Body, constants.MaxPeekBodyBytes))
	_ = request.Body.Close()
	request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var payload struct {
		UserID string `json:"userId"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return payload.UserID
}
