// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package authz

import (
	"time"

	"github.com/taibuivan/tasker/internal/platform/ratelimit"
	"github.com/taibuivan/tasker/internal/platform/sec"
)

// Policy is the per-route authorization configuration, attached when the route
// is registered. The zero value only authenticates.
type Policy struct {
	// Roles, when set, must contain the caller's role.
	Roles []sec.UserRole

	// Permissions, when set, must all be held by the caller.
	Permissions []string

	// CheckOwnership requires the caller to own the resource named in the request.
	CheckOwnership bool

	// Owners resolves the owner of a resource when the ownership cache misses.
	// A route that checks ownership without a resolver denies on every miss.
	Owners OwnershipResolver

	// OwnershipBypassRoles skip the ownership check entirely.
	OwnershipBypassRoles []sec.UserRole

	// RateLimit overrides the endpoint ceiling of the route.
	RateLimit *ratelimit.Rule
}

// # Endpoint Ceilings

// EndpointWindow is the fixed window of the per-user endpoint limiter.
const EndpointWindow = 60 * time.Second

// Ceilings is the per-endpoint request ceiling table of the pipeline limiter.
type Ceilings struct {
	Window    time.Duration
	Default   int64
	Endpoints map[string]int64 // "METHOD:/route" -> ceiling
}

// DefaultCeilings are the ceilings applied when none are configured.
func DefaultCeilings() Ceilings {
	return Ceilings{
		Window:  EndpointWindow,
		Default: 50,
		Endpoints: map[string]int64{
			"GET:/tasks":    100,
			"POST:/tasks":   10,
			"PUT:/tasks":    20,
			"DELETE:/tasks": 5,
		},
	}
}

// Rule returns the limiter rule of one endpoint.
func (c Ceilings) Rule(method, route string) ratelimit.Rule {
	limit, ok := c.Endpoints[method+":"+route]
	if !ok {
		limit = c.Default
	}
	return ratelimit.Rule{Limit: limit, Window: c.Window}
}
