// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/tasker/internal/authz"
	"github.com/taibuivan/tasker/internal/platform/metrics"
	"github.com/taibuivan/tasker/internal/platform/middleware"
	"github.com/taibuivan/tasker/internal/platform/ratelimit"
	requestutil "github.com/taibuivan/tasker/internal/platform/request"
	"github.com/taibuivan/tasker/internal/platform/respond"
	"github.com/taibuivan/tasker/internal/platform/sec"
	"github.com/taibuivan/tasker/internal/platform/validate"
	"github.com/taibuivan/tasker/internal/users/auth"
	"github.com/taibuivan/tasker/pkg/pagination"
)

// ProfileRule is the guard shared by every profile route.
var ProfileRule = ratelimit.Rule{Limit: 2, Window: 10 * time.Second}

// Handler implements the HTTP layer for user profiles.
type Handler struct {
	service    *Service
	authorizer middleware.Authorizer
	limiter    *ratelimit.Limiter
	metrics    *metrics.Metrics
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service, authorizer middleware.Authorizer, limiter *ratelimit.Limiter, bundle *metrics.Metrics) *Handler {
	return &Handler{service: service, authorizer: authorizer, limiter: limiter, metrics: bundle}
}

// Routes returns a [chi.Router] configured with the profile endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	guard := middleware.RateLimitGuard(handler.limiter, ProfileRule, handler.metrics)

	staff := authz.Policy{
		Roles:       []sec.UserRole{sec.RoleAdmin, sec.RoleManager},
		Permissions: []string{sec.PermUsersRead},
	}
	owner := authz.Policy{
		CheckOwnership:       true,
		Owners:               handler.service,
		OwnershipBypassRoles: []sec.UserRole{sec.RoleAdmin},
	}

	// The guard runs after the pipeline so its key includes the user.
	router.With(middleware.Authorize(handler.authorizer, staff), guard).Get("/", handler.list)
	router.With(middleware.Authorize(handler.authorizer, authz.Policy{}), guard).Get("/me", handler.me)
	router.With(middleware.Authorize(handler.authorizer, owner), guard).Get("/{id}", handler.get)
	router.With(middleware.Authorize(handler.authorizer, owner), guard).Patch("/{id}", handler.rename)

	return router
}

/*
GET /api/v1/users.

Response:
  - 200: []Profile with pagination meta
  - 403: Insufficient role or permissions
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	profiles, meta, err := handler.service.ListProfiles(request.Context(), pagination.FromRequest(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, profiles, meta)
}

// me handles GET /api/v1/users/me.
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.service.GetProfile(request.Context(), identity.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

/*
GET /api/v1/users/{id}.

Response:
  - 200: Profile
  - 403: Not the owner
  - 404: No such user (the pipeline lets absent resources through)
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	profile, err := handler.service.GetProfile(request.Context(), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

type renameRequest struct {
	Name string `json:"name"`
}

// rename handles PATCH /api/v1/users/{id}.
func (handler *Handler) rename(writer http.ResponseWriter, request *http.Request) {
	var input renameRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	if err := v.Required(auth.FieldName, input.Name).MaxLen(auth.FieldName, input.Name, auth.MaxNameLength).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.service.Rename(request.Context(), requestutil.Param(request, "id"), input.Name)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}
