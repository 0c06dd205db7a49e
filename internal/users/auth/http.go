// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/tasker/internal/authz"
	"github.com/taibuivan/tasker/internal/platform/apperr"
	"github.com/taibuivan/tasker/internal/platform/metrics"
	"github.com/taibuivan/tasker/internal/platform/middleware"
	"github.com/taibuivan/tasker/internal/platform/ratelimit"
	requestutil "github.com/taibuivan/tasker/internal/platform/request"
	"github.com/taibuivan/tasker/internal/platform/respond"
	"github.com/taibuivan/tasker/internal/platform/validate"
)

// Guard rules of the credential endpoints.
var (
	CredentialRule = ratelimit.Rule{Limit: 5, Window: 60 * time.Second}
	RefreshRule    = ratelimit.Rule{Limit: 10, Window: 60 * time.Second}
)

// Handler implements the credential and session HTTP endpoints.
type Handler struct {
	service    *Service
	authorizer middleware.Authorizer
	limiter    *ratelimit.Limiter
	metrics    *metrics.Metrics
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(service *Service, authorizer middleware.Authorizer, limiter *ratelimit.Limiter, bundle *metrics.Metrics) *Handler {
	return &Handler{service: service, authorizer: authorizer, limiter: limiter, metrics: bundle}
}

/*
Routes returns the authentication router.

Endpoints:
  - POST   /login            : Credentials for a token pair
  - POST   /register         : New USER account and a token pair
  - POST   /refresh          : Rotates the refresh token
  - POST   /logout           : Drops the refresh record and blacklists the access token
  - DELETE /sessions/current : Revokes the session of the presented token
  - GET    /rate-limit       : Remaining credential attempts of the caller, uncounted
*/
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	credentialGuard := middleware.RateLimitGuard(handler.limiter, CredentialRule, handler.metrics)
	router.With(credentialGuard).Post("/login", handler.login)
	router.With(credentialGuard).Post("/register", handler.register)
	router.With(middleware.RateLimitGuard(handler.limiter, RefreshRule, handler.metrics)).Post("/refresh", handler.refresh)
	router.Get("/rate-limit", handler.quota)

	router.Group(func(protected chi.Router) {
		protected.Use(middleware.Authorize(handler.authorizer, authz.Policy{}))

		protected.Post("/logout", handler.logout)
		protected.Delete("/sessions/current", handler.revokeSession)
	})

	return router
}

// # Credentials

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login handles POST /api/v1/auth/login.
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldEmail, input.Email).Required(FieldPassword, input.Password)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.Login(request.Context(), LoginInput{
		Email:    input.Email,
		Password: input.Password,
		Client:   middleware.ClientOf(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusOK, result)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// register handles POST /api/v1/auth/register.
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Password strength is a domain rule and is checked by the service.
	v := &validate.Validator{}
	v.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		Required(FieldName, input.Name).
		MaxLen(FieldName, input.Name, MaxNameLength)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.Register(request.Context(), RegisterInput{
		Email:    input.Email,
		Password: input.Password,
		Name:     input.Name,
		Client:   middleware.ClientOf(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusCreated, result)
}

// # Tokens & Sessions

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refresh handles POST /api/v1/auth/refresh. The token is read from the body,
// else from the Authorization header.
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	token := input.RefreshToken
	if token == "" {
		token = requestutil.BearerToken(request)
	}
	if token == "" {
		respond.Error(writer, request, validate.Missing(FieldRefreshToken))
		return
	}

	result, err := handler.service.Refresh(request.Context(), token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusOK, result)
}

// logout handles POST /api/v1/auth/logout.
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Logout(request.Context(), identity.UserID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.RevokeAccessToken(request.Context(), requestutil.BearerToken(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// revokeSession handles DELETE /api/v1/auth/sessions/current.
func (handler *Handler) revokeSession(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.RevokeSession(request.Context(), identity.UserID, identity.SessionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Introspection

type quotaResponse struct {
	Limit     int64     `json:"limit"`
	Current   int64     `json:"current"`
	Remaining int64     `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// quota handles GET /api/v1/auth/rate-limit. It reads the credential window of
// the calling client without counting a hit.
func (handler *Handler) quota(writer http.ResponseWriter, request *http.Request) {
	key := ratelimit.ClientKey(middleware.ClientOf(request), "")

	result, err := handler.limiter.Peek(request.Context(), key, CredentialRule)
	if err != nil {
		respond.Error(writer, request, apperr.ServiceUnavailable("Rate limiting is temporarily unavailable").WithCause(err))
		return
	}

	respond.OK(writer, quotaResponse{
		Limit:     result.Limit,
		Current:   result.Count,
		Remaining: result.Remaining,
		Reset:     result.Reset.UTC(),
	})
}
