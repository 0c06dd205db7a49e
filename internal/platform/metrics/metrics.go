// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package metrics holds the Prometheus instruments of the Tasker API.
//
// A single [Metrics] bundle is created in the composition root and passed to
// the components that record into it. Every recording method is safe on a nil
// receiver so that tests may omit the bundle.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tasker"

// Label values shared by the recorders.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultLocked  = "locked"
	ResultAllow   = "allow"
	ResultDeny    = "deny"
)

// Metrics holds all Prometheus metrics for Tasker.
type Metrics struct {
	LoginAttempts       *prometheus.CounterVec
	AccountLockouts     prometheus.Counter
	RefreshTotal        *prometheus.CounterVec
	AuthzDecisions      *prometheus.CounterVec
	RateLimitRejections *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
}

// New creates and registers all metrics with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		LoginAttempts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "login_attempts_total",
				Help:      "Login attempts by outcome",
			},
			[]string{"result"}, // success, failure, locked
		),
		AccountLockouts: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "account_lockouts_total",
				Help:      "Accounts locked after repeated failed logins",
			},
		),
		RefreshTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_total",
				Help:      "Refresh token rotations by outcome",
			},
			[]string{"result"}, // success, invalid, revoked, expired
		),
		AuthzDecisions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "authz_decisions_total",
				Help:      "Authorization pipeline decisions by deciding stage",
			},
			[]string{"stage", "result"},
		),
		RateLimitRejections: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_rejections_total",
				Help:      "Requests rejected by a distributed rate limit",
			},
			[]string{"scope"}, // endpoint, guard
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		),
	}
}

// # Recorders

func (m *Metrics) LoginAttempt(result string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) AccountLocked() {
	if m == nil {
		return
	}
	m.AccountLockouts.Inc()
}

func (m *Metrics) Refresh(result string) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) AuthzDecision(stage, result string) {
	if m == nil {
		return
	}
	m.AuthzDecisions.WithLabelValues(stage, result).Inc()
}

func (m *Metrics) RateLimitRejected(scope string) {
	if m == nil {
		return
	}
	m.RateLimitRejections.WithLabelValues(scope).Inc()
}

func (m *Metrics) ObserveRequest(method, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, status).Observe(elapsed.Seconds())
}
