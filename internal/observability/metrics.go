// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Label values for auth outcomes.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultLocked  = "locked"
	ResultTaken   = "taken"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// Password reset stages.
const (
	StageRequest = "request"
	StageReset   = "reset"
)

// Metrics contains the Inkwell application metrics.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	LoginsTotal         *prometheus.CounterVec
	RegistrationsTotal  *prometheus.CounterVec
	PasswordResetsTotal *prometheus.CounterVec
	SessionsSweptTotal  prometheus.Counter
}

// NewMetrics creates the application metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_http_requests_total",
				Help: "Total number of HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inkwell_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_logins_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		RegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_registrations_total",
				Help: "Total number of registration attempts by result",
			},
			[]string{"result"},
		),
		PasswordResetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_password_resets_total",
				Help: "Total number of password reset operations by stage and result",
			},
			[]string{"stage", "result"},
		),
		SessionsSweptTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "inkwell_sessions_swept_total",
				Help: "Total number of expired sessions removed by the sweeper",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginsTotal,
		m.RegistrationsTotal,
		m.PasswordResetsTotal,
		m.SessionsSweptTotal,
	)
	return m
}

// ObserveRequest records one served HTTP request. A nil receiver is a no-op.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Login records a login attempt.
func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
}

// Registration records a registration attempt.
func (m *Metrics) Registration(result string) {
	if m == nil {
		return
	}
	m.RegistrationsTotal.WithLabelValues(result).Inc()
}

// PasswordReset records a reset request or completion.
func (m *Metrics) PasswordReset(stage, result string) {
	if m == nil {
		return
	}
	m.PasswordResetsTotal.WithLabelValues(stage, result).Inc()
}

// SessionsSwept adds n removed sessions.
func (m *Metrics) SessionsSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsSweptTotal.Add(float64(n))
}
