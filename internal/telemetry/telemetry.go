// Package telemetry exposes the gateway's Prometheus metrics.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_gateway_login_attempts_total",
		Help: "Login attempts against the identity backend, by outcome.",
	}, []string{"outcome"})

	UserRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_gateway_user_refresh_total",
		Help: "Background and on-demand user refreshes, by outcome.",
	}, []string{"outcome"})

	ForcedLogouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crm_gateway_forced_logouts_total",
		Help: "Sessions torn down because the token expired or was rejected.",
	})
)

const (
	OutcomeSuccess      = "success"
	OutcomeRejected     = "rejected"
	OutcomeDegraded     = "degraded"
	OutcomeUnauthorized = "unauthorized"
)

// Handler serves the default registry, mounted at the configured metrics path.
func Handler() http.Handler {
	return promhttp.Handler()
}
