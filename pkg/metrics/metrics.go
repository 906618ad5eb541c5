// Package metrics defines the Prometheus metrics exported by the user management
// service. Vectors are registered with the default registry on import.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "usermgmt"

// RegistryOperationsTotal counts role and user registry operations.
// Labels:
//   - entity: "user" or "role"
//   - operation: e.g. "create", "rename", "delete", "change_password"
//   - result: "success" or the error code in lower case (e.g. "conflict")
var RegistryOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registry_operations_total",
		Help:      "Total number of user and role registry operations, by outcome.",
	},
	[]string{"entity", "operation", "result"},
)

// MembershipOperationsTotal counts membership coordinator operations.
// Labels:
//   - operation: "replace", "remove_all_for_user" or "remove_all_for_role"
//   - result: "success" or the error code in lower case
var MembershipOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "membership_operations_total",
		Help:      "Total number of membership coordinator operations, by outcome.",
	},
	[]string{"operation", "result"},
)

// MembershipEdgesRemovedTotal counts individual membership edges removed by cascades and replacements.
var MembershipEdgesRemovedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "membership_edges_removed_total",
		Help:      "Total number of membership edges removed.",
	},
)

// BootstrapRunsTotal counts bootstrap seeder runs.
// Label:
//   - outcome: "skipped", "seeded", "partial" or "locked"
var BootstrapRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bootstrap_runs_total",
		Help:      "Total number of bootstrap seeder runs, by outcome.",
	},
	[]string{"outcome"},
)

// HTTPRequestDuration measures request latency by route pattern.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// Middleware records HTTPRequestDuration for every request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
