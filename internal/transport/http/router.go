// Package httptransport assembles the HTTP surface: middleware chain, domain
// routes, health, metrics, and the live event stream.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	disasterhandler "beacon/internal/disaster/handler"
	"beacon/internal/enrich"
	"beacon/internal/platform/metrics"
	"beacon/internal/platform/middleware"
	"beacon/internal/report"
	dErrors "beacon/pkg/domain-errors"
	"beacon/pkg/platform/httputil"
)

// DefaultRequestTimeout bounds API request handling. The websocket endpoint
// is mounted outside the timeout.
const DefaultRequestTimeout = 30 * time.Second

// Deps carries everything the router mounts. Nil optional fields disable
// the corresponding surface.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	Disasters *disasterhandler.Handler
	Reports   *report.Handler
	Enrich    *enrich.Handler

	// Stream serves the websocket subscription endpoint.
	Stream http.Handler

	// Health reports backing-store reachability for the readiness endpoint.
	Health func(ctx context.Context) error

	RequestTimeout time.Duration
}

// NewRouter wires all public endpoints.
func NewRouter(deps Deps) http.Handler {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.Latency(deps.Metrics))
	}

	r.Get("/healthz", healthHandler(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	if deps.Stream != nil {
		r.Handle("/ws", deps.Stream)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(timeout))
		if deps.Disasters != nil {
			deps.Disasters.Register(api)
		}
		if deps.Reports != nil {
			deps.Reports.Register(api)
		}
		if deps.Enrich != nil {
			deps.Enrich.Register(api)
		}
	})

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "dependency unhealthy"))
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
