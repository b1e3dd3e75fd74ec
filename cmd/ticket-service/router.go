package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	analytics_api "event-ticketing/internal/analytics/api"
	"event-ticketing/internal/events/event_api"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/sse"
	"event-ticketing/internal/tickets/ticket_api"
	"event-ticketing/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type requestObserver interface {
	ObserveRequest(method, route string, status int, took time.Duration)
}

type routerDeps struct {
	Events   *event_api.Handler
	Tickets  *ticket_api.Handler
	Insights *analytics_api.Handler
	Stream   *sse.Handler

	Ping func(ctx context.Context) error
	// Reset is nil unless database reset is allowed.
	Reset func(ctx context.Context) error

	Observer       requestObserver
	MetricsHandler http.Handler
	Logger         *logger.Logger
}

func newRouter(d routerDeps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(d.Logger, d.Observer))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w, http.StatusOK, "event ticketing service", map[string]string{
			"api":     "/api/v1",
			"health":  "/health",
			"metrics": "/metrics",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Ping(r.Context()); err != nil {
			d.Logger.Error("HEALTH", fmt.Sprintf("Store ping failed: %v", err))
			utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("SERVICE_UNAVAILABLE", "store unreachable"))
			return
		}
		utils.WriteSuccess(w, http.StatusOK, "healthy", map[string]string{"status": "ok"})
	})

	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		reset := resetHandler(d.Reset, d.Logger)
		r.Get("/reset-database", reset)
		r.Post("/reset-database", reset)

		d.Events.RegisterRoutes(r)
		d.Insights.RegisterRoutes(r)
		d.Stream.RegisterRoutes(r)
		d.Tickets.RegisterRoutes(r)
	})

	return r
}

func resetHandler(reset func(ctx context.Context) error, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reset == nil {
			utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("RESET_DISABLED", "database reset is disabled"))
			return
		}
		if err := reset(r.Context()); err != nil {
			log.Error("DATABASE", fmt.Sprintf("Reset failed: %v", err))
			utils.WriteError(w, err)
			return
		}
		utils.WriteSuccess(w, http.StatusOK, "database reset", nil)
	}
}

// requestLogger logs every request and records its latency under the matched
// route pattern, so ids in paths do not explode label cardinality.
func requestLogger(log *logger.Logger, obs requestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			took := time.Since(start)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			obs.ObserveRequest(r.Method, route, status, took)
			log.LogAPI(r.Method, r.URL.Path, fmt.Sprintf("%d", status), took.String())
		})
	}
}
