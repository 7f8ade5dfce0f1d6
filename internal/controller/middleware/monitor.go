package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"syncbridge/internal/logger"
	"syncbridge/internal/observability"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// statusRecorder captures the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Monitor logs one structured event per request and records its duration.
// The event is named after the matched route; unmatched requests use the path.
func Monitor(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	meter := otel.Meter(observability.MeterName)
	duration, err := meter.Float64Histogram(
		"syncbridge.http.duration_ms",
		metric.WithDescription("Duration of HTTP requests by route"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		base.Warn("failed to create request duration histogram", "error", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			elapsed := float64(time.Since(start).Microseconds()) / 1000
			name := routeName(r)
			ctx := r.Context()

			if duration != nil {
				duration.Record(ctx, elapsed, metric.WithAttributes(
					attribute.String("name", name),
					attribute.Int("status", rec.status),
				))
			}

			level := slog.LevelInfo
			if rec.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			base.Log(ctx, level, "request",
				"event", "request",
				"name", name,
				"status", rec.status,
				"duration_ms", elapsed,
				"path", r.URL.Path,
				"method", r.Method,
				"request_id", logger.RequestIDFromContext(ctx),
			)
		})
	}
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if name := route.GetName(); name != "" {
			return name
		}
	}
	return r.URL.Path
}
