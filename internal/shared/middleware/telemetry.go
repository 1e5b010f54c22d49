package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Telemetry wraps the point API with otelhttp so inbound trace context is
// extracted before Tracing opens its own span.
func Telemetry(next http.Handler) http.Handler {
	return otelhttp.NewMiddleware("points-api")(next)
}
