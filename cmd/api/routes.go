package main

import (
	"net/http"

	"points/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", deps.HealthHandler.HandleHealth)

	mux.HandleFunc("GET /point/{id}", deps.PointHandler.HandleGet)
	mux.HandleFunc("GET /point/{id}/histories", deps.PointHandler.HandleHistories)
	mux.HandleFunc("PATCH /point/{id}/charge", deps.PointHandler.HandleCharge)
	mux.HandleFunc("PATCH /point/{id}/use", deps.PointHandler.HandleUse)

	// Outermost first: otelhttp extracts trace context, then request id,
	// access log, and the route-aware span.
	return middleware.Telemetry(
		middleware.RequestID(
			middleware.Logging(
				middleware.Tracing(mux),
			),
		),
	)
}
