package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"points/internal/shared/config"
	"points/internal/shared/middleware"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{Store: config.StoreConfig{Backend: config.BackendMemory}}

	deps, err := NewDependencies(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewDependencies() failed: %v", err)
	}
	t.Cleanup(deps.Close)
	return SetupRoutes(deps)
}

func TestSetupRoutes(t *testing.T) {
	handler := newTestHandler(t)

	tests := []struct {
		method         string
		path           string
		body           string
		expectedStatus int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodPatch, "/point/1/charge", "100", http.StatusOK},
		{http.MethodPatch, "/point/1/use", "40", http.StatusOK},
		{http.MethodPatch, "/point/1/use", "100", http.StatusConflict},
		{http.MethodGet, "/point/1", "", http.StatusOK},
		{http.MethodGet, "/point/1/histories", "", http.StatusOK},
		{http.MethodGet, "/point/x", "", http.StatusBadRequest},
		{http.MethodPost, "/point/1/charge", "100", http.StatusMethodNotAllowed},
		{http.MethodGet, "/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != tt.expectedStatus {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, rr.Code, tt.expectedStatus)
		}
		if rr.Header().Get(middleware.RequestIDHeader) == "" {
			t.Errorf("%s %s: missing %s header", tt.method, tt.path, middleware.RequestIDHeader)
		}
	}
}
