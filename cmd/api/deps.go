package main

import (
	"context"

	"points/internal/domain/point"
	"points/internal/infrastructure/backend"
	httphandlers "points/internal/interfaces/http"
	"points/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	Backend *backend.Backend
	Points  *point.Service

	// Handlers
	PointHandler  *httphandlers.PointHandler
	HealthHandler *httphandlers.HealthHandler
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	b, err := backend.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	points := b.NewService(cfg)

	return &Dependencies{
		Backend:       b,
		Points:        points,
		PointHandler:  httphandlers.NewPointHandler(points),
		HealthHandler: httphandlers.NewHealthHandler(b.Ping()),
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.Backend != nil {
		d.Backend.Close()
	}
}
