package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"points/internal/shared/config"
	"points/internal/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var telemetryShutdown func(context.Context) error
	if cfg.Telemetry.Enabled {
		telemetryShutdown, err = telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
	} else {
		log.Println("Telemetry is disabled")
	}

	deps, err := NewDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	log.Printf("Point service ready (backend=%s, lock_timeout=%s, materialize_on_read=%t)",
		cfg.Store.Backend, cfg.Points.LockTimeout, cfg.Points.MaterializeOnRead)

	srv, errCh := StartServer(cfg.Server.Host+":"+cfg.Server.Port, SetupRoutes(deps))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			GracefulShutdown(srv, telemetryShutdown, cfg.Server.ShutdownTimeout)
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	GracefulShutdown(srv, telemetryShutdown, cfg.Server.ShutdownTimeout)
	return nil
}
