package backend

import (
	"context"
	"fmt"
	"log"

	"points/internal/domain/point"
	"points/internal/infrastructure/breaker"
	"points/internal/infrastructure/memory"
	"points/internal/infrastructure/postgres"
	"points/internal/shared/config"
)

// Backend bundles the account store and history log selected by
// STORE_BACKEND along with the resources that back them.
type Backend struct {
	Store   point.AccountStore
	History point.TransactionLog
	DB      *postgres.DB // nil for the memory backend
}

// Open builds the configured backend. The postgres backend also creates its
// schema.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		log.Println("Using in-memory point store")
		return &Backend{
			Store:   memory.NewAccountStore(nil),
			History: memory.NewTransactionLog(),
		}, nil

	case config.BackendPostgres:
		db, err := postgres.New(cfg.Database.ConnectionString())
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		log.Println("Connected to database")

		b := &Backend{
			Store:   postgres.NewAccountStore(db, nil),
			History: postgres.NewTransactionLog(db),
			DB:      db,
		}
		if cfg.Store.BreakerFailures > 0 {
			guard := breaker.NewGuard("postgres", breaker.Settings{
				ConsecutiveFailures: cfg.Store.BreakerFailures,
				OpenTimeout:         cfg.Store.BreakerOpenTimeout,
			})
			b.Store = breaker.NewAccountStore(b.Store, guard)
			b.History = breaker.NewTransactionLog(b.History, guard)
		}
		return b, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// NewService wires a point.Service over the backend using cfg.Points.
func (b *Backend) NewService(cfg *config.Config) *point.Service {
	return point.NewService(b.Store, b.History, point.Config{
		LockTimeout:       cfg.Points.LockTimeout,
		MaterializeOnRead: cfg.Points.MaterializeOnRead,
	})
}

// Ping reports backend health; nil when there is nothing to check.
func (b *Backend) Ping() func(ctx context.Context) error {
	if b.DB == nil {
		return nil
	}
	return b.DB.PingContext
}

func (b *Backend) Close() {
	if b.DB != nil {
		b.DB.Close()
	}
}
