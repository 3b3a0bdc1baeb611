package health

import (
	"context"
	"fmt"

	"github.com/casamapa/casamapa/internal/core/ports"
	infraDB "github.com/casamapa/casamapa/internal/infrastructure/db"
)

// dbHealthChecker wraps the database for health checks.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.DB.PingContext(ctx) }

// backendHealthChecker reports on one member of the cache backend pool.
type backendHealthChecker struct{ backend ports.KeyValueBackend }

func (b *backendHealthChecker) Name() string { return "redis:" + b.backend.Name() }
func (b *backendHealthChecker) Check(ctx context.Context) error {
	if !b.backend.Healthy() {
		return fmt.Errorf("backend %s unreachable", b.backend.Name())
	}
	return nil
}

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewBackendHealthChecker creates a health checker for one cache backend.
func NewBackendHealthChecker(backend ports.KeyValueBackend) ports.HealthChecker {
	return &backendHealthChecker{backend: backend}
}
