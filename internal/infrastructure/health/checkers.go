package health

import (
	"context"

	"github.com/campusgate/verifybot/internal/core/ports"
	infraDB "github.com/campusgate/verifybot/internal/infrastructure/db"
)

// mongoHealthChecker wraps the document store for health checks.
type mongoHealthChecker struct{ store *infraDB.Mongo }

func (m *mongoHealthChecker) Name() string { return "mongodb" }
func (m *mongoHealthChecker) Check(ctx context.Context) error {
	return m.store.Client.Ping(ctx, nil)
}

// gatewayHealthChecker reports the Discord gateway as a dependency.
type gatewayHealthChecker struct{ probe func(ctx context.Context) error }

func (g *gatewayHealthChecker) Name() string                    { return "discord" }
func (g *gatewayHealthChecker) Check(ctx context.Context) error { return g.probe(ctx) }

// NewMongoHealthChecker creates a health checker for the document store.
func NewMongoHealthChecker(store *infraDB.Mongo) ports.HealthChecker {
	return &mongoHealthChecker{store: store}
}

// NewGatewayHealthChecker creates a health checker backed by the given probe.
func NewGatewayHealthChecker(probe func(ctx context.Context) error) ports.HealthChecker {
	return &gatewayHealthChecker{probe: probe}
}
