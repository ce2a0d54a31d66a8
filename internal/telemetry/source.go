package telemetry

import (
	"context"
	"errors"

	"github.com/fleetscale/fleetd/pkg/models"
)

var (
	ErrFetchFailed     = errors.New("telemetry fetch failed")
	ErrTimeout         = errors.New("telemetry fetch timeout")
	ErrFleetNotFound   = errors.New("fleet not found")
	ErrInvalidResponse = errors.New("invalid response from telemetry endpoint")
)

// Source delivers the per-tick fleet snapshot: registry state plus raw
// samples. In a push setup the loop works off whatever the ingest windows
// hold; in a pull setup Fetch may block on the wire and honors ctx.
type Source interface {
	// Fetch returns the current snapshot for a fleet.
	Fetch(ctx context.Context, fleetID string) (*models.FleetSnapshot, error)

	// HealthCheck verifies the source can reach its telemetry endpoint.
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the source.
	Close() error
}
