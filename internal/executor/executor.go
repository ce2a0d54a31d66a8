package executor

import (
	"context"
	"errors"

	"github.com/fleetscale/fleetd/pkg/models"
)

var (
	ErrInvalidDecision = errors.New("decision has no dispatchable action")
	ErrApplyFailed     = errors.New("scaling apply failed")
	ErrFleetNotFound   = errors.New("fleet not found")
)

// OutcomeFunc receives the report for a dispatched decision once the
// platform has finished (or failed) applying it. Implementations must
// not block: the executor calls it from its own goroutine.
type OutcomeFunc func(models.OutcomeReport)

// Executor applies scaling decisions to the underlying platform.
// Apply returns as soon as the request is accepted; the final result
// arrives asynchronously through the OutcomeFunc.
type Executor interface {
	Apply(ctx context.Context, decision *models.ScalingDecision) error
	Close() error
}
