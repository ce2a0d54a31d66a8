package executor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/fleetscale/fleetd/internal/logger"
	"github.com/fleetscale/fleetd/pkg/models"
)

// FleetResizer is the view of the platform the simulator mutates when a
// decision lands. The mock telemetry source satisfies it, which closes
// the loop in demo mode: applied decisions change the next snapshot.
type FleetResizer interface {
	SetInstanceCount(fleetID string, count int)
	InstanceCount(fleetID string) int
}

// SimulatedExecutor applies decisions against an in-memory fleet with a
// configurable provision delay and failure rate.
type SimulatedExecutor struct {
	resizer       FleetResizer
	onOutcome     OutcomeFunc
	provisionTime time.Duration
	drainTime     time.Duration
	failureRate   float64
	mu            sync.Mutex
	wg            sync.WaitGroup
	closed        bool
}

type SimulatedConfig struct {
	Resizer       FleetResizer
	OnOutcome     OutcomeFunc
	ProvisionTime time.Duration
	DrainTime     time.Duration
	FailureRate   float64
}

func NewSimulatedExecutor(cfg SimulatedConfig) *SimulatedExecutor {
	if cfg.ProvisionTime == 0 {
		cfg.ProvisionTime = 10 * time.Second
	}
	if cfg.DrainTime == 0 {
		cfg.DrainTime = 5 * time.Second
	}

	return &SimulatedExecutor{
		resizer:       cfg.Resizer,
		onOutcome:     cfg.OnOutcome,
		provisionTime: cfg.ProvisionTime,
		drainTime:     cfg.DrainTime,
		failureRate:   cfg.FailureRate,
	}
}

func (e *SimulatedExecutor) Apply(ctx context.Context, decision *models.ScalingDecision) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrApplyFailed
	}
	if decision == nil || !decision.ShouldDispatch() {
		return ErrInvalidDecision
	}
	if e.resizer.InstanceCount(decision.FleetID) == 0 && decision.Action == models.ActionScaleDown {
		return ErrFleetNotFound
	}

	logger.WithFleet(decision.FleetID).Infof("Applying decision %s: %s by %d",
		decision.ID, decision.Action, decision.Magnitude)

	e.wg.Add(1)
	go e.simulateApply(*decision)
	return nil
}

func (e *SimulatedExecutor) simulateApply(decision models.ScalingDecision) {
	defer e.wg.Done()

	delay := e.provisionTime
	if decision.Action == models.ActionScaleDown {
		delay = e.drainTime
	}
	// Spread completion times a little so elasticity scores vary.
	delay += time.Duration(rand.Int63n(int64(delay)/4 + 1))

	start := time.Now()
	time.Sleep(delay)

	report := models.OutcomeReport{
		DecisionID:  decision.ID,
		FleetID:     decision.FleetID,
		TimeToApply: time.Since(start),
		ReportedAt:  time.Now(),
	}

	if rand.Float64() < e.failureRate {
		logger.WithFleet(decision.FleetID).Warnf("Simulated apply failure for decision %s", decision.ID)
	} else {
		report.Applied = true
		target := decision.TargetInstances()
		if target < 0 {
			target = 0
		}
		e.resizer.SetInstanceCount(decision.FleetID, target)
	}

	if e.onOutcome != nil {
		e.onOutcome(report)
	}
}

// Close waits for in-flight applies to report before returning.
func (e *SimulatedExecutor) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.wg.Wait()
	return nil
}
