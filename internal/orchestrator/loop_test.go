package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetscale/fleetd/internal/analyzer"
	"github.com/fleetscale/fleetd/internal/decision"
	"github.com/fleetscale/fleetd/internal/elasticity"
	"github.com/fleetscale/fleetd/internal/events"
	"github.com/fleetscale/fleetd/internal/forecast"
	"github.com/fleetscale/fleetd/internal/ingest"
	"github.com/fleetscale/fleetd/internal/telemetry"
	"github.com/fleetscale/fleetd/pkg/models"
)

// captureExecutor records dispatched decisions without applying anything.
type captureExecutor struct {
	mu        sync.Mutex
	decisions []*models.ScalingDecision
	err       error
}

func (e *captureExecutor) Apply(ctx context.Context, dec *models.ScalingDecision) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.decisions = append(e.decisions, dec)
	return nil
}

func (e *captureExecutor) Close() error { return nil }

func (e *captureExecutor) dispatched() []*models.ScalingDecision {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*models.ScalingDecision(nil), e.decisions...)
}

func testLoopPolicy() models.ScalingPolicy {
	return models.ScalingPolicy{
		MinInstances:      2,
		MaxInstances:      10,
		ScaleUpCooldown:   3 * time.Minute,
		ScaleDownCooldown: 10 * time.Minute,
		TargetUtilization: 0.7,
		UrgentMargin:      0.15,
		SafetyBuffer:      0.20,
		SLAMaxLatencyMS:   2000,
		SLAMaxErrorRate:   0.5,
		CostWeight:        0.5,
		TickInterval:      30 * time.Second,
		Aggregation:       models.AggregateSum,
		ForecastHorizon:   5 * time.Minute,
		ApplyDeadline:     2 * time.Minute,
	}
}

type loopFixture struct {
	loop   *FleetLoop
	source *telemetry.MockSource
	exec   *captureExecutor
	bus    *events.EventBus
}

func newLoopFixture(t *testing.T) *loopFixture {
	t.Helper()

	source := telemetry.NewMockSource(telemetry.MockSourceConfig{BaseLoad: 0.3, Variance: 0.01})
	source.SetInstanceCount("web", 5)

	exec := &captureExecutor{}
	bus := events.NewEventBus(100)
	t.Cleanup(bus.Close)

	policy := testLoopPolicy()
	loop := NewFleetLoop(LoopConfig{
		FleetID:      "web",
		TickInterval: time.Hour, // ticks are driven manually
		Policies: PolicyFunc(func(string) *models.ScalingPolicy {
			return &policy
		}),
		Source:     source,
		Executor:   exec,
		Publisher:  events.NewPublisher(bus),
		Ingest:     ingest.New(ingest.Config{WindowSize: 120}),
		Analyzer:   analyzer.New(analyzer.Config{UtilizationWeight: 1.0}),
		Forecaster: forecast.New(forecast.Config{TickInterval: 30 * time.Second}),
		Engine:     decision.NewEngine(),
		Scorer:     elasticity.New(elasticity.Config{}),
	})

	return &loopFixture{loop: loop, source: source, exec: exec, bus: bus}
}

func drainEvents(ch <-chan *models.Event) []*models.Event {
	var out []*models.Event
	for {
		select {
		case event := <-ch:
			out = append(out, event)
		default:
			return out
		}
	}
}

func TestTick_BalancedFleetHolds(t *testing.T) {
	f := newLoopFixture(t)
	decisions := f.bus.Subscribe(models.EventTypeDecisionMade)

	f.loop.tick()

	dec := f.loop.LastDecision()
	require.NotNil(t, dec)
	assert.Equal(t, models.ActionHold, dec.Action)
	assert.NotEmpty(t, dec.ID)
	assert.NotEmpty(t, dec.Reasoning)
	assert.Empty(t, f.exec.dispatched())
	assert.Len(t, drainEvents(decisions), 1)

	report := f.loop.LastReport()
	require.NotNil(t, report)
	assert.Greater(t, report.BalanceScore, 0.9)
}

func TestTick_HotspotDispatchesScaleUp(t *testing.T) {
	f := newLoopFixture(t)
	f.source.SetHotInstance(0, 0.95)

	// Hotspot detection debounces over two consecutive ticks.
	f.loop.tick()
	f.loop.tick()

	dispatched := f.exec.dispatched()
	require.Len(t, dispatched, 1)
	assert.Equal(t, models.ActionScaleUp, dispatched[0].Action)
	assert.Equal(t, "web", dispatched[0].FleetID)
	assert.NotEmpty(t, dispatched[0].ID)
	assert.Len(t, f.loop.pending, 1)
}

func TestTick_SkipsWhenBusy(t *testing.T) {
	f := newLoopFixture(t)
	skipped := f.bus.Subscribe(models.EventTypeTickSkipped)

	f.loop.busy.Store(true)
	f.loop.tick()

	assert.Len(t, drainEvents(skipped), 1)
	assert.Nil(t, f.loop.LastDecision())
}

func TestTick_NilPolicyReportsError(t *testing.T) {
	f := newLoopFixture(t)
	f.loop.cfg.Policies = PolicyFunc(func(string) *models.ScalingPolicy { return nil })
	errCh := f.bus.Subscribe(models.EventTypeError)

	f.loop.tick()

	errs := drainEvents(errCh)
	require.Len(t, errs, 1)
	assert.Nil(t, f.loop.LastDecision())
}

func TestTick_TelemetryFailureReportsError(t *testing.T) {
	f := newLoopFixture(t)
	f.source.SetShouldFail(true, nil)
	errCh := f.bus.Subscribe(models.EventTypeError)

	f.loop.tick()

	assert.Len(t, drainEvents(errCh), 1)
	assert.Nil(t, f.loop.LastDecision())
}

func TestOutcome_AppliedStartsCooldownAndScores(t *testing.T) {
	f := newLoopFixture(t)
	f.source.SetHotInstance(0, 0.95)
	outcomes := f.bus.Subscribe(models.EventTypeOutcomeReported)

	f.loop.tick()
	f.loop.tick()
	dispatched := f.exec.dispatched()
	require.Len(t, dispatched, 1)

	f.loop.ReportOutcome(models.OutcomeReport{
		DecisionID:  dispatched[0].ID,
		FleetID:     "web",
		Applied:     true,
		TimeToApply: 20 * time.Second,
		ReportedAt:  time.Now(),
	})

	// The inbox drains at the start of the next tick.
	f.loop.tick()

	assert.Empty(t, f.loop.pending)
	assert.Len(t, drainEvents(outcomes), 1)

	snap := f.loop.CooldownSnapshot(testLoopPolicy())
	assert.True(t, snap.UpActive)

	score := f.loop.Elasticity()
	assert.Equal(t, 1, score.SampleCount)
	assert.InDelta(t, 1.0, score.Reliability, 1e-9)
}

func TestOutcome_FailedApplyLeavesCooldownInactive(t *testing.T) {
	f := newLoopFixture(t)
	f.source.SetHotInstance(0, 0.95)

	f.loop.tick()
	f.loop.tick()
	dispatched := f.exec.dispatched()
	require.Len(t, dispatched, 1)

	f.loop.ReportOutcome(models.OutcomeReport{
		DecisionID: dispatched[0].ID,
		FleetID:    "web",
		Applied:    false,
		ReportedAt: time.Now(),
	})
	f.loop.tick()

	snap := f.loop.CooldownSnapshot(testLoopPolicy())
	assert.False(t, snap.UpActive, "a failed apply never started, so the direction stays retryable")

	score := f.loop.Elasticity()
	assert.Equal(t, 1, score.SampleCount)
	assert.InDelta(t, 0.0, score.Reliability, 1e-9)
}

func TestOutcome_UnknownDecisionDropped(t *testing.T) {
	f := newLoopFixture(t)
	outcomes := f.bus.Subscribe(models.EventTypeOutcomeReported)

	f.loop.ReportOutcome(models.OutcomeReport{
		DecisionID: "never-dispatched",
		FleetID:    "web",
		Applied:    true,
		ReportedAt: time.Now(),
	})
	f.loop.tick()

	assert.Empty(t, drainEvents(outcomes))
	assert.Equal(t, 0, f.loop.Elasticity().SampleCount)
}

func TestExpirePending_TimesOutMissingOutcomes(t *testing.T) {
	f := newLoopFixture(t)
	f.source.SetHotInstance(0, 0.95)
	timeouts := f.bus.Subscribe(models.EventTypeApplyTimeout)
	outcomes := f.bus.Subscribe(models.EventTypeOutcomeReported)

	f.loop.tick()
	f.loop.tick()
	require.Len(t, f.loop.pending, 1)

	f.loop.expirePending(time.Now().Add(3 * time.Minute))

	assert.Empty(t, f.loop.pending)
	assert.Len(t, drainEvents(timeouts), 1)
	assert.Len(t, drainEvents(outcomes), 1)

	score := f.loop.Elasticity()
	assert.Equal(t, 1, score.SampleCount)
	assert.InDelta(t, 0.0, score.Reliability, 1e-9)

	// An apply may still land after the deadline, so the direction cools
	// down as if it had been applied.
	snap := f.loop.CooldownSnapshot(testLoopPolicy())
	assert.True(t, snap.UpActive)
}

func TestStartStop(t *testing.T) {
	f := newLoopFixture(t)

	require.NoError(t, f.loop.Start())
	assert.True(t, f.loop.IsRunning())

	f.loop.Stop()
	assert.False(t, f.loop.IsRunning())
}
