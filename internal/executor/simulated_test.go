package executor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetscale/fleetd/pkg/models"
)

type fakeResizer struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeResizer(counts map[string]int) *fakeResizer {
	return &fakeResizer{counts: counts}
}

func (r *fakeResizer) SetInstanceCount(fleetID string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[fleetID] = count
}

func (r *fakeResizer) InstanceCount(fleetID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[fleetID]
}

type outcomeCollector struct {
	mu      sync.Mutex
	reports []models.OutcomeReport
}

func (c *outcomeCollector) collect(report models.OutcomeReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, report)
}

func (c *outcomeCollector) all() []models.OutcomeReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.OutcomeReport(nil), c.reports...)
}

func scaleUpDecision(fleetID string, magnitude, current int) *models.ScalingDecision {
	return &models.ScalingDecision{
		ID:               models.NewUUID(),
		FleetID:          fleetID,
		Action:           models.ActionScaleUp,
		Magnitude:        magnitude,
		Confidence:       0.9,
		CurrentInstances: current,
		GeneratedAt:      time.Now(),
	}
}

func TestApply_ScaleUpResizesFleetAndReportsOutcome(t *testing.T) {
	resizer := newFakeResizer(map[string]int{"web": 3})
	collector := &outcomeCollector{}
	exec := NewSimulatedExecutor(SimulatedConfig{
		Resizer:       resizer,
		OnOutcome:     collector.collect,
		ProvisionTime: time.Millisecond,
		DrainTime:     time.Millisecond,
	})

	decision := scaleUpDecision("web", 2, 3)
	require.NoError(t, exec.Apply(context.Background(), decision))
	require.NoError(t, exec.Close())

	assert.Equal(t, 5, resizer.InstanceCount("web"))

	reports := collector.all()
	require.Len(t, reports, 1)
	assert.Equal(t, decision.ID, reports[0].DecisionID)
	assert.Equal(t, "web", reports[0].FleetID)
	assert.True(t, reports[0].Applied)
	assert.Greater(t, reports[0].TimeToApply, time.Duration(0))
}

func TestApply_ScaleDownResizesFleet(t *testing.T) {
	resizer := newFakeResizer(map[string]int{"web": 5})
	collector := &outcomeCollector{}
	exec := NewSimulatedExecutor(SimulatedConfig{
		Resizer:       resizer,
		OnOutcome:     collector.collect,
		ProvisionTime: time.Millisecond,
		DrainTime:     time.Millisecond,
	})

	decision := scaleUpDecision("web", 2, 5)
	decision.Action = models.ActionScaleDown

	require.NoError(t, exec.Apply(context.Background(), decision))
	require.NoError(t, exec.Close())

	assert.Equal(t, 3, resizer.InstanceCount("web"))
}

func TestApply_RejectsNonDispatchableDecisions(t *testing.T) {
	exec := NewSimulatedExecutor(SimulatedConfig{
		Resizer:       newFakeResizer(map[string]int{"web": 3}),
		ProvisionTime: time.Millisecond,
		DrainTime:     time.Millisecond,
	})
	defer exec.Close()

	tests := []struct {
		name     string
		decision *models.ScalingDecision
	}{
		{name: "nil decision", decision: nil},
		{name: "hold action", decision: &models.ScalingDecision{FleetID: "web", Action: models.ActionHold}},
		{name: "zero magnitude", decision: &models.ScalingDecision{FleetID: "web", Action: models.ActionScaleUp}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := exec.Apply(context.Background(), tt.decision)
			assert.ErrorIs(t, err, ErrInvalidDecision)
		})
	}
}

func TestApply_ScaleDownUnknownFleet(t *testing.T) {
	exec := NewSimulatedExecutor(SimulatedConfig{
		Resizer:       newFakeResizer(map[string]int{}),
		ProvisionTime: time.Millisecond,
		DrainTime:     time.Millisecond,
	})
	defer exec.Close()

	decision := scaleUpDecision("ghost", 1, 0)
	decision.Action = models.ActionScaleDown

	err := exec.Apply(context.Background(), decision)
	assert.ErrorIs(t, err, ErrFleetNotFound)
}

func TestApply_AlwaysFailingReportsNotApplied(t *testing.T) {
	resizer := newFakeResizer(map[string]int{"web": 3})
	collector := &outcomeCollector{}
	exec := NewSimulatedExecutor(SimulatedConfig{
		Resizer:       resizer,
		OnOutcome:     collector.collect,
		ProvisionTime: time.Millisecond,
		DrainTime:     time.Millisecond,
		FailureRate:   1.0,
	})

	require.NoError(t, exec.Apply(context.Background(), scaleUpDecision("web", 2, 3)))
	require.NoError(t, exec.Close())

	assert.Equal(t, 3, resizer.InstanceCount("web"), "failed apply leaves the fleet untouched")

	reports := collector.all()
	require.Len(t, reports, 1)
	assert.False(t, reports[0].Applied)
}

func TestApply_AfterCloseFails(t *testing.T) {
	exec := NewSimulatedExecutor(SimulatedConfig{
		Resizer:       newFakeResizer(map[string]int{"web": 3}),
		ProvisionTime: time.Millisecond,
		DrainTime:     time.Millisecond,
	})
	require.NoError(t, exec.Close())

	err := exec.Apply(context.Background(), scaleUpDecision("web", 1, 3))
	assert.ErrorIs(t, err, ErrApplyFailed)
}
