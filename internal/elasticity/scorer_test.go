package elasticity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fleetscale/fleetd/pkg/models"
)

var scoreTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func appliedRecord(id string, timeToApply time.Duration) models.ElasticityRecord {
	return models.ElasticityRecord{
		DecisionID:  id,
		FleetID:     "web",
		Action:      models.ActionScaleUp,
		Applied:     true,
		TimeToApply: timeToApply,
		RecordedAt:  scoreTime,
	}
}

func TestScore_EmptyWindowIsNeutral(t *testing.T) {
	s := New(Config{})

	score := s.Score(scoreTime)
	assert.Equal(t, 0, score.SampleCount)
	assert.InDelta(t, 1.0, score.Overall, 1e-9)
	assert.InDelta(t, 1.0, score.Speed, 1e-9)
	assert.InDelta(t, 1.0, score.Reliability, 1e-9)
	assert.InDelta(t, 1.0, score.Stability, 1e-9)
	assert.InDelta(t, 1.0, score.Efficiency, 1e-9)

	assert.InDelta(t, 1.0, s.Trust(scoreTime), 1e-9, "untried fleet gets full trust")
}

func TestScore_SpeedComponent(t *testing.T) {
	tests := []struct {
		name string
		rec  models.ElasticityRecord
		want float64
	}{
		{name: "faster than reference caps at one", rec: appliedRecord("d1", 30*time.Second), want: 1.0},
		{name: "slower than reference decays", rec: appliedRecord("d2", 120*time.Second), want: 0.5},
		{name: "timeout scores zero", rec: models.ElasticityRecord{
			DecisionID: "d3", FleetID: "web", Action: models.ActionScaleUp,
			TimedOut: true, RecordedAt: scoreTime,
		}, want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{SpeedRef: 60 * time.Second})
			s.Record(tt.rec)
			assert.InDelta(t, tt.want, s.Score(scoreTime).Speed, 1e-9)
		})
	}
}

func TestScore_ReliabilityIsSuccessFraction(t *testing.T) {
	s := New(Config{})
	s.Record(appliedRecord("d1", 30*time.Second))
	s.Record(appliedRecord("d2", 30*time.Second))
	s.Record(models.ElasticityRecord{
		DecisionID: "d3", FleetID: "web", Action: models.ActionScaleUp,
		Applied: false, RecordedAt: scoreTime,
	})
	s.Record(models.ElasticityRecord{
		DecisionID: "d4", FleetID: "web", Action: models.ActionScaleUp,
		Applied: true, TimedOut: true, RecordedAt: scoreTime,
	})

	assert.InDelta(t, 0.5, s.Score(scoreTime).Reliability, 1e-9)
}

func TestScore_StabilityComponent(t *testing.T) {
	tests := []struct {
		name       string
		errorDelta float64
		want       float64
	}{
		{name: "error rate improved", errorDelta: -0.01, want: 1.0},
		{name: "no regression", errorDelta: 0, want: 1.0},
		{name: "partial regression", errorDelta: 0.3, want: 0.7},
		{name: "full regression floors at zero", errorDelta: 1.5, want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{})
			rec := appliedRecord("d1", 30*time.Second)
			rec.ErrorDelta = tt.errorDelta
			s.Record(rec)
			assert.InDelta(t, tt.want, s.Score(scoreTime).Stability, 1e-9)
		})
	}
}

func TestScore_EfficiencyIsScaleDownFraction(t *testing.T) {
	s := New(Config{})
	s.Record(appliedRecord("d1", 30*time.Second))
	down := appliedRecord("d2", 30*time.Second)
	down.Action = models.ActionScaleDown
	s.Record(down)

	assert.InDelta(t, 0.5, s.Score(scoreTime).Efficiency, 1e-9)
}

func TestScore_WeightedOverall(t *testing.T) {
	s := New(Config{})
	rec := appliedRecord("d1", 60*time.Second)
	s.Record(rec)

	score := s.Score(scoreTime)
	// speed 1.0, reliability 1.0, stability 1.0, efficiency 0.0 with the
	// default 0.3/0.3/0.25/0.15 weights.
	assert.InDelta(t, 0.85, score.Overall, 1e-9)
}

func TestTrust_FloorsAtMinTrust(t *testing.T) {
	s := New(Config{MinTrust: 0.5})

	// A window of pure timeouts drives every component to zero except
	// stability.
	for i := 0; i < 5; i++ {
		s.Record(models.ElasticityRecord{
			DecisionID: "d", FleetID: "web", Action: models.ActionScaleUp,
			TimedOut: true, RecordedAt: scoreTime,
		})
	}

	score := s.Score(scoreTime)
	assert.InDelta(t, 0.25, score.Overall, 1e-9) // only stability survives

	trust := s.Trust(scoreTime)
	assert.InDelta(t, 0.5+0.5*0.25, trust, 1e-9)
	assert.GreaterOrEqual(t, trust, 0.5)
}

func TestRecord_PrunesBeyondRetention(t *testing.T) {
	s := New(Config{Retention: time.Hour})

	old := appliedRecord("d1", 30*time.Second)
	old.RecordedAt = scoreTime.Add(-2 * time.Hour)
	s.Record(old)

	fresh := appliedRecord("d2", 30*time.Second)
	fresh.RecordedAt = scoreTime
	s.Record(fresh)

	assert.Equal(t, 1, s.Score(scoreTime).SampleCount)
}
