package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetscale/fleetd/pkg/models"
)

func fraction(v float64) *float64 {
	return &v
}

func validSample(instanceID string) models.RawSample {
	return models.RawSample{
		InstanceID:   instanceID,
		Timestamp:    time.Now(),
		RequestRate:  100,
		P95LatencyMS: 120,
		ErrorRate:    0.01,
		CPUFraction:  fraction(0.6),
	}
}

func TestRecord_RejectsMalformedSamples(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.RawSample)
	}{
		{
			name:   "missing instance id",
			mutate: func(s *models.RawSample) { s.InstanceID = "" },
		},
		{
			name:   "missing timestamp",
			mutate: func(s *models.RawSample) { s.Timestamp = time.Time{} },
		},
		{
			name: "no utilization metric",
			mutate: func(s *models.RawSample) {
				s.CPUFraction = nil
				s.MemoryFraction = nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := New(Config{})
			raw := validSample("i-1")
			tt.mutate(&raw)

			_, err := ing.Record(raw)

			require.ErrorIs(t, err, ErrMalformedSample)
			assert.Equal(t, 0, ing.WindowLen("i-1"))
		})
	}
}

func TestRecord_NormalizesPercentages(t *testing.T) {
	ing := New(Config{})

	raw := validSample("i-1")
	raw.CPUFraction = fraction(85.0)
	raw.MemoryFraction = fraction(0.4)

	sample, err := ing.Record(raw)
	require.NoError(t, err)

	assert.InDelta(t, 0.85, sample.CPU, 1e-9)
	assert.InDelta(t, 0.4, sample.Memory, 1e-9)
}

func TestRecord_ClampsOutOfRangeValues(t *testing.T) {
	ing := New(Config{})

	raw := validSample("i-1")
	raw.CPUFraction = fraction(250.0)
	raw.MemoryFraction = fraction(-0.3)
	raw.RequestRate = -5

	sample, err := ing.Record(raw)
	require.NoError(t, err)

	assert.Equal(t, 1.0, sample.CPU)
	assert.Equal(t, 0.0, sample.Memory)
	assert.Equal(t, 0.0, sample.RequestRate)
}

func TestRecord_EvictsOldestBeyondWindow(t *testing.T) {
	ing := New(Config{WindowSize: 3})

	for i := 0; i < 5; i++ {
		raw := validSample("i-1")
		raw.RequestRate = float64(i)
		_, err := ing.Record(raw)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, ing.WindowLen("i-1"))

	snapshot := ing.Snapshot([]string{"i-1"})
	window := snapshot["i-1"]
	require.Len(t, window, 3)
	assert.Equal(t, 2.0, window[0].RequestRate)
	assert.Equal(t, 4.0, window[2].RequestRate)
}

func TestSnapshot_ReturnsCopies(t *testing.T) {
	ing := New(Config{})
	_, err := ing.Record(validSample("i-1"))
	require.NoError(t, err)

	first := ing.Snapshot([]string{"i-1"})
	first["i-1"][0].RequestRate = -999

	second := ing.Snapshot([]string{"i-1"})
	assert.Equal(t, 100.0, second["i-1"][0].RequestRate)
}

func TestSnapshot_OmitsUnknownInstances(t *testing.T) {
	ing := New(Config{})
	_, err := ing.Record(validSample("i-1"))
	require.NoError(t, err)

	snapshot := ing.Snapshot([]string{"i-1", "i-2"})

	assert.Contains(t, snapshot, "i-1")
	assert.NotContains(t, snapshot, "i-2")
}

func TestForget_DropsWindow(t *testing.T) {
	ing := New(Config{})
	_, err := ing.Record(validSample("i-1"))
	require.NoError(t, err)

	ing.Forget("i-1")

	assert.Equal(t, 0, ing.WindowLen("i-1"))
}

func TestUtilization_BindingResource(t *testing.T) {
	s := models.LoadSample{CPU: 0.3, Memory: 0.8}
	assert.Equal(t, 0.8, s.Utilization())

	s = models.LoadSample{CPU: 0.9, Memory: 0.2}
	assert.Equal(t, 0.9, s.Utilization())
}
