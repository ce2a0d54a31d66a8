package ingest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fleetscale/fleetd/internal/logger"
	"github.com/fleetscale/fleetd/pkg/models"
)

var ErrMalformedSample = errors.New("malformed sample")

const defaultWindowSize = 120

type Config struct {
	WindowSize int
}

// Ingest normalizes raw telemetry into canonical load samples and keeps a
// bounded FIFO window of them per instance.
type Ingest struct {
	mu         sync.Mutex
	windows    map[string][]models.LoadSample
	windowSize int
}

func New(cfg Config) *Ingest {
	size := cfg.WindowSize
	if size <= 0 {
		size = defaultWindowSize
	}
	return &Ingest{
		windows:    make(map[string][]models.LoadSample),
		windowSize: size,
	}
}

// Record validates and normalizes one raw sample and appends it to the
// instance's window. A sample missing its instance id, timestamp, or every
// utilization metric is dropped with ErrMalformedSample; the tick goes on.
func (i *Ingest) Record(raw models.RawSample) (*models.LoadSample, error) {
	if raw.InstanceID == "" {
		return nil, fmt.Errorf("%w: missing instance id", ErrMalformedSample)
	}
	if raw.Timestamp.IsZero() {
		return nil, fmt.Errorf("%w: missing timestamp", ErrMalformedSample)
	}
	if raw.CPUFraction == nil && raw.MemoryFraction == nil {
		return nil, fmt.Errorf("%w: no utilization metric", ErrMalformedSample)
	}

	sample := models.LoadSample{
		InstanceID:   raw.InstanceID,
		Timestamp:    raw.Timestamp,
		RequestRate:  raw.RequestRate,
		P95LatencyMS: raw.P95LatencyMS,
		ErrorRate:    normalizeFraction(raw.InstanceID, "error_rate", raw.ErrorRate),
	}
	if raw.CPUFraction != nil {
		sample.CPU = normalizeFraction(raw.InstanceID, "cpu", *raw.CPUFraction)
	}
	if raw.MemoryFraction != nil {
		sample.Memory = normalizeFraction(raw.InstanceID, "memory", *raw.MemoryFraction)
	}
	if sample.RequestRate < 0 {
		logClamped(raw.InstanceID, "request_rate", sample.RequestRate, 0)
		sample.RequestRate = 0
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	window := append(i.windows[raw.InstanceID], sample)
	if len(window) > i.windowSize {
		window = window[len(window)-i.windowSize:]
	}
	i.windows[raw.InstanceID] = window

	return &sample, nil
}

// Snapshot returns an immutable copy of the windows for the given instances.
// Instances without samples are omitted.
func (i *Ingest) Snapshot(instanceIDs []string) map[string][]models.LoadSample {
	i.mu.Lock()
	defer i.mu.Unlock()

	snapshot := make(map[string][]models.LoadSample, len(instanceIDs))
	for _, id := range instanceIDs {
		window := i.windows[id]
		if len(window) == 0 {
			continue
		}
		cp := make([]models.LoadSample, len(window))
		copy(cp, window)
		snapshot[id] = cp
	}
	return snapshot
}

// Forget drops an instance's window outright. History for instances that
// merely went offline is retained and evicted FIFO instead.
func (i *Ingest) Forget(instanceID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.windows, instanceID)
}

func (i *Ingest) WindowLen(instanceID string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.windows[instanceID])
}

// normalizeFraction maps heterogeneous units into the canonical [0,1] range.
// Values in (1,100] are treated as percentages; everything outside [0,1]
// after that is clamped, not rejected.
func normalizeFraction(instanceID, field string, v float64) float64 {
	if v > 1 && v <= 100 {
		v = v / 100
	}
	switch {
	case v < 0:
		logClamped(instanceID, field, v, 0)
		return 0
	case v > 1:
		logClamped(instanceID, field, v, 1)
		return 1
	}
	return v
}

func logClamped(instanceID, field string, got, clamped float64) {
	logger.WithField("instance_id", instanceID).Warnf(
		"ClampedValue: %s=%.3f out of range, clamped to %.1f", field, got, clamped,
	)
}
