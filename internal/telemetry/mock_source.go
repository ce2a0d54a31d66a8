package telemetry

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/fleetscale/fleetd/pkg/models"
)

// MockSource synthesizes fleet telemetry with an adjustable load shape:
// a base utilization with noise, and optionally one instance pinned hot.
// Used by the demo mode and tests.
type MockSource struct {
	mu          sync.Mutex
	fleets      map[string]int
	baseLoad    float64
	baseRate    float64
	variance    float64
	hotInstance int
	hotLoad     float64
	shouldFail  bool
	failErr     error
}

type MockSourceConfig struct {
	BaseLoad float64
	BaseRate float64
	Variance float64
}

func NewMockSource(cfg MockSourceConfig) *MockSource {
	baseLoad := cfg.BaseLoad
	if baseLoad == 0 {
		baseLoad = 0.5
	}
	baseRate := cfg.BaseRate
	if baseRate == 0 {
		baseRate = 120.0
	}
	variance := cfg.Variance
	if variance == 0 {
		variance = 0.05
	}

	return &MockSource{
		fleets:      make(map[string]int),
		baseLoad:    baseLoad,
		baseRate:    baseRate,
		variance:    variance,
		hotInstance: -1,
	}
}

func (s *MockSource) SetInstanceCount(fleetID string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fleets[fleetID] = count
}

func (s *MockSource) InstanceCount(fleetID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fleets[fleetID]
}

func (s *MockSource) SetBaseLoad(load float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseLoad = load
}

// SetHotInstance pins one instance index at the given load to provoke a
// hotspot; a negative index clears it.
func (s *MockSource) SetHotInstance(index int, load float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hotInstance = index
	s.hotLoad = load
}

func (s *MockSource) SetShouldFail(shouldFail bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFail = shouldFail
	s.failErr = err
}

func (s *MockSource) Fetch(ctx context.Context, fleetID string) (*models.FleetSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shouldFail {
		if s.failErr != nil {
			return nil, s.failErr
		}
		return nil, ErrFetchFailed
	}

	count, exists := s.fleets[fleetID]
	if !exists {
		return nil, ErrFleetNotFound
	}

	now := time.Now()
	instances := make([]models.Instance, count)
	samples := make([]models.RawSample, count)

	for i := 0; i < count; i++ {
		load := s.jitter(s.baseLoad)
		if i == s.hotInstance {
			load = s.jitter(s.hotLoad)
		}

		id := fmt.Sprintf("%s-i-%d", fleetID, i)
		instances[i] = models.Instance{
			ID:           id,
			Status:       models.InstanceActive,
			Load:         load,
			LastSampleAt: now,
		}

		cpu := load
		mem := s.jitter(load * 0.9)
		samples[i] = models.RawSample{
			InstanceID:     id,
			Timestamp:      now,
			RequestRate:    s.baseRate * load,
			P95LatencyMS:   80 + 400*load*load,
			ErrorRate:      0.001 + 0.02*load*load,
			CPUFraction:    &cpu,
			MemoryFraction: &mem,
		}
	}

	return &models.FleetSnapshot{
		FleetID:   fleetID,
		Timestamp: now,
		Instances: instances,
		Samples:   samples,
	}, nil
}

func (s *MockSource) jitter(base float64) float64 {
	v := base + (rand.Float64()*2-1)*s.variance
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (s *MockSource) HealthCheck(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shouldFail {
		return ErrFetchFailed
	}
	return nil
}

func (s *MockSource) Close() error {
	return nil
}
