package analyzer

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/fleetscale/fleetd/internal/logger"
	"github.com/fleetscale/fleetd/pkg/models"
)

type Config struct {
	HotspotFactor         float64
	HotspotDebounce       int
	UnderutilizedDebounce int
	UtilizationWeight     float64

	// DispersionFloor is the minimum stddev/mean ratio for outlier
	// detection to run. Below it the fleet counts as uniform: a relative
	// bar over negligible dispersion would turn sampling noise into
	// hotspot streaks.
	DispersionFloor float64
}

// Analyzer computes fleet-wide load distribution per tick: a balance score,
// a ranked hotspot list, and an underutilized list. Hotspot and
// underutilization flags are debounced across consecutive ticks so a single
// noisy sample never triggers a decision.
type Analyzer struct {
	config Config

	mu         sync.Mutex
	hotStreaks map[string]int
	lowStreaks map[string]int
}

type InstanceLoad struct {
	InstanceID string  `json:"instance_id"`
	Load       float64 `json:"load"`
	Streak     int     `json:"streak"`
}

// Report is the distribution signal for one tick. InsufficientFleet means
// fewer than two active instances existed, so no hotspot or underutilization
// detection ran; the decision engine treats that as "no signal", not an error.
type Report struct {
	FleetID           string         `json:"fleet_id"`
	Timestamp         time.Time      `json:"timestamp"`
	BalanceScore      float64        `json:"balance_score"`
	Mean              float64        `json:"mean"`
	StdDev            float64        `json:"std_dev"`
	Loads             []InstanceLoad `json:"loads"`
	Hotspots          []InstanceLoad `json:"hotspots"`
	Underutilized     []InstanceLoad `json:"underutilized"`
	InsufficientFleet bool           `json:"insufficient_fleet"`
}

func New(cfg Config) *Analyzer {
	if cfg.HotspotFactor == 0 {
		cfg.HotspotFactor = 1.5
	}
	if cfg.HotspotDebounce == 0 {
		cfg.HotspotDebounce = 2
	}
	if cfg.UnderutilizedDebounce == 0 {
		cfg.UnderutilizedDebounce = 5
	}
	if cfg.UtilizationWeight == 0 {
		cfg.UtilizationWeight = 0.7
	}
	if cfg.DispersionFloor == 0 {
		cfg.DispersionFloor = 0.05
	}

	return &Analyzer{
		config:     cfg,
		hotStreaks: make(map[string]int),
		lowStreaks: make(map[string]int),
	}
}

// Analyze reads the latest sample of every active instance from the snapshot
// and produces the tick's distribution report.
func (a *Analyzer) Analyze(fleetID string, snapshot map[string][]models.LoadSample, now time.Time) *Report {
	report := &Report{
		FleetID:      fleetID,
		Timestamp:    now,
		BalanceScore: 1.0,
	}

	report.Loads = a.instanceLoads(snapshot)
	if len(report.Loads) < 2 {
		report.InsufficientFleet = true
		a.resetStreaksExcept(report.Loads)
		logger.WithFleet(fleetID).Debug("InsufficientFleetSize: distribution signal suppressed")
		return report
	}

	mean, stddev := meanStdDev(report.Loads)
	report.Mean = mean
	report.StdDev = stddev
	report.BalanceScore = balanceScore(mean, stddev)

	// A near-uniform fleet carries no outlier signal. Every instance is
	// within its bar, so all streaks restart.
	if stddev <= mean*a.config.DispersionFloor {
		a.resetStreaksExcept(nil)
		logger.WithFleet(fleetID).Debugf("Dispersion %.4f below floor, fleet uniform", stddev)
		return report
	}

	highBar := mean + a.config.HotspotFactor*stddev
	lowBar := mean - a.config.HotspotFactor*stddev

	a.mu.Lock()
	seen := make(map[string]bool, len(report.Loads))
	for idx := range report.Loads {
		load := &report.Loads[idx]
		seen[load.InstanceID] = true

		if load.Load > highBar {
			a.hotStreaks[load.InstanceID]++
		} else {
			delete(a.hotStreaks, load.InstanceID)
		}
		if load.Load < lowBar {
			a.lowStreaks[load.InstanceID]++
		} else {
			delete(a.lowStreaks, load.InstanceID)
		}

		if streak := a.hotStreaks[load.InstanceID]; streak >= a.config.HotspotDebounce {
			hot := *load
			hot.Streak = streak
			report.Hotspots = append(report.Hotspots, hot)
		}
		if streak := a.lowStreaks[load.InstanceID]; streak >= a.config.UnderutilizedDebounce {
			low := *load
			low.Streak = streak
			report.Underutilized = append(report.Underutilized, low)
		}
	}
	// Instances that left the fleet take their streaks with them.
	for id := range a.hotStreaks {
		if !seen[id] {
			delete(a.hotStreaks, id)
		}
	}
	for id := range a.lowStreaks {
		if !seen[id] {
			delete(a.lowStreaks, id)
		}
	}
	a.mu.Unlock()

	sort.Slice(report.Hotspots, func(i, j int) bool {
		return report.Hotspots[i].Load > report.Hotspots[j].Load
	})
	sort.Slice(report.Underutilized, func(i, j int) bool {
		return report.Underutilized[i].Load < report.Underutilized[j].Load
	})

	logger.WithFleet(fleetID).Debugf(
		"Analyzed: balance=%.3f mean=%.3f hotspots=%d underutilized=%d",
		report.BalanceScore, mean, len(report.Hotspots), len(report.Underutilized),
	)

	return report
}

// instanceLoads blends utilization and request rate into one load fraction
// per instance, using the latest sample of each window. Request rates are
// normalized against the busiest instance so the blend stays in [0,1].
func (a *Analyzer) instanceLoads(snapshot map[string][]models.LoadSample) []InstanceLoad {
	var maxRate float64
	latest := make(map[string]models.LoadSample, len(snapshot))
	for id, window := range snapshot {
		s := window[len(window)-1]
		latest[id] = s
		if s.RequestRate > maxRate {
			maxRate = s.RequestRate
		}
	}

	loads := make([]InstanceLoad, 0, len(latest))
	w := a.config.UtilizationWeight
	for id, s := range latest {
		load := w * s.Utilization()
		if maxRate > 0 {
			load += (1 - w) * (s.RequestRate / maxRate)
		} else {
			load += (1 - w) * s.Utilization()
		}
		loads = append(loads, InstanceLoad{InstanceID: id, Load: load})
	}

	sort.Slice(loads, func(i, j int) bool {
		if loads[i].Load != loads[j].Load {
			return loads[i].Load > loads[j].Load
		}
		return loads[i].InstanceID < loads[j].InstanceID
	})
	return loads
}

func (a *Analyzer) resetStreaksExcept(loads []InstanceLoad) {
	a.mu.Lock()
	defer a.mu.Unlock()

	seen := make(map[string]bool, len(loads))
	for _, l := range loads {
		seen[l.InstanceID] = true
	}
	for id := range a.hotStreaks {
		if !seen[id] {
			delete(a.hotStreaks, id)
		}
	}
	for id := range a.lowStreaks {
		if !seen[id] {
			delete(a.lowStreaks, id)
		}
	}
}

// HotStreak reports the current consecutive-tick hotspot count for an
// instance, mainly for tests and the dashboard API.
func (a *Analyzer) HotStreak(instanceID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hotStreaks[instanceID]
}

func meanStdDev(loads []InstanceLoad) (float64, float64) {
	var sum float64
	for _, l := range loads {
		sum += l.Load
	}
	mean := sum / float64(len(loads))

	var sq float64
	for _, l := range loads {
		d := l.Load - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(loads)))
}

// balanceScore is 1.0 for a perfectly even fleet and decreases with
// dispersion. A fleet with no traffic is trivially balanced.
func balanceScore(mean, stddev float64) float64 {
	if mean == 0 {
		return 1.0
	}
	score := 1 - stddev/mean
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
