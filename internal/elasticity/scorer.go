package elasticity

import (
	"sync"
	"time"

	"github.com/fleetscale/fleetd/internal/logger"
	"github.com/fleetscale/fleetd/pkg/models"
)

type Config struct {
	Retention time.Duration
	SpeedRef  time.Duration
	MinTrust  float64

	SpeedWeight       float64
	ReliabilityWeight float64
	StabilityWeight   float64
	EfficiencyWeight  float64
}

// Scorer keeps a bounded trailing window of decision outcomes and computes
// the rolling elasticity score: how fast, reliable, stable, and proactive
// past scaling has been. The overall score feeds back into the decision
// engine as a trust discount on predictive scale-ups.
type Scorer struct {
	config Config

	mu      sync.Mutex
	records []models.ElasticityRecord
}

func New(cfg Config) *Scorer {
	if cfg.Retention == 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.SpeedRef == 0 {
		cfg.SpeedRef = 60 * time.Second
	}
	if cfg.MinTrust == 0 {
		cfg.MinTrust = 0.5
	}
	if cfg.SpeedWeight == 0 && cfg.ReliabilityWeight == 0 && cfg.StabilityWeight == 0 && cfg.EfficiencyWeight == 0 {
		cfg.SpeedWeight = 0.3
		cfg.ReliabilityWeight = 0.3
		cfg.StabilityWeight = 0.25
		cfg.EfficiencyWeight = 0.15
	}

	return &Scorer{config: cfg}
}

func (s *Scorer) Record(rec models.ElasticityRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)
	s.pruneLocked(rec.RecordedAt)

	logger.WithFleet(rec.FleetID).Debugf(
		"Elasticity record: decision=%s applied=%v timed_out=%v", rec.DecisionID, rec.Applied, rec.TimedOut,
	)
}

// Score computes the component breakdown over the retained window.
// With no history every component reports 1.0: an untried fleet is not
// penalized.
func (s *Scorer) Score(now time.Time) models.ElasticityScore {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)

	score := models.ElasticityScore{
		Overall:     1.0,
		Speed:       1.0,
		Reliability: 1.0,
		Stability:   1.0,
		Efficiency:  1.0,
		ComputedAt:  now,
	}
	if len(s.records) == 0 {
		return score
	}

	var speedSum, stabilitySum float64
	var successes, scaleDowns int
	for _, rec := range s.records {
		speedSum += s.speedComponent(rec)
		stabilitySum += stabilityComponent(rec)
		if rec.Applied && !rec.TimedOut {
			successes++
		}
		if rec.Action == models.ActionScaleDown {
			scaleDowns++
		}
	}

	n := float64(len(s.records))
	score.SampleCount = len(s.records)
	score.Speed = speedSum / n
	score.Reliability = float64(successes) / n
	score.Stability = stabilitySum / n
	score.Efficiency = float64(scaleDowns) / n

	cfg := s.config
	score.Overall = cfg.SpeedWeight*score.Speed +
		cfg.ReliabilityWeight*score.Reliability +
		cfg.StabilityWeight*score.Stability +
		cfg.EfficiencyWeight*score.Efficiency

	return score
}

// Trust maps the overall score into the [MinTrust, 1] discount applied to
// predictive scale-up confidence. No history means full trust.
func (s *Scorer) Trust(now time.Time) float64 {
	score := s.Score(now)
	if score.SampleCount == 0 {
		return 1.0
	}
	return s.config.MinTrust + (1-s.config.MinTrust)*score.Overall
}

// speed is the capped inverse of time-to-apply; timeouts score zero.
func (s *Scorer) speedComponent(rec models.ElasticityRecord) float64 {
	if rec.TimedOut || !rec.Applied || rec.TimeToApply <= 0 {
		return 0
	}
	v := float64(s.config.SpeedRef) / float64(rec.TimeToApply)
	if v > 1 {
		return 1
	}
	return v
}

// stability is one minus the post-apply error-rate regression; improvements
// count as fully stable.
func stabilityComponent(rec models.ElasticityRecord) float64 {
	delta := rec.ErrorDelta
	if delta <= 0 {
		return 1
	}
	if delta >= 1 {
		return 0
	}
	return 1 - delta
}

func (s *Scorer) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.config.Retention)
	kept := s.records[:0]
	for _, rec := range s.records {
		if rec.RecordedAt.After(cutoff) {
			kept = append(kept, rec)
		}
	}
	s.records = kept
}
