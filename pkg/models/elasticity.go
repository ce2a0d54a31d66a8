package models

import "time"

// ElasticityRecord captures how one applied decision actually performed.
// TimedOut marks decisions whose outcome was never reported before the
// policy deadline; they count as failures for the reliability component.
type ElasticityRecord struct {
	DecisionID   string        `json:"decision_id"`
	FleetID      string        `json:"fleet_id"`
	Action       ScalingAction `json:"action"`
	Applied      bool          `json:"applied"`
	TimedOut     bool          `json:"timed_out"`
	TimeToApply  time.Duration `json:"time_to_apply"`
	ErrorDelta   float64       `json:"error_delta"`
	LatencyDelta float64       `json:"latency_delta"`
	RecordedAt   time.Time     `json:"recorded_at"`
}

// ElasticityScore is the rolling composite measure of past scaling
// performance, with its component breakdown for the dashboard query.
type ElasticityScore struct {
	Overall     float64   `json:"overall"`
	Speed       float64   `json:"speed"`
	Reliability float64   `json:"reliability"`
	Stability   float64   `json:"stability"`
	Efficiency  float64   `json:"efficiency"`
	SampleCount int       `json:"sample_count"`
	ComputedAt  time.Time `json:"computed_at"`
}
