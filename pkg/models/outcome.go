package models

import "time"

// OutcomeReport is the executor's asynchronous report for one dispatched
// decision.
type OutcomeReport struct {
	DecisionID            string        `json:"decision_id"`
	FleetID               string        `json:"fleet_id"`
	Applied               bool          `json:"applied"`
	TimeToApply           time.Duration `json:"time_to_apply"`
	PostApplyErrorDelta   float64       `json:"post_apply_error_delta"`
	PostApplyLatencyDelta float64       `json:"post_apply_latency_delta"`
	ReportedAt            time.Time     `json:"reported_at"`
}
