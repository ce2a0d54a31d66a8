package models

import "time"

type AggregationMode string

const (
	AggregateSum AggregationMode = "sum"
	AggregateMax AggregationMode = "max"
)

// ScalingPolicy is the per-fleet configuration loaded once per tick and
// treated as immutable within a decision cycle.
type ScalingPolicy struct {
	MinInstances      int           `json:"min_instances"`
	MaxInstances      int           `json:"max_instances"`
	ScaleUpCooldown   time.Duration `json:"scale_up_cooldown"`
	ScaleDownCooldown time.Duration `json:"scale_down_cooldown"`
	TargetUtilization float64       `json:"target_utilization"`

	SLAMaxLatencyMS    float64 `json:"sla_max_latency_ms"`
	SLAMinAvailability float64 `json:"sla_min_availability"`
	SLAMaxErrorRate    float64 `json:"sla_max_error_rate"`
	CostWeight         float64 `json:"cost_weight"`

	TickInterval    time.Duration   `json:"tick_interval"`
	UrgentMargin    float64         `json:"urgent_margin"`
	SafetyBuffer    float64         `json:"safety_buffer"`
	Aggregation     AggregationMode `json:"aggregation"`
	ForecastHorizon time.Duration   `json:"forecast_horizon"`
	ApplyDeadline   time.Duration   `json:"apply_deadline"`

	// SingleInstanceUrgent lets the reactive rule fire for one-instance
	// fleets, where no distribution signal exists.
	SingleInstanceUrgent bool `json:"single_instance_urgent"`
}
