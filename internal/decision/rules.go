package decision

import (
	"fmt"
	"math"

	"github.com/fleetscale/fleetd/pkg/models"
)

// proposal is what a rule suggests when it matches.
type proposal struct {
	action     models.ScalingAction
	magnitude  int
	confidence float64
	detail     string
}

// rule is one pure evaluator in the priority chain. It returns a proposal on
// match, or nil plus an explanation of why it did not fire.
type rule struct {
	name string
	eval func(in Input) (*proposal, string)
}

func defaultRules() []rule {
	return []rule{
		{name: "reactive_urgent_scale_up", eval: evalUrgentScaleUp},
		{name: "predictive_scale_up", eval: evalPredictiveScaleUp},
		{name: "cost_scale_down", eval: evalCostScaleDown},
	}
}

// evalUrgentScaleUp fires when a debounced hotspot runs past the urgent
// margin above target utilization. Single-instance fleets have no
// distribution signal; the policy flag lets the lone instance's own load
// stand in for it.
func evalUrgentScaleUp(in Input) (*proposal, string) {
	bar := in.Policy.TargetUtilization + in.Policy.UrgentMargin

	if in.Distribution == nil || in.Distribution.InsufficientFleet {
		if in.Policy.SingleInstanceUrgent && in.ActiveInstances == 1 &&
			in.Distribution != nil && len(in.Distribution.Loads) == 1 {
			load := in.Distribution.Loads[0]
			if load.Load > bar {
				return &proposal{
					action:     models.ActionScaleUp,
					magnitude:  sizeToTarget(in.ActiveInstances, load.Load, in.Policy.TargetUtilization),
					confidence: 0.9,
					detail:     fmt.Sprintf("single instance %s at %.2f exceeds %.2f", load.InstanceID, load.Load, bar),
				}, ""
			}
			return nil, fmt.Sprintf("single instance load %.2f within %.2f", load.Load, bar)
		}
		return nil, "no distribution signal"
	}

	for _, hot := range in.Distribution.Hotspots {
		if hot.Load > bar {
			return &proposal{
				action:     models.ActionScaleUp,
				magnitude:  sizeToTarget(in.ActiveInstances, in.Distribution.Mean, in.Policy.TargetUtilization),
				confidence: 0.9,
				detail: fmt.Sprintf("hotspot %s at %.2f exceeds target %.2f + margin %.2f (streak %d)",
					hot.InstanceID, hot.Load, in.Policy.TargetUtilization, in.Policy.UrgentMargin, hot.Streak),
			}, ""
		}
	}
	return nil, fmt.Sprintf("no hotspot above %.2f (%d hotspots)", bar, len(in.Distribution.Hotspots))
}

// evalPredictiveScaleUp fires when a confident forecast projects the
// aggregate load past target within the horizon. Its confidence carries the
// elasticity trust discount: fleets whose past forecast-driven decisions
// performed poorly act more conservatively on new forecasts.
func evalPredictiveScaleUp(in Input) (*proposal, string) {
	if in.Forecast == nil {
		return nil, "no forecast available"
	}
	if in.Forecast.Confidence < 0.6 {
		return nil, fmt.Sprintf("forecast confidence %.2f below 0.60", in.Forecast.Confidence)
	}

	var projectedPerInstance float64
	switch in.Policy.Aggregation {
	case models.AggregateMax:
		projectedPerInstance = in.Forecast.Projected
	default:
		if in.ActiveInstances > 0 {
			projectedPerInstance = in.Forecast.Projected / float64(in.ActiveInstances)
		}
	}
	if projectedPerInstance <= in.Policy.TargetUtilization {
		return nil, fmt.Sprintf("projected load %.2f within target %.2f", projectedPerInstance, in.Policy.TargetUtilization)
	}

	var magnitude int
	if in.Policy.Aggregation == models.AggregateMax {
		magnitude = sizeToTarget(in.ActiveInstances, in.Forecast.Projected, in.Policy.TargetUtilization)
	} else {
		desired := int(math.Ceil(in.Forecast.Projected / in.Policy.TargetUtilization))
		magnitude = desired - in.ActiveInstances
		if magnitude < 1 {
			magnitude = 1
		}
	}

	return &proposal{
		action:     models.ActionScaleUp,
		magnitude:  magnitude,
		confidence: in.Forecast.Confidence * 0.8 * in.Trust,
		detail: fmt.Sprintf("projected load %.2f exceeds target %.2f within %s (forecast confidence %.2f, trust %.2f)",
			projectedPerInstance, in.Policy.TargetUtilization, in.Forecast.Horizon, in.Forecast.Confidence, in.Trust),
	}, ""
}

// evalCostScaleDown retires at most one underutilized instance per tick, and
// only while the SLA margin leaves more headroom than the safety buffer.
func evalCostScaleDown(in Input) (*proposal, string) {
	if in.Policy.CostWeight <= 0 {
		return nil, "cost optimization disabled (cost_weight 0)"
	}
	if in.Distribution == nil || in.Distribution.InsufficientFleet {
		return nil, "no distribution signal"
	}
	if len(in.Distribution.Underutilized) == 0 {
		return nil, "no underutilized instances"
	}

	margin := in.Observed.SLAMargin(in.Policy)
	if margin <= in.Policy.SafetyBuffer {
		return nil, fmt.Sprintf("SLA margin %.2f within safety buffer %.2f", margin, in.Policy.SafetyBuffer)
	}

	// Never more than one instance per tick, to bound blast radius.
	return &proposal{
		action:     models.ActionScaleDown,
		magnitude:  1,
		confidence: 0.7,
		detail: fmt.Sprintf("%d underutilized instances, SLA margin %.2f above buffer %.2f",
			len(in.Distribution.Underutilized), margin, in.Policy.SafetyBuffer),
	}, ""
}

// sizeToTarget works out how many instances bring a load fraction back to
// target, rounding up so scale-up never under-provisions.
func sizeToTarget(current int, load, target float64) int {
	if target <= 0 || load <= 0 || current <= 0 {
		return 1
	}
	desired := int(math.Ceil(float64(current) * load / target))
	delta := desired - current
	if delta < 1 {
		return 1
	}
	return delta
}
