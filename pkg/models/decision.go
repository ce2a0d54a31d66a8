package models

import "time"

type ScalingAction string

const (
	ActionScaleUp   ScalingAction = "scale_up"
	ActionScaleDown ScalingAction = "scale_down"
	ActionHold      ScalingAction = "hold"
)

type RuleVerdict string

const (
	VerdictMatched  RuleVerdict = "matched"
	VerdictNoMatch  RuleVerdict = "no_match"
	VerdictRejected RuleVerdict = "rejected"
	VerdictClamped  RuleVerdict = "clamped"
)

// ReasonEntry is one step of a decision's reasoning trail. Every rule the
// engine evaluated appears here, not only the winner.
type ReasonEntry struct {
	Rule    string      `json:"rule"`
	Verdict RuleVerdict `json:"verdict"`
	Detail  string      `json:"detail"`
}

// ScalingDecision is the engine's output for one tick. It is created once
// per decision cycle and never mutated after creation; the orchestrator
// assigns the ID when the decision is dispatched.
type ScalingDecision struct {
	ID               string        `json:"id,omitempty"`
	FleetID          string        `json:"fleet_id"`
	Action           ScalingAction `json:"action"`
	Magnitude        int           `json:"magnitude"`
	Confidence       float64       `json:"confidence"`
	Reasoning        []ReasonEntry `json:"reasoning"`
	GeneratedAt      time.Time     `json:"generated_at"`
	CurrentInstances int           `json:"current_instances"`
}

func (d *ScalingDecision) ShouldDispatch() bool {
	return d.Action != ActionHold && d.Magnitude > 0
}

// TargetInstances is the instance count the decision aims for.
func (d *ScalingDecision) TargetInstances() int {
	switch d.Action {
	case ActionScaleUp:
		return d.CurrentInstances + d.Magnitude
	case ActionScaleDown:
		return d.CurrentInstances - d.Magnitude
	default:
		return d.CurrentInstances
	}
}
