package guard

import (
	"fmt"

	"github.com/fleetscale/fleetd/pkg/models"
)

type Status string

const (
	Approved Status = "approved"
	Rejected Status = "rejected"
	Clamped  Status = "clamped"
)

type RejectionReason string

const (
	ReasonNone                  RejectionReason = ""
	ReasonMinInstancesViolation RejectionReason = "MinInstancesViolation"
	ReasonMaxInstancesViolation RejectionReason = "MaxInstancesViolation"
	ReasonCooldownActive        RejectionReason = "CooldownActive"
)

// Verdict is the guard's answer for one proposed decision.
type Verdict struct {
	Status            Status          `json:"status"`
	Reason            RejectionReason `json:"reason,omitempty"`
	AdjustedMagnitude int             `json:"adjusted_magnitude"`
	Detail            string          `json:"detail,omitempty"`
}

// Evaluate validates a proposed action against the policy bounds and the
// cooldown snapshot. It holds no state of its own: the cooldown view is
// passed in by the engine. A magnitude that would breach min/max is clamped
// to the boundary unless the boundary is already the current count, in which
// case the proposal is a rejected no-op.
func Evaluate(action models.ScalingAction, magnitude, current int, policy models.ScalingPolicy, cooldowns models.CooldownSnapshot) Verdict {
	switch action {
	case models.ActionScaleUp:
		return evaluateScaleUp(magnitude, current, policy, cooldowns)
	case models.ActionScaleDown:
		return evaluateScaleDown(magnitude, current, policy, cooldowns)
	default:
		return Verdict{Status: Approved, AdjustedMagnitude: 0}
	}
}

func evaluateScaleUp(magnitude, current int, policy models.ScalingPolicy, cooldowns models.CooldownSnapshot) Verdict {
	if cooldowns.UpActive {
		return Verdict{
			Status: Rejected,
			Reason: ReasonCooldownActive,
			Detail: fmt.Sprintf("scale-up cooldown active for %s", cooldowns.UpRemaining),
		}
	}
	if current >= policy.MaxInstances {
		return Verdict{
			Status: Rejected,
			Reason: ReasonMaxInstancesViolation,
			Detail: fmt.Sprintf("already at max instances (%d)", policy.MaxInstances),
		}
	}
	if current+magnitude > policy.MaxInstances {
		adjusted := policy.MaxInstances - current
		return Verdict{
			Status:            Clamped,
			AdjustedMagnitude: adjusted,
			Detail:            fmt.Sprintf("magnitude %d clamped to %d by max instances", magnitude, adjusted),
		}
	}
	return Verdict{Status: Approved, AdjustedMagnitude: magnitude}
}

func evaluateScaleDown(magnitude, current int, policy models.ScalingPolicy, cooldowns models.CooldownSnapshot) Verdict {
	if cooldowns.DownActive {
		return Verdict{
			Status: Rejected,
			Reason: ReasonCooldownActive,
			Detail: fmt.Sprintf("scale-down cooldown active for %s", cooldowns.DownRemaining),
		}
	}
	if current <= policy.MinInstances {
		return Verdict{
			Status: Rejected,
			Reason: ReasonMinInstancesViolation,
			Detail: fmt.Sprintf("already at min instances (%d)", policy.MinInstances),
		}
	}
	if current-magnitude < policy.MinInstances {
		adjusted := current - policy.MinInstances
		return Verdict{
			Status:            Clamped,
			AdjustedMagnitude: adjusted,
			Detail:            fmt.Sprintf("magnitude %d clamped to %d by min instances", magnitude, adjusted),
		}
	}
	return Verdict{Status: Approved, AdjustedMagnitude: magnitude}
}
