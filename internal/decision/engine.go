package decision

import (
	"fmt"
	"time"

	"github.com/fleetscale/fleetd/internal/analyzer"
	"github.com/fleetscale/fleetd/internal/forecast"
	"github.com/fleetscale/fleetd/internal/guard"
	"github.com/fleetscale/fleetd/internal/logger"
	"github.com/fleetscale/fleetd/pkg/models"
)

// Input is everything one decision cycle sees. Cooldowns is the injected
// per-fleet state object: the engine snapshots it under its own lock, and
// transitions happen only through CooldownState.RecordApplied when the
// executor reports a successful apply.
type Input struct {
	FleetID         string
	Now             time.Time
	ActiveInstances int
	Policy          models.ScalingPolicy
	Distribution    *analyzer.Report
	Forecast        *forecast.Forecast
	Observed        models.FleetObservation
	Trust           float64
	Cooldowns       *models.CooldownState
}

// Engine runs the ordered rule chain once per tick. It is stateless between
// calls; the cooldown state machine lives in the injected CooldownState.
type Engine struct {
	rules []rule
}

func NewEngine() *Engine {
	return &Engine{rules: defaultRules()}
}

// Decide evaluates the rule chain in strict priority order. The first
// matching rule wins, every rule's verdict is recorded, and the winning
// proposal still has to pass the constraint guard: a rejection downgrades
// the decision to hold with the reason appended, never silently dropped.
func (e *Engine) Decide(in Input) *models.ScalingDecision {
	trust := in.Trust
	if trust <= 0 {
		trust = 1
	}
	in.Trust = trust

	decision := &models.ScalingDecision{
		FleetID:          in.FleetID,
		Action:           models.ActionHold,
		Confidence:       1.0,
		GeneratedAt:      in.Now,
		CurrentInstances: in.ActiveInstances,
	}

	var winner *proposal
	for _, r := range e.rules {
		if winner != nil {
			decision.Reasoning = append(decision.Reasoning, models.ReasonEntry{
				Rule:    r.name,
				Verdict: models.VerdictNoMatch,
				Detail:  "skipped: earlier rule matched",
			})
			continue
		}

		p, miss := r.eval(in)
		if p == nil {
			decision.Reasoning = append(decision.Reasoning, models.ReasonEntry{
				Rule:    r.name,
				Verdict: models.VerdictNoMatch,
				Detail:  miss,
			})
			continue
		}

		winner = p
		decision.Reasoning = append(decision.Reasoning, models.ReasonEntry{
			Rule:    r.name,
			Verdict: models.VerdictMatched,
			Detail:  p.detail,
		})
	}

	if winner == nil {
		decision.Reasoning = append(decision.Reasoning, models.ReasonEntry{
			Rule:    "hold",
			Verdict: models.VerdictMatched,
			Detail: fmt.Sprintf("no threshold exceeded: target %.2f, urgent margin %.2f, safety buffer %.2f",
				in.Policy.TargetUtilization, in.Policy.UrgentMargin, in.Policy.SafetyBuffer),
		})
		logger.WithFleet(in.FleetID).Debug("Decision: hold (no rule fired)")
		return decision
	}

	decision.Action = winner.action
	decision.Magnitude = winner.magnitude
	decision.Confidence = winner.confidence

	snap := in.Cooldowns.Snapshot(in.Now, in.Policy.ScaleUpCooldown, in.Policy.ScaleDownCooldown)
	verdict := guard.Evaluate(winner.action, winner.magnitude, in.ActiveInstances, in.Policy, snap)

	switch verdict.Status {
	case guard.Approved:
		decision.Reasoning = append(decision.Reasoning, models.ReasonEntry{
			Rule:    "constraint_guard",
			Verdict: models.VerdictMatched,
			Detail:  "approved",
		})

	case guard.Clamped:
		decision.Magnitude = verdict.AdjustedMagnitude
		decision.Reasoning = append(decision.Reasoning, models.ReasonEntry{
			Rule:    "constraint_guard",
			Verdict: models.VerdictClamped,
			Detail:  verdict.Detail,
		})

	case guard.Rejected:
		decision.Action = models.ActionHold
		decision.Magnitude = 0
		decision.Reasoning = append(decision.Reasoning, models.ReasonEntry{
			Rule:    "constraint_guard",
			Verdict: models.VerdictRejected,
			Detail:  fmt.Sprintf("%s: %s", verdict.Reason, verdict.Detail),
		})
	}

	logger.WithFleet(in.FleetID).Infof(
		"Decision: %s magnitude=%d confidence=%.2f (%s)",
		decision.Action, decision.Magnitude, decision.Confidence, verdict.Status,
	)

	return decision
}
