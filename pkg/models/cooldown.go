package models

import (
	"sync"
	"time"
)

// CooldownState is the engine's only cross-tick mutable state: when each
// scaling direction last had a decision applied. The two directions are
// independent and may be in cooldown at the same time. All access goes
// through this type's methods so the decision read and the apply-callback
// write are serialized.
type CooldownState struct {
	mu            sync.Mutex
	lastScaleUp   time.Time
	lastScaleDown time.Time
}

// CooldownSnapshot is an immutable view of the cooldown state for one
// decision cycle.
type CooldownSnapshot struct {
	UpActive      bool          `json:"up_active"`
	DownActive    bool          `json:"down_active"`
	UpRemaining   time.Duration `json:"up_remaining"`
	DownRemaining time.Duration `json:"down_remaining"`
}

func NewCooldownState() *CooldownState {
	return &CooldownState{}
}

func (c *CooldownState) Snapshot(now time.Time, upCooldown, downCooldown time.Duration) CooldownSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := CooldownSnapshot{}
	if !c.lastScaleUp.IsZero() {
		if elapsed := now.Sub(c.lastScaleUp); elapsed < upCooldown {
			snap.UpActive = true
			snap.UpRemaining = upCooldown - elapsed
		}
	}
	if !c.lastScaleDown.IsZero() {
		if elapsed := now.Sub(c.lastScaleDown); elapsed < downCooldown {
			snap.DownActive = true
			snap.DownRemaining = downCooldown - elapsed
		}
	}
	return snap
}

// RecordApplied transitions the state machine for one successfully applied
// decision. Recommendations that were never applied must not be recorded.
func (c *CooldownState) RecordApplied(action ScalingAction, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch action {
	case ActionScaleUp:
		if at.After(c.lastScaleUp) {
			c.lastScaleUp = at
		}
	case ActionScaleDown:
		if at.After(c.lastScaleDown) {
			c.lastScaleDown = at
		}
	}
}

func (c *CooldownState) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastScaleUp = time.Time{}
	c.lastScaleDown = time.Time{}
}
