package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownSnapshot_InitiallyInactive(t *testing.T) {
	state := NewCooldownState()
	snap := state.Snapshot(time.Now(), 3*time.Minute, 10*time.Minute)

	assert.False(t, snap.UpActive)
	assert.False(t, snap.DownActive)
	assert.Zero(t, snap.UpRemaining)
	assert.Zero(t, snap.DownRemaining)
}

func TestCooldownState_DirectionsAreIndependent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := NewCooldownState()
	state.RecordApplied(ActionScaleUp, now)

	snap := state.Snapshot(now.Add(time.Minute), 3*time.Minute, 10*time.Minute)
	assert.True(t, snap.UpActive)
	assert.Equal(t, 2*time.Minute, snap.UpRemaining)
	assert.False(t, snap.DownActive)

	state.RecordApplied(ActionScaleDown, now.Add(time.Minute))
	snap = state.Snapshot(now.Add(2*time.Minute), 3*time.Minute, 10*time.Minute)
	assert.True(t, snap.UpActive)
	assert.True(t, snap.DownActive)
	assert.Equal(t, 9*time.Minute, snap.DownRemaining)
}

func TestCooldownState_ExpiresAfterWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := NewCooldownState()
	state.RecordApplied(ActionScaleUp, now)

	snap := state.Snapshot(now.Add(3*time.Minute+time.Second), 3*time.Minute, 10*time.Minute)
	assert.False(t, snap.UpActive)
}

func TestCooldownState_IgnoresOutOfOrderApplies(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := NewCooldownState()
	state.RecordApplied(ActionScaleUp, now)
	state.RecordApplied(ActionScaleUp, now.Add(-time.Hour))

	snap := state.Snapshot(now.Add(time.Minute), 3*time.Minute, 10*time.Minute)
	assert.True(t, snap.UpActive)
	assert.Equal(t, 2*time.Minute, snap.UpRemaining)
}

func TestCooldownState_HoldDoesNotTransition(t *testing.T) {
	now := time.Now()
	state := NewCooldownState()
	state.RecordApplied(ActionHold, now)

	snap := state.Snapshot(now, 3*time.Minute, 10*time.Minute)
	assert.False(t, snap.UpActive)
	assert.False(t, snap.DownActive)
}

func TestCooldownState_Reset(t *testing.T) {
	now := time.Now()
	state := NewCooldownState()
	state.RecordApplied(ActionScaleUp, now)
	state.RecordApplied(ActionScaleDown, now)

	state.Reset()
	snap := state.Snapshot(now, 3*time.Minute, 10*time.Minute)
	assert.False(t, snap.UpActive)
	assert.False(t, snap.DownActive)
}
