package presence

import (
	"fmt"
	"time"

	"github.com/crewpulse/crewpulse/internal/config"
)

// Thresholds are the activity-age boundaries used to bucket a timestamp.
// The same thresholds apply to every agent in the fleet.
type Thresholds struct {
	Active  time.Duration // age < Active → active
	Idle    time.Duration // age < Idle → idle
	Stopped time.Duration // age < Stopped → offline with age; past it → stopped
}

// DefaultThresholds returns the service-wide thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Active:  config.ActiveThreshold,
		Idle:    config.IdleThreshold,
		Stopped: config.StoppedThreshold,
	}
}

// Evaluator computes a base presence state from an activity timestamp.
type Evaluator struct {
	thresholds Thresholds
}

// NewEvaluator creates an Evaluator with the given thresholds.
func NewEvaluator(t Thresholds) *Evaluator {
	return &Evaluator{thresholds: t}
}

// Evaluate classifies one agent. Rules apply in order, first match wins:
//
//  1. Gate closed → offline, regardless of anything else.
//  2. No activity data → the coordinator is presumed ready (it responds to
//     requests rather than generating activity); ordinary agents are idle.
//  3. Activity age against the thresholds.
//
// now is sampled once per snapshot cycle and shared across all agents so
// that agents evaluated microseconds apart cannot land in different buckets
// from clock drift.
func (e *Evaluator) Evaluate(lastActivity *time.Time, gatewayUp, coordinator bool, now time.Time) (State, string) {
	if !gatewayUp {
		return StateOffline, "system offline"
	}

	if lastActivity == nil {
		if coordinator {
			return StateActive, "coordinator, ready to respond"
		}
		return StateIdle, "idle, no data yet"
	}

	age := now.Sub(*lastActivity)
	// Whole minutes only, floored: the reason text must never name a
	// minute count past the bucket's own boundary.
	mins := int(age / time.Minute)

	switch {
	case age < e.thresholds.Active:
		if mins <= 0 {
			return StateActive, "active just now"
		}
		return StateActive, fmt.Sprintf("active %dm ago", mins)
	case age < e.thresholds.Idle:
		return StateIdle, fmt.Sprintf("idle for %dm", mins)
	case age < e.thresholds.Stopped:
		return StateOffline, fmt.Sprintf("no activity for %dm", mins)
	default:
		return StateOffline, "stopped"
	}
}
