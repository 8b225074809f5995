// Package maneuver implements the maneuver decision layer: a finite state
// machine over FollowLane / ChangeLeftLane / ChangeRightLane / Stop /
// EmergencyStop, plus the obstacle- and traffic-light-driven decision logic
// that drives transitions between them (spec.md 4.6 and 9), grounded on
// original_source/motion_planning/src/maneuver_planner/follow_lane.cpp and
// original_source/local_planner/src/maneuver_planner/stop_state.cpp.
//
// This package re-architects the original's State-pattern singleton
// dispatch (a shared mutable ManeuverPlanner pointer passed into
// Enter/Execute/Exit/NextState on process-lifetime State singletons) as a
// pure state machine: StateName is a tagged variant, and
// NextState is a pure function of the current state and a Decision — no
// package-level mutable state (spec.md 9's tagged-variant redesign note).
package maneuver

import "github.com/tailfin-motion/localplanner/refline"

// StateName identifies one state of the maneuver state machine.
type StateName int

const (
	StateFollowLane StateName = iota
	StateChangeLeftLane
	StateChangeRightLane
	StateStop
	StateEmergencyStop
)

func (s StateName) String() string {
	switch s {
	case StateFollowLane:
		return "FollowLane"
	case StateChangeLeftLane:
		return "ChangeLeftLane"
	case StateChangeRightLane:
		return "ChangeRightLane"
	case StateStop:
		return "Stop"
	case StateEmergencyStop:
		return "EmergencyStop"
	default:
		return "Unknown"
	}
}

// DecisionType is the outcome of a decision pass: what the maneuver planner
// wants the vehicle to do next.
type DecisionType int

const (
	DecisionFollowLane DecisionType = iota
	DecisionStopAtDestination
	DecisionStopAtTrafficSign
	DecisionEmergencyStop
	DecisionChangeLeft
	DecisionChangeRight
)

// LaneOffset identifies a lane relative to the ego vehicle's current lane.
type LaneOffset int

const (
	LaneLeft    LaneOffset = -1
	LaneCurrent LaneOffset = 0
	LaneRight   LaneOffset = 1
)

// LaneManeuverInfo is one target lane's worth of maneuver instruction: which
// lane, what speed or stop point to aim for, and (for the current lane)
// which reference line to plan on. A target lane's ReferenceLine is left
// nil until the lane change actually commits and a reference line for it is
// resolved (spec.md 9's ChangeLane completion note).
type LaneManeuverInfo struct {
	LaneID        int
	TargetSpeed   float64
	TargetS       float64
	HasStopPoint  bool
	ReferenceLine *refline.ReferenceLine
}

// Goal is a full decision-pass outcome: the chosen DecisionType plus one
// LaneManeuverInfo for the current lane, and (for a change-lane decision) a
// second for the target lane.
type Goal struct {
	Decision DecisionType
	Infos    []LaneManeuverInfo
}

// decisionPriority ranks decisions from most to least urgent, used by
// CombineManeuver to pick between the traffic-light and obstacle decision
// passes. The original's CombineManeuver body was not present in the
// recovered source; this priority order — emergency stop overrides any
// stop, a stop overrides a lane change, a lane change overrides plain lane
// following — is the natural safety-first reading of a two-input decision
// combiner and is documented as an explicit design decision.
func decisionPriority(d DecisionType) int {
	switch d {
	case DecisionEmergencyStop:
		return 4
	case DecisionStopAtTrafficSign, DecisionStopAtDestination:
		return 3
	case DecisionChangeLeft, DecisionChangeRight:
		return 2
	case DecisionFollowLane:
		return 1
	default:
		return 0
	}
}

// CombineManeuver picks the higher-priority of the traffic-light and
// obstacle decision passes. On a priority tie the more restrictive of the
// two wins: for a stop/stop tie the one that stops sooner, for a
// follow-lane/follow-lane tie the one asking the lower speed.
func CombineManeuver(traffic, obstacle Goal) Goal {
	tp, op := decisionPriority(traffic.Decision), decisionPriority(obstacle.Decision)
	if tp > op {
		return traffic
	}
	if op > tp {
		return obstacle
	}
	if moreRestrictive(obstacle, traffic) {
		return obstacle
	}
	return traffic
}

// moreRestrictive reports whether a is strictly more restrictive than b for
// same-priority Goals: a nearer stop point, or a lower requested speed.
func moreRestrictive(a, b Goal) bool {
	aTarget, aOK := firstInfo(a)
	bTarget, bOK := firstInfo(b)
	if !aOK || !bOK {
		return false
	}
	switch a.Decision {
	case DecisionStopAtTrafficSign, DecisionStopAtDestination, DecisionEmergencyStop:
		return aTarget.TargetS < bTarget.TargetS
	default:
		return aTarget.TargetSpeed < bTarget.TargetSpeed
	}
}

func firstInfo(g Goal) (LaneManeuverInfo, bool) {
	if len(g.Infos) == 0 {
		return LaneManeuverInfo{}, false
	}
	return g.Infos[0], true
}

// NextState is FollowLane/Stop's NextState: a pure function from the
// current state and a combined decision to the state to transition to.
func NextState(current StateName, decision DecisionType) StateName {
	switch decision {
	case DecisionStopAtDestination, DecisionStopAtTrafficSign:
		return StateStop
	case DecisionEmergencyStop:
		return StateEmergencyStop
	case DecisionChangeLeft:
		return StateChangeLeftLane
	case DecisionChangeRight:
		return StateChangeRightLane
	case DecisionFollowLane:
		return StateFollowLane
	default:
		return current
	}
}
