package maneuver

import (
	"math"

	"github.com/tailfin-motion/localplanner/obstacle"
	"github.com/tailfin-motion/localplanner/refline"
)

// Config carries the tunable thresholds follow_lane.cpp reads off
// PlanningConfig::Instance() throughout its decision logic.
type Config struct {
	TargetSpeed    float64
	MaxLonVelocity float64
	MaxLonAcc      float64
	// MaxLonDecel is IDMLonAcc's comfortable-deceleration parameter when
	// ObstacleDecision shapes a follow-leader target speed.
	MaxLonDecel float64

	LonSafetyBuffer     float64
	MinLookaheadDist    float64
	MaxLookaheadDist    float64
	ManeuverExecuteTime float64

	ManeuverForwardClearThreshold            float64
	ManeuverBackwardClearThreshold           float64
	ManeuverTargetLaneForwardClearThreshold  float64
	ManeuverTargetLaneBackwardClearThreshold float64

	SafetyCostGain     float64
	EfficiencyCostGain float64
	ComfortCostGain    float64

	// LaneHalfWidth estimates the current lane's half-width for banding
	// Frenet d into left/current/right lanes when a dedicated per-lane
	// reference line isn't available (see LaneClearDistance).
	LaneHalfWidth float64

	// EgoLength and IDMTimeGap feed IDMLonAcc's gap term when
	// ObstacleDecision has a forward leader to follow.
	EgoLength  float64
	IDMTimeGap float64
}

// LaneClearDistance is the forward/backward gap to the nearest agent in one
// lane, and the IDs and speeds of those bounding agents (-1 ID means none),
// matching what follow_lane.cpp's GetLaneClearDistance computes per lane
// offset.
type LaneClearDistance struct {
	ForwardClear, BackwardClear                   float64
	ForwardObstacleID, BackwardObstacleID         int
	ForwardObstacleSpeed, BackwardObstacleSpeed   float64
	ForwardObstacleLength, BackwardObstacleLength float64
}

const noObstacle = -1

// GetLaneClearDistance scans agents for the closest one ahead and behind
// egoS within the Frenet-d band for the given lane offset. Lane banding by
// d (rather than a dedicated per-offset reference line) is a deliberate
// simplification: Frenet d already encodes which lane a point falls in
// relative to the current lane's centerline, so banding by
// [-offset*2h-h, -offset*2h+h] (h = LaneHalfWidth) reads off the same
// left/current/right partition the original derives from lane topology.
func GetLaneClearDistance(offset LaneOffset, cfg Config, egoS float64, agents []obstacle.Agent) LaneClearDistance {
	h := cfg.LaneHalfWidth
	if h <= 0 {
		h = 1.75
	}
	// LaneOffset is signed left-negative (LaneLeft=-1) while Frenet d is
	// signed left-positive, so the band center takes the opposite sign of
	// offset.
	center := -float64(offset) * 2 * h
	lo, hi := center-h, center+h

	result := LaneClearDistance{
		ForwardClear:          math.Inf(1),
		BackwardClear:         math.Inf(1),
		ForwardObstacleID:     noObstacle,
		BackwardObstacleID:    noObstacle,
	}

	// caller is expected to have already projected agent (s, d) via the
	// reference line; here we take pre-projected pairs to keep this
	// package independent of any one reference line's projection cost.
	for _, a := range agents {
		s, d, ok := a.ProjectedS, a.ProjectedD, a.Projected
		if !ok {
			continue
		}
		if d < lo || d > hi {
			continue
		}
		if s >= egoS {
			if gap := s - egoS; gap < result.ForwardClear {
				result.ForwardClear = gap
				result.ForwardObstacleID = a.ID
				result.ForwardObstacleSpeed = a.V
				result.ForwardObstacleLength = a.Length
			}
		} else {
			if gap := egoS - s; gap < result.BackwardClear {
				result.BackwardClear = gap
				result.BackwardObstacleID = a.ID
				result.BackwardObstacleSpeed = a.V
				result.BackwardObstacleLength = a.Length
			}
		}
	}
	return result
}

// ObstacleDecision is FollowLane::ObstacleDecision transliterated: given the
// ego vehicle's Frenet s and speed on the current reference line and the
// current lane's clear distances, decide whether to keep following the
// lane, stop at the route's end, or emergency stop for an imminent hazard.
func ObstacleDecision(cfg Config, rl *refline.ReferenceLine, egoS, egoVel float64, current LaneClearDistance) Goal {
	refLen := rl.Length()
	lookahead := clamp(current.ForwardClear-cfg.LonSafetyBuffer, cfg.MinLookaheadDist, cfg.MaxLookaheadDist)

	if current.ForwardObstacleID == noObstacle {
		if egoS+lookahead > refLen {
			return stopGoal(rl, refLen, DecisionStopAtDestination)
		}
		return followGoal(rl, cfg.TargetSpeed, egoS+lookahead)
	}

	if current.ForwardClear < cfg.LonSafetyBuffer {
		targetS := egoS + current.ForwardClear
		return Goal{
			Decision: DecisionEmergencyStop,
			Infos: []LaneManeuverInfo{{
				TargetS: targetS, HasStopPoint: true, ReferenceLine: rl,
				LaneID: nearestLane(rl, targetS),
			}},
		}
	}

	if lookahead >= cfg.MaxLookaheadDist {
		if egoS+lookahead > refLen {
			return stopGoal(rl, refLen, DecisionStopAtDestination)
		}
		return followGoal(rl, cfg.TargetSpeed, egoS+lookahead)
	}

	targetSpeed := idmFollowSpeed(cfg, egoS, egoVel, current)
	if egoS+lookahead >= refLen {
		return stopGoal(rl, refLen, DecisionStopAtDestination)
	}
	return followGoal(rl, targetSpeed, math.Min(egoS+lookahead, refLen))
}

// idmFollowSpeed shapes a one-cycle target speed against the forward leader
// via IDMLonAcc: integrate its acceleration over ManeuverExecuteTime and
// clamp to [0, min(MaxLonVelocity, TargetSpeed)], never exceeding what the
// leader itself allows a following vehicle to reach comfortably.
func idmFollowSpeed(cfg Config, egoS, egoVel float64, current LaneClearDistance) float64 {
	idmCfg := IDMConfig{
		DesiredSpeed: cfg.TargetSpeed,
		TimeGap:      cfg.IDMTimeGap,
		MinGap:       cfg.LonSafetyBuffer,
		MaxAcc:       cfg.MaxLonAcc,
		ComfortDecel: cfg.MaxLonDecel,
		Delta:        4,
	}
	leadingS := egoS + current.ForwardClear
	acc := IDMLonAcc(egoVel, current.ForwardObstacleSpeed, egoS, leadingS, cfg.EgoLength, current.ForwardObstacleLength, idmCfg)
	speed := egoVel + acc*cfg.ManeuverExecuteTime
	maxSpeed := math.Min(cfg.MaxLonVelocity, cfg.TargetSpeed)
	return clamp(speed, 0, maxSpeed)
}

// StopObstacleDecision is stop_state.cpp's own ObstacleDecision, distinct
// from FollowLane's: it additionally checks the backward clear distance
// (a vehicle stopped in lane is vulnerable to being rear-ended) and never
// considers a lane change, matching the original's narrower Stop-state
// scope.
func StopObstacleDecision(cfg Config, rl *refline.ReferenceLine, egoS, egoVel float64, current LaneClearDistance) Goal {
	if current.ForwardObstacleID != noObstacle && current.ForwardClear < cfg.LonSafetyBuffer {
		return Goal{
			Decision: DecisionEmergencyStop,
			Infos: []LaneManeuverInfo{{
				TargetS: egoS + current.ForwardClear, HasStopPoint: true, ReferenceLine: rl,
				LaneID: nearestLane(rl, egoS+current.ForwardClear),
			}},
		}
	}
	if current.BackwardObstacleID != noObstacle && current.BackwardClear < cfg.LonSafetyBuffer {
		return Goal{
			Decision: DecisionEmergencyStop,
			Infos: []LaneManeuverInfo{{
				TargetS: egoS, HasStopPoint: true, ReferenceLine: rl,
				LaneID: nearestLane(rl, egoS),
			}},
		}
	}
	return ObstacleDecision(cfg, rl, egoS, egoVel, current)
}

func stopGoal(rl *refline.ReferenceLine, targetS float64, decision DecisionType) Goal {
	return Goal{
		Decision: decision,
		Infos: []LaneManeuverInfo{{
			TargetS: targetS, HasStopPoint: true, ReferenceLine: rl,
			LaneID: nearestLane(rl, targetS),
		}},
	}
}

func followGoal(rl *refline.ReferenceLine, targetSpeed, targetS float64) Goal {
	return Goal{
		Decision: DecisionFollowLane,
		Infos: []LaneManeuverInfo{{
			TargetSpeed: targetSpeed, HasStopPoint: false, ReferenceLine: rl,
			LaneID: nearestLane(rl, targetS),
		}},
	}
}

func nearestLane(rl *refline.ReferenceLine, s float64) int {
	wp, err := rl.NearestWayPoint(clampS(s, rl))
	if err != nil {
		return 0
	}
	return wp.LaneID
}

func clampS(s float64, rl *refline.ReferenceLine) float64 {
	if s < 0 {
		return 0
	}
	if l := rl.Length(); s > l {
		return l
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TrafficLightDecision scopes a stop to a red/yellow light's stop line only
// when it lies within cfg.MaxLookaheadDist of the ego vehicle: a red light
// many lanes away should never trigger a stop decision this cycle.
func TrafficLightDecision(cfg Config, rl *refline.ReferenceLine, egoS float64, lights []obstacle.TrafficLightStatus, laneID int) Goal {
	for _, tl := range lights {
		if tl.LaneID != laneID {
			continue
		}
		if tl.Color == obstacle.TrafficLightGreen || tl.Color == obstacle.TrafficLightUnknown {
			continue
		}
		if tl.StopS >= egoS && tl.StopS-egoS <= cfg.MaxLookaheadDist {
			return stopGoal(rl, tl.StopS, DecisionStopAtTrafficSign)
		}
	}
	return Goal{Decision: DecisionFollowLane, Infos: []LaneManeuverInfo{{ReferenceLine: rl, LaneID: laneID, TargetSpeed: cfg.TargetSpeed}}}
}

// ChangeLaneDecision is FollowLane::ChangeLaneDecision transliterated:
// decide whether the ego vehicle should change left, change right, or stay
// in lane given clear-distance readings for the current, left, and right
// lanes.
func ChangeLaneDecision(
	cfg Config,
	egoS, egoVel float64,
	current, left, right LaneClearDistance,
	hasLeftLane, hasRightLane bool,
	currentLaneID int,
) Goal {
	canChangeLeft := hasLeftLane && canChangeToLane(cfg, egoVel, current, left)
	canChangeRight := hasRightLane && canChangeToLane(cfg, egoVel, current, right)

	if current.ForwardClear < cfg.ManeuverForwardClearThreshold ||
		current.BackwardClear < cfg.ManeuverBackwardClearThreshold {
		canChangeLeft, canChangeRight = false, false
	}

	switch {
	case !canChangeLeft && !canChangeRight:
		return Goal{
			Decision: DecisionFollowLane,
			Infos: []LaneManeuverInfo{{
				LaneID:      currentLaneID,
				TargetSpeed: math.Min(cfg.TargetSpeed, safeSpeed(current.ForwardObstacleSpeed, cfg.TargetSpeed)),
			}},
		}
	case canChangeLeft && !canChangeRight:
		return Goal{
			Decision: DecisionChangeLeft,
			Infos: []LaneManeuverInfo{
				{LaneID: currentLaneID, TargetSpeed: safeSpeed(current.ForwardObstacleSpeed, cfg.TargetSpeed)},
				{LaneID: currentLaneID - 1, TargetSpeed: safeSpeed(left.ForwardObstacleSpeed, cfg.TargetSpeed)},
			},
		}
	case canChangeRight && !canChangeLeft:
		return Goal{
			Decision: DecisionChangeRight,
			Infos: []LaneManeuverInfo{
				{LaneID: currentLaneID, TargetSpeed: safeSpeed(current.ForwardObstacleSpeed, cfg.TargetSpeed)},
				{LaneID: currentLaneID + 1, TargetSpeed: safeSpeed(right.ForwardObstacleSpeed, cfg.TargetSpeed)},
			},
		}
	default:
		return selectAmongThree(cfg, egoS, egoVel, currentLaneID, current, left, right)
	}
}

func canChangeToLane(cfg Config, egoVel float64, current, target LaneClearDistance) bool {
	if target.BackwardClear <= cfg.ManeuverTargetLaneBackwardClearThreshold ||
		target.ForwardClear <= cfg.ManeuverTargetLaneForwardClearThreshold {
		return false
	}
	if target.ForwardObstacleID == noObstacle {
		return true
	}
	leadingVel := target.ForwardObstacleSpeed
	if target.BackwardObstacleID == noObstacle {
		return leadingVel > math.Min(egoVel, cfg.TargetSpeed)
	}
	followVel := target.BackwardObstacleSpeed
	return followVel < math.Min(cfg.TargetSpeed, leadingVel)
}

func safeSpeed(obstacleVel, targetSpeed float64) float64 {
	if obstacleVel <= 0 {
		return targetSpeed
	}
	return math.Min(obstacleVel, targetSpeed)
}

func selectAmongThree(cfg Config, egoS, egoVel float64, currentLaneID int, current, left, right LaneClearDistance) Goal {
	leadingVel := []float64{
		defaultSpeed(left.ForwardObstacleID, left.ForwardObstacleSpeed, cfg.TargetSpeed),
		defaultSpeed(current.ForwardObstacleID, current.ForwardObstacleSpeed, cfg.TargetSpeed),
		defaultSpeed(right.ForwardObstacleID, right.ForwardObstacleSpeed, cfg.TargetSpeed),
	}
	followingVel := []float64{
		defaultSpeed(left.BackwardObstacleID, left.BackwardObstacleSpeed, cfg.TargetSpeed),
		defaultSpeed(current.BackwardObstacleID, current.BackwardObstacleSpeed, cfg.TargetSpeed),
		defaultSpeed(right.BackwardObstacleID, right.BackwardObstacleSpeed, cfg.TargetSpeed),
	}
	leadingClear := []float64{left.ForwardClear, current.ForwardClear, right.ForwardClear}
	followingClear := []float64{left.BackwardClear, current.BackwardClear, right.BackwardClear}

	offset := SelectLane(cfg, egoVel, leadingVel, followingVel, leadingClear, followingClear)
	switch offset {
	case -1:
		return Goal{
			Decision: DecisionChangeLeft,
			Infos: []LaneManeuverInfo{
				{LaneID: currentLaneID, TargetSpeed: math.Min(leadingVel[1], cfg.TargetSpeed)},
				{LaneID: currentLaneID - 1, TargetSpeed: math.Min(leadingVel[0], cfg.TargetSpeed)},
			},
		}
	case 1:
		return Goal{
			Decision: DecisionChangeRight,
			Infos: []LaneManeuverInfo{
				{LaneID: currentLaneID, TargetSpeed: math.Min(leadingVel[1], cfg.TargetSpeed)},
				{LaneID: currentLaneID + 1, TargetSpeed: math.Min(leadingVel[2], cfg.TargetSpeed)},
			},
		}
	default:
		return Goal{
			Decision: DecisionFollowLane,
			Infos:    []LaneManeuverInfo{{LaneID: currentLaneID, TargetSpeed: math.Min(leadingVel[1], cfg.TargetSpeed)}},
		}
	}
}

func defaultSpeed(obstacleID int, speed, fallback float64) float64 {
	if obstacleID == noObstacle {
		return fallback
	}
	return speed
}

// SelectLane picks the lowest-cost lane among left(-1)/current(0)/right(1),
// weighting SafetyCost, EfficiencyCost, and ComfortCost by their configured
// gains, matching follow_lane.cpp's SelectLane.
func SelectLane(cfg Config, egoVel float64, leadingVel, followingVel, leadingClear, followingClear []float64) int {
	bestOffset := 0
	bestCost := math.Inf(1)
	for i := 0; i < len(leadingVel); i++ {
		safety := cfg.SafetyCostGain * SafetyCost(cfg, leadingVel[i], followingVel[i], leadingClear[i], followingClear[i])
		efficiency := cfg.EfficiencyCostGain * EfficiencyCost(cfg.TargetSpeed, leadingVel[i], cfg.MaxLonVelocity)
		comfort := cfg.ComfortCostGain * ComfortCost(cfg, egoVel, leadingVel[i], leadingClear[i])
		cost := safety + efficiency + comfort
		if cost < bestCost {
			bestCost = cost
			bestOffset = i - 1
		}
	}
	return bestOffset
}

// SafetyCost penalizes lanes whose combined clear length is small relative
// to the closing speed between the leading and following agents.
func SafetyCost(cfg Config, leadingVel, followingVel, leadingClear, followingClear float64) float64 {
	velDiff := leadingVel - followingVel
	clearLengthDiff := velDiff * cfg.ManeuverExecuteTime
	targetLaneClearLength := followingClear + leadingClear
	minClearLength := math.Max(1e-3, clearLengthDiff+targetLaneClearLength)
	threshold := cfg.ManeuverTargetLaneForwardClearThreshold + cfg.ManeuverTargetLaneBackwardClearThreshold
	return threshold / math.Min(minClearLength, threshold)
}

// EfficiencyCost penalizes lanes whose leading agent is far from a desired
// cruising speed just below the vehicle's maximum.
func EfficiencyCost(targetVel, leadingVel, maxVel float64) float64 {
	velBuffer := math.Max(maxVel-targetVel, 0.2)
	desiredVel := maxVel - velBuffer
	switch {
	case leadingVel < desiredVel:
		return (desiredVel - leadingVel) / desiredVel
	case leadingVel < maxVel:
		return (leadingVel - desiredVel) / velBuffer
	default:
		return math.Inf(1)
	}
}

// ComfortCost penalizes lanes that would require an uncomfortable
// acceleration to match the leading agent's speed within the available
// clear distance.
func ComfortCost(cfg Config, egoVel, leadingVel, forwardClear float64) float64 {
	denom := 2 * math.Max(1e-3, forwardClear-cfg.LonSafetyBuffer)
	acc := (leadingVel*leadingVel - egoVel*egoVel) / denom
	if math.Abs(acc) > cfg.MaxLonAcc {
		return math.Inf(1)
	}
	return math.Abs(acc) / cfg.MaxLonAcc
}

// IDMLonAcc is the Intelligent Driver Model longitudinal acceleration
// policy used to shape a following-lane target speed profile against a
// leading agent, resolving spec.md 9's IDM sign-convention open question as
// s_a = leadingS - egoS - leadingLength - egoLength/2 (positive when clear).
func IDMLonAcc(egoV, leadingV, egoS, leadingS, egoLength, leadingLength float64, cfg IDMConfig) float64 {
	sA := leadingS - egoS - leadingLength - egoLength/2
	if sA < 1e-3 {
		sA = 1e-3
	}
	deltaV := egoV - leadingV
	sStar := cfg.MinGap + math.Max(0, egoV*cfg.TimeGap+egoV*deltaV/(2*math.Sqrt(cfg.MaxAcc*cfg.ComfortDecel)))
	return cfg.MaxAcc * (1 - math.Pow(egoV/cfg.DesiredSpeed, cfg.Delta) - (sStar/sA)*(sStar/sA))
}

// IDMConfig parameterizes IDMLonAcc.
type IDMConfig struct {
	DesiredSpeed float64
	TimeGap      float64
	MinGap       float64
	MaxAcc       float64
	ComfortDecel float64
	Delta        float64
}
