package maneuver

import (
	"testing"

	"go.viam.com/test"

	"github.com/tailfin-motion/localplanner/kinodynamic"
	"github.com/tailfin-motion/localplanner/obstacle"
	"github.com/tailfin-motion/localplanner/refline"
)

func straightRefLine(t *testing.T, laneID int) *refline.ReferenceLine {
	t.Helper()
	wps := make([]refline.RouteWaypoint, 100)
	for i := range wps {
		wps[i] = refline.RouteWaypoint{X: float64(i), Y: 0, LaneID: laneID, LeftLaneWidth: 1.75, RightLaneWidth: 1.75}
	}
	rl, err := refline.New(refline.RouteResponse{Waypoints: wps})
	test.That(t, err, test.ShouldBeNil)
	return rl
}

func testConfig() Config {
	return Config{
		TargetSpeed:                               10,
		MaxLonVelocity:                             15,
		MaxLonAcc:                                  3,
		LonSafetyBuffer:                            5,
		MinLookaheadDist:                           10,
		MaxLookaheadDist:                           60,
		ManeuverExecuteTime:                        3,
		ManeuverForwardClearThreshold:              10,
		ManeuverBackwardClearThreshold:              5,
		ManeuverTargetLaneForwardClearThreshold:     10,
		ManeuverTargetLaneBackwardClearThreshold:    5,
		SafetyCostGain:                             1,
		EfficiencyCostGain:                         1,
		ComfortCostGain:                            1,
		LaneHalfWidth:                              1.75,
		MaxLonDecel:                                6,
		EgoLength:                                  4.5,
		IDMTimeGap:                                 1.5,
	}
}

func TestObstacleDecisionNoLeaderFollowsAtTargetSpeed(t *testing.T) {
	rl := straightRefLine(t, 0)
	cfg := testConfig()
	clear := LaneClearDistance{ForwardClear: 1e9, BackwardClear: 1e9, ForwardObstacleID: noObstacle, BackwardObstacleID: noObstacle}
	goal := ObstacleDecision(cfg, rl, 0, 10, clear)
	test.That(t, goal.Decision, test.ShouldEqual, DecisionFollowLane)
	test.That(t, goal.Infos[0].TargetSpeed, test.ShouldAlmostEqual, cfg.TargetSpeed, 1e-9)
}

func TestObstacleDecisionCloseLeaderTriggersEmergencyStop(t *testing.T) {
	rl := straightRefLine(t, 0)
	cfg := testConfig()
	clear := LaneClearDistance{ForwardClear: 2, BackwardClear: 1e9, ForwardObstacleID: 7, ForwardObstacleSpeed: 0, BackwardObstacleID: noObstacle}
	goal := ObstacleDecision(cfg, rl, 0, 10, clear)
	test.That(t, goal.Decision, test.ShouldEqual, DecisionEmergencyStop)
}

func TestObstacleDecisionFarLeaderFollowsAtLeaderSpeed(t *testing.T) {
	rl := straightRefLine(t, 0)
	cfg := testConfig()
	// leader within lookahead range but slower than target speed: IDMLonAcc
	// should shape a target speed below TargetSpeed, never above it or
	// negative.
	clear := LaneClearDistance{ForwardClear: 20, BackwardClear: 1e9, ForwardObstacleID: 7, ForwardObstacleSpeed: 4, ForwardObstacleLength: 4.5, BackwardObstacleID: noObstacle}
	goal := ObstacleDecision(cfg, rl, 0, 10, clear)
	test.That(t, goal.Decision, test.ShouldEqual, DecisionFollowLane)
	test.That(t, goal.Infos[0].TargetSpeed, test.ShouldBeLessThan, cfg.TargetSpeed)
	test.That(t, goal.Infos[0].TargetSpeed, test.ShouldBeGreaterThanOrEqualTo, 0.0)
}

func TestIDMLonAccDeceleratesWhenClosingOnSlowerLeader(t *testing.T) {
	cfg := IDMConfig{DesiredSpeed: 10, TimeGap: 1.5, MinGap: 2, MaxAcc: 3, ComfortDecel: 6, Delta: 4}
	acc := IDMLonAcc(10, 4, 0, 20, 4.5, 4.5, cfg)
	test.That(t, acc, test.ShouldBeLessThan, 0)
}

func TestIDMLonAccAcceleratesTowardDesiredSpeedWithNoLeader(t *testing.T) {
	cfg := IDMConfig{DesiredSpeed: 10, TimeGap: 1.5, MinGap: 2, MaxAcc: 3, ComfortDecel: 6, Delta: 4}
	acc := IDMLonAcc(5, 10, 0, 1e6, 4.5, 4.5, cfg)
	test.That(t, acc, test.ShouldBeGreaterThan, 0)
}

func TestGetLaneClearDistanceBandsByFrenetD(t *testing.T) {
	rl := straightRefLine(t, 0)
	cfg := testConfig()
	agents := []obstacle.Agent{
		{ID: 1, X: 20, Y: 0, V: 5},          // current lane, ahead
		{ID: 2, X: 20, Y: 3.5, V: 6},        // left lane, ahead
		{ID: 3, X: 2, Y: -3.5, V: 7},        // right lane, behind
	}
	projected := ProjectAgents(rl, agents)

	current := GetLaneClearDistance(LaneCurrent, cfg, 5, projected)
	test.That(t, current.ForwardObstacleID, test.ShouldEqual, 1)

	left := GetLaneClearDistance(LaneLeft, cfg, 5, projected)
	test.That(t, left.ForwardObstacleID, test.ShouldEqual, 2)

	right := GetLaneClearDistance(LaneRight, cfg, 5, projected)
	test.That(t, right.BackwardObstacleID, test.ShouldEqual, 3)
}

func TestSelectLanePrefersClearFastLane(t *testing.T) {
	cfg := testConfig()
	leadingVel := []float64{10, 2, 10}
	followingVel := []float64{10, 10, 10}
	leadingClear := []float64{100, 8, 100}
	followingClear := []float64{100, 100, 100}
	offset := SelectLane(cfg, 8, leadingVel, followingVel, leadingClear, followingClear)
	test.That(t, offset, test.ShouldEqual, -1)
}

func TestComfortCostInfiniteBeyondMaxAcceleration(t *testing.T) {
	cfg := testConfig()
	cost := ComfortCost(cfg, 20, 0, 6)
	test.That(t, cost, test.ShouldBeGreaterThan, 1e6)
}

func TestEfficiencyCostInfiniteAtMaxSpeed(t *testing.T) {
	cfg := testConfig()
	cost := EfficiencyCost(cfg.TargetSpeed, cfg.MaxLonVelocity, cfg.MaxLonVelocity)
	test.That(t, cost, test.ShouldBeGreaterThan, 1e6)
}

func TestTrafficLightDecisionStopsAtRed(t *testing.T) {
	rl := straightRefLine(t, 0)
	cfg := testConfig()
	lights := []obstacle.TrafficLightStatus{{LaneID: 0, Color: obstacle.TrafficLightRed, StopS: 30}}
	goal := TrafficLightDecision(cfg, rl, 10, lights, 0)
	test.That(t, goal.Decision, test.ShouldEqual, DecisionStopAtTrafficSign)
	test.That(t, goal.Infos[0].TargetS, test.ShouldAlmostEqual, 30.0, 1e-9)
}

func TestTrafficLightDecisionIgnoresLightBeyondLookahead(t *testing.T) {
	rl := straightRefLine(t, 0)
	cfg := testConfig()
	lights := []obstacle.TrafficLightStatus{{LaneID: 0, Color: obstacle.TrafficLightRed, StopS: 10 + cfg.MaxLookaheadDist + 1}}
	goal := TrafficLightDecision(cfg, rl, 10, lights, 0)
	test.That(t, goal.Decision, test.ShouldEqual, DecisionFollowLane)
}

func TestStopObstacleDecisionEmergencyStopsOnCloseFollower(t *testing.T) {
	rl := straightRefLine(t, 0)
	cfg := testConfig()
	clear := LaneClearDistance{
		ForwardClear: 1e9, ForwardObstacleID: noObstacle,
		BackwardClear: 2, BackwardObstacleID: 9, BackwardObstacleSpeed: 12,
	}
	goal := StopObstacleDecision(cfg, rl, 20, 0, clear)
	test.That(t, goal.Decision, test.ShouldEqual, DecisionEmergencyStop)
}

func TestCombineManeuverPrefersEmergencyStop(t *testing.T) {
	traffic := Goal{Decision: DecisionFollowLane}
	obstacleGoal := Goal{Decision: DecisionEmergencyStop}
	combined := CombineManeuver(traffic, obstacleGoal)
	test.That(t, combined.Decision, test.ShouldEqual, DecisionEmergencyStop)
}

func TestNextStateTransitions(t *testing.T) {
	test.That(t, NextState(StateFollowLane, DecisionChangeLeft), test.ShouldEqual, StateChangeLeftLane)
	test.That(t, NextState(StateChangeLeftLane, DecisionFollowLane), test.ShouldEqual, StateFollowLane)
	test.That(t, NextState(StateStop, DecisionEmergencyStop), test.ShouldEqual, StateEmergencyStop)
}

func TestFollowLaneObstacleGoalSkipsLaneChangeForFastLeader(t *testing.T) {
	rl := straightRefLine(t, 0)
	leftRl := straightRefLine(t, 1)
	cfg := testConfig()
	agents := []obstacle.Agent{{ID: 1, X: 20, Y: 0, V: 8}} // leader ahead, not much slower than ego.
	ctx := Context{
		Config:        cfg,
		EgoState:      kinodynamic.State{X: 0, Y: 0, V: 10},
		EgoS:          0,
		CurrentLaneID: 0,
		ReferenceLine: rl,
		LeftLane:      leftRl,
		World:         obstacle.Snapshot{Agents: agents},
	}
	goal := followLaneObstacleGoal(ctx)
	test.That(t, goal.Decision, test.ShouldEqual, DecisionFollowLane)
	test.That(t, len(goal.Infos), test.ShouldEqual, 1)
}

func TestFollowLaneObstacleGoalConsidersLaneChangeForSlowLeader(t *testing.T) {
	rl := straightRefLine(t, 0)
	leftRl := straightRefLine(t, 1)
	cfg := testConfig()
	// leader well within lookahead and much slower than ego (0.3*10 > 1):
	// gate is satisfied, so this must weigh a lane change rather than a
	// plain single-lane follow goal.
	agents := []obstacle.Agent{{ID: 1, X: 15, Y: 0, V: 1}}
	ctx := Context{
		Config:        cfg,
		EgoState:      kinodynamic.State{X: 0, Y: 0, V: 10},
		EgoS:          0,
		CurrentLaneID: 0,
		ReferenceLine: rl,
		LeftLane:      leftRl,
		World:         obstacle.Snapshot{Agents: agents},
	}
	goal := followLaneObstacleGoal(ctx)
	test.That(t, goal.Decision, test.ShouldEqual, DecisionChangeLeft)
}

func TestPlannerTickFollowsLaneWithNoObstacles(t *testing.T) {
	rl := straightRefLine(t, 0)
	planner := NewPlanner(nil)
	ctx := Context{
		Config:        testConfig(),
		EgoState:      kinodynamic.State{X: 0, Y: 0, V: 8},
		EgoS:          0,
		CurrentLaneID: 0,
		ReferenceLine: rl,
		World:         obstacle.Snapshot{},
	}
	goal := planner.Tick(ctx)
	test.That(t, goal.Decision, test.ShouldEqual, DecisionFollowLane)
	test.That(t, planner.CurrentState(), test.ShouldEqual, StateFollowLane)
}

func TestPlannerTickEntersStopStateAtRouteEnd(t *testing.T) {
	rl := straightRefLine(t, 0)
	planner := NewPlanner(nil)
	ctx := Context{
		Config:        testConfig(),
		EgoState:      kinodynamic.State{X: 90, Y: 0, V: 8},
		EgoS:          90,
		CurrentLaneID: 0,
		ReferenceLine: rl,
		World:         obstacle.Snapshot{},
	}
	goal := planner.Tick(ctx)
	test.That(t, goal.Decision, test.ShouldEqual, DecisionStopAtDestination)
	test.That(t, planner.CurrentState(), test.ShouldEqual, StateStop)
}
