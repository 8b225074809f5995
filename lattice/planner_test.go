package lattice

import (
	"context"
	"math"
	"testing"

	"go.uber.org/zap"
	"go.viam.com/test"

	"github.com/golang/geo/r2"

	"github.com/tailfin-motion/localplanner/collision"
	"github.com/tailfin-motion/localplanner/geometry"
	"github.com/tailfin-motion/localplanner/kinodynamic"
	"github.com/tailfin-motion/localplanner/refline"
	"github.com/tailfin-motion/localplanner/sampler"
	"github.com/tailfin-motion/localplanner/stgraph"
)

// quietLogger suppresses the planner's own Warnw/Debugw chatter during
// stress tests that plan many candidates; only fatal-level output would
// surface, matching motionPlanner_test.go's fatal-level zap.Config.
var quietLogger, _ = zap.Config{
	Level:             zap.NewAtomicLevelAt(zap.FatalLevel),
	Encoding:          "console",
	DisableStacktrace: true,
}.Build()

func straightRefLine(t *testing.T) *refline.ReferenceLine {
	t.Helper()
	wps := make([]refline.RouteWaypoint, 200)
	for i := range wps {
		wps[i] = refline.RouteWaypoint{X: float64(i), Y: 0, LeftLaneWidth: 3.5, RightLaneWidth: 3.5}
	}
	rl, err := refline.New(refline.RouteResponse{Waypoints: wps})
	test.That(t, err, test.ShouldBeNil)
	return rl
}

func testConfig() Config {
	return Config{
		Weights: DefaultCostWeights(),
		EndConditions: sampler.Config{
			TimeHorizons:            []float64{3, 5, 7},
			LateralOffsets:          []float64{0},
			LateralDistanceHorizons: []float64{30, 50},
		},
		SampleDeltaT:     0.5,
		MaxSpeed:         20,
		MaxAcceleration:  3,
		MaxDeceleration:  6,
		MaxCurvature:     0.5,
		MaxJerk:          4.0,
		MaxLateralOffset: 2.05,
		EgoLength:        4.5,
		EgoWidth:         1.9,
		BackAxleToCenter: 1.4,
		TimeGap:          1.5,
		MinGap:           2.0,
	}
}

func TestPlanOnReferenceLinesCruiseNoObstacles(t *testing.T) {
	rl := straightRefLine(t)
	checker := collision.New(rl, stgraph.PredictedEnvironment{}, 4.5, 1.9, 1.4)
	planner := New(testConfig(), quietLogger.Sugar())

	initState := kinodynamic.State{X: 0, Y: 0, Theta: 0, V: 10}
	goal := ManeuverGoal{ReferenceLine: rl, Checker: checker, Decision: DecisionCruise, TargetSpeed: 12}

	res, err := planner.PlanOnReferenceLines(context.Background(), initState, 0, []ManeuverGoal{goal})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Best, test.ShouldNotBeNil)
	test.That(t, res.IsEmergencyStop, test.ShouldBeFalse)
	test.That(t, len(res.Best.Points) > 1, test.ShouldBeTrue)
}

func TestPlanOnReferenceLinesFallsBackToEmergencyStop(t *testing.T) {
	rl := straightRefLine(t)
	env := stgraph.PredictedEnvironment{
		DeltaT: 0.5,
	}
	for i := 0; i < 30; i++ {
		env.Boxes = append(env.Boxes, blockEverything())
	}
	checker := collision.New(rl, env, 4.5, 1.9, 1.4)
	planner := New(testConfig(), quietLogger.Sugar())

	initState := kinodynamic.State{X: 0, Y: 0, Theta: 0, V: 10}
	goal := ManeuverGoal{ReferenceLine: rl, Checker: checker, Decision: DecisionCruise, TargetSpeed: 12}

	res, err := planner.PlanOnReferenceLines(context.Background(), initState, 0, []ManeuverGoal{goal})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.IsEmergencyStop, test.ShouldBeTrue)
}

func TestGetInitConditionMatchesStartingS(t *testing.T) {
	rl := straightRefLine(t)
	sCond, dCond, err := GetInitCondition(rl, kinodynamic.State{X: 10, Y: 1.0, Theta: 0, V: 5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sCond.S, test.ShouldAlmostEqual, 10.0, 1e-6)
	test.That(t, dCond.D, test.ShouldAlmostEqual, 1.0, 1e-6)
}

func TestPlanOnReferenceLinesRejectsCandidatesThatLeaveTheRoad(t *testing.T) {
	rl := straightRefLine(t)
	checker := collision.New(rl, stgraph.PredictedEnvironment{}, 4.5, 1.9, 1.4)
	cfg := testConfig()
	cfg.EndConditions.LateralOffsets = []float64{4.0} // wider than MaxLateralOffset alone
	cfg.MaxLateralOffset = 2.05
	planner := New(cfg, quietLogger.Sugar())

	initState := kinodynamic.State{X: 0, Y: 0, Theta: 0, V: 10}
	goal := ManeuverGoal{ReferenceLine: rl, Checker: checker, Decision: DecisionCruise, TargetSpeed: 12}

	res, err := planner.PlanOnReferenceLines(context.Background(), initState, 0, []ManeuverGoal{goal})
	test.That(t, err, test.ShouldBeNil)
	// every sampled lateral offset leaves the road, so this reference line
	// falls back to the emergency stop the same as a fully blocked one.
	test.That(t, res.IsEmergencyStop, test.ShouldBeTrue)
}

// curvedRefLine builds a gentle circular-arc route (radius 200m), used to
// regression-test that lateral spatial derivatives (not time derivatives)
// are fed to frenet.FrenetToCartesian: feeding time derivatives inflates
// Kappa by a factor of roughly SDot^2, which at highway speed pushes every
// candidate on a curved route past MaxCurvature and forces an emergency
// stop even on an otherwise trivial cruise.
func curvedRefLine(t *testing.T) *refline.ReferenceLine {
	t.Helper()
	const radius = 200.0
	wps := make([]refline.RouteWaypoint, 200)
	for i := range wps {
		theta := float64(i) * 0.01
		wps[i] = refline.RouteWaypoint{
			X: radius * math.Sin(theta), Y: radius * (1 - math.Cos(theta)),
			LeftLaneWidth: 3.5, RightLaneWidth: 3.5,
		}
	}
	rl, err := refline.New(refline.RouteResponse{Waypoints: wps})
	test.That(t, err, test.ShouldBeNil)
	return rl
}

func TestPlanOnReferenceLinesCruisesOnCurvedRoute(t *testing.T) {
	rl := curvedRefLine(t)
	checker := collision.New(rl, stgraph.PredictedEnvironment{}, 4.5, 1.9, 1.4)
	planner := New(testConfig(), quietLogger.Sugar())

	initState := kinodynamic.State{X: 0, Y: 0, Theta: 0, V: 15}
	goal := ManeuverGoal{ReferenceLine: rl, Checker: checker, Decision: DecisionCruise, TargetSpeed: 15}

	res, err := planner.PlanOnReferenceLines(context.Background(), initState, 0, []ManeuverGoal{goal})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.IsEmergencyStop, test.ShouldBeFalse)
	test.That(t, res.Best, test.ShouldNotBeNil)
}

func blockEverything() []geometry.Box2D {
	return []geometry.Box2D{geometry.NewBox2D(r2.Point{X: 50, Y: 0}, 0, 500, 20)}
}
