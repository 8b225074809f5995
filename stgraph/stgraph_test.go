package stgraph

import (
	"testing"

	"go.viam.com/test"

	"github.com/tailfin-motion/localplanner/obstacle"
	"github.com/tailfin-motion/localplanner/refline"
)

func straightRefLine(t *testing.T) *refline.ReferenceLine {
	t.Helper()
	wps := make([]refline.RouteWaypoint, 50)
	for i := range wps {
		wps[i] = refline.RouteWaypoint{X: float64(i), Y: 0, LeftLaneWidth: 1.75, RightLaneWidth: 1.75}
	}
	rl, err := refline.New(refline.RouteResponse{Waypoints: wps})
	test.That(t, err, test.ShouldBeNil)
	return rl
}

func TestNewSTGraphMarksNearbyObstacles(t *testing.T) {
	rl := straightRefLine(t)
	agents := []obstacle.Agent{
		{ID: 1, X: 10, Y: 0.5},
		{ID: 2, X: 10, Y: 10},
	}
	g := NewSTGraph(rl, agents)
	test.That(t, g.IsObstacleInGraph(1), test.ShouldBeTrue)
	test.That(t, g.IsObstacleInGraph(2), test.ShouldBeFalse)
}

func TestBuildPredictedEnvironmentInflatesBoxes(t *testing.T) {
	cfg := Config{MaxLookaheadTime: 1.0, DeltaT: 0.5, LonSafetyBuffer: 0.5, LatSafetyBuffer: 0.3}
	agents := []obstacle.Agent{{ID: 1, X: 10, Y: 0, Theta: 0, Length: 4, Width: 2}}
	env := BuildPredictedEnvironment(cfg, agents)
	test.That(t, len(env.Boxes), test.ShouldEqual, 2)
	box := env.Boxes[0][0]
	test.That(t, box.Length, test.ShouldAlmostEqual, 4+2*0.5, 1e-9)
	test.That(t, box.Width, test.ShouldAlmostEqual, 2+2*0.3, 1e-9)
}

func TestFilterConsideredDropsBehindAndUnrelated(t *testing.T) {
	rl := straightRefLine(t)
	agents := []obstacle.Agent{
		{ID: 1, X: 2, Y: 0},
		{ID: 2, X: 20, Y: 0},
	}
	g := NewSTGraph(rl, agents)
	considered := FilterConsidered(agents, true, func(a obstacle.Agent) bool { return a.ID == 1 }, g)
	test.That(t, len(considered), test.ShouldEqual, 1)
	test.That(t, considered[0].ID, test.ShouldEqual, 2)
}
