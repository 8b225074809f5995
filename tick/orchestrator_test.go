package tick

import (
	"context"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/tailfin-motion/localplanner/kinodynamic"
	"github.com/tailfin-motion/localplanner/obstacle"
	"github.com/tailfin-motion/localplanner/planconfig"
	"github.com/tailfin-motion/localplanner/refline"
)

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

func TestTickEmitsCruiseTrajectoryWithNoObstacles(t *testing.T) {
	rl := straightRefLine(t)
	cfg := planconfig.Default()
	orch := NewOrchestrator(cfg, obstacle.NewRegistry(), golog.NewTestLogger(t))

	traj := orch.Tick(context.Background(), kinodynamic.State{X: 0, Y: 0, V: 5}, Lanes{Current: rl})
	test.That(t, len(traj.Points) > 1, test.ShouldBeTrue)
	// an empty straight road below TargetSpeed must cruise toward it, not
	// emergency-stop: the emergency-stop fallback never accelerates.
	first, last := traj.Points[0], traj.Points[len(traj.Points)-1]
	test.That(t, last.V, test.ShouldBeGreaterThan, first.V)
	test.That(t, last.V, test.ShouldBeLessThanOrEqualTo, cfg.TargetSpeed+1e-6)
}

func TestTickFallsBackToPreviousOnMissingReferenceLine(t *testing.T) {
	cfg := planconfig.Default()
	orch := NewOrchestrator(cfg, obstacle.NewRegistry(), golog.NewTestLogger(t))

	first := orch.Tick(context.Background(), kinodynamic.State{X: 0, Y: 0, V: 5}, Lanes{})
	test.That(t, len(first.Points), test.ShouldEqual, 0)
}

func TestTickEmitsEmergencyStopWhenObstacleBlocksEveryCandidate(t *testing.T) {
	rl := straightRefLine(t)
	cfg := planconfig.Default()
	registry := obstacle.NewRegistry()
	registry.Publish(obstacle.Snapshot{Agents: []obstacle.Agent{
		{ID: 1, X: 12, Y: 0, Length: 400, Width: 40, V: 0},
	}})
	orch := NewOrchestrator(cfg, registry, golog.NewTestLogger(t))

	traj := orch.Tick(context.Background(), kinodynamic.State{X: 0, Y: 0, V: 10}, Lanes{Current: rl})
	test.That(t, len(traj.Points) > 1, test.ShouldBeTrue)
	// an emergency stop candidate must not accelerate.
	last := traj.Points[len(traj.Points)-1]
	test.That(t, last.V, test.ShouldBeLessThanOrEqualTo, traj.Points[0].V+1e-6)
}
