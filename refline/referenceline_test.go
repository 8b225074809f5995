package refline

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.viam.com/test"
)

func straightRoute(n int, spacing float64) RouteResponse {
	wps := make([]RouteWaypoint, n)
	for i := 0; i < n; i++ {
		wps[i] = RouteWaypoint{
			X: float64(i) * spacing, Y: 0,
			LaneID: 1, RoadOption: RoadOptionLaneFollow,
			HasLeftLane: true, LeftLaneWidth: 1.75, RightLaneWidth: 1.75,
		}
	}
	return RouteResponse{Waypoints: wps}
}

func TestGetReferencePointInvariant(t *testing.T) {
	rl, err := New(straightRoute(20, 1.0))
	test.That(t, err, test.ShouldBeNil)

	for _, s := range []float64{0, 3.5, 10.0, 19.0} {
		rp, err := rl.GetReferencePoint(s)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, rp.S, test.ShouldAlmostEqual, s, 1e-6)
	}
}

func TestStraightLineHeadingAndCurvature(t *testing.T) {
	rl, err := New(straightRoute(10, 1.0))
	test.That(t, err, test.ShouldBeNil)
	rp, err := rl.GetReferencePoint(5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rp.Theta, test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, math.Abs(rp.Kappa) < 1e-9, test.ShouldBeTrue)
}

func TestXYToSLAndBackRoundTrips(t *testing.T) {
	rl, err := New(straightRoute(20, 1.0))
	test.That(t, err, test.ShouldBeNil)

	s, d, err := rl.XYToSL(5.0, 1.2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s, test.ShouldAlmostEqual, 5.0, 1e-6)
	test.That(t, d, test.ShouldAlmostEqual, 1.2, 1e-6)

	x, y, err := rl.SLToXY(s, d)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, x, test.ShouldAlmostEqual, 5.0, 1e-6)
	test.That(t, y, test.ShouldAlmostEqual, 1.2, 1e-6)
}

func TestGetMatchedPointFindsNearestSegment(t *testing.T) {
	rl, err := New(straightRoute(20, 1.0))
	test.That(t, err, test.ShouldBeNil)

	rp, s, err := rl.GetMatchedPoint(7.3, 0.5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s, test.ShouldAlmostEqual, 7.3, 1e-6)
	test.That(t, rp.Y, test.ShouldAlmostEqual, 0.0, 1e-6)
}

func TestLaneWidthAndIsOnLane(t *testing.T) {
	rl, err := New(straightRoute(10, 1.0))
	test.That(t, err, test.ShouldBeNil)

	left, right, err := rl.GetLaneWidth(3.0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, left, test.ShouldAlmostEqual, 1.75, 1e-9)
	test.That(t, right, test.ShouldAlmostEqual, 1.75, 1e-9)

	test.That(t, rl.IsOnLane(3.0, 1.0), test.ShouldBeTrue)
	test.That(t, rl.IsOnLane(3.0, 3.0), test.ShouldBeFalse)
}

func TestNewRejectsTooFewWaypoints(t *testing.T) {
	_, err := New(RouteResponse{Waypoints: []RouteWaypoint{{X: 0, Y: 0}}})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReferencePointsMatchGoldenValuesAlongStraightRoute(t *testing.T) {
	rl, err := New(straightRoute(10, 1.0))
	test.That(t, err, test.ShouldBeNil)

	var got []ReferencePoint
	for _, s := range []float64{0, 2, 4, 6, 8} {
		rp, err := rl.GetReferencePoint(s)
		test.That(t, err, test.ShouldBeNil)
		got = append(got, rp)
	}

	want := []ReferencePoint{
		{X: 0, Y: 0, Theta: 0, Kappa: 0, S: 0},
		{X: 2, Y: 0, Theta: 0, Kappa: 0, S: 2},
		{X: 4, Y: 0, Theta: 0, Kappa: 0, S: 4},
		{X: 6, Y: 0, Theta: 0, Kappa: 0, S: 6},
		{X: 8, Y: 0, Theta: 0, Kappa: 0, S: 8},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("reference points diverged from golden values (-want +got):\n%s", diff)
	}
}
