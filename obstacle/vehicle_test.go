package obstacle

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func testVehicleInfo() VehicleInfo {
	return VehicleInfo{
		Wheels: [4]WheelPosition{
			{X: 1.4, Y: 0.8, MaxSteerAngle: 0.6},
			{X: 1.4, Y: -0.8, MaxSteerAngle: 0.6},
			{X: -1.4, Y: 0.8},
			{X: -1.4, Y: -0.8},
		},
		CenterOfMassY: 0,
		Length:        4.5,
		Width:         1.9,
	}
}

func TestDeriveVehicleParams(t *testing.T) {
	params := DeriveVehicleParams(testVehicleInfo())
	test.That(t, params.HalfLength, test.ShouldAlmostEqual, 2.25, 1e-9)
	test.That(t, params.HalfWidth, test.ShouldAlmostEqual, 0.95, 1e-9)
	test.That(t, params.AxleLength, test.ShouldAlmostEqual, 1.6, 1e-9)
	test.That(t, params.Lf, test.ShouldAlmostEqual, 0.8, 1e-9)
	test.That(t, params.Lr, test.ShouldAlmostEqual, 0.8, 1e-9)
	test.That(t, params.MaxSteerAngle, test.ShouldAlmostEqual, 0.6, 1e-9)
	test.That(t, params.MinTurnRadius, test.ShouldAlmostEqual, 1.6/math.Tan(0.6), 1e-9)
}

func TestKinodynamicStateFromOdometryZeroSlip(t *testing.T) {
	odom := Odometry{
		Pose:  Pose{X: 1, Y: 2, Theta: math.Pi / 2},
		Twist: Twist{V: 5, Omega: 1, AX: 0, AY: 2},
	}
	state := KinodynamicStateFromOdometry(odom)
	test.That(t, state.V, test.ShouldAlmostEqual, 5.0, 1e-9)
	test.That(t, state.Kappa, test.ShouldAlmostEqual, 0.2, 1e-9)
	test.That(t, state.A, test.ShouldAlmostEqual, 2.0, 1e-9)
	test.That(t, state.CentripetalA, test.ShouldAlmostEqual, 0.0, 1e-9)
}

func TestKinodynamicStateFromOdometryNearStationaryHasZeroCurvature(t *testing.T) {
	odom := Odometry{Twist: Twist{V: 1e-9, Omega: 5}}
	state := KinodynamicStateFromOdometry(odom)
	test.That(t, state.Kappa, test.ShouldAlmostEqual, 0.0, 1e-12)
}

func TestRegistryPublishAndSnapshot(t *testing.T) {
	r := NewRegistry()
	_, ready := r.Snapshot()
	test.That(t, ready, test.ShouldBeFalse)

	r.Publish(Snapshot{Agents: []Agent{{ID: 1}}})
	snap, ready := r.Snapshot()
	test.That(t, ready, test.ShouldBeTrue)
	test.That(t, len(snap.Agents), test.ShouldEqual, 1)
}

func TestTrajectoryBoxAtNearestSample(t *testing.T) {
	traj := Trajectory{Points: []TrajectoryPoint{
		{RelativeTime: 0, X: 0, Y: 0, Theta: 0},
		{RelativeTime: 1, X: 5, Y: 0, Theta: 0},
	}}
	box, ok := traj.BoxAt(0.9, 4, 2)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, box.Center.X, test.ShouldAlmostEqual, 5.0, 1e-9)
}
