// Package obstacle models the ego vehicle and other traffic agents ingested
// from odometry and perception messages (spec.md 6), grounded on
// original_source/vehicle_state/src/vehicle_state/vehicle_state.cpp.
package obstacle

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/tailfin-motion/localplanner/geometry"
	"github.com/tailfin-motion/localplanner/kinodynamic"
)

// VehicleParams is the ego vehicle's fixed geometric and kinematic
// envelope, derived once from wheel positions the way vehicle_state.cpp's
// constructor derives half_length/half_width/lr_/lf_/min_r_ from the
// simulator's vehicle info message.
type VehicleParams struct {
	Length, Width         float64
	HalfLength, HalfWidth float64
	// Lf, Lr are the distances from the vehicle's center of mass to the
	// front and rear axles, used by the kinematic bicycle model.
	Lf, Lr float64
	// AxleLength is Lf+Lr measured from the axle centers (not center of
	// mass), matching vehicle_state.cpp's axle_length_.
	AxleLength     float64
	MaxSteerAngle  float64
	MinTurnRadius  float64
}

// WheelPosition is a single wheel's lateral offset from the vehicle's
// longitudinal centerline, as reported by a simulator's vehicle-info
// message. Index 0/1 are the front wheels, 2/3 are the rear wheels,
// matching CARLA's wheel ordering that vehicle_state.cpp relies on.
type WheelPosition struct {
	X, Y          float64
	MaxSteerAngle float64
}

// VehicleInfo is the static vehicle description message the simulator
// publishes once per session.
type VehicleInfo struct {
	Wheels           [4]WheelPosition
	CenterOfMassY    float64
	Length, Width    float64
}

// DeriveVehicleParams computes VehicleParams from a VehicleInfo the way
// vehicle_state.cpp's constructor does: half-dimensions from the shape
// message, Lf/Lr from wheel-to-center-of-mass distances, and minimum turn
// radius from axle length and max steer angle.
func DeriveVehicleParams(info VehicleInfo) VehicleParams {
	frontAxleToCenter := math.Abs(info.Wheels[0].Y)
	backAxleToCenter := math.Abs(info.Wheels[3].Y)
	axleLength := frontAxleToCenter + backAxleToCenter
	maxSteer := 0.5 * (info.Wheels[0].MaxSteerAngle + info.Wheels[1].MaxSteerAngle)

	var minR float64
	if t := math.Tan(maxSteer); math.Abs(t) > 1e-9 {
		minR = axleLength / t
	}

	return VehicleParams{
		Length:        info.Length,
		Width:         info.Width,
		HalfLength:    info.Length / 2,
		HalfWidth:     info.Width / 2,
		Lf:            math.Abs(info.Wheels[0].Y - info.CenterOfMassY),
		Lr:            math.Abs(info.Wheels[3].Y - info.CenterOfMassY),
		AxleLength:    axleLength,
		MaxSteerAngle: maxSteer,
		MinTurnRadius: minR,
	}
}

// Pose is a 2D rigid-body pose plus a timestamp origin, the shape an
// odometry message reports.
type Pose struct {
	X, Y, Z float64
	Theta   float64
}

// Twist is a linear/angular velocity plus a linear acceleration, matching
// what a simulator or IMU-fused odometry message carries.
type Twist struct {
	V, Omega    float64
	AX, AY      float64
}

// Odometry is the ego vehicle's pose, velocity, and acceleration message.
type Odometry struct {
	Pose  Pose
	Twist Twist
}

// KinodynamicStateFromOdometry derives a kinodynamic.State the way
// vehicle_state.cpp's constructor does: it assumes negligible slip angle
// (velocity heading equals body heading), decomposes body-frame
// acceleration into longitudinal and centripetal components, and derives
// curvature from omega/v (zero below the near-stationary threshold).
func KinodynamicStateFromOdometry(odom Odometry) kinodynamic.State {
	theta := geometry.NormalizeAngle(odom.Pose.Theta)
	v := odom.Twist.V

	var kappa float64
	if math.Abs(v) >= 1e-6 {
		kappa = odom.Twist.Omega / v
	}

	cosTheta, sinTheta := math.Cos(theta), math.Sin(theta)
	a := odom.Twist.AX*cosTheta + odom.Twist.AY*sinTheta
	centripetalA := -odom.Twist.AX*sinTheta + odom.Twist.AY*cosTheta

	return kinodynamic.State{
		X: odom.Pose.X, Y: odom.Pose.Y, Z: odom.Pose.Z,
		Theta: theta, Kappa: kappa, V: v, A: a, CentripetalA: centripetalA,
	}
}

// RearAxleCenter shifts a pose reported at the vehicle's geometric center
// back to the rear-axle center vehicle_state.cpp actually tracks: the
// planner's kinematic bicycle model is referenced from the rear axle.
func RearAxleCenter(centerX, centerY, theta float64, params VehicleParams) (x, y float64) {
	x = centerX - params.Lr*math.Cos(theta)
	y = centerY - params.Lr*math.Sin(theta)
	return x, y
}

// EgoBox returns the ego vehicle's oriented footprint at the given
// rear-axle-referenced pose.
func EgoBox(x, y, theta float64, params VehicleParams) geometry.Box2D {
	box := geometry.NewBox2D(r2.Point{X: x, Y: y}, theta, params.Length, params.Width)
	return box.Shift(r2.Point{X: params.Lr * math.Cos(theta), Y: params.Lr * math.Sin(theta)})
}
