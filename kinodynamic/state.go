// Package kinodynamic holds the small value types shared by every layer of
// the planner: the ego/agent kinodynamic state and a path point on a curve.
// It has no dependencies on the rest of the module so that geometry, frenet,
// refline, and obstacle can all import it without cycles.
package kinodynamic

// State is the ego or agent kinodynamic state: pose, curvature, and signed
// longitudinal motion. v and a are signed along the heading direction.
type State struct {
	X, Y, Z       float64
	Theta         float64 // heading, radians, normalized to (-pi, pi]
	Kappa         float64 // curvature at the current pose
	V             float64 // signed longitudinal velocity
	A             float64 // signed longitudinal acceleration
	CentripetalA  float64 // v^2 * kappa
}

// PathPoint is a point on a geometric path: position, heading, curvature,
// curvature rate, and arc length from the path's origin.
type PathPoint struct {
	X, Y   float64
	Theta  float64
	Kappa  float64
	DKappa float64
	S      float64
}
