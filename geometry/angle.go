package geometry

import "math"

// NormalizeAngle wraps theta into (-pi, pi], matching the normalization used
// throughout the reference-line and Frenet math so that heading comparisons
// never straddle the +-pi seam.
func NormalizeAngle(theta float64) float64 {
	a := math.Mod(theta+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	a -= math.Pi
	if a <= -math.Pi {
		a = math.Pi
	}
	return a
}

// AngleDiff returns NormalizeAngle(to - from).
func AngleDiff(from, to float64) float64 {
	return NormalizeAngle(to - from)
}

// LerpAngle interpolates between two angles along the shorter arc, at
// fraction t in [0, 1].
func LerpAngle(from, to, t float64) float64 {
	return NormalizeAngle(from + AngleDiff(from, to)*t)
}
