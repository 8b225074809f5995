// Package frenet implements the Cartesian<->Frenet coordinate engine
// described in spec.md 4.1, transliterated directly from
// original_source/common/src/math/coordinate_transformer.cpp.
package frenet

import (
	"math"

	"github.com/pkg/errors"

	"github.com/tailfin-motion/localplanner/geometry"
	"github.com/tailfin-motion/localplanner/kinodynamic"
)

// RefPoint is the minimal reference-point shape the transformer needs:
// position, heading, curvature, curvature rate, and arc length. refline.ReferencePoint
// converts to this via ToFrenetRefPoint so that this package never imports refline.
type RefPoint struct {
	S      float64
	X, Y   float64
	Theta  float64
	Kappa  float64
	DKappa float64
}

// SCondition is (s, s', s'') along the reference line.
type SCondition struct {
	S, SDot, SDotDot float64
}

// DCondition is (d, d', d'') perpendicular to the reference line.
type DCondition struct {
	D, DDot, DDotDot float64
}

// ErrGeometrySingular is returned when 1 - rkappa*d <= 0 or cos(deltaTheta)
// is too close to zero: spec.md's "geometry singular" failure mode.
var ErrGeometrySingular = errors.New("frenet: geometry singular")

const cosDeltaThetaEpsilon = 1e-6

// CartesianToFrenet converts a Cartesian kinodynamic state, relative to
// reference point rp, into Frenet (s, d) boundary conditions.
func CartesianToFrenet(rp RefPoint, x, y, v, a, theta, kappa float64) (SCondition, DCondition, error) {
	dx := x - rp.X
	dy := y - rp.Y

	cosThetaR := math.Cos(rp.Theta)
	sinThetaR := math.Sin(rp.Theta)

	crossRDND := cosThetaR*dy - sinThetaR*dx
	d0 := math.Copysign(math.Sqrt(dx*dx+dy*dy), crossRDND)

	deltaTheta := theta - rp.Theta
	tanDeltaTheta := math.Tan(deltaTheta)
	cosDeltaTheta := math.Cos(deltaTheta)
	if math.Abs(cosDeltaTheta) < cosDeltaThetaEpsilon {
		return SCondition{}, DCondition{}, errors.Wrapf(ErrGeometrySingular, "cos(delta_theta)=%g", cosDeltaTheta)
	}

	oneMinusKappaRD := 1 - rp.Kappa*d0
	if oneMinusKappaRD <= 0 {
		return SCondition{}, DCondition{}, errors.Wrapf(ErrGeometrySingular, "1-rkappa*d=%g", oneMinusKappaRD)
	}

	d1 := oneMinusKappaRD * tanDeltaTheta
	kappaRDPrime := rp.DKappa*d0 + rp.Kappa*d1
	d2 := -kappaRDPrime*tanDeltaTheta + oneMinusKappaRD/(cosDeltaTheta*cosDeltaTheta)*
		(kappa*oneMinusKappaRD/cosDeltaTheta-rp.Kappa)

	s0 := rp.S
	s1 := v * cosDeltaTheta / oneMinusKappaRD

	deltaThetaPrime := oneMinusKappaRD/cosDeltaTheta*kappa - rp.Kappa
	s2 := (a*cosDeltaTheta - s1*s1*(d1*deltaThetaPrime-kappaRDPrime)) / oneMinusKappaRD

	return SCondition{S: s0, SDot: s1, SDotDot: s2}, DCondition{D: d0, DDot: d1, DDotDot: d2}, nil
}

// FrenetToCartesian is the inverse of CartesianToFrenet. rp.S must equal
// sCond.S within 1e-6 (spec.md's precondition |rs - s0| < 1e-6).
func FrenetToCartesian(rp RefPoint, sCond SCondition, dCond DCondition) (state kinodynamic.State, err error) {
	if math.Abs(rp.S-sCond.S) >= 1e-6 {
		return kinodynamic.State{}, errors.Errorf("frenet: reference point s=%g does not match s-condition s=%g", rp.S, sCond.S)
	}

	cosThetaR := math.Cos(rp.Theta)
	sinThetaR := math.Sin(rp.Theta)

	x := rp.X - sinThetaR*dCond.D
	y := rp.Y + cosThetaR*dCond.D

	oneMinusKappaRD := 1 - rp.Kappa*dCond.D
	if oneMinusKappaRD <= 0 {
		return kinodynamic.State{}, errors.Wrapf(ErrGeometrySingular, "1-rkappa*d=%g", oneMinusKappaRD)
	}

	deltaTheta := math.Atan2(dCond.DDot, oneMinusKappaRD)
	cosDeltaTheta := math.Cos(deltaTheta)
	if math.Abs(cosDeltaTheta) < cosDeltaThetaEpsilon {
		return kinodynamic.State{}, errors.Wrapf(ErrGeometrySingular, "cos(delta_theta)=%g", cosDeltaTheta)
	}
	tanDeltaTheta := dCond.DDot / oneMinusKappaRD

	theta := geometry.NormalizeAngle(deltaTheta + rp.Theta)

	kappaRDPrime := rp.DKappa*dCond.D + rp.Kappa*dCond.DDot
	kappa := (((dCond.DDotDot+kappaRDPrime*tanDeltaTheta)*cosDeltaTheta*cosDeltaTheta)/oneMinusKappaRD + rp.Kappa) *
		cosDeltaTheta / oneMinusKappaRD

	dDot := dCond.DDot * sCond.SDot
	v := math.Sqrt(oneMinusKappaRD*oneMinusKappaRD*sCond.SDot*sCond.SDot + dDot*dDot)

	deltaThetaPrime := oneMinusKappaRD/cosDeltaTheta*kappa - rp.Kappa
	a := sCond.SDotDot*oneMinusKappaRD/cosDeltaTheta +
		sCond.SDot*sCond.SDot/cosDeltaTheta*(dCond.DDot*deltaThetaPrime-kappaRDPrime)

	return kinodynamic.State{
		X: x, Y: y, Theta: theta, Kappa: kappa, V: v, A: a,
		CentripetalA: v * v * kappa,
	}, nil
}

// CalcTheta returns the heading implied by traveling the reference line
// with lateral offset l and lateral slope dl (dl/ds).
func CalcTheta(rtheta, rkappa, l, dl float64) float64 {
	return geometry.NormalizeAngle(rtheta + math.Atan2(dl, 1-l*rkappa))
}

// CalcKappa returns the path curvature implied by lateral offset l, its
// first derivative dl, and second derivative ddl. Returns 0 when the
// denominator is too small to avoid a division blowup (spec.md 4.1).
func CalcKappa(rkappa, rdkappa, l, dl, ddl float64) float64 {
	denominator := dl*dl + (1-l*rkappa)*(1-l*rkappa)
	if math.Abs(denominator) < 1e-8 {
		return 0.0
	}
	denominator = math.Pow(denominator, 1.5)
	numerator := rkappa + ddl - 2*l*rkappa*rkappa -
		l*ddl*rkappa + l*l*rkappa*rkappa*rkappa +
		l*dl*rdkappa + 2*dl*dl*rkappa
	return numerator / denominator
}

// CalcCartesianPoint maps a reference point plus lateral offset l to a
// Cartesian (x, y) point, ignoring longitudinal motion along the curve.
func CalcCartesianPoint(rtheta, rx, ry, l float64) (x, y float64) {
	x = rx - l*math.Sin(rtheta)
	y = ry + l*math.Cos(rtheta)
	return x, y
}

// CalcLateralDerivative returns dl/ds given the reference heading, the
// actual heading theta, the lateral offset l, and the reference curvature.
func CalcLateralDerivative(rtheta, theta, l, rkappa float64) float64 {
	return (1 - rkappa*l) * math.Tan(theta-rtheta)
}

// CalcSecondOrderLateralDerivative returns d2l/ds2.
func CalcSecondOrderLateralDerivative(rtheta, theta, rkappa, kappa, rdkappa, l float64) float64 {
	dl := CalcLateralDerivative(rtheta, theta, l, rkappa)
	thetaDiff := theta - rtheta
	cosThetaDiff := math.Cos(thetaDiff)
	return -(rdkappa*l+rkappa*dl)*math.Tan(theta-rtheta) +
		(1-rkappa*l)/(cosThetaDiff*cosThetaDiff)*
			(kappa*(1-rkappa*l)/cosThetaDiff-rkappa)
}

