// Package polynomial implements the quartic and quintic polynomial
// trajectories used to connect boundary conditions in Frenet space
// (spec.md 4.3), solved as small linear systems with gonum.org/v1/gonum/mat,
// the same way the teacher solves a least-squares fit in rimage/filters.go.
package polynomial

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Polynomial is a 1D polynomial in one variable (time or arc length) along
// with its first three derivatives, sufficient to describe either a
// longitudinal (s) or lateral (d) trajectory segment.
type Polynomial interface {
	Eval(t float64) float64
	Velocity(t float64) float64
	Acceleration(t float64) float64
	Jerk(t float64) float64
	// EndTime is the parameter length (time or arc length) over which this
	// polynomial is valid.
	EndTime() float64
	// ParamLength is the distance traveled in the polynomial's value
	// (not its parameter) from 0 to EndTime, used when reparameterizing a
	// lateral polynomial from time to arc length (spec.md 4.4).
	ParamLength() float64
}

// Quartic is a degree-4 polynomial fit from a full position/velocity/
// acceleration start state and a velocity/acceleration end state — the
// shape used for cruising longitudinal end conditions.
type Quartic struct {
	coef    [5]float64
	endTime float64
}

// NewQuartic solves for the quartic p(t) satisfying
// p(0)=x0, p'(0)=v0, p''(0)=a0, p'(endTime)=v1, p''(endTime)=a1.
func NewQuartic(x0, v0, a0, v1, a1, endTime float64) (*Quartic, error) {
	if endTime <= 0 {
		return nil, errors.Errorf("polynomial: end time must be positive, got %g", endTime)
	}
	c0, c1, c2 := x0, v0, a0/2

	t := endTime
	a := mat.NewDense(2, 2, []float64{
		3 * t * t, 4 * t * t * t,
		6 * t, 12 * t * t,
	})
	b := mat.NewVecDense(2, []float64{
		v1 - v0 - a0*t,
		a1 - a0,
	})
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return nil, errors.Wrap(err, "polynomial: quartic boundary-value solve failed")
	}

	return &Quartic{
		coef:    [5]float64{c0, c1, c2, x.AtVec(0), x.AtVec(1)},
		endTime: endTime,
	}, nil
}

// Eval returns p(t).
func (q *Quartic) Eval(t float64) float64 {
	return q.coef[0] + t*(q.coef[1]+t*(q.coef[2]+t*(q.coef[3]+t*q.coef[4])))
}

// Velocity returns p'(t).
func (q *Quartic) Velocity(t float64) float64 {
	return q.coef[1] + t*(2*q.coef[2]+t*(3*q.coef[3]+t*4*q.coef[4]))
}

// Acceleration returns p''(t).
func (q *Quartic) Acceleration(t float64) float64 {
	return 2*q.coef[2] + t*(6*q.coef[3]+t*12*q.coef[4])
}

// Jerk returns p'''(t).
func (q *Quartic) Jerk(t float64) float64 {
	return 6*q.coef[3] + t*24*q.coef[4]
}

// EndTime returns the parameter length this polynomial was solved over.
func (q *Quartic) EndTime() float64 {
	return q.endTime
}

// ParamLength returns p(EndTime) - p(0).
func (q *Quartic) ParamLength() float64 {
	return q.Eval(q.endTime) - q.coef[0]
}

// Quintic is a degree-5 polynomial fit from a full position/velocity/
// acceleration start AND end state — the shape used for stopping and
// follow-leader longitudinal end conditions and all lateral end conditions.
type Quintic struct {
	coef    [6]float64
	endTime float64
}

// NewQuintic solves for the quintic p(t) satisfying
// p(0)=x0, p'(0)=v0, p''(0)=a0, p(endTime)=x1, p'(endTime)=v1, p''(endTime)=a1.
func NewQuintic(x0, v0, a0, x1, v1, a1, endTime float64) (*Quintic, error) {
	if endTime <= 0 {
		return nil, errors.Errorf("polynomial: end time must be positive, got %g", endTime)
	}
	c0, c1, c2 := x0, v0, a0/2

	t := endTime
	t2, t3, t4, t5 := t*t, t*t*t, t*t*t*t, t*t*t*t*t
	a := mat.NewDense(3, 3, []float64{
		t3, t4, t5,
		3 * t2, 4 * t3, 5 * t4,
		6 * t, 12 * t2, 20 * t3,
	})
	b := mat.NewVecDense(3, []float64{
		x1 - x0 - v0*t - 0.5*a0*t2,
		v1 - v0 - a0*t,
		a1 - a0,
	})
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return nil, errors.Wrap(err, "polynomial: quintic boundary-value solve failed")
	}

	return &Quintic{
		coef:    [6]float64{c0, c1, c2, x.AtVec(0), x.AtVec(1), x.AtVec(2)},
		endTime: endTime,
	}, nil
}

// Eval returns p(t).
func (q *Quintic) Eval(t float64) float64 {
	return q.coef[0] + t*(q.coef[1]+t*(q.coef[2]+t*(q.coef[3]+t*(q.coef[4]+t*q.coef[5]))))
}

// Velocity returns p'(t).
func (q *Quintic) Velocity(t float64) float64 {
	return q.coef[1] + t*(2*q.coef[2]+t*(3*q.coef[3]+t*(4*q.coef[4]+t*5*q.coef[5])))
}

// Acceleration returns p''(t).
func (q *Quintic) Acceleration(t float64) float64 {
	return 2*q.coef[2] + t*(6*q.coef[3]+t*(12*q.coef[4]+t*20*q.coef[5]))
}

// Jerk returns p'''(t).
func (q *Quintic) Jerk(t float64) float64 {
	return 6*q.coef[3] + t*(24*q.coef[4]+t*60*q.coef[5])
}

// EndTime returns the parameter length this polynomial was solved over.
func (q *Quintic) EndTime() float64 {
	return q.endTime
}

// ParamLength returns p(EndTime) - p(0).
func (q *Quintic) ParamLength() float64 {
	return q.Eval(q.endTime) - q.coef[0]
}
