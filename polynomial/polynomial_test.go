package polynomial

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestQuarticBoundaryConditions(t *testing.T) {
	q, err := NewQuartic(0, 10, 0, 15, 1, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, q.Eval(0), test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, q.Velocity(0), test.ShouldAlmostEqual, 10.0, 1e-9)
	test.That(t, q.Acceleration(0), test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, q.Velocity(4), test.ShouldAlmostEqual, 15.0, 1e-6)
	test.That(t, q.Acceleration(4), test.ShouldAlmostEqual, 1.0, 1e-6)
	test.That(t, q.EndTime(), test.ShouldAlmostEqual, 4.0, 1e-9)
}

func TestQuinticBoundaryConditions(t *testing.T) {
	q, err := NewQuintic(0, 0, 0, 10, 5, 0, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, q.Eval(0), test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, q.Velocity(0), test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, q.Acceleration(0), test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, q.Eval(3), test.ShouldAlmostEqual, 10.0, 1e-6)
	test.That(t, q.Velocity(3), test.ShouldAlmostEqual, 5.0, 1e-6)
	test.That(t, q.Acceleration(3), test.ShouldAlmostEqual, 0.0, 1e-6)
}

func TestQuinticZeroMotionIsFlat(t *testing.T) {
	q, err := NewQuintic(2, 0, 0, 2, 0, 0, 5)
	test.That(t, err, test.ShouldBeNil)
	for _, tt := range []float64{0, 1, 2.5, 4, 5} {
		test.That(t, q.Eval(tt), test.ShouldAlmostEqual, 2.0, 1e-6)
		test.That(t, math.Abs(q.Velocity(tt)) < 1e-6, test.ShouldBeTrue)
	}
}

func TestNonPositiveEndTimeRejected(t *testing.T) {
	_, err := NewQuartic(0, 0, 0, 0, 0, 0)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewQuintic(0, 0, 0, 0, 0, 0, -1)
	test.That(t, err, test.ShouldNotBeNil)
}
