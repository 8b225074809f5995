package geometry

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestBox2DOverlap(t *testing.T) {
	a := NewBox2D(r2.Point{X: 0, Y: 0}, 0, 4, 2)
	b := NewBox2D(r2.Point{X: 3, Y: 1.1}, math.Pi/4, 4, 2)
	test.That(t, a.HasOverlap(b), test.ShouldBeTrue)

	shifted := b.Shift(r2.Point{X: 0.5, Y: 1.5})
	test.That(t, a.HasOverlap(shifted), test.ShouldBeFalse)
}

func TestBox2DExtendCreatesOverlap(t *testing.T) {
	a := NewBox2D(r2.Point{X: 0, Y: 0}, 0, 2, 2)
	b := NewBox2D(r2.Point{X: 3.5, Y: 0}, 0, 2, 2)
	test.That(t, a.HasOverlap(b), test.ShouldBeFalse)

	extended := a.LongitudinalExtend(4.0)
	test.That(t, extended.HasOverlap(b), test.ShouldBeTrue)
}

func TestBox2DIdenticalBoxesOverlap(t *testing.T) {
	a := NewBox2D(r2.Point{X: 5, Y: -2}, 1.2, 4.8, 1.9)
	test.That(t, a.HasOverlap(a), test.ShouldBeTrue)
}

func TestNormalizeAngle(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi, math.Pi},
		{-3 * math.Pi, math.Pi},
	}
	for _, c := range cases {
		got := NormalizeAngle(c.in)
		test.That(t, math.Abs(got-c.want) < 1e-9 || math.Abs(got+c.want) < 1e-9, test.ShouldBeTrue)
		test.That(t, got, test.ShouldBeLessThanOrEqualTo, math.Pi+1e-9)
		test.That(t, got, test.ShouldBeGreaterThan, -math.Pi-1e-9)
	}
}
