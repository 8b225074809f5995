package geometry

import (
	"math"

	"github.com/golang/geo/r2"
)

// Box2D is a 2D oriented bounding box: a center, a heading, and the box's
// full length (along heading) and width (perpendicular to heading).
//
// This is the 2D analogue of the teacher's spatialmath.box (a 3D oriented
// box defined by center pose and half-size); we drop to two axes because
// this planner only reasons about ground-plane footprints.
type Box2D struct {
	Center r2.Point
	Theta  float64
	Length float64
	Width  float64
}

// NewBox2D constructs a Box2D. Negative dimensions are not physically
// meaningful and are clamped to zero.
func NewBox2D(center r2.Point, theta, length, width float64) Box2D {
	if length < 0 {
		length = 0
	}
	if width < 0 {
		width = 0
	}
	return Box2D{Center: center, Theta: theta, Length: length, Width: width}
}

// Shift translates the box's center by v.
func (b Box2D) Shift(v r2.Point) Box2D {
	b.Center = b.Center.Add(v)
	return b
}

// LongitudinalExtend grows the box's length (its extent along heading) by
// delta, keeping the center fixed.
func (b Box2D) LongitudinalExtend(delta float64) Box2D {
	b.Length += delta
	return b
}

// LateralExtend grows the box's width (its extent perpendicular to heading)
// by delta, keeping the center fixed.
func (b Box2D) LateralExtend(delta float64) Box2D {
	b.Width += delta
	return b
}

// axes returns the box's own heading axis and the axis perpendicular to it,
// both unit vectors. Per spec.md 4.6, each box contributes exactly these two
// candidate separating axes to a pairwise SAT test.
func (b Box2D) axes() (heading, perp r2.Point) {
	c, s := math.Cos(b.Theta), math.Sin(b.Theta)
	return r2.Point{X: c, Y: s}, r2.Point{X: -s, Y: c}
}

// projectionRadius returns the half-width of this box's projection onto the
// unit axis L.
func (b Box2D) projectionRadius(l r2.Point) float64 {
	heading, perp := b.axes()
	return 0.5*b.Length*math.Abs(heading.Dot(l)) + 0.5*b.Width*math.Abs(perp.Dot(l))
}

// MaxSeparationGap returns the maximum separating gap over the four
// candidate SAT axes (the heading and perpendicular axis of each box).
// A positive value is the minimum distance the boxes would need to move
// apart to touch; a non-positive value means the boxes overlap, with the
// magnitude being the penetration depth along the least-penetrating axis.
func (b Box2D) MaxSeparationGap(other Box2D) float64 {
	centerDist := other.Center.Sub(b.Center)
	bHeading, bPerp := b.axes()
	oHeading, oPerp := other.axes()

	best := math.Inf(-1)
	for _, axis := range [...]r2.Point{bHeading, bPerp, oHeading, oPerp} {
		norm := axis.Norm()
		if norm < 1e-12 {
			continue
		}
		unit := axis.Mul(1 / norm)
		centerProj := math.Abs(centerDist.Dot(unit))
		gap := centerProj - b.projectionRadius(unit) - other.projectionRadius(unit)
		if gap > best {
			best = gap
		}
	}
	return best
}

// HasOverlap reports whether the two oriented boxes intersect, per the
// separating axis theorem: they overlap iff every candidate axis's
// projected intervals intersect, i.e. the max separating gap is not
// positive.
func (b Box2D) HasOverlap(other Box2D) bool {
	return b.MaxSeparationGap(other) <= 0
}

// NewBoxAtRearAxle builds a vehicle footprint from a rear-axle-referenced
// pose (x, y, theta), shifting the box forward along heading by
// backAxleToCenter to place it at the vehicle's geometric center, the same
// shift collision_checker.cpp applies before testing ego/obstacle overlap.
func NewBoxAtRearAxle(x, y, theta, length, width, backAxleToCenter float64) Box2D {
	box := NewBox2D(r2.Point{X: x, Y: y}, theta, length, width)
	return box.Shift(r2.Point{X: backAxleToCenter * math.Cos(theta), Y: backAxleToCenter * math.Sin(theta)})
}
