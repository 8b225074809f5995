// Package refline implements the arc-length-parameterized reference line
// described in spec.md 4.2: point lookup, matched-point projection, and
// SL<->XY conversion built on top of package frenet.
package refline

import (
	"math"

	"github.com/pkg/errors"

	"github.com/tailfin-motion/localplanner/frenet"
	"github.com/tailfin-motion/localplanner/geometry"
)

// RoadOption mirrors the CARLA-style road option enum carried by route
// waypoints (spec.md 6, "Route service response").
type RoadOption int

const (
	RoadOptionLaneFollow RoadOption = iota
	RoadOptionLeft
	RoadOptionRight
	RoadOptionStraight
	RoadOptionChangeLaneLeft
	RoadOptionChangeLaneRight
)

// LaneChangeType mirrors the WayPoint.lane_change field of spec.md 3.
type LaneChangeType int

const (
	LaneChangeNone LaneChangeType = iota
	LaneChangeLeft
	LaneChangeRight
	LaneChangeBoth
)

// WayPoint is spec.md 3's WayPoint: lane identity and legality of lane
// changes at a point on the route.
type WayPoint struct {
	LaneID        int
	RoadOption    RoadOption
	LaneChange    LaneChangeType
	HasLeftLane   bool
	HasRightLane  bool
	LeftLaneWidth  float64
	RightLaneWidth float64
}

// ReferencePoint is spec.md 3's ReferencePoint: an immutable sample of the
// reference line's geometry at arc length S.
type ReferencePoint struct {
	X, Y   float64
	Theta  float64
	Kappa  float64
	DKappa float64
	S      float64
}

// ToFrenetRefPoint adapts a ReferencePoint to the shape package frenet needs.
func (rp ReferencePoint) ToFrenetRefPoint() frenet.RefPoint {
	return frenet.RefPoint{S: rp.S, X: rp.X, Y: rp.Y, Theta: rp.Theta, Kappa: rp.Kappa, DKappa: rp.DKappa}
}

// RouteWaypoint is one element of a route service response (spec.md 6),
// the raw input ReferenceLines are built from.
type RouteWaypoint struct {
	X, Y           float64
	Theta          float64
	LaneID         int
	RoadOption     RoadOption
	LaneChange     LaneChangeType
	HasLeftLane    bool
	HasRightLane   bool
	LeftLaneWidth  float64
	RightLaneWidth float64
}

// RouteResponse is the Route RPC response shape of spec.md 6.
type RouteResponse struct {
	Waypoints []RouteWaypoint
}

// ReferenceLine is an ordered, strictly-increasing-in-s sequence of
// ReferencePoints paired one-to-one with WayPoints, immutable after
// construction and safe to share read-only across goroutines (spec.md 3,
// "Ownership").
type ReferenceLine struct {
	points    []ReferencePoint
	waypoints []WayPoint
}

// New builds a ReferenceLine from raw route waypoints, computing headings,
// curvature, and curvature rate via finite differences over position, and
// cumulative arc length; a heading supplied on a waypoint is replaced by
// the derived one. Waypoints must be given in
// travel order; New does not resample or smooth them, matching spec.md 4.2's
// "constructed from a dense resampling of route waypoints" — the resampling
// itself is the route service's/worldmap's job (see worldmap.ResampleRoute).
func New(route RouteResponse) (*ReferenceLine, error) {
	n := len(route.Waypoints)
	if n < 2 {
		return nil, errors.New("refline: need at least two waypoints to build a reference line")
	}

	points := make([]ReferencePoint, n)
	waypoints := make([]WayPoint, n)

	s := 0.0
	for i, wp := range route.Waypoints {
		if i > 0 {
			dx := wp.X - route.Waypoints[i-1].X
			dy := wp.Y - route.Waypoints[i-1].Y
			ds := math.Hypot(dx, dy)
			if ds < 1e-9 {
				return nil, errors.Errorf("refline: duplicate waypoint at index %d (s=%g)", i, s)
			}
			s += ds
		}
		theta := wp.Theta
		points[i] = ReferencePoint{X: wp.X, Y: wp.Y, Theta: theta, S: s}
		waypoints[i] = WayPoint{
			LaneID:         wp.LaneID,
			RoadOption:     wp.RoadOption,
			LaneChange:     wp.LaneChange,
			HasLeftLane:    wp.HasLeftLane,
			HasRightLane:   wp.HasRightLane,
			LeftLaneWidth:  wp.LeftLaneWidth,
			RightLaneWidth: wp.RightLaneWidth,
		}
	}
	fillHeadingsAndCurvature(points)

	return &ReferenceLine{points: points, waypoints: waypoints}, nil
}

// fillHeadingsAndCurvature derives heading (overwriting any input value),
// curvature, and curvature rate from the sampled
// positions via central finite differences, matching how a dense polyline
// resample is smoothed before being used as a curvature-aware reference
// line in the original CARLA planner's reference_line construction.
func fillHeadingsAndCurvature(points []ReferencePoint) {
	n := len(points)
	if n < 2 {
		return
	}
	for i := range points {
		var dx, dy, ds float64
		switch {
		case i == 0:
			dx, dy = points[1].X-points[0].X, points[1].Y-points[0].Y
			ds = points[1].S - points[0].S
		case i == n-1:
			dx, dy = points[n-1].X-points[n-2].X, points[n-1].Y-points[n-2].Y
			ds = points[n-1].S - points[n-2].S
		default:
			dx, dy = points[i+1].X-points[i-1].X, points[i+1].Y-points[i-1].Y
			ds = points[i+1].S - points[i-1].S
		}
		if ds > 1e-9 {
			points[i].Theta = geometry.NormalizeAngle(math.Atan2(dy, dx))
		}
	}
	for i := range points {
		var dTheta, ds float64
		switch {
		case i == 0:
			dTheta = geometry.AngleDiff(points[0].Theta, points[1].Theta)
			ds = points[1].S - points[0].S
		case i == n-1:
			dTheta = geometry.AngleDiff(points[n-2].Theta, points[n-1].Theta)
			ds = points[n-1].S - points[n-2].S
		default:
			dTheta = geometry.AngleDiff(points[i-1].Theta, points[i+1].Theta)
			ds = points[i+1].S - points[i-1].S
		}
		if ds > 1e-9 {
			points[i].Kappa = dTheta / ds
		}
	}
	for i := range points {
		var dKappa, ds float64
		switch {
		case i == 0:
			dKappa = points[1].Kappa - points[0].Kappa
			ds = points[1].S - points[0].S
		case i == n-1:
			dKappa = points[n-1].Kappa - points[n-2].Kappa
			ds = points[n-1].S - points[n-2].S
		default:
			dKappa = points[i+1].Kappa - points[i-1].Kappa
			ds = points[i+1].S - points[i-1].S
		}
		if ds > 1e-9 {
			points[i].DKappa = dKappa / ds
		}
	}
}

// Length returns the reference line's total arc length.
func (rl *ReferenceLine) Length() float64 {
	return rl.points[len(rl.points)-1].S
}

// NumPoints returns the number of sampled reference points.
func (rl *ReferenceLine) NumPoints() int {
	return len(rl.points)
}

func (rl *ReferenceLine) segmentAt(s float64) (int, int) {
	points := rl.points
	n := len(points)
	if s <= points[0].S {
		return 0, 0
	}
	if s >= points[n-1].S {
		return n - 1, n - 1
	}
	lo, hi := 0, n-1
	for lo < hi {
		mid := (lo + hi) / 2
		if points[mid].S < s {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if points[lo].S == s || lo == 0 {
		return lo, lo
	}
	return lo - 1, lo
}

// GetReferencePoint returns the reference point at arc length s, linearly
// interpolating position, curvature and curvature-rate and interpolating
// heading along the shorter angular arc, per spec.md 3's invariant that
// interpolation keeps theta normalized to (-pi, pi].
func (rl *ReferenceLine) GetReferencePoint(s float64) (ReferencePoint, error) {
	if len(rl.points) == 0 {
		return ReferencePoint{}, errors.New("refline: empty reference line")
	}
	i, j := rl.segmentAt(s)
	if i == j {
		p := rl.points[i]
		p.S = s
		return p, nil
	}
	a, b := rl.points[i], rl.points[j]
	t := (s - a.S) / (b.S - a.S)
	return ReferencePoint{
		X:      a.X + t*(b.X-a.X),
		Y:      a.Y + t*(b.Y-a.Y),
		Theta:  geometry.LerpAngle(a.Theta, b.Theta, t),
		Kappa:  a.Kappa + t*(b.Kappa-a.Kappa),
		DKappa: a.DKappa + t*(b.DKappa-a.DKappa),
		S:      s,
	}, nil
}

// GetMatchedPoint finds the reference point nearest to (x, y) via a ternary
// search over sampled points followed by local segment projection and
// refinement (spec.md 4.2).
func (rl *ReferenceLine) GetMatchedPoint(x, y float64) (ReferencePoint, float64, error) {
	if len(rl.points) < 2 {
		return ReferencePoint{}, 0, errors.New("refline: need at least two points to match")
	}
	bestIdx := rl.nearestIndex(x, y)

	type candidate struct {
		s    float64
		dist float64
	}
	var candidates []candidate
	if bestIdx > 0 {
		s, d := rl.projectOntoSegment(bestIdx-1, bestIdx, x, y)
		candidates = append(candidates, candidate{s, d})
	}
	if bestIdx < len(rl.points)-1 {
		s, d := rl.projectOntoSegment(bestIdx, bestIdx+1, x, y)
		candidates = append(candidates, candidate{s, d})
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.dist < best.dist {
			best = c
		}
	}
	rp, err := rl.GetReferencePoint(best.s)
	if err != nil {
		return ReferencePoint{}, 0, err
	}
	return rp, best.s, nil
}

// nearestIndex performs a ternary search for the sampled point index
// closest to (x, y), exploiting the reference line's local convexity to
// achieve O(log N) instead of a linear scan; it falls back to scanning the
// immediate neighborhood of the search's landing point to guard against
// local non-unimodality on sharply curved lines.
func (rl *ReferenceLine) nearestIndex(x, y float64) int {
	dist2 := func(i int) float64 {
		dx := rl.points[i].X - x
		dy := rl.points[i].Y - y
		return dx*dx + dy*dy
	}
	lo, hi := 0, len(rl.points)-1
	for hi-lo > 2 {
		m1 := lo + (hi-lo)/3
		m2 := hi - (hi-lo)/3
		if dist2(m1) <= dist2(m2) {
			hi = m2
		} else {
			lo = m1
		}
	}
	best := lo
	for i := lo; i <= hi; i++ {
		if dist2(i) < dist2(best) {
			best = i
		}
	}
	return best
}

func (rl *ReferenceLine) projectOntoSegment(i, j int, x, y float64) (s, dist float64) {
	a, b := rl.points[i], rl.points[j]
	segLen := b.S - a.S
	if segLen < 1e-12 {
		dx, dy := x-a.X, y-a.Y
		return a.S, math.Hypot(dx, dy)
	}
	dx, dy := b.X-a.X, b.Y-a.Y
	t := ((x-a.X)*dx + (y-a.Y)*dy) / (dx*dx + dy*dy)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	px, py := a.X+t*dx, a.Y+t*dy
	return a.S + t*segLen, math.Hypot(x-px, y-py)
}

// XYToSL converts a Cartesian point to (s, d) Frenet coordinates relative to
// the nearest matched point on this reference line.
func (rl *ReferenceLine) XYToSL(x, y float64) (s, d float64, err error) {
	rp, matchedS, err := rl.GetMatchedPoint(x, y)
	if err != nil {
		return 0, 0, err
	}
	sCond, dCond, err := frenet.CartesianToFrenet(rp.ToFrenetRefPoint(), x, y, 0, 0, rp.Theta, rp.Kappa)
	if err != nil {
		return 0, 0, err
	}
	_ = matchedS
	return sCond.S, dCond.D, nil
}

// SLToXY converts Frenet (s, d) coordinates back to Cartesian (x, y).
func (rl *ReferenceLine) SLToXY(s, d float64) (x, y float64, err error) {
	rp, err := rl.GetReferencePoint(s)
	if err != nil {
		return 0, 0, err
	}
	x, y = frenet.CalcCartesianPoint(rp.Theta, rp.X, rp.Y, d)
	return x, y, nil
}

// GetLaneWidth returns the (left, right) lane half-widths at arc length s,
// interpolated the same way GetReferencePoint interpolates geometry.
func (rl *ReferenceLine) GetLaneWidth(s float64) (left, right float64, err error) {
	if len(rl.waypoints) == 0 {
		return 0, 0, errors.New("refline: no waypoints")
	}
	i, j := rl.segmentAt(s)
	if i == j {
		wp := rl.waypoints[i]
		return wp.LeftLaneWidth, wp.RightLaneWidth, nil
	}
	a, b := rl.waypoints[i], rl.waypoints[j]
	t := (s - rl.points[i].S) / (rl.points[j].S - rl.points[i].S)
	left = a.LeftLaneWidth + t*(b.LeftLaneWidth-a.LeftLaneWidth)
	right = a.RightLaneWidth + t*(b.RightLaneWidth-a.RightLaneWidth)
	return left, right, nil
}

// IsOnLane reports whether Frenet point (s, d) lies within the lane bounds
// at s.
func (rl *ReferenceLine) IsOnLane(s, d float64) bool {
	left, right, err := rl.GetLaneWidth(s)
	if err != nil {
		return false
	}
	return d <= left && d >= -right
}

// NearestWayPoint returns the WayPoint whose sample is nearest to arc length
// s (spec.md 3).
func (rl *ReferenceLine) NearestWayPoint(s float64) (WayPoint, error) {
	if len(rl.waypoints) == 0 {
		return WayPoint{}, errors.New("refline: no waypoints")
	}
	i, j := rl.segmentAt(s)
	if i == j {
		return rl.waypoints[i], nil
	}
	if s-rl.points[i].S <= rl.points[j].S-s {
		return rl.waypoints[i], nil
	}
	return rl.waypoints[j], nil
}
