// Package collision checks a candidate trajectory against the predicted
// environment for overlaps with other traffic participants, grounded on
// original_source/motion_planning/src/collision_checker/collision_checker.cpp.
package collision

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/tailfin-motion/localplanner/geometry"
	"github.com/tailfin-motion/localplanner/obstacle"
	"github.com/tailfin-motion/localplanner/refline"
	"github.com/tailfin-motion/localplanner/stgraph"
)

// errCollisionFound is used to short-circuit an errgroup once any worker
// detects an overlap; it is never surfaced to callers.
var errCollisionFound = errors.New("collision: found")

// TrajectoryPoint is the (time, pose) sample a trajectory presents to the
// collision checker: enough to look up the matching predicted-environment
// time slice and build the ego footprint at that instant.
type TrajectoryPoint struct {
	RelativeTime float64
	X, Y, Theta  float64
}

// Checker holds the reference line and the predicted environment a set of
// candidate trajectories are checked against.
type Checker struct {
	refLine      *refline.ReferenceLine
	env          stgraph.PredictedEnvironment
	vehicleLen   float64
	vehicleWidth float64
	// backAxleToCenter shifts the ego footprint from the rear-axle
	// reference point used by planning to the vehicle's geometric center,
	// matching collision_checker.cpp's IsCollision shift.
	backAxleToCenter float64
	// parallelThreshold is the trajectory-point count above which
	// IsCollision fans checks out across goroutines instead of checking
	// sequentially, mirroring the teacher's neighborsBeforeParallelization
	// threshold in nearestNeighbor.go.
	parallelThreshold int
}

// New builds a Checker for one reference line's predicted environment.
func New(rl *refline.ReferenceLine, env stgraph.PredictedEnvironment, vehicleLen, vehicleWidth, backAxleToCenter float64) *Checker {
	return &Checker{
		refLine:           rl,
		env:               env,
		vehicleLen:        vehicleLen,
		vehicleWidth:      vehicleWidth,
		backAxleToCenter:  backAxleToCenter,
		parallelThreshold: 20,
	}
}

// IsCollision reports whether any point of trajectory collides with the
// predicted environment at its corresponding time slice. Below
// parallelThreshold points it checks sequentially and returns as soon as it
// finds one; above it, it fans the check out across goroutines via an
// errgroup, cancelling the remaining workers once any overlap is found —
// the same size-gated fan-out nearestNeighbor.go uses before it bothers
// parallelizing a nearest-neighbor search.
func (c *Checker) IsCollision(ctx context.Context, trajectory []TrajectoryPoint) (bool, error) {
	if len(c.env.Boxes) == 0 {
		return false, nil
	}

	if len(trajectory) <= c.parallelThreshold {
		for _, pt := range trajectory {
			if c.pointCollides(pt) {
				return true, nil
			}
		}
		return false, nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, pt := range trajectory {
		pt := pt
		group.Go(func() error {
			select {
			case <-groupCtx.Done():
				return nil
			default:
			}
			if c.pointCollides(pt) {
				return errCollisionFound
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		if errors.Is(err, errCollisionFound) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func (c *Checker) pointCollides(pt TrajectoryPoint) bool {
	timeIdx := int(pt.RelativeTime / c.env.DeltaT)
	if timeIdx < 0 || timeIdx >= len(c.env.Boxes) {
		return false
	}
	egoBox := geometry.NewBoxAtRearAxle(pt.X, pt.Y, pt.Theta, c.vehicleLen, c.vehicleWidth, c.backAxleToCenter)
	for _, obBox := range c.env.Boxes[timeIdx] {
		if egoBox.HasOverlap(obBox) {
			return true
		}
	}
	return false
}

// IsEgoVehicleInLane reports whether the ego vehicle's Frenet lateral
// offset is within the lane boundaries at its current arc length.
func (c *Checker) IsEgoVehicleInLane(egoS, egoD float64) bool {
	return c.refLine.IsOnLane(egoS, egoD)
}

// IsObstacleBehindEgoVehicle reports whether an obstacle's current position
// sits behind the ego vehicle along the reference line and within half a
// default lane width laterally, matching collision_checker.cpp's
// IsObstacleBehindEgoVehicle.
func IsObstacleBehindEgoVehicle(rl *refline.ReferenceLine, a obstacle.Agent, egoS float64) bool {
	const defaultLaneWidth = 3.0
	s, d, err := rl.XYToSL(a.X, a.Y)
	if err != nil {
		return false
	}
	return egoS > s && absFloat(d) < defaultLaneWidth/2.0
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
