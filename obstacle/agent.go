package obstacle

import (
	"sync"

	"github.com/golang/geo/r2"
	"github.com/google/uuid"

	"github.com/tailfin-motion/localplanner/geometry"
)

// TrajectoryPoint is one predicted sample of an agent's future motion.
type TrajectoryPoint struct {
	RelativeTime float64
	X, Y, Theta  float64
	V, A         float64
}

// Trajectory is a time-ordered sequence of points, either an agent's
// predicted motion or a planner's chosen output for one tick.
type Trajectory struct {
	Points []TrajectoryPoint

	// CycleID identifies the planning cycle that produced this trajectory,
	// matching services/motion/builtin/state's ExecutionID convention so
	// consumers can correlate a trajectory with the log lines its tick
	// emitted. Zero (uuid.Nil) for agent motion predictions, which are not
	// tied to a single planning cycle.
	CycleID uuid.UUID
}

// BoxAt returns the agent's oriented footprint at the trajectory point
// nearest to relativeTime, or false if the trajectory has no points.
func (traj Trajectory) BoxAt(relativeTime float64, length, width float64) (geometry.Box2D, bool) {
	if len(traj.Points) == 0 {
		return geometry.Box2D{}, false
	}
	best := traj.Points[0]
	bestDiff := absFloat(best.RelativeTime - relativeTime)
	for _, p := range traj.Points[1:] {
		if d := absFloat(p.RelativeTime - relativeTime); d < bestDiff {
			best, bestDiff = p, d
		}
	}
	return geometry.NewBox2D(r2.Point{X: best.X, Y: best.Y}, best.Theta, length, width), true
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// ObjectKind classifies a perceived traffic participant.
type ObjectKind int

const (
	ObjectKindVehicle ObjectKind = iota
	ObjectKindPedestrian
	ObjectKindCyclist
	ObjectKindUnknown
)

// Agent is a snapshot of one traffic participant: its current geometry,
// kinematic state, and predicted trajectory over the planning horizon.
type Agent struct {
	ID         int
	Kind       ObjectKind
	Length     float64
	Width      float64
	X, Y       float64
	Theta      float64
	V          float64
	Prediction Trajectory

	// Projected, ProjectedS, and ProjectedD carry this agent's Frenet
	// coordinates against whichever reference line a decision pass is
	// currently reasoning about. Callers (e.g. maneuver.GetLaneClearDistance)
	// expect these populated via refline.ReferenceLine.XYToSL before use;
	// Projected is false until then.
	Projected  bool
	ProjectedS float64
	ProjectedD float64
}

// Box returns the agent's current oriented footprint.
func (a Agent) Box() geometry.Box2D {
	return geometry.NewBox2D(r2.Point{X: a.X, Y: a.Y}, a.Theta, a.Length, a.Width)
}

// TrafficLightColor is the state of a signal controlling a lane.
type TrafficLightColor int

const (
	TrafficLightUnknown TrafficLightColor = iota
	TrafficLightRed
	TrafficLightYellow
	TrafficLightGreen
)

// TrafficLightStatus is one signal's state and the arc length along a
// reference line at which it applies (spec.md 6).
type TrafficLightStatus struct {
	LaneID int
	Color  TrafficLightColor
	StopS  float64
}

// Snapshot is the full perceived-world state for a single planning tick:
// every tracked agent plus every relevant signal state.
type Snapshot struct {
	Agents       []Agent
	TrafficLights []TrafficLightStatus
}

// Registry holds the most recent Snapshot, published by an ingestion
// goroutine and read by planning goroutines under a read lock — the same
// producer/single-writer, many-reader shape as the teacher's
// nearestNeighbor manager (_teacher_ref/search_heap_ref informed the
// broader worker-pool pattern; the snapshot-publish idiom itself is
// standard sync.RWMutex usage throughout the teacher's sensor drivers).
type Registry struct {
	mu       sync.RWMutex
	snapshot Snapshot
	ready    bool
}

// NewRegistry returns an empty, not-yet-ready Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Publish replaces the current snapshot. Safe for concurrent use with Snapshot.
func (r *Registry) Publish(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = snap
	r.ready = true
}

// Snapshot returns the most recently published snapshot and whether one has
// ever been published.
func (r *Registry) Snapshot() (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot, r.ready
}
