package lattice

import (
	"container/heap"

	"github.com/tailfin-motion/localplanner/collision"
	"github.com/tailfin-motion/localplanner/kinodynamic"
	"github.com/tailfin-motion/localplanner/polynomial"
)

// Candidate is one combined longitudinal/lateral trajectory drawn from the
// sampling grid, along with its cost and the discretized points a collision
// checker and the eventual controller consume.
type Candidate struct {
	LonTraj polynomial.Polynomial
	LatTraj polynomial.Polynomial
	Cost    float64
	Points  []kinodynamic.PathPoint
	// RelativeTimes[i] is the planning-horizon timestamp of Points[i],
	// kept separate from PathPoint (whose S field is arc length, not
	// time) for use with collision.TrajectoryPoint.
	RelativeTimes []float64
}

// CollisionPoints adapts a Candidate's discretized points into the shape
// collision.Checker.IsCollision expects.
func (c *Candidate) CollisionPoints() []collision.TrajectoryPoint {
	pts := make([]collision.TrajectoryPoint, len(c.Points))
	for i, p := range c.Points {
		pts[i] = collision.TrajectoryPoint{
			RelativeTime: c.RelativeTimes[i],
			X:            p.X,
			Y:            p.Y,
			Theta:        p.Theta,
		}
	}
	return pts
}

// candidateQueue is a min-heap of *Candidate ordered by ascending Cost,
// shaped after the teacher pack's own container/heap adapter
// (search_heap_ref/queues.go's VertexQueue: a slice plus Less/Swap/Push/Pop,
// injected comparator replaced here by the Candidate.Cost field directly).
type candidateQueue []*Candidate

func (q candidateQueue) Len() int            { return len(q) }
func (q candidateQueue) Less(i, j int) bool  { return q[i].Cost < q[j].Cost }
func (q candidateQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *candidateQueue) Push(x interface{}) { *q = append(*q, x.(*Candidate)) }

func (q *candidateQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// newCandidateQueue builds a ready-to-pop min-heap from a slice of
// candidates.
func newCandidateQueue(candidates []*Candidate) *candidateQueue {
	q := candidateQueue(candidates)
	heap.Init(&q)
	return &q
}
