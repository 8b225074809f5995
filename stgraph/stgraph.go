// Package stgraph builds the time-sliced predicted environment a trajectory
// is collision-checked against: at each sampled instant of the planning
// horizon, every relevant obstacle's safety-inflated bounding box (spec.md
// 4.5), grounded on
// original_source/motion_planning/src/collision_checker/collision_checker.cpp's
// Init method.
package stgraph

import (
	"github.com/tailfin-motion/localplanner/geometry"
	"github.com/tailfin-motion/localplanner/obstacle"
	"github.com/tailfin-motion/localplanner/refline"
)

// Config carries the horizon and safety-margin parameters the predicted
// environment is built with.
type Config struct {
	MaxLookaheadTime float64
	DeltaT           float64
	LonSafetyBuffer  float64
	LatSafetyBuffer  float64
}

// STGraph tracks which obstacle IDs are considered "in graph": relevant to
// the ego vehicle's current lane and worth reasoning about in ST space, as
// opposed to obstacles far off to the side that a longitudinal planner can
// ignore outright.
type STGraph struct {
	inGraph map[int]bool
}

// NewSTGraph builds an STGraph, marking every agent whose Frenet lateral
// offset places it within one full lane width of the ego vehicle's lane as
// in-graph.
func NewSTGraph(rl *refline.ReferenceLine, agents []obstacle.Agent) *STGraph {
	const defaultLaneWidth = 3.0
	inGraph := make(map[int]bool, len(agents))
	for _, a := range agents {
		s, d, err := rl.XYToSL(a.X, a.Y)
		if err != nil {
			continue
		}
		_ = s
		if absFloat(d) < defaultLaneWidth {
			inGraph[a.ID] = true
		}
	}
	return &STGraph{inGraph: inGraph}
}

// IsObstacleInGraph reports whether id was marked relevant by NewSTGraph.
func (g *STGraph) IsObstacleInGraph(id int) bool {
	return g.inGraph[id]
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// PredictedEnvironment is a time-sliced sequence of inflated obstacle
// bounding boxes: PredictedEnvironment.Boxes[i] holds every considered
// obstacle's footprint at relative time i*Config.DeltaT.
type PredictedEnvironment struct {
	DeltaT float64
	Boxes  [][]geometry.Box2D
}

// BuildPredictedEnvironment samples every considered obstacle's predicted
// trajectory across the planning horizon and inflates each sample by twice
// the configured lateral/longitudinal safety buffers, matching
// collision_checker.cpp's Init.
func BuildPredictedEnvironment(cfg Config, considered []obstacle.Agent) PredictedEnvironment {
	var env PredictedEnvironment
	env.DeltaT = cfg.DeltaT
	if cfg.DeltaT <= 0 {
		return env
	}
	for t := 0.0; t < cfg.MaxLookaheadTime; t += cfg.DeltaT {
		var slice []geometry.Box2D
		for _, a := range considered {
			box, ok := a.Prediction.BoxAt(t, a.Length, a.Width)
			if !ok {
				box = a.Box()
			}
			box = box.LateralExtend(2.0 * cfg.LatSafetyBuffer)
			box = box.LongitudinalExtend(2.0 * cfg.LonSafetyBuffer)
			slice = append(slice, box)
		}
		env.Boxes = append(env.Boxes, slice)
	}
	return env
}

// FilterConsidered drops obstacles that don't need to be collision-checked:
// when the ego vehicle is already within its lane, an obstacle behind it or
// outside the ST graph's relevance set contributes nothing (spec.md 4.5).
func FilterConsidered(
	agents []obstacle.Agent,
	egoInLane bool,
	isBehindEgo func(obstacle.Agent) bool,
	graph *STGraph,
) []obstacle.Agent {
	considered := make([]obstacle.Agent, 0, len(agents))
	for _, a := range agents {
		if egoInLane && (isBehindEgo(a) || !graph.IsObstacleInGraph(a.ID)) {
			continue
		}
		considered = append(considered, a)
	}
	return considered
}
