// Package tick wires the maneuver state machine to the lattice trajectory
// planner once per planning cycle (spec.md 5): snapshot the shared
// registries, run one maneuver decision pass, plan a trajectory for the
// resulting goal, and apply the error-propagation policy of spec.md 7 so
// that every tick emits a valid Trajectory and never panics or returns an
// error across the tick boundary itself.
package tick

import (
	"context"
	"math"
	"sync"

	"github.com/edaniels/golog"
	"github.com/google/uuid"

	"github.com/tailfin-motion/localplanner/collision"
	"github.com/tailfin-motion/localplanner/kinodynamic"
	"github.com/tailfin-motion/localplanner/lattice"
	"github.com/tailfin-motion/localplanner/maneuver"
	"github.com/tailfin-motion/localplanner/obstacle"
	"github.com/tailfin-motion/localplanner/planconfig"
	"github.com/tailfin-motion/localplanner/planerr"
	"github.com/tailfin-motion/localplanner/refline"
	"github.com/tailfin-motion/localplanner/sampler"
	"github.com/tailfin-motion/localplanner/stgraph"
)

// Lanes is the set of reference lines a tick reasons about: the current
// lane, and the adjacent lanes a lane-change decision might target (either
// may be nil if the lane doesn't exist).
type Lanes struct {
	Current    *refline.ReferenceLine
	CurrentID  int
	Left       *refline.ReferenceLine
	Right      *refline.ReferenceLine
}

// Orchestrator runs one Tick at a time; concurrent calls to Tick on the
// same Orchestrator are not supported (spec.md 5's "tick is atomic from the
// consumer's viewpoint" applies to a single caller driving the periodic
// schedule).
type Orchestrator struct {
	cfg      planconfig.Config
	maneuver *maneuver.Planner
	lattice  *lattice.Planner
	registry *obstacle.Registry
	logger   golog.Logger

	mu       sync.Mutex
	previous obstacle.Trajectory
	hasPrev  bool
}

// NewOrchestrator builds an Orchestrator over registry, the process-wide
// perception snapshot writers publish into.
func NewOrchestrator(cfg planconfig.Config, registry *obstacle.Registry, logger golog.Logger) *Orchestrator {
	if logger == nil {
		logger = golog.Global()
	}
	return &Orchestrator{
		cfg:      cfg,
		maneuver: maneuver.NewPlanner(logger),
		lattice:  lattice.New(latticeConfig(cfg), logger),
		registry: registry,
		logger:   logger,
	}
}

func latticeConfig(cfg planconfig.Config) lattice.Config {
	return lattice.Config{
		Weights: lattice.DefaultCostWeights(),
		EndConditions: sampler.Config{
			TimeHorizons:            cfg.TimeHorizons,
			LateralOffsets:          cfg.LateralOffsets,
			LateralDistanceHorizons: cfg.LateralDistanceHorizons,
		},
		SampleDeltaT:     cfg.PlanningDeltaT,
		MaxSpeed:         cfg.MaxLonVelocity,
		MaxAcceleration:  cfg.MaxLonAcc,
		MaxDeceleration:  cfg.MaxLonDecel,
		MaxCurvature:     0.5,
		MaxJerk:          cfg.MaxJerk,
		MaxLateralOffset: cfg.LaneHalfWidth + cfg.LateralTolerance,
		EgoLength:        cfg.VehicleParams.Length,
		EgoWidth:         cfg.VehicleParams.Width,
		BackAxleToCenter: cfg.VehicleParams.BackAxleToCenter,
		TimeGap:          cfg.IDMTimeGap,
		MinGap:           cfg.LonSafetyBuffer,
	}
}

func maneuverConfig(cfg planconfig.Config) maneuver.Config {
	return maneuver.Config{
		TargetSpeed:                             cfg.TargetSpeed,
		MaxLonVelocity:                           cfg.MaxLonVelocity,
		MaxLonAcc:                                cfg.MaxLonAcc,
		MaxLonDecel:                              cfg.MaxLonDecel,
		LonSafetyBuffer:                          cfg.LonSafetyBuffer,
		MinLookaheadDist:                         cfg.MinLookaheadDistance,
		MaxLookaheadDist:                         cfg.MaxLookaheadDistance,
		ManeuverExecuteTime:                      cfg.ManeuverExecuteTimeLength,
		ManeuverForwardClearThreshold:            cfg.ManeuverForwardClearThreshold,
		ManeuverBackwardClearThreshold:           cfg.ManeuverBackwardClearThreshold,
		ManeuverTargetLaneForwardClearThreshold:  cfg.ManeuverTargetLaneForwardClearThreshold,
		ManeuverTargetLaneBackwardClearThreshold: cfg.ManeuverTargetLaneBackwardClearThreshold,
		SafetyCostGain:                           cfg.ManeuverSafetyCostGain,
		EfficiencyCostGain:                       cfg.ManeuverEfficiencyCostGain,
		ComfortCostGain:                          cfg.ManeuverComfortCostGain,
		LaneHalfWidth:                            cfg.LaneHalfWidth,
		EgoLength:                                cfg.VehicleParams.Length,
		IDMTimeGap:                               cfg.IDMTimeGap,
	}
}

// Tick runs one planning cycle for the given ego state and lane topology,
// returning the trajectory to emit this cycle. It never returns an error:
// per spec.md 7's propagation policy, InvalidInput and RouteUnavailable
// failures, and a failure to project the ego state onto the current lane,
// retain and return the previous tick's trajectory (logged via Errorw),
// and every other failure mode is absorbed into an emergency-stop
// trajectory before this method returns.
func (o *Orchestrator) Tick(ctx context.Context, egoState kinodynamic.State, lanes Lanes) obstacle.Trajectory {
	cycleID := uuid.New()
	if lanes.Current == nil {
		return o.retainPrevious(planerr.New(planerr.InvalidInput, nil), "no current reference line")
	}

	snapshot, _ := o.registry.Snapshot()

	egoS, egoD, err := lanes.Current.XYToSL(egoState.X, egoState.Y)
	if err != nil {
		return o.retainPrevious(planerr.Wrapf(planerr.GeometrySingular, err, "project ego state"), "failed to project ego state onto current lane")
	}

	mCtx := maneuver.Context{
		Config:        maneuverConfig(o.cfg),
		EgoState:      egoState,
		EgoS:          egoS,
		CurrentLaneID: lanes.CurrentID,
		ReferenceLine: lanes.Current,
		LeftLane:      lanes.Left,
		RightLane:     lanes.Right,
		World:         snapshot,
	}
	goal := o.maneuver.Tick(mCtx)

	goals := o.buildLatticeGoals(lanes, goal, egoS, egoD, snapshot)
	if len(goals) == 0 {
		return o.emergencyStop(cycleID, egoState, "no reference line available for the chosen maneuver goal")
	}

	result, err := o.lattice.PlanOnReferenceLines(ctx, egoState, 0, goals)
	if err != nil {
		return o.emergencyStop(cycleID, egoState, "lattice planning failed: "+err.Error())
	}
	if result.IsEmergencyStop {
		o.logger.Warnw("tick: falling back to emergency stop", "cycle_id", cycleID, "state", o.maneuver.CurrentState().String())
	}

	traj := toTrajectory(result.Best)
	traj.CycleID = cycleID
	o.setPrevious(traj)
	return traj
}

// buildLatticeGoals translates the maneuver Goal into the one-or-two
// lattice.ManeuverGoal entries it names (a plain decision plans a single
// reference line; a lane change plans both the current and target lines so
// the cheaper collision-free candidate wins, matching spec.md 5's "per
// reference line" parallelism).
func (o *Orchestrator) buildLatticeGoals(lanes Lanes, goal maneuver.Goal, egoS, egoD float64, snapshot obstacle.Snapshot) []lattice.ManeuverGoal {
	var goals []lattice.ManeuverGoal
	for _, info := range goal.Infos {
		rl := info.ReferenceLine
		if rl == nil {
			rl = lanes.Current
		}
		checker := o.buildChecker(rl, egoS, egoD, snapshot)

		switch goal.Decision {
		case maneuver.DecisionStopAtDestination, maneuver.DecisionStopAtTrafficSign, maneuver.DecisionEmergencyStop:
			goals = append(goals, lattice.ManeuverGoal{
				ReferenceLine: rl, Checker: checker, Decision: lattice.DecisionStop, StopS: info.TargetS,
			})
		default:
			goals = append(goals, lattice.ManeuverGoal{
				ReferenceLine: rl, Checker: checker, Decision: lattice.DecisionCruise, TargetSpeed: info.TargetSpeed,
			})
		}
	}
	return goals
}

func (o *Orchestrator) buildChecker(rl *refline.ReferenceLine, egoS, egoD float64, snapshot obstacle.Snapshot) *collision.Checker {
	graph := stgraph.NewSTGraph(rl, snapshot.Agents)
	egoInLane := rl.IsOnLane(egoS, egoD)
	considered := stgraph.FilterConsidered(snapshot.Agents, egoInLane, func(a obstacle.Agent) bool {
		return collision.IsObstacleBehindEgoVehicle(rl, a, egoS)
	}, graph)
	env := stgraph.BuildPredictedEnvironment(stgraph.Config{
		MaxLookaheadTime: o.cfg.MaxLookaheadTime,
		DeltaT:           o.cfg.PlanningDeltaT,
		LonSafetyBuffer:  o.cfg.LonSafetyBuffer,
		LatSafetyBuffer:  o.cfg.LatSafetyBuffer,
	}, considered)
	return collision.New(rl, env, o.cfg.VehicleParams.Length, o.cfg.VehicleParams.Width, o.cfg.VehicleParams.BackAxleToCenter)
}

// toTrajectory adapts a lattice.Candidate's discretized points to the
// egress Trajectory shape. Speed and acceleration are read off LonTraj when
// present (the normal case); GenerateEmergencyStopTrajectory's candidate
// carries no polynomial, so its samples fall back to a finite difference of
// consecutive positions.
func toTrajectory(cand *lattice.Candidate) obstacle.Trajectory {
	if cand == nil {
		return obstacle.Trajectory{}
	}
	traj := obstacle.Trajectory{Points: make([]obstacle.TrajectoryPoint, len(cand.Points))}
	for i, pt := range cand.Points {
		var v, a float64
		if cand.LonTraj != nil {
			v = cand.LonTraj.Velocity(relativeTimeAt(cand, i))
			a = cand.LonTraj.Acceleration(relativeTimeAt(cand, i))
		} else if i > 0 {
			dt := cand.RelativeTimes[i] - cand.RelativeTimes[i-1]
			if dt > 1e-9 {
				ds := math.Hypot(pt.X-cand.Points[i-1].X, pt.Y-cand.Points[i-1].Y)
				v = ds / dt
				if i > 1 {
					a = (v - traj.Points[i-1].V) / dt
				}
			}
		}
		traj.Points[i] = obstacle.TrajectoryPoint{
			RelativeTime: cand.RelativeTimes[i],
			X:            pt.X,
			Y:            pt.Y,
			Theta:        pt.Theta,
			V:            v,
			A:            a,
		}
	}
	return traj
}

func relativeTimeAt(cand *lattice.Candidate, i int) float64 {
	if i >= len(cand.RelativeTimes) {
		return 0
	}
	return cand.RelativeTimes[i]
}

func (o *Orchestrator) emergencyStop(cycleID uuid.UUID, egoState kinodynamic.State, reason string) obstacle.Trajectory {
	o.logger.Warnw("tick: emergency stop", "cycle_id", cycleID, "reason", reason)
	cand := o.lattice.GenerateEmergencyStopTrajectory(egoState, 0)
	traj := toTrajectory(cand)
	traj.CycleID = cycleID
	o.setPrevious(traj)
	return traj
}

func (o *Orchestrator) retainPrevious(err *planerr.Error, reason string) obstacle.Trajectory {
	o.logger.Errorw("tick: skipping this cycle, retaining previous trajectory", "kind", err.Kind.String(), "reason", reason)
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.hasPrev {
		return obstacle.Trajectory{}
	}
	return o.previous
}

func (o *Orchestrator) setPrevious(traj obstacle.Trajectory) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.previous = traj
	o.hasPrev = true
}
