// Package lattice implements the Frenet lattice trajectory planner:
// sampling longitudinal and lateral polynomial candidates, combining them
// into full Cartesian trajectories, filtering for kinematic feasibility,
// ranking by cost, and selecting the cheapest collision-free candidate
// (spec.md 4.4), grounded on
// original_source/motion_planning/include/motion_planner/frenet_lattice_planner/frenet_lattice_planner.hpp.
package lattice

import (
	"container/heap"
	"context"
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/tailfin-motion/localplanner/collision"
	"github.com/tailfin-motion/localplanner/frenet"
	"github.com/tailfin-motion/localplanner/kinodynamic"
	"github.com/tailfin-motion/localplanner/polynomial"
	"github.com/tailfin-motion/localplanner/refline"
	"github.com/tailfin-motion/localplanner/sampler"
)

// DecisionType is the longitudinal objective a maneuver goal hands the
// lattice planner.
type DecisionType int

const (
	DecisionCruise DecisionType = iota
	DecisionStop
	DecisionFollowLeader
)

// ManeuverGoal is what the maneuver state machine hands the lattice
// planner each tick: which reference line to plan on and what the
// longitudinal objective is.
type ManeuverGoal struct {
	ReferenceLine *refline.ReferenceLine
	Checker       *collision.Checker
	Decision      DecisionType
	TargetSpeed   float64
	StopS         float64
	LeaderS       float64
	LeaderV       float64
	LeaderLength  float64
}

// CostWeights weights each term of the candidate cost function (spec.md 4.4).
type CostWeights struct {
	TargetSpeed float64
	LonJerk     float64
	LonTime     float64
	LatOffset   float64
	LatJerk     float64
}

// DefaultCostWeights returns weights tuned for a reasonable balance between
// smoothness and responsiveness; the tick orchestrator's lattice
// configuration uses these weights.
func DefaultCostWeights() CostWeights {
	return CostWeights{TargetSpeed: 10.0, LonJerk: 0.1, LonTime: 1.0, LatOffset: 1.0, LatJerk: 1.0}
}

// Config bounds trajectory generation and feasibility limits.
type Config struct {
	Weights          CostWeights
	EndConditions    sampler.Config
	SampleDeltaT     float64
	MaxSpeed         float64
	MaxAcceleration  float64
	MaxDeceleration  float64
	MaxCurvature     float64
	// MaxJerk bounds both longitudinal and lateral jerk; zero disables the
	// check.
	MaxJerk float64
	// MaxLateralOffset rejects a candidate once it departs more than this
	// far from the reference line's centerline (spec.md 4.4's
	// |d| > lane_width/2 + tolerance); zero disables the check.
	MaxLateralOffset float64
	EgoLength        float64
	EgoWidth         float64
	BackAxleToCenter float64
	TimeGap          float64
	MinGap           float64
}

// Planner generates and selects Frenet lattice trajectories.
type Planner struct {
	cfg    Config
	logger golog.Logger
}

// New returns a Planner for the given configuration.
func New(cfg Config, logger golog.Logger) *Planner {
	if logger == nil {
		logger = golog.Global()
	}
	return &Planner{cfg: cfg, logger: logger}
}

// Result is one reference line's planning outcome.
type Result struct {
	Best             *Candidate
	ValidCandidates  []*Candidate
	IsEmergencyStop  bool
}

// GetInitCondition projects the ego vehicle's current Cartesian state onto
// reference line rl to obtain the s and d boundary conditions the lattice
// is grown from.
func GetInitCondition(rl *refline.ReferenceLine, initState kinodynamic.State) (frenet.SCondition, frenet.DCondition, error) {
	rp, _, err := rl.GetMatchedPoint(initState.X, initState.Y)
	if err != nil {
		return frenet.SCondition{}, frenet.DCondition{}, errors.Wrap(err, "lattice: match init state to reference line")
	}
	return frenet.CartesianToFrenet(rp.ToFrenetRefPoint(), initState.X, initState.Y, initState.V, initState.A, initState.Theta, initState.Kappa)
}

// PlanOnReferenceLines fans planning out across every candidate reference
// line concurrently (one goroutine per line, spec.md 5's per-reference-line
// parallelism), then returns the lowest-cost collision-free result across
// all lines. If none is collision-free, it returns an emergency stop
// trajectory built from initState.
func (p *Planner) PlanOnReferenceLines(
	ctx context.Context,
	initState kinodynamic.State,
	startTime float64,
	goals []ManeuverGoal,
) (*Result, error) {
	if len(goals) == 0 {
		return nil, errors.New("lattice: no reference lines to plan on")
	}

	results := make([]*Result, len(goals))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, goal := range goals {
		i, goal := i, goal
		group.Go(func() error {
			res, err := p.planOnReferenceLine(groupCtx, initState, startTime, goal)
			if err != nil {
				p.logger.Debugw("lattice: reference line planning failed", "index", i, "error", err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var best *Result
	for _, res := range results {
		if res == nil || res.Best == nil {
			continue
		}
		if best == nil || res.Best.Cost < best.Best.Cost {
			best = res
		}
	}
	if best != nil {
		return best, nil
	}

	p.logger.Warnw("lattice: no collision-free candidate on any reference line, falling back to emergency stop")
	stop := p.GenerateEmergencyStopTrajectory(initState, startTime)
	return &Result{Best: stop, IsEmergencyStop: true}, nil
}

func (p *Planner) planOnReferenceLine(
	ctx context.Context,
	initState kinodynamic.State,
	startTime float64,
	goal ManeuverGoal,
) (*Result, error) {
	initS, initD, err := GetInitCondition(goal.ReferenceLine, initState)
	if err != nil {
		return nil, err
	}

	samp := sampler.New(p.cfg.EndConditions)
	lonTrajs := p.generateLonTrajectories(goal, initS, samp)
	latTrajs := p.generateLatTrajectories(initD, samp)
	if len(lonTrajs) == 0 || len(latTrajs) == 0 {
		return nil, errors.New("lattice: no feasible boundary-value solves")
	}

	var candidates []*Candidate
	for _, lonTraj := range lonTrajs {
		for _, latTraj := range latTrajs {
			cand, err := p.combine(goal.ReferenceLine, lonTraj, latTraj, initS.S, startTime)
			if err != nil {
				continue
			}
			if !p.isFeasible(cand) {
				continue
			}
			cand.Cost = p.cost(goal, lonTraj, latTraj)
			candidates = append(candidates, cand)
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("lattice: no feasible candidates generated")
	}

	queue := newCandidateQueue(candidates)
	var valid []*Candidate
	for queue.Len() > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		cand := heap.Pop(queue).(*Candidate)
		collided, err := goal.Checker.IsCollision(ctx, cand.CollisionPoints())
		if err != nil {
			return nil, err
		}
		if !collided {
			valid = append(valid, cand)
			return &Result{Best: cand, ValidCandidates: valid}, nil
		}
	}
	return nil, errors.New("lattice: every candidate collided")
}

func (p *Planner) generateLonTrajectories(goal ManeuverGoal, initS frenet.SCondition, samp *sampler.EndConditionSampler) []polynomial.Polynomial {
	var trajs []polynomial.Polynomial
	switch goal.Decision {
	case DecisionCruise:
		for _, ec := range samp.CruisingEndConditions(goal.TargetSpeed) {
			q, err := polynomial.NewQuartic(initS.S, initS.SDot, initS.SDotDot, ec.V, ec.A, ec.T)
			if err == nil {
				trajs = append(trajs, q)
			}
		}
	case DecisionStop:
		for _, ec := range samp.StoppingEndConditions(goal.StopS) {
			q, err := polynomial.NewQuintic(initS.S, initS.SDot, initS.SDotDot, ec.X, ec.V, ec.A, ec.T)
			if err == nil {
				trajs = append(trajs, q)
			}
		}
	case DecisionFollowLeader:
		for _, ec := range samp.FollowLeaderEndConditions(goal.LeaderS, goal.LeaderV, goal.LeaderLength, p.cfg.EgoLength, p.cfg.TimeGap, p.cfg.MinGap) {
			q, err := polynomial.NewQuintic(initS.S, initS.SDot, initS.SDotDot, ec.X, ec.V, ec.A, ec.T)
			if err == nil {
				trajs = append(trajs, q)
			}
		}
	}
	return trajs
}

func (p *Planner) generateLatTrajectories(initD frenet.DCondition, samp *sampler.EndConditionSampler) []polynomial.Polynomial {
	var trajs []polynomial.Polynomial
	for _, ec := range samp.LateralEndConditions() {
		q, err := polynomial.NewQuintic(initD.D, initD.DDot, initD.DDotDot, ec.X, ec.V, ec.A, ec.T)
		if err == nil {
			trajs = append(trajs, q)
		}
	}
	return trajs
}

// combine discretizes the longitudinal polynomial over time at
// Config.SampleDeltaT, reparameterizes the lateral polynomial from time to
// distance traveled via tau = min(1, (s(t)-s0)/(s_end-s0)), and converts
// each (s, d) Frenet sample to a Cartesian PathPoint via frenet.FrenetToCartesian.
func (p *Planner) combine(rl *refline.ReferenceLine, lonTraj, latTraj polynomial.Polynomial, s0, startTime float64) (*Candidate, error) {
	sEnd := lonTraj.Eval(lonTraj.EndTime())
	latDomain := latTraj.EndTime()
	deltaT := p.cfg.SampleDeltaT
	if deltaT <= 0 {
		deltaT = 0.1
	}

	cand := &Candidate{LonTraj: lonTraj, LatTraj: latTraj}
	for t := 0.0; t <= lonTraj.EndTime()+1e-9; t += deltaT {
		if t > lonTraj.EndTime() {
			t = lonTraj.EndTime()
		}
		s := lonTraj.Eval(t)
		sDot := lonTraj.Velocity(t)
		sDotDot := lonTraj.Acceleration(t)

		ds := s - s0
		denominator := sEnd - s0
		tau := 1.0
		if denominator > 1e-9 {
			tau = ds / denominator
		}
		if tau < 0 {
			tau = 0
		}
		if tau > 1 {
			tau = 1
		}
		latParam := tau * latDomain

		d := latTraj.Eval(latParam)
		dl := latTraj.Velocity(latParam)
		ddl := latTraj.Acceleration(latParam)

		rp, err := rl.GetReferencePoint(s)
		if err != nil {
			return nil, err
		}
		rfp := rp.ToFrenetRefPoint()
		state, err := frenet.FrenetToCartesian(
			rfp,
			frenet.SCondition{S: s, SDot: sDot, SDotDot: sDotDot},
			frenet.DCondition{D: d, DDot: dl, DDotDot: ddl},
		)
		if err != nil {
			return nil, err
		}

		cand.Points = append(cand.Points, kinodynamic.PathPoint{
			X: state.X, Y: state.Y, Theta: state.Theta, Kappa: state.Kappa, S: s,
		})
		cand.RelativeTimes = append(cand.RelativeTimes, startTime+t)

		if t >= lonTraj.EndTime() {
			break
		}
	}
	return cand, nil
}

func (p *Planner) isFeasible(cand *Candidate) bool {
	for _, pt := range cand.Points {
		if p.cfg.MaxCurvature > 0 && math.Abs(pt.Kappa) > p.cfg.MaxCurvature {
			return false
		}
	}
	for t := 0.0; t <= cand.LonTraj.EndTime()+1e-9; t += 0.1 {
		if t > cand.LonTraj.EndTime() {
			t = cand.LonTraj.EndTime()
		}
		v := cand.LonTraj.Velocity(t)
		a := cand.LonTraj.Acceleration(t)
		if p.cfg.MaxSpeed > 0 && v > p.cfg.MaxSpeed+1e-6 {
			return false
		}
		if v < -1e-6 {
			return false
		}
		if p.cfg.MaxAcceleration > 0 && a > p.cfg.MaxAcceleration+1e-6 {
			return false
		}
		if p.cfg.MaxDeceleration > 0 && a < -p.cfg.MaxDeceleration-1e-6 {
			return false
		}
		if p.cfg.MaxJerk > 0 && math.Abs(cand.LonTraj.Jerk(t)) > p.cfg.MaxJerk+1e-6 {
			return false
		}
		if t >= cand.LonTraj.EndTime() {
			break
		}
	}
	for t := 0.0; t <= cand.LatTraj.EndTime()+1e-9; t += 0.1 {
		if t > cand.LatTraj.EndTime() {
			t = cand.LatTraj.EndTime()
		}
		if p.cfg.MaxLateralOffset > 0 && math.Abs(cand.LatTraj.Eval(t)) > p.cfg.MaxLateralOffset {
			return false
		}
		if p.cfg.MaxJerk > 0 && math.Abs(cand.LatTraj.Jerk(t)) > p.cfg.MaxJerk+1e-6 {
			return false
		}
		if t >= cand.LatTraj.EndTime() {
			break
		}
	}
	return true
}

func (p *Planner) cost(goal ManeuverGoal, lonTraj, latTraj polynomial.Polynomial) float64 {
	w := p.cfg.Weights

	var speedCost, jerkCost float64
	steps := 10
	for i := 0; i <= steps; i++ {
		t := lonTraj.EndTime() * float64(i) / float64(steps)
		if goal.Decision == DecisionCruise {
			speedCost += math.Pow(lonTraj.Velocity(t)-goal.TargetSpeed, 2)
		}
		jerkCost += math.Pow(lonTraj.Jerk(t), 2)
	}
	speedCost /= float64(steps + 1)
	jerkCost /= float64(steps + 1)

	var latJerkCost, latOffsetCost float64
	for i := 0; i <= steps; i++ {
		s := latTraj.EndTime() * float64(i) / float64(steps)
		latJerkCost += math.Pow(latTraj.Jerk(s), 2)
	}
	latJerkCost /= float64(steps + 1)
	latOffsetCost = math.Pow(latTraj.Eval(latTraj.EndTime()), 2)

	timeCost := lonTraj.EndTime()

	return w.TargetSpeed*speedCost + w.LonJerk*jerkCost + w.LonTime*timeCost +
		w.LatJerk*latJerkCost + w.LatOffset*latOffsetCost
}

// GenerateEmergencyStopTrajectory builds a maximum-comfortable-deceleration
// stop profile from the current state when no lattice candidate is
// collision-free, matching frenet_lattice_planner.hpp's
// GenerateEmergencyStopTrajectory fallback.
func (p *Planner) GenerateEmergencyStopTrajectory(initState kinodynamic.State, startTime float64) *Candidate {
	const emergencyDecel = 4.0
	const horizon = 5.0
	deltaT := p.cfg.SampleDeltaT
	if deltaT <= 0 {
		deltaT = 0.1
	}

	cand := &Candidate{}
	v := initState.V
	x, y, theta := initState.X, initState.Y, initState.Theta
	s := 0.0
	for t := 0.0; t <= horizon; t += deltaT {
		if v <= 0 {
			v = 0
		}
		cand.Points = append(cand.Points, kinodynamic.PathPoint{X: x, Y: y, Theta: theta, S: s})
		cand.RelativeTimes = append(cand.RelativeTimes, startTime+t)
		ds := v*deltaT - 0.5*emergencyDecel*deltaT*deltaT
		if ds < 0 {
			ds = 0
		}
		x += ds * math.Cos(theta)
		y += ds * math.Sin(theta)
		s += ds
		v -= emergencyDecel * deltaT
		if v < 0 {
			v = 0
		}
	}
	cand.Cost = math.Inf(1)
	return cand
}
