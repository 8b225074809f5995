package maneuver

import (
	"github.com/edaniels/golog"

	"github.com/tailfin-motion/localplanner/kinodynamic"
	"github.com/tailfin-motion/localplanner/obstacle"
	"github.com/tailfin-motion/localplanner/refline"
)

// State is one node of the maneuver state machine. Execute runs the
// obstacle- and traffic-light-decision passes appropriate to that state and
// returns the combined Goal plus the state to transition to next; this
// mirrors follow_lane.cpp/stop_state.cpp's Execute+NextState pair without
// the original's singleton dispatch (see the package doc comment).
type State interface {
	Name() StateName
	Execute(ctx Context) (Goal, StateName)
}

// Context is everything a State needs to make one decision pass: the
// vehicle's current kinodynamic reading, the current reference line and
// lane, and the latest perceived world snapshot.
type Context struct {
	Config        Config
	EgoState      kinodynamic.State
	EgoS          float64
	CurrentLaneID int
	ReferenceLine *refline.ReferenceLine
	LeftLane      *refline.ReferenceLine // nil if no lane to the left
	RightLane     *refline.ReferenceLine // nil if no lane to the right
	World         obstacle.Snapshot
}

// ProjectAgents populates Projected/ProjectedS/ProjectedD on a copy of each
// agent in agents against rl, skipping (and dropping) any whose projection
// fails (e.g. far off the reference line's domain).
func ProjectAgents(rl *refline.ReferenceLine, agents []obstacle.Agent) []obstacle.Agent {
	projected := make([]obstacle.Agent, 0, len(agents))
	for _, a := range agents {
		s, d, err := rl.XYToSL(a.X, a.Y)
		if err != nil {
			continue
		}
		a.Projected, a.ProjectedS, a.ProjectedD = true, s, d
		projected = append(projected, a)
	}
	return projected
}

// followLaneState implements the default cruising state: watch the current
// lane, and either keep following it, change lanes, or stop.
type followLaneState struct{}

func (followLaneState) Name() StateName { return StateFollowLane }

func (followLaneState) Execute(ctx Context) (Goal, StateName) {
	obstacleGoal := followLaneObstacleGoal(ctx)
	trafficGoal := TrafficLightDecision(ctx.Config, ctx.ReferenceLine, ctx.EgoS, ctx.World.TrafficLights, ctx.CurrentLaneID)
	goal := CombineManeuver(trafficGoal, obstacleGoal)
	return goal, NextState(StateFollowLane, goal.Decision)
}

func followLaneObstacleGoal(ctx Context) Goal {
	current := laneClear(ctx, LaneCurrent)
	base := ObstacleDecision(ctx.Config, ctx.ReferenceLine, ctx.EgoS, ctx.EgoState.V, current)
	if base.Decision != DecisionFollowLane {
		return base
	}
	if ctx.LeftLane == nil && ctx.RightLane == nil {
		return base
	}
	if !shouldConsiderLaneChange(ctx, current) {
		return base
	}
	left, right := current, current
	if ctx.LeftLane != nil {
		left = laneClear(ctx, LaneLeft)
	}
	if ctx.RightLane != nil {
		right = laneClear(ctx, LaneRight)
	}
	return ChangeLaneDecision(ctx.Config, ctx.EgoS, ctx.EgoState.V, current, left, right,
		ctx.LeftLane != nil, ctx.RightLane != nil, ctx.CurrentLaneID)
}

// shouldConsiderLaneChange mirrors follow_lane.cpp's "leading vehicle is in
// lookahead distance" branch (lines ~160-166): a lane change is only worth
// weighing against a slow forward leader (0.3*ego_vel > leader_speed), and
// only where the current waypoint permits ordinary lane-following
// maneuvers — a non-LANEFOLLOW road option (e.g. approaching a junction)
// means stick with the leader instead.
func shouldConsiderLaneChange(ctx Context, current LaneClearDistance) bool {
	if current.ForwardObstacleID == noObstacle {
		return false
	}
	if 0.3*ctx.EgoState.V <= current.ForwardObstacleSpeed {
		return false
	}
	wp, err := ctx.ReferenceLine.NearestWayPoint(ctx.EgoS)
	if err != nil {
		return false
	}
	return wp.RoadOption == refline.RoadOptionLaneFollow
}

func laneClear(ctx Context, offset LaneOffset) LaneClearDistance {
	agents := ProjectAgents(ctx.ReferenceLine, ctx.World.Agents)
	return GetLaneClearDistance(offset, ctx.Config, ctx.EgoS, agents)
}

// changeLaneState is shared by ChangeLeftLane and ChangeRightLane: commit to
// the lane change already decided by FollowLane's ChangeLaneDecision unless
// an obstacle now makes it unsafe, in which case fall back to following the
// current lane or emergency stopping.
type changeLaneState struct {
	name   StateName
	offset LaneOffset
}

func (s changeLaneState) Name() StateName { return s.name }

func (s changeLaneState) Execute(ctx Context) (Goal, StateName) {
	target := s.targetReferenceLine(ctx)
	if target == nil {
		fallback := followLaneObstacleGoal(ctx)
		return fallback, NextState(s.name, fallback.Decision)
	}
	current := laneClear(ctx, LaneCurrent)
	if current.ForwardClear < ctx.Config.LonSafetyBuffer || current.BackwardClear < ctx.Config.LonSafetyBuffer {
		abort := Goal{Decision: DecisionFollowLane, Infos: []LaneManeuverInfo{{LaneID: ctx.CurrentLaneID, ReferenceLine: ctx.ReferenceLine}}}
		return abort, StateFollowLane
	}
	targetS, _, err := target.XYToSL(ctx.EgoState.X, ctx.EgoState.Y)
	if err != nil {
		targetS = ctx.EgoS
	}
	goal := Goal{
		Decision: decisionForOffset(s.offset),
		Infos: []LaneManeuverInfo{
			{LaneID: ctx.CurrentLaneID, ReferenceLine: ctx.ReferenceLine},
			{LaneID: ctx.CurrentLaneID + int(s.offset), ReferenceLine: target, TargetS: targetS},
		},
	}
	return goal, s.name
}

func (s changeLaneState) targetReferenceLine(ctx Context) *refline.ReferenceLine {
	if s.offset == LaneLeft {
		return ctx.LeftLane
	}
	return ctx.RightLane
}

func decisionForOffset(offset LaneOffset) DecisionType {
	if offset == LaneLeft {
		return DecisionChangeLeft
	}
	return DecisionChangeRight
}

// stopState implements the Stop state (stop_state.cpp): watch both the
// leading and following clear distance in the current lane, escalating to
// emergency stop if the buffer is violated and otherwise holding position
// or resuming lane following once the way is clear.
type stopState struct{}

func (stopState) Name() StateName { return StateStop }

func (stopState) Execute(ctx Context) (Goal, StateName) {
	current := laneClear(ctx, LaneCurrent)
	obstacleGoal := StopObstacleDecision(ctx.Config, ctx.ReferenceLine, ctx.EgoS, ctx.EgoState.V, current)
	if obstacleGoal.Decision == DecisionEmergencyStop {
		return obstacleGoal, StateEmergencyStop
	}
	trafficGoal := TrafficLightDecision(ctx.Config, ctx.ReferenceLine, ctx.EgoS, ctx.World.TrafficLights, ctx.CurrentLaneID)
	goal := CombineManeuver(trafficGoal, obstacleGoal)
	if goal.Decision == DecisionFollowLane {
		return goal, StateFollowLane
	}
	return goal, StateStop
}

// emergencyStopState is the terminal safety state: it returns an emergency
// stop decision on every tick and always names itself as the next state.
// Neither this package nor the tick orchestrator moves the machine out of
// it, including once the vehicle has come to rest.
type emergencyStopState struct{}

func (emergencyStopState) Name() StateName { return StateEmergencyStop }

func (emergencyStopState) Execute(ctx Context) (Goal, StateName) {
	goal := Goal{
		Decision: DecisionEmergencyStop,
		Infos:    []LaneManeuverInfo{{LaneID: ctx.CurrentLaneID, TargetS: ctx.EgoS, HasStopPoint: true, ReferenceLine: ctx.ReferenceLine}},
	}
	return goal, StateEmergencyStop
}

// States returns the fixed set of maneuver states keyed by StateName, ready
// for a StateName-indexed dispatch loop.
func States() map[StateName]State {
	return map[StateName]State{
		StateFollowLane:     followLaneState{},
		StateChangeLeftLane: changeLaneState{name: StateChangeLeftLane, offset: LaneLeft},
		StateChangeRightLane: changeLaneState{name: StateChangeRightLane, offset: LaneRight},
		StateStop:           stopState{},
		StateEmergencyStop:  emergencyStopState{},
	}
}

// Planner drives the maneuver state machine tick by tick.
type Planner struct {
	current StateName
	logger  golog.Logger
}

// NewPlanner returns a Planner starting in FollowLane.
func NewPlanner(logger golog.Logger) *Planner {
	if logger == nil {
		logger = golog.Global()
	}
	return &Planner{current: StateFollowLane, logger: logger}
}

// Tick runs one decision pass and advances the internal state.
func (p *Planner) Tick(ctx Context) Goal {
	state, ok := States()[p.current]
	if !ok {
		state = followLaneState{}
	}
	goal, next := state.Execute(ctx)
	if next != p.current {
		p.logger.Debugw("maneuver state transition", "from", p.current.String(), "to", next.String(), "decision", goal.Decision)
	}
	p.current = next
	return goal
}

// CurrentState returns the planner's current state.
func (p *Planner) CurrentState() StateName {
	return p.current
}
