// Package sampler enumerates the end-condition grid a lattice planner
// samples candidate trajectories from (spec.md 4.4): lateral
// offset-by-horizon combinations, plus longitudinal end states for
// cruising, stopping, and following a leading agent (end states behind
// it only; no overtaking end states are sampled).
package sampler

// EndCondition is one boundary condition candidate: a (position, velocity,
// acceleration) triple to reach at a given parameter horizon. For
// longitudinal candidates T is a time horizon (seconds); for lateral
// candidates T is a longitudinal-distance horizon (meters), since the
// lateral polynomial is solved as a function of arc length traveled rather
// than of time (spec.md 4.4's arc-length reparameterization).
type EndCondition struct {
	X, V, A float64
	T       float64
}

// Config bounds the sampling grid: how far out in time/arc-length to
// consider, and at what resolution.
type Config struct {
	// Longitudinal horizons (seconds) sampled for cruising/stopping ends.
	TimeHorizons []float64
	// Lateral offsets (meters, signed, left positive) sampled at each
	// lateral distance horizon.
	LateralOffsets []float64
	// Longitudinal-distance horizons (meters) paired against every lateral
	// offset: the lateral polynomial returns to the target offset after
	// the ego vehicle has traveled this far along the reference line.
	LateralDistanceHorizons []float64
}

// EndConditionSampler holds the grid Config candidates are drawn from.
type EndConditionSampler struct {
	cfg Config
}

// New returns an EndConditionSampler for the given grid configuration.
func New(cfg Config) *EndConditionSampler {
	return &EndConditionSampler{cfg: cfg}
}

// LateralEndConditions returns the Cartesian product of configured lateral
// offsets and lateral distance horizons, holding target lateral slope and
// curvature (dl/ds, d2l/ds2) at zero (spec.md 4.4: lattice lateral
// candidates always return to a flat, straight offset at the horizon).
func (s *EndConditionSampler) LateralEndConditions() []EndCondition {
	conditions := make([]EndCondition, 0, len(s.cfg.LateralOffsets)*len(s.cfg.LateralDistanceHorizons))
	for _, offset := range s.cfg.LateralOffsets {
		for _, horizon := range s.cfg.LateralDistanceHorizons {
			if horizon <= 0 {
				continue
			}
			conditions = append(conditions, EndCondition{X: offset, V: 0, A: 0, T: horizon})
		}
	}
	return conditions
}

// CruisingEndConditions returns one end condition per configured time
// horizon, each targeting cruiseSpeed with zero acceleration and an
// unconstrained final position (the caller solves a quartic, which leaves
// position free).
func (s *EndConditionSampler) CruisingEndConditions(cruiseSpeed float64) []EndCondition {
	conditions := make([]EndCondition, 0, len(s.cfg.TimeHorizons))
	for _, horizon := range s.cfg.TimeHorizons {
		if horizon <= 0 {
			continue
		}
		conditions = append(conditions, EndCondition{V: cruiseSpeed, A: 0, T: horizon})
	}
	return conditions
}

// StoppingEndConditions returns one end condition per configured time
// horizon, each targeting stopS with zero velocity and acceleration.
func (s *EndConditionSampler) StoppingEndConditions(stopS float64) []EndCondition {
	conditions := make([]EndCondition, 0, len(s.cfg.TimeHorizons))
	for _, horizon := range s.cfg.TimeHorizons {
		if horizon <= 0 {
			continue
		}
		conditions = append(conditions, EndCondition{X: stopS, V: 0, A: 0, T: horizon})
	}
	return conditions
}

// FollowLeaderEndConditions returns one end condition per configured time
// horizon, each targeting a position and speed offset behind the leading
// agent's projected motion, spaced by the given time gap and minimum
// standoff distance (an IDM-style desired following gap).
func (s *EndConditionSampler) FollowLeaderEndConditions(
	leaderS, leaderV, leaderLength, egoLength, timeGap, minGap float64,
) []EndCondition {
	conditions := make([]EndCondition, 0, len(s.cfg.TimeHorizons))
	for _, horizon := range s.cfg.TimeHorizons {
		if horizon <= 0 {
			continue
		}
		desiredGap := minGap + timeGap*leaderV
		targetS := leaderS + leaderV*horizon - leaderLength/2 - egoLength/2 - desiredGap
		conditions = append(conditions, EndCondition{X: targetS, V: leaderV, A: 0, T: horizon})
	}
	return conditions
}
