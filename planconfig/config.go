// Package planconfig decodes the planner's named configuration options
// (spec.md 6) into a single immutable Config value, following the
// mapstructure-decode-with-json-tags pattern used throughout the teacher
// (resource/config.go's AttributeMapConverter, services/slam/builtin's
// config decode).
package planconfig

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// VehicleParams is the vehicle geometry named in spec.md 6's
// "vehicle_params" option.
type VehicleParams struct {
	Length           float64 `json:"length"`
	Width            float64 `json:"width"`
	BackAxleToCenter float64 `json:"back_axle_to_center_length"`
}

// Config is every named option of spec.md 6's Configuration list, decoded
// once at startup and held immutable thereafter.
type Config struct {
	PlanningDeltaT       float64 `json:"planning_delta_t"`
	MaxLookaheadTime     float64 `json:"max_lookahead_time"`
	MinLookaheadDistance float64 `json:"min_lookahead_distance"`
	MaxLookaheadDistance float64 `json:"max_lookahead_distance"`

	LonSafetyBuffer                          float64 `json:"lon_safety_buffer"`
	LatSafetyBuffer                          float64 `json:"lat_safety_buffer"`
	ManeuverForwardClearThreshold            float64 `json:"maneuver_forward_clear_threshold"`
	ManeuverBackwardClearThreshold           float64 `json:"maneuver_backward_clear_threshold"`
	ManeuverTargetLaneForwardClearThreshold  float64 `json:"maneuver_target_lane_forward_clear_threshold"`
	ManeuverTargetLaneBackwardClearThreshold float64 `json:"maneuver_target_lane_backward_clear_threshold"`

	TargetSpeed    float64 `json:"target_speed"`
	MaxLonVelocity float64 `json:"max_lon_velocity"`
	MaxLonAcc      float64 `json:"max_lon_acc"`
	MaxLonDecel    float64 `json:"max_lon_decel"`

	ManeuverSafetyCostGain     float64 `json:"maneuver_safety_cost_gain"`
	ManeuverEfficiencyCostGain float64 `json:"maneuver_efficiency_cost_gain"`
	ManeuverComfortCostGain    float64 `json:"maneuver_comfort_cost_gain"`
	ManeuverExecuteTimeLength  float64 `json:"maneuver_execute_time_length"`

	// TimeHorizons, LateralOffsets, and LateralDistanceHorizons feed the
	// lattice end-condition sampler (sampler.Config): the (time, target
	// speed/stop-s) grid sampled longitudinally, and the (offset, distance)
	// grid sampled laterally.
	TimeHorizons            []float64 `json:"time_horizons"`
	LateralOffsets          []float64 `json:"lateral_offsets"`
	LateralDistanceHorizons []float64 `json:"lateral_distance_horizons"`

	// MaxJerk bounds both longitudinal and lateral jerk in the lattice
	// planner's feasibility pre-filter (spec.md 4.4).
	MaxJerk float64 `json:"max_jerk"`

	// LaneHalfWidth and LateralTolerance together bound how far a
	// candidate trajectory may depart the reference road before the
	// lattice planner's feasibility pre-filter rejects it
	// (|d| > lane_width/2 + tolerance, spec.md 4.4); LaneHalfWidth also
	// bands agents into left/current/right lanes for GetLaneClearDistance.
	LaneHalfWidth    float64 `json:"lane_half_width"`
	LateralTolerance float64 `json:"lateral_tolerance"`

	// IDMTimeGap is the desired time headway IDMLonAcc uses to shape a
	// follow-leader target speed.
	IDMTimeGap float64 `json:"idm_time_gap"`

	VehicleParams VehicleParams `json:"vehicle_params"`

	// ThreadPoolSize is validated (it must be >= 0) but no planner
	// component reads it: collision-check and per-reference-line fan-out
	// do not depend on its value, and 0 does not force sequential
	// execution.
	ThreadPoolSize int `json:"thread_pool_size"`
}

// Default returns the Config populated with the reference values used
// throughout this repo's tests and demo commands.
func Default() Config {
	return Config{
		PlanningDeltaT:       0.1,
		MaxLookaheadTime:     8.0,
		MinLookaheadDistance: 10.0,
		MaxLookaheadDistance: 60.0,

		LonSafetyBuffer:                          5.0,
		LatSafetyBuffer:                          0.5,
		ManeuverForwardClearThreshold:            10.0,
		ManeuverBackwardClearThreshold:           5.0,
		ManeuverTargetLaneForwardClearThreshold:  10.0,
		ManeuverTargetLaneBackwardClearThreshold: 5.0,

		TargetSpeed:    10.0,
		MaxLonVelocity: 15.0,
		MaxLonAcc:      3.0,
		MaxLonDecel:    6.0,

		ManeuverSafetyCostGain:     1.0,
		ManeuverEfficiencyCostGain: 1.0,
		ManeuverComfortCostGain:    1.0,
		ManeuverExecuteTimeLength:  3.0,

		TimeHorizons:            []float64{3, 5, 7},
		LateralOffsets:          []float64{0},
		LateralDistanceHorizons: []float64{30, 50},

		MaxJerk:          4.0,
		LaneHalfWidth:    1.75,
		LateralTolerance: 0.3,

		IDMTimeGap: 1.5,

		VehicleParams: VehicleParams{Length: 4.5, Width: 1.9, BackAxleToCenter: 1.4},

		ThreadPoolSize: 4,
	}
}

// Load decodes attrs (typically parsed from JSON or YAML into a
// map[string]interface{}) over Default(), matching resource/config.go's
// TransformAttributeMapToStruct: unset fields keep their default value, and
// coercible scalar mismatches (e.g. a JSON number arriving as a string) are
// tolerated via mapstructure's WeaklyTypedInput rather than failing the
// decode outright.
func Load(attrs map[string]interface{}) (Config, error) {
	conf := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &conf,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Config{}, errors.Wrap(err, "planconfig: building decoder")
	}
	if err := decoder.Decode(attrs); err != nil {
		return Config{}, errors.Wrap(err, "planconfig: decoding attributes")
	}
	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

// Validate rejects a Config with nonsensical thresholds: a caller that
// decoded attrs with the wrong units will most often show up here as a
// zero or negative value where spec.md 6 implies a strictly positive one.
func (c Config) Validate() error {
	if c.MaxLonVelocity <= 0 {
		return errors.New("planconfig: max_lon_velocity must be positive")
	}
	if c.MaxLonAcc <= 0 || c.MaxLonDecel <= 0 {
		return errors.New("planconfig: max_lon_acc and max_lon_decel must be positive")
	}
	if c.MinLookaheadDistance <= 0 || c.MaxLookaheadDistance < c.MinLookaheadDistance {
		return errors.New("planconfig: lookahead distance bounds are invalid")
	}
	if c.VehicleParams.Length <= 0 || c.VehicleParams.Width <= 0 {
		return errors.New("planconfig: vehicle_params length/width must be positive")
	}
	if c.ThreadPoolSize < 0 {
		return errors.New("planconfig: thread_pool_size must be >= 0")
	}
	if len(c.TimeHorizons) == 0 || len(c.LateralOffsets) == 0 || len(c.LateralDistanceHorizons) == 0 {
		return errors.New("planconfig: time_horizons, lateral_offsets, and lateral_distance_horizons must be non-empty")
	}
	if c.MaxJerk <= 0 {
		return errors.New("planconfig: max_jerk must be positive")
	}
	if c.LaneHalfWidth <= 0 {
		return errors.New("planconfig: lane_half_width must be positive")
	}
	return nil
}

// AsFloat coerces an arbitrary decoded attribute value (e.g. from a
// dynamically-typed override map) to float64 via spf13/cast.
func AsFloat(v interface{}) (float64, error) {
	return cast.ToFloat64E(v)
}
