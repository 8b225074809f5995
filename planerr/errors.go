// Package planerr defines the typed error kinds returned across the
// planner's package boundaries (spec.md 7), grounded on the small
// sentinel-constructor style of _teacher_ref/motionplan/errors.go but
// extended to a Kind enum wrapped with github.com/pkg/errors so callers can
// both errors.Is/As against a Kind and read the underlying cause.
package planerr

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// Kind classifies why a planning operation failed.
type Kind int

const (
	// InvalidInput marks a caller error: malformed route, empty waypoint
	// list, or a request missing required fields.
	InvalidInput Kind = iota
	// GeometrySingular marks a Frenet<->Cartesian conversion that hit a
	// degenerate configuration (1 - kappa*d <= 0, or cos(deltaTheta) near
	// zero).
	GeometrySingular
	// InfeasibleTrajectory marks a lattice search that produced no
	// candidate honoring the vehicle's speed/acceleration/curvature limits.
	InfeasibleTrajectory
	// Collision marks a trajectory rejected because every sampled
	// candidate collided with the predicted environment.
	Collision
	// RouteUnavailable marks a failure to obtain or resample a route from
	// worldmap.
	RouteUnavailable
	// Deadline marks a planning pass that exceeded its tick budget.
	Deadline
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case GeometrySingular:
		return "geometry_singular"
	case InfeasibleTrajectory:
		return "infeasible_trajectory"
	case Collision:
		return "collision"
	case RouteUnavailable:
		return "route_unavailable"
	case Deadline:
		return "deadline"
	default:
		return "unknown"
	}
}

// Error pairs a Kind with the underlying cause, letting callers branch on
// Kind via errors.As while still printing (and errors.Unwrap-ing to) the
// original error.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, planerr.New(planerr.Collision, nil)) without needing
// the exact wrapped cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

// New wraps err (which may be nil) with the given Kind.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Wrapf wraps err with the given Kind and an additional formatted message,
// preserving err as the Unwrap chain's cause via github.com/pkg/errors.
func Wrapf(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: errors.Wrapf(err, format, args...)}
}

// Errorf builds a new Error of the given Kind from a formatted message with
// no prior cause.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: errors.Errorf(format, args...)}
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, and false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if stderrors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}
