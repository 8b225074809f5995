// Package worldmap is the interface boundary to the route service: a
// RouteClient abstraction plus the resampling step that turns a sparse
// route response into the dense, evenly-spaced waypoint sequence
// refline.New expects. Global route search (A*/Dijkstra over a road graph)
// is explicitly out of scope (spec.md 1's Non-goals) — this package only
// consumes an already-computed route.
package worldmap

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/tailfin-motion/localplanner/refline"
)

// RouteRequest names the endpoints a route is wanted between, matching the
// Route RPC request shape described in spec.md 6.
type RouteRequest struct {
	StartX, StartY float64
	EndX, EndY     float64
}

// RouteClient is the route service the planner depends on. It is
// implemented here only as a plain Go interface: spec.md 1 scopes the route
// service as an external collaborator reached over RPC, and a real client
// would be generated from that service's .proto definitions.
type RouteClient interface {
	GetRoute(ctx context.Context, req RouteRequest) (refline.RouteResponse, error)
}

// ResampleRoute densifies a sparse RouteResponse to approximately every
// targetSpacing meters by linear interpolation between consecutive
// waypoints, carrying lane metadata forward from the waypoint the
// interpolated sample falls after. refline.New does not itself resample
// (see its doc comment); this is that resampling step.
func ResampleRoute(route refline.RouteResponse, targetSpacing float64) (refline.RouteResponse, error) {
	if targetSpacing <= 0 {
		return refline.RouteResponse{}, errors.New("worldmap: targetSpacing must be positive")
	}
	wps := route.Waypoints
	if len(wps) < 2 {
		return refline.RouteResponse{}, errors.New("worldmap: route needs at least two waypoints to resample")
	}

	out := make([]refline.RouteWaypoint, 0, len(wps)*4)
	out = append(out, wps[0])
	for i := 0; i+1 < len(wps); i++ {
		a, b := wps[i], wps[i+1]
		segLen := math.Hypot(b.X-a.X, b.Y-a.Y)
		if segLen < 1e-9 {
			continue
		}
		steps := int(math.Ceil(segLen / targetSpacing))
		for step := 1; step <= steps; step++ {
			frac := float64(step) / float64(steps)
			wp := a
			wp.X = a.X + frac*(b.X-a.X)
			wp.Y = a.Y + frac*(b.Y-a.Y)
			if step == steps {
				wp = b
			}
			out = append(out, wp)
		}
	}
	return refline.RouteResponse{Waypoints: out}, nil
}

// StaticRouteClient serves a fixed RouteResponse regardless of the request,
// used by cmd/localplannerd and tests in place of a real RPC-backed client.
type StaticRouteClient struct {
	Route refline.RouteResponse
}

// GetRoute implements RouteClient.
func (c StaticRouteClient) GetRoute(ctx context.Context, req RouteRequest) (refline.RouteResponse, error) {
	select {
	case <-ctx.Done():
		return refline.RouteResponse{}, ctx.Err()
	default:
	}
	return c.Route, nil
}
