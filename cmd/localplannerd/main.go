// Command localplannerd runs the local planner as a long-lived process:
// load a YAML config file, subscribe a route once at startup, and drive
// tick.Orchestrator.Tick on a fixed-rate schedule until interrupted. Its
// config-file shape (flag.String("config", ...), os.ReadFile, then
// yaml.UnmarshalStrict) follows
// _examples/tsinghua-fib-lab-agentsociety-sim-oss/main.go, since the teacher
// itself decodes attributes from an already-parsed map rather than a
// standalone YAML file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edaniels/golog"
	"gopkg.in/yaml.v2"

	"github.com/tailfin-motion/localplanner/kinodynamic"
	"github.com/tailfin-motion/localplanner/obstacle"
	"github.com/tailfin-motion/localplanner/planconfig"
	"github.com/tailfin-motion/localplanner/refline"
	"github.com/tailfin-motion/localplanner/tick"
	"github.com/tailfin-motion/localplanner/worldmap"
)

// daemonConfig is the on-disk YAML shape: planner options nested under
// "planner" using the same json tags planconfig.Load decodes, plus the
// static route this daemon serves in place of a live route service.
type daemonConfig struct {
	TickRate int                     `yaml:"tick_rate_hz"`
	Planner  map[string]interface{}  `yaml:"planner"`
	Route    []refline.RouteWaypoint `yaml:"route"`
}

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func realMain() error {
	configPath := flag.String("config", "", "path to a localplannerd YAML config file")
	flag.Parse()
	if *configPath == "" {
		return fmt.Errorf("usage: localplannerd -config <config.yaml>")
	}

	logger := golog.NewLogger("localplannerd")

	raw, err := os.ReadFile(*configPath)
	if err != nil {
		return err
	}
	var dc daemonConfig
	if err := yaml.UnmarshalStrict(raw, &dc); err != nil {
		return fmt.Errorf("parsing %s: %w", *configPath, err)
	}
	if dc.TickRate <= 0 {
		dc.TickRate = 10
	}
	if len(dc.Route) < 2 {
		return fmt.Errorf("localplannerd: config route needs at least two waypoints")
	}

	cfg, err := planconfig.Load(dc.Planner)
	if err != nil {
		return fmt.Errorf("loading planner config: %w", err)
	}

	routeClient := worldmap.StaticRouteClient{Route: refline.RouteResponse{Waypoints: dc.Route}}
	route, err := routeClient.GetRoute(context.Background(), worldmap.RouteRequest{})
	if err != nil {
		return fmt.Errorf("fetching route: %w", err)
	}
	resampled, err := worldmap.ResampleRoute(route, 2.0)
	if err != nil {
		return fmt.Errorf("resampling route: %w", err)
	}
	rl, err := refline.New(resampled)
	if err != nil {
		return fmt.Errorf("building reference line: %w", err)
	}

	registry := obstacle.NewRegistry()
	orch := tick.NewOrchestrator(cfg, registry, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ticker := time.NewTicker(time.Second / time.Duration(dc.TickRate))
	defer ticker.Stop()

	logger.Infow("localplannerd: starting tick loop", "tick_rate_hz", dc.TickRate)

	state := kinodynamic.State{X: dc.Route[0].X, Y: dc.Route[0].Y}
	for {
		select {
		case <-ctx.Done():
			logger.Info("localplannerd: shutting down")
			return nil
		case <-ticker.C:
			traj := orch.Tick(ctx, state, tick.Lanes{Current: rl})
			if len(traj.Points) == 0 {
				continue
			}
			// Advance to the sample one planning delta_t ahead so the next
			// tick's ego state reflects the trajectory just planned.
			idx := 1
			if idx >= len(traj.Points) {
				idx = len(traj.Points) - 1
			}
			next := traj.Points[idx]
			state = kinodynamic.State{X: next.X, Y: next.Y, Theta: next.Theta, V: next.V, A: next.A}
		}
	}
}
