// Command plansim runs the local planner against a scripted scenario file:
// a starting ego state, a straight-line route, and a fixed set of tracked
// agents, and prints the trajectory each tick produces. It exists to
// exercise the scenarios of spec.md 8 (S1-S4) end to end without a live
// perception stack, in the spirit of
// _teacher_ref/motionplan/armplanning/cmd-plan/cmd-plan.go's
// read-a-json-file-and-plan-once shape.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/edaniels/golog"

	"github.com/tailfin-motion/localplanner/kinodynamic"
	"github.com/tailfin-motion/localplanner/obstacle"
	"github.com/tailfin-motion/localplanner/planconfig"
	"github.com/tailfin-motion/localplanner/refline"
	"github.com/tailfin-motion/localplanner/tick"
)

// scenario is the JSON scenario file shape: a route plus the ego's starting
// state and any agents tracked from the first tick onward.
type scenario struct {
	Route []refline.RouteWaypoint `json:"route"`
	Ego   kinodynamic.State       `json:"ego"`
	Agents []obstacle.Agent       `json:"agents"`
	Ticks  int                    `json:"ticks"`
}

func main() {
	if err := realMain(); err != nil {
		log.Fatal(err)
	}
}

func realMain() error {
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()
	if len(flag.Args()) == 0 {
		return fmt.Errorf("usage: plansim <scenario.json>")
	}

	logger := golog.NewDevelopmentLogger("plansim")
	if !*verbose {
		logger = golog.NewLogger("plansim")
	}

	content, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		return err
	}
	var sc scenario
	if err := json.Unmarshal(content, &sc); err != nil {
		return err
	}
	if len(sc.Route) < 2 {
		return fmt.Errorf("scenario route needs at least two waypoints")
	}
	if sc.Ticks <= 0 {
		sc.Ticks = 20
	}

	rl, err := refline.New(refline.RouteResponse{Waypoints: sc.Route})
	if err != nil {
		return err
	}

	registry := obstacle.NewRegistry()
	registry.Publish(obstacle.Snapshot{Agents: sc.Agents})

	cfg := planconfig.Default()
	orch := tick.NewOrchestrator(cfg, registry, logger)

	ctx := context.Background()
	state := sc.Ego
	for i := 0; i < sc.Ticks; i++ {
		traj := orch.Tick(ctx, state, tick.Lanes{Current: rl})
		if len(traj.Points) == 0 {
			logger.Warnw("plansim: empty trajectory this tick", "tick", i)
			continue
		}
		next := traj.Points[len(traj.Points)/4] // a quarter of the way along the trajectory
		fmt.Printf("tick %2d: x=%.2f y=%.2f theta=%.3f v=%.2f a=%.2f (points=%d)\n",
			i, next.X, next.Y, next.Theta, next.V, next.A, len(traj.Points))
		state = kinodynamic.State{X: next.X, Y: next.Y, Theta: next.Theta, V: next.V, A: next.A}
	}
	return nil
}
