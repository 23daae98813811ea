package system

import "github.com/saxena-dev/elodin/types"

// SimulationTime is the reserved pipeline variable holding the current
// simulation time in seconds. It starts at zero and advances by the
// pipeline's time step each tick.
const SimulationTime = "simulation_time"

// AdvanceTime returns the minimal system that increments the reserved
// simulation-time variable by timeStep each tick. The execution engine
// composes it in front of every compiled pipeline; it is also usable
// standalone.
func AdvanceTime(timeStep float64) System {
	return New("advance_time",
		func(ctx *Context) error {
			_, err := ctx.DeclareVariable(SimulationTime, types.F64())
			return err
		},
		func(ctx *Context) error {
			v, err := ctx.Variable(SimulationTime)
			if err != nil {
				return err
			}
			v.Values[0] += timeStep
			return nil
		},
	)
}
