package sixdof

import (
	"github.com/rotisserie/eris"

	"github.com/saxena-dev/elodin/query"
	"github.com/saxena-dev/elodin/spatial"
	"github.com/saxena-dev/elodin/storage"
	"github.com/saxena-dev/elodin/system"
	"github.com/saxena-dev/elodin/types"
)

// Scheme selects the numerical integration scheme.
type Scheme int

const (
	// SemiImplicit updates the twist with the current-step acceleration
	// first, then updates the pose with the newly updated twist. First-order
	// accurate, but its long-horizon energy drift stays bounded where a
	// naive explicit update's would not.
	SemiImplicit Scheme = iota
	// RK4 evaluates the derivative at four staged sub-points with the
	// classical (1,2,2,1)/6 weights for a 4th-order-accurate joint update of
	// pose and twist.
	RK4
)

func (s Scheme) String() string {
	switch s {
	case SemiImplicit:
		return "semi_implicit"
	case RK4:
		return "rk4"
	}
	return "unknown"
}

type options struct {
	forceSystems []system.System
}

type Option func(*options)

// WithForceSystem adds a force-contribution system. It runs after the net
// wrench is cleared and before integration, so its writes into the force
// component are part of this tick's net wrench. Multiple force systems
// compose in the order given; use accumulate-style writes (query.MapAdd,
// query.GraphMapAdd) so contributions sum.
func WithForceSystem(sys system.System) Option {
	return func(o *options) { o.forceSystems = append(o.forceSystems, sys) }
}

// New builds the six-DOF integrator pipeline for one time step and scheme.
func New(timeStep float64, scheme Scheme, opts ...Option) system.System {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	systems := []system.System{clearForces()}
	systems = append(systems, o.forceSystems...)
	systems = append(systems, integrate(timeStep, scheme))
	return system.Pipe(systems...)
}

// ConstantGravity returns a force system applying a uniform gravitational
// acceleration: each body receives a force of mass·g, so every body
// accelerates at g regardless of mass.
func ConstantGravity(g spatial.Vec3) system.System {
	return query.MapAdd(
		[]string{Inertia}, Force, spatial.ForceType,
		func(in [][]float64) []float64 {
			mass := in[0][3]
			return spatial.Force{Lin: g.Scale(mass)}.Leaves()
		},
	)
}

// clearForces zeroes the net wrench at the top of every tick so per-tick
// contributions sum from a clean slate.
func clearForces() system.System {
	return system.New("clear_forces",
		func(ctx *system.Context) error {
			q := query.New(ctx, WorldPos, WorldVel, Inertia)
			if _, err := ctx.DeclareComponent(Force, spatial.ForceType); err != nil {
				return err
			}
			if len(ctx.Unresolved()) > 0 {
				return nil
			}
			return seedRows(ctx, q, Force, spatial.ForceType)
		},
		func(ctx *system.Context) error {
			col, err := ctx.Store().Column(Force)
			if err != nil {
				return err
			}
			zero := spatial.Force{}.Leaves()
			for i := 0; i < col.Len(); i++ {
				if err := col.SetRow(i, zero); err != nil {
					return err
				}
			}
			return nil
		},
	)
}

type bodyState struct {
	pos spatial.Transform
	vel spatial.Motion
}

type bodyDeriv struct {
	dRot spatial.Quat
	dPos spatial.Vec3
	dVel spatial.Motion
}

func derivative(s bodyState, f spatial.Force, inertia spatial.Inertia) bodyDeriv {
	accel := inertia.Accel(f, s.vel.Ang)
	return bodyDeriv{
		dRot: s.pos.Rot.Deriv(s.vel.Ang),
		dPos: s.vel.Lin,
		dVel: accel,
	}
}

func (s bodyState) addScaled(d bodyDeriv, h float64) bodyState {
	return bodyState{
		pos: spatial.Transform{
			Rot: s.pos.Rot.Add(d.dRot.Scale(h)),
			Pos: s.pos.Pos.Add(d.dPos.Scale(h)),
		},
		vel: s.vel.Add(d.dVel.Scale(h)),
	}
}

func stepSemiImplicit(s bodyState, f spatial.Force, inertia spatial.Inertia, dt float64) (bodyState, spatial.Motion) {
	accel := inertia.Accel(f, s.vel.Ang)
	vel := s.vel.Add(accel.Scale(dt))
	// Pose advances with the updated twist; orientation is re-normalized to
	// counter drift from the Euclidean update of a manifold quantity.
	pos := spatial.Transform{
		Rot: s.pos.Rot.Add(s.pos.Rot.Deriv(vel.Ang).Scale(dt)).Normalize(),
		Pos: s.pos.Pos.Add(vel.Lin.Scale(dt)),
	}
	return bodyState{pos: pos, vel: vel}, accel
}

func stepRK4(s bodyState, f spatial.Force, inertia spatial.Inertia, dt float64) (bodyState, spatial.Motion) {
	k1 := derivative(s, f, inertia)
	k2 := derivative(s.addScaled(k1, dt/2), f, inertia)
	k3 := derivative(s.addScaled(k2, dt/2), f, inertia)
	k4 := derivative(s.addScaled(k3, dt), f, inertia)

	h := dt / 6
	out := bodyState{
		pos: spatial.Transform{
			Rot: s.pos.Rot.
				Add(k1.dRot.Scale(h)).
				Add(k2.dRot.Scale(2 * h)).
				Add(k3.dRot.Scale(2 * h)).
				Add(k4.dRot.Scale(h)).
				Normalize(),
			Pos: s.pos.Pos.
				Add(k1.dPos.Scale(h)).
				Add(k2.dPos.Scale(2 * h)).
				Add(k3.dPos.Scale(2 * h)).
				Add(k4.dPos.Scale(h)),
		},
		vel: s.vel.
			Add(k1.dVel.Scale(h)).
			Add(k2.dVel.Scale(2 * h)).
			Add(k3.dVel.Scale(2 * h)).
			Add(k4.dVel.Scale(h)),
	}
	return out, inertia.Accel(f, s.vel.Ang)
}

func integrate(dt float64, scheme Scheme) system.System {
	return system.New("integrate_"+scheme.String(),
		func(ctx *system.Context) error {
			q := query.New(ctx, WorldPos, WorldVel, Force, Inertia)
			if _, err := ctx.DeclareComponent(WorldAccel, spatial.MotionType); err != nil {
				return err
			}
			if len(ctx.Unresolved()) > 0 {
				return nil
			}
			return seedRows(ctx, q, WorldAccel, spatial.MotionType)
		},
		func(ctx *system.Context) error {
			q := query.New(ctx, WorldPos, WorldVel, Force, Inertia)
			res, err := q.Result()
			if err != nil {
				return err
			}
			n := res.Len()
			newPos := make([][]float64, n)
			newVel := make([][]float64, n)
			newAccel := make([][]float64, n)
			// Per-row error slots keep the row function race-free under a
			// parallel runner.
			rowErrs := make([]error, n)
			ctx.Runner().Run(n, func(i int) {
				pos, err := spatial.TransformFromLeaves(res.Row(WorldPos, i))
				if err != nil {
					rowErrs[i] = err
					return
				}
				vel, err := spatial.MotionFromLeaves(res.Row(WorldVel, i))
				if err != nil {
					rowErrs[i] = err
					return
				}
				f, err := spatial.ForceFromLeaves(res.Row(Force, i))
				if err != nil {
					rowErrs[i] = err
					return
				}
				inertia, err := spatial.InertiaFromLeaves(res.Row(Inertia, i))
				if err != nil {
					rowErrs[i] = err
					return
				}
				state := bodyState{pos: pos, vel: vel}
				var next bodyState
				var accel spatial.Motion
				switch scheme {
				case SemiImplicit:
					next, accel = stepSemiImplicit(state, f, inertia, dt)
				case RK4:
					next, accel = stepRK4(state, f, inertia, dt)
				default:
					rowErrs[i] = eris.Errorf("unknown integration scheme %d", scheme)
					return
				}
				newPos[i] = next.pos.Leaves()
				newVel[i] = next.vel.Leaves()
				newAccel[i] = accel.Leaves()
			})
			for _, err := range rowErrs {
				if err != nil {
					return err
				}
			}
			if err := writeRows(ctx, WorldPos, res.Entities, newPos); err != nil {
				return err
			}
			if err := writeRows(ctx, WorldVel, res.Entities, newVel); err != nil {
				return err
			}
			return writeRows(ctx, WorldAccel, res.Entities, newAccel)
		},
	)
}

func writeRows(ctx *system.Context, name string, ids []types.EntityID, rows [][]float64) error {
	col, err := ctx.Store().Column(name)
	if err != nil {
		return err
	}
	for i, id := range ids {
		rowIdx, ok := col.Index(id)
		if !ok {
			return eris.Errorf("component %q has no row for entity %d", name, id)
		}
		if err := col.SetRow(rowIdx, rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// seedRows gives a derived component a zero row for every entity the query
// matches, before the schema freezes.
func seedRows(ctx *system.Context, q *query.Query, name string, typ types.ComponentType) error {
	ids, err := q.Entities()
	if err != nil {
		return err
	}
	meta, err := ctx.Store().Registry().ByName(name)
	if err != nil {
		return err
	}
	col, err := ctx.Store().EnsureColumn(meta)
	if err != nil {
		return err
	}
	zero, err := storage.NewValue(typ, make([]float64, typ.Len()))
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, held := col.Index(id); held {
			continue
		}
		if err := col.Upsert(id, zero); err != nil {
			return err
		}
	}
	return nil
}
