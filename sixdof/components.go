// Package sixdof implements unconstrained six-degrees-of-freedom rigid-body
// dynamics as a pipeline system: per tick it sums force contributions into
// one net wrench per body, computes accelerations, and integrates pose and
// twist forward under the selected numerical scheme.
package sixdof

import (
	"github.com/rotisserie/eris"

	elodin "github.com/saxena-dev/elodin"
	"github.com/saxena-dev/elodin/component"
	"github.com/saxena-dev/elodin/spatial"
	"github.com/saxena-dev/elodin/storage"
)

// Component names of a rigid body. The leaf layouts are fixed by the
// spatial package: a pose is [qx,qy,qz,qw,px,py,pz], a twist or wrench is
// [angular(3), linear(3)], an inertia is [diag(3), mass].
const (
	WorldPos   = "world_pos"
	WorldVel   = "world_vel"
	WorldAccel = "world_accel"
	Force      = "force"
	Inertia    = "inertia"

	MeshAsset     = "mesh"
	MaterialAsset = "material"
)

// Body is the rigid-body archetype: spawning one attaches pose, twist,
// inertia, a zero net wrench, and a zero acceleration. Mesh and Material
// are optional asset handles for downstream visualization tooling.
type Body struct {
	Pos      spatial.Transform
	Vel      spatial.Motion
	Inertia  spatial.Inertia
	Mesh     storage.Handle
	Material storage.Handle
}

func (b Body) Components() ([]elodin.ComponentValue, error) {
	if err := validInertia(b.Inertia); err != nil {
		return nil, err
	}
	posSchema, err := component.SerializeSchema(spatial.Transform{})
	if err != nil {
		return nil, err
	}
	motionSchema, err := component.SerializeSchema(spatial.Motion{})
	if err != nil {
		return nil, err
	}
	forceSchema, err := component.SerializeSchema(spatial.Force{})
	if err != nil {
		return nil, err
	}
	inertiaSchema, err := component.SerializeSchema(spatial.Inertia{})
	if err != nil {
		return nil, err
	}

	pos, err := storage.NewValue(spatial.TransformType, b.Pos.Leaves())
	if err != nil {
		return nil, err
	}
	vel, err := storage.NewValue(spatial.MotionType, b.Vel.Leaves())
	if err != nil {
		return nil, err
	}
	inertia, err := storage.NewValue(spatial.InertiaType, b.Inertia.Leaves())
	if err != nil {
		return nil, err
	}
	zeroForce, err := storage.NewValue(spatial.ForceType, spatial.Force{}.Leaves())
	if err != nil {
		return nil, err
	}
	zeroAccel, err := storage.NewValue(spatial.MotionType, spatial.Motion{}.Leaves())
	if err != nil {
		return nil, err
	}

	comps := []elodin.ComponentValue{
		{Name: WorldPos, Value: pos, Schema: posSchema},
		{Name: WorldVel, Value: vel, Schema: motionSchema},
		{Name: Inertia, Value: inertia, Schema: inertiaSchema},
		{Name: Force, Value: zeroForce, Schema: forceSchema},
		{Name: WorldAccel, Value: zeroAccel, Schema: motionSchema},
	}
	if b.Mesh != 0 {
		comps = append(comps, elodin.ComponentValue{
			Name: MeshAsset, Asset: true, Value: storage.U64Scalar(uint64(b.Mesh)),
		})
	}
	if b.Material != 0 {
		comps = append(comps, elodin.ComponentValue{
			Name: MaterialAsset, Asset: true, Value: storage.U64Scalar(uint64(b.Material)),
		})
	}
	return comps, nil
}

// validInertia rejects a body whose mass or moment-of-inertia diagonal is
// not strictly positive. The Euler equation divides by every diagonal
// entry, so such a body would go non-finite on its first step.
func validInertia(in spatial.Inertia) error {
	if in.Mass <= 0 {
		return eris.Errorf("body mass must be positive, got %v", in.Mass)
	}
	if in.Diag.X <= 0 || in.Diag.Y <= 0 || in.Diag.Z <= 0 {
		return eris.Errorf("inertia diagonal must be positive on every axis, got %+v", in.Diag)
	}
	return nil
}
