package spatial

import (
	"github.com/rotisserie/eris"

	"github.com/saxena-dev/elodin/types"
)

// Component types of the spatial composites as they appear in columnar
// storage.
var (
	TransformType = types.F64(7)
	MotionType    = types.F64(6)
	ForceType     = types.F64(6)
	InertiaType   = types.F64(4)
)

// Transform is a pose: an orientation plus a translation.
type Transform struct {
	Rot Quat
	Pos Vec3
}

func IdentityTransform() Transform { return Transform{Rot: IdentityQuat()} }

// LinearTransform returns a pose at the given position with identity
// orientation.
func LinearTransform(pos Vec3) Transform { return Transform{Rot: IdentityQuat(), Pos: pos} }

// Compose applies a world-frame delta to the pose. Translation adds;
// orientation composes by Hamilton product and is re-normalized. Poses live
// on a manifold, so this is deliberately not component-wise addition.
func (t Transform) Compose(delta Transform) Transform {
	return Transform{
		Rot: delta.Rot.Mul(t.Rot).Normalize(),
		Pos: t.Pos.Add(delta.Pos),
	}
}

// Leaves decomposes the pose into its ordered numeric leaf sequence:
// [qx, qy, qz, qw, px, py, pz].
func (t Transform) Leaves() []float64 {
	return []float64{t.Rot.X, t.Rot.Y, t.Rot.Z, t.Rot.W, t.Pos.X, t.Pos.Y, t.Pos.Z}
}

func TransformFromLeaves(leaves []float64) (Transform, error) {
	if len(leaves) != 7 {
		return Transform{}, eris.Errorf("pose requires 7 leaves, got %d", len(leaves))
	}
	return Transform{
		Rot: Quat{X: leaves[0], Y: leaves[1], Z: leaves[2], W: leaves[3]},
		Pos: Vec3{X: leaves[4], Y: leaves[5], Z: leaves[6]},
	}, nil
}

// Motion is a twist: an angular velocity paired with a linear velocity.
// Twists add component-wise.
type Motion struct {
	Ang Vec3
	Lin Vec3
}

func LinearMotion(lin Vec3) Motion { return Motion{Lin: lin} }

func (m Motion) Add(o Motion) Motion {
	return Motion{Ang: m.Ang.Add(o.Ang), Lin: m.Lin.Add(o.Lin)}
}

func (m Motion) Scale(s float64) Motion {
	return Motion{Ang: m.Ang.Scale(s), Lin: m.Lin.Scale(s)}
}

// Leaves decomposes the twist as [ωx, ωy, ωz, vx, vy, vz].
func (m Motion) Leaves() []float64 {
	return []float64{m.Ang.X, m.Ang.Y, m.Ang.Z, m.Lin.X, m.Lin.Y, m.Lin.Z}
}

func MotionFromLeaves(leaves []float64) (Motion, error) {
	if len(leaves) != 6 {
		return Motion{}, eris.Errorf("twist requires 6 leaves, got %d", len(leaves))
	}
	return Motion{
		Ang: Vec3{X: leaves[0], Y: leaves[1], Z: leaves[2]},
		Lin: Vec3{X: leaves[3], Y: leaves[4], Z: leaves[5]},
	}, nil
}

// Force is a wrench: a torque paired with a linear force. Wrenches add
// component-wise.
type Force struct {
	Torque Vec3
	Lin    Vec3
}

func LinearForce(lin Vec3) Force { return Force{Lin: lin} }

func (f Force) Add(o Force) Force {
	return Force{Torque: f.Torque.Add(o.Torque), Lin: f.Lin.Add(o.Lin)}
}

// Leaves decomposes the wrench as [τx, τy, τz, fx, fy, fz].
func (f Force) Leaves() []float64 {
	return []float64{f.Torque.X, f.Torque.Y, f.Torque.Z, f.Lin.X, f.Lin.Y, f.Lin.Z}
}

func ForceFromLeaves(leaves []float64) (Force, error) {
	if len(leaves) != 6 {
		return Force{}, eris.Errorf("wrench requires 6 leaves, got %d", len(leaves))
	}
	return Force{
		Torque: Vec3{X: leaves[0], Y: leaves[1], Z: leaves[2]},
		Lin:    Vec3{X: leaves[3], Y: leaves[4], Z: leaves[5]},
	}, nil
}

// Inertia is a scalar mass plus a diagonal moment-of-inertia.
type Inertia struct {
	Diag Vec3
	Mass float64
}

// InertiaFromMass returns the inertia of a unit sphere-like body: the
// moment-of-inertia diagonal equals the mass on every axis.
func InertiaFromMass(mass float64) Inertia {
	return Inertia{Diag: Vec3{X: mass, Y: mass, Z: mass}, Mass: mass}
}

// AngularAccel solves the rigid-body Euler equation for angular
// acceleration: α = I⁻¹·(τ − ω×(I·ω)). Every entry of Diag must be
// nonzero.
func (in Inertia) AngularAccel(torque, omega Vec3) Vec3 {
	iw := Vec3{X: in.Diag.X * omega.X, Y: in.Diag.Y * omega.Y, Z: in.Diag.Z * omega.Z}
	rhs := torque.Sub(omega.Cross(iw))
	return Vec3{X: rhs.X / in.Diag.X, Y: rhs.Y / in.Diag.Y, Z: rhs.Z / in.Diag.Z}
}

// Accel maps a wrench to the accelerations it produces on this body.
func (in Inertia) Accel(f Force, omega Vec3) Motion {
	return Motion{
		Ang: in.AngularAccel(f.Torque, omega),
		Lin: f.Lin.Scale(1 / in.Mass),
	}
}

// Leaves decomposes the inertia as [ixx, iyy, izz, mass].
func (in Inertia) Leaves() []float64 {
	return []float64{in.Diag.X, in.Diag.Y, in.Diag.Z, in.Mass}
}

func InertiaFromLeaves(leaves []float64) (Inertia, error) {
	if len(leaves) != 4 {
		return Inertia{}, eris.Errorf("inertia requires 4 leaves, got %d", len(leaves))
	}
	return Inertia{
		Diag: Vec3{X: leaves[0], Y: leaves[1], Z: leaves[2]},
		Mass: leaves[3],
	}, nil
}
