package spatial

import "math"

// Quat is a quaternion stored in (x, y, z, w) order, scalar last. This is
// the one convention used everywhere in the engine; the leaf order of a pose
// column is [qx, qy, qz, qw, px, py, pz].
type Quat struct {
	X, Y, Z, W float64
}

// IdentityQuat returns the identity rotation.
func IdentityQuat() Quat { return Quat{W: 1} }

// QuatFromAxisAngle returns the rotation of angle radians about axis. The
// axis does not need to be normalized.
func QuatFromAxisAngle(axis Vec3, angle float64) Quat {
	n := axis.Norm()
	if n == 0 {
		return IdentityQuat()
	}
	s := math.Sin(angle/2) / n
	return Quat{
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
		W: math.Cos(angle / 2),
	}
}

// Mul is the Hamilton product q ⊗ o. Composition of rotations: (q.Mul(o))
// rotates first by o, then by q. Non-commutative in general.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

// Conjugate returns the quaternion conjugate, which is the inverse for unit
// quaternions.
func (q Quat) Conjugate() Quat {
	return Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

func (q Quat) Norm() float64 {
	return math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

// Normalize re-projects q onto the unit sphere. A quaternion whose norm is
// already exactly 1.0 is returned unchanged, bit for bit, so an identically
// zero integration step introduces no drift.
func (q Quat) Normalize() Quat {
	n := q.Norm()
	if n == 1 {
		return q
	}
	inv := 1 / n
	return Quat{X: q.X * inv, Y: q.Y * inv, Z: q.Z * inv, W: q.W * inv}
}

// Rotate applies the rotation to a 3-vector: q ⊗ v ⊗ q*.
func (q Quat) Rotate(v Vec3) Vec3 {
	// Expanded sandwich product, avoids building intermediate quaternions.
	u := Vec3{X: q.X, Y: q.Y, Z: q.Z}
	uv := u.Cross(v)
	uuv := u.Cross(uv)
	return v.Add(uv.Scale(2 * q.W)).Add(uuv.Scale(2))
}

// RotateMotion rotates a velocity pair into this orientation's frame.
func (q Quat) RotateMotion(m Motion) Motion {
	return Motion{Ang: q.Rotate(m.Ang), Lin: q.Rotate(m.Lin)}
}

// RotateForce rotates a force pair into this orientation's frame.
func (q Quat) RotateForce(f Force) Force {
	return Force{Torque: q.Rotate(f.Torque), Lin: q.Rotate(f.Lin)}
}

// Scale multiplies every component. The result is generally not a unit
// quaternion; it shows up as an intermediate when integrating q̇.
func (q Quat) Scale(s float64) Quat {
	return Quat{X: q.X * s, Y: q.Y * s, Z: q.Z * s, W: q.W * s}
}

// Add is component-wise addition, used only for integration increments.
func (q Quat) Add(o Quat) Quat {
	return Quat{X: q.X + o.X, Y: q.Y + o.Y, Z: q.Z + o.Z, W: q.W + o.W}
}

// Deriv returns q̇ for a world-frame angular velocity ω: 0.5 · (ω, 0) ⊗ q.
func (q Quat) Deriv(omega Vec3) Quat {
	pure := Quat{X: omega.X, Y: omega.Y, Z: omega.Z, W: 0}
	return pure.Mul(q).Scale(0.5)
}
