package spatial

import (
	"math"
	"testing"

	"github.com/saxena-dev/elodin/assert"
)

func TestTransformLeavesRoundTrip(t *testing.T) {
	orig := Transform{
		Rot: QuatFromAxisAngle(V3(0, 0, 1), math.Pi/3),
		Pos: V3(1.5, -2.25, 0.125),
	}
	got, err := TransformFromLeaves(orig.Leaves())
	assert.NilError(t, err)
	assert.Equal(t, orig, got)
}

func TestMotionLeavesRoundTrip(t *testing.T) {
	orig := Motion{Ang: V3(0.1, 0.2, 0.3), Lin: V3(-1, -2, -3)}
	got, err := MotionFromLeaves(orig.Leaves())
	assert.NilError(t, err)
	assert.Equal(t, orig, got)
}

func TestTransformLeavesOrder(t *testing.T) {
	tf := Transform{
		Rot: Quat{X: 1, Y: 2, Z: 3, W: 4},
		Pos: V3(5, 6, 7),
	}
	assert.DeepEqual(t, tf.Leaves(), []float64{1, 2, 3, 4, 5, 6, 7})
}

func TestFromLeavesRejectsWrongLength(t *testing.T) {
	_, err := TransformFromLeaves([]float64{1, 2, 3})
	assert.Assert(t, err != nil)
	_, err = MotionFromLeaves([]float64{1})
	assert.Assert(t, err != nil)
	_, err = ForceFromLeaves(nil)
	assert.Assert(t, err != nil)
	_, err = InertiaFromLeaves([]float64{1, 2})
	assert.Assert(t, err != nil)
}

func TestQuatMulAssociative(t *testing.T) {
	a := QuatFromAxisAngle(V3(1, 0, 0), 0.4)
	b := QuatFromAxisAngle(V3(0, 1, 0), 1.1)
	c := QuatFromAxisAngle(V3(0, 0, 1), -0.7)

	left := a.Mul(b).Mul(c)
	right := a.Mul(b.Mul(c))
	assert.InDelta(t, left.X, right.X, 1e-12)
	assert.InDelta(t, left.Y, right.Y, 1e-12)
	assert.InDelta(t, left.Z, right.Z, 1e-12)
	assert.InDelta(t, left.W, right.W, 1e-12)
}

func TestQuatMulNotCommutative(t *testing.T) {
	a := QuatFromAxisAngle(V3(1, 0, 0), math.Pi/2)
	b := QuatFromAxisAngle(V3(0, 1, 0), math.Pi/2)
	ab := a.Mul(b)
	ba := b.Mul(a)
	assert.Assert(t, ab != ba)
}

func TestQuatRotate(t *testing.T) {
	q := QuatFromAxisAngle(V3(0, 0, 1), math.Pi/2)
	got := q.Rotate(V3(1, 0, 0))
	assert.InDelta(t, got.X, 0, 1e-12)
	assert.InDelta(t, got.Y, 1, 1e-12)
	assert.InDelta(t, got.Z, 0, 1e-12)
}

func TestNormalizeYieldsUnitNorm(t *testing.T) {
	q := Quat{X: 3, Y: 0, Z: 4, W: 0}.Normalize()
	assert.InDelta(t, q.Norm(), 1, 1e-15)
}

func TestNormalizeUnitQuatIsExactNoOp(t *testing.T) {
	q := IdentityQuat()
	assert.Equal(t, q, q.Normalize())
}

func TestComposeTranslationAdds(t *testing.T) {
	a := LinearTransform(V3(1, 2, 3))
	b := LinearTransform(V3(10, 20, 30))
	got := a.Compose(b)
	assert.Equal(t, got.Pos, V3(11, 22, 33))
	assert.InDelta(t, got.Rot.Norm(), 1, 1e-15)
}

func TestComposeRotationIsHamiltonProduct(t *testing.T) {
	a := Transform{Rot: QuatFromAxisAngle(V3(0, 0, 1), math.Pi/4)}
	delta := Transform{Rot: QuatFromAxisAngle(V3(0, 0, 1), math.Pi/4)}
	got := a.Compose(delta)
	want := QuatFromAxisAngle(V3(0, 0, 1), math.Pi/2)
	assert.InDelta(t, got.Rot.X, want.X, 1e-12)
	assert.InDelta(t, got.Rot.Y, want.Y, 1e-12)
	assert.InDelta(t, got.Rot.Z, want.Z, 1e-12)
	assert.InDelta(t, got.Rot.W, want.W, 1e-12)
}

func TestInertiaAngularAccelGyroscopicTerm(t *testing.T) {
	in := Inertia{Diag: V3(1, 2, 3), Mass: 1}

	// Spin about a principal axis with no torque: no gyroscopic coupling.
	alpha := in.AngularAccel(V3(0, 0, 0), V3(0, 0, 5))
	assert.Equal(t, alpha, V3(0, 0, 0))

	// Off-axis spin couples: alpha = I^-1 (tau - omega x (I omega)).
	omega := V3(1, 1, 0)
	iOmega := V3(1*1, 2*1, 0)
	want := omega.Cross(iOmega).Scale(-1)
	want = V3(want.X/1, want.Y/2, want.Z/3)
	got := in.AngularAccel(V3(0, 0, 0), omega)
	assert.InDelta(t, got.X, want.X, 1e-12)
	assert.InDelta(t, got.Y, want.Y, 1e-12)
	assert.InDelta(t, got.Z, want.Z, 1e-12)
}

func TestInertiaAccelLinear(t *testing.T) {
	in := InertiaFromMass(2)
	accel := in.Accel(Force{Lin: V3(0, 0, -19.6)}, V3(0, 0, 0))
	assert.Equal(t, accel.Lin, V3(0, 0, -9.8))
	assert.Equal(t, accel.Ang, V3(0, 0, 0))
}

func TestConjugateInvertsRotation(t *testing.T) {
	q := QuatFromAxisAngle(V3(1, 2, 3), 0.9)
	v := V3(4, -5, 6)
	back := q.Conjugate().Rotate(q.Rotate(v))
	assert.InDelta(t, back.X, v.X, 1e-12)
	assert.InDelta(t, back.Y, v.Y, 1e-12)
	assert.InDelta(t, back.Z, v.Z, 1e-12)
}

func TestRotatePairsRotateBothHalves(t *testing.T) {
	q := QuatFromAxisAngle(V3(0, 0, 1), math.Pi/2)

	m := q.RotateMotion(Motion{Ang: V3(1, 0, 0), Lin: V3(0, 1, 0)})
	assert.InDelta(t, m.Ang.Y, 1, 1e-12)
	assert.InDelta(t, m.Lin.X, -1, 1e-12)

	f := q.RotateForce(Force{Torque: V3(1, 0, 0), Lin: V3(1, 0, 0)})
	assert.InDelta(t, f.Torque.Y, 1, 1e-12)
	assert.InDelta(t, f.Lin.Y, 1, 1e-12)
}

func TestQuatDerivZeroOmega(t *testing.T) {
	q := QuatFromAxisAngle(V3(1, 0, 0), 0.3)
	d := q.Deriv(V3(0, 0, 0))
	assert.Equal(t, d, Quat{})
}
