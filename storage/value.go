package storage

import (
	"github.com/rotisserie/eris"

	"github.com/saxena-dev/elodin/codec"
	"github.com/saxena-dev/elodin/types"
)

// Value is one entity's worth of component data: a component type plus the
// packed bytes of a single value. Values are immutable once built.
type Value struct {
	typ types.ComponentType
	buf []byte
}

// NewValue packs a leaf sequence into a value of the given type.
func NewValue(typ types.ComponentType, leaves []float64) (Value, error) {
	buf, err := codec.AppendLeaves(nil, typ, leaves)
	if err != nil {
		return Value{}, err
	}
	return Value{typ: typ, buf: buf}, nil
}

// F64Value returns a value of type f64[len(vals)].
func F64Value(vals ...float64) Value {
	typ := types.F64(len(vals))
	buf, _ := codec.AppendLeaves(nil, typ, vals)
	return Value{typ: typ, buf: buf}
}

// F64Scalar returns a scalar f64 value.
func F64Scalar(v float64) Value {
	typ := types.F64()
	buf, _ := codec.AppendLeaves(nil, typ, []float64{v})
	return Value{typ: typ, buf: buf}
}

// U64Scalar returns a scalar u64 value with full 64-bit exactness.
func U64Scalar(v uint64) Value {
	return Value{typ: types.U64(), buf: codec.AppendU64s(nil, []uint64{v})}
}

// U64Pair returns a u64[2] value. Edges are stored this way.
func U64Pair(a, b uint64) Value {
	return Value{typ: types.U64(2), buf: codec.AppendU64s(nil, []uint64{a, b})}
}

func (v Value) Type() types.ComponentType { return v.typ }

// Leaves decodes the value into its ordered float64 leaf sequence.
func (v Value) Leaves() []float64 {
	return codec.ReadLeaves(v.buf, v.typ, 0)
}

// Bytes returns the packed encoding of the value.
func (v Value) Bytes() []byte { return v.buf }

// Validate checks the value against a registered component type.
func (v Value) Validate(typ types.ComponentType) error {
	if !v.typ.Equal(typ) {
		return eris.Errorf("value of type %s does not match component type %s", v.typ, typ)
	}
	return nil
}
