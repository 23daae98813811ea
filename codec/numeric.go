package codec

import (
	"encoding/binary"
	"math"

	"github.com/rotisserie/eris"

	"github.com/saxena-dev/elodin/types"
)

// Numeric column packing. Every component column is a contiguous
// little-endian byte buffer; the byte layout of one value is fixed by its
// ComponentType. Values move in and out of the buffer as []float64 leaf
// sequences regardless of primitive type, so that every component can pass
// through the same array-oriented pipeline.

// AppendLeaves encodes one value's leaves onto buf using the primitive
// encoding of typ. The number of leaves must match typ exactly.
func AppendLeaves(buf []byte, typ types.ComponentType, leaves []float64) ([]byte, error) {
	if len(leaves) != typ.Len() {
		return nil, eris.Errorf(
			"value has %d leaves but component type %s requires %d",
			len(leaves), typ, typ.Len(),
		)
	}
	switch typ.Prim {
	case types.PrimF64:
		for _, v := range leaves {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
	case types.PrimF32:
		for _, v := range leaves {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(v)))
		}
	case types.PrimU64:
		for _, v := range leaves {
			buf = binary.LittleEndian.AppendUint64(buf, uint64(v))
		}
	default:
		return nil, eris.Errorf("unknown prim type %d", typ.Prim)
	}
	return buf, nil
}

// ReadLeaves decodes the i-th value of a packed column into a fresh leaf
// slice. The buffer must hold whole values of typ.
func ReadLeaves(buf []byte, typ types.ComponentType, i int) []float64 {
	n := typ.Len()
	out := make([]float64, n)
	switch typ.Prim {
	case types.PrimF64:
		off := i * n * 8
		for j := 0; j < n; j++ {
			out[j] = math.Float64frombits(binary.LittleEndian.Uint64(buf[off+j*8:]))
		}
	case types.PrimF32:
		off := i * n * 4
		for j := 0; j < n; j++ {
			out[j] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off+j*4:])))
		}
	case types.PrimU64:
		off := i * n * 8
		for j := 0; j < n; j++ {
			out[j] = float64(binary.LittleEndian.Uint64(buf[off+j*8:]))
		}
	}
	return out
}

// WriteLeaves overwrites the i-th value of a packed column in place.
func WriteLeaves(buf []byte, typ types.ComponentType, i int, leaves []float64) error {
	n := typ.Len()
	if len(leaves) != n {
		return eris.Errorf(
			"value has %d leaves but component type %s requires %d",
			len(leaves), typ, n,
		)
	}
	switch typ.Prim {
	case types.PrimF64:
		off := i * n * 8
		for j, v := range leaves {
			binary.LittleEndian.PutUint64(buf[off+j*8:], math.Float64bits(v))
		}
	case types.PrimF32:
		off := i * n * 4
		for j, v := range leaves {
			binary.LittleEndian.PutUint32(buf[off+j*4:], math.Float32bits(float32(v)))
		}
	case types.PrimU64:
		off := i * n * 8
		for j, v := range leaves {
			binary.LittleEndian.PutUint64(buf[off+j*8:], uint64(v))
		}
	default:
		return eris.Errorf("unknown prim type %d", typ.Prim)
	}
	return nil
}

// AppendU64s encodes raw uint64 elements onto buf without a float round
// trip, preserving full 64-bit exactness.
func AppendU64s(buf []byte, vals []uint64) []byte {
	for _, v := range vals {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}
	return buf
}

// ReadU64 decodes element j of the i-th value of a U64 column without a
// float round trip. Used for entity-id payloads such as edges and asset
// handles, which must stay exact.
func ReadU64(buf []byte, typ types.ComponentType, i, j int) uint64 {
	off := (i*typ.Len() + j) * 8
	return binary.LittleEndian.Uint64(buf[off:])
}
