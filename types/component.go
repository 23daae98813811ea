package types

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ComponentID is a stable 64-bit identifier derived from a component's name.
// Two components with the same name always share an ID, across processes and
// across runs.
type ComponentID uint64

// NewComponentID hashes a component name into its ComponentID (FNV-1a).
func NewComponentID(name string) ComponentID {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return ComponentID(h.Sum64())
}

// PrimType is the primitive element type of a component column.
type PrimType uint8

const (
	PrimF64 PrimType = iota
	PrimF32
	PrimU64
)

// Size returns the byte width of one element of this primitive type.
func (p PrimType) Size() int {
	switch p {
	case PrimF64, PrimU64:
		return 8
	case PrimF32:
		return 4
	}
	panic("unknown prim type")
}

func (p PrimType) String() string {
	switch p {
	case PrimF64:
		return "f64"
	case PrimF32:
		return "f32"
	case PrimU64:
		return "u64"
	}
	return "unknown"
}

// ComponentType is the exact type of every value stored under a component
// name: a primitive element type plus an ordered tuple of dimension sizes.
// A scalar has an empty shape. Once a name is registered with a
// ComponentType, every value stored under that name must match it exactly.
type ComponentType struct {
	Prim  PrimType `json:"prim"`
	Shape []int    `json:"shape,omitempty"`
}

// F64 returns a 64-bit float component type with the given shape.
func F64(shape ...int) ComponentType { return ComponentType{Prim: PrimF64, Shape: shape} }

// F32 returns a 32-bit float component type with the given shape.
func F32(shape ...int) ComponentType { return ComponentType{Prim: PrimF32, Shape: shape} }

// U64 returns a 64-bit unsigned int component type with the given shape.
func U64(shape ...int) ComponentType { return ComponentType{Prim: PrimU64, Shape: shape} }

// Len returns the number of primitive elements in one value of this type.
func (c ComponentType) Len() int {
	n := 1
	for _, d := range c.Shape {
		n *= d
	}
	return n
}

// Size returns the byte width of one value of this type.
func (c ComponentType) Size() int {
	return c.Len() * c.Prim.Size()
}

func (c ComponentType) Equal(other ComponentType) bool {
	if c.Prim != other.Prim || len(c.Shape) != len(other.Shape) {
		return false
	}
	for i, d := range c.Shape {
		if other.Shape[i] != d {
			return false
		}
	}
	return true
}

// Validate rejects negative dimension sizes.
func (c ComponentType) Validate() error {
	for _, d := range c.Shape {
		if d < 0 {
			return eris.Errorf("invalid component shape %v: negative dimension", c.Shape)
		}
	}
	return nil
}

func (c ComponentType) String() string {
	if len(c.Shape) == 0 {
		return c.Prim.String()
	}
	dims := make([]string, len(c.Shape))
	for i, d := range c.Shape {
		dims[i] = strconv.Itoa(d)
	}
	return fmt.Sprintf("%s[%s]", c.Prim, strings.Join(dims, ","))
}

// ComponentMetadata is the registry entry for a named component. Asset
// components hold opaque handles into the asset side-store rather than raw
// numeric data. Schema, when present, is a JSON-schema fingerprint of the Go
// composite type the component decomposes from.
type ComponentMetadata struct {
	ID       ComponentID   `json:"id"`
	Name     string        `json:"name"`
	Type     ComponentType `json:"type"`
	Asset    bool          `json:"asset,omitempty"`
	Metadata Metadata      `json:"metadata,omitempty"`
	Schema   []byte        `json:"schema,omitempty"`
}
