package types

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// MetadataKind tags the closed set of value kinds a metadata entry may hold.
type MetadataKind uint8

const (
	MetadataString MetadataKind = iota
	MetadataBool
	MetadataInt
)

// MetadataValue is a tagged string/bool/int variant. Component metadata is
// static auxiliary data; it never participates in numeric evaluation.
type MetadataValue struct {
	kind MetadataKind
	str  string
	b    bool
	i    int64
}

func StringValue(s string) MetadataValue { return MetadataValue{kind: MetadataString, str: s} }
func BoolValue(b bool) MetadataValue     { return MetadataValue{kind: MetadataBool, b: b} }
func IntValue(i int64) MetadataValue     { return MetadataValue{kind: MetadataInt, i: i} }

func (v MetadataValue) Kind() MetadataKind { return v.kind }
func (v MetadataValue) Str() string        { return v.str }
func (v MetadataValue) Bool() bool         { return v.b }
func (v MetadataValue) Int() int64         { return v.i }

type metadataValueJSON struct {
	Kind MetadataKind `json:"kind"`
	Str  string       `json:"str,omitempty"`
	Bool bool         `json:"bool,omitempty"`
	Int  int64        `json:"int,omitempty"`
}

func (v MetadataValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(metadataValueJSON{Kind: v.kind, Str: v.str, Bool: v.b, Int: v.i})
}

func (v *MetadataValue) UnmarshalJSON(bz []byte) error {
	var raw metadataValueJSON
	if err := json.Unmarshal(bz, &raw); err != nil {
		return eris.Wrap(err, "failed to decode metadata value")
	}
	*v = MetadataValue{kind: raw.Kind, str: raw.Str, b: raw.Bool, i: raw.Int}
	return nil
}

// Metadata is the string-keyed auxiliary data attached to a component.
type Metadata map[string]MetadataValue
