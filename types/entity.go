package types

import "strconv"

// EntityID is the opaque identifier of a single entity. IDs are assigned
// monotonically on creation and are never reused within one world.
type EntityID uint64

func (id EntityID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
