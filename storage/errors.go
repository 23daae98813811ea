package storage

import "errors"

var (
	ErrUnknownEntity     = errors.New("entity was never spawned in this world")
	ErrComponentNotFound = errors.New("no entities hold the requested component")
	ErrAssetConflict     = errors.New("asset name already inserted with different content")
	ErrFrozen            = errors.New("world schema is frozen; no new entities or components may be introduced")
)
