// Package elodin is a deterministic, tick-based simulation engine. Entities
// carry typed components in columnar storage, systems compose into a single
// pipeline, and a compiled world advances tick by tick, committing each
// tick's state to a replayable history.
package elodin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/saxena-dev/elodin/component"
	"github.com/saxena-dev/elodin/storage"
	"github.com/saxena-dev/elodin/system"
)

var (
	// ErrPipelineValidation reports unresolved component references found
	// while compiling a pipeline.
	ErrPipelineValidation = errors.New("pipeline references unresolved components")
	// ErrNumericInstability reports a non-finite value produced by a tick.
	// The failing tick is rolled back and never committed to history.
	ErrNumericInstability = errors.New("tick produced a non-finite value")
	// ErrWorldCompiled reports a builder mutation after Compile.
	ErrWorldCompiled = errors.New("world is already compiled")
)

// Sentinels re-exported from the packages that raise them, so callers can
// errors.Is against a single import.
var (
	ErrTypeConflict      = component.ErrTypeConflict
	ErrComponentNotFound = component.ErrComponentNotFound
	ErrUnknownEntity     = storage.ErrUnknownEntity
	ErrAssetConflict     = storage.ErrAssetConflict
	ErrVariableConflict  = system.ErrVariableConflict
)

// PipelineValidationError lists every unresolved component reference made
// during the pipeline's declare pass, in first-reference order. Compilation
// collects all of them before failing so one compile reports every mistake.
type PipelineValidationError struct {
	Missing []string
}

func (e *PipelineValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrPipelineValidation, strings.Join(e.Missing, ", "))
}

func (e *PipelineValidationError) Unwrap() error { return ErrPipelineValidation }
