// Package system implements the composable per-tick computation units and
// the pipeline context they run against. A pipeline is a single System built
// by composing smaller ones; Init runs once at compile time to declare state
// and derived components, Step runs once per tick.
package system

import (
	"errors"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/saxena-dev/elodin/storage"
	"github.com/saxena-dev/elodin/types"
)

var ErrVariableConflict = errors.New("pipeline variable already declared with a different type")

// RowRunner is the compute-target hook: it executes n independent row
// evaluations. Implementations may run rows concurrently; rows never read
// each other's output, so any execution order produces identical results.
type RowRunner interface {
	Run(n int, fn func(i int))
}

// SequentialRunner evaluates rows one at a time in ascending order. It is
// the reference behavior every other runner must match.
type SequentialRunner struct{}

func (SequentialRunner) Run(n int, fn func(i int)) {
	for i := 0; i < n; i++ {
		fn(i)
	}
}

// Variable is a named, typed pipeline state variable. Unlike components,
// variables are global to the pipeline rather than per-entity.
type Variable struct {
	Name   string
	Type   types.ComponentType
	Values []float64
}

// Context is the pipeline context systems run against. During the declare
// phase (compile time) it accumulates variables, derived components, and the
// set of unresolved component references; during steps it exposes the
// current bound state.
type Context struct {
	store  *storage.Store
	dt     float64
	tick   uint64
	runner RowRunner
	logger *zerolog.Logger

	declaring bool

	vars     map[string]*Variable
	varOrder []string

	unresolved     []string
	unresolvedSeen map[string]struct{}
}

func NewContext(store *storage.Store, dt float64, runner RowRunner, logger *zerolog.Logger) *Context {
	if runner == nil {
		runner = SequentialRunner{}
	}
	return &Context{
		store:          store,
		dt:             dt,
		runner:         runner,
		logger:         logger,
		vars:           map[string]*Variable{},
		unresolvedSeen: map[string]struct{}{},
	}
}

func (c *Context) Store() *storage.Store   { return c.store }
func (c *Context) TimeStep() float64       { return c.dt }
func (c *Context) Tick() uint64            { return c.tick }
func (c *Context) Runner() RowRunner       { return c.runner }
func (c *Context) Logger() *zerolog.Logger { return c.logger }

// Declaring reports whether the context is in the compile-time declare
// phase.
func (c *Context) Declaring() bool { return c.declaring }

// BeginDeclare and EndDeclare bracket the compile-time Init pass. They are
// called by the execution engine.
func (c *Context) BeginDeclare() { c.declaring = true }
func (c *Context) EndDeclare()   { c.declaring = false }

// BeginStep is called by the execution engine before each tick's Step pass.
func (c *Context) BeginStep(tick uint64) { c.tick = tick }

// DeclareVariable declares a named, typed pipeline variable, zero-filled.
// Re-declaring a name with the same type returns the existing variable, so
// independently written systems can share state; a type mismatch fails.
func (c *Context) DeclareVariable(name string, typ types.ComponentType) (*Variable, error) {
	if !c.declaring {
		return nil, eris.Errorf("variable %q must be declared during system init", name)
	}
	if v, ok := c.vars[name]; ok {
		if !v.Type.Equal(typ) {
			return nil, eris.Wrapf(ErrVariableConflict, "%q: %s vs %s", name, v.Type, typ)
		}
		return v, nil
	}
	v := &Variable{Name: name, Type: typ, Values: make([]float64, typ.Len())}
	c.vars[name] = v
	c.varOrder = append(c.varOrder, name)
	return v, nil
}

// Variable returns a previously declared pipeline variable.
func (c *Context) Variable(name string) (*Variable, error) {
	v, ok := c.vars[name]
	if !ok {
		return nil, eris.Errorf("pipeline variable %q was never declared", name)
	}
	return v, nil
}

// CurrentArrays returns a copy of every declared variable's current values,
// keyed by name.
func (c *Context) CurrentArrays() map[string][]float64 {
	out := make(map[string][]float64, len(c.vars))
	for _, name := range c.varOrder {
		v := c.vars[name]
		vals := make([]float64, len(v.Values))
		copy(vals, v.Values)
		out[name] = vals
	}
	return out
}

// Resolve looks a component name up in the registry. During the declare
// phase an unknown name is recorded rather than failed, so compilation can
// report every unresolved reference at once.
func (c *Context) Resolve(name string) (types.ComponentMetadata, bool) {
	meta, err := c.store.Registry().ByName(name)
	if err != nil {
		if c.declaring {
			c.recordUnresolved(name)
		}
		return types.ComponentMetadata{}, false
	}
	return meta, true
}

// DeclareComponent registers a derived component and ensures it has a
// column, making it available to later systems in the same pipeline. Only
// valid during the declare phase, before the schema freezes.
func (c *Context) DeclareComponent(name string, typ types.ComponentType) (types.ComponentMetadata, error) {
	if !c.declaring {
		return types.ComponentMetadata{}, eris.Errorf(
			"derived component %q must be declared during system init", name)
	}
	meta, err := c.store.Registry().Register(name, typ, false, nil)
	if err != nil {
		return types.ComponentMetadata{}, err
	}
	if _, err := c.store.EnsureColumn(meta); err != nil {
		return types.ComponentMetadata{}, err
	}
	return meta, nil
}

// Unresolved returns every component name referenced during the declare
// phase that is not registered, in first-reference order.
func (c *Context) Unresolved() []string { return c.unresolved }

func (c *Context) recordUnresolved(name string) {
	if _, seen := c.unresolvedSeen[name]; seen {
		return
	}
	c.unresolvedSeen[name] = struct{}{}
	c.unresolved = append(c.unresolved, name)
}
