package system

import "strings"

// System is a unit of per-tick computation. Init runs once at compile time
// against the pipeline context to declare state and derived components;
// Step runs once per tick to read current values and write updates.
type System interface {
	Name() string
	Init(ctx *Context) error
	Step(ctx *Context) error
}

type funcSystem struct {
	name string
	init func(ctx *Context) error
	step func(ctx *Context) error
}

// New builds a primitive system from init and step functions. Either may be
// nil.
func New(name string, init, step func(ctx *Context) error) System {
	return &funcSystem{name: name, init: init, step: step}
}

// Fn builds a system with only a step function.
func Fn(name string, step func(ctx *Context) error) System {
	return &funcSystem{name: name, step: step}
}

func (s *funcSystem) Name() string { return s.name }

func (s *funcSystem) Init(ctx *Context) error {
	if s.init == nil {
		return nil
	}
	return s.init(ctx)
}

func (s *funcSystem) Step(ctx *Context) error {
	if s.step == nil {
		return nil
	}
	return s.step(ctx)
}

type composed struct {
	a, b System
}

// Compose runs a then b against the same context, for both Init and Step,
// so b observes a's writes from the same tick. Composition is associative:
// Compose(Compose(a,b),c) behaves identically to Compose(a,Compose(b,c)).
func Compose(a, b System) System {
	return &composed{a: a, b: b}
}

// Pipe composes systems left to right.
func Pipe(systems ...System) System {
	if len(systems) == 0 {
		return New("noop", nil, nil)
	}
	acc := systems[0]
	for _, s := range systems[1:] {
		acc = Compose(acc, s)
	}
	return acc
}

func (s *composed) Name() string {
	return s.a.Name() + "|" + s.b.Name()
}

func (s *composed) Init(ctx *Context) error {
	if err := s.a.Init(ctx); err != nil {
		return err
	}
	return s.b.Init(ctx)
}

func (s *composed) Step(ctx *Context) error {
	if err := s.a.Step(ctx); err != nil {
		return err
	}
	return s.b.Step(ctx)
}

// Names returns the flattened names of every primitive system in a
// pipeline, in execution order.
func Names(s System) []string {
	return strings.Split(s.Name(), "|")
}
