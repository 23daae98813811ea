// Package cql implements a small component query language for selecting
// entities by the components they hold. Expressions look like
//
//	CONTAINS(world_pos, world_vel) & !EXACT(inertia)
//
// and compile to filter.ComponentFilter expressions. Component names are
// resolved against the world's registry, so a query referencing an
// unregistered component fails at parse time.
package cql

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/rotisserie/eris"

	"github.com/saxena-dev/elodin/filter"
	"github.com/saxena-dev/elodin/types"
)

type cqlOperator int

const (
	opAnd cqlOperator = iota
	opOr
)

var operatorMap = map[string]cqlOperator{"&": opAnd, "|": opOr}

// Capture tells the parser how to turn an operator token into the operator
// type.
func (o *cqlOperator) Capture(s []string) error {
	if len(s) == 0 {
		return eris.New("invalid operator")
	}
	operator, ok := operatorMap[s[0]]
	if !ok {
		return eris.New("invalid operator")
	}
	*o = operator
	return nil
}

type cqlComponent struct {
	Name string `parser:"@Ident"`
}

type cqlAll struct{}

func (a *cqlAll) Capture(values []string) error {
	if values[0] == "ALL" && values[1] == "(" && values[2] == ")" {
		*a = cqlAll{}
	}
	return nil
}

type cqlNot struct {
	SubExpression *cqlValue `parser:"\"!\" @@"`
}

type cqlExact struct {
	Components []*cqlComponent `parser:"\"EXACT\"\"(\" (@@\",\")* @@ \")\""`
}

type cqlContains struct {
	Components []*cqlComponent `parser:"\"CONTAINS\" \"(\" (@@\",\")* @@ \")\""`
}

type cqlValue struct {
	All           *cqlAll      `parser:"@(\"ALL\" \"(\" \")\")"`
	Exact         *cqlExact    `parser:"| @@"`
	Contains      *cqlContains `parser:"| @@"`
	Not           *cqlNot      `parser:"| @@"`
	Subexpression *cqlTerm     `parser:"| \"(\" @@ \")\""`
}

type cqlFactor struct {
	Base *cqlValue `parser:"@@"`
}

type cqlOpFactor struct {
	Operator cqlOperator `parser:"@(\"&\" | \"|\")"`
	Factor   *cqlFactor  `parser:"@@"`
}

type cqlTerm struct {
	Left  *cqlFactor     `parser:"@@"`
	Right []*cqlOpFactor `parser:"@@*"`
}

var parser = participle.MustBuild[cqlTerm]()

// Resolver resolves a component name mentioned in a query against a
// registry.
type Resolver func(name string) (types.ComponentMetadata, error)

func componentNames(comps []*cqlComponent, resolve Resolver) ([]string, error) {
	names := make([]string, 0, len(comps))
	for _, comp := range comps {
		meta, err := resolve(comp.Name)
		if err != nil {
			return nil, eris.Wrap(err, "")
		}
		names = append(names, meta.Name)
	}
	return names, nil
}

func valueToFilter(value *cqlValue, resolve Resolver) (filter.ComponentFilter, error) {
	switch {
	case value.Not != nil:
		sub, err := valueToFilter(value.Not.SubExpression, resolve)
		if err != nil {
			return nil, err
		}
		return filter.Not(sub), nil
	case value.Exact != nil:
		if len(value.Exact.Components) == 0 {
			return nil, eris.New("EXACT cannot have zero parameters")
		}
		names, err := componentNames(value.Exact.Components, resolve)
		if err != nil {
			return nil, err
		}
		return filter.Exact(names...), nil
	case value.All != nil:
		return filter.All(), nil
	case value.Contains != nil:
		if len(value.Contains.Components) == 0 {
			return nil, eris.New("CONTAINS cannot have zero parameters")
		}
		names, err := componentNames(value.Contains.Components, resolve)
		if err != nil {
			return nil, err
		}
		return filter.Contains(names...), nil
	case value.Subexpression != nil:
		return termToFilter(value.Subexpression, resolve)
	default:
		return nil, eris.New("unknown error during conversion from CQL AST to ComponentFilter")
	}
}

func termToFilter(term *cqlTerm, resolve Resolver) (filter.ComponentFilter, error) {
	if term.Left == nil {
		return nil, eris.New("not enough values in expression")
	}
	acc, err := valueToFilter(term.Left.Base, resolve)
	if err != nil {
		return nil, err
	}
	for _, opFactor := range term.Right {
		next, err := valueToFilter(opFactor.Factor.Base, resolve)
		if err != nil {
			return nil, err
		}
		switch opFactor.Operator {
		case opAnd:
			acc = filter.And(acc, next)
		case opOr:
			acc = filter.Or(acc, next)
		default:
			return nil, eris.New("invalid operator")
		}
	}
	return acc, nil
}

// Parse compiles a query expression into a component filter.
func Parse(cqlText string, resolve Resolver) (filter.ComponentFilter, error) {
	term, err := parser.ParseString("", strings.TrimSpace(cqlText))
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return termToFilter(term, resolve)
}
