package typeChecker

import (
	"fmt"

	"github.com/xplshn/gwacc/pkg/ast"
	"github.com/xplshn/gwacc/pkg/types"
)

// CallTarget is the function a call site resolved to.
type CallTarget struct {
	Func     *ast.Func
	Class    *ast.Class // nil for free functions
	Overload int
}

// FieldRef is the class and field index a field access resolved to.
type FieldRef struct {
	Class *ast.Class
	Index int
}

// annotations is the side table filled while checking one body. Each worker
// owns its own table; they are merged once all bodies are checked.
type annotations struct {
	types     map[ast.Node]types.Type
	pairElems map[*ast.NewPair][2]types.Type
	calls     map[*ast.Call]CallTarget
	fields    map[*ast.FieldAccess]FieldRef
}

func newAnnotations() *annotations {
	return &annotations{
		types:     make(map[ast.Node]types.Type),
		pairElems: make(map[*ast.NewPair][2]types.Type),
		calls:     make(map[*ast.Call]CallTarget),
		fields:    make(map[*ast.FieldAccess]FieldRef),
	}
}

func (a *annotations) merge(other *annotations) {
	for k, v := range other.types {
		a.types[k] = v
	}
	for k, v := range other.pairElems {
		a.pairElems[k] = v
	}
	for k, v := range other.calls {
		a.calls[k] = v
	}
	for k, v := range other.fields {
		a.fields[k] = v
	}
}

// AnnotatedProgram is a program that passed analysis without errors,
// together with everything the analyzer resolved. Code generation only
// accepts this type.
type AnnotatedProgram struct {
	Program   *ast.Program
	ann       *annotations
	overloads map[*ast.Func]int
	owners    map[*ast.Func]*ast.Class
}

// TypeOf returns the type recorded for n. It panics when n was never
// annotated, which means analysis and generation disagree about the tree.
func (p *AnnotatedProgram) TypeOf(n ast.Node) types.Type {
	t, ok := p.ann.types[n]
	if !ok {
		panic(fmt.Sprintf("typeChecker: node %T at %s was not annotated", n, n.Pos()))
	}
	return t
}

// PairElemTypes returns the raw types of both halves of a newpair.
func (p *AnnotatedProgram) PairElemTypes(n *ast.NewPair) (types.Type, types.Type) {
	t, ok := p.ann.pairElems[n]
	if !ok {
		panic(fmt.Sprintf("typeChecker: newpair at %s was not annotated", n.Pos()))
	}
	return t[0], t[1]
}

func (p *AnnotatedProgram) CallTarget(c *ast.Call) CallTarget {
	t, ok := p.ann.calls[c]
	if !ok {
		panic(fmt.Sprintf("typeChecker: call to '%s' at %s was not resolved", c.Name, c.Pos()))
	}
	return t
}

// Field returns the class declaring the field read or written by f.
func (p *AnnotatedProgram) Field(f *ast.FieldAccess) FieldRef {
	ref, ok := p.ann.fields[f]
	if !ok {
		panic(fmt.Sprintf("typeChecker: field access '%s' at %s was not resolved", f.Field, f.Pos()))
	}
	return ref
}

// Overload returns the overload index assigned to f during registration.
func (p *AnnotatedProgram) Overload(f *ast.Func) int {
	idx, ok := p.overloads[f]
	if !ok {
		panic(fmt.Sprintf("typeChecker: function '%s' has no overload index", f.Name))
	}
	return idx
}

// Owner returns the class declaring f, or nil.
func (p *AnnotatedProgram) Owner(f *ast.Func) *ast.Class { return p.owners[f] }
