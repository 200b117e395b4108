// Package scope implements ordered, lexically nested variable bindings. The
// order of bindings within a scope fixes their stack layout.
package scope

import "github.com/xplshn/gwacc/pkg/types"

type Binding struct {
	Name string
	Type types.Type
}

// Scope is a persistent value: Declare returns a new Scope and leaves the
// receiver untouched, so a checker can hand out the scope of a statement
// without copying the chain.
type Scope struct {
	Bindings []Binding
	Parent   *Scope
}

func New(parent *Scope) *Scope { return &Scope{Parent: parent} }

// FromBindings builds a scope seeded with bindings, in order.
func FromBindings(parent *Scope, bindings []Binding) *Scope {
	return &Scope{Bindings: append([]Binding(nil), bindings...), Parent: parent}
}

// Declare adds a binding to the innermost scope. It fails when the name is
// already bound in this scope; outer bindings may be shadowed.
func (s *Scope) Declare(name string, t types.Type) (*Scope, bool) {
	if _, ok := s.LookupLocal(name); ok { return s, false }
	bindings := make([]Binding, len(s.Bindings), len(s.Bindings)+1)
	copy(bindings, s.Bindings)
	return &Scope{Bindings: append(bindings, Binding{name, t}), Parent: s.Parent}, true
}

func (s *Scope) LookupLocal(name string) (types.Type, bool) {
	for _, b := range s.Bindings {
		if b.Name == name { return b.Type, true }
	}
	return nil, false
}

// Lookup walks from the innermost scope outwards.
func (s *Scope) Lookup(name string) (types.Type, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if t, ok := cur.LookupLocal(name); ok { return t, true }
	}
	return nil, false
}

// Size is the number of bytes the bindings of this scope occupy.
func (s *Scope) Size() int {
	size := 0
	for _, b := range s.Bindings {
		size += types.Size(b.Type)
	}
	return size
}

// OffsetOf returns the distance in bytes from the bottom of this scope's
// block to name. Earlier bindings sit higher, so the offset is the size of
// the bindings declared after name.
func (s *Scope) OffsetOf(name string) (int, bool) {
	offset, found := 0, false
	for _, b := range s.Bindings {
		if found {
			offset += types.Size(b.Type)
			continue
		}
		found = b.Name == name
	}
	return offset, found
}

// Depth counts the scopes in the chain.
func (s *Scope) Depth() int {
	n := 0
	for cur := s; cur != nil; cur = cur.Parent {
		n++
	}
	return n
}
