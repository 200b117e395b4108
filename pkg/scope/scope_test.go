package scope

import (
	"testing"

	"github.com/xplshn/gwacc/pkg/types"
)

func TestDeclareAndShadow(t *testing.T) {
	outer := New(nil)
	outer, ok := outer.Declare("x", types.Int)
	if !ok {
		t.Fatal("first declaration of x failed")
	}
	if _, ok := outer.Declare("x", types.Char); ok {
		t.Error("duplicate declaration in the same scope should fail")
	}

	inner, ok := New(outer).Declare("x", types.Char)
	if !ok {
		t.Fatal("shadowing x in a nested scope should succeed")
	}
	if got, _ := inner.Lookup("x"); got != types.Char {
		t.Errorf("inner lookup = %v, want char", got)
	}
	if got, _ := outer.Lookup("x"); got != types.Int {
		t.Errorf("outer lookup = %v, want int", got)
	}
	if _, ok := inner.Lookup("y"); ok {
		t.Error("lookup of an undeclared name should fail")
	}
	if inner.Depth() != 2 {
		t.Errorf("Depth = %d, want 2", inner.Depth())
	}
}

func TestDeclareIsPersistent(t *testing.T) {
	base, _ := New(nil).Declare("a", types.Int)
	left, _ := base.Declare("b", types.Int)
	right, _ := base.Declare("c", types.Bool)

	if _, ok := left.LookupLocal("c"); ok {
		t.Error("sibling declarations leaked into each other")
	}
	if _, ok := right.LookupLocal("b"); ok {
		t.Error("sibling declarations leaked into each other")
	}
	if len(base.Bindings) != 1 {
		t.Errorf("base scope was mutated: %v", base.Bindings)
	}
}

func TestOffsets(t *testing.T) {
	s := FromBindings(nil, []Binding{
		{"i", types.Int},
		{"c", types.Char},
		{"b", types.Bool},
		{"arr", types.NewArray(types.Int)},
	})

	tests := []struct {
		name string
		want int
	}{
		{"i", 6},
		{"c", 5},
		{"b", 4},
		{"arr", 0},
	}
	for _, tt := range tests {
		got, ok := s.OffsetOf(tt.name)
		if !ok || got != tt.want {
			t.Errorf("OffsetOf(%s) = %d, %v; want %d", tt.name, got, ok, tt.want)
		}
	}
	if _, ok := s.OffsetOf("missing"); ok {
		t.Error("OffsetOf should fail for unknown names")
	}
	if s.Size() != 10 {
		t.Errorf("Size = %d, want 10", s.Size())
	}
}
