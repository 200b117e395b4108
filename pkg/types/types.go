// Package types defines the structural type algebra used by the analyzer and
// the code generator.
package types

import "fmt"

// Type is a closed union; the unexported marker keeps it sealed.
type Type interface {
	isType()
	String() string
}

// PairElem is the subset of Type that may sit inside a pair cell.
type PairElem interface {
	Type
	isPairElem()
}

type Kind int

const (
	KindInt Kind = iota
	KindBool
	KindChar
	KindString
)

type Base struct{ Kind Kind }
type Array struct{ Elem Type }
type Pair struct{ First, Second PairElem }
type Class struct{ Name string }
type PairRef struct{}
type AnyType struct{}

var (
	Int    = &Base{KindInt}
	Bool   = &Base{KindBool}
	Char   = &Base{KindChar}
	String = &Base{KindString}
	Any    = &AnyType{}
	// AnyPair is the type of the null literal and the target of "some pair" checks.
	AnyPair = &Pair{Any, Any}
	// PairMarker is the opaque element type standing for a nested pair.
	PairMarker = &PairRef{}
)

func (*Base) isType()    {}
func (*Array) isType()   {}
func (*Pair) isType()    {}
func (*Class) isType()   {}
func (*PairRef) isType() {}
func (*AnyType) isType() {}

func (*Base) isPairElem()    {}
func (*Array) isPairElem()   {}
func (*Class) isPairElem()   {}
func (*PairRef) isPairElem() {}
func (*AnyType) isPairElem() {}

func (b *Base) String() string {
	switch b.Kind {
	case KindInt: return "int"
	case KindBool: return "bool"
	case KindChar: return "char"
	case KindString: return "string"
	}
	return "?"
}

func (a *Array) String() string { return a.Elem.String() + "[]" }
func (p *Pair) String() string  { return fmt.Sprintf("pair(%s, %s)", p.First, p.Second) }
func (c *Class) String() string { return c.Name }
func (*PairRef) String() string { return "pair" }
func (*AnyType) String() string { return "any" }

func NewArray(elem Type) *Array       { return &Array{Elem: elem} }
func NewPair(fst, snd PairElem) *Pair { return &Pair{First: fst, Second: snd} }
func NewClass(name string) *Class     { return &Class{Name: name} }

// ArrayOf wraps t in depth layers of Array.
func ArrayOf(t Type, depth int) Type {
	for i := 0; i < depth; i++ {
		t = NewArray(t)
	}
	return t
}

// Matches is the checking relation: Any matches everything, arrays and pairs
// recurse, the pair marker stands in for any pair, everything else compares
// nominally.
func Matches(a, b Type) bool {
	if a == nil || b == nil { return false }
	if _, ok := a.(*AnyType); ok { return true }
	if _, ok := b.(*AnyType); ok { return true }

	switch x := a.(type) {
	case *Base:
		y, ok := b.(*Base)
		return ok && x.Kind == y.Kind
	case *Array:
		y, ok := b.(*Array)
		return ok && Matches(x.Elem, y.Elem)
	case *Pair:
		switch y := b.(type) {
		case *Pair: return Matches(x.First, y.First) && Matches(x.Second, y.Second)
		case *PairRef: return true
		}
		return false
	case *PairRef:
		switch b.(type) {
		case *Pair, *PairRef: return true
		}
		return false
	case *Class:
		y, ok := b.(*Class)
		return ok && x.Name == y.Name
	}
	return false
}

// AsPairElem converts t to something storable in a pair cell. Concrete pairs
// collapse to the opaque marker.
func AsPairElem(t Type) (PairElem, bool) {
	switch x := t.(type) {
	case *Pair: return PairMarker, true
	case PairElem: return x, true
	}
	return nil, false
}

// FromPairElem is the type observed when reading an element back out of a
// pair: the marker becomes AnyPair.
func FromPairElem(e PairElem) Type {
	if _, ok := e.(*PairRef); ok { return AnyPair }
	return e
}

// Size is the number of bytes a value of t occupies on the stack or heap.
func Size(t Type) int {
	if b, ok := t.(*Base); ok && (b.Kind == KindChar || b.Kind == KindBool) {
		return 1
	}
	return 4
}

// IsByte reports whether values of t are accessed with byte loads and stores.
func IsByte(t Type) bool { return Size(t) == 1 }

// Mismatch describes an expected/actual pair for type errors.
type Mismatch struct{ Expected, Actual Type }

// CheckArrayDepth strips n levels of Array from t.
func CheckArrayDepth(t Type, n int) (Type, *Mismatch) {
	cur := t
	for i := 0; i < n; i++ {
		if _, ok := cur.(*AnyType); ok { return Any, nil }
		arr, ok := cur.(*Array)
		if !ok {
			return Any, &Mismatch{Expected: ArrayOf(Any, n), Actual: t}
		}
		cur = arr.Elem
	}
	return cur, nil
}

// IsAny reports whether t is the wildcard.
func IsAny(t Type) bool {
	_, ok := t.(*AnyType)
	return ok
}
