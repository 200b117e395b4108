package token

import "fmt"

type Type int

const (
	Illegal Type = iota

	// Unary operators
	Not
	Negate
	Len
	Ord
	Chr
	Complement

	// Binary operators
	Star
	Slash
	Rem
	Plus
	Minus
	Gt
	Gte
	Lt
	Lte
	EqEq
	Neq
	AndAnd
	OrOr
	And
	Or
	Xor
	Shl
	Shr
)

var UnaryMap = map[string]Type{
	"!":   Not,
	"-":   Negate,
	"len": Len,
	"ord": Ord,
	"chr": Chr,
	"~":   Complement,
}

var BinaryMap = map[string]Type{
	"*":  Star,
	"/":  Slash,
	"%":  Rem,
	"+":  Plus,
	"-":  Minus,
	">":  Gt,
	">=": Gte,
	"<":  Lt,
	"<=": Lte,
	"==": EqEq,
	"!=": Neq,
	"&&": AndAnd,
	"||": OrOr,
	"&":  And,
	"|":  Or,
	"^":  Xor,
	"<<": Shl,
	">>": Shr,
}

// Reverse mapping from Type to the operator spelling
var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range UnaryMap {
		TypeStrings[typ] = str
	}
	for str, typ := range BinaryMap {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

func (t Type) IsUnary() bool  { return t >= Not && t <= Complement }
func (t Type) IsBinary() bool { return t >= Star && t <= Shr }

// IsBitwise reports operators gated behind the bitwise-ops feature.
func (t Type) IsBitwise() bool {
	switch t {
	case Complement, And, Or, Xor, Shl, Shr: return true
	}
	return false
}

// Pos is a 1-based source position attached to every AST node.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// Before orders positions by line, then column.
func (p Pos) Before(q Pos) bool {
	if p.Line != q.Line { return p.Line < q.Line }
	return p.Column < q.Column
}
