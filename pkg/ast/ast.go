// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
// handed over by the parser. The tree is immutable once built; analysis
// results are kept in a side table owned by the type checker.
package ast

import (
	"github.com/xplshn/gwacc/pkg/token"
	"github.com/xplshn/gwacc/pkg/types"
)

// Node is anything carrying a source position.
type Node interface{ Pos() token.Pos }

// Stmt is the closed set of statement nodes.
type Stmt interface {
	Node
	isStmt()
}

// Expr is the closed set of expression nodes.
type Expr interface {
	Node
	AssignRhs
	isExpr()
}

// AssignLhs is anything that can be written to.
type AssignLhs interface {
	Node
	isLhs()
}

// AssignRhs is anything that can produce the value of a declaration or assignment.
type AssignRhs interface {
	Node
	isRhs()
}

// Accessor selects a pair element.
type Accessor int

const (
	Fst Accessor = iota
	Snd
)

func (a Accessor) String() string {
	if a == Fst { return "fst" }
	return "snd"
}

// --- Statements ---
type Skip struct{ At token.Pos }
type AssignNew struct {
	At   token.Pos
	Type types.Type
	Name string
	Rhs  AssignRhs
}
type Assign struct {
	At  token.Pos
	Lhs AssignLhs
	Rhs AssignRhs
}
type Read struct{ At token.Pos; Lhs AssignLhs }
type Free struct{ At token.Pos; Expr Expr }
type Return struct{ At token.Pos; Expr Expr }
type Exit struct{ At token.Pos; Expr Expr }
type Print struct{ At token.Pos; Expr Expr }
type Println struct{ At token.Pos; Expr Expr }
type IfThenElse struct {
	At   token.Pos
	Cond Expr
	Then Stmt
	Else Stmt
}
type WhileDo struct{ At token.Pos; Cond Expr; Body Stmt }
type Begin struct{ At token.Pos; Body Stmt }
type Compose struct{ At token.Pos; First, Second Stmt }

// --- Expressions ---
type IntLiteral struct{ At token.Pos; Value int64 }
type BoolLiteral struct{ At token.Pos; Value bool }
type CharLiteral struct{ At token.Pos; Value byte }
type StringLiteral struct{ At token.Pos; Value string }
type PairLiteral struct{ At token.Pos }
type Ident struct{ At token.Pos; Name string }
type ArrayElem struct {
	At      token.Pos
	Name    string
	Indices []Expr
}
type UnaryOp struct {
	At   token.Pos
	Op   token.Type
	Expr Expr
}
type BinaryOp struct {
	At          token.Pos
	Op          token.Type
	Left, Right Expr
}

// FieldAccess reads or writes a field of a class instance.
type FieldAccess struct {
	At    token.Pos
	Expr  Expr
	Field string
}

// --- Right-hand sides ---
type ArrayLiteral struct{ At token.Pos; Elems []Expr }
type NewPair struct{ At token.Pos; First, Second Expr }
type PairElem struct {
	At       token.Pos
	Accessor Accessor
	Expr     Expr
}

// Call invokes a function, or a method when Recv is set.
type Call struct {
	At   token.Pos
	Recv Expr
	Name string
	Args []Expr
}

// NewInstance allocates a class instance, initializing fields in declaration order.
type NewInstance struct {
	At    token.Pos
	Class string
	Args  []Expr
}

// --- Declarations ---
type Param struct {
	At   token.Pos
	Name string
	Type types.Type
}

type Func struct {
	At     token.Pos
	Name   string
	Type   types.Type
	Params []*Param
	Body   Stmt
}

type Class struct {
	At     token.Pos
	Name   string
	Fields []*Param
	Funcs  []*Func
}

// Program is the root of the tree. Stmt is nil for library fragments.
type Program struct {
	Includes []string
	Classes  []*Class
	Funcs    []*Func
	Stmt     Stmt
}

func (n *Skip) Pos() token.Pos          { return n.At }
func (n *AssignNew) Pos() token.Pos     { return n.At }
func (n *Assign) Pos() token.Pos        { return n.At }
func (n *Read) Pos() token.Pos          { return n.At }
func (n *Free) Pos() token.Pos          { return n.At }
func (n *Return) Pos() token.Pos        { return n.At }
func (n *Exit) Pos() token.Pos          { return n.At }
func (n *Print) Pos() token.Pos         { return n.At }
func (n *Println) Pos() token.Pos       { return n.At }
func (n *IfThenElse) Pos() token.Pos    { return n.At }
func (n *WhileDo) Pos() token.Pos       { return n.At }
func (n *Begin) Pos() token.Pos         { return n.At }
func (n *Compose) Pos() token.Pos       { return n.At }
func (n *IntLiteral) Pos() token.Pos    { return n.At }
func (n *BoolLiteral) Pos() token.Pos   { return n.At }
func (n *CharLiteral) Pos() token.Pos   { return n.At }
func (n *StringLiteral) Pos() token.Pos { return n.At }
func (n *PairLiteral) Pos() token.Pos   { return n.At }
func (n *Ident) Pos() token.Pos         { return n.At }
func (n *ArrayElem) Pos() token.Pos     { return n.At }
func (n *UnaryOp) Pos() token.Pos       { return n.At }
func (n *BinaryOp) Pos() token.Pos      { return n.At }
func (n *FieldAccess) Pos() token.Pos   { return n.At }
func (n *ArrayLiteral) Pos() token.Pos  { return n.At }
func (n *NewPair) Pos() token.Pos       { return n.At }
func (n *PairElem) Pos() token.Pos      { return n.At }
func (n *Call) Pos() token.Pos          { return n.At }
func (n *NewInstance) Pos() token.Pos   { return n.At }
func (n *Param) Pos() token.Pos         { return n.At }
func (n *Func) Pos() token.Pos          { return n.At }
func (n *Class) Pos() token.Pos         { return n.At }

func (*Skip) isStmt()       {}
func (*AssignNew) isStmt()  {}
func (*Assign) isStmt()     {}
func (*Read) isStmt()       {}
func (*Free) isStmt()       {}
func (*Return) isStmt()     {}
func (*Exit) isStmt()       {}
func (*Print) isStmt()      {}
func (*Println) isStmt()    {}
func (*IfThenElse) isStmt() {}
func (*WhileDo) isStmt()    {}
func (*Begin) isStmt()      {}
func (*Compose) isStmt()    {}

func (*IntLiteral) isExpr()    {}
func (*BoolLiteral) isExpr()   {}
func (*CharLiteral) isExpr()   {}
func (*StringLiteral) isExpr() {}
func (*PairLiteral) isExpr()   {}
func (*Ident) isExpr()         {}
func (*ArrayElem) isExpr()     {}
func (*UnaryOp) isExpr()       {}
func (*BinaryOp) isExpr()      {}
func (*FieldAccess) isExpr()   {}

func (*Ident) isLhs()       {}
func (*ArrayElem) isLhs()   {}
func (*PairElem) isLhs()    {}
func (*FieldAccess) isLhs() {}

func (*IntLiteral) isRhs()    {}
func (*BoolLiteral) isRhs()   {}
func (*CharLiteral) isRhs()   {}
func (*StringLiteral) isRhs() {}
func (*PairLiteral) isRhs()   {}
func (*Ident) isRhs()         {}
func (*ArrayElem) isRhs()     {}
func (*UnaryOp) isRhs()       {}
func (*BinaryOp) isRhs()      {}
func (*FieldAccess) isRhs()   {}
func (*ArrayLiteral) isRhs()  {}
func (*NewPair) isRhs()       {}
func (*PairElem) isRhs()      {}
func (*Call) isRhs()          {}
func (*NewInstance) isRhs()   {}

// Var is a block-local declaration.
type Var struct {
	Name string
	Type types.Type
}

// Vars lists the declarations belonging to the block rooted at s. Nested
// blocks (begin, if branches, loop bodies) own their declarations.
func Vars(s Stmt) []Var {
	switch s := s.(type) {
	case *AssignNew: return []Var{{s.Name, s.Type}}
	case *Compose: return append(Vars(s.First), Vars(s.Second)...)
	}
	return nil
}

// VarsSize is the stack space needed for the declarations of a block.
func VarsSize(vars []Var) int {
	size := 0
	for _, v := range vars {
		size += types.Size(v.Type)
	}
	return size
}

// Seq chains statements into right-nested Compose nodes.
func Seq(stmts ...Stmt) Stmt {
	switch len(stmts) {
	case 0: return &Skip{}
	case 1: return stmts[0]
	}
	return &Compose{At: stmts[0].Pos(), First: stmts[0], Second: Seq(stmts[1:]...)}
}

// Last returns the statement executed last in a Compose chain.
func Last(s Stmt) Stmt {
	for {
		c, ok := s.(*Compose)
		if !ok { return s }
		s = c.Second
	}
}

// FindClass returns the class with the given name, or nil.
func (p *Program) FindClass(name string) *Class {
	for _, c := range p.Classes {
		if c.Name == name { return c }
	}
	return nil
}

// FindField returns the index and declaration of a field, or -1.
func (c *Class) FindField(name string) (int, *Param) {
	for i, f := range c.Fields {
		if f.Name == name { return i, f }
	}
	return -1, nil
}

// IsLibrary reports whether p only contributes declarations.
func (p *Program) IsLibrary() bool { return p.Stmt == nil }
