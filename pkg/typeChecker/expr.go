package typeChecker

import (
	"fmt"
	"math"
	"strings"

	"github.com/xplshn/gwacc/pkg/ast"
	"github.com/xplshn/gwacc/pkg/config"
	"github.com/xplshn/gwacc/pkg/scope"
	"github.com/xplshn/gwacc/pkg/token"
	"github.com/xplshn/gwacc/pkg/types"
)

// expr returns the best-effort type of e. Failures yield Any so enclosing
// checks do not report follow-up errors.
func (bc *bodyChecker) expr(e ast.Expr, sc *scope.Scope) types.Type {
	switch e := e.(type) {
	case *ast.IntLiteral:
		if e.Value > math.MaxInt32 || e.Value < math.MinInt32 {
			bc.errorf(IntTooBig, e.Pos(), "integer literal %d does not fit in 32 bits", e.Value)
		}
		return types.Int
	case *ast.BoolLiteral:
		return types.Bool
	case *ast.CharLiteral:
		return types.Char
	case *ast.StringLiteral:
		return types.String
	case *ast.PairLiteral:
		return types.AnyPair
	case *ast.Ident:
		return bc.ident(e.Name, e, sc)
	case *ast.ArrayElem:
		return bc.arrayElem(e, sc)
	case *ast.UnaryOp:
		return bc.unaryOp(e, sc)
	case *ast.BinaryOp:
		return bc.binaryOp(e, sc)
	case *ast.FieldAccess:
		return bc.fieldAccess(e, sc)
	}
	panic(fmt.Sprintf("typeChecker: unhandled expression %T", e))
}

func (bc *bodyChecker) ident(name string, n ast.Node, sc *scope.Scope) types.Type {
	t, ok := sc.Lookup(name)
	if !ok {
		bc.errorf(IdentNotFoundError, n.Pos(), "identifier `%s` is not declared", name)
		return types.Any
	}
	return t
}

func (bc *bodyChecker) arrayElem(e *ast.ArrayElem, sc *scope.Scope) types.Type {
	arr := bc.ident(e.Name, e, sc)
	for _, idx := range e.Indices {
		if t := bc.expr(idx, sc); !types.Matches(t, types.Int) {
			bc.errs = append(bc.errs, mismatch(TypeMismatch, idx.Pos(), types.Int, t))
		}
	}
	elem, m := types.CheckArrayDepth(arr, len(e.Indices))
	if m != nil {
		bc.errs = append(bc.errs, mismatch(TypeMismatch, e.Pos(), m.Expected, m.Actual))
	}
	bc.annotate(e, elem)
	return elem
}

func (bc *bodyChecker) unaryOp(e *ast.UnaryOp, sc *scope.Scope) types.Type {
	t := bc.expr(e.Expr, sc)
	spec, ok := unaryOps[e.Op]
	if !ok { panic(fmt.Sprintf("typeChecker: unknown unary operator %s", e.Op)) }
	bc.checkFeatureOp(e.Op, e)
	if !spec.accepts(t) {
		bc.errorf(UnaryOpInvalidType, e.Pos(), "operator `%s` expects %s, actual type `%s`", e.Op, spec.expected(), t)
	}
	return spec.result
}

func (bc *bodyChecker) binaryOp(e *ast.BinaryOp, sc *scope.Scope) types.Type {
	l, r := bc.expr(e.Left, sc), bc.expr(e.Right, sc)
	spec, ok := binaryOps[e.Op]
	if !ok { panic(fmt.Sprintf("typeChecker: unknown binary operator %s", e.Op)) }
	bc.checkFeatureOp(e.Op, e)

	// Only the left operand is checked against the table; the right one has
	// to match it.
	if !spec.accepts(l) {
		bc.errorf(BinaryOpInvalidType, e.Pos(), "operator `%s` expects %s, actual type `%s`", e.Op, spec.expected(), l)
	}
	if !types.Matches(l, r) {
		bc.errorf(BinaryArgsMismatch, e.Pos(), "operands of `%s` have different types `%s` and `%s`", e.Op, l, r)
	}
	return spec.result
}

func (bc *bodyChecker) checkFeatureOp(op token.Type, n ast.Node) {
	if op.IsBitwise() && !bc.tc.cfg.IsFeatureEnabled(config.FeatBitwiseOps) {
		bc.errorf(FeatureDisabled, n.Pos(), "bitwise operators are disabled")
	}
}

// classOf resolves the class of an instance-typed expression. ok is false
// when the caller should give up silently (the operand is Any).
func (bc *bodyChecker) classOf(e ast.Expr, sc *scope.Scope) (*ast.Class, bool) {
	t := bc.expr(e, sc)
	if types.IsAny(t) { return nil, false }
	ct, isClass := t.(*types.Class)
	if !isClass {
		bc.errorf(TypeMismatch, e.Pos(), "expected a class instance, actual type `%s`", t)
		return nil, false
	}
	c, found := bc.tc.classes[ct.Name]
	if !found {
		return nil, false
	}
	return c, true
}

func (bc *bodyChecker) fieldAccess(e *ast.FieldAccess, sc *scope.Scope) types.Type {
	c, ok := bc.classOf(e.Expr, sc)
	if !ok {
		bc.annotate(e, types.Any)
		return types.Any
	}
	idx, field := c.FindField(e.Field)
	if field == nil {
		bc.errorf(FieldNotFoundError, e.Pos(), "class `%s` has no field `%s`", c.Name, e.Field)
		bc.annotate(e, types.Any)
		return types.Any
	}
	bc.annotate(e, field.Type)
	bc.ann.fields[e] = FieldRef{Class: c, Index: idx}
	return field.Type
}

func (bc *bodyChecker) lhs(l ast.AssignLhs, sc *scope.Scope) types.Type {
	switch l := l.(type) {
	case *ast.Ident:
		return bc.ident(l.Name, l, sc)
	case *ast.ArrayElem:
		return bc.arrayElem(l, sc)
	case *ast.PairElem:
		return bc.pairElem(l, sc)
	case *ast.FieldAccess:
		return bc.fieldAccess(l, sc)
	}
	panic(fmt.Sprintf("typeChecker: unhandled assignment target %T", l))
}

func (bc *bodyChecker) rhs(r ast.AssignRhs, sc *scope.Scope) types.Type {
	switch r := r.(type) {
	case ast.Expr:
		return bc.expr(r, sc)
	case *ast.ArrayLiteral:
		return bc.arrayLiteral(r, sc)
	case *ast.NewPair:
		return bc.newPair(r, sc)
	case *ast.PairElem:
		return bc.pairElem(r, sc)
	case *ast.Call:
		return bc.call(r, sc)
	case *ast.NewInstance:
		return bc.newInstance(r, sc)
	}
	panic(fmt.Sprintf("typeChecker: unhandled right-hand side %T", r))
}

func (bc *bodyChecker) pairElem(p *ast.PairElem, sc *scope.Scope) types.Type {
	if _, isNull := p.Expr.(*ast.PairLiteral); isNull {
		bc.errorf(PairDereferenceNull, p.Pos(), "cannot take `%s` of a null pair", p.Accessor)
	}
	t := bc.expr(p.Expr, sc)
	if !types.Matches(t, types.AnyPair) {
		bc.errs = append(bc.errs, mismatch(TypeMismatch, p.Expr.Pos(), types.AnyPair, t))
		bc.annotate(p, types.Any)
		return types.Any
	}

	res := types.Type(types.Any)
	if pt, ok := t.(*types.Pair); ok {
		if p.Accessor == ast.Fst {
			res = types.FromPairElem(pt.First)
		} else {
			res = types.FromPairElem(pt.Second)
		}
	}
	bc.annotate(p, res)
	return res
}

func (bc *bodyChecker) arrayLiteral(a *ast.ArrayLiteral, sc *scope.Scope) types.Type {
	elem := types.Type(types.Any)
	for i, e := range a.Elems {
		t := bc.expr(e, sc)
		if i == 0 {
			elem = t
			continue
		}
		if !types.Matches(elem, t) {
			bc.errs = append(bc.errs, mismatch(TypeMismatch, e.Pos(), elem, t))
		}
	}
	bc.annotate(a, elem)
	return types.NewArray(elem)
}

func (bc *bodyChecker) newPair(p *ast.NewPair, sc *scope.Scope) types.Type {
	ft, st := bc.expr(p.First, sc), bc.expr(p.Second, sc)
	bc.ann.pairElems[p] = [2]types.Type{ft, st}

	fe, ok := types.AsPairElem(ft)
	if !ok {
		bc.errorf(InvalidPairElemType, p.First.Pos(), "type `%s` cannot be stored in a pair", ft)
		fe = types.Any
	}
	se, ok := types.AsPairElem(st)
	if !ok {
		bc.errorf(InvalidPairElemType, p.Second.Pos(), "type `%s` cannot be stored in a pair", st)
		se = types.Any
	}
	return types.NewPair(fe, se)
}

// call resolves c against the functions registered under its name (and
// receiver class). The first candidate whose arity and parameter types fit
// wins; declaration order breaks ties.
func (bc *bodyChecker) call(c *ast.Call, sc *scope.Scope) types.Type {
	args := make([]types.Type, len(c.Args))
	for i, a := range c.Args {
		args[i] = bc.expr(a, sc)
	}

	var class *ast.Class
	key := funcKey{"", c.Name}
	if c.Recv != nil {
		var ok bool
		if class, ok = bc.classOf(c.Recv, sc); !ok { return types.Any }
		key.class = class.Name
	}

	for _, f := range bc.tc.buckets[key] {
		if !argsFit(f, args) { continue }
		bc.ann.calls[c] = CallTarget{Func: f, Class: class, Overload: bc.tc.overloads[f]}
		return f.Type
	}

	name := c.Name
	if class != nil {
		name = class.Name + "." + c.Name
	}
	bc.errorf(FunctionNotFoundError, c.Pos(), "no function `%s` accepting (%s)", name, typeList(args))
	return types.Any
}

func argsFit(f *ast.Func, args []types.Type) bool {
	if len(f.Params) != len(args) { return false }
	for i, p := range f.Params {
		if !types.Matches(p.Type, args[i]) { return false }
	}
	return true
}

func typeList(ts []types.Type) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}

func (bc *bodyChecker) newInstance(n *ast.NewInstance, sc *scope.Scope) types.Type {
	args := make([]types.Type, len(n.Args))
	for i, a := range n.Args {
		args[i] = bc.expr(a, sc)
	}

	c, ok := bc.tc.classes[n.Class]
	if !ok {
		bc.errorf(ClassNotFoundError, n.Pos(), "class `%s` is not declared", n.Class)
		return types.Any
	}
	if len(args) != len(c.Fields) {
		bc.errorf(ConstructorArityMismatch, n.Pos(), "class `%s` has %d fields, got %d initializers", c.Name, len(c.Fields), len(args))
		return types.NewClass(c.Name)
	}
	for i, f := range c.Fields {
		if !types.Matches(f.Type, args[i]) {
			bc.errs = append(bc.errs, mismatch(TypeMismatch, n.Args[i].Pos(), f.Type, args[i]))
		}
	}
	return types.NewClass(c.Name)
}
