package codegen

import (
	"fmt"

	"github.com/xplshn/gwacc/pkg/ast"
	"github.com/xplshn/gwacc/pkg/ir"
	"github.com/xplshn/gwacc/pkg/types"
)

// codegenRhs leaves the value of r in Dst.
func (ctx Context) codegenRhs(r ast.AssignRhs) {
	dst := ctx.Dst()
	switch r := r.(type) {
	case ast.Expr:
		ctx.codegenExpr(r)
	case *ast.ArrayLiteral:
		ctx.codegenArrayLiteral(r)
	case *ast.NewPair:
		ctx.codegenNewPair(r)
	case *ast.PairElem:
		t := ctx.pairElemAddr(r)
		ctx.load(loadWidth(t), dst, dst, 0)
	case *ast.Call:
		ctx.codegenCall(r)
	case *ast.NewInstance:
		ctx.codegenNewInstance(r)
	default:
		panic(fmt.Sprintf("codegen: unhandled right-hand side %T", r))
	}
}

// Arrays are laid out as a length word followed by the elements.
func (ctx Context) codegenArrayLiteral(a *ast.ArrayLiteral) {
	elem := ctx.sess.prog.TypeOf(a)
	size := types.Size(elem)
	dst := ctx.Dst()

	ctx.malloc(4 + len(a.Elems)*size)
	inner := ctx.keepDst()
	for i, e := range a.Elems {
		inner.codegenExpr(e)
		ctx.store(storeWidth(elem), inner.Dst(), dst, 4+i*size)
	}
	inner.loadImm(inner.Dst(), int32(len(a.Elems)))
	ctx.store(ir.Word, inner.Dst(), dst, 0)
}

// A pair is two words pointing at one heap box per element.
func (ctx Context) codegenNewPair(p *ast.NewPair) {
	fst, snd := ctx.sess.prog.PairElemTypes(p)
	dst := ctx.Dst()

	ctx.malloc(8)
	inner := ctx.keepDst()
	for i, half := range []struct {
		e ast.Expr
		t types.Type
	}{{p.First, fst}, {p.Second, snd}} {
		inner.codegenExpr(half.e)
		ctx.emit(
			&ir.Load{Rd: ir.R0, Addr: ir.Literal{Value: int32(types.Size(half.t))}},
			bl("malloc"),
		)
		ctx.store(storeWidth(half.t), inner.Dst(), ir.R0, 0)
		ctx.store(ir.Word, ir.R0, dst, i*4)
	}
}

// codegenCall pushes the arguments last to first, then the receiver, so the
// callee finds them in declaration order above its saved lr.
func (ctx Context) codegenCall(c *ast.Call) {
	target := ctx.sess.prog.CallTarget(c)
	dst := ctx.Dst()

	pushed := 0
	push := func(r ir.Reg, t types.Type) {
		size := types.Size(t)
		ctx.emit(&ir.Store{Width: storeWidth(t), Rd: r, Addr: ir.Mem{Base: ir.SP, Offset: int32(-size), WriteBack: true}})
		pushed += size
	}

	for i := len(c.Args) - 1; i >= 0; i-- {
		ctx.WithStackOffset(ctx.offset + pushed).codegenExpr(c.Args[i])
		push(dst, target.Func.Params[i].Type)
	}
	if c.Recv != nil {
		ctx.WithStackOffset(ctx.offset + pushed).codegenExpr(c.Recv)
		ctx.nullCheck(dst)
		push(dst, types.NewClass(target.Class.Name))
	}

	ctx.emit(bl(ctx.sess.funcLabel(target.Func, target.Class)))
	ctx.opConst(ir.ADD, ir.SP, ir.SP, pushed)
	ctx.moveArg(dst, ir.R0)
}

func (ctx Context) codegenNewInstance(n *ast.NewInstance) {
	c := ctx.sess.prog.Program.FindClass(n.Class)
	dst := ctx.Dst()

	ctx.malloc(max(instanceSize(c), 4))
	inner := ctx.keepDst()
	for i, arg := range n.Args {
		inner.codegenExpr(arg)
		ctx.store(storeWidth(c.Fields[i].Type), inner.Dst(), dst, fieldOffset(c, i))
	}
}
