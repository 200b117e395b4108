package codegen

import (
	"fmt"

	"github.com/xplshn/gwacc/pkg/ast"
	"github.com/xplshn/gwacc/pkg/ir"
	"github.com/xplshn/gwacc/pkg/token"
	"github.com/xplshn/gwacc/pkg/types"
)

// codegenExpr leaves the value of e in Dst. Only the registers of ctx are
// clobbered, besides r0-r3 and r12.
func (ctx Context) codegenExpr(e ast.Expr) {
	dst := ctx.Dst()
	switch e := e.(type) {
	case *ast.IntLiteral:
		ctx.loadImm(dst, int32(e.Value))
	case *ast.BoolLiteral:
		v := int32(0)
		if e.Value {
			v = 1
		}
		ctx.emit(&ir.Move{Rd: dst, Src: ir.Imm{Value: v}})
	case *ast.CharLiteral:
		ctx.emit(&ir.Move{Rd: dst, Src: ir.Imm{Value: int32(e.Value)}})
	case *ast.StringLiteral:
		ctx.emit(&ir.Load{Rd: dst, Addr: ir.LabelRef{Name: ctx.sess.stringLabel(e.Value)}})
	case *ast.PairLiteral:
		ctx.emit(&ir.Move{Rd: dst, Src: ir.Imm{Value: 0}})
	case *ast.Ident:
		off, t := ctx.OffsetOf(e.Name)
		ctx.load(loadWidth(t), dst, ir.SP, off)
	case *ast.ArrayElem:
		t := ctx.arrayElemAddr(e)
		ctx.load(loadWidth(t), dst, dst, 0)
	case *ast.FieldAccess:
		t := ctx.fieldAddr(e)
		ctx.load(loadWidth(t), dst, dst, 0)
	case *ast.UnaryOp:
		ctx.codegenUnary(e)
	case *ast.BinaryOp:
		ctx.codegenBinary(e)
	default:
		panic(fmt.Sprintf("codegen: unhandled expression %T", e))
	}
}

func (ctx Context) codegenUnary(e *ast.UnaryOp) {
	ctx.codegenExpr(e.Expr)
	dst := ctx.Dst()
	switch e.Op {
	case token.Not:
		ctx.emit(&ir.Op{Kind: ir.EOR, Rd: dst, Rn: dst, Op2: ir.Imm{Value: 1}})
	case token.Negate:
		checked := ctx.sess.overflowChecks()
		ctx.emit(&ir.Op{Kind: ir.RSB, SetFlags: checked, Rd: dst, Rn: dst, Op2: ir.Imm{Value: 0}})
		if checked { ctx.callIf(ir.VS, throwOverflowError) }
	case token.Len:
		ctx.emit(&ir.Load{Rd: dst, Addr: ir.Mem{Base: dst}})
	case token.Ord, token.Chr:
		// Same bits, different type.
	case token.Complement:
		ctx.emit(&ir.Move{Not: true, Rd: dst, Src: dst})
	default:
		panic(fmt.Sprintf("codegen: unhandled unary operator %s", e.Op))
	}
}

// operands evaluates both sides of e and returns the registers holding the
// left and right values. With a register to spare the heavier side goes
// first; otherwise the left value is spilled while the right is evaluated.
func (ctx Context) operands(e *ast.BinaryOp) (l, r ir.Reg) {
	dst, nxt := ctx.Dst(), ctx.Nxt()

	if _, right, ok := ctx.TakeRegs(1); ok {
		if weight(e.Right) > weight(e.Left) {
			right.codegenExpr(e.Right)
			ctx.skip(2).WithRegs(dst).codegenExpr(e.Left)
		} else {
			ctx.codegenExpr(e.Left)
			right.codegenExpr(e.Right)
		}
		return dst, nxt
	}

	ctx.codegenExpr(e.Left)
	ctx.emit(&ir.Push{Regs: []ir.Reg{dst}})
	ctx.WithStackOffset(ctx.offset + 4).codegenExpr(e.Right)
	ctx.emit(&ir.Pop{Regs: []ir.Reg{nxt}})
	return nxt, dst
}

var comparisons = map[token.Type]ir.Cond{
	token.Gt:   ir.GT,
	token.Gte:  ir.GE,
	token.Lt:   ir.LT,
	token.Lte:  ir.LE,
	token.EqEq: ir.EQ,
	token.Neq:  ir.NE,
}

var bitOps = map[token.Type]ir.OpKind{
	token.AndAnd: ir.AND,
	token.And:    ir.AND,
	token.OrOr:   ir.ORR,
	token.Or:     ir.ORR,
	token.Xor:    ir.EOR,
}

func (ctx Context) codegenBinary(e *ast.BinaryOp) {
	l, r := ctx.operands(e)
	dst, nxt := ctx.Dst(), ctx.Nxt()
	checked := ctx.sess.overflowChecks()

	if cond, ok := comparisons[e.Op]; ok {
		ctx.emit(
			&ir.Compare{Rn: l, Op2: r},
			&ir.Move{Cond: cond, Rd: dst, Src: ir.Imm{Value: 1}},
			&ir.Move{Cond: cond.Inverse(), Rd: dst, Src: ir.Imm{Value: 0}},
		)
		return
	}
	if kind, ok := bitOps[e.Op]; ok {
		ctx.emit(&ir.Op{Kind: kind, Rd: dst, Rn: l, Op2: r})
		return
	}

	switch e.Op {
	case token.Plus, token.Minus:
		kind := ir.ADD
		if e.Op == token.Minus {
			kind = ir.SUB
		}
		ctx.emit(&ir.Op{Kind: kind, SetFlags: checked, Rd: dst, Rn: l, Op2: r})
		if checked { ctx.callIf(ir.VS, throwOverflowError) }
	case token.Star:
		ctx.emit(&ir.LongMul{Lo: dst, Hi: nxt, Rm: l, Rs: r})
		if checked {
			ctx.emit(&ir.Compare{Rn: nxt, Op2: ir.Shifted{Reg: dst, Kind: ir.ASR, Amount: 31}})
			ctx.callIf(ir.NE, throwOverflowError)
		}
	case token.Slash, token.Rem:
		ctx.moveArg(ir.R0, l)
		ctx.moveArg(ir.R1, r)
		ctx.call(checkDivideByZero)
		if e.Op == token.Slash {
			ctx.emit(bl("__aeabi_idiv"), &ir.Move{Rd: dst, Src: ir.R0})
		} else {
			ctx.emit(bl("__aeabi_idivmod"), &ir.Move{Rd: dst, Src: ir.R1})
		}
	case token.Shl:
		ctx.emit(&ir.Move{Rd: dst, Src: ir.ShiftedBy{Reg: l, Kind: ir.LSL, By: r}})
	case token.Shr:
		ctx.emit(&ir.Move{Rd: dst, Src: ir.ShiftedBy{Reg: l, Kind: ir.ASR, By: r}})
	default:
		panic(fmt.Sprintf("codegen: unhandled binary operator %s", e.Op))
	}
}

// arrayElemAddr leaves the address of the element named by e in Dst, after
// bounds-checking every index.
func (ctx Context) arrayElemAddr(e *ast.ArrayElem) types.Type {
	dst, nxt := ctx.Dst(), ctx.Nxt()
	off, _ := ctx.OffsetOf(e.Name)
	ctx.load(ir.Word, dst, ir.SP, off)

	elem := ctx.sess.prog.TypeOf(e)
	for i, idx := range e.Indices {
		if i > 0 {
			ctx.emit(&ir.Load{Rd: dst, Addr: ir.Mem{Base: dst}})
		}
		if _, inner, ok := ctx.TakeRegs(1); ok {
			inner.codegenExpr(idx)
		} else {
			ctx.emit(&ir.Push{Regs: []ir.Reg{dst}})
			ctx.WithStackOffset(ctx.offset + 4).codegenExpr(idx)
			ctx.emit(&ir.Move{Rd: nxt, Src: dst}, &ir.Pop{Regs: []ir.Reg{dst}})
		}

		ctx.moveArg(ir.R0, nxt)
		ctx.moveArg(ir.R1, dst)
		ctx.call(checkArrayBounds)
		ctx.emit(&ir.Op{Kind: ir.ADD, Rd: dst, Rn: dst, Op2: ir.Imm{Value: 4}})
		if i == len(e.Indices)-1 && types.IsByte(elem) {
			ctx.emit(&ir.Op{Kind: ir.ADD, Rd: dst, Rn: dst, Op2: nxt})
		} else {
			ctx.emit(&ir.Op{Kind: ir.ADD, Rd: dst, Rn: dst, Op2: ir.Shifted{Reg: nxt, Kind: ir.LSL, Amount: 2}})
		}
	}
	return elem
}

// fieldAddr leaves the address of a field in Dst.
func (ctx Context) fieldAddr(e *ast.FieldAccess) types.Type {
	dst := ctx.Dst()
	ctx.codegenExpr(e.Expr)
	ctx.nullCheck(dst)

	ref := ctx.sess.prog.Field(e)
	ctx.opConst(ir.ADD, dst, dst, fieldOffset(ref.Class, ref.Index))
	return ref.Class.Fields[ref.Index].Type
}

// fieldOffset is the sum of the sizes of the fields declared before idx.
func fieldOffset(c *ast.Class, idx int) int {
	off := 0
	for _, f := range c.Fields[:idx] {
		off += types.Size(f.Type)
	}
	return off
}

func instanceSize(c *ast.Class) int { return fieldOffset(c, len(c.Fields)) }

// pairElemAddr leaves the address of the box holding one half of a pair in Dst.
func (ctx Context) pairElemAddr(p *ast.PairElem) types.Type {
	dst := ctx.Dst()
	ctx.codegenExpr(p.Expr)
	ctx.nullCheck(dst)
	off := int32(0)
	if p.Accessor == ast.Snd {
		off = 4
	}
	ctx.emit(&ir.Load{Rd: dst, Addr: ir.Mem{Base: dst, Offset: off}})
	return ctx.sess.prog.TypeOf(p)
}

// lhsAddr leaves the address written by an assignment to l in Dst.
func (ctx Context) lhsAddr(l ast.AssignLhs) types.Type {
	switch l := l.(type) {
	case *ast.Ident:
		off, t := ctx.OffsetOf(l.Name)
		ctx.opConst(ir.ADD, ctx.Dst(), ir.SP, off)
		return t
	case *ast.ArrayElem:
		return ctx.arrayElemAddr(l)
	case *ast.PairElem:
		return ctx.pairElemAddr(l)
	case *ast.FieldAccess:
		return ctx.fieldAddr(l)
	}
	panic(fmt.Sprintf("codegen: unhandled assignment target %T", l))
}
