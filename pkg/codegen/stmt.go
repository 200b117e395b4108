package codegen

import (
	"fmt"

	"github.com/xplshn/gwacc/pkg/ast"
	"github.com/xplshn/gwacc/pkg/ir"
	"github.com/xplshn/gwacc/pkg/types"
)

func (ctx Context) codegenStmt(s ast.Stmt) {
	dst := ctx.Dst()
	switch s := s.(type) {
	case *ast.Skip:

	case *ast.AssignNew:
		ctx.codegenRhs(s.Rhs)
		off, t := ctx.declare(s.Name)
		ctx.store(storeWidth(t), dst, ir.SP, off)

	case *ast.Assign:
		ctx.codegenRhs(s.Rhs)
		if id, ok := s.Lhs.(*ast.Ident); ok {
			off, t := ctx.OffsetOf(id.Name)
			ctx.store(storeWidth(t), dst, ir.SP, off)
			return
		}
		addr := ctx.keepDst()
		t := addr.lhsAddr(s.Lhs)
		ctx.store(storeWidth(t), dst, addr.Dst(), 0)

	case *ast.Read:
		ctx.lhsAddr(s.Lhs)
		ctx.moveArg(ir.R0, dst)
		if types.Matches(ctx.sess.prog.TypeOf(s), types.Char) {
			ctx.call(readChar)
		} else {
			ctx.call(readInt)
		}

	case *ast.Free:
		ctx.codegenExpr(s.Expr)
		ctx.moveArg(ir.R0, dst)
		switch ctx.sess.prog.TypeOf(s).(type) {
		case *types.Array:
			ctx.emit(bl("free"))
		case *types.Class:
			ctx.call(freeInstance)
		default:
			ctx.call(freePair)
		}

	case *ast.Return:
		ctx.codegenExpr(s.Expr)
		ctx.moveArg(ir.R0, dst)
		ctx.opConst(ir.ADD, ir.SP, ir.SP, ctx.TotalScopeSize()+ctx.offset)
		ctx.emit(&ir.Pop{Regs: []ir.Reg{ir.PC}})

	case *ast.Exit:
		ctx.codegenExpr(s.Expr)
		ctx.moveArg(ir.R0, dst)
		ctx.emit(bl("exit"))

	case *ast.Print:
		ctx.codegenPrint(s, s.Expr)

	case *ast.Println:
		ctx.codegenPrint(s, s.Expr)
		ctx.call(printLn)

	case *ast.IfThenElse:
		elseLabel, endLabel := ctx.sess.newLabel(), ctx.sess.newLabel()
		ctx.codegenExpr(s.Cond)
		ctx.emit(
			&ir.Compare{Rn: dst, Op2: ir.Imm{Value: 0}},
			&ir.Branch{Cond: ir.EQ, Target: elseLabel},
		)
		ctx.codegenBlock(s.Then)
		ctx.emit(&ir.Branch{Target: endLabel}, &ir.Label{Name: elseLabel})
		ctx.codegenBlock(s.Else)
		ctx.emit(&ir.Label{Name: endLabel})

	case *ast.WhileDo:
		condLabel, bodyLabel := ctx.sess.newLabel(), ctx.sess.newLabel()
		ctx.emit(&ir.Branch{Target: condLabel}, &ir.Label{Name: bodyLabel})
		ctx.codegenBlock(s.Body)
		ctx.emit(&ir.Label{Name: condLabel})
		ctx.codegenExpr(s.Cond)
		ctx.emit(
			&ir.Compare{Rn: dst, Op2: ir.Imm{Value: 1}},
			&ir.Branch{Cond: ir.EQ, Target: bodyLabel},
		)

	case *ast.Begin:
		ctx.codegenBlock(s.Body)

	case *ast.Compose:
		ctx.codegenStmt(s.First)
		ctx.codegenStmt(s.Second)

	default:
		panic(fmt.Sprintf("codegen: unhandled statement %T", s))
	}
}

// codegenBlock runs s in a fresh block holding its own declarations.
func (ctx Context) codegenBlock(s ast.Stmt) {
	vars := ast.Vars(s)
	size := ast.VarsSize(vars)
	ctx.opConst(ir.SUB, ir.SP, ir.SP, size)
	ctx.WithNewScope(vars).codegenStmt(s)
	ctx.opConst(ir.ADD, ir.SP, ir.SP, size)
}

func (ctx Context) codegenPrint(s ast.Stmt, e ast.Expr) {
	ctx.codegenExpr(e)
	ctx.moveArg(ir.R0, ctx.Dst())
	ctx.call(printerFor(ctx.sess.prog.TypeOf(s)))
}

// printerFor picks the print routine for a value of type t. Character
// arrays share the string layout.
func printerFor(t types.Type) builtin {
	switch t := t.(type) {
	case *types.Base:
		switch t.Kind {
		case types.KindInt: return printInt
		case types.KindBool: return printBool
		case types.KindChar: return printChar
		case types.KindString: return printString
		}
	case *types.Array:
		if b, ok := t.Elem.(*types.Base); ok && b.Kind == types.KindChar { return printString }
	}
	return printReference
}
