// Package codegen lowers an analyzed program to ARM instructions. Values are
// computed in a pool of callee-saved registers, variables live in
// stack-allocated blocks, and runtime support comes from a fixed builtin
// library of which only the reachable routines are emitted.
package codegen

import (
	"fmt"

	"github.com/xplshn/gwacc/pkg/ast"
	"github.com/xplshn/gwacc/pkg/config"
	"github.com/xplshn/gwacc/pkg/ir"
	"github.com/xplshn/gwacc/pkg/typeChecker"
)

// GenerateIR lowers prog. Methods come first, then free functions, then
// main, then the builtins they need.
func GenerateIR(prog *typeChecker.AnnotatedProgram, cfg *config.Config) *ir.Program {
	s := newSession(prog, cfg)
	out := &ir.Program{}

	for _, c := range prog.Program.Classes {
		for _, f := range c.Funcs {
			out.Funcs = append(out.Funcs, s.codegenFunc(f, c))
		}
	}
	for _, f := range prog.Program.Funcs {
		out.Funcs = append(out.Funcs, s.codegenFunc(f, nil))
	}
	if prog.Program.Stmt != nil {
		out.Funcs = append(out.Funcs, s.codegenMain(prog.Program.Stmt))
		out.Entry = "main"
	}

	for i, v := range s.strings {
		out.Data = append(out.Data, &ir.Data{Label: fmt.Sprintf("msg_%d", i), Value: v})
	}
	seen := make(map[string]bool)
	for _, b := range Closure(s.usedBuiltins()) {
		bf := catalogue[b]
		for _, str := range bf.strings {
			if seen[str.label] { continue }
			seen[str.label] = true
			out.Data = append(out.Data, &ir.Data{Label: str.label, Value: str.value})
		}
		out.Funcs = append(out.Funcs, &ir.Func{Name: bf.name, Body: bf.body})
	}
	return out
}

// funcLabel names the code of one overload: f_[Class_]name_index.
func (s *session) funcLabel(f *ast.Func, class *ast.Class) string {
	idx := s.prog.Overload(f)
	if class != nil { return fmt.Sprintf("f_%s_%s_%d", class.Name, f.Name, idx) }
	return fmt.Sprintf("f_%s_%d", f.Name, idx)
}

func (s *session) codegenFunc(f *ast.Func, class *ast.Class) *ir.Func {
	ctx := newContext(s, f, class)
	vars := ast.Vars(f.Body)
	size := ast.VarsSize(vars)

	ctx.emit(&ir.Push{Regs: []ir.Reg{ir.LR}})
	ctx.opConst(ir.SUB, ir.SP, ir.SP, size)
	ctx.WithNewScope(vars).codegenStmt(f.Body)

	switch ast.Last(f.Body).(type) {
	case *ast.Return, *ast.Exit:
	default:
		ctx.opConst(ir.ADD, ir.SP, ir.SP, size)
		ctx.emit(&ir.Pop{Regs: []ir.Reg{ir.PC}})
	}
	ctx.emit(&ir.Ltorg{})
	return &ir.Func{Name: s.funcLabel(f, class), Body: s.take()}
}

func (s *session) codegenMain(stmt ast.Stmt) *ir.Func {
	ctx := newContext(s, nil, nil)
	ctx.emit(&ir.Push{Regs: []ir.Reg{ir.LR}})
	ctx.codegenBlock(stmt)
	ctx.emit(
		&ir.Load{Rd: ir.R0, Addr: ir.Literal{Value: 0}},
		&ir.Pop{Regs: []ir.Reg{ir.PC}},
		&ir.Ltorg{},
	)
	return &ir.Func{Name: "main", Body: s.take()}
}

// Generate lowers an analyzed program and renders it with b.
func Generate(b Backend, prog *typeChecker.AnnotatedProgram, cfg *config.Config) (string, error) {
	buf, err := b.Generate(GenerateIR(prog, cfg), cfg)
	if err != nil { return "", err }
	return buf.String(), nil
}
