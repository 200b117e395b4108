package codegen

import (
	"fmt"

	"github.com/xplshn/gwacc/pkg/ast"
	"github.com/xplshn/gwacc/pkg/ir"
	"github.com/xplshn/gwacc/pkg/scope"
	"github.com/xplshn/gwacc/pkg/types"
)

// frame is the stack block of one lexical scope. A declaration only becomes
// addressable once its own statement has run, which is what defined tracks.
type frame struct {
	vars    *scope.Scope
	defined map[string]bool
}

func (f *frame) size() int { return f.vars.Size() }

// Context is passed by value through generation. Every With*/Take* method
// returns a derived copy and leaves the receiver untouched; only the
// defined-sets of frames are shared and mutated.
type Context struct {
	sess   *session
	fn     *ast.Func
	class  *ast.Class
	frames []*frame // innermost first
	offset int
	regs   []ir.Reg
}

func newContext(sess *session, fn *ast.Func, class *ast.Class) Context {
	regs := make([]ir.Reg, sess.cfg.Registers)
	for i := range regs {
		regs[i] = ir.FirstAllocatable + ir.Reg(i)
	}
	return Context{sess: sess, fn: fn, class: class, regs: regs}
}

// Dst receives the value of whatever is being evaluated.
func (ctx Context) Dst() ir.Reg { return ctx.regs[0] }

// Nxt is the second register, free for the caller's use while Dst is live.
func (ctx Context) Nxt() ir.Reg { return ctx.regs[1] }

// TakeRegs removes the first n registers from the pool. Two registers must
// remain, so it fails when fewer than n+2 are available.
func (ctx Context) TakeRegs(n int) ([]ir.Reg, Context, bool) {
	if len(ctx.regs) < n+2 { return nil, ctx, false }
	next := ctx
	next.regs = ctx.regs[n:]
	return ctx.regs[:n], next, true
}

// WithRegs puts regs in front of the pool.
func (ctx Context) WithRegs(regs ...ir.Reg) Context {
	next := ctx
	next.regs = make([]ir.Reg, 0, len(regs)+len(ctx.regs))
	next.regs = append(append(next.regs, regs...), ctx.regs...)
	return next
}

func (ctx Context) WithStackOffset(offset int) Context {
	next := ctx
	next.offset = offset
	return next
}

func (ctx Context) WithNewScope(vars []ast.Var) Context {
	bindings := make([]scope.Binding, len(vars))
	for i, v := range vars {
		bindings[i] = scope.Binding{Name: v.Name, Type: v.Type}
	}
	f := &frame{vars: scope.FromBindings(nil, bindings), defined: make(map[string]bool)}

	next := ctx
	next.frames = append([]*frame{f}, ctx.frames...)
	return next
}

// OffsetOf returns the sp-relative offset and type of a live variable,
// parameter or receiver.
func (ctx Context) OffsetOf(name string) (int, types.Type) {
	off := ctx.offset
	for _, f := range ctx.frames {
		if f.defined[name] {
			inner, _ := f.vars.OffsetOf(name)
			t, _ := f.vars.LookupLocal(name)
			return off + inner, t
		}
		off += f.size()
	}

	off += 4 // saved lr
	if ctx.class != nil {
		if name == "this" { return off, types.NewClass(ctx.class.Name) }
		off += 4
	}
	if ctx.fn != nil {
		for _, p := range ctx.fn.Params {
			if p.Name == name { return off, p.Type }
			off += types.Size(p.Type)
		}
	}
	panic(fmt.Sprintf("codegen: '%s' is not in scope", name))
}

// declare returns the slot of a declaration in the innermost block and
// marks it live. Offsets are computed before the variable is defined so the
// initializer still sees any outer variable of the same name.
func (ctx Context) declare(name string) (int, types.Type) {
	f := ctx.frames[0]
	off, ok := f.vars.OffsetOf(name)
	if !ok { panic(fmt.Sprintf("codegen: '%s' is not declared in the current block", name)) }
	t, _ := f.vars.LookupLocal(name)
	f.defined[name] = true
	return ctx.offset + off, t
}

// TotalScopeSize is the stack space of every block of the current function.
func (ctx Context) TotalScopeSize() int {
	size := 0
	for _, f := range ctx.frames {
		size += f.size()
	}
	return size
}

func (ctx Context) emit(instrs ...ir.Instr) { ctx.sess.emit(instrs...) }
