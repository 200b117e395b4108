package codegen

import (
	"math/bits"

	"github.com/xplshn/gwacc/pkg/ir"
	"github.com/xplshn/gwacc/pkg/types"
)

// Largest offsets the addressing modes accept.
const (
	maxWordOffset = 4095
	maxByteOffset = 255
)

// immChunks splits v into 8-bit pieces at even bit positions, each of which
// is a valid rotated immediate.
func immChunks(v int) []int32 {
	var out []int32
	u := uint32(v)
	for u != 0 {
		s := bits.TrailingZeros32(u) &^ 1
		piece := u & (0xFF << s)
		out = append(out, int32(piece))
		u &^= piece
	}
	return out
}

// opConst emits rd = rn <kind> v using as many instructions as v needs.
func (ctx Context) opConst(kind ir.OpKind, rd, rn ir.Reg, v int) {
	chunks := immChunks(v)
	if len(chunks) == 0 {
		if rd != rn { ctx.emit(&ir.Move{Rd: rd, Src: rn}) }
		return
	}
	for _, c := range chunks {
		ctx.emit(&ir.Op{Kind: kind, Rd: rd, Rn: rn, Op2: ir.Imm{Value: c}})
		rn = rd
	}
}

func (ctx Context) loadImm(rd ir.Reg, v int32) {
	if v >= 0 && v <= 255 {
		ctx.emit(&ir.Move{Rd: rd, Src: ir.Imm{Value: v}})
		return
	}
	ctx.emit(&ir.Load{Rd: rd, Addr: ir.Literal{Value: v}})
}

func loadWidth(t types.Type) ir.Width {
	if types.IsByte(t) { return ir.SignedByte }
	return ir.Word
}

func storeWidth(t types.Type) ir.Width {
	if types.IsByte(t) { return ir.Byte }
	return ir.Word
}

// load reads [base, #off] into rd. Offsets the instruction cannot encode
// are added into rd first.
func (ctx Context) load(w ir.Width, rd, base ir.Reg, off int) {
	limit := maxWordOffset
	if w == ir.SignedByte {
		limit = maxByteOffset
	}
	if off > limit {
		ctx.opConst(ir.ADD, rd, base, off)
		base, off = rd, 0
	}
	ctx.emit(&ir.Load{Width: w, Rd: rd, Addr: ir.Mem{Base: base, Offset: int32(off)}})
}

// store writes rd to [base, #off], using r12 for offsets out of range.
func (ctx Context) store(w ir.Width, rd, base ir.Reg, off int) {
	if off > maxWordOffset {
		ctx.opConst(ir.ADD, ir.R12, base, off)
		base, off = ir.R12, 0
	}
	ctx.emit(&ir.Store{Width: w, Rd: rd, Addr: ir.Mem{Base: base, Offset: int32(off)}})
}

// malloc allocates size bytes and leaves the pointer in Dst.
func (ctx Context) malloc(size int) {
	ctx.emit(
		&ir.Load{Rd: ir.R0, Addr: ir.Literal{Value: int32(size)}},
		bl("malloc"),
		&ir.Move{Rd: ctx.Dst(), Src: ir.R0},
	)
}

// call branches to a builtin and records that it is needed.
func (ctx Context) call(b builtin) { ctx.callIf(ir.AL, b) }

func (ctx Context) callIf(cond ir.Cond, b builtin) {
	ctx.emit(blIf(cond, ctx.sess.use(b)))
}

// moveArg copies r into the argument register a.
func (ctx Context) moveArg(a, r ir.Reg) { ctx.emit(&ir.Move{Rd: a, Src: r}) }

// keepDst returns a context evaluating into Nxt that leaves Dst untouched.
// Statement-level code always has a register to spare.
func (ctx Context) keepDst() Context {
	_, inner, ok := ctx.TakeRegs(1)
	if !ok { panic("codegen: register pool exhausted") }
	return inner
}

// skip drops the first n registers without the two-register floor.
func (ctx Context) skip(n int) Context {
	next := ctx
	next.regs = ctx.regs[n:]
	return next
}

func (ctx Context) nullCheck(r ir.Reg) {
	ctx.moveArg(ir.R0, r)
	ctx.call(checkNullPointer)
}
