// Package emu executes generated programs without an ARM toolchain. It runs
// the instruction model directly, with a flat little-endian memory and a
// small simulated C library behind the external symbols.
package emu

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xplshn/gwacc/pkg/ir"
)

const (
	MemSize  = 4 << 20
	dataBase = 0x1000
	// Stack space kept clear of the heap.
	stackReserve = 1 << 20

	// Code is not stored in memory; instruction i lives at codeBase + 4*i.
	codeBase = 0x8000_0000
	// Returning to haltAddr ends the program.
	haltAddr = 0xFFFF_FFF0

	DefaultMaxSteps = 50_000_000
)

var ErrStepLimit = errors.New("emu: step limit exceeded")

type CPU struct {
	Regs [16]uint32

	N bool
	Z bool
	C bool
	V bool

	Memory []byte

	Halted   bool
	ExitCode int

	Steps    int
	MaxSteps int

	// Output receives everything the program prints. If nil, os.Stdout is used.
	Output io.Writer
	Input  *bufio.Reader

	code    []ir.Instr
	owner   []string // function of each instruction, for error messages
	labels  map[string]int
	symbols map[string]uint32
	pc      int

	heap   uint32
	allocs map[uint32]uint32
}

// fault aborts the current step with an error.
type fault struct{ err error }

func (c *CPU) faultf(format string, args ...interface{}) {
	panic(fault{fmt.Errorf(format, args...)})
}

// NewCPU loads prog: data is laid out from dataBase, the heap follows it and
// the stack grows down from the top of memory. Execution starts at the entry
// symbol with lr set so that returning from it halts.
func NewCPU(prog *ir.Program, stdin io.Reader, stdout io.Writer) (*CPU, error) {
	c := &CPU{
		Memory:   make([]byte, MemSize),
		MaxSteps: DefaultMaxSteps,
		Output:   stdout,
		labels:   make(map[string]int),
		symbols:  make(map[string]uint32),
		allocs:   make(map[uint32]uint32),
	}
	if stdin != nil {
		c.Input = bufio.NewReader(stdin)
	}

	addr := uint32(dataBase)
	for _, d := range prog.Data {
		addr = align(addr, 4)
		if _, dup := c.symbols[d.Label]; dup { return nil, fmt.Errorf("emu: data label '%s' defined twice", d.Label) }
		c.symbols[d.Label] = addr
		binary.LittleEndian.PutUint32(c.Memory[addr:], uint32(len(d.Value)))
		copy(c.Memory[addr+4:], d.Value)
		addr += 4 + uint32(len(d.Value)) + 1
	}
	c.heap = align(addr, 8)

	for _, fn := range prog.Funcs {
		if _, dup := c.labels[fn.Name]; dup { return nil, fmt.Errorf("emu: function '%s' defined twice", fn.Name) }
		c.labels[fn.Name] = len(c.code)
		for _, instr := range fn.Body {
			if l, ok := instr.(*ir.Label); ok {
				c.labels[l.Name] = len(c.code)
			}
			c.code = append(c.code, instr)
			c.owner = append(c.owner, fn.Name)
		}
	}

	entry, ok := c.labels[prog.Entry]
	if !ok { return nil, fmt.Errorf("emu: entry point '%s' is not defined", prog.Entry) }
	c.pc = entry
	c.Regs[ir.SP] = MemSize
	c.Regs[ir.LR] = haltAddr
	return c, nil
}

func align(v, to uint32) uint32 { return (v + to - 1) &^ (to - 1) }

func (c *CPU) outputSink() io.Writer {
	if c.Output != nil { return c.Output }
	return os.Stdout
}

func (c *CPU) checkRange(addr, n uint32) {
	if uint64(addr)+uint64(n) > uint64(len(c.Memory)) || addr < dataBase {
		c.faultf("memory access at 0x%08x out of range", addr)
	}
}

func (c *CPU) Read32(addr uint32) uint32 {
	c.checkRange(addr, 4)
	return binary.LittleEndian.Uint32(c.Memory[addr:])
}

func (c *CPU) Write32(addr, val uint32) {
	c.checkRange(addr, 4)
	binary.LittleEndian.PutUint32(c.Memory[addr:], val)
}

func (c *CPU) ReadByte(addr uint32) byte {
	c.checkRange(addr, 1)
	return c.Memory[addr]
}

func (c *CPU) WriteByte(addr uint32, val byte) {
	c.checkRange(addr, 1)
	c.Memory[addr] = val
}

// ReadCString reads a NUL-terminated string starting at addr.
func (c *CPU) ReadCString(addr uint32) string {
	var buf []byte
	for {
		b := c.ReadByte(addr)
		if b == 0 { return string(buf) }
		buf = append(buf, b)
		addr++
	}
}

func (c *CPU) cond(cc ir.Cond) bool {
	switch cc {
	case ir.AL: return true
	case ir.EQ: return c.Z
	case ir.NE: return !c.Z
	case ir.CS: return c.C
	case ir.CC: return !c.C
	case ir.MI: return c.N
	case ir.PL: return !c.N
	case ir.VS: return c.V
	case ir.VC: return !c.V
	case ir.HI: return c.C && !c.Z
	case ir.LS: return !c.C || c.Z
	case ir.GE: return c.N == c.V
	case ir.LT: return c.N != c.V
	case ir.GT: return !c.Z && c.N == c.V
	case ir.LE: return c.Z || c.N != c.V
	}
	c.faultf("unknown condition %d", cc)
	return false
}

func (c *CPU) updateFlags(result uint32) {
	c.Z = result == 0
	c.N = result&0x8000_0000 != 0
}

func (c *CPU) add(a, b uint32, setFlags bool) uint32 {
	r := a + b
	if setFlags {
		c.updateFlags(r)
		c.C = uint64(a)+uint64(b) > 0xFFFF_FFFF
		c.V = (^(a^b)&(a^r))&0x8000_0000 != 0
	}
	return r
}

func (c *CPU) sub(a, b uint32, setFlags bool) uint32 {
	r := a - b
	if setFlags {
		c.updateFlags(r)
		c.C = a >= b
		c.V = ((a^b)&(a^r))&0x8000_0000 != 0
	}
	return r
}

func shift(v uint32, kind ir.ShiftKind, amount uint32) uint32 {
	switch kind {
	case ir.LSL:
		if amount >= 32 { return 0 }
		return v << amount
	case ir.LSR:
		if amount >= 32 { return 0 }
		return v >> amount
	case ir.ASR:
		if amount >= 32 { amount = 31 }
		return uint32(int32(v) >> amount)
	}
	return v
}

func (c *CPU) operand(op ir.Operand) uint32 {
	switch op := op.(type) {
	case ir.Reg:
		return c.reg(op)
	case ir.Imm:
		return uint32(op.Value)
	case ir.Shifted:
		return shift(c.reg(op.Reg), op.Kind, uint32(op.Amount))
	case ir.ShiftedBy:
		return shift(c.reg(op.Reg), op.Kind, c.reg(op.By)&0xFF)
	}
	c.faultf("unknown operand %T", op)
	return 0
}

func (c *CPU) reg(r ir.Reg) uint32 {
	if r == ir.PC { c.faultf("pc is not readable as an operand") }
	return c.Regs[r]
}

func (c *CPU) address(m ir.Mem) uint32 {
	addr := c.Regs[m.Base] + uint32(m.Offset)
	if m.WriteBack {
		c.Regs[m.Base] = addr
	}
	return addr
}

func (c *CPU) returnAddress() uint32 { return codeBase + uint32(c.pc)*4 }

// jumpTo continues execution at a code address such as a saved lr.
func (c *CPU) jumpTo(addr uint32) {
	if addr == haltAddr {
		c.Halted = true
		c.ExitCode = int(c.Regs[ir.R0] & 0xFF)
		return
	}
	idx := int((addr - codeBase) / 4)
	if addr < codeBase || addr%4 != 0 || idx >= len(c.code) {
		c.faultf("jump to invalid code address 0x%08x", addr)
	}
	c.pc = idx
}

// Step executes one instruction.
func (c *CPU) Step() (err error) {
	if c.Halted { return nil }
	if c.pc >= len(c.code) {
		c.Halted = true
		return fmt.Errorf("emu: ran past the end of the program")
	}

	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(fault)
			if !ok { panic(r) }
			c.Halted = true
			err = fmt.Errorf("emu: %s: %w", c.owner[min(c.pc, len(c.owner)-1)], f.err)
		}
	}()

	instr := c.code[c.pc]
	c.pc++
	c.Steps++

	switch in := instr.(type) {
	case *ir.Label, *ir.Ltorg:

	case *ir.Op:
		if !c.cond(in.Cond) { return nil }
		a, b := c.reg(in.Rn), c.operand(in.Op2)
		var r uint32
		switch in.Kind {
		case ir.ADD:
			r = c.add(a, b, in.SetFlags)
		case ir.SUB:
			r = c.sub(a, b, in.SetFlags)
		case ir.RSB:
			r = c.sub(b, a, in.SetFlags)
		case ir.AND, ir.ORR, ir.EOR:
			switch in.Kind {
			case ir.AND:
				r = a & b
			case ir.ORR:
				r = a | b
			default:
				r = a ^ b
			}
			if in.SetFlags {
				c.updateFlags(r)
			}
		default:
			c.faultf("unknown operation %s", in.Kind)
		}
		c.Regs[in.Rd] = r

	case *ir.Move:
		if !c.cond(in.Cond) { return nil }
		v := c.operand(in.Src)
		if in.Not {
			v = ^v
		}
		if in.SetFlags {
			c.updateFlags(v)
		}
		c.Regs[in.Rd] = v

	case *ir.Compare:
		if !c.cond(in.Cond) { return nil }
		c.sub(c.reg(in.Rn), c.operand(in.Op2), true)

	case *ir.Load:
		if !c.cond(in.Cond) { return nil }
		c.Regs[in.Rd] = c.load(in)

	case *ir.Store:
		if !c.cond(in.Cond) { return nil }
		v := c.Regs[in.Rd]
		addr := c.address(in.Addr)
		if in.Width == ir.Word {
			c.Write32(addr, v)
		} else {
			c.WriteByte(addr, byte(v))
		}

	case *ir.Push:
		sp := c.Regs[ir.SP] - uint32(4*len(in.Regs))
		for i, r := range in.Regs {
			c.Write32(sp+uint32(4*i), c.Regs[r])
		}
		c.Regs[ir.SP] = sp

	case *ir.Pop:
		sp := c.Regs[ir.SP]
		c.Regs[ir.SP] = sp + uint32(4*len(in.Regs))
		for i, r := range in.Regs {
			v := c.Read32(sp + uint32(4*i))
			if r == ir.PC {
				c.jumpTo(v)
				continue
			}
			c.Regs[r] = v
		}

	case *ir.Branch:
		if !c.cond(in.Cond) { return nil }
		if in.Link {
			if ir.IsExternal(in.Target) {
				c.callExternal(in.Target)
				return nil
			}
			c.Regs[ir.LR] = c.returnAddress()
		}
		target, ok := c.labels[in.Target]
		if !ok { c.faultf("branch to undefined label '%s'", in.Target) }
		c.pc = target

	case *ir.LongMul:
		p := int64(int32(c.reg(in.Rm))) * int64(int32(c.reg(in.Rs)))
		c.Regs[in.Lo] = uint32(p)
		c.Regs[in.Hi] = uint32(uint64(p) >> 32)

	default:
		c.faultf("unknown instruction %T", in)
	}
	return nil
}

func (c *CPU) load(in *ir.Load) uint32 {
	switch a := in.Addr.(type) {
	case ir.Literal:
		return uint32(a.Value)
	case ir.LabelRef:
		addr, ok := c.symbols[a.Name]
		if !ok { c.faultf("undefined data label '%s'", a.Name) }
		return addr
	case ir.Mem:
		addr := c.address(a)
		switch in.Width {
		case ir.Byte:
			return uint32(c.ReadByte(addr))
		case ir.SignedByte:
			return uint32(int32(int8(c.ReadByte(addr))))
		}
		return c.Read32(addr)
	}
	c.faultf("unknown address %T", in.Addr)
	return 0
}

// Run steps until the program halts, fails or exceeds MaxSteps.
func (c *CPU) Run() error {
	for !c.Halted {
		if c.MaxSteps > 0 && c.Steps >= c.MaxSteps { return ErrStepLimit }
		if err := c.Step(); err != nil { return err }
	}
	return nil
}

// Run executes prog to completion and returns its exit status.
func Run(prog *ir.Program, stdin io.Reader, stdout io.Writer) (int, error) {
	c, err := NewCPU(prog, stdin, stdout)
	if err != nil { return 0, err }
	if err := c.Run(); err != nil { return 0, err }
	return c.ExitCode, nil
}
