package emu

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xplshn/gwacc/pkg/ir"
)

func mainOf(body ...ir.Instr) *ir.Program {
	instrs := append([]ir.Instr{&ir.Push{Regs: []ir.Reg{ir.LR}}}, body...)
	instrs = append(instrs, &ir.Pop{Regs: []ir.Reg{ir.PC}})
	return &ir.Program{Entry: "main", Funcs: []*ir.Func{{Name: "main", Body: instrs}}}
}

func imm(v int32) ir.Imm { return ir.Imm{Value: v} }

func lit(r ir.Reg, v int32) ir.Instr { return &ir.Load{Rd: r, Addr: ir.Literal{Value: v}} }

func run(t *testing.T, prog *ir.Program, stdin string) (int, string) {
	t.Helper()
	var out bytes.Buffer
	code, err := Run(prog, strings.NewReader(stdin), &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return code, out.String()
}

func TestDataProcessing(t *testing.T) {
	tests := []struct {
		name string
		body []ir.Instr
		want int
	}{
		{"Add", []ir.Instr{
			&ir.Move{Rd: ir.R0, Src: imm(3)},
			&ir.Op{Kind: ir.ADD, Rd: ir.R0, Rn: ir.R0, Op2: imm(4)},
		}, 7},
		{"Negate", []ir.Instr{
			&ir.Move{Rd: ir.R1, Src: imm(5)},
			&ir.Op{Kind: ir.RSB, Rd: ir.R0, Rn: ir.R1, Op2: imm(0)},
		}, 251},
		{"ShiftedOperand", []ir.Instr{
			&ir.Move{Rd: ir.R1, Src: imm(3)},
			&ir.Move{Rd: ir.R0, Src: ir.Shifted{Reg: ir.R1, Kind: ir.LSL, Amount: 2}},
		}, 12},
		{"ArithmeticShiftByRegister", []ir.Instr{
			lit(ir.R1, -64),
			&ir.Move{Rd: ir.R2, Src: imm(3)},
			&ir.Move{Rd: ir.R0, Src: ir.ShiftedBy{Reg: ir.R1, Kind: ir.ASR, By: ir.R2}},
		}, 248},
		{"MoveNot", []ir.Instr{
			&ir.Move{Rd: ir.R1, Src: imm(0)},
			&ir.Move{Not: true, Rd: ir.R0, Src: ir.R1},
		}, 255},
		{"LongMultiplyHighWord", []ir.Instr{
			lit(ir.R1, 100000),
			lit(ir.R2, 100000),
			&ir.LongMul{Lo: ir.R0, Hi: ir.R3, Rm: ir.R1, Rs: ir.R2},
			&ir.Move{Rd: ir.R0, Src: ir.R3},
		}, 2},
		{"PushPopOrder", []ir.Instr{
			&ir.Move{Rd: ir.R4, Src: imm(1)},
			&ir.Move{Rd: ir.R5, Src: imm(2)},
			&ir.Push{Regs: []ir.Reg{ir.R4, ir.R5}},
			&ir.Pop{Regs: []ir.Reg{ir.R0, ir.R1}},
			&ir.Op{Kind: ir.ADD, Rd: ir.R0, Rn: ir.R0, Op2: ir.Shifted{Reg: ir.R1, Kind: ir.LSL, Amount: 4}},
		}, 33},
		{"PreIndexedStore", []ir.Instr{
			&ir.Move{Rd: ir.R1, Src: imm(9)},
			&ir.Store{Rd: ir.R1, Addr: ir.Mem{Base: ir.SP, Offset: -4, WriteBack: true}},
			&ir.Store{Width: ir.Byte, Rd: ir.R1, Addr: ir.Mem{Base: ir.SP, Offset: -1, WriteBack: true}},
			&ir.Load{Width: ir.SignedByte, Rd: ir.R0, Addr: ir.Mem{Base: ir.SP}},
			&ir.Load{Rd: ir.R2, Addr: ir.Mem{Base: ir.SP, Offset: 1}},
			&ir.Op{Kind: ir.ADD, Rd: ir.R0, Rn: ir.R0, Op2: ir.R2},
			&ir.Op{Kind: ir.ADD, Rd: ir.SP, Rn: ir.SP, Op2: imm(5)},
		}, 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := run(t, mainOf(tt.body...), ""); got != tt.want {
				t.Errorf("Expected exit code %d, got %d", tt.want, got)
			}
		})
	}
}

func TestConditions(t *testing.T) {
	tests := []struct {
		name string
		a, b int32
		cond ir.Cond
		want bool
	}{
		{"LessThan", 1, 2, ir.LT, true},
		{"GreaterThan", 2, 1, ir.GT, true},
		{"SignedLess", -1, 1, ir.LT, true},
		{"UnsignedLower", -1, 1, ir.CC, false},
		{"UnsignedHigherOrSame", -1, 1, ir.CS, true},
		{"Equal", 3, 3, ir.EQ, true},
		{"GreaterOrEqual", 3, 3, ir.GE, true},
		{"NotGreater", 3, 3, ir.GT, false},
		{"LessOrEqual", -5, -4, ir.LE, true},
		{"Higher", 7, 3, ir.HI, true},
		{"LowerOrSame", 3, 3, ir.LS, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := mainOf(
				lit(ir.R1, tt.a),
				lit(ir.R2, tt.b),
				&ir.Compare{Rn: ir.R1, Op2: ir.R2},
				&ir.Move{Rd: ir.R0, Src: imm(0)},
				&ir.Move{Cond: tt.cond, Rd: ir.R0, Src: imm(1)},
			)
			got, _ := run(t, prog, "")
			if (got == 1) != tt.want {
				t.Errorf("%d %s %d: expected %v", tt.a, tt.cond, tt.b, tt.want)
			}
		})
	}
}

func TestOverflowFlag(t *testing.T) {
	tests := []struct {
		name string
		op   ir.OpKind
		a    int32
		b    int32
		want int
	}{
		{"AddOverflows", ir.ADD, 2147483647, 1, 1},
		{"AddFits", ir.ADD, 2147483646, 1, 0},
		{"SubOverflows", ir.SUB, -2147483648, 1, 1},
		{"SubFits", ir.SUB, -5, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := mainOf(
				lit(ir.R1, tt.a),
				lit(ir.R2, tt.b),
				&ir.Move{Rd: ir.R0, Src: imm(0)},
				&ir.Op{Kind: tt.op, SetFlags: true, Rd: ir.R1, Rn: ir.R1, Op2: ir.R2},
				&ir.Move{Cond: ir.VS, Rd: ir.R0, Src: imm(1)},
			)
			if got, _ := run(t, prog, ""); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestCallAndReturn(t *testing.T) {
	prog := mainOf(
		&ir.Move{Rd: ir.R0, Src: imm(20)},
		&ir.Branch{Link: true, Target: "inc"},
	)
	prog.Funcs = append(prog.Funcs, &ir.Func{Name: "inc", Body: []ir.Instr{
		&ir.Push{Regs: []ir.Reg{ir.LR}},
		&ir.Op{Kind: ir.ADD, Rd: ir.R0, Rn: ir.R0, Op2: imm(1)},
		&ir.Pop{Regs: []ir.Reg{ir.PC}},
	}})
	if got, _ := run(t, prog, ""); got != 21 {
		t.Errorf("Expected 21, got %d", got)
	}
}

func TestLibc(t *testing.T) {
	format := func(label string) []ir.Instr {
		return []ir.Instr{
			&ir.Load{Rd: ir.R0, Addr: ir.LabelRef{Name: label}},
			&ir.Op{Kind: ir.ADD, Rd: ir.R0, Rn: ir.R0, Op2: imm(4)},
		}
	}
	data := []*ir.Data{
		{Label: "fmt", Value: "%d|%c|%p|%.*s"},
		{Label: "word", Value: "hello"},
		{Label: "read", Value: "%d"},
	}

	t.Run("Printf", func(t *testing.T) {
		var out bytes.Buffer
		c, err := NewCPU(&ir.Program{Entry: "main", Data: data, Funcs: []*ir.Func{{Name: "main"}}}, nil, &out)
		if err != nil {
			t.Fatalf("NewCPU: %v", err)
		}
		word := c.symbols["word"] + 4
		c.printf("%d|%c|%p|%.*s", uint32(0xFFFFFFFD), 'A', 0, 3, word)
		if got, want := out.String(), "-3|A|(nil)|hel"; got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})

	t.Run("PutsAndPutchar", func(t *testing.T) {
		body := append(format("word"), &ir.Branch{Link: true, Target: "puts"},
			&ir.Move{Rd: ir.R0, Src: imm('!')}, &ir.Branch{Link: true, Target: "putchar"},
			&ir.Move{Rd: ir.R0, Src: imm(0)})
		prog := mainOf(body...)
		prog.Data = data
		if _, out := run(t, prog, ""); out != "hello\n!" {
			t.Errorf("Expected %q, got %q", "hello\n!", out)
		}
	})

	t.Run("ScanfIntoHeap", func(t *testing.T) {
		body := []ir.Instr{
			&ir.Move{Rd: ir.R0, Src: imm(4)},
			&ir.Branch{Link: true, Target: "malloc"},
			&ir.Move{Rd: ir.R4, Src: ir.R0},
			&ir.Move{Rd: ir.R1, Src: ir.R4},
		}
		body = append(body, format("read")...)
		body = append(body,
			&ir.Branch{Link: true, Target: "scanf"},
			&ir.Load{Rd: ir.R0, Addr: ir.Mem{Base: ir.R4}},
		)
		prog := mainOf(body...)
		prog.Data = data
		if got, _ := run(t, prog, "  12 x"); got != 12 {
			t.Errorf("Expected 12, got %d", got)
		}
	})

	t.Run("ExitTruncatesStatus", func(t *testing.T) {
		prog := mainOf(lit(ir.R0, -1), &ir.Branch{Link: true, Target: "exit"}, &ir.Move{Rd: ir.R0, Src: imm(0)})
		if got, _ := run(t, prog, ""); got != 255 {
			t.Errorf("Expected 255, got %d", got)
		}
	})

	t.Run("DivMod", func(t *testing.T) {
		prog := mainOf(
			lit(ir.R0, -7),
			&ir.Move{Rd: ir.R1, Src: imm(3)},
			&ir.Branch{Link: true, Target: "__aeabi_idivmod"},
			// -7 / 3 = -2, -7 % 3 = -1: exit with (q + 10) * 16 + (r + 10)
			&ir.Op{Kind: ir.ADD, Rd: ir.R0, Rn: ir.R0, Op2: imm(10)},
			&ir.Op{Kind: ir.ADD, Rd: ir.R1, Rn: ir.R1, Op2: imm(10)},
			&ir.Op{Kind: ir.ADD, Rd: ir.R0, Rn: ir.R1, Op2: ir.Shifted{Reg: ir.R0, Kind: ir.LSL, Amount: 4}},
		)
		if got, _ := run(t, prog, ""); got != 8*16+9 {
			t.Errorf("Expected %d, got %d", 8*16+9, got)
		}
	})
}

func TestFaults(t *testing.T) {
	tests := []struct {
		name string
		body []ir.Instr
		want string
	}{
		{"NullLoad", []ir.Instr{
			&ir.Move{Rd: ir.R1, Src: imm(0)},
			&ir.Load{Rd: ir.R0, Addr: ir.Mem{Base: ir.R1}},
		}, "out of range"},
		{"DoubleFree", []ir.Instr{
			&ir.Move{Rd: ir.R0, Src: imm(8)},
			&ir.Branch{Link: true, Target: "malloc"},
			&ir.Move{Rd: ir.R4, Src: ir.R0},
			&ir.Branch{Link: true, Target: "free"},
			&ir.Move{Rd: ir.R0, Src: ir.R4},
			&ir.Branch{Link: true, Target: "free"},
		}, "free of unallocated pointer"},
		{"UndefinedLabel", []ir.Instr{
			&ir.Branch{Target: "nowhere"},
		}, "undefined label 'nowhere'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(mainOf(tt.body...), nil, &bytes.Buffer{})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestStepLimit(t *testing.T) {
	prog := &ir.Program{Entry: "main", Funcs: []*ir.Func{{Name: "main", Body: []ir.Instr{
		&ir.Label{Name: "L0"},
		&ir.Branch{Target: "L0"},
	}}}}
	c, err := NewCPU(prog, nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("NewCPU: %v", err)
	}
	c.MaxSteps = 100
	if err := c.Run(); !errors.Is(err, ErrStepLimit) {
		t.Errorf("Expected ErrStepLimit, got %v", err)
	}
}

func TestMissingEntry(t *testing.T) {
	if _, err := NewCPU(&ir.Program{Entry: "main"}, nil, nil); err == nil {
		t.Error("Expected an error for a program without main")
	}
}
