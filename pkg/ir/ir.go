// Package ir models the ARM instruction stream produced by code generation.
// Every value prints itself in GNU assembler syntax; the backend only has to
// lay out sections.
package ir

import (
	"fmt"
	"strconv"
	"strings"
)

type Reg int

const (
	R0 Reg = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11
	R12
	SP
	LR
	PC
)

// FirstAllocatable is the first register handed out to expression
// evaluation; r0-r3 are argument and scratch registers.
const FirstAllocatable = R4

func (r Reg) String() string {
	switch r {
	case SP: return "sp"
	case LR: return "lr"
	case PC: return "pc"
	}
	return "r" + strconv.Itoa(int(r))
}

type Cond int

const (
	AL Cond = iota
	EQ
	NE
	CS
	CC
	MI
	PL
	VS
	VC
	HI
	LS
	GE
	LT
	GT
	LE
)

var condNames = [...]string{"", "EQ", "NE", "CS", "CC", "MI", "PL", "VS", "VC", "HI", "LS", "GE", "LT", "GT", "LE"}

func (c Cond) String() string { return condNames[c] }

// Inverse returns the condition that holds exactly when c does not.
func (c Cond) Inverse() Cond {
	switch c {
	case EQ: return NE
	case NE: return EQ
	case CS: return CC
	case CC: return CS
	case MI: return PL
	case PL: return MI
	case VS: return VC
	case VC: return VS
	case HI: return LS
	case LS: return HI
	case GE: return LT
	case LT: return GE
	case GT: return LE
	case LE: return GT
	}
	panic("ir: AL has no inverse")
}

type ShiftKind int

const (
	LSL ShiftKind = iota
	LSR
	ASR
)

func (k ShiftKind) String() string {
	switch k {
	case LSL: return "LSL"
	case LSR: return "LSR"
	case ASR: return "ASR"
	}
	return "?"
}

// Operand is the flexible second operand of data-processing instructions.
type Operand interface {
	isOperand()
	String() string
}

type Imm struct{ Value int32 }

// Shifted is a register shifted by a constant amount.
type Shifted struct {
	Reg    Reg
	Kind   ShiftKind
	Amount int
}

// ShiftedBy is a register shifted by the low byte of another register.
type ShiftedBy struct {
	Reg  Reg
	Kind ShiftKind
	By   Reg
}

func (Reg) isOperand()       {}
func (Imm) isOperand()       {}
func (Shifted) isOperand()   {}
func (ShiftedBy) isOperand() {}

func (i Imm) String() string       { return "#" + strconv.Itoa(int(i.Value)) }
func (s Shifted) String() string   { return fmt.Sprintf("%s, %s #%d", s.Reg, s.Kind, s.Amount) }
func (s ShiftedBy) String() string { return fmt.Sprintf("%s, %s %s", s.Reg, s.Kind, s.By) }

// Address is the source of a load.
type Address interface {
	isAddress()
	String() string
}

// Mem is a register-relative address. WriteBack updates Base before the
// access (pre-indexed).
type Mem struct {
	Base      Reg
	Offset    int32
	WriteBack bool
}

// Literal and LabelRef are assembler pseudo-loads from the literal pool.
type Literal struct{ Value int32 }
type LabelRef struct{ Name string }

func (Mem) isAddress()      {}
func (Literal) isAddress()  {}
func (LabelRef) isAddress() {}

func (m Mem) String() string {
	var sb strings.Builder
	sb.WriteString("[" + m.Base.String())
	if m.Offset != 0 {
		fmt.Fprintf(&sb, ", #%d", m.Offset)
	}
	sb.WriteString("]")
	if m.WriteBack {
		sb.WriteString("!")
	}
	return sb.String()
}

func (l Literal) String() string  { return "=" + strconv.Itoa(int(l.Value)) }
func (l LabelRef) String() string { return "=" + l.Name }

type Width int

const (
	Word Width = iota
	Byte
	SignedByte
)

func (w Width) suffix() string {
	switch w {
	case Byte: return "B"
	case SignedByte: return "SB"
	}
	return ""
}

// Instr is one line of the text section.
type Instr interface {
	isInstr()
	String() string
}

type OpKind int

const (
	ADD OpKind = iota
	SUB
	RSB
	AND
	ORR
	EOR
)

var opNames = [...]string{"ADD", "SUB", "RSB", "AND", "ORR", "EOR"}

func (k OpKind) String() string { return opNames[k] }

// Op computes Rd = Rn <Kind> Op2.
type Op struct {
	Kind     OpKind
	Cond     Cond
	SetFlags bool
	Rd, Rn   Reg
	Op2      Operand
}

// Move is MOV, or MVN when Not is set.
type Move struct {
	Not      bool
	Cond     Cond
	SetFlags bool
	Rd       Reg
	Src      Operand
}

type Compare struct {
	Cond Cond
	Rn   Reg
	Op2  Operand
}

type Load struct {
	Cond  Cond
	Width Width
	Rd    Reg
	Addr  Address
}

type Store struct {
	Cond  Cond
	Width Width
	Rd    Reg
	Addr  Mem
}

type Push struct{ Regs []Reg }
type Pop struct{ Regs []Reg }

// Branch is B, or BL when Link is set.
type Branch struct {
	Cond   Cond
	Link   bool
	Target string
}

// LongMul is SMULL: Hi:Lo = Rm * Rs as a signed 64-bit product.
type LongMul struct{ Lo, Hi, Rm, Rs Reg }

type Label struct{ Name string }

// Ltorg flushes the literal pool.
type Ltorg struct{}

func (*Op) isInstr()      {}
func (*Move) isInstr()    {}
func (*Compare) isInstr() {}
func (*Load) isInstr()    {}
func (*Store) isInstr()   {}
func (*Push) isInstr()    {}
func (*Pop) isInstr()     {}
func (*Branch) isInstr()  {}
func (*LongMul) isInstr() {}
func (*Label) isInstr()   {}
func (*Ltorg) isInstr()   {}

func flags(set bool) string {
	if set { return "S" }
	return ""
}

func (o *Op) String() string {
	return fmt.Sprintf("\t%s%s%s %s, %s, %s", o.Kind, o.Cond, flags(o.SetFlags), o.Rd, o.Rn, o.Op2)
}

func (m *Move) String() string {
	name := "MOV"
	if m.Not {
		name = "MVN"
	}
	return fmt.Sprintf("\t%s%s%s %s, %s", name, m.Cond, flags(m.SetFlags), m.Rd, m.Src)
}

func (c *Compare) String() string { return fmt.Sprintf("\tCMP%s %s, %s", c.Cond, c.Rn, c.Op2) }
func (l *Load) String() string    { return fmt.Sprintf("\tLDR%s%s %s, %s", l.Cond, l.Width.suffix(), l.Rd, l.Addr) }
func (s *Store) String() string   { return fmt.Sprintf("\tSTR%s%s %s, %s", s.Cond, s.Width.suffix(), s.Rd, s.Addr) }
func (p *Push) String() string    { return "\tPUSH {" + regList(p.Regs) + "}" }
func (p *Pop) String() string     { return "\tPOP {" + regList(p.Regs) + "}" }
func (l *LongMul) String() string { return fmt.Sprintf("\tSMULL %s, %s, %s, %s", l.Lo, l.Hi, l.Rm, l.Rs) }
func (l *Label) String() string   { return l.Name + ":" }
func (*Ltorg) String() string     { return "\t.ltorg" }

func (b *Branch) String() string {
	name := "B"
	if b.Link {
		name = "BL"
	}
	return fmt.Sprintf("\t%s%s %s", name, b.Cond, b.Target)
}

func regList(regs []Reg) string {
	names := make([]string, len(regs))
	for i, r := range regs {
		names[i] = r.String()
	}
	return strings.Join(names, ", ")
}

// Data is one string constant: a length word followed by the bytes and a
// terminating NUL.
type Data struct {
	Label string
	Value string
}

type Func struct {
	Name string
	Body []Instr
}

type Program struct {
	Data  []*Data
	Funcs []*Func
	// Entry is the global symbol the program starts at.
	Entry string
}

func (p *Program) FindFunc(name string) *Func {
	for _, f := range p.Funcs {
		if f.Name == name { return f }
	}
	return nil
}

func (p *Program) FindData(label string) *Data {
	for _, d := range p.Data {
		if d.Label == label { return d }
	}
	return nil
}

// Externals are the C library and EABI symbols generated code may branch to
// without defining them.
var Externals = []string{
	"malloc", "free", "printf", "scanf", "puts", "putchar", "fflush", "exit",
	"__aeabi_idiv", "__aeabi_idivmod",
}

func IsExternal(name string) bool {
	for _, e := range Externals {
		if e == name { return true }
	}
	return false
}

// Escape renders s for an .ascii directive.
func Escape(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"': sb.WriteString(`\"`)
		case '\\': sb.WriteString(`\\`)
		case '\n': sb.WriteString(`\n`)
		case '\t': sb.WriteString(`\t`)
		case '\r': sb.WriteString(`\r`)
		case '\b': sb.WriteString(`\b`)
		case '\f': sb.WriteString(`\f`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&sb, `\%03o`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	return sb.String()
}
