package codegen

import (
	"github.com/xplshn/gwacc/pkg/ir"
)

// builtin is one routine of the runtime support library. Generated code
// only branches to builtins; their bodies are appended once generation has
// finished, and only for the routines that are reachable.
type builtin int

const (
	printLn builtin = iota
	printString
	printInt
	printChar
	printBool
	printReference
	readInt
	readChar
	throwRuntimeError
	throwOverflowError
	checkArrayBounds
	checkNullPointer
	checkDivideByZero
	freePair
	freeInstance
	builtinCount
)

var builtinNames = [builtinCount]string{
	printLn:            "print_ln",
	printString:        "print_string",
	printInt:           "print_int",
	printChar:          "print_char",
	printBool:          "print_bool",
	printReference:     "print_reference",
	readInt:            "read_int",
	readChar:           "read_char",
	throwRuntimeError:  "throw_runtime_error",
	throwOverflowError: "throw_overflow_error",
	checkArrayBounds:   "check_array_bounds",
	checkNullPointer:   "check_null_pointer",
	checkDivideByZero:  "check_divide_by_zero",
	freePair:           "free_pair",
	freeInstance:       "free_instance",
}

func (b builtin) String() string { return builtinNames[b] }

type builtinString struct{ label, value string }

type builtinFunc struct {
	name    string
	calls   []builtin
	strings []builtinString
	body    []ir.Instr
}

var (
	lnString          = builtinString{"s_print_ln", ""}
	stringFormat      = builtinString{"s_print_string", "%.*s"}
	intFormat         = builtinString{"s_print_int", "%d"}
	referenceFormat   = builtinString{"s_print_reference", "%p"}
	trueString        = builtinString{"s_print_bool_true", "true"}
	falseString       = builtinString{"s_print_bool_false", "false"}
	readIntFormat     = builtinString{"s_read_int", "%d"}
	readCharFormat    = builtinString{"s_read_char", " %c"}
	overflowString    = builtinString{"s_overflow_error", "OverflowError: the result is too small/large to store in a 4-byte signed-integer.\n"}
	negativeIndex     = builtinString{"s_array_index_negative", "ArrayIndexOutOfBoundsError: negative index\n"}
	indexTooLarge     = builtinString{"s_array_index_too_large", "ArrayIndexOutOfBoundsError: index too large\n"}
	nullPointerString = builtinString{"s_null_reference", "NullReferenceError: dereference a null reference\n"}
	divideByZero      = builtinString{"s_divide_by_zero", "DivideByZeroError: divide or modulo by zero\n"}
)

func bl(target string) ir.Instr { return &ir.Branch{Link: true, Target: target} }

func blIf(cond ir.Cond, target string) ir.Instr {
	return &ir.Branch{Cond: cond, Link: true, Target: target}
}

// loadString points r0 at the bytes of s, past its length word.
func loadString(cond ir.Cond, s builtinString) []ir.Instr {
	return []ir.Instr{
		&ir.Load{Cond: cond, Rd: ir.R0, Addr: ir.LabelRef{Name: s.label}},
		&ir.Op{Kind: ir.ADD, Cond: cond, Rd: ir.R0, Rn: ir.R0, Op2: ir.Imm{Value: 4}},
	}
}

func withFrame(instrs ...[]ir.Instr) []ir.Instr {
	body := []ir.Instr{&ir.Push{Regs: []ir.Reg{ir.LR}}}
	for _, is := range instrs {
		body = append(body, is...)
	}
	return append(body, &ir.Pop{Regs: []ir.Reg{ir.PC}}, &ir.Ltorg{})
}

func flush() []ir.Instr {
	return []ir.Instr{&ir.Move{Rd: ir.R0, Src: ir.Imm{Value: 0}}, bl("fflush")}
}

// printfWith prints r0 with format after moving it into r1.
func printfWith(format builtinString) []ir.Instr {
	return withFrame(
		[]ir.Instr{&ir.Move{Rd: ir.R1, Src: ir.R0}},
		loadString(ir.AL, format),
		[]ir.Instr{bl("printf")},
		flush(),
	)
}

func scanfInto(format builtinString) []ir.Instr {
	return withFrame(
		[]ir.Instr{&ir.Move{Rd: ir.R1, Src: ir.R0}},
		loadString(ir.AL, format),
		[]ir.Instr{bl("scanf")},
	)
}

// trap raises the runtime error s when cond holds.
func trap(cond ir.Cond, s builtinString) []ir.Instr {
	return []ir.Instr{
		&ir.Load{Cond: cond, Rd: ir.R0, Addr: ir.LabelRef{Name: s.label}},
		blIf(cond, throwRuntimeError.String()),
	}
}

var catalogue = [builtinCount]builtinFunc{
	printLn: {
		strings: []builtinString{lnString},
		body:    withFrame(loadString(ir.AL, lnString), []ir.Instr{bl("puts")}, flush()),
	},
	printString: {
		strings: []builtinString{stringFormat},
		body: withFrame(
			[]ir.Instr{
				&ir.Load{Rd: ir.R1, Addr: ir.Mem{Base: ir.R0}},
				&ir.Op{Kind: ir.ADD, Rd: ir.R2, Rn: ir.R0, Op2: ir.Imm{Value: 4}},
			},
			loadString(ir.AL, stringFormat),
			[]ir.Instr{bl("printf")},
			flush(),
		),
	},
	printInt: {
		strings: []builtinString{intFormat},
		body:    printfWith(intFormat),
	},
	printChar: {
		body: withFrame([]ir.Instr{bl("putchar")}, flush()),
	},
	printBool: {
		strings: []builtinString{trueString, falseString},
		body: withFrame(
			[]ir.Instr{&ir.Compare{Rn: ir.R0, Op2: ir.Imm{Value: 0}}},
			loadString(ir.NE, trueString),
			loadString(ir.EQ, falseString),
			[]ir.Instr{bl("printf")},
			flush(),
		),
	},
	printReference: {
		strings: []builtinString{referenceFormat},
		body:    printfWith(referenceFormat),
	},
	readInt: {
		strings: []builtinString{readIntFormat},
		body:    scanfInto(readIntFormat),
	},
	readChar: {
		strings: []builtinString{readCharFormat},
		body:    scanfInto(readCharFormat),
	},
	throwRuntimeError: {
		calls: []builtin{printString},
		body: []ir.Instr{
			bl(printString.String()),
			&ir.Load{Rd: ir.R0, Addr: ir.Literal{Value: -1}},
			bl("exit"),
			&ir.Ltorg{},
		},
	},
	throwOverflowError: {
		calls:   []builtin{throwRuntimeError},
		strings: []builtinString{overflowString},
		body: []ir.Instr{
			&ir.Load{Rd: ir.R0, Addr: ir.LabelRef{Name: overflowString.label}},
			bl(throwRuntimeError.String()),
			&ir.Ltorg{},
		},
	},
	// r0 is the index, r1 the array.
	checkArrayBounds: {
		calls:   []builtin{throwRuntimeError},
		strings: []builtinString{negativeIndex, indexTooLarge},
		body: withFrame(
			[]ir.Instr{&ir.Compare{Rn: ir.R0, Op2: ir.Imm{Value: 0}}},
			trap(ir.LT, negativeIndex),
			[]ir.Instr{
				&ir.Load{Rd: ir.R1, Addr: ir.Mem{Base: ir.R1}},
				&ir.Compare{Rn: ir.R0, Op2: ir.R1},
			},
			trap(ir.CS, indexTooLarge),
		),
	},
	checkNullPointer: {
		calls:   []builtin{throwRuntimeError},
		strings: []builtinString{nullPointerString},
		body: withFrame(
			[]ir.Instr{&ir.Compare{Rn: ir.R0, Op2: ir.Imm{Value: 0}}},
			trap(ir.EQ, nullPointerString),
		),
	},
	// r1 is the divisor.
	checkDivideByZero: {
		calls:   []builtin{throwRuntimeError},
		strings: []builtinString{divideByZero},
		body: withFrame(
			[]ir.Instr{&ir.Compare{Rn: ir.R1, Op2: ir.Imm{Value: 0}}},
			trap(ir.EQ, divideByZero),
		),
	},
	freePair: {
		calls:   []builtin{throwRuntimeError},
		strings: []builtinString{nullPointerString},
		body: withFrame(
			[]ir.Instr{&ir.Compare{Rn: ir.R0, Op2: ir.Imm{Value: 0}}},
			trap(ir.EQ, nullPointerString),
			[]ir.Instr{
				&ir.Push{Regs: []ir.Reg{ir.R0}},
				&ir.Load{Rd: ir.R0, Addr: ir.Mem{Base: ir.R0}},
				bl("free"),
				&ir.Load{Rd: ir.R0, Addr: ir.Mem{Base: ir.SP}},
				&ir.Load{Rd: ir.R0, Addr: ir.Mem{Base: ir.R0, Offset: 4}},
				bl("free"),
				&ir.Pop{Regs: []ir.Reg{ir.R0}},
				bl("free"),
			},
		),
	},
	freeInstance: {
		calls:   []builtin{throwRuntimeError},
		strings: []builtinString{nullPointerString},
		body: withFrame(
			[]ir.Instr{&ir.Compare{Rn: ir.R0, Op2: ir.Imm{Value: 0}}},
			trap(ir.EQ, nullPointerString),
			[]ir.Instr{bl("free")},
		),
	},
}

func init() {
	for b := range catalogue {
		catalogue[b].name = builtin(b).String()
	}
}

// Closure returns every builtin reachable from seeds, in catalogue order.
func Closure(seeds []builtin) []builtin {
	seen := make(map[builtin]bool, len(seeds))
	queue := append([]builtin(nil), seeds...)
	for _, s := range seeds {
		seen[s] = true
	}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		for _, dep := range catalogue[b].calls {
			if !seen[dep] {
				seen[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	var out []builtin
	for b := builtin(0); b < builtinCount; b++ {
		if seen[b] {
			out = append(out, b)
		}
	}
	return out
}
