package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xplshn/gwacc/pkg/config"
	"github.com/xplshn/gwacc/pkg/ir"
)

type armBackend struct {
	out  *strings.Builder
	prog *ir.Program
}

// NewARMBackend returns a backend printing GNU assembler source for ARMv6.
func NewARMBackend() Backend { return &armBackend{} }

func (b *armBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	if err := Verify(prog); err != nil { return nil, err }

	var sb strings.Builder
	b.out, b.prog = &sb, prog
	b.gen()
	return bytes.NewBufferString(sb.String()), nil
}

func (b *armBackend) gen() {
	if len(b.prog.Data) > 0 {
		b.out.WriteString(".data\n\n")
		for _, d := range b.prog.Data {
			fmt.Fprintf(b.out, "\t.align 2\n%s:\n\t.word %d\n\t.ascii \"%s\\000\"\n", d.Label, len(d.Value), ir.Escape(d.Value))
		}
		b.out.WriteString("\n")
	}

	b.out.WriteString(".text\n\n")
	if b.prog.Entry != "" {
		fmt.Fprintf(b.out, ".global %s\n", b.prog.Entry)
	}
	for _, fn := range b.prog.Funcs {
		b.genFunc(fn)
	}
}

func (b *armBackend) genFunc(fn *ir.Func) {
	fmt.Fprintf(b.out, "%s:\n", fn.Name)
	for _, instr := range fn.Body {
		b.out.WriteString(instr.String())
		b.out.WriteString("\n")
	}
	b.out.WriteString("\n")
}

// Verify checks that every label loaded or branched to is defined in prog
// or is a known external symbol.
func Verify(prog *ir.Program) error {
	defined := make(map[string]bool)
	for _, d := range prog.Data {
		defined[d.Label] = true
	}
	for _, fn := range prog.Funcs {
		if defined[fn.Name] { return fmt.Errorf("symbol '%s' is defined twice", fn.Name) }
		defined[fn.Name] = true
		for _, instr := range fn.Body {
			if l, ok := instr.(*ir.Label); ok {
				if defined[l.Name] { return fmt.Errorf("label '%s' is defined twice", l.Name) }
				defined[l.Name] = true
			}
		}
	}

	for _, fn := range prog.Funcs {
		for _, instr := range fn.Body {
			var target string
			switch instr := instr.(type) {
			case *ir.Branch:
				target = instr.Target
			case *ir.Load:
				if ref, ok := instr.Addr.(ir.LabelRef); ok {
					target = ref.Name
				}
			}
			if target == "" || defined[target] || ir.IsExternal(target) { continue }
			return fmt.Errorf("%s: undefined symbol '%s'", fn.Name, target)
		}
	}
	return nil
}
