package emu

import (
	"fmt"
	"io"
	"strings"

	"github.com/xplshn/gwacc/pkg/ir"
)

// callExternal runs a C library or EABI routine. Arguments arrive in r0-r3
// and the result is left in r0 (r0 and r1 for idivmod).
func (c *CPU) callExternal(name string) {
	r := &c.Regs
	switch name {
	case "malloc":
		r[ir.R0] = c.malloc(r[ir.R0])
	case "free":
		c.free(r[ir.R0])
	case "printf":
		r[ir.R0] = uint32(c.printf(c.ReadCString(r[ir.R0]), r[ir.R1], r[ir.R2], r[ir.R3]))
	case "scanf":
		r[ir.R0] = uint32(c.scanf(c.ReadCString(r[ir.R0]), r[ir.R1]))
	case "puts":
		fmt.Fprintln(c.outputSink(), c.ReadCString(r[ir.R0]))
	case "putchar":
		c.outputSink().Write([]byte{byte(r[ir.R0])})
	case "fflush":
		r[ir.R0] = 0
	case "exit":
		c.Halted = true
		c.ExitCode = int(r[ir.R0] & 0xFF)
	case "__aeabi_idiv":
		r[ir.R0] = uint32(c.divide(r[ir.R0], r[ir.R1], false))
	case "__aeabi_idivmod":
		q, m := c.divide(r[ir.R0], r[ir.R1], false), c.divide(r[ir.R0], r[ir.R1], true)
		r[ir.R0], r[ir.R1] = uint32(q), uint32(m)
	default:
		c.faultf("call to unknown external '%s'", name)
	}
}

func (c *CPU) divide(a, b uint32, mod bool) int32 {
	x, y := int32(a), int32(b)
	if y == 0 { c.faultf("integer division by zero") }
	if mod { return x % y }
	return x / y
}

// malloc is a bump allocator; freed blocks are not reused.
func (c *CPU) malloc(size uint32) uint32 {
	addr := c.heap
	next := align(addr+max(size, 1), 8)
	if next > MemSize-stackReserve || next < addr { c.faultf("out of memory allocating %d bytes", size) }
	clear(c.Memory[addr:next])
	c.heap = next
	c.allocs[addr] = size
	return addr
}

func (c *CPU) free(addr uint32) {
	if addr == 0 { return }
	if _, ok := c.allocs[addr]; !ok { c.faultf("free of unallocated pointer 0x%08x", addr) }
	delete(c.allocs, addr)
}

// Live reports the number of heap blocks not yet freed.
func (c *CPU) Live() int { return len(c.allocs) }

// printf supports the conversions generated code uses: %d %c %s %p %.*s.
func (c *CPU) printf(format string, args ...uint32) int {
	var sb strings.Builder
	next := func() uint32 {
		if len(args) == 0 { c.faultf("printf: too few arguments for %q", format) }
		v := args[0]
		args = args[1:]
		return v
	}

	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			sb.WriteByte(format[i])
			continue
		}
		i++
		if i >= len(format) { c.faultf("printf: dangling %% in %q", format) }
		switch {
		case format[i] == '%':
			sb.WriteByte('%')
		case format[i] == 'd':
			fmt.Fprintf(&sb, "%d", int32(next()))
		case format[i] == 'c':
			sb.WriteByte(byte(next()))
		case format[i] == 's':
			sb.WriteString(c.ReadCString(next()))
		case format[i] == 'p':
			if p := next(); p == 0 {
				sb.WriteString("(nil)")
			} else {
				fmt.Fprintf(&sb, "0x%x", p)
			}
		case strings.HasPrefix(format[i:], ".*s"):
			n, p := next(), next()
			for j := uint32(0); j < n; j++ {
				sb.WriteByte(c.ReadByte(p + j))
			}
			i += 2
		default:
			c.faultf("printf: unsupported conversion in %q", format)
		}
	}
	n, _ := io.WriteString(c.outputSink(), sb.String())
	return n
}

// scanf reads one value into dst. On a failed conversion dst is left as it
// was and 0 is returned.
func (c *CPU) scanf(format string, dst uint32) int {
	if c.Input == nil { return -1 }
	spec := strings.TrimSpace(format)
	if strings.HasPrefix(format, " ") || spec == "%d" {
		c.skipSpace()
	}

	switch spec {
	case "%d":
		var v int32
		if _, err := fmt.Fscan(c.Input, &v); err != nil { return 0 }
		c.Write32(dst, uint32(v))
	case "%c":
		b, err := c.Input.ReadByte()
		if err != nil { return -1 }
		c.WriteByte(dst, b)
	default:
		c.faultf("scanf: unsupported format %q", format)
	}
	return 1
}

func (c *CPU) skipSpace() {
	for {
		b, err := c.Input.ReadByte()
		if err != nil { return }
		if b != ' ' && b != '\n' && b != '\t' && b != '\r' {
			_ = c.Input.UnreadByte()
			return
		}
	}
}
