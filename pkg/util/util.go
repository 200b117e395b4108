// Package util prints compiler diagnostics in the file:line:col: form,
// colored when the destination is a terminal.
package util

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/xplshn/gwacc/pkg/token"
)

const (
	red    = "\033[31m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	reset  = "\033[0m"
)

// IsTerminal reports whether w writes to a terminal. NO_COLOR disables it.
func IsTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" { return false }
	f, ok := w.(*os.File)
	if !ok { return false }
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Reporter writes diagnostics for one input file and counts them.
type Reporter struct {
	w        io.Writer
	file     string
	color    bool
	errors   int
	warnings int
}

func NewReporter(w io.Writer, file string) *Reporter {
	return &Reporter{w: w, file: file, color: IsTerminal(w)}
}

func (r *Reporter) paint(color, s string) string {
	if !r.color { return s }
	return color + s + reset
}

func (r *Reporter) location(pos token.Pos) string {
	if pos.Line == 0 { return r.file }
	return fmt.Sprintf("%s:%d:%d", r.file, pos.Line, pos.Column)
}

// Error prints an error diagnostic at pos.
func (r *Reporter) Error(pos token.Pos, format string, args ...interface{}) {
	r.errors++
	fmt.Fprintf(r.w, "%s: %s %s\n", r.location(pos), r.paint(red, "error:"), fmt.Sprintf(format, args...))
}

// Warn prints a warning tagged with the -W switch that controls it.
func (r *Reporter) Warn(name string, pos token.Pos, format string, args ...interface{}) {
	r.warnings++
	fmt.Fprintf(r.w, "%s: %s %s [-W%s]\n", r.location(pos), r.paint(yellow, "warning:"), fmt.Sprintf(format, args...), name)
}

// Summary prints the totals, or nothing when the file was clean.
func (r *Reporter) Summary() {
	if r.errors == 0 && r.warnings == 0 { return }
	fmt.Fprintf(r.w, "%s: %d error(s), %d warning(s)\n", r.file, r.errors, r.warnings)
}

func (r *Reporter) Errors() int   { return r.errors }
func (r *Reporter) Warnings() int { return r.warnings }

// Info prints a progress line prefixed with the program name.
func Info(w io.Writer, format string, args ...interface{}) {
	prefix := "gwacc: info:"
	if IsTerminal(w) {
		prefix = "gwacc: " + cyan + "info:" + reset
	}
	fmt.Fprintf(w, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}
