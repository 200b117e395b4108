package util

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/gwacc/pkg/token"
)

func TestReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, "prog.json")
	r.Error(token.Pos{Line: 3, Column: 7}, "variable `%s` is not declared", "x")
	r.Warn("shadow", token.Pos{Line: 4, Column: 1}, "declaration of `y` shadows an outer variable")
	r.Error(token.Pos{}, "no main program")
	r.Summary()

	want := "prog.json:3:7: error: variable `x` is not declared\n" +
		"prog.json:4:1: warning: declaration of `y` shadows an outer variable [-Wshadow]\n" +
		"prog.json: error: no main program\n" +
		"prog.json: 2 error(s), 1 warning(s)\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if r.Errors() != 2 || r.Warnings() != 1 {
		t.Errorf("counts = %d, %d", r.Errors(), r.Warnings())
	}
}

func TestCleanSummaryIsSilent(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf, "ok.json").Summary()
	if buf.Len() != 0 {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestInfo(t *testing.T) {
	var buf bytes.Buffer
	Info(&buf, "wrote %d bytes", 12)
	if got := buf.String(); got != "gwacc: info: wrote 12 bytes\n" {
		t.Errorf("Info wrote %q", got)
	}
}
