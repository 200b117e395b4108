package codegen

import (
	"fmt"
	"strconv"

	"github.com/xplshn/gwacc/pkg/config"
	"github.com/xplshn/gwacc/pkg/ir"
	"github.com/xplshn/gwacc/pkg/typeChecker"
)

// session is the mutable state shared by everything generated for one
// program. Generation is single-threaded, so none of it is synchronized.
type session struct {
	prog     *typeChecker.AnnotatedProgram
	cfg      *config.Config
	labels   int
	strings  []string
	interned map[string]int
	used     map[builtin]bool
	out      []ir.Instr
}

func newSession(prog *typeChecker.AnnotatedProgram, cfg *config.Config) *session {
	return &session{
		prog:     prog,
		cfg:      cfg,
		interned: make(map[string]int),
		used:     make(map[builtin]bool),
	}
}

// newLabel hands out L0, L1, ... in order. Labels are never reused.
func (s *session) newLabel() string {
	l := "L" + strconv.Itoa(s.labels)
	s.labels++
	return l
}

// stringLabel interns v, so identical literals share one data entry.
func (s *session) stringLabel(v string) string {
	idx, ok := s.interned[v]
	if !ok {
		idx = len(s.strings)
		s.interned[v] = idx
		s.strings = append(s.strings, v)
	}
	return fmt.Sprintf("msg_%d", idx)
}

func (s *session) use(b builtin) string {
	s.used[b] = true
	return b.String()
}

func (s *session) usedBuiltins() []builtin {
	var seeds []builtin
	for b := builtin(0); b < builtinCount; b++ {
		if s.used[b] {
			seeds = append(seeds, b)
		}
	}
	return seeds
}

func (s *session) emit(instrs ...ir.Instr) { s.out = append(s.out, instrs...) }

// take returns the instructions emitted since the last call.
func (s *session) take() []ir.Instr {
	out := s.out
	s.out = nil
	return out
}

func (s *session) overflowChecks() bool { return s.cfg.IsFeatureEnabled(config.FeatOverflowChecks) }
