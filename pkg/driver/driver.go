// Package driver runs the whole pipeline for one or more input files:
// decoding, include resolution, analysis, code generation and the
// compiled-output cache.
package driver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xplshn/gwacc/pkg/ast"
	"github.com/xplshn/gwacc/pkg/cache"
	"github.com/xplshn/gwacc/pkg/codegen"
	"github.com/xplshn/gwacc/pkg/config"
	"github.com/xplshn/gwacc/pkg/emu"
	"github.com/xplshn/gwacc/pkg/ir"
	"github.com/xplshn/gwacc/pkg/typeChecker"
	"github.com/xplshn/gwacc/pkg/util"
	"golang.org/x/sync/errgroup"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitSyntax   = 100
	ExitSemantic = 200
)

type Options struct {
	Config      *config.Config
	IncludeDirs []string
	// Cache is optional. Cached units carry no IR and no warnings.
	Cache *cache.Cache
}

// Unit is the outcome of compiling one input file.
type Unit struct {
	Path     string
	Asm      string
	Program  *ir.Program
	Errors   []*typeChecker.Error
	Warnings []*typeChecker.Warning
	Cached   bool
}

// ExitCode maps the analysis result to a process status. Syntax-class
// errors take precedence.
func (u *Unit) ExitCode() int {
	if len(u.Errors) == 0 { return ExitOK }
	if typeChecker.HasSyntaxErrors(u.Errors) { return ExitSyntax }
	return ExitSemantic
}

// ExitCode combines the statuses of several units.
func ExitCode(units []*Unit) int {
	code := ExitOK
	for _, u := range units {
		switch c := u.ExitCode(); {
		case c == ExitSyntax: return ExitSyntax
		case c != ExitOK: code = c
		}
	}
	return code
}

type loader struct {
	dirs    []string
	seen    map[string]bool
	sources bytes.Buffer
	libs    []*ast.Program
}

func readProgram(path string) (*ast.Program, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil { return nil, nil, fmt.Errorf("reading %s: %w", path, err) }
	prog, err := ast.Decode(bytes.NewReader(data))
	if err != nil { return nil, nil, fmt.Errorf("%s: %w", path, err) }
	return prog, data, nil
}

// resolve looks for name next to the including file, then in each include
// directory in order.
func (l *loader) resolve(from, name string) (string, error) {
	candidates := []string{filepath.Join(filepath.Dir(from), name)}
	for _, dir := range l.dirs {
		candidates = append(candidates, filepath.Join(dir, name))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil { return filepath.Clean(c), nil }
	}
	return "", fmt.Errorf("%s: could not find include '%s'", from, name)
}

// include loads a fragment and, before it, everything the fragment
// includes. Each file is loaded once.
func (l *loader) include(from, name string) error {
	path, err := l.resolve(from, name)
	if err != nil { return err }
	if l.seen[path] { return nil }
	l.seen[path] = true

	prog, data, err := readProgram(path)
	if err != nil { return err }
	for _, inc := range prog.Includes {
		if err := l.include(path, inc); err != nil { return err }
	}
	l.sources.Write(data)
	l.libs = append(l.libs, prog)
	return nil
}

// Load decodes the program at path with its includes merged in. The second
// result is the concatenated input of every file read, for cache keys.
func Load(path string, includeDirs []string) (*ast.Program, []byte, error) {
	prog, data, err := readProgram(path)
	if err != nil { return nil, nil, err }

	l := &loader{dirs: includeDirs, seen: map[string]bool{filepath.Clean(path): true}}
	for _, inc := range prog.Includes {
		if err := l.include(path, inc); err != nil { return nil, nil, err }
	}
	l.sources.Write(data)

	merged, err := ast.Merge(prog, l.libs...)
	if err != nil { return nil, nil, fmt.Errorf("%s: %w", path, err) }
	return merged, l.sources.Bytes(), nil
}

// Compile analyzes and lowers the program at path. Analysis errors are
// reported through the unit; the error result is for I/O and decoding.
func Compile(ctx context.Context, path string, opts Options) (*Unit, error) {
	cfg := opts.Config
	prog, sources, err := Load(path, opts.IncludeDirs)
	if err != nil { return nil, err }

	u := &Unit{Path: path}
	var key string
	if opts.Cache != nil {
		key = cache.Key(sources, cfg)
		asm, ok, err := opts.Cache.Get(ctx, key)
		if err != nil { return nil, err }
		if ok {
			u.Asm, u.Cached = asm, true
			return u, nil
		}
	}

	tc := typeChecker.NewTypeChecker(cfg)
	annotated, errs := tc.Check(prog)
	u.Errors, u.Warnings = errs, tc.Warnings()
	if len(errs) > 0 { return u, nil }

	u.Program = codegen.GenerateIR(annotated, cfg)
	buf, err := codegen.NewARMBackend().Generate(u.Program, cfg)
	if err != nil { return nil, fmt.Errorf("%s: %w", path, err) }
	u.Asm = buf.String()

	if opts.Cache != nil {
		if err := opts.Cache.Put(ctx, key, u.Asm); err != nil { return nil, err }
	}
	return u, nil
}

// CompileAll compiles paths concurrently, at most cfg.Jobs at a time. The
// units come back in input order.
func CompileAll(ctx context.Context, paths []string, opts Options) ([]*Unit, error) {
	units := make([]*Unit, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Config.Jobs)
	for i, path := range paths {
		g.Go(func() error {
			u, err := Compile(ctx, path, opts)
			units[i] = u
			return err
		})
	}
	if err := g.Wait(); err != nil { return nil, err }
	return units, nil
}

// Report prints the diagnostics of u, errors first.
func Report(w io.Writer, u *Unit, cfg *config.Config) {
	r := util.NewReporter(w, u.Path)
	for _, e := range u.Errors {
		class := "syntax"
		if e.Semantic() {
			class = "semantic"
		}
		r.Error(e.Pos, "%s error (%s): %s [%s]", class, e.Code.Category(), e.Msg, e.Code)
	}
	for _, wn := range u.Warnings {
		r.Warn(cfg.Warnings[wn.Kind].Name, wn.Pos, "%s", wn.Msg)
	}
	r.Summary()
}

// WriteAsm stores the assembly of u at path, or next to the input with an
// .s extension when path is empty.
func WriteAsm(u *Unit, path string) (string, error) {
	if path == "" {
		path = u.Path[:len(u.Path)-len(filepath.Ext(u.Path))] + ".s"
	}
	if err := os.WriteFile(path, []byte(u.Asm), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// Execute runs a freshly compiled unit in the emulator.
func Execute(u *Unit, stdin io.Reader, stdout io.Writer) (int, error) {
	if u.Program == nil { return 0, fmt.Errorf("%s: no generated program to run", u.Path) }
	if u.Program.Entry == "" { return 0, fmt.Errorf("%s: a library has no entry point", u.Path) }
	return emu.Run(u.Program, stdin, stdout)
}
