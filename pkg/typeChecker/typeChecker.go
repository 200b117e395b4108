package typeChecker

import (
	"sort"

	"github.com/xplshn/gwacc/pkg/ast"
	"github.com/xplshn/gwacc/pkg/config"
	"github.com/xplshn/gwacc/pkg/scope"
	"github.com/xplshn/gwacc/pkg/token"
	"github.com/xplshn/gwacc/pkg/types"
	"golang.org/x/sync/errgroup"
)

type funcKey struct{ class, name string }

type TypeChecker struct {
	cfg       *config.Config
	prog      *ast.Program
	classes   map[string]*ast.Class
	buckets   map[funcKey][]*ast.Func
	overloads map[*ast.Func]int
	owners    map[*ast.Func]*ast.Class
	errs      []*Error
	warnings  []*Warning
}

func NewTypeChecker(cfg *config.Config) *TypeChecker {
	return &TypeChecker{
		cfg:       cfg,
		classes:   make(map[string]*ast.Class),
		buckets:   make(map[funcKey][]*ast.Func),
		overloads: make(map[*ast.Func]int),
		owners:    make(map[*ast.Func]*ast.Class),
	}
}

// Check analyzes prog. The annotated program is returned only when the
// sorted error list is empty.
func (tc *TypeChecker) Check(prog *ast.Program) (*AnnotatedProgram, []*Error) {
	tc.prog = prog
	tc.register()

	tasks := tc.bodyTasks()
	results := make([]*bodyChecker, len(tasks))

	var g errgroup.Group
	g.SetLimit(tc.cfg.Jobs)
	for i, task := range tasks {
		g.Go(func() error {
			results[i] = task()
			return nil
		})
	}
	_ = g.Wait()

	ann := newAnnotations()
	for _, bc := range results {
		tc.errs = append(tc.errs, bc.errs...)
		tc.warnings = append(tc.warnings, bc.warnings...)
		ann.merge(bc.ann)
	}
	tc.warnUnused(ann)

	SortErrors(tc.errs)
	sortWarnings(tc.warnings)
	if len(tc.errs) > 0 {
		return nil, tc.errs
	}
	return &AnnotatedProgram{Program: prog, ann: ann, overloads: tc.overloads, owners: tc.owners}, nil
}

// Warnings returns the enabled warnings collected by the last Check.
func (tc *TypeChecker) Warnings() []*Warning { return tc.warnings }

func (tc *TypeChecker) errorf(code Code, pos token.Pos, format string, args ...interface{}) {
	tc.errs = append(tc.errs, newError(code, pos, format, args...))
}

// register buckets classes and functions and assigns overload indices. It
// runs before any body is checked since calls need the indices.
func (tc *TypeChecker) register() {
	for _, c := range tc.prog.Classes {
		if !tc.cfg.IsFeatureEnabled(config.FeatClasses) {
			tc.errorf(FeatureDisabled, c.Pos(), "class `%s` declared while classes are disabled", c.Name)
		}
		if prev, ok := tc.classes[c.Name]; ok {
			tc.errorf(ClassRedefinition, c.Pos(), "class `%s` is already defined at %s", c.Name, prev.Pos())
			continue
		}
		tc.classes[c.Name] = c
	}

	for _, c := range tc.prog.Classes {
		seen := scope.New(nil)
		for _, f := range c.Fields {
			tc.validType(f.Type, f.Pos(), &tc.errs)
			var ok bool
			if seen, ok = seen.Declare(f.Name, f.Type); !ok {
				tc.errorf(DuplicateDeclarationError, f.Pos(), "field `%s` is already declared in class `%s`", f.Name, c.Name)
			}
		}
		for _, f := range c.Funcs {
			tc.owners[f] = c
			tc.registerFunc(funcKey{c.Name, f.Name}, f)
		}
	}

	for _, f := range tc.prog.Funcs {
		tc.registerFunc(funcKey{"", f.Name}, f)
	}
}

func (tc *TypeChecker) registerFunc(key funcKey, f *ast.Func) {
	bucket := tc.buckets[key]
	for i, other := range bucket {
		if sameSignature(f, other) {
			tc.errorf(FunctionRedefinition, f.Pos(), "function `%s` is already defined with matching parameters at %s", f.Name, other.Pos())
			tc.overloads[f] = i
			return
		}
	}
	tc.overloads[f] = len(bucket)
	tc.buckets[key] = append(bucket, f)
}

func sameSignature(a, b *ast.Func) bool {
	if len(a.Params) != len(b.Params) { return false }
	for i := range a.Params {
		if !types.Matches(a.Params[i].Type, b.Params[i].Type) { return false }
	}
	return true
}

// validType reports class names that were never declared.
func (tc *TypeChecker) validType(t types.Type, pos token.Pos, errs *[]*Error) {
	switch t := t.(type) {
	case *types.Array:
		tc.validType(t.Elem, pos, errs)
	case *types.Pair:
		tc.validType(t.First, pos, errs)
		tc.validType(t.Second, pos, errs)
	case *types.Class:
		if _, ok := tc.classes[t.Name]; !ok {
			*errs = append(*errs, newError(ClassNotFoundError, pos, "class `%s` is not declared", t.Name))
		}
	}
}

// bodyTasks returns one independent check per function, method and the
// top-level statement.
func (tc *TypeChecker) bodyTasks() []func() *bodyChecker {
	var tasks []func() *bodyChecker
	add := func(f *ast.Func, c *ast.Class) {
		tasks = append(tasks, func() *bodyChecker {
			bc := tc.newBodyChecker(f, c)
			bc.checkFunc()
			return bc
		})
	}
	for _, c := range tc.prog.Classes {
		for _, f := range c.Funcs {
			add(f, c)
		}
	}
	for _, f := range tc.prog.Funcs {
		add(f, nil)
	}
	if tc.prog.Stmt != nil {
		tasks = append(tasks, func() *bodyChecker {
			bc := tc.newBodyChecker(nil, nil)
			bc.checkProgram(tc.prog.Stmt)
			return bc
		})
	}
	return tasks
}

func (tc *TypeChecker) warnUnused(ann *annotations) {
	if !tc.cfg.IsWarningEnabled(config.WarnUnusedFunc) { return }
	called := make(map[*ast.Func]bool)
	for _, target := range ann.calls {
		called[target.Func] = true
	}
	for _, f := range tc.prog.Funcs {
		if !called[f] {
			tc.warnings = append(tc.warnings, &Warning{config.WarnUnusedFunc, f.Pos(), "function `" + f.Name + "` is never called"})
		}
	}
}

func sortWarnings(ws []*Warning) {
	sort.SliceStable(ws, func(i, j int) bool { return ws[i].Pos.Before(ws[j].Pos) })
}
