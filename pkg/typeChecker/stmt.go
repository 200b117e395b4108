package typeChecker

import (
	"fmt"

	"github.com/xplshn/gwacc/pkg/ast"
	"github.com/xplshn/gwacc/pkg/config"
	"github.com/xplshn/gwacc/pkg/scope"
	"github.com/xplshn/gwacc/pkg/token"
	"github.com/xplshn/gwacc/pkg/types"
)

// bodyChecker checks a single function body or the top-level statement. It
// only reads shared TypeChecker state, so several may run at once.
type bodyChecker struct {
	tc       *TypeChecker
	fn       *ast.Func
	class    *ast.Class
	ann      *annotations
	errs     []*Error
	warnings []*Warning
}

func (tc *TypeChecker) newBodyChecker(fn *ast.Func, class *ast.Class) *bodyChecker {
	return &bodyChecker{tc: tc, fn: fn, class: class, ann: newAnnotations()}
}

func (bc *bodyChecker) errorf(code Code, pos token.Pos, format string, args ...interface{}) {
	bc.errs = append(bc.errs, newError(code, pos, format, args...))
}

func (bc *bodyChecker) warn(w config.Warning, pos token.Pos, format string, args ...interface{}) {
	if !bc.tc.cfg.IsWarningEnabled(w) { return }
	bc.warnings = append(bc.warnings, &Warning{Kind: w, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

func (bc *bodyChecker) annotate(n ast.Node, t types.Type) { bc.ann.types[n] = t }

// checkFunc seeds the parameter scope (with `this` first for methods) and
// checks the body in a nested block.
func (bc *bodyChecker) checkFunc() {
	f := bc.fn
	bc.tc.validType(f.Type, f.Pos(), &bc.errs)

	params := scope.New(nil)
	if bc.class != nil {
		params, _ = params.Declare("this", types.NewClass(bc.class.Name))
	}
	for _, p := range f.Params {
		bc.tc.validType(p.Type, p.Pos(), &bc.errs)
		var ok bool
		if params, ok = params.Declare(p.Name, p.Type); !ok {
			bc.errorf(DuplicateDeclarationError, p.Pos(), "parameter `%s` is already declared", p.Name)
		}
	}

	bc.stmt(f.Body, scope.New(params))
	bc.checkEnd(f.Body)
}

func (bc *bodyChecker) checkProgram(s ast.Stmt) {
	bc.stmt(s, scope.New(nil))
	if bc.tc.cfg.IsFeatureEnabled(config.FeatProgramExit) {
		bc.checkEnd(s)
	}
}

// checkEnd is the structural completeness rule: the statement in final
// position must be a return or exit. if and while in final position always
// pass, whatever their branches do.
func (bc *bodyChecker) checkEnd(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.Compose:
		bc.checkEnd(s.Second)
	case *ast.Begin:
		bc.checkEnd(s.Body)
	case *ast.IfThenElse, *ast.WhileDo, *ast.Exit:
	case *ast.Return:
		if bc.fn == nil {
			bc.errorf(ProgramEndError, s.Pos(), "program must end with an `exit` statement")
		}
	default:
		if bc.fn != nil {
			bc.errorf(FunctionEndError, s.Pos(), "function `%s` must end with a `return` or `exit` statement", bc.fn.Name)
		} else {
			bc.errorf(ProgramEndError, s.Pos(), "program must end with an `exit` statement")
		}
	}
}

// stmt checks s and returns the scope in effect after it.
func (bc *bodyChecker) stmt(s ast.Stmt, sc *scope.Scope) *scope.Scope {
	switch s := s.(type) {
	case *ast.Skip:
		return sc

	case *ast.AssignNew:
		bc.tc.validType(s.Type, s.Pos(), &bc.errs)
		if rt := bc.rhs(s.Rhs, sc); !types.Matches(s.Type, rt) {
			bc.errs = append(bc.errs, mismatch(TypeMismatch, s.Rhs.Pos(), s.Type, rt))
		}
		next, ok := sc.Declare(s.Name, s.Type)
		if !ok {
			bc.errorf(DuplicateDeclarationError, s.Pos(), "`%s` is already declared in this scope", s.Name)
			return sc
		}
		if sc.Parent != nil {
			if _, shadowed := sc.Parent.Lookup(s.Name); shadowed {
				bc.warn(config.WarnShadow, s.Pos(), "declaration of `%s` shadows an outer variable", s.Name)
			}
		}
		return next

	case *ast.Assign:
		lt := bc.lhs(s.Lhs, sc)
		if rt := bc.rhs(s.Rhs, sc); !types.Matches(lt, rt) {
			bc.errs = append(bc.errs, mismatch(TypeMismatch, s.Rhs.Pos(), lt, rt))
		}
		return sc

	case *ast.Read:
		t := bc.lhs(s.Lhs, sc)
		if !types.Matches(t, types.Int) && !types.Matches(t, types.Char) {
			bc.errorf(ReadTypeMismatch, s.Pos(), "cannot read into a value of type `%s`, expected `int` or `char`", t)
		}
		bc.annotate(s, t)
		return sc

	case *ast.Free:
		t := bc.expr(s.Expr, sc)
		_, isClass := t.(*types.Class)
		if !isClass && !types.Matches(t, types.NewArray(types.Any)) && !types.Matches(t, types.AnyPair) {
			bc.errorf(FreeTypeMismatch, s.Pos(), "cannot free a value of type `%s`", t)
		}
		bc.annotate(s, t)
		return sc

	case *ast.Return:
		t := bc.expr(s.Expr, sc)
		if bc.fn == nil {
			bc.errorf(ReturnOutsideFuncError, s.Pos(), "cannot return from the main program")
		} else if !types.Matches(bc.fn.Type, t) {
			bc.errs = append(bc.errs, mismatch(ReturnTypeMismatch, s.Expr.Pos(), bc.fn.Type, t))
		}
		return sc

	case *ast.Exit:
		if t := bc.expr(s.Expr, sc); !types.Matches(t, types.Int) {
			bc.errs = append(bc.errs, mismatch(ExitTypeMismatch, s.Expr.Pos(), types.Int, t))
		}
		return sc

	case *ast.Print:
		bc.annotate(s, bc.expr(s.Expr, sc))
		return sc

	case *ast.Println:
		bc.annotate(s, bc.expr(s.Expr, sc))
		return sc

	case *ast.IfThenElse:
		bc.condition(s.Cond, sc)
		bc.stmt(s.Then, scope.New(sc))
		bc.stmt(s.Else, scope.New(sc))
		return sc

	case *ast.WhileDo:
		bc.condition(s.Cond, sc)
		bc.stmt(s.Body, scope.New(sc))
		return sc

	case *ast.Begin:
		bc.stmt(s.Body, scope.New(sc))
		return sc

	case *ast.Compose:
		next := bc.stmt(s.First, sc)
		switch ast.Last(s.First).(type) {
		case *ast.Return, *ast.Exit:
			bc.warn(config.WarnUnreachableCode, s.Second.Pos(), "statement is unreachable")
		}
		return bc.stmt(s.Second, next)
	}
	panic(fmt.Sprintf("typeChecker: unhandled statement %T", s))
}

func (bc *bodyChecker) condition(e ast.Expr, sc *scope.Scope) {
	if t := bc.expr(e, sc); !types.Matches(t, types.Bool) {
		bc.errs = append(bc.errs, mismatch(TypeMismatch, e.Pos(), types.Bool, t))
	}
}
