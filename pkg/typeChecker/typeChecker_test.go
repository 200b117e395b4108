package typeChecker

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/gwacc/pkg/ast"
	"github.com/xplshn/gwacc/pkg/config"
	"github.com/xplshn/gwacc/pkg/token"
	"github.com/xplshn/gwacc/pkg/types"
)

func at(line, col int) token.Pos { return token.Pos{Line: line, Column: col} }

func num(v int64) *ast.IntLiteral { return &ast.IntLiteral{Value: v} }
func id(name string) *ast.Ident   { return &ast.Ident{Name: name} }

func decl(t types.Type, name string, rhs ast.AssignRhs) *ast.AssignNew {
	return &ast.AssignNew{Type: t, Name: name, Rhs: rhs}
}

func fn(name string, ret types.Type, body ast.Stmt, params ...*ast.Param) *ast.Func {
	return &ast.Func{Name: name, Type: ret, Params: params, Body: body}
}

func param(name string, t types.Type) *ast.Param { return &ast.Param{Name: name, Type: t} }

func exit0() ast.Stmt { return &ast.Exit{Expr: num(0)} }

func check(prog *ast.Program) (*AnnotatedProgram, []*Error) {
	return NewTypeChecker(config.NewConfig()).Check(prog)
}

func codes(errs []*Error) []Code {
	var out []Code
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func expectCodes(t *testing.T, errs []*Error, want ...Code) {
	t.Helper()
	if diff := cmp.Diff(want, codes(errs)); diff != "" {
		t.Errorf("error codes mismatch (-want +got):\n%s\nerrors: %v", diff, errs)
	}
}

func TestWellTypedProgramIsAnnotated(t *testing.T) {
	printStmt := &ast.Println{Expr: &ast.ArrayElem{Name: "a", Indices: []ast.Expr{num(1)}}}
	readStmt := &ast.Read{Lhs: id("c")}
	fstElem := &ast.PairElem{Accessor: ast.Fst, Expr: id("p")}
	newPair := &ast.NewPair{First: num(1), Second: &ast.CharLiteral{Value: 'x'}}
	arrLit := &ast.ArrayLiteral{Elems: []ast.Expr{num(1), num(2)}}
	call := &ast.Call{Name: "inc", Args: []ast.Expr{id("q")}}

	inc := fn("inc", types.Int, &ast.Return{Expr: &ast.BinaryOp{Op: token.Plus, Left: id("x"), Right: num(1)}}, param("x", types.Int))
	prog := &ast.Program{
		Funcs: []*ast.Func{inc},
		Stmt: ast.Seq(
			decl(types.NewArray(types.Int), "a", arrLit),
			decl(types.Char, "c", &ast.CharLiteral{Value: 'a'}),
			decl(types.NewPair(types.Int, types.Char), "p", newPair),
			decl(types.Int, "q", fstElem),
			decl(types.Int, "r", call),
			printStmt,
			readStmt,
			&ast.WhileDo{Cond: &ast.BinaryOp{Op: token.Lt, Left: id("r"), Right: num(10)},
				Body: &ast.Assign{Lhs: id("r"), Rhs: &ast.BinaryOp{Op: token.Plus, Left: id("r"), Right: num(1)}}},
			exit0(),
		),
	}

	annotated, errs := check(prog)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got := annotated.TypeOf(printStmt); got != types.Int {
		t.Errorf("println annotated with %v, want int", got)
	}
	if got := annotated.TypeOf(readStmt); got != types.Char {
		t.Errorf("read annotated with %v, want char", got)
	}
	if got := annotated.TypeOf(fstElem); got != types.Int {
		t.Errorf("fst annotated with %v, want int", got)
	}
	if got := annotated.TypeOf(arrLit); got != types.Int {
		t.Errorf("array literal element annotated with %v, want int", got)
	}
	if f, s := annotated.PairElemTypes(newPair); f != types.Int || s != types.Char {
		t.Errorf("newpair annotated with %v, %v", f, s)
	}
	if target := annotated.CallTarget(call); target.Func != inc || target.Overload != 0 || target.Class != nil {
		t.Errorf("call resolved to %+v", target)
	}
}

func TestMissingAnnotationPanics(t *testing.T) {
	annotated, errs := check(&ast.Program{Stmt: exit0()})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	defer func() {
		if recover() == nil {
			t.Error("TypeOf on an unannotated node should panic")
		}
	}()
	annotated.TypeOf(&ast.Print{Expr: num(1)})
}

func TestOverloadBucketing(t *testing.T) {
	ret := func() ast.Stmt { return &ast.Return{Expr: num(0)} }
	f0 := fn("f", types.Int, ret(), param("x", types.Int))
	f1 := fn("f", types.Int, ret(), param("x", types.Char))
	f2 := fn("f", types.Int, ret(), param("x", types.Int), param("y", types.Int))
	dup := fn("f", types.Int, ret(), param("y", types.Int))
	dup.At = at(9, 0)

	tc := NewTypeChecker(config.NewConfig())
	_, errs := tc.Check(&ast.Program{Funcs: []*ast.Func{f0, f1, f2, dup}, Stmt: exit0()})
	expectCodes(t, errs, FunctionRedefinition)
	if errs[0].Pos != at(9, 0) {
		t.Errorf("redefinition reported at %v", errs[0].Pos)
	}
	got := []int{tc.overloads[f0], tc.overloads[f1], tc.overloads[f2]}
	if diff := cmp.Diff([]int{0, 1, 2}, got); diff != "" {
		t.Errorf("overload indices mismatch (-want +got):\n%s", diff)
	}

	// Arity differences never collide, even through Any-typed parameters.
	g0 := fn("g", types.Int, ret(), param("a", types.NewArray(types.Any)))
	g1 := fn("g", types.Int, ret(), param("a", types.NewArray(types.Int)), param("b", types.Int))
	_, errs = check(&ast.Program{Funcs: []*ast.Func{g0, g1}, Stmt: exit0()})
	expectCodes(t, errs)
}

func TestFirstMatchOverloadResolution(t *testing.T) {
	ret := func(v int64) ast.Stmt { return &ast.Return{Expr: num(v)} }
	byChar := fn("pick", types.Int, ret(1), param("x", types.Char))
	byInt := fn("pick", types.Int, ret(2), param("x", types.Int))
	callChar := &ast.Call{Name: "pick", Args: []ast.Expr{&ast.CharLiteral{Value: 'c'}}}
	callInt := &ast.Call{Name: "pick", Args: []ast.Expr{num(3)}}
	missing := &ast.Call{Name: "pick", Args: []ast.Expr{&ast.BoolLiteral{Value: true}}}

	prog := &ast.Program{
		Funcs: []*ast.Func{byChar, byInt},
		Stmt: ast.Seq(
			decl(types.Int, "a", callChar),
			decl(types.Int, "b", callInt),
			exit0(),
		),
	}
	annotated, errs := check(prog)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if annotated.CallTarget(callChar).Overload != 0 || annotated.CallTarget(callInt).Overload != 1 {
		t.Errorf("calls resolved to the wrong overloads")
	}

	prog.Stmt = ast.Seq(decl(types.Int, "c", missing), exit0())
	_, errs = check(prog)
	expectCodes(t, errs, FunctionNotFoundError)
	if !strings.Contains(errs[0].Msg, "pick") || !strings.Contains(errs[0].Msg, "bool") {
		t.Errorf("unhelpful message: %s", errs[0].Msg)
	}
}

func TestDuplicateDeclarationAndShadowing(t *testing.T) {
	dup := ast.Seq(
		decl(types.Int, "x", num(1)),
		&ast.AssignNew{At: at(2, 0), Type: types.Int, Name: "x", Rhs: num(2)},
		exit0(),
	)
	_, errs := check(&ast.Program{Stmt: dup})
	expectCodes(t, errs, DuplicateDeclarationError)
	if errs[0].Pos != at(2, 0) {
		t.Errorf("duplicate reported at %v", errs[0].Pos)
	}

	shadow := ast.Seq(
		decl(types.Int, "x", num(1)),
		&ast.Begin{Body: decl(types.Int, "x", num(2))},
		exit0(),
	)
	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnShadow, true)
	tc := NewTypeChecker(cfg)
	if _, errs := tc.Check(&ast.Program{Stmt: shadow}); len(errs) != 0 {
		t.Errorf("shadowing should be allowed, got %v", errs)
	}
	if len(tc.Warnings()) != 1 || tc.Warnings()[0].Kind != config.WarnShadow {
		t.Errorf("expected one shadow warning, got %v", tc.Warnings())
	}
}

func TestDuplicateKeepsFirstBinding(t *testing.T) {
	// After a rejected redeclaration the original type stays in effect.
	prog := &ast.Program{Stmt: ast.Seq(
		decl(types.Int, "x", num(1)),
		decl(types.Bool, "x", &ast.BoolLiteral{Value: true}),
		&ast.Exit{Expr: id("x")},
	)}
	_, errs := check(prog)
	expectCodes(t, errs, DuplicateDeclarationError)
}

func TestExitOnlyProgram(t *testing.T) {
	if _, errs := check(&ast.Program{Stmt: &ast.Exit{Expr: num(5)}}); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestFunctionEnd(t *testing.T) {
	skipOnly := fn("f", types.Int, &ast.Skip{At: at(2, 2)})
	_, errs := check(&ast.Program{Funcs: []*ast.Func{skipOnly}, Stmt: exit0()})
	expectCodes(t, errs, FunctionEndError)
	if errs[0].Semantic() || !strings.Contains(errs[0].Msg, "`f`") {
		t.Errorf("unexpected error %v", errs[0])
	}

	returns := fn("f", types.Int, ast.Seq(&ast.Skip{}, &ast.Return{Expr: num(0)}))
	if _, errs := check(&ast.Program{Funcs: []*ast.Func{returns}, Stmt: exit0()}); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}

	exits := fn("f", types.Int, &ast.Begin{Body: &ast.Exit{Expr: num(1)}})
	if _, errs := check(&ast.Program{Funcs: []*ast.Func{exits}, Stmt: exit0()}); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestIfAndWhileInFinalPositionSatisfyCompleteness(t *testing.T) {
	// Neither branch returns, yet the rule is structural and accepts it.
	ifSkip := fn("f", types.Int, &ast.IfThenElse{Cond: &ast.BoolLiteral{Value: true}, Then: &ast.Skip{}, Else: &ast.Skip{}})
	whileSkip := fn("g", types.Int, &ast.WhileDo{Cond: &ast.BoolLiteral{Value: false}, Body: &ast.Skip{}})
	prog := &ast.Program{
		Funcs: []*ast.Func{ifSkip, whileSkip},
		Stmt:  &ast.IfThenElse{Cond: &ast.BoolLiteral{Value: true}, Then: &ast.Skip{}, Else: &ast.Skip{}},
	}
	if _, errs := check(prog); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestProgramEnd(t *testing.T) {
	prog := &ast.Program{Stmt: &ast.Println{Expr: &ast.StringLiteral{Value: "hi"}}}
	_, errs := check(prog)
	expectCodes(t, errs, ProgramEndError)

	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatProgramExit, false)
	if _, errs := NewTypeChecker(cfg).Check(prog); len(errs) != 0 {
		t.Errorf("program-exit disabled, got %v", errs)
	}

	_, errs = check(&ast.Program{Stmt: &ast.Return{Expr: num(1)}})
	expectCodes(t, errs, ProgramEndError, ReturnOutsideFuncError)
}

func TestStatementTypeErrors(t *testing.T) {
	tests := []struct {
		name string
		stmt ast.Stmt
		want []Code
	}{
		{"read bool", ast.Seq(decl(types.Bool, "b", &ast.BoolLiteral{}), &ast.Read{Lhs: id("b")}, exit0()), []Code{ReadTypeMismatch}},
		{"free int", ast.Seq(decl(types.Int, "i", num(1)), &ast.Free{Expr: id("i")}, exit0()), []Code{FreeTypeMismatch}},
		{"free null", ast.Seq(&ast.Free{Expr: &ast.PairLiteral{}}, exit0()), nil},
		{"exit char", &ast.Exit{Expr: &ast.CharLiteral{Value: 'a'}}, []Code{ExitTypeMismatch}},
		{"if int", ast.Seq(&ast.IfThenElse{Cond: num(1), Then: &ast.Skip{}, Else: &ast.Skip{}}, exit0()), []Code{TypeMismatch}},
		{"while string", ast.Seq(&ast.WhileDo{Cond: &ast.StringLiteral{}, Body: &ast.Skip{}}, exit0()), []Code{TypeMismatch}},
		{"assign mismatch", ast.Seq(decl(types.Int, "i", num(1)), &ast.Assign{Lhs: id("i"), Rhs: &ast.CharLiteral{}}, exit0()), []Code{TypeMismatch}},
		{"declare mismatch", ast.Seq(decl(types.String, "s", num(1)), exit0()), []Code{TypeMismatch}},
		{"unknown ident", ast.Seq(&ast.Println{Expr: id("ghost")}, exit0()), []Code{IdentNotFoundError}},
		{"too big", ast.Seq(decl(types.Int, "i", num(1<<31)), exit0()), []Code{IntTooBig}},
		{"min int fits", ast.Seq(decl(types.Int, "i", num(-1<<31)), exit0()), nil},
		{"too small", ast.Seq(decl(types.Int, "i", num(-1<<31-1)), exit0()), []Code{IntTooBig}},
		{"saturated", ast.Seq(decl(types.Int, "i", num(math.MaxInt64)), exit0()), []Code{IntTooBig}},
		{"unknown class", ast.Seq(decl(types.NewClass("Ghost"), "g", &ast.PairLiteral{}), exit0()), []Code{ClassNotFoundError, TypeMismatch}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := check(&ast.Program{Stmt: tt.stmt})
			expectCodes(t, errs, tt.want...)
		})
	}
}

func TestReturnTypes(t *testing.T) {
	bad := fn("f", types.Int, &ast.Return{Expr: &ast.BoolLiteral{Value: true}})
	_, errs := check(&ast.Program{Funcs: []*ast.Func{bad}, Stmt: exit0()})
	expectCodes(t, errs, ReturnTypeMismatch)

	dupParams := fn("g", types.Int, &ast.Return{Expr: id("x")}, param("x", types.Int), param("x", types.Char))
	_, errs = check(&ast.Program{Funcs: []*ast.Func{dupParams}, Stmt: exit0()})
	expectCodes(t, errs, DuplicateDeclarationError)
}

func TestExpressionErrors(t *testing.T) {
	tests := []struct {
		name string
		expr ast.Expr
		want []Code
	}{
		{"neg bool", &ast.UnaryOp{Op: token.Negate, Expr: &ast.BoolLiteral{}}, []Code{UnaryOpInvalidType}},
		{"len int", &ast.UnaryOp{Op: token.Len, Expr: num(1)}, []Code{UnaryOpInvalidType}},
		{"len array", &ast.UnaryOp{Op: token.Len, Expr: id("arr")}, nil},
		{"ord char", &ast.UnaryOp{Op: token.Ord, Expr: &ast.CharLiteral{}}, nil},
		{"add bools", &ast.BinaryOp{Op: token.Plus, Left: &ast.BoolLiteral{}, Right: &ast.BoolLiteral{}}, []Code{BinaryOpInvalidType}},
		{"add int bool", &ast.BinaryOp{Op: token.Plus, Left: num(1), Right: &ast.BoolLiteral{Value: true}}, []Code{BinaryArgsMismatch}},
		{"add bool int", &ast.BinaryOp{Op: token.Plus, Left: &ast.BoolLiteral{Value: true}, Right: num(1)}, []Code{BinaryOpInvalidType, BinaryArgsMismatch}},
		{"compare bools", &ast.BinaryOp{Op: token.Gt, Left: &ast.BoolLiteral{}, Right: &ast.BoolLiteral{}}, []Code{BinaryOpInvalidType}},
		{"compare int char", &ast.BinaryOp{Op: token.Lt, Left: num(1), Right: &ast.CharLiteral{}}, []Code{BinaryArgsMismatch}},
		{"equal arrays", &ast.BinaryOp{Op: token.EqEq, Left: id("arr"), Right: id("arr")}, nil},
		{"equal null pair", &ast.BinaryOp{Op: token.EqEq, Left: id("p"), Right: &ast.PairLiteral{}}, nil},
		{"index too deep", &ast.ArrayElem{Name: "arr", Indices: []ast.Expr{num(0), num(0)}}, []Code{TypeMismatch}},
		{"index by char", &ast.ArrayElem{Name: "arr", Indices: []ast.Expr{&ast.CharLiteral{}}}, []Code{TypeMismatch}},
		{"unknown in operand", &ast.BinaryOp{Op: token.Plus, Left: id("ghost"), Right: num(1)}, []Code{IdentNotFoundError}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := &ast.Program{Stmt: ast.Seq(
				decl(types.NewArray(types.Int), "arr", &ast.ArrayLiteral{}),
				decl(types.NewPair(types.Int, types.Int), "p", &ast.PairLiteral{}),
				&ast.Println{Expr: tt.expr},
				exit0(),
			)}
			_, errs := check(prog)
			expectCodes(t, errs, tt.want...)
		})
	}
}

func TestPairDereferenceNull(t *testing.T) {
	prog := &ast.Program{Stmt: ast.Seq(
		decl(types.Int, "x", &ast.PairElem{Accessor: ast.Fst, Expr: &ast.PairLiteral{}}),
		exit0(),
	)}
	_, errs := check(prog)
	expectCodes(t, errs, PairDereferenceNull)

	prog.Stmt = ast.Seq(decl(types.Int, "x", &ast.PairElem{Accessor: ast.Snd, Expr: num(3)}), exit0())
	_, errs = check(prog)
	expectCodes(t, errs, TypeMismatch)
}

func TestNestedPairsUseMarker(t *testing.T) {
	inner := types.NewPair(types.Int, types.Int)
	outer := types.NewPair(types.PairMarker, types.Char)
	prog := &ast.Program{Stmt: ast.Seq(
		decl(inner, "in", &ast.NewPair{First: num(1), Second: num(2)}),
		decl(outer, "out", &ast.NewPair{First: id("in"), Second: &ast.CharLiteral{Value: 'z'}}),
		decl(types.AnyPair, "back", &ast.PairElem{Accessor: ast.Fst, Expr: id("out")}),
		exit0(),
	)}
	if _, errs := check(prog); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestClasses(t *testing.T) {
	get := fn("get", types.Int, &ast.Return{Expr: &ast.FieldAccess{Expr: id("this"), Field: "n"}})
	counter := &ast.Class{Name: "Counter", Fields: []*ast.Param{param("n", types.Int)}, Funcs: []*ast.Func{get}}
	method := &ast.Call{Recv: id("c"), Name: "get"}

	prog := &ast.Program{
		Classes: []*ast.Class{counter},
		Stmt: ast.Seq(
			decl(types.NewClass("Counter"), "c", &ast.NewInstance{Class: "Counter", Args: []ast.Expr{num(1)}}),
			&ast.Assign{Lhs: &ast.FieldAccess{Expr: id("c"), Field: "n"}, Rhs: num(5)},
			decl(types.Int, "v", method),
			&ast.Free{Expr: id("c")},
			exit0(),
		),
	}
	annotated, errs := check(prog)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if target := annotated.CallTarget(method); target.Func != get || target.Class != counter {
		t.Errorf("method call resolved to %+v", target)
	}
	if annotated.Owner(get) != counter {
		t.Errorf("owner of get not recorded")
	}

	bad := &ast.Program{
		Classes: []*ast.Class{
			{Name: "A", Fields: []*ast.Param{param("x", types.Int), param("x", types.Char)}},
			{Name: "A"},
		},
		Stmt: ast.Seq(
			decl(types.NewClass("A"), "a", &ast.NewInstance{Class: "A", Args: []ast.Expr{num(1)}}),
			decl(types.Int, "y", &ast.FieldAccess{Expr: id("a"), Field: "y"}),
			decl(types.Int, "z", &ast.Call{Recv: num(1), Name: "m"}),
			decl(types.Int, "w", &ast.Call{Recv: id("a"), Name: "nope"}),
			decl(types.Int, "q", &ast.NewInstance{Class: "B"}),
			exit0(),
		),
	}
	_, errs = check(bad)
	want := []Code{ClassRedefinition, DuplicateDeclarationError, ConstructorArityMismatch, FieldNotFoundError, TypeMismatch, FunctionNotFoundError, ClassNotFoundError}
	expectCodes(t, errs, want...)
}

func TestDisabledFeatures(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatBitwiseOps, false)
	cfg.SetFeature(config.FeatClasses, false)
	prog := &ast.Program{
		Classes: []*ast.Class{{Name: "C"}},
		Stmt: ast.Seq(
			&ast.Println{Expr: &ast.BinaryOp{Op: token.Xor, Left: num(1), Right: num(2)}},
			exit0(),
		),
	}
	_, errs := NewTypeChecker(cfg).Check(prog)
	expectCodes(t, errs, FeatureDisabled, FeatureDisabled)
}

func TestErrorOrderingAndFormat(t *testing.T) {
	prog := &ast.Program{Stmt: ast.Seq(
		&ast.Println{At: at(1, 0), Expr: &ast.Ident{At: at(1, 8), Name: "b"}},
		&ast.Println{At: at(2, 0), Expr: &ast.IntLiteral{At: at(2, 8), Value: 1 << 40}},
		&ast.Println{At: at(1, 20), Expr: &ast.Ident{At: at(1, 28), Name: "a"}},
		&ast.Skip{At: at(3, 0)},
	)}
	_, errs := check(prog)
	expectCodes(t, errs, IntTooBig, ProgramEndError, IdentNotFoundError, IdentNotFoundError)
	if errs[2].Pos != at(1, 8) || errs[3].Pos != at(1, 28) {
		t.Errorf("semantic errors not sorted by position: %v", errs)
	}

	want := "Semantic Error - identifier not found: identifier `b` is not declared (at 1:8)"
	if got := errs[2].Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !strings.HasPrefix(errs[0].Error(), "Syntax Error - numeric value too large") {
		t.Errorf("unexpected syntax error text %q", errs[0].Error())
	}
	if !HasSyntaxErrors(errs) || HasSyntaxErrors(errs[2:]) {
		t.Error("HasSyntaxErrors is wrong")
	}
}

func TestParallelCheckIsDeterministic(t *testing.T) {
	var funcs []*ast.Func
	for i := 0; i < 40; i++ {
		funcs = append(funcs, &ast.Func{
			At:   at(i+1, 0),
			Name: fmt.Sprintf("f%d", i),
			Type: types.Int,
			Body: &ast.Return{At: at(i+1, 4), Expr: &ast.Ident{At: at(i+1, 11), Name: "missing"}},
		})
	}
	prog := &ast.Program{Funcs: funcs, Stmt: exit0()}

	cfg := config.NewConfig()
	cfg.SetJobs(8)
	_, first := NewTypeChecker(cfg).Check(prog)
	for run := 0; run < 5; run++ {
		_, errs := NewTypeChecker(cfg).Check(prog)
		if diff := cmp.Diff(first, errs); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", run, diff)
		}
	}
	if len(first) != 40 || first[0].Pos.Line != 1 || first[39].Pos.Line != 40 {
		t.Errorf("unexpected errors: %v", first)
	}
}

func TestWarnings(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnUnusedFunc, true)
	unused := fn("lonely", types.Int, &ast.Return{Expr: num(0)})
	unused.At = at(1, 0)
	prog := &ast.Program{
		Funcs: []*ast.Func{unused},
		Stmt:  ast.Seq(&ast.Exit{Expr: num(0)}, &ast.Println{At: at(5, 0), Expr: num(1)}, exit0()),
	}
	tc := NewTypeChecker(cfg)
	if _, errs := tc.Check(prog); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	var kinds []config.Warning
	for _, w := range tc.Warnings() {
		kinds = append(kinds, w.Kind)
	}
	if diff := cmp.Diff([]config.Warning{config.WarnUnusedFunc, config.WarnUnreachableCode}, kinds); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}
