package ast

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xplshn/gwacc/pkg/token"
	"github.com/xplshn/gwacc/pkg/types"
)

// The external parser hands over the tree as JSON: one object per node, with
// a "kind" discriminator and a [line, column] position.

type wireNode struct {
	Kind    string          `json:"kind"`
	Pos     []int           `json:"pos"`
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Op      string          `json:"op"`
	Value   json.RawMessage `json:"value"`
	Field   string          `json:"field"`
	Class   string          `json:"class"`
	Lhs     *wireNode       `json:"lhs"`
	Rhs     *wireNode       `json:"rhs"`
	Expr    *wireNode       `json:"expr"`
	Cond    *wireNode       `json:"cond"`
	Then    *wireNode       `json:"then"`
	Else    *wireNode       `json:"else"`
	Body    *wireNode       `json:"body"`
	Left    *wireNode       `json:"left"`
	Right   *wireNode       `json:"right"`
	Fst     *wireNode       `json:"fst"`
	Snd     *wireNode       `json:"snd"`
	Recv    *wireNode       `json:"recv"`
	Stmts   []*wireNode     `json:"stmts"`
	Indices []*wireNode     `json:"indices"`
	Elems   []*wireNode     `json:"elems"`
	Args    []*wireNode     `json:"args"`
}

type wireParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Pos  []int  `json:"pos"`
}

type wireFunc struct {
	Name   string      `json:"name"`
	Type   string      `json:"type"`
	Params []wireParam `json:"params"`
	Body   *wireNode   `json:"body"`
	Pos    []int       `json:"pos"`
}

type wireClass struct {
	Name   string      `json:"name"`
	Fields []wireParam `json:"fields"`
	Funcs  []wireFunc  `json:"funcs"`
	Pos    []int       `json:"pos"`
}

type wireProgram struct {
	Includes []string    `json:"includes"`
	Classes  []wireClass `json:"classes"`
	Funcs    []wireFunc  `json:"funcs"`
	Stmt     *wireNode   `json:"stmt"`
}

// Decode reads a JSON-encoded program.
func Decode(r io.Reader) (*Program, error) {
	var wp wireProgram
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wp); err != nil {
		return nil, fmt.Errorf("decoding program: %w", err)
	}

	prog := &Program{Includes: wp.Includes}
	for _, wc := range wp.Classes {
		c, err := decodeClass(wc)
		if err != nil { return nil, err }
		prog.Classes = append(prog.Classes, c)
	}
	for _, wf := range wp.Funcs {
		f, err := decodeFunc(wf)
		if err != nil { return nil, err }
		prog.Funcs = append(prog.Funcs, f)
	}
	if wp.Stmt != nil {
		s, err := decodeStmt(wp.Stmt)
		if err != nil { return nil, err }
		prog.Stmt = s
	}
	return prog, nil
}

func pos(p []int) token.Pos {
	if len(p) < 2 { return token.Pos{} }
	return token.Pos{Line: p[0], Column: p[1]}
}

func decodeParams(wps []wireParam) ([]*Param, error) {
	params := make([]*Param, 0, len(wps))
	for _, wp := range wps {
		t, err := ParseType(wp.Type)
		if err != nil { return nil, fmt.Errorf("%s: parameter '%s': %w", pos(wp.Pos), wp.Name, err) }
		params = append(params, &Param{At: pos(wp.Pos), Name: wp.Name, Type: t})
	}
	return params, nil
}

func decodeFunc(wf wireFunc) (*Func, error) {
	t, err := ParseType(wf.Type)
	if err != nil { return nil, fmt.Errorf("%s: function '%s': %w", pos(wf.Pos), wf.Name, err) }
	params, err := decodeParams(wf.Params)
	if err != nil { return nil, err }
	if wf.Body == nil { return nil, fmt.Errorf("%s: function '%s' has no body", pos(wf.Pos), wf.Name) }
	body, err := decodeStmt(wf.Body)
	if err != nil { return nil, err }
	return &Func{At: pos(wf.Pos), Name: wf.Name, Type: t, Params: params, Body: body}, nil
}

func decodeClass(wc wireClass) (*Class, error) {
	fields, err := decodeParams(wc.Fields)
	if err != nil { return nil, err }
	c := &Class{At: pos(wc.Pos), Name: wc.Name, Fields: fields}
	for _, wf := range wc.Funcs {
		f, err := decodeFunc(wf)
		if err != nil { return nil, err }
		c.Funcs = append(c.Funcs, f)
	}
	return c, nil
}

func decodeStmt(w *wireNode) (Stmt, error) {
	if w == nil { return nil, fmt.Errorf("missing statement") }
	at := pos(w.Pos)

	switch w.Kind {
	case "skip":
		return &Skip{At: at}, nil
	case "declare":
		t, err := ParseType(w.Type)
		if err != nil { return nil, fmt.Errorf("%s: %w", at, err) }
		rhs, err := decodeRhs(w.Rhs)
		if err != nil { return nil, err }
		return &AssignNew{At: at, Type: t, Name: w.Name, Rhs: rhs}, nil
	case "assign":
		lhs, err := decodeLhs(w.Lhs)
		if err != nil { return nil, err }
		rhs, err := decodeRhs(w.Rhs)
		if err != nil { return nil, err }
		return &Assign{At: at, Lhs: lhs, Rhs: rhs}, nil
	case "read":
		lhs, err := decodeLhs(w.Lhs)
		if err != nil { return nil, err }
		return &Read{At: at, Lhs: lhs}, nil
	case "free", "return", "exit", "print", "println":
		e, err := decodeExpr(w.Expr)
		if err != nil { return nil, err }
		switch w.Kind {
		case "free": return &Free{At: at, Expr: e}, nil
		case "return": return &Return{At: at, Expr: e}, nil
		case "exit": return &Exit{At: at, Expr: e}, nil
		case "print": return &Print{At: at, Expr: e}, nil
		default: return &Println{At: at, Expr: e}, nil
		}
	case "if":
		cond, err := decodeExpr(w.Cond)
		if err != nil { return nil, err }
		then, err := decodeStmt(w.Then)
		if err != nil { return nil, err }
		els, err := decodeStmt(w.Else)
		if err != nil { return nil, err }
		return &IfThenElse{At: at, Cond: cond, Then: then, Else: els}, nil
	case "while":
		cond, err := decodeExpr(w.Cond)
		if err != nil { return nil, err }
		body, err := decodeStmt(w.Body)
		if err != nil { return nil, err }
		return &WhileDo{At: at, Cond: cond, Body: body}, nil
	case "begin":
		body, err := decodeStmt(w.Body)
		if err != nil { return nil, err }
		return &Begin{At: at, Body: body}, nil
	case "seq":
		stmts := make([]Stmt, 0, len(w.Stmts))
		for _, ws := range w.Stmts {
			s, err := decodeStmt(ws)
			if err != nil { return nil, err }
			stmts = append(stmts, s)
		}
		if len(stmts) == 0 { return nil, fmt.Errorf("%s: empty statement sequence", at) }
		return Seq(stmts...), nil
	}
	return nil, fmt.Errorf("%s: unknown statement kind '%s'", at, w.Kind)
}

func decodeExprs(ws []*wireNode) ([]Expr, error) {
	exprs := make([]Expr, 0, len(ws))
	for _, w := range ws {
		e, err := decodeExpr(w)
		if err != nil { return nil, err }
		exprs = append(exprs, e)
	}
	return exprs, nil
}

// intValue reads an integer literal. Values beyond int64 saturate so the
// analyzer still reports them as out of range.
func intValue(raw json.RawMessage) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil { return 0, err }
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if errors.Is(err, strconv.ErrRange) { return v, nil }
	if err != nil { return 0, fmt.Errorf("'%s' is not an integer", n) }
	return v, nil
}

func decodeExpr(w *wireNode) (Expr, error) {
	if w == nil { return nil, fmt.Errorf("missing expression") }
	at := pos(w.Pos)

	switch w.Kind {
	case "int":
		v, err := intValue(w.Value)
		if err != nil { return nil, fmt.Errorf("%s: int literal: %w", at, err) }
		return &IntLiteral{At: at, Value: v}, nil
	case "bool":
		var v bool
		if err := json.Unmarshal(w.Value, &v); err != nil { return nil, fmt.Errorf("%s: bool literal: %w", at, err) }
		return &BoolLiteral{At: at, Value: v}, nil
	case "char":
		var v string
		if err := json.Unmarshal(w.Value, &v); err != nil || len(v) != 1 {
			return nil, fmt.Errorf("%s: char literal must be a single byte", at)
		}
		return &CharLiteral{At: at, Value: v[0]}, nil
	case "string":
		var v string
		if err := json.Unmarshal(w.Value, &v); err != nil { return nil, fmt.Errorf("%s: string literal: %w", at, err) }
		return &StringLiteral{At: at, Value: v}, nil
	case "null":
		return &PairLiteral{At: at}, nil
	case "ident":
		return &Ident{At: at, Name: w.Name}, nil
	case "index":
		idx, err := decodeExprs(w.Indices)
		if err != nil { return nil, err }
		if len(idx) == 0 { return nil, fmt.Errorf("%s: array access without index", at) }
		return &ArrayElem{At: at, Name: w.Name, Indices: idx}, nil
	case "unary":
		op, ok := token.UnaryMap[w.Op]
		if !ok { return nil, fmt.Errorf("%s: unknown unary operator '%s'", at, w.Op) }
		e, err := decodeExpr(w.Expr)
		if err != nil { return nil, err }
		return &UnaryOp{At: at, Op: op, Expr: e}, nil
	case "binary":
		op, ok := token.BinaryMap[w.Op]
		if !ok { return nil, fmt.Errorf("%s: unknown binary operator '%s'", at, w.Op) }
		l, err := decodeExpr(w.Left)
		if err != nil { return nil, err }
		r, err := decodeExpr(w.Right)
		if err != nil { return nil, err }
		return &BinaryOp{At: at, Op: op, Left: l, Right: r}, nil
	case "field":
		e, err := decodeExpr(w.Expr)
		if err != nil { return nil, err }
		return &FieldAccess{At: at, Expr: e, Field: w.Field}, nil
	}
	return nil, fmt.Errorf("%s: unknown expression kind '%s'", at, w.Kind)
}

func decodeLhs(w *wireNode) (AssignLhs, error) {
	if w == nil { return nil, fmt.Errorf("missing assignment target") }
	switch w.Kind {
	case "fst", "snd":
		return decodePairElem(w)
	case "ident", "index", "field":
		e, err := decodeExpr(w)
		if err != nil { return nil, err }
		return e.(AssignLhs), nil
	}
	return nil, fmt.Errorf("%s: '%s' is not assignable", pos(w.Pos), w.Kind)
}

func decodePairElem(w *wireNode) (*PairElem, error) {
	e, err := decodeExpr(w.Expr)
	if err != nil { return nil, err }
	acc := Fst
	if w.Kind == "snd" { acc = Snd }
	return &PairElem{At: pos(w.Pos), Accessor: acc, Expr: e}, nil
}

func decodeRhs(w *wireNode) (AssignRhs, error) {
	if w == nil { return nil, fmt.Errorf("missing right-hand side") }
	at := pos(w.Pos)

	switch w.Kind {
	case "array":
		elems, err := decodeExprs(w.Elems)
		if err != nil { return nil, err }
		return &ArrayLiteral{At: at, Elems: elems}, nil
	case "newpair":
		f, err := decodeExpr(w.Fst)
		if err != nil { return nil, err }
		s, err := decodeExpr(w.Snd)
		if err != nil { return nil, err }
		return &NewPair{At: at, First: f, Second: s}, nil
	case "fst", "snd":
		return decodePairElem(w)
	case "call":
		args, err := decodeExprs(w.Args)
		if err != nil { return nil, err }
		call := &Call{At: at, Name: w.Name, Args: args}
		if w.Recv != nil {
			if call.Recv, err = decodeExpr(w.Recv); err != nil { return nil, err }
		}
		return call, nil
	case "new":
		args, err := decodeExprs(w.Args)
		if err != nil { return nil, err }
		return &NewInstance{At: at, Class: w.Class, Args: args}, nil
	}
	return decodeExpr(w)
}

// ParseType reads the surface syntax of a type: base types, `T[]`,
// `pair(A, B)`, the bare `pair` marker inside pairs, or a class name.
func ParseType(s string) (types.Type, error) {
	p := &typeParser{src: strings.TrimSpace(s)}
	t, err := p.parse(false)
	if err != nil { return nil, err }
	if p.pos != len(p.src) { return nil, fmt.Errorf("invalid type '%s'", s) }
	return t, nil
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *typeParser) expect(c byte) error {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != c {
		return fmt.Errorf("invalid type '%s': expected '%c'", p.src, c)
	}
	p.pos++
	return nil
}

func (p *typeParser) parse(inPair bool) (types.Type, error) {
	name := p.ident()
	var t types.Type
	switch name {
	case "": return nil, fmt.Errorf("invalid type '%s'", p.src)
	case "int": t = types.Int
	case "bool": t = types.Bool
	case "char": t = types.Char
	case "string": t = types.String
	case "pair":
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == '(' {
			p.pos++
			fst, err := p.pairElem()
			if err != nil { return nil, err }
			if err := p.expect(','); err != nil { return nil, err }
			snd, err := p.pairElem()
			if err != nil { return nil, err }
			if err := p.expect(')'); err != nil { return nil, err }
			t = types.NewPair(fst, snd)
		} else if inPair {
			t = types.PairMarker
		} else {
			return nil, fmt.Errorf("invalid type '%s': bare 'pair' outside a pair type", p.src)
		}
	default:
		t = types.NewClass(name)
	}

	for {
		p.skipSpace()
		if !strings.HasPrefix(p.src[p.pos:], "[]") { break }
		p.pos += 2
		t = types.NewArray(t)
	}
	return t, nil
}

func (p *typeParser) pairElem() (types.PairElem, error) {
	t, err := p.parse(true)
	if err != nil { return nil, err }
	e, ok := t.(types.PairElem)
	if !ok { return nil, fmt.Errorf("invalid type '%s': pairs cannot nest typed pairs", p.src) }
	return e, nil
}

// Merge prepends the declarations of library fragments to prog.
func Merge(prog *Program, libs ...*Program) (*Program, error) {
	merged := &Program{Includes: prog.Includes, Stmt: prog.Stmt}
	for _, lib := range libs {
		if !lib.IsLibrary() { return nil, fmt.Errorf("included program has a top-level statement") }
		merged.Classes = append(merged.Classes, lib.Classes...)
		merged.Funcs = append(merged.Funcs, lib.Funcs...)
	}
	merged.Classes = append(merged.Classes, prog.Classes...)
	merged.Funcs = append(merged.Funcs, prog.Funcs...)
	return merged, nil
}
