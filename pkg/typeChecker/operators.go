package typeChecker

import (
	"strings"

	"github.com/xplshn/gwacc/pkg/token"
	"github.com/xplshn/gwacc/pkg/types"
)

type opSpec struct {
	args       []types.Type
	allowClass bool
	result     types.Type
}

func (o opSpec) accepts(t types.Type) bool {
	if o.allowClass {
		if _, ok := t.(*types.Class); ok { return true }
	}
	for _, a := range o.args {
		if types.Matches(a, t) { return true }
	}
	return false
}

func (o opSpec) expected() string {
	names := make([]string, 0, len(o.args)+1)
	for _, a := range o.args {
		names = append(names, "`"+a.String()+"`")
	}
	if o.allowClass {
		names = append(names, "class instance")
	}
	return strings.Join(names, " or ")
}

var unaryOps = map[token.Type]opSpec{
	token.Not:        {args: []types.Type{types.Bool}, result: types.Bool},
	token.Negate:     {args: []types.Type{types.Int}, result: types.Int},
	token.Len:        {args: []types.Type{types.NewArray(types.Any)}, result: types.Int},
	token.Ord:        {args: []types.Type{types.Char}, result: types.Int},
	token.Chr:        {args: []types.Type{types.Int}, result: types.Char},
	token.Complement: {args: []types.Type{types.Int}, result: types.Int},
}

var (
	arith    = opSpec{args: []types.Type{types.Int}, result: types.Int}
	ordering = opSpec{args: []types.Type{types.Int, types.Char}, result: types.Bool}
	equality = opSpec{args: []types.Type{types.Int, types.Bool, types.Char, types.String, types.NewArray(types.Any), types.AnyPair}, allowClass: true, result: types.Bool}
	logical  = opSpec{args: []types.Type{types.Bool}, result: types.Bool}
)

var binaryOps = map[token.Type]opSpec{
	token.Star:   arith,
	token.Slash:  arith,
	token.Rem:    arith,
	token.Plus:   arith,
	token.Minus:  arith,
	token.Gt:     ordering,
	token.Gte:    ordering,
	token.Lt:     ordering,
	token.Lte:    ordering,
	token.EqEq:   equality,
	token.Neq:    equality,
	token.AndAnd: logical,
	token.OrOr:   logical,
	token.And:    arith,
	token.Or:     arith,
	token.Xor:    arith,
	token.Shl:    arith,
	token.Shr:    arith,
}
