package codegen

import "github.com/xplshn/gwacc/pkg/ast"

// weight estimates how many registers evaluating e needs.
func weight(e ast.Expr) int {
	switch e := e.(type) {
	case *ast.ArrayElem:
		w := 0
		for _, idx := range e.Indices {
			w = max(w, weight(idx))
		}
		return w + 1
	case *ast.UnaryOp:
		return weight(e.Expr)
	case *ast.BinaryOp:
		return combineWeights(weight(e.Left), weight(e.Right))
	case *ast.FieldAccess:
		return weight(e.Expr)
	}
	return 1
}

func combineWeights(w1, w2 int) int {
	return min(max(w1, w2+1), max(w1+1, w2))
}
