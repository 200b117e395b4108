package typeChecker

import (
	"fmt"
	"sort"

	"github.com/xplshn/gwacc/pkg/config"
	"github.com/xplshn/gwacc/pkg/token"
	"github.com/xplshn/gwacc/pkg/types"
)

type Code int

const (
	// Syntax-class errors, detected during analysis
	FunctionEndError Code = iota
	ProgramEndError
	IntTooBig

	// Semantic-class errors
	IdentNotFoundError
	FunctionNotFoundError
	ClassNotFoundError
	FieldNotFoundError
	DuplicateDeclarationError
	FunctionRedefinition
	ClassRedefinition
	PairDereferenceNull
	ReturnOutsideFuncError
	TypeMismatch
	ReadTypeMismatch
	FreeTypeMismatch
	ReturnTypeMismatch
	ExitTypeMismatch
	UnaryOpInvalidType
	BinaryOpInvalidType
	BinaryArgsMismatch
	InvalidPairElemType
	ConstructorArityMismatch
	FeatureDisabled
)

var codeNames = map[Code]string{
	FunctionEndError:          "FunctionEndError",
	ProgramEndError:           "ProgramEndError",
	IntTooBig:                 "IntTooBig",
	IdentNotFoundError:        "IdentNotFoundError",
	FunctionNotFoundError:     "FunctionNotFoundError",
	ClassNotFoundError:        "ClassNotFoundError",
	FieldNotFoundError:        "FieldNotFoundError",
	DuplicateDeclarationError: "DuplicateDeclarationError",
	FunctionRedefinition:      "FunctionRedefinition",
	ClassRedefinition:         "ClassRedefinition",
	PairDereferenceNull:       "PairDereferenceNull",
	ReturnOutsideFuncError:    "ReturnOutsideFuncError",
	TypeMismatch:              "TypeMismatch",
	ReadTypeMismatch:          "ReadTypeMismatch",
	FreeTypeMismatch:          "FreeTypeMismatch",
	ReturnTypeMismatch:        "ReturnTypeMismatch",
	ExitTypeMismatch:          "ExitTypeMismatch",
	UnaryOpInvalidType:        "UnaryOpInvalidType",
	BinaryOpInvalidType:       "BinaryOpInvalidType",
	BinaryArgsMismatch:        "BinaryArgsMismatch",
	InvalidPairElemType:       "InvalidPairElemType",
	ConstructorArityMismatch:  "ConstructorArityMismatch",
	FeatureDisabled:           "FeatureDisabled",
}

func (c Code) String() string { return codeNames[c] }

// Semantic reports whether c belongs to the semantic class; the rest are
// syntax-class errors found late.
func (c Code) Semantic() bool { return c >= IdentNotFoundError }

// Category is the human-readable group shown to users.
func (c Code) Category() string {
	switch c {
	case FunctionEndError, ProgramEndError: return "invalid syntax"
	case IntTooBig: return "numeric value too large"
	case IdentNotFoundError, FunctionNotFoundError, ClassNotFoundError, FieldNotFoundError: return "identifier not found"
	case DuplicateDeclarationError: return "duplicate declaration"
	case FunctionRedefinition: return "function redefinition"
	case ClassRedefinition: return "class redefinition"
	case PairDereferenceNull: return "null access"
	case ReturnOutsideFuncError: return "return outside of function"
	case FeatureDisabled: return "unsupported feature"
	}
	return "type mismatch"
}

// Error is one diagnostic produced by the analyzer.
type Error struct {
	Code Code
	Pos  token.Pos
	Msg  string
}

func (e *Error) Semantic() bool { return e.Code.Semantic() }

func (e *Error) Error() string {
	class := "Syntax"
	if e.Semantic() {
		class = "Semantic"
	}
	return fmt.Sprintf("%s Error - %s: %s (at %s)", class, e.Code.Category(), e.Msg, e.Pos)
}

func newError(code Code, pos token.Pos, format string, args ...interface{}) *Error {
	return &Error{Code: code, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func mismatch(code Code, pos token.Pos, expected, actual types.Type) *Error {
	return newError(code, pos, "expected type `%s`, actual type `%s`", expected, actual)
}

// SortErrors orders syntax-class errors first, then by line and column.
func SortErrors(errs []*Error) {
	sort.SliceStable(errs, func(i, j int) bool {
		a, b := errs[i], errs[j]
		if a.Semantic() != b.Semantic() { return !a.Semantic() }
		return a.Pos.Before(b.Pos)
	})
}

// HasSyntaxErrors reports whether any error is of the syntax class.
func HasSyntaxErrors(errs []*Error) bool {
	for _, e := range errs {
		if !e.Semantic() { return true }
	}
	return false
}

// Warning is a non-fatal diagnostic gated by a config.Warning.
type Warning struct {
	Kind config.Warning
	Pos  token.Pos
	Msg  string
}
