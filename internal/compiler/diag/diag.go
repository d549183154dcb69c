package diag

import (
	"fmt"
	"sort"
)

// Kind classifies a diagnostic according to the compiler's error taxonomy.
type Kind string

const (
	Lex             Kind = "LexError"
	Parse           Kind = "ParseError"
	DuplicateSymbol Kind = "DuplicateSymbolError"
	UndefinedSymbol Kind = "UndefinedSymbolError"
	TypeMismatch    Kind = "TypeMismatchError"
	AddressConflict Kind = "AddressConflictError"
	ArityMismatch   Kind = "ArityMismatchError"
)

// Stage returns the pipeline stage the kind belongs to.
func (k Kind) Stage() string {
	switch k {
	case Lex:
		return "lex"
	case Parse:
		return "parse"
	default:
		return "semantic"
	}
}

// Diagnostic is one structured compiler error. The core never prints these;
// presentation is up to the caller.
type Diagnostic struct {
	Kind    Kind
	Line    int
	Column  int
	Message string
}

func New(kind Kind, line, column int, format string, args ...any) Diagnostic {
	return Diagnostic{
		Kind:    kind,
		Line:    line,
		Column:  column,
		Message: fmt.Sprintf(format, args...),
	}
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s: %s", d.Line, d.Column, d.Kind, d.Message)
}

// Sort orders diagnostics by source position, preserving the reporting order
// of diagnostics at the same position.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Line != ds[j].Line {
			return ds[i].Line < ds[j].Line
		}
		return ds[i].Column < ds[j].Column
	})
}
